package collectors

import (
	"context"
	"fmt"
	"time"

	"github.com/LavaJover/mmk-rates-service/internal/domain"
	"github.com/PuerkitoBio/goquery"
)

const CBMSource = "CBM"

type CBMEndpoints struct {
	API  string
	Page string
}

var DefaultCBMEndpoints = CBMEndpoints{
	API:  "https://forex.cbm.gov.mm/api/latest",
	Page: "https://forex.cbm.gov.mm/index.php/fxrate",
}

var cbmCurrencies = currencyTable{
	{"Singapore", "SGD"},
	{"Australian", "AUD"},
	{"Euro", "EUR"},
	{"Pound", "GBP"},
	{"Yen", "JPY"},
	{"Yuan", "CNY"},
	{"Baht", "THB"},
	{"Ringgit", "MYR"},
	{"Won", "KRW"},
	{"Rupee", "INR"},
	{"Dollar", "USD"},
}

type cbmAPIResponse struct {
	Rates     map[string]flexNumber `json:"rates"`
	Timestamp flexTime              `json:"timestamp"`
}

// CBMCollector reads the Central Bank of Myanmar reference rates.
type CBMCollector struct {
	fetcher   *Fetcher
	endpoints CBMEndpoints
	rates     rateFactory
}

func NewCBMCollector(fetcher *Fetcher, validator domain.RateValidator, endpoints CBMEndpoints) *CBMCollector {
	return &CBMCollector{
		fetcher:   fetcher,
		endpoints: endpoints,
		rates:     rateFactory{source: CBMSource, validator: validator, now: time.Now},
	}
}

func (c *CBMCollector) Name() string              { return CBMSource }
func (c *CBMCollector) Priority() domain.Priority { return domain.PriorityHigh }

func (c *CBMCollector) Collect(ctx context.Context) domain.CollectorResult {
	return runTiers(ctx, CBMSource, c.rates.now,
		tier{name: "api", method: domain.MethodAPI, fetch: c.fromAPI},
		tier{name: "rate page", method: domain.MethodWebScrape, fetch: c.fromPage},
	)
}

func (c *CBMCollector) fromAPI(ctx context.Context) ([]domain.ExchangeRate, error) {
	var resp cbmAPIResponse
	if err := c.fetcher.GetJSON(ctx, c.endpoints.API, &resp); err != nil {
		return nil, err
	}
	if resp.Rates == nil {
		return nil, fmt.Errorf("%w: cbm api response has no rates object", domain.ErrMalformedResponse)
	}

	ts := resp.Timestamp.Time()
	var out rateSet
	for code, value := range resp.Rates {
		out.add(c.rates.single(code, float64(value), c.endpoints.API, ts))
	}
	return out, nil
}

func (c *CBMCollector) fromPage(ctx context.Context) ([]domain.ExchangeRate, error) {
	doc, html, err := c.fetcher.GetDocument(ctx, c.endpoints.Page)
	if err != nil {
		return nil, err
	}

	if rates := c.parseMainTable(doc); len(rates) > 0 {
		return rates, nil
	}
	if rates := c.parseLabelledTables(doc); len(rates) > 0 {
		return rates, nil
	}
	return nil, newNoRatesError(CBMSource, html)
}

// parseMainTable reads rows shaped as: no, currency, rate[, buy, sell].
func (c *CBMCollector) parseMainTable(doc *goquery.Document) []domain.ExchangeRate {
	var out rateSet
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := cellTexts(row)
		if len(cells) < 3 {
			return
		}
		code := resolveCurrency(cells[1], cbmCurrencies, false)
		if code == "" {
			return
		}
		var buy, sell float64
		if len(cells) >= 5 {
			buy, sell = parseNumber(cells[3]), parseNumber(cells[4])
		}
		out.add(c.rates.quoted(code, parseNumber(cells[2]), buy, sell, c.endpoints.Page, time.Time{}))
	})
	return out
}

func (c *CBMCollector) parseLabelledTables(doc *goquery.Document) []domain.ExchangeRate {
	var out rateSet
	doc.Find(".fxrate-table tr, .exchange-rate-table tr, #fxrate tr").Each(func(_ int, row *goquery.Selection) {
		cells := cellTexts(row)
		if len(cells) < 2 {
			return
		}
		code := resolveCurrency(cells[0], cbmCurrencies, false)
		if code == "" {
			return
		}
		out.add(c.rates.single(code, parseNumber(cells[1]), c.endpoints.Page, time.Time{}))
	})
	return out
}
