package collectors

import (
	"context"
	"time"

	"github.com/LavaJover/mmk-rates-service/internal/domain"
	"github.com/PuerkitoBio/goquery"
)

const KBZSource = "KBZ"

type KBZEndpoints struct {
	Page string
}

var DefaultKBZEndpoints = KBZEndpoints{
	Page: "https://www.kbzbank.com/en/reference-exchange-rate/",
}

var kbzCurrencies = currencyTable{
	{"USD", "USD"},
	{"EUR", "EUR"},
	{"Euro", "EUR"},
	{"SGD", "SGD"},
	{"Singapore", "SGD"},
	{"THB", "THB"},
	{"Thai", "THB"},
	{"JPY", "JPY"},
	{"Yen", "JPY"},
	{"CNY", "CNY"},
	{"Yuan", "CNY"},
	{"GBP", "GBP"},
	{"Pound", "GBP"},
	{"Dollar", "USD"},
}

// KBZCollector scrapes the KBZ reference rate page; the bank has no public API.
type KBZCollector struct {
	fetcher   *Fetcher
	endpoints KBZEndpoints
	rates     rateFactory
}

func NewKBZCollector(fetcher *Fetcher, validator domain.RateValidator, endpoints KBZEndpoints) *KBZCollector {
	return &KBZCollector{
		fetcher:   fetcher,
		endpoints: endpoints,
		rates:     rateFactory{source: KBZSource, validator: validator, now: time.Now},
	}
}

func (c *KBZCollector) Name() string              { return KBZSource }
func (c *KBZCollector) Priority() domain.Priority { return domain.PriorityMedium }

func (c *KBZCollector) Collect(ctx context.Context) domain.CollectorResult {
	return runTiers(ctx, KBZSource, c.rates.now,
		tier{name: "rate page", method: domain.MethodWebScrape, fetch: c.fromPage},
	)
}

func (c *KBZCollector) fromPage(ctx context.Context) ([]domain.ExchangeRate, error) {
	doc, html, err := c.fetcher.GetDocument(ctx, c.endpoints.Page)
	if err != nil {
		return nil, err
	}

	// Plain tables carry explicit codes; the styled tables use currency names.
	if rates := c.parseRows(doc.Find("table tr"), nil); len(rates) > 0 {
		return rates, nil
	}
	if rates := c.parseRows(doc.Find(".exchange-rate-table tr, .rate-table tr, .forex-table tr"), kbzCurrencies); len(rates) > 0 {
		return rates, nil
	}
	return nil, newNoRatesError(KBZSource, html)
}

func (c *KBZCollector) parseRows(rows *goquery.Selection, table currencyTable) []domain.ExchangeRate {
	var out rateSet
	rows.Each(func(_ int, row *goquery.Selection) {
		cells := cellTexts(row)
		if len(cells) < 3 {
			return
		}
		code := resolveCurrency(cells[0], table, false)
		if code == "" {
			return
		}
		out.add(c.rates.buySell(code, parseNumber(cells[1]), parseNumber(cells[2]), c.endpoints.Page, time.Time{}))
	})
	return out
}
