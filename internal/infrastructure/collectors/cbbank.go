package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/LavaJover/mmk-rates-service/internal/domain"
	"github.com/PuerkitoBio/goquery"
)

const CBBankSource = "CB Bank"

type CBBankEndpoints struct {
	API       string
	RatesPage string
	MainPage  string
}

var DefaultCBBankEndpoints = CBBankEndpoints{
	API:       "https://www.cbbank.com.mm/api/rates",
	RatesPage: "https://www.cbbank.com.mm/en/exchange-rates",
	MainPage:  "https://www.cbbank.com.mm/en",
}

// Matched case-insensitively.
var cbBankCurrencies = currencyTable{
	{"australian", "AUD"},
	{"aud", "AUD"},
	{"singapore", "SGD"},
	{"sgd", "SGD"},
	{"euro", "EUR"},
	{"eur", "EUR"},
	{"pound", "GBP"},
	{"gbp", "GBP"},
	{"yen", "JPY"},
	{"jpy", "JPY"},
	{"yuan", "CNY"},
	{"cny", "CNY"},
	{"baht", "THB"},
	{"thb", "THB"},
	{"usd", "USD"},
	{"dollar", "USD"},
}

var cbBankWidgetRate = regexp.MustCompile(`([A-Z]{3})\s*[:=]\s*([\d,]+)`)

type cbBankRateItem struct {
	Currency string     `json:"currency"`
	Rate     flexNumber `json:"rate"`
	Buy      flexNumber `json:"buy"`
	Sell     flexNumber `json:"sell"`
}

type cbBankAPIResponse struct {
	Rates []cbBankRateItem `json:"rates"`
	Data  json.RawMessage  `json:"data"`
}

type CBBankCollector struct {
	fetcher   *Fetcher
	endpoints CBBankEndpoints
	rates     rateFactory
}

func NewCBBankCollector(fetcher *Fetcher, validator domain.RateValidator, endpoints CBBankEndpoints) *CBBankCollector {
	return &CBBankCollector{
		fetcher:   fetcher,
		endpoints: endpoints,
		rates:     rateFactory{source: CBBankSource, validator: validator, now: time.Now},
	}
}

func (c *CBBankCollector) Name() string              { return CBBankSource }
func (c *CBBankCollector) Priority() domain.Priority { return domain.PriorityMedium }

func (c *CBBankCollector) Collect(ctx context.Context) domain.CollectorResult {
	return runTiers(ctx, CBBankSource, c.rates.now,
		tier{name: "api", method: domain.MethodAPI, fetch: c.fromAPI},
		tier{name: "rates page", method: domain.MethodWebScrape, fetch: c.pageTier(c.endpoints.RatesPage)},
		tier{name: "main page", method: domain.MethodWebScrape, fetch: c.pageTier(c.endpoints.MainPage)},
	)
}

func (c *CBBankCollector) fromAPI(ctx context.Context) ([]domain.ExchangeRate, error) {
	var raw json.RawMessage
	if err := c.fetcher.GetJSON(ctx, c.endpoints.API, &raw); err != nil {
		return nil, err
	}

	items, err := decodeCBBankItems(raw)
	if err != nil {
		return nil, err
	}

	var out rateSet
	for _, item := range items {
		switch {
		case item.Rate > 0:
			out.add(c.rates.single(item.Currency, float64(item.Rate), c.endpoints.API, time.Time{}))
		case item.Buy > 0 && item.Sell > 0:
			out.add(c.rates.buySell(item.Currency, float64(item.Buy), float64(item.Sell), c.endpoints.API, time.Time{}))
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("cb bank api: %w", domain.ErrNoRatesFound)
	}
	return out, nil
}

// decodeCBBankItems accepts {rates:[...]}, {data:[...]}, {data:{rates:[...]}} or a bare array.
func decodeCBBankItems(raw json.RawMessage) ([]cbBankRateItem, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var items []cbBankRateItem
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%w: cb bank api: %v", domain.ErrMalformedResponse, err)
		}
		return items, nil
	}

	var resp cbBankAPIResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: cb bank api: %v", domain.ErrMalformedResponse, err)
	}
	if len(resp.Rates) > 0 {
		return resp.Rates, nil
	}
	if len(resp.Data) > 0 && string(resp.Data) != "null" {
		return decodeCBBankItems(resp.Data)
	}
	return nil, fmt.Errorf("%w: cb bank api response has no rates", domain.ErrMalformedResponse)
}

func (c *CBBankCollector) pageTier(url string) func(ctx context.Context) ([]domain.ExchangeRate, error) {
	return func(ctx context.Context) ([]domain.ExchangeRate, error) {
		doc, html, err := c.fetcher.GetDocument(ctx, url)
		if err != nil {
			return nil, err
		}
		if rates := c.parseTables(doc, url); len(rates) > 0 {
			return rates, nil
		}
		if rates := c.parseWidgets(doc, url); len(rates) > 0 {
			return rates, nil
		}
		return nil, newNoRatesError(CBBankSource, html)
	}
}

func (c *CBBankCollector) parseTables(doc *goquery.Document, url string) []domain.ExchangeRate {
	var out rateSet
	seen := make(map[string]bool)
	selector := "table.exchange-rates tr, table.rates tr, .exchange-rate-table tr, .currency-exchange tr, table tr"
	doc.Find(selector).Each(func(_ int, row *goquery.Selection) {
		cells := cellTexts(row)
		if len(cells) < 2 {
			return
		}
		code := resolveCurrency(cells[0], cbBankCurrencies, true)
		if code == "" || seen[code] {
			return
		}

		var (
			rate domain.ExchangeRate
			ok   bool
		)
		if len(cells) == 2 {
			rate, ok = c.rates.single(code, parseNumber(cells[1]), url, time.Time{})
		} else {
			rate, ok = c.rates.buySell(code, parseNumber(cells[1]), parseNumber(cells[2]), url, time.Time{})
		}
		if ok {
			seen[code] = true
		}
		out.add(rate, ok)
	})
	return out
}

func (c *CBBankCollector) parseWidgets(doc *goquery.Document, url string) []domain.ExchangeRate {
	var out rateSet
	seen := make(map[string]bool)
	doc.Find(".rate-widget, .currency-widget, .exchange-box, .rate-display").Each(func(_ int, widget *goquery.Selection) {
		for _, m := range cbBankWidgetRate.FindAllStringSubmatch(widget.Text(), -1) {
			if seen[m[1]] {
				continue
			}
			rate, ok := c.rates.single(m[1], parseNumber(m[2]), url, time.Time{})
			if ok {
				seen[m[1]] = true
			}
			out.add(rate, ok)
		}
	})
	return out
}
