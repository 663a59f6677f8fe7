package collectors

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/LavaJover/mmk-rates-service/internal/domain"
	"github.com/PuerkitoBio/goquery"
)

const (
	YomaSource = "Yoma"

	RemittanceCurrency = "USD_REMITTANCE"
)

type YomaEndpoints struct {
	API  string
	Page string
}

var DefaultYomaEndpoints = YomaEndpoints{
	API:  "https://www.yomabank.com/api/exchange-rates",
	Page: "https://www.yomabank.com/en/rates/",
}

var yomaCurrencies = currencyTable{
	{"Singapore", "SGD"},
	{"Euro", "EUR"},
	{"Thai", "THB"},
	{"Baht", "THB"},
	{"Yuan", "CNY"},
	{"Chinese", "CNY"},
	{"Pound", "GBP"},
	{"Sterling", "GBP"},
	{"Yen", "JPY"},
	{"Japanese", "JPY"},
	{"Dollar", "USD"},
}

var remittanceLine = regexp.MustCompile(`(?i)1\s*USD\s*=\s*([\d,]+)\s*MMK`)

type yomaAPIResponse struct {
	Rates []struct {
		Currency string     `json:"currency"`
		Buy      flexNumber `json:"buy"`
		Sell     flexNumber `json:"sell"`
	} `json:"rates"`
}

type YomaCollector struct {
	fetcher   *Fetcher
	endpoints YomaEndpoints
	rates     rateFactory
}

func NewYomaCollector(fetcher *Fetcher, validator domain.RateValidator, endpoints YomaEndpoints) *YomaCollector {
	return &YomaCollector{
		fetcher:   fetcher,
		endpoints: endpoints,
		rates:     rateFactory{source: YomaSource, validator: validator, now: time.Now},
	}
}

func (c *YomaCollector) Name() string              { return YomaSource }
func (c *YomaCollector) Priority() domain.Priority { return domain.PriorityMedium }

func (c *YomaCollector) Collect(ctx context.Context) domain.CollectorResult {
	return runTiers(ctx, YomaSource, c.rates.now,
		tier{name: "api", method: domain.MethodAPI, fetch: c.fromAPI},
		tier{name: "rate page", method: domain.MethodWebScrape, fetch: c.fromPage},
	)
}

func (c *YomaCollector) fromAPI(ctx context.Context) ([]domain.ExchangeRate, error) {
	var resp yomaAPIResponse
	if err := c.fetcher.GetJSON(ctx, c.endpoints.API, &resp); err != nil {
		return nil, err
	}
	if resp.Rates == nil {
		return nil, fmt.Errorf("%w: yoma api response has no rates array", domain.ErrMalformedResponse)
	}

	var out rateSet
	for _, item := range resp.Rates {
		out.add(c.rates.buySell(item.Currency, float64(item.Buy), float64(item.Sell), c.endpoints.API, time.Time{}))
	}
	return out, nil
}

// fromPage reads the rate table (or cards) and adds the remittance line when present.
func (c *YomaCollector) fromPage(ctx context.Context) ([]domain.ExchangeRate, error) {
	doc, html, err := c.fetcher.GetDocument(ctx, c.endpoints.Page)
	if err != nil {
		return nil, err
	}

	rates := c.parseTables(doc)
	if len(rates) == 0 {
		rates = c.parseCards(doc)
	}
	if remittance, ok := c.parseRemittance(doc); ok {
		rates = append(rates, remittance)
	}
	if len(rates) == 0 {
		return nil, newNoRatesError(YomaSource, html)
	}
	return rates, nil
}

func (c *YomaCollector) parseTables(doc *goquery.Document) []domain.ExchangeRate {
	var out rateSet
	doc.Find(".exchange-rate-table tr, .rate-table tr, .forex-rates tr, table.rates tr").Each(func(_ int, row *goquery.Selection) {
		cells := cellTexts(row)
		if len(cells) < 3 {
			return
		}
		code := resolveCurrency(cells[0], yomaCurrencies, false)
		if code == "" {
			return
		}
		out.add(c.rates.buySell(code, parseNumber(cells[1]), parseNumber(cells[2]), c.endpoints.Page, time.Time{}))
	})
	return out
}

func (c *YomaCollector) parseCards(doc *goquery.Document) []domain.ExchangeRate {
	var out rateSet
	doc.Find(".rate-card, .currency-card, .exchange-rate-item, .rate-box").Each(func(_ int, card *goquery.Selection) {
		code := resolveCardCurrency(firstText(card, ".currency-name, .currency-code, .currency"), yomaCurrencies)
		if code == "" {
			return
		}
		buy := parseNumber(firstText(card, ".buy-rate, .buying-rate, .buy"))
		sell := parseNumber(firstText(card, ".sell-rate, .selling-rate, .sell"))
		out.add(c.rates.buySell(code, buy, sell, c.endpoints.Page, time.Time{}))
	})
	return out
}

func (c *YomaCollector) parseRemittance(doc *goquery.Document) (domain.ExchangeRate, bool) {
	var (
		found domain.ExchangeRate
		ok    bool
	)
	doc.Find("body *").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		text := el.Text()
		lower := strings.ToLower(text)
		if !strings.Contains(lower, "remittance") || !strings.Contains(lower, "usd") {
			return true
		}
		m := remittanceLine.FindStringSubmatch(text)
		if m == nil {
			return true
		}
		found, ok = c.rates.single(RemittanceCurrency, parseNumber(m[1]), c.endpoints.Page, time.Time{})
		return !ok
	})
	return found, ok
}
