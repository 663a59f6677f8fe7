package collectors

import (
	"context"
	"fmt"
	"time"

	"github.com/LavaJover/mmk-rates-service/internal/domain"
	"github.com/PuerkitoBio/goquery"
)

const AYASource = "AYA"

type AYAEndpoints struct {
	API      string
	Homepage string
}

var DefaultAYAEndpoints = AYAEndpoints{
	API:      "https://www.ayabank.com/api/exchange-rates",
	Homepage: "https://www.ayabank.com/en_US/",
}

var ayaCurrencies = currencyTable{
	{"Singapore", "SGD"},
	{"Euro", "EUR"},
	{"Thai", "THB"},
	{"Baht", "THB"},
	{"Yuan", "CNY"},
	{"Renminbi", "CNY"},
	{"Dollar", "USD"},
}

type ayaAPIResponse struct {
	Rates []struct {
		Currency string     `json:"currency"`
		BuyRate  flexNumber `json:"buy_rate"`
		SellRate flexNumber `json:"sell_rate"`
	} `json:"rates"`
}

type AYACollector struct {
	fetcher   *Fetcher
	endpoints AYAEndpoints
	rates     rateFactory
}

func NewAYACollector(fetcher *Fetcher, validator domain.RateValidator, endpoints AYAEndpoints) *AYACollector {
	return &AYACollector{
		fetcher:   fetcher,
		endpoints: endpoints,
		rates:     rateFactory{source: AYASource, validator: validator, now: time.Now},
	}
}

func (c *AYACollector) Name() string              { return AYASource }
func (c *AYACollector) Priority() domain.Priority { return domain.PriorityMedium }

func (c *AYACollector) Collect(ctx context.Context) domain.CollectorResult {
	return runTiers(ctx, AYASource, c.rates.now,
		tier{name: "api", method: domain.MethodAPI, fetch: c.fromAPI},
		tier{name: "homepage", method: domain.MethodWebScrape, fetch: c.fromHomepage},
	)
}

func (c *AYACollector) fromAPI(ctx context.Context) ([]domain.ExchangeRate, error) {
	var resp ayaAPIResponse
	if err := c.fetcher.GetJSON(ctx, c.endpoints.API, &resp); err != nil {
		return nil, err
	}
	if resp.Rates == nil {
		return nil, fmt.Errorf("%w: aya api response has no rates array", domain.ErrMalformedResponse)
	}

	var out rateSet
	for _, item := range resp.Rates {
		out.add(c.rates.buySell(item.Currency, float64(item.BuyRate), float64(item.SellRate), c.endpoints.API, time.Time{}))
	}
	return out, nil
}

func (c *AYACollector) fromHomepage(ctx context.Context) ([]domain.ExchangeRate, error) {
	doc, html, err := c.fetcher.GetDocument(ctx, c.endpoints.Homepage)
	if err != nil {
		return nil, err
	}

	if rates := c.parseTables(doc); len(rates) > 0 {
		return rates, nil
	}
	if rates := c.parseCards(doc); len(rates) > 0 {
		return rates, nil
	}
	return nil, newNoRatesError(AYASource, html)
}

func (c *AYACollector) parseTables(doc *goquery.Document) []domain.ExchangeRate {
	var out rateSet
	doc.Find(".exchange-rates table tr, .currency-exchange tr, .forex-rates tr").Each(func(_ int, row *goquery.Selection) {
		cells := cellTexts(row)
		if len(cells) < 3 {
			return
		}
		code := resolveCurrency(cells[0], ayaCurrencies, false)
		if code == "" {
			return
		}
		out.add(c.rates.buySell(code, parseNumber(cells[1]), parseNumber(cells[2]), c.endpoints.Homepage, time.Time{}))
	})
	return out
}

func (c *AYACollector) parseCards(doc *goquery.Document) []domain.ExchangeRate {
	var out rateSet
	doc.Find(".rate-card, .currency-card, .exchange-rate-item").Each(func(_ int, card *goquery.Selection) {
		code := resolveCardCurrency(firstText(card, ".currency-name, .currency-code"), ayaCurrencies)
		if code == "" {
			return
		}
		buy := parseNumber(firstText(card, ".buy-rate, .buying-rate"))
		sell := parseNumber(firstText(card, ".sell-rate, .selling-rate"))
		out.add(c.rates.buySell(code, buy, sell, c.endpoints.Homepage, time.Time{}))
	})
	return out
}
