package collectors

import (
	"context"
	"fmt"
	"time"

	"github.com/LavaJover/mmk-rates-service/internal/domain"
)

const (
	BinanceP2PSource = "Binance P2P"

	p2pAsset        = "USDT"
	p2pFiat         = "MMK"
	p2pRows         = 10
	p2pBestOffers   = 5
	p2pSuccessCode  = "000000"
	p2pShadowDollar = "USD"
)

type BinanceP2PEndpoints struct {
	Search    string
	SourceURL string
}

var DefaultBinanceP2PEndpoints = BinanceP2PEndpoints{
	Search:    "https://p2p.binance.com/bapi/c2c/v2/friendly/c2c/adv/search",
	SourceURL: "https://p2p.binance.com/trade/all-payments/USDT?fiat=MMK",
}

type p2pSearchRequest struct {
	Page          int      `json:"page"`
	Rows          int      `json:"rows"`
	PayTypes      []string `json:"payTypes"`
	Countries     []string `json:"countries"`
	PublisherType *string  `json:"publisherType"`
	Asset         string   `json:"asset"`
	Fiat          string   `json:"fiat"`
	TradeType     string   `json:"tradeType"`
}

type p2pSearchResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    []struct {
		Adv struct {
			Price string `json:"price"`
		} `json:"adv"`
	} `json:"data"`
}

// BinanceP2PCollector derives USDT/MMK from the best P2P offers on both sides of the book.
// It also emits a USD rate assuming USDT trades at 1:1 with the dollar.
type BinanceP2PCollector struct {
	fetcher   *Fetcher
	endpoints BinanceP2PEndpoints
	rates     rateFactory
}

func NewBinanceP2PCollector(fetcher *Fetcher, validator domain.RateValidator, endpoints BinanceP2PEndpoints) *BinanceP2PCollector {
	return &BinanceP2PCollector{
		fetcher:   fetcher,
		endpoints: endpoints,
		rates:     rateFactory{source: BinanceP2PSource, validator: validator, now: time.Now},
	}
}

func (c *BinanceP2PCollector) Name() string              { return BinanceP2PSource }
func (c *BinanceP2PCollector) Priority() domain.Priority { return domain.PriorityLow }

func (c *BinanceP2PCollector) Collect(ctx context.Context) domain.CollectorResult {
	return runTiers(ctx, BinanceP2PSource, c.rates.now,
		tier{name: "p2p api", method: domain.MethodAPI, fetch: c.fromAPI},
	)
}

func (c *BinanceP2PCollector) fromAPI(ctx context.Context) ([]domain.ExchangeRate, error) {
	buyAvg, err := c.sideAverage(ctx, "BUY")
	if err != nil {
		return nil, err
	}
	sellAvg, err := c.sideAverage(ctx, "SELL")
	if err != nil {
		return nil, err
	}

	var out rateSet
	out.add(c.rates.buySell(p2pAsset, buyAvg, sellAvg, c.endpoints.SourceURL, time.Time{}))
	out.add(c.rates.buySell(p2pShadowDollar, buyAvg, sellAvg, c.endpoints.SourceURL, time.Time{}))
	return out, nil
}

func (c *BinanceP2PCollector) sideAverage(ctx context.Context, tradeType string) (float64, error) {
	req := p2pSearchRequest{
		Page:      1,
		Rows:      p2pRows,
		PayTypes:  []string{},
		Countries: []string{},
		Asset:     p2pAsset,
		Fiat:      p2pFiat,
		TradeType: tradeType,
	}

	var resp p2pSearchResponse
	if err := c.fetcher.PostJSON(ctx, c.endpoints.Search, req, &resp); err != nil {
		return 0, err
	}
	if resp.Code != p2pSuccessCode {
		return 0, fmt.Errorf("%w: binance p2p %s returned code %q: %s", domain.ErrMalformedResponse, tradeType, resp.Code, resp.Message)
	}

	prices := make([]float64, 0, p2pBestOffers)
	for _, offer := range resp.Data {
		if len(prices) == p2pBestOffers {
			break
		}
		if price := parseNumber(offer.Adv.Price); price > 0 {
			prices = append(prices, price)
		}
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("binance p2p %s side: %w", tradeType, domain.ErrNoRatesFound)
	}
	return average(prices), nil
}
