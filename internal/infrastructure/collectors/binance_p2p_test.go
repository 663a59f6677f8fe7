package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/LavaJover/mmk-rates-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func p2pBook(prices ...string) string {
	ads := make([]string, 0, len(prices))
	for _, p := range prices {
		ads = append(ads, fmt.Sprintf(`{"adv":{"price":%q}}`, p))
	}
	return fmt.Sprintf(`{"code":"000000","message":null,"data":[%s],"success":true}`, strings.Join(ads, ","))
}

func TestBinanceP2PCollector_AveragesBestOffers(t *testing.T) {
	var (
		mu       sync.Mutex
		requests []map[string]any
	)
	srv := newSourceServer(t, map[string]http.HandlerFunc{
		"/search": func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			mu.Lock()
			requests = append(requests, body)
			mu.Unlock()

			if body["tradeType"] == "BUY" {
				w.Write([]byte(p2pBook("4500", "4510", "4520", "4530", "4540", "9999")))
				return
			}
			w.Write([]byte(p2pBook("4480", "4470", "4460", "4450", "4440")))
		},
	})

	c := NewBinanceP2PCollector(testFetcher(), testValidator(), BinanceP2PEndpoints{
		Search: srv.URL + "/search", SourceURL: DefaultBinanceP2PEndpoints.SourceURL,
	})
	res := c.Collect(context.Background())

	require.True(t, res.Success, res.Error)
	assert.Equal(t, domain.MethodAPI, res.Metadata.Method)
	rates := ratesByCurrency(res.Rates)
	require.Len(t, rates, 2)

	usdt := rates["USDT"]
	assert.Equal(t, 4520.0, *usdt.BuyRate)
	assert.Equal(t, 4460.0, *usdt.SellRate)
	assert.Equal(t, 4490.0, usdt.Rate)
	assert.Equal(t, usdt.Rate, rates["USD"].Rate)
	assert.Equal(t, DefaultBinanceP2PEndpoints.SourceURL, usdt.SourceURL)
	assert.Equal(t, BinanceP2PSource, usdt.Source)

	require.Len(t, requests, 2)
	for _, req := range requests {
		assert.Equal(t, "USDT", req["asset"])
		assert.Equal(t, "MMK", req["fiat"])
		assert.Equal(t, float64(10), req["rows"])
		assert.Equal(t, float64(1), req["page"])
		assert.Nil(t, req["publisherType"])
	}
}

func TestBinanceP2PCollector_ErrorCode(t *testing.T) {
	srv := newSourceServer(t, map[string]http.HandlerFunc{
		"/search": respond(http.StatusOK, "application/json", `{"code":"100001","message":"rate limited","data":[]}`),
	})

	res := NewBinanceP2PCollector(testFetcher(), testValidator(), BinanceP2PEndpoints{Search: srv.URL + "/search"}).Collect(context.Background())

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "100001")
	assert.Empty(t, res.Rates)
	assert.Equal(t, domain.PriorityLow, NewBinanceP2PCollector(nil, testValidator(), DefaultBinanceP2PEndpoints).Priority())
}

func TestBinanceP2PCollector_EmptyBook(t *testing.T) {
	srv := newSourceServer(t, map[string]http.HandlerFunc{
		"/search": respond(http.StatusOK, "application/json", p2pBook()),
	})

	res := NewBinanceP2PCollector(testFetcher(), testValidator(), BinanceP2PEndpoints{Search: srv.URL + "/search"}).Collect(context.Background())

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "no rates found")
}

func TestNewDefaultCollectors_PriorityOrder(t *testing.T) {
	list, err := NewDefaultCollectors(testFetcher(), testValidator(), DefaultEndpoints())
	require.NoError(t, err)

	names := make([]string, 0, len(list))
	for _, c := range list {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{CBMSource, KBZSource, AYASource, YomaSource, CBBankSource, BinanceP2PSource}, names)
	assert.Equal(t, domain.PriorityHigh, list[0].Priority())
	assert.Equal(t, domain.PriorityLow, list[len(list)-1].Priority())
}
