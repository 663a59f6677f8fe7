package collectors

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/LavaJover/mmk-rates-service/internal/domain"
)

func testValidator() domain.RateValidator {
	return domain.NewRateValidator(domain.DefaultMaxRate, "USDT")
}

func testFetcher() *Fetcher {
	return NewFetcher(2*time.Second, "")
}

func respond(status int, contentType, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

func newSourceServer(t *testing.T, routes map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, h := range routes {
		mux.HandleFunc(path, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func ratesByCurrency(rates []domain.ExchangeRate) map[string]domain.ExchangeRate {
	out := make(map[string]domain.ExchangeRate, len(rates))
	for _, r := range rates {
		out[r.Currency] = r
	}
	return out
}
