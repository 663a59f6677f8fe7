package collectors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/LavaJover/mmk-rates-service/internal/domain"
	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

const rawExcerptLimit = 500

var (
	explicitCode = regexp.MustCompile(`\(([A-Z]{3})\)|\b([A-Z]{3})$`)
	bareCode     = regexp.MustCompile(`\b([A-Z]{3})\b`)
)

type currencyAlias struct {
	needle string
	code   string
}

// currencyTable is matched in order, so specific names must precede generic ones.
type currencyTable []currencyAlias

func (t currencyTable) lookup(text string, foldCase bool) string {
	if foldCase {
		text = strings.ToLower(text)
	}
	for _, alias := range t {
		needle := alias.needle
		if foldCase {
			needle = strings.ToLower(needle)
		}
		if strings.Contains(text, needle) {
			return alias.code
		}
	}
	return ""
}

// resolveCurrency prefers an explicit code in the label over the name table.
func resolveCurrency(label string, table currencyTable, foldCase bool) string {
	label = strings.TrimSpace(label)
	if m := explicitCode.FindStringSubmatch(label); m != nil {
		if m[1] != "" {
			return m[1]
		}
		return m[2]
	}
	return table.lookup(label, foldCase)
}

// resolveCardCurrency also accepts a code anywhere in the label, as rate cards
// often lead with it ("GBP Pound").
func resolveCardCurrency(label string, table currencyTable) string {
	label = strings.TrimSpace(label)
	if m := explicitCode.FindStringSubmatch(label); m != nil {
		if m[1] != "" {
			return m[1]
		}
		return m[2]
	}
	if m := bareCode.FindStringSubmatch(label); m != nil {
		return m[1]
	}
	return table.lookup(label, false)
}

// parseNumber strips thousands separators and whitespace; anything unparseable is 0.
func parseNumber(s string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if cleaned == "" {
		return 0
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

func midpoint(buy, sell float64) float64 {
	return (buy + sell) / 2
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	return sum.Div(decimal.NewFromInt(int64(len(values)))).InexactFloat64()
}

// flexNumber accepts JSON numbers and numeric strings alike.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = flexNumber(parseNumber(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = flexNumber(f)
	return nil
}

// flexTime accepts epoch seconds, epoch milliseconds or an RFC3339 string.
// Anything else decodes to the zero time, which rateFactory replaces with now.
type flexTime time.Time

// Epoch values above this are taken as milliseconds.
const epochMillisThreshold = 1e12

func (t *flexTime) UnmarshalJSON(data []byte) error {
	*t = flexTime(parseFlexTime(bytes.TrimSpace(data)))
	return nil
}

func (t flexTime) Time() time.Time { return time.Time(t) }

func parseFlexTime(data []byte) time.Time {
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return time.Time{}
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return time.Time{}
		}
		s = strings.TrimSpace(s)
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return ts
		}
		data = []byte(s)
	}
	var epoch float64
	if err := json.Unmarshal(data, &epoch); err != nil || epoch <= 0 {
		return time.Time{}
	}
	if epoch > epochMillisThreshold {
		return time.UnixMilli(int64(epoch))
	}
	return time.Unix(int64(epoch), 0)
}

// rateFactory builds validated records for one source.
type rateFactory struct {
	source    string
	validator domain.RateValidator
	now       func() time.Time
}

func (f rateFactory) single(currency string, rate float64, sourceURL string, ts time.Time) (domain.ExchangeRate, bool) {
	r := f.base(currency, sourceURL, ts)
	r.Rate = rate
	return r, f.validator.Validate(r)
}

func (f rateFactory) buySell(currency string, buy, sell float64, sourceURL string, ts time.Time) (domain.ExchangeRate, bool) {
	r := f.base(currency, sourceURL, ts)
	r.Rate = midpoint(buy, sell)
	r.BuyRate = &buy
	r.SellRate = &sell
	return r, f.validator.Validate(r)
}

// quoted keeps a directly quoted rate and attaches buy/sell when both are present.
func (f rateFactory) quoted(currency string, rate, buy, sell float64, sourceURL string, ts time.Time) (domain.ExchangeRate, bool) {
	r := f.base(currency, sourceURL, ts)
	r.Rate = rate
	if buy > 0 && sell > 0 {
		r.BuyRate = &buy
		r.SellRate = &sell
	}
	return r, f.validator.Validate(r)
}

func (f rateFactory) base(currency, sourceURL string, ts time.Time) domain.ExchangeRate {
	now := f.now()
	if ts.IsZero() {
		ts = now
	}
	return domain.ExchangeRate{
		Currency:    strings.ToUpper(strings.TrimSpace(currency)),
		Timestamp:   ts,
		Source:      f.source,
		SourceURL:   sourceURL,
		LastUpdated: now,
	}
}

// rateSet accumulates validated rates, dropping the rest.
type rateSet []domain.ExchangeRate

func (s *rateSet) add(rate domain.ExchangeRate, ok bool) {
	if ok {
		*s = append(*s, rate)
	}
}

// noRatesError is returned when a page was fetched but no heuristic extracted a rate.
type noRatesError struct {
	source  string
	excerpt string
}

func (e *noRatesError) Error() string {
	return fmt.Sprintf("No rates found on %s website", e.source)
}

func (e *noRatesError) Unwrap() error { return domain.ErrNoRatesFound }

func newNoRatesError(source, html string) error {
	excerpt := html
	if len(excerpt) > rawExcerptLimit {
		excerpt = excerpt[:rawExcerptLimit]
	}
	return &noRatesError{source: source, excerpt: excerpt}
}

// tier is one step of a collector's fallback chain.
type tier struct {
	name   string
	method domain.CollectionMethod
	fetch  func(ctx context.Context) ([]domain.ExchangeRate, error)
}

// runTiers tries each tier in order and returns the first one yielding rates.
// It never panics outward.
func runTiers(ctx context.Context, source string, now func() time.Time, tiers ...tier) (result domain.CollectorResult) {
	start := now()
	defer func() {
		if r := recover(); r != nil {
			result = domain.CollectorResult{
				Success: false,
				Error:   fmt.Sprintf("%s collector panicked: %v", source, r),
			}
		}
		result.Metadata.CollectionTime = now().Sub(start).Milliseconds()
		result.Metadata.RateCount = len(result.Rates)
	}()

	var (
		warnings []string
		lastErr  error
	)
	for _, t := range tiers {
		rates, err := t.fetch(ctx)
		if err == nil && len(rates) == 0 {
			err = fmt.Errorf("%s: %w", t.name, domain.ErrNoRatesFound)
		}
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s failed: %v", t.name, err))
			lastErr = err
			continue
		}
		return domain.CollectorResult{
			Success: true,
			Rates:   rates,
			Metadata: domain.CollectorMetadata{
				Method:   t.method,
				Warnings: warnings,
			},
		}
	}

	result = domain.CollectorResult{
		Success:  false,
		Metadata: domain.CollectorMetadata{Warnings: warnings},
	}
	if lastErr == nil {
		result.Error = fmt.Sprintf("%s: no collection strategy configured", source)
		return result
	}
	result.Error = lastErr.Error()
	var noRates *noRatesError
	if errors.As(lastErr, &noRates) {
		result.Metadata.RawExcerpt = noRates.excerpt
		result.Metadata.Method = domain.MethodWebScrape
	}
	return result
}

func cellTexts(row *goquery.Selection) []string {
	cells := row.Find("td")
	out := make([]string, 0, cells.Length())
	cells.Each(func(_ int, cell *goquery.Selection) {
		out = append(out, strings.TrimSpace(cell.Text()))
	})
	return out
}

func firstText(s *goquery.Selection, selector string) string {
	return strings.TrimSpace(s.Find(selector).First().Text())
}
