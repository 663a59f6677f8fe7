package domain

import "strings"

const (
	DefaultMaxRate = 10000.0

	// SyntheticSeparator marks product codes such as USD_REMITTANCE that are not ISO pairs.
	SyntheticSeparator = "_"
)

type RateValidator struct {
	MaxRate float64
	// ExtraCodes are traded non-ISO asset codes allowed past the length check.
	ExtraCodes []string
}

func NewRateValidator(maxRate float64, extraCodes ...string) RateValidator {
	if maxRate <= 0 {
		maxRate = DefaultMaxRate
	}
	return RateValidator{MaxRate: maxRate, ExtraCodes: extraCodes}
}

func (v RateValidator) Validate(rate ExchangeRate) bool {
	if !v.validCurrency(rate.Currency) {
		return false
	}
	if !v.inBounds(rate.Rate) {
		return false
	}
	if rate.BuyRate != nil && !v.inBounds(*rate.BuyRate) {
		return false
	}
	if rate.SellRate != nil && !v.inBounds(*rate.SellRate) {
		return false
	}
	return true
}

func (v RateValidator) validCurrency(code string) bool {
	if code == "" {
		return false
	}
	if len(code) == 3 || strings.Contains(code, SyntheticSeparator) {
		return true
	}
	for _, extra := range v.ExtraCodes {
		if code == extra {
			return true
		}
	}
	return false
}

func (v RateValidator) inBounds(value float64) bool {
	max := v.MaxRate
	if max <= 0 {
		max = DefaultMaxRate
	}
	return value > 0 && value <= max
}
