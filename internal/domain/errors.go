package domain

import "errors"

var (
	ErrNoRatesFound      = errors.New("no rates found")
	ErrMalformedResponse = errors.New("malformed response")
	ErrCollectorTimeout  = errors.New("collector timed out")
	ErrNoCollectors      = errors.New("no collectors registered")
	ErrStoreUnavailable  = errors.New("rate store unavailable")
	ErrUnknownSource     = errors.New("unknown source")
	ErrDuplicateSource   = errors.New("duplicate source")
	ErrInvalidQuery      = errors.New("invalid query")
)
