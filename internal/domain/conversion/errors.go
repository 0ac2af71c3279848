package conversion

import "errors"

// Sentinel kinds for conversion errors.
var (
	ErrMalformedRates  = errors.New("malformed rate table")
	ErrMissingCurrency = errors.New("missing currency rate")
)
