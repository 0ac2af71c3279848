package service

import (
	"context"
	"errors"
)

// Sentinel kinds for pipeline failures. Every stage error wraps exactly one
// of these plus the adapter error that caused it.
var (
	ErrSourceUnavailable     = errors.New("source unavailable")
	ErrMalformedSource       = errors.New("malformed source")
	ErrRateSourceUnavailable = errors.New("rate source unavailable")
	ErrMissingCurrency       = errors.New("missing currency")
	ErrWrite                 = errors.New("write failed")
	ErrStoreUnavailable      = errors.New("store unavailable")
	ErrQuery                 = errors.New("query failed")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrSourceUnavailable, "source_unavailable"},
	{ErrMalformedSource, "malformed_source"},
	{ErrRateSourceUnavailable, "rate_source_unavailable"},
	{ErrMissingCurrency, "missing_currency"},
	{ErrWrite, "write"},
	{ErrStoreUnavailable, "store_unavailable"},
	{ErrQuery, "query"},
	{context.Canceled, "canceled"},
	{context.DeadlineExceeded, "deadline_exceeded"},
}

// ErrorKind returns the metric label for err.
func ErrorKind(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "unknown"
}
