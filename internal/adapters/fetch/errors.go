package fetch

import (
	"errors"
	"fmt"
)

// Sentinel kinds for fetch errors.
var (
	ErrRequest           = errors.New("fetch request failed")
	ErrStatus            = errors.New("unexpected response status")
	ErrRead              = errors.New("fetch read failed")
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
)

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: GET %s returned %d", ErrStatus, e.URL, e.StatusCode)
}

// Unwrap lets errors.Is match ErrStatus.
func (e *StatusError) Unwrap() error { return ErrStatus }
