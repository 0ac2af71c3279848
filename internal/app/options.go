package service

import (
	"io"

	"github.com/okian/bankrank/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFetcher replaces the HTTP/file fetcher.
func WithFetcher(f Fetcher) Option {
	return func(s *Service) {
		if f != nil {
			s.fetcher = f
		}
	}
}

// WithProgress replaces the progress log.
func WithProgress(p Progress) Option {
	return func(s *Service) {
		if p != nil {
			s.progress = p
		}
	}
}

// WithStoreFactory replaces how stores are built for a location.
func WithStoreFactory(f StoreFactory) Option {
	return func(s *Service) {
		if f != nil {
			s.newStore = f
		}
	}
}

// WithOutput sets where query results are printed.
func WithOutput(w io.Writer) Option {
	return func(s *Service) {
		if w != nil {
			s.out = w
		}
	}
}
