package gcs

import (
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Option is a functor to pass optional parameters to the gcs store
type Option func(*gcs)

// Logger specifies a logger for this store
func Logger(logger *zap.Logger) Option {
	return func(g *gcs) {
		if logger != nil {
			g.l = logger
		}
	}
}

// Timeout bounds the transfer of each single object
func Timeout(d time.Duration) Option {
	return func(g *gcs) {
		g.timeout = d
	}
}

// ClientOptions are passed to the google storage clients, e.g. to set an endpoint or credentials
func ClientOptions(opts ...option.ClientOption) Option {
	return func(g *gcs) {
		g.clientOpts = append(g.clientOpts, opts...)
	}
}
