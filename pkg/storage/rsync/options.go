package rsync

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Option is a functor to pass optional parameters to the rsync store
type Option func(*rsyncStore)

// Timeout sets the network timeout. It bounds each HTTP download and rsync I/O inactivity.
func Timeout(d time.Duration) Option {
	return func(r *rsyncStore) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// Logger specifies a logger for this store
func Logger(logger *zap.Logger) Option {
	return func(r *rsyncStore) {
		if logger != nil {
			r.l = logger
		}
	}
}

// HTTPClient overrides the client used for downloads
func HTTPClient(client *http.Client) Option {
	return func(r *rsyncStore) {
		if client != nil {
			r.client = client
		}
	}
}

// Sudo runs the remote side of rsync with sudo, for remote roots not writable by the ssh user
func Sudo(enabled bool) Option {
	return func(r *rsyncStore) {
		r.sudo = enabled
	}
}

// WithRunner replaces the execution of the rsync command, e.g. for testing
func WithRunner(runner Runner) Option {
	return func(r *rsyncStore) {
		if runner != nil {
			r.run = runner
		}
	}
}
