package transfer

import "go.uber.org/zap"

// Defaults for the transfer pools
const (
	DefaultGetConcurrency = 12
	DefaultPutConcurrency = 4
	DefaultChunkSize      = 20
)

// Option is a functor to pass optional parameters to the transfer manager
type Option func(*Manager)

// GetConcurrency sets the number of workers for downloads
func GetConcurrency(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.concurrency[Get] = n
		}
	}
}

// PutConcurrency sets the number of workers for uploads
func PutConcurrency(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.concurrency[Put] = n
		}
	}
}

// ChunkSize sets the number of items sent to the remote store in a single invocation
func ChunkSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.chunkSize = n
		}
	}
}

// Progress registers a callback invoked each time a chunk completes.
// Callbacks are serialized.
func Progress(fn func(Event)) Option {
	return func(m *Manager) {
		m.progress = fn
	}
}

// Logger specifies a logger for the transfer manager
func Logger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.l = l
		}
	}
}
