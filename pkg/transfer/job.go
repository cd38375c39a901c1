package transfer

import (
	"sort"
	"sync"

	"github.com/oneconcern/gitshed/pkg/cafs"
	"go.uber.org/multierr"
)

// Direction of a transfer
type Direction uint8

const (
	// Put uploads local content to the remote store
	Put Direction = iota
	// Get downloads remote content to a local path
	Get
)

func (d Direction) String() string {
	if d == Get {
		return "get"
	}
	return "put"
}

// Job is a unit of work: upload the file at Path under Key, or download Key to Path
type Job struct {
	Direction Direction
	Key       cafs.Key
	Path      string
}

// Event reports the progress of one direction. Counts are in jobs, duplicates included.
type Event struct {
	Direction Direction
	Done      int
	Failed    int
	Total     int
}

// Report of a run
type Report struct {
	// Succeeded keys, sorted
	Succeeded []cafs.Key
	// Failed keys, with the cause of the failure
	Failed map[cafs.Key]error
	// Chunks is the number of remote store invocations per direction
	Chunks map[Direction]int

	mu        sync.Mutex
	succeeded map[cafs.Key]struct{}
}

func newReport() *Report {
	return &Report{
		Failed:    make(map[cafs.Key]error),
		Chunks:    make(map[Direction]int),
		succeeded: make(map[cafs.Key]struct{}),
	}
}

func (r *Report) chunk(d Direction) {
	r.mu.Lock()
	r.Chunks[d]++
	r.mu.Unlock()
}

func (r *Report) record(key cafs.Key, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.Failed[key] = multierr.Append(r.Failed[key], err)
		return
	}
	r.succeeded[key] = struct{}{}
}

func (r *Report) seal() {
	r.Succeeded = make([]cafs.Key, 0, len(r.succeeded))
	for key := range r.succeeded {
		if _, failed := r.Failed[key]; failed {
			continue
		}
		r.Succeeded = append(r.Succeeded, key)
	}
	sortKeys(r.Succeeded)
}

// OK tells if the key was submitted and transferred without error
func (r *Report) OK(key cafs.Key) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, failed := r.Failed[key]; failed {
		return false
	}
	_, ok := r.succeeded[key]
	return ok
}

// Err combines the errors of all failed keys, in key order
func (r *Report) Err() error {
	if r == nil || len(r.Failed) == 0 {
		return nil
	}
	keys := make([]cafs.Key, 0, len(r.Failed))
	for key := range r.Failed {
		keys = append(keys, key)
	}
	sortKeys(keys)
	var err error
	for _, key := range keys {
		err = multierr.Append(err, &KeyError{Key: key, Err: r.Failed[key]})
	}
	return err
}

// KeyError is the failure of a single key
type KeyError struct {
	Key cafs.Key
	Err error
}

func (e *KeyError) Error() string {
	return e.Key.String() + ": " + e.Err.Error()
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

func sortKeys(keys []cafs.Key) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
}
