package core

import (
	"sort"

	"github.com/oneconcern/gitshed/pkg/transfer"
	"go.uber.org/multierr"
)

// Result of an operation over many paths. Paths are relative to the repository root.
type Result struct {
	// Done lists the paths which were processed
	Done []string
	// Skipped lists the paths which needed no processing
	Skipped []string
	// Failed paths, with their error
	Failed map[string]error
	// Report of the remote transfers, if any
	Report *transfer.Report
}

func newResult() *Result {
	return &Result{Failed: make(map[string]error)}
}

func (r *Result) done(path string) {
	r.Done = append(r.Done, path)
}

func (r *Result) skip(path string) {
	r.Skipped = append(r.Skipped, path)
}

func (r *Result) fail(path string, err error) {
	r.Failed[path] = err
}

func (r *Result) seal() *Result {
	sort.Strings(r.Done)
	sort.Strings(r.Skipped)
	return r
}

// Err combines the errors of all failed paths, sorted by path
func (r *Result) Err() error {
	if r == nil || len(r.Failed) == 0 {
		return nil
	}
	paths := make([]string, 0, len(r.Failed))
	for path := range r.Failed {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var err error
	for _, path := range paths {
		err = multierr.Append(err, &PathError{Path: path, Err: r.Failed[path]})
	}
	return err
}

// PathError is the failure of an operation on a single path
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}
