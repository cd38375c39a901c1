package pointer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/oneconcern/gitshed/pkg/cafs"
	"github.com/oneconcern/gitshed/pkg/errors"
	"github.com/oneconcern/gitshed/pkg/shed"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// State of a path with respect to the shed
type State uint8

const (
	// Unmanaged paths are not pointers into the shed
	Unmanaged State = iota
	// Synced pointers have their content in the shed
	Synced
	// Unsynced pointers dangle: their content must be fetched
	Unsynced
)

func (s State) String() string {
	switch s {
	case Unmanaged:
		return "unmanaged"
	case Synced:
		return "synced"
	case Unsynced:
		return "unsynced"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// ErrStop may be returned by a scan callback to end the walk early
var ErrStop = errors.New("stop scanning")

// Pointer is a classified path
type Pointer struct {
	// Path is absolute
	Path string
	// RelPath is relative to the repository root
	RelPath string
	State   State
	// Key is zero for unmanaged paths
	Key cafs.Key
}

// Managed tells if the pointer links into the shed
func (p Pointer) Managed() bool {
	return p.State != Unmanaged
}

// Fs is a file system which knows about symbolic links
type Fs interface {
	afero.Fs
	afero.Symlinker
}

// Option is a functor to pass optional parameters to the resolver
type Option func(*Resolver)

// WithFs sets the file system the resolver inspects. It defaults to the OS file system.
func WithFs(fs Fs) Option {
	return func(r *Resolver) {
		if fs != nil {
			r.fs = fs
		}
	}
}

// Logger specifies a logger for the resolver
func Logger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.l = l
		}
	}
}

// Resolver knows how to find pointers in a repository
type Resolver struct {
	fs       Fs
	repoRoot string
	shedRoot string
	exclude  map[string]struct{}
	l        *zap.Logger
}

// AlwaysExcluded are the directory names never scanned for pointers
var AlwaysExcluded = []string{".git", shed.Dir}

// New resolver for pointers found under repoRoot and linking into shedRoot.
//
// Walks do not descend into directories whose name is excluded, at any depth. An exclusion
// containing a path separator names a single directory, relative to the repository root.
func New(repoRoot, shedRoot string, exclude []string, opts ...Option) *Resolver {
	r := &Resolver{
		fs:       &afero.OsFs{},
		repoRoot: filepath.Clean(repoRoot),
		shedRoot: filepath.Clean(shedRoot),
		exclude:  make(map[string]struct{}, len(exclude)+len(AlwaysExcluded)),
		l:        zap.NewNop(),
	}
	for _, apply := range opts {
		apply(r)
	}
	for _, ex := range append(AlwaysExcluded, exclude...) {
		r.exclude[filepath.Clean(ex)] = struct{}{}
	}
	return r
}

func (r *Resolver) abs(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	return filepath.Abs(path)
}

// Classify the state of a path. Missing paths are unmanaged.
func (r *Resolver) Classify(path string) (Pointer, error) {
	abs, err := r.abs(path)
	if err != nil {
		return Pointer{}, err
	}
	p := Pointer{Path: abs, RelPath: r.rel(abs), State: Unmanaged}

	info, _, err := r.fs.LstatIfPossible(abs)
	switch {
	case os.IsNotExist(err):
		return p, nil
	case err != nil:
		return p, err
	}
	return r.classify(p, info)
}

func (r *Resolver) classify(p Pointer, info os.FileInfo) (Pointer, error) {
	if info.Mode()&os.ModeSymlink == 0 {
		return p, nil
	}

	target, err := r.fs.ReadlinkIfPossible(p.Path)
	if err != nil {
		return p, err
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(p.Path), target)
	}
	target = filepath.Clean(target)
	if filepath.Dir(target) != r.shedRoot {
		return p, nil
	}
	key, err := cafs.KeyFromString(filepath.Base(target))
	if err != nil {
		// not a name given by the shed
		return p, nil
	}

	p.Key = key
	entry, err := r.fs.Stat(target)
	switch {
	case err == nil && entry.Mode().IsRegular():
		readable, err := r.readable(target)
		if err != nil {
			return p, err
		}
		p.State = Unsynced
		if readable {
			p.State = Synced
		}
	case err == nil, os.IsNotExist(err):
		p.State = Unsynced
	default:
		return p, err
	}
	return p, nil
}

func (r *Resolver) readable(path string) (bool, error) {
	f, err := r.fs.Open(path)
	switch {
	case err == nil:
		return true, f.Close()
	case os.IsPermission(err), os.IsNotExist(err):
		return false, nil
	default:
		return false, err
	}
}

// LinkTarget returns the relative link from a pointer at path to the shed entry for a key
func (r *Resolver) LinkTarget(path string, key cafs.Key) (string, error) {
	abs, err := r.abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Rel(filepath.Dir(abs), filepath.Join(r.shedRoot, key.String()))
}

func (r *Resolver) rel(abs string) string {
	rel, err := filepath.Rel(r.repoRoot, abs)
	if err != nil {
		return abs
	}
	return rel
}

// excluded tells if the walk must not descend into a directory
func (r *Resolver) excluded(abs string) bool {
	if abs == r.repoRoot {
		return false
	}
	if _, ok := r.exclude[filepath.Base(abs)]; ok {
		return true
	}
	_, ok := r.exclude[r.rel(abs)]
	return ok
}
