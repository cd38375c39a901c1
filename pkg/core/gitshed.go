package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/oneconcern/gitshed/pkg/pointer"
	"github.com/oneconcern/gitshed/pkg/repo"
	"github.com/oneconcern/gitshed/pkg/shed"
	"github.com/oneconcern/gitshed/pkg/storage"
	"github.com/oneconcern/gitshed/pkg/transfer"
	"go.uber.org/zap"
)

// ShedRelPath is the location of the shed in a repository
var ShedRelPath = filepath.Join(shed.Dir, shed.FilesDir)

// Option is a functor to pass optional parameters to gitshed
type Option func(*GitShed)

// Logger specifies a logger
func Logger(l *zap.Logger) Option {
	return func(g *GitShed) {
		if l != nil {
			g.l = l
		}
	}
}

// Exclude directories from pointer scans. Names match at any depth, and entries with a path
// separator match one directory relative to the repository root.
func Exclude(names []string) Option {
	return func(g *GitShed) {
		g.exclude = append(g.exclude, names...)
	}
}

// TransferOptions tune the remote transfers: concurrency, chunk size, progress
func TransferOptions(opts ...transfer.Option) Option {
	return func(g *GitShed) {
		g.transferOpts = append(g.transferOpts, opts...)
	}
}

// GitShed manages the large files of a repository
type GitShed struct {
	repo         *repo.Repo
	shed         *shed.Store
	resolver     *pointer.Resolver
	remote       storage.Store
	transfers    *transfer.Manager
	exclude      []string
	transferOpts []transfer.Option
	l            *zap.Logger
}

// New gitshed for the repository at repoRoot, backed by a remote content store
func New(repoRoot string, remote storage.Store, opts ...Option) (*GitShed, error) {
	g := &GitShed{
		remote: remote,
		l:      zap.NewNop(),
	}
	for _, apply := range opts {
		apply(g)
	}

	var err error
	if g.repo, err = repo.Open(repoRoot); err != nil {
		return nil, err
	}
	if g.shed, err = shed.New(filepath.Join(g.repo.Root(), ShedRelPath), shed.Logger(g.l)); err != nil {
		return nil, err
	}
	g.resolver = pointer.New(g.repo.Root(), g.shed.Root(), g.exclude, pointer.Logger(g.l))
	g.transfers = transfer.New(remote, append([]transfer.Option{transfer.Logger(g.l)}, g.transferOpts...)...)
	return g, nil
}

// Root of the repository
func (g *GitShed) Root() string {
	return g.repo.Root()
}

// Shed holding local content
func (g *GitShed) Shed() *shed.Store {
	return g.shed
}

// Remote content store
func (g *GitShed) Remote() storage.Store {
	return g.remote
}

// resolve a path given relative to the repository root, or absolute
func (g *GitShed) resolve(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(g.Root(), path)
	}
	abs, err := g.repo.Abs(path)
	if err != nil {
		return "", err
	}
	reserved := filepath.Join(g.Root(), shed.Dir)
	if abs == reserved || strings.HasPrefix(abs, reserved+string(os.PathSeparator)) {
		return "", ErrReservedPath.Wrapf("%s", path)
	}
	return abs, nil
}

func (g *GitShed) rel(abs string) string {
	rel, err := filepath.Rel(g.Root(), abs)
	if err != nil {
		return abs
	}
	return rel
}

// classify the given paths. Directories expand to the pointers they contain.
func (g *GitShed) classify(ctx context.Context, paths []string, result *Result) ([]pointer.Pointer, error) {
	var pointers []pointer.Pointer
	seen := make(map[string]struct{}, len(paths))
	add := func(p pointer.Pointer) {
		if _, dup := seen[p.Path]; dup {
			return
		}
		seen[p.Path] = struct{}{}
		pointers = append(pointers, p)
	}

	for _, path := range paths {
		abs, err := g.resolve(path)
		if err != nil {
			result.fail(path, err)
			continue
		}
		p, err := g.resolver.Classify(abs)
		if err != nil {
			result.fail(g.rel(abs), err)
			continue
		}
		if !p.Managed() {
			if info, err := os.Lstat(abs); err == nil && info.IsDir() {
				found, err := g.resolver.All(ctx, []string{abs})
				if err != nil {
					return nil, err
				}
				for _, f := range found {
					add(f)
				}
				continue
			}
		}
		add(p)
	}
	return pointers, nil
}
