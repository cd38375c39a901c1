package pointer

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/oneconcern/gitshed/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Scan walks the given roots and calls fn with every pointer into the shed, synced or not.
//
// Roots default to the repository root. Symlinks are never followed, and excluded directories are
// skipped. Roots which do not exist yield nothing. The walk stops at the first error returned by fn:
// ErrStop ends it without error.
func (r *Resolver) Scan(ctx context.Context, roots []string, fn func(Pointer) error) error {
	if len(roots) == 0 {
		roots = []string{r.repoRoot}
	}

	for _, root := range roots {
		abs, err := r.abs(root)
		if err != nil {
			return err
		}
		err = afero.Walk(r.fs, abs, func(path string, info os.FileInfo, err error) error {
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			if err != nil {
				if os.IsNotExist(err) && path == abs {
					return nil
				}
				return err
			}
			if info.IsDir() {
				if r.excluded(path) {
					r.l.Debug("skipping excluded directory", zap.String("path", path))
					return filepath.SkipDir
				}
				return nil
			}
			if info.Mode()&os.ModeSymlink == 0 {
				return nil
			}
			p, err := r.classify(Pointer{Path: path, RelPath: r.rel(path)}, info)
			if err != nil {
				return err
			}
			if !p.Managed() {
				return nil
			}
			return fn(p)
		})
		if errors.Is(err, ErrStop) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// All collects the pointers found under the given roots, sorted by path
func (r *Resolver) All(ctx context.Context, roots []string) ([]Pointer, error) {
	var pointers []Pointer
	seen := make(map[string]struct{})
	err := r.Scan(ctx, roots, func(p Pointer) error {
		if _, dup := seen[p.Path]; dup {
			return nil
		}
		seen[p.Path] = struct{}{}
		pointers = append(pointers, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(pointers, func(i, j int) bool {
		return pointers[i].RelPath < pointers[j].RelPath
	})
	return pointers, nil
}
