package core

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio"
	"github.com/oneconcern/gitshed/pkg/cafs"
	"github.com/oneconcern/gitshed/pkg/pointer"
	"go.uber.org/zap"
)

// Unmanage turns pointers back into regular, user-writable files holding their content.
//
// Directories stand for the pointers they contain. Unsynced pointers are left untouched, since their
// content is not available. Shed entries are kept: other pointers may share them.
func (g *GitShed) Unmanage(ctx context.Context, paths []string) (*Result, error) {
	result := newResult()
	pointers, err := g.classify(ctx, paths, result)
	if err != nil {
		return nil, err
	}
	return g.unmanage(ctx, pointers, result), nil
}

// UnmanageAll unmanages all pointers in the repository
func (g *GitShed) UnmanageAll(ctx context.Context) (*Result, error) {
	pointers, err := g.resolver.All(ctx, nil)
	if err != nil {
		return nil, err
	}
	return g.unmanage(ctx, pointers, newResult()), nil
}

func (g *GitShed) unmanage(ctx context.Context, pointers []pointer.Pointer, result *Result) *Result {
	for _, p := range pointers {
		if err := ctx.Err(); err != nil {
			result.fail(p.RelPath, err)
			continue
		}
		switch p.State {
		case pointer.Unmanaged:
			result.fail(p.RelPath, ErrNotManaged.Wrapf("%s", p.RelPath))
		case pointer.Unsynced:
			result.fail(p.RelPath, ErrContentUnavailable.Wrapf("%s", p.RelPath))
		case pointer.Synced:
			if err := g.restore(p); err != nil {
				result.fail(p.RelPath, err)
				continue
			}
			result.done(p.RelPath)
		}
	}
	return result.seal()
}

// restore replaces a pointer with a copy of its shed entry, atomically
func (g *GitShed) restore(p pointer.Pointer) error {
	info, err := os.Stat(g.shed.PathFor(p.Key))
	if err != nil {
		return ErrContentUnavailable.Wrap(err)
	}
	if err = g.writeBack(p.Key, p.Path, info.Mode().Perm()|0o200); err != nil {
		return err
	}
	g.l.Debug("unmanaged file", zap.String("path", p.RelPath), zap.Stringer("key", p.Key))
	return nil
}

// writeBack atomically replaces path with a regular copy of the shed entry
func (g *GitShed) writeBack(key cafs.Key, path string, perm os.FileMode) error {
	source, err := g.shed.Open(key)
	if err != nil {
		return ErrContentUnavailable.Wrap(err)
	}
	defer func() {
		_ = source.Close()
	}()

	target, err := renameio.TempFile(filepath.Dir(path), path)
	if err != nil {
		return err
	}
	defer func() {
		_ = target.Cleanup()
	}()

	if _, err = io.Copy(target, source); err != nil {
		return err
	}
	if err = target.Chmod(perm); err != nil {
		return err
	}
	return target.CloseAtomicallyReplace()
}
