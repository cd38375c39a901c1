package core

import (
	"context"
	"os"

	"github.com/oneconcern/gitshed/pkg/cafs"
	"github.com/oneconcern/gitshed/pkg/pointer"
	"github.com/oneconcern/gitshed/pkg/transfer"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// symlink creates pointers, patchable in tests
var symlink = os.Symlink

type candidate struct {
	abs string
	rel string
	key cafs.Key
	// adopt is false for paths which are already pointers
	adopt bool
}

// Manage puts files under management.
//
// Each file is uploaded to the remote store, then moved into the shed and replaced by a pointer.
// The content is known to be remote before a pointer exists. Synced pointers are uploaded again.
// Unsynced pointers are left alone: their content is already remote.
func (g *GitShed) Manage(ctx context.Context, paths []string) (*Result, error) {
	result := newResult()
	fs := afero.NewOsFs()

	var candidates []candidate
	seen := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		abs, err := g.resolve(path)
		if err != nil {
			result.fail(path, err)
			continue
		}
		rel := g.rel(abs)
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}

		p, err := g.resolver.Classify(abs)
		if err != nil {
			result.fail(rel, err)
			continue
		}
		switch p.State {
		case pointer.Synced:
			candidates = append(candidates, candidate{abs: abs, rel: rel, key: p.Key})
			continue
		case pointer.Unsynced:
			g.l.Debug("pointer already managed, content not local", zap.String("path", rel))
			result.done(rel)
			continue
		}

		if err = manageable(abs); err != nil {
			result.fail(rel, err)
			continue
		}
		key, err := cafs.DeriveFile(fs, abs)
		if err != nil {
			result.fail(rel, err)
			continue
		}
		candidates = append(candidates, candidate{abs: abs, rel: rel, key: key, adopt: true})
	}
	if len(candidates) == 0 {
		return result.seal(), nil
	}

	jobs := make([]transfer.Job, 0, len(candidates))
	for _, c := range candidates {
		source := c.abs
		if !c.adopt {
			source = g.shed.PathFor(c.key)
		}
		jobs = append(jobs, transfer.Job{Direction: transfer.Put, Key: c.key, Path: source})
	}
	result.Report = g.transfers.Run(ctx, jobs)

	for _, c := range candidates {
		if err := result.Report.Failed[c.key]; err != nil {
			result.fail(c.rel, err)
			continue
		}
		if c.adopt {
			if err := g.adopt(c); err != nil {
				result.fail(c.rel, err)
				continue
			}
		}
		result.done(c.rel)
	}
	return result.seal(), nil
}

func manageable(abs string) error {
	info, err := os.Lstat(abs)
	switch {
	case os.IsNotExist(err):
		return ErrNotFound.Wrapf("%s", abs)
	case err != nil:
		return err
	case info.Mode()&os.ModeSymlink != 0:
		return ErrUnmanagedSymlink.Wrapf("%s", abs)
	case info.IsDir():
		return ErrIsDirectory.Wrapf("%s", abs)
	case !info.Mode().IsRegular():
		return ErrNotRegular.Wrapf("%s", abs)
	}
	return nil
}

// adopt moves a file into the shed and replaces it with a pointer.
//
// When no pointer can be created, the file is written back from the shed with its original mode.
func (g *GitShed) adopt(c candidate) error {
	info, err := os.Lstat(c.abs)
	if err != nil {
		return err
	}
	if g.shed.Has(c.key) {
		// same content managed under another path
		if err = os.Remove(c.abs); err != nil {
			return err
		}
	} else if err = g.shed.Adopt(c.key, c.abs); err != nil {
		return err
	}

	target, err := g.resolver.LinkTarget(c.abs, c.key)
	if err == nil {
		err = symlink(target, c.abs)
	}
	if err != nil {
		if rerr := g.writeBack(c.key, c.abs, info.Mode().Perm()); rerr != nil {
			return multierr.Append(err, rerr)
		}
		return err
	}
	g.l.Debug("managed file", zap.String("path", c.rel), zap.Stringer("key", c.key))
	return nil
}
