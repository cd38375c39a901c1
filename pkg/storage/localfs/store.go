// Copyright © 2018 One Concern

// Package localfs implements a content store on a local (or mounted) file system.
package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oneconcern/gitshed/pkg/storage"
	"github.com/oneconcern/gitshed/pkg/storage/status"
	"github.com/segmentio/ksuid"
	"github.com/spf13/afero"
)

/* thread-safe local storage implementation.
 * atomic Put()s rely on the atomicity of afero.Fs.Rename()
 * for those filesystems where Rename() is thread-safe:  files are placed in a staging area,
 * then Rename()d into place.
 */

const nestedPutStageName = ".put-stage"

// New creates a new object store on a file system, with atomic puts.
//
// If fs is nil, the store is rooted at root on the OS file system.
func New(fs afero.Fs, root string) (storage.ObjectStore, error) {
	if fs == nil {
		fs = afero.NewBasePathFs(afero.NewOsFs(), root)
	}
	/* the staging area exists within the afero.Fs itself */
	if err := fs.MkdirAll(nestedPutStageName, 0700); err != nil {
		return nil, fmt.Errorf("ensuring put staging directory for %q: %v", nestedPutStageName, err)
	}
	return &localFS{
		fs:   fs,
		root: root,
	}, nil
}

// NewStore creates a batch content store rooted at a local directory
func NewStore(root string, opts ...storage.BatchOption) (storage.Store, error) {
	objects, err := New(nil, root)
	if err != nil {
		return nil, err
	}
	return storage.Batch(objects, opts...), nil
}

type localFS struct {
	fs   afero.Fs
	root string
}

func maybeInvalidKey(key string) error {
	const pathSepString = string(os.PathSeparator)
	pathComponents := strings.Split(strings.TrimLeft(filepath.FromSlash(key), pathSepString), pathSepString)
	if len(pathComponents) == 0 {
		return nil
	}
	if pathComponents[0] == nestedPutStageName {
		return status.ErrInvalidResource.Wrapf("key '%v' conflicts with put staging area name '%v'", key, nestedPutStageName)
	}
	return nil
}

func (l *localFS) Has(ctx context.Context, key string) (bool, error) {
	if err := maybeInvalidKey(key); err != nil {
		return false, err
	}
	fi, err := l.fs.Stat(filepath.FromSlash(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !fi.IsDir(), nil
}

func (l *localFS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := maybeInvalidKey(key); err != nil {
		return nil, err
	}
	has, err := l.Has(ctx, key)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, status.ErrNotExists.Wrapf("%s", key)
	}
	return l.fs.Open(filepath.FromSlash(key))
}

func (l *localFS) Put(ctx context.Context, key string, source io.Reader) error {
	if err := maybeInvalidKey(key); err != nil {
		return err
	}
	name := filepath.FromSlash(key)

	stage, err := afero.TempFile(l.fs, nestedPutStageName, ksuid.New().String())
	if err != nil {
		return fmt.Errorf("create staging record for %q: %v", key, err)
	}
	stageName := stage.Name()
	defer func() {
		_ = l.fs.Remove(stageName)
	}()

	if _, err = io.Copy(stage, &contextReader{ctx: ctx, r: source}); err != nil {
		_ = stage.Close()
		return fmt.Errorf("write record for %q: %w", key, err)
	}
	if err = stage.Close(); err != nil {
		return err
	}

	/* Rename() doesn't create directories automatically */
	if dir := filepath.Dir(name); dir != "" {
		if err = l.fs.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("ensuring directories for %q: %v", key, err)
		}
	}
	return l.fs.Rename(stageName, name)
}

func (l *localFS) Delete(ctx context.Context, key string) error {
	if err := maybeInvalidKey(key); err != nil {
		return err
	}
	if err := l.fs.Remove(filepath.FromSlash(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %q: %v", key, err)
	}
	return nil
}

func (l *localFS) String() string {
	const localfs = "localfs"
	switch fs := l.fs.(type) {
	case *afero.BasePathFs:
		pp, err := fs.RealPath("")
		if err != nil {
			return localfs
		}
		return localfs + "@" + pp
	default:
		if l.root != "" {
			return localfs + "@" + l.root
		}
		return localfs
	}
}

// contextReader stops copying as soon as its context is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
