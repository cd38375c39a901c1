// Copyright © 2018 One Concern

package localfs

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/oneconcern/gitshed/pkg/cafs"
	"github.com/oneconcern/gitshed/pkg/errors"
	"github.com/oneconcern/gitshed/pkg/storage"
	"github.com/oneconcern/gitshed/pkg/storage/status"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t testing.TB) (storage.ObjectStore, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "sixteentons", []byte("this is the text"), 0600))
	require.NoError(t, afero.WriteFile(fs, "content_store/seventeentons", []byte("this is the text for another thing"), 0600))

	bs, err := New(fs, "")
	require.NoError(t, err)
	return bs, fs
}

func TestHas(t *testing.T) {
	bs, _ := setupStore(t)

	has, err := bs.Has(context.Background(), "sixteentons")
	require.NoError(t, err)
	require.True(t, has)

	has, err = bs.Has(context.Background(), "content_store/seventeentons")
	require.NoError(t, err)
	require.True(t, has)

	has, err = bs.Has(context.Background(), "fifteentons")
	require.NoError(t, err)
	require.False(t, has)

	has, err = bs.Has(context.Background(), "content_store")
	require.NoError(t, err)
	require.False(t, has, "folders are not objects")

	_, err = bs.Has(context.Background(), ".put-stage/sneaky")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrInvalidResource))
}

func TestGet(t *testing.T) {
	bs, _ := setupStore(t)

	rdr, err := bs.Get(context.Background(), "sixteentons")
	require.NoError(t, err)
	b, err := io.ReadAll(rdr)
	require.NoError(t, err)
	require.NoError(t, rdr.Close())
	assert.Equal(t, "this is the text", string(b))

	_, err = bs.Get(context.Background(), "fifteentons")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotExists))
}

func TestPut(t *testing.T) {
	bs, fs := setupStore(t)

	content := bytes.NewBufferString("here we go once again")
	err := bs.Put(context.Background(), "content_store/eighteentons", content)
	require.NoError(t, err)

	rdr, err := bs.Get(context.Background(), "content_store/eighteentons")
	require.NoError(t, err)
	b, err := io.ReadAll(rdr)
	require.NoError(t, err)
	require.NoError(t, rdr.Close())
	assert.Equal(t, "here we go once again", string(b))

	// overwriting is idempotent
	require.NoError(t, bs.Put(context.Background(), "content_store/eighteentons", bytes.NewBufferString("here we go once again")))

	// nothing left in the staging area
	staged, err := afero.ReadDir(fs, nestedPutStageName)
	require.NoError(t, err)
	assert.Empty(t, staged)
}

func TestPut_Canceled(t *testing.T) {
	bs, _ := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := bs.Put(ctx, "content_store/never", bytes.NewBufferString("never written"))
	require.Error(t, err)

	has, err := bs.Has(context.Background(), "content_store/never")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestDelete(t *testing.T) {
	bs, _ := setupStore(t)

	require.NoError(t, bs.Delete(context.Background(), "sixteentons"))
	has, err := bs.Has(context.Background(), "sixteentons")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, bs.Delete(context.Background(), "sixteentons"))
}

func TestString(t *testing.T) {
	bs, _ := setupStore(t)
	assert.Equal(t, "localfs", bs.String())

	root := t.TempDir()
	onDisk, err := New(nil, root)
	require.NoError(t, err)
	assert.Contains(t, onDisk.String(), root)
}

func TestBatchStore(t *testing.T) {
	root := t.TempDir()
	work := t.TempDir()
	store, err := NewStore(root)
	require.NoError(t, err)

	contents := []string{"CONTENT1", "CONTENT2", "CONTENT3"}
	items := make([]storage.Item, 0, len(contents))
	for i, content := range contents {
		path := filepath.Join(work, "src", "file"+string(rune('A'+i)))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		items = append(items, storage.Item{Key: cafs.DeriveBytes([]byte(content)), Path: path})
	}

	results := store.Put(context.Background(), items)
	require.Len(t, results, 3)
	require.Empty(t, results.Failed())
	for _, item := range items {
		_, err := os.Stat(filepath.Join(root, storage.ContentPrefix, item.Key.String()))
		require.NoError(t, err)
	}

	missing := cafs.DeriveBytes([]byte("never uploaded"))
	downloads := []storage.Item{
		{Key: items[0].Key, Path: filepath.Join(work, "dst", "a")},
		{Key: missing, Path: filepath.Join(work, "dst", "missing")},
		{Key: items[2].Key, Path: filepath.Join(work, "dst", "c")},
	}
	results = store.Get(context.Background(), downloads)
	require.Len(t, results, 3)
	require.NoError(t, results[0].Err)
	require.Error(t, results[1].Err)
	assert.True(t, errors.Is(results[1].Err, status.ErrNotExists))
	require.NoError(t, results[2].Err)

	b, err := os.ReadFile(downloads[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "CONTENT1", string(b))
	_, err = os.Stat(downloads[1].Path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, store.HealthCheck(context.Background()))
}

func TestBatchStore_CorruptedRemote(t *testing.T) {
	root := t.TempDir()
	store, err := NewStore(root)
	require.NoError(t, err)

	key := cafs.DeriveBytes([]byte("expected content"))
	remote := filepath.Join(root, storage.ContentPrefix, key.String())
	require.NoError(t, os.MkdirAll(filepath.Dir(remote), 0755))
	require.NoError(t, os.WriteFile(remote, []byte("BAD CONTENT"), 0644))

	dest := filepath.Join(t.TempDir(), "test")
	results := store.Get(context.Background(), []storage.Item{{Key: key, Path: dest}})
	require.Error(t, results[0].Err)
	assert.True(t, errors.Is(results[0].Err, status.ErrTransfer))

	_, err = os.Stat(dest)
	assert.True(t, os.IsNotExist(err))
}
