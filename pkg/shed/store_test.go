package shed

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/oneconcern/gitshed/pkg/cafs"
	"github.com/oneconcern/gitshed/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t testing.TB) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), ".gitshed", "files"))
	require.NoError(t, err)
	return s
}

func readAll(t testing.TB, s *Store, key cafs.Key) string {
	t.Helper()
	rdr, err := s.Open(key)
	require.NoError(t, err)
	defer rdr.Close()
	b, err := io.ReadAll(rdr)
	require.NoError(t, err)
	return string(b)
}

func TestPathFor(t *testing.T) {
	s := setupStore(t)
	key := cafs.DeriveBytes([]byte("content"))
	assert.Equal(t, filepath.Join(s.Root(), key.String()), s.PathFor(key))
	assert.Contains(t, s.String(), s.Root())
}

func TestWriteFrom(t *testing.T) {
	s := setupStore(t)
	content := "this is the text"
	key := cafs.DeriveBytes([]byte(content))

	require.False(t, s.Has(key))
	require.NoError(t, s.WriteFrom(key, strings.NewReader(content)))
	require.True(t, s.Has(key))
	assert.Equal(t, content, readAll(t, s, key))

	fi, err := os.Stat(s.PathFor(key))
	require.NoError(t, err)
	assert.Equal(t, ReadOnlyMode, fi.Mode().Perm())

	// writing the same key again is harmless
	require.NoError(t, s.WriteFrom(key, strings.NewReader(content)))
	assert.Equal(t, content, readAll(t, s, key))

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []cafs.Key{key}, keys)
}

func TestWriteFrom_Mismatch(t *testing.T) {
	s := setupStore(t)
	key := cafs.DeriveBytes([]byte("expected"))

	err := s.WriteFrom(key, strings.NewReader("BAD CONTENT"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChecksum))
	assert.False(t, s.Has(key))

	// no staging leftovers
	entries, err := os.ReadDir(s.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, fmt.Errorf("disk on fire") }

func TestWriteFrom_ReadFailure(t *testing.T) {
	s := setupStore(t)
	key := cafs.DeriveBytes([]byte("x"))

	err := s.WriteFrom(key, failingReader{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
	assert.False(t, errors.Is(err, ErrShedWrite), "a failing source is not a shed failure")
	assert.False(t, s.Has(key))
}

func TestWriteFrom_ConcurrentSameKey(t *testing.T) {
	s := setupStore(t)
	content := bytes.Repeat([]byte("0123456789"), 100000)
	key := cafs.DeriveBytes(content)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.WriteFrom(key, bytes.NewReader(content)))
		}()
	}
	wg.Wait()

	require.NoError(t, s.Verify(key))
	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestAdopt(t *testing.T) {
	s := setupStore(t)
	src := filepath.Join(t.TempDir(), "big.bin")
	require.NoError(t, os.WriteFile(src, []byte("SOME FILE CONTENT"), 0755))
	key := cafs.DeriveBytes([]byte("SOME FILE CONTENT"))

	require.NoError(t, s.Adopt(key, src))
	_, err := os.Lstat(src)
	assert.True(t, os.IsNotExist(err))

	fi, err := os.Stat(s.PathFor(key))
	require.NoError(t, err)
	// executable bits survive, write bits don't
	assert.Equal(t, os.FileMode(0555), fi.Mode().Perm())
	require.NoError(t, s.Verify(key))
}

func TestAdopt_NotAFile(t *testing.T) {
	s := setupStore(t)
	dir := t.TempDir()
	err := s.Adopt(cafs.DeriveBytes(nil), dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShedWrite))

	err = s.Adopt(cafs.DeriveBytes(nil), filepath.Join(dir, "missing"))
	require.Error(t, err)
}

func TestRemove(t *testing.T) {
	s := setupStore(t)
	key := cafs.DeriveBytes([]byte("gone soon"))
	require.NoError(t, s.WriteFrom(key, strings.NewReader("gone soon")))

	require.NoError(t, s.Remove(key))
	assert.False(t, s.Has(key))
	require.NoError(t, s.Remove(key))

	_, err := s.Open(key)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotInShed))
}

func TestVerify_Corrupted(t *testing.T) {
	s := setupStore(t)
	key := cafs.DeriveBytes([]byte("good"))
	require.NoError(t, s.WriteFrom(key, strings.NewReader("good")))

	path := s.PathFor(key)
	require.NoError(t, os.Chmod(path, 0644))
	require.NoError(t, os.WriteFile(path, []byte("BAD CONTENT"), 0644))

	err := s.Verify(key)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChecksum))

	err = s.Verify(cafs.DeriveBytes([]byte("absent")))
	assert.True(t, errors.Is(err, ErrNotInShed))
}

func TestKeys_IgnoresStrayFiles(t *testing.T) {
	s := setupStore(t)
	key := cafs.DeriveBytes([]byte("a"))
	require.NoError(t, s.WriteFrom(key, strings.NewReader("a")))
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), ".stage123"), []byte("x"), 0600))
	require.NoError(t, os.Mkdir(filepath.Join(s.Root(), "subdir"), 0700))

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []cafs.Key{key}, keys)
}

func TestMakeModeReadOnly(t *testing.T) {
	assert.Equal(t, os.FileMode(0444), MakeModeReadOnly(0666))
	assert.Equal(t, os.FileMode(0555), MakeModeReadOnly(0777))
	assert.Equal(t, os.FileMode(0400), MakeModeReadOnly(0600))
	assert.Equal(t, os.FileMode(0554), MakeModeReadOnly(0754))
}
