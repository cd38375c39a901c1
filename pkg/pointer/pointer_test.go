package pointer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/oneconcern/gitshed/pkg/cafs"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo     string
	shed     string
	resolver *Resolver
}

func newFixture(t *testing.T, exclude ...string) *fixture {
	repo := t.TempDir()
	shed := filepath.Join(repo, ".gitshed", "files")
	require.NoError(t, os.MkdirAll(shed, 0o755))
	return &fixture{repo: repo, shed: shed, resolver: New(repo, shed, exclude)}
}

func (f *fixture) write(t *testing.T, rel, content string) string {
	path := filepath.Join(f.repo, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// link creates a pointer at rel, with content in the shed or not
func (f *fixture) link(t *testing.T, rel, content string, synced bool) cafs.Key {
	key := cafs.DeriveBytes([]byte(content))
	if synced {
		require.NoError(t, os.WriteFile(filepath.Join(f.shed, key.String()), []byte(content), 0o444))
	}
	path := filepath.Join(f.repo, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	target, err := f.resolver.LinkTarget(path, key)
	require.NoError(t, err)
	require.NoError(t, os.Symlink(target, path))
	return key
}

func TestClassify(t *testing.T) {
	f := newFixture(t)
	syncedKey := f.link(t, "data/a.bin", "aaa", true)
	unsyncedKey := f.link(t, "data/deep/b.bin", "bbb", false)
	f.write(t, "plain.txt", "plain")
	require.NoError(t, os.Symlink("plain.txt", filepath.Join(f.repo, "other-link")))
	require.NoError(t, os.Symlink(filepath.Join(".gitshed", "files", "not-a-key"), filepath.Join(f.repo, "bad-key")))

	for _, tc := range []struct {
		rel   string
		state State
		key   cafs.Key
	}{
		{rel: "data/a.bin", state: Synced, key: syncedKey},
		{rel: "data/deep/b.bin", state: Unsynced, key: unsyncedKey},
		{rel: "plain.txt", state: Unmanaged},
		{rel: "other-link", state: Unmanaged},
		{rel: "bad-key", state: Unmanaged},
		{rel: "missing", state: Unmanaged},
		{rel: "data", state: Unmanaged},
	} {
		p, err := f.resolver.Classify(filepath.Join(f.repo, tc.rel))
		require.NoError(t, err, tc.rel)
		assert.Equalf(t, tc.state, p.State, "state of %s", tc.rel)
		assert.Equalf(t, tc.key, p.Key, "key of %s", tc.rel)
		assert.Equal(t, tc.rel, p.RelPath)
	}
}

func TestLinkTarget(t *testing.T) {
	f := newFixture(t)
	key := cafs.DeriveBytes([]byte("x"))

	target, err := f.resolver.LinkTarget(filepath.Join(f.repo, "a", "b", "file"), key)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("..", "..", ".gitshed", "files", key.String()), target)

	target, err = f.resolver.LinkTarget(filepath.Join(f.repo, "file"), key)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(".gitshed", "files", key.String()), target)
}

func TestScan(t *testing.T) {
	f := newFixture(t, "vendor")
	f.link(t, "a.bin", "a", true)
	f.link(t, "sub/b.bin", "b", false)
	f.link(t, "sub/c.bin", "c", false)
	f.link(t, "vendor/ignored.bin", "v", false)
	f.write(t, "sub/readme", "readme")

	pointers, err := f.resolver.All(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, pointers, 3)
	assert.Equal(t, "a.bin", pointers[0].RelPath)
	assert.Equal(t, Synced, pointers[0].State)
	assert.Equal(t, "sub/b.bin", filepath.ToSlash(pointers[1].RelPath))
	assert.Equal(t, Unsynced, pointers[1].State)

	pointers, err = f.resolver.All(context.Background(), []string{filepath.Join(f.repo, "sub"), filepath.Join(f.repo, "nowhere")})
	require.NoError(t, err)
	assert.Len(t, pointers, 2)
}

func TestScanExcludesNamesAtAnyDepth(t *testing.T) {
	f := newFixture(t, "node_modules", "third_party/big")
	f.link(t, "a.bin", "a", false)
	f.link(t, "node_modules/top.bin", "top", false)
	f.link(t, "web/node_modules/nested.bin", "nested", false)
	f.link(t, "sub/.git/objects/x.bin", "x", false)
	f.link(t, "third_party/big/huge.bin", "huge", false)
	f.link(t, "third_party/small/tiny.bin", "tiny", false)
	f.link(t, "other/third_party/big/kept.bin", "kept", false)

	pointers, err := f.resolver.All(context.Background(), nil)
	require.NoError(t, err)
	rels := make([]string, 0, len(pointers))
	for _, p := range pointers {
		rels = append(rels, filepath.ToSlash(p.RelPath))
	}
	assert.Equal(t, []string{"a.bin", "other/third_party/big/kept.bin", "third_party/small/tiny.bin"}, rels)
}

// unreadableFs denies opening one path
type unreadableFs struct {
	afero.OsFs
	path string
}

func (u unreadableFs) Open(name string) (afero.File, error) {
	if name == u.path {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return u.OsFs.Open(name)
}

func TestClassifyUnreadableEntry(t *testing.T) {
	f := newFixture(t)
	key := f.link(t, "a.bin", "a", true)
	resolver := New(f.repo, f.shed, nil, WithFs(unreadableFs{path: filepath.Join(f.shed, key.String())}))

	p, err := resolver.Classify(filepath.Join(f.repo, "a.bin"))
	require.NoError(t, err)
	assert.Equal(t, Unsynced, p.State)
	assert.Equal(t, key, p.Key)

	p, err = f.resolver.Classify(filepath.Join(f.repo, "a.bin"))
	require.NoError(t, err)
	assert.Equal(t, Synced, p.State)
}

func TestScanStop(t *testing.T) {
	f := newFixture(t)
	f.link(t, "a.bin", "a", false)
	f.link(t, "b.bin", "b", false)

	var seen int
	err := f.resolver.Scan(context.Background(), nil, func(Pointer) error {
		seen++
		return ErrStop
	})
	require.NoError(t, err)
	assert.Equal(t, 1, seen)

	boom := errors.New("boom")
	err = f.resolver.Scan(context.Background(), nil, func(Pointer) error {
		return boom
	})
	assert.Equal(t, boom, err)
}

func TestScanCanceled(t *testing.T) {
	f := newFixture(t)
	f.link(t, "a.bin", "a", false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := f.resolver.Scan(ctx, nil, func(Pointer) error { return nil })
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "synced", Synced.String())
	assert.Equal(t, "unsynced", Unsynced.String())
	assert.Equal(t, "unmanaged", Unmanaged.String())
}
