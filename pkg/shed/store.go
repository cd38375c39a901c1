package shed

import (
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/oneconcern/gitshed/pkg/cafs"
	"github.com/oneconcern/gitshed/pkg/errors"
	"go.uber.org/zap"
)

const (
	// Dir is the gitshed directory at the root of a repository
	Dir = ".gitshed"
	// FilesDir is the directory of the shed entries, in Dir
	FilesDir = "files"
)

// Option is a functor to pass optional parameters to the shed store
type Option func(*Store)

// Logger specifies a logger for this store
func Logger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.l = logger
		}
	}
}

// Store is the local shed. It is safe for concurrent use.
type Store struct {
	root string
	l    *zap.Logger
}

// New shed store rooted at root. The root directory is created if it doesn't exist.
func New(root string, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	s := &Store{
		root: abs,
		l:    zap.NewNop(),
	}
	for _, apply := range opts {
		apply(s)
	}
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return nil, ErrShedWrite.Wrap(err)
	}
	return s, nil
}

// Root directory of the shed
func (s *Store) Root() string {
	return s.root
}

func (s *Store) String() string {
	return "shed@" + s.root
}

// PathFor returns the location of the entry for a key. It performs no I/O.
func (s *Store) PathFor(key cafs.Key) string {
	return filepath.Join(s.root, key.String())
}

// Has tells if the shed holds an entry for key
func (s *Store) Has(key cafs.Key) bool {
	fi, err := os.Stat(s.PathFor(key))
	return err == nil && fi.Mode().IsRegular()
}

// WriteFrom writes the content read from r as the entry for key.
//
// The content must hash to key.
func (s *Store) WriteFrom(key cafs.Key, r io.Reader) error {
	return Install(s.PathFor(key), key, r, ReadOnlyMode)
}

// Adopt moves an existing file into the shed as the entry for key, keeping its permissions
// minus the write bits. The caller is responsible for having derived key from the file.
//
// The file is renamed when the shed lives on the same file system, and copied otherwise.
func (s *Store) Adopt(key cafs.Key, path string) error {
	fi, err := os.Lstat(path)
	if err != nil {
		return ErrShedWrite.Wrap(err)
	}
	if !fi.Mode().IsRegular() {
		return ErrShedWrite.Wrapf("%s is not a regular file", path)
	}
	if err = os.Chmod(path, MakeModeReadOnly(fi.Mode())); err != nil {
		return ErrShedWrite.Wrap(err)
	}

	target := s.PathFor(key)
	err = os.Rename(path, target)
	if err == nil {
		s.l.Debug("adopted file into shed", zap.String("path", path), zap.Stringer("key", key))
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		_ = os.Chmod(path, fi.Mode().Perm())
		return ErrShedWrite.Wrap(err)
	}

	s.l.Debug("shed on another device, copying", zap.String("path", path))
	if err = s.copyIn(key, path, fi.Mode()); err != nil {
		return err
	}
	if err = os.Remove(path); err != nil {
		return ErrShedWrite.Wrap(err)
	}
	return nil
}

func (s *Store) copyIn(key cafs.Key, path string, mode os.FileMode) error {
	source, err := os.Open(path)
	if err != nil {
		return ErrShedWrite.Wrap(err)
	}
	defer func() {
		_ = source.Close()
	}()
	return Install(s.PathFor(key), key, source, mode)
}

// Open the entry for a key
func (s *Store) Open(key cafs.Key) (io.ReadCloser, error) {
	f, err := os.Open(s.PathFor(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotInShed.Wrapf("%v", key)
		}
		return nil, err
	}
	return f, nil
}

// Remove the entry for a key. Removing an absent entry is not an error.
func (s *Store) Remove(key cafs.Key) error {
	if err := os.Remove(s.PathFor(key)); err != nil && !os.IsNotExist(err) {
		return ErrShedWrite.Wrap(err)
	}
	return nil
}

// Verify that the entry for a key still hashes to that key
func (s *Store) Verify(key cafs.Key) error {
	f, err := os.Open(s.PathFor(key))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotInShed.Wrapf("%v", key)
		}
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	actual, err := cafs.Derive(f, fi.Size())
	if err != nil {
		return err
	}
	if actual != key {
		return ErrChecksum.Wrapf("entry %v hashes to %v", key, actual)
	}
	return nil
}

// Keys lists the keys of all entries in the shed.
// Staging files and anything not named after a key are ignored.
func (s *Store) Keys() ([]cafs.Key, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	keys := make([]cafs.Key, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !cafs.IsValidKey(entry.Name()) {
			continue
		}
		keys = append(keys, cafs.MustKeyFromString(entry.Name()))
	}
	return keys, nil
}
