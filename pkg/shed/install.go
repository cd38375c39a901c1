package shed

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio"
	"github.com/oneconcern/gitshed/pkg/cafs"
)

const (
	// ReadOnlyMode is the mode of entries which carry no other permission information
	ReadOnlyMode os.FileMode = 0444

	writeBits os.FileMode = 0222
)

// MakeModeReadOnly clears the write bits from a file mode
func MakeModeReadOnly(mode os.FileMode) os.FileMode {
	return mode.Perm() &^ writeBits
}

// Install atomically writes content read from r at path, checking that it hashes to key.
//
// The content is staged in a temporary file next to path, verified, then renamed into place.
// Nothing is left at path if anything fails.
func Install(path string, key cafs.Key, r io.Reader, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ErrShedWrite.Wrap(err)
	}

	pending, err := renameio.TempFile(dir, path)
	if err != nil {
		return ErrShedWrite.Wrap(err)
	}
	defer func() {
		_ = pending.Cleanup()
	}()

	source := &trackingReader{r: r}
	size, err := io.Copy(pending, source)
	if err != nil {
		if source.err != nil {
			// the source failed, not the shed
			return source.err
		}
		return ErrShedWrite.Wrap(err)
	}

	if _, err = pending.Seek(0, io.SeekStart); err != nil {
		return ErrShedWrite.Wrap(err)
	}
	actual, err := cafs.Derive(pending, size)
	if err != nil {
		return ErrShedWrite.Wrap(err)
	}
	if actual != key {
		return ErrChecksum.Wrapf("expected %v, got %v", key, actual)
	}

	if err = pending.Chmod(MakeModeReadOnly(mode)); err != nil {
		return ErrShedWrite.Wrap(err)
	}
	if err = pending.CloseAtomicallyReplace(); err != nil {
		return ErrShedWrite.Wrap(err)
	}
	return nil
}

type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}
