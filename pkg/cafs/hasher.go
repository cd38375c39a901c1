package cafs

import (
	"crypto/sha1" // nolint: gosec
	"io"
	"strconv"

	"github.com/spf13/afero"
)

const copyBufferSize = 32 * 1024

// Derive computes the key of some content of known size, read from r.
//
// The content is streamed. An error is returned if r fails or does not yield exactly size bytes.
func Derive(r io.Reader, size int64) (Key, error) {
	if size < 0 {
		return Key{}, ErrKeyDerivation.Wrapf("negative size %d", size)
	}
	hasher := sha1.New() // nolint: gosec
	_, _ = hasher.Write(header(size))

	buf := make([]byte, copyBufferSize)
	// read one extra byte to detect content longer than announced
	n, err := io.CopyBuffer(hasher, io.LimitReader(r, size+1), buf)
	if err != nil {
		return Key{}, ErrKeyDerivation.Wrap(err)
	}
	if n != size {
		return Key{}, ErrKeyDerivation.Wrapf("expected %d bytes, read %d", size, n)
	}
	return MustNewKey(hasher.Sum(nil)), nil
}

// DeriveFile computes the key of a file
func DeriveFile(fs afero.Fs, path string) (Key, error) {
	file, err := fs.Open(path)
	if err != nil {
		return Key{}, ErrKeyDerivation.Wrap(err)
	}
	defer func() {
		_ = file.Close()
	}()

	info, err := file.Stat()
	if err != nil {
		return Key{}, ErrKeyDerivation.Wrap(err)
	}
	if info.IsDir() {
		return Key{}, ErrKeyDerivation.Wrapf("%s is a directory", path)
	}
	return Derive(file, info.Size())
}

// DeriveBytes computes the key of an in-memory buffer
func DeriveBytes(data []byte) Key {
	hasher := sha1.New() // nolint: gosec
	_, _ = hasher.Write(header(int64(len(data))))
	_, _ = hasher.Write(data)
	return MustNewKey(hasher.Sum(nil))
}

func header(size int64) []byte {
	h := make([]byte, 0, 32)
	h = append(h, "blob "...)
	h = strconv.AppendInt(h, size, 10)
	return append(h, 0)
}
