package storage

import (
	"bytes"
	"context"
	"io"
	"path"

	blake2b "github.com/minio/blake2b-simd"
	"github.com/oneconcern/gitshed/pkg/storage/status"
	"github.com/segmentio/ksuid"
)

const (
	probeFolder = "GITSHED_CLIENT_CHECK_DELETABLE"
	probeName   = "GITSHED_CLIENT_CHECK_KEY"
)

var probeContent = []byte("FAKE FILE CONTENT.")

// ProbePath returns a fresh name for a health check object.
//
// Probe objects pollute the store. They are given recognizable names, so admins may delete them.
func ProbePath() string {
	return path.Join(probeFolder, ContentPrefix, ksuid.New().String(), probeName)
}

// Probe checks that an object store works from this client, by writing an object then reading it back.
func Probe(ctx context.Context, objects ObjectStore) error {
	name := ProbePath()

	has, err := objects.Has(ctx, name)
	if err != nil {
		return status.ErrHealthCheck.Wrap(err)
	}
	if has {
		return status.ErrHealthCheck.Wrapf("probe object %s unexpectedly found", name)
	}

	if err = objects.Put(ctx, name, bytes.NewReader(probeContent)); err != nil {
		return status.ErrHealthCheck.Wrap(err)
	}

	has, err = objects.Has(ctx, name)
	if err != nil {
		return status.ErrHealthCheck.Wrap(err)
	}
	if !has {
		return status.ErrHealthCheck.Wrapf("probe object %s not found. Content store write failed?", name)
	}

	rdr, err := objects.Get(ctx, name)
	if err != nil {
		return status.ErrHealthCheck.Wrap(err)
	}
	defer func() {
		_ = rdr.Close()
	}()

	fetched := blake2b.New256()
	if _, err = io.Copy(fetched, rdr); err != nil {
		return status.ErrHealthCheck.Wrap(err)
	}
	expected := blake2b.Sum256(probeContent)
	if !bytes.Equal(expected[:], fetched.Sum(nil)) {
		return status.ErrHealthCheck.Wrapf("mismatched content fetched from %s", objects)
	}
	return nil
}
