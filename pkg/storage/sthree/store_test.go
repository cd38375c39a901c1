package sthree

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/oneconcern/gitshed/pkg/cafs"
	"github.com/oneconcern/gitshed/pkg/storage"
	"github.com/oneconcern/gitshed/pkg/storage/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBucket = "gitshed-test"

// fakeS3 serves a minimal path-style S3 API from memory
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	denied  bool
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.denied {
		writeS3Error(w, r, http.StatusForbidden, "AccessDenied")
		return
	}
	key := strings.TrimPrefix(r.URL.Path, "/"+testBucket+"/")
	switch r.Method {
	case http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		f.objects[key] = data
		w.WriteHeader(http.StatusOK)
	case http.MethodHead, http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			writeS3Error(w, r, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(data)
		}
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeS3Error(w http.ResponseWriter, r *http.Request, code int, s3code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(code)
	if r.Method != http.MethodHead {
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>` + s3code + `</Code><Message>test</Message></Error>`))
	}
}

func setupStore(t *testing.T, opts ...Option) (*fakeS3, storage.ObjectStore, storage.Store) {
	fake := &fakeS3{objects: make(map[string][]byte)}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	cfg := aws.NewConfig().
		WithEndpoint(server.URL).
		WithRegion("us-east-1").
		WithS3ForcePathStyle(true).
		WithDisableSSL(true).
		WithCredentials(credentials.NewStaticCredentials("id", "secret", ""))

	opts = append([]Option{AWSConfig(cfg)}, opts...)
	objects, err := New(Bucket(testBucket), opts...)
	require.NoError(t, err)
	store, err := NewStore(Bucket(testBucket), opts...)
	require.NoError(t, err)
	return fake, objects, store
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(Prefix("x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrInvalidResource))
}

func TestHasGetPut(t *testing.T) {
	fake, objects, _ := setupStore(t, Prefix("team"))
	ctx := context.Background()

	has, err := objects.Has(ctx, "sixteentons")
	require.NoError(t, err)
	require.False(t, has)

	require.NoError(t, objects.Put(ctx, "sixteentons", bytes.NewBufferString("this is the text")))
	assert.Contains(t, fake.objects, "team/sixteentons")

	has, err = objects.Has(ctx, "sixteentons")
	require.NoError(t, err)
	require.True(t, has)

	rdr, err := objects.Get(ctx, "sixteentons")
	require.NoError(t, err)
	b, err := io.ReadAll(rdr)
	require.NoError(t, err)
	require.NoError(t, rdr.Close())
	assert.Equal(t, "this is the text", string(b))

	_, err = objects.Get(ctx, "fifteentons")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotExists))

	require.NoError(t, objects.Delete(ctx, "sixteentons"))
	assert.NotContains(t, fake.objects, "team/sixteentons")
	assert.Equal(t, "s3://"+testBucket+"/team", objects.String())
}

func TestForbidden(t *testing.T) {
	fake, objects, _ := setupStore(t)
	fake.denied = true

	_, err := objects.Get(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrForbidden))

	_, err = objects.Has(context.Background(), "anything")
	assert.True(t, errors.Is(err, status.ErrForbidden))
}

func TestBatchRoundTrip(t *testing.T) {
	_, _, store := setupStore(t)
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "src")
	require.NoError(t, os.WriteFile(src, []byte("SOME FILE CONTENT"), 0o644))
	key := cafs.MustKeyFromString("ee274e538d503eefc991622dacdf4da4bcc86031")

	results := store.Put(ctx, []storage.Item{{Key: key, Path: src}})
	require.Empty(t, results.Failed())

	dest := filepath.Join(t.TempDir(), "dest")
	results = store.Get(ctx, []storage.Item{{Key: key, Path: dest}, {Key: cafs.DeriveBytes([]byte("absent")), Path: dest + ".2"}})
	require.Len(t, results, 2)
	require.NoError(t, results[0].Err)
	assert.True(t, errors.Is(results[1].Err, status.ErrNotExists))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "SOME FILE CONTENT", string(data))

	require.NoError(t, store.HealthCheck(ctx))
}
