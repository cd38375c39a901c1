// Copyright © 2018 One Concern

// Package gcs implements a content store on top of Google Cloud Storage.
package gcs

import (
	"context"
	"io"
	"path"
	"time"

	gcsStorage "cloud.google.com/go/storage"
	"github.com/oneconcern/gitshed/pkg/storage"
	"github.com/oneconcern/gitshed/pkg/storage/status"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

type gcs struct {
	client         *gcsStorage.Client
	readOnlyClient *gcsStorage.Client
	bucket         string
	prefix         string
	timeout        time.Duration
	clientOpts     []option.ClientOption
	l              *zap.Logger
}

// New object store for a GCS bucket. Credentials are resolved the usual way, e.g. with GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, bucket, prefix string, opts ...Option) (storage.ObjectStore, error) {
	if bucket == "" {
		return nil, status.ErrInvalidResource.Wrapf("gcs store requires a bucket")
	}
	googleStore := &gcs{
		bucket:  bucket,
		prefix:  prefix,
		timeout: storage.DefaultTimeout,
		l:       zap.NewNop(),
	}
	for _, apply := range opts {
		apply(googleStore)
	}

	var err error
	googleStore.readOnlyClient, err = gcsStorage.NewClient(ctx, append(googleStore.clientOpts, option.WithScopes(gcsStorage.ScopeReadOnly))...)
	if err != nil {
		return nil, toSentinelErrors(err)
	}
	googleStore.client, err = gcsStorage.NewClient(ctx, append(googleStore.clientOpts, option.WithScopes(gcsStorage.ScopeFullControl))...)
	if err != nil {
		return nil, toSentinelErrors(err)
	}
	return googleStore, nil
}

// NewStore creates the batch content store for a GCS bucket
func NewStore(ctx context.Context, bucket, prefix string, opts ...Option) (storage.Store, error) {
	objects, err := New(ctx, bucket, prefix, opts...)
	if err != nil {
		return nil, err
	}
	g := objects.(*gcs)
	return storage.Batch(g, storage.Timeout(g.timeout), storage.BatchLogger(g.l)), nil
}

func (g *gcs) String() string {
	if g.prefix == "" {
		return "gcs://" + g.bucket
	}
	return "gcs://" + g.bucket + "/" + g.prefix
}

func (g *gcs) object(client *gcsStorage.Client, name string) *gcsStorage.ObjectHandle {
	return client.Bucket(g.bucket).Object(path.Join(g.prefix, name))
}

func (g *gcs) Has(ctx context.Context, objectName string) (bool, error) {
	_, err := g.object(g.readOnlyClient, objectName).Attrs(ctx)
	if err != nil {
		if err == gcsStorage.ErrObjectNotExist {
			return false, nil
		}
		return false, toSentinelErrors(err)
	}
	return true, nil
}

func (g *gcs) Get(ctx context.Context, objectName string) (io.ReadCloser, error) {
	objectReader, err := g.object(g.readOnlyClient, objectName).NewReader(ctx)
	if err != nil {
		return nil, toSentinelErrors(err)
	}
	return objectReader, nil
}

// Put if not present. Content is addressed by key, so an existing object never needs to be replaced.
func (g *gcs) Put(ctx context.Context, objectName string, reader io.Reader) error {
	writer := g.object(g.client, objectName).If(gcsStorage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	if _, err := io.Copy(writer, reader); err != nil {
		_ = writer.Close()
		return toSentinelErrors(err)
	}
	err := writer.Close()
	if isPreconditionFailed(err) {
		g.l.Debug("object already present", zap.String("object", objectName))
		return nil
	}
	return toSentinelErrors(err)
}

func (g *gcs) Delete(ctx context.Context, objectName string) error {
	return toSentinelErrors(g.object(g.client, objectName).Delete(ctx))
}
