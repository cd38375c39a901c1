package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/oneconcern/gitshed/pkg/storage"
	"github.com/oneconcern/gitshed/pkg/storage/gcs"
	"github.com/oneconcern/gitshed/pkg/storage/localfs"
	"github.com/oneconcern/gitshed/pkg/storage/rsync"
	"github.com/oneconcern/gitshed/pkg/storage/sthree"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Backend names the configured content store
func (c *Config) Backend() string {
	cs := c.ContentStore
	switch {
	case cs.Remote != nil:
		return "remote"
	case cs.Local != nil:
		return "local"
	case cs.S3 != nil:
		return "s3"
	case cs.GCS != nil:
		return "gcs"
	default:
		return ""
	}
}

// NewStore builds the configured content store.
//
// Relative local roots are resolved against the repository root.
func (c *Config) NewStore(ctx context.Context, repoRoot string, l *zap.Logger) (storage.Store, error) {
	if l == nil {
		l = zap.NewNop()
	}
	store, err := c.newStore(ctx, repoRoot, l)
	if err != nil {
		return nil, ErrConfiguration.Wrap(fmt.Errorf("cannot create %s content store: %w", c.Backend(), err))
	}
	return storage.Instrument(l, store), nil
}

func (c *Config) newStore(ctx context.Context, repoRoot string, l *zap.Logger) (storage.Store, error) {
	cs := c.ContentStore
	switch {
	case cs.Remote != nil:
		return rsync.NewStore(cs.Remote.Host, cs.Remote.RootPath, cs.Remote.RootURL,
			rsync.Timeout(Timeout(cs.Remote.TimeoutSecs)),
			rsync.Sudo(cs.Remote.Sudo),
			rsync.Logger(l),
		)

	case cs.Local != nil:
		root := cs.Local.Root
		if !filepath.IsAbs(root) {
			root = filepath.Join(repoRoot, root)
		}
		return localfs.NewStore(root, storage.BatchLogger(l))

	case cs.S3 != nil:
		cfg := aws.NewConfig()
		if cs.S3.Region != "" {
			cfg = cfg.WithRegion(cs.S3.Region)
		}
		if cs.S3.Endpoint != "" {
			cfg = cfg.WithEndpoint(cs.S3.Endpoint).WithS3ForcePathStyle(true)
		}
		return sthree.NewStore(sthree.Bucket(cs.S3.Bucket),
			sthree.Prefix(cs.S3.Prefix),
			sthree.AWSConfig(cfg),
			sthree.Timeout(Timeout(cs.S3.TimeoutSecs)),
			sthree.Logger(l),
		)

	case cs.GCS != nil:
		opts := []gcs.Option{gcs.Timeout(Timeout(cs.GCS.TimeoutSecs)), gcs.Logger(l)}
		if cs.GCS.Credentials != "" {
			opts = append(opts, gcs.ClientOptions(option.WithCredentialsFile(cs.GCS.Credentials)))
		}
		return gcs.NewStore(ctx, cs.GCS.Bucket, cs.GCS.Prefix, opts...)

	default:
		return nil, ErrConfiguration.Wrapf("no content store configured")
	}
}
