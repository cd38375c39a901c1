// Package sthree implements a content store on top of AWS S3 or any S3-compatible service.
package sthree

import (
	"context"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/oneconcern/gitshed/pkg/storage"
	"github.com/oneconcern/gitshed/pkg/storage/status"
	"go.uber.org/zap"
)

// Option is a functor to pass optional parameters to the s3 store
type Option func(*s3FS)

// Bucket to store content into
func Bucket(bucket string) Option {
	return func(fs *s3FS) {
		fs.bucket = bucket
	}
}

// Prefix for all object names in the bucket
func Prefix(prefix string) Option {
	return func(fs *s3FS) {
		fs.prefix = prefix
	}
}

// AWSConfig overrides the default AWS client configuration, e.g. to set an endpoint or credentials
func AWSConfig(cfg *aws.Config) Option {
	return func(fs *s3FS) {
		fs.awsConfig = cfg
	}
}

// Timeout bounds the transfer of each single object
func Timeout(d time.Duration) Option {
	return func(fs *s3FS) {
		fs.timeout = d
	}
}

// Logger specifies a logger for this store
func Logger(logger *zap.Logger) Option {
	return func(fs *s3FS) {
		if logger != nil {
			fs.l = logger
		}
	}
}

// New object store for an S3 bucket
func New(option Option, options ...Option) (storage.ObjectStore, error) {
	fs := &s3FS{
		awsConfig: aws.NewConfig(),
		timeout:   storage.DefaultTimeout,
		l:         zap.NewNop(),
	}
	option(fs)
	for _, apply := range options {
		apply(fs)
	}
	if fs.bucket == "" {
		return nil, status.ErrInvalidResource.Wrapf("s3 store requires a bucket")
	}

	sess, err := session.NewSession(fs.awsConfig)
	if err != nil {
		return nil, status.ErrStorageAPI.Wrap(err)
	}
	fs.s3 = s3.New(sess)
	fs.uploader = s3manager.NewUploaderWithClient(fs.s3)
	return fs, nil
}

// NewStore creates the batch content store for an S3 bucket
func NewStore(option Option, options ...Option) (storage.Store, error) {
	objects, err := New(option, options...)
	if err != nil {
		return nil, err
	}
	fs := objects.(*s3FS)
	return storage.Batch(fs, storage.Timeout(fs.timeout), storage.BatchLogger(fs.l)), nil
}

type s3FS struct {
	bucket    string
	prefix    string
	awsConfig *aws.Config
	timeout   time.Duration
	s3        *s3.S3
	uploader  *s3manager.Uploader
	l         *zap.Logger
}

func (s *s3FS) key(name string) *string {
	return aws.String(path.Join(s.prefix, name))
}

func (s *s3FS) Has(ctx context.Context, name string) (bool, error) {
	_, err := s.s3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.key(name),
	})

	if err != nil {
		if rerr, ok := err.(awserr.RequestFailure); ok && rerr.StatusCode() == 404 {
			return false, nil
		}
		return false, toSentinelErrors(err)
	}
	return true, nil
}

func (s *s3FS) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	obj, err := s.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.key(name),
	})
	if err != nil {
		return nil, toSentinelErrors(err)
	}
	return obj.Body, nil
}

func (s *s3FS) Put(ctx context.Context, name string, rdr io.Reader) error {
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    s.key(name),
		Body:   rdr,
	})
	if err != nil {
		s.l.Debug("s3 upload failed", zap.String("object", name), zap.Error(err))
	}
	return toSentinelErrors(err)
}

func (s *s3FS) Delete(ctx context.Context, name string) error {
	_, err := s.s3.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.key(name),
	})
	return toSentinelErrors(err)
}

func (s *s3FS) String() string {
	if s.prefix == "" {
		return "s3://" + s.bucket
	}
	return "s3://" + s.bucket + "/" + s.prefix
}
