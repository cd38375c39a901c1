// Copyright © 2018 One Concern

package storage

import (
	"context"
	"os"
	"time"

	"github.com/oneconcern/gitshed/pkg/errors"
	"github.com/oneconcern/gitshed/pkg/shed"
	"github.com/oneconcern/gitshed/pkg/storage/status"
	"go.uber.org/zap"
)

// DefaultTimeout for the transfer of a single item
const DefaultTimeout = 5 * time.Second

// BatchOption is a functor to pass optional parameters to a batch store
type BatchOption func(*batchStore)

// Timeout bounds the transfer of each single item. A zero or negative value disables the limit.
func Timeout(d time.Duration) BatchOption {
	return func(b *batchStore) {
		b.timeout = d
	}
}

// BatchLogger specifies a logger for the batch store
func BatchLogger(l *zap.Logger) BatchOption {
	return func(b *batchStore) {
		if l != nil {
			b.l = l
		}
	}
}

// Batch turns an object store into a batch content Store.
//
// Items are transferred one at a time, each bounded by the configured timeout.
// When objects implements BulkPutter, uploads are delegated to PutFiles.
// Downloads are checked against their key before being installed at their destination.
func Batch(objects ObjectStore, opts ...BatchOption) Store {
	b := &batchStore{
		objects: objects,
		timeout: DefaultTimeout,
		l:       zap.NewNop(),
	}
	for _, apply := range opts {
		apply(b)
	}
	return b
}

type batchStore struct {
	objects ObjectStore
	timeout time.Duration
	l       *zap.Logger
}

func (b *batchStore) String() string {
	return b.objects.String()
}

func (b *batchStore) itemContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.timeout)
}

func (b *batchStore) Put(ctx context.Context, items []Item) Results {
	if bulk, ok := b.objects.(BulkPutter); ok {
		return bulk.PutFiles(ctx, items)
	}
	results := make(Results, len(items))
	for i, item := range items {
		results[i] = Result{Key: item.Key, Err: b.putOne(ctx, item)}
	}
	return results
}

func (b *batchStore) putOne(ctx context.Context, item Item) error {
	source, err := os.Open(item.Path)
	if err != nil {
		return err
	}
	defer func() {
		_ = source.Close()
	}()

	ictx, cancel := b.itemContext(ctx)
	defer cancel()

	if err = b.objects.Put(ictx, ContentPath(item.Key), source); err != nil {
		b.l.Debug("put failed", zap.Stringer("key", item.Key), zap.Error(err))
		return Classify(ictx, err)
	}
	return nil
}

func (b *batchStore) Get(ctx context.Context, items []Item) Results {
	results := make(Results, len(items))
	for i, item := range items {
		results[i] = Result{Key: item.Key, Err: b.getOne(ctx, item)}
	}
	return results
}

func (b *batchStore) getOne(ctx context.Context, item Item) error {
	ictx, cancel := b.itemContext(ctx)
	defer cancel()

	reader, err := b.objects.Get(ictx, ContentPath(item.Key))
	if err != nil {
		b.l.Debug("get failed", zap.Stringer("key", item.Key), zap.Error(err))
		return Classify(ictx, err)
	}
	defer func() {
		_ = reader.Close()
	}()

	if err = shed.Install(item.Path, item.Key, reader, shed.ReadOnlyMode); err != nil {
		return Classify(ictx, err)
	}
	return nil
}

func (b *batchStore) HealthCheck(ctx context.Context) error {
	return Probe(ctx, b.objects)
}

// Classify qualifies a transfer error with the sentinels of the status package.
//
// Errors caused by an expired item context become ErrTimeout. Content that fails verification
// and any unqualified error become ErrTransfer.
func Classify(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		if errors.Is(err, status.ErrTimeout) {
			return err
		}
		return status.ErrTimeout.Wrap(err)
	case status.IsKnown(err), errors.Is(err, shed.ErrShedWrite):
		return err
	default:
		return status.ErrTransfer.Wrap(err)
	}
}
