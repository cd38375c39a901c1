// Copyright © 2018 One Concern

package storage

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Instrument decorates a store with logs for every batch
func Instrument(l *zap.Logger, store Store) Store {
	return &instrumentedStore{
		store: store,
		l:     l.With(zap.String("store", store.String())),
	}
}

type instrumentedStore struct {
	store Store
	l     *zap.Logger
}

func (i *instrumentedStore) logResults(op string, started time.Time, items []Item, results Results) {
	failed := results.Failed()
	i.l.Debug("storage "+op,
		zap.Int("items", len(items)),
		zap.Int("failed", len(failed)),
		zap.Duration("elapsed", time.Since(started)),
	)
	for _, res := range failed {
		i.l.Info("storage "+op+" failed", zap.Stringer("key", res.Key), zap.Error(res.Err))
	}
}

func (i *instrumentedStore) Put(ctx context.Context, items []Item) Results {
	started := time.Now()
	results := i.store.Put(ctx, items)
	i.logResults("put", started, items, results)
	return results
}

func (i *instrumentedStore) Get(ctx context.Context, items []Item) Results {
	started := time.Now()
	results := i.store.Get(ctx, items)
	i.logResults("get", started, items, results)
	return results
}

func (i *instrumentedStore) HealthCheck(ctx context.Context) error {
	i.l.Debug("storage health check")
	err := i.store.HealthCheck(ctx)
	if err != nil {
		i.l.Warn("storage health check failed", zap.Error(err))
	}
	return err
}

func (i *instrumentedStore) String() string {
	return i.store.String()
}
