package core

import (
	"context"

	"github.com/oneconcern/gitshed/pkg/pointer"
	"github.com/oneconcern/gitshed/pkg/transfer"
	"go.uber.org/zap"
)

// Sync fetches the content of unsynced pointers.
//
// Directories stand for the pointers they contain. Synced pointers and unmanaged paths are skipped
// without contacting the remote store.
func (g *GitShed) Sync(ctx context.Context, paths []string) (*Result, error) {
	result := newResult()
	pointers, err := g.classify(ctx, paths, result)
	if err != nil {
		return nil, err
	}
	return g.fetch(ctx, pointers, result, false), nil
}

// SyncAll fetches the content of all unsynced pointers in the repository
func (g *GitShed) SyncAll(ctx context.Context) (*Result, error) {
	pointers, err := g.resolver.All(ctx, nil)
	if err != nil {
		return nil, err
	}
	return g.fetch(ctx, pointers, newResult(), false), nil
}

// Resync fetches the content of pointers again, replacing what the shed holds.
//
// This is the way out of a corrupted shed entry.
func (g *GitShed) Resync(ctx context.Context, paths []string) (*Result, error) {
	result := newResult()
	pointers, err := g.classify(ctx, paths, result)
	if err != nil {
		return nil, err
	}
	return g.fetch(ctx, pointers, result, true), nil
}

// ResyncAll fetches the content of all pointers in the repository again
func (g *GitShed) ResyncAll(ctx context.Context) (*Result, error) {
	pointers, err := g.resolver.All(ctx, nil)
	if err != nil {
		return nil, err
	}
	return g.fetch(ctx, pointers, newResult(), true), nil
}

func (g *GitShed) fetch(ctx context.Context, pointers []pointer.Pointer, result *Result, force bool) *Result {
	var (
		jobs    []transfer.Job
		waiting []pointer.Pointer
	)
	for _, p := range pointers {
		switch {
		case p.State == pointer.Unsynced, force && p.State == pointer.Synced:
			jobs = append(jobs, transfer.Job{Direction: transfer.Get, Key: p.Key, Path: g.shed.PathFor(p.Key)})
			waiting = append(waiting, p)
		default:
			result.skip(p.RelPath)
		}
	}
	if len(jobs) == 0 {
		return result.seal()
	}
	if force {
		g.l.Warn("overwriting shed entries with remote content", zap.Int("entries", len(jobs)))
	}

	result.Report = g.transfers.Run(ctx, jobs)
	for _, p := range waiting {
		if err := result.Report.Failed[p.Key]; err != nil {
			result.fail(p.RelPath, err)
			continue
		}
		result.done(p.RelPath)
	}
	return result.seal()
}
