// Package transfer moves content between local files and a remote store.
//
// Jobs are grouped by direction, de-duplicated by key and split into chunks. Each direction
// is served by its own fixed pool of workers, and both pools run at the same time. The failure
// of an item never affects its siblings.
package transfer

import (
	"context"
	"os"
	"sync"

	"github.com/oneconcern/gitshed/pkg/cafs"
	"github.com/oneconcern/gitshed/pkg/shed"
	"github.com/oneconcern/gitshed/pkg/storage"
	"github.com/oneconcern/gitshed/pkg/storage/status"
	"go.uber.org/zap"
)

// Manager runs transfer jobs against a remote store
type Manager struct {
	store       storage.Store
	concurrency map[Direction]int
	chunkSize   int
	progress    func(Event)
	progressMu  sync.Mutex
	l           *zap.Logger
}

// New transfer manager
func New(store storage.Store, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		concurrency: map[Direction]int{
			Get: DefaultGetConcurrency,
			Put: DefaultPutConcurrency,
		},
		chunkSize: DefaultChunkSize,
		l:         zap.NewNop(),
	}
	for _, apply := range opts {
		apply(m)
	}
	return m
}

// plan holds the work for one direction
type plan struct {
	direction Direction
	items     []storage.Item
	// extra destinations of downloads sharing a key with the item
	copies map[cafs.Key][]string
	// number of jobs per key
	weight map[cafs.Key]int
	total  int
}

func newPlan(d Direction) *plan {
	return &plan{
		direction: d,
		copies:    make(map[cafs.Key][]string),
		weight:    make(map[cafs.Key]int),
	}
}

func (p *plan) add(job Job) {
	p.total++
	if _, seen := p.weight[job.Key]; seen {
		p.weight[job.Key]++
		if job.Direction == Get {
			p.copies[job.Key] = append(p.copies[job.Key], job.Path)
		}
		return
	}
	p.weight[job.Key] = 1
	p.items = append(p.items, storage.Item{Key: job.Key, Path: job.Path})
}

func (p *plan) chunks(size int) [][]storage.Item {
	chunks := make([][]storage.Item, 0, (len(p.items)+size-1)/size)
	for start := 0; start < len(p.items); start += size {
		end := start + size
		if end > len(p.items) {
			end = len(p.items)
		}
		chunks = append(chunks, p.items[start:end])
	}
	return chunks
}

// Run all jobs and wait for their completion.
//
// Cancelling the context stops dispatching new chunks: items which were never dispatched
// are reported failed with the context error.
func (m *Manager) Run(ctx context.Context, jobs []Job) *Report {
	report := newReport()
	plans := map[Direction]*plan{Put: newPlan(Put), Get: newPlan(Get)}
	for _, job := range jobs {
		plans[job.Direction].add(job)
	}

	var wg sync.WaitGroup
	for _, d := range []Direction{Put, Get} {
		p := plans[d]
		if len(p.items) == 0 {
			continue
		}
		wg.Add(1)
		go func(p *plan) {
			defer wg.Done()
			m.runPlan(ctx, p, report)
		}(p)
	}
	wg.Wait()

	report.seal()
	return report
}

type progressCounter struct {
	done, failed int
}

func (m *Manager) runPlan(ctx context.Context, p *plan, report *Report) {
	concurrency := m.concurrency[p.direction]
	chunks := p.chunks(m.chunkSize)
	m.l.Debug("starting transfers",
		zap.Stringer("direction", p.direction),
		zap.Int("items", len(p.items)),
		zap.Int("chunks", len(chunks)),
		zap.Int("workers", concurrency),
	)

	queue := make(chan []storage.Item, concurrency)
	var (
		wg      sync.WaitGroup
		counter progressCounter
	)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range queue {
				m.runChunk(ctx, p, chunk, report, &counter)
			}
		}()
	}

	dispatched := 0
dispatch:
	for _, chunk := range chunks {
		select {
		case <-ctx.Done():
			break dispatch
		case queue <- chunk:
			dispatched++
		}
	}
	close(queue)
	wg.Wait()

	for _, chunk := range chunks[dispatched:] {
		m.complete(p, chunk, failAll(chunk, ctx.Err()), report, &counter)
	}
}

func (m *Manager) runChunk(ctx context.Context, p *plan, chunk []storage.Item, report *Report, counter *progressCounter) {
	if err := ctx.Err(); err != nil {
		m.complete(p, chunk, failAll(chunk, err), report, counter)
		return
	}

	report.chunk(p.direction)
	var results storage.Results
	switch p.direction {
	case Put:
		results = m.store.Put(ctx, chunk)
	case Get:
		results = m.store.Get(ctx, chunk)
	}
	if len(results) != len(chunk) {
		m.l.Error("remote store returned an unexpected number of results",
			zap.Stringer("store", m.store), zap.Int("expected", len(chunk)), zap.Int("actual", len(results)))
		results = failAll(chunk, status.ErrTransfer.Wrapf("expected %d results, got %d", len(chunk), len(results)))
	}

	if p.direction == Get {
		for i, item := range chunk {
			if results[i].Err == nil {
				results[i].Err = copyOut(item, p.copies[item.Key])
			}
		}
	}
	m.complete(p, chunk, results, report, counter)
}

func (m *Manager) complete(p *plan, chunk []storage.Item, results storage.Results, report *Report, counter *progressCounter) {
	m.progressMu.Lock()
	defer m.progressMu.Unlock()

	for i, item := range chunk {
		err := results[i].Err
		report.record(item.Key, err)
		if err != nil {
			m.l.Debug("transfer failed", zap.Stringer("direction", p.direction), zap.Stringer("key", item.Key), zap.Error(err))
			counter.failed += p.weight[item.Key]
			continue
		}
		counter.done += p.weight[item.Key]
	}
	if m.progress != nil {
		m.progress(Event{Direction: p.direction, Done: counter.done, Failed: counter.failed, Total: p.total})
	}
}

// copyOut installs a downloaded file at other destinations expecting the same content
func copyOut(item storage.Item, destinations []string) error {
	for _, dest := range destinations {
		if dest == item.Path {
			continue
		}
		if err := copyFile(item, dest); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(item storage.Item, dest string) error {
	source, err := os.Open(item.Path)
	if err != nil {
		return err
	}
	defer func() {
		_ = source.Close()
	}()
	return shed.Install(dest, item.Key, source, shed.ReadOnlyMode)
}

func failAll(chunk []storage.Item, err error) storage.Results {
	results := make(storage.Results, len(chunk))
	for i, item := range chunk {
		results[i] = storage.Result{Key: item.Key, Err: err}
	}
	return results
}
