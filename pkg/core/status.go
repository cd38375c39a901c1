package core

import (
	"context"
	"os"

	"github.com/oneconcern/gitshed/pkg/cafs"
	"github.com/oneconcern/gitshed/pkg/pointer"
)

// Status counts the pointers of a repository
type Status struct {
	Total    int `json:"total" yaml:"total"`
	Synced   int `json:"synced" yaml:"synced"`
	Unsynced int `json:"unsynced" yaml:"unsynced"`
	// Bytes held in the shed by synced pointers, shared content counted once
	Bytes int64 `json:"bytes" yaml:"bytes"`
}

// Status of the repository
func (g *GitShed) Status(ctx context.Context) (Status, error) {
	var st Status
	sized := make(map[cafs.Key]struct{})
	err := g.resolver.Scan(ctx, nil, func(p pointer.Pointer) error {
		st.Total++
		if p.State != pointer.Synced {
			st.Unsynced++
			return nil
		}
		st.Synced++
		if _, done := sized[p.Key]; !done {
			sized[p.Key] = struct{}{}
			if info, err := os.Stat(g.shed.PathFor(p.Key)); err == nil {
				st.Bytes += info.Size()
			}
		}
		return nil
	})
	return st, err
}

// ListSynced lists the synced pointers, sorted by path
func (g *GitShed) ListSynced(ctx context.Context) ([]string, error) {
	return g.list(ctx, pointer.Synced)
}

// ListUnsynced lists the unsynced pointers, sorted by path
func (g *GitShed) ListUnsynced(ctx context.Context) ([]string, error) {
	return g.list(ctx, pointer.Unsynced)
}

func (g *GitShed) list(ctx context.Context, state pointer.State) ([]string, error) {
	pointers, err := g.resolver.All(ctx, nil)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(pointers))
	for _, p := range pointers {
		if p.State == state {
			paths = append(paths, p.RelPath)
		}
	}
	return paths, nil
}
