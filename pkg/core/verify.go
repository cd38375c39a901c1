package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/oneconcern/gitshed/pkg/cafs"
	"github.com/oneconcern/gitshed/pkg/errors"
	"github.com/oneconcern/gitshed/pkg/pointer"
	"go.uber.org/multierr"
)

// ErrSetup indicates that the repository is not properly set up for gitshed
var ErrSetup = errors.New("gitshed setup is incomplete")

// Diagnostics of a repository setup
type Diagnostics struct {
	// ShedIgnored tells if git ignores the shed
	ShedIgnored bool `json:"shedIgnored" yaml:"shedIgnored"`
	// ShedExists tells if the shed directory exists
	ShedExists bool `json:"shedExists" yaml:"shedExists"`
	// Remote is the result of the remote store health check
	Remote error `json:"-" yaml:"-"`
	// Checked is the number of shed entries verified
	Checked int `json:"checked" yaml:"checked"`
	// Corrupt shed entries, by key
	Corrupt map[cafs.Key]error `json:"-" yaml:"-"`
}

// Err summarizes the problems found
func (d *Diagnostics) Err() error {
	var err error
	if !d.ShedExists {
		err = multierr.Append(err, ErrSetup.Wrapf("shed directory %s does not exist", ShedRelPath))
	}
	if !d.ShedIgnored {
		err = multierr.Append(err, ErrSetup.Wrapf("%s is not ignored by git", ShedRelPath))
	}
	if d.Remote != nil {
		err = multierr.Append(err, d.Remote)
	}

	keys := make([]cafs.Key, 0, len(d.Corrupt))
	for key := range d.Corrupt {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, key := range keys {
		err = multierr.Append(err, fmt.Errorf("shed entry %v is corrupt, resync it: %w", key, d.Corrupt[key]))
	}
	return err
}

// Verify that the repository is set up for gitshed: the shed exists and is ignored by git, the
// remote store works from this client, and the content of synced pointers is intact.
func (g *GitShed) Verify(ctx context.Context) (*Diagnostics, error) {
	d := &Diagnostics{Corrupt: make(map[cafs.Key]error)}

	info, err := os.Stat(g.shed.Root())
	d.ShedExists = err == nil && info.IsDir()

	if d.ShedIgnored, err = g.repo.IsIgnored(ShedRelPath, true); err != nil {
		return nil, err
	}

	d.Remote = g.remote.HealthCheck(ctx)

	checked := make(map[cafs.Key]struct{})
	err = g.resolver.Scan(ctx, nil, func(p pointer.Pointer) error {
		if p.State != pointer.Synced {
			return nil
		}
		if _, done := checked[p.Key]; done {
			return nil
		}
		checked[p.Key] = struct{}{}
		if verr := g.shed.Verify(p.Key); verr != nil {
			d.Corrupt[p.Key] = verr
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	d.Checked = len(checked)
	return d, nil
}

// IgnoreShed adds the shed to the .gitignore file at the root of the repository
func (g *GitShed) IgnoreShed() error {
	ignored, err := g.repo.IsIgnored(ShedRelPath, true)
	if err != nil || ignored {
		return err
	}
	f, err := os.OpenFile(filepath.Join(g.Root(), ".gitignore"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err = fmt.Fprintf(f, "\n/%s/\n", filepath.ToSlash(ShedRelPath)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
