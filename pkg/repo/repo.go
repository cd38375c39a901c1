// Package repo locates the git repository gitshed works in, and resolves user paths against it.
package repo

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/oneconcern/gitshed/pkg/errors"
)

var (
	// ErrNotARepo indicates that no git repository could be found
	ErrNotARepo = errors.New("not a git repository")

	// ErrOutsideRepo indicates that a path does not belong to the repository
	ErrOutsideRepo = errors.New("path is outside the repository")
)

// Repo is the working tree of a git repository
type Repo struct {
	root string
}

// Find the repository containing dir, looking up parent directories
func Find(dir string) (*Repo, error) {
	r, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, ErrNotARepo.Wrapf("%s: %v", dir, err)
	}
	wt, err := r.Worktree()
	if err != nil {
		return nil, ErrNotARepo.Wrapf("%s: %v", dir, err)
	}
	return Open(wt.Filesystem.Root())
}

// Open a repository at a known root
func Open(root string) (*Repo, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, ErrNotARepo.Wrap(err)
	}
	return &Repo{root: resolved}, nil
}

// Root of the working tree
func (r *Repo) Root() string {
	return r.root
}

// Abs resolves a path given by a user to an absolute path inside the repository.
//
// The last element of the path is never resolved, since it may be a pointer.
func (r *Repo) Abs(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	dir, base := filepath.Split(abs)
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		abs = filepath.Join(resolved, base)
	}
	if !r.contains(abs) {
		return "", ErrOutsideRepo.Wrapf("%s", path)
	}
	return abs, nil
}

// Rel returns a path relative to the repository root
func (r *Repo) Rel(path string) (string, error) {
	abs, err := r.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Rel(r.root, abs)
}

func (r *Repo) contains(abs string) bool {
	return abs == r.root || strings.HasPrefix(abs, r.root+string(os.PathSeparator))
}

// IsIgnored tells if a repository path would be ignored by git.
//
// Patterns are read from every .gitignore in the working tree, .git/info/exclude
// and the user's global excludes file.
func (r *Repo) IsIgnored(rel string, isDir bool) (bool, error) {
	fs := osfs.New(r.root)
	patterns, err := gitignore.ReadPatterns(fs, nil)
	if err != nil {
		return false, err
	}
	global, err := gitignore.LoadGlobalPatterns(osfs.New("/"))
	if err == nil {
		patterns = append(global, patterns...)
	}
	parts := strings.Split(filepath.ToSlash(filepath.Clean(rel)), "/")
	return gitignore.NewMatcher(patterns).Match(parts, isDir), nil
}
