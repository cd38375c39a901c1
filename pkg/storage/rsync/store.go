// Package rsync implements the reference remote content store.
//
// Uploads mirror whole chunks of files to <host>:<root_path> with one rsync invocation over ssh,
// which amortizes connection setup over many small files. Downloads stream each object over
// plain HTTP from <root_url>, which serves the same tree as <root_path>.
package rsync

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alessio/shellescape"
	"github.com/oneconcern/gitshed/pkg/cafs"
	"github.com/oneconcern/gitshed/pkg/storage"
	"github.com/oneconcern/gitshed/pkg/storage/status"
	"go.uber.org/zap"
)

const rsyncCommand = "rsync"

// New creates the object store for a remote host.
func New(host, rootPath, rootURL string, opts ...Option) (storage.ObjectStore, error) {
	if host == "" || rootPath == "" || rootURL == "" {
		return nil, status.ErrInvalidResource.Wrapf("rsync store requires a host, a root path and a root url")
	}
	base, err := url.Parse(rootURL)
	if err != nil {
		return nil, status.ErrInvalidResource.Wrap(err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, status.ErrInvalidResource.Wrapf("unsupported root url scheme %q", base.Scheme)
	}

	r := &rsyncStore{
		host:     host,
		rootPath: rootPath,
		rootURL:  base,
		timeout:  storage.DefaultTimeout,
		client:   http.DefaultClient,
		run:      execRunner,
		l:        zap.NewNop(),
	}
	for _, apply := range opts {
		apply(r)
	}
	return r, nil
}

// NewStore creates the batch content store for a remote host
func NewStore(host, rootPath, rootURL string, opts ...Option) (storage.Store, error) {
	objects, err := New(host, rootPath, rootURL, opts...)
	if err != nil {
		return nil, err
	}
	r := objects.(*rsyncStore)
	return storage.Batch(r, storage.Timeout(r.timeout), storage.BatchLogger(r.l)), nil
}

type rsyncStore struct {
	host     string
	rootPath string
	rootURL  *url.URL
	timeout  time.Duration
	sudo     bool
	client   *http.Client
	run      Runner
	l        *zap.Logger
}

func (r *rsyncStore) String() string {
	return "rsync://" + r.host + ":" + r.rootPath
}

func (r *rsyncStore) objectURL(name string) string {
	u := *r.rootURL
	u.Path = path.Join("/", r.rootURL.Path, name)
	return u.String()
}

func (r *rsyncStore) Has(ctx context.Context, name string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, r.objectURL(name), nil)
	if err != nil {
		return false, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return false, err
	}
	_ = resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, httpError(resp)
	}
}

func (r *rsyncStore) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.objectURL(name), nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, httpError(resp)
	}
	return resp.Body, nil
}

func httpError(resp *http.Response) error {
	msg := fmt.Sprintf("%s %s: %s", resp.Request.Method, resp.Request.URL, resp.Status)
	switch resp.StatusCode {
	case http.StatusNotFound:
		return status.ErrNotExists.Wrapf("%s", msg)
	case http.StatusUnauthorized:
		return status.ErrUnauthorized.Wrapf("%s", msg)
	case http.StatusForbidden:
		return status.ErrForbidden.Wrapf("%s", msg)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return status.ErrTimeout.Wrapf("%s", msg)
	default:
		return status.ErrStorageAPI.Wrapf("%s", msg)
	}
}

// Put uploads a single named object
func (r *rsyncStore) Put(ctx context.Context, name string, source io.Reader) error {
	stage, err := os.MkdirTemp("", "gitshed.")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.RemoveAll(stage)
	}()

	staged := filepath.Join(stage, path.Base(name))
	f, err := os.Create(staged)
	if err != nil {
		return err
	}
	if _, err = io.Copy(f, source); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return r.rsync(ctx, path.Dir(name), []string{staged})
}

func (r *rsyncStore) Delete(context.Context, string) error {
	return status.ErrNotSupported.Wrapf("content is never deleted from %v", r)
}

// PutFiles uploads a chunk of files with a single rsync invocation.
//
// Files are hard linked (or copied) into a staging folder under their key, then mirrored to
// the content folder of the remote root. If rsync fails, every item is checked over HTTP so
// that only the items which did not make it are reported as failed.
func (r *rsyncStore) PutFiles(ctx context.Context, items []storage.Item) storage.Results {
	results := make(storage.Results, len(items))
	for i, item := range items {
		results[i].Key = item.Key
	}
	if len(items) == 0 {
		return results
	}

	stage, err := os.MkdirTemp("", "gitshed.")
	if err != nil {
		return failAll(results, status.ErrTransfer.Wrap(err))
	}
	defer func() {
		_ = os.RemoveAll(stage)
	}()

	staged := make([]string, 0, len(items))
	first := make(map[cafs.Key]int, len(items))
	for i, item := range items {
		if _, dup := first[item.Key]; dup {
			continue
		}
		first[item.Key] = i
		if err := linkOrCopy(item.Path, filepath.Join(stage, item.Key.String())); err != nil {
			results[i].Err = err
			continue
		}
		staged = append(staged, filepath.Join(stage, item.Key.String()))
	}

	if len(staged) > 0 {
		if err = r.rsync(ctx, storage.ContentPrefix, staged); err != nil {
			r.l.Warn("rsync chunk failed, checking items one by one", zap.Int("items", len(staged)), zap.Error(err))
			r.recover(ctx, items, first, results, err)
		}
	}

	// the same content appearing twice in a chunk shares the fate of its first occurrence
	for i, item := range items {
		if j := first[item.Key]; j != i {
			results[i].Err = results[j].Err
		}
	}
	return results
}

// recover checks which items of a failed chunk actually made it to the remote store
func (r *rsyncStore) recover(ctx context.Context, items []storage.Item, first map[cafs.Key]int, results storage.Results, cause error) {
	for _, i := range first {
		if results[i].Err != nil {
			continue
		}
		hctx, cancel := context.WithTimeout(ctx, r.timeout)
		has, err := r.Has(hctx, storage.ContentPath(items[i].Key))
		cancel()
		if err == nil && has {
			continue
		}
		results[i].Err = cause
	}
}

func failAll(results storage.Results, err error) storage.Results {
	for i := range results {
		results[i].Err = err
	}
	return results
}

func linkOrCopy(src, dst string) error {
	if err := os.Link(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// rsync mirrors local files into a folder relative to the remote root
func (r *rsyncStore) rsync(ctx context.Context, folder string, files []string) error {
	remoteDir := path.Join(r.rootPath, folder)
	args := r.args(remoteDir, files)

	r.l.Debug("running rsync", zap.String("host", r.host), zap.String("dir", remoteDir), zap.Int("files", len(files)))
	out, err := r.run(ctx, rsyncCommand, args...)
	if err == nil {
		return nil
	}

	msg := strings.TrimSpace(string(out))
	if code, ok := exitCode(err); ok && (code == exitTimeoutIO || code == exitTimeoutDaemon) {
		return status.ErrTimeout.Wrapf("rsync to %s:%s: %v: %s", r.host, remoteDir, err, msg)
	}
	if ctx.Err() != nil {
		return storage.Classify(ctx, ctx.Err())
	}
	return status.ErrTransfer.Wrapf("rsync to %s:%s: %v: %s", r.host, remoteDir, err, msg)
}

func (r *rsyncStore) args(remoteDir string, files []string) []string {
	// rsync does an atomic rename at the end of each file transfer.
	// The remote shell always evaluates --rsync-path, so the folder is quoted there.
	remoteRsync := "mkdir -p " + shellescape.Quote(remoteDir) + " && rsync"
	if r.sudo {
		remoteRsync = "sudo mkdir -p " + shellescape.Quote(remoteDir) + " && sudo rsync"
	}
	args := []string{
		"-acz",
		// file names travel over the rsync protocol, not through the remote shell
		"--protect-args",
		"--timeout=" + strconv.Itoa(int(r.timeout.Round(time.Second)/time.Second)),
		"--rsync-path=" + remoteRsync,
	}
	args = append(args, files...)
	return append(args, r.host+":"+remoteDir+"/")
}
