// Copyright © 2018 One Concern

package storage

import (
	"context"
	"io"
	"path"

	"github.com/oneconcern/gitshed/pkg/cafs"
)

// ContentPrefix is the folder holding content on the remote side.
//
// NOTE: changing the layout of remote objects severs the association of pointers to their content.
const ContentPrefix = "content_store"

// ContentPath returns the name of the remote object holding the content for a key
func ContentPath(key cafs.Key) string {
	return path.Join(ContentPrefix, key.String())
}

// Item is a unit of transfer: some content key and a local file.
//
// For uploads, Path is the file to read. For downloads, Path is the destination, which is
// written atomically.
type Item struct {
	Key  cafs.Key
	Path string
}

// Result of the transfer of an item. Err is nil on success.
type Result struct {
	Key cafs.Key
	Err error
}

// Results of a batch, in the order of the items submitted
type Results []Result

// Failed returns the results with an error
func (r Results) Failed() Results {
	failed := make(Results, 0, len(r))
	for _, res := range r {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Store knows how to transfer batches of content to and from a remote location.
//
// Implementations must return exactly one result per item and must be safe for concurrent use.
// Puts must be idempotent: putting the same key twice leaves the store unchanged.
type Store interface {
	String() string
	Put(context.Context, []Item) Results
	Get(context.Context, []Item) Results
	HealthCheck(context.Context) error
}

// ObjectStore implementations know how to read and write named objects.
//
// Typically this is something file system-like. Examples are S3, local FS, NFS, ...
// Implementations of this interface are assumed to be fairly simple.
type ObjectStore interface {
	String() string
	Has(context.Context, string) (bool, error)
	Get(context.Context, string) (io.ReadCloser, error)
	Put(context.Context, string, io.Reader) error
	Delete(context.Context, string) error
}

// BulkPutter is implemented by object stores which upload many files in a single invocation
// more efficiently than one at a time.
type BulkPutter interface {
	PutFiles(context.Context, []Item) Results
}
