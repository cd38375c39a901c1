package shed

import "github.com/oneconcern/gitshed/pkg/errors"

var (
	// ErrShedWrite indicates that an entry could not be written to the local shed
	ErrShedWrite = errors.New("shed write failed")

	// ErrChecksum indicates that some content does not match the key it was stored under
	ErrChecksum = errors.New("content does not match its key")

	// ErrNotInShed indicates that the shed has no entry for a key
	ErrNotInShed = errors.New("no such entry in shed")
)
