package cafs

import "github.com/oneconcern/gitshed/pkg/errors"

var (
	// ErrKeyDerivation is returned when the content to be keyed could not be read
	ErrKeyDerivation = errors.New("key derivation failed")

	// ErrInvalidKey is returned when parsing a string which is not a key
	ErrInvalidKey = errors.New("invalid content key")
)
