// Copyright © 2018 One Concern

// Package status declares error constants returned by
// implementations of the Store interface.
//
// NOTE: such constants are located in a separate package to avoid
// creating undue cyclical dependencies between pkg/storage and one
// of its implementions.
package status

import "github.com/oneconcern/gitshed/pkg/errors"

var (
	// Sentinel errors returned by implementations of the interface defined by storage

	// ErrNotExists indicates that the fetched object does not exist on storage
	ErrNotExists = errors.New("object doesn't exist")

	// ErrNotFound indicates that the backend API call did not find the target resource
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates that you don't provided correct credentials to the API
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates that the backend API forbids access to the target resource
	ErrForbidden = errors.New("forbidden")

	// ErrNotSupported indicates that the backend API does not support this call
	ErrNotSupported = errors.New("not supported")

	// ErrInvalidResource indicates that the storage resource has an invalid name
	ErrInvalidResource = errors.New("invalid storage resource name")

	// ErrStorageAPI indicates any other storage API error
	ErrStorageAPI = errors.New("storage API error")

	// ErrTransfer indicates that the transport failed to move some content
	ErrTransfer = errors.New("transfer failed")

	// ErrTimeout indicates that a transfer exceeded the configured network timeout
	ErrTimeout = errors.New("transfer timed out")

	// ErrHealthCheck indicates that the store failed its round-trip check
	ErrHealthCheck = errors.New("content store health check failed")
)

var known = []error{
	ErrNotExists, ErrNotFound, ErrUnauthorized, ErrForbidden, ErrNotSupported,
	ErrInvalidResource, ErrStorageAPI, ErrTransfer, ErrTimeout, ErrHealthCheck,
}

// IsKnown tells if an error is already qualified by one of the sentinels of this package
func IsKnown(err error) bool {
	for _, sentinel := range known {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
