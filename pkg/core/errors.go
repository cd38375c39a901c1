package core

import "github.com/oneconcern/gitshed/pkg/errors"

var (
	// ErrContentUnavailable indicates that a pointer's content is not in the shed
	ErrContentUnavailable = errors.New("content is not available locally: sync first")

	// ErrNotManaged indicates that a path is not a pointer into the shed
	ErrNotManaged = errors.New("path is not managed by gitshed")

	// ErrUnmanagedSymlink indicates that a path is a symlink which does not point into the shed
	ErrUnmanagedSymlink = errors.New("path is an unmanaged symlink")

	// ErrIsDirectory indicates that a path is a directory where a file was expected
	ErrIsDirectory = errors.New("path is a directory")

	// ErrNotRegular indicates that a path is neither a regular file nor a symlink
	ErrNotRegular = errors.New("path is not a regular file")

	// ErrNotFound indicates that a path does not exist
	ErrNotFound = errors.New("file not found")

	// ErrReservedPath indicates a path inside the gitshed directory
	ErrReservedPath = errors.New("path is reserved to gitshed")
)
