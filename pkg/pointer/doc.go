// Package pointer finds and classifies the symlinks which stand for managed files in a repository.
//
// A pointer is a relative symlink into the shed whose base name is a content key.
// Its state is derived from the file system alone:
//
//	Unmanaged: not a symlink into the shed, or no file at all
//	Synced:    the shed entry the pointer links to exists
//	Unsynced:  the pointer dangles
package pointer
