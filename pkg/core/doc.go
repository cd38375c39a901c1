// Copyright © 2018 One Concern

// Package core implements the gitshed operations on a repository.
//
// Large files are moved into the shed, a local cache of content blobs named by their content key,
// and replaced by relative symlinks which are committed to git. The content is uploaded to a
// remote store, so that other clones may fetch it.
//
// Operations never print: they return structured results, with per-path failures.
package core
