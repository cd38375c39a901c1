// Copyright © 2018 One Concern

// Package storage provides the interface to the remote content store of a gitshed repository.
//
// The remote store maps content keys to blobs. Transfers are batched: a Store
// receives a chunk of items and reports a result for each item, so that one failed
// item never fails its siblings.
//
// Most backends are simple object stores (ObjectStore) turned into a batch Store by Batch.
//
// This package supports the following backends:
//   - rsync over ssh for uploads, with plain HTTP downloads
//   - S3 (AWS)
//   - GCS (Google)
//   - local file system
package storage
