// Package cafs derives content keys for a content-addressable file store.
//
// A key is the git blob object id of the content, i.e. the sha1 of
// "blob <size>\x00" followed by the content bytes. Using git's own object id
// makes keys verifiable with "git hash-object".
//
// Keys are derived by streaming the content, so arbitrarily large files
// are keyed with a bounded amount of memory.
package cafs
