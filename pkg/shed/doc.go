// Copyright © 2018 One Concern

// Package shed manages the local content-addressed cache of a gitshed repository.
//
// Entries live at <root>/<key>. An entry is never modified once written: it is
// created through a temporary file renamed into place, so that readers never
// observe partial content and concurrent writers of the same key are harmless.
// Entries are made read-only.
package shed
