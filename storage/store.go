// Package storage provides the key-value snapshot store backing the portal.
// File: storage/store.go
package storage

import (
	"errors"
	"strings"
)

// ErrKeyNotFound is returned when a key has no stored snapshot.
var ErrKeyNotFound = errors.New("storage: key not found")

// Logical storage keys. Each holds one JSON snapshot of the corresponding
// collection.
const (
	KeyAccounts  = "accounts-table"
	KeySession   = "current-session"
	KeySchedules = "schedules-table"
	KeyReports   = "submitted-reports-list"
	KeyDraft     = "draft-report-slot"
	KeyTheme     = "theme-preference"
	KeyLanguage  = "language-preference"
)

// DraftKey derives the draft slot key for one owner, so concurrent users
// never share or overwrite each other's drafts. The owner email is folded
// into the key charset; an empty owner falls back to the shared slot.
func DraftKey(owner string) string {
	if owner == "" {
		return KeyDraft
	}
	var b strings.Builder
	for _, r := range strings.ToLower(owner) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	return KeyDraft + "-" + b.String()
}

// Store is a last-write-wins key-value snapshot store.
//
// There are no transactions and no multi-writer coordination: concurrent
// writers to the same key race and the last write wins. The portal assumes a
// single writer process in the common case; callers must not rely on any
// stronger guarantee.
type Store interface {
	// Read unmarshals the snapshot stored under key into v.
	// Returns ErrKeyNotFound if the key has never been written.
	Read(key string, v interface{}) error

	// Write replaces the snapshot stored under key with the JSON encoding of v.
	Write(key string, v interface{}) error

	// Delete removes the snapshot under key. Deleting a missing key is a no-op.
	Delete(key string) error

	// Keys lists the keys that currently hold a snapshot.
	Keys() ([]string, error)
}
