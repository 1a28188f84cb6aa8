// Package session holds per-user conversion state in memory.
//
// Invariants:
// - Exactly one Session exists per user id for the lifetime of a Store.
// - Sessions are created lazily and never evicted; nothing is persisted.
// - Pending inputs and pending PDFs are tracked by two independent ledgers.
// - The Janitor never deletes a file owned by a live ledger.
//
// Usage:
//
//	store := session.NewStore()
//	s := store.Get(userID)
//	s.Inputs().Add(downloadedPath)
//	_ = s.Compression()
package session
