// Package store persists one note document per room id with upsert,
// full-replacement semantics. The persisted copy may lag the live in-memory
// content between saves; in-memory state is always the source of truth.
package store

import (
	"context"
	"errors"
	"time"
)

// Document is the persisted form of a room's note.
type Document struct {
	RoomID      string    `bson:"room_id"`
	Content     string    `bson:"content"`
	LastUpdated time.Time `bson:"last_updated"`
}

var (
	// ErrNotFound is returned by Load when no document was ever saved for
	// the room id.
	ErrNotFound = errors.New("document not found")

	// ErrUnavailable is returned when no persistence backend is reachable.
	ErrUnavailable = errors.New("document store unavailable")
)

// Store is the persistence boundary for room documents. Save fully replaces
// any prior content for the room id (creating it if absent) and is safe to
// call concurrently; for concurrent saves of the same id the store keeps
// whichever write lands last.
type Store interface {
	Load(ctx context.Context, roomID string) (*Document, error)
	Save(ctx context.Context, roomID, content string, ts time.Time) error
}
