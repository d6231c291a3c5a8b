package models

import "time"

// WSFrame is the envelope for every message exchanged on a room channel.
type WSFrame struct {
	Type string      `json:"type"` // see the Type* constants below
	Data interface{} `json:"data,omitempty"`
}

// Message types carried in WSFrame.Type.
const (
	// client -> server
	TypeEdit            = "document:edit"
	TypeSave            = "document:save"
	TypeRequestSnapshot = "document:request-snapshot"

	// server -> client
	TypeSnapshot     = "document:snapshot"
	TypeUpdate       = "document:update"
	TypeSaveResult   = "document:save-result"
	TypeMemberJoined = "presence:member-joined"
	TypeMemberLeft   = "presence:member-left"
	TypeRoster       = "presence:roster"
	TypeError        = "error"
)

// Member identifies one live connection in a room. The ID is unique per
// connection; usernames are free-form and may collide.
type Member struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// DocState is the in-memory note content plus a per-room revision counter.
// The revision is diagnostic only; conflict resolution is last-writer-wins.
type DocState struct {
	Content  string `json:"content"`
	Revision int64  `json:"revision"`
}

// EditRequest is the payload of a document:edit frame. Edits are always a
// full-content replacement, never a diff.
type EditRequest struct {
	Content string `json:"content"`
}

// SaveResult is the payload of a document:save-result frame, delivered only
// to the member that requested the save.
type SaveResult struct {
	Success bool `json:"success"`
}

// Roster is the payload of a presence:roster frame, in join order.
type Roster struct {
	Members []Member `json:"members"`
}

// DocumentResponse is the REST shape of a persisted document.
type DocumentResponse struct {
	RoomID      string    `json:"roomId"`
	Content     string    `json:"content"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// ErrorMessage is the payload of an error frame, delivered only to the
// sender of the offending message.
type ErrorMessage struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
