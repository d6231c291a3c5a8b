package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"notesync/internal/models"
	"notesync/internal/store"
	"notesync/internal/utils"
)

func newTestServer(t *testing.T, st store.Store) *httptest.Server {
	t.Helper()
	h := NewHandlers(utils.NewNopLogger(), st, 4)

	r := chi.NewRouter()
	r.Get("/api/v1/documents/{roomID}", h.GetDocument)
	r.Get("/ws/room", h.RoomWS)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func dialRoom(t *testing.T, server *httptest.Server, roomID, username string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/room?room_id=" + roomID
	if username != "" {
		wsURL += "&username=" + username
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) models.WSFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame models.WSFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

func decodeData(t *testing.T, frame models.WSFrame, out any) {
	t.Helper()
	b, err := json.Marshal(frame.Data)
	if err != nil {
		t.Fatalf("marshal frame data: %v", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		t.Fatalf("unmarshal frame data: %v", err)
	}
}

func expectSnapshot(t *testing.T, conn *websocket.Conn) models.DocState {
	t.Helper()
	frame := readFrame(t, conn)
	if frame.Type != models.TypeSnapshot {
		t.Fatalf("expected %s, got %s", models.TypeSnapshot, frame.Type)
	}
	var doc models.DocState
	decodeData(t, frame, &doc)
	return doc
}

func expectRoster(t *testing.T, conn *websocket.Conn) []string {
	t.Helper()
	frame := readFrame(t, conn)
	if frame.Type != models.TypeRoster {
		t.Fatalf("expected %s, got %s", models.TypeRoster, frame.Type)
	}
	var roster models.Roster
	decodeData(t, frame, &roster)
	names := make([]string, len(roster.Members))
	for i, m := range roster.Members {
		names[i] = m.Username
	}
	return names
}

func sendFrame(t *testing.T, conn *websocket.Conn, frame models.WSFrame) {
	t.Helper()
	if err := conn.WriteJSON(frame); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func TestRoomWSMissingRoomID(t *testing.T) {
	server := newTestServer(t, store.NewMemoryStore())

	resp, err := http.Get(server.URL + "/ws/room")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	var body models.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Code != "room_id_required" {
		t.Fatalf("unexpected error code %q", body.Code)
	}
}

func TestRoomWSDefaultUsername(t *testing.T) {
	server := newTestServer(t, store.NewMemoryStore())

	conn := dialRoom(t, server, "r-default", "")
	expectSnapshot(t, conn)
	names := expectRoster(t, conn)
	if len(names) != 1 || names[0] != "anonymous" {
		t.Fatalf("expected anonymous placeholder, got %v", names)
	}
}

func TestRoomWSUnknownFrameType(t *testing.T) {
	server := newTestServer(t, store.NewMemoryStore())

	conn := dialRoom(t, server, "r-unknown", "alice")
	expectSnapshot(t, conn)
	expectRoster(t, conn)

	sendFrame(t, conn, models.WSFrame{Type: "bogus"})

	frame := readFrame(t, conn)
	if frame.Type != models.TypeError {
		t.Fatalf("expected error frame, got %s", frame.Type)
	}
	var msg models.ErrorMessage
	decodeData(t, frame, &msg)
	if msg.Message != "unknown_type" {
		t.Fatalf("unexpected error payload: %#v", frame.Data)
	}
}

func TestRoomWSMalformedEditRejected(t *testing.T) {
	server := newTestServer(t, store.NewMemoryStore())

	conn := dialRoom(t, server, "r-malformed", "alice")
	expectSnapshot(t, conn)
	expectRoster(t, conn)

	sendFrame(t, conn, models.WSFrame{
		Type: models.TypeEdit,
		Data: models.EditRequest{Content: "precious"},
	})

	// An edit whose data is not an edit object must be rejected with an
	// error frame, not applied as a zero-value content wipe.
	sendFrame(t, conn, models.WSFrame{Type: models.TypeEdit, Data: 42})

	frame := readFrame(t, conn)
	if frame.Type != models.TypeError {
		t.Fatalf("expected error frame, got %s", frame.Type)
	}
	var msg models.ErrorMessage
	decodeData(t, frame, &msg)
	if msg.Message != "invalid_payload" {
		t.Fatalf("unexpected error payload: %#v", frame.Data)
	}

	sendFrame(t, conn, models.WSFrame{Type: models.TypeRequestSnapshot})
	doc := expectSnapshot(t, conn)
	if doc.Content != "precious" || doc.Revision != 1 {
		t.Fatalf("malformed edit must not change the document, got %#v", doc)
	}
}

func TestRoomWSRequestSnapshot(t *testing.T) {
	server := newTestServer(t, store.NewMemoryStore())

	conn := dialRoom(t, server, "r-snap", "alice")
	expectSnapshot(t, conn)
	expectRoster(t, conn)

	sendFrame(t, conn, models.WSFrame{
		Type: models.TypeEdit,
		Data: models.EditRequest{Content: "draft"},
	})
	sendFrame(t, conn, models.WSFrame{Type: models.TypeRequestSnapshot})

	doc := expectSnapshot(t, conn)
	if doc.Content != "draft" || doc.Revision != 1 {
		t.Fatalf("unexpected snapshot: %#v", doc)
	}
}

// TestRoomScenario walks the full collaboration flow: two members, presence
// on both sides, an edit delivered only to the peer, a save, a disconnect.
func TestRoomScenario(t *testing.T) {
	st := store.NewMemoryStore()
	server := newTestServer(t, st)

	alice := dialRoom(t, server, "r1", "alice")
	if doc := expectSnapshot(t, alice); doc.Content != "" {
		t.Fatalf("expected empty snapshot, got %q", doc.Content)
	}
	if names := expectRoster(t, alice); len(names) != 1 || names[0] != "alice" {
		t.Fatalf("unexpected roster for alice: %v", names)
	}

	bob := dialRoom(t, server, "r1", "bob")
	if doc := expectSnapshot(t, bob); doc.Content != "" {
		t.Fatalf("expected empty snapshot for bob, got %q", doc.Content)
	}
	if names := expectRoster(t, bob); len(names) != 2 || names[0] != "alice" || names[1] != "bob" {
		t.Fatalf("unexpected roster for bob: %v", names)
	}

	frame := readFrame(t, alice)
	if frame.Type != models.TypeMemberJoined {
		t.Fatalf("expected member-joined for alice, got %s", frame.Type)
	}
	var joined models.Member
	decodeData(t, frame, &joined)
	if joined.Username != "bob" {
		t.Fatalf("expected bob joined, got %#v", joined)
	}
	if names := expectRoster(t, alice); len(names) != 2 {
		t.Fatalf("unexpected roster for alice: %v", names)
	}

	// Alice edits; only bob sees the update.
	sendFrame(t, alice, models.WSFrame{
		Type: models.TypeEdit,
		Data: models.EditRequest{Content: "hello"},
	})
	frame = readFrame(t, bob)
	if frame.Type != models.TypeUpdate {
		t.Fatalf("expected update for bob, got %s", frame.Type)
	}
	var doc models.DocState
	decodeData(t, frame, &doc)
	if doc.Content != "hello" {
		t.Fatalf("unexpected update content %q", doc.Content)
	}

	// Bob saves; the persisted copy matches the live content and only bob
	// gets the acknowledgment.
	sendFrame(t, bob, models.WSFrame{Type: models.TypeSave})
	frame = readFrame(t, bob)
	if frame.Type != models.TypeSaveResult {
		t.Fatalf("expected save-result for bob, got %s", frame.Type)
	}
	var result models.SaveResult
	decodeData(t, frame, &result)
	if !result.Success {
		t.Fatalf("expected successful save")
	}
	saved, err := st.Load(context.Background(), "r1")
	if err != nil {
		t.Fatalf("load persisted document: %v", err)
	}
	if saved.Content != "hello" {
		t.Fatalf("persisted content %q, want %q", saved.Content, "hello")
	}

	// Bob edits; alice's next frame is bob's update, proving she never
	// received an echo of her own edit or bob's save acknowledgment.
	sendFrame(t, bob, models.WSFrame{
		Type: models.TypeEdit,
		Data: models.EditRequest{Content: "world"},
	})
	frame = readFrame(t, alice)
	if frame.Type != models.TypeUpdate {
		t.Fatalf("expected update for alice, got %s", frame.Type)
	}
	decodeData(t, frame, &doc)
	if doc.Content != "world" {
		t.Fatalf("unexpected update content %q", doc.Content)
	}

	// Alice disconnects; bob sees the departure and the shrunken roster.
	alice.Close()
	frame = readFrame(t, bob)
	if frame.Type != models.TypeMemberLeft {
		t.Fatalf("expected member-left for bob, got %s", frame.Type)
	}
	var left models.Member
	decodeData(t, frame, &left)
	if left.Username != "alice" {
		t.Fatalf("expected alice left, got %#v", left)
	}
	if names := expectRoster(t, bob); len(names) != 1 || names[0] != "bob" {
		t.Fatalf("unexpected final roster: %v", names)
	}
}

func TestRoomWSHydratesStoredDocument(t *testing.T) {
	st := store.NewMemoryStore()
	if err := st.Save(context.Background(), "r-hydrate", "stored", time.Now()); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	server := newTestServer(t, st)

	conn := dialRoom(t, server, "r-hydrate", "alice")

	// The join snapshot races the hydration: either the snapshot already
	// carries the stored content, or an update with it follows.
	doc := expectSnapshot(t, conn)
	expectRoster(t, conn)
	if doc.Content != "stored" {
		frame := readFrame(t, conn)
		if frame.Type != models.TypeUpdate {
			t.Fatalf("expected hydration update, got %s", frame.Type)
		}
		decodeData(t, frame, &doc)
	}
	if doc.Content != "stored" {
		t.Fatalf("expected stored content, got %q", doc.Content)
	}
}

func TestSaveFailureReportedToRequesterOnly(t *testing.T) {
	server := newTestServer(t, store.Unavailable{})

	alice := dialRoom(t, server, "r-fail", "alice")
	expectSnapshot(t, alice)
	expectRoster(t, alice)

	sendFrame(t, alice, models.WSFrame{
		Type: models.TypeEdit,
		Data: models.EditRequest{Content: "unsaved"},
	})
	sendFrame(t, alice, models.WSFrame{Type: models.TypeSave})

	frame := readFrame(t, alice)
	if frame.Type != models.TypeSaveResult {
		t.Fatalf("expected save-result, got %s", frame.Type)
	}
	var result models.SaveResult
	decodeData(t, frame, &result)
	if result.Success {
		t.Fatalf("expected failed save with unavailable store")
	}

	// The room keeps working without persistence: a new member still joins
	// and receives the live, unrolled-back content.
	bob := dialRoom(t, server, "r-fail", "bob")
	if doc := expectSnapshot(t, bob); doc.Content != "unsaved" {
		t.Fatalf("in-memory content must survive a failed save, got %q", doc.Content)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	server := newTestServer(t, store.NewMemoryStore())

	resp, err := http.Get(server.URL + "/api/v1/documents/nope")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	var body models.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Code != "document_not_found" {
		t.Fatalf("unexpected error code %q", body.Code)
	}
}

func TestGetDocumentReturnsPersisted(t *testing.T) {
	st := store.NewMemoryStore()
	ts := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	if err := st.Save(context.Background(), "r1", "hello", ts); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	server := newTestServer(t, st)

	resp, err := http.Get(server.URL + "/api/v1/documents/r1")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body models.DocumentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.RoomID != "r1" || body.Content != "hello" || !body.LastUpdated.Equal(ts) {
		t.Fatalf("unexpected document: %#v", body)
	}
}

func TestGetDocumentStoreUnavailable(t *testing.T) {
	server := newTestServer(t, store.Unavailable{})

	resp, err := http.Get(server.URL + "/api/v1/documents/r1")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}
