package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"notesync/internal/metrics"
	"notesync/internal/models"
	"notesync/internal/session"
	"notesync/internal/store"
	"notesync/internal/utils"
)

const storeTimeout = 10 * time.Second

type Handlers struct {
	log     *utils.Logger
	hub     *session.Hub
	store   store.Store
	workers *workerpool.WorkerPool
}

func NewHandlers(log *utils.Logger, st store.Store, maxWorkers int) *Handlers {
	return &Handlers{
		log:     log,
		hub:     session.NewHub(),
		store:   st,
		workers: workerpool.New(maxWorkers),
	}
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

func (h *Handlers) Ready(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ready"))
}

// GetDocument serves the persisted document for a room. It reads the store
// directly and never touches in-memory rooms, so it may return content older
// than what is live in an active room.
func (h *Handlers) GetDocument(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	doc, err := h.store.Load(ctx, roomID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{
			Code: "document_not_found", Message: "Document not found",
		})
	case errors.Is(err, store.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{
			Code: "store_unavailable", Message: "Document store unavailable",
		})
	case err != nil:
		h.log.Error("document fetch failed", "room", roomID, "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code: "internal_error", Message: "Failed to fetch document",
		})
	default:
		writeJSON(w, http.StatusOK, models.DocumentResponse{
			RoomID:      doc.RoomID,
			Content:     doc.Content,
			LastUpdated: doc.LastUpdated,
		})
	}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// RoomWS runs one room connection: handshake, join, message loop, teardown.
func (h *Handlers) RoomWS(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room_id")
	if roomID == "" {
		// Fatal handshake error: rejected before any state is created.
		writeJSON(w, http.StatusUnprocessableEntity, models.ErrorResponse{
			Code: "room_id_required", Message: "room_id query parameter is required",
		})
		return
	}
	username := r.URL.Query().Get("username")
	if username == "" {
		username = "anonymous"
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	client := session.NewClient(uuid.NewString(), username, conn)
	go client.WritePump()
	defer client.Close()

	room, created := h.hub.GetOrCreate(roomID)
	if created {
		metrics.RoomsActive.Inc()
		h.workers.Submit(func() { h.hydrate(room) })
	}

	metrics.ConnectionsActive.Inc()
	defer metrics.ConnectionsActive.Dec()

	room.Join(client)
	defer room.Leave(client.ID)

	h.log.Info("member joined", "room", roomID, "member", client.ID, "username", username)

	for {
		var frame models.WSFrame
		if err := conn.ReadJSON(&frame); err != nil {
			h.log.Info("member left", "room", roomID, "member", client.ID)
			return
		}

		switch frame.Type {
		case models.TypeEdit:
			var edit models.EditRequest
			if err := marshal(frame.Data, &edit); err != nil {
				// A malformed edit must never reach the room: a zero-value
				// payload would wipe the shared content for every member.
				client.Send(errFrame("invalid_payload"))
				continue
			}
			room.Edit(edit.Content, client.ID)

		case models.TypeSave:
			// Content is read when the save is processed, not captured here,
			// so edits racing ahead of the save are not lost.
			h.workers.Submit(func() { h.save(room, client) })

		case models.TypeRequestSnapshot:
			client.Send(models.WSFrame{Type: models.TypeSnapshot, Data: room.Doc()})

		default:
			client.Send(errFrame("unknown_type"))
		}
	}
}

// hydrate performs the one-time load of a room's persisted document. The
// store call runs outside any room lock; Hydrate discards the result if an
// edit won the race.
func (h *Handlers) hydrate(room *session.Room) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	doc, err := h.store.Load(ctx, room.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.HydrationsTotal.WithLabelValues("empty").Inc()
		} else {
			metrics.HydrationsTotal.WithLabelValues("error").Inc()
			h.log.Warn("hydration failed", "room", room.ID, "error", err.Error())
		}
		return
	}

	if room.Hydrate(doc.Content) {
		metrics.HydrationsTotal.WithLabelValues("applied").Inc()
	} else {
		metrics.HydrationsTotal.WithLabelValues("discarded").Inc()
	}
}

// save persists the room's current content and reports the outcome to the
// requester only. A failed save never rolls back in-memory content and is
// never surfaced to other members. The save runs to completion even if the
// requesting connection closes meanwhile.
func (h *Handlers) save(room *session.Room, requester *session.Client) {
	doc := room.Doc()

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	err := h.store.Save(ctx, room.ID, doc.Content, time.Now().UTC())
	if err != nil {
		metrics.SavesTotal.WithLabelValues("error").Inc()
		h.log.Error("save failed", "room", room.ID, "error", err.Error())
	} else {
		metrics.SavesTotal.WithLabelValues("ok").Inc()
	}

	requester.Send(models.WSFrame{
		Type: models.TypeSaveResult,
		Data: models.SaveResult{Success: err == nil},
	})
}

func marshal(in any, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func errFrame(msg string) models.WSFrame {
	return models.WSFrame{Type: models.TypeError, Data: models.ErrorMessage{Message: msg}}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
