package routers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"notesync/internal/api"
	"notesync/internal/store"
	"notesync/internal/utils"
)

func New(log *utils.Logger, st store.Store, maxWorkers int) http.Handler {
	h := api.NewHandlers(log, st, maxWorkers)
	r := chi.NewRouter()

	r.Get("/api/v1/healthz", h.Health)
	r.Get("/api/v1/readyz", h.Ready)
	r.Get("/api/v1/documents/{roomID}", h.GetDocument)

	r.Get("/ws/room", h.RoomWS)

	return r
}
