package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/dukerupert/ems/internal/controller"
	"github.com/dukerupert/ems/internal/handler"
	"github.com/dukerupert/ems/internal/middleware"
	"github.com/dukerupert/ems/internal/ui"
	ws "github.com/dukerupert/ems/internal/websocket"
)

// Desk serves the events page controller over HTTP and streams its state
// on /ws.
type Desk struct {
	deskH          *handler.DeskHandler
	hub            *ws.Hub
	corsOrigin     string
	originPatterns []string
	logger         *slog.Logger
}

func NewDesk(ctrl *controller.Controller, bus *ui.Bus, hub *ws.Hub, corsOrigin string, logger *slog.Logger) *Desk {
	return &Desk{
		deskH:          handler.NewDeskHandler(ctrl, bus, logger.With("component", "desk")),
		hub:            hub,
		corsOrigin:     corsOrigin,
		originPatterns: originPatterns(corsOrigin),
		logger:         logger,
	}
}

func (s *Desk) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.originPatterns, s.logger.With("component", "websocket")))

	// Page state and filters
	mux.HandleFunc("GET /api/state", s.deskH.State)
	mux.HandleFunc("PUT /api/filters", s.deskH.SetFilters)
	mux.HandleFunc("POST /api/filters/reset", s.deskH.ResetFilters)
	mux.HandleFunc("POST /api/reload", s.deskH.Reload)
	mux.HandleFunc("DELETE /api/error", s.deskH.DismissError)

	// Delete confirmation
	mux.HandleFunc("POST /api/delete", s.deskH.OpenDeleteConfirm)
	mux.HandleFunc("DELETE /api/delete", s.deskH.CloseDeleteConfirm)
	mux.HandleFunc("POST /api/delete/confirm", s.deskH.ConfirmDelete)

	// Create/edit form
	mux.HandleFunc("POST /api/form/create", s.deskH.OpenCreate)
	mux.HandleFunc("POST /api/form/edit/{id}", s.deskH.OpenEdit)
	mux.HandleFunc("DELETE /api/form", s.deskH.CloseForm)
	mux.HandleFunc("POST /api/form/submit", s.deskH.SubmitForm)

	// Details
	mux.HandleFunc("POST /api/details/{id}", s.deskH.OpenDetails)
	mux.HandleFunc("DELETE /api/details", s.deskH.CloseDetails)

	// Header actions
	mux.HandleFunc("POST /api/header/create", s.deskH.HeaderCreate)
	mux.HandleFunc("POST /api/header/edit/{id}", s.deskH.HeaderEdit)

	var h http.Handler = mux
	h = middleware.Compress(h)
	h = middleware.CORS(s.corsOrigin)(h)
	return middleware.RequestLogger(s.logger.With("component", "http"))(h)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// originPatterns turns the allowed CORS origin into the host pattern the
// websocket accept check wants.
func originPatterns(origin string) []string {
	if origin == "" {
		return nil
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return []string{origin}
	}
	return []string{u.Host}
}
