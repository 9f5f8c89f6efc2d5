package server

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/ems/internal/backup"
	"github.com/dukerupert/ems/internal/handler"
	"github.com/dukerupert/ems/internal/middleware"
	"github.com/dukerupert/ems/internal/store"
)

// EventsAPI is the local development events service.
type EventsAPI struct {
	eventsH *handler.EventsHandler
	backupH *handler.BackupHandler
	logger  *slog.Logger
}

// NewEventsAPI wires the events routes. mgr may be nil, which leaves the
// backup routes out.
func NewEventsAPI(s *store.EventStore, mgr *backup.Manager, logger *slog.Logger) *EventsAPI {
	api := &EventsAPI{
		eventsH: handler.NewEventsHandler(s, logger.With("component", "events")),
		logger:  logger,
	}
	if mgr != nil {
		api.backupH = handler.NewBackupHandler(mgr, logger.With("component", "backup"))
	}
	return api
}

func (s *EventsAPI) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler)

	mux.HandleFunc("GET /events", s.eventsH.List)
	mux.HandleFunc("POST /events", s.eventsH.Create)
	mux.HandleFunc("GET /events/{id}", s.eventsH.Get)
	mux.HandleFunc("PATCH /events/{id}", s.eventsH.Update)
	mux.HandleFunc("DELETE /events/{id}", s.eventsH.Delete)
	mux.HandleFunc("GET /events/{id}/recommendations", s.eventsH.Recommendations)

	if s.backupH != nil {
		mux.HandleFunc("GET /backups/status", s.backupH.Status)
		mux.HandleFunc("POST /backups", s.backupH.Run)
	}

	return middleware.RequestLogger(s.logger.With("component", "http"))(middleware.Compress(mux))
}
