package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/ems/internal/model"
	"github.com/dukerupert/ems/internal/store"
)

const recommendationLimit = 3

const dayLayout = "2006-01-02"

// EventsHandler serves the events API backed by SQLite.
type EventsHandler struct {
	store  *store.EventStore
	now    func() time.Time
	logger *slog.Logger
}

func NewEventsHandler(s *store.EventStore, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{store: s, now: time.Now, logger: logger}
}

func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.EventFilter{
		Category: q.Get("category"),
		DateFrom: q.Get("dateFrom"),
		DateTo:   q.Get("dateTo"),
		Sort:     model.SortField(q.Get("sort")),
		Order:    model.SortOrder(q.Get("order")),
	}
	if f.Sort != "" && !f.Sort.Valid() {
		writeMessage(w, http.StatusBadRequest, "sort must be one of date, createdAt, title")
		return
	}
	if f.Order != "" && !f.Order.Valid() {
		writeMessage(w, http.StatusBadRequest, "order must be asc or desc")
		return
	}
	for name, v := range map[string]string{"dateFrom": f.DateFrom, "dateTo": f.DateTo} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(dayLayout, v); err != nil {
			writeMessage(w, http.StatusBadRequest, name+" must be YYYY-MM-DD")
			return
		}
	}

	events, err := h.store.List(f)
	if err != nil {
		h.logger.Error("list events", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	dto, ok := decodeEvent(w, r)
	if !ok {
		return
	}

	event, err := h.store.Create(dto)
	if err != nil {
		h.logger.Error("create event", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to create event")
		return
	}

	h.logger.Info("event created", "id", event.ID, "title", event.Title)
	writeJSON(w, http.StatusCreated, event)
}

func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid id")
		return
	}
	dto, ok := decodeEvent(w, r)
	if !ok {
		return
	}

	event, err := h.store.Update(id, dto)
	if err != nil {
		h.logger.Error("update event", "id", id, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to update event")
		return
	}
	if event == nil {
		writeMessage(w, http.StatusNotFound, "Event not found")
		return
	}

	h.logger.Info("event updated", "id", event.ID)
	writeJSON(w, http.StatusOK, event)
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid id")
		return
	}

	deleted, err := h.store.Delete(id)
	if err != nil {
		h.logger.Error("delete event", "id", id, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to delete event")
		return
	}
	if !deleted {
		writeMessage(w, http.StatusNotFound, "Event not found")
		return
	}

	h.logger.Info("event deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *EventsHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	event, ok := h.lookup(w, r)
	if !ok {
		return
	}

	recs, err := h.store.Recommendations(*event, h.now(), recommendationLimit)
	if err != nil {
		h.logger.Error("recommendations", "id", event.ID, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to load recommendations")
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *EventsHandler) lookup(w http.ResponseWriter, r *http.Request) (*model.Event, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid id")
		return nil, false
	}

	event, err := h.store.GetByID(id)
	if err != nil {
		h.logger.Error("get event", "id", id, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to get event")
		return nil, false
	}
	if event == nil {
		writeMessage(w, http.StatusNotFound, "Event not found")
		return nil, false
	}
	return event, true
}

// decodeEvent reads, trims and validates an UpsertEventDto. Validation
// failures answer 400 with per-field messages.
func decodeEvent(w http.ResponseWriter, r *http.Request) (model.UpsertEventDto, bool) {
	var dto model.UpsertEventDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return dto, false
	}
	dto = dto.Normalize()

	if err := dto.Validate(); err != nil {
		var fe model.FieldErrors
		if errors.As(err, &fe) {
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Validation failed", Errors: fe})
			return dto, false
		}
		writeMessage(w, http.StatusBadRequest, err.Error())
		return dto, false
	}
	return dto, true
}
