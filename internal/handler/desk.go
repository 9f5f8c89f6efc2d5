package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/ems/internal/controller"
	"github.com/dukerupert/ems/internal/model"
	"github.com/dukerupert/ems/internal/ui"
)

// DeskHandler exposes the events page controller as JSON actions. Every
// action answers with the resulting state snapshot.
type DeskHandler struct {
	ctrl   *controller.Controller
	bus    *ui.Bus
	logger *slog.Logger
}

func NewDeskHandler(ctrl *controller.Controller, bus *ui.Bus, logger *slog.Logger) *DeskHandler {
	return &DeskHandler{ctrl: ctrl, bus: bus, logger: logger}
}

type filtersRequest struct {
	Category  string `json:"category"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Sort      string `json:"sort"`
	Order     string `json:"order"`
}

type deleteRequest struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

func (h *DeskHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.State())
}

func (h *DeskHandler) SetFilters(w http.ResponseWriter, r *http.Request) {
	var req filtersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	f, err := req.filters()
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	h.ctrl.SetFilters(f)
	h.respond(w)
}

func (h *DeskHandler) ResetFilters(w http.ResponseWriter, r *http.Request) {
	h.ctrl.ResetFilters()
	h.respond(w)
}

func (h *DeskHandler) Reload(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Reload(detach(r))
	h.respond(w)
}

func (h *DeskHandler) DismissError(w http.ResponseWriter, r *http.Request) {
	h.ctrl.DismissError()
	h.respond(w)
}

func (h *DeskHandler) OpenDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.ID <= 0 {
		writeMessage(w, http.StatusBadRequest, "id is required")
		return
	}

	h.ctrl.OpenDeleteConfirm(req.ID, req.Title)
	h.respond(w)
}

func (h *DeskHandler) CloseDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	h.ctrl.CloseDeleteConfirm()
	h.respond(w)
}

func (h *DeskHandler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	h.ctrl.ConfirmDelete(detach(r))
	h.respond(w)
}

func (h *DeskHandler) OpenCreate(w http.ResponseWriter, r *http.Request) {
	h.ctrl.OpenCreate()
	h.respond(w)
}

func (h *DeskHandler) OpenEdit(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loaded(w, r)
	if !ok {
		return
	}
	h.ctrl.OpenEdit(event)
	h.respond(w)
}

func (h *DeskHandler) CloseForm(w http.ResponseWriter, r *http.Request) {
	h.ctrl.CloseForm()
	h.respond(w)
}

// SubmitForm validates the payload before handing it to the controller.
// Field problems answer 422 and leave the form untouched.
func (h *DeskHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	var dto model.UpsertEventDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	dto = dto.Normalize()

	if err := dto.Validate(); err != nil {
		var fe model.FieldErrors
		if errors.As(err, &fe) {
			writeJSON(w, http.StatusUnprocessableEntity, messageResponse{Message: "Validation failed", Errors: fe})
			return
		}
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if !h.ctrl.State().FormOpen {
		writeMessage(w, http.StatusConflict, "Form is not open")
		return
	}

	h.ctrl.ConfirmForm(detach(r), dto)
	h.respond(w)
}

func (h *DeskHandler) OpenDetails(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loaded(w, r)
	if !ok {
		return
	}
	h.ctrl.OpenDetails(detach(r), event)
	h.respond(w)
}

func (h *DeskHandler) CloseDetails(w http.ResponseWriter, r *http.Request) {
	h.ctrl.CloseDetails()
	h.respond(w)
}

// HeaderCreate publishes on the modal bus, as the page header does.
func (h *DeskHandler) HeaderCreate(w http.ResponseWriter, r *http.Request) {
	h.bus.OpenCreate()
	h.respond(w)
}

func (h *DeskHandler) HeaderEdit(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loaded(w, r)
	if !ok {
		return
	}
	h.bus.OpenEdit(event)
	h.respond(w)
}

func (h *DeskHandler) respond(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, h.ctrl.State())
}

// loaded resolves the {id} path value against the currently listed events.
func (h *DeskHandler) loaded(w http.ResponseWriter, r *http.Request) (model.Event, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid id")
		return model.Event{}, false
	}
	event, ok := h.ctrl.EventByID(id)
	if !ok {
		writeMessage(w, http.StatusNotFound, "Event not found")
		return model.Event{}, false
	}
	return event, true
}

func (req filtersRequest) filters() (model.FiltersState, error) {
	f := model.DefaultFilters()
	f.Category = strings.TrimSpace(req.Category)
	if req.Sort != "" {
		f.Sort = model.SortField(req.Sort)
	}
	if req.Order != "" {
		f.Order = model.SortOrder(req.Order)
	}
	if err := f.Validate(); err != nil {
		return f, err
	}

	var err error
	if f.StartDate, err = parseDay(req.StartDate, "startDate"); err != nil {
		return f, err
	}
	if f.EndDate, err = parseDay(req.EndDate, "endDate"); err != nil {
		return f, err
	}
	return f, nil
}

func parseDay(s, field string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return nil, errors.New(field + " must be YYYY-MM-DD")
	}
	return &t, nil
}

// detach keeps request values but outlives a client that hangs up, so a
// started mutation still reloads the list.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
