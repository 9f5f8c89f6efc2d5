package controller

import (
	"slices"

	"github.com/dukerupert/ems/internal/model"
)

type FormMode string

const (
	FormCreate FormMode = "create"
	FormEdit   FormMode = "edit"
)

// DeletingEvent is the target of the delete confirmation dialog.
type DeletingEvent struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// State is everything the events page renders.
type State struct {
	// Version increases with every change.
	Version uint64 `json:"version"`

	Events     []model.Event      `json:"events"`
	Categories []string           `json:"categories"`
	Loading    bool               `json:"loading"`
	Error      string             `json:"error"`
	Filters    model.FiltersState `json:"filters"`

	ConfirmOpen   bool           `json:"confirmOpen"`
	DeletingEvent *DeletingEvent `json:"deletingEvent"`
	Deleting      bool           `json:"deleting"`

	FormOpen          bool              `json:"formOpen"`
	FormMode          FormMode          `json:"formMode"`
	InitialFormValues *model.FormValues `json:"initialFormValues"`
	Saving            bool              `json:"saving"`

	DetailsOpen            bool          `json:"detailsOpen"`
	SelectedEvent          *model.Event  `json:"selectedEvent"`
	Recommendations        []model.Event `json:"recommendations"`
	LoadingRecommendations bool          `json:"loadingRecommendations"`
}

func initialState() State {
	return State{
		Events:          []model.Event{},
		Categories:      []string{},
		Loading:         true,
		Filters:         model.DefaultFilters(),
		FormMode:        FormCreate,
		Recommendations: []model.Event{},
	}
}

func (s State) clone() State {
	s.Events = slices.Clone(s.Events)
	s.Categories = slices.Clone(s.Categories)
	s.Recommendations = slices.Clone(s.Recommendations)
	if s.DeletingEvent != nil {
		d := *s.DeletingEvent
		s.DeletingEvent = &d
	}
	if s.InitialFormValues != nil {
		v := *s.InitialFormValues
		s.InitialFormValues = &v
	}
	if s.SelectedEvent != nil {
		e := *s.SelectedEvent
		s.SelectedEvent = &e
	}
	return s
}
