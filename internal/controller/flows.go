package controller

import (
	"context"

	"github.com/dukerupert/ems/internal/api"
	"github.com/dukerupert/ems/internal/model"
)

// OpenDeleteConfirm opens the delete dialog for the given event.
func (c *Controller) OpenDeleteConfirm(id int64, title string) {
	c.mutate(func() bool {
		if c.state.Deleting {
			return false
		}
		c.state.DeletingEvent = &DeletingEvent{ID: id, Title: title}
		c.state.ConfirmOpen = true
		return true
	})
}

// CloseDeleteConfirm dismisses the dialog unless a delete is in flight.
func (c *Controller) CloseDeleteConfirm() {
	c.mutate(func() bool {
		if c.state.Deleting {
			return false
		}
		c.state.ConfirmOpen = false
		c.state.DeletingEvent = nil
		return true
	})
}

// ConfirmDelete deletes the targeted event. On success the event is dropped
// from the list right away and a full reload follows; the dialog always
// ends closed.
func (c *Controller) ConfirmDelete(ctx context.Context) {
	var target DeletingEvent
	ok := false
	c.mutate(func() bool {
		if c.state.DeletingEvent == nil || c.state.Deleting {
			return false
		}
		target = *c.state.DeletingEvent
		ok = true
		c.state.Deleting = true
		c.state.Error = ""
		return true
	})
	if !ok {
		return
	}

	defer c.mutate(func() bool {
		c.state.Deleting = false
		c.state.ConfirmOpen = false
		c.state.DeletingEvent = nil
		return true
	})

	if err := c.api.DeleteEvent(ctx, target.ID); err != nil {
		c.logger.Warn("delete event", "id", target.ID, "error", err)
		c.mutate(func() bool {
			c.state.Error = api.Message(err)
			return true
		})
		return
	}

	c.mutate(func() bool {
		kept := make([]model.Event, 0, len(c.state.Events))
		for _, e := range c.state.Events {
			if e.ID != target.ID {
				kept = append(kept, e)
			}
		}
		c.state.Events = kept
		return true
	})
	c.logger.Info("event deleted", "id", target.ID)

	c.Reload(ctx)
}

// OpenCreate opens an empty form.
func (c *Controller) OpenCreate() {
	c.mutate(func() bool {
		c.state.FormMode = FormCreate
		c.editing = nil
		c.state.InitialFormValues = nil
		c.state.FormOpen = true
		return true
	})
}

// OpenEdit opens the form seeded from e.
func (c *Controller) OpenEdit(e model.Event) {
	c.mutate(func() bool {
		c.state.FormMode = FormEdit
		c.editing = &e
		values := model.FormValuesFrom(e)
		c.state.InitialFormValues = &values
		c.state.FormOpen = true
		return true
	})
}

// CloseForm closes the form unless a submit is in flight.
func (c *Controller) CloseForm() {
	c.mutate(func() bool {
		if c.state.Saving {
			return false
		}
		c.state.FormOpen = false
		c.editing = nil
		c.state.InitialFormValues = nil
		return true
	})
}

// ConfirmForm submits dto as a create or as an update of the edited event.
// On failure the form stays open so the user can retry.
func (c *Controller) ConfirmForm(ctx context.Context, dto model.UpsertEventDto) {
	var (
		mode    FormMode
		editing *model.Event
		ok      bool
	)
	c.mutate(func() bool {
		if !c.state.FormOpen || c.state.Saving {
			return false
		}
		ok = true
		mode = c.state.FormMode
		editing = c.editing
		c.state.Saving = true
		c.state.Error = ""
		return true
	})
	if !ok {
		return
	}

	defer c.mutate(func() bool {
		c.state.Saving = false
		return true
	})

	var err error
	switch mode {
	case FormEdit:
		if editing == nil {
			return
		}
		_, err = c.api.UpdateEvent(ctx, editing.ID, dto)
	default:
		_, err = c.api.CreateEvent(ctx, dto)
	}
	if err != nil {
		c.logger.Warn("save event", "mode", mode, "error", err)
		c.mutate(func() bool {
			c.state.Error = api.Message(err)
			return true
		})
		return
	}

	c.mutate(func() bool {
		c.state.FormOpen = false
		c.editing = nil
		c.state.InitialFormValues = nil
		return true
	})

	c.Reload(ctx)
}

// OpenDetails shows e and loads its recommendations. A failed lookup shows
// no recommendations and no error. Only the reply for the most recent open
// is applied.
func (c *Controller) OpenDetails(ctx context.Context, e model.Event) {
	var seq uint64
	c.mutate(func() bool {
		c.detailsSeq++
		seq = c.detailsSeq
		c.state.SelectedEvent = &e
		c.state.DetailsOpen = true
		c.state.Recommendations = []model.Event{}
		c.state.LoadingRecommendations = true
		c.state.Error = ""
		return true
	})

	recs, err := c.api.Recommendations(ctx, e.ID)
	if err != nil {
		c.logger.Warn("load recommendations", "id", e.ID, "error", err)
		recs = nil
	}
	if recs == nil {
		recs = []model.Event{}
	}

	c.mutate(func() bool {
		if seq != c.detailsSeq || !c.state.DetailsOpen {
			return false
		}
		c.state.Recommendations = recs
		c.state.LoadingRecommendations = false
		return true
	})
}

// CloseDetails clears the selection and its recommendations.
func (c *Controller) CloseDetails() {
	c.mutate(func() bool {
		c.detailsSeq++
		c.state.DetailsOpen = false
		c.state.SelectedEvent = nil
		c.state.Recommendations = []model.Event{}
		c.state.LoadingRecommendations = false
		return true
	})
}
