package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dukerupert/ems/internal/model"
	"github.com/dukerupert/ems/internal/query"
)

// ListEvents returns the events matching q.
func (c *Client) ListEvents(ctx context.Context, q model.EventsQuery) ([]model.Event, error) {
	path := "/events"
	if v := query.Values(q); len(v) > 0 {
		path += "?" + v.Encode()
	}

	var events []model.Event
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: path}, &events); err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}

func (c *Client) CreateEvent(ctx context.Context, dto model.UpsertEventDto) (model.Event, error) {
	var e model.Event
	err := c.Do(ctx, Request{Method: http.MethodPost, Path: "/events", Body: dto}, &e)
	return e, err
}

// UpdateEvent sends a PATCH with the full upsert payload.
func (c *Client) UpdateEvent(ctx context.Context, id int64, dto model.UpsertEventDto) (model.Event, error) {
	var e model.Event
	err := c.Do(ctx, Request{Method: http.MethodPatch, Path: fmt.Sprintf("/events/%d", id), Body: dto}, &e)
	return e, err
}

func (c *Client) DeleteEvent(ctx context.Context, id int64) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: fmt.Sprintf("/events/%d", id)}, nil)
}

// Recommendations returns events the service suggests alongside event id.
func (c *Client) Recommendations(ctx context.Context, id int64) ([]model.Event, error) {
	var events []model.Event
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: fmt.Sprintf("/events/%d/recommendations", id)}, &events); err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}
