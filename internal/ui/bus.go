// Package ui carries requests from page chrome (the header's "Add event"
// and edit actions) to whichever controller is listening.
package ui

import (
	"log/slog"
	"sync"

	"github.com/dukerupert/ems/internal/model"
)

type ModalKind string

const (
	ModalCreate ModalKind = "create"
	ModalEdit   ModalKind = "edit"
)

// ModalRequest asks the listener to open the event form. Event is set only
// for ModalEdit.
type ModalRequest struct {
	Kind  ModalKind    `json:"type"`
	Event *model.Event `json:"event,omitempty"`
}

type subscription struct {
	fn func(ModalRequest)
}

// Bus is a synchronous publish/subscribe channel for ModalRequests.
type Bus struct {
	mu     sync.RWMutex
	subs   map[*subscription]struct{}
	logger *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[*subscription]struct{}),
		logger: logger,
	}
}

// Subscribe registers fn and returns a function that removes it. Calling
// the returned function more than once is safe.
func (b *Bus) Subscribe(fn func(ModalRequest)) (unsubscribe func()) {
	s := &subscription{fn: fn}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, s)
		b.mu.Unlock()
	}
}

func (b *Bus) OpenCreate() {
	b.publish(ModalRequest{Kind: ModalCreate})
}

func (b *Bus) OpenEdit(e model.Event) {
	b.publish(ModalRequest{Kind: ModalEdit, Event: &e})
}

func (b *Bus) publish(req ModalRequest) {
	b.mu.RLock()
	fns := make([]func(ModalRequest), 0, len(b.subs))
	for s := range b.subs {
		fns = append(fns, s.fn)
	}
	b.mu.RUnlock()

	b.logger.Debug("modal request", "kind", req.Kind, "subscribers", len(fns))
	for _, fn := range fns {
		fn(req)
	}
}

// SubscriberCount returns the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
