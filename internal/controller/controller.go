// Package controller holds the events page state machine: the filtered
// list, the category universe, and the delete, form and details flows.
//
// Every reload takes a fresh generation number. Responses are applied only
// while their generation is still the latest, so a slow reload can never
// overwrite the results of a newer one. Filter changes are debounced before
// a reload starts. Controller methods never return errors; failures land in
// State.Error.
package controller

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dukerupert/ems/internal/model"
	"github.com/dukerupert/ems/internal/ui"
)

const DefaultDebounce = 250 * time.Millisecond

// EventsAPI is the subset of the events service the controller uses.
// *api.Client implements it.
type EventsAPI interface {
	ListEvents(ctx context.Context, q model.EventsQuery) ([]model.Event, error)
	CreateEvent(ctx context.Context, dto model.UpsertEventDto) (model.Event, error)
	UpdateEvent(ctx context.Context, id int64, dto model.UpsertEventDto) (model.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
	Recommendations(ctx context.Context, id int64) ([]model.Event, error)
}

// ModalSource delivers "open create/edit form" requests. *ui.Bus implements it.
type ModalSource interface {
	Subscribe(fn func(ui.ModalRequest)) (unsubscribe func())
}

// Timer is the handle returned by an AfterFunc.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type Options struct {
	// Debounce is the quiet period after the last filter change. Zero means
	// DefaultDebounce.
	Debounce  time.Duration
	AfterFunc AfterFunc
	Modals    ModalSource
	Logger    *slog.Logger
}

type Controller struct {
	api       EventsAPI
	modals    ModalSource
	logger    *slog.Logger
	debounce  time.Duration
	afterFunc AfterFunc

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       State
	editing     *model.Event
	generation  uint64
	timer       Timer
	debounceSeq uint64
	detailsSeq  uint64
	unsubscribe func()
	observers   []func(State)
	started     bool
	closed      bool
}

func New(eventsAPI EventsAPI, opts Options) *Controller {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = realAfterFunc
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		api:       eventsAPI,
		modals:    opts.Modals,
		logger:    opts.Logger,
		debounce:  opts.Debounce,
		afterFunc: opts.AfterFunc,
		ctx:       ctx,
		cancel:    cancel,
		state:     initialState(),
	}
}

// Start subscribes to modal requests and schedules the initial load.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.scheduleLocked()
	c.mu.Unlock()

	if c.modals != nil {
		unsub := c.modals.Subscribe(c.handleModal)
		c.mu.Lock()
		c.unsubscribe = unsub
		c.mu.Unlock()
	}
}

// Close cancels a pending debounced reload, drops the modal subscription and
// cancels the context used by debounced reloads.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	unsub := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	c.cancel()
}

// OnChange registers fn to receive a snapshot after every state change.
// Snapshots may arrive out of order across goroutines; compare Version.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	c.mu.Unlock()
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// EventByID looks id up in the currently loaded list.
func (c *Controller) EventByID(id int64) (model.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.state.Events {
		if e.ID == id {
			return e, true
		}
	}
	return model.Event{}, false
}

// Context is cancelled by Close. Callers running actions on behalf of the
// page lifetime should derive from it.
func (c *Controller) Context() context.Context {
	return c.ctx
}

// DismissError clears the visible error.
func (c *Controller) DismissError() {
	c.mutate(func() bool {
		if c.state.Error == "" {
			return false
		}
		c.state.Error = ""
		return true
	})
}

// mutate runs fn under the lock and, when fn reports a change, bumps the
// version and notifies observers outside the lock.
func (c *Controller) mutate(fn func() bool) {
	c.mu.Lock()
	if !fn() {
		c.mu.Unlock()
		return
	}
	c.state.Version++
	snap := c.state.clone()
	observers := slices.Clone(c.observers)
	c.mu.Unlock()

	for _, o := range observers {
		o(snap)
	}
}

func (c *Controller) handleModal(req ui.ModalRequest) {
	switch req.Kind {
	case ui.ModalCreate:
		c.OpenCreate()
	case ui.ModalEdit:
		if req.Event == nil {
			c.logger.Warn("edit request without event")
			return
		}
		c.OpenEdit(*req.Event)
	default:
		c.logger.Warn("unknown modal request", "kind", req.Kind)
	}
}
