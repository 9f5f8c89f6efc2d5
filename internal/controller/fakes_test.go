package controller

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dukerupert/ems/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubAPI serves events from memory and records every call.
type stubAPI struct {
	mu      sync.Mutex
	events  []model.Event
	nextID  int64
	queries []model.EventsQuery
	created []model.UpsertEventDto
	updated map[int64]model.UpsertEventDto
	deleted []int64
	recs    map[int64][]model.Event

	listErr   func(q model.EventsQuery) error
	deleteFn  func(id int64) error
	saveFn    func() error
	recsFn    func(id int64) error
	recsCalls []int64
}

func newStubAPI(events ...model.Event) *stubAPI {
	return &stubAPI{
		events:  events,
		nextID:  100,
		updated: make(map[int64]model.UpsertEventDto),
		recs:    make(map[int64][]model.Event),
	}
}

func (s *stubAPI) ListEvents(_ context.Context, q model.EventsQuery) ([]model.Event, error) {
	s.mu.Lock()
	s.queries = append(s.queries, q)
	listErr := s.listErr
	s.mu.Unlock()

	if listErr != nil {
		if err := listErr(q); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Event{}
	for _, e := range s.events {
		if q.Category != "" && e.Category != q.Category {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *stubAPI) CreateEvent(_ context.Context, dto model.UpsertEventDto) (model.Event, error) {
	if s.saveFn != nil {
		if err := s.saveFn(); err != nil {
			return model.Event{}, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, dto)
	s.nextID++
	e := model.Event{ID: s.nextID, Title: dto.Title, Category: dto.Category, Location: dto.Location, Description: dto.Description}
	s.events = append(s.events, e)
	return e, nil
}

func (s *stubAPI) UpdateEvent(_ context.Context, id int64, dto model.UpsertEventDto) (model.Event, error) {
	if s.saveFn != nil {
		if err := s.saveFn(); err != nil {
			return model.Event{}, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated[id] = dto
	for i := range s.events {
		if s.events[i].ID == id {
			s.events[i].Title = dto.Title
			s.events[i].Category = dto.Category
			return s.events[i], nil
		}
	}
	return model.Event{ID: id, Title: dto.Title}, nil
}

func (s *stubAPI) DeleteEvent(_ context.Context, id int64) error {
	if s.deleteFn != nil {
		if err := s.deleteFn(id); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	s.events = slices.DeleteFunc(s.events, func(e model.Event) bool { return e.ID == id })
	return nil
}

func (s *stubAPI) Recommendations(_ context.Context, id int64) ([]model.Event, error) {
	s.mu.Lock()
	s.recsCalls = append(s.recsCalls, id)
	recsFn := s.recsFn
	s.mu.Unlock()

	if recsFn != nil {
		if err := recsFn(id); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recs[id], nil
}

func (s *stubAPI) queryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

func (s *stubAPI) lastQueries(n int) []model.EventsQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.queries[len(s.queries)-n:])
}

// gatedAPI hands each ListEvents call to the test, which decides when and
// how it returns.
type gatedAPI struct {
	*stubAPI
	lists chan *pendingList
}

type listResult struct {
	events []model.Event
	err    error
}

type pendingList struct {
	q     model.EventsQuery
	reply chan listResult
}

func newGatedAPI() *gatedAPI {
	return &gatedAPI{stubAPI: newStubAPI(), lists: make(chan *pendingList)}
}

func (g *gatedAPI) ListEvents(ctx context.Context, q model.EventsQuery) ([]model.Event, error) {
	p := &pendingList{q: q, reply: make(chan listResult, 1)}
	select {
	case g.lists <- p:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	r := <-p.reply
	return r.events, r.err
}

// fakeScheduler records AfterFunc calls; tests fire them by hand.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	mu      sync.Mutex
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{d: d, f: f}
	s.mu.Lock()
	s.timers = append(s.timers, t)
	s.mu.Unlock()
	return t
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// fireActive runs every timer that was neither stopped nor fired and
// returns how many ran.
func (s *fakeScheduler) fireActive() int {
	s.mu.Lock()
	timers := slices.Clone(s.timers)
	s.mu.Unlock()

	n := 0
	for _, t := range timers {
		t.mu.Lock()
		run := !t.stopped && !t.fired
		if run {
			t.fired = true
		}
		t.mu.Unlock()
		if run {
			t.f()
			n++
		}
	}
	return n
}

func (s *fakeScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *fakeScheduler) timer(i int) *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[i]
}
