package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/ems/internal/database"
	"github.com/dukerupert/ems/internal/model"
	"github.com/dukerupert/ems/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupEventsAPI(t *testing.T) (http.Handler, *store.EventStore, *EventsHandler) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := store.NewEventStore(db)
	h := NewEventsHandler(s, discardLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /events", h.List)
	mux.HandleFunc("POST /events", h.Create)
	mux.HandleFunc("GET /events/{id}", h.Get)
	mux.HandleFunc("PATCH /events/{id}", h.Update)
	mux.HandleFunc("DELETE /events/{id}", h.Delete)
	mux.HandleFunc("GET /events/{id}/recommendations", h.Recommendations)
	return mux, s, h
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

const workshopJSON = `{"title":" Workshop ","category":"Tech","location":"Odesa","date":"2026-04-10T09:00:00Z","description":"Hands-on"}`

func TestEventsCreateAndGet(t *testing.T) {
	mux, _, _ := setupEventsAPI(t)

	rec := do(t, mux, "POST", "/events", workshopJSON)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	created := decode[model.Event](t, rec)
	if created.Title != "Workshop" {
		t.Errorf("title = %q, want trimmed", created.Title)
	}

	rec = do(t, mux, "GET", "/events/"+itoa(created.ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if got := decode[model.Event](t, rec); got.ID != created.ID {
		t.Errorf("got id %d, want %d", got.ID, created.ID)
	}
}

func TestEventsCreateValidation(t *testing.T) {
	mux, _, _ := setupEventsAPI(t)

	rec := do(t, mux, "POST", "/events", `{"title":"","category":"Tech","location":"x","date":"soon","description":"d"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[messageResponse](t, rec)
	if body.Message != "Validation failed" {
		t.Errorf("message = %q", body.Message)
	}
	if body.Errors["title"] != "Title is required" || body.Errors["date"] != "Valid date & time is required" {
		t.Errorf("errors = %v", body.Errors)
	}

	rec = do(t, mux, "POST", "/events", `{`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON status = %d", rec.Code)
	}
}

func TestEventsListQuery(t *testing.T) {
	mux, s, _ := setupEventsAPI(t)
	for _, d := range []model.UpsertEventDto{
		{Title: "b", Category: "Music", Location: "x", Date: "2026-03-02T10:00:00Z", Description: "d"},
		{Title: "a", Category: "Music", Location: "x", Date: "2026-03-05T10:00:00Z", Description: "d"},
		{Title: "c", Category: "Tech", Location: "x", Date: "2026-03-03T10:00:00Z", Description: "d"},
	} {
		if _, err := s.Create(d); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"all by date", "", []string{"b", "c", "a"}},
		{"category", "?category=Music", []string{"b", "a"}},
		{"title desc", "?sort=title&order=desc", []string{"c", "b", "a"}},
		{"date window", "?dateFrom=2026-03-03&dateTo=2026-03-05", []string{"c", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, mux, "GET", "/events"+tt.query, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			events := decode[[]model.Event](t, rec)
			var got []string
			for _, e := range events {
				got = append(got, e.Title)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("titles = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEventsListRejectsBadParams(t *testing.T) {
	mux, _, _ := setupEventsAPI(t)

	for _, q := range []string{"?sort=location", "?order=up", "?dateFrom=yesterday"} {
		rec := do(t, mux, "GET", "/events"+q, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, rec.Code)
			continue
		}
		if body := decode[messageResponse](t, rec); body.Message == "" {
			t.Errorf("%s: missing message", q)
		}
	}
}

func TestEventsListEmptyIsArray(t *testing.T) {
	mux, _, _ := setupEventsAPI(t)
	rec := do(t, mux, "GET", "/events", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("body = %q, want []", rec.Body.String())
	}
}

func TestEventsUpdate(t *testing.T) {
	mux, _, _ := setupEventsAPI(t)
	created := decode[model.Event](t, do(t, mux, "POST", "/events", workshopJSON))

	rec := do(t, mux, "PATCH", "/events/"+itoa(created.ID),
		`{"title":"Renamed","category":"Tech","location":"Lviv","date":"2026-04-11T09:00:00Z","description":"d"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if got := decode[model.Event](t, rec); got.Title != "Renamed" || got.Location != "Lviv" {
		t.Errorf("updated = %+v", got)
	}

	rec = do(t, mux, "PATCH", "/events/999", workshopJSON)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing status = %d", rec.Code)
	}
}

func TestEventsDelete(t *testing.T) {
	mux, _, _ := setupEventsAPI(t)
	created := decode[model.Event](t, do(t, mux, "POST", "/events", workshopJSON))

	rec := do(t, mux, "DELETE", "/events/"+itoa(created.ID), "")
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Fatalf("status = %d, body = %q", rec.Code, rec.Body)
	}

	rec = do(t, mux, "DELETE", "/events/"+itoa(created.ID), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", rec.Code)
	}
	if body := decode[messageResponse](t, rec); body.Message != "Event not found" {
		t.Errorf("message = %q", body.Message)
	}

	rec = do(t, mux, "DELETE", "/events/abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d", rec.Code)
	}
}

func TestEventsRecommendations(t *testing.T) {
	mux, s, h := setupEventsAPI(t)
	h.now = func() time.Time { return time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC) }

	main, _ := s.Create(model.UpsertEventDto{Title: "main", Category: "Tech", Location: "x", Date: "2026-04-10T10:00:00Z", Description: "d"})
	s.Create(model.UpsertEventDto{Title: "related", Category: "Tech", Location: "x", Date: "2026-04-20T10:00:00Z", Description: "d"})
	s.Create(model.UpsertEventDto{Title: "past", Category: "Tech", Location: "x", Date: "2026-03-20T10:00:00Z", Description: "d"})

	rec := do(t, mux, "GET", "/events/"+itoa(main.ID)+"/recommendations", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	recs := decode[[]model.Event](t, rec)
	if len(recs) != 1 || recs[0].Title != "related" {
		t.Errorf("recs = %+v", recs)
	}

	rec = do(t, mux, "GET", "/events/404/recommendations", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing status = %d", rec.Code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
