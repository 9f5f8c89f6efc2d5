package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/dukerupert/ems/internal/model"
)

func testClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return NewClient(server.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDefaultBaseURL(t *testing.T) {
	c := NewClient("", slog.Default())
	if c.BaseURL() != DefaultBaseURL {
		t.Errorf("base url = %q, want %q", c.BaseURL(), DefaultBaseURL)
	}
	c = NewClient("http://api.local:9000/", slog.Default())
	if c.BaseURL() != "http://api.local:9000" {
		t.Errorf("base url = %q, want trailing slash trimmed", c.BaseURL())
	}
}

func TestListEventsQueryAndHeaders(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events" {
			t.Errorf("path = %q, want /events", r.URL.Path)
		}
		if got := r.URL.Query().Get("category"); got != "Music" {
			t.Errorf("category = %q, want Music", got)
		}
		if got := r.URL.Query().Get("dateFrom"); got != "2026-01-01" {
			t.Errorf("dateFrom = %q", got)
		}
		if r.URL.Query().Has("dateTo") {
			t.Error("dateTo should be absent")
		}
		if got := r.Header.Get("Cache-Control"); got != "no-store" {
			t.Errorf("Cache-Control = %q, want no-store", got)
		}
		if got := r.Header.Get("Content-Type"); got != "" {
			t.Errorf("Content-Type = %q, want none without body", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID")
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]model.Event{{ID: 1, Title: "Concert", Category: "Music"}})
	})

	events, err := c.ListEvents(context.Background(), model.EventsQuery{
		Category: "Music",
		DateFrom: "2026-01-01",
		Sort:     model.SortDate,
		Order:    model.OrderAsc,
	})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 || events[0].Title != "Concert" {
		t.Errorf("events = %+v", events)
	}
}

func TestBodySetsContentType(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		var dto model.UpsertEventDto
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(model.Event{ID: 42, Title: dto.Title})
	})

	e, err := c.CreateEvent(context.Background(), model.UpsertEventDto{Title: "Launch", Date: "2026-01-01T10:00:00Z"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.ID != 42 || e.Title != "Launch" {
		t.Errorf("event = %+v", e)
	}
}

func TestCallerContentTypeKept(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Content-Type"); got != "application/merge-patch+json" {
			t.Errorf("Content-Type = %q, want caller's value", got)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	h := http.Header{}
	h.Set("Content-Type", "application/merge-patch+json")
	err := c.Do(context.Background(), Request{Method: http.MethodPatch, Path: "/events/1", Body: []byte(`{}`), Header: h}, nil)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
}

func TestUpdateAndDeletePaths(t *testing.T) {
	var calls []string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":7,"title":"Renamed"}`))
	})

	if _, err := c.UpdateEvent(context.Background(), 7, model.UpsertEventDto{Title: "Renamed"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := c.DeleteEvent(context.Background(), 7); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Recommendations(context.Background(), 7); err != nil {
		t.Fatalf("recommendations: %v", err)
	}

	want := []string{"PATCH /events/7", "DELETE /events/7", "GET /events/7/recommendations"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestErrorMessageFromJSON(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Title is required","field":"title"}`))
	})

	err := c.Do(context.Background(), Request{Path: "/events"}, nil)
	apiErr, ok := IsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "Title is required" {
		t.Errorf("message = %q", apiErr.Message)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("status = %d", apiErr.Status)
	}
	if apiErr.URL != c.BaseURL()+"/events" {
		t.Errorf("url = %q", apiErr.URL)
	}
	details, ok := apiErr.Details.(map[string]any)
	if !ok || details["field"] != "title" {
		t.Errorf("details = %#v", apiErr.Details)
	}
}

func TestErrorMessageFromText(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	})

	err := c.Do(context.Background(), Request{Path: "/events"}, nil)
	if got := Message(err); got != "upstream down" {
		t.Errorf("message = %q, want %q", got, "upstream down")
	}
}

func TestErrorMessageFallback(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"empty text", "text/plain", ""},
		{"blank text", "text/plain", "   \n"},
		{"broken json", "application/json", "{not json"},
		{"json without message", "application/json", `{"error":"nope"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(tt.body))
			})

			err := c.Do(context.Background(), Request{Path: "/events"}, nil)
			if got := Message(err); got != "Request failed (500)" {
				t.Errorf("message = %q, want generic", got)
			}
		})
	}
}

func TestUnparseableSuccessBodyIsAbsent(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("<html>oops</html>"))
	})

	events, err := c.ListEvents(context.Background(), model.EventsQuery{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(events) != 0 {
		t.Errorf("events = %+v, want empty", events)
	}
}

func TestWrongShapeSuccessBodyIsAbsent(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1,"title":"ok","date":"2025-03-01T10:00:00Z"},{"id":"two","title":"bad"}]`))
	})

	events, err := c.ListEvents(context.Background(), model.EventsQuery{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(events) != 0 {
		t.Errorf("events = %+v, want empty", events)
	}
}

func TestDoLeavesTargetUntouchedOnWrongShape(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"seven","title":"partial"}`))
	})

	out := model.Event{ID: 42, Title: "existing"}
	if err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/events/7"}, &out); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out.ID != 42 || out.Title != "existing" {
		t.Errorf("out = %+v, want untouched", out)
	}
}

func TestBrotliResponseDecoded(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		json.NewEncoder(bw).Encode([]model.Event{{ID: 3, Title: "Compressed"}})
		bw.Close()

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Encoding", "br")
		w.Write(buf.Bytes())
	})

	events, err := c.ListEvents(context.Background(), model.EventsQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 || events[0].Title != "Compressed" {
		t.Errorf("events = %+v", events)
	}
}

func TestTransportErrorIsWrapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewClient(url, slog.Default())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := c.DeleteEvent(ctx, 1)
	if err == nil {
		t.Fatal("expected error for closed server")
	}
	if _, ok := IsAPIError(err); ok {
		t.Error("transport failure should not be an APIError")
	}
	if Message(err) == "" {
		t.Error("expected non-empty message")
	}
}

func TestMessageNil(t *testing.T) {
	if got := Message(nil); got != "Something went wrong" {
		t.Errorf("Message(nil) = %q", got)
	}
}
