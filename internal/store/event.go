package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/ems/internal/model"
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const dayLayout = "2006-01-02"

const eventColumns = `id, title, date, location, category, description, created_at, updated_at`

// EventFilter narrows List. Zero values mean no constraint; Sort and Order
// default to date ascending.
type EventFilter struct {
	Category string
	DateFrom string
	DateTo   string
	Sort     model.SortField
	Order    model.SortOrder
}

type EventStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db, now: time.Now}
}

func (s *EventStore) Create(dto model.UpsertEventDto) (*model.Event, error) {
	date, err := time.Parse(time.RFC3339, dto.Date)
	if err != nil {
		return nil, fmt.Errorf("parse date: %w", err)
	}
	now := formatTime(s.now())

	result, err := s.db.Exec(
		`INSERT INTO events (title, date, location, category, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		dto.Title, formatTime(date), dto.Location, dto.Category, dto.Description, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(id)
}

func (s *EventStore) GetByID(id int64) (*model.Event, error) {
	e, err := scanEvent(s.db.QueryRow(`SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query event: %w", err)
	}
	return e, nil
}

// List returns events matching f. Date bounds are whole UTC days and both
// ends are inclusive.
func (s *EventStore) List(f EventFilter) ([]model.Event, error) {
	var (
		where []string
		args  []any
	)
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.DateFrom != "" {
		from, err := time.Parse(dayLayout, f.DateFrom)
		if err != nil {
			return nil, fmt.Errorf("parse dateFrom: %w", err)
		}
		where = append(where, "date >= ?")
		args = append(args, formatTime(from))
	}
	if f.DateTo != "" {
		to, err := time.Parse(dayLayout, f.DateTo)
		if err != nil {
			return nil, fmt.Errorf("parse dateTo: %w", err)
		}
		where = append(where, "date < ?")
		args = append(args, formatTime(to.AddDate(0, 0, 1)))
	}

	q := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY ` + orderBy(f.Sort, f.Order)

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *EventStore) Update(id int64, dto model.UpsertEventDto) (*model.Event, error) {
	date, err := time.Parse(time.RFC3339, dto.Date)
	if err != nil {
		return nil, fmt.Errorf("parse date: %w", err)
	}

	_, err = s.db.Exec(
		`UPDATE events
		 SET title = ?, date = ?, location = ?, category = ?, description = ?, updated_at = ?
		 WHERE id = ?`,
		dto.Title, formatTime(date), dto.Location, dto.Category, dto.Description, formatTime(s.now()), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}

	return s.GetByID(id)
}

// Delete reports whether a row was removed.
func (s *EventStore) Delete(id int64) (bool, error) {
	result, err := s.db.Exec("DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete event: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Recommendations returns up to limit upcoming events other than e,
// preferring e's category and then the nearest date.
func (s *EventStore) Recommendations(e model.Event, now time.Time, limit int) ([]model.Event, error) {
	rows, err := s.db.Query(
		`SELECT `+eventColumns+` FROM events
		 WHERE id != ? AND date >= ?
		 ORDER BY (category = ?) DESC, date ASC, id ASC
		 LIMIT ?`,
		e.ID, formatTime(now), e.Category, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recommendations: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		r, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *r)
	}
	return events, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*model.Event, error) {
	var e model.Event
	var date, created, updated string
	if err := row.Scan(&e.ID, &e.Title, &date, &e.Location, &e.Category, &e.Description, &created, &updated); err != nil {
		return nil, err
	}

	var err error
	if e.Date, err = time.Parse(timeLayout, date); err != nil {
		return nil, fmt.Errorf("parse date %q: %w", date, err)
	}
	if t, err := time.Parse(timeLayout, created); err == nil {
		e.CreatedAt = &t
	}
	if t, err := time.Parse(timeLayout, updated); err == nil {
		e.UpdatedAt = &t
	}
	return &e, nil
}

func orderBy(sort model.SortField, order model.SortOrder) string {
	dir := "ASC"
	if order == model.OrderDesc {
		dir = "DESC"
	}
	switch sort {
	case model.SortTitle:
		return "title COLLATE NOCASE " + dir + ", id " + dir
	case model.SortCreatedAt:
		return "created_at " + dir + ", id " + dir
	default:
		return "date " + dir + ", id " + dir
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
