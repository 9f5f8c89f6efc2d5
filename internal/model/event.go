package model

import "time"

type Event struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Date        time.Time  `json:"date"`
	Location    string     `json:"location"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// UpsertEventDto is the create/update payload. Date is an RFC3339 string.
type UpsertEventDto struct {
	Title       string `json:"title" validate:"required,max=120"`
	Category    string `json:"category" validate:"required"`
	Location    string `json:"location" validate:"required"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Description string `json:"description" validate:"required,max=500"`
}

// FormValues seeds the edit form from an existing event.
type FormValues struct {
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Location    string    `json:"location"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
}

func FormValuesFrom(e Event) FormValues {
	return FormValues{
		Title:       e.Title,
		Category:    e.Category,
		Location:    e.Location,
		Date:        e.Date,
		Description: e.Description,
	}
}
