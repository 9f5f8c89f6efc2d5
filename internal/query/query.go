// Package query maps filter bar state to events API list queries.
package query

import (
	"net/url"

	"github.com/dukerupert/ems/internal/model"
)

const dateLayout = "2006-01-02"

// Build derives the list query for the given filters. Sort and order are
// always set; category and date bounds only when present.
func Build(f model.FiltersState) model.EventsQuery {
	q := model.EventsQuery{
		Sort:  f.Sort,
		Order: f.Order,
	}
	if f.Category != "" {
		q.Category = f.Category
	}
	if f.StartDate != nil {
		q.DateFrom = f.StartDate.Format(dateLayout)
	}
	if f.EndDate != nil {
		q.DateTo = f.EndDate.Format(dateLayout)
	}
	return q
}

// WithoutCategory returns q with the category constraint removed.
func WithoutCategory(q model.EventsQuery) model.EventsQuery {
	q.Category = ""
	return q
}

// Values encodes the non-empty fields of q as URL query parameters.
func Values(q model.EventsQuery) url.Values {
	v := url.Values{}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.DateFrom != "" {
		v.Set("dateFrom", q.DateFrom)
	}
	if q.DateTo != "" {
		v.Set("dateTo", q.DateTo)
	}
	if q.Sort != "" {
		v.Set("sort", string(q.Sort))
	}
	if q.Order != "" {
		v.Set("order", string(q.Order))
	}
	return v
}
