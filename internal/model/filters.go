package model

import (
	"fmt"
	"time"
)

type SortField string

const (
	SortDate      SortField = "date"
	SortCreatedAt SortField = "createdAt"
	SortTitle     SortField = "title"
)

func (s SortField) Valid() bool {
	switch s {
	case SortDate, SortCreatedAt, SortTitle:
		return true
	}
	return false
}

type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

func (o SortOrder) Valid() bool {
	return o == OrderAsc || o == OrderDesc
}

// EventsQuery is the list query sent to the events API. Empty fields are
// not sent.
type EventsQuery struct {
	Category string    `json:"category,omitempty"`
	DateFrom string    `json:"dateFrom,omitempty"`
	DateTo   string    `json:"dateTo,omitempty"`
	Sort     SortField `json:"sort,omitempty"`
	Order    SortOrder `json:"order,omitempty"`
}

// FiltersState is the filter bar state. An empty Category means all
// categories; nil dates mean no bound.
type FiltersState struct {
	Category  string     `json:"category"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
	Sort      SortField  `json:"sort"`
	Order     SortOrder  `json:"order"`
}

func DefaultFilters() FiltersState {
	return FiltersState{Sort: SortDate, Order: OrderAsc}
}

func (f FiltersState) Validate() error {
	if !f.Sort.Valid() {
		return fmt.Errorf("invalid sort %q", f.Sort)
	}
	if !f.Order.Valid() {
		return fmt.Errorf("invalid order %q", f.Order)
	}
	return nil
}
