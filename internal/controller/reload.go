package controller

import (
	"context"
	"slices"

	"github.com/dukerupert/ems/internal/api"
	"github.com/dukerupert/ems/internal/model"
	"github.com/dukerupert/ems/internal/query"
)

// SetFilters replaces the filters and restarts the debounce timer.
func (c *Controller) SetFilters(f model.FiltersState) {
	c.mutate(func() bool {
		c.state.Filters = f
		c.scheduleLocked()
		return true
	})
}

// ResetFilters restores the default filters.
func (c *Controller) ResetFilters() {
	c.SetFilters(model.DefaultFilters())
}

func (c *Controller) scheduleLocked() {
	if c.closed {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.debounceSeq++
	seq := c.debounceSeq
	c.timer = c.afterFunc(c.debounce, func() { c.fire(seq) })
}

// fire runs the debounced reload unless a later change superseded seq.
func (c *Controller) fire(seq uint64) {
	c.mu.Lock()
	if c.closed || seq != c.debounceSeq {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	ctx := c.ctx
	c.mu.Unlock()

	c.Reload(ctx)
}

// Reload fetches the list for the current filters and the category
// universe for the same query without its category. Results from a reload
// that has been superseded by a newer one are dropped.
func (c *Controller) Reload(ctx context.Context) {
	var (
		gen uint64
		q   model.EventsQuery
	)
	c.mutate(func() bool {
		c.generation++
		gen = c.generation
		c.state.Loading = true
		c.state.Error = ""
		q = query.Build(c.state.Filters)
		return true
	})
	c.logger.Debug("reload", "generation", gen, "query", q)

	defer c.mutate(func() bool {
		if c.generation != gen {
			return false
		}
		c.state.Loading = false
		return true
	})

	events, err := c.api.ListEvents(ctx, q)
	if !c.applyIfCurrent(gen, func() {
		if err != nil {
			c.state.Error = api.Message(err)
			return
		}
		c.state.Events = events
	}) {
		c.logger.Debug("drop stale events", "generation", gen)
		return
	}
	if err != nil {
		c.logger.Warn("load events", "generation", gen, "error", err)
		return
	}

	all, err := c.api.ListEvents(ctx, query.WithoutCategory(q))
	if !c.applyIfCurrent(gen, func() {
		if err != nil {
			c.state.Error = api.Message(err)
			return
		}
		c.state.Categories = categoriesOf(all)
	}) {
		c.logger.Debug("drop stale categories", "generation", gen)
		return
	}
	if err != nil {
		c.logger.Warn("load categories", "generation", gen, "error", err)
	}
}

// applyIfCurrent runs fn and reports true only if gen is still the latest
// reload generation.
func (c *Controller) applyIfCurrent(gen uint64, fn func()) bool {
	current := false
	c.mutate(func() bool {
		if c.generation != gen {
			return false
		}
		current = true
		fn()
		return true
	})
	return current
}

// categoriesOf returns the sorted distinct non-empty categories of events.
func categoriesOf(events []model.Event) []string {
	seen := make(map[string]struct{}, len(events))
	out := make([]string, 0, len(events))
	for _, e := range events {
		if e.Category == "" {
			continue
		}
		if _, ok := seen[e.Category]; ok {
			continue
		}
		seen[e.Category] = struct{}{}
		out = append(out, e.Category)
	}
	slices.Sort(out)
	return out
}
