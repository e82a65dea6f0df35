package registry

import (
	"fmt"
	"strings"
)

// Filter selects one of the categorized projections of the registration list.
type Filter string

const (
	FilterAll      Filter = "all"
	FilterActive   Filter = "active"
	FilterInactive Filter = "inactive"
)

// ParseFilter maps an empty string to FilterAll.
func ParseFilter(raw string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(raw))); f {
	case "", FilterAll:
		return FilterAll, nil
	case FilterActive, FilterInactive:
		return f, nil
	default:
		return "", fmt.Errorf("unknown filter %q", raw)
	}
}

// View returns the registrations matching f in their original order. The result is
// never nil, so an empty projection is distinguishable from a list that was never loaded.
func View(models []RegisteredModel, f Filter) []RegisteredModel {
	out := make([]RegisteredModel, 0, len(models))
	for _, m := range models {
		if f.matches(m) {
			out = append(out, m)
		}
	}
	return out
}

func (f Filter) matches(m RegisteredModel) bool {
	switch f {
	case FilterActive:
		return m.Status == StatusActive
	case FilterInactive:
		return m.Status == StatusInactive
	default:
		return true
	}
}

// Categories holds the three projections displayed side by side.
type Categories struct {
	All      []RegisteredModel `json:"all"`
	Active   []RegisteredModel `json:"active"`
	Inactive []RegisteredModel `json:"inactive"`
}

// Categorize derives all three projections in one pass.
func Categorize(models []RegisteredModel) Categories {
	return Categories{
		All:      View(models, FilterAll),
		Active:   View(models, FilterActive),
		Inactive: View(models, FilterInactive),
	}
}
