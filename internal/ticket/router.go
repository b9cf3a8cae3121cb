// Package ticket routes order lines to preparation stations and renders
// kitchen tickets and customer bills for ESC/POS printers.
package ticket

import (
	"slices"

	"restopos/backend/internal/domain"
)

type Routed struct {
	Kitchen []domain.CartItem `json:"kitchen"`
	Bar     []domain.CartItem `json:"bar"`
}

func (r Routed) For(station domain.Station) []domain.CartItem {
	if station == domain.StationBar {
		return r.Bar
	}
	return r.Kitchen
}

// RouteItems splits items by the category snapshot on each line. Lines whose
// category is assigned to neither station are left out of both.
func RouteItems(items []domain.CartItem, assignments domain.StationAssignments) Routed {
	routed := Routed{Kitchen: []domain.CartItem{}, Bar: []domain.CartItem{}}
	for _, item := range items {
		if slices.Contains(assignments.Kitchen, item.MenuItem.Category) {
			routed.Kitchen = append(routed.Kitchen, item)
		}
		if slices.Contains(assignments.Bar, item.MenuItem.Category) {
			routed.Bar = append(routed.Bar, item)
		}
	}
	return routed
}

// Unrouted lists the categories present in items that no station prepares.
func Unrouted(items []domain.CartItem, assignments domain.StationAssignments) []string {
	var out []string
	for _, item := range items {
		category := item.MenuItem.Category
		if slices.Contains(assignments.Kitchen, category) || slices.Contains(assignments.Bar, category) {
			continue
		}
		if !slices.Contains(out, category) {
			out = append(out, category)
		}
	}
	return out
}
