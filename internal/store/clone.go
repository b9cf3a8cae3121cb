package store

import "restopos/backend/internal/domain"

func CloneOrder(src domain.Order) domain.Order {
	dup := src
	dup.Items = make([]domain.CartItem, len(src.Items))
	copy(dup.Items, src.Items)
	dup.Discounts = make([]domain.Discount, len(src.Discounts))
	copy(dup.Discounts, src.Discounts)
	if src.Customer != nil {
		customer := *src.Customer
		dup.Customer = &customer
	}
	if src.FinalizedAt != nil {
		at := *src.FinalizedAt
		dup.FinalizedAt = &at
	}
	return dup
}

func CloneMenuItem(src domain.MenuItem) domain.MenuItem {
	dup := src
	if src.CommonNotes != nil {
		dup.CommonNotes = append([]string(nil), src.CommonNotes...)
	}
	return dup
}

func CloneSettings(src domain.Settings) domain.Settings {
	dup := src
	dup.CommonNotes = append([]string{}, src.CommonNotes...)
	dup.StationAssignments.Kitchen = append([]string{}, src.StationAssignments.Kitchen...)
	dup.StationAssignments.Bar = append([]string{}, src.StationAssignments.Bar...)
	return dup
}

// RenameInAssignments replaces a category name in both station lists.
func RenameInAssignments(a domain.StationAssignments, oldName string, newName string) domain.StationAssignments {
	rename := func(names []string) []string {
		out := make([]string, len(names))
		for i, name := range names {
			if name == oldName {
				name = newName
			}
			out[i] = name
		}
		return out
	}
	return domain.StationAssignments{Kitchen: rename(a.Kitchen), Bar: rename(a.Bar)}
}

// RemoveFromAssignments drops a category name from both station lists.
func RemoveFromAssignments(a domain.StationAssignments, name string) domain.StationAssignments {
	remove := func(names []string) []string {
		out := make([]string, 0, len(names))
		for _, n := range names {
			if n != name {
				out = append(out, n)
			}
		}
		return out
	}
	return domain.StationAssignments{Kitchen: remove(a.Kitchen), Bar: remove(a.Bar)}
}

// RenameInOrder rewrites the category snapshot of every line of an open order.
func RenameInOrder(o domain.Order, oldName string, newName string) (domain.Order, bool) {
	if !o.Status.Open() {
		return o, false
	}
	changed := false
	for i := range o.Items {
		if o.Items[i].MenuItem.Category == oldName {
			o.Items[i].MenuItem.Category = newName
			changed = true
		}
	}
	return o, changed
}
