package search

import (
	"fmt"

	"schedadmin/internal/scheduler"
)

// ToggleSort returns the actions for a click on column: re-selecting the
// active column flips the direction, any other column starts ascending.
func ToggleSort(m Model, column scheduler.SortType) ([]Action, error) {
	if column == "" {
		return nil, fmt.Errorf("sort column is required")
	}
	order := scheduler.Asc
	if m.Sort == column && m.SortOrder != scheduler.Desc {
		order = scheduler.Desc
	}
	return []Action{SortChanged{Sort: column}, SortOrderChanged{Order: order}}, nil
}
