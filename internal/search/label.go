package search

import "fmt"

// View is the mutually exclusive presentation of a search.
type View string

const (
	ViewLoading   View = "loading"
	ViewError     View = "error"
	ViewNoResults View = "no-results"
	ViewTable     View = "table"
)

// View picks what the page shows.
func (s State) View() View {
	switch {
	case s.IsLoading:
		return ViewLoading
	case s.Err != nil:
		return ViewError
	case s.Result == nil || len(s.Result.Schedules) == 0:
		return ViewNoResults
	default:
		return ViewTable
	}
}

// Label is the result count line. It tells apart a search that has not run,
// one that matched nothing, and a truncated result set.
func (s State) Label() string {
	if !s.Searched || s.Result == nil {
		return "no search performed"
	}
	found, shown := s.Result.Found, len(s.Result.Schedules)
	switch {
	case found == 0:
		return "no schedule found"
	case shown < found:
		return fmt.Sprintf("%d result(s) (limited result %d)", found, shown)
	default:
		return fmt.Sprintf("%d result(s)", found)
	}
}
