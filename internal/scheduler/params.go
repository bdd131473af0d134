package scheduler

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// SortType is a sortable column.
type SortType string

const (
	SortByID        SortType = "id"
	SortByEpoch     SortType = "epoch"
	SortByTimestamp SortType = "timestamp"
)

// ParseSortType validates a column name. The empty string means unsorted.
func ParseSortType(s string) (SortType, error) {
	switch SortType(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return "", nil
	case SortByID:
		return SortByID, nil
	case SortByEpoch:
		return SortByEpoch, nil
	case SortByTimestamp:
		return SortByTimestamp, nil
	default:
		return "", fmt.Errorf("unknown sort column %q (expected id, epoch or timestamp)", s)
	}
}

// SortOrder is a sort direction.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// ParseSortOrder validates a direction. The empty string means unset.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return "", nil
	case Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	default:
		return "", fmt.Errorf("unknown sort order %q (expected asc or desc)", s)
	}
}

// DefaultMax is the result limit applied when the caller did not choose one.
const DefaultMax = 300

// SearchParams is the wire form of a search. Zero values are absent.
type SearchParams struct {
	SchedulerName string
	ScheduleID    string
	EpochFrom     int64
	EpochTo       int64
	Sort          SortType
	SortOrder     SortOrder
	Max           int
}

// Query encodes the params as url values, omitting absent ones. The scheduler
// name is not part of the query: it is templated into the path.
func (p SearchParams) Query() url.Values {
	q := url.Values{}
	if p.ScheduleID != "" {
		q.Set("schedule-id", p.ScheduleID)
	}
	if p.Sort != "" {
		order := p.SortOrder
		if order == "" {
			order = Asc
		}
		q.Set("sort-by", string(p.Sort)+" "+string(order))
	}
	if p.EpochFrom != 0 {
		q.Set("epoch-from", strconv.FormatInt(p.EpochFrom, 10))
	}
	if p.EpochTo != 0 {
		q.Set("epoch-to", strconv.FormatInt(p.EpochTo, 10))
	}
	if p.Max > 0 {
		q.Set("max", strconv.Itoa(p.Max))
	}
	return q
}

// Key identifies the request the params produce; two params with the same
// key issue the same request.
func (p SearchParams) Key() string {
	return url.PathEscape(p.SchedulerName) + "?" + p.Query().Encode()
}
