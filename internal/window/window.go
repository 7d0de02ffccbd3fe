// Package window resolves billing time windows into the validity
// constraints that select matching resources from the remote store.
package window

import (
	"time"

	"github.com/stackmeter/stackmeter/internal/filter"
)

// TimeWindow is the half-open interval a collection run covers. A nil End
// means "current state": no historical upper bound is applied.
type TimeWindow struct {
	Start time.Time
	End   *time.Time
}

// Span returns a window over [start, end].
func Span(start, end time.Time) TimeWindow {
	return TimeWindow{Start: start, End: &end}
}

// From returns an open-ended window starting at start.
func From(start time.Time) TimeWindow {
	return TimeWindow{Start: start}
}

// TimeFilter builds the constraint set selecting resources whose validity
// interval intersects the window. Resources may still be active (unset
// ended_at) or closed historical intervals, so every bound on ended_at is
// OR-ed with "ended_at is unset":
//
//   - always: ended_at unset OR ended_at >= start
//   - with an end bound: ended_at unset OR ended_at <= end,
//     and started_at <= end
//   - with an end bound and withRevision: revision_start <= end, pinning
//     the revision effective at or before the window's end
//
// The returned nodes are meant to be AND-ed together by the caller along
// with identity and project constraints.
func TimeFilter(w TimeWindow, withRevision bool) []filter.Node {
	nodes := []filter.Node{
		filter.Combine(filter.Or,
			filter.Compare(filter.OpEqual, map[string]any{"ended_at": nil}),
			filter.Compare(filter.OpGE, map[string]any{"ended_at": w.Start}),
		),
	}
	if w.End == nil {
		return nodes
	}
	nodes = append(nodes,
		filter.Combine(filter.Or,
			filter.Compare(filter.OpEqual, map[string]any{"ended_at": nil}),
			filter.Compare(filter.OpLE, map[string]any{"ended_at": *w.End}),
		),
		filter.Compare(filter.OpLE, map[string]any{"started_at": *w.End}),
	)
	if withRevision {
		nodes = append(nodes,
			filter.Compare(filter.OpLE, map[string]any{"revision_start": *w.End}),
		)
	}
	return nodes
}
