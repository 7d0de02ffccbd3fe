package collector

import (
	"context"

	"github.com/stackmeter/stackmeter/internal/filter"
	"github.com/stackmeter/stackmeter/internal/store"
	"github.com/stackmeter/stackmeter/internal/window"
)

// genericKind is the store's type-agnostic resource kind, used for the
// current-set search of a range resolution.
const genericKind = "generic"

// Query describes one resolution request. ResourceID selects a single
// resource; without it the whole type is resolved. ReverseRevision flips
// the revision sort direction and only matters when ResourceID is set.
type Query struct {
	ResourceType    string
	Window          window.TimeWindow
	ResourceID      string
	ProjectID       string
	ReverseRevision bool
	Extra           filter.Node
}

// Resolver turns a time window into point-in-time resource snapshots.
// Range resolution first finds the identifiers of matching resources,
// then resolves the authoritative revision of each one as of the window.
type Resolver struct {
	searcher store.ResourceSearcher
	types    map[string]string
}

// NewResolver builds a resolver around a store search interface and a
// resource-type translation table.
func NewResolver(searcher store.ResourceSearcher, types map[string]string) *Resolver {
	return &Resolver{searcher: searcher, types: types}
}

// Resolve returns the resource snapshots matching the query. An empty
// result is a valid outcome, not an error.
//
// In single-snapshot mode (ResourceID set, or no window end) the search is
// limited to the one revision whose effective start is closest to, but not
// after, the window's end. If that search comes back empty the revision
// sort is flipped once and the search retried: the resource's first
// revision may start after the nominal window start, for instance when the
// resource was created mid-window. Emptiness of the first search is the
// fallback trigger; exactly one retry is ever made.
func (r *Resolver) Resolve(ctx context.Context, q Query) ([]store.ResourceRecord, error) {
	mapped := q.ResourceType
	if internal, ok := r.types[q.ResourceType]; ok {
		mapped = internal
	}

	single := q.ResourceID != "" || q.Window.End == nil

	recs, err := r.search(ctx, mapped, q)
	if err != nil {
		return nil, err
	}

	if single {
		if len(recs) == 0 && !q.ReverseRevision {
			// Reverse fallback searches forward from the earliest
			// revision instead of backward from the latest. The retried
			// query already carries ReverseRevision, so a second empty
			// result ends the resolution.
			return r.search(ctx, mapped, Query{
				ResourceType:    mapped,
				Window:          q.Window,
				ResourceID:      q.ResourceID,
				ReverseRevision: true,
			})
		}
		return recs, nil
	}

	// Range expansion: the current-set search only yields identifiers;
	// resolve the authoritative snapshot of each one for the same window.
	result := make([]store.ResourceRecord, 0, len(recs))
	for _, rec := range recs {
		snaps, err := r.Resolve(ctx, Query{
			ResourceType: mapped,
			Window:       q.Window,
			ResourceID:   rec.ID(),
		})
		if err != nil {
			return nil, err
		}
		if len(snaps) == 0 {
			continue
		}
		result = append(result, snaps[0])
	}
	return result, nil
}

// search issues one store search for the query against the given mapped
// type name.
func (r *Resolver) search(ctx context.Context, mapped string, q Query) ([]store.ResourceRecord, error) {
	withRevision := q.ResourceID != "" && !q.ReverseRevision
	parts := window.TimeFilter(q.Window, withRevision)

	if q.ResourceID != "" {
		parts = append(parts, filter.Compare(filter.OpEqual, map[string]any{"id": q.ResourceID}))
	} else {
		parts = append(parts, filter.Compare(filter.OpEqual, map[string]any{"type": mapped}))
	}
	if q.ProjectID != "" {
		parts = append(parts, filter.Compare(filter.OpEqual, map[string]any{"project_id": q.ProjectID}))
	}
	if q.Extra != nil {
		parts = append(parts, q.Extra)
	}

	var opts store.SearchOptions
	if q.ResourceID != "" {
		sort := "revision_start:desc"
		if q.ReverseRevision {
			sort = "revision_start:asc"
		}
		opts = store.SearchOptions{History: true, Limit: 1, Sorts: []string{sort}}
	}

	kind := mapped
	if q.Window.End != nil && q.ResourceID == "" {
		// Current set only: identifiers of everything that matched during
		// the window, without details or history.
		kind = genericKind
	}

	return r.searcher.SearchResources(ctx, kind, filter.Combine(filter.And, parts...), opts)
}
