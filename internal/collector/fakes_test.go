package collector

import (
	"context"
	"time"

	"github.com/stackmeter/stackmeter/internal/filter"
	"github.com/stackmeter/stackmeter/internal/store"
)

type searchCall struct {
	kind string
	q    filter.Node
	opts store.SearchOptions
}

// fakeSearcher records every search and delegates responses to respond.
type fakeSearcher struct {
	calls   []searchCall
	respond func(kind string, q filter.Node, opts store.SearchOptions) ([]store.ResourceRecord, error)
}

func (f *fakeSearcher) SearchResources(_ context.Context, kind string, q filter.Node, opts store.SearchOptions) ([]store.ResourceRecord, error) {
	f.calls = append(f.calls, searchCall{kind: kind, q: q, opts: opts})
	if f.respond == nil {
		return nil, nil
	}
	return f.respond(kind, q, opts)
}

type measureCall struct {
	metricID    string
	aggregation string
}

// fakeMeasures serves canned measures per metric handle.
type fakeMeasures struct {
	calls   []measureCall
	byID    map[string][]store.Measure
	err     error
}

func (f *fakeMeasures) GetMeasures(_ context.Context, metricID string, _ time.Time, _ *time.Time, aggregation string) ([]store.Measure, error) {
	f.calls = append(f.calls, measureCall{metricID: metricID, aggregation: aggregation})
	if f.err != nil {
		return nil, f.err
	}
	return f.byID[metricID], nil
}

// findComparison walks a filter tree for the first comparison on field.
func findComparison(n filter.Node, field string) (filter.Comparison, bool) {
	switch v := n.(type) {
	case filter.Comparison:
		if v.Field == field {
			return v, true
		}
	case filter.Logical:
		for _, child := range v.Children {
			if c, ok := findComparison(child, field); ok {
				return c, true
			}
		}
	}
	return filter.Comparison{}, false
}
