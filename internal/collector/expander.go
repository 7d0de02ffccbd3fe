package collector

import (
	"context"
	"fmt"

	"github.com/stackmeter/stackmeter/internal/store"
	"github.com/stackmeter/stackmeter/internal/window"
)

// Expander attaches aggregated metric values to resolved snapshots.
type Expander struct {
	measures store.MeasureFetcher
}

// NewExpander builds an expander around a measure fetch interface.
func NewExpander(measures store.MeasureFetcher) *Expander {
	return &Expander{measures: measures}
}

// Expand folds each configured metric into the records as a top-level
// field, taking the first data point of the aggregation over the window.
// Records are mutated in place.
//
// A resource without a handle for a metric name never had that metric:
// the field stays absent. A resource whose handle yields no data points
// had the metric but nothing in the window: the field is set to an
// explicit nil so the two cases stay distinguishable. Any other fetch
// failure aborts the expansion.
func (e *Expander) Expand(ctx context.Context, recs []store.ResourceRecord, specs []MetricSpec, w window.TimeWindow) error {
	for _, rec := range recs {
		handles := rec.Metrics()
		for _, spec := range specs {
			handle, ok := handles[spec.Name]
			if !ok {
				continue
			}
			measures, err := e.measures.GetMeasures(ctx, handle, w.Start, w.End, spec.Aggregation)
			if err != nil {
				return fmt.Errorf("get measures for metric %q of resource %q: %w", spec.Name, rec.ID(), err)
			}
			if len(measures) == 0 {
				rec[spec.Name] = nil
				continue
			}
			rec[spec.Name] = measures[0].Value
		}
	}
	return nil
}
