// Package store defines the contract with the remote metric/resource
// store: the record and measure types it returns, and the narrow search
// interfaces the collector pipeline consumes. Transport implementations
// live in subpackages.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stackmeter/stackmeter/internal/filter"
)

// ResourceRecord is one resource snapshot as returned by the store. The
// attribute set is schema-less; typed accessors cover the fields the
// pipeline relies on. The metric expander mutates records in place,
// replacing metric handles with resolved values under the same keys.
type ResourceRecord map[string]any

// ID returns the store's resource identifier.
func (r ResourceRecord) ID() string {
	id, _ := r["id"].(string)
	return id
}

// ProjectID returns the owning project, if present.
func (r ResourceRecord) ProjectID() string {
	id, _ := r["project_id"].(string)
	return id
}

// Metrics returns the metric-name to metric-handle map attached to the
// snapshot. Absent or malformed entries are skipped.
func (r ResourceRecord) Metrics() map[string]string {
	raw, ok := r["metrics"].(map[string]any)
	if !ok {
		return nil
	}
	handles := make(map[string]string, len(raw))
	for name, v := range raw {
		if handle, ok := v.(string); ok {
			handles[name] = handle
		}
	}
	return handles
}

// Measure is one aggregated data point of a metric time series.
type Measure struct {
	Timestamp   time.Time
	Granularity float64
	Value       float64
}

// UnmarshalJSON decodes the store's wire form, a three-element array:
// ["2015-11-24T00:00:00+00:00", 86400.0, 64.0].
func (m *Measure) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("decode measure: %w", err)
	}
	if len(tuple) != 3 {
		return fmt.Errorf("decode measure: got %d elements, want 3", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &m.Timestamp); err != nil {
		return fmt.Errorf("decode measure timestamp: %w", err)
	}
	if err := json.Unmarshal(tuple[1], &m.Granularity); err != nil {
		return fmt.Errorf("decode measure granularity: %w", err)
	}
	if err := json.Unmarshal(tuple[2], &m.Value); err != nil {
		return fmt.Errorf("decode measure value: %w", err)
	}
	return nil
}

// SearchOptions tune a resource search. The zero value is a plain
// current-state search.
type SearchOptions struct {
	// History includes historical revisions in the result set.
	History bool
	// Limit caps the number of returned rows. Zero means no limit.
	Limit int
	// Sorts lists sort directives, e.g. "revision_start:desc".
	Sorts []string
}

// ResourceSearcher searches resources of a given kind matching a filter.
// A nil filter matches everything.
type ResourceSearcher interface {
	SearchResources(ctx context.Context, kind string, q filter.Node, opts SearchOptions) ([]ResourceRecord, error)
}

// MeasureFetcher retrieves aggregated measures of a metric over a time
// range. A nil stop means "up to now". The most relevant point comes
// first in the result.
type MeasureFetcher interface {
	GetMeasures(ctx context.Context, metricID string, start time.Time, stop *time.Time, aggregation string) ([]Measure, error)
}
