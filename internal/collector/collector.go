// Package collector implements the metering pipeline: resolve the
// resources valid during a billing window, expand their aggregated metric
// values, and normalize the result into canonical billing items.
package collector

import (
	"context"
	"log/slog"
	"strings"

	"github.com/stackmeter/stackmeter/internal/filter"
	"github.com/stackmeter/stackmeter/internal/store"
	"github.com/stackmeter/stackmeter/internal/transform"
	"github.com/stackmeter/stackmeter/internal/window"
)

// Name identifies this collector in errors and stored records.
const Name = "gnocchi"

// Collector sequences the retrieval pipeline for one remote store.
// Instances hold only read-only tables and are safe for concurrent use.
type Collector struct {
	resolver   *Resolver
	expander   *Expander
	normalizer *Normalizer
	metrics    map[string][]MetricSpec
	logger     *slog.Logger
}

// New wires a collector from the store interfaces and mapping tables.
func New(searcher store.ResourceSearcher, measures store.MeasureFetcher, m Mappings, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		resolver:   NewResolver(searcher, m.Types),
		expander:   NewExpander(measures),
		normalizer: NewNormalizer(m.Units),
		metrics:    m.Metrics,
		logger:     logger,
	}
}

// Retrieve runs the full pipeline for one resource over one window and
// packages the result as a service record. Resource names may use the
// caller-facing underscore form; they are translated to the internal
// dotted form. An empty collection fails with *NoDataCollected.
func (c *Collector) Retrieve(ctx context.Context, resourceName string, w window.TimeWindow, projectID string, extra filter.Node) (transform.ServiceRecord, error) {
	name := strings.ReplaceAll(resourceName, "_", ".")

	recs, err := c.resolver.Resolve(ctx, Query{
		ResourceType: name,
		Window:       w,
		ProjectID:    projectID,
		Extra:        extra,
	})
	if err != nil {
		return transform.ServiceRecord{}, err
	}

	if err := c.expander.Expand(ctx, recs, c.metrics[name], w); err != nil {
		return transform.ServiceRecord{}, err
	}

	items, err := c.normalizer.Normalize(name, recs)
	if err != nil {
		return transform.ServiceRecord{}, err
	}
	if len(items) == 0 {
		return transform.ServiceRecord{}, &NoDataCollected{Collector: Name, Resource: name}
	}

	c.logger.Debug("collected resource window",
		slog.String("resource", name),
		slog.Int("items", len(items)),
	)
	return transform.FormatService(name, items), nil
}
