package collector

// MetricSpec names a metric to expand onto resolved resources and the
// aggregation applied to its samples.
type MetricSpec struct {
	Name        string
	Aggregation string
}

// UnitsEntry describes how a resource type's quantity is derived: a
// static count, or an attribute read from the stripped record when
// QtyField is set.
type UnitsEntry struct {
	QtyField string
	Qty      int64
	Unit     string
}

// DefaultUnit applies to resource types without a units mapping.
var DefaultUnit = UnitsEntry{Qty: 1, Unit: "unknown"}

// Mappings are the per-resource-type tables driving the pipeline. They
// are read-only after construction and shared by reference across the
// resolver, expander, and normalizer.
type Mappings struct {
	// Types translates caller-facing resource types to the store's
	// internal type names. Unmapped names pass through unchanged.
	Types map[string]string
	// Metrics lists the metrics expanded per resource type.
	Metrics map[string][]MetricSpec
	// Units maps resource types to their canonical unit descriptor.
	Units map[string]UnitsEntry
}

// DefaultMappings returns the built-in tables for the standard OpenStack
// billable resource types.
func DefaultMappings() Mappings {
	return Mappings{
		Types: map[string]string{
			"compute":        "instance",
			"image":          "image",
			"volume":         "volume",
			"network.bw.out": "instance_network_interface",
			"network.bw.in":  "instance_network_interface",
		},
		Metrics: map[string][]MetricSpec{
			"compute": {
				{Name: "vcpus", Aggregation: "max"},
				{Name: "memory", Aggregation: "max"},
				{Name: "cpu", Aggregation: "max"},
				{Name: "disk.root.size", Aggregation: "max"},
				{Name: "disk.ephemeral.size", Aggregation: "max"},
			},
			"image": {
				{Name: "image.size", Aggregation: "max"},
				{Name: "image.download", Aggregation: "max"},
				{Name: "image.serve", Aggregation: "max"},
			},
			"volume": {
				{Name: "volume.size", Aggregation: "max"},
			},
			"network.bw.out": {
				{Name: "network.outgoing.bytes", Aggregation: "max"},
			},
			"network.bw.in": {
				{Name: "network.incoming.bytes", Aggregation: "max"},
			},
		},
		Units: map[string]UnitsEntry{
			"compute":        {Qty: 1, Unit: "instance"},
			"image":          {QtyField: "image.size", Unit: "MB"},
			"volume":         {QtyField: "volume.size", Unit: "GB"},
			"network.bw.out": {QtyField: "network.outgoing.bytes", Unit: "MB"},
			"network.bw.in":  {QtyField: "network.incoming.bytes", Unit: "MB"},
		},
	}
}
