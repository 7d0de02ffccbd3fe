// Package transform reshapes raw store snapshots into billing-ready
// records: attribute stripping, canonical item formatting, and service
// record packaging.
package transform

import (
	"github.com/cockroachdb/apd/v3"

	"github.com/stackmeter/stackmeter/internal/store"
)

// baseFields are kept for every resource type.
var baseFields = []string{"id", "project_id", "user_id", "metrics"}

// typeFields lists the billing-relevant attributes per resource type,
// including the metric-derived fields the expander folds into the record.
var typeFields = map[string][]string{
	"compute": {
		"name", "flavor_id", "flavor_name", "availability_zone",
		"vcpus", "memory", "cpu", "disk.root.size", "disk.ephemeral.size",
	},
	"image": {
		"container_format", "disk_format",
		"image.size", "image.download", "image.serve",
	},
	"volume": {
		"display_name", "volume_type",
		"volume.size",
	},
	"network.bw.out": {"name", "network.outgoing.bytes"},
	"network.bw.in":  {"name", "network.incoming.bytes"},
}

// Strip reduces a raw snapshot to its billing-relevant attribute set. The
// store's "id" is renamed to "resource_id" so downstream storage can
// correlate items back to the source resource. Unmapped resource types
// keep their full attribute set.
func Strip(resourceType string, rec store.ResourceRecord) store.ResourceRecord {
	fields, ok := typeFields[resourceType]
	if !ok {
		out := make(store.ResourceRecord, len(rec))
		for k, v := range rec {
			out[k] = v
		}
		rename(out)
		return out
	}

	out := make(store.ResourceRecord, len(fields)+len(baseFields))
	for _, k := range baseFields {
		if v, present := rec[k]; present {
			out[k] = v
		}
	}
	for _, k := range fields {
		if v, present := rec[k]; present {
			out[k] = v
		}
	}
	rename(out)
	return out
}

func rename(rec store.ResourceRecord) {
	if id, ok := rec["id"]; ok {
		rec["resource_id"] = id
		delete(rec, "id")
	}
}

// CanonicalItem is one billing-ready record: descriptive attributes plus
// a quantity in a canonical unit. Immutable after creation.
type CanonicalItem struct {
	ResourceID string         `json:"resource_id"`
	Desc       map[string]any `json:"desc"`
	Unit       string         `json:"unit"`
	Qty        *apd.Decimal   `json:"qty"`
}

// FormatItem builds a canonical item from a stripped record. The record's
// resource_id is lifted to the item level for storage correlation.
func FormatItem(desc map[string]any, unit string, qty *apd.Decimal) CanonicalItem {
	item := CanonicalItem{Desc: desc, Unit: unit, Qty: qty}
	if id, ok := desc["resource_id"].(string); ok {
		item.ResourceID = id
	}
	return item
}

// ServiceRecord groups the items collected for one billable service over
// a window.
type ServiceRecord struct {
	Service string          `json:"service"`
	Items   []CanonicalItem `json:"items"`
}

// FormatService packages items into a per-service record.
func FormatService(resourceName string, items []CanonicalItem) ServiceRecord {
	return ServiceRecord{Service: resourceName, Items: items}
}
