package collector

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/stackmeter/stackmeter/internal/store"
	"github.com/stackmeter/stackmeter/internal/transform"
)

// Normalizer converts expanded snapshots into canonical billing items.
type Normalizer struct {
	units map[string]UnitsEntry
}

// NewNormalizer builds a normalizer around a units mapping table.
func NewNormalizer(units map[string]UnitsEntry) *Normalizer {
	return &Normalizer{units: units}
}

// Normalize strips each record down to its billing attributes, resolves
// the quantity from the units table, and emits one canonical item per
// snapshot. The metrics handle map is dropped: its values were already
// folded into top-level fields by the expander.
//
// A units entry naming a quantity field that is missing from the record
// is a configuration defect and surfaces as an error.
func (n *Normalizer) Normalize(resourceType string, recs []store.ResourceRecord) ([]transform.CanonicalItem, error) {
	entry, ok := n.units[resourceType]
	if !ok {
		entry = DefaultUnit
	}

	items := make([]transform.CanonicalItem, 0, len(recs))
	for _, rec := range recs {
		data := transform.Strip(resourceType, rec)
		delete(data, "metrics")

		qty, err := n.quantity(entry, data)
		if err != nil {
			return nil, fmt.Errorf("resource %q: %w", data["resource_id"], err)
		}
		items = append(items, transform.FormatItem(data, entry.Unit, qty))
	}
	return items, nil
}

func (n *Normalizer) quantity(entry UnitsEntry, data store.ResourceRecord) (*apd.Decimal, error) {
	if entry.QtyField == "" {
		return apd.New(entry.Qty, 0), nil
	}
	v, ok := data[entry.QtyField]
	if !ok {
		return nil, fmt.Errorf("quantity field %q missing from record", entry.QtyField)
	}
	return toDecimal(entry.QtyField, v)
}

func toDecimal(field string, v any) (*apd.Decimal, error) {
	d := new(apd.Decimal)
	switch val := v.(type) {
	case float64:
		if _, err := d.SetFloat64(val); err != nil {
			return nil, fmt.Errorf("quantity field %q: %w", field, err)
		}
		return d, nil
	case int:
		return d.SetInt64(int64(val)), nil
	case int64:
		return d.SetInt64(val), nil
	case string:
		if _, _, err := d.SetString(val); err != nil {
			return nil, fmt.Errorf("quantity field %q: %w", field, err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("quantity field %q has unusable value %v (%T)", field, v, v)
	}
}
