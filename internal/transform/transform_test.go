package transform

import (
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackmeter/stackmeter/internal/store"
)

func TestStrip(t *testing.T) {
	t.Run("compute keeps billing fields only", func(t *testing.T) {
		rec := store.ResourceRecord{
			"id":             "res-1",
			"project_id":     "proj-1",
			"vcpus":          2.0,
			"memory":         2048.0,
			"revision_start": "2024-01-01T00:00:00Z",
			"revision_end":   nil,
			"created_by":     "someone",
		}

		got := Strip("compute", rec)

		assert.Equal(t, "res-1", got["resource_id"])
		assert.Equal(t, "proj-1", got["project_id"])
		assert.Equal(t, 2.0, got["vcpus"])
		assert.NotContains(t, got, "id")
		assert.NotContains(t, got, "revision_start")
		assert.NotContains(t, got, "revision_end")
		assert.NotContains(t, got, "created_by")
	})

	t.Run("unmapped type keeps everything", func(t *testing.T) {
		rec := store.ResourceRecord{"id": "res-2", "anything": "goes"}

		got := Strip("custom.type", rec)

		assert.Equal(t, "res-2", got["resource_id"])
		assert.Equal(t, "goes", got["anything"])
		assert.NotContains(t, got, "id")
	})

	t.Run("does not mutate the input", func(t *testing.T) {
		rec := store.ResourceRecord{"id": "res-3", "vcpus": 1.0}
		Strip("compute", rec)
		assert.Equal(t, "res-3", rec["id"])
	})
}

func TestFormatItem(t *testing.T) {
	qty := apd.New(1, 0)
	desc := map[string]any{"resource_id": "res-1", "vcpus": 2.0}

	item := FormatItem(desc, "instance", qty)

	require.Equal(t, "res-1", item.ResourceID)
	assert.Equal(t, "instance", item.Unit)
	assert.Zero(t, item.Qty.Cmp(apd.New(1, 0)))
	assert.Equal(t, desc, item.Desc)
}

func TestFormatService(t *testing.T) {
	items := []CanonicalItem{{ResourceID: "res-1", Unit: "instance"}}

	rec := FormatService("compute", items)

	assert.Equal(t, "compute", rec.Service)
	assert.Len(t, rec.Items, 1)
}
