package gnocchi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stackmeter/stackmeter/internal/filter"
	"github.com/stackmeter/stackmeter/internal/store"
)

func TestSearchResources(t *testing.T) {
	var gotPath, gotBody, gotToken string
	var gotQuery map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		gotToken = r.Header.Get("X-Auth-Token")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id": "res-1", "type": "instance"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithAuthToken("secret"))
	q := filter.Compare(filter.OpEqual, map[string]any{"type": "instance"})
	recs, err := c.SearchResources(context.Background(), "instance", q, store.SearchOptions{
		History: true,
		Limit:   1,
		Sorts:   []string{"revision_start:desc"},
	})
	if err != nil {
		t.Fatalf("SearchResources() error = %v", err)
	}

	if len(recs) != 1 || recs[0].ID() != "res-1" {
		t.Errorf("SearchResources() = %v, want one record with id res-1", recs)
	}
	if gotPath != "/v1/search/resource/instance" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody != `{"=":{"type":"instance"}}` {
		t.Errorf("body = %q", gotBody)
	}
	if gotToken != "secret" {
		t.Errorf("X-Auth-Token = %q, want secret", gotToken)
	}
	if got := gotQuery["history"]; len(got) != 1 || got[0] != "true" {
		t.Errorf("history param = %v", got)
	}
	if got := gotQuery["limit"]; len(got) != 1 || got[0] != "1" {
		t.Errorf("limit param = %v", got)
	}
	if got := gotQuery["sort"]; len(got) != 1 || got[0] != "revision_start:desc" {
		t.Errorf("sort param = %v", got)
	}
}

func TestSearchResourcesEmptyFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != "{}" {
			t.Errorf("body = %q, want {}", body)
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	recs, err := c.SearchResources(context.Background(), "generic", nil, store.SearchOptions{})
	if err != nil {
		t.Fatalf("SearchResources() error = %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("SearchResources() = %v, want empty", recs)
	}
}

func TestGetMeasures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/metric/m-1/measures" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("aggregation") != "max" {
			t.Errorf("aggregation = %q", q.Get("aggregation"))
		}
		if q.Get("start") == "" || q.Get("stop") == "" {
			t.Errorf("missing start/stop: %v", q)
		}
		w.Write([]byte(`[["2015-11-24T00:00:00+00:00", 86400.0, 64.0], ["2015-11-25T00:00:00+00:00", 86400.0, 32.0]]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	start := time.Date(2015, 11, 24, 0, 0, 0, 0, time.UTC)
	stop := start.Add(48 * time.Hour)
	measures, err := c.GetMeasures(context.Background(), "m-1", start, &stop, "max")
	if err != nil {
		t.Fatalf("GetMeasures() error = %v", err)
	}

	if len(measures) != 2 {
		t.Fatalf("GetMeasures() returned %d measures, want 2", len(measures))
	}
	if measures[0].Value != 64.0 {
		t.Errorf("first value = %v, want 64", measures[0].Value)
	}
	if measures[0].Granularity != 86400.0 {
		t.Errorf("granularity = %v, want 86400", measures[0].Granularity)
	}
}

func TestStoreErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "resource type not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.SearchResources(context.Background(), "missing", nil, store.SearchOptions{})
	if err == nil {
		t.Fatal("SearchResources() expected error")
	}

	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("error %v is not a *StoreError", err)
	}
	if storeErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", storeErr.StatusCode)
	}
}

func TestMeasuresJSONRoundTrip(t *testing.T) {
	// The wire format is positional; make sure our decode matches what a
	// store actually emits.
	raw := `[["2024-01-01T00:00:00+00:00", 3600.0, 2.0]]`
	var measures []store.Measure
	if err := json.Unmarshal([]byte(raw), &measures); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if measures[0].Value != 2.0 {
		t.Errorf("Value = %v, want 2", measures[0].Value)
	}
}
