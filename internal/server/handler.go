package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stackmeter/stackmeter/internal/collector"
	"github.com/stackmeter/stackmeter/internal/filter"
	"github.com/stackmeter/stackmeter/internal/transform"
	"github.com/stackmeter/stackmeter/internal/window"
)

// Retriever runs the collection pipeline for one resource and window.
type Retriever interface {
	Retrieve(ctx context.Context, resourceName string, w window.TimeWindow, projectID string, extra filter.Node) (transform.ServiceRecord, error)
}

// Archive persists collected service records.
type Archive interface {
	Save(ctx context.Context, rec transform.ServiceRecord, w window.TimeWindow, projectID string) (string, error)
}

// CollectHandler serves the collection API.
type CollectHandler struct {
	retriever Retriever
	archive   Archive
	logger    *slog.Logger
}

// NewCollectHandler builds the handler. archive may be nil, disabling
// persistence.
func NewCollectHandler(retriever Retriever, archive Archive, logger *slog.Logger) *CollectHandler {
	return &CollectHandler{retriever: retriever, archive: archive, logger: logger}
}

// Register mounts the collection routes.
func (h *CollectHandler) Register(r chi.Router) {
	r.Post("/v1/collect", h.handleCollect)
}

type collectRequest struct {
	Resource  string     `json:"resource"`
	Start     time.Time  `json:"start"`
	End       *time.Time `json:"end,omitempty"`
	ProjectID string     `json:"project_id,omitempty"`
}

type collectResponse struct {
	RecordID string                  `json:"record_id,omitempty"`
	Record   transform.ServiceRecord `json:"record"`
}

type errorResponse struct {
	Error    string `json:"error"`
	Resource string `json:"resource,omitempty"`
}

func (h *CollectHandler) handleCollect(w http.ResponseWriter, r *http.Request) {
	var req collectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if req.Resource == "" || req.Start.IsZero() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "resource and start are required"})
		return
	}

	tw := window.TimeWindow{Start: req.Start, End: req.End}
	rec, err := h.retriever.Retrieve(r.Context(), req.Resource, tw, req.ProjectID, nil)
	if err != nil {
		var noData *collector.NoDataCollected
		if errors.As(err, &noData) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Resource: noData.Resource})
			return
		}
		h.logger.Error("collection failed",
			slog.String("resource", req.Resource),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error(), Resource: req.Resource})
		return
	}

	resp := collectResponse{Record: rec}
	if h.archive != nil {
		id, err := h.archive.Save(r.Context(), rec, tw, req.ProjectID)
		if err != nil {
			// Collection succeeded; a failed archive write must not fail
			// the call.
			h.logger.Error("archive write failed",
				slog.String("resource", req.Resource),
				slog.String("error", err.Error()),
			)
		} else {
			resp.RecordID = id
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
