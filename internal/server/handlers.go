package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/boothplan/pkg/alloc"
	errs "github.com/matzehuels/boothplan/pkg/errors"
	"github.com/matzehuels/boothplan/pkg/pipeline"
)

// allocateRequest is the body of POST /v1/allocations.
type allocateRequest struct {
	Projects []alloc.Demand `json:"projects"`

	// Refresh skips the result cache.
	Refresh bool `json:"refresh,omitempty"`
}

// floorPlanResponse describes the loaded plan and its derived grids.
type floorPlanResponse struct {
	Settings alloc.Options    `json:"settings"`
	Maps     []alloc.Map      `json:"maps"`
	Clusters []clusterSummary `json:"clusters"`
}

type clusterSummary struct {
	Name       string  `json:"name"`
	MapID      string  `json:"map"`
	Score      float64 `json:"score"`
	Columns    int     `json:"columns"`
	Rows       int     `json:"rows"`
	UnitPx     int     `json:"unit_px"`
	TotalUnits int     `json:"total_units"`
	Rotation   float64 `json:"rotation"`
}

type errorResponse struct {
	Code      errs.Code `json:"code,omitempty"`
	Error     string    `json:"error"`
	RequestID string    `json:"request_id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFloorPlan(w http.ResponseWriter, r *http.Request) {
	clusters, err := s.plan.BuildClusters()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := floorPlanResponse{
		Settings: s.plan.Options(),
		Maps:     s.plan.AllocMaps(),
		Clusters: make([]clusterSummary, len(clusters)),
	}
	for i, c := range clusters {
		resp.Clusters[i] = clusterSummary{
			Name:       c.Name(),
			MapID:      c.Map().ID,
			Score:      c.InitialScore(),
			Columns:    c.Columns(),
			Rows:       c.Rows(),
			UnitPx:     c.UnitPx(),
			TotalUnits: c.TotalUnits(),
			Rotation:   c.Rotation(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var req allocateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Code: errs.ErrCodeInvalidInput, Error: "request body too large"})
			return
		}
		s.writeError(w, r, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode request"))
		return
	}
	if len(req.Projects) == 0 {
		s.writeError(w, r, errs.New(errs.ErrCodeInvalidInput, "no projects"))
		return
	}

	res, err := s.runner.Run(r.Context(), s.plan.Input(req.Projects), pipeline.Options{
		Alloc:   s.plan.Options(),
		LockKey: s.lockKey,
		Refresh: req.Refresh,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("allocation served",
		"run", res.RunID, "placed", res.Stats.Placed, "skipped", res.Stats.Skipped, "cached", res.CacheHit)
	writeJSON(w, http.StatusOK, res)
}

// statusFor maps error codes to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errs.IsValidation(err):
		return http.StatusBadRequest
	case errs.Is(err, errs.ErrCodeLocked):
		return http.StatusConflict
	case errs.Is(err, errs.ErrCodeNotFound), errs.Is(err, errs.ErrCodeFileNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{
		Code:      errs.GetCode(err),
		Error:     errs.UserMessage(err),
		RequestID: middleware.GetReqID(r.Context()),
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "request_id", resp.RequestID, "err", err)
		resp.Error = "internal error"
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
