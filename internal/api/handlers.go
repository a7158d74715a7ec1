package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/cadence/internal/backup"
	"github.com/hyperengineering/cadence/internal/exchange"
	"github.com/hyperengineering/cadence/internal/service"
	"github.com/hyperengineering/cadence/internal/types"
	"github.com/hyperengineering/cadence/internal/validation"
)

const (
	maxBodyBytes   = 1 << 20
	maxImportBytes = 16 << 20
)

// Handler implements the API handlers
type Handler struct {
	tracker  *service.Tracker
	uploader backup.Uploader
	apiKey   string
	version  string
	backend  string
}

// NewHandler creates a Handler. A nil uploader behaves as unconfigured.
func NewHandler(t *service.Tracker, u backup.Uploader, apiKey, version, backend string) *Handler {
	if u == nil {
		u = backup.NoopUploader{}
	}
	return &Handler{
		tracker:  t,
		uploader: u,
		apiKey:   apiKey,
		version:  version,
		backend:  backend,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// decodeJSON reads a size-limited JSON body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return false
	}
	return true
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Backend:   h.backend,
		GoalCount: h.tracker.GoalCount(),
	})
}

// ListGoals handles GET /api/v1/goals
//
// Query: archived=true includes archived goals, root=true lists only
// top-level goals, category and parent narrow further.
func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := service.GoalFilter{
		IncludeArchived: q.Get("archived") == "true",
		RootOnly:        q.Get("root") == "true",
		Category:        q.Get("category"),
	}
	if v := q.Get("parent"); v != "" {
		id, err := parseID(v)
		if err != nil {
			WriteProblem(w, r, http.StatusBadRequest, "Invalid parent id")
			return
		}
		f.ParentID = &id
	}
	writeJSON(w, http.StatusOK, h.tracker.Goals(f))
}

// CreateGoal handles POST /api/v1/goals
func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var req types.NewGoal
	if !decodeJSON(w, r, &req) {
		return
	}
	g, err := h.tracker.AddGoal(r.Context(), req)
	if err != nil {
		MapServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/v1/goals/%d", g.ID))
	writeJSON(w, http.StatusCreated, g)
}

// GetGoal handles GET /api/v1/goals/{id}
func (h *Handler) GetGoal(w http.ResponseWriter, r *http.Request) {
	st, err := h.tracker.GoalStatus(MustGoalIDFromContext(r.Context()))
	if err != nil {
		MapServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// EditGoal handles PATCH /api/v1/goals/{id}
func (h *Handler) EditGoal(w http.ResponseWriter, r *http.Request) {
	var req types.GoalPatch
	if !decodeJSON(w, r, &req) {
		return
	}
	h.respondGoal(w, r)(h.tracker.EditGoal(r.Context(), MustGoalIDFromContext(r.Context()), req))
}

// DeleteGoal handles DELETE /api/v1/goals/{id}
func (h *Handler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	removed, err := h.tracker.DeleteGoal(r.Context(), MustGoalIDFromContext(r.Context()))
	if err != nil {
		MapServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]int64{"deleted": removed})
}

// UpdateProgress handles POST /api/v1/goals/{id}/progress
func (h *Handler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	var req types.ProgressRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := validation.ValidateProgressRequest(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	id := MustGoalIDFromContext(r.Context())
	if req.Current != nil {
		h.respondGoal(w, r)(h.tracker.UpdateProgress(r.Context(), id, *req.Current))
		return
	}
	h.respondGoal(w, r)(h.tracker.IncrementProgress(r.Context(), id, *req.Delta))
}

// FinishGoal handles POST /api/v1/goals/{id}/finish
func (h *Handler) FinishGoal(w http.ResponseWriter, r *http.Request) {
	h.respondGoal(w, r)(h.tracker.FinishGoal(r.Context(), MustGoalIDFromContext(r.Context())))
}

// PauseGoal handles POST /api/v1/goals/{id}/pause
func (h *Handler) PauseGoal(w http.ResponseWriter, r *http.Request) {
	h.respondGoal(w, r)(h.tracker.PauseGoal(r.Context(), MustGoalIDFromContext(r.Context())))
}

// ResumeGoal handles POST /api/v1/goals/{id}/resume
func (h *Handler) ResumeGoal(w http.ResponseWriter, r *http.Request) {
	h.respondGoal(w, r)(h.tracker.ResumeGoal(r.Context(), MustGoalIDFromContext(r.Context())))
}

// ArchiveGoal handles POST /api/v1/goals/{id}/archive
func (h *Handler) ArchiveGoal(w http.ResponseWriter, r *http.Request) {
	h.respondGoal(w, r)(h.tracker.ArchiveGoal(r.Context(), MustGoalIDFromContext(r.Context())))
}

// UnarchiveGoal handles POST /api/v1/goals/{id}/unarchive
func (h *Handler) UnarchiveGoal(w http.ResponseWriter, r *http.Request) {
	h.respondGoal(w, r)(h.tracker.UnarchiveGoal(r.Context(), MustGoalIDFromContext(r.Context())))
}

// respondGoal writes the goal, or maps the error.
func (h *Handler) respondGoal(w http.ResponseWriter, r *http.Request) func(types.Goal, error) {
	return func(g types.Goal, err error) {
		if err != nil {
			MapServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

// AddDependency handles PUT /api/v1/goals/{id}/dependencies/{depID}
func (h *Handler) AddDependency(w http.ResponseWriter, r *http.Request) {
	h.changeDependency(w, r, h.tracker.AddDependency)
}

// RemoveDependency handles DELETE /api/v1/goals/{id}/dependencies/{depID}
func (h *Handler) RemoveDependency(w http.ResponseWriter, r *http.Request) {
	h.changeDependency(w, r, h.tracker.RemoveDependency)
}

func (h *Handler) changeDependency(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id, depID int64) (types.GoalStatus, error)) {
	depID, err := parseID(chi.URLParam(r, "depID"))
	if err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "Invalid dependency id")
		return
	}
	st, err := op(r.Context(), MustGoalIDFromContext(r.Context()), depID)
	if err != nil {
		MapServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Refresh handles POST /api/v1/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	res, err := h.tracker.Refresh(r.Context())
	if err != nil {
		MapServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Stats handles GET /api/v1/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.Stats())
}

// Achievements handles GET /api/v1/achievements
func (h *Handler) Achievements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.Achievements())
}

// Points handles GET /api/v1/points
func (h *Handler) Points(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.Points())
}

// ListRewards handles GET /api/v1/rewards
func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.Rewards())
}

// CreateReward handles POST /api/v1/rewards
func (h *Handler) CreateReward(w http.ResponseWriter, r *http.Request) {
	var req types.NewReward
	if !decodeJSON(w, r, &req) {
		return
	}
	rw, err := h.tracker.AddReward(r.Context(), req)
	if err != nil {
		MapServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rw)
}

// DeleteReward handles DELETE /api/v1/rewards/{rewardID}
func (h *Handler) DeleteReward(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.DeleteReward(r.Context(), chi.URLParam(r, "rewardID")); err != nil {
		MapServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RedeemReward handles POST /api/v1/rewards/{rewardID}/redeem
func (h *Handler) RedeemReward(w http.ResponseWriter, r *http.Request) {
	rw, err := h.tracker.RedeemReward(r.Context(), chi.URLParam(r, "rewardID"))
	if err != nil {
		MapServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rw)
}

// Export handles GET /api/v1/export
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	doc := h.tracker.Export()
	name := "cadence-" + doc.ExportedAt.Format("20060102-150405") + ".json"
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := exchange.Encode(w, doc); err != nil {
		slog.Error("export encode failed", "component", "api", "error", err)
	}
}

// Import handles POST /api/v1/import. The body is an export document or a
// bare array of goals; it replaces all goals and rewards.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	doc, err := exchange.Decode(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		if errors.Is(err, exchange.ErrInvalidDocument) {
			MapServiceError(w, r, err)
			return
		}
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}
	res, err := h.tracker.Import(r.Context(), doc)
	if err != nil {
		MapServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// BackupURLResponse carries a pre-signed link to the latest export backup.
type BackupURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// BackupURL handles GET /api/v1/backup/url
func (h *Handler) BackupURL(w http.ResponseWriter, r *http.Request) {
	u, expiry, err := h.uploader.PresignedURL(r.Context())
	if err != nil {
		MapServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BackupURLResponse{URL: u, ExpiresAt: expiry.UTC()})
}
