package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	// Rate limiter for DELETE operations: 100 deletes max, refill 1 per 100ms
	deleteRateLimiter := NewDeleteRateLimiter(100, 100*time.Millisecond)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.apiKey))

			r.Get("/goals", h.ListGoals)
			r.Post("/goals", h.CreateGoal)
			r.Route("/goals/{id}", func(r chi.Router) {
				r.Use(GoalIDMiddleware)
				r.Get("/", h.GetGoal)
				r.Patch("/", h.EditGoal)
				r.With(deleteRateLimiter.Middleware).Delete("/", h.DeleteGoal)
				r.Post("/progress", h.UpdateProgress)
				r.Post("/finish", h.FinishGoal)
				r.Post("/pause", h.PauseGoal)
				r.Post("/resume", h.ResumeGoal)
				r.Post("/archive", h.ArchiveGoal)
				r.Post("/unarchive", h.UnarchiveGoal)
				r.Put("/dependencies/{depID}", h.AddDependency)
				r.Delete("/dependencies/{depID}", h.RemoveDependency)
			})

			r.Post("/refresh", h.Refresh)
			r.Get("/stats", h.Stats)
			r.Get("/achievements", h.Achievements)
			r.Get("/points", h.Points)

			r.Get("/rewards", h.ListRewards)
			r.Post("/rewards", h.CreateReward)
			r.Route("/rewards/{rewardID}", func(r chi.Router) {
				r.Use(RewardIDMiddleware)
				r.With(deleteRateLimiter.Middleware).Delete("/", h.DeleteReward)
				r.Post("/redeem", h.RedeemReward)
			})

			r.Get("/export", h.Export)
			r.Post("/import", h.Import)
			r.Get("/backup/url", h.BackupURL)
		})
	})

	return r
}
