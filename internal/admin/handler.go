// Package admin serves the operator routes: entity statistics and a reload
// of the owner seed file.
package admin

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"smp/internal/platform/middleware"
	dErrors "smp/pkg/domain-errors"
	"smp/pkg/platform/httputil"
	adminmw "smp/pkg/platform/middleware/admin"
)

// Counter is implemented by every registry.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// UserSource reloads the owner seed.
type UserSource interface {
	Reload(path string) error
	Len() int
}

// CredentialCache drops cached credential verifications.
type CredentialCache interface {
	Forget()
}

type Handler struct {
	counters  map[string]Counter
	users     UserSource
	usersFile string
	cache     CredentialCache
	logger    *slog.Logger
}

// New creates the admin Handler. users may be nil when no seed file is configured.
func New(counters map[string]Counter, users UserSource, usersFile string, cache CredentialCache, logger *slog.Logger) *Handler {
	return &Handler{
		counters:  counters,
		users:     users,
		usersFile: usersFile,
		cache:     cache,
		logger:    logger,
	}
}

// Register mounts the admin routes under /admin, guarded by token.
func (h *Handler) Register(r chi.Router, token string) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(adminmw.RequireAdminToken(token, h.logger))
		r.Get("/stats", h.handleStats)
		r.Post("/users/reload", h.handleReloadUsers)
	})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := StatsResponse{Counts: make(map[string]int, len(h.counters))}
	for name, c := range h.counters {
		n, err := c.Count(ctx)
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to count entities",
				"entity", name,
				"request_id", middleware.GetRequestID(r),
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}
		resp.Counts[name] = n
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleReloadUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil || h.usersFile == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no users file is configured"))
		return
	}
	if err := h.users.Reload(h.usersFile); err != nil {
		h.logger.ErrorContext(ctx, "failed to reload users",
			"path", h.usersFile,
			"request_id", middleware.GetRequestID(r),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reload users"))
		return
	}
	if h.cache != nil {
		h.cache.Forget()
	}
	h.logger.InfoContext(ctx, "users reloaded", "users", h.users.Len())
	httputil.WriteJSON(w, http.StatusOK, ReloadResponse{Users: h.users.Len()})
}
