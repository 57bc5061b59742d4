package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kyclens/internal/domain"
	"kyclens/internal/export"
	"kyclens/internal/lookup"
	"kyclens/internal/reconcile"
	"kyclens/pkg/platform/httputil"
)

// Service defines the lookup operations the handler exposes.
type Service interface {
	Identity(ctx context.Context, rawKey string) (domain.Identity, error)
	Search(ctx context.Context, term string) ([]domain.Identity, error)
	Round(ctx context.Context, roundID string) (*lookup.RoundStatus, error)
	All(ctx context.Context) ([]domain.Identity, error)
	Refresh(ctx context.Context) (*reconcile.View, error)
}

// ProjectLister supplies the project registry for the export endpoint.
type ProjectLister interface {
	Projects(ctx context.Context) ([]domain.Project, error)
}

// Handler wires lookup endpoints to the lookup service.
type Handler struct {
	service  Service
	projects ProjectLister
	logger   *slog.Logger
}

// New constructs a lookup handler with its dependencies.
func New(service Service, projects ProjectLister, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		projects: projects,
		logger:   logger,
	}
}

// Register mounts lookup endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/identities/search", h.HandleSearch)
	r.Get("/api/identities/export", h.HandleExport)
	r.Get("/api/identities/{key}", h.HandleIdentity)
	r.Get("/api/rounds/{roundID}/status", h.HandleRoundStatus)
	r.Post("/api/refresh", h.HandleRefresh)
}

// HandleIdentity handles GET /api/identities/{key} requests.
func (h *Handler) HandleIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := chi.URLParam(r, "key")

	id, err := h.service.Identity(ctx, key)
	if err != nil {
		h.logger.WarnContext(ctx, "identity lookup failed",
			"key", key,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromIdentity(id))
}

// HandleSearch handles GET /api/identities/search?q= requests.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query().Get("q")

	matches, err := h.service.Search(ctx, query)
	if err != nil {
		h.logger.WarnContext(ctx, "identity search failed",
			"query", query,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSearch(query, matches))
}

// HandleRoundStatus handles GET /api/rounds/{roundID}/status requests.
func (h *Handler) HandleRoundStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roundID := chi.URLParam(r, "roundID")

	rs, err := h.service.Round(ctx, roundID)
	if err != nil {
		h.logger.WarnContext(ctx, "round status failed",
			"round_id", roundID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRound(rs))
}

// HandleRefresh handles POST /api/refresh requests.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	view, err := h.service.Refresh(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "refresh failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "refresh completed",
		"cycle_id", view.CycleID,
		"identities", len(view.Identities),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromView(view))
}

// HandleExport handles GET /api/identities/export requests, streaming the
// xlsx workbook.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identities, err := h.service.All(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "export failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	var projects []domain.Project
	if h.projects != nil {
		projects, err = h.projects.Projects(ctx)
		if err != nil {
			h.logger.ErrorContext(ctx, "export failed", "error", err)
			httputil.WriteError(w, err)
			return
		}
	}

	data, err := export.Workbook(identities, projects)
	if err != nil {
		h.logger.ErrorContext(ctx, "workbook build failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	filename := fmt.Sprintf("identities-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
