package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	bcmodels "smp/internal/businesscard/models"
	"smp/internal/owner"
	"smp/internal/platform/metrics"
	"smp/internal/platform/middleware"
	"smp/internal/smp/models"
	"smp/pkg/domain"
	dErrors "smp/pkg/domain-errors"
	"smp/pkg/platform/httputil"
)

// Service defines the publisher operations served over HTTP.
type Service interface {
	GetServiceGroup(ctx context.Context, participantURI string) (*models.ServiceGroupView, error)
	SaveServiceGroup(ctx context.Context, participantURI string, input models.ServiceGroupInput, creds owner.Credentials) (domain.Change, error)
	DeleteServiceGroup(ctx context.Context, participantURI string, creds owner.Credentials) (domain.Change, error)
	GetServiceRegistration(ctx context.Context, participantURI, docTypeURI string) (*models.RegistrationView, error)
	SaveServiceRegistration(ctx context.Context, participantURI, docTypeURI string, input models.RegistrationInput, creds owner.Credentials) (domain.MergeResult, error)
	DeleteServiceRegistration(ctx context.Context, participantURI, docTypeURI string, creds owner.Credentials) error
	GetCompleteServiceGroup(ctx context.Context, participantURI string) (*models.CompleteServiceGroupView, error)
	ListOwnedServiceGroups(ctx context.Context, userID string, creds owner.Credentials) (*models.OwnedServiceGroups, error)
	GetBusinessCard(ctx context.Context, participantURI string) (*bcmodels.BusinessCard, error)
	SaveBusinessCard(ctx context.Context, participantURI string, input models.BusinessCardInput, creds owner.Credentials) (domain.MergeResult, error)
	DeleteBusinessCard(ctx context.Context, participantURI string, creds owner.Credentials) error
}

const realm = "SMP"

// Handler serves the publisher REST surface.
type Handler struct {
	logger  *slog.Logger
	smp     Service
	metrics *metrics.Metrics
	timeout time.Duration
}

// New creates a new publisher Handler.
func New(smp Service, logger *slog.Logger, metrics *metrics.Metrics, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Handler{
		logger:  logger,
		smp:     smp,
		metrics: metrics,
		timeout: timeout,
	}
}

type changeResponse struct {
	Changed bool `json:"changed"`
}

type mergeResponse struct {
	Result string `json:"result"`
}

// Register registers the publisher routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	smpRouter := chi.NewRouter()
	smpRouter.Use(middleware.Recovery(h.logger))
	smpRouter.Use(middleware.RequestID)
	smpRouter.Use(middleware.RequestTime)
	smpRouter.Use(middleware.ClientMetadata)
	smpRouter.Use(middleware.Logger(h.logger))
	smpRouter.Use(chimiddleware.Timeout(h.timeout))
	smpRouter.Use(middleware.ContentTypeJSON)
	smpRouter.Use(middleware.Latency(h.metrics))

	requireAuth := middleware.RequireBasicAuth(realm, h.logger)

	smpRouter.Get("/complete/{participantId}", h.handleGetCompleteServiceGroup)
	smpRouter.With(requireAuth).Get("/list/{userId}", h.handleListOwnedServiceGroups)

	smpRouter.Get("/businesscard/{participantId}", h.handleGetBusinessCard)
	smpRouter.With(requireAuth).Put("/businesscard/{participantId}", h.handleSaveBusinessCard)
	smpRouter.With(requireAuth).Delete("/businesscard/{participantId}", h.handleDeleteBusinessCard)

	smpRouter.Get("/{participantId}", h.handleGetServiceGroup)
	smpRouter.With(requireAuth).Put("/{participantId}", h.handleSaveServiceGroup)
	smpRouter.With(requireAuth).Delete("/{participantId}", h.handleDeleteServiceGroup)

	smpRouter.Get("/{participantId}/services/{docTypeId}", h.handleGetServiceRegistration)
	smpRouter.With(requireAuth).Put("/{participantId}/services/{docTypeId}", h.handleSaveServiceRegistration)
	smpRouter.With(requireAuth).Delete("/{participantId}/services/{docTypeId}", h.handleDeleteServiceRegistration)

	r.Mount("/", smpRouter)
}

func (h *Handler) handleGetServiceGroup(w http.ResponseWriter, r *http.Request) {
	participant, ok := h.pathParam(w, r, "participantId")
	if !ok {
		return
	}
	view, err := h.smp.GetServiceGroup(r.Context(), participant)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleSaveServiceGroup(w http.ResponseWriter, r *http.Request) {
	participant, ok := h.pathParam(w, r, "participantId")
	if !ok {
		return
	}
	var input models.ServiceGroupInput
	if !h.decode(w, r, &input) {
		return
	}
	change, err := h.smp.SaveServiceGroup(r.Context(), participant, input, credentials(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, changeResponse{Changed: change.IsChanged()})
}

func (h *Handler) handleDeleteServiceGroup(w http.ResponseWriter, r *http.Request) {
	participant, ok := h.pathParam(w, r, "participantId")
	if !ok {
		return
	}
	change, err := h.smp.DeleteServiceGroup(r.Context(), participant, credentials(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, changeResponse{Changed: change.IsChanged()})
}

func (h *Handler) handleGetServiceRegistration(w http.ResponseWriter, r *http.Request) {
	participant, docType, ok := h.registrationParams(w, r)
	if !ok {
		return
	}
	view, err := h.smp.GetServiceRegistration(r.Context(), participant, docType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleSaveServiceRegistration(w http.ResponseWriter, r *http.Request) {
	participant, docType, ok := h.registrationParams(w, r)
	if !ok {
		return
	}
	var input models.RegistrationInput
	if !h.decode(w, r, &input) {
		return
	}
	result, err := h.smp.SaveServiceRegistration(r.Context(), participant, docType, input, credentials(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeMergeResult(w, result)
}

func (h *Handler) handleDeleteServiceRegistration(w http.ResponseWriter, r *http.Request) {
	participant, docType, ok := h.registrationParams(w, r)
	if !ok {
		return
	}
	if err := h.smp.DeleteServiceRegistration(r.Context(), participant, docType, credentials(r)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetCompleteServiceGroup(w http.ResponseWriter, r *http.Request) {
	participant, ok := h.pathParam(w, r, "participantId")
	if !ok {
		return
	}
	view, err := h.smp.GetCompleteServiceGroup(r.Context(), participant)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleListOwnedServiceGroups(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathParam(w, r, "userId")
	if !ok {
		return
	}
	owned, err := h.smp.ListOwnedServiceGroups(r.Context(), userID, credentials(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, owned)
}

func (h *Handler) handleGetBusinessCard(w http.ResponseWriter, r *http.Request) {
	participant, ok := h.pathParam(w, r, "participantId")
	if !ok {
		return
	}
	card, err := h.smp.GetBusinessCard(r.Context(), participant)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, card)
}

func (h *Handler) handleSaveBusinessCard(w http.ResponseWriter, r *http.Request) {
	participant, ok := h.pathParam(w, r, "participantId")
	if !ok {
		return
	}
	var input models.BusinessCardInput
	if !h.decode(w, r, &input) {
		return
	}
	result, err := h.smp.SaveBusinessCard(r.Context(), participant, input, credentials(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeMergeResult(w, result)
}

func (h *Handler) handleDeleteBusinessCard(w http.ResponseWriter, r *http.Request) {
	participant, ok := h.pathParam(w, r, "participantId")
	if !ok {
		return
	}
	if err := h.smp.DeleteBusinessCard(r.Context(), participant, credentials(r)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathParam returns the decoded value of a route parameter. chi matches on
// the escaped path when the request carries one, so values may still hold
// percent escapes such as %2F.
func (h *Handler) pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	raw := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return raw, true
	}
	value, err := url.PathUnescape(raw)
	if err != nil {
		h.logger.DebugContext(r.Context(), "malformed path parameter",
			"param", name,
			"request_id", middleware.GetRequestID(r),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed "+name))
		return "", false
	}
	return value, true
}

func (h *Handler) registrationParams(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	participant, ok := h.pathParam(w, r, "participantId")
	if !ok {
		return "", "", false
	}
	docType, ok := h.pathParam(w, r, "docTypeId")
	if !ok {
		return "", "", false
	}
	return participant, docType, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := httputil.DecodeJSON(r.Body, v); err != nil {
		h.logger.DebugContext(r.Context(), "invalid request body",
			"request_id", middleware.GetRequestID(r),
			"error", err,
		)
		httputil.WriteError(w, err)
		return false
	}
	return true
}

func credentials(r *http.Request) owner.Credentials {
	user, password, _ := r.BasicAuth()
	return owner.Credentials{UserName: user, Password: password}
}

func writeMergeResult(w http.ResponseWriter, result domain.MergeResult) {
	if result == domain.Created {
		httputil.WriteJSON(w, http.StatusCreated, mergeResponse{Result: "created"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, mergeResponse{Result: "updated"})
}
