package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"freshkeep/internal/http/shared"
	"freshkeep/internal/platform/middleware"
	"freshkeep/internal/preference/models"
	"freshkeep/internal/preference/service"
	id "freshkeep/pkg/domain"
	dErrors "freshkeep/pkg/domain-errors"
)

// Service defines the preference operations the HTTP layer needs.
type Service interface {
	Resolve(ctx context.Context, userID id.UserID) (*models.NotificationPreference, error)
	Update(ctx context.Context, userID id.UserID, params service.UpdateParams) (*models.NotificationPreference, error)
}

// Handler serves the notification preference endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register mounts the preference routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/users/{userID}/preferences", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Put("/", h.handleUpdate)
	})
}

type preferenceRequest struct {
	EmailEnabled bool `json:"email_enabled"`
	LeadDays     int  `json:"lead_days"`
	PhoneEnabled bool `json:"phone_enabled"`
}

type preferenceResponse struct {
	UserID       string    `json:"user_id"`
	EmailEnabled bool      `json:"email_enabled"`
	LeadDays     int       `json:"lead_days"`
	PhoneEnabled bool      `json:"phone_enabled"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toResponse(pref *models.NotificationPreference) preferenceResponse {
	return preferenceResponse{
		UserID:       pref.UserID.String(),
		EmailEnabled: pref.EmailEnabled,
		LeadDays:     pref.LeadDays,
		PhoneEnabled: pref.PhoneEnabled,
		UpdatedAt:    pref.UpdatedAt,
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	pref, err := h.service.Resolve(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to resolve preferences",
			"request_id", middleware.GetRequestID(ctx),
			"user_id", userID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, toResponse(pref))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req preferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	pref, err := h.service.Update(ctx, userID, service.UpdateParams{
		EmailEnabled: req.EmailEnabled,
		LeadDays:     req.LeadDays,
		PhoneEnabled: req.PhoneEnabled,
	})
	if err != nil {
		if !dErrors.Is(err, dErrors.CodeValidation) {
			h.logger.ErrorContext(ctx, "failed to update preferences",
				"request_id", middleware.GetRequestID(ctx),
				"user_id", userID.String(),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, toResponse(pref))
}
