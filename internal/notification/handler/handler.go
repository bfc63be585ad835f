package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"freshkeep/internal/http/shared"
	"freshkeep/internal/notification/models"
	"freshkeep/internal/platform/middleware"
	id "freshkeep/pkg/domain"
	dErrors "freshkeep/pkg/domain-errors"
)

// Service defines the notification operations the HTTP layer needs.
type Service interface {
	ListNotifications(ctx context.Context, userID id.UserID) ([]*models.NotificationRecord, error)
	MarkRead(ctx context.Context, notificationID id.NotificationID) error
	UnreadCount(ctx context.Context, userID id.UserID) (int, error)
	ListDeliveries(ctx context.Context, notificationID id.NotificationID) ([]*models.DeliveryLogEntry, error)
}

// Handler serves the notification history endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the notification routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/users/{userID}/notifications", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/unread-count", h.handleUnreadCount)
		r.Post("/{notificationID}/read", h.handleMarkRead)
		r.Get("/{notificationID}/deliveries", h.handleListDeliveries)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	records, err := h.service.ListNotifications(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list notifications",
			"request_id", middleware.GetRequestID(ctx),
			"user_id", userID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	out := make([]notificationResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toNotificationResponse(record))
	}
	shared.WriteJSON(w, http.StatusOK, listResponse{Notifications: out})
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	count, err := h.service.UnreadCount(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to count unread notifications",
			"request_id", middleware.GetRequestID(ctx),
			"user_id", userID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, unreadCountResponse{Unread: count})
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, err := id.ParseUserID(chi.URLParam(r, "userID")); err != nil {
		shared.WriteError(w, err)
		return
	}
	notificationID, err := id.ParseNotificationID(chi.URLParam(r, "notificationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.service.MarkRead(ctx, notificationID); err != nil {
		if !dErrors.Is(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "failed to mark notification read",
				"request_id", middleware.GetRequestID(ctx),
				"notification_id", notificationID.String(),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListDeliveries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, err := id.ParseUserID(chi.URLParam(r, "userID")); err != nil {
		shared.WriteError(w, err)
		return
	}
	notificationID, err := id.ParseNotificationID(chi.URLParam(r, "notificationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	entries, err := h.service.ListDeliveries(ctx, notificationID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list deliveries",
			"request_id", middleware.GetRequestID(ctx),
			"notification_id", notificationID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	out := make([]deliveryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toDeliveryResponse(entry))
	}
	shared.WriteJSON(w, http.StatusOK, deliveriesResponse{Deliveries: out})
}
