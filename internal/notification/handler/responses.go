package handler

import (
	"time"

	"freshkeep/internal/notification/models"
)

type listResponse struct {
	Notifications []notificationResponse `json:"notifications"`
}

type notificationResponse struct {
	ID        string              `json:"id"`
	ItemID    *string             `json:"item_id,omitempty"`
	Kind      string              `json:"kind"`
	Title     string              `json:"title"`
	Message   string              `json:"message"`
	Snapshot  models.ItemSnapshot `json:"snapshot"`
	CreatedAt time.Time           `json:"created_at"`
	Read      bool                `json:"read"`
}

type unreadCountResponse struct {
	Unread int `json:"unread"`
}

type deliveriesResponse struct {
	Deliveries []deliveryResponse `json:"deliveries"`
}

type deliveryResponse struct {
	ID        string    `json:"id"`
	Channel   string    `json:"channel"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toNotificationResponse(record *models.NotificationRecord) notificationResponse {
	resp := notificationResponse{
		ID:        record.ID.String(),
		Kind:      string(record.Kind),
		Title:     record.Title,
		Message:   record.Message,
		Snapshot:  record.Snapshot,
		CreatedAt: record.CreatedAt,
		Read:      record.Read,
	}
	if record.ItemID != nil {
		itemID := record.ItemID.String()
		resp.ItemID = &itemID
	}
	return resp
}

func toDeliveryResponse(entry *models.DeliveryLogEntry) deliveryResponse {
	return deliveryResponse{
		ID:        entry.ID.String(),
		Channel:   entry.Channel,
		Status:    string(entry.Status),
		Detail:    entry.Detail,
		CreatedAt: entry.CreatedAt,
	}
}
