// internal/models/notification.go
package models

import "time"

// Notification is an in-app alert row written by the notification executor.
type Notification struct {
	ID               int64     `json:"id"`
	UserID           string    `json:"userId"`
	Title            string    `json:"title"`
	Message          string    `json:"message"`
	NotificationType string    `json:"type"`
	ActionURL        string    `json:"actionUrl,omitempty"`
	IsRead           bool      `json:"isRead"`
	CreatedAt        time.Time `json:"createdAt"`
}
