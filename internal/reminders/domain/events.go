package domain

import (
	"time"

	"github.com/google/uuid"
	sharedDomain "github.com/jurzon/backy/internal/shared/domain"
)

const aggregateType = "Reminder"

// RoutingKeyNotificationRequested is published when a reminder is handed
// to an external transport.
const RoutingKeyNotificationRequested = "reminders.notification.requested"

// NotificationRequested asks an external transport to notify a user.
type NotificationRequested struct {
	sharedDomain.BaseEvent
	NotificationID uuid.UUID `json:"notification_id"`
	UserID         uuid.UUID `json:"user_id"`
	Channel        string    `json:"channel"`
	Subject        string    `json:"subject"`
	Body           string    `json:"body"`
}

// NewNotificationRequested creates a NotificationRequested event.
func NewNotificationRequested(userID uuid.UUID, channel, subject, body string, now time.Time) *NotificationRequested {
	id := uuid.New()
	return &NotificationRequested{
		BaseEvent:      sharedDomain.NewBaseEvent(id, aggregateType, RoutingKeyNotificationRequested, now),
		NotificationID: id,
		UserID:         userID,
		Channel:        channel,
		Subject:        subject,
		Body:           body,
	}
}
