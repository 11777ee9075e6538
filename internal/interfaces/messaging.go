package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Сообщения RabbitMQ
type NotificationMessage struct {
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	RelatedID string    `json:"related_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Dispatcher delivers a notification to one user. Callers treat it as
// fire-and-forget.
type Dispatcher interface {
	Send(ctx context.Context, userID uuid.UUID, title, message, notificationType, relatedID string) error
}

type MessageConsumer interface {
	ConsumeNotifications(ctx context.Context, handler NotificationHandler) error
}

type NotificationHandler func(ctx context.Context, body []byte) error
