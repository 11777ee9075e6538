package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/YelzhanWeb/fieldops/internal/interfaces"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const NotificationsExchange = "notifications_fanout"

// Dispatcher publishes one message per recipient to the notifications
// fanout exchange. Delivery is at most once.
type Dispatcher struct {
	conn Connection
	now  func() time.Time
}

func NewDispatcher(conn Connection) *Dispatcher {
	return &Dispatcher{conn: conn, now: func() time.Time { return time.Now().UTC() }}
}

var _ interfaces.Dispatcher = (*Dispatcher)(nil)

func (d *Dispatcher) Send(ctx context.Context, userID uuid.UUID, title, message, notificationType, relatedID string) error {
	msg := interfaces.NotificationMessage{
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      notificationType,
		RelatedID: relatedID,
		Timestamp: d.now(),
	}
	return d.publish(ctx, msg)
}

func (d *Dispatcher) publish(ctx context.Context, msg interfaces.NotificationMessage) error {
	ch, err := d.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(NotificationsExchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = ch.PublishWithContext(ctx, NotificationsExchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   uuid.NewString(),
		Timestamp:   msg.Timestamp,
		Type:        msg.Type,
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}
