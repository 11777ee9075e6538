package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/YelzhanWeb/fieldops/internal/adapter/logger"
	"github.com/YelzhanWeb/fieldops/internal/interfaces"
	amqp "github.com/rabbitmq/amqp091-go"
)

const reconnectDelay = 5 * time.Second

type consumer struct {
	conn   Connection
	logger logger.Logger
}

func NewConsumer(conn Connection, logger logger.Logger) interfaces.MessageConsumer {
	return &consumer{conn: conn, logger: logger}
}

// ConsumeNotifications blocks until ctx is cancelled, re-subscribing after
// channel failures.
func (c *consumer) ConsumeNotifications(ctx context.Context, handler interfaces.NotificationHandler) error {
	for {
		err := c.consumeNotifications(ctx, handler)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil || errors.Is(err, ErrConnectionClosed) {
			return err
		}

		c.logger.Warn("consumer_disconnected", "Notifications consumer disconnected, reconnecting", "", map[string]interface{}{
			"error":       err.Error(),
			"retry_after": reconnectDelay.String(),
		})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (c *consumer) consumeNotifications(ctx context.Context, handler interfaces.NotificationHandler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	dropped := ch.NotifyClose()
	queue, deliveries, err := subscribe(ch)
	if err != nil {
		return err
	}

	c.logger.Info("consumer_started", "Listening for notifications", "", map[string]interface{}{
		"queue":    queue,
		"exchange": NotificationsExchange,
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-dropped:
			if amqpErr == nil {
				return errors.New("notifications channel closed by broker")
			}
			return fmt.Errorf("notifications channel closed: %w", amqpErr)
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("notifications delivery stream ended")
			}
			// auto-acked, so a rejected message is gone
			if err := handler(ctx, d.Body); err != nil {
				c.logger.Warn("notification_dropped", "Notification could not be handled", "", map[string]interface{}{
					"message_id": d.MessageId,
					"error":      err.Error(),
				})
			}
		}
	}
}

// subscribe binds a fresh exclusive queue to the fanout so every
// subscriber process sees every notification.
func subscribe(ch Channel) (string, <-chan amqp.Delivery, error) {
	if err := ch.ExchangeDeclare(NotificationsExchange, "fanout", true, false, false, false, nil); err != nil {
		return "", nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", NotificationsExchange, false, nil); err != nil {
		return "", nil, fmt.Errorf("failed to bind queue: %w", err)
	}
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to start consuming: %w", err)
	}
	return q.Name, deliveries, nil
}
