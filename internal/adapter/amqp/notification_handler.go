package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/YelzhanWeb/fieldops/internal/adapter/logger"
	"github.com/YelzhanWeb/fieldops/internal/interfaces"
	"github.com/google/uuid"
)

// NotificationHandler is the subscriber side of the notifications fanout:
// it decodes each message and prints one line per delivery to out.
type NotificationHandler struct {
	logger logger.Logger
	mu     sync.Mutex
	out    io.Writer
}

func NewNotificationHandler(logger logger.Logger, out io.Writer) *NotificationHandler {
	return &NotificationHandler{
		logger: logger,
		out:    out,
	}
}

func (h *NotificationHandler) HandleNotification(ctx context.Context, body []byte) error {
	var msg interfaces.NotificationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse notification", "", nil, err)
		return err
	}
	if msg.UserID == uuid.Nil || msg.Title == "" {
		err := errors.New("notification without recipient or title")
		h.logger.Warn("message_invalid", "Dropping malformed notification", "", map[string]interface{}{
			"related_id": msg.RelatedID,
		})
		return err
	}

	h.logger.Debug("notification_received", "Received notification", msg.RelatedID, map[string]interface{}{
		"user_id": msg.UserID,
		"type":    msg.Type,
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintf(h.out, "[%s] %s -> %s: %s\n",
		msg.Timestamp.Format("2006-01-02 15:04:05"), msg.Title, msg.UserID, msg.Message)
	return err
}
