package memory

import (
	"context"
	"sync"
	"time"

	"github.com/YelzhanWeb/fieldops/internal/interfaces"
	"github.com/google/uuid"
)

const outboxLimit = 1000

// Outbox is a Dispatcher that keeps the most recent messages in memory
// instead of publishing them.
type Outbox struct {
	mu       sync.Mutex
	messages []interfaces.NotificationMessage
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

var _ interfaces.Dispatcher = (*Outbox)(nil)

func (o *Outbox) Send(_ context.Context, userID uuid.UUID, title, message, notificationType, relatedID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.messages = append(o.messages, interfaces.NotificationMessage{
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      notificationType,
		RelatedID: relatedID,
		Timestamp: time.Now().UTC(),
	})
	if len(o.messages) > outboxLimit {
		o.messages = append([]interfaces.NotificationMessage(nil), o.messages[len(o.messages)-outboxLimit:]...)
	}
	return nil
}

// Messages returns what was sent to userID, oldest first.
func (o *Outbox) Messages(userID uuid.UUID) []interfaces.NotificationMessage {
	o.mu.Lock()
	defer o.mu.Unlock()

	var out []interfaces.NotificationMessage
	for _, m := range o.messages {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out
}

func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.messages)
}
