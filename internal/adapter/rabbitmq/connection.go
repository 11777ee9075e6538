package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/YelzhanWeb/fieldops/internal/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	heartbeat      = 10 * time.Second
	connectionName = "fieldops"
)

var ErrConnectionClosed = errors.New("rabbitmq connection is closed")

// Connection hands out channels over a broker connection that is redialed
// when it drops.
type Connection interface {
	Channel() (Channel, error)
	Close() error
}

// Channel is the part of an AMQP channel the dispatcher and the subscriber use.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	NotifyClose() <-chan *amqp.Error
	Close() error
}

type Queue struct {
	Name string
}

type broker struct {
	url    string
	amqp   amqp.Config
	mu     sync.Mutex
	conn   *amqp.Connection
	closed bool
}

func Connect(cfg config.RabbitMQConfig) (Connection, error) {
	props := amqp.NewConnectionProperties()
	props.SetClientConnectionName(connectionName)

	b := &broker{
		url:  cfg.URL(),
		amqp: amqp.Config{Heartbeat: heartbeat, Properties: props},
	}
	if err := b.dial(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *broker) dial() error {
	conn, err := amqp.DialConfig(b.url, b.amqp)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	b.conn = conn
	return nil
}

// Channel opens a channel, redialing first if the broker dropped us.
func (b *broker) Channel() (Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrConnectionClosed
	}
	if b.conn == nil || b.conn.IsClosed() {
		if err := b.dial(); err != nil {
			return nil, err
		}
	}

	ch, err := b.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return channel{ch}, nil
}

func (b *broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	if b.conn == nil || b.conn.IsClosed() {
		return nil
	}
	return b.conn.Close()
}

// channel adapts *amqp.Channel; everything not redefined here is promoted.
type channel struct {
	*amqp.Channel
}

func (c channel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (Queue, error) {
	q, err := c.Channel.QueueDeclare(name, durable, autoDelete, exclusive, noWait, args)
	if err != nil {
		return Queue{}, err
	}
	return Queue{Name: q.Name}, nil
}

func (c channel) NotifyClose() <-chan *amqp.Error {
	return c.Channel.NotifyClose(make(chan *amqp.Error, 1))
}
