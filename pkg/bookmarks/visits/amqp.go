package visits

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Event is the message published for every redirect when visits are
// recorded asynchronously.
type Event struct {
	BookmarkID uint      `json:"bookmark_id"`
	VisitedAt  time.Time `json:"visited_at"`
}

// Publisher is the subset of *amqp.Channel used to publish events.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPRecorder hands visits to the visits-worker through a durable queue.
type AMQPRecorder struct {
	pub   Publisher
	queue string
}

func NewAMQPRecorder(pub Publisher, queue string) *AMQPRecorder {
	return &AMQPRecorder{pub: pub, queue: queue}
}

func (r *AMQPRecorder) Record(ctx context.Context, bookmarkID uint, at time.Time) error {
	body, err := json.Marshal(Event{BookmarkID: bookmarkID, VisitedAt: at.UTC()})
	if err != nil {
		return err
	}
	return r.pub.PublishWithContext(ctx, "", r.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    at,
		Body:         body,
	})
}

// Dial connects to RabbitMQ, opens a channel and declares the durable queue.
// Callers close the channel and then the connection.
func Dial(url, queue string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare queue %q: %w", queue, err)
	}
	return conn, ch, nil
}
