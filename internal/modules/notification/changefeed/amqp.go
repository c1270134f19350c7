package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rabbitmq/amqp091-go"
)

const DefaultExchange = "notifications.changed"

type amqpFeed struct {
	conn     *amqp091.Connection
	exchange string

	mu      sync.Mutex
	channel *amqp091.Channel
}

// NewAMQPFeed returns a feed backed by a RabbitMQ fanout exchange. Every
// listener gets its own exclusive queue bound to the exchange.
func NewAMQPFeed(conn *amqp091.Connection, exchange string) (Feed, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := declareExchange(ch, exchange); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &amqpFeed{conn: conn, exchange: exchange, channel: ch}, nil
}

func declareExchange(ch *amqp091.Channel, name string) error {
	return ch.ExchangeDeclare(
		name,
		"fanout",
		true,
		false,
		false,
		false,
		nil,
	)
}

func (f *amqpFeed) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channel.PublishWithContext(ctx,
		f.exchange,
		"",
		false,
		false,
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func (f *amqpFeed) Listen(ctx context.Context) (<-chan Event, func(), error) {
	ch, err := f.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", f.exchange, false, nil); err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("failed to bind queue %s: %w", q.Name, err)
	}
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("failed to consume %s: %w", q.Name, err)
	}

	out := make(chan Event, 1)
	go func() {
		defer close(out)
		for d := range deliveries {
			notify(out, decodeEvent(d.Body))
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() { ch.Close() })
	}
	return out, stop, nil
}
