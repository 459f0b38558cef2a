package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/rabbitmq/amqp091-go"

	"budgetme/internal/log"
)

// Handler receives one decoded event. Returning an error requeues the
// delivery.
type Handler func(ctx context.Context, routingKey string, body []byte) error

// Feed consumes the topic exchange and dispatches deliveries to
// registered callbacks. Consumers typically react by re-fetching the
// affected rows rather than trusting the message payload.
type Feed struct {
	conn      *amqp091.Connection
	channel   *amqp091.Channel
	exchange  string
	queueName string
	log       *log.Logger

	mu       sync.Mutex
	handlers map[string][]Handler
}

func NewFeed(url, exchangeName, queueName string, logger *log.Logger) (*Feed, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	f := &Feed{
		conn:      conn,
		channel:   channel,
		exchange:  exchangeName,
		queueName: queueName,
		log:       logger.WithComponent(log.ComponentEvents),
		handlers:  make(map[string][]Handler),
	}

	if err := f.setup(); err != nil {
		f.Close()
		return nil, fmt.Errorf("setup feed queue: %w", err)
	}
	return f, nil
}

func (f *Feed) setup() error {
	err := f.channel.ExchangeDeclare(f.exchange, "topic", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	_, err = f.channel.QueueDeclare(f.queueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	return nil
}

// Subscribe registers a handler for a routing-key pattern and binds
// the queue to it. Must be called before Run.
func (f *Feed) Subscribe(pattern string, h Handler) error {
	if err := f.channel.QueueBind(f.queueName, pattern, f.exchange, false, nil); err != nil {
		return fmt.Errorf("bind %q: %w", pattern, err)
	}
	f.mu.Lock()
	f.handlers[pattern] = append(f.handlers[pattern], h)
	f.mu.Unlock()
	return nil
}

// Run consumes deliveries until the context is cancelled.
func (f *Feed) Run(ctx context.Context) error {
	msgs, err := f.channel.Consume(
		f.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	f.log.InfoContext(ctx, "event feed started", "queue", f.queueName)

	for {
		select {
		case <-ctx.Done():
			f.log.InfoContext(ctx, "event feed stopping", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			if err := f.dispatch(ctx, delivery.RoutingKey, delivery.Body); err != nil {
				f.log.ErrorContext(ctx, "event handling failed",
					"routing_key", delivery.RoutingKey,
					log.FieldError, err.Error(),
				)
				delivery.Nack(false, true)
				continue
			}
			delivery.Ack(false)
		}
	}
}

func (f *Feed) dispatch(ctx context.Context, routingKey string, body []byte) error {
	f.mu.Lock()
	var hs []Handler
	for pattern, registered := range f.handlers {
		if patternMatches(pattern, routingKey) {
			hs = append(hs, registered...)
		}
	}
	f.mu.Unlock()

	for _, h := range hs {
		if err := h(ctx, routingKey, body); err != nil {
			return err
		}
	}
	return nil
}

// patternMatches implements AMQP topic matching: "*" spans one word,
// "#" spans any number.
func patternMatches(pattern, key string) bool {
	return matchWords(splitDots(pattern), splitDots(key))
}

func splitDots(s string) []string {
	var words []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '.' {
			words = append(words, s[start:i])
			start = i + 1
		}
	}
	return words
}

func matchWords(pattern, key []string) bool {
	if len(pattern) == 0 {
		return len(key) == 0
	}
	switch pattern[0] {
	case "#":
		for i := 0; i <= len(key); i++ {
			if matchWords(pattern[1:], key[i:]) {
				return true
			}
		}
		return false
	case "*":
		return len(key) > 0 && matchWords(pattern[1:], key[1:])
	default:
		return len(key) > 0 && pattern[0] == key[0] && matchWords(pattern[1:], key[1:])
	}
}

func (f *Feed) Close() error {
	if f.channel != nil {
		f.channel.Close()
	}
	if f.conn != nil {
		return f.conn.Close()
	}
	return nil
}
