package events

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"budgetme/internal/core"
	"budgetme/internal/log"
)

// Publisher sends domain events to a durable topic exchange. Publish
// failures are logged and swallowed; events are advisory and must
// never fail the operation that produced them.
type Publisher struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	log          *log.Logger
}

func NewPublisher(url, exchangeName string, logger *log.Logger) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p := &Publisher{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		log:          logger.WithComponent(log.ComponentEvents),
	}

	if err := p.setup(); err != nil {
		p.Close()
		return nil, fmt.Errorf("setup exchange: %w", err)
	}
	return p, nil
}

func (p *Publisher) setup() error {
	err := p.channel.ExchangeDeclare(
		p.exchangeName, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	return nil
}

type jsonMessage interface {
	ToJSON() ([]byte, error)
}

func (p *Publisher) publish(ctx context.Context, routingKey string, msg jsonMessage) {
	body, err := msg.ToJSON()
	if err != nil {
		p.log.ErrorContext(ctx, "marshal event failed",
			"routing_key", routingKey,
			log.FieldError, err.Error(),
		)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		p.log.ErrorContext(ctx, "publish event failed",
			"routing_key", routingKey,
			log.FieldError, err.Error(),
		)
		return
	}

	p.log.DebugContext(ctx, "event published",
		"routing_key", routingKey,
		"exchange", p.exchangeName,
	)
}

func (p *Publisher) PublishPredictionGenerated(ctx context.Context, result core.PredictionResult) {
	p.publish(ctx, KeyPredictionGenerated, NewPredictionGeneratedMessage(result))
}

func (p *Publisher) PublishBudgetAlert(ctx context.Context, b core.Budget) {
	p.publish(ctx, KeyBudgetAlert, NewBudgetAlertMessage(b))
}

func (p *Publisher) PublishGoalCompleted(ctx context.Context, g core.Goal) {
	p.publish(ctx, KeyGoalCompleted, NewGoalCompletedMessage(g))
}

func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
