package ingress

import (
	"context"
	"fmt"
	"log"

	"github.com/streadway/amqp"

	"github.com/zoff-tech/webhook-relay/pkg/config"
)

type rabbitMqSource struct {
	connection *amqp.Connection
	channel    *amqp.Channel
	queue      string
}

func newRabbitMqSource(cfg *config.IngressSettings) (Source, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(
		cfg.Queue, // name
		true,      // durable
		false,     // auto-deleted
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	); err != nil {
		conn.Close()
		return nil, err
	}

	notifyClose := make(chan *amqp.Error)
	conn.NotifyClose(notifyClose)
	go func() {
		for err := range notifyClose {
			log.Printf("RabbitMQ connection closed: %v", err)
		}
	}()

	return &rabbitMqSource{connection: conn, channel: ch, queue: cfg.Queue}, nil
}

func (r *rabbitMqSource) Run(ctx context.Context, handle Handler) error {
	deliveries, err := r.channel.Consume(
		r.queue, // queue
		"",      // consumer tag
		false,   // auto-ack
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // arguments
	)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("RabbitMQ delivery channel closed")
			}
			handle(ctx, delivery.Body)
			if err := delivery.Ack(false); err != nil {
				log.Printf("Failed to ack RabbitMQ delivery: %v", err)
			}
		}
	}
}

func (r *rabbitMqSource) Close() error {
	if err := r.channel.Close(); err != nil {
		log.Printf("Error closing RabbitMQ channel: %v", err)
	}
	return r.connection.Close()
}
