package rabbit

import (
	"context"
	"time"

	"github.com/CodeDeck/codedeck_backend/log"

	amqp "github.com/rabbitmq/amqp091-go"
)

const reconnectDelay = 5 * time.Second

// Reconnect dials url, runs setup then run on a fresh channel, and starts
// over after any failure until ctx is done or run returns nil.
func Reconnect(ctx context.Context, url string, queueName string, setup func(ch *amqp.Channel) error, run func(ch *amqp.Channel) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		conn, err := amqp.Dial(url)
		if err != nil {
			log.Logger.WithError(err).Error("Failed to connect to RabbitMQ instance")
			wait(ctx)
			continue
		}

		ch, err := conn.Channel()
		if err != nil {
			log.Logger.WithError(err).Error("Failed to open channel")
			conn.Close()
			wait(ctx)
			continue
		}

		if err := setup(ch); err != nil {
			log.Logger.WithError(err).Error("Setup failed")
			ch.Close()
			conn.Close()
			wait(ctx)
			continue
		}

		log.Logger.Infof("Successfully connected to RabbitMQ queue='%s', ready to run", queueName)
		err = run(ch)

		ch.Close()
		conn.Close()

		if err != nil {
			log.Logger.Warnf("Queue='%s' connection attempt failed: %v, reconnecting...", queueName, err)
			wait(ctx)
			continue
		}

		return nil
	}
}

func wait(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(reconnectDelay):
	}
}
