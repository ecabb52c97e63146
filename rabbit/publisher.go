package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/CodeDeck/codedeck_backend/log"
	"github.com/CodeDeck/codedeck_backend/types"
	amqp "github.com/rabbitmq/amqp091-go"
)

const submissionsQueue = "submissions"

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher forwards submission events to the submissions queue.
// Enqueue never blocks the submission path.
type Publisher struct {
	url       string
	events    chan types.SubmissionEvent
	pending   *types.SubmissionEvent
	connected atomic.Bool
	published atomic.Int64
	dropped   atomic.Int64
}

func NewPublisher(url string, buffer int) *Publisher {
	return &Publisher{
		url:    url,
		events: make(chan types.SubmissionEvent, buffer),
	}
}

// Enqueue hands ev to the publishing loop, dropping it when the buffer is full.
func (p *Publisher) Enqueue(ev types.SubmissionEvent) bool {
	select {
	case p.events <- ev:
		return true
	default:
		p.dropped.Add(1)
		log.Logger.WithField("submission_id", ev.SubmissionID).Warn("Event buffer full, dropping submission event")
		return false
	}
}

// Run publishes events until ctx is done, reconnecting as needed.
func (p *Publisher) Run(ctx context.Context) error {
	return Reconnect(ctx, p.url, submissionsQueue,
		func(ch *amqp.Channel) error {
			_, err := ch.QueueDeclare(submissionsQueue, true, false, false, false, nil)
			return err
		},
		func(ch *amqp.Channel) error {
			p.connected.Store(true)
			defer p.connected.Store(false)
			return p.drain(ctx, ch)
		})
}

// drain publishes until ctx is done. An event whose publish failed is kept
// and retried first on the next channel.
func (p *Publisher) drain(ctx context.Context, ch channel) error {
	for {
		if p.pending == nil {
			select {
			case ev := <-p.events:
				p.pending = &ev
			case <-ctx.Done():
				return nil
			}
		}

		msg, err := newPublishing(*p.pending)
		if err != nil {
			log.Logger.WithError(err).Error("Failed to marshal submission event")
			p.pending = nil
			continue
		}

		if err := ch.PublishWithContext(ctx, "", submissionsQueue, false, false, msg); err != nil {
			return fmt.Errorf("publish submission event: %w", err)
		}
		p.published.Add(1)
		log.Logger.Tracef("Published event for submission %s", p.pending.SubmissionID)
		p.pending = nil
	}
}

func newPublishing(ev types.SubmissionEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.SubmissionID.String(),
		Timestamp:    ev.SubmittedAt,
		Body:         body,
	}, nil
}

func (p *Publisher) ServiceName() string {
	return "RabbitMQPublisher"
}

func (p *Publisher) Ok() (bool, string) {
	if !p.connected.Load() {
		return false, "Not connected to RabbitMQ"
	}
	return true, "Connected to RabbitMQ"
}

func (p *Publisher) PartName() string {
	return "event_publisher"
}

func (p *Publisher) JSON() []byte {
	b, _ := json.MarshalIndent(map[string]any{
		"published": p.published.Load(),
		"dropped":   p.dropped.Load(),
		"queued":    len(p.events),
		"connected": p.connected.Load(),
	}, "", "  ")
	return b
}
