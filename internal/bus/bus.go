// Package bus carries purchase-committed notifications between the purchase
// transaction manager and the invoicing workflow inside a single process.
package bus

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/samirmartinez1984/EventFlow/internal/domain"
)

const TopicPurchaseCommitted = "purchase.committed"

// Bus wraps an in-process watermill Pub/Sub. Publishers call it only after
// their transaction has committed, so subscribers never observe a purchase
// that could still roll back.
type Bus struct {
	pubsub *gochannel.GoChannel
	log    zerolog.Logger
}

func NewInProcess(log zerolog.Logger) *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 256},
			watermill.NopLogger{},
		),
		log: log,
	}
}

// PublishPurchaseCommitted is fire-and-forget from the caller's perspective;
// delivery outcome never feeds back into the purchase transaction.
func (b *Bus) PublishPurchaseCommitted(ctx context.Context, purchaseID string) error {
	payload, err := json.Marshal(domain.PurchaseCommitted{PurchaseID: purchaseID})
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return b.pubsub.Publish(TopicPurchaseCommitted, msg)
}

// Consume delivers each notification to handler on its own goroutine, bounded
// by a worker semaphore so one slow handler cannot back up the channel for
// other purchases. It blocks until ctx is cancelled and the subscription
// closes.
func (b *Bus) Consume(ctx context.Context, workers int, handler func(ctx context.Context, ev domain.PurchaseCommitted)) error {
	if workers < 1 {
		workers = 1
	}

	messages, err := b.pubsub.Subscribe(ctx, TopicPurchaseCommitted)
	if err != nil {
		return err
	}

	sem := make(chan struct{}, workers)
	for msg := range messages {
		var ev domain.PurchaseCommitted
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			b.log.Error().Err(err).Str("message_id", msg.UUID).Msg("bus: malformed purchase committed payload")
			msg.Ack()
			continue
		}

		sem <- struct{}{}
		go func(m *message.Message, ev domain.PurchaseCommitted) {
			defer func() { <-sem }()
			handler(ctx, ev)
			m.Ack()
		}(msg, ev)
	}
	return nil
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}
