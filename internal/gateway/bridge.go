package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/easyislanders/concierge/internal/domain"
	apperrors "github.com/easyislanders/concierge/internal/pkg/errors"
	"github.com/easyislanders/concierge/internal/pkg/logger"
)

const deliveryChannelPrefix = "concierge:deliver:"

func deliveryChannel(threadID string) string {
	return deliveryChannelPrefix + threadID
}

// Publisher pushes envelopes onto the Redis delivery channel. The worker
// process publishes; the API process's Bridge consumes.
type Publisher struct {
	client *redis.Client
}

// NewPublisher creates a new envelope publisher
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishEnvelope sends one envelope to the thread's delivery channel
func (p *Publisher) PublishEnvelope(ctx context.Context, env domain.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err := p.client.Publish(ctx, deliveryChannel(env.ThreadID.String()), payload).Err(); err != nil {
		return apperrors.TransportWrite("failed to publish envelope").WithError(err)
	}
	return nil
}

// Bridge consumes the Redis delivery channels and feeds the hub. One bridge
// runs per API process.
type Bridge struct {
	client *redis.Client
	hub    *Hub
}

// NewBridge creates a new delivery bridge
func NewBridge(client *redis.Client, hub *Hub) *Bridge {
	return &Bridge{client: client, hub: hub}
}

// Run consumes envelopes until the context is cancelled
func (b *Bridge) Run(ctx context.Context) error {
	pubsub := b.client.PSubscribe(ctx, deliveryChannelPrefix+"*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	logger.Info("delivery bridge started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env domain.Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				logger.Error("failed to decode delivery frame",
					zap.String("channel", msg.Channel),
					zap.Error(err),
				)
				continue
			}
			b.hub.Send(env)
		}
	}
}
