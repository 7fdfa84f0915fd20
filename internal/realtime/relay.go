package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const relayChannel = "portal:realtime"

// Relay carries events between server instances.
type Relay interface {
	Forward(ctx context.Context, topic string, ev Event) error
}

type envelope struct {
	Origin string `json:"origin"`
	Topic  string `json:"topic"`
	Event  Event  `json:"event"`
}

// RedisRelay publishes local events on a Redis channel and delivers events
// from other instances to the local broker.
type RedisRelay struct {
	client *redis.Client
	broker *Broker
	origin string
	log    *slog.Logger
}

// NewRedisRelay attaches a relay to broker. Run must be started for remote
// events to arrive.
func NewRedisRelay(client *redis.Client, broker *Broker) *RedisRelay {
	r := &RedisRelay{
		client: client,
		broker: broker,
		origin: uuid.NewString(),
		log:    broker.log,
	}
	broker.SetRelay(r)
	return r
}

func (r *RedisRelay) Forward(ctx context.Context, topic string, ev Event) error {
	payload, err := encodeEnvelope(r.origin, topic, ev)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, relayChannel, payload).Err()
}

// Run consumes the relay channel until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, relayChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", relayChannel, err)
	}
	r.log.Info("realtime relay subscribed", "channel", relayChannel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			env, err := decodeEnvelope(msg.Payload)
			if err != nil {
				r.log.Warn("realtime relay dropped malformed message", "error", err)
				continue
			}
			if env.Origin == r.origin {
				continue
			}
			r.broker.deliver(env.Topic, env.Event)
		}
	}
}

func encodeEnvelope(origin, topic string, ev Event) ([]byte, error) {
	payload, err := json.Marshal(envelope{Origin: origin, Topic: topic, Event: ev})
	if err != nil {
		return nil, fmt.Errorf("failed to encode relay envelope: %w", err)
	}
	return payload, nil
}

func decodeEnvelope(payload string) (envelope, error) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return envelope{}, fmt.Errorf("failed to decode relay envelope: %w", err)
	}
	if env.Topic == "" {
		return envelope{}, fmt.Errorf("relay envelope has no topic")
	}
	return env, nil
}

// Connect opens a Redis client and checks it with a ping.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}
