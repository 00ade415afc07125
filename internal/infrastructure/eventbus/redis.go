package eventbus

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"

	"uninest/pkg/logger"
)

// RedisPublisher publishes chat events over Redis pub/sub. Redis delivers
// messages on a single channel in publish order, which is exactly the
// per-conversation ordering contract.
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) publish(ctx context.Context, channel string, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, channel, payload).Err()
}

func envelope(event, conversationID string, data interface{}) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Event:          event,
		ConversationID: conversationID,
		Data:           raw,
	}, nil
}

func (p *RedisPublisher) PublishMessageCreated(ctx context.Context, event ChatEvent) error {
	env, err := envelope(EventMessageCreated, event.ConversationID, event)
	if err != nil {
		return err
	}
	return p.publish(ctx, Channel(TopicChatMessages, event.ConversationID), env)
}

func (p *RedisPublisher) PublishStatusChanged(ctx context.Context, event StatusEvent) error {
	env, err := envelope(EventStatusChanged, event.ConversationID, event)
	if err != nil {
		return err
	}
	return p.publish(ctx, Channel(TopicMessageStatus, event.ConversationID), env)
}

func (p *RedisPublisher) PublishTyping(ctx context.Context, event TypingEvent) error {
	env, err := envelope(EventTyping, event.ConversationID, event)
	if err != nil {
		return err
	}
	return p.publish(ctx, Channel(TopicUserPresence, event.ConversationID), env)
}

func (p *RedisPublisher) PublishPresence(ctx context.Context, event PresenceEvent) error {
	env, err := envelope(EventPresence, "", event)
	if err != nil {
		return err
	}
	return p.publish(ctx, Channel(TopicUserPresence, presenceBroadcast), env)
}

// Relay subscribes to all bus channels and forwards traffic to the local
// sink. Every instance runs one relay; Redis fans identical copies to all
// of them, and each sink delivers only to its own connected clients.
type Relay struct {
	rdb  *redis.Client
	sink Sink
}

func NewRelay(rdb *redis.Client, sink Sink) *Relay {
	return &Relay{rdb: rdb, sink: sink}
}

// Start consumes bus traffic until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) {
	pubsub := r.rdb.PSubscribe(ctx,
		TopicChatMessages+".*",
		TopicMessageStatus+".*",
		TopicUserPresence+".*",
	)

	go func() {
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				r.dispatch(msg.Channel, []byte(msg.Payload))
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (r *Relay) dispatch(channel string, payload []byte) {
	idx := strings.Index(channel, ".")
	if idx < 0 {
		logger.Warn("Event relay: unroutable channel %q", channel)
		return
	}
	scope := channel[idx+1:]

	if scope == presenceBroadcast {
		r.sink.DeliverPresence(payload)
		return
	}
	r.sink.DeliverConversation(scope, payload)
}
