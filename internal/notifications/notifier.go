package notifications

import (
	"context"
	"log"
	"runtime/debug"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	ownerChannelPrefix = "requests:user:"
	adminChannel       = "requests:admin"
)

// Notifier publishes request lifecycle events into Redis channels so every
// server instance can fan them out to its own websocket connections.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishOwner sends an event payload to the request owner's channel.
func (n *Notifier) PublishOwner(ctx context.Context, ownerID uint, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, OwnerChannel(ownerID), payload).Err()
}

// PublishAdmins sends an event payload to the operator feed channel.
func (n *Notifier) PublishAdmins(ctx context.Context, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, adminChannel, payload).Err()
}

// StartPatternSubscriber subscribes to the request event channels and calls
// onMessage for each incoming message. onMessage receives channel and payload.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, ownerChannelPrefix+"*", adminChannel)
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in PatternSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// OwnerChannel derives the Redis channel name for a request owner.
func OwnerChannel(ownerID uint) string {
	return ownerChannelPrefix + strconv.FormatUint(uint64(ownerID), 10)
}

// AdminChannel returns the Redis channel carrying the operator feed.
func AdminChannel() string {
	return adminChannel
}
