// Package bus fans events out across server instances through Redis
// pub/sub. A gateway never writes directly to a remote client: it always
// publishes, and every instance, including the publisher's own, receives
// the publication back through its subscription and re-delivers to its
// local clients. The extra hop buys identical fan-out logic everywhere.
package bus

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// channelPrefix namespaces the per-room pub/sub channels.
const channelPrefix = "whiteboard:room:"

const maxBackoff = 30 * time.Second

// LocalFanout is the slice of the room registry the bus needs.
type LocalFanout interface {
	FanoutLocal(roomID string, payload []byte)
}

// Bus is the cross-instance broadcast channel, keyed by room id.
type Bus struct {
	client *redis.Client
	local  LocalFanout
}

func New(client *redis.Client, local LocalFanout) *Bus {
	return &Bus{client: client, local: local}
}

// ChannelFor returns the pub/sub channel name for a room.
func ChannelFor(roomID string) string {
	return channelPrefix + roomID
}

// Publish sends an encoded, compressed event to every subscriber of the
// room's channel across all instances.
func (b *Bus) Publish(ctx context.Context, roomID string, payload []byte) error {
	return b.client.Publish(ctx, ChannelFor(roomID), payload).Err()
}

// reconnectDelay is the wait between subscription attempts: doubling from a
// second up to the cap, back to a second once a subscription is established.
// Without the reset, a drop after a long healthy period would inherit the
// delay accumulated by earlier failures.
type reconnectDelay struct {
	next time.Duration
}

func (r *reconnectDelay) reset() {
	r.next = time.Second
}

func (r *reconnectDelay) advance() time.Duration {
	d := r.next
	r.next *= 2
	if r.next > maxBackoff {
		r.next = maxBackoff
	}
	return d
}

// Run subscribes to the pattern covering all room channels and pumps every
// received message into the local registry until ctx is cancelled. A lost
// pub/sub connection is re-established with capped exponential backoff.
func (b *Bus) Run(ctx context.Context) {
	var delay reconnectDelay
	delay.reset()
	for {
		err := b.subscribe(ctx, delay.reset)
		if ctx.Err() != nil {
			return
		}
		wait := delay.advance()
		log.Printf("[Bus] Subscription lost: %v (reconnecting in %s)", err, wait)

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// subscribe runs one subscription until it fails or ctx ends. connected is
// called once the subscription confirmation has been received.
func (b *Bus) subscribe(ctx context.Context, connected func()) error {
	pubsub := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	connected()
	log.Printf("[Bus] Subscribed to %s*", channelPrefix)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errors.New("pubsub channel closed")
			}
			b.Dispatch(msg.Channel, []byte(msg.Payload))
		}
	}
}

// Dispatch routes one received message to the local clients of its room.
// Messages outside the room namespace are ignored.
func (b *Bus) Dispatch(channel string, payload []byte) {
	roomID, ok := strings.CutPrefix(channel, channelPrefix)
	if !ok || roomID == "" {
		return
	}
	b.local.FanoutLocal(roomID, payload)
}
