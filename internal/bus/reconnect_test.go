package bus

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestReconnectDelayDoublesToCap(t *testing.T) {
	var d reconnectDelay
	d.reset()

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		maxBackoff,
		maxBackoff,
	}
	for i, w := range want {
		if got := d.advance(); got != w {
			t.Errorf("Delay %d = %s, want %s", i, got, w)
		}
	}
}

func TestReconnectDelayResetsAfterConnect(t *testing.T) {
	var d reconnectDelay
	d.reset()

	for i := 0; i < 6; i++ {
		d.advance()
	}
	d.reset()
	if got := d.advance(); got != time.Second {
		t.Errorf("Delay after reset = %s, want %s", got, time.Second)
	}
}

type frame struct {
	room    string
	payload []byte
}

type captureFanout struct {
	frames chan frame
}

func (c *captureFanout) FanoutLocal(roomID string, payload []byte) {
	c.frames <- frame{room: roomID, payload: payload}
}

func TestRunDeliversPublishedFrames(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	fanout := &captureFanout{frames: make(chan frame, 16)}
	b := New(client, fanout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	// The subscription may not be up yet, so publish until a frame lands.
	deadline := time.After(2 * time.Second)
	for {
		if err := b.Publish(context.Background(), "42", []byte("payload")); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
		select {
		case f := <-fanout.frames:
			if f.room != "42" || string(f.payload) != "payload" {
				t.Fatalf("Delivered (%q, %q), want (\"42\", \"payload\")", f.room, f.payload)
			}
			return
		case <-time.After(20 * time.Millisecond):
		case <-deadline:
			t.Fatal("Published frame never reached the local fanout")
		}
	}
}
