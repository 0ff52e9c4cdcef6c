package bus_test

import (
	"testing"

	"whiteboard-backend/internal/bus"
)

type fakeFanout struct {
	calls []struct {
		room    string
		payload string
	}
}

func (f *fakeFanout) FanoutLocal(roomID string, payload []byte) {
	f.calls = append(f.calls, struct {
		room    string
		payload string
	}{roomID, string(payload)})
}

func TestChannelFor(t *testing.T) {
	if got := bus.ChannelFor("42"); got != "whiteboard:room:42" {
		t.Errorf("ChannelFor(42) = %q", got)
	}
}

func TestDispatchRoutesToRoom(t *testing.T) {
	local := &fakeFanout{}
	b := bus.New(nil, local)

	b.Dispatch("whiteboard:room:42", []byte("payload"))

	if len(local.calls) != 1 {
		t.Fatalf("Expected one fan-out call, got %d", len(local.calls))
	}
	if local.calls[0].room != "42" || local.calls[0].payload != "payload" {
		t.Errorf("Unexpected dispatch: %+v", local.calls[0])
	}
}

func TestDispatchIgnoresForeignChannels(t *testing.T) {
	local := &fakeFanout{}
	b := bus.New(nil, local)

	b.Dispatch("presence_updates", []byte("x"))
	b.Dispatch("whiteboard:room:", []byte("x"))
	b.Dispatch("", []byte("x"))

	if len(local.calls) != 0 {
		t.Errorf("Foreign channels reached the registry: %+v", local.calls)
	}
}

func TestDispatchKeepsRoomIdsSeparate(t *testing.T) {
	local := &fakeFanout{}
	b := bus.New(nil, local)

	b.Dispatch("whiteboard:room:42", []byte("a"))
	b.Dispatch("whiteboard:room:43", []byte("b"))

	if len(local.calls) != 2 {
		t.Fatalf("Expected two fan-out calls, got %d", len(local.calls))
	}
	if local.calls[0].room != "42" || local.calls[1].room != "43" {
		t.Errorf("Room ids mixed up: %+v", local.calls)
	}
}
