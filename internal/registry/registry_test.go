package registry_test

import (
	"strconv"
	"sync"
	"testing"

	"whiteboard-backend/internal/registry"
)

func drain(c *registry.Client) [][]byte {
	var got [][]byte
	for {
		select {
		case msg := <-c.Send:
			got = append(got, msg)
		default:
			return got
		}
	}
}

func TestFanoutReachesEveryClientInRoom(t *testing.T) {
	r := registry.New()
	clients := make([]*registry.Client, 3)
	for i := range clients {
		clients[i] = registry.NewClient(4)
		r.Register("42", clients[i])
	}

	payload := []byte("update")
	r.FanoutLocal("42", payload)

	for i, c := range clients {
		got := drain(c)
		if len(got) != 1 || string(got[0]) != "update" {
			t.Errorf("Client %d: expected one delivery, got %v", i, got)
		}
	}
}

func TestFanoutDoesNotCrossRooms(t *testing.T) {
	r := registry.New()
	inRoom := registry.NewClient(4)
	otherRoom := registry.NewClient(4)
	r.Register("42", inRoom)
	r.Register("43", otherRoom)

	r.FanoutLocal("42", []byte("only for 42"))

	if got := drain(otherRoom); len(got) != 0 {
		t.Errorf("Client in room 43 received %d messages meant for room 42", len(got))
	}
	if got := drain(inRoom); len(got) != 1 {
		t.Errorf("Client in room 42 expected one message, got %d", len(got))
	}
}

func TestDeregisterRemovesByIdentity(t *testing.T) {
	r := registry.New()
	a := registry.NewClient(4)
	b := registry.NewClient(4)
	r.Register("42", a)
	r.Register("42", b)

	r.Deregister("42", a)

	if n := r.ClientCount("42"); n != 1 {
		t.Fatalf("Expected one remaining client, got %d", n)
	}

	r.FanoutLocal("42", []byte("x"))
	if got := drain(a); len(got) != 0 {
		t.Error("Deregistered client still receives fan-out")
	}
	if got := drain(b); len(got) != 1 {
		t.Error("Remaining client missed fan-out")
	}
}

func TestLastDeregisterRemovesRoomEntry(t *testing.T) {
	r := registry.New()
	a := registry.NewClient(4)
	b := registry.NewClient(4)
	r.Register("42", a)
	r.Register("42", b)

	r.Deregister("42", a)
	if !r.HasRoom("42") {
		t.Fatal("Room removed while a client was still registered")
	}

	r.Deregister("42", b)
	if r.HasRoom("42") {
		t.Error("Room entry leaked after its last client deregistered")
	}
}

func TestDeregisterUnknownClientIsHarmless(t *testing.T) {
	r := registry.New()
	a := registry.NewClient(4)
	r.Register("42", a)

	r.Deregister("42", registry.NewClient(4))
	r.Deregister("99", a)

	if n := r.ClientCount("42"); n != 1 {
		t.Errorf("Expected registered client untouched, count = %d", n)
	}
}

func TestFanoutSkipsFullChannels(t *testing.T) {
	r := registry.New()
	full := registry.NewClient(1)
	healthy := registry.NewClient(4)
	r.Register("42", full)
	r.Register("42", healthy)

	full.Send <- []byte("stuck")

	// Must not block even though one receiver cannot keep up.
	r.FanoutLocal("42", []byte("next"))

	if got := drain(healthy); len(got) != 1 {
		t.Errorf("Healthy client expected one message, got %d", len(got))
	}
}

func TestConcurrentAccess(t *testing.T) {
	r := registry.New()
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			room := strconv.Itoa(i % 4)
			c := registry.NewClient(8)
			for j := 0; j < 100; j++ {
				r.Register(room, c)
				r.FanoutLocal(room, []byte("m"))
				r.Deregister(room, c)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		room := strconv.Itoa(i)
		if r.HasRoom(room) {
			t.Errorf("Room %s leaked after all clients left", room)
		}
	}
}
