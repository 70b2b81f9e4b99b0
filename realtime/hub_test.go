package realtime

import (
	"encoding/json"
	"testing"
	"time"
)

func receive(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case msg, ok := <-c.Send():
		if !ok {
			t.Fatal("send channel closed while waiting for a message")
		}
		var env Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			t.Fatalf("broadcast frame is not valid JSON: %v", err)
		}
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a broadcast")
	}
	return Envelope{}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg, ok := <-c.Send():
		if ok {
			t.Fatalf("unexpected message delivered: %s", msg)
		}
	default:
	}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	hub := NewHub()
	a, b := NewClient(), NewClient()
	hub.Register(a)
	hub.Register(b)

	hub.Broadcast("attendanceUpdate", map[string]string{"subject": "Math"})

	for _, c := range []*Client{a, b} {
		env := receive(t, c)
		if env.Event != "attendanceUpdate" {
			t.Errorf("event = %q, want %q", env.Event, "attendanceUpdate")
		}
	}
}

func TestBroadcastToRoomOnlyReachesMembers(t *testing.T) {
	hub := NewHub()
	member, outsider := NewClient(), NewClient()
	hub.Register(member)
	hub.Register(outsider)
	hub.Join(member, "Physics")

	hub.BroadcastToRoom("Physics", "attendanceUpdate", map[string]string{"subject": "Physics"})

	env := receive(t, member)
	if env.Event != "attendanceUpdate" {
		t.Errorf("event = %q, want %q", env.Event, "attendanceUpdate")
	}
	assertSilent(t, outsider)
}

func TestLeaveStopsRoomDelivery(t *testing.T) {
	hub := NewHub()
	c := NewClient()
	hub.Register(c)
	hub.Join(c, "Math")
	hub.Leave(c, "Math")

	hub.BroadcastToRoom("Math", "attendanceUpdate", nil)
	assertSilent(t, c)
}

func TestLateSubscriberMissesEarlierEvents(t *testing.T) {
	hub := NewHub()
	hub.Broadcast("attendanceUpdate", map[string]string{"subject": "Math"})

	late := NewClient()
	hub.Register(late)
	assertSilent(t, late)
}

func TestSlowClientDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub()
	slow := NewClient()
	hub.Register(slow)

	// Nobody drains the channel, so only the buffer's worth survives.
	total := cap(slow.send) + 10
	done := make(chan struct{})
	go func() {
		for i := 0; i < total; i++ {
			hub.Broadcast("attendanceUpdate", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked on a slow client")
	}

	if got := len(slow.send); got != cap(slow.send) {
		t.Errorf("buffered messages = %d, want %d", got, cap(slow.send))
	}
}

func TestUnregisterClosesAndForgetsClient(t *testing.T) {
	hub := NewHub()
	c := NewClient()
	hub.Register(c)
	hub.Join(c, "Math")

	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("ClientCount() = %d, want 1", got)
	}

	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("ClientCount() after unregister = %d, want 0", got)
	}
	if _, ok := <-c.Send(); ok {
		t.Error("send channel still open after unregister")
	}

	// Broadcasting after unregister must not panic or deliver.
	hub.Broadcast("attendanceUpdate", nil)
	hub.BroadcastToRoom("Math", "attendanceUpdate", nil)
}

func TestUnregisterTwiceIsSafe(t *testing.T) {
	hub := NewHub()
	c := NewClient()
	hub.Register(c)
	hub.Unregister(c)
	hub.Unregister(c)
}
