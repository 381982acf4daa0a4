package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, client Client) []byte {
	t.Helper()
	select {
	case data := <-client:
		return data
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestBroadcastReachesAllRoomSubscribers(t *testing.T) {
	h := NewHub()

	first := make(Client, 4)
	second := make(Client, 4)
	other := make(Client, 4)
	h.Subscribe(1, first)
	h.Subscribe(1, second)
	h.Subscribe(2, other)

	h.Broadcast(1, Event{Type: "new_message", Payload: "hello"})

	assert.Contains(t, string(receive(t, first)), "hello")
	assert.Contains(t, string(receive(t, second)), "hello")
	assert.Empty(t, other, "subscribers of other rooms must not receive the event")
}

func TestBroadcastToEmptyRoomIsNoop(t *testing.T) {
	h := NewHub()
	h.Broadcast(42, Event{Type: "new_message", Payload: "nobody home"})
	assert.Zero(t, h.Subscribers(42))
}

func TestSlowClientDoesNotBlockBroadcast(t *testing.T) {
	h := NewHub()

	slow := make(Client, 1)
	fast := make(Client, 4)
	h.Subscribe(7, slow)
	h.Subscribe(7, fast)

	// Fill the slow client's buffer; further events are dropped for it,
	// never queued against the broadcaster.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			h.Broadcast(7, Event{Type: "new_message", Payload: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow client")
	}

	assert.Len(t, slow, 1)
	assert.Len(t, fast, 4)
}

func TestUnsubscribeClosesClientAndCleansUpRoom(t *testing.T) {
	h := NewHub()

	client := make(Client, 1)
	h.Subscribe(3, client)
	require.Equal(t, 1, h.Subscribers(3))

	h.Unsubscribe(3, client)
	assert.Zero(t, h.Subscribers(3))

	_, open := <-client
	assert.False(t, open, "unsubscribe must close the client channel")

	// A second unsubscribe of the same client is harmless.
	h.Unsubscribe(3, client)
}
