// internal/relay/channel_test.go
package relay

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestBroadcastReachesAllSubscribersIncludingSender(t *testing.T) {
	ch := NewChannel(testLogger(), "ROOM01")
	_, out1 := ch.Subscribe()
	_, out2 := ch.Subscribe()

	ch.Broadcast([]byte("frame-1"))

	assert.Equal(t, []byte("frame-1"), <-out1)
	assert.Equal(t, []byte("frame-1"), <-out2)
}

func TestBroadcastPreservesOrder(t *testing.T) {
	ch := NewChannel(testLogger(), "ROOM01")
	_, out := ch.Subscribe()

	ch.Broadcast([]byte("a"))
	ch.Broadcast([]byte("b"))
	ch.Broadcast([]byte("c"))

	assert.Equal(t, []byte("a"), <-out)
	assert.Equal(t, []byte("b"), <-out)
	assert.Equal(t, []byte("c"), <-out)
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	ch := NewChannel(testLogger(), "ROOM01")
	slowID, slow := ch.Subscribe()
	_ = slowID

	// Never drained: once the buffer is full the subscriber is dropped and
	// its queue closed, rather than stalling the room.
	for i := 0; i <= subscriberBuffer; i++ {
		ch.Broadcast([]byte("x"))
	}

	assert.True(t, ch.Empty())
	received := 0
	for range slow {
		received++
	}
	assert.Equal(t, subscriberBuffer, received)
}

func TestUnsubscribeClosesQueueAndEmptiesRoom(t *testing.T) {
	ch := NewChannel(testLogger(), "ROOM01")
	id, out := ch.Subscribe()
	require.False(t, ch.Empty())

	ch.Unsubscribe(id)
	_, open := <-out
	assert.False(t, open)
	assert.True(t, ch.Empty())

	// Unsubscribing twice is harmless.
	ch.Unsubscribe(id)
}

func TestChannelStore(t *testing.T) {
	store := NewChannelStore(testLogger())

	ch := store.GetOrCreate("ROOM01")
	assert.Same(t, ch, store.GetOrCreate("ROOM01"), "same room yields the same channel")

	got, ok := store.Get("ROOM01")
	require.True(t, ok)
	assert.Same(t, ch, got)

	id, _ := ch.Subscribe()
	assert.False(t, store.DeleteIfEmpty("ROOM01"), "occupied room is kept")

	ch.Unsubscribe(id)
	assert.True(t, store.DeleteIfEmpty("ROOM01"))
	_, ok = store.Get("ROOM01")
	assert.False(t, ok)
}
