// internal/relay/store.go
package relay

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// ChannelStore tracks the live room channels of one relay process.
type ChannelStore struct {
	mu       sync.Mutex
	log      *logrus.Logger
	channels map[string]*Channel
}

// NewChannelStore returns an empty channel store.
func NewChannelStore(logger *logrus.Logger) *ChannelStore {
	return &ChannelStore{
		log:      logger,
		channels: make(map[string]*Channel),
	}
}

// GetOrCreate returns the channel for a room, creating it on first use.
func (st *ChannelStore) GetOrCreate(roomCode string) *Channel {
	st.mu.Lock()
	defer st.mu.Unlock()
	if c, ok := st.channels[roomCode]; ok {
		return c
	}
	c := NewChannel(st.log, roomCode)
	st.channels[roomCode] = c
	return c
}

// Get retrieves a channel if it exists.
func (st *ChannelStore) Get(roomCode string) (*Channel, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	c, ok := st.channels[roomCode]
	return c, ok
}

// DeleteIfEmpty tears a room down once its last subscriber is gone. It
// reports whether the channel was removed.
func (st *ChannelStore) DeleteIfEmpty(roomCode string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	c, ok := st.channels[roomCode]
	if !ok || !c.Empty() {
		return false
	}
	delete(st.channels, roomCode)
	return true
}
