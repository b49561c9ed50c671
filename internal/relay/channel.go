// internal/relay/channel.go

// Package relay implements the server side of a room: a dumb broadcast
// channel that echoes every frame to all subscribers. The relay never
// inspects game semantics; all rules live in the client replicas.
package relay

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// subscriberBuffer bounds each subscriber's outbound queue. A subscriber
// that falls this far behind is dropped rather than stalling the room.
const subscriberBuffer = 64

// Channel is one room's broadcast fan-out. Subscribers receive raw frames
// in publish order.
type Channel struct {
	RoomCode string

	mu   sync.Mutex
	log  *logrus.Entry
	subs map[uuid.UUID]chan []byte
}

// NewChannel creates an empty channel for a room.
func NewChannel(logger *logrus.Logger, roomCode string) *Channel {
	return &Channel{
		RoomCode: roomCode,
		log:      logger.WithField("room", roomCode),
		subs:     make(map[uuid.UUID]chan []byte),
	}
}

// Subscribe registers a new subscriber and returns its id and outbound
// frame queue.
func (c *Channel) Subscribe() (uuid.UUID, <-chan []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := uuid.New()
	out := make(chan []byte, subscriberBuffer)
	c.subs[id] = out
	c.log.Debugf("subscriber %s joined (%d total)", id, len(c.subs))
	return id, out
}

// Unsubscribe removes a subscriber and closes its queue.
func (c *Channel) Unsubscribe(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drop(id)
}

// Broadcast queues a frame for every subscriber, the sender included.
// Subscribers with a full queue are dropped so one stalled connection
// cannot block the room.
func (c *Channel) Broadcast(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, out := range c.subs {
		select {
		case out <- frame:
		default:
			c.log.Warnf("subscriber %s too slow, dropping", id)
			c.drop(id)
		}
	}
}

// Empty reports whether the channel has no subscribers left.
func (c *Channel) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs) == 0
}

func (c *Channel) drop(id uuid.UUID) {
	if out, ok := c.subs[id]; ok {
		delete(c.subs, id)
		close(out)
	}
}
