// internal/transport/memory.go

// Package transport provides the broadcast transports a session can run on:
// a websocket client speaking to the relay server, and an in-process bus
// used by tests and local examples. Both deliver every published event to
// all current room subscribers, sender included, preserving each sender's
// publish order.
package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/marceloig/resistance-game/internal/events"
)

// ErrTransportClosed is returned when publishing on a closed connection.
var ErrTransportClosed = errors.New("transport is closed")

// Bus is an in-process broadcast bus with one logical channel per room code.
type Bus struct {
	mu    sync.Mutex
	wg    sync.WaitGroup
	rooms map[string][]*MemoryConn
}

// NewBus returns an empty in-process bus.
func NewBus() *Bus {
	return &Bus{rooms: make(map[string][]*MemoryConn)}
}

// MemoryConn is one subscriber's connection to a Bus room. Events are
// delivered on a dedicated goroutine per subscriber, so handlers never run
// on the publisher's stack and per-sender order is preserved.
type MemoryConn struct {
	bus     *Bus
	room    string
	handler func(events.Event)
	queue   chan events.Event
	closed  bool
}

// Connect subscribes a handler to a room and returns its connection.
func (b *Bus) Connect(roomCode string, handler func(events.Event)) *MemoryConn {
	c := &MemoryConn{
		bus:     b,
		room:    roomCode,
		handler: handler,
		queue:   make(chan events.Event, 256),
	}
	go c.loop()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.rooms[roomCode] = append(b.rooms[roomCode], c)
	return c
}

// Flush blocks until every event published so far, including events
// published by handlers while draining, has been handled.
func (b *Bus) Flush() {
	b.wg.Wait()
}

func (c *MemoryConn) loop() {
	for ev := range c.queue {
		c.handler(ev)
		c.bus.wg.Done()
	}
}

// Publish broadcasts an event to every subscriber of the room, including
// the publishing connection.
func (c *MemoryConn) Publish(_ context.Context, ev events.Event) error {
	c.bus.mu.Lock()
	defer c.bus.mu.Unlock()
	if c.closed {
		return ErrTransportClosed
	}
	for _, sub := range c.bus.rooms[c.room] {
		c.bus.wg.Add(1)
		sub.queue <- ev
	}
	return nil
}

// Close unsubscribes the connection from its room.
func (c *MemoryConn) Close() error {
	c.bus.mu.Lock()
	defer c.bus.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	subs := c.bus.rooms[c.room]
	for i, sub := range subs {
		if sub == c {
			c.bus.rooms[c.room] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	close(c.queue)
	return nil
}
