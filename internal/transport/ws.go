// internal/transport/ws.go
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/marceloig/resistance-game/internal/events"
)

const (
	// Subprotocol is the websocket subprotocol spoken on room channels.
	Subprotocol = "resistance"

	writeTimeout       = 5 * time.Second
	reconnectBaseDelay = 500 * time.Millisecond
	maxReconnects      = 5
)

// ConnectivityError reports a connection that could not be re-established
// after bounded retries. It is distinct from a rule violation: the replica's
// state is intact, only the wire is gone.
type ConnectivityError struct {
	Attempts int
	Err      error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("connection lost after %d reconnect attempts: %v", e.Attempts, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// WS is a client connection to one room channel on the relay server. Reads
// run on a background pump that feeds the handler; a dropped connection is
// redialed with exponential backoff before the transport gives up.
type WS struct {
	url     string
	log     *logrus.Entry
	handler func(events.Event)
	cancel  context.CancelFunc

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	lost   error // set once reconnects are exhausted
}

// DialWS connects to the relay's channel endpoint for a room and starts the
// read pump. The handler is invoked sequentially, in arrival order.
func DialWS(ctx context.Context, baseURL, roomCode string, logger *logrus.Logger, handler func(events.Event)) (*WS, error) {
	t := &WS{
		url:     fmt.Sprintf("%s/channel/ws/%s", strings.TrimSuffix(baseURL, "/"), roomCode),
		log:     logger.WithFields(logrus.Fields{"room": roomCode, "transport": "ws"}),
		handler: handler,
	}
	conn, err := t.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", t.url, err)
	}
	t.conn = conn

	pumpCtx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	go t.readPump(pumpCtx)
	return t, nil
}

func (t *WS) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, t.url, &websocket.DialOptions{
		Subprotocols: []string{Subprotocol},
	})
	if err != nil {
		return nil, err
	}
	// Allow large lobby bursts without tripping the default read limit.
	conn.SetReadLimit(1 << 20)
	return conn, nil
}

// Publish sends one event to the relay for broadcast. It fails fast when the
// connection has been lost for good, so the caller can surface the outage.
func (t *WS) Publish(ctx context.Context, ev events.Event) error {
	t.mu.Lock()
	conn, closed, lost := t.conn, t.closed, t.lost
	t.mu.Unlock()

	if closed {
		return ErrTransportClosed
	}
	if lost != nil {
		return lost
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.Type, err)
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := conn.Write(wctx, websocket.MessageText, payload); err != nil {
		return fmt.Errorf("write %s: %w", ev.Type, err)
	}
	return nil
}

// Close shuts the connection down and stops the read pump.
func (t *WS) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	t.mu.Unlock()

	t.cancel()
	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "leaving")
	}
	return nil
}

// readPump reads frames until the transport is closed, redialing dropped
// connections with exponential backoff up to maxReconnects attempts.
func (t *WS) readPump(ctx context.Context) {
	for {
		t.mu.Lock()
		conn := t.conn
		t.mu.Unlock()

		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !t.reconnect(ctx, err) {
				return
			}
			continue
		}

		var ev events.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.log.Warnf("dropping undecodable frame: %v", err)
			continue
		}
		t.handler(ev)
	}
}

// reconnect redials with exponential backoff. It reports whether the pump
// should keep reading; on final failure the transport is marked lost so the
// next Publish surfaces a ConnectivityError.
func (t *WS) reconnect(ctx context.Context, cause error) bool {
	t.log.Warnf("connection dropped: %v", cause)
	for attempt := 1; attempt <= maxReconnects; attempt++ {
		delay := reconnectBaseDelay << (attempt - 1)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}

		conn, err := t.dial(ctx)
		if err != nil {
			t.log.Warnf("reconnect attempt %d/%d failed: %v", attempt, maxReconnects, err)
			cause = err
			continue
		}
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			conn.Close(websocket.StatusNormalClosure, "leaving")
			return false
		}
		t.conn = conn
		t.mu.Unlock()
		t.log.Infof("reconnected after %d attempt(s)", attempt)
		return true
	}

	t.mu.Lock()
	t.lost = &ConnectivityError{Attempts: maxReconnects, Err: cause}
	t.mu.Unlock()
	t.log.Errorf("giving up after %d reconnect attempts", maxReconnects)
	return false
}
