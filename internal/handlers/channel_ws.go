// internal/handlers/channel_ws.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/marceloig/resistance-game/internal/journal"
	"github.com/marceloig/resistance-game/internal/middleware"
	"github.com/marceloig/resistance-game/internal/relay"
	"github.com/marceloig/resistance-game/internal/transport"
	"github.com/marceloig/resistance-game/internal/validate"
)

// publish rate per connection: a human game produces at most a few events
// per second, so this is generous headroom that still stops floods.
const (
	publishRate  = rate.Limit(10)
	publishBurst = 20
)

// frameEnvelope is the slice of the event envelope the relay looks at. The
// payload is never decoded here; the relay stays semantics-blind.
type frameEnvelope struct {
	Type     string `json:"type"`
	RoomCode string `json:"roomCode"`
	SenderID string `json:"senderId"`
	Ts       int64  `json:"timestamp"`
}

// ChannelWSHandler accepts websocket connections on /channel/ws/{roomCode}
// and echoes every frame to all of the room's subscribers. When the last
// subscriber leaves, the room is torn down.
func ChannelWSHandler(logger *logrus.Logger, store *relay.ChannelStore, jrnl *journal.Journal) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr
		roomCode := strings.TrimPrefix(r.URL.Path, "/channel/ws/")

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{transport.Subprotocol},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != transport.Subprotocol {
			c.Close(BadSubprotocolError, "client must speak the resistance subprotocol")
			return
		}
		if err := validate.RoomCode(roomCode); err != nil {
			c.Close(InvalidRoomCodeError, err.Error())
			return
		}

		ch := store.GetOrCreate(roomCode)
		subID, out := ch.Subscribe()
		middleware.LogWebSocketConnect(logger, remoteAddr, r.URL.Path)

		ctx := r.Context()

		// Write pump: forward broadcast frames to this subscriber.
		go func() {
			for frame := range out {
				if err := c.Write(ctx, websocket.MessageText, frame); err != nil {
					return
				}
			}
		}()

		limiter := rate.NewLimiter(publishRate, publishBurst)

		// Read pump: accept frames and broadcast them back to the room.
		var readErr error
		for {
			typ, frame, err := c.Read(ctx)
			if err != nil {
				readErr = err
				break
			}
			if typ != websocket.MessageText {
				continue
			}
			if !limiter.Allow() {
				c.Close(RateLimitExceededError, "publish rate exceeded")
				break
			}

			var env frameEnvelope
			if err := json.Unmarshal(frame, &env); err != nil {
				logger.Warnf("room %s: dropping undecodable frame from %s: %v", roomCode, remoteAddr, err)
				continue
			}
			// A frame addressed to another room never crosses channels.
			if env.RoomCode != roomCode {
				logger.Warnf("room %s: dropping frame addressed to room %s", roomCode, env.RoomCode)
				continue
			}

			if jrnl != nil {
				jrnl.Record(ctx, journal.Entry{
					RoomCode:  env.RoomCode,
					Type:      env.Type,
					SenderID:  env.SenderID,
					Timestamp: env.Ts,
				})
			}
			ch.Broadcast(frame)
		}

		ch.Unsubscribe(subID)
		if store.DeleteIfEmpty(roomCode) {
			logger.Infof("room %s empty, torn down", roomCode)
		}
		middleware.LogWebSocketDisconnect(logger, remoteAddr, r.URL.Path, readErr)
	}
}
