// internal/handlers/rooms.go

// Package handlers exposes the relay's HTTP surface: room creation, the
// room channel websocket, and a health probe.
package handlers

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/marceloig/resistance-game/internal/relay"
)

const roomCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const roomCodeLength = 6

// GenerateRoomCode returns a random 6-character [A-Z0-9] room code.
func GenerateRoomCode() (string, error) {
	code := make([]byte, roomCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(roomCodeCharset))))
		if err != nil {
			return "", fmt.Errorf("generate room code: %w", err)
		}
		code[i] = roomCodeCharset[n.Int64()]
	}
	return string(code), nil
}

// CreateRoomHandler mints a fresh room code. The channel itself is created
// lazily when the first client connects to it.
func CreateRoomHandler(logger *logrus.Logger, store *relay.ChannelStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var code string
		for {
			c, err := GenerateRoomCode()
			if err != nil {
				http.Error(w, "failed to create room", http.StatusInternalServerError)
				return
			}
			if _, taken := store.Get(c); !taken {
				code = c
				break
			}
		}
		logger.Infof("created room %s", code)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"roomCode": code})
	}
}

// HealthzHandler reports liveness.
func HealthzHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
