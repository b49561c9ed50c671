package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/marceloig/resistance-game/internal/handlers"
	"github.com/marceloig/resistance-game/internal/journal"
	"github.com/marceloig/resistance-game/internal/middleware"
	"github.com/marceloig/resistance-game/internal/relay"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	// The journal is optional: without Redis the relay still runs.
	jrnl, err := journal.Connect(logger)
	if err != nil {
		logger.Warnf("event journal disabled: %v", err)
		jrnl = nil
	}

	store := relay.NewChannelStore(logger)

	mux := http.NewServeMux()

	mux.Handle("/rooms", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.CreateRoomHandler(logger, store),
	)))
	mux.HandleFunc("/healthz", handlers.HealthzHandler)

	mux.Handle("/channel/ws/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.ChannelWSHandler(logger, store, jrnl),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
