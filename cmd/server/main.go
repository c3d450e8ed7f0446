package main

import (
	"net/http"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/nabeelqr/couchsync/internal/logging"
	"github.com/nabeelqr/couchsync/internal/relay"
	"github.com/nabeelqr/couchsync/internal/server"
)

func main() {
	logging.Init()

	hub := relay.NewHub()
	go hub.Run()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: server.NewRouter(hub),
	}

	log.Info().Str("addr", srv.Addr).Msg("starting signaling relay")
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
