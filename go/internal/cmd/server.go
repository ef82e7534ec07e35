package main

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/castaway/go/internal/config"
	"github.com/mcdev12/castaway/go/internal/rpc"
)

func setupServer(cfg config.Config, services *Services) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(rpc.Identity(cfg.DevMode))

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	registerServices(r, services)
	services.Gateway.RegisterRoutes(r)
	setupHealthCheck(r)

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: h2c.NewHandler(c.Handler(r), &http2.Server{}),
	}
}

func registerServices(r chi.Router, services *Services) {
	leaguePath, leagueHandler := services.League.Handler()
	r.Mount(leaguePath, leagueHandler)

	draftPath, draftHandler := services.Draft.Handler()
	r.Mount(draftPath, draftHandler)

	pickPath, pickHandler := services.DraftPick.Handler()
	r.Mount(pickPath, pickHandler)
}

func setupHealthCheck(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
