package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/playoffs/go/internal/config"
)

// Pinger is the database check behind /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

func setupServer(cfg config.ServerConfig, services *Services, db Pinger) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	// Register JSON API and WebSocket routes
	services.Gateway.RegisterRoutes(mux)

	mux.Handle("GET /metrics", promhttp.Handler())
	setupHealthCheck(mux, services, db)

	// Wrap with CORS
	handler := c.Handler(mux)

	// Setup HTTP/2 server
	return &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      h2c.NewHandler(handler, &http2.Server{}),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

type healthResponse struct {
	Healthy           bool `json:"healthy"`
	DatabaseConnected bool `json:"database_connected"`
	NATSConnected     bool `json:"nats_connected"`
}

func setupHealthCheck(mux *http.ServeMux, services *Services, db Pinger) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			DatabaseConnected: db.Ping(r.Context()) == nil,
			NATSConnected:     services.Gateway.ConsumerConnected(),
		}
		// Push is best effort; only the database decides health.
		resp.Healthy = resp.DatabaseConnected

		code := http.StatusOK
		if !resp.Healthy {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
