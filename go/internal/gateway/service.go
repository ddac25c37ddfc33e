package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Service bundles the HTTP API, the WebSocket push and its JetStream feed.
type Service struct {
	api               *APIHandler
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	eventConsumer     *EventConsumer
}

type Config struct {
	ConnectionConfig ConnectionConfig
	JetStreamConfig  JetStreamConsumerConfig
	EnableJetStream  bool
}

func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		JetStreamConfig:  DefaultJetStreamConsumerConfig(),
		EnableJetStream:  true,
	}
}

// NewService wires the gateway. Without JetStream the WebSocket endpoint
// still accepts clients but never pushes; polling keeps working.
func NewService(ctx context.Context, config Config, api *APIHandler) (*Service, error) {
	connectionManager := NewConnectionManager(config.ConnectionConfig)

	s := &Service{
		api:               api,
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
	}

	if config.EnableJetStream {
		consumer, err := NewEventConsumer(ctx, connectionManager, config.JetStreamConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create event consumer: %w", err)
		}
		s.eventConsumer = consumer
	}

	return s, nil
}

// Start runs the broadcaster and consumer until ctx is done.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting tournament gateway service")

	go s.connectionManager.Start(ctx)

	if s.eventConsumer != nil {
		go func() {
			if err := s.eventConsumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("event consumer failed")
			}
		}()
	}

	<-ctx.Done()

	log.Info().Msg("tournament gateway service shutting down")
	return s.Stop()
}

func (s *Service) Stop() error {
	if s.eventConsumer != nil {
		if err := s.eventConsumer.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop event consumer")
		}
	}
	log.Info().Msg("tournament gateway service stopped")
	return nil
}

func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.api.RegisterRoutes(mux)
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("tournament gateway routes registered")
}

// ConsumerConnected reports the JetStream link state for health checks.
// It is true when push is disabled.
func (s *Service) ConsumerConnected() bool {
	return s.eventConsumer == nil || s.eventConsumer.Connected()
}
