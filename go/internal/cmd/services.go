package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/playoffs/go/internal/clock"
	"github.com/mcdev12/playoffs/go/internal/config"
	"github.com/mcdev12/playoffs/go/internal/gateway"
	"github.com/mcdev12/playoffs/go/internal/progress"
	"github.com/mcdev12/playoffs/go/internal/status"
	"github.com/mcdev12/playoffs/go/internal/tournament"
)

type Services struct {
	Tournaments *tournament.App
	Progress    *progress.App
	Status      *status.App
	Gateway     *gateway.Service
}

func setupServices(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config) (*Services, error) {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Gateway
	clk := clock.NewRealClock()
	contest := cfg.Contest.Clock()

	// Tournament
	tournamentRepo := tournament.NewRepository(pool)
	tournamentApp := tournament.NewApp(tournamentRepo, contest, clk)

	// Progress
	progressRepo := progress.NewRepository(pool)
	progressApp := progress.NewApp(progressRepo, tournamentApp, contest, clk)

	// Status
	statusApp := status.NewApp(tournamentApp, progressRepo, progressApp, contest, clk, cfg.Server.TickConcurrency)

	// Gateway
	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.EnableJetStream = cfg.NATS.Enabled
	gatewayConfig.JetStreamConfig.URL = cfg.NATS.URL
	gatewayConfig.JetStreamConfig.StreamName = cfg.NATS.StreamName
	gatewayConfig.JetStreamConfig.ConsumerName = cfg.NATS.ConsumerName
	gatewayConfig.JetStreamConfig.SubjectFilter = cfg.NATS.SubjectPrefix + ".>"

	api := gateway.NewAPIHandler(statusApp, progressApp, tournamentApp)
	gatewayService, err := gateway.NewService(ctx, gatewayConfig, api)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway service: %w", err)
	}

	return &Services{
		Tournaments: tournamentApp,
		Progress:    progressApp,
		Status:      statusApp,
		Gateway:     gatewayService,
	}, nil
}
