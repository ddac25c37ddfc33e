package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/mcdev12/playoffs/go/internal/clock"
	"github.com/mcdev12/playoffs/go/internal/dbconfig"
	"github.com/mcdev12/playoffs/go/internal/tournament"
)

// Snapshot mirrors the seed JSON structure
type Snapshot struct {
	DisplayName string                       `json:"display_name"`
	Puzzles     []string                     `json:"puzzles"`
	Competitors []tournament.CompetitorInput `json:"competitors"`
}

func main() {
	path := "go/internal/assets/tournament.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	// 1) Load the JSON snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read JSON: %v\n", err)
		os.Exit(1)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal JSON: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	ctx := context.Background()
	pool, err := dbconfig.OpenPool(ctx, dbconfig.NewConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := dbconfig.Migrate(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "failed to migrate: %v\n", err)
		os.Exit(1)
	}

	app := tournament.NewApp(tournament.NewRepository(pool), clock.DefaultConfig(), clock.NewRealClock())

	// 3) Puzzles, then the tournament, then the roster
	puzzleIDs := make([]uuid.UUID, 0, len(snap.Puzzles))
	for _, title := range snap.Puzzles {
		p, err := app.CreatePuzzle(ctx, tournament.CreatePuzzleRequest{Title: title})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error creating puzzle %q: %v\n", title, err)
			os.Exit(1)
		}
		puzzleIDs = append(puzzleIDs, p.ID)
	}

	t, err := app.CreateTournament(ctx, tournament.CreateTournamentRequest{DisplayName: snap.DisplayName})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating tournament: %v\n", err)
		os.Exit(1)
	}

	if _, err := app.ConfigureTournament(ctx, t.ID, tournament.ConfigureTournamentRequest{
		PuzzleIDs:   puzzleIDs,
		Competitors: snap.Competitors,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "error configuring tournament: %v\n", err)
		os.Exit(1)
	}

	// 4) Print summary
	fmt.Printf(
		"Tournament seed complete: %s (%d puzzles, %d competitors)\n",
		t.ID, len(puzzleIDs), len(snap.Competitors),
	)
}
