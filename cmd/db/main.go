package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"

	"github.com/tomasstrnad1997/mines_solver/db"
)

type config struct {
	Path   string `env:"DB_PATH,required"`
	Recent int    `env:"RECENT" envDefault:"10"`
}

// Creates the tables if needed and prints the stored statistics.
func main() {
	log := logrus.New()
	cfg := config{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("Failed to parse config: %v", err)
	}
	store, err := db.OpenStore(cfg.Path)
	if err != nil {
		log.Fatalf("Failed to create store: %v", err)
	}
	defer store.DB.Close()
	if err = store.InitializeTables(); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}
	log.Println("Tables created")

	stats, err := store.Stats()
	if err != nil {
		log.Fatalf("Failed to read stats: %v", err)
	}
	fmt.Printf("Stored games: %d (%.1f%% won, %.1f moves avg)\n",
		stats.Games, stats.WinRate*100, stats.AvgMoves)

	records, err := store.ListRecent(cfg.Recent)
	if err != nil {
		log.Fatalf("Failed to list recent games: %v", err)
	}
	for _, record := range records {
		fmt.Printf("%s  %dx%d/%d mines  seed %d  %s in %d moves (%s)\n",
			record.PlayedAt.Format("2006-01-02 15:04:05"),
			record.Params.Width, record.Params.Height, record.Params.Mines,
			record.Params.Seed, record.Outcome, record.Moves, record.Duration)
	}
}
