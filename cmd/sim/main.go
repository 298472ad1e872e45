package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"

	"github.com/tomasstrnad1997/mines_solver/db"
	"github.com/tomasstrnad1997/mines_solver/mines"
	"github.com/tomasstrnad1997/mines_solver/sim"
)

type config struct {
	Width      int    `env:"WIDTH" envDefault:"9"`
	Height     int    `env:"HEIGHT" envDefault:"9"`
	Mines      int    `env:"MINES" envDefault:"10"`
	Games      int    `env:"GAMES" envDefault:"100"`
	Workers    int    `env:"WORKERS" envDefault:"0"`
	MasterSeed int64  `env:"MASTER_SEED" envDefault:"0"`
	DBPath     string `env:"DB_PATH"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
}

// Runs a batch of solver games and prints the aggregate numbers. With
// DB_PATH set every result is also written to the SQLite store.
func main() {
	log := logrus.New()
	cfg := config{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("Failed to parse config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	var sink sim.ResultSink
	if cfg.DBPath != "" {
		store, err := db.OpenStore(cfg.DBPath)
		if err != nil {
			log.Fatalf("Failed to open results store: %v", err)
		}
		defer store.DB.Close()
		if err := store.InitializeTables(); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		sink = store
	}

	batch := sim.Batch{
		Params:     mines.GameParams{Width: cfg.Width, Height: cfg.Height, Mines: cfg.Mines},
		Games:      cfg.Games,
		Workers:    cfg.Workers,
		MasterSeed: cfg.MasterSeed,
	}
	summary, err := batch.Run(sink)
	if err != nil {
		log.Fatalf("Failed to run batch: %v", err)
	}
	fmt.Printf("Games:   %d\n", summary.Games)
	fmt.Printf("Won:     %d (%.1f%%)\n", summary.Wins, summary.WinRate*100)
	fmt.Printf("Lost:    %d\n", summary.Losses)
	fmt.Printf("Stalled: %d\n", summary.Stalls)
	if summary.Games > 0 {
		fmt.Printf("Moves:   %.1f avg (%.1f deduced, %.1f guessed)\n",
			float64(summary.Moves)/float64(summary.Games),
			float64(summary.Deduced)/float64(summary.Games),
			float64(summary.Guesses)/float64(summary.Games))
	}
	fmt.Printf("Time:    %s\n", summary.Duration)
}
