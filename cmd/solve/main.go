package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"

	"github.com/tomasstrnad1997/mines_solver/mines"
	"github.com/tomasstrnad1997/mines_solver/sim"
)

type config struct {
	Width  int   `env:"WIDTH" envDefault:"9"`
	Height int   `env:"HEIGHT" envDefault:"9"`
	Mines  int   `env:"MINES" envDefault:"10"`
	Seed   int64 `env:"SEED" envDefault:"0"`
	Quiet  bool  `env:"QUIET" envDefault:"false"`
}

// Plays a single game move by move, printing the solver's reasoning and the
// board after every reveal.
func main() {
	log := logrus.New()
	cfg := config{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("Failed to parse config: %v", err)
	}
	params := mines.GameParams{Width: cfg.Width, Height: cfg.Height, Mines: cfg.Mines, Seed: cfg.Seed}
	session, err := sim.CreateSession(params)
	if err != nil {
		log.Fatalf("Failed to create game: %v", err)
	}
	fmt.Printf("Playing a %dx%d game with %d mines (seed %d)\n",
		cfg.Width, cfg.Height, cfg.Mines, session.Params().Seed)

	moves := 0
	for !session.Board.GameOver() {
		move, result, err := session.Step()
		if err != nil {
			log.Fatalf("Failed to play move: %v", err)
		}
		moves++
		fmt.Printf("Move %d: %s\n", moves, move.String())
		if !cfg.Quiet {
			session.Board.Print()
		}
		if result.Result == mines.MineBlown {
			fmt.Println("Boom. The solver guessed wrong.")
		}
	}
	if session.Board.Won() {
		fmt.Printf("Solved in %d moves\n", moves)
	} else {
		fmt.Printf("Lost after %d moves (seed %d to replay)\n", moves, session.Params().Seed)
	}
}
