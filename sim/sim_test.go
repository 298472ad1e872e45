package sim_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/tomasstrnad1997/mines_solver/mines"
	"github.com/tomasstrnad1997/mines_solver/sim"
	"github.com/tomasstrnad1997/mines_solver/solver"
)

type memorySink struct {
	results []*sim.Result
}

func (sink *memorySink) StoreResult(result *sim.Result) error {
	sink.results = append(sink.results, result)
	return nil
}

type failingSink struct{}

func (failingSink) StoreResult(result *sim.Result) error {
	return errors.New("sink closed")
}

func TestSessionPlaysFullGame(t *testing.T) {
	session, err := sim.CreateSession(mines.GameParams{Width: 9, Height: 9, Mines: 10, Seed: 3})
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	result, err := session.Play()
	if err != nil {
		t.Fatalf("Failed to play game: %v", err)
	}
	if result.Outcome != sim.Won && result.Outcome != sim.Lost {
		t.Fatalf("Expected a decided game, got %v", result.Outcome)
	}
	if !session.Board.GameOver() {
		t.Fatalf("Expected the board to be finished after play")
	}
	if result.Params.Seed != 3 {
		t.Fatalf("Expected result to carry seed 3, got %d", result.Params.Seed)
	}
	// Every move past the opening is either deduced or guessed.
	if result.Moves != 1+result.Deduced+result.Guesses {
		t.Fatalf("Move counts do not add up: %+v", result)
	}
	// The session only flags cells the solver proved, so no flag may sit on
	// a safe cell.
	for y := range session.Board.Height {
		for x := range session.Board.Width {
			cell, err := session.Board.CellAt(x, y)
			if err != nil {
				t.Fatalf("Failed to read cell (%d, %d): %v", x, y, err)
			}
			if cell.Flagged && !cell.Mine {
				t.Fatalf("Flag on a safe cell at (%d, %d)", x, y)
			}
		}
	}
}

func TestSessionResetBuildsFreshGame(t *testing.T) {
	session, err := sim.CreateSession(mines.GameParams{Width: 8, Height: 8, Mines: 10, Seed: 5})
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if _, err := session.Play(); err != nil {
		t.Fatalf("Failed to play game: %v", err)
	}
	oldBoard := session.Board

	if err := session.Reset(mines.GameParams{Width: 9, Height: 9, Mines: 12}); err != nil {
		t.Fatalf("Failed to reset session: %v", err)
	}
	if session.Board == oldBoard {
		t.Fatalf("Reset must build a new board")
	}
	if session.Board.RevealedCells != 0 || session.Board.GameOver() {
		t.Fatalf("Reset board is not fresh")
	}
	if session.Params().Seed == 0 {
		t.Fatalf("Reset with zero seed must realise a random one")
	}
	move, err := session.Solver.NextMove()
	if err != nil {
		t.Fatalf("Failed to get move on fresh session: %v", err)
	}
	want := solver.Move{X: 4, Y: 4, Strategy: solver.Opening}
	if move != want {
		t.Fatalf("Expected fresh solver to open the centre, got %v", move)
	}
}

func TestSessionFlagsProvenMines(t *testing.T) {
	board, err := mines.CreateBoard(5, 2, 2)
	if err != nil {
		t.Fatalf("Failed to create board: %v", err)
	}
	if err := board.PlantMines(mines.Coord{X: 0, Y: 1}, mines.Coord{X: 4, Y: 1}); err != nil {
		t.Fatalf("Failed to plant mines: %v", err)
	}
	session := &sim.Session{Board: board, Solver: solver.CreateSolver(board)}

	// Opening (2, 1) cascades through the middle, the corners force two
	// fifty-fifty guesses, and the first guess proves the mine at (0, 1)
	// before the winning move is played.
	result, err := session.Play()
	if err != nil {
		t.Fatalf("Failed to play game: %v", err)
	}
	if result.Outcome != sim.Won {
		t.Fatalf("Expected a won game, got %v", result.Outcome)
	}
	if result.Moves != 3 || result.Guesses != 2 || result.Deduced != 0 {
		t.Fatalf("Unexpected move breakdown: %+v", result)
	}
	view, err := board.View(0, 1)
	if err != nil {
		t.Fatalf("Failed to view cell: %v", err)
	}
	if !view.Flagged {
		t.Fatalf("Expected the proven mine at (0, 1) to be flagged")
	}
}

func TestBatchReproducibleAcrossRuns(t *testing.T) {
	run := func() (*sim.Summary, map[int64]sim.Outcome) {
		t.Helper()
		batch := sim.Batch{
			Params:     mines.GameParams{Width: 8, Height: 8, Mines: 10},
			Games:      6,
			Workers:    3,
			MasterSeed: 77,
		}
		sink := &memorySink{}
		summary, err := batch.Run(sink)
		if err != nil {
			t.Fatalf("Failed to run batch: %v", err)
		}
		outcomes := make(map[int64]sim.Outcome)
		for _, result := range sink.results {
			if result.Params.Seed == 0 {
				t.Fatalf("Derived seed must never be zero")
			}
			outcomes[result.Params.Seed] = result.Outcome
		}
		return summary, outcomes
	}

	firstSummary, firstOutcomes := run()
	secondSummary, secondOutcomes := run()

	if len(firstOutcomes) != 6 {
		t.Fatalf("Expected 6 distinct seeds, got %d", len(firstOutcomes))
	}
	if diff := cmp.Diff(firstOutcomes, secondOutcomes); diff != "" {
		t.Fatalf("Same master seed produced different games:\n%s", diff)
	}
	if diff := cmp.Diff(firstSummary, secondSummary, cmpopts.IgnoreFields(sim.Summary{}, "Duration")); diff != "" {
		t.Fatalf("Same master seed produced different summaries:\n%s", diff)
	}
	if firstSummary.Games != 6 || firstSummary.Wins+firstSummary.Losses+firstSummary.Stalls != 6 {
		t.Fatalf("Summary counts do not add up: %+v", firstSummary)
	}
}

func TestBatchRejectsBadRuns(t *testing.T) {
	batch := sim.Batch{Params: mines.GameParams{Width: 8, Height: 8, Mines: 10}}
	if _, err := batch.Run(nil); err == nil {
		t.Fatalf("Expected batch without games to be rejected")
	}
	batch = sim.Batch{Params: mines.GameParams{Width: 2, Height: 2, Mines: 9}, Games: 3, MasterSeed: 1}
	if _, err := batch.Run(nil); err == nil {
		t.Fatalf("Expected batch with invalid params to fail")
	}
}

func TestBatchReportsSinkFailure(t *testing.T) {
	batch := sim.Batch{
		Params:     mines.GameParams{Width: 5, Height: 5, Mines: 4},
		Games:      2,
		Workers:    1,
		MasterSeed: 9,
	}
	_, err := batch.Run(failingSink{})
	if err == nil || !strings.Contains(err.Error(), "Failed to store result") {
		t.Fatalf("Expected sink failure to be reported, got: %v", err)
	}
}

func TestBatchZeroMasterSeedStillRuns(t *testing.T) {
	batch := sim.Batch{
		Params:  mines.GameParams{Width: 6, Height: 6, Mines: 5},
		Games:   2,
		Workers: 2,
	}
	sink := &memorySink{}
	summary, err := batch.Run(sink)
	if err != nil {
		t.Fatalf("Failed to run batch: %v", err)
	}
	if summary.Games != 2 || len(sink.results) != 2 {
		t.Fatalf("Expected 2 finished games, got summary %+v with %d stored", summary, len(sink.results))
	}
}
