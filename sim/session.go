package sim

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tomasstrnad1997/mines_solver/mines"
	"github.com/tomasstrnad1997/mines_solver/solver"
)

var log *logrus.Logger

func init() {
	log = logrus.New()
}

type Outcome int

const (
	Won Outcome = iota
	Lost
	Stalled
)

func (outcome Outcome) String() string {
	switch outcome {
	case Won:
		return "won"
	case Lost:
		return "lost"
	case Stalled:
		return "stalled"
	default:
		return "unknown"
	}
}

// Result records how a single solver-driven game went. Params carries the
// realised seed, so the exact game can be replayed.
type Result struct {
	Params   mines.GameParams
	Outcome  Outcome
	Moves    int
	Deduced  int
	Guesses  int
	Duration time.Duration
}

// Session couples a board with a solver playing it. The session flags every
// mine the solver proves before making its next reveal, so a spectating
// client sees the deduction progress.
type Session struct {
	Board  *mines.Board
	Solver *solver.Solver
	params mines.GameParams
}

func CreateSession(params mines.GameParams) (*Session, error) {
	session := &Session{}
	if err := session.Reset(params); err != nil {
		return nil, err
	}
	return session, nil
}

// Reset discards the current game and builds a fresh board and solver pair.
// A zero seed picks a new random one.
func (session *Session) Reset(params mines.GameParams) error {
	board, err := mines.CreateBoardFromParams(params)
	if err != nil {
		return err
	}
	session.Board = board
	session.Solver = solver.CreateSolver(board)
	params.Seed = board.Seed()
	session.params = params
	return nil
}

func (session *Session) Params() mines.GameParams {
	return session.params
}

func (session *Session) flagKnownMines() {
	for _, coord := range session.Solver.KnownMines() {
		view, err := session.Board.View(coord.X, coord.Y)
		if err != nil {
			log.Fatalf("Solver marked an invalid cell (%d, %d): %v", coord.X, coord.Y, err)
		}
		if !view.Flagged && !view.Revealed {
			session.Board.Flag(coord.X, coord.Y)
		}
	}
}

// Step asks the solver for its next move and plays it.
func (session *Session) Step() (solver.Move, *mines.MoveResult, error) {
	move, err := session.Solver.NextMove()
	if err != nil {
		return solver.Move{}, nil, err
	}
	session.flagKnownMines()
	result, err := session.Board.Reveal(move.X, move.Y)
	if err != nil {
		return move, nil, err
	}
	return move, result, nil
}

// Play runs the solver until the game ends. Every successful reveal opens at
// least one new cell, so width*height steps always suffice; hitting the cap
// means the loop stopped making progress and the game counts as stalled.
func (session *Session) Play() (*Result, error) {
	start := time.Now()
	result := &Result{Params: session.params, Outcome: Stalled}
	maxMoves := session.Board.Width * session.Board.Height
	for range maxMoves {
		if session.Board.GameOver() {
			break
		}
		move, _, err := session.Step()
		if errors.Is(err, solver.ErrNoMoves) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("Failed to play move: %w", err)
		}
		result.Moves++
		switch move.Strategy {
		case solver.Deduction:
			result.Deduced++
		case solver.Probability:
			result.Guesses++
		}
		log.Debugf("Played %s", move.String())
	}
	if session.Board.GameOver() {
		if session.Board.Won() {
			result.Outcome = Won
		} else {
			result.Outcome = Lost
		}
	}
	result.Duration = time.Since(start)
	return result, nil
}
