package solver

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tomasstrnad1997/mines_solver/mines"
)

var log *logrus.Logger

func init() {
	log = logrus.New()
}

// ErrNoMoves signals that the solver has no legal cell left to recommend,
// which the driver should read as "the board is already finished".
var ErrNoMoves = errors.New("No moves available")

type Strategy int

const (
	// Opening is the fixed first move of a game, always the board center.
	Opening Strategy = iota
	// Deduction marks a cell that was proven safe.
	Deduction
	// Probability marks a guess, carrying the estimated mine risk.
	Probability
)

type Move struct {
	X        int
	Y        int
	Strategy Strategy
	Risk     float64
}

func (move Move) String() string {
	msg := fmt.Sprintf("(%d, %d) ", move.X, move.Y)
	switch move.Strategy {
	case Opening:
		return msg + "Opening"
	case Deduction:
		return msg + "Deduction"
	case Probability:
		return msg + fmt.Sprintf("Guess (%.0f%% mine)", move.Risk*100)
	default:
		return msg + "UNKNOWN"
	}
}

// Solver reads the masked board state and accumulates what it has proven.
// It never mutates the board; the driver performs the recommended reveals.
// Knowledge only grows during one game: proven mines and proven safe cells
// are never retracted, safe cells merely leave the set once consumed.
type Solver struct {
	board      *mines.Board
	knownMines map[mines.Coord]bool
	knownSafe  map[mines.Coord]bool
}

func CreateSolver(board *mines.Board) *Solver {
	return &Solver{
		board:      board,
		knownMines: make(map[mines.Coord]bool),
		knownSafe:  make(map[mines.Coord]bool),
	}
}

// NextMove recommends the next cell to reveal. The policy is fixed: the
// center opening on an untouched board, then proven safe cells while any
// remain, then whatever the deduction passes can prove, and only then the
// lowest risk guess. Once the game is over (or nothing is left to act on)
// it returns ErrNoMoves.
func (solver *Solver) NextMove() (Move, error) {
	board := solver.board
	if board.GameOver() {
		return Move{}, ErrNoMoves
	}
	if board.RevealedCells == 0 {
		return Move{X: board.Width / 2, Y: board.Height / 2, Strategy: Opening}, nil
	}
	solver.pruneOpened()
	if move, ok := solver.popSafe(); ok {
		return move, nil
	}
	solver.Propagate()
	if move, ok := solver.popSafe(); ok {
		return move, nil
	}
	return solver.lowestRisk()
}

// pruneOpened drops safe cells the board has opened in the meantime, for
// example by a cascade sweeping over them, so they are never recommended.
func (solver *Solver) pruneOpened() {
	for coord := range solver.knownSafe {
		view, err := solver.board.View(coord.X, coord.Y)
		if err != nil {
			log.WithField("coord", coord).Fatal("Known safe cell is out of range")
		}
		if view.Revealed {
			delete(solver.knownSafe, coord)
		}
	}
}

// popSafe consumes the proven safe cell with the lowest row, then lowest
// column, so repeated calls walk the set in a stable order.
func (solver *Solver) popSafe() (Move, bool) {
	if len(solver.knownSafe) == 0 {
		return Move{}, false
	}
	for y := range solver.board.Height {
		for x := range solver.board.Width {
			coord := mines.Coord{X: x, Y: y}
			if solver.knownSafe[coord] {
				delete(solver.knownSafe, coord)
				return Move{X: x, Y: y, Strategy: Deduction}, true
			}
		}
	}
	return Move{}, false
}

// KnownMines lists the proven mines in row major order. Drivers typically
// flag them; the solver itself only ever recommends reveals.
func (solver *Solver) KnownMines() []mines.Coord {
	return solver.collect(solver.knownMines)
}

// KnownSafe lists the proven safe cells not yet consumed, in row major order.
func (solver *Solver) KnownSafe() []mines.Coord {
	return solver.collect(solver.knownSafe)
}

func (solver *Solver) collect(set map[mines.Coord]bool) []mines.Coord {
	coords := []mines.Coord{}
	for y := range solver.board.Height {
		for x := range solver.board.Width {
			coord := mines.Coord{X: x, Y: y}
			if set[coord] {
				coords = append(coords, coord)
			}
		}
	}
	return coords
}
