package solver

import (
	"github.com/sirupsen/logrus"
	"github.com/tomasstrnad1997/mines_solver/mines"
)

// constraint captures what one revealed numbered cell still says about its
// closed neighbours: the cells that could hold mines and how many of them
// do. Proven mines are already subtracted from both sides.
type constraint struct {
	origin mines.Coord
	cells  []mines.Coord
	count  int
}

// buildConstraints derives the constraint list from the current board
// state. It walks the board in row major order so the list, and every
// deduction drawn from it, is deterministic. Constraints with no closed
// cells left are dropped, which keeps every later division well defined.
func (solver *Solver) buildConstraints() []constraint {
	board := solver.board
	constraints := []constraint{}
	for y := range board.Height {
		for x := range board.Width {
			view, err := board.View(x, y)
			if err != nil {
				log.WithError(err).Fatal("Constraint scan left the board")
			}
			if !view.Revealed || view.AdjacentMines == 0 {
				continue
			}
			count := view.AdjacentMines
			cells := []mines.Coord{}
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx, ny := x+dx, y+dy
					if !mines.ValidCellIndex(board, nx, ny) {
						continue
					}
					nview, err := board.View(nx, ny)
					if err != nil {
						log.WithError(err).Fatal("Constraint scan left the board")
					}
					if nview.Revealed {
						continue
					}
					coord := mines.Coord{X: nx, Y: ny}
					if solver.knownMines[coord] {
						count--
						continue
					}
					cells = append(cells, coord)
				}
			}
			if len(cells) > 0 {
				constraints = append(constraints, constraint{mines.Coord{X: x, Y: y}, cells, count})
			}
		}
	}
	return constraints
}

// Propagate runs deduction passes until a pass proves nothing new or a
// safe cell becomes available. Every pass rebuilds the constraints from
// the board, so knowledge gained in one pass tightens the next. It reports
// whether anything at all was proven.
func (solver *Solver) Propagate() bool {
	deduced := false
	for {
		constraints := solver.buildConstraints()
		changed := solver.propagateBasic(constraints)
		if solver.propagateSubsets(constraints) {
			changed = true
		}
		if changed {
			deduced = true
		}
		if !changed || len(solver.knownSafe) > 0 {
			break
		}
	}
	if deduced {
		log.WithFields(logrus.Fields{
			"mines": len(solver.knownMines),
			"safe":  len(solver.knownSafe),
		}).Debug("Propagation proved new cells")
	}
	return deduced
}

// propagateBasic applies the single constraint pigeonholes: a constraint
// whose count equals its cell count is all mines, one whose count is zero
// is all safe.
func (solver *Solver) propagateBasic(constraints []constraint) bool {
	changed := false
	for _, c := range constraints {
		switch {
		case c.count > 0 && c.count == len(c.cells):
			for _, coord := range c.cells {
				if solver.markMine(coord) {
					changed = true
				}
			}
		case c.count == 0:
			for _, coord := range c.cells {
				if solver.markSafe(coord) {
					changed = true
				}
			}
		}
	}
	return changed
}

// propagateSubsets resolves overlapping constraints: when one constraint's
// cells are contained in another's, the cells exclusive to the larger one
// must hold exactly the difference of the two counts. If that difference
// fills the exclusive cells they are all mines, if it is zero they are all
// safe. This proves cells the single constraint passes cannot.
func (solver *Solver) propagateSubsets(constraints []constraint) bool {
	changed := false
	for i, sub := range constraints {
		for j, super := range constraints {
			if i == j || len(sub.cells) >= len(super.cells) {
				continue
			}
			if !subsetOf(sub.cells, super.cells) {
				continue
			}
			exclusive := difference(super.cells, sub.cells)
			remaining := super.count - sub.count
			switch {
			case remaining == 0:
				for _, coord := range exclusive {
					if solver.markSafe(coord) {
						changed = true
					}
				}
			case remaining == len(exclusive):
				for _, coord := range exclusive {
					if solver.markMine(coord) {
						changed = true
					}
				}
			}
		}
	}
	return changed
}

func (solver *Solver) markMine(coord mines.Coord) bool {
	if solver.knownMines[coord] {
		return false
	}
	solver.knownMines[coord] = true
	delete(solver.knownSafe, coord)
	return true
}

func (solver *Solver) markSafe(coord mines.Coord) bool {
	if solver.knownSafe[coord] || solver.knownMines[coord] {
		return false
	}
	solver.knownSafe[coord] = true
	return true
}

func subsetOf(sub, super []mines.Coord) bool {
	for _, coord := range sub {
		if !containsCoord(super, coord) {
			return false
		}
	}
	return true
}

func difference(super, sub []mines.Coord) []mines.Coord {
	exclusive := []mines.Coord{}
	for _, coord := range super {
		if !containsCoord(sub, coord) {
			exclusive = append(exclusive, coord)
		}
	}
	return exclusive
}

func containsCoord(coords []mines.Coord, target mines.Coord) bool {
	for _, coord := range coords {
		if coord == target {
			return true
		}
	}
	return false
}

// lowestRisk is the fallback when nothing is provably safe. Cells touched
// by constraints get the most pessimistic single constraint estimate (the
// maximum of count over cells across their constraints, deliberately not a
// joint probability), isolated cells share the global estimate of mines
// left over closed cells. The least risky cell wins, ties going to the
// lowest row and then the lowest column.
func (solver *Solver) lowestRisk() (Move, error) {
	board := solver.board
	risks := make(map[mines.Coord]float64)
	for _, c := range solver.buildConstraints() {
		risk := float64(c.count) / float64(len(c.cells))
		for _, coord := range c.cells {
			if known, ok := risks[coord]; !ok || risk > known {
				risks[coord] = risk
			}
		}
	}
	unopened := board.RemainingCells()
	if unopened == 0 {
		return Move{}, ErrNoMoves
	}
	global := float64(board.Mines-len(solver.knownMines)) / float64(unopened)
	best := Move{}
	found := false
	for y := range board.Height {
		for x := range board.Width {
			coord := mines.Coord{X: x, Y: y}
			view, err := board.View(x, y)
			if err != nil {
				log.WithError(err).Fatal("Risk scan left the board")
			}
			if view.Revealed || solver.knownMines[coord] {
				continue
			}
			risk, ok := risks[coord]
			if !ok {
				risk = global
			}
			if !found || risk < best.Risk {
				best = Move{X: x, Y: y, Strategy: Probability, Risk: risk}
				found = true
			}
		}
	}
	if !found {
		return Move{}, ErrNoMoves
	}
	log.WithFields(logrus.Fields{
		"x":    best.X,
		"y":    best.Y,
		"risk": best.Risk,
	}).Debug("Falling back to a guess")
	return best, nil
}
