package mines_test

import (
	"errors"
	"testing"

	"github.com/tomasstrnad1997/mines_solver/mines"
)

func mustCreateBoard(t *testing.T, width, height, mineCount int) *mines.Board {
	t.Helper()
	board, err := mines.CreateBoard(width, height, mineCount)
	if err != nil {
		t.Fatalf("Failed to create %dx%d board with %d mines: %v", width, height, mineCount, err)
	}
	return board
}

func mustPlant(t *testing.T, board *mines.Board, coords ...mines.Coord) {
	t.Helper()
	if err := board.PlantMines(coords...); err != nil {
		t.Fatalf("Failed to plant mines: %v", err)
	}
}

func mustReveal(t *testing.T, board *mines.Board, x, y int) *mines.MoveResult {
	t.Helper()
	result, err := board.Reveal(x, y)
	if err != nil {
		t.Fatalf("Failed to reveal (%d, %d): %v", x, y, err)
	}
	return result
}

func cellAt(t *testing.T, board *mines.Board, x, y int) *mines.Cell {
	t.Helper()
	cell, err := board.CellAt(x, y)
	if err != nil {
		t.Fatalf("Failed to get cell (%d, %d): %v", x, y, err)
	}
	return cell
}

func TestCreateBoardRejectsBadParams(t *testing.T) {
	bad := []mines.GameParams{
		{Width: 0, Height: 8, Mines: 10},
		{Width: 8, Height: 0, Mines: 10},
		{Width: -3, Height: 8, Mines: 10},
		{Width: 8, Height: 8, Mines: 0},
		{Width: 8, Height: 8, Mines: -1},
		{Width: 8, Height: 8, Mines: 64},
		{Width: 8, Height: 8, Mines: 100},
	}
	for _, params := range bad {
		board, err := mines.CreateBoardFromParams(params)
		if err == nil {
			t.Fatalf("Expected %dx%d with %d mines to be rejected", params.Width, params.Height, params.Mines)
		}
		if board != nil {
			t.Fatalf("Got a board back together with an error")
		}
	}
}

func TestFirstRevealNeverHitsMine(t *testing.T) {
	for seed := int64(1); seed <= 100; seed++ {
		board, err := mines.CreateBoardFromParams(mines.GameParams{Width: 9, Height: 9, Mines: 35, Seed: seed})
		if err != nil {
			t.Fatalf("Failed to create board: %v", err)
		}
		result := mustReveal(t, board, 4, 4)
		if result.Result == mines.MineBlown {
			t.Fatalf("First reveal hit a mine with seed %d", seed)
		}
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				if cellAt(t, board, 4+dx, 4+dy).Mine {
					t.Fatalf("Mine placed at (%d, %d) inside the first click zone with seed %d", 4+dx, 4+dy, seed)
				}
			}
		}
		if cellAt(t, board, 4, 4).AdjacentMines != 0 {
			t.Fatalf("First revealed cell has a nonzero count with seed %d", seed)
		}
	}
}

func TestMinesPlacedExactly(t *testing.T) {
	board, err := mines.CreateBoardFromParams(mines.GameParams{Width: 8, Height: 8, Mines: 10, Seed: 7})
	if err != nil {
		t.Fatalf("Failed to create board: %v", err)
	}
	mustReveal(t, board, 4, 4)
	placed := 0
	for y := range board.Height {
		for x := range board.Width {
			if cellAt(t, board, x, y).Mine {
				placed++
			}
		}
	}
	if placed != board.Mines {
		t.Fatalf("Placed %d mines, board reports %d", placed, board.Mines)
	}
	if placed != 10 {
		t.Fatalf("Expected 10 mines, got %d", placed)
	}
}

func TestAdjacentCountsMatchBruteForce(t *testing.T) {
	board, err := mines.CreateBoardFromParams(mines.GameParams{Width: 7, Height: 5, Mines: 9, Seed: 42})
	if err != nil {
		t.Fatalf("Failed to create board: %v", err)
	}
	mustReveal(t, board, 3, 2)
	for y := range board.Height {
		for x := range board.Width {
			expected := 0
			for dx := -1; dx <= 1; dx++ {
				for dy := -1; dy <= 1; dy++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx, ny := x+dx, y+dy
					if !mines.ValidCellIndex(board, nx, ny) {
						continue
					}
					if cellAt(t, board, nx, ny).Mine {
						expected++
					}
				}
			}
			if got := cellAt(t, board, x, y).AdjacentMines; got != expected {
				t.Fatalf("Cell (%d, %d) counts %d adjacent mines, expected %d", x, y, got, expected)
			}
		}
	}
}

func TestSeedReproducesLayout(t *testing.T) {
	params := mines.GameParams{Width: 8, Height: 8, Mines: 10, Seed: 1234}
	first, err := mines.CreateBoardFromParams(params)
	if err != nil {
		t.Fatalf("Failed to create board: %v", err)
	}
	second, err := mines.CreateBoardFromParams(params)
	if err != nil {
		t.Fatalf("Failed to create board: %v", err)
	}
	mustReveal(t, first, 4, 4)
	mustReveal(t, second, 4, 4)
	for y := range params.Height {
		for x := range params.Width {
			if cellAt(t, first, x, y).Mine != cellAt(t, second, x, y).Mine {
				t.Fatalf("Boards with seed %d differ at (%d, %d)", params.Seed, x, y)
			}
		}
	}
}

func TestCascadeRevealsConnectedRegion(t *testing.T) {
	board := mustCreateBoard(t, 5, 5, 5)
	// A wall of mines down the middle column splits the board in two.
	mustPlant(t, board,
		mines.Coord{X: 2, Y: 0},
		mines.Coord{X: 2, Y: 1},
		mines.Coord{X: 2, Y: 2},
		mines.Coord{X: 2, Y: 3},
		mines.Coord{X: 2, Y: 4},
	)
	result := mustReveal(t, board, 0, 0)
	if result.Result != mines.CellRevealed {
		t.Fatalf("Expected CellRevealed, got %v", result.Result)
	}
	if len(result.UpdatedCells) != 10 {
		t.Fatalf("Cascade opened %d cells, expected the left two columns (10)", len(result.UpdatedCells))
	}
	seen := make(map[mines.Coord]int)
	for _, cell := range result.UpdatedCells {
		seen[mines.Coord{X: cell.X, Y: cell.Y}]++
	}
	for coord, count := range seen {
		if count > 1 {
			t.Fatalf("Cell (%d, %d) was opened %d times", coord.X, coord.Y, count)
		}
	}
	for y := range board.Height {
		for x := range board.Width {
			revealed := cellAt(t, board, x, y).Revealed
			if x <= 1 && !revealed {
				t.Fatalf("Cell (%d, %d) should have been opened by the cascade", x, y)
			}
			if x >= 2 && revealed {
				t.Fatalf("Cell (%d, %d) is across the mine wall and must stay closed", x, y)
			}
		}
	}
	if board.RevealedCells != 10 {
		t.Fatalf("Board counts %d revealed cells, expected 10", board.RevealedCells)
	}
}

func TestNumberedCellDoesNotCascade(t *testing.T) {
	board := mustCreateBoard(t, 4, 4, 1)
	mustPlant(t, board, mines.Coord{X: 0, Y: 0})
	result := mustReveal(t, board, 1, 0)
	if result.Result != mines.CellRevealed {
		t.Fatalf("Expected CellRevealed, got %v", result.Result)
	}
	if len(result.UpdatedCells) != 1 {
		t.Fatalf("Revealing a numbered cell opened %d cells, expected 1", len(result.UpdatedCells))
	}
	if cell := result.UpdatedCells[0]; cell.AdjacentMines != 1 {
		t.Fatalf("Cell next to a single mine counts %d", cell.AdjacentMines)
	}
}

func TestCascadeSkipsFlaggedCells(t *testing.T) {
	board := mustCreateBoard(t, 5, 5, 5)
	mustPlant(t, board,
		mines.Coord{X: 2, Y: 0},
		mines.Coord{X: 2, Y: 1},
		mines.Coord{X: 2, Y: 2},
		mines.Coord{X: 2, Y: 3},
		mines.Coord{X: 2, Y: 4},
	)
	if _, err := board.Flag(0, 3); err != nil {
		t.Fatalf("Failed to flag: %v", err)
	}
	result := mustReveal(t, board, 0, 0)
	// The flag at (0, 3) blocks the only zero count path to the bottom left
	// corner, so the cascade stops at the numbered column one cells.
	if len(result.UpdatedCells) != 7 {
		t.Fatalf("Cascade opened %d cells, expected 7 with one flagged", len(result.UpdatedCells))
	}
	if cellAt(t, board, 0, 3).Revealed {
		t.Fatalf("Flagged cell was opened by the cascade")
	}
	if cellAt(t, board, 0, 4).Revealed || cellAt(t, board, 1, 4).Revealed {
		t.Fatalf("Cells behind the flag should stay closed")
	}
}

func TestRevealNoopsOnFlaggedAndRevealed(t *testing.T) {
	board := mustCreateBoard(t, 4, 4, 1)
	mustPlant(t, board, mines.Coord{X: 3, Y: 3})
	if _, err := board.Flag(1, 1); err != nil {
		t.Fatalf("Failed to flag: %v", err)
	}
	if result := mustReveal(t, board, 1, 1); result.Result != mines.NoChange {
		t.Fatalf("Revealing a flagged cell should be a NoChange, got %v", result.Result)
	}
	mustReveal(t, board, 1, 0)
	if result := mustReveal(t, board, 1, 0); result.Result != mines.NoChange {
		t.Fatalf("Revealing a revealed cell should be a NoChange, got %v", result.Result)
	}
}

func TestInvalidCoordinatesRejected(t *testing.T) {
	board := mustCreateBoard(t, 4, 4, 2)
	for _, coord := range []mines.Coord{{X: -1, Y: 0}, {X: 0, Y: -1}, {X: 4, Y: 0}, {X: 0, Y: 4}} {
		if _, err := board.Reveal(coord.X, coord.Y); err == nil {
			t.Fatalf("Reveal at (%d, %d) should have been rejected", coord.X, coord.Y)
		}
		if _, err := board.Flag(coord.X, coord.Y); err == nil {
			t.Fatalf("Flag at (%d, %d) should have been rejected", coord.X, coord.Y)
		}
	}
	if board.RevealedCells != 0 {
		t.Fatalf("Rejected moves mutated the board")
	}
}

func TestFlagToggles(t *testing.T) {
	board := mustCreateBoard(t, 4, 4, 2)
	result, err := board.Flag(2, 2)
	if err != nil {
		t.Fatalf("Failed to flag: %v", err)
	}
	if result.Result != mines.Flagged || !cellAt(t, board, 2, 2).Flagged {
		t.Fatalf("Cell was not flagged")
	}
	if _, err := board.Flag(2, 2); err != nil {
		t.Fatalf("Failed to unflag: %v", err)
	}
	if cellAt(t, board, 2, 2).Flagged {
		t.Fatalf("Second toggle did not remove the flag")
	}
}

func TestFlagOnRevealedCellIsNoop(t *testing.T) {
	board := mustCreateBoard(t, 4, 4, 1)
	mustPlant(t, board, mines.Coord{X: 0, Y: 0})
	mustReveal(t, board, 1, 0)
	result, err := board.Flag(1, 0)
	if err != nil {
		t.Fatalf("Failed to run flag: %v", err)
	}
	if result.Result != mines.NoChange {
		t.Fatalf("Flagging a revealed cell should be a NoChange, got %v", result.Result)
	}
}

func TestLosingAndGameOverNoops(t *testing.T) {
	board := mustCreateBoard(t, 4, 4, 1)
	mustPlant(t, board, mines.Coord{X: 3, Y: 3})
	result := mustReveal(t, board, 3, 3)
	if result.Result != mines.MineBlown {
		t.Fatalf("Expected MineBlown, got %v", result.Result)
	}
	if !board.GameOver() || board.Won() {
		t.Fatalf("Board should be lost, game over %v won %v", board.GameOver(), board.Won())
	}
	revealedBefore := board.RevealedCells
	if result := mustReveal(t, board, 0, 0); result.Result != mines.NoChange {
		t.Fatalf("Reveal after game over should be a NoChange, got %v", result.Result)
	}
	flagResult, err := board.Flag(0, 0)
	if err != nil {
		t.Fatalf("Failed to run flag: %v", err)
	}
	if flagResult.Result != mines.NoChange || cellAt(t, board, 0, 0).Flagged {
		t.Fatalf("Flag after game over mutated the board")
	}
	if board.RevealedCells != revealedBefore {
		t.Fatalf("Moves after game over changed the revealed count")
	}
}

func TestWinCondition(t *testing.T) {
	board := mustCreateBoard(t, 4, 4, 1)
	mustPlant(t, board, mines.Coord{X: 3, Y: 3})
	result := mustReveal(t, board, 0, 0)
	if result.Result != mines.GameWon {
		t.Fatalf("Opening every safe cell should win, got %v", result.Result)
	}
	if !board.GameOver() || !board.Won() {
		t.Fatalf("Board should be won, game over %v won %v", board.GameOver(), board.Won())
	}
	if cellAt(t, board, 3, 3).Revealed {
		t.Fatalf("The mine was opened during the winning cascade")
	}
}

func TestMineCountClampedWhenExclusionCoversBoard(t *testing.T) {
	board := mustCreateBoard(t, 3, 3, 8)
	result := mustReveal(t, board, 1, 1)
	if board.Mines != 0 {
		t.Fatalf("Expected the mine count to clamp to 0, got %d", board.Mines)
	}
	if result.Result != mines.GameWon {
		t.Fatalf("A board left without mines should be won on the first reveal, got %v", result.Result)
	}
}

func TestViewMasksHiddenState(t *testing.T) {
	board := mustCreateBoard(t, 4, 4, 2)
	mustPlant(t, board, mines.Coord{X: 0, Y: 0}, mines.Coord{X: 3, Y: 3})
	mustReveal(t, board, 1, 0)
	view, err := board.View(0, 0)
	if err != nil {
		t.Fatalf("Failed to get view: %v", err)
	}
	if view.Mine {
		t.Fatalf("View leaks a hidden mine")
	}
	view, err = board.View(1, 1)
	if err != nil {
		t.Fatalf("Failed to get view: %v", err)
	}
	if view.AdjacentMines != 0 {
		t.Fatalf("View leaks the count of a closed cell")
	}
	opened, err := board.View(1, 0)
	if err != nil {
		t.Fatalf("Failed to get view: %v", err)
	}
	if !opened.Revealed || opened.AdjacentMines != 1 {
		t.Fatalf("View of an opened cell should carry its count, got %+v", opened)
	}
	mustReveal(t, board, 0, 0)
	view, err = board.View(3, 3)
	if err != nil {
		t.Fatalf("Failed to get view: %v", err)
	}
	if !view.Mine {
		t.Fatalf("View should expose mines once the game is over")
	}
}

func TestPlantMinesValidation(t *testing.T) {
	board := mustCreateBoard(t, 4, 4, 2)
	if err := board.PlantMines(mines.Coord{X: 9, Y: 0}); err == nil {
		t.Fatalf("Out of range mine should have been rejected")
	}
	if err := board.PlantMines(mines.Coord{X: 1, Y: 1}, mines.Coord{X: 1, Y: 1}); err == nil {
		t.Fatalf("Duplicate mine should have been rejected")
	}
	mustPlant(t, board, mines.Coord{X: 1, Y: 1})
	if err := board.PlantMines(mines.Coord{X: 2, Y: 2}); !errors.Is(err, mines.ErrMinesAlreadyPlanted) {
		t.Fatalf("Expected ErrMinesAlreadyPlanted, got %v", err)
	}
	if board.Mines != 1 {
		t.Fatalf("Planting 1 mine should set the count to 1, got %d", board.Mines)
	}
}

func TestCellUpdatesSnapshot(t *testing.T) {
	board := mustCreateBoard(t, 4, 4, 1)
	mustPlant(t, board, mines.Coord{X: 0, Y: 0})
	mustReveal(t, board, 1, 0)
	if _, err := board.Flag(0, 1); err != nil {
		t.Fatalf("Failed to flag: %v", err)
	}
	updates, err := board.CreateCellUpdates()
	if err != nil {
		t.Fatalf("Failed to create cell updates: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("Expected 2 updates, got %d", len(updates))
	}
	values := make(map[mines.Coord]byte)
	for _, update := range updates {
		values[mines.Coord{X: update.X, Y: update.Y}] = update.Value
	}
	if values[mines.Coord{X: 1, Y: 0}] != 1 {
		t.Fatalf("Revealed cell should report its count, got %#x", values[mines.Coord{X: 1, Y: 0}])
	}
	if values[mines.Coord{X: 0, Y: 1}] != mines.ShowFlag {
		t.Fatalf("Flagged cell should report a flag, got %#x", values[mines.Coord{X: 0, Y: 1}])
	}
	mustReveal(t, board, 0, 0)
	updates, err = board.CreateCellUpdates()
	if err != nil {
		t.Fatalf("Failed to create cell updates: %v", err)
	}
	foundMine := false
	for _, update := range updates {
		if update.X == 0 && update.Y == 0 && update.Value == mines.ShowMine {
			foundMine = true
		}
	}
	if !foundMine {
		t.Fatalf("Updates after losing should show the blown mine")
	}
}
