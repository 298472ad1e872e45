package mines

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/gammazero/deque"
)

type Cell struct {
	Mine          bool
	Revealed      bool
	Flagged       bool
	X             int
	Y             int
	Number        int
	AdjacentMines int
}

// Coord identifies a playable cell by its column (X) and row (Y).
type Coord struct {
	X int
	Y int
}

type Board struct {
	Height        int
	Width         int
	Mines         int
	RevealedCells int

	// cells carries a one cell margin of inert border cells around the
	// playable area so neighbour loops never need bounds checks. Border
	// cells keep Number == 0 and are skipped everywhere.
	cells       [][]*Cell
	seed        int64
	rng         *rand.Rand
	minesPlaced bool
	gameOver    bool
	won         bool
}

type MoveType byte

const (
	Reveal MoveType = 0x01
	Flag   MoveType = 0x02
)

type Move struct {
	X    int
	Y    int
	Type MoveType
}

type GameParams struct {
	Width  int
	Height int
	Mines  int
	Seed   int64
}

func (move Move) String() string {
	msg := fmt.Sprintf("(%d, %d) ", move.X, move.Y)
	switch move.Type {
	case Reveal:
		return msg + "Reveal"
	case Flag:
		return msg + "Flag"
	default:
		return msg + "UNKNOWN"
	}
}

type InvalidBoardParamsError struct {
	height int
	width  int
	mines  int
}

type InvalidMoveError struct {
	board *Board
	x     int
	y     int
}

var ErrMinesAlreadyPlanted = errors.New("Mines have already been planted")

type MoveResultType int

const (
	NoChange MoveResultType = iota
	MineBlown
	CellRevealed
	Flagged
	GameWon
)

type MoveResult struct {
	Result       MoveResultType
	UpdatedCells []*Cell
}

const (
	ShowCount byte = 0x00
	ShowMine  byte = 0x10
	ShowFlag  byte = 0x20
	Unflag    byte = 0x30
)

type UpdatedCell struct {
	X     int
	Y     int
	Value byte
}

type CellView struct {
	X             int
	Y             int
	Revealed      bool
	Flagged       bool
	Mine          bool
	AdjacentMines int
}

func (e InvalidMoveError) Error() string {
	return fmt.Sprintf("Move out of range - (%d, %d) - Board (%d, %d)", e.x, e.y, e.board.Width, e.board.Height)
}

func (e InvalidBoardParamsError) Error() string {
	switch {
	case e.width <= 0:
		return fmt.Sprintf("Cannot create a board with width: %d", e.width)
	case e.height <= 0:
		return fmt.Sprintf("Cannot create a board with height: %d", e.height)
	case e.mines <= 0:
		return fmt.Sprintf("Cannot create a board without mines: %d", e.mines)
	case e.mines >= e.width*e.height:
		return fmt.Sprintf("Not enough space for %d mines on a %dx%d board", e.mines, e.width, e.height)
	default:
		return "Cannot construct board: unknown error"
	}
}

// NewSeed draws a high entropy seed for the board generator.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("Failed to generate random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

func CreateBoard(width, height, mines int) (*Board, error) {
	return CreateBoardFromParams(GameParams{Width: width, Height: height, Mines: mines})
}

func CreateBoardFromParams(params GameParams) (*Board, error) {
	if params.Width <= 0 || params.Height <= 0 || params.Mines <= 0 || params.Mines >= params.Width*params.Height {
		return nil, &InvalidBoardParamsError{params.Height, params.Width, params.Mines}
	}
	seed := params.Seed
	if seed == 0 {
		generated, err := NewSeed()
		if err != nil {
			return nil, err
		}
		seed = generated
	}
	cells := make([][]*Cell, params.Width+2)
	for i := range cells {
		cells[i] = make([]*Cell, params.Height+2)
		for j := range cells[i] {
			cells[i][j] = &Cell{X: i - 1, Y: j - 1}
		}
	}
	for y := range params.Height {
		for x := range params.Width {
			cells[x+1][y+1].Number = y*params.Width + x + 1
		}
	}
	return &Board{
		Width:  params.Width,
		Height: params.Height,
		Mines:  params.Mines,
		cells:  cells,
		seed:   seed,
		rng:    rand.New(rand.NewSource(seed)),
	}, nil
}

func (board *Board) Seed() int64 {
	return board.seed
}

func (board *Board) GameOver() bool {
	return board.gameOver
}

func (board *Board) Won() bool {
	return board.won
}

func (board *Board) MinesPlaced() bool {
	return board.minesPlaced
}

func ValidCellIndex(board *Board, x, y int) bool {
	return !(x < 0 || x >= board.Width || y >= board.Height || y < 0)
}

func (board *Board) cellAt(x, y int) *Cell {
	return board.cells[x+1][y+1]
}

// CellAt exposes the ground truth cell, mines included. Drivers that render
// partial state should go through View instead.
func (board *Board) CellAt(x, y int) (*Cell, error) {
	if !ValidCellIndex(board, x, y) {
		return nil, &InvalidMoveError{board, x, y}
	}
	return board.cellAt(x, y), nil
}

// View is the masked projection of a single cell. A mine is only visible
// once its cell is revealed or the game has ended, the adjacency count only
// once the cell is revealed.
func (board *Board) View(x, y int) (CellView, error) {
	if !ValidCellIndex(board, x, y) {
		return CellView{}, &InvalidMoveError{board, x, y}
	}
	cell := board.cellAt(x, y)
	view := CellView{X: x, Y: y, Revealed: cell.Revealed, Flagged: cell.Flagged}
	if cell.Revealed || board.gameOver {
		view.Mine = cell.Mine
	}
	if cell.Revealed {
		view.AdjacentMines = cell.AdjacentMines
	}
	return view, nil
}

// GetNeighbouringCells returns the up to eight playable neighbours of a
// playable cell. The border margin guarantees all nine indices exist.
func GetNeighbouringCells(board *Board, cell *Cell) []*Cell {
	var cells []*Cell
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			ncell := board.cells[cell.X+1+dx][cell.Y+1+dy]
			if ncell.Number == 0 {
				continue
			}
			cells = append(cells, ncell)
		}
	}
	return cells
}

// placeMines picks mine positions uniformly among all playable cells outside
// the 3x3 neighbourhood of the first revealed cell, so the first reveal is
// never a mine nor next to one. If the exclusion zone leaves fewer eligible
// cells than requested mines the count is clamped to what fits.
func (board *Board) placeMines(firstX, firstY int) {
	eligible := []int{}
	for y := range board.Height {
		for x := range board.Width {
			if x >= firstX-1 && x <= firstX+1 && y >= firstY-1 && y <= firstY+1 {
				continue
			}
			eligible = append(eligible, board.cellAt(x, y).Number)
		}
	}
	board.rng.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})
	if board.Mines > len(eligible) {
		board.Mines = len(eligible)
	}
	for _, number := range eligible[:board.Mines] {
		board.cellByNumber(number).Mine = true
	}
	board.minesPlaced = true
	board.computeAdjacentCounts()
}

func (board *Board) cellByNumber(number int) *Cell {
	index := number - 1
	return board.cellAt(index%board.Width, index/board.Width)
}

func (board *Board) computeAdjacentCounts() {
	for y := range board.Height {
		for x := range board.Width {
			cell := board.cellAt(x, y)
			count := 0
			for _, ncell := range GetNeighbouringCells(board, cell) {
				if ncell.Mine {
					count++
				}
			}
			cell.AdjacentMines = count
		}
	}
}

// PlantMines places an explicit mine layout instead of a random one. It can
// only run before the first reveal has planted mines, and replaces the
// requested mine count with the planted one.
func (board *Board) PlantMines(coords ...Coord) error {
	if board.minesPlaced {
		return ErrMinesAlreadyPlanted
	}
	if len(coords) >= board.Width*board.Height {
		return &InvalidBoardParamsError{board.Height, board.Width, len(coords)}
	}
	planted := make(map[Coord]bool, len(coords))
	for _, coord := range coords {
		if !ValidCellIndex(board, coord.X, coord.Y) {
			return &InvalidMoveError{board, coord.X, coord.Y}
		}
		if planted[coord] {
			return fmt.Errorf("Duplicate mine at (%d, %d)", coord.X, coord.Y)
		}
		planted[coord] = true
	}
	for _, coord := range coords {
		board.cellAt(coord.X, coord.Y).Mine = true
	}
	board.Mines = len(coords)
	board.minesPlaced = true
	board.computeAdjacentCounts()
	return nil
}

// Cascade reveals the connected region around a zero count cell. Cells are
// marked revealed when enqueued, so no cell enters the queue twice, and
// numbered cells are revealed without expanding further.
func Cascade(board *Board, start *Cell) []*Cell {
	var queue deque.Deque[*Cell]
	start.Revealed = true
	queue.PushBack(start)
	opened := []*Cell{}
	for queue.Len() > 0 {
		cell := queue.PopFront()
		opened = append(opened, cell)
		if cell.AdjacentMines != 0 {
			continue
		}
		for _, ncell := range GetNeighbouringCells(board, cell) {
			if !ncell.Revealed && !ncell.Flagged {
				ncell.Revealed = true
				queue.PushBack(ncell)
			}
		}
	}
	return opened
}

func (board *Board) Reveal(x, y int) (*MoveResult, error) {
	if !ValidCellIndex(board, x, y) {
		return nil, &InvalidMoveError{board, x, y}
	}
	if board.gameOver {
		return &MoveResult{NoChange, nil}, nil
	}
	cell := board.cellAt(x, y)
	if cell.Revealed || cell.Flagged {
		return &MoveResult{NoChange, nil}, nil
	}
	if !board.minesPlaced {
		board.placeMines(x, y)
	}
	if cell.Mine {
		cell.Revealed = true
		board.gameOver = true
		return &MoveResult{MineBlown, []*Cell{cell}}, nil
	}
	updatedCells := Cascade(board, cell)
	board.RevealedCells += len(updatedCells)
	result := CellRevealed
	if board.RevealedCells+board.Mines == board.Width*board.Height {
		result = GameWon
		board.gameOver = true
		board.won = true
	}
	return &MoveResult{result, updatedCells}, nil
}

func (board *Board) Flag(x, y int) (*MoveResult, error) {
	if !ValidCellIndex(board, x, y) {
		return nil, &InvalidMoveError{board, x, y}
	}
	if board.gameOver {
		return &MoveResult{NoChange, nil}, nil
	}
	cell := board.cellAt(x, y)
	if cell.Revealed {
		return &MoveResult{NoChange, nil}, nil
	}
	cell.Flagged = !cell.Flagged
	return &MoveResult{Flagged, []*Cell{cell}}, nil
}

func (board *Board) MakeMove(move Move) (*MoveResult, error) {
	switch move.Type {
	case Reveal:
		return board.Reveal(move.X, move.Y)
	case Flag:
		return board.Flag(move.X, move.Y)
	default:
		return nil, fmt.Errorf("Invalid move type %x", move.Type)
	}
}

func (board *Board) RemainingCells() int {
	remaining := 0
	for y := range board.Height {
		for x := range board.Width {
			if !board.cellAt(x, y).Revealed {
				remaining++
			}
		}
	}
	return remaining
}

func (board *Board) String() string {
	var sb strings.Builder
	sb.WriteString("X")
	for x := range board.Width {
		fmt.Fprintf(&sb, "%d", x%10)
	}
	sb.WriteString("\n")
	for y := range board.Height {
		fmt.Fprintf(&sb, "%d", y%10)
		for x := range board.Width {
			cell := board.cellAt(x, y)
			switch {
			case cell.Revealed && cell.Mine:
				sb.WriteString("*")
			case cell.Revealed:
				fmt.Fprintf(&sb, "%d", cell.AdjacentMines)
			case cell.Flagged:
				sb.WriteString("F")
			default:
				sb.WriteString("#")
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (board *Board) Print() {
	fmt.Print(board.String())
}

func CreateUpdatedCells(board *Board, cells []*Cell) ([]UpdatedCell, error) {
	updates := make([]UpdatedCell, len(cells))
	var value byte
	for i, cell := range cells {
		switch {
		case cell.Mine && (cell.Revealed || board.gameOver):
			value = ShowMine
		case cell.Revealed:
			value = byte(cell.AdjacentMines)
		case cell.Flagged:
			value = ShowFlag
		default:
			// Not revealed nor flagged, so it has to be an unflag update
			value = Unflag
		}
		updates[i] = UpdatedCell{X: cell.X, Y: cell.Y, Value: value}
	}
	return updates, nil
}

// CreateCellUpdates snapshots every visible cell, used to sync a client that
// joined mid game. Once the game is over the mines are included.
func (board *Board) CreateCellUpdates() ([]UpdatedCell, error) {
	updatedCells := []*Cell{}
	for y := range board.Height {
		for x := range board.Width {
			cell := board.cellAt(x, y)
			if cell.Revealed || cell.Flagged || (board.gameOver && cell.Mine) {
				updatedCells = append(updatedCells, cell)
			}
		}
	}
	return CreateUpdatedCells(board, updatedCells)
}
