package client

import (
	"fmt"
	"image"
	"image/color"
	"net"
	"os"
	"strconv"
	"sync"

	"gioui.org/app"
	"gioui.org/io/event"
	"gioui.org/io/input"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"

	"github.com/sirupsen/logrus"
	"github.com/tomasstrnad1997/mines_solver/mines"
	"github.com/tomasstrnad1997/mines_solver/protocol"
	"github.com/tomasstrnad1997/mines_solver/solver"
)

var log *logrus.Logger

func init() {
	log = logrus.New()
}

const defaultPort uint16 = 42069

type AppState int

const (
	ConnectMenu AppState = iota
	GameStartMenu
	GameScreen
)

var (
	boardMutex sync.Mutex
)

type Menu struct {
	ipEditor      widget.Editor
	connectButton widget.Clickable
	connecting    bool
	gameEndResult protocol.GameEndType

	widthEditor  widget.Editor
	heightEditor widget.Editor
	minesEditor  widget.Editor
	startButton  widget.Clickable

	hintButton    widget.Clickable
	restartButton widget.Clickable
	newGameButton widget.Clickable

	state AppState
}

type Cell struct {
	isMine        bool
	isRevealed    bool
	isFlagged     bool
	neighborMines int
	x             int
	y             int
}

type GameManager struct {
	grid       [][]Cell
	params     mines.GameParams
	controller *protocol.ConnectionController
	hint       *solver.Move
	hintSeq    uint32
	status     string
}

const (
	cellSpacing int = 2
)

type pressedMouseButton byte

const (
	NoButton pressedMouseButton = iota
	PrimaryButton
	SecondaryButton
)

func createCell(cellSize int, manager *GameManager, cell *Cell, ops *op.Ops, q input.Source, th *material.Theme, gtx layout.Context) {
	size := image.Point{X: cellSize, Y: cellSize}
	r := image.Rectangle{Max: size}
	offset := image.Point{X: (cellSpacing + cellSize) * cell.x, Y: (cellSpacing + cellSize) * cell.y}
	defer op.Offset(offset).Push(ops).Pop()
	defer clip.Rect(r).Push(ops).Pop()
	event.Op(ops, cell)
	err := handleCellPressed(ReadCellPresses(cell, q), cell, manager)
	if err != nil {
		log.Errorf("Failed to send button press: %v", err)
	}
	c, mark := getCellColorAndMark(manager, cell)

	paint.ColorOp{Color: c}.Add(ops)
	paint.PaintOp{}.Add(ops)
	drawMark(mark, ops, th, gtx)
}

func handleCellPressed(buttonPressed pressedMouseButton, cell *Cell, manager *GameManager) error {
	var mType mines.MoveType
	switch buttonPressed {
	case NoButton:
		return nil
	case PrimaryButton:
		mType = mines.Reveal
	case SecondaryButton:
		mType = mines.Flag
	default:
		return fmt.Errorf("Unknown button pressed")
	}
	encoded, err := protocol.EncodeMove(mines.Move{X: cell.x, Y: cell.y, Type: mType})
	if err != nil {
		return err
	}
	return manager.controller.SendMessage(encoded)
}

func ReadCellPresses(cell *Cell, q input.Source) pressedMouseButton {
	for {
		ev, ok := q.Event(pointer.Filter{
			Target: cell,
			Kinds:  pointer.Press | pointer.Release,
		})
		if !ok {
			break
		}
		if x, ok := ev.(pointer.Event); ok {
			if x.Kind == pointer.Press {
				if x.Buttons.Contain(pointer.ButtonPrimary) {
					return PrimaryButton
				} else if x.Buttons.Contain(pointer.ButtonSecondary) {
					return SecondaryButton
				}
			}
		}
	}
	return NoButton
}

func getCellColorAndMark(manager *GameManager, cell *Cell) (c color.NRGBA, mark string) {
	mark = ""
	c = color.NRGBA{R: 0x30, G: 0x30, B: 0x30, A: 0xFF}
	if hint := manager.hint; hint != nil && hint.X == cell.x && hint.Y == cell.y && !cell.isRevealed {
		c = color.NRGBA{R: 0x20, G: 0x70, B: 0x20, A: 0xFF}
	}
	if cell.isRevealed {
		c = color.NRGBA{R: 0xAA, G: 0xAA, B: 0xAA, A: 0xFF}
		if cell.neighborMines > 0 {
			mark = strconv.Itoa(cell.neighborMines)
		}
		if cell.isMine {
			mark = "X"
		}
	}
	if cell.isFlagged {
		c = color.NRGBA{R: 0xAA, G: 0x00, B: 0x00, A: 0xFF}
	}
	return c, mark
}

func drawMark(mark string, ops *op.Ops, th *material.Theme, gtx layout.Context) {
	cellSize := int(gtx.Metric.PxPerDp * 25)
	offset := image.Point{X: cellSize / 4, Y: cellSize / 8}
	defer op.Offset(offset).Push(ops).Pop()
	material.Label(th, unit.Sp(18), mark).Layout(gtx)
}

func drawConnectMenu(gtx layout.Context, th *material.Theme, menu *Menu) layout.Dimensions {
	return layout.Center.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{
			Axis:    layout.Vertical,
			Spacing: layout.SpaceAround,
		}.Layout(gtx,
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return material.Editor(th, &menu.ipEditor, "Server address").Layout(gtx)
			}),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return layout.Spacer{Height: unit.Dp(16)}.Layout(gtx)
			}),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return material.Button(th, &menu.connectButton, "Connect").Layout(gtx)
			}),
		)
	})
}

func drawConfigMenu(gtx layout.Context, th *material.Theme, menu *Menu) layout.Dimensions {
	return layout.Center.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{
			Axis:    layout.Vertical,
			Spacing: layout.SpaceAround,
		}.Layout(gtx,
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return material.Editor(th, &menu.widthEditor, "Width").Layout(gtx)
			}),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return layout.Spacer{Height: unit.Dp(8)}.Layout(gtx)
			}),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return material.Editor(th, &menu.heightEditor, "Height").Layout(gtx)
			}),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return layout.Spacer{Height: unit.Dp(8)}.Layout(gtx)
			}),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return material.Editor(th, &menu.minesEditor, "Number of Mines").Layout(gtx)
			}),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return layout.Spacer{Height: unit.Dp(16)}.Layout(gtx)
			}),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return material.Button(th, &menu.startButton, "Start").Layout(gtx)
			}),
		)
	})
}

func drawBoard(manager *GameManager, ops *op.Ops, q input.Source, th *material.Theme, gtx layout.Context) layout.Dimensions {
	cellSize := int(gtx.Metric.PxPerDp * 25)
	totalWidth := manager.params.Width*cellSize + (manager.params.Width-1)*cellSpacing
	totalHeight := manager.params.Height*cellSize + (manager.params.Height-1)*cellSpacing
	offset := image.Point{X: 10, Y: 10}
	defer op.Offset(offset).Push(ops).Pop()
	boardMutex.Lock()
	for col := range manager.params.Width {
		for row := range manager.params.Height {
			createCell(cellSize, manager, &manager.grid[col][row], ops, q, th, gtx)
		}
	}
	boardMutex.Unlock()
	return layout.Dimensions{
		Size: image.Point{X: totalWidth + offset.X*2, Y: totalHeight + offset.Y*2},
	}
}

func drawGameScreen(manager *GameManager, menu *Menu, ops *op.Ops, q input.Source, th *material.Theme, gtx layout.Context) layout.Dimensions {
	return layout.Center.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{
			Axis:    layout.Vertical,
			Spacing: layout.SpaceAround,
		}.Layout(gtx,
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return drawBoard(manager, ops, q, th, gtx)
			}),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return layout.Spacer{Height: unit.Dp(8)}.Layout(gtx)
			}),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return material.Button(th, &menu.hintButton, "Hint").Layout(gtx)
			}),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return layout.Spacer{Height: unit.Dp(8)}.Layout(gtx)
			}),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return material.Body1(th, manager.status).Layout(gtx)
			}),
		)
	})
}

func drawEndGame(gtx layout.Context, th *material.Theme, menu *Menu) layout.Dimensions {
	var txt string
	switch menu.gameEndResult {
	case protocol.Aborted:
		txt = "Aborted"
	case protocol.Win:
		txt = "Game won"
	case protocol.Loss:
		txt = "Game lost"
	default:
		return layout.Dimensions{}
	}
	return layout.Center.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{
			Axis:      layout.Vertical,
			Spacing:   layout.SpaceAround,
			Alignment: layout.Middle,
		}.Layout(gtx,
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return material.Label(th, unit.Sp(100), txt).Layout(gtx)
			}),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return layout.Spacer{Height: unit.Dp(16)}.Layout(gtx)
			}),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return material.Button(th, &menu.restartButton, "Restart").Layout(gtx)
			}),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return layout.Spacer{Height: unit.Dp(16)}.Layout(gtx)
			}),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return material.Button(th, &menu.newGameButton, "New game").Layout(gtx)
			}),
		)
	})
}

func (manager *GameManager) connectToGameServer(w *app.Window, menu *Menu, host string, port uint16) {
	log.Infof("Connecting to %s:%d", host, port)
	go func() {
		menu.connecting = true
		err := manager.controller.Connect(host, port)
		if err != nil {
			log.Errorf("Failed to connect: %v", err)
		} else {
			menu.state = GameStartMenu
			go func() {
				err := manager.controller.ReadServerResponse()
				if err != nil {
					log.Errorf("Connection lost: %v", err)
				}
				menu.state = ConnectMenu
				w.Invalidate()
			}()
		}
		w.Invalidate()
		menu.connecting = false
	}()
}

func handleConnectButton(w *app.Window, menu *Menu, manager *GameManager) {
	address := menu.ipEditor.Text()
	host, portText, err := net.SplitHostPort(address)
	if err != nil {
		manager.connectToGameServer(w, menu, address, defaultPort)
		return
	}
	port, err := strconv.ParseUint(portText, 10, 16)
	if err != nil {
		log.Errorf("Invalid port in %q: %v", address, err)
		return
	}
	manager.connectToGameServer(w, menu, host, uint16(port))
}

func handleStartGameButton(menu *Menu, manager *GameManager) {
	width, errw := strconv.Atoi(menu.widthEditor.Text())
	height, errh := strconv.Atoi(menu.heightEditor.Text())
	nMines, errm := strconv.Atoi(menu.minesEditor.Text())
	if errw != nil || errh != nil || errm != nil {
		return
	}
	encoded, err := protocol.EncodeGameStart(mines.GameParams{Width: width, Height: height, Mines: nMines})
	if err != nil {
		log.Errorf("Failed to encode game start: %v", err)
		return
	}
	if err := manager.controller.SendMessage(encoded); err != nil {
		log.Errorf("Failed to request game start: %v", err)
	}
}

func (manager *GameManager) requestHint() error {
	manager.hintSeq++
	encoded, err := protocol.EncodeHintRequest(&manager.hintSeq)
	if err != nil {
		return err
	}
	return manager.controller.SendMessage(encoded)
}

func initializeGrid(manager *GameManager) {
	boardMutex.Lock()
	manager.grid = make([][]Cell, manager.params.Width)
	for i := range manager.params.Width {
		manager.grid[i] = make([]Cell, manager.params.Height)
		for j := range manager.params.Height {
			manager.grid[i][j].x = i
			manager.grid[i][j].y = j
		}
	}
	manager.hint = nil
	boardMutex.Unlock()
}

func RegisterGUIHandlers(w *app.Window, manager *GameManager, menu *Menu, controller *protocol.ConnectionController) {
	controller.RegisterHandler(protocol.GameEnd, func(bytes []byte) error {
		endType, err := protocol.DecodeGameEnd(bytes)
		if err != nil {
			return err
		}
		menu.gameEndResult = endType
		w.Invalidate()
		return nil
	})
	controller.RegisterHandler(protocol.TextMessage, func(bytes []byte) error {
		msg, err := protocol.DecodeTextMessage(bytes)
		if err != nil {
			return err
		}
		manager.status = msg
		w.Invalidate()
		return nil
	})
	controller.RegisterHandler(protocol.StartGame, func(bytes []byte) error {
		params, err := protocol.DecodeGameStart(bytes)
		if err != nil {
			return err
		}
		manager.params = *params
		initializeGrid(manager)
		manager.status = ""
		menu.state = GameScreen
		menu.gameEndResult = 0
		w.Invalidate()
		return nil
	})
	controller.RegisterHandler(protocol.CellUpdate, func(bytes []byte) error {
		updates, err := protocol.DecodeCellUpdates(bytes)
		if err != nil {
			return err
		}
		boardMutex.Lock()
		for _, cell := range updates {
			c := &manager.grid[cell.X][cell.Y]
			if manager.hint != nil && manager.hint.X == cell.X && manager.hint.Y == cell.Y {
				manager.hint = nil
			}
			if (cell.Value & 0xF0) == 0 {
				c.neighborMines = int(cell.Value)
				c.isRevealed = true
				continue
			}
			switch cell.Value {
			case mines.Unflag:
				c.isFlagged = false
			case mines.ShowFlag:
				c.isFlagged = true
			case mines.ShowMine:
				c.isMine = true
				c.isRevealed = true
			}
		}
		boardMutex.Unlock()
		w.Invalidate()
		return nil
	})
	controller.RegisterHandler(protocol.HintResponse, func(bytes []byte) error {
		var requestId uint32
		idPtr := &requestId
		if (bytes[1] & protocol.HasIdFlag) == 0 {
			idPtr = nil
		}
		move, err := protocol.DecodeHintResponse(bytes, idPtr)
		if err != nil {
			return err
		}
		boardMutex.Lock()
		// Ignore answers to superseded requests.
		if idPtr == nil || requestId == manager.hintSeq {
			manager.hint = &move
			manager.status = fmt.Sprintf("Hint: %s", move.String())
		}
		boardMutex.Unlock()
		w.Invalidate()
		return nil
	})
}

func handleRestartButton(manager *GameManager) {
	// Resending the stored params replays the exact same board, seed
	// included. "New game" goes back to the config menu instead.
	encoded, err := protocol.EncodeGameStart(manager.params)
	if err != nil {
		log.Errorf("Failed to encode game start: %v", err)
		return
	}
	if err := manager.controller.SendMessage(encoded); err != nil {
		log.Errorf("Failed to request restart: %v", err)
	}
}

func handleNewGameButton(menu *Menu) {
	menu.state = GameStartMenu
}

func handleMenuButtons(gtx layout.Context, w *app.Window, menu *Menu, manager *GameManager) {
	if menu.connectButton.Clicked(gtx) {
		handleConnectButton(w, menu, manager)
	}
	if menu.startButton.Clicked(gtx) {
		handleStartGameButton(menu, manager)
	}
	if menu.restartButton.Clicked(gtx) {
		handleRestartButton(manager)
	}
	if menu.newGameButton.Clicked(gtx) {
		handleNewGameButton(menu)
	}
	if menu.hintButton.Clicked(gtx) {
		if err := manager.requestHint(); err != nil {
			log.Errorf("Failed to request hint: %v", err)
		}
	}
}

func mainLoop(w *app.Window, th *material.Theme, menu *Menu) error {
	var ops op.Ops
	manager := &GameManager{
		controller: protocol.CreateConnectionController(),
	}
	RegisterGUIHandlers(w, manager, menu, manager.controller)

	for {
		switch windowEvent := w.Event().(type) {
		case app.FrameEvent:
			gtx := app.NewContext(&ops, windowEvent)
			handleMenuButtons(gtx, w, menu, manager)
			switch menu.state {
			case ConnectMenu:
				drawConnectMenu(gtx, th, menu)
			case GameStartMenu:
				drawConfigMenu(gtx, th, menu)
			case GameScreen:
				drawGameScreen(manager, menu, &ops, windowEvent.Source, th, gtx)
				drawEndGame(gtx, th, menu)
			}
			windowEvent.Frame(gtx.Ops)
		case app.DestroyEvent:
			return windowEvent.Err
		}
	}
}

func RunClient() {
	go func() {
		w := new(app.Window)
		w.Option(app.Title("Mines"))
		th := material.NewTheme()
		menu := &Menu{
			state: ConnectMenu,
		}
		menu.ipEditor.SetText("127.0.0.1:42069")
		menu.ipEditor.SingleLine = true
		menu.widthEditor.SetText("9")
		menu.widthEditor.SingleLine = true
		menu.heightEditor.SetText("9")
		menu.heightEditor.SingleLine = true
		menu.minesEditor.SetText("10")
		menu.minesEditor.SingleLine = true

		err := mainLoop(w, th, menu)
		if err != nil {
			log.Error(err.Error())
		}
		os.Exit(0)
	}()
	app.Main()
}
