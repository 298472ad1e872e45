package server

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tomasstrnad1997/mines_solver/mines"
	"github.com/tomasstrnad1997/mines_solver/protocol"
	"github.com/tomasstrnad1997/mines_solver/solver"
)

var log *logrus.Logger

func init() {
	log = logrus.New()
}

type Player struct {
	client     net.Conn
	id         int
	connected  bool
	writeMutex sync.Mutex
}

type MessageHandler func(data []byte, source int) error

type command struct {
	message []byte
	player  *Player
}

// Server runs a shared game of minesweeper over TCP. Every connected player
// sees the same board, any player can make moves, and the built-in solver
// answers hint requests.
type Server struct {
	Name           string
	server         net.Listener
	board          *mines.Board
	solver         *solver.Solver
	params         mines.GameParams
	gameRunning    bool
	handlers       map[protocol.MessageType]MessageHandler
	messageChannel chan command
	Port           uint16
	players        map[int]*Player
	playersMux     sync.Mutex
}

func (server *Server) GetNumberOfPlayers() int {
	server.playersMux.Lock()
	defer server.playersMux.Unlock()
	count := 0
	for _, player := range server.players {
		if player.connected {
			count++
		}
	}
	return count
}

func (server *Server) StartGame(params mines.GameParams) error {
	board, err := mines.CreateBoardFromParams(params)
	if err != nil {
		return err
	}
	server.board = board
	server.solver = solver.CreateSolver(board)
	params.Seed = board.Seed()
	server.params = params
	server.broadcastTextMessage(fmt.Sprintf("Starting a new game...\nNumber of mines %d", params.Mines))
	log.Infof("Starting a new %dx%d game with %d mines", params.Width, params.Height, params.Mines)
	startMsg, err := protocol.EncodeGameStart(params)
	if err != nil {
		return err
	}
	server.broadcast(startMsg)
	server.gameRunning = true
	return nil
}

func (server *Server) broadcastTextMessage(message string) {
	encoded, err := protocol.EncodeTextMessage(message)
	if err != nil {
		log.Errorf("Failed to create message: %v", err)
		return
	}
	server.broadcast(encoded)
}

func (server *Server) broadcast(data []byte) {
	server.playersMux.Lock()
	defer server.playersMux.Unlock()
	for _, player := range server.players {
		sendMessage(data, player)
	}
}

func sendTextMessage(msg string, player *Player) {
	encoded, err := protocol.EncodeTextMessage(msg)
	if err != nil {
		log.Errorf("Failed to create a message: %v", err)
		return
	}
	sendMessage(encoded, player)
}

func sendMessage(data []byte, player *Player) {
	if player.connected {
		player.writeMutex.Lock()
		player.client.Write(data)
		player.writeMutex.Unlock()
	}
}

// sendBoardState brings a player up to date on the running game: the game
// parameters followed by every cell that differs from a fresh board. Mines
// stay masked unless the game is over.
func (server *Server) sendBoardState(player *Player) error {
	startMsg, err := protocol.EncodeGameStart(server.params)
	if err != nil {
		return err
	}
	sendMessage(startMsg, player)
	cellUpdates, err := server.board.CreateCellUpdates()
	if err != nil {
		return err
	}
	updateMsg, err := protocol.EncodeCellUpdates(cellUpdates)
	if err != nil {
		return err
	}
	sendMessage(updateMsg, player)
	return nil
}

func (server *Server) addPlayer(player *Player) {
	server.playersMux.Lock()
	server.players[player.id] = player
	server.playersMux.Unlock()
}

func (server *Server) markDisconnected(player *Player) {
	server.playersMux.Lock()
	player.connected = false
	server.playersMux.Unlock()
}

func handleRequest(player *Player, server *Server) {
	reader := bufio.NewReader(player.client)
	log.Infof("Player %d connected from %s", player.id, player.client.RemoteAddr())
	server.broadcastTextMessage(fmt.Sprintf("Player %d connected", player.id))
	// Route the initial board sync through the dispatcher so game state is
	// only ever touched from one goroutine.
	if reload, err := protocol.EncodeRequestReload(); err == nil {
		server.messageChannel <- command{reload, player}
	}
	for {
		header := make([]byte, protocol.HeaderLength)
		if _, err := io.ReadFull(reader, header); err != nil {
			log.Infof("Player %d disconnected", player.id)
			server.broadcastTextMessage(fmt.Sprintf("Player %d disconnected", player.id))
			server.markDisconnected(player)
			player.client.Close()
			return
		}
		messageLength := int(binary.BigEndian.Uint32(header[2:protocol.HeaderLength]))
		message := make([]byte, messageLength+protocol.HeaderLength)
		copy(message[0:protocol.HeaderLength], header)
		if _, err := io.ReadFull(reader, message[protocol.HeaderLength:]); err != nil {
			log.Errorf("Failed to read message from player %d: %v", player.id, err)
			continue
		}
		server.messageChannel <- command{message, player}
	}
}

func (server *Server) HandleMessage(data []byte, source int) error {
	if data == nil {
		return fmt.Errorf("Cannot handle empty message")
	}
	msgType := protocol.MessageType(data[0])
	handler, exists := server.handlers[msgType]
	if !exists {
		return fmt.Errorf("No handler registered for message type: %d", msgType)
	}
	return handler(data, source)
}

func (server *Server) registerHandler(msgType protocol.MessageType, handler MessageHandler) {
	server.handlers[msgType] = handler
}

func (server *Server) player(source int) *Player {
	server.playersMux.Lock()
	defer server.playersMux.Unlock()
	return server.players[source]
}

func (server *Server) RegisterHandlers() {
	server.registerHandler(protocol.StartGame, func(bytes []byte, source int) error {
		params, err := protocol.DecodeGameStart(bytes)
		if err != nil {
			return err
		}
		if server.gameRunning {
			msg, err := protocol.EncodeGameEnd(protocol.Aborted)
			if err != nil {
				return err
			}
			server.broadcast(msg)
		}
		server.broadcastTextMessage(fmt.Sprintf("Player %d requested new game", source))
		return server.StartGame(*params)
	})
	server.registerHandler(protocol.MoveCommand, func(bytes []byte, source int) error {
		if !server.gameRunning {
			sendTextMessage("Game not running. Cant make moves.", server.player(source))
			return nil
		}
		move, err := protocol.DecodeMove(bytes)
		if err != nil {
			return err
		}
		moveResult, err := server.board.MakeMove(*move)
		if err != nil {
			return err
		}
		if len(moveResult.UpdatedCells) > 0 {
			cells, err := mines.CreateUpdatedCells(server.board, moveResult.UpdatedCells)
			if err != nil {
				return err
			}
			encoded, err := protocol.EncodeCellUpdates(cells)
			if err != nil {
				return err
			}
			server.broadcast(encoded)
		}
		var endMsg []byte
		switch moveResult.Result {
		case mines.MineBlown:
			endMsg, err = protocol.EncodeGameEnd(protocol.Loss)
		case mines.GameWon:
			endMsg, err = protocol.EncodeGameEnd(protocol.Win)
		default:
			endMsg, err = nil, nil
		}
		if err != nil {
			return err
		}
		if endMsg != nil {
			server.broadcast(endMsg)
			server.gameRunning = false
		}
		return nil
	})
	server.registerHandler(protocol.RequestReload, func(bytes []byte, source int) error {
		if err := protocol.DecodeRequestReload(bytes); err != nil {
			return err
		}
		if server.board == nil {
			return nil
		}
		return server.sendBoardState(server.player(source))
	})
	server.registerHandler(protocol.HintRequest, func(bytes []byte, source int) error {
		player := server.player(source)
		var requestId uint32
		idPtr := &requestId
		if (bytes[1] & protocol.HasIdFlag) == 0 {
			idPtr = nil
		}
		if err := protocol.DecodeHintRequest(bytes, idPtr); err != nil {
			return err
		}
		if !server.gameRunning {
			sendTextMessage("Game not running. No hints available.", player)
			return nil
		}
		move, err := server.solver.NextMove()
		if errors.Is(err, solver.ErrNoMoves) {
			sendTextMessage("No moves available", player)
			return nil
		}
		if err != nil {
			return err
		}
		encoded, err := protocol.EncodeHintResponse(move, idPtr)
		if err != nil {
			return err
		}
		sendMessage(encoded, player)
		return nil
	})
	server.registerHandler(protocol.TextMessage, func(bytes []byte, source int) error {
		message, err := protocol.DecodeTextMessage(bytes)
		if err != nil {
			return err
		}
		server.broadcastTextMessage(fmt.Sprintf("Player %d: %s", source, message))
		return nil
	})
}

func (server *Server) manageCommands() {
	for command := range server.messageChannel {
		err := server.HandleMessage(command.message, command.player.id)
		if err != nil {
			log.Errorf("Failed to handle message from player %d: %v", command.player.id, err)
		}
	}
}

func createServer(name string, port uint16) (*Server, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return nil, fmt.Errorf("Failed to start server: %w", err)
	}
	handlers := make(map[protocol.MessageType]MessageHandler)
	messageChannel := make(chan command)
	serverPort := listener.Addr().(*net.TCPAddr).Port
	players := make(map[int]*Player)
	server := &Server{
		Name:           name,
		server:         listener,
		board:          nil,
		gameRunning:    false,
		handlers:       handlers,
		messageChannel: messageChannel,
		Port:           uint16(serverPort),
		players:        players,
	}
	return server, nil
}

func serverLoop(server *Server) {
	defer server.server.Close()
	id := 1
	for {
		conn, err := server.server.Accept()
		if err != nil {
			return
		}
		player := &Player{
			id:        id,
			client:    conn,
			connected: true,
		}
		server.addPlayer(player)
		go handleRequest(player, server)
		id++
	}
}

// Shutdown stops accepting new players and closes every open connection.
func (server *Server) Shutdown() {
	server.server.Close()
	server.playersMux.Lock()
	defer server.playersMux.Unlock()
	for _, player := range server.players {
		if player.connected {
			player.connected = false
			player.client.Close()
		}
	}
}

func SpawnServer(name string, port uint16) (*Server, error) {
	server, err := createServer(name, port)
	if err != nil {
		return nil, err
	}
	server.RegisterHandlers()
	go server.manageCommands()
	go serverLoop(server)
	return server, nil
}
