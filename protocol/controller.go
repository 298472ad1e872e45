package protocol

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

var log *logrus.Logger

func init() {
	log = logrus.New()
}

const (
	maxReconnectAttempts = 100
)

type MessageHandler func([]byte) error

type Handler interface {
	HandleMessage(bytes []byte) error
}

type ConnectionController struct {
	server           net.Conn
	messageHandlers  map[MessageType]MessageHandler
	messageChannel   chan []byte
	Connected        bool
	host             string
	port             uint16
	AttemptReconnect bool
}

func CreateConnectionController() *ConnectionController {
	messageHandlers := make(map[MessageType]MessageHandler)
	channel := make(chan []byte, 64)
	controller := &ConnectionController{messageHandlers: messageHandlers, Connected: false, messageChannel: channel}
	controller.StartWriter()
	return controller
}

func (controller *ConnectionController) GetServerAddress() string {
	if !controller.Connected {
		return ""
	}
	addr := controller.server.RemoteAddr().(*net.TCPAddr)
	return fmt.Sprintf("%s:%d", addr.IP.String(), addr.Port)
}

func (controller *ConnectionController) StartWriter() {
	go func() {
		for message := range controller.messageChannel {
			if !controller.Connected {
				log.Warn("Attempted to write to not connected server")
				continue
			}
			_, err := controller.server.Write(message)
			if err != nil {
				log.Errorf("Failed to write to server: %v", err)
				return
			}
		}
	}()
}

func (controller *ConnectionController) TryReconnect() bool {
	for attempts := 0; attempts < maxReconnectAttempts; attempts++ {
		log.Infof("Attempting to reconnect... (%d/%d)", attempts+1, maxReconnectAttempts)
		time.Sleep(time.Second * time.Duration(2))
		err := controller.Connect(controller.host, controller.port)
		if err == nil {
			log.Info("Reconnected successfully")
			return true
		}
	}
	log.Error("Failed to reconnect after max attempts")
	return false
}

func (controller *ConnectionController) SendMessage(message []byte) error {
	select {
	case controller.messageChannel <- message:
	default:
		return fmt.Errorf("Failed to write to message channel")
	}
	return nil
}

func (controller *ConnectionController) SetConnection(conn net.Conn) error {
	if controller.Connected {
		return fmt.Errorf("Connector is already connected")
	}
	controller.server = conn
	controller.Connected = true
	return nil
}

func (controller *ConnectionController) HandleMessage(bytes []byte) error {
	msgType := MessageType(bytes[0])
	handlerFunc, exists := controller.messageHandlers[msgType]
	if !exists {
		return fmt.Errorf("No handler registered for message type: %d", msgType)
	}
	return handlerFunc(bytes)
}

func (controller *ConnectionController) Connect(host string, port uint16) error {
	if controller.Connected {
		return fmt.Errorf("Connector already connected")
	}
	controller.host = host
	controller.port = port
	server, err := connectUsingTcp(host, port)
	if err != nil {
		return err
	}
	controller.Connected = true
	controller.server = server
	return nil
}

func (controller *ConnectionController) RegisterHandler(msgType MessageType, handlerFunc MessageHandler) {
	controller.messageHandlers[msgType] = handlerFunc
}

func connectUsingTcp(host string, port uint16) (*net.TCPConn, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, fmt.Errorf("Failed to resolve server address: %w", err)
	}
	conn, err := net.DialTCP("tcp", nil, tcpAddr)
	if err != nil {
		return nil, fmt.Errorf("Failed to dial server: %w", err)
	}
	return conn, nil
}

// ReadServerResponse reads framed messages from the connection and dispatches
// them to registered handlers until the connection drops.
func (controller *ConnectionController) ReadServerResponse() error {
	reader := bufio.NewReader(controller.server)
	for {
		header := make([]byte, HeaderLength)
		if _, err := io.ReadFull(reader, header); err != nil {
			controller.Connected = false
			if !controller.AttemptReconnect || !controller.TryReconnect() {
				return fmt.Errorf("Lost connection to server")
			}
			reader = bufio.NewReader(controller.server)
			continue
		}
		messageLength := int(binary.BigEndian.Uint32(header[2:HeaderLength]))
		message := make([]byte, messageLength+HeaderLength)
		copy(message[0:HeaderLength], header)
		if _, err := io.ReadFull(reader, message[HeaderLength:]); err != nil {
			return err
		}
		if err := controller.HandleMessage(message); err != nil {
			log.Errorf("Failed to handle message: %v", err)
		}
	}
}
