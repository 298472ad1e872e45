package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/tomasstrnad1997/mines_solver/mines"
	"github.com/tomasstrnad1997/mines_solver/solver"
)

type MessageType byte

const (
	MoveCommand   MessageType = 0x01
	TextMessage   MessageType = 0x02
	StartGame     MessageType = 0x03
	CellUpdate    MessageType = 0x04
	RequestReload MessageType = 0x05
	GameEnd       MessageType = 0x06
	HintRequest   MessageType = 0x07
	HintResponse  MessageType = 0x08
)

// Custom flags of special second byte
const (
	HasIdFlag byte = 0x01
)

type GameEndType byte

const (
	Win     GameEndType = 0x01
	Loss    GameEndType = 0x02
	Aborted GameEndType = 0x03
)

const (
	HeaderLength         = 6
	UpdateCellByteLength = 9
	MoveByteLength       = 9
	HintByteLength       = 17
	StartGameByteLength  = 20
)

var (
	ErrInvalidPayloadSize = errors.New("invalid payload size")
)

func checkAndDecodeLength(data []byte, message MessageType) (int, error) {
	if len(data) < HeaderLength {
		return 0, fmt.Errorf("Data too short to decode")
	}
	if MessageType(data[0]) != message {
		return 0, fmt.Errorf("Invalid message type for command E:%d R:%d", message, data[0])
	}
	payloadLength := int(binary.BigEndian.Uint32(data[2:6]))
	if payloadLength != len(data)-HeaderLength {
		return payloadLength, ErrInvalidPayloadSize
	}
	return payloadLength, nil
}

func GetRequestId(data []byte, requestId *uint32) error {
	if requestId == nil {
		return fmt.Errorf("RequestId pointer is nil")
	}
	if (data[1] & HasIdFlag) == 0 {
		return fmt.Errorf("HasIdFlag not set so packet does not contain requestId")
	}
	if len(data) < HeaderLength+4 {
		return fmt.Errorf("Data too short to retrieve requestId")
	}
	*requestId = binary.BigEndian.Uint32(data[HeaderLength : HeaderLength+4])
	return nil
}

func intToBytes(i int) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(i))
	return buf
}

func bytesToInt(bytes []byte) int {
	return int(binary.BigEndian.Uint32(bytes))
}

func writePayloadLength(buf *bytes.Buffer, length int) error {
	err := binary.Write(buf, binary.BigEndian, uint32(length))
	if err != nil {
		return fmt.Errorf("Failed to write length (%d)", length)
	}
	return nil
}

func EncodeMove(move mines.Move) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(MoveCommand))
	// Reserved byte for future use
	buf.WriteByte(byte(0x00))
	payload := make([]byte, MoveByteLength)
	payload[0] = byte(move.Type)
	copy(payload[1:5], intToBytes(move.X))
	copy(payload[5:9], intToBytes(move.Y))

	err := writePayloadLength(&buf, len(payload))
	if err != nil {
		return nil, err
	}
	buf.Write(payload)
	return buf.Bytes(), nil
}

func DecodeMove(data []byte) (*mines.Move, error) {
	length, err := checkAndDecodeLength(data, MoveCommand)
	if err != nil {
		return nil, err
	}
	if length != MoveByteLength {
		return nil, ErrInvalidPayloadSize
	}
	payload := data[HeaderLength:]
	move := &mines.Move{}
	move.Type = mines.MoveType(payload[0])
	move.X = bytesToInt(payload[1:5])
	move.Y = bytesToInt(payload[5:9])
	return move, nil
}

func EncodeGameStart(params mines.GameParams) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(StartGame))
	buf.WriteByte(byte(0x00))
	err := writePayloadLength(&buf, StartGameByteLength)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, StartGameByteLength)
	copy(payload[0:4], intToBytes(params.Width))
	copy(payload[4:8], intToBytes(params.Height))
	copy(payload[8:12], intToBytes(params.Mines))
	binary.BigEndian.PutUint64(payload[12:20], uint64(params.Seed))
	buf.Write(payload)
	return buf.Bytes(), nil
}

func DecodeGameStart(data []byte) (*mines.GameParams, error) {
	payloadLength, err := checkAndDecodeLength(data, StartGame)
	if err != nil {
		return nil, err
	}
	if payloadLength != StartGameByteLength {
		return nil, ErrInvalidPayloadSize
	}
	payload := data[HeaderLength:]
	params := &mines.GameParams{
		Width:  bytesToInt(payload[0:4]),
		Height: bytesToInt(payload[4:8]),
		Mines:  bytesToInt(payload[8:12]),
		Seed:   int64(binary.BigEndian.Uint64(payload[12:20])),
	}
	return params, nil
}

func encodeCellUpdate(cell mines.UpdatedCell) []byte {
	data := make([]byte, UpdateCellByteLength)
	copy(data[0:4], intToBytes(cell.X))
	copy(data[4:8], intToBytes(cell.Y))
	data[8] = cell.Value
	return data
}

func EncodeCellUpdates(cells []mines.UpdatedCell) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(CellUpdate))
	buf.WriteByte(byte(0x00))
	payloadLength := len(cells) * UpdateCellByteLength
	err := writePayloadLength(&buf, payloadLength)
	if err != nil {
		return nil, err
	}
	for _, cell := range cells {
		buf.Write(encodeCellUpdate(cell))
	}
	if payloadLength+HeaderLength != buf.Len() {
		return nil, fmt.Errorf("Incorrect payload length while encoding cell updates")
	}
	return buf.Bytes(), nil
}

func decodeCellUpdate(data []byte) (*mines.UpdatedCell, error) {
	if len(data) != UpdateCellByteLength {
		return nil, fmt.Errorf("incorrect byte length to decode cell update (%d)", len(data))
	}
	cell := &mines.UpdatedCell{
		X:     bytesToInt(data[0:4]),
		Y:     bytesToInt(data[4:8]),
		Value: data[8]}
	return cell, nil
}

func DecodeCellUpdates(data []byte) ([]mines.UpdatedCell, error) {
	payloadLength, err := checkAndDecodeLength(data, CellUpdate)
	if err != nil {
		return nil, err
	}
	payload := data[HeaderLength:]
	if payloadLength%UpdateCellByteLength != 0 {
		return nil, fmt.Errorf("update cells payload length mismatch %d", payloadLength)
	}
	cells := make([]mines.UpdatedCell, payloadLength/UpdateCellByteLength)
	for i := range payloadLength / UpdateCellByteLength {
		cell, err := decodeCellUpdate(payload[i*UpdateCellByteLength : (i+1)*UpdateCellByteLength])
		if err != nil {
			return nil, err
		}
		cells[i] = *cell
	}
	return cells, nil
}

func EncodeRequestReload() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(RequestReload))
	buf.WriteByte(byte(0x00))
	if err := writePayloadLength(&buf, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeRequestReload(data []byte) error {
	length, err := checkAndDecodeLength(data, RequestReload)
	if err != nil {
		return err
	}
	if length != 0 {
		return ErrInvalidPayloadSize
	}
	return nil
}

func EncodeGameEnd(endType GameEndType) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(GameEnd))
	buf.WriteByte(byte(0x00))
	err := writePayloadLength(&buf, 1)
	if err != nil {
		return nil, err
	}
	buf.WriteByte(byte(endType))
	return buf.Bytes(), nil
}

func DecodeGameEnd(data []byte) (GameEndType, error) {
	length, err := checkAndDecodeLength(data, GameEnd)
	if err != nil {
		return 0, err
	}
	if length != 1 {
		return 0, ErrInvalidPayloadSize
	}
	return GameEndType(data[HeaderLength]), nil
}

func EncodeTextMessage(message string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(TextMessage))
	buf.WriteByte(byte(0x00))
	payload := []byte(message)
	err := writePayloadLength(&buf, len(payload))
	if err != nil {
		return nil, err
	}
	buf.Write(payload)
	return buf.Bytes(), nil
}

func DecodeTextMessage(data []byte) (string, error) {
	_, err := checkAndDecodeLength(data, TextMessage)
	if err != nil {
		return "", err
	}
	payload := data[HeaderLength:]
	return string(payload), nil
}

// EncodeHintRequest asks the server for the solver's recommended move. The
// optional requestId is echoed back in the response so a client can match
// the two up.
func EncodeHintRequest(requestId *uint32) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(HintRequest))
	var flags byte = 0x00
	payloadLength := 0
	if requestId != nil {
		payloadLength += 4
		flags |= HasIdFlag
	}
	buf.WriteByte(byte(flags))
	err := writePayloadLength(&buf, payloadLength)
	if err != nil {
		return nil, err
	}
	if requestId != nil {
		if err := binary.Write(&buf, binary.BigEndian, *requestId); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func DecodeHintRequest(data []byte, requestId *uint32) error {
	_, err := checkAndDecodeLength(data, HintRequest)
	if err != nil {
		return err
	}
	if requestId != nil {
		if err := GetRequestId(data, requestId); err != nil {
			return err
		}
	}
	return nil
}

func EncodeHintResponse(move solver.Move, requestId *uint32) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(HintResponse))
	var flags byte = 0x00
	offset := 0
	if requestId != nil {
		flags |= HasIdFlag
		offset += 4
	}
	buf.WriteByte(byte(flags))
	if err := writePayloadLength(&buf, HintByteLength+offset); err != nil {
		return nil, err
	}
	if requestId != nil {
		if err := binary.Write(&buf, binary.BigEndian, *requestId); err != nil {
			return nil, err
		}
	}
	payload := make([]byte, HintByteLength)
	payload[0] = byte(move.Strategy)
	copy(payload[1:5], intToBytes(move.X))
	copy(payload[5:9], intToBytes(move.Y))
	binary.BigEndian.PutUint64(payload[9:17], math.Float64bits(move.Risk))
	if _, err := buf.Write(payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeHintResponse(data []byte, requestId *uint32) (solver.Move, error) {
	_, err := checkAndDecodeLength(data, HintResponse)
	if err != nil {
		return solver.Move{}, err
	}
	offset := HeaderLength
	if requestId != nil {
		if err := GetRequestId(data, requestId); err != nil {
			return solver.Move{}, err
		}
		offset += 4
	}
	payload := data[offset:]
	if len(payload) != HintByteLength {
		return solver.Move{}, ErrInvalidPayloadSize
	}
	if payload[0] > byte(solver.Probability) {
		return solver.Move{}, fmt.Errorf("Unknown hint strategy: %d", payload[0])
	}
	move := solver.Move{
		Strategy: solver.Strategy(payload[0]),
		X:        bytesToInt(payload[1:5]),
		Y:        bytesToInt(payload[5:9]),
		Risk:     math.Float64frombits(binary.BigEndian.Uint64(payload[9:17])),
	}
	return move, nil
}
