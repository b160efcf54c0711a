package presence

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/victornm/satsquest/internal/domain"
)

type MessageType string

const (
	// server to client
	MessageTypeCurrentPlayers     = MessageType("currentPlayers")
	MessageTypeNewPlayer          = MessageType("newPlayer")
	MessageTypePlayerMoved        = MessageType("playerMoved")
	MessageTypePlayerDisconnected = MessageType("playerDisconnected")

	// client to server
	MessageTypePlayerMovement = MessageType("playerMovement")
)

var (
	ErrUnknownMessage = stderrors.New("presence: unknown message type")
	ErrMalformed      = stderrors.New("presence: malformed message")
)

// Message is what the relay sends to clients. Which field is set depends on Type:
// Players for currentPlayers, Player for newPlayer and playerMoved, ID for playerDisconnected.
type Message struct {
	Type    MessageType               `json:"type"`
	Players map[string]domain.Session `json:"players,omitempty"`
	Player  *domain.Session           `json:"player,omitempty"`
	ID      string                    `json:"id,omitempty"`
}

func currentPlayers(ss map[string]domain.Session) Message {
	return Message{Type: MessageTypeCurrentPlayers, Players: ss}
}

func newPlayer(s domain.Session) Message {
	return Message{Type: MessageTypeNewPlayer, Player: &s}
}

func playerMoved(s domain.Session) Message {
	return Message{Type: MessageTypePlayerMoved, Player: &s}
}

func playerDisconnected(id string) Message {
	return Message{Type: MessageTypePlayerDisconnected, ID: id}
}

// Movement is the only message a client sends. It carries no id: it is attributed to the sending connection.
type Movement struct {
	X float64
	Y float64
}

type clientMessage struct {
	Type MessageType `json:"type"`
	X    *float64    `json:"x"`
	Y    *float64    `json:"y"`
}

// DecodeClientMessage decodes a client frame. Frames with an unknown type or missing coordinates are rejected.
func DecodeClientMessage(b []byte) (Movement, error) {
	var m clientMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return Movement{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch m.Type {
	case MessageTypePlayerMovement:
		if m.X == nil || m.Y == nil {
			return Movement{}, fmt.Errorf("%w: missing coordinates", ErrMalformed)
		}
		return Movement{X: *m.X, Y: *m.Y}, nil
	default:
		return Movement{}, fmt.Errorf("%w: %q", ErrUnknownMessage, m.Type)
	}
}
