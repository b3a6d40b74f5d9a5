package game

import (
	"encoding/json"
	"fmt"

	"github.com/benevolentblend/cards/internal/engine"
)

// Outbound message types.
const (
	MsgGameState = "gameState"
	MsgHand      = "hand"
	MsgDraw      = "draw"
)

// Message is the envelope for every frame the room writes.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// inbound is the wire shape of a client action. Cards travel as their
// wire form ("R-5", "W-Draw4"); the color choice as a bare suit letter.
type inbound struct {
	Type         string       `json:"type"`
	Card         *engine.Card `json:"card,omitempty"`
	ChosenColor  *engine.Suit `json:"chosenColor,omitempty"`
	TargetUserID string       `json:"targetUserId,omitempty"`
}

// parseAction decodes a client frame into an engine action attributed to the
// sending connection. Identity always comes from the connection, never from
// the payload.
func parseAction(data []byte, user engine.User) (engine.Action, error) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return engine.Action{}, fmt.Errorf("decoding action: %w", err)
	}
	if msg.Type == "" {
		return engine.Action{}, fmt.Errorf("action missing type")
	}
	return engine.Action{
		Type:         engine.ActionType(msg.Type),
		User:         user,
		Card:         msg.Card,
		ChosenColor:  msg.ChosenColor,
		TargetUserID: msg.TargetUserID,
	}, nil
}
