package game

import "github.com/benevolentblend/cards/internal/engine"

// ClientGameState is the public projection broadcast to every connection in
// the room. It carries counts where the authoritative state carries cards:
// no deck contents, no discard pile beyond its top card, and no hand beyond
// its size ever leave the server on this path.
type ClientGameState struct {
	Phase            engine.Phase           `json:"phase"`
	Turn             string                 `json:"turn,omitempty"`
	Host             string                 `json:"host,omitempty"`
	Direction        engine.Direction       `json:"direction"`
	EffectiveColor   *engine.Suit           `json:"effectiveColor,omitempty"`
	PendingDrawCount int                    `json:"pendingDrawCount"`
	PendingDrawType  engine.PendingDrawType `json:"pendingDrawType"`
	OneMoreCard      *engine.OneMoreCard    `json:"oneMoreCard,omitempty"`
	Wins             map[string]int         `json:"wins"`
	Users            []ClientUser           `json:"users"`
	Spectators       []engine.User          `json:"spectators"`
	LastDiscarded    *engine.Card           `json:"lastDiscarded,omitempty"`
	DeckCount        int                    `json:"deckCount"`
	Log              []engine.LogEntry      `json:"log"`
}

// ClientUser is a seated player as everyone may see them: identity, liveness
// and hand size only.
type ClientUser struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Disconnected bool   `json:"disconnected,omitempty"`
	CardCount    int    `json:"cardCount"`
}

// ProjectState derives the public projection from the authoritative state.
// Every slice and map is freshly allocated so the caller can hand it to an
// encoder without racing the room loop.
func ProjectState(s *engine.State) ClientGameState {
	out := ClientGameState{
		Phase:            s.Phase,
		Turn:             s.Turn,
		Host:             s.Host,
		Direction:        s.Direction,
		PendingDrawCount: s.PendingDrawCount,
		PendingDrawType:  s.PendingDrawType,
		Wins:             make(map[string]int, len(s.Wins)),
		Users:            make([]ClientUser, 0, len(s.Users)),
		Spectators:       make([]engine.User, 0, len(s.Spectators)),
		DeckCount:        s.Deck.Len(),
		Log:              append([]engine.LogEntry{}, s.Log...),
	}
	if s.EffectiveColor != nil {
		c := *s.EffectiveColor
		out.EffectiveColor = &c
	}
	if s.OneMoreCard != nil {
		omc := *s.OneMoreCard
		out.OneMoreCard = &omc
	}
	for id, n := range s.Wins {
		out.Wins[id] = n
	}
	for i := range s.Users {
		u := &s.Users[i]
		out.Users = append(out.Users, ClientUser{
			ID:           u.ID,
			Name:         u.Name,
			Disconnected: s.IsDisconnected(u.ID),
			CardCount:    u.Hand.Len(),
		})
	}
	out.Spectators = append(out.Spectators, s.Spectators...)
	if !s.DiscardPile.IsEmpty() {
		top := s.LastDiscarded()
		out.LastDiscarded = &top
	}
	return out
}
