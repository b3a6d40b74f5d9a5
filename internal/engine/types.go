// Package engine implements the authoritative rules of the card game: the
// room's game state aggregate, the action validator, discard legality, and
// the state transition reducer. The package does no I/O and owns its own
// randomness, so the room layer can treat Reduce as a deterministic function.
package engine

import (
	"fmt"
	"time"
)

// Tunable rule constants.
const (
	HandSize        = 7 // cards dealt to each player at the start of a round
	MaxLogSize      = 4 // most recent log entries retained
	CallOutPenalty  = 3 // cards drawn by a called-out player
	ColorDuplicates = 2 // copies of each colored card in the deck
	WildsPerName    = 4 // copies of each wild face in the deck
)

// NoHost is the sentinel host value before any user has joined.
const NoHost = ""

// Phase is the room's lifecycle stage. Turn is empty exactly in PhaseLobby;
// the reducer owns that invariant (Go has no sum types to encode it).
type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhaseGame     Phase = "game"
	PhaseGameOver Phase = "gameOver"
)

// Direction is the turn rotation order.
type Direction string

const (
	Clockwise        Direction = "clockwise"
	Counterclockwise Direction = "counterclockwise"
)

func (d Direction) flipped() Direction {
	if d == Clockwise {
		return Counterclockwise
	}
	return Clockwise
}

// PendingDrawType tags an unresolved forced-draw obligation.
type PendingDrawType string

const (
	PendingNone  PendingDrawType = "none"
	PendingDraw2 PendingDrawType = "Draw2"
	PendingDraw4 PendingDrawType = "Draw4"
)

// User identifies a participant. The ID is stable per connection-session; the
// display name comes from the connection's request parameters.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Player is a user holding a hand. Disconnected players keep their Player
// entry (and hand) until they reconnect or are removed.
type Player struct {
	User
	Hand Hand `json:"-"`
}

// LogEntry is one human-readable room event.
type LogEntry struct {
	DT      int64  `json:"dt"` // unix milliseconds
	Message string `json:"message"`
}

// OneMoreCard tracks the at-most-one pending "down to one card" state.
// DeclaredBy is set when a player at exactly two cards announces intent;
// VulnerablePlayer is set when a player reaches one card without declaring.
type OneMoreCard struct {
	DeclaredBy       string `json:"declaredBy,omitempty"`
	VulnerablePlayer string `json:"vulnerablePlayer,omitempty"`
}

// State is the single authoritative aggregate for a room. It is created once
// when the room is first addressed and lives for the room's process lifetime.
// Reduce never mutates its input; it clones, applies, and returns.
type State struct {
	Phase            Phase
	Turn             string // user id holding the turn; empty in lobby
	Host             string // NoHost or a user present in Users or Spectators
	Direction        Direction
	EffectiveColor   *Suit // wild override color; nil when the pile's own suit governs
	PendingDrawCount int
	PendingDrawType  PendingDrawType
	OneMoreCard      *OneMoreCard
	Wins             map[string]int
	Users            []Player
	Disconnected     map[string]bool // subset of Users, by id
	Spectators       []User
	Deck             Deck
	DiscardPile      Collection
	Log              []LogEntry

	rng uint64
}

// NewState creates a fresh room aggregate: a shuffled double deck with wilds,
// the top card flipped to start the discard pile, and an empty lobby.
func NewState(seed uint64) *State {
	s := &State{
		Phase:           PhaseLobby,
		Host:            NoHost,
		Direction:       Clockwise,
		PendingDrawType: PendingNone,
		Wins:            make(map[string]int),
		Disconnected:    make(map[string]bool),
		rng:             seed,
	}
	if s.rng == 0 {
		s.rng = 1 // xorshift can't start at 0
	}
	s.Deck = BuildDeck(DeckOptions{Duplicates: ColorDuplicates, WildCount: WildsPerName})
	_ = s.Deck.Shuffle(s.randN)
	top, _ := s.Deck.DrawCard()
	s.DiscardPile.AddCards(top)
	s.addLog("Game Created!")
	return s
}

// nextRand advances the xorshift64 generator.
func (s *State) nextRand() uint64 {
	x := s.rng
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	s.rng = x
	return x
}

// randN returns a value in [0, n).
func (s *State) randN(n int) int {
	return int(s.nextRand() % uint64(n))
}

// Clone deep-copies the aggregate.
func (s *State) Clone() *State {
	next := &State{
		Phase:            s.Phase,
		Turn:             s.Turn,
		Host:             s.Host,
		Direction:        s.Direction,
		PendingDrawCount: s.PendingDrawCount,
		PendingDrawType:  s.PendingDrawType,
		Wins:             make(map[string]int, len(s.Wins)),
		Users:            make([]Player, len(s.Users)),
		Disconnected:     make(map[string]bool, len(s.Disconnected)),
		Spectators:       append([]User{}, s.Spectators...),
		Deck:             s.Deck.Clone(),
		DiscardPile:      s.DiscardPile.Clone(),
		Log:              append([]LogEntry{}, s.Log...),
		rng:              s.rng,
	}
	if s.EffectiveColor != nil {
		color := *s.EffectiveColor
		next.EffectiveColor = &color
	}
	if s.OneMoreCard != nil {
		omc := *s.OneMoreCard
		next.OneMoreCard = &omc
	}
	for id, n := range s.Wins {
		next.Wins[id] = n
	}
	for i, p := range s.Users {
		next.Users[i] = Player{User: p.User, Hand: p.Hand.Clone()}
	}
	for id := range s.Disconnected {
		next.Disconnected[id] = true
	}
	return next
}

// UserIndex returns the position of the player with the given id, or -1.
func (s *State) UserIndex(id string) int {
	for i := range s.Users {
		if s.Users[i].ID == id {
			return i
		}
	}
	return -1
}

// SpectatorIndex returns the position of the spectator with the given id, or -1.
func (s *State) SpectatorIndex(id string) int {
	for i := range s.Spectators {
		if s.Spectators[i].ID == id {
			return i
		}
	}
	return -1
}

// IsDisconnected reports whether the player id is flagged disconnected.
func (s *State) IsDisconnected(id string) bool { return s.Disconnected[id] }

// ActivePlayerCount counts players not flagged disconnected.
func (s *State) ActivePlayerCount() int {
	n := 0
	for i := range s.Users {
		if !s.Disconnected[s.Users[i].ID] {
			n++
		}
	}
	return n
}

// TotalCards returns the number of cards across the deck, the discard pile,
// and every hand. Conserved across all transitions.
func (s *State) TotalCards() int {
	n := s.Deck.Len() + s.DiscardPile.Len()
	for i := range s.Users {
		n += s.Users[i].Hand.Len()
	}
	return n
}

// LastDiscarded returns the active card at the front of the discard pile.
// The pile is never empty after initialization.
func (s *State) LastDiscarded() Card {
	return s.DiscardPile.Cards()[0]
}

// NextTurn returns the id of the next non-disconnected player after `from`
// in the current direction, applied `steps` times. Returns from unchanged if
// no other active player exists.
func (s *State) NextTurn(from string, steps int) string {
	cur := from
	for i := 0; i < steps; i++ {
		cur = s.nextActiveAfter(cur)
	}
	return cur
}

func (s *State) nextActiveAfter(from string) string {
	n := len(s.Users)
	if n == 0 {
		return from
	}
	idx := s.UserIndex(from)
	if idx < 0 {
		idx = 0
	}
	step := 1
	if s.Direction == Counterclockwise {
		step = n - 1
	}
	for hops := 0; hops < n; hops++ {
		idx = (idx + step) % n
		if !s.Disconnected[s.Users[idx].ID] {
			return s.Users[idx].ID
		}
	}
	return from
}

// addLog prepends a timestamped entry, keeping the MaxLogSize most recent.
func (s *State) addLog(format string, args ...any) {
	entry := LogEntry{DT: time.Now().UnixMilli(), Message: fmt.Sprintf(format, args...)}
	s.Log = append([]LogEntry{entry}, s.Log...)
	if len(s.Log) > MaxLogSize {
		s.Log = s.Log[:MaxLogSize]
	}
}
