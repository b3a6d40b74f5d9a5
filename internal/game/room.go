// Package game implements the room protocol layer: one session per room
// owning a single authoritative engine.State, fed by a single-consumer event
// queue so that validate → reduce → broadcast is atomic per action. The
// public projection goes to every connection; hidden information (hands,
// drawn cards) is unicast to its owner only.
package game

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/benevolentblend/cards/internal/cache"
	"github.com/benevolentblend/cards/internal/database"
	"github.com/benevolentblend/cards/internal/engine"
)

// Conn is the room's view of one live connection. UserID is stable per
// connection-session (the client persists it across reconnects); Send must be
// safe to call from the room's event loop.
type Conn interface {
	UserID() string
	DisplayName() string
	Send(msg Message) error
}

type eventKind uint8

const (
	evJoin eventKind = iota
	evLeave
	evMessage
)

type event struct {
	kind eventKind
	conn Conn
	data []byte
}

// Options wires a room's collaborators. History and Results are optional;
// nil disables them.
type Options struct {
	Logger  *logrus.Logger
	History *cache.Publisher
	Results *database.Store
}

// Room is an independent actor: exactly one goroutine mutates its state, and
// no shared mutable state crosses room boundaries.
type Room struct {
	ID string

	log       *logrus.Entry
	state     *engine.State
	conns     map[string]Conn // live connections by user id
	events    chan event
	occupancy atomic.Int32

	history *cache.Publisher
	results *database.Store
}

// NewRoom creates the room's authoritative state and starts its event loop.
func NewRoom(id string, opts Options) *Room {
	r := newRoom(id, opts)
	go r.run()
	return r
}

// newRoom builds a room without starting the loop (direct-dispatch tests).
func newRoom(id string, opts Options) *Room {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Room{
		ID:      id,
		log:     logger.WithField("room", id),
		state:   engine.NewState(uint64(time.Now().UnixNano())),
		conns:   make(map[string]Conn),
		events:  make(chan event, 64),
		history: opts.History,
		results: opts.Results,
	}
}

// Join enqueues a connection arrival.
func (r *Room) Join(c Conn) { r.events <- event{kind: evJoin, conn: c} }

// Leave enqueues a connection departure.
func (r *Room) Leave(c Conn) { r.events <- event{kind: evLeave, conn: c} }

// Receive enqueues an inbound message from a connection.
func (r *Room) Receive(c Conn, data []byte) {
	r.events <- event{kind: evMessage, conn: c, data: data}
}

// Count returns the number of live connections. This is the room's entire
// upward contract: the room-discovery collaborator asks it to decide whether
// a candidate room id is already occupied.
func (r *Room) Count() int { return int(r.occupancy.Load()) }

func (r *Room) run() {
	for ev := range r.events {
		switch ev.kind {
		case evJoin:
			r.handleJoin(ev.conn)
		case evLeave:
			r.handleLeave(ev.conn)
		case evMessage:
			r.handleMessage(ev.conn, ev.data)
		}
	}
}

func (r *Room) handleJoin(c Conn) {
	id := c.UserID()
	user := engine.User{ID: id, Name: c.DisplayName()}

	replaced := r.conns[id] != nil
	r.conns[id] = c
	r.occupancy.Store(int32(len(r.conns)))

	var action engine.Action
	switch {
	case r.state.IsDisconnected(id):
		action = engine.Action{Type: engine.ActionUserReconnected, User: user}
	case replaced || r.state.UserIndex(id) >= 0 || r.state.SpectatorIndex(id) >= 0:
		// Same session reattached without a disconnect in between: nothing
		// to reduce, just resynchronize the newcomer.
		r.sendState(c)
		r.sendHand(id)
		return
	case r.state.Phase == engine.PhaseGame:
		action = engine.Action{Type: engine.ActionSpectatorEntered, User: user}
	default:
		action = engine.Action{Type: engine.ActionUserEntered, User: user}
	}

	r.apply(action)
	r.sendHand(id)
}

func (r *Room) handleLeave(c Conn) {
	id := c.UserID()
	if r.conns[id] != c {
		// A newer connection already took over this user id.
		return
	}
	delete(r.conns, id)
	r.occupancy.Store(int32(len(r.conns)))

	user := engine.User{ID: id, Name: c.DisplayName()}
	switch {
	case r.state.UserIndex(id) >= 0:
		if r.state.Phase == engine.PhaseGame {
			// Hold the seat and hand so the player can return.
			r.apply(engine.Action{Type: engine.ActionUserDisconnected, User: user})
		} else {
			r.apply(engine.Action{Type: engine.ActionUserExit, User: user})
		}
	case r.state.SpectatorIndex(id) >= 0:
		r.apply(engine.Action{Type: engine.ActionSpectatorExit, User: user})
	}
}

func (r *Room) handleMessage(c Conn, data []byte) {
	action, err := parseAction(data, engine.User{ID: c.UserID(), Name: c.DisplayName()})
	if err != nil {
		r.log.WithError(err).Warn("dropping malformed message")
		return
	}
	log := r.log.WithFields(logrus.Fields{"user": action.User.ID, "action": action.Type})

	if reason, ok := r.authorize(action); !ok {
		log.WithField("reason", reason).Info("action not authorized")
		return
	}

	idx := r.state.UserIndex(action.User.ID)
	if rerr := engine.Validate(action, r.state, idx); rerr != nil {
		log.WithField("reason", rerr.Kind).Info("action rejected")
		// A failed discard means the client's view of its own hand has
		// drifted; push the true hand back instead of mutating anything.
		if rerr.Kind == engine.ErrBadDiscard || rerr.Kind == engine.ErrMissingColorChoice {
			r.sendHand(action.User.ID)
		}
		return
	}

	prev := r.state
	r.apply(action)
	r.pushPrivate(action, prev)
}

// authorize applies the role checks that sit in front of the validator.
// Connection lifecycle actions can never arrive from the wire.
func (r *Room) authorize(a engine.Action) (reason string, ok bool) {
	isPlayer := r.state.UserIndex(a.User.ID) >= 0
	isSpectator := r.state.SpectatorIndex(a.User.ID) >= 0

	switch a.Type {
	case engine.ActionKickPlayer:
		if a.User.ID != r.state.Host {
			return "host only", false
		}
	case engine.ActionBecomePlayer:
		if !isSpectator {
			return "spectators only", false
		}
	case engine.ActionStartGame, engine.ActionDraw, engine.ActionDiscard,
		engine.ActionDeclareOneMoreCard, engine.ActionBecomeSpectator,
		engine.ActionCallOut:
		if !isPlayer {
			return "players only", false
		}
	default:
		return "unknown action", false
	}
	return "", true
}

// apply runs the reducer and fans out the new public projection. No other
// event for this room can interleave between reduction and broadcast.
func (r *Room) apply(a engine.Action) {
	prev := r.state
	r.state = engine.Reduce(prev, a)
	r.publishAction(a)
	if prev.Phase != engine.PhaseGameOver && r.state.Phase == engine.PhaseGameOver {
		r.recordRoundResult()
	}
	r.broadcast()
}

// pushPrivate delivers hidden information revealed by a successful action to
// the connections whose hands changed.
func (r *Room) pushPrivate(a engine.Action, prev *engine.State) {
	switch a.Type {
	case engine.ActionDraw:
		idx := r.state.UserIndex(a.User.ID)
		prevIdx := prev.UserIndex(a.User.ID)
		if idx < 0 || prevIdx < 0 {
			return
		}
		hand := r.state.Users[idx].Hand.Cards()
		grew := len(hand) - prev.Users[prevIdx].Hand.Len()
		if grew <= 0 {
			return
		}
		drawn := append([]engine.Card{}, hand[len(hand)-grew:]...)
		if grew == 1 {
			r.sendTo(a.User.ID, Message{Type: MsgDraw, Payload: drawn[0]})
		} else {
			r.sendTo(a.User.ID, Message{Type: MsgDraw, Payload: drawn})
		}
	case engine.ActionStartGame:
		if r.state.Phase != engine.PhaseGame {
			return
		}
		for i := range r.state.Users {
			r.sendHand(r.state.Users[i].ID)
		}
	case engine.ActionBecomePlayer:
		r.sendHand(a.User.ID)
	case engine.ActionCallOut:
		r.sendHand(a.TargetUserID)
	}
}

func (r *Room) broadcast() {
	msg := Message{Type: MsgGameState, Payload: ProjectState(r.state)}
	for id, c := range r.conns {
		if err := c.Send(msg); err != nil {
			r.log.WithError(err).WithField("user", id).Debug("broadcast write failed")
		}
	}
}

func (r *Room) sendState(c Conn) {
	if err := c.Send(Message{Type: MsgGameState, Payload: ProjectState(r.state)}); err != nil {
		r.log.WithError(err).Debug("state write failed")
	}
}

// sendHand unicasts the owner's full hand. Hands never ride the broadcast.
func (r *Room) sendHand(userID string) {
	idx := r.state.UserIndex(userID)
	if idx < 0 {
		return
	}
	cards := append([]engine.Card{}, r.state.Users[idx].Hand.Cards()...)
	r.sendTo(userID, Message{Type: MsgHand, Payload: cards})
}

func (r *Room) sendTo(userID string, msg Message) {
	c := r.conns[userID]
	if c == nil {
		return
	}
	if err := c.Send(msg); err != nil {
		r.log.WithError(err).WithField("user", userID).Debug("unicast write failed")
	}
}

func (r *Room) publishAction(a engine.Action) {
	if r.history == nil {
		return
	}
	rec := cache.ActionRecord{
		ID:         uuid.NewString(),
		RoomID:     r.ID,
		ActorID:    a.User.ID,
		ActionType: string(a.Type),
		Timestamp:  time.Now().UnixMilli(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.history.Publish(ctx, rec); err != nil {
			r.log.WithError(err).Warn("failed publishing action record")
		}
	}()
}

func (r *Room) recordRoundResult() {
	if r.results == nil {
		return
	}
	winnerID := r.state.Turn
	winnerName := winnerID
	if idx := r.state.UserIndex(winnerID); idx >= 0 {
		winnerName = r.state.Users[idx].Name
	}
	wins := make(map[string]int, len(r.state.Wins))
	for id, n := range r.state.Wins {
		wins[id] = n
	}
	roomID := r.ID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.results.RecordRoundResult(ctx, roomID, winnerID, winnerName, wins); err != nil {
			r.log.WithError(err).Warn("failed recording round result")
		}
	}()
}
