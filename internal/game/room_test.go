package game

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benevolentblend/cards/internal/engine"
)

// fakeConn records every message the room sends it.
type fakeConn struct {
	id   string
	name string

	mu   sync.Mutex
	msgs []Message
}

func newFakeConn(id, name string) *fakeConn {
	return &fakeConn{id: id, name: name}
}

func (f *fakeConn) UserID() string      { return f.id }
func (f *fakeConn) DisplayName() string { return f.name }

func (f *fakeConn) Send(msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeConn) messagesOfType(typ string) []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Message
	for _, m := range f.msgs {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeConn) lastOfType(typ string) (Message, bool) {
	msgs := f.messagesOfType(typ)
	if len(msgs) == 0 {
		return Message{}, false
	}
	return msgs[len(msgs)-1], true
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = nil
}

// testRoom dispatches events synchronously so tests can assert between
// steps. Production rooms run the same handlers off a channel.
func testRoom(t *testing.T) *Room {
	t.Helper()
	r := newRoom("test-room", Options{})
	r.state = engine.NewState(42)
	return r
}

func send(t *testing.T, r *Room, c Conn, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	r.handleMessage(c, data)
}

type wireAction struct {
	Type         string `json:"type"`
	Card         string `json:"card,omitempty"`
	ChosenColor  string `json:"chosenColor,omitempty"`
	TargetUserID string `json:"targetUserId,omitempty"`
}

func TestJoinLobbySeatsPlayer(t *testing.T) {
	r := testRoom(t)
	alice := newFakeConn("a", "Alice")
	r.handleJoin(alice)

	require.Equal(t, 1, r.Count())
	require.GreaterOrEqual(t, r.state.UserIndex("a"), 0)
	assert.Equal(t, "a", r.state.Host)

	state, ok := alice.lastOfType(MsgGameState)
	require.True(t, ok, "joiner must receive a state broadcast")
	proj := state.Payload.(ClientGameState)
	require.Len(t, proj.Users, 1)
	assert.Equal(t, "Alice", proj.Users[0].Name)

	hand, ok := alice.lastOfType(MsgHand)
	require.True(t, ok, "joiner must receive its hand")
	assert.Empty(t, hand.Payload.([]engine.Card))
}

func TestMidGameJoinerBecomesSpectator(t *testing.T) {
	r := testRoom(t)
	alice := newFakeConn("a", "Alice")
	bob := newFakeConn("b", "Bob")
	r.handleJoin(alice)
	r.handleJoin(bob)
	send(t, r, alice, wireAction{Type: "startGame"})
	require.Equal(t, engine.PhaseGame, r.state.Phase)

	carol := newFakeConn("c", "Carol")
	r.handleJoin(carol)

	assert.Equal(t, -1, r.state.UserIndex("c"))
	require.GreaterOrEqual(t, r.state.SpectatorIndex("c"), 0)

	state, ok := carol.lastOfType(MsgGameState)
	require.True(t, ok)
	proj := state.Payload.(ClientGameState)
	require.Len(t, proj.Spectators, 1)
	assert.Equal(t, "Carol", proj.Spectators[0].Name)
}

func TestStartGameDealsHandsPrivately(t *testing.T) {
	r := testRoom(t)
	alice := newFakeConn("a", "Alice")
	bob := newFakeConn("b", "Bob")
	r.handleJoin(alice)
	r.handleJoin(bob)
	alice.reset()
	bob.reset()

	send(t, r, alice, wireAction{Type: "startGame"})
	require.Equal(t, engine.PhaseGame, r.state.Phase)

	for _, c := range []*fakeConn{alice, bob} {
		hand, ok := c.lastOfType(MsgHand)
		require.True(t, ok, "%s must receive a dealt hand", c.name)
		assert.Len(t, hand.Payload.([]engine.Card), engine.HandSize)
	}

	// The broadcast carries hand sizes only.
	state, ok := alice.lastOfType(MsgGameState)
	require.True(t, ok)
	proj := state.Payload.(ClientGameState)
	for _, u := range proj.Users {
		assert.Equal(t, engine.HandSize, u.CardCount)
	}
}

func TestProjectionHidesHiddenInformation(t *testing.T) {
	r := testRoom(t)
	alice := newFakeConn("a", "Alice")
	bob := newFakeConn("b", "Bob")
	r.handleJoin(alice)
	r.handleJoin(bob)
	send(t, r, alice, wireAction{Type: "startGame"})

	raw, err := json.Marshal(ProjectState(r.state))
	require.NoError(t, err)
	encoded := string(raw)

	top := r.state.LastDiscarded().String()
	for i := range r.state.Users {
		for _, card := range r.state.Users[i].Hand.Cards() {
			if card.String() == top {
				continue
			}
			assert.NotContains(t, encoded, fmt.Sprintf("%q", card.String()),
				"hand card leaked into public projection")
		}
	}
	assert.Contains(t, encoded, fmt.Sprintf("%q", top))
	assert.Contains(t, encoded, `"deckCount"`)
	assert.NotContains(t, encoded, `"deck"`)
}

func TestDrawIsUnicastToDrawer(t *testing.T) {
	r := testRoom(t)
	alice := newFakeConn("a", "Alice")
	bob := newFakeConn("b", "Bob")
	r.handleJoin(alice)
	r.handleJoin(bob)
	send(t, r, alice, wireAction{Type: "startGame"})

	drawer := r.state.Turn
	conns := map[string]*fakeConn{"a": alice, "b": bob}
	other := "a"
	if drawer == "a" {
		other = "b"
	}
	conns[drawer].reset()
	conns[other].reset()

	send(t, r, conns[drawer], wireAction{Type: "draw"})

	draws := conns[drawer].messagesOfType(MsgDraw)
	require.Len(t, draws, 1)
	card, ok := draws[0].Payload.(engine.Card)
	require.True(t, ok, "single draw carries one bare card")
	assert.True(t, r.state.Users[r.state.UserIndex(drawer)].Hand.HasCard(card))

	assert.Empty(t, conns[other].messagesOfType(MsgDraw), "draws are private")
	assert.NotEmpty(t, conns[other].messagesOfType(MsgGameState), "everyone still gets the projection")
}

func TestBadDiscardResyncsHand(t *testing.T) {
	r := testRoom(t)
	alice := newFakeConn("a", "Alice")
	bob := newFakeConn("b", "Bob")
	r.handleJoin(alice)
	r.handleJoin(bob)
	send(t, r, alice, wireAction{Type: "startGame"})

	actor := r.state.Turn
	conns := map[string]*fakeConn{"a": alice, "b": bob}
	before := r.state

	// A card no client can legally hold alongside a fresh shuffle check:
	// claim to discard something absurdly specific and unheld.
	conns[actor].reset()
	send(t, r, conns[actor], wireAction{Type: "discard", Card: "W-Draw4", ChosenColor: "B"})

	handIdx := r.state.UserIndex(actor)
	if before.Users[before.UserIndex(actor)].Hand.HasCard(engine.Card{Suit: engine.SuitWild, Name: engine.NameDraw4}) {
		t.Skip("fixture dealt the actor a W-Draw4; nothing to reject")
	}

	assert.Same(t, before, r.state, "rejected action must not replace state")
	hand, ok := conns[actor].lastOfType(MsgHand)
	require.True(t, ok, "rejected discard must resync the hand")
	assert.Len(t, hand.Payload.([]engine.Card), r.state.Users[handIdx].Hand.Len())
	assert.Empty(t, conns[actor].messagesOfType(MsgGameState), "no broadcast on rejection")
}

func TestKickRequiresHost(t *testing.T) {
	r := testRoom(t)
	alice := newFakeConn("a", "Alice")
	bob := newFakeConn("b", "Bob")
	r.handleJoin(alice)
	r.handleJoin(bob)
	require.Equal(t, "a", r.state.Host)

	send(t, r, bob, wireAction{Type: "kickPlayer", TargetUserID: "a"})
	assert.GreaterOrEqual(t, r.state.UserIndex("a"), 0, "non-host kick must be ignored")

	send(t, r, alice, wireAction{Type: "kickPlayer", TargetUserID: "b"})
	assert.Equal(t, -1, r.state.UserIndex("b"))
}

func TestSpectatorCannotPlay(t *testing.T) {
	r := testRoom(t)
	alice := newFakeConn("a", "Alice")
	bob := newFakeConn("b", "Bob")
	r.handleJoin(alice)
	r.handleJoin(bob)
	send(t, r, alice, wireAction{Type: "startGame"})

	carol := newFakeConn("c", "Carol")
	r.handleJoin(carol)
	before := r.state

	send(t, r, carol, wireAction{Type: "draw"})
	assert.Same(t, before, r.state, "spectator draw must be ignored")

	send(t, r, carol, wireAction{Type: "becomePlayer"})
	require.GreaterOrEqual(t, r.state.UserIndex("c"), 0)
	hand, ok := carol.lastOfType(MsgHand)
	require.True(t, ok)
	assert.Empty(t, hand.Payload.([]engine.Card), "mid-game entrant starts empty-handed")
}

func TestDisconnectDuringGameHoldsSeat(t *testing.T) {
	r := testRoom(t)
	alice := newFakeConn("a", "Alice")
	bob := newFakeConn("b", "Bob")
	r.handleJoin(alice)
	r.handleJoin(bob)
	send(t, r, alice, wireAction{Type: "startGame"})

	handBefore := append([]engine.Card{}, r.state.Users[r.state.UserIndex("b")].Hand.Cards()...)
	r.handleLeave(bob)

	require.GreaterOrEqual(t, r.state.UserIndex("b"), 0, "seat held during game")
	assert.True(t, r.state.IsDisconnected("b"))
	assert.Equal(t, 1, r.Count())

	bob2 := newFakeConn("b", "Bob")
	r.handleJoin(bob2)
	assert.False(t, r.state.IsDisconnected("b"))

	hand, ok := bob2.lastOfType(MsgHand)
	require.True(t, ok, "reconnect must restore the hand")
	assert.Equal(t, handBefore, hand.Payload.([]engine.Card))
}

func TestLobbyLeaveRemovesPlayer(t *testing.T) {
	r := testRoom(t)
	alice := newFakeConn("a", "Alice")
	bob := newFakeConn("b", "Bob")
	r.handleJoin(alice)
	r.handleJoin(bob)

	r.handleLeave(alice)
	assert.Equal(t, -1, r.state.UserIndex("a"))
	assert.Equal(t, "b", r.state.Host, "host passes on exit")
	assert.Equal(t, 1, r.Count())
}

func TestStaleLeaveAfterReplacementIsIgnored(t *testing.T) {
	r := testRoom(t)
	alice := newFakeConn("a", "Alice")
	r.handleJoin(alice)

	alice2 := newFakeConn("a", "Alice")
	r.handleJoin(alice2)
	require.Equal(t, 1, r.Count())

	// The old socket's teardown arrives after the new one took over.
	r.handleLeave(alice)
	assert.GreaterOrEqual(t, r.state.UserIndex("a"), 0)
	assert.Equal(t, 1, r.Count())
}

func TestMalformedMessageIsDropped(t *testing.T) {
	r := testRoom(t)
	alice := newFakeConn("a", "Alice")
	r.handleJoin(alice)
	before := r.state

	r.handleMessage(alice, []byte("not json"))
	r.handleMessage(alice, []byte(`{"type":"discard","card":"bogus"}`))
	r.handleMessage(alice, []byte(`{"card":"R-5"}`))
	assert.Same(t, before, r.state)
}

func TestLifecycleActionsRejectedFromWire(t *testing.T) {
	r := testRoom(t)
	alice := newFakeConn("a", "Alice")
	bob := newFakeConn("b", "Bob")
	r.handleJoin(alice)
	r.handleJoin(bob)
	before := r.state

	for _, typ := range []string{"UserExit", "UserDisconnected", "SpectatorEntered", "nonsense"} {
		send(t, r, alice, wireAction{Type: typ})
	}
	assert.Same(t, before, r.state, "lifecycle actions must not be injectable")
}

func TestParseActionUsesConnectionIdentity(t *testing.T) {
	data, err := json.Marshal(map[string]any{
		"type": "discard",
		"card": "R-5",
		"user": map[string]string{"id": "mallory"},
	})
	require.NoError(t, err)

	action, err := parseAction(data, engine.User{ID: "a", Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "a", action.User.ID)
	require.NotNil(t, action.Card)
	assert.Equal(t, "R-5", action.Card.String())
}
