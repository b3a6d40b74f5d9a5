package engine

// ActionType tags an action flowing into the reducer. Client-originated
// actions use the wire names; connection lifecycle actions are synthesized by
// the room layer.
type ActionType string

const (
	ActionStartGame          ActionType = "startGame"
	ActionDraw               ActionType = "draw"
	ActionDiscard            ActionType = "discard"
	ActionDeclareOneMoreCard ActionType = "declareOneMoreCard"
	ActionCallOut            ActionType = "callOut"
	ActionKickPlayer         ActionType = "kickPlayer"
	ActionBecomeSpectator    ActionType = "becomeSpectator"
	ActionBecomePlayer       ActionType = "becomePlayer"

	ActionUserEntered      ActionType = "UserEntered"
	ActionUserExit         ActionType = "UserExit"
	ActionSpectatorEntered ActionType = "SpectatorEntered"
	ActionSpectatorExit    ActionType = "SpectatorExit"
	ActionUserDisconnected ActionType = "UserDisconnected"
	ActionUserReconnected  ActionType = "UserReconnected"
)

// Action is a normalized, tagged action with the acting user attached.
type Action struct {
	Type         ActionType
	User         User
	Card         *Card  // discard only
	ChosenColor  *Suit  // wild resolution color
	TargetUserID string // kickPlayer, callOut
}

// RuleErrorKind enumerates the validator's rejection reasons.
type RuleErrorKind string

const (
	ErrUserNotFound       RuleErrorKind = "userNotFound"
	ErrWrongTurn          RuleErrorKind = "wrongTurn"
	ErrBadDiscard         RuleErrorKind = "badDiscard"
	ErrMissingColorChoice RuleErrorKind = "missingColorChoice"
)

// RuleError is a recoverable rejection: the triggering action is dropped and
// state is unchanged.
type RuleError struct {
	Kind RuleErrorKind
	Card *Card // the offending card for badDiscard
}

func (e *RuleError) Error() string { return string(e.Kind) }

// turnScoped actions require holding the turn while a game is running.
func turnScoped(t ActionType) bool {
	switch t {
	case ActionDraw, ActionDiscard, ActionDeclareOneMoreCard:
		return true
	}
	return false
}

// Validate gatekeeps an action before the reducer runs. actingIdx is the
// actor's position in state.Users (negative when absent). A nil return allows
// the action; otherwise the reducer must not be invoked.
//
// Role-scoped actions (becomePlayer, becomeSpectator, kickPlayer, callOut)
// are authorized by membership checks in the room layer, not here.
func Validate(a Action, s *State, actingIdx int) *RuleError {
	if actingIdx < 0 {
		switch a.Type {
		case ActionBecomePlayer, ActionKickPlayer:
			// Spectators may act here: becomePlayer by definition, kickPlayer
			// because the host seat can sit on the spectator bench.
		default:
			return &RuleError{Kind: ErrUserNotFound}
		}
	}
	if s.Phase == PhaseGame && turnScoped(a.Type) && s.Turn != a.User.ID {
		return &RuleError{Kind: ErrWrongTurn}
	}
	if a.Type == ActionDiscard {
		if a.Card == nil {
			return &RuleError{Kind: ErrBadDiscard}
		}
		if a.Card.IsWild() && !coloredChoice(a.ChosenColor) {
			return &RuleError{Kind: ErrMissingColorChoice, Card: a.Card}
		}
		if !s.Users[actingIdx].Hand.HasCard(*a.Card) {
			return &RuleError{Kind: ErrBadDiscard, Card: a.Card}
		}
		if !CanDiscard(s.LastDiscarded(), *a.Card, s.EffectiveColor, s.PendingDrawType) {
			return &RuleError{Kind: ErrBadDiscard, Card: a.Card}
		}
	}
	return nil
}

func coloredChoice(color *Suit) bool {
	if color == nil {
		return false
	}
	for _, s := range ColoredSuits {
		if *color == s {
			return true
		}
	}
	return false
}
