package engine

// Reduce maps (current state, validated action) to the next state. The input
// is never mutated: the aggregate is cloned up front and every effect lands
// on the clone, so application is all-or-nothing per action. Actions that
// fail their own preconditions (e.g. a call-out against a player who is not
// vulnerable) reduce to no-ops.
//
// Validate must have been consulted first for client-originated actions;
// connection lifecycle actions are always allowed through.
func Reduce(s *State, a Action) *State {
	next := s.Clone()
	switch a.Type {
	case ActionUserEntered:
		next.applyUserEntered(a)
	case ActionUserExit:
		next.applyUserExit(a)
	case ActionSpectatorEntered:
		next.applySpectatorEntered(a)
	case ActionSpectatorExit:
		next.applySpectatorExit(a)
	case ActionUserDisconnected:
		next.applyUserDisconnected(a)
	case ActionUserReconnected:
		next.applyUserReconnected(a)
	case ActionStartGame:
		next.applyStartGame(a)
	case ActionDraw:
		next.applyDraw(a)
	case ActionDiscard:
		next.applyDiscard(a)
	case ActionDeclareOneMoreCard:
		next.applyDeclareOneMoreCard(a)
	case ActionCallOut:
		next.applyCallOut(a)
	case ActionKickPlayer:
		next.applyKickPlayer(a)
	case ActionBecomeSpectator:
		next.applyBecomeSpectator(a)
	case ActionBecomePlayer:
		next.applyBecomePlayer(a)
	}
	return next
}

func (s *State) applyUserEntered(a Action) {
	if s.UserIndex(a.User.ID) >= 0 {
		return
	}
	s.Users = append(s.Users, Player{User: a.User})
	if s.Host == NoHost {
		s.Host = a.User.ID
	}
	s.addLog("%s joined 🎉", a.User.Name)
}

func (s *State) applySpectatorEntered(a Action) {
	if s.SpectatorIndex(a.User.ID) >= 0 {
		return
	}
	s.Spectators = append(s.Spectators, a.User)
	s.addLog("%s is watching 👀", a.User.Name)
}

func (s *State) applyUserExit(a Action) {
	idx := s.UserIndex(a.User.ID)
	if idx < 0 {
		return
	}
	s.removePlayer(idx)
	s.addLog("%s left 😢", a.User.Name)
	s.settleAfterRemoval()
}

func (s *State) applySpectatorExit(a Action) {
	idx := s.SpectatorIndex(a.User.ID)
	if idx < 0 {
		return
	}
	s.Spectators = append(s.Spectators[:idx], s.Spectators[idx+1:]...)
	if s.Host == a.User.ID {
		s.reassignHost(a.User.ID)
	}
	s.addLog("%s stopped watching", a.User.Name)
}

func (s *State) applyUserDisconnected(a Action) {
	idx := s.UserIndex(a.User.ID)
	if idx < 0 || s.Disconnected[a.User.ID] {
		return
	}
	// The hand and seat are retained; the turn may stall on this player
	// until they reconnect or the host kicks them.
	s.Disconnected[a.User.ID] = true
	if s.Host == a.User.ID {
		s.reassignHost(a.User.ID)
	}
	s.addLog("%s disconnected 🔌", a.User.Name)
}

func (s *State) applyUserReconnected(a Action) {
	if s.UserIndex(a.User.ID) < 0 || !s.Disconnected[a.User.ID] {
		return
	}
	delete(s.Disconnected, a.User.ID)
	s.addLog("%s reconnected 👋", a.User.Name)
}

func (s *State) applyStartGame(a Action) {
	if s.Phase == PhaseGame || s.ActivePlayerCount() < 2 {
		return
	}
	// Fold every hand and the whole discard pile back into the deck, then
	// reshuffle and flip a fresh top card.
	for i := range s.Users {
		s.Deck.AddCards(s.Users[i].Hand.TakeCards(0, true)...)
	}
	s.Deck.AddCards(s.DiscardPile.TakeCards(0, true)...)
	_ = s.Deck.Shuffle(s.randN)
	top, _ := s.Deck.DrawCard()
	s.DiscardPile = NewCollection(top)

	for i := range s.Users {
		s.Users[i].Hand = NewCollection(s.Deck.TakeCards(HandSize, false)...)
	}

	s.Phase = PhaseGame
	s.Direction = Clockwise
	s.EffectiveColor = nil
	s.PendingDrawCount = 0
	s.PendingDrawType = PendingNone
	s.OneMoreCard = nil
	s.Turn = s.firstActivePlayer()
	s.addLog("%s started the game 🚀", a.User.Name)
}

func (s *State) applyDraw(a Action) {
	idx := s.UserIndex(a.User.ID)
	if idx < 0 || s.Phase != PhaseGame {
		return
	}
	amount := s.PendingDrawCount
	if amount == 0 {
		amount = 1
	}
	drawn := s.drawFromDeck(amount)
	s.Users[idx].Hand.AppendCards(drawn...)
	s.PendingDrawCount = 0
	s.PendingDrawType = PendingNone

	// Drawing forfeits a standing "one more card" declaration.
	if s.OneMoreCard != nil && s.OneMoreCard.DeclaredBy == a.User.ID {
		s.OneMoreCard.DeclaredBy = ""
		s.normalizeOneMoreCard()
	}

	if len(drawn) == 1 {
		s.addLog("%s drew a card", a.User.Name)
	} else {
		s.addLog("%s drew %d cards", a.User.Name, len(drawn))
	}
}

func (s *State) applyDiscard(a Action) {
	idx := s.UserIndex(a.User.ID)
	if idx < 0 || s.Phase != PhaseGame || a.Card == nil {
		return
	}
	card := *a.Card
	if err := s.Users[idx].Hand.RemoveCards(card); err != nil {
		// Validate pre-checks membership; reaching this is a logic error and
		// the action is dropped whole.
		return
	}
	s.DiscardPile.AddCards(card)

	if card.IsWild() && a.ChosenColor != nil {
		color := *a.ChosenColor
		s.EffectiveColor = &color
	} else {
		s.EffectiveColor = nil
	}

	steps := 1
	switch card.Name {
	case NameReverse:
		s.Direction = s.Direction.flipped()
	case NameSkip:
		steps = 2
	case NameDraw2:
		s.PendingDrawCount += 2
		s.PendingDrawType = PendingDraw2
	case NameDraw4:
		s.PendingDrawCount += 4
		s.PendingDrawType = PendingDraw4
	}

	s.addLog("%s played %s", a.User.Name, card)

	handLen := s.Users[idx].Hand.Len()
	if handLen == 0 {
		s.endRound(a.User)
		return
	}
	if handLen == 1 {
		if s.OneMoreCard != nil && s.OneMoreCard.DeclaredBy == a.User.ID {
			// Declared in time; the protection is consumed.
			s.OneMoreCard.DeclaredBy = ""
			s.normalizeOneMoreCard()
		} else {
			// Single slot: a later undeclared player overwrites an earlier one.
			if s.OneMoreCard == nil {
				s.OneMoreCard = &OneMoreCard{}
			}
			s.OneMoreCard.VulnerablePlayer = a.User.ID
		}
	}

	s.Turn = s.NextTurn(s.Turn, steps)
}

func (s *State) applyDeclareOneMoreCard(a Action) {
	idx := s.UserIndex(a.User.ID)
	if idx < 0 || s.Phase != PhaseGame || s.Users[idx].Hand.Len() != 2 {
		return
	}
	if s.OneMoreCard == nil {
		s.OneMoreCard = &OneMoreCard{}
	}
	s.OneMoreCard.DeclaredBy = a.User.ID
	s.addLog("%s declared one more card!", a.User.Name)
}

func (s *State) applyCallOut(a Action) {
	if s.Phase != PhaseGame || s.OneMoreCard == nil {
		return
	}
	target := a.TargetUserID
	if target == a.User.ID || s.OneMoreCard.VulnerablePlayer != target {
		return
	}
	idx := s.UserIndex(target)
	if idx < 0 {
		return
	}
	drawn := s.drawFromDeck(CallOutPenalty)
	s.Users[idx].Hand.AppendCards(drawn...)
	s.OneMoreCard.VulnerablePlayer = ""
	s.normalizeOneMoreCard()
	s.addLog("%s called out %s!", a.User.Name, s.Users[idx].Name)
}

func (s *State) applyKickPlayer(a Action) {
	idx := s.UserIndex(a.TargetUserID)
	if idx < 0 {
		return
	}
	name := s.Users[idx].Name
	s.removePlayer(idx)
	s.addLog("%s was kicked 🥾", name)
	s.settleAfterRemoval()
}

func (s *State) applyBecomeSpectator(a Action) {
	idx := s.UserIndex(a.User.ID)
	if idx < 0 {
		return
	}
	user := s.Users[idx].User
	s.removePlayer(idx)
	s.Spectators = append(s.Spectators, user)
	if s.Host == NoHost {
		// Removal found no player to promote; the mover keeps the host seat
		// from the spectator bench.
		s.Host = user.ID
	}
	s.addLog("%s is now watching 👀", user.Name)
	s.settleAfterRemoval()
}

func (s *State) applyBecomePlayer(a Action) {
	idx := s.SpectatorIndex(a.User.ID)
	if idx < 0 || s.UserIndex(a.User.ID) >= 0 {
		return
	}
	user := s.Spectators[idx]
	s.Spectators = append(s.Spectators[:idx], s.Spectators[idx+1:]...)
	// Mid-game movers start with an empty hand and draw their way in.
	s.Users = append(s.Users, Player{User: user})
	if s.Host == NoHost {
		s.Host = user.ID
	}
	s.addLog("%s joined the game 🎉", user.Name)
}

// removePlayer returns the player's cards to the deck, advances the turn off
// them if needed, drops their seat, and reassigns the host seat. Phase
// settlement (auto-win, lobby reset) is settleAfterRemoval's job.
func (s *State) removePlayer(idx int) {
	id := s.Users[idx].ID
	s.Deck.AddCards(s.Users[idx].Hand.TakeCards(0, true)...)
	if s.Turn == id {
		s.Turn = s.NextTurn(id, 1)
	}
	s.Users = append(s.Users[:idx], s.Users[idx+1:]...)
	delete(s.Disconnected, id)
	if s.OneMoreCard != nil {
		if s.OneMoreCard.DeclaredBy == id {
			s.OneMoreCard.DeclaredBy = ""
		}
		if s.OneMoreCard.VulnerablePlayer == id {
			s.OneMoreCard.VulnerablePlayer = ""
		}
		s.normalizeOneMoreCard()
	}
	if s.Host == id {
		s.reassignHost(id)
	}
	if s.Turn == id {
		// No active successor existed; fall back to any remaining seat.
		if len(s.Users) > 0 {
			s.Turn = s.Users[0].ID
		} else {
			s.Turn = ""
		}
	}
}

// settleAfterRemoval resolves attrition: a mid-game room with a single seat
// left crowns that player (even if they are currently disconnected), and a
// room with no seats left returns to the lobby.
func (s *State) settleAfterRemoval() {
	if len(s.Users) == 0 {
		s.Phase = PhaseLobby
		s.Turn = ""
		s.PendingDrawCount = 0
		s.PendingDrawType = PendingNone
		s.EffectiveColor = nil
		s.OneMoreCard = nil
		return
	}
	if s.Phase == PhaseGame && len(s.Users) == 1 {
		winner := s.Users[0].User
		s.Turn = winner.ID
		s.endRound(winner)
	}
}

// endRound moves the room to gameOver crediting winner. The turn is left on
// the winner.
func (s *State) endRound(winner User) {
	s.Phase = PhaseGameOver
	s.Turn = winner.ID
	s.Wins[winner.ID]++
	s.PendingDrawCount = 0
	s.PendingDrawType = PendingNone
	s.EffectiveColor = nil
	s.OneMoreCard = nil
	s.addLog("%s wins! 🏆", winner.Name)
}

// drawFromDeck pops up to n cards, folding the discard pile (minus its top
// card) back into the deck whenever the deck runs dry mid-draw. Returns what
// was available when even the reshuffle cannot cover the shortfall.
func (s *State) drawFromDeck(n int) []Card {
	var drawn []Card
	for len(drawn) < n {
		if s.Deck.IsEmpty() && !s.reshuffleFromDiscard() {
			break
		}
		card, ok := s.Deck.DrawCard()
		if !ok {
			break
		}
		drawn = append(drawn, card)
	}
	return drawn
}

func (s *State) reshuffleFromDiscard() bool {
	if s.DiscardPile.Len() <= 1 {
		return false
	}
	top, _ := s.DiscardPile.DrawCard()
	s.Deck.AddCards(s.DiscardPile.TakeCards(0, true)...)
	// A one-card deck legitimately refuses to shuffle; its order is moot.
	_ = s.Deck.Shuffle(s.randN)
	s.DiscardPile = NewCollection(top)
	s.addLog("Shuffled the discard pile into the deck 🔀")
	return true
}

func (s *State) firstActivePlayer() string {
	for i := range s.Users {
		if !s.Disconnected[s.Users[i].ID] {
			return s.Users[i].ID
		}
	}
	if len(s.Users) > 0 {
		return s.Users[0].ID
	}
	return ""
}

// reassignHost hands the host seat to the first connected player other than
// exclude, falling back to any spectator, then any seated player, then the
// sentinel.
func (s *State) reassignHost(exclude string) {
	for i := range s.Users {
		id := s.Users[i].ID
		if id != exclude && !s.Disconnected[id] {
			s.Host = id
			return
		}
	}
	for i := range s.Spectators {
		if s.Spectators[i].ID != exclude {
			s.Host = s.Spectators[i].ID
			return
		}
	}
	for i := range s.Users {
		if s.Users[i].ID != exclude {
			s.Host = s.Users[i].ID
			return
		}
	}
	s.Host = NoHost
}

func (s *State) normalizeOneMoreCard() {
	if s.OneMoreCard != nil && s.OneMoreCard.DeclaredBy == "" && s.OneMoreCard.VulnerablePlayer == "" {
		s.OneMoreCard = nil
	}
}
