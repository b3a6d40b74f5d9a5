package engine

// CanDiscard decides whether played may be placed on lastDiscarded.
//
// Stacked penalty obligations dominate: while a Draw4 is pending only another
// Draw4 is legal, and while a Draw2 is pending only another Draw2. With no
// obligation, wilds are always legal; otherwise the play must match either
// the governing color (the effective color when a wild set one, the pile
// card's own suit otherwise) or the pile card's name.
func CanDiscard(lastDiscarded, played Card, effectiveColor *Suit, pendingType PendingDrawType) bool {
	switch pendingType {
	case PendingDraw4:
		return played.Name == NameDraw4
	case PendingDraw2:
		return played.Name == NameDraw2
	}
	if played.IsWild() {
		return true
	}
	governing := lastDiscarded.Suit
	if effectiveColor != nil {
		governing = *effectiveColor
	}
	return played.Suit == governing || played.Name == lastDiscarded.Name
}
