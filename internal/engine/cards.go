package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Suit is the color of a card. Wild cards carry SuitWild until a discard
// resolves them to a color.
type Suit string

const (
	SuitRed    Suit = "R"
	SuitBlue   Suit = "B"
	SuitGreen  Suit = "G"
	SuitYellow Suit = "Y"
	SuitWild   Suit = "W"
)

// ColoredSuits lists the four playable colors, in deck-building order.
var ColoredSuits = []Suit{SuitRed, SuitBlue, SuitGreen, SuitYellow}

// Name is the face of a card.
type Name string

const (
	NameOne     Name = "1"
	NameTwo     Name = "2"
	NameThree   Name = "3"
	NameFour    Name = "4"
	NameFive    Name = "5"
	NameSix     Name = "6"
	NameSeven   Name = "7"
	NameEight   Name = "8"
	NameNine    Name = "9"
	NameReverse Name = "Reverse"
	NameSkip    Name = "Skip"
	NameDraw2   Name = "Draw2"

	NameChangeColor Name = "ChangeColor"
	NameDraw4       Name = "Draw4"
)

// ColoredNames lists the faces printed in each of the four colors.
var ColoredNames = []Name{
	NameOne, NameTwo, NameThree, NameFour, NameFive, NameSix,
	NameSeven, NameEight, NameNine, NameReverse, NameSkip, NameDraw2,
}

// WildNames lists the faces that only exist in the wild suit.
var WildNames = []Name{NameChangeColor, NameDraw4}

// Card is an immutable (suit, name) value. Two cards with the same suit and
// name are the same card; there is no per-instance identity.
type Card struct {
	Suit Suit
	Name Name
}

// IsWild reports whether the card belongs to the wild suit.
func (c Card) IsWild() bool { return c.Suit == SuitWild }

// String renders the wire form, e.g. "R-5" or "W-Draw4".
func (c Card) String() string { return string(c.Suit) + "-" + string(c.Name) }

// MarshalText encodes the card in its wire form.
func (c Card) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText parses the wire form.
func (c *Card) UnmarshalText(b []byte) error {
	parsed, err := ParseCard(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCard parses "<suit>-<name>" into a Card. Malformed input, unknown
// suits, and suit/name combinations that never occur in a deck are rejected.
func ParseCard(s string) (Card, error) {
	suit, name, ok := strings.Cut(s, "-")
	if !ok {
		return Card{}, fmt.Errorf("malformed card %q", s)
	}
	c := Card{Suit: Suit(suit), Name: Name(name)}
	if !validCard(c) {
		return Card{}, fmt.Errorf("unknown card %q", s)
	}
	return c, nil
}

func validCard(c Card) bool {
	if c.Suit == SuitWild {
		for _, n := range WildNames {
			if c.Name == n {
				return true
			}
		}
		return false
	}
	colored := false
	for _, s := range ColoredSuits {
		if c.Suit == s {
			colored = true
			break
		}
	}
	if !colored {
		return false
	}
	for _, n := range ColoredNames {
		if c.Name == n {
			return true
		}
	}
	return false
}

// Collection-internal failures. These indicate an inconsistent request from a
// caller (e.g. removing a card nobody holds), not a user-facing condition.
var (
	ErrCardNotFound      = errors.New("card does not exist in collection")
	ErrInsufficientCards = errors.New("not enough cards to shuffle")
)

// Collection is an ordered sequence of cards. Duplicates are permitted and
// insertion order is meaningful: the front of the deck is the next card drawn
// and the front of the discard pile is the active card.
type Collection struct {
	cards []Card
}

// Deck and Hand are the same structure used in different roles.
type (
	Deck = Collection
	Hand = Collection
)

// NewCollection builds a collection over the given cards. The slice is copied.
func NewCollection(cards ...Card) Collection {
	c := Collection{cards: make([]Card, len(cards))}
	copy(c.cards, cards)
	return c
}

// Cards returns the underlying card slice. Callers must not retain it across
// mutations; use Clone for a snapshot.
func (c *Collection) Cards() []Card { return c.cards }

// Clone returns a deep copy.
func (c *Collection) Clone() Collection {
	return NewCollection(c.cards...)
}

// Len returns the number of cards held.
func (c *Collection) Len() int { return len(c.cards) }

// IsEmpty reports whether the collection holds no cards.
func (c *Collection) IsEmpty() bool { return len(c.cards) == 0 }

// AddCards inserts cards at the front, preserving their relative order.
func (c *Collection) AddCards(cards ...Card) {
	c.cards = append(append([]Card{}, cards...), c.cards...)
}

// AppendCards inserts cards at the back.
func (c *Collection) AppendCards(cards ...Card) {
	c.cards = append(c.cards, cards...)
}

// DrawCard removes and returns the front card. ok is false when empty.
func (c *Collection) DrawCard() (card Card, ok bool) {
	if len(c.cards) == 0 {
		return Card{}, false
	}
	card = c.cards[0]
	c.cards = c.cards[1:]
	return card, true
}

// TakeCards removes up to amount cards, popping from the front or the back.
// A non-positive amount takes the entire collection. Shortfall is not an
// error; the cards that were available are returned.
func (c *Collection) TakeCards(amount int, fromFront bool) []Card {
	if amount <= 0 {
		amount = len(c.cards)
	}
	var taken []Card
	for len(c.cards) > 0 && len(taken) < amount {
		if fromFront {
			taken = append(taken, c.cards[0])
			c.cards = c.cards[1:]
		} else {
			taken = append(taken, c.cards[len(c.cards)-1])
			c.cards = c.cards[:len(c.cards)-1]
		}
	}
	return taken
}

// RemoveCards removes each listed card by its first positional match.
// If any requested card is absent the collection is left unchanged and
// ErrCardNotFound is returned; callers are expected to pre-check membership.
func (c *Collection) RemoveCards(cards ...Card) error {
	remaining := append([]Card{}, c.cards...)
	for _, card := range cards {
		idx := indexOf(remaining, card)
		if idx < 0 {
			return ErrCardNotFound
		}
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	c.cards = remaining
	return nil
}

// HasCard reports whether at least one equal card is present.
func (c *Collection) HasCard(card Card) bool { return indexOf(c.cards, card) >= 0 }

// IndexOf returns the position of the first equal card, or -1.
func (c *Collection) IndexOf(card Card) int { return indexOf(c.cards, card) }

func indexOf(cards []Card, card Card) int {
	for i, cur := range cards {
		if cur == card {
			return i
		}
	}
	return -1
}

// Shuffle permutes the collection uniformly (Fisher–Yates) using randN, which
// must return a value in [0, n). Shuffling fewer than two cards fails.
func (c *Collection) Shuffle(randN func(n int) int) error {
	if len(c.cards) < 2 {
		return ErrInsufficientCards
	}
	for i := len(c.cards) - 1; i > 0; i-- {
		j := randN(i + 1)
		c.cards[i], c.cards[j] = c.cards[j], c.cards[i]
	}
	return nil
}

// DeckOptions configures BuildDeck. Zero values fall back to the standard
// four-color layout.
type DeckOptions struct {
	Duplicates int    // copies of each colored card; defaults to 1
	Suits      []Suit // defaults to ColoredSuits
	Names      []Name // defaults to ColoredNames
	WildCount  int    // copies of each wild face; 0 omits wilds entirely
}

// BuildDeck builds an unshuffled deck: the cartesian product of suits and
// names repeated Duplicates times, followed by WildCount copies of each wild
// face. Order is randomized only by an explicit Shuffle call.
func BuildDeck(opts DeckOptions) Deck {
	if opts.Duplicates <= 0 {
		opts.Duplicates = 1
	}
	if len(opts.Suits) == 0 {
		opts.Suits = ColoredSuits
	}
	if len(opts.Names) == 0 {
		opts.Names = ColoredNames
	}
	var cards []Card
	for i := 0; i < opts.Duplicates; i++ {
		for _, suit := range opts.Suits {
			for _, name := range opts.Names {
				cards = append(cards, Card{Suit: suit, Name: name})
			}
		}
	}
	for i := 0; i < opts.WildCount; i++ {
		for _, name := range WildNames {
			cards = append(cards, Card{Suit: SuitWild, Name: name})
		}
	}
	return NewCollection(cards...)
}
