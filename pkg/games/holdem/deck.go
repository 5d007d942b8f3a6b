package holdem

import (
	"encoding/json"
	"fmt"
	"math/rand"
)

// Suit represents a card suit.
type Suit string

const (
	Spades   Suit = "s"
	Hearts   Suit = "h"
	Diamonds Suit = "d"
	Clubs    Suit = "c"
)

// Rank represents a card rank, 2..14 with ace high.
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

var rankNames = map[Rank]string{
	Two: "2", Three: "3", Four: "4", Five: "5", Six: "6", Seven: "7",
	Eight: "8", Nine: "9", Ten: "T", Jack: "J", Queen: "Q", King: "K", Ace: "A",
}

func (r Rank) String() string { return rankNames[r] }

// Card is a single playing card.
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

func (c Card) String() string { return c.Rank.String() + string(c.Suit) }

// MarshalJSON encodes the card as {"rank":"A","suit":"s"} for clients.
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Rank string `json:"rank"`
		Suit string `json:"suit"`
	}{Rank: c.Rank.String(), Suit: string(c.Suit)})
}

// UnmarshalJSON accepts the client encoding produced by MarshalJSON.
func (c *Card) UnmarshalJSON(data []byte) error {
	var raw struct {
		Rank string `json:"rank"`
		Suit string `json:"suit"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	found := false
	for r, name := range rankNames {
		if name == raw.Rank {
			c.Rank = r
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("invalid card rank %q", raw.Rank)
	}
	switch Suit(raw.Suit) {
	case Spades, Hearts, Diamonds, Clubs:
		c.Suit = Suit(raw.Suit)
	default:
		return fmt.Errorf("invalid card suit %q", raw.Suit)
	}
	return nil
}

// Deck is an ordered set of remaining cards with an injected entropy source.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewDeck builds a full 52-card deck, shuffled with rng.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{cards: make([]Card, 0, 52), rng: rng}
	for _, s := range []Suit{Spades, Hearts, Diamonds, Clubs} {
		for r := Two; r <= Ace; r++ {
			d.cards = append(d.cards, Card{Rank: r, Suit: s})
		}
	}
	d.Shuffle()
	return d
}

// NewDeckFromCards rebuilds a deck from a persisted remainder.
func NewDeckFromCards(cards []Card, rng *rand.Rand) *Deck {
	d := &Deck{cards: make([]Card, len(cards)), rng: rng}
	copy(d.cards, cards)
	return d
}

// Shuffle randomizes the remaining cards in place.
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Draw removes and returns the top card; false when the deck is exhausted.
func (d *Deck) Draw() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	c := d.cards[0]
	d.cards = d.cards[1:]
	return c, true
}

// Size returns the number of cards left.
func (d *Deck) Size() int { return len(d.cards) }

// Remaining returns a copy of the undrawn cards, for serialization.
func (d *Deck) Remaining() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}
