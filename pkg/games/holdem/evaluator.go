package holdem

import "sort"

// HandRank classifies a 5-card hand, ordered worst to best.
type HandRank int

const (
	HighCard HandRank = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

var handRankNames = map[HandRank]string{
	HighCard: "High Card", Pair: "Pair", TwoPair: "Two Pair",
	ThreeOfAKind: "Three of a Kind", Straight: "Straight", Flush: "Flush",
	FullHouse: "Full House", FourOfAKind: "Four of a Kind",
	StraightFlush: "Straight Flush", RoyalFlush: "Royal Flush",
}

func (r HandRank) String() string { return handRankNames[r] }

// HandValue is the full evaluation of a player's best 5-card hand.
// Tiebreaks holds rank values in decreasing significance so two hands of the
// same HandRank compare lexicographically.
type HandValue struct {
	Rank        HandRank `json:"rank"`
	Tiebreaks   []int    `json:"tiebreaks"`
	BestHand    []Card   `json:"bestHand"`
	Description string   `json:"description"`
}

// Evaluate selects the best 5-card hand from hole plus community cards.
func Evaluate(hole, community []Card) HandValue {
	all := append(append([]Card{}, hole...), community...)
	if len(all) <= 5 {
		return evaluate5(all)
	}

	best := HandValue{Rank: -1}
	combo := make([]Card, 0, 5)
	var walk func(start int)
	walk = func(start int) {
		if len(combo) == 5 {
			hv := evaluate5(combo)
			if best.Rank < 0 || CompareHands(hv, best) > 0 {
				hv.BestHand = append([]Card{}, combo...)
				best = hv
			}
			return
		}
		for i := start; i <= len(all)-(5-len(combo)); i++ {
			combo = append(combo, all[i])
			walk(i + 1)
			combo = combo[:len(combo)-1]
		}
	}
	walk(0)
	return best
}

// CompareHands returns -1, 0 or 1 as a is worse than, equal to or better
// than b.
func CompareHands(a, b HandValue) int {
	if a.Rank != b.Rank {
		if a.Rank < b.Rank {
			return -1
		}
		return 1
	}
	for i := 0; i < len(a.Tiebreaks) && i < len(b.Tiebreaks); i++ {
		if a.Tiebreaks[i] != b.Tiebreaks[i] {
			if a.Tiebreaks[i] < b.Tiebreaks[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// evaluate5 classifies exactly five cards.
func evaluate5(cards []Card) HandValue {
	ranks := make([]int, len(cards))
	counts := map[int]int{}
	flush := true
	for i, c := range cards {
		ranks[i] = int(c.Rank)
		counts[int(c.Rank)]++
		if c.Suit != cards[0].Suit {
			flush = false
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))

	straightHigh, isStraight := straightHigh(ranks)

	switch {
	case flush && isStraight && straightHigh == int(Ace):
		return hv(RoyalFlush, cards, straightHigh)
	case flush && isStraight:
		return hv(StraightFlush, cards, straightHigh)
	}

	// Group ranks by multiplicity, then by rank, both descending. That
	// ordering yields the tiebreak sequence for every paired category.
	type group struct{ rank, n int }
	groups := make([]group, 0, len(counts))
	for r, n := range counts {
		groups = append(groups, group{r, n})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].n != groups[j].n {
			return groups[i].n > groups[j].n
		}
		return groups[i].rank > groups[j].rank
	})
	tiebreaks := make([]int, 0, len(groups))
	for _, g := range groups {
		tiebreaks = append(tiebreaks, g.rank)
	}

	switch {
	case groups[0].n == 4:
		return hv(FourOfAKind, cards, tiebreaks...)
	case groups[0].n == 3 && groups[1].n == 2:
		return hv(FullHouse, cards, tiebreaks...)
	case flush:
		return hv(Flush, cards, ranks...)
	case isStraight:
		return hv(Straight, cards, straightHigh)
	case groups[0].n == 3:
		return hv(ThreeOfAKind, cards, tiebreaks...)
	case groups[0].n == 2 && groups[1].n == 2:
		return hv(TwoPair, cards, tiebreaks...)
	case groups[0].n == 2:
		return hv(Pair, cards, tiebreaks...)
	}
	return hv(HighCard, cards, ranks...)
}

// straightHigh reports whether the distinct descending ranks form a
// straight and, if so, its high card. The ace-low wheel counts with high 5.
func straightHigh(desc []int) (int, bool) {
	uniq := desc[:0:0]
	for i, r := range desc {
		if i == 0 || desc[i-1] != r {
			uniq = append(uniq, r)
		}
	}
	if len(uniq) != 5 {
		return 0, false
	}
	if uniq[0]-uniq[4] == 4 {
		return uniq[0], true
	}
	// Wheel: A 5 4 3 2.
	if uniq[0] == int(Ace) && uniq[1] == 5 && uniq[4] == 2 {
		return 5, true
	}
	return 0, false
}

func hv(rank HandRank, cards []Card, tiebreaks ...int) HandValue {
	best := make([]Card, len(cards))
	copy(best, cards)
	return HandValue{
		Rank:        rank,
		Tiebreaks:   tiebreaks,
		BestHand:    best,
		Description: rank.String(),
	}
}
