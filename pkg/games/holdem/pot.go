package holdem

import "sort"

// Pot is a main or side pot with seat-aligned eligibility.
type Pot struct {
	Amount   int64 `json:"amount"`
	Eligible []int `json:"eligibleSeats"`
}

// buildPots layers main and side pots from each seat's total commitment this
// hand. Seats are sorted by commitment ascending; every distinct commitment
// level closes a pot of (level-prev) * contributors, eligible to the
// non-folded seats committed at least that level.
func buildPots(committed []int64, folded func(seat int) bool) []Pot {
	levels := make([]int64, 0, len(committed))
	seen := map[int64]bool{}
	for _, c := range committed {
		if c > 0 && !seen[c] {
			seen[c] = true
			levels = append(levels, c)
		}
	}
	if len(levels) == 0 {
		return nil
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	pots := make([]Pot, 0, len(levels))
	prev := int64(0)
	for _, lvl := range levels {
		p := Pot{}
		for seat, c := range committed {
			if c > prev {
				slice := c
				if slice > lvl {
					slice = lvl
				}
				p.Amount += slice - prev
			}
			if c >= lvl && !folded(seat) {
				p.Eligible = append(p.Eligible, seat)
			}
		}
		pots = append(pots, p)
		prev = lvl
	}
	return pots
}
