package games

import "fmt"

// Kind enumerates the supported game variants. The set is closed: the engine
// factory switches over it exhaustively and unknown kinds are rejected at the
// room-provisioning boundary.
type Kind string

const (
	KindChess       Kind = "chess"
	KindPoker       Kind = "poker"
	KindLudo        Kind = "ludo"
	KindSnakeLadder Kind = "snakeladder"
	KindMonopoly    Kind = "monopoly"
	KindTicTacToe   Kind = "tictactoe"
	KindSudoku      Kind = "sudoku"
	Kind2048        Kind = "2048"
	KindMemory      Kind = "memory"
	KindCandy       Kind = "candy"
)

// Kinds lists every supported kind in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindChess, KindPoker, KindLudo, KindSnakeLadder, KindMonopoly,
		KindTicTacToe, KindSudoku, Kind2048, KindMemory, KindCandy,
	}
}

// ParseKind validates a client-supplied kind string.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown game kind %q", s)
}

// TimerExcluded reports whether the turn-timeout scheduler skips this kind.
// Single-player puzzles have no turn to arbitrate and chess runs its own
// game clock.
func (k Kind) TimerExcluded() bool {
	switch k {
	case KindSudoku, Kind2048, KindCandy, KindChess:
		return true
	}
	return false
}

// SinglePlayer reports whether the variant has no turn model at all.
func (k Kind) SinglePlayer() bool {
	switch k {
	case KindSudoku, Kind2048, KindCandy:
		return true
	}
	return false
}
