// Package chess implements the chess engine: full legal-move generation with
// castling, en passant and promotion, check/mate/stalemate/draw detection and
// an optional game clock.
package chess

import (
	"fmt"
	"strings"
)

// Color is a side, also the seat index (white sits at seat 0).
type Color int8

const (
	White Color = 0
	Black Color = 1
	// NoColor marks absent winners and cleared draw offers.
	NoColor Color = -1
)

func (c Color) Opponent() Color { return 1 - c }

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// PieceType identifies a piece kind.
type PieceType int8

const (
	NoPiece PieceType = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var pieceLetters = map[PieceType]string{
	Pawn: "p", Knight: "n", Bishop: "b", Rook: "r", Queen: "q", King: "k",
}

func (p PieceType) String() string { return pieceLetters[p] }

// Piece is a square's occupant. Moved tracks castling and double-push rights.
type Piece struct {
	Type  PieceType `json:"type"`
	Color Color     `json:"color"`
	Moved bool      `json:"moved"`
}

// Square indexes the board 0..63 as file + rank*8; rank 0 is white's back
// rank, so a1=0, h1=7, a8=56.
type Square int8

const noSquare Square = -1

func square(file, rank int) Square { return Square(rank*8 + file) }

func (s Square) File() int { return int(s) % 8 }
func (s Square) Rank() int { return int(s) / 8 }

// Name returns algebraic coordinates such as "e4".
func (s Square) Name() string {
	if s == noSquare {
		return "-"
	}
	return fmt.Sprintf("%c%d", 'a'+s.File(), s.Rank()+1)
}

// parseSquare reads algebraic coordinates.
func parseSquare(name string) (Square, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) != 2 || name[0] < 'a' || name[0] > 'h' || name[1] < '1' || name[1] > '8' {
		return noSquare, fmt.Errorf("invalid square %q", name)
	}
	return square(int(name[0]-'a'), int(name[1]-'1')), nil
}

// Board is the 64-square piece array. The zero Piece means empty.
type Board [64]Piece

// newBoard sets up the standard initial position.
func newBoard() Board {
	var b Board
	back := []PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}
	for f, pt := range back {
		b[square(f, 0)] = Piece{Type: pt, Color: White}
		b[square(f, 7)] = Piece{Type: pt, Color: Black}
	}
	for f := 0; f < 8; f++ {
		b[square(f, 1)] = Piece{Type: Pawn, Color: White}
		b[square(f, 6)] = Piece{Type: Pawn, Color: Black}
	}
	return b
}

func (b *Board) empty(s Square) bool { return b[s].Type == NoPiece }

// kingSquare finds the king of the given color; -1 if captured (never in a
// legal game).
func (b *Board) kingSquare(c Color) Square {
	for s := Square(0); s < 64; s++ {
		if b[s].Type == King && b[s].Color == c {
			return s
		}
	}
	return noSquare
}

// Move is one ply. Promotion is NoPiece except for promoting pawn moves.
type Move struct {
	From      Square    `json:"-"`
	To        Square    `json:"-"`
	Promotion PieceType `json:"-"`
}

// String renders coordinate notation ("e7e8q").
func (m Move) String() string {
	s := m.From.Name() + m.To.Name()
	if m.Promotion != NoPiece {
		s += m.Promotion.String()
	}
	return s
}
