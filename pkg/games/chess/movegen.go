package chess

// Move generation. Pseudo-legal targets are produced per piece kind; legal
// moves are the pseudo-legal ones whose application leaves the mover's own
// king unattacked. Attack queries run king generation with skipCastling set,
// which breaks the king-moves -> attacked -> king-moves recursion.

type position struct {
	board     Board
	enPassant Square
}

var knightJumps = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
var kingSteps = [8][2]int{{0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}}
var bishopRays = [4][2]int{{1, 1}, {1, -1}, {-1, -1}, {-1, 1}}
var rookRays = [4][2]int{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}

// pseudoMoves generates all pseudo-legal moves for one side. skipCastling is
// set by attack queries, where castling can never deliver the attack.
func (p *position) pseudoMoves(c Color, skipCastling bool) []Move {
	var moves []Move
	for s := Square(0); s < 64; s++ {
		if p.board[s].Type != NoPiece && p.board[s].Color == c {
			moves = append(moves, p.pieceMoves(s, skipCastling)...)
		}
	}
	return moves
}

// pieceMoves generates pseudo-legal moves for the piece on from.
func (p *position) pieceMoves(from Square, skipCastling bool) []Move {
	pc := p.board[from]
	switch pc.Type {
	case Pawn:
		return p.pawnMoves(from)
	case Knight:
		return p.stepMoves(from, knightJumps[:])
	case Bishop:
		return p.rayMoves(from, bishopRays[:])
	case Rook:
		return p.rayMoves(from, rookRays[:])
	case Queen:
		return append(p.rayMoves(from, bishopRays[:]), p.rayMoves(from, rookRays[:])...)
	case King:
		moves := p.stepMoves(from, kingSteps[:])
		if !skipCastling {
			moves = append(moves, p.castlingMoves(from)...)
		}
		return moves
	}
	return nil
}

// stepMoves handles single-step movers (knight, king without castling).
func (p *position) stepMoves(from Square, steps [][2]int) []Move {
	var moves []Move
	c := p.board[from].Color
	for _, d := range steps {
		f, r := from.File()+d[0], from.Rank()+d[1]
		if f < 0 || f > 7 || r < 0 || r > 7 {
			continue
		}
		to := square(f, r)
		if p.board.empty(to) || p.board[to].Color != c {
			moves = append(moves, Move{From: from, To: to})
		}
	}
	return moves
}

// rayMoves raytraces sliders until blocked, including the blocking enemy.
func (p *position) rayMoves(from Square, rays [][2]int) []Move {
	var moves []Move
	c := p.board[from].Color
	for _, d := range rays {
		f, r := from.File(), from.Rank()
		for {
			f, r = f+d[0], r+d[1]
			if f < 0 || f > 7 || r < 0 || r > 7 {
				break
			}
			to := square(f, r)
			if p.board.empty(to) {
				moves = append(moves, Move{From: from, To: to})
				continue
			}
			if p.board[to].Color != c {
				moves = append(moves, Move{From: from, To: to})
			}
			break
		}
	}
	return moves
}

// pawnMoves covers pushes, double pushes from the starting rank, diagonal
// captures and en passant. Promotions expand to all four pieces.
func (p *position) pawnMoves(from Square) []Move {
	var moves []Move
	c := p.board[from].Color
	dir, startRank, lastRank := 1, 1, 7
	if c == Black {
		dir, startRank, lastRank = -1, 6, 0
	}
	f, r := from.File(), from.Rank()

	push := func(to Square) {
		if to.Rank() == lastRank {
			for _, promo := range []PieceType{Queen, Rook, Bishop, Knight} {
				moves = append(moves, Move{From: from, To: to, Promotion: promo})
			}
		} else {
			moves = append(moves, Move{From: from, To: to})
		}
	}

	if r+dir >= 0 && r+dir <= 7 {
		one := square(f, r+dir)
		if p.board.empty(one) {
			push(one)
			if r == startRank {
				two := square(f, r+2*dir)
				if p.board.empty(two) {
					moves = append(moves, Move{From: from, To: two})
				}
			}
		}
		for _, df := range []int{-1, 1} {
			if f+df < 0 || f+df > 7 {
				continue
			}
			to := square(f+df, r+dir)
			if !p.board.empty(to) && p.board[to].Color != c {
				push(to)
			} else if to == p.enPassant {
				moves = append(moves, Move{From: from, To: to})
			}
		}
	}
	return moves
}

// castlingMoves yields the king's two-square castling moves when the rights,
// emptiness and attack conditions all hold.
func (p *position) castlingMoves(from Square) []Move {
	var moves []Move
	king := p.board[from]
	if king.Moved || p.isAttacked(from, king.Color.Opponent()) {
		return nil
	}
	rank := from.Rank()
	// kingside rook h-file, queenside rook a-file
	for _, side := range []struct {
		rookFile int
		step     int
	}{{7, 1}, {0, -1}} {
		rookSq := square(side.rookFile, rank)
		rook := p.board[rookSq]
		if rook.Type != Rook || rook.Color != king.Color || rook.Moved {
			continue
		}
		clear := true
		for f := from.File() + side.step; f != side.rookFile; f += side.step {
			if !p.board.empty(square(f, rank)) {
				clear = false
				break
			}
		}
		if !clear {
			continue
		}
		transit := square(from.File()+side.step, rank)
		dest := square(from.File()+2*side.step, rank)
		if p.isAttacked(transit, king.Color.Opponent()) || p.isAttacked(dest, king.Color.Opponent()) {
			continue
		}
		moves = append(moves, Move{From: from, To: dest})
	}
	return moves
}

// isAttacked reports whether sq is attacked by any piece of the given color.
// Pawn forward pushes do not attack; their diagonals do.
func (p *position) isAttacked(sq Square, by Color) bool {
	for from := Square(0); from < 64; from++ {
		pc := p.board[from]
		if pc.Type == NoPiece || pc.Color != by {
			continue
		}
		if pc.Type == Pawn {
			dir := 1
			if by == Black {
				dir = -1
			}
			for _, df := range []int{-1, 1} {
				f, r := from.File()+df, from.Rank()+dir
				if f >= 0 && f <= 7 && r >= 0 && r <= 7 && square(f, r) == sq {
					return true
				}
			}
			continue
		}
		for _, m := range p.pieceMoves(from, true) {
			if m.To == sq {
				return true
			}
		}
	}
	return false
}

// apply plays a move on a copy of the position and returns it together with
// the captured piece type (NoPiece when quiet). It performs the en-passant
// removal and the castling rook hop but does not touch clocks or counters.
func (p *position) apply(m Move) (position, PieceType) {
	next := position{board: p.board, enPassant: noSquare}
	moving := next.board[m.From]
	captured := next.board[m.To].Type

	// En passant: the captured pawn sits behind the target square.
	if moving.Type == Pawn && m.To == p.enPassant && captured == NoPiece {
		capSq := square(m.To.File(), m.From.Rank())
		captured = next.board[capSq].Type
		next.board[capSq] = Piece{}
	}

	// Castling: move the rook across.
	if moving.Type == King && abs(m.To.File()-m.From.File()) == 2 {
		rank := m.From.Rank()
		if m.To.File() > m.From.File() {
			rook := next.board[square(7, rank)]
			rook.Moved = true
			next.board[square(5, rank)] = rook
			next.board[square(7, rank)] = Piece{}
		} else {
			rook := next.board[square(0, rank)]
			rook.Moved = true
			next.board[square(3, rank)] = rook
			next.board[square(0, rank)] = Piece{}
		}
	}

	// Double push arms en passant on the transit square.
	if moving.Type == Pawn && abs(m.To.Rank()-m.From.Rank()) == 2 {
		next.enPassant = square(m.From.File(), (m.From.Rank()+m.To.Rank())/2)
	}

	moving.Moved = true
	if m.Promotion != NoPiece {
		moving.Type = m.Promotion
	}
	next.board[m.To] = moving
	next.board[m.From] = Piece{}
	return next, captured
}

// legalMoves filters pseudo-legal moves to those that leave the mover's own
// king safe.
func (p *position) legalMoves(c Color) []Move {
	var legal []Move
	for _, m := range p.pseudoMoves(c, false) {
		after, _ := p.apply(m)
		king := after.board.kingSquare(c)
		if king != noSquare && !after.isAttacked(king, c.Opponent()) {
			legal = append(legal, m)
		}
	}
	return legal
}

// inCheck reports whether c's king is currently attacked.
func (p *position) inCheck(c Color) bool {
	king := p.board.kingSquare(c)
	return king != noSquare && p.isAttacked(king, c.Opponent())
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
