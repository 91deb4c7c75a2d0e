package fen

import "strings"

// PieceCodes lists the twelve piece letters, black first.
var PieceCodes = []rune{'b', 'k', 'n', 'p', 'q', 'r', 'B', 'K', 'N', 'P', 'Q', 'R'}

// PlacedPiece is a piece code on a board-relative square.
// Row 0 is rank 8 and Col 0 is file a.
type PlacedPiece struct {
	Code rune
	Row  int
	Col  int
}

// IsPieceCode reports whether r names one of the twelve pieces.
func IsPieceCode(r rune) bool {
	switch r {
	case 'p', 'n', 'b', 'r', 'q', 'k', 'P', 'N', 'B', 'R', 'Q', 'K':
		return true
	}
	return false
}

// Placement returns the first space-delimited field of a FEN string.
func Placement(fen string) string {
	placement, _, _ := strings.Cut(fen, " ")
	return placement
}

// ParsePlacement expands the placement field of fen into placed pieces,
// rank by rank and left to right. Every digit is its own empty run, so "10"
// advances by one and then by zero. Nothing is validated: extra ranks,
// unknown letters and columns past h all come through as-is.
func ParsePlacement(fen string) []PlacedPiece {
	pieces := make([]PlacedPiece, 0, 32)
	for row, rank := range strings.Split(Placement(fen), "/") {
		col := 0
		for _, ch := range rank {
			if isDigit(ch) {
				col += int(ch - '0')
				continue
			}
			pieces = append(pieces, PlacedPiece{Code: ch, Row: row, Col: col})
			col++
		}
	}
	return pieces
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}
