package fen

import (
	"errors"
	"fmt"
	"strings"
)

const (
	boardRanks = 8
	boardFiles = 8
)

var ErrMalformed = errors.New("malformed fen placement")

// MalformedError describes why a placement failed strict parsing.
// Rank is zero-based from the top of the board, or -1 for the whole field.
type MalformedError struct {
	Placement string
	Rank      int
	Reason    string
}

func (e *MalformedError) Error() string {
	if e.Rank < 0 {
		return fmt.Sprintf("malformed fen placement %q: %s", e.Placement, e.Reason)
	}
	return fmt.Sprintf("malformed fen placement %q: rank %d: %s", e.Placement, e.Rank+1, e.Reason)
}

func (e *MalformedError) Is(target error) bool { return target == ErrMalformed }

// ParsePlacementStrict parses like ParsePlacement but requires eight ranks
// of exactly eight columns each, built only from piece letters and the
// digits 1-8.
func ParsePlacementStrict(fen string) ([]PlacedPiece, error) {
	placement := Placement(strings.TrimSpace(fen))
	ranks := strings.Split(placement, "/")
	if len(ranks) != boardRanks {
		return nil, &MalformedError{
			Placement: placement,
			Rank:      -1,
			Reason:    fmt.Sprintf("want %d ranks, got %d", boardRanks, len(ranks)),
		}
	}

	for row, rank := range ranks {
		width := 0
		for _, ch := range rank {
			switch {
			case ch >= '1' && ch <= '8':
				width += int(ch - '0')
			case IsPieceCode(ch):
				width++
			default:
				return nil, &MalformedError{
					Placement: placement,
					Rank:      row,
					Reason:    fmt.Sprintf("unexpected character %q", ch),
				}
			}
		}
		if width != boardFiles {
			return nil, &MalformedError{
				Placement: placement,
				Rank:      row,
				Reason:    fmt.Sprintf("spans %d columns", width),
			}
		}
	}

	return ParsePlacement(placement), nil
}
