package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

const maxRows = 26

// SeatID identifies a seat within a show as <row letter><column>, e.g. "C12".
type SeatID string

// NewSeatID builds the id of the seat at a 1-based row and column.
func NewSeatID(row, col int) SeatID {
	return SeatID(fmt.Sprintf("%c%d", 'A'+row-1, col))
}

// Position returns the 1-based row and column encoded in the id.
func (s SeatID) Position() (row, col int, err error) {
	str := strings.ToUpper(string(s))
	if len(str) < 2 || str[0] < 'A' || str[0] > 'Z' {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidSeat, s)
	}

	col, err = strconv.Atoi(str[1:])
	if err != nil || col < 1 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidSeat, s)
	}

	return int(str[0]-'A') + 1, col, nil
}

// Canonical returns the single spelling of the seat, so "a01" and "A+1" both
// become "A1". Ids that do not parse are only trimmed and upper-cased.
func (s SeatID) Canonical() SeatID {
	trimmed := SeatID(strings.ToUpper(strings.TrimSpace(string(s))))

	row, col, err := trimmed.Position()
	if err != nil {
		return trimmed
	}

	return NewSeatID(row, col)
}

// NormalizeSeats rewrites seat ids to their canonical form and deduplicates
// them, keeping their order.
func NormalizeSeats(seats []SeatID) []SeatID {
	seen := make(map[SeatID]struct{}, len(seats))
	out := make([]SeatID, 0, len(seats))

	for _, s := range seats {
		s = s.Canonical()
		if _, ok := seen[s]; ok {
			continue
		}

		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out
}

// SortSeats orders seat ids by row, then column.
func SortSeats(seats []SeatID) {
	slices.SortFunc(seats, func(a, b SeatID) int {
		ar, ac, _ := a.Position()
		br, bc, _ := b.Position()
		if ar != br {
			return ar - br
		}
		return ac - bc
	})
}

func SeatStrings(seats []SeatID) []string {
	out := make([]string, len(seats))
	for i, s := range seats {
		out[i] = string(s)
	}
	return out
}

func SeatIDs(seats []string) []SeatID {
	out := make([]SeatID, len(seats))
	for i, s := range seats {
		out[i] = SeatID(s)
	}
	return out
}

type SeatState string

const (
	SeatAvailable SeatState = "available"
	SeatBooked    SeatState = "booked"
	SeatLocked    SeatState = "locked"
	SeatHeldByYou SeatState = "held_by_you"
)

// SeatStatus is a read-only view of one seat as seen by a checkout session.
type SeatStatus struct {
	ID            SeatID
	Row           int
	Col           int
	State         SeatState
	LockExpiresAt *time.Time
}
