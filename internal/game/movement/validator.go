// Package movement provides server-authoritative movement validation.
// Validation is a pure decision: it never mutates state or performs
// I/O, so the room coordinator can call it speculatively under its
// room lock.
package movement

import (
	"github.com/metagrid-dev/metagrid/internal/game/space"
)

// Verdict is the outcome of validating a proposed move.
type Verdict int

const (
	// Accept means the move may be committed.
	Accept Verdict = iota
	// RejectOutOfBounds means the target lies outside the grid.
	RejectOutOfBounds
	// RejectIllegalStep means the move is not a single orthogonal step.
	RejectIllegalStep
	// RejectBlocked means the target is an obstacle or occupied cell.
	RejectBlocked
)

// Accepted reports whether the verdict allows the move.
func (v Verdict) Accepted() bool {
	return v == Accept
}

// String returns the verdict name for logging.
func (v Verdict) String() string {
	switch v {
	case Accept:
		return "accept"
	case RejectOutOfBounds:
		return "out_of_bounds"
	case RejectIllegalStep:
		return "illegal_step"
	case RejectBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Validate decides whether a move from cur to target is legal.
// Checks are ordered: bounds, then step shape, then obstacle/occupancy;
// the first failing check determines the verdict. A legal step changes
// exactly one axis by exactly one cell. occupied holds the room's
// committed positions excluding the mover's own cell.
//
// Precondition: occupied must not contain cur.
// Postcondition: Returns Accept only if target is in bounds, one
// orthogonal step from cur, not an obstacle, and unoccupied.
func Validate(cur, target space.Position, sp *space.Space, occupied map[space.Position]bool) Verdict {
	if !sp.Dim.Contains(target) {
		return RejectOutOfBounds
	}
	dx := abs(target.X - cur.X)
	dy := abs(target.Y - cur.Y)
	if dx+dy != 1 {
		return RejectIllegalStep
	}
	if sp.Blocked(target) || occupied[target] {
		return RejectBlocked
	}
	return Accept
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
