// Package space provides the 2D space model: grid dimensions, static
// obstacle cells, and spawn selection.
package space

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrSpaceNotFound is returned when a space lookup yields no results.
var ErrSpaceNotFound = errors.New("space not found")

// Position is a cell coordinate within a space grid.
type Position struct {
	X int
	Y int
}

// Dimensions is the width and height of a space grid. A position p is
// inside the grid when 0 <= p.X < Width and 0 <= p.Y < Height.
type Dimensions struct {
	Width  int
	Height int
}

// String renders dimensions in the "WxH" wire format.
func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// Contains reports whether p lies inside the grid.
func (d Dimensions) Contains(p Position) bool {
	return p.X >= 0 && p.X < d.Width && p.Y >= 0 && p.Y < d.Height
}

// ParseDimensions parses a "WxH" string (e.g. "100x200").
//
// Postcondition: Returns Dimensions with positive width and height, or
// an error for any other shape.
func ParseDimensions(s string) (Dimensions, error) {
	parts := strings.Split(strings.TrimSpace(s), "x")
	if len(parts) != 2 {
		return Dimensions{}, fmt.Errorf("dimensions %q: want WxH", s)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return Dimensions{}, fmt.Errorf("dimensions %q: parsing width: %w", s, err)
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return Dimensions{}, fmt.Errorf("dimensions %q: parsing height: %w", s, err)
	}
	if w < 1 || h < 1 {
		return Dimensions{}, fmt.Errorf("dimensions %q: width and height must be positive", s)
	}
	return Dimensions{Width: w, Height: h}, nil
}

// Space is the static description of a joinable 2D grid: its size, the
// cells blocked by static elements, and the preferred spawn cell.
// A Space is immutable once loaded; live occupancy lives in the room
// layer, not here.
type Space struct {
	// ID uniquely identifies this space.
	ID string
	// Name is the display name.
	Name string
	// Dim is the grid size.
	Dim Dimensions
	// Obstacles is the set of non-traversable cells.
	Obstacles map[Position]bool
	// DefaultSpawn is the preferred spawn cell. It must be inside the
	// grid and not an obstacle.
	DefaultSpawn Position
}

// Validate checks space invariants.
//
// Postcondition: Returns nil if valid, or an error describing the first violation.
func (s *Space) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("space ID must not be empty")
	}
	if s.Dim.Width < 1 || s.Dim.Height < 1 {
		return fmt.Errorf("space %q: dimensions must be positive, got %s", s.ID, s.Dim)
	}
	if !s.Dim.Contains(s.DefaultSpawn) {
		return fmt.Errorf("space %q: default spawn %v outside %s grid", s.ID, s.DefaultSpawn, s.Dim)
	}
	if s.Obstacles[s.DefaultSpawn] {
		return fmt.Errorf("space %q: default spawn %v is an obstacle", s.ID, s.DefaultSpawn)
	}
	for p := range s.Obstacles {
		if !s.Dim.Contains(p) {
			return fmt.Errorf("space %q: obstacle %v outside %s grid", s.ID, p, s.Dim)
		}
	}
	return nil
}

// Blocked reports whether p is a static obstacle cell.
func (s *Space) Blocked(p Position) bool {
	return s.Obstacles[p]
}

// SpawnFor picks a spawn cell given the cells currently occupied.
// It prefers DefaultSpawn; if that cell is taken it scans row-major
// (y outer, x inner) for the first free non-obstacle cell, so spawn
// assignment is deterministic.
//
// Precondition: occupied holds the room's committed positions.
// Postcondition: Returns a free, in-bounds, non-obstacle cell, or
// ok=false when every cell is taken.
func (s *Space) SpawnFor(occupied map[Position]bool) (Position, bool) {
	if !occupied[s.DefaultSpawn] && !s.Obstacles[s.DefaultSpawn] {
		return s.DefaultSpawn, true
	}
	for y := 0; y < s.Dim.Height; y++ {
		for x := 0; x < s.Dim.Width; x++ {
			p := Position{X: x, Y: y}
			if !occupied[p] && !s.Obstacles[p] {
				return p, true
			}
		}
	}
	return Position{}, false
}
