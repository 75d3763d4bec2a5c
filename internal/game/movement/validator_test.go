package movement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/metagrid-dev/metagrid/internal/game/space"
)

func testSpace() *space.Space {
	return &space.Space{
		ID:  "space-1",
		Dim: space.Dimensions{Width: 100, Height: 200},
		Obstacles: map[space.Position]bool{
			{X: 20, Y: 20}: true,
			{X: 18, Y: 20}: true,
			{X: 19, Y: 20}: true,
		},
		DefaultSpawn: space.Position{X: 0, Y: 0},
	}
}

func TestValidateOrthogonalSteps(t *testing.T) {
	sp := testSpace()
	cur := space.Position{X: 50, Y: 50}
	none := map[space.Position]bool{}

	for _, target := range []space.Position{
		{X: 51, Y: 50},
		{X: 49, Y: 50},
		{X: 50, Y: 51},
		{X: 50, Y: 49},
	} {
		v := Validate(cur, target, sp, none)
		assert.True(t, v.Accepted(), "step to %v", target)
	}
}

func TestValidateRejectsOutOfBounds(t *testing.T) {
	sp := testSpace()
	none := map[space.Position]bool{}

	v := Validate(space.Position{X: 0, Y: 0}, space.Position{X: -1, Y: 0}, sp, none)
	assert.Equal(t, RejectOutOfBounds, v)

	v = Validate(space.Position{X: 99, Y: 0}, space.Position{X: 100, Y: 0}, sp, none)
	assert.Equal(t, RejectOutOfBounds, v)

	v = Validate(space.Position{X: 0, Y: 199}, space.Position{X: 0, Y: 200}, sp, none)
	assert.Equal(t, RejectOutOfBounds, v)

	// Teleport far outside: bounds check wins over step check.
	v = Validate(space.Position{X: 5, Y: 5}, space.Position{X: 1000000, Y: 10000}, sp, none)
	assert.Equal(t, RejectOutOfBounds, v)
}

func TestValidateRejectsIllegalSteps(t *testing.T) {
	sp := testSpace()
	cur := space.Position{X: 50, Y: 50}
	none := map[space.Position]bool{}

	// Two cells at once.
	assert.Equal(t, RejectIllegalStep, Validate(cur, space.Position{X: 52, Y: 50}, sp, none))
	// Diagonal.
	assert.Equal(t, RejectIllegalStep, Validate(cur, space.Position{X: 51, Y: 51}, sp, none))
	// No-op.
	assert.Equal(t, RejectIllegalStep, Validate(cur, cur, sp, none))
}

func TestValidateRejectsObstacle(t *testing.T) {
	sp := testSpace()
	v := Validate(space.Position{X: 20, Y: 21}, space.Position{X: 20, Y: 20}, sp, map[space.Position]bool{})
	assert.Equal(t, RejectBlocked, v)
}

func TestValidateRejectsOccupied(t *testing.T) {
	sp := testSpace()
	occupied := map[space.Position]bool{{X: 51, Y: 50}: true}
	v := Validate(space.Position{X: 50, Y: 50}, space.Position{X: 51, Y: 50}, sp, occupied)
	assert.Equal(t, RejectBlocked, v)
}

func TestValidateUnitStepProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sp := &space.Space{
			ID:        "prop",
			Dim:       space.Dimensions{Width: 50, Height: 50},
			Obstacles: map[space.Position]bool{},
		}
		cur := space.Position{
			X: rapid.IntRange(0, 49).Draw(t, "cx"),
			Y: rapid.IntRange(0, 49).Draw(t, "cy"),
		}
		target := space.Position{
			X: rapid.IntRange(-5, 54).Draw(t, "tx"),
			Y: rapid.IntRange(-5, 54).Draw(t, "ty"),
		}

		v := Validate(cur, target, sp, map[space.Position]bool{})

		dx := target.X - cur.X
		if dx < 0 {
			dx = -dx
		}
		dy := target.Y - cur.Y
		if dy < 0 {
			dy = -dy
		}

		switch {
		case !sp.Dim.Contains(target):
			assert.Equal(t, RejectOutOfBounds, v)
		case dx+dy != 1:
			assert.Equal(t, RejectIllegalStep, v)
		default:
			assert.Equal(t, Accept, v)
		}
	})
}

func TestValidateIsPure(t *testing.T) {
	sp := testSpace()
	occupied := map[space.Position]bool{{X: 10, Y: 10}: true}
	cur := space.Position{X: 9, Y: 10}

	before := len(occupied)
	_ = Validate(cur, space.Position{X: 10, Y: 10}, sp, occupied)
	_ = Validate(cur, space.Position{X: 8, Y: 10}, sp, occupied)
	assert.Equal(t, before, len(occupied))
	assert.Len(t, sp.Obstacles, 3)
}
