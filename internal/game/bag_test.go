package game

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBagYieldsEachTypeOncePerSeven(t *testing.T) {
	bag := NewBag(rand.New(rand.NewPCG(1, 2)), false)
	require.Equal(t, 7, bag.Remaining())

	for round := 0; round < 20; round++ {
		seen := map[PieceType]int{}
		for i := 0; i < 7; i++ {
			shape := bag.Next()
			seen[shape.Type]++
			assert.Equal(t, R0, shape.Rotation)
		}
		assert.Len(t, seen, 7, "round %d", round)
		for pt, n := range seen {
			assert.Equal(t, 1, n, "round %d type %v", round, pt)
		}
		assert.Equal(t, 7, bag.Remaining(), "bag refills exactly when it empties")
	}
}

func TestBagGapBetweenRepeats(t *testing.T) {
	bag := NewBag(rand.New(rand.NewPCG(7, 7)), true)
	last := map[PieceType]int{}

	for i := 0; i < 700; i++ {
		pt := bag.Next().Type
		if prev, ok := last[pt]; ok {
			assert.LessOrEqual(t, i-prev-1, 12, "draw %d type %v", i, pt)
		}
		last[pt] = i
	}
}

func TestBagDeterministicForSeed(t *testing.T) {
	a := NewBag(rand.New(rand.NewPCG(99, 1)), true)
	b := NewBag(rand.New(rand.NewPCG(99, 1)), true)
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Next(), b.Next())
	}
}

func TestBagRandomRotation(t *testing.T) {
	bag := NewBag(rand.New(rand.NewPCG(3, 4)), true)
	rotations := map[Rotation]bool{}
	for i := 0; i < 200; i++ {
		s := bag.Next()
		assert.True(t, s.Rotation >= R0 && s.Rotation <= R270)
		rotations[s.Rotation] = true
	}
	assert.Len(t, rotations, 4)
}
