package game

import (
	"math/rand/v2"
)

// Bag is a 7-bag randomizer: every piece type is drawn exactly once before
// the bag is refilled.
type Bag struct {
	rng            *rand.Rand
	pending        []PieceType
	randomRotation bool
}

// NewBag creates a full bag drawing from rng. When randomRotation is set,
// drawn shapes get a random spawn orientation.
func NewBag(rng *rand.Rand, randomRotation bool) *Bag {
	b := &Bag{
		rng:            rng,
		randomRotation: randomRotation,
	}
	b.refill()
	return b
}

// Remaining returns how many types are left before the next refill.
func (b *Bag) Remaining() int {
	return len(b.pending)
}

// Next removes a random type from the bag and returns its spawn shape.
// The bag is refilled as soon as it empties.
func (b *Bag) Next() Shape {
	i := b.rng.IntN(len(b.pending))
	chosen := b.pending[i]

	// swap with the last element and shrink
	last := len(b.pending) - 1
	b.pending[i] = b.pending[last]
	b.pending = b.pending[:last]
	if len(b.pending) == 0 {
		b.refill()
	}

	shape := Shape{Type: chosen, Rotation: R0}
	if b.randomRotation {
		shape.Rotation = Rotation(b.rng.IntN(4))
	}
	return shape
}

func (b *Bag) refill() {
	b.pending = append(b.pending[:0], PieceTypes...)
}
