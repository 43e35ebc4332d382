package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalogShapes(t *testing.T) {
	for _, shape := range allShapes() {
		offsets := shape.Offsets()
		n := shape.BoxSize()

		seen := map[Coord]bool{}
		for _, off := range offsets {
			assert.True(t, off.Row >= 0 && off.Row < n && off.Col >= 0 && off.Col < n,
				"%v r%d offset %v outside %dx%d box", shape.Type, shape.Rotation, off, n, n)
			assert.False(t, seen[off], "%v r%d repeats %v", shape.Type, shape.Rotation, off)
			seen[off] = true
		}
	}
}

func TestCatalogBoxSizes(t *testing.T) {
	assert.Equal(t, 4, Shape{Type: PieceI}.BoxSize())
	assert.Equal(t, 2, Shape{Type: PieceO}.BoxSize())
	for _, pt := range []PieceType{PieceL, PieceJ, PieceS, PieceZ, PieceT} {
		assert.Equal(t, 3, Shape{Type: pt}.BoxSize(), "%v", pt)
	}
}

func TestCatalogColors(t *testing.T) {
	assert.Equal(t, "#ffa500", Shape{Type: PieceL}.Color().Hex())
	assert.Equal(t, "#0000ff", Shape{Type: PieceJ}.Color().Hex())
	assert.Equal(t, "#00ffff", Shape{Type: PieceI}.Color().Hex())
	assert.Equal(t, "#ffff00", Shape{Type: PieceO}.Color().Hex())
	assert.Equal(t, "#00ff00", Shape{Type: PieceS}.Color().Hex())
	assert.Equal(t, "#ff0000", Shape{Type: PieceZ}.Color().Hex())
	assert.Equal(t, "#a020f0", Shape{Type: PieceT}.Color().Hex())
}

func TestRotationTurn(t *testing.T) {
	assert.Equal(t, R90, R0.Turn(true))
	assert.Equal(t, R0, R270.Turn(true))
	assert.Equal(t, R270, R0.Turn(false))
	assert.Equal(t, R180, R270.Turn(false))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	config := DefaultConfig()
	config.OverflowRows = MaxOverflowRows + 1
	assert.Error(t, config.Validate())

	config = DefaultConfig()
	config.StartLevel = 6
	assert.Error(t, config.Validate())

	config = DefaultConfig()
	config.SpawnAttempts = 0
	assert.Error(t, config.Validate())
}
