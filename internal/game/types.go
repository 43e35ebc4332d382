package game

import (
	"fmt"
	"time"
)

// Color is an RGB cell color.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Hex returns the color as a #rrggbb string.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Cell is one square of the playfield matrix.
type Cell struct {
	Filled bool  `json:"filled"`
	Color  Color `json:"color"`
}

// Coord addresses a cell. Row 0 is the bottom row of the playfield.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Direction is a horizontal movement direction.
type Direction int

const (
	DirLeft Direction = iota
	DirRight
)

// ActionType represents the type of player intent.
type ActionType int

const (
	ActionMoveLeft ActionType = iota
	ActionMoveRight
	ActionRotateCW
	ActionRotateCCW
	ActionSoftDrop // Level-triggered: each press extends the hold window
	ActionHardDrop
	ActionPause
	ActionStart
	ActionOpenOptions
	ActionLevelUp
	ActionLevelDown
	ActionConfirm
	ActionBack
)

// Action is a single intent fed to the engine.
type Action struct {
	Type ActionType
}

// GameStatus represents the current application phase.
type GameStatus int

const (
	StatusMenu    GameStatus = iota // Title menu
	StatusOptions                   // Level selection
	StatusPlaying                   // Round in progress
	StatusPaused                    // Round suspended
	StatusOver                      // Round lost
)

func (s GameStatus) String() string {
	switch s {
	case StatusMenu:
		return "menu"
	case StatusOptions:
		return "options"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusOver:
		return "over"
	default:
		return "unknown"
	}
}

// RotationSystem selects how rotation pivots are chosen.
type RotationSystem int

const (
	// RotationStable rotates about the centre of the piece's bounding box.
	// Four rotations in one direction always restore the original cells.
	RotationStable RotationSystem = iota
	// RotationReference pivots on the rounded mean of the cells. The I piece
	// ignores the requested direction and S and Z always turn clockwise.
	RotationReference
)

// GameState is a snapshot of a running game, safe to hand to renderers
// and to serialize for spectators.
type GameState struct {
	Cells        [][]Cell   `json:"cells"` // Visible rows only, Cells[0] is the bottom row
	Width        int        `json:"width"`
	Height       int        `json:"height"`
	Active       []Coord    `json:"active"`
	Shadow       []Coord    `json:"shadow"`
	Current      *Shape     `json:"current,omitempty"`
	Preview      []Shape    `json:"preview"`
	Score        int        `json:"score"`
	Lines        int        `json:"lines"`
	Level        int        `json:"level"`
	OptionsLevel int        `json:"options_level"`
	Status       GameStatus `json:"status"`
}

// GameConfig holds configurable parameters for a game session.
type GameConfig struct {
	Width               int            `json:"width"`
	VisibleHeight       int            `json:"visible_height"`
	OverflowRows        int            `json:"overflow_rows"`  // Hidden rows above the visible field
	SpawnAttempts       int            `json:"spawn_attempts"` // Downward retries before a spawn fails
	Rotation            RotationSystem `json:"rotation"`
	RandomSpawnRotation bool           `json:"random_spawn_rotation"`
	PreviewSize         int            `json:"preview_size"`
	LockDelay           time.Duration  `json:"lock_delay"`
	SoftDropHold        time.Duration  `json:"soft_drop_hold"`
	BaseSpeed           float64        `json:"base_speed"` // Rows per second at level 0
	LevelSpeedStep      float64        `json:"level_speed_step"`
	FastSpeed           float64        `json:"fast_speed"` // Rows per second while soft dropping
	StartLevel          int            `json:"start_level"`
	MaxLevel            int            `json:"max_level"`
	LinesPerLevel       int            `json:"lines_per_level"`
	TickRate            int            `json:"tick_rate"`      // Host frames per second
	BroadcastRate       int            `json:"broadcast_rate"` // Spectator snapshots per second
	MaxSpectators       int            `json:"max_spectators"`
	Seed                int64          `json:"seed"` // 0 seeds from the wall clock
}

// MaxOverflowRows bounds the hidden buffer above the visible field.
const MaxOverflowRows = 8

// DefaultConfig returns the classic 10x20 configuration.
func DefaultConfig() GameConfig {
	return GameConfig{
		Width:               10,
		VisibleHeight:       20,
		OverflowRows:        4,
		SpawnAttempts:       5,
		Rotation:            RotationStable,
		RandomSpawnRotation: true,
		PreviewSize:         6,
		LockDelay:           600 * time.Millisecond,
		SoftDropHold:        150 * time.Millisecond,
		BaseSpeed:           1.0,
		LevelSpeedStep:      0.5,
		FastSpeed:           20.0,
		StartLevel:          0,
		MaxLevel:            5,
		LinesPerLevel:       10,
		TickRate:            60,
		BroadcastRate:       10,
		MaxSpectators:       8,
	}
}

// Validate reports configuration values the playfield cannot work with.
func (c GameConfig) Validate() error {
	if c.Width < 4 {
		return fmt.Errorf("width must be at least 4, got %d", c.Width)
	}
	if c.VisibleHeight < 4 {
		return fmt.Errorf("visible height must be at least 4, got %d", c.VisibleHeight)
	}
	if c.OverflowRows < 1 || c.OverflowRows > MaxOverflowRows {
		return fmt.Errorf("overflow rows must be between 1 and %d, got %d", MaxOverflowRows, c.OverflowRows)
	}
	if c.SpawnAttempts < 1 {
		return fmt.Errorf("spawn attempts must be positive, got %d", c.SpawnAttempts)
	}
	if c.StartLevel < 0 || c.StartLevel > c.MaxLevel {
		return fmt.Errorf("start level must be between 0 and %d, got %d", c.MaxLevel, c.StartLevel)
	}
	if c.TickRate <= 0 {
		return fmt.Errorf("tick rate must be positive, got %d", c.TickRate)
	}
	return nil
}
