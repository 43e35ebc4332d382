package game

// PieceType identifies one of the seven tetrominoes.
type PieceType int

const (
	PieceL PieceType = iota
	PieceJ
	PieceI
	PieceO
	PieceS
	PieceZ
	PieceT
)

// PieceTypes lists every piece type in catalog order.
var PieceTypes = []PieceType{PieceL, PieceJ, PieceI, PieceO, PieceS, PieceZ, PieceT}

func (t PieceType) String() string {
	switch t {
	case PieceL:
		return "L"
	case PieceJ:
		return "J"
	case PieceI:
		return "I"
	case PieceO:
		return "O"
	case PieceS:
		return "S"
	case PieceZ:
		return "Z"
	case PieceT:
		return "T"
	default:
		return "?"
	}
}

// Rotation is one of four quarter-turn orientations.
type Rotation int

const (
	R0 Rotation = iota
	R90
	R180
	R270
)

// Turn returns the rotation one quarter-turn clockwise (or counter-clockwise).
func (r Rotation) Turn(clockwise bool) Rotation {
	if clockwise {
		return (r + 1) % 4
	}
	return (r + 3) % 4
}

// Shape is a (type, rotation) entry of the piece catalog.
type Shape struct {
	Type     PieceType `json:"type"`
	Rotation Rotation  `json:"rotation"`
}

// Offsets returns the four cells of the shape relative to the bottom-left
// corner of its bounding box.
func (s Shape) Offsets() [4]Coord {
	return catalog[s.Type].offsets[s.Rotation]
}

// Color returns the display color of the shape's piece type.
func (s Shape) Color() Color {
	return catalog[s.Type].color
}

// BoxSize returns the side of the shape's square bounding box.
func (s Shape) BoxSize() int {
	return catalog[s.Type].box
}

func (s Shape) String() string {
	return s.Type.String()
}

type pieceDef struct {
	box     int
	color   Color
	offsets [4][4]Coord
}

// catalog holds the 28 rotation states. Offsets are (row, col) with rows
// counted upward; each rotation is the previous one turned clockwise about
// the centre of the bounding box.
var catalog = map[PieceType]pieceDef{
	PieceL: {
		box:   3,
		color: Color{R: 255, G: 165, B: 0},
		offsets: [4][4]Coord{
			{{2, 2}, {1, 0}, {1, 1}, {1, 2}},
			{{2, 1}, {1, 1}, {0, 1}, {0, 2}},
			{{1, 0}, {1, 1}, {1, 2}, {0, 0}},
			{{2, 0}, {2, 1}, {1, 1}, {0, 1}},
		},
	},
	PieceJ: {
		box:   3,
		color: Color{R: 0, G: 0, B: 255},
		offsets: [4][4]Coord{
			{{2, 0}, {1, 0}, {1, 1}, {1, 2}},
			{{2, 1}, {2, 2}, {1, 1}, {0, 1}},
			{{1, 0}, {1, 1}, {1, 2}, {0, 2}},
			{{2, 1}, {1, 1}, {0, 0}, {0, 1}},
		},
	},
	PieceI: {
		box:   4,
		color: Color{R: 0, G: 255, B: 255},
		offsets: [4][4]Coord{
			{{2, 0}, {2, 1}, {2, 2}, {2, 3}},
			{{3, 2}, {2, 2}, {1, 2}, {0, 2}},
			{{1, 0}, {1, 1}, {1, 2}, {1, 3}},
			{{3, 1}, {2, 1}, {1, 1}, {0, 1}},
		},
	},
	PieceO: {
		box:   2,
		color: Color{R: 255, G: 255, B: 0},
		offsets: [4][4]Coord{
			{{1, 0}, {1, 1}, {0, 0}, {0, 1}},
			{{1, 0}, {1, 1}, {0, 0}, {0, 1}},
			{{1, 0}, {1, 1}, {0, 0}, {0, 1}},
			{{1, 0}, {1, 1}, {0, 0}, {0, 1}},
		},
	},
	PieceS: {
		box:   3,
		color: Color{R: 0, G: 255, B: 0},
		offsets: [4][4]Coord{
			{{2, 1}, {2, 2}, {1, 0}, {1, 1}},
			{{2, 1}, {1, 1}, {1, 2}, {0, 2}},
			{{1, 1}, {1, 2}, {0, 0}, {0, 1}},
			{{2, 0}, {1, 0}, {1, 1}, {0, 1}},
		},
	},
	PieceZ: {
		box:   3,
		color: Color{R: 255, G: 0, B: 0},
		offsets: [4][4]Coord{
			{{2, 0}, {2, 1}, {1, 1}, {1, 2}},
			{{2, 2}, {1, 1}, {1, 2}, {0, 1}},
			{{1, 0}, {1, 1}, {0, 1}, {0, 2}},
			{{2, 1}, {1, 0}, {1, 1}, {0, 0}},
		},
	},
	PieceT: {
		box:   3,
		color: Color{R: 160, G: 32, B: 240},
		offsets: [4][4]Coord{
			{{2, 1}, {1, 0}, {1, 1}, {1, 2}},
			{{2, 1}, {1, 1}, {1, 2}, {0, 1}},
			{{1, 0}, {1, 1}, {1, 2}, {0, 1}},
			{{2, 1}, {1, 0}, {1, 1}, {0, 1}},
		},
	},
}
