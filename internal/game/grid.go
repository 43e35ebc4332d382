package game

import (
	"math"

	"github.com/zyedidia/generic/mapset"
)

// Correction is the outcome of the collision-correction pass.
type Correction int

const (
	Accepted  Correction = iota // Proposed cells were free
	Corrected                   // Cells were nudged back into a free position
	Rejected                    // No free position; last-good cells kept
)

// rotation matrices applied to (row, col) offsets, rows counted upward
var (
	clockwiseMatrix        = [2][2]float64{{0, -1}, {1, 0}}
	counterClockwiseMatrix = [2][2]float64{{0, 1}, {-1, 0}}
)

// Grid is the playfield: the cell matrix plus the live active piece and
// its landing shadow. The active piece's cells are also marked filled in
// the matrix while it is live.
//
// A Grid is not safe for concurrent use.
type Grid struct {
	cells         [][]Cell
	rows          int
	cols          int
	visible       int
	system        RotationSystem
	spawnAttempts int

	live    bool
	shape   Shape
	anchor  Coord // Bottom-left corner of the piece's bounding box
	active  [4]Coord
	shadow  [4]Coord
	resting bool
	maxPass int
}

// NewGrid creates an empty playfield sized by the config.
func NewGrid(config GameConfig) *Grid {
	rows := config.VisibleHeight + config.OverflowRows
	cells := make([][]Cell, rows)
	for r := range cells {
		cells[r] = make([]Cell, config.Width)
	}

	attempts := config.SpawnAttempts
	if attempts < 1 {
		attempts = 1
	}

	return &Grid{
		cells:         cells,
		rows:          rows,
		cols:          config.Width,
		visible:       config.VisibleHeight,
		system:        config.Rotation,
		spawnAttempts: attempts,
		maxPass:       max(rows, config.Width),
	}
}

// Rows returns the matrix height including the overflow rows.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the matrix width.
func (g *Grid) Cols() int { return g.cols }

// VisibleRows returns the number of rows shown to the player.
func (g *Grid) VisibleRows() int { return g.visible }

// Cell returns the cell at (row, col), or an empty cell when out of bounds.
func (g *Grid) Cell(row, col int) Cell {
	if !g.inBounds(Coord{Row: row, Col: col}) {
		return Cell{}
	}
	return g.cells[row][col]
}

// SetCell overwrites a cell. Used to load positions and by tests; it does
// not interact with the active piece.
func (g *Grid) SetCell(row, col int, cell Cell) {
	if g.inBounds(Coord{Row: row, Col: col}) {
		g.cells[row][col] = cell
	}
}

// Live reports whether an active piece is in play.
func (g *Grid) Live() bool { return g.live }

// ActiveShape returns the shape of the live piece.
func (g *Grid) ActiveShape() (Shape, bool) {
	return g.shape, g.live
}

// ActiveType returns the type of the live piece.
func (g *Grid) ActiveType() (PieceType, bool) {
	return g.shape.Type, g.live
}

// Active returns the live piece's cells, or nil when no piece is live.
func (g *Grid) Active() []Coord {
	if !g.live {
		return nil
	}
	out := make([]Coord, 4)
	copy(out, g.active[:])
	return out
}

// Shadow returns where the live piece would land if dropped now.
func (g *Grid) Shadow() []Coord {
	if !g.live {
		return nil
	}
	out := make([]Coord, 4)
	copy(out, g.shadow[:])
	return out
}

// IsResting reports whether the last fall attempt was blocked.
func (g *Grid) IsResting() bool { return g.resting }

// Spawn places the shape at the top of the matrix. A blocked spawn is
// retried one row lower, up to the configured number of attempts; false
// means every attempt collided and the round is lost.
func (g *Grid) Spawn(shape Shape) bool {
	g.lock()

	n := shape.BoxSize()
	anchor := Coord{Row: g.rows - n, Col: (g.cols - n) / 2}
	offsets := shape.Offsets()

	for attempt := 0; attempt < g.spawnAttempts; attempt++ {
		var cells [4]Coord
		free := true
		for i, off := range offsets {
			c := Coord{Row: anchor.Row + off.Row, Col: anchor.Col + off.Col}
			if !g.inBounds(c) || g.cells[c.Row][c.Col].Filled {
				free = false
				break
			}
			cells[i] = c
		}
		if free {
			g.shape = shape
			g.anchor = anchor
			g.active = cells
			g.live = true
			g.resting = false
			g.paint(cells)
			g.updateShadow()
			return true
		}
		anchor.Row--
	}
	return false
}

// Translate shifts the live piece one column. The move is all-or-nothing:
// if any cell would leave the matrix or hit a locked block, nothing changes.
func (g *Grid) Translate(dir Direction) bool {
	if !g.live {
		return false
	}
	dc := 1
	if dir == DirLeft {
		dc = -1
	}

	own := g.activeSet()
	var next [4]Coord
	for i, c := range g.active {
		n := Coord{Row: c.Row, Col: c.Col + dc}
		if g.blocked(n, own) {
			return false
		}
		next[i] = n
	}

	g.move(next)
	g.anchor.Col += dc
	g.updateShadow()
	return true
}

// Rotate turns the live piece a quarter turn. The O piece never rotates.
// Returns false when the rotation was rejected.
func (g *Grid) Rotate(clockwise bool) bool {
	if !g.live || g.shape.Type == PieceO {
		return false
	}

	pr, pc := g.pivot()
	m, cw := g.rotationMatrix(clockwise)

	var proposed [4]Coord
	for i, c := range g.active {
		dr := float64(c.Row) - pr
		dc := float64(c.Col) - pc
		proposed[i] = Coord{
			Row: int(math.Trunc(pr + m[0][0]*dr + m[0][1]*dc)),
			Col: int(math.Trunc(pc + m[1][0]*dr + m[1][1]*dc)),
		}
	}

	fixed, result := g.correct(proposed, g.active)
	if result == Rejected {
		return false
	}

	g.anchor.Row += fixed[0].Row - proposed[0].Row
	g.anchor.Col += fixed[0].Col - proposed[0].Col
	g.shape.Rotation = g.shape.Rotation.Turn(cw)
	g.move(fixed)
	g.updateShadow()
	return true
}

// pivot returns the rotation centre for the live piece.
func (g *Grid) pivot() (float64, float64) {
	if g.system == RotationStable {
		half := float64(g.shape.BoxSize()-1) / 2
		return float64(g.anchor.Row) + half, float64(g.anchor.Col) + half
	}

	var sr, sc float64
	for _, c := range g.active {
		sr += float64(c.Row)
		sc += float64(c.Col)
	}
	mr, mc := sr/4, sc/4
	switch g.shape.Type {
	case PieceS, PieceZ:
		return math.Floor(mr), math.Round(mc)
	default:
		return math.Round(mr), math.Round(mc)
	}
}

// rotationMatrix picks the matrix for the requested direction and reports
// which direction was actually applied.
func (g *Grid) rotationMatrix(clockwise bool) ([2][2]float64, bool) {
	if g.system == RotationReference {
		switch g.shape.Type {
		case PieceI:
			return counterClockwiseMatrix, false
		case PieceS, PieceZ:
			return clockwiseMatrix, true
		}
	}
	if clockwise {
		return clockwiseMatrix, true
	}
	return counterClockwiseMatrix, false
}

// correct compares proposed cells against the last-good cells and undoes
// unit steps until the proposed position is free. Each pass collects the
// undo needed on each axis from every colliding cell: out-of-bounds cells
// undo the violated axis, cells overlapping a locked block undo every axis
// they moved on. Opposite undos on one axis, or no convergence within
// maxPass passes, reject the move.
func (g *Grid) correct(proposed, previous [4]Coord) ([4]Coord, Correction) {
	own := mapset.New[Coord]()
	for _, c := range previous {
		own.Put(c)
	}

	cur := proposed
	result := Accepted
	for pass := 0; pass <= g.maxPass; pass++ {
		undoRow, undoCol := 0, 0
		collided := false

		for i, c := range cur {
			rowOut := c.Row < 0 || c.Row >= g.rows
			colOut := c.Col < 0 || c.Col >= g.cols
			overlap := !rowOut && !colOut && g.cells[c.Row][c.Col].Filled && !own.Has(c)
			if !rowOut && !colOut && !overlap {
				continue
			}
			collided = true

			sr := sign(c.Row - previous[i].Row)
			sc := sign(c.Col - previous[i].Col)
			needRow := (rowOut || overlap) && sr != 0
			needCol := (colOut || overlap) && sc != 0
			if !needRow && !needCol {
				return previous, Rejected
			}
			if needRow {
				if undoRow == sr {
					return previous, Rejected
				}
				undoRow = -sr
			}
			if needCol {
				if undoCol == sc {
					return previous, Rejected
				}
				undoCol = -sc
			}
		}

		if !collided {
			return cur, result
		}
		for i := range cur {
			cur[i].Row += undoRow
			cur[i].Col += undoCol
		}
		result = Corrected
	}
	return previous, Rejected
}

// Fall moves the live piece down one row. If the row below is blocked the
// piece stays put and the resting flag is set; a successful fall clears it.
func (g *Grid) Fall() {
	if !g.live {
		return
	}

	var proposed [4]Coord
	for i, c := range g.active {
		proposed[i] = Coord{Row: c.Row - 1, Col: c.Col}
	}

	if _, result := g.correct(proposed, g.active); result != Accepted {
		g.resting = true
		return
	}

	g.resting = false
	g.move(proposed)
	g.anchor.Row--
	g.updateShadow()
}

// HardDrop falls until the piece rests and returns the rows dropped.
func (g *Grid) HardDrop() int {
	if !g.live {
		return 0
	}
	g.resting = false
	dropped := 0
	for i := 0; i < g.rows && !g.resting; i++ {
		g.Fall()
		if !g.resting {
			dropped++
		}
	}
	return dropped
}

// Lock ends the live piece. Its cells stay filled as locked blocks.
func (g *Grid) Lock() {
	g.lock()
}

func (g *Grid) lock() {
	g.live = false
	g.resting = false
}

// LineComplete locks the live piece, then removes every full visible row,
// compacting the rows above it downward. Returns the number of rows removed.
func (g *Grid) LineComplete() int {
	g.lock()

	cleared := 0
	for r := g.visible - 1; r >= 0; {
		if !g.rowFull(r) {
			r--
			continue
		}
		for k := r; k < g.rows-1; k++ {
			copy(g.cells[k], g.cells[k+1])
		}
		clear(g.cells[g.rows-1])
		cleared++
	}
	return cleared
}

// CheckLoss locks the live piece and reports whether any overflow cell is
// filled. On a loss the overflow rows are cleared.
func (g *Grid) CheckLoss() bool {
	g.lock()

	lost := false
	for r := g.visible; r < g.rows; r++ {
		for _, cell := range g.cells[r] {
			if cell.Filled {
				lost = true
			}
		}
	}
	if lost {
		for r := g.visible; r < g.rows; r++ {
			clear(g.cells[r])
		}
	}
	return lost
}

// VisibleCells returns a copy of the visible rows, bottom row first.
func (g *Grid) VisibleCells() [][]Cell {
	out := make([][]Cell, g.visible)
	for r := range out {
		out[r] = make([]Cell, g.cols)
		copy(out[r], g.cells[r])
	}
	return out
}

// updateShadow probes the active cells downward until they would hit the
// floor or a locked block. The matrix is only read.
func (g *Grid) updateShadow() {
	own := g.activeSet()
	s := g.active
	for {
		var next [4]Coord
		for i, c := range s {
			n := Coord{Row: c.Row - 1, Col: c.Col}
			if g.blocked(n, own) {
				g.shadow = s
				return
			}
			next[i] = n
		}
		s = next
	}
}

func (g *Grid) rowFull(r int) bool {
	for _, cell := range g.cells[r] {
		if !cell.Filled {
			return false
		}
	}
	return true
}

// move repaints the active piece at new cells.
func (g *Grid) move(next [4]Coord) {
	for _, c := range g.active {
		g.cells[c.Row][c.Col] = Cell{}
	}
	g.active = next
	g.paint(next)
}

func (g *Grid) paint(cells [4]Coord) {
	color := g.shape.Color()
	for _, c := range cells {
		g.cells[c.Row][c.Col] = Cell{Filled: true, Color: color}
	}
}

func (g *Grid) activeSet() mapset.Set[Coord] {
	own := mapset.New[Coord]()
	for _, c := range g.active {
		own.Put(c)
	}
	return own
}

// blocked reports whether c is outside the matrix or holds a block that is
// not part of own.
func (g *Grid) blocked(c Coord, own mapset.Set[Coord]) bool {
	if !g.inBounds(c) {
		return true
	}
	return g.cells[c.Row][c.Col].Filled && !own.Has(c)
}

func (g *Grid) inBounds(c Coord) bool {
	return c.Row >= 0 && c.Row < g.rows && c.Col >= 0 && c.Col < g.cols
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
