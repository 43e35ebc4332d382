package game

import (
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestEngine(t *testing.T) (*Engine, *fakeClock) {
	t.Helper()
	config := DefaultConfig()
	config.Seed = 42
	config.RandomSpawnRotation = false
	engine := NewEngine(config)
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	engine.SetClock(clock)
	return engine, clock
}

func startEngine(t *testing.T) (*Engine, *fakeClock) {
	t.Helper()
	engine, clock := newTestEngine(t)
	engine.EnqueueAction(Action{Type: ActionStart})
	engine.Tick()
	if engine.Status() != StatusPlaying {
		t.Fatalf("expected status playing, got %s", engine.Status())
	}
	return engine, clock
}

// placeTestPiece swaps in an empty grid holding only the given shape.
func placeTestPiece(t *testing.T, engine *Engine, shape Shape) {
	t.Helper()
	engine.grid = NewGrid(engine.Config)
	if !engine.grid.Spawn(shape) {
		t.Fatalf("spawn %v failed on an empty grid", shape)
	}
}

func lowestRow(cells []Coord) int {
	low := cells[0].Row
	for _, c := range cells[1:] {
		low = min(low, c.Row)
	}
	return low
}

func visibleFilled(state GameState) int {
	n := 0
	for _, row := range state.Cells {
		for _, cell := range row {
			if cell.Filled {
				n++
			}
		}
	}
	return n
}

func TestStartRound(t *testing.T) {
	engine, _ := newTestEngine(t)
	if engine.Status() != StatusMenu {
		t.Fatalf("expected status menu, got %s", engine.Status())
	}

	engine.EnqueueAction(Action{Type: ActionStart})
	engine.Tick()

	state := engine.GetStateCopy()
	if state.Status != StatusPlaying {
		t.Fatalf("expected status playing, got %s", state.Status)
	}
	if state.Current == nil {
		t.Fatal("expected a live piece after start")
	}
	if len(state.Active) != 4 {
		t.Fatalf("expected 4 active cells, got %d", len(state.Active))
	}
	if len(state.Preview) != 6 {
		t.Fatalf("expected 6 preview shapes, got %d", len(state.Preview))
	}
	if len(state.Cells) != 20 || len(state.Cells[0]) != 10 {
		t.Fatalf("expected 20x10 visible cells, got %dx%d", len(state.Cells), len(state.Cells[0]))
	}
}

func TestPreviewFeedsSpawn(t *testing.T) {
	engine, _ := startEngine(t)
	next := engine.GetStateCopy().Preview[0]

	engine.EnqueueAction(Action{Type: ActionHardDrop})
	engine.Tick()

	state := engine.GetStateCopy()
	if state.Current == nil || *state.Current != next {
		t.Fatalf("expected spawned piece %v, got %v", next, state.Current)
	}
	if len(state.Preview) != 6 {
		t.Errorf("preview should stay at 6 shapes, got %d", len(state.Preview))
	}
}

func TestActionsIgnoredInMenu(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.EnqueueAction(Action{Type: ActionMoveLeft})
	engine.EnqueueAction(Action{Type: ActionHardDrop})
	engine.Tick()

	if engine.Status() != StatusMenu {
		t.Fatalf("expected status menu, got %s", engine.Status())
	}
	if engine.Grid().Live() {
		t.Error("no piece should be live in the menu")
	}
}

func TestLockWaitsForDelay(t *testing.T) {
	engine, clock := startEngine(t)
	engine.Grid().HardDrop()
	engine.Tick() // piece is resting: lock timer starts
	rested := engine.GetStateCopy().Active

	clock.advance(500 * time.Millisecond)
	engine.Tick()
	state := engine.GetStateCopy()
	if lowestRow(state.Active) != lowestRow(rested) {
		t.Fatalf("piece locked before the lock delay, active now at row %d", lowestRow(state.Active))
	}

	clock.advance(200 * time.Millisecond)
	engine.Tick()
	state = engine.GetStateCopy()
	if lowestRow(state.Active) < state.Height {
		t.Fatalf("expected a fresh piece above the visible field, got row %d", lowestRow(state.Active))
	}
	if got := visibleFilled(state); got != 4 {
		t.Errorf("expected 4 locked cells, got %d", got)
	}
}

func TestRotateRestartsLockTimer(t *testing.T) {
	engine, clock := startEngine(t)
	placeTestPiece(t, engine, Shape{Type: PieceT})
	engine.Grid().HardDrop()
	engine.Tick()

	clock.advance(500 * time.Millisecond)
	engine.EnqueueAction(Action{Type: ActionRotateCW})
	engine.Tick()
	if shape, _ := engine.Grid().ActiveShape(); shape.Rotation != R90 {
		t.Fatalf("expected rotation r90, got r%d", shape.Rotation)
	}

	clock.advance(200 * time.Millisecond)
	engine.Tick()
	if shape, ok := engine.Grid().ActiveShape(); !ok || shape.Type != PieceT || shape.Rotation != R90 {
		t.Fatal("rotation should have restarted the lock timer")
	}

	clock.advance(450 * time.Millisecond)
	engine.Tick()
	if lowestRow(engine.Grid().Active()) < engine.Grid().VisibleRows() {
		t.Fatal("expected the T piece to lock 600ms after the rotation")
	}
}

func TestLockCancelledWhenPieceFallsAgain(t *testing.T) {
	engine, clock := startEngine(t)
	placeTestPiece(t, engine, Shape{Type: PieceO})
	engine.Grid().SetCell(10, 4, Cell{Filled: true})
	engine.Grid().HardDrop()
	engine.Tick()
	if !engine.lockArmed {
		t.Fatal("expected the lock timer to be armed on a resting piece")
	}

	// the ledge disappears; next gravity step moves the piece again
	engine.Grid().SetCell(10, 4, Cell{})
	engine.Config.BaseSpeed = 4
	clock.advance(300 * time.Millisecond)
	engine.Tick()
	engine.Tick()
	if engine.lockArmed {
		t.Fatal("lock timer should be cancelled once the piece moves down")
	}
	if low := lowestRow(engine.Grid().Active()); low != 10 {
		t.Fatalf("expected O piece to have fallen to row 10, got %d", low)
	}
}

func TestGravityFollowsClock(t *testing.T) {
	engine, clock := startEngine(t)
	start := lowestRow(engine.Grid().Active())

	clock.advance(999 * time.Millisecond)
	engine.Tick()
	if got := lowestRow(engine.Grid().Active()); got != start {
		t.Fatalf("expected no fall before 1s, moved from %d to %d", start, got)
	}

	clock.advance(1 * time.Millisecond)
	engine.Tick()
	if got := lowestRow(engine.Grid().Active()); got != start-1 {
		t.Fatalf("expected one fall at 1s, got row %d from %d", got, start)
	}
}

func TestSoftDropReleaseResyncsGravity(t *testing.T) {
	engine, clock := startEngine(t)
	start := lowestRow(engine.Grid().Active())

	clock.advance(10 * time.Millisecond)
	engine.EnqueueAction(Action{Type: ActionSoftDrop})
	engine.Tick()

	clock.advance(90 * time.Millisecond) // 100ms
	engine.Tick()
	clock.advance(55 * time.Millisecond) // 155ms
	engine.Tick()
	if got := start - lowestRow(engine.Grid().Active()); got != 2 {
		t.Fatalf("expected 2 fast falls while soft dropping, got %d", got)
	}

	clock.advance(45 * time.Millisecond) // 200ms, hold expired
	engine.Tick()
	clock.advance(700 * time.Millisecond) // 900ms
	engine.Tick()
	if got := start - lowestRow(engine.Grid().Active()); got != 2 {
		t.Fatalf("releasing soft drop caused an extra fall, fell %d rows", got)
	}

	clock.advance(100 * time.Millisecond) // 1s
	engine.Tick()
	if got := start - lowestRow(engine.Grid().Active()); got != 3 {
		t.Fatalf("expected normal gravity to resume at 1s, fell %d rows", got)
	}
}

func TestPauseFreezesGravity(t *testing.T) {
	engine, clock := startEngine(t)
	start := lowestRow(engine.Grid().Active())

	clock.advance(500 * time.Millisecond)
	engine.EnqueueAction(Action{Type: ActionPause})
	engine.Tick()
	if engine.Status() != StatusPaused {
		t.Fatalf("expected status paused, got %s", engine.Status())
	}

	clock.advance(10 * time.Second)
	engine.EnqueueAction(Action{Type: ActionMoveLeft})
	engine.Tick()
	engine.EnqueueAction(Action{Type: ActionPause})
	engine.Tick()
	if engine.Status() != StatusPlaying {
		t.Fatalf("expected status playing after resume, got %s", engine.Status())
	}
	if got := lowestRow(engine.Grid().Active()); got != start {
		t.Fatalf("piece moved while paused: row %d, want %d", got, start)
	}

	clock.advance(500 * time.Millisecond)
	engine.Tick()
	if got := lowestRow(engine.Grid().Active()); got != start-1 {
		t.Fatalf("expected one fall after 1s of play, got row %d from %d", got, start)
	}
}

func TestOptionsLevel(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.EnqueueAction(Action{Type: ActionOpenOptions})
	for i := 0; i < 7; i++ {
		engine.EnqueueAction(Action{Type: ActionLevelUp})
	}
	engine.Tick()

	state := engine.GetStateCopy()
	if state.Status != StatusOptions {
		t.Fatalf("expected status options, got %s", state.Status)
	}
	if state.OptionsLevel != 5 {
		t.Fatalf("expected options level capped at 5, got %d", state.OptionsLevel)
	}

	engine.EnqueueAction(Action{Type: ActionLevelDown})
	engine.EnqueueAction(Action{Type: ActionConfirm})
	engine.EnqueueAction(Action{Type: ActionStart})
	engine.Tick()
	if got := engine.GetStateCopy().Level; got != 4 {
		t.Fatalf("expected round to start at level 4, got %d", got)
	}
}

func TestOptionsBackDiscards(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.EnqueueAction(Action{Type: ActionOpenOptions})
	engine.EnqueueAction(Action{Type: ActionLevelUp})
	engine.EnqueueAction(Action{Type: ActionBack})
	engine.Tick()

	state := engine.GetStateCopy()
	if state.Status != StatusMenu {
		t.Fatalf("expected status menu, got %s", state.Status)
	}
	if state.Level != 0 || state.OptionsLevel != 0 {
		t.Errorf("back should discard the level change, got level %d options %d", state.Level, state.OptionsLevel)
	}
}

func TestLineClearScores(t *testing.T) {
	engine, _ := startEngine(t)
	placeTestPiece(t, engine, Shape{Type: PieceO})
	for c := 0; c < 8; c++ {
		engine.Grid().SetCell(0, c, Cell{Filled: true})
	}

	for i := 0; i < 4; i++ {
		engine.EnqueueAction(Action{Type: ActionMoveRight})
	}
	engine.EnqueueAction(Action{Type: ActionHardDrop})
	engine.Tick()

	state := engine.GetStateCopy()
	if state.Lines != 1 {
		t.Fatalf("expected 1 line, got %d", state.Lines)
	}
	if state.Score != 100 {
		t.Fatalf("expected score 100, got %d", state.Score)
	}
	if !state.Cells[0][8].Filled || !state.Cells[0][9].Filled {
		t.Error("O piece remnants should have shifted down to row 0")
	}
	if state.Cells[0][0].Filled {
		t.Error("row 0 should have been cleared")
	}
}

func TestAward(t *testing.T) {
	engine, _ := startEngine(t)

	engine.award(4)
	engine.award(4)
	engine.award(4) // 12 lines, level goes up after scoring
	engine.award(1)

	state := engine.GetStateCopy()
	if state.Score != 2600 {
		t.Fatalf("expected score 2600, got %d", state.Score)
	}
	if state.Lines != 13 {
		t.Fatalf("expected 13 lines, got %d", state.Lines)
	}
	if state.Level != 1 {
		t.Fatalf("expected level 1, got %d", state.Level)
	}

	engine.award(0)
	if engine.score != 2600 {
		t.Errorf("clearing nothing should not score, got %d", engine.score)
	}

	for i := 0; i < 30; i++ {
		engine.award(4)
	}
	if engine.level != 5 {
		t.Errorf("expected level capped at 5, got %d", engine.level)
	}
}

func TestLossOnOverflow(t *testing.T) {
	engine, _ := startEngine(t)
	engine.Grid().SetCell(20, 0, Cell{Filled: true})

	engine.EnqueueAction(Action{Type: ActionHardDrop})
	engine.Tick()
	if engine.Status() != StatusOver {
		t.Fatalf("expected status over, got %s", engine.Status())
	}
	if engine.Grid().Cell(20, 0).Filled {
		t.Error("overflow rows should be cleared on a loss")
	}

	engine.EnqueueAction(Action{Type: ActionConfirm})
	engine.Tick()
	if engine.Status() != StatusMenu {
		t.Fatalf("expected status menu, got %s", engine.Status())
	}
}

func TestLossOnBlockedSpawn(t *testing.T) {
	engine, _ := startEngine(t)
	engine.grid = NewGrid(engine.Config)
	for r := 14; r < engine.grid.Rows(); r++ {
		for c := 0; c < engine.grid.Cols(); c++ {
			engine.grid.SetCell(r, c, Cell{Filled: true})
		}
	}

	engine.spawnNext()
	if engine.Status() != StatusOver {
		t.Fatalf("expected status over after a blocked spawn, got %s", engine.Status())
	}
}

func TestRestartAfterLoss(t *testing.T) {
	engine, _ := startEngine(t)
	engine.award(2)
	engine.status = StatusOver

	engine.EnqueueAction(Action{Type: ActionStart})
	engine.Tick()
	state := engine.GetStateCopy()
	if state.Status != StatusPlaying {
		t.Fatalf("expected status playing, got %s", state.Status)
	}
	if state.Score != 0 || state.Lines != 0 {
		t.Errorf("expected fresh score, got score %d lines %d", state.Score, state.Lines)
	}
}

func TestOnTickReceivesCopy(t *testing.T) {
	engine, _ := newTestEngine(t)
	var got []GameState
	engine.OnTick(func(s GameState) {
		got = append(got, s)
	})

	engine.EnqueueAction(Action{Type: ActionStart})
	engine.Tick()
	engine.Tick()

	if len(got) != 2 {
		t.Fatalf("expected 2 callbacks, got %d", len(got))
	}
	if got[0].Status != StatusPlaying {
		t.Fatalf("expected status playing, got %s", got[0].Status)
	}

	got[0].Cells[0][0] = Cell{Filled: true}
	if engine.Grid().Cell(0, 0).Filled {
		t.Error("snapshot cells should not alias the grid")
	}
}

func TestEnqueueActionDropsWhenFull(t *testing.T) {
	engine, _ := newTestEngine(t)
	for i := 0; i < 1000; i++ {
		engine.EnqueueAction(Action{Type: ActionLevelUp})
	}
	if len(engine.actions) != cap(engine.actions) {
		t.Fatalf("expected a full action buffer, got %d/%d", len(engine.actions), cap(engine.actions))
	}
}
