package game

import (
	"log"
	"math"
	"math/rand/v2"
	"time"

	"github.com/zyedidia/generic/queue"
)

// Clock supplies the wall-clock time that drives gravity and lock delay.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// lineScores is the base award for clearing 1-4 rows at once.
var lineScores = [...]int{0, 100, 300, 500, 800}

// Engine runs one player's game: menu and options screens, piece sequencing,
// gravity, lock delay and scoring around a Grid.
//
// Engine is driven by a single goroutine calling Tick once per frame.
// Actions may be enqueued from that goroutine at any time.
type Engine struct {
	Config  GameConfig
	grid    *Grid
	bag     *Bag
	rng     *rand.Rand
	preview *queue.Queue[Shape]
	clock   Clock
	actions chan Action
	onTick  func(GameState) // Callback after each tick with a COPY of state

	status       GameStatus
	level        int
	optionsLevel int
	startLevel   int
	score        int
	lines        int

	roundStart    time.Time
	pausedAt      time.Time
	gravityTicks  int
	fast          bool
	softDropUntil time.Time
	lockArmed     bool
	restingSince  time.Time
	dropRequested bool
}

// NewEngine creates an engine sitting at the title menu.
func NewEngine(config GameConfig) *Engine {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))

	return &Engine{
		Config:       config,
		grid:         NewGrid(config),
		rng:          rng,
		bag:          NewBag(rng, config.RandomSpawnRotation),
		preview:      queue.New[Shape](),
		clock:        systemClock{},
		actions:      make(chan Action, 64),
		status:       StatusMenu,
		level:        config.StartLevel,
		startLevel:   config.StartLevel,
		optionsLevel: config.StartLevel,
	}
}

// SetClock replaces the time source. Intended for tests and replays.
func (e *Engine) SetClock(c Clock) {
	e.clock = c
}

// OnTick sets a callback that is invoked after every tick with a copy of the state.
// Used by the spectator server to broadcast the playfield.
func (e *Engine) OnTick(fn func(GameState)) {
	e.onTick = fn
}

// Status returns the current application phase.
func (e *Engine) Status() GameStatus {
	return e.status
}

// Grid exposes the playfield for read-side queries.
func (e *Engine) Grid() *Grid {
	return e.grid
}

// EnqueueAction queues an intent for the next tick.
func (e *Engine) EnqueueAction(a Action) {
	select {
	case e.actions <- a:
	default:
		// Drop action if buffer is full (prevents blocking)
	}
}

// Tick processes one frame: drain intents, then run lock delay and gravity.
func (e *Engine) Tick() {
	now := e.clock.Now()
	e.drainActions(now)

	if e.status == StatusPlaying {
		e.advance(now)
	}

	if e.onTick != nil {
		e.onTick(e.GetStateCopy())
	}
}

// drainActions processes all queued actions.
func (e *Engine) drainActions(now time.Time) {
	for {
		select {
		case a := <-e.actions:
			e.apply(a, now)
		default:
			return
		}
	}
}

func (e *Engine) apply(a Action, now time.Time) {
	switch e.status {
	case StatusMenu:
		switch a.Type {
		case ActionStart, ActionConfirm:
			e.startRound(now)
		case ActionOpenOptions:
			e.optionsLevel = e.startLevel
			e.status = StatusOptions
		}

	case StatusOptions:
		switch a.Type {
		case ActionLevelUp:
			e.optionsLevel = min(e.optionsLevel+1, e.Config.MaxLevel)
		case ActionLevelDown:
			e.optionsLevel = max(e.optionsLevel-1, 0)
		case ActionConfirm:
			e.startLevel = e.optionsLevel
			e.level = e.startLevel
			e.status = StatusMenu
		case ActionBack:
			e.optionsLevel = e.startLevel
			e.status = StatusMenu
		}

	case StatusPlaying:
		switch a.Type {
		case ActionMoveLeft:
			e.grid.Translate(DirLeft)
		case ActionMoveRight:
			e.grid.Translate(DirRight)
		case ActionRotateCW, ActionRotateCCW:
			if e.grid.Rotate(a.Type == ActionRotateCW) && e.lockArmed {
				e.restingSince = now
			}
		case ActionSoftDrop:
			e.softDropUntil = now.Add(e.Config.SoftDropHold)
		case ActionHardDrop:
			e.dropRequested = true
		case ActionPause, ActionBack:
			e.pausedAt = now
			e.status = StatusPaused
		}

	case StatusPaused:
		switch a.Type {
		case ActionPause, ActionConfirm:
			e.resume(now)
		case ActionBack:
			e.status = StatusMenu
		}

	case StatusOver:
		switch a.Type {
		case ActionStart:
			e.startRound(now)
		case ActionConfirm, ActionBack:
			e.status = StatusMenu
		}
	}
}

// startRound resets the playfield and spawns the first piece.
func (e *Engine) startRound(now time.Time) {
	e.grid = NewGrid(e.Config)
	e.bag = NewBag(e.rng, e.Config.RandomSpawnRotation)
	e.preview = queue.New[Shape]()
	for i := 0; i < e.Config.PreviewSize; i++ {
		e.preview.Enqueue(e.bag.Next())
	}

	e.level = e.startLevel
	e.score = 0
	e.lines = 0
	e.roundStart = now
	e.fast = false
	e.softDropUntil = time.Time{}
	e.lockArmed = false
	e.dropRequested = false
	e.status = StatusPlaying
	e.gravityTicks = e.gravityCount(now)

	log.Printf("[GAME] Round started at level %d", e.level)
	e.spawnNext()
}

// resume continues a paused round. Gravity and lock timers are shifted by
// the pause so no time elapsed while paused counts.
func (e *Engine) resume(now time.Time) {
	paused := now.Sub(e.pausedAt)
	e.roundStart = e.roundStart.Add(paused)
	if e.lockArmed {
		e.restingSince = e.restingSince.Add(paused)
	}
	e.softDropUntil = time.Time{}
	e.fast = false
	e.gravityTicks = e.gravityCount(now)
	e.status = StatusPlaying
}

// advance runs lock delay and gravity for one frame of play.
func (e *Engine) advance(now time.Time) {
	fast := now.Before(e.softDropUntil)
	if fast != e.fast {
		e.fast = fast
		if !fast {
			// Back to the baseline scale: resynchronise so the elapsed
			// time at the fast scale does not count as pending falls.
			e.gravityTicks = e.gravityCount(now)
		}
	}

	switch resting := e.grid.IsResting(); {
	case resting && !e.lockArmed:
		e.lockArmed = true
		e.restingSince = now
	case !resting:
		e.lockArmed = false
	}

	if e.dropRequested || (e.lockArmed && now.Sub(e.restingSince) >= e.Config.LockDelay) {
		e.dropRequested = false
		e.lockPiece(now)
		return
	}

	if ticks := e.gravityCount(now); ticks > e.gravityTicks {
		e.gravityTicks = ticks
		e.grid.Fall()
	}
}

// lockPiece drops and locks the active piece, clears rows, checks for a
// loss, and brings in the next piece.
func (e *Engine) lockPiece(now time.Time) {
	e.grid.HardDrop()
	e.grid.Lock()
	e.award(e.grid.LineComplete())
	e.lockArmed = false

	if e.grid.CheckLoss() {
		e.gameOver("overflow")
		return
	}
	e.spawnNext()
	e.gravityTicks = e.gravityCount(now)
}

func (e *Engine) spawnNext() {
	e.preview.Enqueue(e.bag.Next())
	shape := e.preview.Dequeue()
	if !e.grid.Spawn(shape) {
		e.gameOver("spawn blocked")
	}
}

func (e *Engine) gameOver(reason string) {
	log.Printf("[GAME] Round lost (%s): score %d, lines %d, level %d", reason, e.score, e.lines, e.level)
	e.status = StatusOver
}

// award scores cleared rows and raises the level every LinesPerLevel rows.
func (e *Engine) award(cleared int) {
	if cleared <= 0 {
		return
	}
	e.score += lineScores[min(cleared, len(lineScores)-1)] * (e.level + 1)
	e.lines += cleared
	if e.Config.LinesPerLevel > 0 {
		e.level = min(max(e.level, e.startLevel+e.lines/e.Config.LinesPerLevel), e.Config.MaxLevel)
	}
}

// speed returns the gravity scale in rows per second.
func (e *Engine) speed() float64 {
	if e.fast {
		return e.Config.FastSpeed
	}
	return e.Config.BaseSpeed + float64(e.level)*e.Config.LevelSpeedStep
}

func (e *Engine) gravityCount(now time.Time) int {
	return int(math.Floor(e.speed() * now.Sub(e.roundStart).Seconds()))
}

// GetStateCopy returns a deep copy of the game state safe for serialization.
func (e *Engine) GetStateCopy() GameState {
	preview := make([]Shape, 0, e.Config.PreviewSize)
	e.preview.Each(func(s Shape) {
		preview = append(preview, s)
	})

	state := GameState{
		Cells:        e.grid.VisibleCells(),
		Width:        e.grid.Cols(),
		Height:       e.grid.VisibleRows(),
		Active:       e.grid.Active(),
		Shadow:       e.grid.Shadow(),
		Preview:      preview,
		Score:        e.score,
		Lines:        e.lines,
		Level:        e.level,
		OptionsLevel: e.optionsLevel,
		Status:       e.status,
	}
	if shape, ok := e.grid.ActiveShape(); ok {
		state.Current = &shape
	}
	return state
}
