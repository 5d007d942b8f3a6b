package server

import (
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/gameroomdev/gameroom/pkg/statemachine"
)

// roomTimer is the per-room turn-timeout entity. Its lifecycle is the
// Idle -> Armed -> Fired -> Idle machine; Armed -> Idle is a strong
// cancellation that must beat an already-dispatched fire.
type roomTimer struct {
	code        string
	generation  uint64
	playerIndex int
	playerID    string
	startedAt   time.Time
	fireAt      time.Time

	expiry *time.Timer
	stop   chan struct{}

	machine *statemachine.Machine[roomTimer]
}

func timerIdle(t *roomTimer) statemachine.StateFn[roomTimer]  { return timerIdle }
func timerArmed(t *roomTimer) statemachine.StateFn[roomTimer] { return timerArmed }
func timerFired(t *roomTimer) statemachine.StateFn[roomTimer] { return timerIdle }

// TurnTimer is the process-wide turn-timeout scheduler. One logical timer
// per room; timer-excluded kinds never reach it.
type TurnTimer struct {
	log     slog.Logger
	timeout time.Duration
	now     func() time.Time

	// OnWarning emits the per-second countdown tick.
	OnWarning func(code string, playerIndex int, secondsRemaining int)
	// OnCleared announces a cancelled timer.
	OnCleared func(code string, playerIndex int)
	// OnFire runs the fired-handler. It must acquire the room lock and
	// then call Confirm with the generation before mutating anything.
	OnFire func(code string, generation uint64, playerIndex int, playerID string)

	mu     sync.Mutex
	timers map[string]*roomTimer
}

// TurnTimerConfig holds construction parameters for a TurnTimer.
type TurnTimerConfig struct {
	Log     slog.Logger
	Timeout time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

// NewTurnTimer creates a turn-timeout scheduler.
func NewTurnTimer(cfg TurnTimerConfig) *TurnTimer {
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTurnTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TurnTimer{
		log:     cfg.Log,
		timeout: cfg.Timeout,
		now:     cfg.Now,
		timers:  make(map[string]*roomTimer),
	}
}

// Arm transitions the room's timer Idle -> Armed for the given seat. An
// existing armed timer for the same seat is left alone; for another seat it
// is replaced.
func (tt *TurnTimer) Arm(code string, playerIndex int, playerID string) {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	if t, ok := tt.timers[code]; ok {
		if t.machine.In(timerArmed) && t.playerIndex == playerIndex {
			return
		}
		tt.cancelLocked(t, false)
	}

	now := tt.now()
	t := &roomTimer{
		code:        code,
		playerIndex: playerIndex,
		playerID:    playerID,
		startedAt:   now,
		fireAt:      now.Add(tt.timeout),
		stop:        make(chan struct{}),
	}
	if prev, ok := tt.timers[code]; ok {
		t.generation = prev.generation + 1
	}
	t.machine = statemachine.New(t, timerArmed)
	tt.timers[code] = t

	gen := t.generation
	t.expiry = time.AfterFunc(tt.timeout, func() { tt.expire(code, gen) })
	go tt.countdown(t, gen)
	tt.log.Debugf("armed timer for room %s seat %d (gen %d)", code, playerIndex, gen)
}

// countdown ticks once per second until the timer is stopped.
func (tt *TurnTimer) countdown(t *roomTimer, gen uint64) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			tt.mu.Lock()
			cur, ok := tt.timers[t.code]
			live := ok && cur.generation == gen && cur.machine.In(timerArmed)
			remaining := 0
			if live {
				remaining = int(cur.fireAt.Sub(tt.now()).Round(time.Second) / time.Second)
			}
			tt.mu.Unlock()
			if !live {
				return
			}
			if remaining > 0 && tt.OnWarning != nil {
				tt.OnWarning(t.code, t.playerIndex, remaining)
			}
		}
	}
}

// expire moves Armed -> Fired and dispatches the fired-handler. A stale
// generation means the timer was cancelled first.
func (tt *TurnTimer) expire(code string, gen uint64) {
	tt.mu.Lock()
	t, ok := tt.timers[code]
	if !ok || t.generation != gen || !t.machine.In(timerArmed) {
		tt.mu.Unlock()
		return
	}
	t.machine.Set(timerFired)
	playerIndex, playerID := t.playerIndex, t.playerID
	tt.mu.Unlock()

	if tt.OnFire != nil {
		tt.OnFire(code, gen, playerIndex, playerID)
	}
}

// Confirm atomically validates a dispatched fire against cancellation.
// Callers invoke it after acquiring the room lock; false means a
// cancellation won the race and the fire must have no side effects.
func (tt *TurnTimer) Confirm(code string, gen uint64) bool {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	t, ok := tt.timers[code]
	if !ok || t.generation != gen || !t.machine.In(timerFired) {
		return false
	}
	// Fired -> Idle; a re-arm decides what happens next.
	t.machine.Step(nil)
	return true
}

// Cancel transitions Armed -> Idle. Reconnects and manual actions are
// strong cancellations: a pending fire that has not yet Confirmed will
// find a bumped generation and abort.
func (tt *TurnTimer) Cancel(code string) {
	tt.mu.Lock()
	t, ok := tt.timers[code]
	if !ok || t.machine.In(timerIdle) {
		tt.mu.Unlock()
		return
	}
	// An Armed timer is simply cleared. A Fired one that has not yet
	// Confirmed is neutralized the same way: the generation bump makes
	// its Confirm fail.
	wasArmed := t.machine.In(timerArmed)
	tt.cancelLocked(t, true)
	playerIndex := t.playerIndex
	tt.mu.Unlock()

	if wasArmed && tt.OnCleared != nil {
		tt.OnCleared(code, playerIndex)
	}
}

// Drop discards all timer state for a room without emitting anything.
func (tt *TurnTimer) Drop(code string) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	if t, ok := tt.timers[code]; ok {
		tt.cancelLocked(t, false)
		delete(tt.timers, code)
	}
}

func (tt *TurnTimer) cancelLocked(t *roomTimer, toIdle bool) {
	t.generation++
	if t.expiry != nil {
		t.expiry.Stop()
	}
	select {
	case <-t.stop:
	default:
		close(t.stop)
	}
	if toIdle {
		t.machine.Set(timerIdle)
	}
}

// Armed reports whether the room has an armed timer and for which seat.
func (tt *TurnTimer) Armed(code string) (int, bool) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	t, ok := tt.timers[code]
	if !ok || !t.machine.In(timerArmed) {
		return 0, false
	}
	return t.playerIndex, true
}
