package sim

import (
	"sync"
	"time"

	"swarm/server/internal/telemetry"
	"swarm/server/logging"
)

const (
	// CommandRejectQueueLimit indicates a command was dropped due to per-actor
	// queue throttling.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the global command buffer is saturated.
	CommandRejectQueueFull = "queue_full"
)

// LoopConfig tunes the command buffer and tick loop orchestration.
type LoopConfig struct {
	TickRate        int
	CatchupMaxTicks int
	CommandCapacity int
	PerActorLimit   int
	WarningStep     int
}

// LoopTickContext describes the tick about to run.
type LoopTickContext struct {
	Tick    uint64
	Now     time.Time
	Delta   time.Duration
	Clamped bool
}

// LoopStepResult summarises one executed tick.
type LoopStepResult struct {
	Tick         uint64
	Now          time.Time
	Delta        time.Duration
	Commands     []Command
	Outcomes     []Outcome
	Duration     time.Duration
	Budget       time.Duration
	ClampedDelta bool
}

// LoopHooks are the callbacks the loop fans out to. Prepare and AfterStep run
// while Lock is held, so whatever AfterStep replicates is a whole tick.
type LoopHooks struct {
	Lock           sync.Locker
	Prepare        func(LoopTickContext)
	AfterStep      func(LoopStepResult)
	OnCommandDrop  func(reason string, cmd Command)
	OnQueueWarning func(length int)
}

// Loop coordinates command ingestion and the fixed-timestep simulation runner.
type Loop struct {
	engine  Engine
	buffer  *CommandBuffer
	hooks   LoopHooks
	config  LoopConfig
	logger  telemetry.Logger
	metrics telemetry.Metrics
	clock   logging.Clock

	tick          uint64
	queueMu       sync.Mutex
	perActorCount map[int]int
	dropCounts    map[int]uint64
}

func NewLoop(engine Engine, deps Deps, cfg LoopConfig, hooks LoopHooks) *Loop {
	if engine == nil {
		return nil
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = 10
	}
	clock := deps.Clock
	if clock == nil {
		clock = logging.SystemClock{}
	}
	return &Loop{
		engine:        engine,
		buffer:        NewCommandBuffer(cfg.CommandCapacity, deps.Metrics),
		hooks:         hooks,
		config:        cfg,
		logger:        deps.Logger,
		metrics:       deps.Metrics,
		clock:         clock,
		perActorCount: make(map[int]int),
		dropCounts:    make(map[int]uint64),
	}
}

// TickInterval is the wall time between two ticks.
func (l *Loop) TickInterval() time.Duration {
	return time.Second / time.Duration(l.config.TickRate)
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	if l == nil {
		return 0
	}
	return l.buffer.Len()
}

// Enqueue stages a command, enforcing per-actor throttling and capacity limits.
func (l *Loop) Enqueue(cmd Command) (bool, string) {
	if l == nil {
		return false, CommandRejectQueueFull
	}
	reason := ""
	var dropCount uint64
	l.queueMu.Lock()
	if l.config.PerActorLimit > 0 {
		count := l.perActorCount[cmd.ActorID]
		if count >= l.config.PerActorLimit {
			reason = CommandRejectQueueLimit
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else {
			l.perActorCount[cmd.ActorID] = count + 1
		}
	}
	if reason == "" {
		if !l.buffer.Push(cmd) {
			reason = CommandRejectQueueFull
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else if l.config.WarningStep > 0 {
			length := l.buffer.Len()
			if length >= l.config.WarningStep && length%l.config.WarningStep == 0 {
				l.queueMu.Unlock()
				l.warnQueue(length)
				return true, ""
			}
		}
	}
	l.queueMu.Unlock()
	if reason != "" {
		l.reportDrop(reason, cmd, dropCount)
		return false, reason
	}
	return true, ""
}

// Advance executes a single simulation step using the staged commands.
func (l *Loop) Advance(ctx LoopTickContext) LoopStepResult {
	if l == nil {
		return LoopStepResult{}
	}
	if l.hooks.Lock != nil {
		l.hooks.Lock.Lock()
		defer l.hooks.Lock.Unlock()
	}
	start := l.clock.Now()
	commands := l.drainCommands()
	if l.hooks.Prepare != nil {
		l.hooks.Prepare(ctx)
	}
	outcomes := l.engine.Apply(commands)
	l.engine.Step(ctx.Delta)
	result := LoopStepResult{
		Tick:     ctx.Tick,
		Now:      ctx.Now,
		Delta:    ctx.Delta,
		Commands: commands,
		Outcomes: outcomes,
		Budget:   l.TickInterval(),

		ClampedDelta: ctx.Clamped,
	}
	result.Duration = l.clock.Now().Sub(start)
	if l.metrics != nil {
		l.metrics.Add(telemetry.MetricTicks, 1)
		l.metrics.Store(telemetry.MetricTickDuration, uint64(result.Duration.Microseconds()))
	}
	if l.hooks.AfterStep != nil {
		l.hooks.AfterStep(result)
	}
	return result
}

// Run drives the fixed-timestep loop until the stop channel closes. A late
// tick is stretched to at most CatchupMaxTicks worth of game time.
func (l *Loop) Run(stop <-chan struct{}) {
	if l == nil {
		return
	}
	interval := l.TickInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	maxDelta := interval
	if l.config.CatchupMaxTicks > 1 {
		maxDelta = interval * time.Duration(l.config.CatchupMaxTicks)
	}
	last := l.clock.Now()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			now := l.clock.Now()
			delta := now.Sub(last)
			clamped := false
			if delta <= 0 {
				delta = interval
			} else if delta > maxDelta {
				delta = maxDelta
				clamped = true
			}
			last = now
			l.tick++
			result := l.Advance(LoopTickContext{Tick: l.tick, Now: now, Delta: delta, Clamped: clamped})
			if result.ClampedDelta && l.logger != nil {
				l.logger.Printf("[sim] tick %d delta clamped to %s", result.Tick, maxDelta)
			}
		}
	}
}

func (l *Loop) drainCommands() []Command {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	commands := l.buffer.Drain()
	if len(l.perActorCount) > 0 {
		l.perActorCount = make(map[int]int)
	}
	return commands
}

func (l *Loop) incrementDropLocked(actorID int) uint64 {
	count := l.dropCounts[actorID] + 1
	l.dropCounts[actorID] = count
	return count
}

func (l *Loop) warnQueue(length int) {
	if l.hooks.OnQueueWarning != nil {
		l.hooks.OnQueueWarning(length)
	}
}

func (l *Loop) reportDrop(reason string, cmd Command, count uint64) {
	if l.hooks.OnCommandDrop != nil {
		l.hooks.OnCommandDrop(reason, cmd)
	}
	if count > 0 && count&(count-1) == 0 && l.logger != nil {
		l.logger.Printf(
			"[backpressure] dropping command actor=%d type=%s count=%d limit=%d reason=%s",
			cmd.ActorID, cmd.Type, count, l.config.PerActorLimit, reason,
		)
	}
}

var _ Engine = (*Simulation)(nil)
