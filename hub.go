package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"swarm/server/internal/creature"
	"swarm/server/internal/net/intake"
	"swarm/server/internal/net/proto"
	"swarm/server/internal/path"
	"swarm/server/internal/player"
	"swarm/server/internal/replication"
	"swarm/server/internal/sim"
	"swarm/server/internal/telemetry"
	"swarm/server/internal/terrain"
	"swarm/server/logging"
	"swarm/server/logging/lifecycle"
	"swarm/server/logging/network"
	"swarm/server/logging/simulation"
)

// ErrNoSpawnTile is returned when the map has no walkable tile left.
var ErrNoSpawnTile = errors.New("no walkable spawn tile")

// HubConfig captures the tunables of one match.
type HubConfig struct {
	Seed    string
	Terrain terrain.Params
	Rules   creature.Rules
	// StarterKinds are spawned on one random tile for every joining player.
	StarterKinds      []creature.Kind
	TickRate          int
	HeartbeatTimeout  time.Duration
	TelemetryWindow   int
	CommandCapacity   int
	PerPlayerCommands int

	Logger  telemetry.Logger
	Metrics *logging.Metrics
	Clock   logging.Clock
	// Telemetry receives one CSV row per population window when set.
	Telemetry io.Writer
}

func DefaultHubConfig() HubConfig {
	return HubConfig{
		Seed:              "swarm",
		Terrain:           terrain.DefaultParams(),
		Rules:             creature.DefaultRules(),
		StarterKinds:      []creature.Kind{creature.KindSmall, creature.KindSmall},
		TickRate:          tickRate,
		HeartbeatTimeout:  disconnectAfter,
		TelemetryWindow:   telemetryWindowTicks,
		CommandCapacity:   commandCapacity,
		PerPlayerCommands: perPlayerCommands,
	}
}

// Session is the transport side of one subscribed connection. Close must
// not block on the hub.
type Session interface {
	replication.Sink
	SendMessage(v any) error
	Close() error
}

// describer is implemented by sessions that can name their peer and codec.
type describer interface {
	Describe() (remote, codec string)
}

type subscriber struct {
	session Session
	client  *replication.Client
}

// Hub owns the match: map, roster, creature registry, the tick loop and
// every subscribed connection. A single mutex serialises all of it.
type Hub struct {
	mu        sync.Mutex
	cfg       HubConfig
	logger    telemetry.Logger
	metrics   *logging.Metrics
	publisher logging.Publisher
	clock     logging.Clock

	world       *terrain.Map
	roster      *player.Roster
	reg         *creature.Registry
	sim         *sim.Simulation
	loop        *sim.Loop
	rep         *replication.Replicator
	subscribers map[int]*subscriber
	rng         *rand.Rand

	traffic    *telemetryCounters
	collector  *telemetry.Collector
	csv        *telemetry.CSVWriter
	lastWindow *telemetry.WindowStats
	overruns   uint64
	streak     uint64
}

// NewHubWithConfig builds a match. The first publisher, when given, receives
// every structured event.
func NewHubWithConfig(cfg HubConfig, pubs ...logging.Publisher) *Hub {
	defaults := DefaultHubConfig()
	if cfg.TickRate <= 0 {
		cfg.TickRate = defaults.TickRate
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = defaults.HeartbeatTimeout
	}
	if cfg.Terrain.Width == 0 || cfg.Terrain.Height == 0 {
		cfg.Terrain = defaults.Terrain
	}

	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = logging.NewMetrics()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = logging.SystemClock{}
	}

	base := logging.NopPublisher()
	if len(pubs) > 0 && pubs[0] != nil {
		base = pubs[0]
	}
	collector := telemetry.NewCollector()
	publisher := logging.PublisherFunc(func(ctx context.Context, event logging.Event) {
		_ = collector.Write(event)
		base.Publish(ctx, event)
	})

	h := &Hub{
		cfg:         cfg,
		logger:      logger,
		metrics:     metrics,
		publisher:   publisher,
		clock:       clock,
		roster:      player.NewRoster(),
		subscribers: make(map[int]*subscriber),
		rng:         terrain.NewRNG(cfg.Seed, "players"),
		traffic:     newTelemetryCounters(),
		collector:   collector,
	}
	h.world = terrain.Generate(cfg.Terrain, cfg.Seed)
	h.reg = creature.NewRegistry(creature.Config{
		Rules:     cfg.Rules,
		Terrain:   h.world,
		Pather:    path.NewFinder(h.world),
		Players:   h.roster,
		Publisher: publisher,
	})

	tm := telemetry.WrapMetrics(metrics)
	deps := sim.Deps{Logger: logger, Metrics: tm, Clock: clock, Publisher: publisher}
	h.sim = sim.NewSimulation(h.reg, h.world, deps)
	h.rep = replication.New(replication.Config{
		Registry:   h.reg,
		Scoreboard: h.scoreboardLocked,
		Metrics:    tm,
		Publisher:  publisher,
		OnDrop:     h.handleDropLocked,
	})
	h.loop = sim.NewLoop(h.sim, deps, sim.LoopConfig{
		TickRate:        cfg.TickRate,
		CatchupMaxTicks: catchupMaxTicks,
		CommandCapacity: cfg.CommandCapacity,
		PerActorLimit:   cfg.PerPlayerCommands,
		WarningStep:     cfg.CommandCapacity / 4,
	}, sim.LoopHooks{
		Lock:      &h.mu,
		AfterStep: h.afterStepLocked,
		OnCommandDrop: func(reason string, cmd sim.Command) {
			metrics.TelemetryAdd(telemetry.MetricCommandsDropped, 1)
		},
		OnQueueWarning: func(length int) {
			logger.Printf("[hub] command queue at %d", length)
		},
	})
	if cfg.Telemetry != nil {
		h.csv = telemetry.NewCSVWriter(cfg.Telemetry)
	}
	return h
}

// NewHub builds a match with the default configuration.
func NewHub(pubs ...logging.Publisher) *Hub {
	return NewHubWithConfig(DefaultHubConfig(), pubs...)
}

// Join registers a player and drops their starter creatures on a random
// walkable tile.
func (h *Hub) Join(name string) (proto.JoinResponse, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.clock.Now()
	p, err := h.roster.Join(name, now)
	if err != nil {
		return proto.JoinResponse{}, err
	}
	x, y, ok := h.world.RandomPlain(h.rng)
	if !ok {
		h.roster.Leave(p.ID)
		return proto.JoinResponse{}, ErrNoSpawnTile
	}
	for _, kind := range h.cfg.StarterKinds {
		if _, err := h.reg.Spawn(p.ID, x, y, kind, 0); err != nil {
			h.logger.Printf("[hub] starter spawn for player %d failed: %v", p.ID, err)
			break
		}
	}
	lifecycle.PlayerJoined(context.Background(), h.publisher, h.reg.Tick(), playerRef(p.ID),
		lifecycle.PlayerJoinedPayload{Name: p.Name, Color: p.Color}, nil)
	h.metrics.TelemetryStore(telemetry.MetricPlayers, uint64(h.roster.Len()))

	return proto.JoinResponse{
		Ver:      proto.Version,
		ID:       p.ID,
		Color:    p.Color,
		World:    h.worldInfoLocked(),
		Players:  h.scoreboardLocked(),
		TickRate: h.cfg.TickRate,
	}, nil
}

// Subscribe attaches a connection to an existing player and sends it the
// initial snapshot. A previous connection of the same player is closed.
func (h *Hub) Subscribe(playerID int, session Session) (*replication.Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.roster.Get(playerID)
	if !ok {
		return nil, player.ErrUnknown
	}
	p.LastHeartbeat = h.clock.Now()

	if existing, ok := h.subscribers[playerID]; ok {
		h.rep.Detach(existing.client)
		existing.session.Close()
	}
	client := h.rep.Attach(playerID, session)
	h.subscribers[playerID] = &subscriber{session: session, client: client}
	payload := network.ClientConnectedPayload{}
	if d, ok := session.(describer); ok {
		payload.Remote, payload.Codec = d.Describe()
	}
	network.ClientConnected(context.Background(), h.publisher, h.reg.Tick(), playerRef(playerID),
		payload, map[string]any{"client": client.ID()})

	if err := h.rep.SendInitialUpdate(client); err != nil {
		h.rep.Detach(client)
		delete(h.subscribers, playerID)
		return nil, fmt.Errorf("initial update for player %d: %w", playerID, err)
	}
	return client, nil
}

// Disconnect removes the player behind session. It is a no-op when the
// session is no longer current: replaced by a newer connection or dropped
// for a failing sink. A dropped player stays until it reconnects or its
// heartbeat times out.
func (h *Hub) Disconnect(playerID int, session Session, reason string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub, ok := h.subscribers[playerID]
	if !ok || sub.session != session {
		return false
	}
	return h.removePlayerLocked(playerID, reason)
}

// Leave removes a player whether or not it is connected.
func (h *Hub) Leave(playerID int, reason string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.removePlayerLocked(playerID, reason)
}

func (h *Hub) removePlayerLocked(playerID int, reason string) bool {
	if sub, ok := h.subscribers[playerID]; ok {
		delete(h.subscribers, playerID)
		h.rep.Detach(sub.client)
		sub.session.Close()
	}
	p, ok := h.roster.Leave(playerID)
	if !ok {
		return false
	}
	killed := h.reg.KillAllPlayersCreatures(playerID)
	lifecycle.PlayerLeft(context.Background(), h.publisher, h.reg.Tick(), playerRef(p.ID),
		lifecycle.PlayerLeftPayload{Reason: reason, Creatures: killed}, nil)
	h.metrics.TelemetryStore(telemetry.MetricPlayers, uint64(h.roster.Len()))
	return true
}

// Enqueue validates and stages a client command for the next tick.
func (h *Hub) Enqueue(playerID int, msg proto.ClientMessage) (sim.Command, bool, string) {
	return intake.StageClientCommand(intake.CommandContext{
		Enqueue:   h.loop.Enqueue,
		HasPlayer: h.hasPlayer,
		Tick:      h.currentTick,
		Now:       h.clock.Now,
	}, playerID, msg)
}

func (h *Hub) hasPlayer(playerID int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.roster.Get(playerID)
	return ok
}

func (h *Hub) currentTick() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reg.Tick()
}

// Heartbeat records liveness for a player and returns the measured RTT.
func (h *Hub) Heartbeat(playerID int, receivedAt time.Time, clientSent int64) (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rtt, err := h.roster.Heartbeat(playerID, receivedAt, clientSent)
	return rtt, err == nil
}

// Resync re-sends the full snapshot to the player's connection.
func (h *Hub) Resync(playerID int, reason string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub, ok := h.subscribers[playerID]
	if !ok {
		return replication.ErrUnknownClient
	}
	return h.rep.Resync(sub.client, reason)
}

// RunSimulation drives the tick loop until stop closes.
func (h *Hub) RunSimulation(stop <-chan struct{}) {
	h.loop.Run(stop)
}

// Advance runs one tick synchronously.
func (h *Hub) Advance(delta time.Duration) sim.LoopStepResult {
	return h.loop.Advance(sim.LoopTickContext{Now: h.clock.Now(), Delta: delta})
}

// TickInterval is the wall time between two ticks.
func (h *Hub) TickInterval() time.Duration { return h.loop.TickInterval() }

// HeartbeatInterval is the ping period clients should keep; a player silent
// for three intervals is removed.
func (h *Hub) HeartbeatInterval() time.Duration { return h.cfg.HeartbeatTimeout / 3 }

func (h *Hub) afterStepLocked(result sim.LoopStepResult) {
	tick := h.reg.Tick()
	for _, outcome := range result.Outcomes {
		if !outcome.Rejected() || outcome.Command.Seq == 0 {
			continue
		}
		sub, ok := h.subscribers[outcome.Command.ActorID]
		if !ok {
			continue
		}
		reject := proto.NewCommandReject(outcome.Command.Seq, sim.RejectReason(outcome.Err), false, tick)
		if err := sub.session.SendMessage(reject); err != nil {
			h.logger.Printf("[hub] reject for player %d not delivered: %v", outcome.Command.ActorID, err)
		}
	}

	h.rep.Flush()

	for _, id := range h.roster.Stale(result.Now, h.cfg.HeartbeatTimeout) {
		h.logger.Printf("[hub] player %d timed out", id)
		h.removePlayerLocked(id, "timeout")
	}

	h.traffic.RecordTickDuration(result.Duration)
	h.trackBudgetLocked(result, tick)

	if h.cfg.TelemetryWindow > 0 && tick%uint64(h.cfg.TelemetryWindow) == 0 {
		stats := h.collector.Window(h.reg, h.roster.Len(), h.world.TotalFood())
		h.lastWindow = &stats
		if h.csv != nil {
			if err := h.csv.WriteWindow(stats); err != nil {
				h.logger.Printf("[telemetry] window write failed: %v", err)
			}
		}
	}
	telemetry.RecordPopulation(telemetry.WrapMetrics(h.metrics), h.reg)
}

func (h *Hub) trackBudgetLocked(result sim.LoopStepResult, tick uint64) {
	if result.Budget <= 0 || result.Duration <= result.Budget {
		h.streak = 0
		return
	}
	h.streak++
	h.overruns++
	h.metrics.TelemetryAdd(telemetry.MetricTickOverruns, 1)
	simulation.TickBudgetOverrun(context.Background(), h.publisher, tick, simulation.TickBudgetOverrunPayload{
		DurationMillis: result.Duration.Milliseconds(),
		BudgetMillis:   result.Budget.Milliseconds(),
		Ratio:          float64(result.Duration) / float64(result.Budget),
		Streak:         h.streak,
	}, nil)
}

// handleDropLocked runs inside Flush when a client's sink failed.
func (h *Hub) handleDropLocked(client *replication.Client, err error) {
	sub, ok := h.subscribers[client.PlayerID()]
	if !ok || sub.client != client {
		return
	}
	delete(h.subscribers, client.PlayerID())
	sub.session.Close()
	h.logger.Printf("[hub] dropped connection of player %d: %v", client.PlayerID(), err)
}

func (h *Hub) scoreboardLocked() []proto.PlayerInfo {
	players := h.roster.List()
	out := make([]proto.PlayerInfo, 0, len(players))
	for _, p := range players {
		out = append(out, proto.PlayerInfo{ID: p.ID, Name: p.Name, Color: p.Color, Score: p.Score})
	}
	return out
}

func (h *Hub) worldInfoLocked() proto.WorldInfo {
	w, ht := h.world.Size()
	tiles := h.world.Tiles()
	info := proto.WorldInfo{Width: w, Height: ht, Rows: make([]string, 0, ht), Food: make([]int, len(tiles))}
	var row strings.Builder
	for y := 0; y < ht; y++ {
		row.Reset()
		for x := 0; x < w; x++ {
			t := tiles[y*w+x]
			if t.Kind == terrain.TileSolid {
				row.WriteByte('#')
			} else {
				row.WriteByte('.')
			}
			info.Food[y*w+x] = t.Food
		}
		info.Rows = append(info.Rows, row.String())
	}
	info.KothX, info.KothY = h.world.Koth()
	return info
}

// View runs fn with the hub locked so it can read a consistent tick.
func (h *Hub) View(fn func(reg *creature.Registry, world *terrain.Map, players []player.Player)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(h.reg, h.world, h.roster.List())
}

// Close stops accepting work and flushes telemetry output.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subscribers {
		h.rep.Detach(sub.client)
		sub.session.Close()
		delete(h.subscribers, id)
	}
	h.reg.Shutdown()
	if h.csv != nil {
		return h.csv.Close()
	}
	return nil
}

func playerRef(id int) logging.EntityRef {
	return logging.EntityRef{ID: strconv.Itoa(id), Kind: logging.EntityKindPlayer}
}
