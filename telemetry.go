package server

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"swarm/server/internal/telemetry"
)

type telemetryCounters struct {
	bytesSent          atomic.Uint64
	framesSent         atomic.Uint64
	tickDurationMillis atomic.Int64
	lastFrameBytes     atomic.Uint64
	debug              bool
}

type telemetrySnapshot struct {
	BytesSent    uint64 `json:"bytesSent"`
	FramesSent   uint64 `json:"framesSent"`
	TickDuration int64  `json:"tickDurationMillis"`
}

func newTelemetryCounters() *telemetryCounters {
	t := &telemetryCounters{}
	if os.Getenv("DEBUG_TELEMETRY") == "1" {
		t.debug = true
	}
	return t
}

func (t *telemetryCounters) RecordBroadcast(bytes int) {
	if bytes < 0 {
		bytes = 0
	}
	t.bytesSent.Add(uint64(bytes))
	t.framesSent.Add(1)
	t.lastFrameBytes.Store(uint64(bytes))
}

func (t *telemetryCounters) RecordTickDuration(duration time.Duration) {
	millis := duration.Milliseconds()
	if millis < 0 {
		millis = 0
	}
	t.tickDurationMillis.Store(millis)
	if t.debug {
		fmt.Printf(
			"[telemetry] tick=%dms lastFrame=%d totalBytes=%d frames=%d\n",
			millis,
			t.lastFrameBytes.Load(),
			t.bytesSent.Load(),
			t.framesSent.Load(),
		)
	}
}

func (t *telemetryCounters) Snapshot() telemetrySnapshot {
	return telemetrySnapshot{
		BytesSent:    t.bytesSent.Load(),
		FramesSent:   t.framesSent.Load(),
		TickDuration: t.tickDurationMillis.Load(),
	}
}

// TelemetrySnapshot is the aggregate view served on /diagnostics.
type TelemetrySnapshot struct {
	Tick            uint64                 `json:"tick"`
	Creatures       int                    `json:"creatures"`
	Players         int                    `json:"players"`
	Clients         int                    `json:"clients"`
	PendingCommands int                    `json:"pendingCommands"`
	TickOverruns    uint64                 `json:"tickOverruns"`
	Traffic         telemetrySnapshot      `json:"traffic"`
	Window          *telemetry.WindowStats `json:"window,omitempty"`
	Metrics         map[string]uint64      `json:"metrics"`
}

// DiagnosticsPlayer summarises one connected player.
type DiagnosticsPlayer struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Score         int    `json:"score"`
	Creatures     int    `json:"creatures"`
	Connected     bool   `json:"connected"`
	LastHeartbeat int64  `json:"lastHeartbeat"`
	RTTMillis     int64  `json:"rtt"`
}

// RecordBroadcast accounts one frame written to a connection.
func (h *Hub) RecordBroadcast(bytes int) {
	h.traffic.RecordBroadcast(bytes)
}

func (h *Hub) DiagnosticsSnapshot() []DiagnosticsPlayer {
	h.mu.Lock()
	defer h.mu.Unlock()
	players := h.roster.List()
	out := make([]DiagnosticsPlayer, 0, len(players))
	for _, p := range players {
		_, connected := h.subscribers[p.ID]
		out = append(out, DiagnosticsPlayer{
			ID:            p.ID,
			Name:          p.Name,
			Score:         p.Score,
			Creatures:     h.reg.CountOwned(p.ID),
			Connected:     connected,
			LastHeartbeat: p.LastHeartbeat.UnixMilli(),
			RTTMillis:     p.LastRTT.Milliseconds(),
		})
	}
	return out
}

func (h *Hub) TelemetrySnapshot() TelemetrySnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	snap := TelemetrySnapshot{
		Tick:            h.reg.Tick(),
		Creatures:       h.reg.Count(),
		Players:         h.roster.Len(),
		Clients:         h.rep.Clients(),
		PendingCommands: h.loop.Pending(),
		TickOverruns:    h.overruns,
		Traffic:         h.traffic.Snapshot(),
		Metrics:         h.metrics.Snapshot(),
	}
	if h.lastWindow != nil {
		window := *h.lastWindow
		snap.Window = &window
	}
	return snap
}
