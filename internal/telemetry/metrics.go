package telemetry

import (
	"log"

	"swarm/server/internal/creature"
	"swarm/server/logging"
)

// Metric keys shared by the hub, the simulation loop and replication. They
// show up under "metrics" on /diagnostics.
const (
	MetricTicks            = "sim_ticks_total"
	MetricTickDuration     = "sim_tick_duration_us"
	MetricTickOverruns     = "sim_tick_overruns_total"
	MetricCommandsRejected = "sim_commands_rejected_total"
	MetricCommandsDropped  = "hub_commands_dropped_total"

	MetricPlayers   = "hub_players"
	MetricCreatures = "sim_creatures"
	MetricSmall     = "sim_creatures_small"
	MetricBig       = "sim_creatures_big"
	MetricFlyers    = "sim_creatures_flyer"
	MetricStarving  = "sim_creatures_starving"

	MetricResyncs = "replication_resyncs_total"
	MetricUpdates = "replication_updates_total"
	MetricFrames  = "replication_frames_total"
	MetricClients = "replication_clients"
)

// Logger is the printf-style sink server components report through.
type Logger interface {
	Printf(format string, args ...any)
}

// WrapLogger adapts a standard library logger. A nil logger discards.
func WrapLogger(logger *log.Logger) Logger {
	return stdLogger{logger: logger}
}

type stdLogger struct {
	logger *log.Logger
}

func (l stdLogger) Printf(format string, args ...any) {
	if l.logger != nil {
		l.logger.Printf(format, args...)
	}
}

// Metrics records counters and gauges by key.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

// WrapMetrics feeds the router's metric table. A nil table discards.
func WrapMetrics(metrics *logging.Metrics) Metrics {
	return routerMetrics{metrics: metrics}
}

type routerMetrics struct {
	metrics *logging.Metrics
}

func (m routerMetrics) Add(key string, delta uint64) {
	if m.metrics != nil {
		m.metrics.TelemetryAdd(key, delta)
	}
}

func (m routerMetrics) Store(key string, value uint64) {
	if m.metrics != nil {
		m.metrics.TelemetryStore(key, value)
	}
}

// RecordPopulation stores the live population gauges: the total, one gauge
// per kind and the number of creatures with an empty stomach.
func RecordPopulation(m Metrics, reg *creature.Registry) {
	if m == nil || reg == nil {
		return
	}
	var small, big, flyers, starving uint64
	reg.Each(func(c *creature.Creature) {
		switch c.Type {
		case creature.KindSmall:
			small++
		case creature.KindBig:
			big++
		case creature.KindFlyer:
			flyers++
		}
		if c.Food == 0 {
			starving++
		}
	})
	m.Store(MetricCreatures, uint64(reg.Count()))
	m.Store(MetricSmall, small)
	m.Store(MetricBig, big)
	m.Store(MetricFlyers, flyers)
	m.Store(MetricStarving, starving)
}
