package telemetry

import (
	"bytes"
	"log"
	"testing"

	"swarm/server/internal/creature"
	"swarm/server/logging"
)

func TestWrapLogger(t *testing.T) {
	WrapLogger(nil).Printf("dropped %d", 1)

	var buf bytes.Buffer
	WrapLogger(log.New(&buf, "", 0)).Printf("player %d joined", 7)
	if got := buf.String(); got != "player 7 joined\n" {
		t.Fatalf("unexpected log output: %q", got)
	}
}

func TestWrapMetricsCountsAndGauges(t *testing.T) {
	metrics := logging.NewMetrics()
	m := WrapMetrics(metrics)
	m.Add(MetricFrames, 2)
	m.Add(MetricFrames, 3)
	m.Store(MetricClients, 4)
	m.Store(MetricClients, 1)

	snapshot := metrics.Snapshot()
	if snapshot[MetricFrames] != 5 || snapshot[MetricClients] != 1 {
		t.Fatalf("unexpected snapshot %v", snapshot)
	}

	WrapMetrics(nil).Add(MetricFrames, 1)
	WrapMetrics(nil).Store(MetricClients, 1)
}

func TestRecordPopulation(t *testing.T) {
	reg := creature.NewRegistry(creature.Config{Rules: creature.DefaultRules()})
	reg.Spawn(1, 0, 0, creature.KindSmall, 0)
	reg.Spawn(1, 1, 0, creature.KindSmall, 0)
	big, _ := reg.Spawn(2, 2, 0, creature.KindBig, 0)
	big.Food = 500
	flyer, _ := reg.Spawn(2, 3, 0, creature.KindFlyer, 0)
	if err := reg.Kill(flyer, nil); err != nil {
		t.Fatalf("kill: %v", err)
	}

	metrics := logging.NewMetrics()
	RecordPopulation(WrapMetrics(metrics), reg)
	snapshot := metrics.Snapshot()
	want := map[string]uint64{
		MetricCreatures: 3,
		MetricSmall:     2,
		MetricBig:       1,
		MetricFlyers:    0,
		MetricStarving:  2,
	}
	for key, value := range want {
		if snapshot[key] != value {
			t.Fatalf("%s: got %d, want %d", key, snapshot[key], value)
		}
	}

	RecordPopulation(nil, reg)
}
