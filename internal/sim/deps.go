package sim

import (
	"swarm/server/internal/telemetry"
	"swarm/server/logging"
)

// Deps carries shared infrastructure dependencies required by the simulation.
type Deps struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Clock     logging.Clock
	Publisher logging.Publisher
}
