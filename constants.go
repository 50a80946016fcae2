package server

import (
	"time"

	"swarm/server/internal/net/intake"
)

const (
	writeWait         = 10 * time.Second
	tickRate          = 10 // ticks per second
	heartbeatInterval = 2 * time.Second
	disconnectAfter   = 3 * heartbeatInterval
	// telemetryWindowTicks is the default length of one population window.
	telemetryWindowTicks = 100
	commandCapacity      = 1024
	perPlayerCommands    = 32
	catchupMaxTicks      = 3
)

// Reject reasons produced before a command reaches the simulation.
const (
	CommandRejectUnknownActor  = intake.RejectUnknownActor
	CommandRejectInvalidAction = intake.RejectInvalidAction
)

// WriteWait bounds a single websocket write.
func WriteWait() time.Duration { return writeWait }
