package telemetry

import (
	"context"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"

	"swarm/server/internal/creature"
	"swarm/server/logging"
	"swarm/server/logging/combat"
	"swarm/server/logging/lifecycle"
)

// WindowStats aggregates one reporting window of the match.
type WindowStats struct {
	WindowStart uint64  `csv:"-"`
	WindowEnd   uint64  `csv:"window_end"`
	GameTimeSec float64 `csv:"game_time"`

	Creatures int `csv:"creatures"`
	Small     int `csv:"small"`
	Big       int `csv:"big"`
	Flyers    int `csv:"flyers"`
	Players   int `csv:"players"`

	Births int `csv:"births"`
	Deaths int `csv:"deaths"`
	Kills  int `csv:"kills"`
	Starve int `csv:"starved"`
	Left   int `csv:"left"`
	Damage int `csv:"damage"`

	HealthMean float64 `csv:"health_mean"`
	HealthStd  float64 `csv:"health_std"`
	FoodMean   float64 `csv:"food_mean"`
	FoodStd    float64 `csv:"food_std"`
	FoodP10    float64 `csv:"food_p10"`
	FoodP50    float64 `csv:"food_p50"`
	FoodP90    float64 `csv:"food_p90"`

	TileFood int `csv:"tile_food"`
}

// Collector counts lifecycle and combat events between windows. It is a
// logging sink so it sees the same stream as every other sink.
type Collector struct {
	mu          sync.Mutex
	windowStart uint64
	births      int
	deaths      int
	kills       int
	starved     int
	left        int
	damage      int

	health []float64
	food   []float64
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Write(event logging.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch event.Type {
	case lifecycle.EventCreatureSpawned:
		c.births++
	case lifecycle.EventCreatureKilled:
		c.deaths++
		if payload, ok := event.Payload.(lifecycle.CreatureKilledPayload); ok {
			switch payload.Reason {
			case "killed":
				c.kills++
			case "starved":
				c.starved++
			case "left":
				c.left++
			}
		}
	case combat.EventDamage:
		if payload, ok := event.Payload.(combat.DamagePayload); ok {
			c.damage += payload.Amount
		}
	}
	return nil
}

func (c *Collector) Close(context.Context) error { return nil }

// Window samples the registry, folds in the counted events and starts a new
// window at tick.
func (c *Collector) Window(reg *creature.Registry, players, tileFood int) WindowStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := WindowStats{
		WindowStart: c.windowStart,
		WindowEnd:   reg.Tick(),
		GameTimeSec: float64(reg.Now()) / 1000,
		Players:     players,
		Births:      c.births,
		Deaths:      c.deaths,
		Kills:       c.kills,
		Starve:      c.starved,
		Left:        c.left,
		Damage:      c.damage,
		TileFood:    tileFood,
	}
	c.health = c.health[:0]
	c.food = c.food[:0]
	reg.Each(func(cr *creature.Creature) {
		stats.Creatures++
		switch cr.Type {
		case creature.KindSmall:
			stats.Small++
		case creature.KindBig:
			stats.Big++
		case creature.KindFlyer:
			stats.Flyers++
		}
		c.health = append(c.health, float64(cr.Health))
		c.food = append(c.food, float64(cr.Food))
	})
	if len(c.health) > 0 {
		stats.HealthMean, stats.HealthStd = meanStd(c.health)
		stats.FoodMean, stats.FoodStd = meanStd(c.food)
		sort.Float64s(c.food)
		stats.FoodP10 = stat.Quantile(0.1, stat.Empirical, c.food, nil)
		stats.FoodP50 = stat.Quantile(0.5, stat.Empirical, c.food, nil)
		stats.FoodP90 = stat.Quantile(0.9, stat.Empirical, c.food, nil)
	}
	c.windowStart = stats.WindowEnd
	c.births, c.deaths, c.kills, c.starved, c.left, c.damage = 0, 0, 0, 0, 0, 0
	return stats
}

func meanStd(values []float64) (float64, float64) {
	if len(values) < 2 {
		return stat.Mean(values, nil), 0
	}
	return stat.MeanStdDev(values, nil)
}
