package creature

// PerKind holds one value per creature kind.
type PerKind [Types]int

// Matrix holds one value per (from, to) kind pair.
type Matrix [Types][Types]int

// Rules are the static tables every attribute is derived from. Rates are
// expressed per second of game time.
type Rules struct {
	MaxHealth   PerKind `yaml:"max_health"`
	MaxFood     PerKind `yaml:"max_food"`
	BaseSpeed   PerKind `yaml:"base_speed"`
	HealthSpeed PerKind `yaml:"health_speed"`
	HealRate    PerKind `yaml:"heal_rate"`
	EatRate     PerKind `yaml:"eat_rate"`
	// IdleFoodDecay is the food an idle creature burns per second.
	IdleFoodDecay PerKind `yaml:"idle_food_decay"`
	// Aging is the health a creature with no food loses per second.
	Aging PerKind `yaml:"aging"`

	// Strength is the damage per second [attacker][target] at full health.
	Strength       Matrix `yaml:"hitpoints"`
	AttackDistance Matrix `yaml:"attack_distance"`

	ConversionFood  Matrix  `yaml:"conversion_food"`
	ConversionSpeed PerKind `yaml:"conversion_speed"`

	SpawnFood   PerKind `yaml:"spawn_food"`
	SpawnSpeed  PerKind `yaml:"spawn_speed"`
	SpawnHealth PerKind `yaml:"spawn_health"`
	// SpawnType is the offspring kind, -1 when the kind cannot spawn.
	SpawnType PerKind `yaml:"spawn_type"`

	FeedDistance PerKind `yaml:"feed_distance"`
	FeedSpeed    PerKind `yaml:"feed_speed"`

	// ColorHealth and ColorSpeed scale MaxHealth and Speed in percent.
	ColorHealth [Colors]int `yaml:"color_health"`
	ColorSpeed  [Colors]int `yaml:"color_speed"`

	KillReward        int `yaml:"kill_reward"`
	KingPoints        int `yaml:"king_points"`
	KingIntervalTicks int `yaml:"king_interval_ticks"`
	// HillPoints is paid every step to the sole owner on the hill tile.
	HillPoints int `yaml:"hill_points"`
}

// DefaultRules returns the stock balance tables. Small creatures are allowed
// to fight each other at reduced strength so two starter swarms can clash.
func DefaultRules() Rules {
	r := Rules{
		MaxHealth:     PerKind{10000, 20000, 5000, 0},
		MaxFood:       PerKind{10000, 20000, 5000, 0},
		BaseSpeed:     PerKind{200, 400, 800, 0},
		HealthSpeed:   PerKind{625, 0, 0, 0},
		HealRate:      PerKind{500, 300, 600, 0},
		EatRate:       PerKind{800, 400, 600, 0},
		IdleFoodDecay: PerKind{5, 7, 5, 0},
		Aging:         PerKind{50, 70, 50, 0},
		Strength: Matrix{
			{500, 500, 1000, 0},
			{1500, 1500, 1500, 0},
			{0, 0, 0, 0},
			{0, 0, 0, 0},
		},
		AttackDistance: Matrix{
			{512, 512, 768, 0},
			{512, 512, 512, 0},
			{0, 0, 0, 0},
			{0, 0, 0, 0},
		},
		ConversionFood: Matrix{
			{0, 8000, 5000, 0},
			{8000, 0, 0, 0},
			{5000, 0, 0, 0},
			{0, 0, 0, 0},
		},
		ConversionSpeed:   PerKind{1000, 1000, 1000, 0},
		SpawnFood:         PerKind{0, 5000, 0, 0},
		SpawnSpeed:        PerKind{0, 2000, 0, 0},
		SpawnHealth:       PerKind{0, 4000, 0, 0},
		SpawnType:         PerKind{-1, 0, -1, -1},
		FeedDistance:      PerKind{256, 0, 256, 0},
		FeedSpeed:         PerKind{400, 0, 400, 0},
		KillReward:        10,
		KingPoints:        1,
		KingIntervalTicks: 10,
		HillPoints:        1,
	}
	for i := range r.ColorHealth {
		r.ColorHealth[i] = 100
		r.ColorSpeed[i] = 100
	}
	return r
}

func colorIndex(color int) int {
	return color & (Colors - 1)
}

func (r *Rules) perKind(table PerKind, k Kind) int {
	if k >= Types {
		return 0
	}
	return table[k]
}

func (r *Rules) pair(table Matrix, from, to Kind) int {
	if from >= Types || to >= Types {
		return 0
	}
	return table[from][to]
}

func (r *Rules) MaxHealthOf(k Kind, color int) int {
	return r.perKind(r.MaxHealth, k) * r.ColorHealth[colorIndex(color)] / 100
}

func (r *Rules) MaxFoodOf(k Kind, color int) int {
	return r.perKind(r.MaxFood, k)
}

// Speed is the walking speed in world units per second. Healthy creatures of
// kinds with a health bonus move faster.
func (r *Rules) Speed(c *Creature) int {
	speed := r.perKind(r.BaseSpeed, c.Type)
	if bonus := r.perKind(r.HealthSpeed, c.Type); bonus > 0 {
		if max := r.MaxHealthOf(c.Type, c.Color); max > 0 {
			speed += bonus * c.Health / max
		}
	}
	return speed * r.ColorSpeed[colorIndex(c.Color)] / 100
}

// Hitpoints is the damage per second c deals to a target of the given kind.
// Strength scales from half at zero health to full at max health and is
// halved again while the attacker is starving.
func (r *Rules) Hitpoints(c *Creature, target Kind) int {
	base := r.pair(r.Strength, c.Type, target)
	if base == 0 {
		return 0
	}
	max := r.MaxHealthOf(c.Type, c.Color)
	if max <= 0 {
		return 0
	}
	hp := base * (50 + 50*c.Health/max) / 100
	if c.Food == 0 {
		hp /= 2
	}
	return hp
}

// CanAttack reports whether attacker kinds deal any damage to target kinds.
func (r *Rules) CanAttack(attacker, target Kind) bool {
	return r.pair(r.Strength, attacker, target) > 0 && r.AttackRange(attacker, target) > 0
}

func (r *Rules) AttackRange(attacker, target Kind) int {
	return r.pair(r.AttackDistance, attacker, target)
}

func (r *Rules) HealRateOf(k Kind) int { return r.perKind(r.HealRate, k) }

func (r *Rules) EatRateOf(k Kind) int { return r.perKind(r.EatRate, k) }

func (r *Rules) FeedRangeOf(k Kind) int { return r.perKind(r.FeedDistance, k) }

func (r *Rules) FeedSpeedOf(k Kind) int { return r.perKind(r.FeedSpeed, k) }

func (r *Rules) ConversionCost(from, to Kind) int {
	return r.pair(r.ConversionFood, from, to)
}

// ConvertDuration is how long a conversion takes in milliseconds.
func (r *Rules) ConvertDuration(from, to Kind) int64 {
	cost := r.ConversionCost(from, to)
	speed := r.perKind(r.ConversionSpeed, from)
	if cost <= 0 || speed <= 0 {
		return 0
	}
	return int64(cost) * 1000 / int64(speed)
}

func (r *Rules) SpawnCost(k Kind) int { return r.perKind(r.SpawnFood, k) }

func (r *Rules) SpawnHealthCost(k Kind) int { return r.perKind(r.SpawnHealth, k) }

// Offspring reports the kind k produces, if any.
func (r *Rules) Offspring(k Kind) (Kind, bool) {
	if k >= Types {
		return 0, false
	}
	spawn := r.SpawnType[k]
	if spawn < 0 || spawn >= int(KindReserved) {
		return 0, false
	}
	return Kind(spawn), true
}

// SpawnDuration is how long producing offspring takes in milliseconds.
func (r *Rules) SpawnDuration(k Kind) int64 {
	cost := r.SpawnCost(k)
	speed := r.perKind(r.SpawnSpeed, k)
	if cost <= 0 || speed <= 0 {
		return 0
	}
	return int64(cost) * 1000 / int64(speed)
}

func (r *Rules) IdleDecay(k Kind) int { return r.perKind(r.IdleFoodDecay, k) }

func (r *Rules) AgingOf(k Kind) int { return r.perKind(r.Aging, k) }

// perTick scales a per-second rate down to one step of delta milliseconds.
func perTick(rate, delta int) int {
	return rate * delta / 1000
}
