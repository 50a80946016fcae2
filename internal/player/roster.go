package player

import (
	"errors"
	"sort"
	"strings"
	"time"
)

const (
	// MaxPlayers matches the number of creature colors so every player gets a
	// distinct one.
	MaxPlayers = 16
	MaxNameLen = 16
)

var (
	ErrFull        = errors.New("player roster full")
	ErrUnknown     = errors.New("unknown player")
	ErrInvalidName = errors.New("invalid player name")
)

type Player struct {
	ID            int           `json:"id"`
	Name          string        `json:"name"`
	Color         int           `json:"color"`
	Score         int           `json:"score"`
	JoinedAt      time.Time     `json:"joinedAt"`
	LastHeartbeat time.Time     `json:"-"`
	LastRTT       time.Duration `json:"-"`
}

// Roster tracks the players of one match. It is not safe for concurrent use;
// the hub serialises access.
type Roster struct {
	players map[int]*Player
}

func NewRoster() *Roster {
	return &Roster{players: make(map[int]*Player)}
}

// Join adds a player under the lowest free id (ids start at 1) with the
// lowest color nobody else uses.
func (r *Roster) Join(name string, now time.Time) (*Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if len(name) > MaxNameLen {
		name = name[:MaxNameLen]
	}
	if len(r.players) >= MaxPlayers {
		return nil, ErrFull
	}
	id := 1
	for r.players[id] != nil {
		id++
	}
	used := make(map[int]bool, len(r.players))
	for _, p := range r.players {
		used[p.Color] = true
	}
	color := 0
	for used[color] {
		color++
	}
	p := &Player{ID: id, Name: name, Color: color, JoinedAt: now, LastHeartbeat: now}
	r.players[id] = p
	return p, nil
}

func (r *Roster) Leave(id int) (*Player, bool) {
	p, ok := r.players[id]
	if !ok {
		return nil, false
	}
	delete(r.players, id)
	return p, true
}

func (r *Roster) Get(id int) (*Player, bool) {
	p, ok := r.players[id]
	return p, ok
}

func (r *Roster) Len() int { return len(r.players) }

// Color is the creature color of owner; unknown owners draw in color 0.
func (r *Roster) Color(owner int) int {
	if p, ok := r.players[owner]; ok {
		return p.Color
	}
	return 0
}

// AddScore credits points to owner. Points for unknown owners are dropped.
func (r *Roster) AddScore(owner, points int) {
	p, ok := r.players[owner]
	if !ok || points == 0 {
		return
	}
	p.Score += points
}

// Heartbeat records liveness and, when the client stamped the message,
// the round trip time.
func (r *Roster) Heartbeat(id int, receivedAt time.Time, clientSent int64) (time.Duration, error) {
	p, ok := r.players[id]
	if !ok {
		return 0, ErrUnknown
	}
	p.LastHeartbeat = receivedAt
	if clientSent > 0 {
		sent := time.UnixMilli(clientSent)
		if sent.Before(receivedAt.Add(5 * time.Second)) {
			p.LastRTT = max(receivedAt.Sub(sent), 0)
		}
	}
	return p.LastRTT, nil
}

// Stale lists players whose last heartbeat is older than timeout.
func (r *Roster) Stale(now time.Time, timeout time.Duration) []int {
	var ids []int
	for id, p := range r.players {
		if now.Sub(p.LastHeartbeat) > timeout {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// List returns copies ordered by id.
func (r *Roster) List() []Player {
	out := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
