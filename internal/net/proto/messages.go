package proto

import (
	"encoding/json"
	"fmt"

	"swarm/server/internal/creature"
	"swarm/server/internal/sim"
)

// Version tracks the wire-protocol revision expected by clients.
const Version = 1

// Server frame type identifiers.
const (
	TypeSnapshot      = "snapshot"
	TypeDelta         = "delta"
	TypeCommandAck    = "commandAck"
	TypeCommandReject = "commandReject"
	TypeHeartbeatAck  = "heartbeat"
)

// Client message type identifiers.
const (
	TypePath      = "path"
	TypeTarget    = "target"
	TypeState     = "state"
	TypeConvert   = "convert"
	TypeMessage   = "message"
	TypeSuicide   = "suicide"
	TypeHeartbeat = "heartbeat"
	TypeResync    = "resync"
)

// CreatureUpdate carries the fields of one creature that changed for a
// client. Nil fields are unchanged.
type CreatureUpdate struct {
	ID      int     `json:"id" msgpack:"id"`
	Alive   *bool   `json:"alive,omitempty" msgpack:"alive,omitempty"`
	Owner   *int    `json:"owner,omitempty" msgpack:"owner,omitempty"`
	X       *int    `json:"x,omitempty" msgpack:"x,omitempty"`
	Y       *int    `json:"y,omitempty" msgpack:"y,omitempty"`
	Dir     *int    `json:"dir,omitempty" msgpack:"dir,omitempty"`
	Type    *int    `json:"type,omitempty" msgpack:"type,omitempty"`
	Food    *int    `json:"food,omitempty" msgpack:"food,omitempty"`
	Health  *int    `json:"health,omitempty" msgpack:"health,omitempty"`
	State   *string `json:"state,omitempty" msgpack:"state,omitempty"`
	Target  *int    `json:"target,omitempty" msgpack:"target,omitempty"`
	Message *string `json:"message,omitempty" msgpack:"message,omitempty"`
}

// Empty reports whether the update carries no field at all.
func (u CreatureUpdate) Empty() bool {
	return u.Alive == nil && u.Owner == nil && u.X == nil && u.Y == nil && u.Dir == nil &&
		u.Type == nil && u.Food == nil && u.Health == nil && u.State == nil &&
		u.Target == nil && u.Message == nil
}

// PlayerInfo is the public view of a player.
type PlayerInfo struct {
	ID    int    `json:"id" msgpack:"id"`
	Name  string `json:"name" msgpack:"name"`
	Color int    `json:"color" msgpack:"color"`
	Score int    `json:"score" msgpack:"score"`
}

// Frame is one server to client state message: a full snapshot or the
// delta of one tick.
type Frame struct {
	Ver        int              `json:"ver" msgpack:"ver"`
	Type       string           `json:"type" msgpack:"type"`
	Tick       uint64           `json:"t" msgpack:"t"`
	ServerTime int64            `json:"serverTime" msgpack:"serverTime"`
	Resync     bool             `json:"resync,omitempty" msgpack:"resync,omitempty"`
	Creatures  []CreatureUpdate `json:"creatures,omitempty" msgpack:"creatures,omitempty"`
	Players    []PlayerInfo     `json:"players,omitempty" msgpack:"players,omitempty"`
	King       *int             `json:"king,omitempty" msgpack:"king,omitempty"`
}

// Empty reports a delta with nothing to say.
func (f Frame) Empty() bool {
	return f.Type == TypeDelta && len(f.Creatures) == 0 && len(f.Players) == 0 && f.King == nil
}

// WorldInfo describes the static map a client needs to render.
type WorldInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	// Rows holds one string per row, '#' for walls and '.' for plain tiles.
	Rows  []string `json:"rows"`
	Food  []int    `json:"food"`
	KothX int      `json:"kothX"`
	KothY int      `json:"kothY"`
}

// JoinResponse is returned by the join endpoint.
type JoinResponse struct {
	Ver      int          `json:"ver"`
	ID       int          `json:"id"`
	Color    int          `json:"color"`
	World    WorldInfo    `json:"world"`
	Players  []PlayerInfo `json:"players"`
	TickRate int          `json:"tickRate"`
}

func EncodeJoinResponse(msg JoinResponse) ([]byte, error) {
	msg.Ver = Version
	return json.Marshal(msg)
}

// ClientMessage captures an inbound websocket message from the client.
type ClientMessage struct {
	Ver        int     `json:"ver,omitempty" msgpack:"ver,omitempty"`
	Type       string  `json:"type" msgpack:"type" jsonschema:"enum=path,enum=target,enum=state,enum=convert,enum=message,enum=suicide,enum=heartbeat,enum=resync"`
	CommandSeq *uint64 `json:"seq,omitempty" msgpack:"seq,omitempty"`
	Creature   int     `json:"creature" msgpack:"creature"`
	X          int     `json:"x" msgpack:"x"`
	Y          int     `json:"y" msgpack:"y"`
	Target     int     `json:"target" msgpack:"target"`
	State      string  `json:"state,omitempty" msgpack:"state,omitempty"`
	Kind       int     `json:"kind" msgpack:"kind"`
	Text       string  `json:"text,omitempty" msgpack:"text,omitempty"`
	SentAt     int64   `json:"sentAt,omitempty" msgpack:"sentAt,omitempty"`
}

// DecodeClientMessage converts a raw payload into a structured message.
func DecodeClientMessage(codec Codec, payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if codec == nil {
		codec = JSON
	}
	if err := codec.Decode(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	return msg, nil
}

// ClientCommand maps a client message onto a simulation command. Heartbeat
// and resync messages are not commands.
func ClientCommand(msg ClientMessage) (sim.Command, bool) {
	cmd := sim.Command{Creature: msg.Creature}
	if msg.CommandSeq != nil {
		cmd.Seq = *msg.CommandSeq
	}
	switch msg.Type {
	case TypePath:
		cmd.Type = sim.CommandSetPath
		cmd.Path = &sim.PathCommand{X: msg.X, Y: msg.Y}
	case TypeTarget:
		cmd.Type = sim.CommandSetTarget
		cmd.Target = &sim.TargetCommand{Slot: msg.Target}
	case TypeState:
		state, ok := creature.ParseState(msg.State)
		if !ok {
			return sim.Command{}, false
		}
		cmd.Type = sim.CommandSetState
		cmd.State = &sim.StateCommand{State: state}
	case TypeConvert:
		cmd.Type = sim.CommandSetConversion
		cmd.Conversion = &sim.ConversionCommand{Kind: creature.Kind(msg.Kind)}
	case TypeMessage:
		cmd.Type = sim.CommandSetMessage
		cmd.Message = &sim.MessageCommand{Text: msg.Text}
	case TypeSuicide:
		cmd.Type = sim.CommandSuicide
	default:
		return sim.Command{}, false
	}
	return cmd, true
}

// CommandAck describes an acknowledgement of a processed command.
type CommandAck struct {
	Ver  int    `json:"ver" msgpack:"ver"`
	Type string `json:"type" msgpack:"type"`
	Seq  uint64 `json:"seq" msgpack:"seq"`
	Tick uint64 `json:"tick,omitempty" msgpack:"tick,omitempty"`
}

func NewCommandAck(seq, tick uint64) CommandAck {
	return CommandAck{Ver: Version, Type: TypeCommandAck, Seq: seq, Tick: tick}
}

// CommandReject notifies the client that a command was refused.
type CommandReject struct {
	Ver    int    `json:"ver" msgpack:"ver"`
	Type   string `json:"type" msgpack:"type"`
	Seq    uint64 `json:"seq" msgpack:"seq"`
	Reason string `json:"reason" msgpack:"reason"`
	Retry  bool   `json:"retry,omitempty" msgpack:"retry,omitempty"`
	Tick   uint64 `json:"tick,omitempty" msgpack:"tick,omitempty"`
}

func NewCommandReject(seq uint64, reason string, retry bool, tick uint64) CommandReject {
	return CommandReject{Ver: Version, Type: TypeCommandReject, Seq: seq, Reason: reason, Retry: retry, Tick: tick}
}

// Heartbeat echoes timing metadata back to the client.
type Heartbeat struct {
	Ver        int    `json:"ver" msgpack:"ver"`
	Type       string `json:"type" msgpack:"type"`
	ServerTime int64  `json:"serverTime" msgpack:"serverTime"`
	ClientTime int64  `json:"clientTime" msgpack:"clientTime"`
	RTTMillis  int64  `json:"rtt" msgpack:"rtt"`
}

func NewHeartbeat(serverTime, clientTime, rttMillis int64) Heartbeat {
	return Heartbeat{Ver: Version, Type: TypeHeartbeatAck, ServerTime: serverTime, ClientTime: clientTime, RTTMillis: rttMillis}
}
