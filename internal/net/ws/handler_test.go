package ws

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"swarm/server"
	"swarm/server/internal/creature"
	"swarm/server/internal/net/proto"
	"swarm/server/internal/player"
	"swarm/server/internal/terrain"
)

// envelope decodes any server message well enough for assertions.
type envelope struct {
	Type      string                 `json:"type" msgpack:"type"`
	Seq       uint64                 `json:"seq" msgpack:"seq"`
	Reason    string                 `json:"reason" msgpack:"reason"`
	Creatures []proto.CreatureUpdate `json:"creatures" msgpack:"creatures"`
	Players   []proto.PlayerInfo     `json:"players" msgpack:"players"`
}

func newTestHub(t *testing.T) *server.Hub {
	t.Helper()
	cfg := server.DefaultHubConfig()
	cfg.Terrain = terrain.Params{Width: 20, Height: 20, WallDensity: 0.3, FoodAmount: 2000, FoodSpots: 2}
	cfg.TelemetryWindow = 0
	hub := server.NewHubWithConfig(cfg)
	t.Cleanup(func() { hub.Close() })
	return hub
}

func websocketURL(t *testing.T, raw string, playerID int, codec string) string {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	u.Scheme = "ws"
	q := u.Query()
	q.Set("id", strconv.Itoa(playerID))
	if codec != "" {
		q.Set("codec", codec)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func dial(t *testing.T, hub *server.Hub, playerID int, codec string) *websocket.Conn {
	t.Helper()
	handler := NewHandler(hub, HandlerConfig{})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(srv.Close)

	conn, resp, err := websocket.DefaultDialer.Dial(websocketURL(t, srv.URL, playerID, codec), nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("failed to open websocket connection: %v", err)
	}
	t.Cleanup(func() {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
		if resp != nil {
			resp.Body.Close()
		}
	})
	return conn
}

// readUntil reads messages until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, codec proto.Codec, want string) envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		var env envelope
		if err := codec.Decode(payload, &env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if env.Type == want {
			return env
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, codec proto.Codec, msg proto.ClientMessage) {
	t.Helper()
	data, err := codec.Encode(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	kind := websocket.TextMessage
	if codec.Binary() {
		kind = websocket.BinaryMessage
	}
	if err := conn.WriteMessage(kind, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func firstOwned(hub *server.Hub, owner int) int {
	slot := -1
	hub.View(func(reg *creature.Registry, _ *terrain.Map, _ []player.Player) {
		reg.Each(func(c *creature.Creature) {
			if slot < 0 && c.Owner == owner {
				slot = c.Slot()
			}
		})
	})
	return slot
}

func seq(v uint64) *uint64 { return &v }

func TestSessionReceivesSnapshotAndDeltas(t *testing.T) {
	for _, name := range []string{"json", "msgpack"} {
		t.Run(name, func(t *testing.T) {
			codec, _ := proto.CodecByName(name)
			hub := newTestHub(t)
			join, err := hub.Join("alice")
			if err != nil {
				t.Fatalf("join: %v", err)
			}
			conn := dial(t, hub, join.ID, name)

			snapshot := readUntil(t, conn, codec, proto.TypeSnapshot)
			if len(snapshot.Creatures) != 2 || len(snapshot.Players) != 1 {
				t.Fatalf("unexpected snapshot %+v", snapshot)
			}

			slot := firstOwned(hub, join.ID)
			send(t, conn, codec, proto.ClientMessage{Type: proto.TypeSuicide, Creature: slot, CommandSeq: seq(1)})
			if ack := readUntil(t, conn, codec, proto.TypeCommandAck); ack.Seq != 1 {
				t.Fatalf("expected ack for seq 1, got %+v", ack)
			}

			hub.Advance(100 * time.Millisecond)
			delta := readUntil(t, conn, codec, proto.TypeDelta)
			found := false
			for _, u := range delta.Creatures {
				if u.ID == slot && u.Alive != nil && !*u.Alive {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected death of slot %d in delta %+v", slot, delta.Creatures)
			}
		})
	}
}

func TestDuplicateCommandIsAckedOnce(t *testing.T) {
	hub := newTestHub(t)
	join, _ := hub.Join("alice")
	conn := dial(t, hub, join.ID, "")
	readUntil(t, conn, proto.JSON, proto.TypeSnapshot)

	slot := firstOwned(hub, join.ID)
	msg := proto.ClientMessage{Type: proto.TypeMessage, Creature: slot, Text: "hi", CommandSeq: seq(3)}
	send(t, conn, proto.JSON, msg)
	readUntil(t, conn, proto.JSON, proto.TypeCommandAck)
	send(t, conn, proto.JSON, msg)
	if ack := readUntil(t, conn, proto.JSON, proto.TypeCommandAck); ack.Seq != 3 {
		t.Fatalf("expected duplicate ack for seq 3, got %+v", ack)
	}
	if pending := hub.TelemetrySnapshot().PendingCommands; pending != 1 {
		t.Fatalf("expected one staged command, got %d", pending)
	}
}

func TestInvalidCommandIsRejected(t *testing.T) {
	hub := newTestHub(t)
	join, _ := hub.Join("alice")
	conn := dial(t, hub, join.ID, "")
	readUntil(t, conn, proto.JSON, proto.TypeSnapshot)

	send(t, conn, proto.JSON, proto.ClientMessage{Type: proto.TypeState, State: "dance", CommandSeq: seq(1)})
	reject := readUntil(t, conn, proto.JSON, proto.TypeCommandReject)
	if reject.Seq != 1 || reject.Reason != server.CommandRejectInvalidAction {
		t.Fatalf("unexpected reject %+v", reject)
	}
}

func TestHeartbeatIsEchoed(t *testing.T) {
	hub := newTestHub(t)
	join, _ := hub.Join("alice")
	conn := dial(t, hub, join.ID, "")
	readUntil(t, conn, proto.JSON, proto.TypeSnapshot)

	send(t, conn, proto.JSON, proto.ClientMessage{Type: proto.TypeHeartbeat, SentAt: time.Now().UnixMilli()})
	readUntil(t, conn, proto.JSON, proto.TypeHeartbeatAck)
}

func TestResyncSendsSnapshot(t *testing.T) {
	hub := newTestHub(t)
	join, _ := hub.Join("alice")
	conn := dial(t, hub, join.ID, "")
	readUntil(t, conn, proto.JSON, proto.TypeSnapshot)

	send(t, conn, proto.JSON, proto.ClientMessage{Type: proto.TypeResync})
	if snap := readUntil(t, conn, proto.JSON, proto.TypeSnapshot); len(snap.Creatures) != 2 {
		t.Fatalf("expected full resync snapshot, got %+v", snap)
	}
}

func TestUnknownPlayerIsClosed(t *testing.T) {
	hub := newTestHub(t)
	conn := dial(t, hub, 7, "")
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}

func TestClosingConnectionRemovesPlayer(t *testing.T) {
	hub := newTestHub(t)
	join, _ := hub.Join("alice")
	conn := dial(t, hub, join.ID, "")
	readUntil(t, conn, proto.JSON, proto.TypeSnapshot)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(hub.DiagnosticsSnapshot()) == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("player still registered after the connection closed")
}
