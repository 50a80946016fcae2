package proto

import (
	"encoding/json"
	"strings"
	"testing"

	"swarm/server/internal/creature"
	"swarm/server/internal/sim"
)

func TestClientCommand(t *testing.T) {
	seq := uint64(9)
	cases := []struct {
		name  string
		msg   ClientMessage
		want  sim.CommandType
		check func(t *testing.T, cmd sim.Command)
	}{
		{"path", ClientMessage{Type: TypePath, Creature: 3, X: 4, Y: 5, CommandSeq: &seq}, sim.CommandSetPath, func(t *testing.T, cmd sim.Command) {
			if cmd.Path == nil || cmd.Path.X != 4 || cmd.Path.Y != 5 || cmd.Seq != 9 || cmd.Creature != 3 {
				t.Fatalf("unexpected path command %+v", cmd)
			}
		}},
		{"target", ClientMessage{Type: TypeTarget, Target: 12}, sim.CommandSetTarget, func(t *testing.T, cmd sim.Command) {
			if cmd.Target == nil || cmd.Target.Slot != 12 {
				t.Fatalf("unexpected target payload %+v", cmd.Target)
			}
		}},
		{"state", ClientMessage{Type: TypeState, State: "heal"}, sim.CommandSetState, func(t *testing.T, cmd sim.Command) {
			if cmd.State == nil || cmd.State.State != creature.StateHeal {
				t.Fatalf("unexpected state payload %+v", cmd.State)
			}
		}},
		{"convert", ClientMessage{Type: TypeConvert, Kind: 1}, sim.CommandSetConversion, func(t *testing.T, cmd sim.Command) {
			if cmd.Conversion == nil || cmd.Conversion.Kind != creature.KindBig {
				t.Fatalf("unexpected conversion payload %+v", cmd.Conversion)
			}
		}},
		{"message", ClientMessage{Type: TypeMessage, Text: "hey"}, sim.CommandSetMessage, nil},
		{"suicide", ClientMessage{Type: TypeSuicide}, sim.CommandSuicide, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd, ok := ClientCommand(tc.msg)
			if !ok || cmd.Type != tc.want {
				t.Fatalf("expected %s, got %q ok=%v", tc.want, cmd.Type, ok)
			}
			if tc.check != nil {
				tc.check(t, cmd)
			}
		})
	}

	for _, msg := range []ClientMessage{{Type: TypeHeartbeat}, {Type: TypeResync}, {Type: TypeState, State: "dance"}} {
		if _, ok := ClientCommand(msg); ok {
			t.Fatalf("expected %+v to be ignored", msg)
		}
	}
}

func TestDecodeClientMessageVersion(t *testing.T) {
	msg, err := DecodeClientMessage(JSON, []byte(`{"type":"path","creature":2,"x":1,"y":1}`))
	if err != nil || msg.Ver != Version || msg.Creature != 2 {
		t.Fatalf("unexpected decode %+v err=%v", msg, err)
	}
	if _, err := DecodeClientMessage(JSON, []byte(`{"ver":7,"type":"path"}`)); err == nil {
		t.Fatalf("expected version error")
	}
	if _, err := DecodeClientMessage(nil, []byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestFrameCodecsAgree(t *testing.T) {
	alive, x, state := true, 7, "walk"
	frame := Frame{
		Ver:       Version,
		Type:      TypeDelta,
		Tick:      42,
		Creatures: []CreatureUpdate{{ID: 3, Alive: &alive, X: &x, State: &state}},
	}
	for _, codec := range []Codec{JSON, Msgpack} {
		t.Run(codec.Name(), func(t *testing.T) {
			data, err := codec.Encode(frame)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			var got Frame
			if err := codec.Decode(data, &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.Tick != 42 || len(got.Creatures) != 1 {
				t.Fatalf("unexpected frame %+v", got)
			}
			u := got.Creatures[0]
			if u.ID != 3 || u.X == nil || *u.X != 7 || u.State == nil || *u.State != "walk" || u.Y != nil {
				t.Fatalf("unexpected update %+v", u)
			}
		})
	}
}

func TestDeltaOmitsUnchangedFields(t *testing.T) {
	food := 0
	data, err := json.Marshal(Frame{Type: TypeDelta, Creatures: []CreatureUpdate{{ID: 1, Food: &food}}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, `"food":0`) {
		t.Fatalf("zero valued change must be sent: %s", text)
	}
	if strings.Contains(text, `"health"`) || strings.Contains(text, `"players"`) {
		t.Fatalf("unchanged fields leaked: %s", text)
	}
}

func TestCodecByName(t *testing.T) {
	if c, ok := CodecByName(""); !ok || c.Name() != "json" {
		t.Fatalf("default codec should be json")
	}
	if c, ok := CodecByName("msgpack"); !ok || !c.Binary() {
		t.Fatalf("msgpack codec should be binary")
	}
	if _, ok := CodecByName("xml"); ok {
		t.Fatalf("unknown codec accepted")
	}
}
