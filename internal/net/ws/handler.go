package ws

import (
	"log"
	nethttp "net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"swarm/server"
	"swarm/server/internal/net/proto"
	"swarm/server/internal/sim"
)

const maxMessageBytes = 4096

type HandlerConfig struct {
	Logger *log.Logger
}

type Handler struct {
	hub      *server.Hub
	logger   *log.Logger
	upgrader websocket.Upgrader
}

func NewHandler(hub *server.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:      hub,
		logger:   logger,
		upgrader: upgrader,
	}
}

// Handle upgrades /ws?id=<player>&codec=<json|msgpack> and runs the session
// until the client goes away.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	playerID, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil || playerID <= 0 {
		nethttp.Error(w, "missing id", nethttp.StatusBadRequest)
		return
	}
	codec := proto.JSON
	if name := r.URL.Query().Get("codec"); name != "" {
		selected, ok := proto.CodecByName(name)
		if !ok {
			nethttp.Error(w, "unknown codec", nethttp.StatusBadRequest)
			return
		}
		codec = selected
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %d: %v", playerID, err)
		return
	}
	conn.SetReadLimit(maxMessageBytes)

	session := newSession(conn, codec, r.RemoteAddr, h.hub.RecordBroadcast)
	go session.writeLoop(server.WriteWait())

	if _, err := h.hub.Subscribe(playerID, session); err != nil {
		h.logger.Printf("subscribe failed for %d: %v", playerID, err)
		session.writeClose(websocket.ClosePolicyViolation, "unknown player")
		return
	}

	h.serve(playerID, session)
}

func (h *Handler) serve(playerID int, session *Session) {
	for {
		_, payload, err := session.conn.ReadMessage()
		if err != nil {
			h.disconnect(playerID, session, "closed")
			return
		}

		msg, err := proto.DecodeClientMessage(session.codec, payload)
		if err != nil {
			h.logger.Printf("discarding malformed message from %d: %v", playerID, err)
			continue
		}

		switch msg.Type {
		case proto.TypeHeartbeat:
			now := time.Now()
			rtt, ok := h.hub.Heartbeat(playerID, now, msg.SentAt)
			if !ok {
				continue
			}
			if !h.write(playerID, session, proto.NewHeartbeat(now.UnixMilli(), msg.SentAt, rtt.Milliseconds())) {
				return
			}
		case proto.TypeResync:
			if err := h.hub.Resync(playerID, "client request"); err != nil {
				h.logger.Printf("resync for %d failed: %v", playerID, err)
			}
		default:
			if !h.command(playerID, session, msg) {
				return
			}
		}
	}
}

// command stages a creature command and answers with an ack or reject when
// the client numbered it. Replayed sequence numbers are acked again without
// being staged twice.
func (h *Handler) command(playerID int, session *Session, msg proto.ClientMessage) bool {
	seq := uint64(0)
	if msg.CommandSeq != nil {
		seq = *msg.CommandSeq
	}
	if seq > 0 {
		if last := session.LastCommandSeq(); last > 0 && seq <= last {
			return h.write(playerID, session, proto.NewCommandAck(seq, 0))
		}
	}

	cmd, ok, reason := h.hub.Enqueue(playerID, msg)
	if !ok {
		switch reason {
		case server.CommandRejectInvalidAction:
			h.logger.Printf("unknown command %q from %d", msg.Type, playerID)
		case server.CommandRejectUnknownActor:
			h.logger.Printf("command ignored for unknown player %d", playerID)
		}
	}
	if seq == 0 {
		return true
	}
	if !ok {
		retry := reason == sim.CommandRejectQueueLimit || reason == sim.CommandRejectQueueFull
		return h.write(playerID, session, proto.NewCommandReject(seq, reason, retry, 0))
	}
	if !h.write(playerID, session, proto.NewCommandAck(seq, cmd.OriginTick)) {
		return false
	}
	session.StoreLastCommandSeq(seq)
	return true
}

func (h *Handler) write(playerID int, session *Session, v any) bool {
	if err := session.SendMessage(v); err != nil {
		h.disconnect(playerID, session, err.Error())
		return false
	}
	return true
}

func (h *Handler) disconnect(playerID int, session *Session, reason string) {
	h.hub.Disconnect(playerID, session, reason)
	session.Close()
}
