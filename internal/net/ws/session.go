package ws

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"swarm/server/internal/net/proto"
)

// ErrSlowClient is returned when a session's outbound queue is full. The hub
// drops such clients; they reconnect and receive a fresh snapshot.
var ErrSlowClient = errors.New("websocket outbound queue full")

// ErrSessionClosed is returned for writes after Close.
var ErrSessionClosed = errors.New("websocket session closed")

const outboundQueue = 64

type outbound struct {
	kind int
	data []byte
}

// Session owns one websocket connection. Frames are encoded by the caller's
// goroutine and written by a single writer goroutine, so Send never blocks
// the simulation.
type Session struct {
	conn      *websocket.Conn
	codec     proto.Codec
	remote    string
	out       chan outbound
	done      chan struct{}
	closeOnce sync.Once
	lastSeq   atomic.Uint64
	onWrite   func(bytes int)
}

func newSession(conn *websocket.Conn, codec proto.Codec, remote string, onWrite func(int)) *Session {
	return &Session{
		conn:    conn,
		codec:   codec,
		remote:  remote,
		out:     make(chan outbound, outboundQueue),
		done:    make(chan struct{}),
		onWrite: onWrite,
	}
}

// Send queues a state frame.
func (s *Session) Send(frame proto.Frame) error {
	return s.SendMessage(frame)
}

// SendMessage encodes v with the session codec and queues it.
func (s *Session) SendMessage(v any) error {
	data, err := s.codec.Encode(v)
	if err != nil {
		return err
	}
	kind := websocket.TextMessage
	if s.codec.Binary() {
		kind = websocket.BinaryMessage
	}
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.out <- outbound{kind: kind, data: data}:
		return nil
	default:
		return ErrSlowClient
	}
}

// Close stops the writer and closes the connection. It is safe to call more
// than once and from any goroutine.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

func (s *Session) Describe() (string, string) {
	return s.remote, s.codec.Name()
}

func (s *Session) LastCommandSeq() uint64 {
	return s.lastSeq.Load()
}

func (s *Session) StoreLastCommandSeq(seq uint64) {
	s.lastSeq.Store(seq)
}

// writeLoop drains the outbound queue until the session closes or a write
// fails.
func (s *Session) writeLoop(writeWait time.Duration) {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(msg.kind, msg.data); err != nil {
				s.Close()
				return
			}
			if s.onWrite != nil {
				s.onWrite(len(msg.data))
			}
		}
	}
}

// writeClose sends a close frame before tearing the connection down.
func (s *Session) writeClose(code int, text string) {
	deadline := time.Now().Add(time.Second)
	s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
	s.Close()
}
