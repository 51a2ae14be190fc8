// Package ws adapts WebSocket connections to topology engine commands.
// Each connection gets a Session that decodes inbound frames by their
// "type" discriminator and implements the engine's transport handle with
// a bounded, drop-on-full outbound queue.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/netsblox/cloud/internal/api"
	"github.com/netsblox/cloud/internal/topology"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before it is
	// considered dead; pings go out at pingPeriod.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxFrameSize = 1 << 20

	// sendBuffer is the outbound queue depth per client. Messaging is
	// best-effort: a full queue drops the frame.
	sendBuffer = 64
)

// ErrSendQueueFull reports a dropped outbound frame.
var ErrSendQueueFull = errors.New("client send queue full")

// Engine is the slice of the topology engine a session drives.
type Engine interface {
	AddClient(id api.ClientID, handle topology.ClientHandle)
	SetClientState(ctx context.Context, id api.ClientID, state api.ClientState, username *string)
	RemoveClient(ctx context.Context, id api.ClientID)
	SetBrokenClient(ctx context.Context, id api.ClientID)
	SendMessage(ctx context.Context, addresses []string, content []byte)
	RoleDataResponse(requestID uuid.UUID, data api.RoleData)
}

// Session is one live WebSocket connection.
type Session struct {
	log    *logrus.Entry
	id     api.ClientID
	conn   *websocket.Conn
	engine Engine

	out       chan []byte
	closeOnce sync.Once
	closed    chan struct{}
}

// NewSession wraps an upgraded connection. The id must already be
// validated (api.ParseClientID).
func NewSession(id api.ClientID, conn *websocket.Conn, engine Engine) *Session {
	return &Session{
		log:    logrus.WithFields(logrus.Fields{"component": "ws", "clientId": id}),
		id:     id,
		conn:   conn,
		engine: engine,
		out:    make(chan []byte, sendBuffer),
		closed: make(chan struct{}),
	}
}

// Send queues a frame for delivery. Never blocks; a full queue drops the
// frame and reports ErrSendQueueFull.
func (s *Session) Send(frame []byte) error {
	select {
	case s.out <- frame:
		return nil
	case <-s.closed:
		return errors.New("session closed")
	default:
		return ErrSendQueueFull
	}
}

// Run registers the client and pumps frames until the connection drops
// or ctx is cancelled. An unexpected close marks the client broken
// before it is removed, so unsaved work gets the deletion cool-down
// instead of an immediate delete.
func (s *Session) Run(ctx context.Context) {
	s.engine.AddClient(s.id, s)
	go s.writePump()

	err := s.readPump(ctx)

	s.shutdown()
	if isUnexpectedClose(err) {
		s.log.WithError(err).Info("connection closed unexpectedly")
		s.engine.SetBrokenClient(ctx, s.id)
	}
	s.engine.RemoveClient(ctx, s.id)
}

func (s *Session) shutdown() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.conn.Close()
	})
}

func (s *Session) readPump(ctx context.Context) error {
	s.conn.SetReadLimit(maxFrameSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			return err
		}
		s.dispatch(ctx, frame)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer s.shutdown()

	for {
		select {
		case frame := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.closed:
			return
		}
	}
}

// dispatch routes one inbound frame by its type discriminator. Malformed
// frames are logged and dropped; a broken client must not take the
// session down.
func (s *Session) dispatch(ctx context.Context, frame []byte) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(frame, &envelope); err != nil {
		s.log.WithError(err).Debug("dropping unparseable frame")
		return
	}

	switch envelope.Type {
	case "set-client-state":
		var msg setClientState
		if err := json.Unmarshal(frame, &msg); err != nil {
			s.log.WithError(err).Debug("dropping bad set-client-state frame")
			return
		}
		s.engine.SetClientState(ctx, s.id, msg.State, msg.Username)

	case "message":
		addresses, err := messageAddresses(frame)
		if err != nil {
			s.log.WithError(err).Debug("dropping bad message frame")
			return
		}
		// The whole frame is forwarded so recipients see the original
		// message fields.
		s.engine.SendMessage(ctx, addresses, frame)

	case "role-data-response":
		var msg roleDataResponse
		if err := json.Unmarshal(frame, &msg); err != nil {
			s.log.WithError(err).Debug("dropping bad role-data-response frame")
			return
		}
		s.engine.RoleDataResponse(msg.ID, msg.Data)

	case "ping":
		// App-level keepalive from clients that cannot send control
		// frames.
		if err := s.Send([]byte(`{"type":"pong"}`)); err != nil {
			s.log.WithError(err).Debug("dropping pong")
		}

	case "pong":
		// Protocol-level pongs already reset the read deadline.

	default:
		s.log.WithField("frameType", envelope.Type).Debug("ignoring unknown frame type")
	}
}

type setClientState struct {
	State    api.ClientState `json:"state"`
	Username *string         `json:"username,omitempty"`
}

type roleDataResponse struct {
	ID   uuid.UUID    `json:"id"`
	Data api.RoleData `json:"data"`
}

// messageAddresses extracts the destination list of a message frame.
// dstId is either one address string or a list of them.
func messageAddresses(frame []byte) ([]string, error) {
	var msg struct {
		DstID json.RawMessage `json:"dstId"`
	}
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, err
	}
	if len(msg.DstID) == 0 {
		return nil, errors.New("message frame without dstId")
	}

	var single string
	if err := json.Unmarshal(msg.DstID, &single); err == nil {
		return []string{single}, nil
	}
	var many []string
	if err := json.Unmarshal(msg.DstID, &many); err != nil {
		return nil, err
	}
	return many, nil
}

func isUnexpectedClose(err error) bool {
	if err == nil {
		return false
	}
	return websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
