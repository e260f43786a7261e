// Package telemetry implements the live telemetry subscription channel: a
// single long-lived websocket that sends one subscription command on open
// and delivers inbound frames to a caller-supplied handler until closed.
package telemetry

import (
	"crypto/x509"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"

	"github.com/devicelink/tbclient/api"
)

// StreamState of a telemetry stream.
type StreamState int32

const (
	StateClosed StreamState = iota
	StateOpening
	StateOpen
)

func (s StreamState) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// FrameHandler receives decoded inbound telemetry frames in arrival order.
// A single nil frame signals that the channel closed; no frames follow it.
type FrameHandler func(frame map[string]any)

// subscription command framing, sent exactly once after the channel opens
type tsSubCmd struct {
	EntityType api.EntityType `json:"entityType"`
	EntityID   string         `json:"entityId"`
	Scope      string         `json:"scope"`
	CmdID      int            `json:"cmdId"`
}

type subscribeFrame struct {
	TsSubCmds   []tsSubCmd `json:"tsSubCmds"`
	HistoryCmds []any      `json:"historyCmds"`
	AttrSubCmds []any      `json:"attrSubCmds"`
}

// TelemetryStream is a single duplex channel for latest-telemetry updates
// of one entity. One subscription command is ever sent per channel
// instance; subscribing to multiple entities requires multiple streams,
// each with a distinct caller-chosen command id.
//
// There is no automatic reconnect, heartbeat or backpressure. After the
// transport closes the stream is unusable until a fresh Open call.
type TelemetryStream struct {
	hostPort string
	caCert   *x509.Certificate

	state atomic.Int32

	// mux guards conn and writes; websockets do not allow concurrent writes
	mux  sync.Mutex
	conn *websocket.Conn
}

// Close tears the channel down. Safe to call in any state. The handler
// still receives its single nil close notification via the read loop.
func (ts *TelemetryStream) Close() {
	ts.mux.Lock()
	defer ts.mux.Unlock()
	if ts.conn != nil {
		_ = ts.conn.Close()
		ts.conn = nil
	}
}

// Open establishes the channel and subscribes to the entity's latest
// telemetry.
//
// The token is captured at open time and not refreshed for the life of the
// channel. cmdID is required and identifies this subscription's frames if
// the server multiplexes; there is no implicit default. Exactly one
// subscription command is sent, before any inbound frame is processed.
//
// Returns an error if the stream is already opening or open, or when the
// connection cannot be established (the stream then remains closed).
func (ts *TelemetryStream) Open(
	token string, entity api.EntityRef, cmdID int, handler FrameHandler) error {

	if entity.EntityID == "" {
		return fmt.Errorf("telemetry open: entityID is required")
	}
	if handler == nil {
		return fmt.Errorf("telemetry open: handler is required")
	}
	if !ts.state.CompareAndSwap(int32(StateClosed), int32(StateOpening)) {
		return fmt.Errorf("telemetry open: stream is %s", ts.State())
	}

	conn, err := connectWSS(ts.hostPort, token, ts.caCert)
	if err != nil {
		ts.state.Store(int32(StateClosed))
		return fmt.Errorf("telemetry open: %w", err)
	}

	cmd := subscribeFrame{
		TsSubCmds: []tsSubCmd{{
			EntityType: entity.EntityType,
			EntityID:   entity.EntityID,
			Scope:      "LATEST_TELEMETRY",
			CmdID:      cmdID,
		}},
		HistoryCmds: []any{},
		AttrSubCmds: []any{},
	}
	cmdJSON, _ := jsoniter.Marshal(cmd)

	ts.mux.Lock()
	ts.conn = conn
	err = conn.WriteMessage(websocket.TextMessage, cmdJSON)
	ts.mux.Unlock()
	if err != nil {
		ts.Close()
		ts.state.Store(int32(StateClosed))
		return fmt.Errorf("telemetry open: sending subscription: %w", err)
	}
	ts.state.Store(int32(StateOpen))

	slog.Info("TelemetryStream: subscribed",
		slog.String("entityId", entity.EntityID),
		slog.Int("cmdId", cmdID))

	go ts.readLoop(conn, handler)
	return nil
}

// State returns the current channel state.
func (ts *TelemetryStream) State() StreamState {
	return StreamState(ts.state.Load())
}

// readLoop delivers inbound frames in arrival order until the transport
// closes, then notifies the handler once with nil.
func (ts *TelemetryStream) readLoop(conn *websocket.Conn, handler FrameHandler) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		frame := map[string]any{}
		if err = jsoniter.Unmarshal(raw, &frame); err != nil {
			slog.Warn("TelemetryStream: dropping malformed frame",
				slog.String("err", err.Error()))
			continue
		}
		// deliver synchronously to preserve arrival order
		handler(frame)
	}
	ts.mux.Lock()
	if ts.conn == conn {
		_ = ts.conn.Close()
		ts.conn = nil
	}
	ts.mux.Unlock()
	ts.state.Store(int32(StateClosed))
	slog.Info("TelemetryStream: channel closed")
	handler(nil)
}

// NewTelemetryStream creates a closed stream for the given platform host.
//
//	hostPort is the server address in host:port format
//	caCert with the server CA, nil to skip server verification
func NewTelemetryStream(hostPort string, caCert *x509.Certificate) *TelemetryStream {
	return &TelemetryStream{hostPort: hostPort, caCert: caCert}
}
