// Package telemetry receives motion-tracking datagrams from the vision rig
// and feeds them into the engine. The wire format is one JSON envelope per
// UDP datagram; malformed payloads are logged and dropped, never fatal.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crowd-organ/gesture.host/internal/gesture"
)

// Envelope message types.
const (
	MsgVoiceState      = "voice_state"
	MsgVoiceDisconnect = "voice_disconnect"
	MsgCameraZones     = "camera_zones"
	MsgRoomMotion      = "room_motion"
)

// Envelope is the wire shape for all inbound telemetry. Type selects which
// of the remaining fields are meaningful.
type Envelope struct {
	Type     string     `json:"type"`
	VoiceID  int        `json:"voice_id,omitempty"`
	Position [3]float64 `json:"position,omitempty"`
	Size     float64    `json:"size,omitempty"`
	Motion   float64    `json:"motion,omitempty"`
	Energy   float64    `json:"energy,omitempty"`
	CamID    int        `json:"cam_id,omitempty"`
	Rows     int        `json:"rows,omitempty"`
	Cols     int        `json:"cols,omitempty"`
	Zones    []float64  `json:"zones,omitempty"`
	Value    float64    `json:"value,omitempty"`
}

// Sink is the slice of the engine the listener needs.
type Sink interface {
	HandleVoiceState(voiceID int, position gesture.Vec3, size, motion, energy float64)
	HandleVoiceDisconnect(voiceID int)
	HandleCameraZones(camID, rows, cols int, values []float64) []gesture.Event
	HandleRoomMotion(motion float64)
}

// ListenerConfig configures a telemetry listener.
type ListenerConfig struct {
	Address     string        // UDP listen address, e.g. ":9000"
	RcvBuf      int           // socket receive buffer, 0 keeps the OS default
	LogInterval time.Duration // how often to log datagram counters
	Sink        Sink
}

// Listener receives telemetry datagrams and forwards them to the sink.
type Listener struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	sink        Sink

	connMu sync.Mutex
	conn   *net.UDPConn

	received atomic.Uint64
	dropped  atomic.Uint64
}

// NewListener creates a listener with the provided configuration.
func NewListener(cfg ListenerConfig) *Listener {
	logInterval := cfg.LogInterval
	if logInterval == 0 {
		logInterval = time.Minute
	}
	return &Listener{
		address:     cfg.Address,
		rcvBuf:      cfg.RcvBuf,
		logInterval: logInterval,
		sink:        cfg.Sink,
	}
}

// Start listens for datagrams until the context is cancelled or the socket
// is closed.
func (l *Listener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	l.setConn(conn)
	defer conn.Close()

	if l.rcvBuf > 0 {
		if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
			log.Printf("warning: failed to set UDP receive buffer size to %d: %v", l.rcvBuf, err)
		}
	}

	log.Printf("telemetry listener started on %s", l.address)

	go l.startStatsLogging(ctx)

	buffer := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			log.Print("telemetry listener stopping due to context cancellation")
			return ctx.Err()
		default:
			// Short read deadline so context cancellation is noticed.
			if err := conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond)); err != nil {
				log.Printf("failed to set read deadline: %v", err)
			}

			n, sender, err := conn.ReadFromUDP(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue
				}
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					return nil
				}
				log.Printf("UDP read error: %v", err)
				continue
			}

			l.received.Add(1)
			if err := l.handleDatagram(buffer[:n]); err != nil {
				l.dropped.Add(1)
				log.Printf("dropping telemetry from %v: %v", sender, err)
			}
		}
	}
}

// handleDatagram parses one envelope and routes it to the sink.
func (l *Listener) handleDatagram(data []byte) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("malformed envelope: %w", err)
	}

	switch env.Type {
	case MsgVoiceState:
		position := gesture.Vec3{X: env.Position[0], Y: env.Position[1], Z: env.Position[2]}
		l.sink.HandleVoiceState(env.VoiceID, position, env.Size, env.Motion, env.Energy)
	case MsgVoiceDisconnect:
		l.sink.HandleVoiceDisconnect(env.VoiceID)
	case MsgCameraZones:
		if env.Rows != 4 || env.Cols != 4 || len(env.Zones) != gesture.GridCells {
			return fmt.Errorf("camera_zones must be 4x4 with 16 values, got %dx%d with %d", env.Rows, env.Cols, len(env.Zones))
		}
		l.sink.HandleCameraZones(env.CamID, env.Rows, env.Cols, env.Zones)
	case MsgRoomMotion:
		l.sink.HandleRoomMotion(env.Value)
	default:
		return fmt.Errorf("unknown telemetry type %q", env.Type)
	}
	return nil
}

func (l *Listener) startStatsLogging(ctx context.Context) {
	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Printf("telemetry: %d datagrams received, %d dropped", l.received.Load(), l.dropped.Load())
		}
	}
}

func (l *Listener) setConn(conn *net.UDPConn) {
	l.connMu.Lock()
	defer l.connMu.Unlock()
	l.conn = conn
}

// Close shuts the socket down. Safe to call multiple times.
func (l *Listener) Close() error {
	l.connMu.Lock()
	conn := l.conn
	l.conn = nil
	l.connMu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}
