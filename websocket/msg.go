package websocket

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

// MsgType identifies a message on the realtime channel.
type MsgType string

const (
	MsgTypePing           MsgType = "ping"
	MsgTypePong           MsgType = "pong"
	MsgTypeSyncClock      MsgType = "sync_clock"
	MsgTypeFootprintAdd   MsgType = "footprint_add"
	MsgTypeFootprintAdded MsgType = "footprint_added"
	MsgTypePointQuery     MsgType = "point_query"
	MsgTypePointResult    MsgType = "point_result"
	MsgTypeOverlapQuery   MsgType = "overlap_query"
	MsgTypeOverlapResult  MsgType = "overlap_result"
	MsgTypeStatsQuery     MsgType = "stats_query"
	MsgTypeStatsResult    MsgType = "stats_result"
	MsgTypeError          MsgType = "error"
)

// Error types surfaced on the realtime channel.
const (
	ErrTypeBadPayload   = "bad_payload"
	ErrTypeUnknownMsg   = "unknown_message_type"
	ErrTypeScanDisabled = "overlap_scan_disabled"
)

// Msg is a decoded wire message: its type and the raw frame it was parsed
// from.
type Msg struct {
	Type MsgType
	Data []byte
}

// DataTo unmarshals the message payload into v.
func (m Msg) DataTo(v any) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return errors.New("decoding message payload failed").
			WithType(ErrTypeBadPayload).
			WithTag("msg_type", m.Type).
			Wrap(err)
	}
	return nil
}

type msgProbe struct {
	Type MsgType `json:"type"`
}

// msgFromPayload encodes a payload struct carrying a type field into a Msg.
func msgFromPayload(v any) (Msg, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Msg{}, errors.New("encoding message failed").Wrap(err)
	}

	var probe msgProbe
	if err := json.Unmarshal(data, &probe); err != nil || probe.Type == "" {
		return Msg{}, errors.New("message payload carries no type").
			WithTag("payload", string(data))
	}
	return Msg{Type: probe.Type, Data: data}, nil
}

// PingMsg requests a PongMsg carrying the same request id.
type PingMsg struct {
	Type      MsgType `json:"type"`
	RequestID uint32  `json:"request_id,omitempty"`
}

type PongMsg struct {
	Type      MsgType `json:"type"`
	RequestID uint32  `json:"request_id,omitempty"`
}

// SyncClockMsg carries the server time, sent on a fixed interval.
type SyncClockMsg struct {
	Type      MsgType   `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// FootprintAddMsg requests indexing of a footprint. The id is generated
// when empty.
type FootprintAddMsg struct {
	Type      MsgType     `json:"type"`
	RequestID uint32      `json:"request_id,omitempty"`
	ID        string      `json:"id,omitempty"`
	Corners   [][]float64 `json:"corners"`
}

type FootprintAddedMsg struct {
	Type      MsgType `json:"type"`
	RequestID uint32  `json:"request_id,omitempty"`
	ID        string  `json:"id"`
}

// PointQueryMsg requests the ids of every footprint containing a point.
type PointQueryMsg struct {
	Type      MsgType   `json:"type"`
	RequestID uint32    `json:"request_id,omitempty"`
	Point     []float64 `json:"point"`
}

type PointResultMsg struct {
	Type      MsgType  `json:"type"`
	RequestID uint32   `json:"request_id,omitempty"`
	IDs       []string `json:"ids"`
}

// OverlapQueryMsg requests every pair of footprints with overlapping
// bounding boxes.
type OverlapQueryMsg struct {
	Type      MsgType `json:"type"`
	RequestID uint32  `json:"request_id,omitempty"`
}

type OverlapPairPayload struct {
	A string `json:"a"`
	B string `json:"b"`
}

type OverlapResultMsg struct {
	Type      MsgType              `json:"type"`
	RequestID uint32               `json:"request_id,omitempty"`
	Pairs     []OverlapPairPayload `json:"pairs"`
}

// StatsQueryMsg requests counters describing the index shape.
type StatsQueryMsg struct {
	Type      MsgType `json:"type"`
	RequestID uint32  `json:"request_id,omitempty"`
}

type StatsResultMsg struct {
	Type       MsgType   `json:"type"`
	RequestID  uint32    `json:"request_id,omitempty"`
	Footprints int       `json:"footprints"`
	Nodes      int       `json:"nodes"`
	Depth      int       `json:"depth"`
	Grows      int       `json:"grows"`
	Min        []float64 `json:"min"`
	Max        []float64 `json:"max"`
}

// ErrorMsg reports a rejected request without closing the connection.
type ErrorMsg struct {
	Type      MsgType `json:"type"`
	RequestID uint32  `json:"request_id,omitempty"`
	Code      string  `json:"code,omitempty"`
	Error     string  `json:"error"`
}

// Receive reads and decodes the next message from conn. It returns the
// message and its size in bytes.
func Receive(conn *websocket.Conn) (Msg, int, error) {
	var frame string
	if err := websocket.Message.Receive(conn, &frame); err != nil {
		return Msg{}, 0, err
	}

	var probe msgProbe
	if err := json.Unmarshal([]byte(frame), &probe); err != nil {
		return Msg{}, len(frame), errors.New("decoding message failed").
			WithType(ErrTypeBadPayload).
			Wrap(err)
	}
	if probe.Type == "" {
		return Msg{}, len(frame), errors.New("message carries no type").
			WithType(ErrTypeBadPayload)
	}

	return Msg{Type: probe.Type, Data: []byte(frame)}, len(frame), nil
}

// Send writes msg to conn. It returns the written size in bytes.
func Send(conn *websocket.Conn, msg Msg) (int, error) {
	if err := websocket.Message.Send(conn, string(msg.Data)); err != nil {
		return 0, err
	}
	return len(msg.Data), nil
}
