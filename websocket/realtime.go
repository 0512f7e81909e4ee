package websocket

import (
	"context"
	"time"

	"github.com/aukilabs/askr/featureflag"
	"github.com/aukilabs/askr/models"
	"github.com/aukilabs/askr/spatial"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"
)

const (
	defaultSyncClockInterval = time.Second * 5
	defaultIdleTimeout       = time.Minute * 5
)

// RealtimeHandler serves the footprint index over a WebSocket connection.
type RealtimeHandler struct {
	// The store holding the indexed footprints.
	Footprints *models.FootprintStore

	// The interval between each sync clock message sent to the connected
	// client. Defaults to 5 seconds.
	ClientSyncClockInterval time.Duration

	// The time a client is idle before being disconnected. Defaults to 5
	// minutes.
	ClientIdleTimeout time.Duration

	FeatureFlags featureflag.Flags

	conn     *websocket.Conn
	clientID string
}

func (h *RealtimeHandler) HandleConnect(conn *websocket.Conn) {
	h.conn = conn
	h.clientID = uuid.NewString()
}

func (h *RealtimeHandler) HandlePing(ctx context.Context, respond ResponseSender, msg Msg) error {
	var req PingMsg
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	respond.Send(PongMsg{
		Type:      MsgTypePong,
		RequestID: req.RequestID,
	})
	return nil
}

func (h *RealtimeHandler) HandleFootprintAdd(ctx context.Context, respond ResponseSender, msg Msg) error {
	var req FootprintAddMsg
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	corners := make([]spatial.Vector, len(req.Corners))
	for i, c := range req.Corners {
		corners[i] = spatial.Vector(c)
	}

	footprint, err := models.NewFootprint(req.ID, corners)
	if err != nil {
		h.sendError(respond, req.RequestID, err)
		return nil
	}

	if err := h.Footprints.Add(footprint); err != nil {
		h.sendError(respond, req.RequestID, err)
		return nil
	}

	respond.Send(FootprintAddedMsg{
		Type:      MsgTypeFootprintAdded,
		RequestID: req.RequestID,
		ID:        footprint.ID,
	})
	return nil
}

func (h *RealtimeHandler) HandlePointQuery(ctx context.Context, respond ResponseSender, msg Msg) error {
	var req PointQueryMsg
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	if len(req.Point) != h.Footprints.Bounds().Dim() {
		h.sendError(respond, req.RequestID, errors.New("point dimension mismatch").
			WithType(ErrTypeBadPayload).
			WithTag("dim", len(req.Point)))
		return nil
	}

	footprints := h.Footprints.FindAt(spatial.Vector(req.Point))
	ids := make([]string, 0, len(footprints))
	for _, f := range footprints {
		ids = append(ids, f.ID)
	}

	respond.Send(PointResultMsg{
		Type:      MsgTypePointResult,
		RequestID: req.RequestID,
		IDs:       ids,
	})
	return nil
}

func (h *RealtimeHandler) HandleOverlapQuery(ctx context.Context, respond ResponseSender, msg Msg) error {
	var req OverlapQueryMsg
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	if h.FeatureFlags.Set(featureflag.FlagDisableOverlapScan) {
		h.sendError(respond, req.RequestID, errors.New("overlap scans are disabled").
			WithType(ErrTypeScanDisabled))
		return nil
	}

	overlaps := h.Footprints.OverlapPairs()
	pairs := make([]OverlapPairPayload, 0, len(overlaps))
	for _, o := range overlaps {
		pairs = append(pairs, OverlapPairPayload{A: o.A.ID, B: o.B.ID})
	}

	respond.Send(OverlapResultMsg{
		Type:      MsgTypeOverlapResult,
		RequestID: req.RequestID,
		Pairs:     pairs,
	})
	return nil
}

func (h *RealtimeHandler) HandleStatsQuery(ctx context.Context, respond ResponseSender, msg Msg) error {
	var req StatsQueryMsg
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	stats := h.Footprints.Stats()

	respond.Send(StatsResultMsg{
		Type:       MsgTypeStatsResult,
		RequestID:  req.RequestID,
		Footprints: stats.Primitives,
		Nodes:      stats.Nodes,
		Depth:      stats.Depth,
		Grows:      stats.Grows,
		Min:        stats.Bounds.Min,
		Max:        stats.Bounds.Max,
	})
	return nil
}

func (h *RealtimeHandler) HandleDisconnect(_ error) {
}

func (h *RealtimeHandler) SendSyncClock(ctx context.Context, respond ResponseSender) error {
	respond.Send(SyncClockMsg{
		Type:      MsgTypeSyncClock,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

func (h *RealtimeHandler) Receiver() Receiver {
	return func() (Msg, int, error) {
		return Receive(h.conn)
	}
}

func (h *RealtimeHandler) Sender() Sender {
	return func(msg Msg) (int, error) {
		return Send(h.conn, msg)
	}
}

func (h *RealtimeHandler) Close() {
}

func (h *RealtimeHandler) SyncClockInterval() time.Duration {
	if h.ClientSyncClockInterval <= 0 {
		return defaultSyncClockInterval
	}
	return h.ClientSyncClockInterval
}

func (h *RealtimeHandler) IdleTimeout() time.Duration {
	if h.ClientIdleTimeout <= 0 {
		return defaultIdleTimeout
	}
	return h.ClientIdleTimeout
}

func (h *RealtimeHandler) ClientID() string {
	return h.clientID
}

func (h *RealtimeHandler) sendError(respond ResponseSender, requestID uint32, err error) {
	respond.Send(ErrorMsg{
		Type:      MsgTypeError,
		RequestID: requestID,
		Code:      errors.Type(err),
		Error:     err.Error(),
	})
}
