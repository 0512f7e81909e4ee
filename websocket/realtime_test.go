package websocket

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/aukilabs/askr/featureflag"
	"github.com/aukilabs/askr/models"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func TestRealtimeHandlerPing(t *testing.T) {
	conn, close := NewTestingEnv(t, newTestHandler(t))
	defer close()

	sendTestMsg(t, conn, PingMsg{
		Type:      MsgTypePing,
		RequestID: 7,
	})

	msg := receiveTestMsg(t, conn)
	require.Equal(t, MsgTypePong, msg.Type)

	var pong PongMsg
	require.NoError(t, msg.DataTo(&pong))
	require.Equal(t, uint32(7), pong.RequestID)
}

func TestRealtimeHandlerFootprintAdd(t *testing.T) {
	conn, close := NewTestingEnv(t, newTestHandler(t))
	defer close()

	square := [][]float64{{0, 0}, {0, 1}, {1, 1}, {1, 0}}

	sendTestMsg(t, conn, FootprintAddMsg{
		Type:      MsgTypeFootprintAdd,
		RequestID: 1,
		ID:        "hall",
		Corners:   square,
	})

	msg := receiveTestMsg(t, conn)
	require.Equal(t, MsgTypeFootprintAdded, msg.Type)

	var added FootprintAddedMsg
	require.NoError(t, msg.DataTo(&added))
	require.Equal(t, uint32(1), added.RequestID)
	require.Equal(t, "hall", added.ID)

	t.Run("duplicate id is rejected", func(t *testing.T) {
		sendTestMsg(t, conn, FootprintAddMsg{
			Type:      MsgTypeFootprintAdd,
			RequestID: 2,
			ID:        "hall",
			Corners:   square,
		})

		msg := receiveTestMsg(t, conn)
		require.Equal(t, MsgTypeError, msg.Type)

		var fail ErrorMsg
		require.NoError(t, msg.DataTo(&fail))
		require.Equal(t, uint32(2), fail.RequestID)
		require.Equal(t, models.ErrTypeDuplicateFootprint, fail.Code)
	})

	t.Run("invalid corners are rejected", func(t *testing.T) {
		sendTestMsg(t, conn, FootprintAddMsg{
			Type:      MsgTypeFootprintAdd,
			RequestID: 3,
			Corners:   [][]float64{{0, 0}, {1, 1}},
		})

		msg := receiveTestMsg(t, conn)
		require.Equal(t, MsgTypeError, msg.Type)

		var fail ErrorMsg
		require.NoError(t, msg.DataTo(&fail))
		require.Equal(t, uint32(3), fail.RequestID)
		require.Equal(t, models.ErrTypeInvalidFootprint, fail.Code)
	})

	t.Run("missing id is generated", func(t *testing.T) {
		sendTestMsg(t, conn, FootprintAddMsg{
			Type:      MsgTypeFootprintAdd,
			RequestID: 4,
			Corners:   [][]float64{{2, 2}, {2, 3}, {3, 3}, {3, 2}},
		})

		msg := receiveTestMsg(t, conn)
		require.Equal(t, MsgTypeFootprintAdded, msg.Type)

		var added FootprintAddedMsg
		require.NoError(t, msg.DataTo(&added))
		require.Equal(t, uint32(4), added.RequestID)
		require.NotEmpty(t, added.ID)
	})
}

func TestRealtimeHandlerPointQuery(t *testing.T) {
	conn, close := NewTestingEnv(t, newTestHandler(t))
	defer close()

	sendTestMsg(t, conn, FootprintAddMsg{
		Type:    MsgTypeFootprintAdd,
		ID:      "hall",
		Corners: [][]float64{{0, 0}, {0, 1}, {1, 1}, {1, 0}},
	})
	msg := receiveTestMsg(t, conn)
	require.Equal(t, MsgTypeFootprintAdded, msg.Type)

	sendTestMsg(t, conn, PointQueryMsg{
		Type:      MsgTypePointQuery,
		RequestID: 1,
		Point:     []float64{0.5, 0.5},
	})

	msg = receiveTestMsg(t, conn)
	require.Equal(t, MsgTypePointResult, msg.Type)

	var res PointResultMsg
	require.NoError(t, msg.DataTo(&res))
	require.Equal(t, uint32(1), res.RequestID)
	require.Equal(t, []string{"hall"}, res.IDs)

	t.Run("uncovered point yields no ids", func(t *testing.T) {
		sendTestMsg(t, conn, PointQueryMsg{
			Type:      MsgTypePointQuery,
			RequestID: 2,
			Point:     []float64{12, 12},
		})

		msg := receiveTestMsg(t, conn)
		require.Equal(t, MsgTypePointResult, msg.Type)

		var res PointResultMsg
		require.NoError(t, msg.DataTo(&res))
		require.Empty(t, res.IDs)
	})

	t.Run("dimension mismatch is rejected", func(t *testing.T) {
		sendTestMsg(t, conn, PointQueryMsg{
			Type:      MsgTypePointQuery,
			RequestID: 3,
			Point:     []float64{0.5},
		})

		msg := receiveTestMsg(t, conn)
		require.Equal(t, MsgTypeError, msg.Type)

		var fail ErrorMsg
		require.NoError(t, msg.DataTo(&fail))
		require.Equal(t, uint32(3), fail.RequestID)
		require.Equal(t, ErrTypeBadPayload, fail.Code)
	})
}

func TestRealtimeHandlerOverlapQuery(t *testing.T) {
	conn, close := NewTestingEnv(t, newTestHandler(t))
	defer close()

	footprints := []FootprintAddMsg{
		{Type: MsgTypeFootprintAdd, ID: "a", Corners: [][]float64{{0, 0}, {0, 2}, {2, 2}, {2, 0}}},
		{Type: MsgTypeFootprintAdd, ID: "b", Corners: [][]float64{{1, 1}, {1, 3}, {3, 3}, {3, 1}}},
		{Type: MsgTypeFootprintAdd, ID: "c", Corners: [][]float64{{5, 5}, {5, 6}, {6, 6}, {6, 5}}},
	}
	for _, f := range footprints {
		sendTestMsg(t, conn, f)
		msg := receiveTestMsg(t, conn)
		require.Equal(t, MsgTypeFootprintAdded, msg.Type)
	}

	sendTestMsg(t, conn, OverlapQueryMsg{
		Type:      MsgTypeOverlapQuery,
		RequestID: 1,
	})

	msg := receiveTestMsg(t, conn)
	require.Equal(t, MsgTypeOverlapResult, msg.Type)

	var res OverlapResultMsg
	require.NoError(t, msg.DataTo(&res))
	require.Equal(t, uint32(1), res.RequestID)
	require.Len(t, res.Pairs, 1)
	require.ElementsMatch(t,
		[]string{"a", "b"},
		[]string{res.Pairs[0].A, res.Pairs[0].B},
	)
}

func TestRealtimeHandlerOverlapQueryDisabled(t *testing.T) {
	conn, close := NewTestingEnv(t, newTestHandler(t, featureflag.FlagDisableOverlapScan))
	defer close()

	sendTestMsg(t, conn, OverlapQueryMsg{
		Type:      MsgTypeOverlapQuery,
		RequestID: 1,
	})

	msg := receiveTestMsg(t, conn)
	require.Equal(t, MsgTypeError, msg.Type)

	var fail ErrorMsg
	require.NoError(t, msg.DataTo(&fail))
	require.Equal(t, uint32(1), fail.RequestID)
	require.Equal(t, ErrTypeScanDisabled, fail.Code)
}

func TestRealtimeHandlerStatsQuery(t *testing.T) {
	conn, close := NewTestingEnv(t, newTestHandler(t))
	defer close()

	sendTestMsg(t, conn, FootprintAddMsg{
		Type:    MsgTypeFootprintAdd,
		ID:      "hall",
		Corners: [][]float64{{0, 0}, {0, 1}, {1, 1}, {1, 0}},
	})
	msg := receiveTestMsg(t, conn)
	require.Equal(t, MsgTypeFootprintAdded, msg.Type)

	sendTestMsg(t, conn, StatsQueryMsg{
		Type:      MsgTypeStatsQuery,
		RequestID: 1,
	})

	msg = receiveTestMsg(t, conn)
	require.Equal(t, MsgTypeStatsResult, msg.Type)

	var res StatsResultMsg
	require.NoError(t, msg.DataTo(&res))
	require.Equal(t, uint32(1), res.RequestID)
	require.Equal(t, 1, res.Footprints)
	require.Equal(t, 1, res.Nodes)
	require.Equal(t, 0, res.Depth)
	require.Equal(t, 0, res.Grows)
	require.Equal(t, []float64{0, 0}, res.Min)
	require.Equal(t, []float64{1, 1}, res.Max)
}

func TestRealtimeHandlerUnknownMsg(t *testing.T) {
	conn, close := NewTestingEnv(t, newTestHandler(t))
	defer close()

	sendTestMsg(t, conn, struct {
		Type      string `json:"type"`
		RequestID uint32 `json:"request_id"`
	}{
		Type:      "bogus",
		RequestID: 9,
	})

	msg := receiveTestMsg(t, conn)
	require.Equal(t, MsgTypeError, msg.Type)

	var fail ErrorMsg
	require.NoError(t, msg.DataTo(&fail))
	require.Equal(t, uint32(9), fail.RequestID)
	require.Equal(t, ErrTypeUnknownMsg, fail.Code)
}

func TestRealtimeHandlerSyncClock(t *testing.T) {
	conn, close := NewTestingEnv(t, newTestHandler(t))
	defer close()

	conn.SetReadDeadline(time.Now().Add(time.Second * 5))

	for {
		var frame string
		require.NoError(t, websocket.Message.Receive(conn, &frame))

		var msg SyncClockMsg
		require.NoError(t, json.Unmarshal([]byte(frame), &msg))
		if msg.Type != MsgTypeSyncClock {
			continue
		}

		require.False(t, msg.Timestamp.IsZero())
		return
	}
}

func TestRealtimeHandlerBadPayloadDisconnects(t *testing.T) {
	conn, close := NewTestingEnv(t, newTestHandler(t))
	defer close()

	sendTestMsg(t, conn, struct {
		Type  string `json:"type"`
		Point string `json:"point"`
	}{
		Type:  string(MsgTypePointQuery),
		Point: "not a point",
	})

	conn.SetReadDeadline(time.Now().Add(time.Second * 5))

	for {
		var frame string
		err := websocket.Message.Receive(conn, &frame)
		if err == nil {
			continue
		}

		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			t.Fatal("connection was not closed")
		}
		return
	}
}
