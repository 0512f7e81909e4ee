package websocket

import (
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestMsgFromPayload(t *testing.T) {
	msg, err := msgFromPayload(PingMsg{
		Type:      MsgTypePing,
		RequestID: 42,
	})
	require.NoError(t, err)
	require.Equal(t, MsgTypePing, msg.Type)
	require.NotEmpty(t, msg.Data)

	_, err = msgFromPayload(struct {
		Name string `json:"name"`
	}{
		Name: "untyped",
	})
	require.Error(t, err)
}

func TestMsgDataTo(t *testing.T) {
	msg := Msg{
		Type: MsgTypePing,
		Data: []byte(`{"type":"ping","request_id":3}`),
	}

	var ping PingMsg
	require.NoError(t, msg.DataTo(&ping))
	require.Equal(t, MsgTypePing, ping.Type)
	require.Equal(t, uint32(3), ping.RequestID)

	bad := Msg{
		Type: MsgTypePointQuery,
		Data: []byte(`{"type":"point_query","point":"oops"}`),
	}

	var query PointQueryMsg
	err := bad.DataTo(&query)
	require.Error(t, err)
	require.True(t, errors.IsType(err, ErrTypeBadPayload))
}
