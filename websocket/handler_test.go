package websocket

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/aukilabs/askr/models"
	"github.com/aukilabs/askr/spatial"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func TestHandleDisconnectsIdleClient(t *testing.T) {
	conn, close := NewTestingEnv(t, newIdleTestHandler(t, time.Millisecond*150))
	defer close()

	conn.SetReadDeadline(time.Now().Add(time.Second * 5))

	for {
		var frame string
		if err := websocket.Message.Receive(conn, &frame); err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				t.Fatal("connection was not closed on idle timeout")
			}
			return
		}
	}
}

func TestHandleResetsIdleTimerOnMessage(t *testing.T) {
	conn, close := NewTestingEnv(t, newIdleTestHandler(t, time.Millisecond*300))
	defer close()

	deadline := time.Now().Add(time.Millisecond * 700)
	for time.Now().Before(deadline) {
		sendTestMsg(t, conn, PingMsg{Type: MsgTypePing})

		msg := receiveTestMsg(t, conn)
		require.Equal(t, MsgTypePong, msg.Type)

		time.Sleep(time.Millisecond * 100)
	}
}

func newIdleTestHandler(t *testing.T, idleTimeout time.Duration) func() Handler {
	bounds := spatial.BBox{
		Min: spatial.Vector{0, 0},
		Max: spatial.Vector{1, 1},
	}
	store, err := models.NewFootprintStore(bounds, spatial.DefaultMaxDepth)
	if err != nil {
		t.Fatal(err)
	}

	return func() Handler {
		return &RealtimeHandler{
			Footprints:              store,
			ClientSyncClockInterval: time.Minute,
			ClientIdleTimeout:       idleTimeout,
		}
	}
}
