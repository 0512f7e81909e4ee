package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aukilabs/askr/featureflag"
	"github.com/aukilabs/askr/models"
	"github.com/aukilabs/askr/spatial"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

// NewTestingEnv creates a testing environement to unit test handlers.
func NewTestingEnv(t *testing.T, newHandler func() Handler) (*websocket.Conn, func()) {
	var mutex sync.Mutex
	logger := t.Log

	logs.Encoder = func(v any) ([]byte, error) {
		return json.MarshalIndent(v, "", "  ")
	}

	logs.SetLogger(func(e logs.Entry) {
		mutex.Lock()
		defer mutex.Unlock()

		if logger != nil {
			logger(e)
		}
	})

	client, close := newTestingEnv(t, newHandler)
	return client, func() {
		mutex.Lock()
		defer mutex.Unlock()
		logger = nil
		close()
	}
}

func newTestingEnv(t *testing.T, newHandler func() Handler) (*websocket.Conn, func()) {
	server := httptest.NewServer(websocket.Server{
		Handshake: func(c *websocket.Config, r *http.Request) error {
			return nil
		},
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			handler := newHandler()
			defer handler.Close()

			Handle(context.Background(), conn, handler)
		},
	})

	config, err := websocket.NewConfig(
		strings.ReplaceAll(server.URL, "http://", "ws://"),
		"http://localhost",
	)
	if err != nil {
		t.Fatalf("error initializing web socket: %s", err)
	}

	conn, err := websocket.DialConfig(config)
	if err != nil {
		t.Fatalf("error dialing web socket: %s", err)
	}

	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func newTestHandler(t *testing.T, flags ...featureflag.Flag) func() Handler {
	bounds := spatial.BBox{
		Min: spatial.Vector{0, 0},
		Max: spatial.Vector{1, 1},
	}
	store, err := models.NewFootprintStore(bounds, spatial.DefaultMaxDepth)
	if err != nil {
		t.Fatal(err)
	}

	names := make([]string, len(flags))
	for i, f := range flags {
		names[i] = string(f)
	}

	return func() Handler {
		var h Handler = &RealtimeHandler{
			Footprints:              store,
			ClientSyncClockInterval: time.Millisecond * 250,
			ClientIdleTimeout:       time.Minute,
			FeatureFlags:            featureflag.New(names),
		}

		h = HandlerWithLogs(h, time.Millisecond*100)
		h = HandlerWithMetrics(h, "https://askr-test.com")
		return h
	}
}

func sendTestMsg(t *testing.T, conn *websocket.Conn, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("error encoding message: %s", err)
	}

	if err := websocket.Message.Send(conn, string(data)); err != nil {
		t.Fatalf("error sending message: %s", err)
	}
}

// receiveTestMsg returns the next message received on conn, skipping the
// sync clock messages the server pushes on its own.
func receiveTestMsg(t *testing.T, conn *websocket.Conn) Msg {
	conn.SetReadDeadline(time.Now().Add(time.Second * 5))

	for {
		var frame string
		if err := websocket.Message.Receive(conn, &frame); err != nil {
			t.Fatalf("error receiving message: %s", err)
		}

		var probe msgProbe
		if err := json.Unmarshal([]byte(frame), &probe); err != nil {
			t.Fatalf("error decoding message: %s", err)
		}

		if probe.Type == MsgTypeSyncClock {
			continue
		}
		return Msg{Type: probe.Type, Data: []byte(frame)}
	}
}
