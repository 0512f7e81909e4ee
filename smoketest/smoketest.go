package smoketest

import (
	"context"
	"net/http"
	"net/url"
	"time"

	awebsocket "github.com/aukilabs/askr/websocket"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

// DefaultTimeout is the time budget for a smoke test run when none is set.
const DefaultTimeout = time.Second * 10

// Options configure a smoke test run against a running server.
type Options struct {
	// The endpoint of the server under test.
	Endpoint string

	// The time budget for the whole run.
	Timeout time.Duration
}

// Results describe a completed smoke test run. The probes are read-only:
// they never index a footprint on the server under test.
type Results struct {
	Endpoint    string        `json:"endpoint"`
	Passed      bool          `json:"passed"`
	Error       string        `json:"error,omitempty"`
	PingLatency time.Duration `json:"ping_latency"`
	Duration    time.Duration `json:"duration"`
}

// Run performs a scripted exchange against the server at opts.Endpoint: a
// ping, a stats query, and a point query at the indexed region center.
func Run(ctx context.Context, opts Options) Results {
	start := time.Now()

	res := Results{Endpoint: opts.Endpoint}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := run(ctx, opts.Endpoint, &res)
	if err != nil {
		res.Error = err.Error()
	}
	res.Passed = err == nil
	res.Duration = time.Since(start)
	return res
}

func run(ctx context.Context, endpoint string, res *Results) error {
	wsEndpoint, err := toWebSocketEndpoint(endpoint)
	if err != nil {
		return err
	}

	conn, err := websocket.Dial(wsEndpoint, "", "http://localhost")
	if err != nil {
		return errors.New("dialing server failed").
			WithTag("endpoint", wsEndpoint).
			Wrap(err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	pingStart := time.Now()
	if err := send(conn, awebsocket.PingMsg{
		Type:      awebsocket.MsgTypePing,
		RequestID: 1,
	}); err != nil {
		return err
	}
	if _, err := await(conn, awebsocket.MsgTypePong); err != nil {
		return errors.New("ping failed").Wrap(err)
	}
	res.PingLatency = time.Since(pingStart)

	if err := send(conn, awebsocket.StatsQueryMsg{
		Type:      awebsocket.MsgTypeStatsQuery,
		RequestID: 2,
	}); err != nil {
		return err
	}
	msg, err := await(conn, awebsocket.MsgTypeStatsResult)
	if err != nil {
		return errors.New("stats query failed").Wrap(err)
	}

	var stats awebsocket.StatsResultMsg
	if err := msg.DataTo(&stats); err != nil {
		return err
	}
	if stats.Nodes < 1 {
		return errors.New("index reports no nodes")
	}

	center := make([]float64, len(stats.Min))
	for i := range center {
		center[i] = stats.Min[i] + (stats.Max[i]-stats.Min[i])/2
	}

	if err := send(conn, awebsocket.PointQueryMsg{
		Type:      awebsocket.MsgTypePointQuery,
		RequestID: 3,
		Point:     center,
	}); err != nil {
		return err
	}
	if _, err := await(conn, awebsocket.MsgTypePointResult); err != nil {
		return errors.New("point query failed").Wrap(err)
	}

	return nil
}

// Handle returns a handler that runs a smoke test against endpoint and
// responds with the results.
func Handle(endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		res := Run(r.Context(), Options{Endpoint: endpoint})
		if !res.Passed {
			logs.WithTag("endpoint", endpoint).
				WithTag("error", res.Error).
				Warn("smoke test failed")
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(res); err != nil {
			logs.Error(errors.New("encoding smoke test results failed").Wrap(err))
		}
	}
}

func send(conn *websocket.Conn, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.New("encoding message failed").Wrap(err)
	}

	if err := websocket.Message.Send(conn, string(data)); err != nil {
		return errors.New("sending message failed").Wrap(err)
	}
	return nil
}

// await returns the next message of the wanted type, skipping unrelated
// messages such as sync clocks. A server error response fails the wait.
func await(conn *websocket.Conn, msgType awebsocket.MsgType) (awebsocket.Msg, error) {
	for {
		msg, _, err := awebsocket.Receive(conn)
		if err != nil {
			return awebsocket.Msg{}, err
		}

		switch msg.Type {
		case msgType:
			return msg, nil

		case awebsocket.MsgTypeError:
			var fail awebsocket.ErrorMsg
			if err := msg.DataTo(&fail); err != nil {
				return awebsocket.Msg{}, err
			}
			return awebsocket.Msg{}, errors.New("server returned an error").
				WithTag("code", fail.Code).
				WithTag("error", fail.Error)
		}
	}
}

func toWebSocketEndpoint(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", errors.New("parsing endpoint failed").
			WithTag("endpoint", endpoint).
			Wrap(err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.New("unsupported endpoint scheme").
			WithTag("endpoint", endpoint).
			WithTag("scheme", u.Scheme)
	}
	return u.String(), nil
}
