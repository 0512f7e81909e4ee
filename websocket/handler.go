package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"golang.org/x/net/websocket"
)

const (
	sendChanSize = 512
	msgChanSize  = 64
)

// Receiver receives the next message from a connection. It returns the
// message and its size in bytes.
type Receiver func() (Msg, int, error)

// Sender writes a message to a connection. It returns the written size in
// bytes.
type Sender func(Msg) (int, error)

// ResponseSender sends messages to the connected client.
type ResponseSender interface {
	// Encodes and sends the given payload.
	Send(payload any)

	// Sends an already encoded message.
	SendMsg(msg Msg)
}

// Handler represents an askr connection handler.
type Handler interface {
	// Handles a client connection.
	HandleConnect(conn *websocket.Conn)

	// Handles a ping request.
	HandlePing(ctx context.Context, respond ResponseSender, msg Msg) error

	// Handles a request to index a footprint.
	HandleFootprintAdd(ctx context.Context, respond ResponseSender, msg Msg) error

	// Handles a request for the footprints containing a point.
	HandlePointQuery(ctx context.Context, respond ResponseSender, msg Msg) error

	// Handles a request for the overlapping footprint pairs.
	HandleOverlapQuery(ctx context.Context, respond ResponseSender, msg Msg) error

	// Handles a request for index statistics.
	HandleStatsQuery(ctx context.Context, respond ResponseSender, msg Msg) error

	// Handles a client's disconnection.
	HandleDisconnect(error)

	// Sends a sync clock message to the client.
	SendSyncClock(ctx context.Context, send ResponseSender) error

	// Creates a message receiver used to receive incoming messages.
	Receiver() Receiver

	// Creates a message sender used to send messages.
	Sender() Sender

	// Closes the handler and releases its allocated resources.
	Close()

	// The interval between each sync clock message sent to the connected
	// client.
	SyncClockInterval() time.Duration

	// The time a client is idle before being disconnected.
	IdleTimeout() time.Duration

	// The id identifying the connected client.
	ClientID() string
}

// Handle serves the given connection with h until its context is canceled,
// the client idles out, or the connection fails.
func Handle(ctx context.Context, conn *websocket.Conn, h Handler) {
	handler := handler{
		Conn:    conn,
		Handler: h,
	}

	handler.Handle(ctx)
}

type handler struct {
	// The WebSocket connection.
	Conn *websocket.Conn

	// The connection handler.
	Handler Handler

	sendChan       chan Msg
	sender         Sender
	msgChan        chan Msg
	receiver       Receiver
	disconnectChan chan error
}

func (h *handler) Handle(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h.Handler.HandleConnect(h.Conn)

	h.disconnectChan = make(chan error, 8)
	defer func() {
		for len(h.disconnectChan) != 0 {
			<-h.disconnectChan
		}
	}()

	var wg sync.WaitGroup

	h.sendChan = make(chan Msg, sendChanSize)
	h.sender = h.Handler.Sender()

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.startSending(ctx)
	}()

	h.msgChan = make(chan Msg, msgChanSize)
	h.receiver = h.Handler.Receiver()

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.startReceiving(ctx)
	}()

	idleTimeout := h.Handler.IdleTimeout()
	idleTimer := time.NewTimer(idleTimeout)
	defer idleTimer.Stop()

	syncClockTicker := time.NewTicker(h.Handler.SyncClockInterval())
	defer syncClockTicker.Stop()

	var responder = responseSender{
		send:    h.send,
		sendMsg: h.sendMsg,
	}

	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
			h.disconnect(ctx.Err())

		case <-idleTimer.C:
			h.disconnect(errors.New("idle connection").WithTag("duration", h.Handler.IdleTimeout()))

		case <-syncClockTicker.C:
			if err := h.Handler.SendSyncClock(ctx, responder); err != nil {
				h.disconnect(errors.New("sending sync clock failed").Wrap(err))
			}

		case msg := <-h.msgChan:
			idleTimer.Stop()
			idleTimer.Reset(idleTimeout)

			if err := h.handleMessage(ctx, msg, responder); err != nil {
				h.disconnect(errors.New("handling message failed").Wrap(err))
			}

		case err := <-h.disconnectChan:
			h.handleDisconnect(err)
			if ctx.Err() == nil {
				// cancel context so go routines can cleanly exit
				cancel()
			}
		}
	}

	wg.Wait()
}

func (h *handler) send(payload any) {
	msg, err := msgFromPayload(payload)
	if err != nil {
		logs.WithTag("message", payload).
			WithTag("client_id", h.Handler.ClientID()).
			Debug(err)
		return
	}
	h.sendChan <- msg
}

func (h *handler) sendMsg(msg Msg) {
	h.sendChan <- msg
}

func (h *handler) startSending(ctx context.Context) {
	defer func() {
		for len(h.sendChan) != 0 {
			<-h.sendChan
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-h.sendChan:
			if _, err := h.sender(msg); err != nil {
				h.disconnect(errors.New("sending message failed").Wrap(err))
				return
			}
		}
	}
}

func (h *handler) startReceiving(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		default:
			msg, _, err := h.receiver()
			if err != nil {
				h.disconnect(errors.New("receiving message failed").Wrap(err))
				return
			}

			select {
			case h.msgChan <- msg:

			case <-ctx.Done():
				return
			}
		}
	}
}

func (h *handler) handleMessage(ctx context.Context, msg Msg, responder ResponseSender) error {
	switch msg.Type {
	case MsgTypePing:
		return h.Handler.HandlePing(ctx, responder, msg)

	case MsgTypeFootprintAdd:
		return h.Handler.HandleFootprintAdd(ctx, responder, msg)

	case MsgTypePointQuery:
		return h.Handler.HandlePointQuery(ctx, responder, msg)

	case MsgTypeOverlapQuery:
		return h.Handler.HandleOverlapQuery(ctx, responder, msg)

	case MsgTypeStatsQuery:
		return h.Handler.HandleStatsQuery(ctx, responder, msg)

	default:
		var probe struct {
			RequestID uint32 `json:"request_id"`
		}
		// Best effort, the error response echoes a request id when the
		// payload carries one.
		msg.DataTo(&probe)

		responder.Send(ErrorMsg{
			Type:      MsgTypeError,
			RequestID: probe.RequestID,
			Code:      ErrTypeUnknownMsg,
			Error:     "unknown message type: " + string(msg.Type),
		})
		return nil
	}
}

func (h *handler) disconnect(err error) {
	h.disconnectChan <- err
}

func (h *handler) handleDisconnect(err error) {
	h.Conn.Close()
	h.Handler.HandleDisconnect(err)
}

type responseSender struct {
	send    func(any)
	sendMsg func(Msg)
}

func (r responseSender) Send(payload any) {
	r.send(payload)
}

func (r responseSender) SendMsg(msg Msg) {
	r.sendMsg(msg)
}
