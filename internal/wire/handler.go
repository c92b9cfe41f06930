package wire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/matthewbaird/addrcascade/internal/address"
	"github.com/matthewbaird/addrcascade/internal/anncsu"
	"github.com/matthewbaird/addrcascade/internal/bindcfg"
	"github.com/matthewbaird/addrcascade/internal/cascade"
	"github.com/matthewbaird/addrcascade/internal/platform/logger"
	"github.com/matthewbaird/addrcascade/internal/session"
)

const (
	outboxSize   = 256
	writeTimeout = 10 * time.Second
)

var errNotAttached = errors.New("wire: no controller attached")

// Handler manages WebSocket connections for cascade sessions.
type Handler struct {
	sessions *session.Manager
	client   *anncsu.Client
	log      *logger.Logger
	clock    cascade.Clock
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithClock replaces the clock handed to controllers.
func WithClock(c cascade.Clock) HandlerOption {
	return func(h *Handler) { h.clock = c }
}

// NewHandler creates a WebSocket handler. Lookups go through client.
func NewHandler(sessions *session.Manager, client *anncsu.Client, log *logger.Logger, opts ...HandlerOption) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	h := &Handler{
		sessions: sessions,
		client:   client,
		log:      log,
		clock:    cascade.SystemClock,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// conn is the per-connection state of the message loop.
type conn struct {
	ws   *websocket.Conn
	sess *session.Session
	out  *outbox
	log  *logger.Logger

	// closeStatus is sent when the loop ends.
	closeStatus websocket.StatusCode
	closeReason string
}

// ServeHTTP upgrades to WebSocket and runs the message loop.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Error("wire: websocket accept", "error", err)
		return
	}
	defer ws.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := h.sessions.Create(ctx)
	defer h.sessions.Remove(sess.ID)

	c := &conn{
		ws:          ws,
		sess:        sess,
		out:         newOutbox(outboxSize),
		log:         h.log.WithSession(sess.ID),
		closeStatus: websocket.StatusNormalClosure,
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop(ctx)
		// A dead writer must not leave the loop blocked on a full outbox.
		c.out.close()
		cancel()
	}()

	// An evicted session ends the connection.
	go func() {
		select {
		case <-sess.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	c.out.send(ServerMessage{Type: TypeSession, Data: SessionData{SessionID: sess.ID}})
	h.readLoop(ctx, c)

	c.out.close()
	<-writerDone
	ws.Close(c.closeStatus, c.closeReason)
}

func (h *Handler) readLoop(ctx context.Context, c *conn) {
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, c.ws, &msg); err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				c.log.Debug("wire: connection closed", "status", status)
			}
			return
		}
		c.sess.Touch()

		switch msg.Type {
		case TypeAttach:
			if !h.handleAttach(ctx, c, msg) {
				return
			}
		case TypeSelect:
			var d SelectData
			if h.decode(c, msg, &d) {
				h.dispatch(ctx, c, msg.ID, func(ctrl *cascade.Controller) error { return ctrl.Select(d.Level, d.Value) })
			}
		case TypeInput:
			var d InputData
			if h.decode(c, msg, &d) {
				h.dispatch(ctx, c, msg.ID, func(ctrl *cascade.Controller) error { return ctrl.Input(d.Level, d.Text) })
			}
		case TypePick:
			var d PickData
			if h.decode(c, msg, &d) {
				h.dispatch(ctx, c, msg.ID, func(ctrl *cascade.Controller) error { return ctrl.Pick(d.Level, d.Key) })
			}
		case TypeDismiss:
			var d LevelData
			if h.decode(c, msg, &d) {
				h.dispatch(ctx, c, msg.ID, func(ctrl *cascade.Controller) error { return ctrl.Dismiss(d.Level) })
			}
		case TypeClear:
			var d LevelData
			if h.decode(c, msg, &d) {
				h.dispatch(ctx, c, msg.ID, func(ctrl *cascade.Controller) error { return ctrl.Clear(d.Level) })
			}
		case TypeState:
			h.dispatch(ctx, c, msg.ID, func(ctrl *cascade.Controller) error {
				c.out.send(ServerMessage{Type: TypeState, RequestID: msg.ID, Data: newStateData(ctrl.Snapshot())})
				return nil
			})
		case TypeDetails:
			var d DetailsRequest
			if h.decode(c, msg, &d) {
				go h.details(ctx, c, msg.ID, d.ID)
			}
		case TypePing:
			c.out.send(ServerMessage{Type: TypePong, RequestID: msg.ID})
		default:
			sendError(c, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

// handleAttach parses the binding configuration and configures the
// session's controller. A bad configuration is fatal to the connection; it
// reports false in that case.
func (h *Handler) handleAttach(ctx context.Context, c *conn, msg ClientMessage) bool {
	cfg, err := bindcfg.Parse(msg.Data)
	if err != nil {
		c.log.Warn("wire: rejected binding configuration", "error", err)
		h.failAttach(c, msg.ID, err)
		return false
	}

	var bound []BoundField
	cc, err := cfg.Controller(bindcfg.ResolverFunc(func(level address.Level, f bindcfg.Field) (bindcfg.Bound, error) {
		b := bindcfg.Bound{Field: newRemoteField(level, f.Ref, c.out)}
		if f.Output != "" {
			b.Output = &remoteOutput{level: level, ref: f.Output, out: c.out}
		}
		bound = append(bound, BoundField{Level: level, Ref: f.Ref, Output: f.Output})
		return b, nil
	}))
	if err != nil {
		h.failAttach(c, msg.ID, err)
		return false
	}
	for i, b := range cc.Bindings {
		bound[i].Modality = b.Modality.String()
	}

	source := h.client.Limited(cfg.MunicipalityLimit, cfg.StreetLimit)
	var cfgErr error
	err = c.sess.Loop.Do(ctx, func() {
		cfgErr = h.install(c, source, cc, msg.ID, bound)
	})
	switch {
	case err != nil:
		return false
	case errors.Is(cfgErr, session.ErrAttached):
		sendError(c, msg.ID, "already_attached", "a form is already attached to this session")
		return true
	case cfgErr != nil:
		h.failAttach(c, msg.ID, cfgErr)
		return false
	}
	c.log.Info("wire: form attached", "fields", len(bound))
	return true
}

// install builds, configures and attaches the session's controller, then
// acknowledges the attach. Nothing is attached or acknowledged when Configure
// fails. Must run on the session's loop.
func (h *Handler) install(c *conn, source cascade.Source, cc cascade.Config, requestID string, bound []BoundField) error {
	if c.sess.Controller() != nil {
		return session.ErrAttached
	}
	ctrl := cascade.NewController(c.sess.Context(), source, c.sess.Loop,
		cascade.WithClock(h.clock),
		cascade.WithLogger(c.log),
	)
	if err := ctrl.Configure(cc); err != nil {
		ctrl.Close()
		return err
	}
	if err := c.sess.Attach(ctrl); err != nil {
		ctrl.Close()
		return err
	}
	c.out.send(ServerMessage{Type: TypeAttached, RequestID: requestID, Data: AttachedData{Fields: bound}})
	return nil
}

// details answers an address-details request off the read loop so a slow
// upstream does not hold up cascade events.
func (h *Handler) details(ctx context.Context, c *conn, requestID, id string) {
	details := h.client.AddressDetails(ctx, id)
	c.out.send(ServerMessage{Type: TypeDetails, RequestID: requestID, Data: DetailsData{Details: details}})
}

func (h *Handler) failAttach(c *conn, requestID string, err error) {
	sendError(c, requestID, "config_error", err.Error())
	c.closeStatus = websocket.StatusPolicyViolation
	c.closeReason = "config_error"
}

// dispatch runs fn against the session's controller on its event loop and
// reports any error to the client.
func (h *Handler) dispatch(ctx context.Context, c *conn, requestID string, fn func(*cascade.Controller) error) {
	var ferr error
	err := c.sess.Loop.Do(ctx, func() {
		ctrl := c.sess.Controller()
		if ctrl == nil {
			ferr = errNotAttached
			return
		}
		ferr = fn(ctrl)
	})
	if err == nil {
		err = ferr
	}
	if err != nil {
		code := errorCode(err)
		c.log.Debug("wire: event rejected", "code", code, "error", err)
		sendError(c, requestID, code, err.Error())
	}
}

func (h *Handler) decode(c *conn, msg ClientMessage, v any) bool {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		sendError(c, msg.ID, "invalid_data", fmt.Sprintf("invalid %s data: %v", msg.Type, err))
		return false
	}
	return true
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, errNotAttached):
		return "not_attached"
	case errors.Is(err, cascade.ErrInvalidLevel):
		return "invalid_level"
	case errors.Is(err, cascade.ErrUnbound):
		return "unbound_level"
	case errors.Is(err, cascade.ErrModality):
		return "modality_mismatch"
	case errors.Is(err, cascade.ErrUnknownOption):
		return "unknown_option"
	case errors.Is(err, cascade.ErrClosed), errors.Is(err, cascade.ErrLoopStopped):
		return "closed"
	default:
		return "internal_error"
	}
}

func sendError(c *conn, requestID, code, message string) {
	c.out.send(ServerMessage{
		Type:      TypeError,
		RequestID: requestID,
		Data: ErrorData{
			Code:    code,
			Message: message,
		},
	})
}

// writeLoop drains the outbox to the socket. Once the outbox is closed it
// flushes what is queued and returns.
func (c *conn) writeLoop(ctx context.Context) {
	for {
		select {
		case msg := <-c.out.ch:
			if !c.write(ctx, msg) {
				return
			}
		case <-c.out.closed:
			for {
				select {
				case msg := <-c.out.ch:
					if !c.write(ctx, msg) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (c *conn) write(ctx context.Context, msg ServerMessage) bool {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(wctx, c.ws, msg); err != nil {
		c.log.Debug("wire: write error", "type", msg.Type, "error", err)
		return false
	}
	return true
}
