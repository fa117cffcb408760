package httpx

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	domainauth "github.com/jobmatcher/jm-portal/internal/domain/auth"
)

const (
	eventsSubprotocol  = "jm.session.v1"
	eventsWriteTimeout = 5 * time.Second
	eventsPingInterval = 30 * time.Second
	eventsMaxReadBytes = 512
	sessionEventType   = "session"
)

// SessionEvent is one message on the session event stream.
type SessionEvent struct {
	Type    string      `json:"type"`
	Session SessionView `json:"session"`
}

// SessionEventsHandler streams the session read model over a websocket:
// once on connect, then after every change.
type SessionEventsHandler struct {
	Sessions       SessionController
	OriginPatterns []string
	Logger         *slog.Logger
}

func (h *SessionEventsHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// ServeHTTP handles GET /api/session/events.
func (h *SessionEventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{eventsSubprotocol},
		OriginPatterns: h.OriginPatterns,
	})
	if err != nil {
		h.logger().InfoContext(r.Context(), "ws.accept.fail", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()
	conn.SetReadLimit(eventsMaxReadBytes)

	// The client never sends anything; CloseRead handles control frames and
	// cancels ctx once the peer goes away.
	ctx := conn.CloseRead(r.Context())

	// Subscribers run inside the session mutation, so this one only keeps the
	// latest snapshot and never blocks.
	updates := make(chan domainauth.Session, 1)
	unsubscribe := h.Sessions.Subscribe(func(s domainauth.Session) {
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- s:
		default:
		}
	})
	defer unsubscribe()

	if err := writeSessionEvent(ctx, conn, h.Sessions.Current()); err != nil {
		h.logger().InfoContext(ctx, "ws.write.fail", "error", err)
		return
	}

	ping := time.NewTicker(eventsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case s := <-updates:
			if err := writeSessionEvent(ctx, conn, s); err != nil {
				h.logger().InfoContext(ctx, "ws.write.fail", "close_status", websocket.CloseStatus(err), "error", err)
				return
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, eventsWriteTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				h.logger().InfoContext(ctx, "ws.ping.fail", "error", err)
				return
			}
		}
	}
}

func writeSessionEvent(ctx context.Context, conn *websocket.Conn, s domainauth.Session) error {
	b, err := json.Marshal(SessionEvent{Type: sessionEventType, Session: NewSessionView(s)})
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, eventsWriteTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, b)
}
