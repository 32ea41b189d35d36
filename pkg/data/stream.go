package data

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nicktill/tinyslice/pkg/config"
	"github.com/nicktill/tinyslice/pkg/httpx"
	"github.com/nicktill/tinyslice/pkg/telemetry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Same origin, or no Origin header (non-browser clients)
		return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
	},
	ReadBufferSize:  config.WSReadBufferSize,
	WriteBufferSize: config.WSWriteBufferSize,
}

// HandleDataStream handles GET /v1/data/ws. Every text message received is a
// query string; the response is streamed back as one text message. Failures
// are reported as a JSON error message and the connection stays open.
func (h *Handler) HandleDataStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	if t := h.opts.Telemetry; t != nil {
		t.StreamsActive.Inc()
		defer t.StreamsActive.Dec()
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// WriteControl may run concurrently with NextWriter
	go func() {
		ticker := time.NewTicker(config.WSPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(config.WSWriteDeadline)); err != nil {
					return
				}
			}
		}
	}()

	conn.SetReadLimit(config.WSMaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
	})

	base := requestURL(r, strings.TrimSuffix(r.URL.Path, "/ws"))
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
		if msgType != websocket.TextMessage {
			continue
		}

		if err := h.streamOne(ctx, conn, base, string(msg)); err != nil {
			log.Printf("WebSocket stream closed: %v", err)
			return
		}
	}
}

// streamOne answers one query. It returns an error only when the connection is unusable.
func (h *Handler) streamOne(ctx context.Context, conn *websocket.Conn, base *url.URL, query string) error {
	start := time.Now()

	q, err := url.ParseQuery(strings.TrimPrefix(query, "?"))
	if err != nil {
		return sendError(conn, http.StatusBadRequest, err)
	}
	req, err := h.Parse(q)
	if err != nil {
		return sendError(conn, http.StatusBadRequest, err)
	}

	qctx, cancel := context.WithTimeout(ctx, config.DataTimeout)
	defer cancel()

	u := *base
	u.RawQuery = q.Encode()
	data, err := h.Prepare(qctx, req, &u)
	if err != nil {
		return sendError(conn, statusFor(err), err)
	}

	conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
	mw, err := conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	cw := &telemetry.CountingWriter{W: mw}
	werr := data.Write(cw)
	if cerr := mw.Close(); werr == nil {
		werr = cerr
	}

	status := "ok"
	if werr != nil {
		status = "error"
	}
	h.observe(string(data.Format()), status, data.RowsWritten(), cw.N, start)
	return werr
}

func sendError(conn *websocket.Conn, status int, err error) error {
	body, merr := json.Marshal(httpx.NewErrorResponse(status, err.Error()))
	if merr != nil {
		return merr
	}
	conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
	return conn.WriteMessage(websocket.TextMessage, body)
}
