// Package ws carries the frame channel between browser and server: one
// websocket per client, frames in, processed results out. Results only ever
// go back to the connection the frame came from.
package ws

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"countcam/internal/metrics"
	"countcam/internal/registry"
)

const (
	// CookieName stores the client id across websocket and control requests.
	CookieName = "countcam_client"

	readTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
	// Base64 JPEG webcam frames run large.
	maxFrameBytes = 4 * 1024 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 256 * 1024, // 256KB for base64 encoded JPEG frames
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for development
		return true
	},
}

// Handler upgrades frame-channel connections and runs their read loop.
type Handler struct {
	registry *registry.Registry
	metrics  *metrics.Metrics
}

// NewHandler creates a websocket frame handler.
func NewHandler(reg *registry.Registry, m *metrics.Metrics) *Handler {
	return &Handler{registry: reg, metrics: m}
}

// ServeHTTP handles websocket upgrade requests on /ws. The client id comes
// from the session cookie or the client_id query parameter; a fresh id is
// assigned (and set as a cookie) when neither is present.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientID := clientIDFromRequest(r)

	var respHeader http.Header
	if clientID == "" {
		clientID = uuid.New().String()
		cookie := &http.Cookie{Name: CookieName, Value: clientID, Path: "/"}
		respHeader = http.Header{"Set-Cookie": {cookie.String()}}
	}

	conn, err := upgrader.Upgrade(w, r, respHeader)
	if err != nil {
		fmt.Printf("[WS] upgrade error: %v\n", err)
		return
	}

	fmt.Printf("[WS] client %s connected from %s\n", clientID, r.RemoteAddr)
	h.registry.Resolve(clientID)

	cc := &clientConn{conn: conn}
	if err := cc.writeJSON(StatusMessage{Type: "status", Status: "connected", ClientID: clientID}); err != nil {
		fmt.Printf("[WS] status write error for client %s: %v\n", clientID, err)
		cc.close()
		h.registry.Evict(clientID)
		return
	}

	go h.readPump(clientID, cc)
}

// readPump reads frame messages until the connection drops, then evicts the
// client from the registry.
func (h *Handler) readPump(clientID string, cc *clientConn) {
	defer func() {
		h.registry.Evict(clientID)
		cc.close()
		fmt.Printf("[WS] client %s disconnected\n", clientID)
	}()

	cc.conn.SetReadLimit(maxFrameBytes)
	cc.conn.SetReadDeadline(time.Now().Add(readTimeout))
	cc.conn.SetPongHandler(func(string) error {
		cc.conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := cc.ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, data, err := cc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				fmt.Printf("[WS] read error for client %s: %v\n", clientID, err)
			}
			return
		}
		cc.conn.SetReadDeadline(time.Now().Add(readTimeout))

		var msg FrameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			cc.writeJSON(ErrorMessage{Type: "error", Error: "malformed message"})
			continue
		}
		if msg.Image == "" {
			continue
		}
		h.handleFrame(clientID, cc, msg.Image)
	}
}

// handleFrame runs one frame through the client's processor and writes the
// result back on the same connection. Skipped frames produce no reply.
func (h *Handler) handleFrame(clientID string, cc *clientConn, payload string) {
	client := h.registry.Resolve(clientID)

	res, err := client.Processor.SubmitFrame(payload)
	if err != nil {
		h.metrics.DecodeErrors.Add(1)
		fmt.Printf("[WS] frame error for client %s: %v\n", clientID, err)
		cc.writeJSON(ErrorMessage{Type: "error", Error: err.Error()})
		return
	}
	if res.Skipped {
		h.metrics.FramesSkipped.Add(1)
		return
	}
	h.metrics.FramesProcessed.Add(1)

	// The count joins the session only if detection was enabled when the
	// transform ran, which is exactly what the result reports.
	if res.Enabled {
		client.Session.RecordCount(res.Count)
	}

	out := ResultMessage{
		Type:              "processed_frame",
		ProcessedImage:    base64.StdEncoding.EncodeToString(res.Image),
		ProcessingEnabled: res.Enabled,
		Count:             res.Count,
	}
	if res.Histogram != nil {
		out.Histogram = base64.StdEncoding.EncodeToString(res.Histogram)
		threshold := res.Threshold
		out.Threshold = &threshold
	}
	if err := cc.writeJSON(out); err != nil {
		fmt.Printf("[WS] result write error for client %s: %v\n", clientID, err)
	}
}

// clientIDFromRequest pulls the client id from the query string or the
// session cookie.
func clientIDFromRequest(r *http.Request) string {
	if id := r.URL.Query().Get("client_id"); id != "" {
		return id
	}
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}
