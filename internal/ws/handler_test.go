package ws

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"countcam/internal/metrics"
	"countcam/internal/registry"
)

type wsFixture struct {
	registry *registry.Registry
	metrics  *metrics.Metrics
	server   *httptest.Server
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	reg := registry.New(0)
	m := metrics.New(nil)
	ts := httptest.NewServer(NewHandler(reg, m))
	t.Cleanup(ts.Close)
	return &wsFixture{registry: reg, metrics: m, server: ts}
}

func (f *wsFixture) dial(t *testing.T, clientID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	if clientID != "" {
		url += "?client_id=" + clientID
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg map[string]interface{}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
	return msg
}

func pngFrame(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 24, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 24; x++ {
			img.Set(x, y, color.RGBA{200, 200, 200, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestConnectSendsStatusAndRegisters(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, "c1")

	msg := readMessage(t, conn)
	if msg["type"] != "status" || msg["status"] != "connected" {
		t.Fatalf("unexpected hello message: %v", msg)
	}
	if msg["client_id"] != "c1" {
		t.Fatalf("client_id = %v, want c1", msg["client_id"])
	}
	if f.registry.Len() != 1 {
		t.Fatalf("registry len = %d, want 1", f.registry.Len())
	}
}

func TestConnectAssignsIDWhenMissing(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, "")

	msg := readMessage(t, conn)
	id, _ := msg["client_id"].(string)
	if id == "" {
		t.Fatal("no client id assigned")
	}
	if _, ok := f.registry.Lookup(id); !ok {
		t.Fatal("assigned client not registered")
	}
}

func TestFrameRoundtrip(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, "c1")
	readMessage(t, conn) // status

	frame := FrameMessage{Type: "frame", Image: pngFrame(t)}
	if err := conn.WriteJSON(frame); err != nil {
		t.Fatalf("write: %v", err)
	}

	msg := readMessage(t, conn)
	if msg["type"] != "processed_frame" {
		t.Fatalf("type = %v, want processed_frame", msg["type"])
	}
	if msg["processing_enabled"] != false {
		t.Fatalf("processing_enabled = %v, want false", msg["processing_enabled"])
	}
	if msg["count"] != float64(0) {
		t.Fatalf("count = %v, want 0", msg["count"])
	}
	if _, present := msg["histogram"]; present {
		t.Fatal("histogram present with detection disabled")
	}
	img, _ := msg["processed_image"].(string)
	if img == "" {
		t.Fatal("processed_image missing")
	}
	if _, err := base64.StdEncoding.DecodeString(img); err != nil {
		t.Fatalf("processed_image not base64: %v", err)
	}
	if got := f.metrics.FramesProcessed.Load(); got != 1 {
		t.Fatalf("frames processed = %d, want 1", got)
	}
}

func TestDetectionEnabledRecordsCounts(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, "c1")
	readMessage(t, conn) // status

	client := f.registry.Resolve("c1")
	client.Session.Start(time.Now())
	client.Processor.EnableDetection()

	if err := conn.WriteJSON(FrameMessage{Type: "frame", Image: pngFrame(t)}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := readMessage(t, conn)
	if msg["processing_enabled"] != true {
		t.Fatalf("processing_enabled = %v, want true", msg["processing_enabled"])
	}

	_, avg := client.Session.Stop()
	if avg != float64(int(msg["count"].(float64))) {
		t.Fatalf("session avg %v does not match frame count %v", avg, msg["count"])
	}
}

func TestBadFrameReturnsError(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, "c1")
	readMessage(t, conn) // status

	if err := conn.WriteJSON(FrameMessage{Type: "frame", Image: "%%%"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := readMessage(t, conn)
	if msg["type"] != "error" {
		t.Fatalf("type = %v, want error", msg["type"])
	}
	if got := f.metrics.DecodeErrors.Load(); got != 1 {
		t.Fatalf("decode errors = %d, want 1", got)
	}
}

func TestDisconnectEvictsClient(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, "c1")
	readMessage(t, conn) // status

	conn.Close()

	deadline := time.After(2 * time.Second)
	for f.registry.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("client not evicted after disconnect")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
