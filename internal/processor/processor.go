// Package processor holds the per-client frame pipeline: decode, transform,
// annotate and re-encode a single webcam frame at a time. A frame arriving
// while the previous one is still in flight is dropped, never queued.
package processor

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"strings"
	"sync"
	"sync/atomic"

	_ "image/png" // browsers occasionally send PNG captures

	"countcam/internal/vision"
)

const (
	// streamQuality bounds the payload size of per-frame responses.
	streamQuality = 80
	// snapshotQuality is used for the record image taken when a session stops.
	snapshotQuality = 95
	// histogramRefreshInterval is the number of accepted frames between
	// diagnostic histogram recomputations.
	histogramRefreshInterval = 5
	// skipLogInterval throttles the dropped-frame diagnostic line.
	skipLogInterval = 30
)

// Result is the outcome of one frame submission. When Skipped is true no
// other field is populated and nothing should be sent back to the client.
// Histogram and Threshold are only set when detection was enabled and a
// diagnostic histogram has been computed.
type Result struct {
	Skipped   bool
	Image     []byte // JPEG, re-encoded at reduced quality
	Enabled   bool
	Count     int
	Histogram []byte // JPEG, nil when absent
	Threshold int    // valid only when Histogram is non-nil
}

// FrameProcessor processes the frame stream of a single client. It is safe
// for concurrent use: overlapping SubmitFrame calls are shed via the busy
// lock, and the detection flag may be toggled from the control path at any
// time.
type FrameProcessor struct {
	// busy is held for the duration of one SubmitFrame call. The state
	// below the mutexes is only touched while busy is held.
	busy sync.Mutex

	mu      sync.RWMutex
	enabled bool

	skipped atomic.Int64

	lastGray      *image.Gray
	lastProcessed *image.RGBA
	threshold     int
	histRefresh   int
	histogram     []byte
}

// New creates a frame processor with detection disabled.
func New() *FrameProcessor {
	return &FrameProcessor{}
}

// EnableDetection turns the transform on. Counters and cached state are
// left untouched.
func (p *FrameProcessor) EnableDetection() {
	p.mu.Lock()
	p.enabled = true
	p.mu.Unlock()
}

// DisableDetection turns the transform off.
func (p *FrameProcessor) DisableDetection() {
	p.mu.Lock()
	p.enabled = false
	p.mu.Unlock()
}

// DetectionEnabled reports whether the transform currently runs.
func (p *FrameProcessor) DetectionEnabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.enabled
}

// SkippedCount returns the number of frames dropped because a previous frame
// was still being processed.
func (p *FrameProcessor) SkippedCount() int64 {
	return p.skipped.Load()
}

// SubmitFrame processes one base64 (optionally data-URL) encoded frame. If a
// previous frame is still in flight the frame is dropped and a Skipped result
// returned immediately. Decode failures are returned as errors and leave the
// processor usable for the next frame.
func (p *FrameProcessor) SubmitFrame(payload string) (*Result, error) {
	if !p.busy.TryLock() {
		n := p.skipped.Add(1)
		if n%skipLogInterval == 0 {
			fmt.Printf("[PROC] dropping frame, %d skipped so far\n", n)
		}
		return &Result{Skipped: true}, nil
	}
	defer p.busy.Unlock()

	frame, err := decodeFrame(payload)
	if err != nil {
		return nil, err
	}

	// Resize step kept as a same-size copy; output dimensions always equal
	// input dimensions.
	out := vision.CloneRGBA(frame)
	p.lastGray = vision.Grayscale(frame)

	enabled := p.DetectionEnabled()
	count := 0
	if enabled {
		count = p.transform(out)
	}
	p.lastProcessed = out

	encoded, err := encodeJPEG(out, streamQuality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}

	res := &Result{
		Image:   encoded,
		Enabled: enabled,
		Count:   count,
	}
	if enabled && p.histogram != nil {
		res.Histogram = p.histogram
		res.Threshold = p.threshold
	}
	return res, nil
}

// transform binarizes the cached grayscale frame with an automatic threshold,
// draws a bounding box around every external contour and overlays the count.
// Every histogramRefreshInterval-th accepted frame the diagnostic histogram
// is recomputed; frames in between reuse the cached one.
func (p *FrameProcessor) transform(out *image.RGBA) int {
	hist := vision.Histogram(p.lastGray)
	p.threshold = vision.OtsuThreshold(hist)
	mask := vision.BinarizeInv(p.lastGray, p.threshold)
	rects := vision.FindExternalContours(mask)

	for _, r := range rects {
		vision.DrawBox(out, r, vision.BoxColor, 2)
	}
	vision.DrawLabel(out, 10, 30, fmt.Sprintf("Count: %d", len(rects)), vision.LabelColor)

	p.histRefresh++
	if p.histRefresh >= histogramRefreshInterval {
		p.histRefresh = 0
		img, err := vision.RenderHistogram(p.lastGray, p.threshold)
		if err != nil {
			fmt.Printf("[PROC] histogram render failed: %v\n", err)
		} else {
			p.histogram = img
		}
	}
	return len(rects)
}

// Snapshot re-encodes the most recent processed frame at full quality for
// persisting into a record. Returns nil if no frame has been processed yet.
// It waits for any in-flight frame to finish first.
func (p *FrameProcessor) Snapshot() []byte {
	p.busy.Lock()
	defer p.busy.Unlock()

	if p.lastProcessed == nil {
		return nil
	}
	encoded, err := encodeJPEG(p.lastProcessed, snapshotQuality)
	if err != nil {
		fmt.Printf("[PROC] snapshot encode failed: %v\n", err)
		return nil
	}
	return encoded
}

// decodeFrame decodes a base64 frame payload, tolerating a
// "data:image/jpeg;base64," style prefix.
func decodeFrame(payload string) (image.Image, error) {
	if idx := strings.Index(payload, "base64,"); idx >= 0 {
		payload = payload[idx+len("base64,"):]
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid frame encoding: %w", err)
	}

	frame, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return frame, nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
