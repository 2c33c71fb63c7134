package ws

// Incoming and outgoing messages are JSON with a "type" discriminator.

// FrameMessage is sent by the browser with one captured webcam frame.
type FrameMessage struct {
	Type  string `json:"type"`
	Image string `json:"image"` // base64 or data-URL encoded JPEG
}

// StatusMessage is sent once after a successful connect.
type StatusMessage struct {
	Type     string `json:"type"` // "status"
	Status   string `json:"status"`
	ClientID string `json:"client_id,omitempty"`
}

// ResultMessage carries one processed frame back to the originating client.
// Histogram and Threshold are only present while detection is enabled and a
// diagnostic histogram has been computed.
type ResultMessage struct {
	Type              string `json:"type"`            // "processed_frame"
	ProcessedImage    string `json:"processed_image"` // base64 JPEG
	ProcessingEnabled bool   `json:"processing_enabled"`
	Count             int    `json:"count"`
	Histogram         string `json:"histogram,omitempty"` // base64 JPEG
	Threshold         *int   `json:"threshold,omitempty"`
}

// ErrorMessage reports a per-frame failure to the originating client.
type ErrorMessage struct {
	Type  string `json:"type"` // "error"
	Error string `json:"error"`
}
