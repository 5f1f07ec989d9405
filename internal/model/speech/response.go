package speech

import "time"

// CaptureResult 语音识别结果，Final 为 false 时只用于实时字幕
type CaptureResult struct {
	Text       string    `json:"text"`
	Final      bool      `json:"final"`
	Confidence float64   `json:"confidence,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
}
