package speech

// Voice 客户端可用的合成声音
type Voice struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Lang    string `json:"lang"` // BCP 47, e.g. en-US
	Gender  Gender `json:"gender,omitempty"`
	Default bool   `json:"default,omitempty"`
}

// SpeakRequest 语音合成请求
type SpeakRequest struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	Language string  `json:"language"` // en-US, es-ES, etc.
	VoiceID  string  `json:"voiceId,omitempty"`
	Rate     float64 `json:"rate"`
	Pitch    float64 `json:"pitch"`
}
