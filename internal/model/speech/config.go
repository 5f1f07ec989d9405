package speech

import "strings"

// Gender 声音性别偏好
type Gender string

const (
	GenderAny    Gender = ""
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
)

// ParseGender normalises user input; anything unknown means no preference.
func ParseGender(raw string) Gender {
	switch Gender(strings.ToLower(strings.TrimSpace(raw))) {
	case GenderFemale:
		return GenderFemale
	case GenderMale:
		return GenderMale
	default:
		return GenderAny
	}
}

const (
	DefaultRate  = 1.0
	DefaultPitch = 1.0

	MinRate, MaxRate   = 0.5, 2.0
	MinPitch, MaxPitch = 0.1, 2.0
)

// VoiceSettings 语音输出配置，只能通过显式的用户设置操作修改
type VoiceSettings struct {
	VoiceGender         Gender  `json:"voiceGender"`
	SpeechRate          float64 `json:"speechRate"`          // 语速倍率 0.5-2.0
	Pitch               float64 `json:"pitch"`               // 音调 0.1-2
	Language            string  `json:"language"`            // en, es, fr, ar
	SoundEffectsEnabled bool    `json:"soundEffectsEnabled"` // 播报前提示音
}

// DefaultVoiceSettings returns the settings a fresh assistant starts with.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		SpeechRate:          DefaultRate,
		Pitch:               DefaultPitch,
		Language:            "en",
		SoundEffectsEnabled: true,
	}
}

// Normalized clamps rate and pitch into range. Zero means unset and becomes the
// default; neither range includes zero.
func (s VoiceSettings) Normalized() VoiceSettings {
	s.VoiceGender = ParseGender(string(s.VoiceGender))
	s.SpeechRate = clamp(s.SpeechRate, DefaultRate, MinRate, MaxRate)
	s.Pitch = clamp(s.Pitch, DefaultPitch, MinPitch, MaxPitch)
	s.Language = strings.TrimSpace(s.Language)
	return s
}

func clamp(v, fallback, lo, hi float64) float64 {
	if v == 0 {
		return fallback
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
