package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/zhouzirui/concierge/backend/internal/logging"
	"github.com/zhouzirui/concierge/backend/internal/model/speech"
)

var (
	// ErrNoSynthesizer is returned when speech output has not been wired.
	ErrNoSynthesizer = errors.New("speech: no synthesizer available")
	// ErrNoRecognizer is returned when speech capture has not been wired.
	ErrNoRecognizer = errors.New("speech: no recognizer available")
)

// Synthesizer 语音合成能力（浏览器 speechSynthesis 或控制台）
type Synthesizer interface {
	Speak(ctx context.Context, req speech.SpeakRequest) error
	Cancel()
	Voices() []speech.Voice
}

// Recognizer 语音识别能力
type Recognizer interface {
	Start(ctx context.Context, locale string) error
	Stop() error
}

// State is the coordinator's view of both capabilities.
type State struct {
	Listening   bool   `json:"listening"`
	Speaking    bool   `json:"speaking"`
	Muted       bool   `json:"muted"`
	UtteranceID string `json:"utteranceId,omitempty"`
}

// Observer receives capability outcomes. Neither method runs under the state
// lock. SpeechStateChanged may run during a capability call and must not call
// back into the coordinator; CaptureReceived may.
type Observer interface {
	SpeechStateChanged(State)
	CaptureReceived(speech.CaptureResult)
}

// Coordinator owns the listen and speak capabilities. Listening and speaking are
// mutually exclusive: speaking stops capture, and starting capture cancels
// speech. A new utterance always cancels the one still playing.
type Coordinator struct {
	synth Synthesizer
	rec   Recognizer

	// ioMu serialises calls into the capabilities; mu guards the fields below.
	ioMu sync.Mutex
	mu   sync.Mutex

	observer  Observer
	settings  speech.VoiceSettings
	listening bool
	speaking  bool
	muted     bool
	current   string // id of the utterance in flight, pending or playing
	newID     func() string
}

// NewCoordinator wires the capabilities. Either may be nil when unavailable.
func NewCoordinator(synth Synthesizer, rec Recognizer, settings speech.VoiceSettings) *Coordinator {
	return &Coordinator{
		synth:    synth,
		rec:      rec,
		settings: settings.Normalized(),
		newID:    uuid.NewString,
	}
}

// SetObserver registers the single observer.
func (c *Coordinator) SetObserver(o Observer) {
	c.mu.Lock()
	c.observer = o
	c.mu.Unlock()
}

// Settings returns the active voice settings.
func (c *Coordinator) Settings() speech.VoiceSettings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// SetSettings replaces the voice settings used by the next utterance.
func (c *Coordinator) SetSettings(s speech.VoiceSettings) {
	c.mu.Lock()
	c.settings = s.Normalized()
	c.mu.Unlock()
}

// State returns a snapshot of the capability flags.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Coordinator) stateLocked() State {
	return State{
		Listening:   c.listening,
		Speaking:    c.speaking,
		Muted:       c.muted,
		UtteranceID: c.current,
	}
}

func (c *Coordinator) notify() {
	c.mu.Lock()
	o := c.observer
	st := c.stateLocked()
	c.mu.Unlock()
	if o != nil {
		o.SpeechStateChanged(st)
	}
}

// Speak plays text in locale and returns the utterance id. Any utterance still
// in flight is canceled first and capture is stopped. A muted coordinator
// returns an empty id and does nothing.
func (c *Coordinator) Speak(ctx context.Context, text, locale string) (string, error) {
	c.ioMu.Lock()
	defer c.ioMu.Unlock()

	log := logging.Named("speech")

	c.mu.Lock()
	if c.muted {
		c.mu.Unlock()
		return "", nil
	}
	if c.synth == nil {
		c.mu.Unlock()
		return "", ErrNoSynthesizer
	}
	hadUtterance := c.current != ""
	wasListening := c.listening
	id := c.newID()
	c.current = id
	c.speaking = false
	c.listening = false
	settings := c.settings
	c.mu.Unlock()

	if hadUtterance {
		c.synth.Cancel()
	}
	if wasListening && c.rec != nil {
		if err := c.rec.Stop(); err != nil {
			log.Warnw("stop capture before speaking failed", "error", err)
		}
	}
	if hadUtterance || wasListening {
		c.notify()
	}

	req := speech.SpeakRequest{
		ID:       id,
		Text:     text,
		Language: locale,
		Rate:     settings.SpeechRate,
		Pitch:    settings.Pitch,
	}
	if voice, ok := SelectVoice(c.synth.Voices(), settings.VoiceGender, locale); ok {
		req.VoiceID = voice.ID
	}

	if err := c.synth.Speak(ctx, req); err != nil {
		c.mu.Lock()
		if c.current == id {
			c.current = ""
			c.speaking = false
		}
		c.mu.Unlock()
		c.notify()
		if !errors.Is(err, ErrDetached) {
			log.Warnw("speak failed", "utterance", id, "error", err)
		}
		return "", fmt.Errorf("speak: %w", err)
	}
	return id, nil
}

// Cancel stops the utterance in flight, if any.
func (c *Coordinator) Cancel() {
	c.ioMu.Lock()
	defer c.ioMu.Unlock()
	if c.cancelSpeechLocked() {
		c.notify()
	}
}

// cancelSpeechLocked requires ioMu.
func (c *Coordinator) cancelSpeechLocked() bool {
	c.mu.Lock()
	inFlight := c.current != ""
	c.current = ""
	c.speaking = false
	c.mu.Unlock()

	if inFlight && c.synth != nil {
		c.synth.Cancel()
	}
	return inFlight
}

// StartListening toggles capture: when already listening it stops instead and
// reports false. Starting while speaking cancels the speech first.
func (c *Coordinator) StartListening(ctx context.Context, locale string) (bool, error) {
	c.ioMu.Lock()
	defer c.ioMu.Unlock()

	c.mu.Lock()
	listening := c.listening
	c.mu.Unlock()

	if listening {
		c.stopListeningLocked()
		c.notify()
		return false, nil
	}
	if c.rec == nil {
		return false, ErrNoRecognizer
	}

	c.cancelSpeechLocked()

	if err := c.rec.Start(ctx, locale); err != nil {
		c.mu.Lock()
		c.listening = false
		c.mu.Unlock()
		c.notify()
		logging.Named("speech").Warnw("start capture failed", "locale", locale, "error", err)
		return false, fmt.Errorf("start capture: %w", err)
	}

	c.mu.Lock()
	c.listening = true
	c.mu.Unlock()
	c.notify()
	return true, nil
}

// StopListening ends capture. Stopping while idle is a no-op.
func (c *Coordinator) StopListening() {
	c.ioMu.Lock()
	defer c.ioMu.Unlock()
	if c.stopListeningLocked() {
		c.notify()
	}
}

// stopListeningLocked requires ioMu.
func (c *Coordinator) stopListeningLocked() bool {
	c.mu.Lock()
	was := c.listening
	c.listening = false
	c.mu.Unlock()

	if was && c.rec != nil {
		if err := c.rec.Stop(); err != nil {
			logging.Named("speech").Warnw("stop capture failed", "error", err)
		}
	}
	return was
}

// SetMuted toggles speech output. Muting cancels the utterance in flight.
func (c *Coordinator) SetMuted(muted bool) {
	c.ioMu.Lock()
	defer c.ioMu.Unlock()

	c.mu.Lock()
	changed := c.muted != muted
	c.muted = muted
	c.mu.Unlock()

	if muted {
		c.cancelSpeechLocked()
	}
	if changed {
		c.notify()
	}
}

// Shutdown cancels speech and capture unconditionally.
func (c *Coordinator) Shutdown() {
	c.ioMu.Lock()
	defer c.ioMu.Unlock()

	spoke := c.cancelSpeechLocked()
	listened := c.stopListeningLocked()
	if spoke || listened {
		c.notify()
	}
}

// HandleSpeechStart marks the utterance as playing. Stale ids are ignored.
func (c *Coordinator) HandleSpeechStart(id string) {
	c.mu.Lock()
	if id == "" || id != c.current || c.speaking {
		c.mu.Unlock()
		return
	}
	c.speaking = true
	c.mu.Unlock()
	c.notify()
}

// HandleSpeechEnd clears the speaking flag for the current utterance.
func (c *Coordinator) HandleSpeechEnd(id string) {
	if c.finish(id) {
		c.notify()
	}
}

// HandleSpeechError resets the speaking flag; the failure is only logged.
func (c *Coordinator) HandleSpeechError(id string, err error) {
	if !c.finish(id) {
		return
	}
	logging.Named("speech").Warnw("synthesis error", "utterance", id, "error", err)
	c.notify()
}

func (c *Coordinator) finish(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == "" || id != c.current {
		return false
	}
	c.current = ""
	c.speaking = false
	return true
}

// HandleCaptureResult forwards a recognition result. A final result ends capture.
// Results arriving after capture stopped are dropped.
func (c *Coordinator) HandleCaptureResult(res speech.CaptureResult) {
	c.mu.Lock()
	if !c.listening {
		c.mu.Unlock()
		return
	}
	if res.Final {
		c.listening = false
	}
	o := c.observer
	c.mu.Unlock()

	if res.Final {
		c.notify()
	}
	if o != nil {
		o.CaptureReceived(res)
	}
}

// HandleCaptureError resets the listening flag; the failure is only logged.
func (c *Coordinator) HandleCaptureError(err error) {
	c.mu.Lock()
	was := c.listening
	c.listening = false
	c.mu.Unlock()

	logging.Named("speech").Warnw("capture error", "error", err)
	if was {
		c.notify()
	}
}

// HandleCaptureEnd is called when the recognizer stops on its own.
func (c *Coordinator) HandleCaptureEnd() {
	c.mu.Lock()
	was := c.listening
	c.listening = false
	c.mu.Unlock()
	if was {
		c.notify()
	}
}

// HandleCapabilityLost resets every flag when the capability provider goes away.
func (c *Coordinator) HandleCapabilityLost() {
	c.mu.Lock()
	changed := c.listening || c.speaking || c.current != ""
	c.listening = false
	c.speaking = false
	c.current = ""
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}
