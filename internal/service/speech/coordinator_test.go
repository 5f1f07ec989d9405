package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zhouzirui/concierge/backend/internal/model/speech"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSynth struct {
	mu       sync.Mutex
	requests []speech.SpeakRequest
	cancels  int
	voices   []speech.Voice
	err      error
}

func (f *fakeSynth) Speak(_ context.Context, req speech.SpeakRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.requests = append(f.requests, req)
	return nil
}

func (f *fakeSynth) Cancel() {
	f.mu.Lock()
	f.cancels++
	f.mu.Unlock()
}

func (f *fakeSynth) Voices() []speech.Voice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]speech.Voice(nil), f.voices...)
}

func (f *fakeSynth) last() speech.SpeakRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type fakeRec struct {
	mu      sync.Mutex
	starts  []string
	stops   int
	failing bool
}

func (f *fakeRec) Start(_ context.Context, locale string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("microphone permission denied")
	}
	f.starts = append(f.starts, locale)
	return nil
}

func (f *fakeRec) Stop() error {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
	return nil
}

// recorder checks the exclusion invariant on every transition.
type recorder struct {
	t        *testing.T
	mu       sync.Mutex
	states   []State
	captures []speech.CaptureResult
}

func (r *recorder) SpeechStateChanged(s State) {
	if s.Listening && s.Speaking {
		r.t.Errorf("listening and speaking at the same time: %+v", s)
	}
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *recorder) CaptureReceived(res speech.CaptureResult) {
	r.mu.Lock()
	r.captures = append(r.captures, res)
	r.mu.Unlock()
}

func newTestCoordinator(t *testing.T) (*Coordinator, *fakeSynth, *fakeRec, *recorder) {
	t.Helper()
	synth := &fakeSynth{}
	rec := &fakeRec{}
	obs := &recorder{t: t}
	c := NewCoordinator(synth, rec, speech.DefaultVoiceSettings())
	n := 0
	c.newID = func() string {
		n++
		return fmt.Sprintf("u%d", n)
	}
	c.SetObserver(obs)
	return c, synth, rec, obs
}

func TestSpeakLifecycle(t *testing.T) {
	c, synth, _, _ := newTestCoordinator(t)

	id, err := c.Speak(context.Background(), "hello", "en-US")
	require.NoError(t, err)
	assert.Equal(t, "u1", id)
	assert.False(t, c.State().Speaking, "speaking starts with the start callback")
	assert.Equal(t, 1.0, synth.last().Rate)
	assert.Equal(t, "en-US", synth.last().Language)

	c.HandleSpeechStart(id)
	assert.True(t, c.State().Speaking)

	c.HandleSpeechEnd(id)
	assert.Equal(t, State{}, c.State())
}

func TestNewSpeakCancelsPrevious(t *testing.T) {
	c, synth, _, obs := newTestCoordinator(t)
	ctx := context.Background()

	a, err := c.Speak(ctx, "first", "en-US")
	require.NoError(t, err)
	c.HandleSpeechStart(a)

	b, err := c.Speak(ctx, "second", "en-US")
	require.NoError(t, err)
	assert.Equal(t, 1, synth.cancels)
	assert.False(t, c.State().Speaking)

	// Late callbacks for the canceled utterance are ignored.
	c.HandleSpeechEnd(a)
	c.HandleSpeechStart(a)
	assert.Equal(t, b, c.State().UtteranceID)
	assert.False(t, c.State().Speaking)

	obs.mu.Lock()
	before := len(obs.states)
	obs.mu.Unlock()

	c.HandleSpeechStart(b)
	c.HandleSpeechEnd(b)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	tail := obs.states[before:]
	require.Len(t, tail, 2)
	assert.True(t, tail[0].Speaking)
	assert.False(t, tail[1].Speaking)
}

func TestSpeakStopsListening(t *testing.T) {
	c, _, rec, _ := newTestCoordinator(t)
	ctx := context.Background()

	on, err := c.StartListening(ctx, "en-US")
	require.NoError(t, err)
	require.True(t, on)

	id, err := c.Speak(ctx, "reply", "en-US")
	require.NoError(t, err)
	c.HandleSpeechStart(id)

	st := c.State()
	assert.False(t, st.Listening)
	assert.True(t, st.Speaking)
	assert.Equal(t, 1, rec.stops)
}

func TestStartListeningBargesIn(t *testing.T) {
	c, synth, rec, _ := newTestCoordinator(t)
	ctx := context.Background()

	id, err := c.Speak(ctx, "long reply", "en-US")
	require.NoError(t, err)
	c.HandleSpeechStart(id)

	on, err := c.StartListening(ctx, "es-ES")
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, 1, synth.cancels)
	assert.Equal(t, []string{"es-ES"}, rec.starts)

	st := c.State()
	assert.True(t, st.Listening)
	assert.False(t, st.Speaking)

	// the canceled utterance may still report its end
	c.HandleSpeechEnd(id)
	assert.True(t, c.State().Listening)
}

func TestStartListeningToggles(t *testing.T) {
	c, _, rec, _ := newTestCoordinator(t)
	ctx := context.Background()

	on, err := c.StartListening(ctx, "en-US")
	require.NoError(t, err)
	assert.True(t, on)

	on, err = c.StartListening(ctx, "en-US")
	require.NoError(t, err)
	assert.False(t, on)
	assert.Equal(t, 1, rec.stops)

	c.StopListening()
	c.StopListening()
	assert.Equal(t, 1, rec.stops, "stopping while idle is a no-op")
}

func TestCaptureResults(t *testing.T) {
	c, _, _, obs := newTestCoordinator(t)

	c.HandleCaptureResult(speech.CaptureResult{Text: "ignored", Final: true})
	assert.Empty(t, obs.captures, "results while not listening are stale")

	_, err := c.StartListening(context.Background(), "en-US")
	require.NoError(t, err)

	c.HandleCaptureResult(speech.CaptureResult{Text: "book a"})
	assert.True(t, c.State().Listening)
	c.HandleCaptureResult(speech.CaptureResult{Text: "book a service", Final: true})
	assert.False(t, c.State().Listening)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	require.Len(t, obs.captures, 2)
	assert.Equal(t, "book a service", obs.captures[1].Text)
}

func TestCapabilityErrorsResetFlags(t *testing.T) {
	c, synth, rec, _ := newTestCoordinator(t)
	ctx := context.Background()

	rec.failing = true
	on, err := c.StartListening(ctx, "en-US")
	require.Error(t, err)
	assert.False(t, on)
	assert.False(t, c.State().Listening)

	rec.failing = false
	_, err = c.StartListening(ctx, "en-US")
	require.NoError(t, err)
	c.HandleCaptureError(errors.New("no-speech"))
	assert.False(t, c.State().Listening)

	id, err := c.Speak(ctx, "x", "en-US")
	require.NoError(t, err)
	c.HandleSpeechStart(id)
	c.HandleSpeechError(id, errors.New("audio-busy"))
	assert.Equal(t, State{}, c.State())

	synth.err = errors.New("synthesis unavailable")
	_, err = c.Speak(ctx, "y", "en-US")
	require.Error(t, err)
	assert.Equal(t, State{}, c.State())
}

func TestMute(t *testing.T) {
	c, synth, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	id, err := c.Speak(ctx, "playing", "en-US")
	require.NoError(t, err)
	c.HandleSpeechStart(id)

	c.SetMuted(true)
	assert.Equal(t, 1, synth.cancels)
	assert.Equal(t, State{Muted: true}, c.State())

	id, err = c.Speak(ctx, "silent", "en-US")
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Len(t, synth.requests, 1)

	c.SetMuted(false)
	_, err = c.Speak(ctx, "audible", "en-US")
	require.NoError(t, err)
	assert.Len(t, synth.requests, 2)
}

func TestShutdownCancelsEverything(t *testing.T) {
	c, synth, rec, _ := newTestCoordinator(t)
	ctx := context.Background()

	_, err := c.StartListening(ctx, "en-US")
	require.NoError(t, err)
	c.Shutdown()
	assert.Equal(t, 1, rec.stops)

	id, err := c.Speak(ctx, "bye", "en-US")
	require.NoError(t, err)
	c.HandleSpeechStart(id)
	c.Shutdown()
	assert.Equal(t, 1, synth.cancels)
	assert.Equal(t, State{}, c.State())
}

func TestSpeakUsesSettingsAndVoice(t *testing.T) {
	c, synth, _, _ := newTestCoordinator(t)
	synth.voices = []speech.Voice{
		{ID: "en-m", Lang: "en-US", Gender: speech.GenderMale},
		{ID: "es-f", Lang: "es-ES", Gender: speech.GenderFemale},
		{ID: "es-m", Lang: "es-MX", Gender: speech.GenderMale},
	}
	c.SetSettings(speech.VoiceSettings{VoiceGender: speech.GenderMale, SpeechRate: 1.5, Pitch: 0.8})

	_, err := c.Speak(context.Background(), "hola", "es-ES")
	require.NoError(t, err)

	req := synth.last()
	assert.Equal(t, "es-m", req.VoiceID)
	assert.Equal(t, 1.5, req.Rate)
	assert.Equal(t, 0.8, req.Pitch)
}

func TestMissingCapabilities(t *testing.T) {
	c := NewCoordinator(nil, nil, speech.VoiceSettings{})
	_, err := c.Speak(context.Background(), "x", "en-US")
	assert.ErrorIs(t, err, ErrNoSynthesizer)
	_, err = c.StartListening(context.Background(), "en-US")
	assert.ErrorIs(t, err, ErrNoRecognizer)
	assert.Equal(t, 1.0, c.Settings().SpeechRate)
}
