// Package assistant is the conversation state machine behind one assistant
// widget: transcript, lifecycle, current view, and the per-turn pipeline that
// ties resolution, speech output, navigation and interaction logging together.
package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/concierge/backend/internal/analysis/language"
	"github.com/zhouzirui/concierge/backend/internal/logging"
	model "github.com/zhouzirui/concierge/backend/internal/model/assistant"
	"github.com/zhouzirui/concierge/backend/internal/model/speech"
	"github.com/zhouzirui/concierge/backend/internal/service/resolver"
	speechsvc "github.com/zhouzirui/concierge/backend/internal/service/speech"
)

var (
	ErrClosed          = errors.New("assistant is closed")
	ErrEmptyUtterance  = errors.New("utterance is empty")
	ErrUnknownView     = errors.New("unknown view")
	ErrSessionNotFound = errors.New("session not found")
)

// Resolver produces the reply for one utterance.
type Resolver interface {
	Resolve(ctx context.Context, text string, configured language.Tag) resolver.Resolution
}

// SpeechIO is the speech coordinator as seen by the assistant.
type SpeechIO interface {
	Speak(ctx context.Context, text, locale string) (string, error)
	StartListening(ctx context.Context, locale string) (bool, error)
	StopListening()
	SetMuted(muted bool)
	SetSettings(s speech.VoiceSettings)
	Shutdown()
	State() speechsvc.State
	SetObserver(o speechsvc.Observer)
}

// Navigator changes the page shown by the client.
type Navigator interface {
	Navigate(path string) error
}

// InteractionLogger accepts per-turn analytics without blocking.
type InteractionLogger interface {
	Log(entry model.InteractionLogEntry) bool
}

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d. Tests substitute a manual clock.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Options configures a new Assistant.
type Options struct {
	ID        string
	UserID    string
	Settings  speech.VoiceSettings
	Navigator Navigator
	Logger    InteractionLogger
	Scheduler Scheduler
	Now       func() time.Time
}

// Reply is returned to callers of OnUtterance.
type Reply struct {
	Resolution  resolver.Resolution `json:"resolution"`
	UtteranceID string              `json:"utteranceId,omitempty"`
	View        model.View          `json:"view"`
}

type pendingNav struct {
	path  string
	timer Timer
}

// Assistant is one assistant instance. All exported methods are safe for
// concurrent use; turns, Open and Close are serialised.
type Assistant struct {
	id        string
	userID    string
	createdAt time.Time

	resolver  Resolver
	io        SpeechIO
	navigator Navigator
	logger    InteractionLogger
	scheduler Scheduler
	now       func() time.Time

	turnMu sync.Mutex

	mu       sync.Mutex
	open     bool
	greeted  bool
	view     model.View
	turns    []model.Turn
	settings speech.VoiceSettings
	lastSeen time.Time
	pending  map[*pendingNav]struct{}

	subsMu   sync.Mutex
	subs     map[*subscriber]struct{}
	disposed bool
}

// New builds a closed assistant and registers it as the speech observer.
func New(res Resolver, io SpeechIO, opts Options) *Assistant {
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	scheduler := opts.Scheduler
	if scheduler == nil {
		scheduler = realScheduler{}
	}
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	settings := opts.Settings
	if settings == (speech.VoiceSettings{}) {
		settings = speech.DefaultVoiceSettings()
	}
	settings = settings.Normalized()

	created := now()
	a := &Assistant{
		id:        id,
		userID:    opts.UserID,
		createdAt: created,
		resolver:  res,
		io:        io,
		navigator: opts.Navigator,
		logger:    opts.Logger,
		scheduler: scheduler,
		now:       now,
		view:      model.ViewChat,
		turns:     make([]model.Turn, 0, 16),
		settings:  settings,
		lastSeen:  created,
		pending:   make(map[*pendingNav]struct{}),
		subs:      make(map[*subscriber]struct{}),
	}
	io.SetSettings(settings)
	io.SetObserver(a)
	return a
}

// ID returns the session identifier, fixed for the assistant's lifetime.
func (a *Assistant) ID() string {
	return a.id
}

func (a *Assistant) touch() {
	a.mu.Lock()
	a.lastSeen = a.now()
	a.mu.Unlock()
}

func (a *Assistant) configuredLanguage() language.Tag {
	a.mu.Lock()
	defer a.mu.Unlock()
	return language.Parse(a.settings.Language)
}

// Open shows the assistant. The first open greets the user; reopening keeps the
// transcript and session id and does not greet again.
func (a *Assistant) Open(ctx context.Context) error {
	a.turnMu.Lock()
	defer a.turnMu.Unlock()

	a.mu.Lock()
	if a.open {
		a.mu.Unlock()
		return nil
	}
	a.open = true
	a.view = model.ViewChat
	a.lastSeen = a.now()
	first := !a.greeted
	a.greeted = true
	lang := language.Parse(a.settings.Language)
	a.mu.Unlock()

	a.publish(Event{Type: EventOpened, View: model.ViewChat})

	if first {
		text := resolver.Welcome(lang)
		a.appendTurn(model.Turn{Role: model.RoleAssistant, Text: text, Language: lang.String()})
		a.speak(ctx, text, lang)
	}
	return nil
}

// Close hides the assistant and cancels speech and capture immediately.
// Navigations already scheduled still fire.
func (a *Assistant) Close(_ context.Context) error {
	a.turnMu.Lock()
	defer a.turnMu.Unlock()

	a.mu.Lock()
	if !a.open {
		a.mu.Unlock()
		return nil
	}
	a.open = false
	a.lastSeen = a.now()
	a.mu.Unlock()

	a.io.Shutdown()
	a.publish(Event{Type: EventClosed})
	return nil
}

// OnUtterance runs one full turn: transcript, resolution, view switch, speech,
// delayed navigation and interaction logging, in that order.
func (a *Assistant) OnUtterance(ctx context.Context, text string, source model.Source) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, ErrEmptyUtterance
	}

	a.turnMu.Lock()
	defer a.turnMu.Unlock()

	a.mu.Lock()
	if !a.open {
		a.mu.Unlock()
		return Reply{}, ErrClosed
	}
	a.lastSeen = a.now()
	settings := a.settings
	a.mu.Unlock()

	configured := language.Parse(settings.Language)

	a.appendTurn(model.Turn{
		Role:     model.RoleUser,
		Text:     text,
		Language: language.Detect(text).String(),
		Source:   source,
	})

	res := a.resolver.Resolve(ctx, text, configured)

	a.appendTurn(model.Turn{Role: model.RoleAssistant, Text: res.Text, Language: res.Language.String()})

	if res.Effect.Kind == resolver.EffectSwitchView {
		a.setView(res.Effect.View)
	}
	if settings.SoundEffectsEnabled {
		a.publish(Event{Type: EventChime})
	}

	// The reply must outlive the request that triggered it.
	id := a.speak(context.WithoutCancel(ctx), res.Text, res.Language)

	if res.Effect.Kind == resolver.EffectNavigate {
		a.scheduleNavigation(res.Effect.Path, res.Effect.Delay)
	}

	a.logInteraction(text, source, res)

	a.mu.Lock()
	view := a.view
	a.mu.Unlock()

	return Reply{Resolution: res, UtteranceID: id, View: view}, nil
}

func (a *Assistant) speak(ctx context.Context, text string, lang language.Tag) string {
	id, err := a.io.Speak(ctx, text, lang.SpeechLocale())
	if err != nil {
		log := logging.Named("assistant")
		if errors.Is(err, speechsvc.ErrDetached) || errors.Is(err, speechsvc.ErrNoSynthesizer) {
			log.Debugw("reply not spoken, no speech output", "session", a.id)
		} else {
			log.Warnw("reply not spoken", "session", a.id, "error", err)
		}
	}
	return id
}

func (a *Assistant) appendTurn(t model.Turn) {
	t.ID = uuid.NewString()
	t.CreatedAt = a.now()

	a.mu.Lock()
	a.turns = append(a.turns, t)
	a.mu.Unlock()

	a.publish(Event{Type: EventTurn, Turn: &t})
}

func (a *Assistant) setView(v model.View) {
	a.mu.Lock()
	changed := a.view != v
	a.view = v
	a.mu.Unlock()
	if changed {
		a.publish(Event{Type: EventView, View: v})
	}
}

func (a *Assistant) scheduleNavigation(path string, delay time.Duration) {
	p := &pendingNav{path: path}

	a.mu.Lock()
	a.pending[p] = struct{}{}
	a.mu.Unlock()

	timer := a.scheduler.AfterFunc(delay, func() { a.fireNavigation(p) })

	a.mu.Lock()
	p.timer = timer
	a.mu.Unlock()
}

func (a *Assistant) fireNavigation(p *pendingNav) {
	a.mu.Lock()
	if _, ok := a.pending[p]; !ok {
		a.mu.Unlock()
		return
	}
	delete(a.pending, p)
	a.mu.Unlock()

	if a.navigator != nil {
		if err := a.navigator.Navigate(p.path); err != nil && !errors.Is(err, speechsvc.ErrDetached) {
			logging.Named("assistant").Warnw("navigation failed", "session", a.id, "path", p.path, "error", err)
		}
	}
	a.publish(Event{Type: EventNavigate, Path: p.path})
}

func (a *Assistant) logInteraction(query string, source model.Source, res resolver.Resolution) {
	if a.logger == nil {
		return
	}

	a.mu.Lock()
	view := a.view
	a.mu.Unlock()

	meta := map[string]any{
		"language": res.Language.String(),
		"stage":    string(res.Stage),
		"source":   string(source),
		"view":     string(view),
	}
	if res.Keyword != "" {
		meta["keyword"] = res.Keyword
	}
	if res.Effect.Path != "" {
		meta["path"] = res.Effect.Path
	}
	if len(res.Recommendations) > 0 {
		ids := make([]string, 0, len(res.Recommendations))
		for _, r := range res.Recommendations {
			ids = append(ids, r.ServiceID)
		}
		meta["recommendations"] = ids
	}
	if res.Recovered {
		meta["recovered"] = true
	}

	a.logger.Log(model.InteractionLogEntry{
		SessionID:         a.id,
		UserID:            a.userID,
		InteractionType:   string(res.Category),
		UserQuery:         query,
		AssistantResponse: res.Text,
		IntentDetected:    res.Reply,
		ConfidenceScore:   res.Confidence,
		Metadata:          meta,
		CreatedAt:         a.now(),
	})
}

// SwitchView changes the panel without touching the transcript.
func (a *Assistant) SwitchView(v model.View) error {
	if !v.Valid() {
		return ErrUnknownView
	}
	a.touch()
	a.setView(v)
	return nil
}

// SetVoiceSettings replaces the voice settings. Language also becomes the
// configured language for classification.
func (a *Assistant) SetVoiceSettings(s speech.VoiceSettings) speech.VoiceSettings {
	s = s.Normalized()
	if s.Language != "" {
		s.Language = language.Parse(s.Language).String()
	}

	a.mu.Lock()
	if s.Language == "" {
		s.Language = a.settings.Language
	}
	a.settings = s
	a.lastSeen = a.now()
	a.mu.Unlock()

	a.io.SetSettings(s)
	a.publish(Event{Type: EventSettings, Settings: &s})
	return s
}

// SetMuted toggles speech output; muting cancels the reply being spoken.
func (a *Assistant) SetMuted(muted bool) {
	a.touch()
	a.io.SetMuted(muted)
}

// StartListening toggles capture in the configured language.
func (a *Assistant) StartListening(ctx context.Context) (bool, error) {
	a.mu.Lock()
	open := a.open
	a.lastSeen = a.now()
	a.mu.Unlock()
	if !open {
		return false, ErrClosed
	}
	return a.io.StartListening(ctx, a.configuredLanguage().SpeechLocale())
}

// StopListening ends capture.
func (a *Assistant) StopListening() {
	a.touch()
	a.io.StopListening()
}

// Snapshot returns the current session state.
func (a *Assistant) Snapshot() model.Session {
	st := a.io.State()

	a.mu.Lock()
	defer a.mu.Unlock()

	phase := model.PhaseClosed
	switch {
	case !a.open:
	case st.Speaking:
		phase = model.PhaseSpeaking
	case st.Listening:
		phase = model.PhaseListening
	default:
		phase = model.PhaseIdle
	}

	return model.Session{
		ID:        a.id,
		UserID:    a.userID,
		Turns:     append([]model.Turn(nil), a.turns...),
		View:      a.view,
		Phase:     phase,
		Open:      a.open,
		Listening: st.Listening,
		Speaking:  st.Speaking,
		Muted:     st.Muted,
		Settings:  a.settings,
		CreatedAt: a.createdAt,
		LastSeen:  a.lastSeen,
	}
}

// LastSeen reports the time of the latest caller activity.
func (a *Assistant) LastSeen() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSeen
}

// Dispose closes the assistant for good: pending navigations are dropped and
// subscribers are released.
func (a *Assistant) Dispose() {
	_ = a.Close(context.Background())

	a.mu.Lock()
	for p := range a.pending {
		if p.timer != nil {
			p.timer.Stop()
		}
		delete(a.pending, p)
	}
	a.mu.Unlock()

	a.closeSubscribers()
}

// SpeechStateChanged implements speech.Observer.
func (a *Assistant) SpeechStateChanged(st speechsvc.State) {
	a.publish(Event{Type: EventSpeech, Listening: st.Listening, Speaking: st.Speaking})
}

// CaptureReceived implements speech.Observer. Partial results become live
// captions; a final result is handled as a spoken utterance.
func (a *Assistant) CaptureReceived(res speech.CaptureResult) {
	if !res.Final {
		a.publish(Event{Type: EventCaption, Caption: res.Text})
		return
	}
	if strings.TrimSpace(res.Text) == "" {
		return
	}
	if _, err := a.OnUtterance(context.Background(), res.Text, model.SourceSpeech); err != nil {
		logging.Named("assistant").Infow("spoken utterance ignored", "session", a.id, "error", err)
	}
}
