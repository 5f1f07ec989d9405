// Package resolver turns one utterance into a localized reply plus the side
// effect the assistant should perform.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/zhouzirui/concierge/backend/internal/analysis/intent"
	"github.com/zhouzirui/concierge/backend/internal/analysis/language"
	"github.com/zhouzirui/concierge/backend/internal/analysis/recommend"
	"github.com/zhouzirui/concierge/backend/internal/logging"
	"github.com/zhouzirui/concierge/backend/internal/model/assistant"
	"github.com/zhouzirui/concierge/backend/internal/model/catalog"
)

// DefaultNavigationDelay leaves room for the reply to start playing before the page changes.
const DefaultNavigationDelay = 1500 * time.Millisecond

// StageRecommendation marks resolutions produced by the recommendation engine.
const StageRecommendation intent.Stage = "recommendation"

const (
	confidencePrimary  = 0.9
	confidenceExtended = 0.75
	confidenceFallback = 0.2
)

var errNoOutput = errors.New("resolver: pipeline produced no output")

// Recommender is the symptom engine consulted before category matching.
type Recommender interface {
	IsProblem(text string) bool
	Recommend(text string, tag language.Tag) []recommend.Recommendation
}

// EffectKind enumerates what the assistant does besides replying.
type EffectKind string

const (
	EffectNone       EffectKind = ""
	EffectNavigate   EffectKind = "navigate"
	EffectSwitchView EffectKind = "switch_view"
)

// SideEffect is scheduled by the caller after the reply has started playing.
type SideEffect struct {
	Kind  EffectKind     `json:"kind,omitempty"`
	Path  string         `json:"path,omitempty"`
	Delay time.Duration  `json:"delay,omitempty"`
	View  assistant.View `json:"view,omitempty"`
}

// Resolution is the full outcome of one turn.
type Resolution struct {
	Text            string                     `json:"text"`
	Language        language.Tag               `json:"language"`
	Category        intent.Category            `json:"category"`
	Reply           string                     `json:"reply"`
	Keyword         string                     `json:"keyword,omitempty"`
	Stage           intent.Stage               `json:"stage"`
	Confidence      float64                    `json:"confidence"`
	Effect          SideEffect                 `json:"effect"`
	Recommendations []recommend.Recommendation `json:"recommendations,omitempty"`
	// Recovered is set when the pipeline failed and the safe fallback was returned.
	Recovered bool `json:"recovered,omitempty"`
}

// Fallback is the reply used whenever resolution itself fails.
func Fallback() Resolution {
	return Resolution{
		Text:      Reply(language.Default, keyDefault),
		Language:  language.Default,
		Category:  intent.Default,
		Reply:     keyDefault,
		Stage:     intent.StageFallback,
		Recovered: true,
	}
}

// Config tunes the resolver.
type Config struct {
	NavigationDelay time.Duration
}

// Resolver runs the detect, recommend, classify and render steps as one chain.
type Resolver struct {
	recommender Recommender
	catalog     catalog.Store
	delay       time.Duration
	pipeline    compose.Runnable[*turn, *turn]
}

type turn struct {
	text       string
	configured language.Tag

	active      language.Tag
	recommended []recommend.Recommendation
	match       intent.Result

	out *Resolution
}

// New compiles the resolution pipeline.
func New(ctx context.Context, rec Recommender, store catalog.Store, cfg Config) (*Resolver, error) {
	if rec == nil {
		return nil, errors.New("resolver: recommender is required")
	}
	if store == nil {
		return nil, errors.New("resolver: catalog store is required")
	}

	delay := cfg.NavigationDelay
	if delay <= 0 {
		delay = DefaultNavigationDelay
	}

	r := &Resolver{recommender: rec, catalog: store, delay: delay}

	chain := compose.NewChain[*turn, *turn]()
	chain.AppendLambda(compose.InvokableLambda[*turn, *turn](r.detect), compose.WithNodeName("detect"))
	chain.AppendLambda(compose.InvokableLambda[*turn, *turn](r.suggest), compose.WithNodeName("recommend"))
	chain.AppendLambda(compose.InvokableLambda[*turn, *turn](r.classify), compose.WithNodeName("classify"))
	chain.AppendLambda(compose.InvokableLambda[*turn, *turn](r.render), compose.WithNodeName("render"))

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile resolver chain: %w", err)
	}
	r.pipeline = runnable
	return r, nil
}

// Resolve never fails: any error or panic inside the pipeline yields Fallback.
func (r *Resolver) Resolve(ctx context.Context, text string, configured language.Tag) (res Resolution) {
	log := logging.Named("resolver")
	defer func() {
		if p := recover(); p != nil {
			log.Errorw("resolution panicked, using fallback", "panic", p, "text", text)
			res = Fallback()
		}
	}()

	if !configured.Valid() {
		configured = language.Default
	}

	out, err := r.pipeline.Invoke(ctx, &turn{text: text, configured: configured})
	if err == nil && (out == nil || out.out == nil) {
		err = errNoOutput
	}
	if err != nil {
		log.Errorw("resolution failed, using fallback", "error", err, "text", text)
		return Fallback()
	}
	return *out.out
}

// detect picks the active language: a detected non-default tag wins over the
// configured one.
func (r *Resolver) detect(_ context.Context, t *turn) (*turn, error) {
	detected := language.Detect(t.text)
	t.active = t.configured
	if !detected.IsDefault() {
		t.active = detected
	}
	return t, nil
}

func (r *Resolver) suggest(_ context.Context, t *turn) (*turn, error) {
	if !r.recommender.IsProblem(t.text) {
		return t, nil
	}
	t.recommended = r.recommender.Recommend(t.text, t.active)
	return t, nil
}

// classify is skipped entirely once the recommendation engine has answered.
func (r *Resolver) classify(_ context.Context, t *turn) (*turn, error) {
	if len(t.recommended) > 0 {
		return t, nil
	}
	t.match = intent.Match(t.text, t.active)
	return t, nil
}

func (r *Resolver) render(_ context.Context, t *turn) (*turn, error) {
	if len(t.recommended) > 0 {
		out, err := r.renderRecommendation(t)
		if err != nil {
			return nil, err
		}
		t.out = out
		return t, nil
	}

	m := t.match
	t.out = &Resolution{
		Text:       Reply(t.active, m.Reply),
		Language:   t.active,
		Category:   m.Category,
		Reply:      m.Reply,
		Keyword:    m.Keyword,
		Stage:      m.Stage,
		Confidence: confidenceFor(m.Stage),
		Effect:     r.effectFor(m),
	}
	return t, nil
}

func (r *Resolver) renderRecommendation(t *turn) (*Resolution, error) {
	top := t.recommended[0]
	svc, ok := r.catalog.FindService(top.ServiceID)
	if !ok {
		return nil, fmt.Errorf("recommended service %q is not in the catalog", top.ServiceID)
	}

	var alternatives []string
	for _, rec := range t.recommended[1:] {
		if alt, ok := r.catalog.FindService(rec.ServiceID); ok {
			alternatives = append(alternatives, alt.Name(t.active))
		}
	}

	replacer := strings.NewReplacer(
		"{service}", svc.Name(t.active),
		"{summary}", svc.Summary(t.active),
		"{alternatives}", strings.Join(alternatives, ", "),
	)
	text := replacer.Replace(Reply(t.active, keyRecommend))
	if len(alternatives) > 0 {
		text += replacer.Replace(Reply(t.active, keyAlternatives))
	}

	score := 0.6 + 0.05*float64(top.Score)
	if score > 0.95 {
		score = 0.95
	}

	return &Resolution{
		Text:            text,
		Language:        t.active,
		Category:        intent.Problem,
		Reply:           keyRecommend,
		Stage:           StageRecommendation,
		Confidence:      score,
		Recommendations: append([]recommend.Recommendation(nil), t.recommended...),
	}, nil
}

func (r *Resolver) effectFor(m intent.Result) SideEffect {
	switch {
	case m.Category.Navigates():
		path := m.Path
		if path == "" {
			path, _ = m.Category.Page()
		}
		return SideEffect{Kind: EffectNavigate, Path: path, Delay: r.delay}
	case m.Category.SwitchesView():
		// Form views share the category names.
		return SideEffect{Kind: EffectSwitchView, View: assistant.View(m.Category)}
	default:
		return SideEffect{}
	}
}

func confidenceFor(stage intent.Stage) float64 {
	switch stage {
	case intent.StagePrimary:
		return confidencePrimary
	case intent.StageExtended:
		return confidenceExtended
	default:
		return confidenceFallback
	}
}
