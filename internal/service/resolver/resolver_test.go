package resolver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/concierge/backend/internal/analysis/intent"
	"github.com/zhouzirui/concierge/backend/internal/analysis/language"
	"github.com/zhouzirui/concierge/backend/internal/analysis/recommend"
	"github.com/zhouzirui/concierge/backend/internal/model/assistant"
	"github.com/zhouzirui/concierge/backend/internal/model/catalog"
)

func newResolver(t *testing.T, rec Recommender) *Resolver {
	t.Helper()
	store := catalog.NewMemoryStore(catalog.Seed())
	if rec == nil {
		rec = recommend.New(store)
	}
	r, err := New(context.Background(), rec, store, Config{})
	require.NoError(t, err)
	return r
}

type panickingRecommender struct{}

func (panickingRecommender) IsProblem(string) bool { panic("symptom table exploded") }
func (panickingRecommender) Recommend(string, language.Tag) []recommend.Recommendation {
	return nil
}

type phantomRecommender struct{}

func (phantomRecommender) IsProblem(string) bool { return true }
func (phantomRecommender) Recommend(string, language.Tag) []recommend.Recommendation {
	return []recommend.Recommendation{{ServiceID: "does-not-exist", Rank: 1, Score: 3}}
}

func TestBookAServiceNavigatesAfterDelay(t *testing.T) {
	r := newResolver(t, nil)

	res := r.Resolve(context.Background(), "Book a service", language.English)
	assert.Equal(t, intent.Booking, res.Category)
	assert.Equal(t, Reply(language.English, "booking"), res.Text)
	assert.Equal(t, language.English, res.Language)
	assert.Equal(t, SideEffect{Kind: EffectNavigate, Path: "/booking", Delay: DefaultNavigationDelay}, res.Effect)
	assert.InDelta(t, confidencePrimary, res.Confidence, 1e-9)
}

func TestEnglishHomographDoesNotSwitchLanguage(t *testing.T) {
	r := newResolver(t, nil)

	res := r.Resolve(context.Background(), "Do me a favor and book a service", language.English)
	assert.Equal(t, language.English, res.Language)
	assert.Equal(t, intent.Booking, res.Category)
	assert.Equal(t, SideEffect{Kind: EffectNavigate, Path: "/booking", Delay: DefaultNavigationDelay}, res.Effect)
}

func TestEffectFollowsCategory(t *testing.T) {
	r := newResolver(t, nil)

	for _, c := range intent.Categories() {
		effect := r.effectFor(intent.Result{Category: c})
		switch {
		case c.Navigates():
			page, _ := c.Page()
			assert.Equal(t, SideEffect{Kind: EffectNavigate, Path: page, Delay: DefaultNavigationDelay}, effect, c)
		case c.SwitchesView():
			assert.Equal(t, EffectSwitchView, effect.Kind, c)
			assert.True(t, effect.View.Valid(), c)
		default:
			assert.Equal(t, SideEffect{}, effect, c)
		}
	}

	override := r.effectFor(intent.Result{Category: intent.Services, Path: "/gallery"})
	assert.Equal(t, "/gallery", override.Path)
}

func TestAlternateLanguageGreeting(t *testing.T) {
	r := newResolver(t, nil)

	for tag, text := range map[language.Tag]string{
		language.Spanish: "¡Hola!",
		language.French:  "Bonjour",
		language.Arabic:  "مرحبا",
	} {
		res := r.Resolve(context.Background(), text, language.English)
		assert.Equal(t, tag, res.Language, text)
		assert.Equal(t, "greeting", res.Reply, text)
		assert.Equal(t, Reply(tag, "greeting"), res.Text, text)
		assert.Equal(t, EffectNone, res.Effect.Kind, text)
	}
}

func TestScratchesProduceRecommendation(t *testing.T) {
	r := newResolver(t, nil)

	res := r.Resolve(context.Background(), "My paint has scratches and swirl marks", language.English)
	assert.Equal(t, intent.Problem, res.Category)
	assert.Equal(t, StageRecommendation, res.Stage)
	require.NotEmpty(t, res.Recommendations)
	assert.Equal(t, "paint-correction", res.Recommendations[0].ServiceID)
	assert.Contains(t, res.Text, "Paint Correction")
	assert.Contains(t, res.Text, "Ceramic Coating")
	assert.Equal(t, EffectNone, res.Effect.Kind)
	assert.InDelta(t, 0.9, res.Confidence, 1e-9)
}

func TestRecommendationBeatsCategoryKeywords(t *testing.T) {
	r := newResolver(t, nil)

	// "service" and "book" would otherwise route to booking.
	res := r.Resolve(context.Background(), "I want to book a service for the pet hair in my car", language.English)
	assert.Equal(t, intent.Problem, res.Category)
	assert.Equal(t, "interior-detail", res.Recommendations[0].ServiceID)
	assert.Equal(t, EffectNone, res.Effect.Kind)
}

func TestSupportSwitchesView(t *testing.T) {
	r := newResolver(t, nil)

	res := r.Resolve(context.Background(), "open support ticket", language.English)
	assert.Equal(t, intent.Support, res.Category)
	assert.Equal(t, SideEffect{Kind: EffectSwitchView, View: assistant.ViewSupport}, res.Effect)

	res = r.Resolve(context.Background(), "I'd like to leave feedback", language.English)
	assert.Equal(t, SideEffect{Kind: EffectSwitchView, View: assistant.ViewFeedback}, res.Effect)
}

func TestGibberishFallsBackToDefault(t *testing.T) {
	r := newResolver(t, nil)

	res := r.Resolve(context.Background(), "asdkjasd qwer", language.English)
	assert.Equal(t, intent.Default, res.Category)
	assert.Equal(t, Reply(language.English, keyDefault), res.Text)
	assert.Equal(t, EffectNone, res.Effect.Kind)
	assert.False(t, res.Recovered)
}

func TestMissingLocalizedTemplateUsesSameLanguageDefault(t *testing.T) {
	require.False(t, HasReply(language.Arabic, "problem"))
	r := newResolver(t, nil)

	res := r.Resolve(context.Background(), "عندي مشكلة", language.English)
	assert.Equal(t, language.Arabic, res.Language)
	assert.Equal(t, intent.Problem, res.Category)
	assert.Equal(t, Reply(language.Arabic, keyDefault), res.Text)
	assert.NotEqual(t, Reply(language.English, keyDefault), res.Text)
}

func TestConfiguredLanguageAppliesWhenNothingDetected(t *testing.T) {
	r := newResolver(t, nil)

	// "detallado" is not a detection marker, so the configured tag wins.
	res := r.Resolve(context.Background(), "detallado", language.Spanish)
	assert.Equal(t, language.Spanish, res.Language)
	assert.Equal(t, intent.Services, res.Category)

	res = r.Resolve(context.Background(), "xyz", language.Tag("de"))
	assert.Equal(t, language.English, res.Language)
}

func TestExtendedRulePathOverridesNavigation(t *testing.T) {
	r := newResolver(t, nil)

	res := r.Resolve(context.Background(), "show me the gallery", language.English)
	assert.Equal(t, intent.Services, res.Category)
	assert.Equal(t, "/gallery", res.Effect.Path)
	assert.InDelta(t, confidenceExtended, res.Confidence, 1e-9)
}

func TestPanicYieldsFallback(t *testing.T) {
	r := newResolver(t, panickingRecommender{})

	res := r.Resolve(context.Background(), "Book a service", language.English)
	assert.Equal(t, Fallback(), res)
	assert.True(t, res.Recovered)
}

func TestUnknownRecommendedServiceYieldsFallback(t *testing.T) {
	r := newResolver(t, phantomRecommender{})

	res := r.Resolve(context.Background(), "scratches", language.English)
	assert.Equal(t, Fallback(), res)
}

func TestCustomNavigationDelay(t *testing.T) {
	store := catalog.NewMemoryStore(catalog.Seed())
	r, err := New(context.Background(), recommend.New(store), store, Config{NavigationDelay: 10 * time.Millisecond})
	require.NoError(t, err)

	res := r.Resolve(context.Background(), "take me home", language.English)
	assert.Equal(t, SideEffect{Kind: EffectNavigate, Path: "/", Delay: 10 * time.Millisecond}, res.Effect)
}

func TestNewValidatesDependencies(t *testing.T) {
	store := catalog.NewMemoryStore(catalog.Seed())
	_, err := New(context.Background(), nil, store, Config{})
	require.Error(t, err)
	_, err = New(context.Background(), recommend.New(store), nil, Config{})
	require.Error(t, err)
}

func TestEveryLanguageHasDefaultAndWelcome(t *testing.T) {
	for _, tag := range language.All() {
		assert.True(t, HasReply(tag, keyDefault), tag)
		assert.NotEmpty(t, strings.TrimSpace(Welcome(tag)), tag)
	}
	assert.Equal(t, Reply(language.English, keyDefault), Reply(language.Tag("zz"), "booking-nope"))
}

func TestEveryPrimaryReplyKeyIsTemplated(t *testing.T) {
	for _, tag := range language.All() {
		table, ok := intent.TableFor(tag)
		require.True(t, ok)
		for _, rule := range append(table.Primary, table.Extended...) {
			key := rule.Reply
			if key == "" {
				key = string(rule.Category)
			}
			if tag == language.Arabic && key == "problem" {
				continue
			}
			assert.True(t, HasReply(tag, key), "%s lacks %q", tag, key)
		}
	}
}
