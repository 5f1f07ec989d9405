package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/concierge/backend/internal/analysis/language"
)

func TestMatchScenarios(t *testing.T) {
	cases := []struct {
		name     string
		text     string
		tag      language.Tag
		category Category
		reply    string
		stage    Stage
	}{
		{name: "booking", text: "Book a service", tag: language.English, category: Booking, reply: "booking", stage: StagePrimary},
		{name: "support ticket", text: "open support ticket", tag: language.English, category: Support, reply: "support", stage: StagePrimary},
		{name: "gibberish", text: "asdkjasd qwer", tag: language.English, category: Default, reply: "default", stage: StageFallback},
		{name: "pricing", text: "How much is a full detail?", tag: language.English, category: Pricing, reply: "pricing", stage: StagePrimary},
		{name: "greeting", text: "Hi there!", tag: language.English, category: Help, reply: "greeting", stage: StageExtended},
		{name: "gallery", text: "show me photos of your work", tag: language.English, category: Services, reply: "gallery", stage: StageExtended},
		{name: "contact", text: "what is your phone number", tag: language.English, category: Support, reply: "contact", stage: StageExtended},
		{name: "spanish greeting", text: "¡Hola!", tag: language.Spanish, category: Help, reply: "greeting", stage: StagePrimary},
		{name: "spanish booking", text: "quiero reservar una cita", tag: language.Spanish, category: Booking, reply: "booking", stage: StagePrimary},
		{name: "french thanks", text: "Merci beaucoup", tag: language.French, category: Thanks, reply: "thanks", stage: StagePrimary},
		{name: "arabic pricing", text: "كم السعر؟", tag: language.Arabic, category: Pricing, reply: "pricing", stage: StagePrimary},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Match(tc.text, tc.tag)
			assert.Equal(t, tc.category, got.Category)
			assert.Equal(t, tc.reply, got.Reply)
			assert.Equal(t, tc.stage, got.Stage)
		})
	}
}

func TestMatchOverlapResolvedByDeclarationOrder(t *testing.T) {
	// "track" is declared before "support", "help" before both.
	assert.Equal(t, Track, Match("track my support ticket", language.English).Category)
	assert.Equal(t, Help, Match("help me open a support ticket", language.English).Category)
	assert.Equal(t, Booking, Match("book a wash", language.English).Category)
}

func TestMatchIsDeterministic(t *testing.T) {
	inputs := []string{"Book a service", "open support ticket", "asdkjasd qwer", "how much for wax"}
	for _, in := range inputs {
		first := Match(in, language.English)
		for i := 0; i < 20; i++ {
			require.Equal(t, first, Match(in, language.English))
		}
	}
}

func TestNonDefaultLanguagesNeverFallThrough(t *testing.T) {
	// English-only vocabulary must not leak into other tables.
	englishOnly := []string{"appointment", "ceramic coating", "hello", "open support ticket please"}

	for _, tag := range []language.Tag{language.Spanish, language.Arabic} {
		table, ok := TableFor(tag)
		require.True(t, ok)
		own := map[Category]bool{Default: true}
		for _, rule := range table.Primary {
			own[rule.Category] = true
		}

		for _, text := range englishOnly {
			got := Match(text, tag)
			assert.True(t, own[got.Category], "%s: category %s not in own table", tag, got.Category)
			assert.NotEqual(t, StageExtended, got.Stage)
		}
		assert.Equal(t, Default, Match("appointment", tag).Category)
	}
}

func TestPrimaryTablesFollowDeclarationOrder(t *testing.T) {
	for _, tag := range language.All() {
		table, ok := TableFor(tag)
		require.True(t, ok, "missing table for %s", tag)
		require.NotEmpty(t, table.Primary)

		order := make(map[Category]int)
		for i, c := range Categories() {
			order[c] = i
		}

		last := -1
		for _, rule := range table.Primary {
			require.True(t, rule.Category.Valid())
			require.GreaterOrEqual(t, order[rule.Category], last, "%s: %s declared out of order", tag, rule.Category)
			last = order[rule.Category]
		}
	}
}

func TestExtendedBatteryOnlyForDefault(t *testing.T) {
	for _, tag := range language.All() {
		table, _ := TableFor(tag)
		if tag.IsDefault() {
			assert.NotEmpty(t, table.Extended)
			continue
		}
		assert.Empty(t, table.Extended, "%s should not carry an extended battery", tag)
	}
}

func TestMatchUnknownTagUsesDefaultTable(t *testing.T) {
	got := Match("Book a service", language.Tag("de"))
	assert.Equal(t, Booking, got.Category)
}

func TestCategoryHelpers(t *testing.T) {
	assert.True(t, Booking.Navigates())
	assert.False(t, Help.Navigates())
	assert.True(t, Support.SwitchesView())
	assert.False(t, Category("greeting").Valid())
	assert.False(t, Category("nope").Navigates())

	path, ok := Booking.Page()
	assert.True(t, ok)
	assert.Equal(t, "/booking", path)
	_, ok = Support.Page()
	assert.False(t, ok)
	assert.Equal(t, Default, Categories()[len(Categories())-1])
}
