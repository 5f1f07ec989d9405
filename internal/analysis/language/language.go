package language

import (
	"strings"
	"unicode"

	xlanguage "golang.org/x/text/language"
)

// Tag is one of the locales the assistant can classify and speak.
type Tag string

const (
	English Tag = "en"
	Spanish Tag = "es"
	French  Tag = "fr"
	Arabic  Tag = "ar"
)

// Default is the base locale used whenever nothing else can be established.
const Default = English

var all = []Tag{English, Spanish, French, Arabic}

var speechLocales = map[Tag]string{
	English: "en-US",
	Spanish: "es-ES",
	French:  "fr-FR",
	Arabic:  "ar-SA",
}

// All returns the supported tags, default first.
func All() []Tag {
	return append([]Tag(nil), all...)
}

// IsDefault reports whether t is the base locale.
func (t Tag) IsDefault() bool {
	return t == Default
}

// Valid reports whether t belongs to the supported set.
func (t Tag) Valid() bool {
	_, ok := speechLocales[t]
	return ok
}

// SpeechLocale returns the regional locale handed to capture and synthesis capabilities.
func (t Tag) SpeechLocale() string {
	if locale, ok := speechLocales[t]; ok {
		return locale
	}
	return speechLocales[Default]
}

func (t Tag) String() string {
	return string(t)
}

// Parse maps any BCP 47 string ("es", "fr-CA", "AR") onto the supported set.
// Unknown or malformed input yields Default.
func Parse(raw string) Tag {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Default
	}

	base, confidence := xlanguage.Make(raw).Base()
	if confidence == xlanguage.No {
		return Default
	}

	tag := Tag(base.String())
	if !tag.Valid() {
		return Default
	}
	return tag
}

// SameBase reports whether two locale strings share a base language ("en-GB" vs "en").
func SameBase(a, b string) bool {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return false
	}
	baseA, confA := xlanguage.Make(a).Base()
	baseB, confB := xlanguage.Make(b).Base()
	if confA == xlanguage.No || confB == xlanguage.No {
		return false
	}
	return baseA == baseB
}

type detector struct {
	tag    Tag
	script *unicode.RangeTable
	runes  string
	words  map[string]struct{}
}

func (d detector) matches(lowered string, tokens []string) bool {
	if d.script != nil {
		for _, r := range lowered {
			if unicode.Is(d.script, r) {
				return true
			}
		}
	}
	if d.runes != "" && strings.ContainsAny(lowered, d.runes) {
		return true
	}
	for _, token := range tokens {
		if _, ok := d.words[token]; ok {
			return true
		}
	}
	return false
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Checked in order; the first detector that fires wins. Marker words must not
// also be English words ("favor", "prix" in Grand Prix) since every detector
// runs before the default.
var detectors = []detector{
	{
		tag:    Arabic,
		script: unicode.Arabic,
	},
	{
		tag:   Spanish,
		runes: "ñ¿¡áíóú",
		words: wordSet(
			"hola", "gracias", "quiero", "necesito", "reservar", "cita", "precio", "precios",
			"cuanto", "ayuda", "servicios", "servicio", "lavado", "coche", "carro", "buenos",
			"buenas", "tengo", "puedo", "estado", "queja", "soporte",
		),
	},
	{
		tag:   French,
		runes: "çèêàùâîôûœ",
		words: wordSet(
			"bonjour", "bonsoir", "salut", "merci", "voiture", "combien", "aide",
			"aidez", "voudrais", "vous", "nettoyage", "rendez", "lavage", "réserver",
			"réservation", "suivi", "je",
		),
	},
}

// Detect returns the locale an utterance is written in. It is total: blank or
// unrecognizable input yields Default.
func Detect(text string) Tag {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return Default
	}

	tokens := strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	for _, d := range detectors {
		if d.matches(lowered, tokens) {
			return d.tag
		}
	}
	return Default
}
