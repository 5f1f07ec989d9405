package speech

import (
	"strings"

	"github.com/zhouzirui/concierge/backend/internal/analysis/language"
	"github.com/zhouzirui/concierge/backend/internal/model/speech"
)

// SelectVoice picks a voice for locale. Preference order: requested gender in
// the same language, any voice in the same language, the platform default,
// then the first voice offered. Exact locale matches beat base-language matches.
func SelectVoice(voices []speech.Voice, gender speech.Gender, locale string) (speech.Voice, bool) {
	if len(voices) == 0 {
		return speech.Voice{}, false
	}

	if gender != speech.GenderAny {
		if v, ok := bestForLocale(voices, locale, func(v speech.Voice) bool { return v.Gender == gender }); ok {
			return v, true
		}
	}
	if v, ok := bestForLocale(voices, locale, func(speech.Voice) bool { return true }); ok {
		return v, true
	}
	for _, v := range voices {
		if v.Default {
			return v, true
		}
	}
	return voices[0], true
}

func bestForLocale(voices []speech.Voice, locale string, keep func(speech.Voice) bool) (speech.Voice, bool) {
	var base *speech.Voice
	for i := range voices {
		v := voices[i]
		if !keep(v) {
			continue
		}
		if strings.EqualFold(v.Lang, locale) {
			return v, true
		}
		if base == nil && language.SameBase(v.Lang, locale) {
			base = &voices[i]
		}
	}
	if base != nil {
		return *base, true
	}
	return speech.Voice{}, false
}
