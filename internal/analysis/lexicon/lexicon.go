// Package lexicon holds the text normalisation shared by every keyword table.
//
// Utterances are case-folded, every rune that is not a letter or digit becomes a
// space, runs of spaces collapse, and the result is padded with one space on each
// side. A keyword written with a leading or trailing space therefore only matches
// on a word boundary (" hi " never fires inside "this"), while a bare keyword is
// plain substring containment ("scratch" fires inside "scratches").
package lexicon

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// Normalize prepares an utterance for keyword containment checks.
func Normalize(text string) string {
	core := fold(text)
	if core == "" {
		return " "
	}
	return " " + core + " "
}

func fold(text string) string {
	// cases.Caser is stateful, so one per call.
	folded := cases.Fold().String(text)

	var b strings.Builder
	b.Grow(len(folded))
	space := true
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Keyword is a compiled keyword ready for containment checks against Normalize output.
type Keyword struct {
	raw  string
	form string
}

// Compile normalises a keyword while keeping its boundary markers.
func Compile(raw string) Keyword {
	core := fold(raw)
	if core == "" {
		return Keyword{raw: raw}
	}
	form := core
	if strings.HasPrefix(raw, " ") {
		form = " " + form
	}
	if strings.HasSuffix(raw, " ") {
		form += " "
	}
	return Keyword{raw: raw, form: form}
}

// CompileAll compiles every keyword, skipping blanks.
func CompileAll(raw []string) []Keyword {
	out := make([]Keyword, 0, len(raw))
	for _, r := range raw {
		k := Compile(r)
		if k.form == "" {
			continue
		}
		out = append(out, k)
	}
	return out
}

// In reports whether the keyword occurs in a normalised utterance.
func (k Keyword) In(normalized string) bool {
	return k.form != "" && strings.Contains(normalized, k.form)
}

// String returns the keyword as written in the table.
func (k Keyword) String() string {
	return strings.TrimSpace(k.raw)
}

// FirstIn returns the first keyword contained in normalized.
func FirstIn(keywords []Keyword, normalized string) (Keyword, bool) {
	for _, k := range keywords {
		if k.In(normalized) {
			return k, true
		}
	}
	return Keyword{}, false
}
