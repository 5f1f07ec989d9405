package lexicon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, " hello world ", Normalize("  Hello,   WORLD!! "))
	assert.Equal(t, " what s the price ", Normalize("What's the price?"))
	assert.Equal(t, " ", Normalize("?!"))
	assert.Equal(t, " réserver ", Normalize("RÉSERVER"))
}

func TestKeywordBoundaries(t *testing.T) {
	hi := Compile(" hi ")
	assert.True(t, hi.In(Normalize("Hi there")))
	assert.False(t, hi.In(Normalize("this is it")))

	book := Compile(" book")
	assert.True(t, book.In(Normalize("booking please")))
	assert.False(t, book.In(Normalize("facebook page")))

	scratch := Compile("scratch")
	assert.True(t, scratch.In(Normalize("deep scratches")))
}

func TestCompileAllSkipsBlank(t *testing.T) {
	kws := CompileAll([]string{"", "  ", "wax", "!!"})
	assert.Len(t, kws, 1)
	assert.Equal(t, "wax", kws[0].String())
}

func TestFirstInKeepsOrder(t *testing.T) {
	kws := CompileAll([]string{"polish", "wax"})
	got, ok := FirstIn(kws, Normalize("wax and polish"))
	assert.True(t, ok)
	assert.Equal(t, "polish", got.String())

	_, ok = FirstIn(kws, Normalize("nothing here"))
	assert.False(t, ok)
}
