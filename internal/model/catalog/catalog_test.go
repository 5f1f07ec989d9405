package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/concierge/backend/internal/analysis/language"
)

const minimalYAML = `
services:
  - id: wash
    names: {en: Wash, es: Lavado}
symptoms:
  - id: dirty
    keywords:
      en: [dirty]
    services:
      - {id: wash, weight: 2}
`

func TestSeedIsValid(t *testing.T) {
	c := Seed()
	require.NotEmpty(t, c.Services)
	require.NotEmpty(t, c.Symptoms)

	pc, ok := c.FindService("paint-correction")
	require.True(t, ok)
	assert.Equal(t, "Paint Correction", pc.Name(language.English))
	assert.Equal(t, "Corrección de pintura", pc.Name(language.Spanish))

	for _, svc := range c.Services {
		for _, tag := range language.All() {
			assert.NotEmpty(t, svc.Names[string(tag)], "%s lacks a %s name", svc.ID, tag)
		}
	}
}

func TestLocalizedFallsBackToDefault(t *testing.T) {
	c, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	svc, _ := c.FindService("wash")
	assert.Equal(t, "Wash", svc.Name(language.Arabic))
	assert.Equal(t, "Lavado", svc.Name(language.Spanish))
	assert.Empty(t, svc.Summary(language.French))
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"empty":            `services: []`,
		"duplicate":        "services:\n  - {id: a, names: {en: A}}\n  - {id: a, names: {en: B}}\n",
		"missing name":     "services:\n  - {id: a, names: {es: A}}\n",
		"unknown service":  "services:\n  - {id: a, names: {en: A}}\nsymptoms:\n  - {id: s, keywords: {en: [x]}, services: [{id: b, weight: 1}]}\n",
		"zero weight":      "services:\n  - {id: a, names: {en: A}}\nsymptoms:\n  - {id: s, keywords: {en: [x]}, services: [{id: a, weight: 0}]}\n",
		"unknown language": "services:\n  - {id: a, names: {en: A}}\nsymptoms:\n  - {id: s, keywords: {de: [x]}, services: [{id: a, weight: 1}]}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidCatalog), "unexpected error: %v", err)
		})
	}

	_, err := Parse([]byte("services: [unclosed"))
	require.Error(t, err)
}

func TestMemoryStoreReplace(t *testing.T) {
	store := NewMemoryStore(Seed())
	first := len(store.Services())

	c, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)
	store.Replace(c)
	store.Replace(nil)

	assert.Len(t, store.Services(), 1)
	assert.NotEqual(t, first, len(store.Services()))
	_, ok := store.FindService("paint-correction")
	assert.False(t, ok)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewMemoryStore(Seed())
	require.NoError(t, Watch(ctx, path, store))
	require.Len(t, store.Services(), 1)

	updated := "services:\n  - id: wash\n    names: {en: Wash}\n  - id: polish\n    names: {en: Polish}\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	require.Eventually(t, func() bool {
		return len(store.Services()) == 2
	}, 3*time.Second, 20*time.Millisecond)

	// A broken edit keeps the previous snapshot.
	require.NoError(t, os.WriteFile(path, []byte("services: ["), 0o644))
	time.Sleep(2 * reloadDebounce)
	assert.Len(t, store.Services(), 2)
}

func TestWatchFailsOnMissingFile(t *testing.T) {
	store := NewMemoryStore(Seed())
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), store)
	require.Error(t, err)
	assert.NotEmpty(t, store.Services())
}
