// Package recommend maps symptom descriptions ("my paint has swirl marks") onto
// ranked detailing services.
package recommend

import (
	"slices"
	"sync"

	"github.com/zhouzirui/concierge/backend/internal/analysis/language"
	"github.com/zhouzirui/concierge/backend/internal/analysis/lexicon"
	"github.com/zhouzirui/concierge/backend/internal/model/catalog"
)

// MaxRecommendations caps the ranked list.
const MaxRecommendations = 3

// Recommendation is one ranked service suggestion. Rank starts at 1.
type Recommendation struct {
	ServiceID string `json:"serviceId"`
	Rank      int    `json:"rank"`
	Score     int    `json:"score"`
}

// Engine scores catalog services against the symptoms found in an utterance.
type Engine struct {
	store catalog.Store

	mu     sync.Mutex
	source *catalog.Catalog
	index  *index
}

type symptomEntry struct {
	id       string
	byLang   map[language.Tag][]lexicon.Keyword
	any      []lexicon.Keyword
	services []catalog.Weight
}

type index struct {
	symptoms []symptomEntry
	order    map[string]int
}

// New returns an Engine reading from store.
func New(store catalog.Store) *Engine {
	return &Engine{store: store}
}

// current rebuilds the keyword index whenever the store hands out a new snapshot.
func (e *Engine) current() *index {
	snap := e.store.Snapshot()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.index != nil && e.source == snap {
		return e.index
	}
	e.index = buildIndex(snap)
	e.source = snap
	return e.index
}

func buildIndex(c *catalog.Catalog) *index {
	idx := &index{order: make(map[string]int)}
	if c == nil {
		return idx
	}
	for i, svc := range c.Services {
		idx.order[svc.ID] = i
	}
	for _, sym := range c.Symptoms {
		entry := symptomEntry{
			id:       sym.ID,
			byLang:   make(map[language.Tag][]lexicon.Keyword, len(sym.Keywords)),
			services: append([]catalog.Weight(nil), sym.Services...),
		}
		for _, tag := range language.All() {
			kws := lexicon.CompileAll(sym.KeywordsFor(tag))
			if len(kws) == 0 {
				continue
			}
			entry.byLang[tag] = kws
			entry.any = append(entry.any, kws...)
		}
		idx.symptoms = append(idx.symptoms, entry)
	}
	return idx
}

// IsProblem is a cheap pre-filter: does the utterance mention any known symptom
// in any supported language?
func (e *Engine) IsProblem(text string) bool {
	normalized := lexicon.Normalize(text)
	for _, sym := range e.current().symptoms {
		if _, ok := lexicon.FirstIn(sym.any, normalized); ok {
			return true
		}
	}
	return false
}

// Symptoms lists the symptom ids found in text using the vocabulary of tag.
func (e *Engine) Symptoms(text string, tag language.Tag) []string {
	if !tag.Valid() {
		tag = language.Default
	}
	normalized := lexicon.Normalize(text)

	var found []string
	for _, sym := range e.current().symptoms {
		if _, ok := lexicon.FirstIn(sym.byLang[tag], normalized); ok {
			found = append(found, sym.id)
		}
	}
	return found
}

// Recommend ranks services by the summed weight of every symptom mentioned in
// text. Each symptom counts once however many of its keywords appear. Ties keep
// catalog order. An empty result means no confident match.
func (e *Engine) Recommend(text string, tag language.Tag) []Recommendation {
	if !tag.Valid() {
		tag = language.Default
	}
	idx := e.current()
	normalized := lexicon.Normalize(text)

	scores := make(map[string]int)
	for _, sym := range idx.symptoms {
		if _, ok := lexicon.FirstIn(sym.byLang[tag], normalized); !ok {
			continue
		}
		for _, w := range sym.services {
			if _, known := idx.order[w.ServiceID]; !known {
				continue
			}
			scores[w.ServiceID] += w.Weight
		}
	}
	if len(scores) == 0 {
		return nil
	}

	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		if scores[a] != scores[b] {
			return scores[b] - scores[a]
		}
		return idx.order[a] - idx.order[b]
	})
	if len(ids) > MaxRecommendations {
		ids = ids[:MaxRecommendations]
	}

	out := make([]Recommendation, 0, len(ids))
	for i, id := range ids {
		out = append(out, Recommendation{ServiceID: id, Rank: i + 1, Score: scores[id]})
	}
	return out
}
