package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/concierge/backend/internal/analysis/language"
)

//go:embed catalog.yaml
var seedYAML []byte

var (
	// ErrInvalidCatalog wraps every validation failure.
	ErrInvalidCatalog = errors.New("catalog: invalid dataset")
)

// Service is one bookable detailing package.
type Service struct {
	ID              string            `yaml:"id" json:"id"`
	Path            string            `yaml:"path" json:"path"`
	DurationMinutes int               `yaml:"durationMinutes" json:"durationMinutes"`
	PriceFrom       float64           `yaml:"priceFrom" json:"priceFrom"`
	Names           map[string]string `yaml:"names" json:"names"`
	Summaries       map[string]string `yaml:"summaries" json:"summaries"`
}

// Name returns the localized service name, falling back to the default language.
func (s Service) Name(tag language.Tag) string {
	return localized(s.Names, tag, s.ID)
}

// Summary returns the localized one-line description.
func (s Service) Summary(tag language.Tag) string {
	return localized(s.Summaries, tag, "")
}

func localized(values map[string]string, tag language.Tag, fallback string) string {
	if v := values[string(tag)]; v != "" {
		return v
	}
	if v := values[string(language.Default)]; v != "" {
		return v
	}
	return fallback
}

// Weight links a symptom to a service that treats it.
type Weight struct {
	ServiceID string `yaml:"id" json:"serviceId"`
	Weight    int    `yaml:"weight" json:"weight"`
}

// Symptom is a vehicle condition described in customer vocabulary.
type Symptom struct {
	ID       string              `yaml:"id" json:"id"`
	Keywords map[string][]string `yaml:"keywords" json:"keywords"`
	Services []Weight            `yaml:"services" json:"services"`
}

// KeywordsFor returns the vocabulary of one language.
func (s Symptom) KeywordsFor(tag language.Tag) []string {
	return append([]string(nil), s.Keywords[string(tag)]...)
}

// Catalog is an immutable snapshot of services and symptoms. Service order is
// significant: it breaks ties between equally scored recommendations.
type Catalog struct {
	Services []Service `yaml:"services" json:"services"`
	Symptoms []Symptom `yaml:"symptoms" json:"symptoms"`
}

// FindService looks up a service by identifier.
func (c *Catalog) FindService(id string) (Service, bool) {
	for _, s := range c.Services {
		if s.ID == id {
			return s, true
		}
	}
	return Service{}, false
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads a catalog file from disk.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Seed returns the built-in catalog.
func Seed() *Catalog {
	c, err := Parse(seedYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is broken: %v", err))
	}
	return c
}

func (c *Catalog) validate() error {
	if len(c.Services) == 0 {
		return fmt.Errorf("%w: no services", ErrInvalidCatalog)
	}

	ids := make(map[string]struct{}, len(c.Services))
	for i, s := range c.Services {
		if strings.TrimSpace(s.ID) == "" {
			return fmt.Errorf("%w: service #%d has no id", ErrInvalidCatalog, i)
		}
		if _, dup := ids[s.ID]; dup {
			return fmt.Errorf("%w: duplicate service %q", ErrInvalidCatalog, s.ID)
		}
		if s.Names[string(language.Default)] == "" {
			return fmt.Errorf("%w: service %q has no %s name", ErrInvalidCatalog, s.ID, language.Default)
		}
		ids[s.ID] = struct{}{}
	}

	for _, sym := range c.Symptoms {
		if strings.TrimSpace(sym.ID) == "" {
			return fmt.Errorf("%w: symptom without id", ErrInvalidCatalog)
		}
		for lang := range sym.Keywords {
			if !language.Tag(lang).Valid() {
				return fmt.Errorf("%w: symptom %q uses unsupported language %q", ErrInvalidCatalog, sym.ID, lang)
			}
		}
		for _, w := range sym.Services {
			if _, ok := ids[w.ServiceID]; !ok {
				return fmt.Errorf("%w: symptom %q references unknown service %q", ErrInvalidCatalog, sym.ID, w.ServiceID)
			}
			if w.Weight <= 0 {
				return fmt.Errorf("%w: symptom %q has non-positive weight for %q", ErrInvalidCatalog, sym.ID, w.ServiceID)
			}
		}
	}
	return nil
}
