package discovery

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var keywordsYAML []byte

// Rule maps a keyword found in free text to a replacement query.
type Rule struct {
	Keyword string `yaml:"keyword"`
	Title   string `yaml:"title"`
	Genre   string `yaml:"genre"`
}

// Replacement returns the query the rule rewrites to.
func (r Rule) Replacement() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Genre
}

// Tables holds the lookup tables used for query detection and rewriting.
type Tables struct {
	Languages       map[string]string `yaml:"languages"`
	CultureKeywords []string          `yaml:"culture_keywords"`
	FamousBooks     []Rule            `yaml:"famous_books"`
	Moods           []Rule            `yaml:"moods"`
}

// ParseTables decodes a YAML document shaped like keywords.yaml.
func ParseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse keyword tables: %w", err)
	}
	normalized := make(map[string]string, len(t.Languages))
	for name, code := range t.Languages {
		normalized[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(code)
	}
	t.Languages = normalized
	for i, kw := range t.CultureKeywords {
		t.CultureKeywords[i] = strings.ToLower(strings.TrimSpace(kw))
	}
	for _, rules := range [][]Rule{t.FamousBooks, t.Moods} {
		for i := range rules {
			rules[i].Keyword = strings.ToLower(strings.TrimSpace(rules[i].Keyword))
			if rules[i].Keyword == "" || rules[i].Replacement() == "" {
				return nil, fmt.Errorf("parse keyword tables: incomplete rule at %d", i)
			}
		}
	}
	return &t, nil
}

var defaultTables = sync.OnceValue(func() *Tables {
	t, err := ParseTables(keywordsYAML)
	if err != nil {
		panic(err)
	}
	return t
})

// DefaultTables returns the tables embedded in the binary.
func DefaultTables() *Tables {
	return defaultTables()
}
