package discovery

import (
	"strings"
	"unicode/utf8"
)

// DefaultQuery replaces inputs too short to search for.
const DefaultQuery = "popular fiction"

// Rewriter turns free text into the query actually sent to providers.
type Rewriter struct {
	tables *Tables
}

func NewRewriter(t *Tables) *Rewriter {
	if t == nil {
		t = DefaultTables()
	}
	return &Rewriter{tables: t}
}

// Rewrite checks the famous book table first, then the mood table, by
// substring in table order. Unmatched text is returned trimmed.
func (r *Rewriter) Rewrite(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < 2 {
		return DefaultQuery
	}
	lower := strings.ToLower(text)
	if rule, ok := match(r.tables.FamousBooks, lower); ok {
		return rule.Replacement()
	}
	if rule, ok := match(r.tables.Moods, lower); ok {
		return rule.Replacement()
	}
	return text
}

func match(rules []Rule, lower string) (Rule, bool) {
	for _, rule := range rules {
		if strings.Contains(lower, rule.Keyword) {
			return rule, true
		}
	}
	return Rule{}, false
}
