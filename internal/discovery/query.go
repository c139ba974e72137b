package discovery

import "strings"

// Mode selects how providers interpret a query.
type Mode string

const (
	ModeText     Mode = "text"
	ModeLanguage Mode = "language"
	ModeSubject  Mode = "subject"
	ModeAuthor   Mode = "author"
)

// Query is a search request after language and culture detection.
type Query struct {
	Text         string
	Mode         Mode
	LanguageCode string
}

// Parse classifies text. A known language name becomes a language query,
// text containing a culture keyword becomes a subject query.
func (t *Tables) Parse(text string) Query {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)
	if code, ok := t.Languages[lower]; ok {
		return Query{Text: text, Mode: ModeLanguage, LanguageCode: code}
	}
	for _, kw := range t.CultureKeywords {
		if strings.Contains(lower, kw) {
			return Query{Text: text, Mode: ModeSubject}
		}
	}
	return Query{Text: text, Mode: ModeText}
}

// ParseQuery classifies text with the embedded tables.
func ParseQuery(text string) Query {
	return DefaultTables().Parse(text)
}

// AuthorQuery builds a query listing works by author.
func AuthorQuery(author string) Query {
	return Query{Text: strings.TrimSpace(author), Mode: ModeAuthor}
}
