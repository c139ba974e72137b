package book

import (
	"fmt"
	"strings"
)

const summaryDescriptionLimit = 200

// Summary builds a short blurb for the details view from whatever metadata
// the record carries.
func Summary(r Record) string {
	title := r.TitleText()
	if title == "" {
		title = "Unknown Title"
	}
	authors := "Unknown Author"
	if len(r.AuthorName) > 0 {
		authors = strings.Join(r.AuthorName, ", ")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s by %s", title, authors)
	if r.FirstPublishYear != nil {
		fmt.Fprintf(&sb, ", published in %d", *r.FirstPublishYear)
	}
	sb.WriteString(". ")

	subjects := r.Subject
	if len(subjects) > 3 {
		subjects = subjects[:3]
	}

	switch {
	case r.Description != nil && *r.Description != "":
		desc := []rune(*r.Description)
		if len(desc) > summaryDescriptionLimit {
			sb.WriteString(string(desc[:summaryDescriptionLimit]))
			sb.WriteString("...")
		} else {
			sb.WriteString(string(desc))
		}
	case len(subjects) > 0:
		fmt.Fprintf(&sb, "This book covers topics including %s. ", strings.Join(subjects, ", "))
		fmt.Fprintf(&sb, "A comprehensive exploration of %s and related subjects.", subjects[0])
	default:
		sb.WriteString("An insightful work that explores important themes and concepts in its field. ")
		sb.WriteString("Readers will find valuable information and perspectives presented in an engaging manner.")
	}
	return sb.String()
}
