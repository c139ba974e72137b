package provider

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"bookfinder/internal/book"
	"bookfinder/internal/platform/googlebooks"
	"bookfinder/internal/platform/openlibrary"
)

const coverURLFormat = "https://covers.openlibrary.org/b/id/%d-M.jpg"

// NormalizeLibrary maps an Open Library search doc onto a Record.
func NormalizeLibrary(doc openlibrary.Doc) book.Record {
	r := book.Record{
		ID:                  "ol_" + doc.Key,
		Key:                 book.StringPtr(doc.Key),
		Source:              book.SourceLibrary,
		Title:               doc.Title,
		AuthorName:          nonNil(doc.AuthorName),
		FirstPublishYear:    doc.FirstPublishYear,
		Publisher:           nonNil(doc.Publisher),
		ISBN:                nonNil(doc.ISBN),
		Subject:             nonNil(doc.Subject),
		Language:            nonNil(doc.Language),
		NumberOfPagesMedian: doc.NumberOfPagesMedian,
		EditionCount:        doc.EditionCount,
	}
	if doc.CoverI > 0 {
		r.CoverURL = book.StringPtr(fmt.Sprintf(coverURLFormat, doc.CoverI))
	}
	if len(doc.IA) > 0 {
		r.IA = append([]string(nil), doc.IA...)
	}
	return r
}

// NormalizeCommercial maps a Google Books volume onto a Record.
func NormalizeCommercial(v googlebooks.Volume) book.Record {
	info := v.VolumeInfo
	r := book.Record{
		ID:               "gb_" + v.ID,
		Key:              book.StringPtr(v.ID),
		Source:           book.SourceCommercial,
		Title:            info.Title,
		AuthorName:       nonNil(info.Authors),
		FirstPublishYear: publishYear(info.PublishedDate),
		Publisher:        wrap(info.Publisher),
		ISBN:             make([]string, 0, len(info.IndustryIdentifiers)),
		Subject:          nonNil(info.Categories),
		Language:         wrap(info.Language),
		EditionCount:     book.IntPtr(1),
		Description:      optional(htmlToText(info.Description)),
		PreviewLink:      optional(info.PreviewLink),
		InfoLink:         optional(info.InfoLink),
	}
	for _, id := range info.IndustryIdentifiers {
		if id.Identifier != "" {
			r.ISBN = append(r.ISBN, id.Identifier)
		}
	}
	if info.PageCount > 0 {
		r.NumberOfPagesMedian = book.IntPtr(info.PageCount)
	}
	if info.ImageLinks != nil && info.ImageLinks.Thumbnail != "" {
		r.CoverURL = book.StringPtr(secureThumbnail(info.ImageLinks.Thumbnail))
	}
	return r
}

// publishYear reads the leading four digit year of dates like "2012",
// "2012-02" or "2012-02-15". Years before 1000 are not recognized.
func publishYear(date string) *int {
	date = strings.TrimSpace(date)
	if len(date) < 4 || date[0] == '0' {
		return nil
	}
	for i := 0; i < 4; i++ {
		if date[i] < '0' || date[i] > '9' {
			return nil
		}
	}
	if len(date) > 4 && date[4] >= '0' && date[4] <= '9' {
		return nil
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return nil
	}
	return book.IntPtr(y)
}

func secureThumbnail(u string) string {
	u = strings.Replace(u, "http:", "https:", 1)
	return strings.ReplaceAll(u, "&edge=curl", "")
}

// htmlToText flattens description markup, keeping line breaks.
func htmlToText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		p.AppendHtml("\n")
	})
	return strings.TrimSpace(doc.Text())
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func wrap(s string) []string {
	if s == "" {
		return []string{}
	}
	return []string{s}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return book.StringPtr(s)
}
