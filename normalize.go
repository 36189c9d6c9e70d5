package kwsearch

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// NormalizeText decodes HTML entities, strips markup, collapses whitespace
// and removes control characters.
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}

	s = html.UnescapeString(s)

	if tagPattern.MatchString(s) {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader("<div>" + escapeBetweenTags(s) + "</div>"))
		if err == nil {
			s = doc.Text()
		}
	}

	s = strings.Join(strings.Fields(s), " ")

	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// tagPattern matches a complete tag. A bare "<" with no closing ">" is text.
var tagPattern = regexp.MustCompile(`<[^>]+>`)

// escapeBetweenTags escapes everything outside complete tags so the HTML
// parser only ever sees the tags themselves as markup.
func escapeBetweenTags(s string) string {
	var b strings.Builder
	last := 0
	for _, loc := range tagPattern.FindAllStringIndex(s, -1) {
		b.WriteString(html.EscapeString(s[last:loc[0]]))
		b.WriteString(s[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(html.EscapeString(s[last:]))
	return b.String()
}

// NormalizeURL trims the link and adds an https scheme when none is present.
func NormalizeURL(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
		link = "https://" + link
	}
	return link
}
