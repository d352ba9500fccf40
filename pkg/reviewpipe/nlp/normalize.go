package nlp

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NormalizeText strips HTML markup and entities and collapses whitespace.
// Only tags naming known HTML elements or attributes count as markup; any
// other "<..." sequence, including one left open at the end of the input,
// is kept as literal text. Every stripped tag separates words.
func NormalizeText(raw string) string {
	if !strings.ContainsAny(raw, "<&") {
		return collapseSpace(raw)
	}

	z := html.NewTokenizer(strings.NewReader(raw))
	var b strings.Builder
	skipping := false
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				// an unterminated tag is returned with the error
				b.WriteString(html.UnescapeString(string(z.Raw())))
			}
			return collapseSpace(b.String())

		case html.TextToken:
			if !skipping {
				b.Write(z.Text())
			}

		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			literal := string(z.Raw())
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if a == 0 {
				b.WriteString(html.UnescapeString(literal))
				continue
			}
			if a == atom.Script || a == atom.Style {
				skipping = tt == html.StartTagToken
			}
			b.WriteByte(' ')

		case html.CommentToken:
			literal := string(z.Raw())
			if strings.HasPrefix(literal, "<!--") {
				b.WriteByte(' ')
				continue
			}
			// bogus comments such as "</ 5" are plain text
			b.WriteString(html.UnescapeString(literal))

		case html.DoctypeToken:
			b.WriteByte(' ')
		}
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
