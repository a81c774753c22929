package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/lead-cli/internal/textutil"
)

// noise is removed before the page text is sent to the oracle.
const noise = "script, style, noscript, svg, iframe, template, link, meta"

// Compact shrinks markup longer than maxChars to its visible text plus the
// mailto: and tel: targets found in links, then truncates to maxChars.
// Markup within the bound is returned unchanged.
func Compact(html string, maxChars int) string {
	if maxChars <= 0 || len(html) <= maxChars {
		return html
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return textutil.Truncate(html, maxChars)
	}

	var hints []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		lower := strings.ToLower(href)
		if strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") {
			hints = append(hints, href)
		}
	})

	doc.Find(noise).Remove()
	text := strings.Join(strings.Fields(doc.Text()), " ")

	var b strings.Builder
	if len(hints) > 0 {
		b.WriteString("Link di contatto: ")
		b.WriteString(strings.Join(dedupe(hints), " "))
		b.WriteString("\n")
	}
	b.WriteString(text)

	return textutil.Truncate(b.String(), maxChars)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
