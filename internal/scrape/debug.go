package scrape

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DebugPrintSelector prints either outer HTML or text of matches for a
// selector, followed by a match count. It backs "scrape selector", which is
// how a broken selector is diagnosed after Letterboxd changes its markup.
func DebugPrintSelector(w io.Writer, html, selector string, textOnly bool) (int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, fmt.Errorf("parse html: %w", err)
	}

	matches := doc.Find(selector)
	matches.Each(func(_ int, s *goquery.Selection) {
		if textOnly {
			fmt.Fprintln(w, strings.Join(strings.Fields(s.Text()), " "))
			return
		}
		out, err := goquery.OuterHtml(s)
		if err != nil {
			out, _ = s.Html()
		}
		fmt.Fprintln(w, out)
		fmt.Fprintln(w)
	})
	fmt.Fprintf(w, "%d match(es) for %q\n", matches.Length(), selector)
	return matches.Length(), nil
}

// CheckMappings reports, per mapping, how many nodes its selector matches in
// html. In record mode selectors are counted inside the records.
func CheckMappings(html string, mf *MappingFile) (map[string]int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	root := doc.Selection
	counts := make(map[string]int, len(mf.Mappings)+1)
	if mf.RecordSelector != "" {
		root = doc.Find(mf.RecordSelector)
		counts["record_selector"] = root.Length()
	}
	for _, m := range mf.Mappings {
		key := m.JSONPath + " <- " + m.Selector
		if strings.TrimSpace(m.Selector) == "" {
			counts[key] = root.Length()
			continue
		}
		counts[key] = root.Find(m.Selector).Length()
	}
	return counts, nil
}
