package scrape

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractOneHTML parses the given HTML string and applies mappings relative to
// the document root.
//
// Missing selectors are not treated as errors; they simply produce no output.
func ExtractOneHTML(html string, mappings []Mapping) (map[string]any, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return parseSelection(doc.Selection, mappings)
}

// ExtractRecordsHTML parses the given HTML string and extracts one JSON-ready
// map per record container matched by recordSelector, in DOM order.
func ExtractRecordsHTML(html, recordSelector string, mappings []Mapping) ([]map[string]any, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return extractRecords(doc, recordSelector, mappings), nil
}

// extractRecords skips records whose extraction fails so one malformed entry
// does not lose the page.
func extractRecords(doc *goquery.Document, recordSelector string, mappings []Mapping) []map[string]any {
	var records []map[string]any

	doc.Find(recordSelector).Each(func(_ int, rec *goquery.Selection) {
		obj, err := parseSelection(rec, mappings)
		if err != nil {
			return
		}
		if len(obj) > 0 {
			records = append(records, obj)
		}
	})

	return records
}

// parseSelection applies all mappings relative to root and returns a JSON-ready map.
//
// Semantics:
//   - An empty Mapping.Selector targets root itself.
//   - If Mapping.All is true, all selector matches are collected into []string.
//   - Otherwise, only the first match is extracted, and a json_path that
//     already has a value is not overwritten (earlier rules win).
//   - If Mapping.Match is set, group 1 (or the full match when the regex has
//     no groups) is kept; a non-matching value is omitted.
func parseSelection(root *goquery.Selection, mappings []Mapping) (map[string]any, error) {
	output := make(map[string]any)

	for _, mapping := range mappings {
		re, err := compileOptionalRegex(mapping.Match, mapping.JSONPath)
		if err != nil {
			return nil, err
		}

		extractOne := func(sel *goquery.Selection) string {
			switch mapping.Extract {
			case "text":
				return strings.Join(strings.Fields(sel.Text()), " ")

			case "attr":
				if mapping.Attr == "" {
					return ""
				}
				if val, ok := sel.Attr(mapping.Attr); ok {
					return strings.TrimSpace(val)
				}
				return ""

			case "html":
				h, err := sel.Html()
				if err != nil {
					return ""
				}
				return strings.TrimSpace(h)

			default:
				return ""
			}
		}

		matches := root
		if strings.TrimSpace(mapping.Selector) != "" {
			matches = root.Find(mapping.Selector)
		}

		if mapping.All {
			var vals []string
			matches.Each(func(_ int, sel *goquery.Selection) {
				v := applyRegexFilter(extractOne(sel), re)
				if v != "" {
					vals = append(vals, v)
				}
			})
			if len(vals) > 0 {
				output[mapping.JSONPath] = vals
			}
			continue
		}

		if _, done := output[mapping.JSONPath]; done {
			continue
		}
		sel := matches.First()
		if sel.Length() == 0 {
			continue
		}
		if v := applyRegexFilter(extractOne(sel), re); v != "" {
			output[mapping.JSONPath] = v
		}
	}

	return output, nil
}

// compileOptionalRegex returns (nil, nil) for an empty pattern. Errors name
// the json_path so a broken mapping file is easy to fix.
func compileOptionalRegex(pattern, jsonPath string) (*regexp.Regexp, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex for json_path=%q: %w", jsonPath, err)
	}
	return re, nil
}

// applyRegexFilter returns value unchanged for a nil re, "" when re does not
// match, group 1 when re has groups, and the full match otherwise.
func applyRegexFilter(value string, re *regexp.Regexp) string {
	if value == "" || re == nil {
		return value
	}

	sm := re.FindStringSubmatch(value)
	if len(sm) == 0 {
		return ""
	}
	if len(sm) > 1 {
		return sm[1]
	}
	return sm[0]
}
