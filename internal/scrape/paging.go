package scrape

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageSize is the number of entries on a Letterboxd list page.
const PageSize = 100

// paginationSelector matches the numbered page links; the highest number is
// the last page.
const paginationSelector = ".paginate-pages li a, .paginate-pages li span, .pagination li a"

var (
	reDigitGroups = regexp.MustCompile(`\d+`)
	rePageSuffix  = regexp.MustCompile(`/page/\d+/?$`)
)

// LastPage returns the highest page number linked from the pagination block,
// or 1 when the list fits on one page.
func LastPage(doc *goquery.Document) int {
	last := 1
	doc.Find(paginationSelector).Each(func(_ int, s *goquery.Selection) {
		if n, err := strconv.Atoi(strings.TrimSpace(s.Text())); err == nil && n > last {
			last = n
		}
	})
	return last
}

// ListBase strips any /page/N/ suffix and guarantees a trailing slash.
func ListBase(listURL string) string {
	u := strings.TrimSpace(listURL)
	u = rePageSuffix.ReplaceAllString(strings.TrimRight(u, "/")+"/", "")
	return strings.TrimRight(u, "/") + "/"
}

// PageURL returns the URL of page n of the list. Page 1 is the bare list URL.
func PageURL(listURL string, n int) string {
	base := ListBase(listURL)
	if n <= 1 {
		return base
	}
	return fmt.Sprintf("%spage/%d/", base, n)
}

// PrintPageURLs prints one URL per list page, discovered from the pagination
// block of the first page's HTML.
func PrintPageURLs(w io.Writer, listURL, html string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("parse html %s: %w", listURL, err)
	}
	last := LastPage(doc)
	for p := 1; p <= last; p++ {
		if _, err := fmt.Fprintln(w, PageURL(listURL, p)); err != nil {
			return err
		}
	}
	return nil
}

// ResolveHref resolves href against base, returning an absolute URL string.
// If href is invalid, it is returned unchanged.
func ResolveHref(base *url.URL, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}

// ParseCountAny extracts an integer count from v.
//
// It accepts inputs like "1,096 films" by joining digit groups into "1096".
// It returns ok=false when v contains no digits.
func ParseCountAny(v any) (count int, ok bool, err error) {
	s, _ := v.(string)
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}

	parts := reDigitGroups.FindAllString(s, -1)
	if len(parts) == 0 {
		return 0, false, nil
	}

	n, convErr := strconv.Atoi(strings.Join(parts, ""))
	if convErr != nil {
		return 0, false, convErr
	}
	return n, true, nil
}
