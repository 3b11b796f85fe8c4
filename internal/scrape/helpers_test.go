package scrape

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// listPage renders a Letterboxd-style list page holding films first..last
// (ids equal positions) and a pagination block up to pages.
func listPage(first, last, pages int) string {
	var b strings.Builder
	b.WriteString(`<html><body><ul class="poster-list">`)
	for i := first; i <= last; i++ {
		fmt.Fprintf(&b, `<li class="poster-container"><div class="film-poster" data-film-id="%d" data-film-slug="film-%d" data-target-link="/film/film-%d/"><img alt="Film %d"></div><p class="list-number">%d</p></li>`, i, i, i, i, i)
	}
	b.WriteString(`</ul>`)
	if pages > 1 {
		b.WriteString(`<div class="paginate-pages"><ul>`)
		for p := 1; p <= pages; p++ {
			fmt.Fprintf(&b, `<li><a href="page/%d/">%d</a></li>`, p, p)
		}
		b.WriteString(`</ul></div>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

type fakeGetter struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func (f *fakeGetter) Get(_ context.Context, src string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, src)
	body, ok := f.pages[src]
	if !ok {
		return nil, fmt.Errorf("http status 404: %s", src)
	}
	return []byte(body), nil
}
