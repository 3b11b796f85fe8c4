// Package hydrate fills the parts of a film page Letterboxd loads after the
// initial HTML: the statistics list comes from a separate fragment request,
// which is why badges anchored to it have to wait for it.
package hydrate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/afchatfield/lb-list-to-json/internal/dom"
)

// ErrNoStats means the fragment did not contain the statistics container.
var ErrNoStats = errors.New("hydrate: statistics fragment has no container")

// Getter retrieves raw bytes for a URL.
type Getter interface {
	Get(ctx context.Context, src string) ([]byte, error)
}

// Hydrator fetches the statistics fragment of a film.
type Hydrator struct {
	Getter Getter
	// BaseURL is the site root, e.g. https://letterboxd.com.
	BaseURL string
	// Container selects the statistics list inside the fragment.
	Container string
	// Placeholder selects where the list goes on the page. When nothing
	// matches, the list is appended to <body>.
	Placeholder string
	Logger      zerolog.Logger
}

// StatsURL is the fragment URL for slug.
func (h *Hydrator) StatsURL(slug string) string {
	base := strings.TrimRight(h.BaseURL, "/")
	return fmt.Sprintf("%s/csi/film/%s/stats/", base, url.PathEscape(strings.Trim(slug, "/")))
}

// Hydrate fetches the fragment for slug and inserts its statistics list into
// page. It is a no-op when the page already has the container.
func (h *Hydrator) Hydrate(ctx context.Context, page *dom.Page, slug string) error {
	var present bool
	if err := page.Read(func(doc *goquery.Document) {
		present = doc.Find(h.Container).Length() > 0
	}); err != nil {
		return err
	}
	if present {
		return nil
	}

	src := h.StatsURL(slug)
	body, err := h.Getter.Get(ctx, src)
	if err != nil {
		return fmt.Errorf("fetch stats %s: %w", src, err)
	}
	nodes, err := h.extract(body)
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}

	err = page.Mutate(func(tx *dom.Tx) error {
		if tx.Doc.Find(h.Container).Length() > 0 {
			return nil
		}
		target := tx.Doc.Find("body")
		if h.Placeholder != "" {
			if ph := tx.Doc.Find(h.Placeholder).First(); ph.Length() > 0 {
				target = ph
			}
		}
		for _, n := range nodes {
			tx.Append(target.First(), n)
		}
		return nil
	})
	if err != nil {
		return err
	}
	h.Logger.Debug().Str("slug", slug).Int("nodes", len(nodes)).Msg("statistics hydrated")
	return nil
}

// extract returns the container nodes of the fragment, detached.
func (h *Hydrator) extract(body []byte) ([]*html.Node, error) {
	frag, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse stats fragment: %w", err)
	}
	sel := frag.Find(h.Container)
	if sel.Length() == 0 {
		return nil, ErrNoStats
	}
	nodes := make([]*html.Node, 0, sel.Length())
	for _, n := range sel.Nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}
