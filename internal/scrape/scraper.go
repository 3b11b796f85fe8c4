package scrape

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/afchatfield/lb-list-to-json/internal/metrics"
)

// SiteURL resolves relative film links when the list was read from disk.
const SiteURL = "https://letterboxd.com/"

// Getter retrieves raw bytes for a URL or local path.
type Getter interface {
	Get(ctx context.Context, src string) ([]byte, error)
}

// Options configures a Scraper.
type Options struct {
	// Mappings defaults to DefaultListMappings.
	Mappings *MappingFile
	// Workers bounds concurrent page fetches. Defaults to 4.
	Workers int
	// MaxPages caps how many pages are read. 0 reads all of them.
	MaxPages int
	Logger   zerolog.Logger
}

// Scraper turns Letterboxd list pages into ranked film entries.
type Scraper struct {
	getter Getter
	opts   Options
}

// New returns a Scraper fetching through g.
func New(g Getter, opts Options) *Scraper {
	if opts.Mappings == nil {
		opts.Mappings = DefaultListMappings()
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Scraper{getter: g, opts: opts}
}

// List scrapes every page of the list at listURL and returns its films in
// list order, deduplicated by film id. The first page decides how many pages
// there are; the rest are fetched concurrently.
func (s *Scraper) List(ctx context.Context, listURL string) ([]Film, error) {
	start := time.Now()
	log := s.opts.Logger.With().Str("list", listURL).Logger()
	base := siteBase(listURL)

	first, err := s.page(ctx, PageURL(listURL, 1))
	if err != nil {
		return nil, err
	}
	last := LastPage(first)
	if s.opts.MaxPages > 0 && last > s.opts.MaxPages {
		last = s.opts.MaxPages
	}
	log.Debug().Int("pages", last).Msg("pagination discovered")

	pages := make([][]Film, last)
	pages[0] = s.films(first, 0, base)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for p := 2; p <= last; p++ {
		g.Go(func() error {
			doc, err := s.page(gctx, PageURL(listURL, p))
			if err != nil {
				return fmt.Errorf("page %d: %w", p, err)
			}
			pages[p-1] = s.films(doc, (p-1)*PageSize, base)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Film
	for _, pf := range pages {
		all = append(all, pf...)
	}
	films := Dedupe(all)
	metrics.IncCounter(metrics.ScrapeEntriesTotal, float64(len(films)), nil)

	log.Info().
		Int("pages", last).
		Int("films", len(films)).
		Int("duplicates", len(all)-len(films)).
		Dur("elapsed", time.Since(start)).
		Msg("list scraped")
	return films, nil
}

func (s *Scraper) page(ctx context.Context, pageURL string) (*goquery.Document, error) {
	b, err := s.getter.Get(ctx, pageURL)
	if err != nil {
		metrics.IncCounter(metrics.ScrapePagesTotal, 1, metrics.Labels{"status": "error"})
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(b))
	if err != nil {
		metrics.IncCounter(metrics.ScrapePagesTotal, 1, metrics.Labels{"status": "error"})
		return nil, fmt.Errorf("parse html %s: %w", pageURL, err)
	}
	metrics.IncCounter(metrics.ScrapePagesTotal, 1, metrics.Labels{"status": "ok"})
	return doc, nil
}

func (s *Scraper) films(doc *goquery.Document, offset int, base *url.URL) []Film {
	mf := s.opts.Mappings
	var records []map[string]any
	if mf.RecordSelector != "" {
		records = extractRecords(doc, mf.RecordSelector, mf.Mappings)
	} else if obj, err := parseSelection(doc.Selection, mf.Mappings); err == nil && len(obj) > 0 {
		records = []map[string]any{obj}
	}
	return FilmsFromRecords(records, offset, base)
}

// siteBase is listURL itself for web lists and SiteURL for files on disk.
func siteBase(listURL string) *url.URL {
	if u, err := url.Parse(listURL); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return u
	}
	u, _ := url.Parse(SiteURL)
	return u
}
