// Package progress overlays list-completion bars on links to Letterboxd
// lists. It polls the page on a fixed interval because list links appear as
// the host page loads more content; each anchor is handled once.
package progress

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/errgroup"

	"github.com/afchatfield/lb-list-to-json/internal/dom"
)

// MarkerAttr is set on every overlay to the rounded percentage.
const MarkerAttr = "data-list-progress"

const (
	DefaultInterval       = 2 * time.Second
	DefaultAnchorSelector = `a[href*="/list/"]`
	DefaultPanelSelector  = ".progress-panel"
	DefaultWorkers        = 4
)

var rePercent = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)

// Getter retrieves raw bytes for a URL.
type Getter interface {
	Get(ctx context.Context, src string) ([]byte, error)
}

// Overlay decorates list anchors on one page.
type Overlay struct {
	Page   *dom.Page
	Getter Getter
	// BaseURL resolves relative hrefs.
	BaseURL        string
	Interval       time.Duration
	AnchorSelector string
	// PanelSelector finds the progress panel in the fetched list page. Its
	// data-progress attribute, or else a "NN%" in its text, is the value.
	PanelSelector string
	Workers       int
	Logger        zerolog.Logger

	mu   sync.Mutex
	seen map[*html.Node]struct{}
}

func (o *Overlay) defaults() {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.AnchorSelector == "" {
		o.AnchorSelector = DefaultAnchorSelector
	}
	if o.PanelSelector == "" {
		o.PanelSelector = DefaultPanelSelector
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.seen == nil {
		o.seen = make(map[*html.Node]struct{})
	}
}

// Run polls until ctx is cancelled or the page is closed. The first poll
// happens immediately.
func (o *Overlay) Run(ctx context.Context) error {
	o.defaults()

	s, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = s.NewJob(
		gocron.DurationJob(o.Interval),
		gocron.NewTask(func() {
			if _, err := o.Tick(ctx); err != nil {
				o.Logger.Debug().Err(err).Msg("progress poll skipped")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = s.Shutdown()
		return err
	}

	s.Start()
	o.Logger.Debug().Dur("interval", o.Interval).Msg("progress overlay started")

	select {
	case <-ctx.Done():
	case <-o.Page.Done():
	}
	if err := s.Shutdown(); err != nil {
		o.Logger.Error().Err(err).Msg("progress scheduler shutdown")
	}
	return nil
}

type pending struct {
	node *html.Node
	href string
}

// Tick handles anchors that appeared since the last tick and returns how many
// overlays it added. A list whose panel cannot be fetched is not retried.
func (o *Overlay) Tick(ctx context.Context) (int, error) {
	o.defaults()

	var todo []pending
	err := o.Page.Read(func(doc *goquery.Document) {
		o.mu.Lock()
		defer o.mu.Unlock()
		doc.Find(o.AnchorSelector).Each(func(_ int, s *goquery.Selection) {
			n := s.Get(0)
			if _, ok := o.seen[n]; ok {
				return
			}
			o.seen[n] = struct{}{}
			if s.Find("["+MarkerAttr+"]").Length() > 0 {
				return
			}
			if href, ok := s.Attr("href"); ok && strings.TrimSpace(href) != "" {
				todo = append(todo, pending{node: n, href: href})
			}
		})
	})
	if err != nil || len(todo) == 0 {
		return 0, err
	}

	pct := make([]float64, len(todo))
	ok := make([]bool, len(todo))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Workers)
	for i, p := range todo {
		g.Go(func() error {
			v, err := o.fetch(gctx, p.href)
			if err != nil {
				o.Logger.Warn().Err(err).Str("href", p.href).Msg("list progress unavailable")
				return nil
			}
			pct[i], ok[i] = v, true
			return nil
		})
	}
	_ = g.Wait()

	added := 0
	err = o.Page.Mutate(func(tx *dom.Tx) error {
		for i, p := range todo {
			if !ok[i] {
				continue
			}
			tx.Append(goquery.NewDocumentFromNode(p.node).Selection, Bar(pct[i]))
			added++
		}
		return nil
	})
	return added, err
}

func (o *Overlay) fetch(ctx context.Context, href string) (float64, error) {
	src := href
	if o.BaseURL != "" {
		if base, err := url.Parse(o.BaseURL); err == nil {
			if ref, err := url.Parse(href); err == nil {
				src = base.ResolveReference(ref).String()
			}
		}
	}
	body, err := o.Getter.Get(ctx, src)
	if err != nil {
		return 0, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", src, err)
	}
	panel := doc.Find(o.PanelSelector).First()
	if panel.Length() == 0 {
		return 0, fmt.Errorf("%s: no progress panel", src)
	}
	return ParsePercent(panel)
}

// ParsePercent reads the completion of a progress panel, clamped to 0..100.
func ParsePercent(panel *goquery.Selection) (float64, error) {
	raw, ok := panel.Attr("data-progress")
	if !ok {
		m := rePercent.FindStringSubmatch(panel.Text())
		if m == nil {
			return 0, fmt.Errorf("no percentage in progress panel")
		}
		raw = m[1]
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("progress %q: %w", raw, err)
	}
	return min(max(v, 0), 100), nil
}

// Bar builds the overlay element for pct.
func Bar(pct float64) *html.Node {
	label := strconv.Itoa(int(pct+0.5)) + "%"

	fill := &html.Node{Type: html.ElementNode, DataAtom: atom.Span, Data: "span"}
	fill.Attr = []html.Attribute{
		{Key: "class", Val: "list-progress-fill"},
		{Key: "style", Val: "width:" + strconv.FormatFloat(pct, 'f', -1, 64) + "%"},
	}

	text := &html.Node{Type: html.ElementNode, DataAtom: atom.Span, Data: "span"}
	text.Attr = []html.Attribute{{Key: "class", Val: "list-progress-label"}}
	text.AppendChild(&html.Node{Type: html.TextNode, Data: label})

	root := &html.Node{Type: html.ElementNode, DataAtom: atom.Span, Data: "span"}
	root.Attr = []html.Attribute{
		{Key: "class", Val: "list-progress"},
		{Key: MarkerAttr, Val: label},
		{Key: "title", Val: label + " watched"},
	}
	root.AppendChild(fill)
	root.AppendChild(text)
	return root
}
