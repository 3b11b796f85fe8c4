// Package annotate decorates a film page with ranking badges.
//
// One pass reads the film id, then checks every film category concurrently:
// fetch the ranking, look the id up, build a badge and mount it once the
// category's container is ready. A failing category only loses its own badge.
// Name-matched categories (actors) are resolved against the cast anchors that
// exist when the pass starts, and their icons go straight into those anchors.
package annotate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/afchatfield/lb-list-to-json/internal/badge"
	"github.com/afchatfield/lb-list-to-json/internal/dom"
	"github.com/afchatfield/lb-list-to-json/internal/metrics"
	"github.com/afchatfield/lb-list-to-json/internal/mount"
	"github.com/afchatfield/lb-list-to-json/internal/ranking"
	"github.com/afchatfield/lb-list-to-json/internal/registry"
)

// ErrNoFilmID aborts a pass: the page has no usable film id.
var ErrNoFilmID = errors.New("annotate: film id not found on page")

// Status classifies a category result.
type Status string

const (
	StatusMounted   Status = "mounted"
	StatusDuplicate Status = "duplicate"
	StatusMiss      Status = "miss"
	StatusFailed    Status = "failed"
)

// Result is the outcome of one category. Err is set only for StatusFailed.
type Result struct {
	Category string
	Rank     int
	Page     int
	Status   Status
	Err      error
}

// ActorMatch is one cast anchor that received an icon.
type ActorMatch struct {
	Category string
	Name     string
	Rank     int
}

// Report summarizes a pass. Results follow registry order.
type Report struct {
	FilmID  int64
	Results []Result
	Actors  []ActorMatch
	// ActorErrors holds name-category failures by category id.
	ActorErrors map[string]error
}

// Mounted counts results that inserted a badge.
func (r *Report) Mounted() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusMounted {
			n++
		}
	}
	return n
}

// Options tunes an Annotator.
type Options struct {
	FilmIDSelector string
	FilmIDAttr     string
	CastSelector   string
	MountTimeout   time.Duration
	Logger         zerolog.Logger
}

// Option mutates Options.
type Option func(*Options)

func WithFilmID(selector, attr string) Option {
	return func(o *Options) {
		if selector != "" {
			o.FilmIDSelector = selector
		}
		if attr != "" {
			o.FilmIDAttr = attr
		}
	}
}

func WithCastSelector(sel string) Option {
	return func(o *Options) {
		if sel != "" {
			o.CastSelector = sel
		}
	}
}

// WithMountTimeout bounds each container wait; 0 waits for the page lifetime.
func WithMountTimeout(d time.Duration) Option {
	return func(o *Options) { o.MountTimeout = d }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// Annotator runs annotation passes. It holds no per-page state.
type Annotator struct {
	reg    *registry.Registry
	getter ranking.Getter
	opts   Options
}

// New returns an Annotator over reg, fetching rankings through getter.
func New(reg *registry.Registry, getter ranking.Getter, opts ...Option) *Annotator {
	o := Options{
		FilmIDSelector: "[data-film-id]",
		FilmIDAttr:     "data-film-id",
		CastSelector:   ".cast-list a",
		Logger:         zerolog.Nop(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	return &Annotator{reg: reg, getter: getter, opts: o}
}

// Annotate runs one pass over page and blocks until every category has
// finished. Only ErrNoFilmID (or a closed page) fails the pass; category
// failures are reported in Report.Results.
func (a *Annotator) Annotate(ctx context.Context, page *dom.Page) (*Report, error) {
	filmID, anchors, err := a.snapshot(page)
	if err != nil {
		return nil, err
	}
	log := a.opts.Logger.With().Int64("film_id", filmID).Logger()

	films := a.reg.Films()
	actors := a.reg.Actors()
	report := &Report{
		FilmID:      filmID,
		Results:     make([]Result, len(films)),
		ActorErrors: map[string]error{},
	}
	actorMatches := make([][]ActorMatch, len(actors))
	actorErrs := make([]error, len(actors))

	// Tasks never return an error: a failing category must not cancel the
	// others, so outcomes travel through the result slots instead.
	var g errgroup.Group
	for i, cat := range films {
		g.Go(func() error {
			res := a.annotateFilm(ctx, page, filmID, cat)
			report.Results[i] = res
			a.record(log, res)
			return nil
		})
	}
	for i, cat := range actors {
		g.Go(func() error {
			actorMatches[i], actorErrs[i] = a.annotateCast(ctx, page, anchors, cat)
			if actorErrs[i] != nil {
				log.Warn().Err(actorErrs[i]).Str("category", cat.ID).Msg("actor category skipped")
				metrics.IncCounter(metrics.CategoryTotal, 1, metrics.Labels{"category": cat.ID, "outcome": string(StatusFailed)})
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, cat := range actors {
		report.Actors = append(report.Actors, actorMatches[i]...)
		if actorErrs[i] != nil {
			report.ActorErrors[cat.ID] = actorErrs[i]
		}
	}
	log.Info().
		Int("categories", len(films)).
		Int("mounted", report.Mounted()).
		Int("actor_badges", len(report.Actors)).
		Msg("annotation pass finished")
	return report, nil
}

func (a *Annotator) record(log zerolog.Logger, res Result) {
	metrics.IncCounter(metrics.CategoryTotal, 1, metrics.Labels{"category": res.Category, "outcome": string(res.Status)})
	ev := log.Debug()
	if res.Status == StatusFailed {
		ev = log.Warn().Err(res.Err)
	}
	ev.Str("category", res.Category).Int("rank", res.Rank).Str("status", string(res.Status)).Msg("category processed")
}

// anchorRef is a cast anchor captured at the start of a pass.
type anchorRef struct {
	node *html.Node
	name string
}

func (a *Annotator) snapshot(page *dom.Page) (int64, []anchorRef, error) {
	var (
		raw     string
		found   bool
		anchors []anchorRef
	)
	err := page.Read(func(doc *goquery.Document) {
		raw, found = doc.Find(a.opts.FilmIDSelector).First().Attr(a.opts.FilmIDAttr)
		doc.Find(a.opts.CastSelector).Each(func(_ int, s *goquery.Selection) {
			anchors = append(anchors, anchorRef{node: s.Get(0), name: ownText(s)})
		})
	})
	if err != nil {
		return 0, nil, err
	}
	if !found {
		return 0, nil, ErrNoFilmID
	}
	id, perr := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if perr != nil || id <= 0 {
		return 0, nil, fmt.Errorf("%w: %q is not a film id", ErrNoFilmID, raw)
	}
	return id, anchors, nil
}

// ownText is the anchor's text without any badge already appended to it.
func ownText(s *goquery.Selection) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if _, ok := badge.Category(n); ok {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return strings.TrimSpace(sb.String())
}

func (a *Annotator) annotateFilm(ctx context.Context, page *dom.Page, filmID int64, cat registry.Category) Result {
	res := Result{Category: cat.ID}
	fail := func(err error) Result {
		res.Status = StatusFailed
		res.Err = err
		return res
	}

	ds, err := ranking.Load(ctx, a.getter, cat.Source, cat.Match)
	if err != nil {
		return fail(err)
	}
	rank, ok := ds.PositionByID(filmID)
	if !ok {
		res.Status = StatusMiss
		return res
	}
	res.Rank = rank
	res.Page = ranking.PageOf(rank)

	node, err := badge.Build(rank, cat.ID, cat.Display, cat.Variant)
	if err != nil {
		return fail(err)
	}

	ready := mount.Exists()
	if cat.Ready.MinChildren > 0 {
		ready = mount.MinChildren(cat.Ready.MinChildren)
	}
	m := &mount.Mount{
		Page:      page,
		Container: cat.Container,
		Ready:     ready,
		Key:       cat.ID,
		Node:      node,
		Timeout:   a.opts.MountTimeout,
	}
	outcome, err := m.Run(ctx)
	if err != nil {
		return fail(err)
	}
	switch outcome {
	case mount.OutcomeMounted:
		res.Status = StatusMounted
		metrics.IncCounter(metrics.BadgesTotal, 1, metrics.Labels{"kind": string(cat.Variant)})
	default:
		res.Status = StatusDuplicate
	}
	return res
}

func (a *Annotator) annotateCast(ctx context.Context, page *dom.Page, anchors []anchorRef, cat registry.Category) ([]ActorMatch, error) {
	if len(anchors) == 0 {
		return nil, nil
	}
	ds, err := ranking.Load(ctx, a.getter, cat.Source, ranking.MatchName)
	if err != nil {
		return nil, err
	}

	type hit struct {
		anchor anchorRef
		rank   int
	}
	var hits []hit
	for _, an := range anchors {
		if rank, ok := ds.PositionByName(an.name); ok {
			hits = append(hits, hit{an, rank})
		}
	}
	if len(hits) == 0 {
		return nil, nil
	}

	var matches []ActorMatch
	err = page.Mutate(func(tx *dom.Tx) error {
		for _, h := range hits {
			sel := goquery.NewDocumentFromNode(h.anchor.node).Selection
			if sel.Find("["+badge.MarkerAttr+"=\""+cat.ID+"\"]").Length() > 0 {
				continue
			}
			node, err := badge.Build(h.rank, cat.ID, cat.Display, badge.InlineIcon)
			if err != nil {
				return err
			}
			tx.Append(sel, node)
			matches = append(matches, ActorMatch{Category: cat.ID, Name: h.anchor.name, Rank: h.rank})
		}
		return nil
	})
	if len(matches) > 0 {
		metrics.IncCounter(metrics.BadgesTotal, float64(len(matches)), metrics.Labels{"kind": string(badge.InlineIcon)})
		metrics.IncCounter(metrics.CategoryTotal, 1, metrics.Labels{"category": cat.ID, "outcome": string(StatusMounted)})
	}
	return matches, err
}
