package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/afchatfield/lb-list-to-json/internal/annotate"
	"github.com/afchatfield/lb-list-to-json/internal/dom"
	"github.com/afchatfield/lb-list-to-json/internal/fetch"
	"github.com/afchatfield/lb-list-to-json/internal/hydrate"
	"github.com/afchatfield/lb-list-to-json/internal/progress"
	"github.com/afchatfield/lb-list-to-json/internal/registry"
	"github.com/afchatfield/lb-list-to-json/internal/storage"
)

func (a *app) annotateCmd() *cobra.Command {
	var (
		slug        string
		placeholder string
		withProg    bool
		outPath     string
	)
	cmd := &cobra.Command{
		Use:   "annotate [page]",
		Short: "Insert ranking badges into a film page (file, URL or stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := "-"
			if len(args) == 1 {
				src = args[0]
			}
			reg, err := a.registry()
			if err != nil {
				return usageError{err: err}
			}

			ctx := cmd.Context()
			body, err := a.client.Load(ctx, fetch.Input{Source: src, Stdin: a.stdin})
			if err != nil {
				return err
			}
			page, err := dom.ParseString(body)
			if err != nil {
				return err
			}
			defer page.Close()

			hydrated := make(chan error, 1)
			if slug != "" {
				h := &hydrate.Hydrator{
					Getter:      a.client,
					BaseURL:     a.cfg.UpstreamBaseURL,
					Container:   registry.StatsContainer,
					Placeholder: placeholder,
					Logger:      a.log,
				}
				go func() { hydrated <- h.Hydrate(ctx, page, slug) }()
			} else {
				hydrated <- nil
			}

			rep, err := a.annotator(reg).Annotate(ctx, page)
			if herr := <-hydrated; herr != nil {
				a.log.Warn().Err(herr).Str("slug", slug).Msg("statistics hydration failed")
			}
			if err != nil && !errors.Is(err, annotate.ErrNoFilmID) {
				return err
			}
			if err != nil {
				a.log.Warn().Err(err).Msg("page has no film id, writing it unchanged")
			} else {
				a.logReport(rep)
			}

			if withProg {
				if err := a.overlayProgress(ctx, page); err != nil {
					return err
				}
			}

			out, err := page.HTML()
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}
			return a.writeOutput(outPath, func(w io.Writer) error {
				_, err := io.WriteString(w, out)
				return err
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&slug, "slug", "", "film slug; fetches the statistics list when the page lacks it")
	f.StringVar(&placeholder, "placeholder", ".film-stats", "where the fetched statistics list is inserted")
	f.BoolVar(&withProg, "progress", false, "also overlay list-progress bars on list links")
	f.StringVarP(&outPath, "out", "o", "-", "output file")
	return cmd
}

func (a *app) logReport(rep *annotate.Report) {
	for _, r := range rep.Results {
		ev := a.log.Debug()
		if r.Status == annotate.StatusFailed {
			ev = a.log.Warn().Err(r.Err)
		}
		ev.Str("category", r.Category).Str("status", string(r.Status)).Int("rank", r.Rank).Msg("category")
	}
	a.log.Info().
		Int64("film_id", rep.FilmID).
		Int("badges", rep.Mounted()).
		Int("actors", len(rep.Actors)).
		Msg("page annotated")
}

// overlayProgress runs one progress pass. A static page has no later
// mutations worth polling for.
func (a *app) overlayProgress(ctx context.Context, page *dom.Page) error {
	o := &progress.Overlay{
		Page:     page,
		Getter:   a.client,
		BaseURL:  strings.TrimRight(a.cfg.UpstreamBaseURL, "/"),
		Interval: a.cfg.ProgressInterval,
		Logger:   a.log,
	}
	n, err := o.Tick(ctx)
	if err != nil {
		return fmt.Errorf("progress: %w", err)
	}
	a.log.Info().Int("lists", n).Msg("progress overlaid")
	return nil
}

// writeOutput calls fn with stdout for "" or "-", or with a created file.
func (a *app) writeOutput(path string, fn func(io.Writer) error) error {
	w, closeFn, err := storage.OpenOutput(storage.Config{DSN: path, Out: a.stdout})
	if err != nil {
		return err
	}
	if err := fn(w); err != nil {
		_ = closeFn()
		return err
	}
	return closeFn()
}
