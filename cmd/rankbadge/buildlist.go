package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/afchatfield/lb-list-to-json/internal/listbuild"
)

func (a *app) buildListCmd() *cobra.Command {
	var (
		cfg       listbuild.Config
		sortBy    string
		format    string
		outPath   string
		showStats bool
	)
	cmd := &cobra.Command{
		Use:   "build-list <data.json>...",
		Short: "Filter, sort and trim merged film data into a new list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			by, err := listbuild.ParseSortBy(sortBy)
			if err != nil {
				return usageError{err: err}
			}
			cfg.SortBy = by
			switch cfg.Cutoff.Type {
			case "", "ratings", "watches":
			default:
				return usagef("--cutoff-type must be ratings or watches, got %q", cfg.Cutoff.Type)
			}
			f := listbuild.Format(strings.ToLower(format))
			switch f {
			case listbuild.FormatJSON, listbuild.FormatSimple, listbuild.FormatCSV:
			default:
				return usagef("unknown format %q", format)
			}

			src, err := listbuild.LoadFiles(args, a.log)
			if err != nil {
				return err
			}
			if showStats {
				renderStats(a.stdout, listbuild.Summarize(src))
				return nil
			}
			res, err := listbuild.Build(src, cfg, a.log)
			if err != nil {
				return err
			}
			return a.writeOutput(outPath, func(w io.Writer) error {
				return listbuild.Write(w, res, f)
			})
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&cfg.Title, "title", "Custom Film List", "list title")
	fl.StringVar(&cfg.Description, "description", "", "list description")
	fl.IntVar(&cfg.Limit, "limit", 0, "keep at most this many films (0 keeps all)")
	fl.StringVar(&sortBy, "sort-by", string(listbuild.SortAverageRating), "sort key")
	fl.BoolVar(&cfg.Ascending, "ascending", false, "sort ascending")
	fl.StringSliceVar(&cfg.Countries, "countries", nil, "keep films from any of these countries")
	fl.StringSliceVar(&cfg.Languages, "languages", nil, "keep films in any of these primary languages")
	fl.BoolVar(&cfg.IncludeSecondaryLanguages, "include-secondary-languages", false, "also match other spoken languages")
	fl.StringSliceVar(&cfg.Genres, "genres", nil, "keep films with any of these genres")
	fl.IntVar(&cfg.MinYear, "min-year", 0, "earliest release year")
	fl.IntVar(&cfg.MaxYear, "max-year", 0, "latest release year")
	fl.IntVar(&cfg.MinRuntime, "min-runtime", 0, "shortest runtime in minutes")
	fl.IntVar(&cfg.MaxRuntime, "max-runtime", 0, "longest runtime in minutes")
	fl.Float64Var(&cfg.MinRating, "min-rating", 0, "lowest average rating")
	fl.Float64Var(&cfg.MaxRating, "max-rating", 0, "highest average rating")
	fl.StringVar(&cfg.Cutoff.Type, "cutoff-type", "", "activity cutoff: ratings or watches")
	fl.IntVar(&cfg.Cutoff.Limit, "cutoff-limit", 0, "minimum ratings or watches")
	fl.StringVarP(&format, "format", "f", "json", "output format: json, simple, csv")
	fl.StringVarP(&outPath, "out", "o", "-", "output file")
	fl.BoolVar(&showStats, "stats", false, "summarize the merged data instead of building a list")

	sortHelp := make([]string, len(listbuild.SortKeys))
	for i, k := range listbuild.SortKeys {
		sortHelp[i] = string(k)
	}
	fl.Lookup("sort-by").Usage = "sort key: " + strings.Join(sortHelp, ", ")
	return cmd
}

func renderStats(w io.Writer, st listbuild.Stats) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("%d films", st.TotalFilms))
	t.AppendHeader(table.Row{"Field", "With data", "Min", "Max", "Average"})
	t.AppendRows([]table.Row{
		rangeRow("release year", st.FilmsWithYears, st.YearRange),
		rangeRow("rating", st.FilmsWithRatings, st.RatingRange),
		rangeRow("runtime", st.FilmsWithRuntime, st.RuntimeRange),
	})
	t.Render()

	lt := table.NewWriter()
	lt.SetOutputMirror(w)
	lt.AppendHeader(table.Row{"Field", "Count", "Values"})
	lt.AppendRows([]table.Row{
		{"countries", len(st.Countries), strings.Join(st.Countries, ", ")},
		{"languages", len(st.Languages), strings.Join(st.Languages, ", ")},
		{"genres", len(st.Genres), strings.Join(st.Genres, ", ")},
	})
	lt.Render()
}

func rangeRow(name string, n int, r listbuild.Range) table.Row {
	return table.Row{name, n, fmtPtr(r.Min), fmtPtr(r.Max), fmtPtr(r.Average)}
}

func fmtPtr(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
