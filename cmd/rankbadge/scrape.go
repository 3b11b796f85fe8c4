package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/afchatfield/lb-list-to-json/internal/fetch"
	"github.com/afchatfield/lb-list-to-json/internal/scrape"
	"github.com/afchatfield/lb-list-to-json/internal/storage"
)

// sinkFlags are shared by the commands that persist a list.
type sinkFlags struct {
	format     string
	out        string
	datasetKey string
	name       string
	mappings   string
}

func (s *sinkFlags) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&s.format, "format", "f", "json", "output kind: "+strings.Join(storage.Kinds(), ", "))
	f.StringVarP(&s.out, "out", "o", "-", "output file, or sqlite DSN")
	f.StringVar(&s.datasetKey, "dataset-key", "", `emit a ranking dataset keyed by this field (e.g. "Date")`)
	f.StringVar(&s.name, "name", "", "list name stored with the films (default derived from the list)")
	f.StringVar(&s.mappings, "mappings", "", "selector mapping file (default built-in)")
}

func (s *sinkFlags) mappingFile() (*scrape.MappingFile, error) {
	if s.mappings == "" {
		return scrape.DefaultListMappings(), nil
	}
	mf, err := scrape.LoadMappingFile(s.mappings)
	if err != nil {
		return nil, usageError{err: err}
	}
	return mf, nil
}

func (a *app) persist(cmd *cobra.Command, s *sinkFlags, l storage.List) error {
	sink, err := storage.New(cmd.Context(), storage.Config{
		Kind:       s.format,
		DSN:        s.out,
		Out:        a.stdout,
		DatasetKey: s.datasetKey,
		Pretty:     true,
	})
	if err != nil {
		return usageError{err: err}
	}
	if err := sink.Write(cmd.Context(), l); err != nil {
		_ = sink.Close()
		return err
	}
	if err := sink.Close(); err != nil {
		return err
	}
	a.log.Info().Str("list", l.Name).Int("films", len(l.Films)).Str("format", s.format).Str("out", s.out).Msg("list written")
	return nil
}

func (a *app) scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape Letterboxd lists into ranking datasets",
	}
	cmd.AddCommand(
		a.scrapeListCmd(),
		a.scrapeDirCmd(),
		a.scrapeSelectorCmd(),
		a.scrapePagesCmd(),
		a.scrapePresetsCmd(),
	)
	return cmd
}

func (a *app) scrapeListCmd() *cobra.Command {
	var (
		sf       sinkFlags
		workers  int
		maxPages int
	)
	cmd := &cobra.Command{
		Use:   "list <preset|user/slug|url>",
		Short: "Scrape every page of a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			listURL, err := scrape.ResolveList(args[0])
			if err != nil {
				return usageError{err: err}
			}
			mf, err := sf.mappingFile()
			if err != nil {
				return err
			}
			s := scrape.New(a.client, scrape.Options{
				Mappings: mf,
				Workers:  workers,
				MaxPages: maxPages,
				Logger:   a.log,
			})
			films, err := s.List(cmd.Context(), listURL)
			if err != nil {
				return err
			}
			name := sf.name
			if name == "" {
				name = listName(args[0], listURL)
			}
			return a.persist(cmd, &sf, storage.List{Name: name, URL: listURL, ScrapedAt: time.Now().UTC(), Films: films})
		},
	}
	sf.bind(cmd)
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent page fetches")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "stop after this many pages (0 reads all)")
	return cmd
}

// listName prefers the preset key, then the list slug.
func listName(arg, listURL string) string {
	if _, ok := scrape.Presets[arg]; ok {
		return arg
	}
	return path.Base(strings.TrimRight(scrape.ListBase(listURL), "/"))
}

func (a *app) scrapeDirCmd() *cobra.Command {
	var (
		sf     sinkFlags
		stream bool
	)
	cmd := &cobra.Command{
		Use:   "dir <directory>",
		Short: "Read saved list pages from a directory (one page per file, in name order)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mf, err := sf.mappingFile()
			if err != nil {
				return err
			}
			if stream {
				return a.writeOutput(sf.out, func(w io.Writer) error {
					return scrape.StreamFromDir(w, args[0], mf, json.NewEncoder(w))
				})
			}
			films, err := scrape.FilmsFromDir(args[0], mf)
			if err != nil {
				return err
			}
			name := sf.name
			if name == "" {
				name = filepath.Base(filepath.Clean(args[0]))
			}
			return a.persist(cmd, &sf, storage.List{Name: name, URL: args[0], ScrapedAt: time.Now().UTC(), Films: films})
		},
	}
	sf.bind(cmd)
	cmd.Flags().BoolVar(&stream, "raw", false, "stream raw mapped records tagged with source_file instead of films")
	return cmd
}

func (a *app) scrapeSelectorCmd() *cobra.Command {
	var (
		textOnly bool
		check    string
	)
	cmd := &cobra.Command{
		Use:   "selector <page> [selector]",
		Short: "Debug selectors against a page (file, URL or - for stdin)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (check == "") == (len(args) == 1) {
				return usagef("give either a selector or --check <mapping file>")
			}
			html, err := a.client.Load(cmd.Context(), fetch.Input{Source: args[0], Stdin: a.stdin})
			if err != nil {
				return err
			}
			if check == "" {
				n, err := scrape.DebugPrintSelector(a.stdout, html, args[1], textOnly)
				if err != nil {
					return err
				}
				if n == 0 {
					return fmt.Errorf("selector %q matched nothing", args[1])
				}
				return nil
			}

			mf, err := scrape.LoadMappingFile(check)
			if err != nil {
				return usageError{err: err}
			}
			counts, err := scrape.CheckMappings(html, mf)
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(counts))
			for k := range counts {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			t := table.NewWriter()
			t.SetOutputMirror(a.stdout)
			t.AppendHeader(table.Row{"Mapping", "Matches", ""})
			broken := 0
			for _, k := range keys {
				status := "ok"
				if counts[k] == 0 {
					status = "MISSING"
					broken++
				}
				t.AppendRow(table.Row{k, counts[k], status})
			}
			t.Render()
			if broken > 0 {
				return fmt.Errorf("%d mapping(s) matched nothing", broken)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&textOnly, "text", false, "print text instead of outer HTML")
	cmd.Flags().StringVar(&check, "check", "", "count matches for every selector in a mapping file")
	return cmd
}

func (a *app) scrapePagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pages <preset|user/slug|url>",
		Short: "Print the URL of every page of a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			listURL, err := scrape.ResolveList(args[0])
			if err != nil {
				return usageError{err: err}
			}
			html, err := a.client.Load(cmd.Context(), fetch.Input{Source: scrape.PageURL(listURL, 1)})
			if err != nil {
				return err
			}
			return scrape.PrintPageURLs(a.stdout, listURL, html)
		},
	}
}

func (a *app) scrapePresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the built-in list shortcuts",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			t := table.NewWriter()
			t.SetOutputMirror(a.stdout)
			t.AppendHeader(table.Row{"Preset", "URL"})
			for _, name := range scrape.PresetNames() {
				p := scrape.Presets[name]
				t.AppendRow(table.Row{name, scrape.ListURL(p.User, p.Slug)})
			}
			t.Render()
			return nil
		},
	}
}
