package main

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/afchatfield/lb-list-to-json/internal/annotate"
	"github.com/afchatfield/lb-list-to-json/internal/config"
	"github.com/afchatfield/lb-list-to-json/internal/registry"
)

func (a *app) lookupCmd() *cobra.Command {
	var (
		actor  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "lookup [film-id]",
		Short: "Show where a film id or actor ranks, without a page",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (actor == "") == (len(args) == 0) {
				return usagef("give either a film id or --actor")
			}
			reg, err := a.registry()
			if err != nil {
				return usageError{err: err}
			}
			an := a.annotator(reg)

			var res *annotate.Lookup
			if actor != "" {
				res = an.LookupName(cmd.Context(), actor)
			} else {
				id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
				if err != nil || id <= 0 {
					return usagef("film id must be a positive integer, got %q", args[0])
				}
				res = an.LookupFilm(cmd.Context(), id)
			}
			for cat, err := range res.Errors {
				a.log.Warn().Err(err).Str("category", cat).Msg("ranking unavailable")
			}

			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			a.renderLookup(res)
			return nil
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "look up a cast member by name instead of a film id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func (a *app) renderLookup(res *annotate.Lookup) {
	t := table.NewWriter()
	t.SetOutputMirror(a.stdout)
	t.AppendHeader(table.Row{"Category", "Title", "Rank", "Page", "List"})
	for _, m := range res.Matches {
		t.AppendRow(table.Row{m.Category, m.Title, m.Rank, m.Page, m.URL})
	}
	if len(res.Matches) == 0 {
		t.AppendRow(table.Row{"-", "not ranked", "", "", ""})
	}
	t.Render()

	if len(res.Suggestions) == 0 {
		return
	}
	cats := make([]string, 0, len(res.Suggestions))
	for c := range res.Suggestions {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	st := table.NewWriter()
	st.SetOutputMirror(a.stdout)
	st.SetTitle("Did you mean")
	st.AppendHeader(table.Row{"Category", "Name"})
	for _, c := range cats {
		st.AppendRow(table.Row{c, res.Suggestions[c]})
	}
	st.Render()
}

func (a *app) registryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "registry",
		Short: "List ranking categories and check the table for problems",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			reg, err := a.registry()
			if err != nil {
				return usageError{err: err}
			}
			renderRegistry(a, reg)

			issues := reg.Validate()
			if len(issues) == 0 {
				return nil
			}
			t := table.NewWriter()
			t.SetOutputMirror(a.stdout)
			t.SetTitle("Issues")
			t.AppendHeader(table.Row{"Severity", "Path", "Message"})
			for _, iss := range issues {
				t.AppendRow(table.Row{iss.Severity, iss.Path, iss.Message})
			}
			t.Render()
			if config.HasErrors(issues) {
				return usagef("registry has errors")
			}
			return nil
		},
	}
}

func renderRegistry(a *app, reg *registry.Registry) {
	t := table.NewWriter()
	t.SetOutputMirror(a.stdout)
	t.AppendHeader(table.Row{"#", "ID", "Title", "Match", "Variant", "Source"})
	for i, c := range reg.All() {
		t.AppendRow(table.Row{i + 1, c.ID, c.Title, c.Match, c.Variant, c.Source})
	}
	t.AppendFooter(table.Row{"", "", "", "", "total", reg.Len()})
	t.Render()
}
