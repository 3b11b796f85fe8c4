package main

import (
	"github.com/spf13/cobra"

	"github.com/afchatfield/lb-list-to-json/internal/hydrate"
	"github.com/afchatfield/lb-list-to-json/internal/registry"
	"github.com/afchatfield/lb-list-to-json/internal/server"
)

func (a *app) serveCmd() *cobra.Command {
	var (
		addr        string
		noHydrate   bool
		placeholder string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the annotation proxy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := a.registry()
			if err != nil {
				return usageError{err: err}
			}
			if !cmd.Flags().Changed("addr") {
				addr = a.cfg.ServerAddr
			}

			opts := server.Options{
				Annotator:       a.annotator(reg),
				Upstream:        a.client,
				UpstreamBaseURL: a.cfg.UpstreamBaseURL,
				Logger:          a.log,
			}
			if !noHydrate {
				opts.Hydrator = &hydrate.Hydrator{
					Getter:      a.client,
					BaseURL:     a.cfg.UpstreamBaseURL,
					Container:   registry.StatsContainer,
					Placeholder: placeholder,
					Logger:      a.log,
				}
			}
			a.log.Info().Int("categories", reg.Len()).Str("upstream", a.cfg.UpstreamBaseURL).Msg("serving")
			return server.New(opts).Run(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address (default from config)")
	cmd.Flags().BoolVar(&noHydrate, "no-hydrate", false, "do not fetch statistics lists missing from upstream pages")
	cmd.Flags().StringVar(&placeholder, "placeholder", ".film-stats", "where fetched statistics lists are inserted")
	return cmd
}
