package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/afchatfield/lb-list-to-json/internal/annotate"
	"github.com/afchatfield/lb-list-to-json/internal/config"
	"github.com/afchatfield/lb-list-to-json/internal/fetch"
	"github.com/afchatfield/lb-list-to-json/internal/logger"
	"github.com/afchatfield/lb-list-to-json/internal/metrics"
	"github.com/afchatfield/lb-list-to-json/internal/metrics/datadog"
	"github.com/afchatfield/lb-list-to-json/internal/registry"

	_ "github.com/afchatfield/lb-list-to-json/internal/storage/csvfile"
	_ "github.com/afchatfield/lb-list-to-json/internal/storage/jsonfile"
	_ "github.com/afchatfield/lb-list-to-json/internal/storage/mssql"
	_ "github.com/afchatfield/lb-list-to-json/internal/storage/postgres"
	_ "github.com/afchatfield/lb-list-to-json/internal/storage/sqlite"
)

// app carries process-wide state shared by every subcommand.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath     string
	logLevel       string
	pretty         bool
	registryPath   string
	dataBaseURL    string
	metricsBackend string

	cfg    config.Config
	log    zerolog.Logger
	client *fetch.Client

	metricsClose func() error
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rankbadge",
		Short:         "Letterboxd ranking badges and list datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err: err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default "+config.DefaultPath+" if present)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&a.pretty, "pretty", false, "human-readable console logs")
	pf.StringVar(&a.registryPath, "registry", "", "json5 category table (default built-in)")
	pf.StringVar(&a.dataBaseURL, "data", "", "base URL or directory for relative ranking sources")
	pf.StringVar(&a.metricsBackend, "metrics-backend", "", "metrics backend: none, datadog")

	root.AddCommand(
		a.annotateCmd(),
		a.lookupCmd(),
		a.registryCmd(),
		a.scrapeCmd(),
		a.buildListCmd(),
		a.serveCmd(),
	)
	return root
}

// setup resolves config, then lets flags override it.
func (a *app) setup(cmd *cobra.Command) error {
	boot := logger.New(a.stderr, "info", a.pretty)
	cfg, err := config.Load(a.configPath, boot)
	if err != nil {
		return usageError{err: err}
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("pretty") {
		cfg.LogPretty = a.pretty
	}
	if flags.Changed("registry") {
		cfg.RegistryPath = a.registryPath
	}
	if flags.Changed("data") {
		cfg.DataBaseURL = a.dataBaseURL
	}
	if flags.Changed("metrics-backend") {
		cfg.MetricsBackend = a.metricsBackend
	}

	issues := cfg.Validate()
	for _, iss := range issues {
		fmt.Fprintf(a.stderr, "config %s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return usagef("invalid configuration")
	}

	a.cfg = cfg
	a.log = logger.New(a.stderr, cfg.LogLevel, cfg.LogPretty)
	a.client = fetch.New(fetch.Options{Timeout: cfg.FetchTimeout, UserAgent: cfg.UserAgent})

	return a.startMetrics(cmd.Context())
}

func (a *app) startMetrics(ctx context.Context) error {
	switch strings.ToLower(strings.TrimSpace(a.cfg.MetricsBackend)) {
	case "", "none":
		return nil
	case "datadog":
		b, err := datadog.NewBackend(ctx, datadog.Options{Tags: datadog.ParseTagsCSV(a.cfg.MetricsTags)})
		if err != nil {
			return err
		}
		metrics.SetBackend(b)
		a.metricsClose = func() error {
			metrics.SetBackend(nil)
			return b.Close()
		}
		a.log.Debug().Msg("datadog metrics enabled")
		return nil
	default:
		return usagef("unknown metrics backend %q", a.cfg.MetricsBackend)
	}
}

// close flushes metrics. It is safe to call when setup never ran.
func (a *app) close() error {
	if a.metricsClose == nil {
		return nil
	}
	err := a.metricsClose()
	a.metricsClose = nil
	if err != nil {
		return fmt.Errorf("flush metrics: %w", err)
	}
	return nil
}

// registry returns the configured category table with sources resolved.
func (a *app) registry() (*registry.Registry, error) {
	reg := registry.Default()
	if a.cfg.RegistryPath != "" {
		loaded, err := registry.Load(a.cfg.RegistryPath)
		if err != nil {
			return nil, err
		}
		reg = loaded
	}
	return reg.Resolve(a.cfg.DataBaseURL), nil
}

func (a *app) annotator(reg *registry.Registry) *annotate.Annotator {
	return annotate.New(reg, a.client,
		annotate.WithFilmID(a.cfg.FilmIDSelector, a.cfg.FilmIDAttr),
		annotate.WithCastSelector(a.cfg.CastSelector),
		annotate.WithMountTimeout(a.cfg.MountTimeout),
		annotate.WithLogger(a.log),
	)
}
