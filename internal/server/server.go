// Package server is an HTTP proxy that serves Letterboxd film pages with
// ranking badges already inserted, plus a JSON lookup API.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/afchatfield/lb-list-to-json/internal/annotate"
	"github.com/afchatfield/lb-list-to-json/internal/dom"
	"github.com/afchatfield/lb-list-to-json/internal/fetch"
	"github.com/afchatfield/lb-list-to-json/internal/hydrate"
)

// Getter retrieves upstream pages.
type Getter interface {
	Get(ctx context.Context, src string) ([]byte, error)
}

// Options wires a Server.
type Options struct {
	Annotator *annotate.Annotator
	// Hydrator is optional. Without it badges anchored to the statistics
	// list only appear if the upstream page already contains the list.
	Hydrator *hydrate.Hydrator
	Upstream Getter
	// UpstreamBaseURL is the site film pages are fetched from.
	UpstreamBaseURL string
	// PassTimeout bounds one annotation pass. 0 means no bound beyond the
	// annotator's own mount timeout.
	PassTimeout time.Duration
	Logger      zerolog.Logger
}

// Server holds the fiber app.
type Server struct {
	app  *fiber.App
	opts Options
}

type errorResponse struct {
	Error string `json:"error"`
}

type lookupResponse struct {
	Key         string            `json:"key"`
	Matches     []annotate.Match  `json:"matches"`
	Errors      map[string]string `json:"errors,omitempty"`
	Suggestions map[string]string `json:"suggestions,omitempty"`
}

// New builds the app and registers routes.
func New(opts Options) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ReadTimeout:           30 * time.Second,
		}),
		opts: opts,
	}
	s.app.Get("/healthz", s.health)
	s.app.Get("/api/lookup/:id", s.lookupFilm)
	s.app.Get("/api/actor", s.lookupActor)
	s.app.Get("/film/:slug", s.film)
	return s
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App { return s.app }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.opts.Logger.Info().Str("addr", addr).Msg("HTTP server starting")
		errCh <- s.app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.opts.Logger.Info().Msg("shutting down")
		return s.app.ShutdownWithTimeout(10 * time.Second)
	}
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) lookupFilm(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "film id must be a positive integer"})
	}
	res := s.opts.Annotator.LookupFilm(c.UserContext(), id)
	return c.JSON(toResponse(strconv.FormatInt(id, 10), res))
}

func (s *Server) lookupActor(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "name is required"})
	}
	res := s.opts.Annotator.LookupName(c.UserContext(), name)
	return c.JSON(toResponse(name, res))
}

func toResponse(key string, l *annotate.Lookup) lookupResponse {
	out := lookupResponse{Key: key, Matches: l.Matches, Suggestions: l.Suggestions}
	if len(l.Errors) > 0 {
		out.Errors = make(map[string]string, len(l.Errors))
		for k, err := range l.Errors {
			out.Errors[k] = err.Error()
		}
	}
	return out
}

// film proxies one film page. Statistics hydration and annotation run
// concurrently, as they would in a browser: badges waiting on the statistics
// list are mounted when the fragment lands.
func (s *Server) film(c *fiber.Ctx) error {
	slug := strings.Trim(c.Params("slug"), "/")
	log := s.opts.Logger.With().Str("slug", slug).Logger()

	src := strings.TrimRight(s.opts.UpstreamBaseURL, "/") + "/film/" + url.PathEscape(slug) + "/"
	body, err := s.opts.Upstream.Get(c.UserContext(), src)
	if err != nil {
		log.Warn().Err(err).Msg("upstream fetch failed")
		var se *fetch.StatusError
		if errors.As(err, &se) && se.StatusCode == fiber.StatusNotFound {
			return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "film not found"})
		}
		return c.Status(fiber.StatusBadGateway).JSON(errorResponse{Error: "upstream unavailable"})
	}

	page, err := dom.Parse(bytes.NewReader(body))
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(errorResponse{Error: err.Error()})
	}
	defer page.Close()

	ctx := c.UserContext()
	if s.opts.PassTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.PassTimeout)
		defer cancel()
	}

	hydrated := make(chan error, 1)
	if s.opts.Hydrator != nil {
		go func() { hydrated <- s.opts.Hydrator.Hydrate(ctx, page, slug) }()
	} else {
		hydrated <- nil
	}

	rep, err := s.opts.Annotator.Annotate(ctx, page)
	if herr := <-hydrated; herr != nil {
		log.Warn().Err(herr).Msg("statistics hydration failed")
	}
	switch {
	case errors.Is(err, annotate.ErrNoFilmID):
		log.Warn().Err(err).Msg("serving page without badges")
		c.Set("X-Rank-Badges", "0")
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: err.Error()})
	default:
		c.Set("X-Rank-Badges", strconv.Itoa(rep.Mounted()+len(rep.Actors)))
	}

	out, err := page.HTML()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: fmt.Sprintf("render: %v", err)})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(out)
}
