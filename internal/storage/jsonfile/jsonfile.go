// Package jsonfile is the "json" storage sink.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/afchatfield/lb-list-to-json/internal/scrape"
	"github.com/afchatfield/lb-list-to-json/internal/storage"
)

func init() {
	storage.Register("json", New)
}

// Sink writes one list as a JSON array.
type Sink struct {
	w          io.Writer
	closeFn    func() error
	datasetKey string
	pretty     bool
	wrote      bool
}

// New opens the output named by cfg.DSN.
func New(_ context.Context, cfg storage.Config) (storage.Sink, error) {
	w, closeFn, err := storage.OpenOutput(cfg)
	if err != nil {
		return nil, err
	}
	return &Sink{w: w, closeFn: closeFn, datasetKey: cfg.DatasetKey, pretty: cfg.Pretty}, nil
}

// Write encodes l.Films. With a dataset key the output is a ranking dataset,
// one {key: id, "name": name} object per film in list order.
func (s *Sink) Write(_ context.Context, l storage.List) error {
	if s.wrote {
		return fmt.Errorf("json sink holds a single list, already wrote one before %q", l.Name)
	}
	s.wrote = true

	enc := json.NewEncoder(s.w)
	enc.SetEscapeHTML(false)
	if s.pretty {
		enc.SetIndent("", "    ")
	}

	if s.datasetKey == "" {
		films := l.Films
		if films == nil {
			films = []scrape.Film{}
		}
		return encode(enc, films)
	}

	rows := make([]map[string]any, 0, len(l.Films))
	for _, f := range l.Films {
		rows = append(rows, map[string]any{s.datasetKey: f.ID, "name": f.Name})
	}
	return encode(enc, rows)
}

func (s *Sink) Close() error { return s.closeFn() }

func encode(enc *json.Encoder, v any) error {
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
