// Package csvfile is the "csv" storage sink.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/afchatfield/lb-list-to-json/internal/storage"
)

func init() {
	storage.Register("csv", New)
}

// Header is the column order of every row written.
var Header = storage.RankingColumns

// Sink writes lists as CSV rows under a single header. Several lists may be
// written to the same sink; the list column tells them apart.
type Sink struct {
	cw          *csv.Writer
	closeFn     func() error
	wroteHeader bool
}

// New opens the output named by cfg.DSN.
func New(_ context.Context, cfg storage.Config) (storage.Sink, error) {
	w, closeFn, err := storage.OpenOutput(cfg)
	if err != nil {
		return nil, err
	}
	return newSink(w, closeFn), nil
}

func newSink(w io.Writer, closeFn func() error) *Sink {
	return &Sink{cw: csv.NewWriter(w), closeFn: closeFn}
}

func (s *Sink) Write(_ context.Context, l storage.List) error {
	if !s.wroteHeader {
		if err := s.cw.Write(Header); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		s.wroteHeader = true
	}
	for _, f := range l.Films {
		rating := ""
		if f.OwnerRating > 0 {
			rating = strconv.FormatFloat(f.OwnerRating, 'f', -1, 64)
		}
		row := []string{
			l.Name,
			strconv.Itoa(f.Position),
			strconv.FormatInt(f.ID, 10),
			f.Name,
			f.Slug,
			f.URL,
			rating,
		}
		if err := s.cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", f.Position, err)
		}
	}
	s.cw.Flush()
	return s.cw.Error()
}

func (s *Sink) Close() error {
	s.cw.Flush()
	if err := s.cw.Error(); err != nil {
		_ = s.closeFn()
		return err
	}
	return s.closeFn()
}
