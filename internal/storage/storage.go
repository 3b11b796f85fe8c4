// Package storage writes scraped lists to pluggable sinks.
//
// Sink backends live in subpackages and register themselves from init()
// under a kind ("json", "csv", "sqlite"). Commands pick a backend by kind and
// never import a concrete sink other than for its registration side effect.
package storage

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/afchatfield/lb-list-to-json/internal/scrape"
)

// Config is what a sink factory needs.
//
// DSN is a file path for file sinks and a database DSN for sqlite. File sinks
// write to Out when DSN is "" or "-".
type Config struct {
	Kind string
	DSN  string
	Out  io.Writer

	// DatasetKey makes the json sink emit ranking datasets keyed by this
	// field ("Date" for the legacy layout) instead of full film records.
	DatasetKey string
	// Pretty indents json output.
	Pretty bool
}

// List is one scraped list ready to persist.
type List struct {
	Name      string
	URL       string
	ScrapedAt time.Time
	Films     []scrape.Film
}

// Sink persists lists.
type Sink interface {
	// Write stores l. Writing the same list name twice replaces it in sinks
	// that can address lists by name.
	Write(ctx context.Context, l List) error
	Close() error
}

// Reader is implemented by sinks that can read a list back.
type Reader interface {
	Read(ctx context.Context, name string) (List, error)
}

// Factory builds a Sink from cfg.
type Factory func(ctx context.Context, cfg Config) (Sink, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a sink available under kind.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: sink already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs the sink registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Sink, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage kind=%s (have %v)", cfg.Kind, Kinds())
	}
	return f(ctx, cfg)
}

// Kinds lists registered sink kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// RankingColumns is the column order of a stored ranking row.
var RankingColumns = []string{"list", "position", "film_id", "name", "slug", "url", "owner_rating"}

// RankingRows flattens l into rows matching RankingColumns. A missing owner
// rating is nil so SQL sinks store NULL.
func RankingRows(l List) [][]any {
	rows := make([][]any, 0, len(l.Films))
	for _, f := range l.Films {
		var rating any
		if f.OwnerRating > 0 {
			rating = f.OwnerRating
		}
		rows = append(rows, []any{l.Name, f.Position, f.ID, f.Name, f.Slug, f.URL, rating})
	}
	return rows
}

// Chunk splits rows so that no batch binds more than maxParams values.
func Chunk(rows [][]any, width, maxParams int) [][][]any {
	per := maxParams / width
	if per < 1 {
		per = 1
	}
	var out [][][]any
	for len(rows) > per {
		out = append(out, rows[:per])
		rows = rows[per:]
	}
	if len(rows) > 0 {
		out = append(out, rows)
	}
	return out
}
