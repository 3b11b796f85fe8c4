package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/afchatfield/lb-list-to-json/internal/scrape"
	"github.com/afchatfield/lb-list-to-json/internal/storage"
)

// Sink implements storage.Sink and storage.Reader for SQLite.
//
// Each list lives in two tables: "lists" holds one row per list name and
// "rankings" one row per film. Writing a list replaces its rows in a single
// transaction. SQLite has no timestamp type, so scraped_at is stored as an
// RFC3339Nano string.
type Sink struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

var schema = []string{`
CREATE TABLE IF NOT EXISTS lists (
	"name" TEXT PRIMARY KEY,
	"url" TEXT NOT NULL DEFAULT '',
	"scraped_at" TEXT NOT NULL
)`, `
CREATE TABLE IF NOT EXISTS rankings (
	"list" TEXT NOT NULL REFERENCES lists("name"),
	"position" INTEGER NOT NULL,
	"film_id" INTEGER NOT NULL,
	"name" TEXT NOT NULL DEFAULT '',
	"slug" TEXT NOT NULL DEFAULT '',
	"url" TEXT NOT NULL DEFAULT '',
	"owner_rating" REAL,
	PRIMARY KEY ("list", "position"),
	UNIQUE ("list", "film_id")
)`}

// New opens cfg.DSN and creates the tables if needed.
func New(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
	if strings.TrimSpace(cfg.DSN) == "" || cfg.DSN == "-" {
		return nil, fmt.Errorf("sqlite sink needs a database path")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	for _, ddl := range schema {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create tables: %w", err)
		}
	}
	return &Sink{db: db}, nil
}

func (s *Sink) Close() error { return s.db.Close() }

// Write replaces the stored rows of l.Name with l.Films.
func (s *Sink) Write(ctx context.Context, l storage.List) (err error) {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("sqlite sink: list name is required")
	}
	scrapedAt := l.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM rankings WHERE "list" = ?`, l.Name); err != nil {
		return fmt.Errorf("clear list %s: %w", l.Name, err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO lists ("name", "url", "scraped_at") VALUES (?, ?, ?)
		 ON CONFLICT("name") DO UPDATE SET "url" = excluded."url", "scraped_at" = excluded."scraped_at"`,
		l.Name, l.URL, scrapedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("upsert list %s: %w", l.Name, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO rankings ("list", "position", "film_id", "name", "slug", "url", "owner_rating")
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range l.Films {
		var rating any
		if f.OwnerRating > 0 {
			rating = f.OwnerRating
		}
		if _, err = stmt.ExecContext(ctx, l.Name, f.Position, f.ID, f.Name, f.Slug, f.URL, rating); err != nil {
			return fmt.Errorf("insert %s #%d: %w", l.Name, f.Position, err)
		}
	}
	return tx.Commit()
}

// ErrNotFound is returned by Read for an unknown list.
var ErrNotFound = errors.New("list not found")

// Read loads a stored list in position order.
func (s *Sink) Read(ctx context.Context, name string) (storage.List, error) {
	l := storage.List{Name: name}

	var scrapedAt string
	err := s.db.QueryRowContext(ctx, `SELECT "url", "scraped_at" FROM lists WHERE "name" = ?`, name).
		Scan(&l.URL, &scrapedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return l, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return l, err
	}
	if l.ScrapedAt, err = parseSQLiteTime(scrapedAt); err != nil {
		return l, fmt.Errorf("list %s: %w", name, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT "position", "film_id", "name", "slug", "url", "owner_rating"
		 FROM rankings WHERE "list" = ? ORDER BY "position"`, name)
	if err != nil {
		return l, err
	}
	defer rows.Close()

	for rows.Next() {
		var f scrape.Film
		var rating sql.NullFloat64
		if err := rows.Scan(&f.Position, &f.ID, &f.Name, &f.Slug, &f.URL, &rating); err != nil {
			return l, err
		}
		f.OwnerRating = rating.Float64
		l.Films = append(l.Films, f)
	}
	return l, rows.Err()
}

// parseSQLiteTime accepts RFC3339 strings as written by Write and the
// "YYYY-MM-DD HH:MM:SS" form SQLite's own datetime() produces.
func parseSQLiteTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time string")
	}

	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05.999999999Z07:00",
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	if ts, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.UTC); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("unsupported time format: %q", s)
}
