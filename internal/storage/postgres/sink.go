package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/afchatfield/lb-list-to-json/internal/scrape"
	"github.com/afchatfield/lb-list-to-json/internal/storage"
)

/*
Sink implements storage.Sink and storage.Reader for Postgres.

Tables mirror the SQLite sink ("lists" and "rankings"). Writing a list
deletes its old rankings and inserts the new ones in one transaction, so
readers never see a half-replaced list.
*/
type Sink struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

// maxParams stays under the 65535 bind-parameter limit of the protocol.
const maxParams = 60000

var schema = []string{`
CREATE TABLE IF NOT EXISTS lists (
	"name" text PRIMARY KEY,
	"url" text NOT NULL DEFAULT '',
	"scraped_at" timestamptz NOT NULL
)`, `
CREATE TABLE IF NOT EXISTS rankings (
	"list" text NOT NULL REFERENCES lists("name") ON DELETE CASCADE,
	"position" integer NOT NULL,
	"film_id" bigint NOT NULL,
	"name" text NOT NULL DEFAULT '',
	"slug" text NOT NULL DEFAULT '',
	"url" text NOT NULL DEFAULT '',
	"owner_rating" double precision,
	PRIMARY KEY ("list", "position"),
	UNIQUE ("list", "film_id")
)`}

// New connects to cfg.DSN and creates the tables if needed.
func New(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
	if strings.TrimSpace(cfg.DSN) == "" || cfg.DSN == "-" {
		return nil, fmt.Errorf("postgres sink needs a connection string")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	for _, ddl := range schema {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			pool.Close()
			return nil, fmt.Errorf("create tables: %w", err)
		}
	}
	return &Sink{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Sink) Close() error {
	s.pool.Close()
	return nil
}

// Write replaces the stored rows of l.Name with l.Films.
func (s *Sink) Write(ctx context.Context, l storage.List) error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("postgres sink: list name is required")
	}
	scrapedAt := l.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = time.Now()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM rankings WHERE "list" = $1`, l.Name); err != nil {
		return fmt.Errorf("clear list %s: %w", l.Name, err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO lists ("name", "url", "scraped_at") VALUES ($1, $2, $3)
		 ON CONFLICT ("name") DO UPDATE SET "url" = EXCLUDED."url", "scraped_at" = EXCLUDED."scraped_at"`,
		l.Name, l.URL, scrapedAt.UTC()); err != nil {
		return fmt.Errorf("upsert list %s: %w", l.Name, err)
	}

	for _, batch := range storage.Chunk(storage.RankingRows(l), len(storage.RankingColumns), maxParams) {
		sql, args := buildInsertSQL("rankings", storage.RankingColumns, batch)
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert %s: %w", l.Name, err)
		}
	}
	return tx.Commit(ctx)
}

// ErrNotFound is returned by Read for an unknown list.
var ErrNotFound = errors.New("list not found")

// Read loads a stored list in position order.
func (s *Sink) Read(ctx context.Context, name string) (storage.List, error) {
	l := storage.List{Name: name}

	err := s.pool.QueryRow(ctx, `SELECT "url", "scraped_at" FROM lists WHERE "name" = $1`, name).
		Scan(&l.URL, &l.ScrapedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return l, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return l, err
	}
	l.ScrapedAt = l.ScrapedAt.UTC()

	rows, err := s.pool.Query(ctx,
		`SELECT "position", "film_id", "name", "slug", "url", "owner_rating"
		 FROM rankings WHERE "list" = $1 ORDER BY "position"`, name)
	if err != nil {
		return l, err
	}
	defer rows.Close()

	for rows.Next() {
		var f scrape.Film
		var rating *float64
		if err := rows.Scan(&f.Position, &f.ID, &f.Name, &f.Slug, &f.URL, &rating); err != nil {
			return l, err
		}
		if rating != nil {
			f.OwnerRating = *rating
		}
		l.Films = append(l.Films, f)
	}
	return l, rows.Err()
}

// buildInsertSQL constructs a single multi-row INSERT and its args.
//
// It is pure so placeholder numbering can be tested without a database.
// Every row must have len(columns) values.
func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(pgIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	p := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", p)
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}
	return b.String(), args
}

// pgIdent double-quotes a column or table name.
func pgIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
