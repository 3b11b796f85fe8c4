package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/afchatfield/lb-list-to-json/internal/scrape"
	"github.com/afchatfield/lb-list-to-json/internal/storage"
)

// Sink implements storage.Sink and storage.Reader for Microsoft SQL Server.
//
// It uses database/sql with the "sqlserver" driver. Tables mirror the other
// SQL sinks; a list is replaced inside one transaction.
type Sink struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

// maxParams stays under SQL Server's 2100 parameters per request.
const maxParams = 2000

var schema = []string{
	wrapCreateIfMissing("lists", `
		[name] NVARCHAR(200) NOT NULL PRIMARY KEY,
		[url] NVARCHAR(1000) NOT NULL DEFAULT '',
		[scraped_at] DATETIME2 NOT NULL`),
	wrapCreateIfMissing("rankings", `
		[list] NVARCHAR(200) NOT NULL REFERENCES [lists]([name]) ON DELETE CASCADE,
		[position] INT NOT NULL,
		[film_id] BIGINT NOT NULL,
		[name] NVARCHAR(500) NOT NULL DEFAULT '',
		[slug] NVARCHAR(500) NOT NULL DEFAULT '',
		[url] NVARCHAR(1000) NOT NULL DEFAULT '',
		[owner_rating] FLOAT NULL,
		CONSTRAINT [pk_rankings] PRIMARY KEY ([list], [position]),
		CONSTRAINT [uq_rankings_film] UNIQUE ([list], [film_id])`),
}

// New opens cfg.DSN, validates connectivity and creates the tables if needed.
func New(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
	if strings.TrimSpace(cfg.DSN) == "" || cfg.DSN == "-" {
		return nil, fmt.Errorf("mssql sink needs a connection string")
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
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
		return fmt.Errorf("mssql sink: list name is required")
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

	if _, err = tx.ExecContext(ctx, `DELETE FROM [rankings] WHERE [list] = @p1`, l.Name); err != nil {
		return fmt.Errorf("clear list %s: %w", l.Name, err)
	}
	if _, err = tx.ExecContext(ctx, upsertListSQL, l.Name, l.URL, scrapedAt.UTC()); err != nil {
		return fmt.Errorf("upsert list %s: %w", l.Name, err)
	}
	for _, batch := range storage.Chunk(storage.RankingRows(l), len(storage.RankingColumns), maxParams) {
		q, args := buildBulkInsertSQL("rankings", storage.RankingColumns, batch)
		if _, err = tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert %s: %w", l.Name, err)
		}
	}
	return tx.Commit()
}

const upsertListSQL = `
MERGE [lists] WITH (HOLDLOCK) AS t
USING (SELECT @p1 AS [name], @p2 AS [url], @p3 AS [scraped_at]) AS s
ON t.[name] = s.[name]
WHEN MATCHED THEN UPDATE SET [url] = s.[url], [scraped_at] = s.[scraped_at]
WHEN NOT MATCHED THEN INSERT ([name], [url], [scraped_at]) VALUES (s.[name], s.[url], s.[scraped_at]);`

// ErrNotFound is returned by Read for an unknown list.
var ErrNotFound = errors.New("list not found")

// Read loads a stored list in position order.
func (s *Sink) Read(ctx context.Context, name string) (storage.List, error) {
	l := storage.List{Name: name}

	err := s.db.QueryRowContext(ctx, `SELECT [url], [scraped_at] FROM [lists] WHERE [name] = @p1`, name).
		Scan(&l.URL, &l.ScrapedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return l, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return l, err
	}
	l.ScrapedAt = l.ScrapedAt.UTC()

	rows, err := s.db.QueryContext(ctx,
		`SELECT [position], [film_id], [name], [slug], [url], [owner_rating]
		 FROM [rankings] WHERE [list] = @p1 ORDER BY [position]`, name)
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

// wrapCreateIfMissing guards CREATE TABLE, which SQL Server has no
// IF NOT EXISTS form for.
func wrapCreateIfMissing(tableName string, innerDefs string) string {
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL BEGIN CREATE TABLE %s (%s); END;",
		tableName,
		mssqlTableIdent(tableName),
		innerDefs,
	)
}

// buildBulkInsertSQL constructs a multi-row INSERT with @pN placeholders.
func buildBulkInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(mssqlTableIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(mssqlIdent(c))
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
			fmt.Fprintf(&b, "@p%d", p)
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}
	return b.String(), args
}

func mssqlIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// mssqlTableIdent bracket-quotes each part of a schema-qualified name:
// "dbo.rankings" -> [dbo].[rankings].
func mssqlTableIdent(name string) string {
	parts := strings.Split(name, ".")
	for i := range parts {
		parts[i] = mssqlIdent(strings.TrimSpace(parts[i]))
	}
	return strings.Join(parts, ".")
}
