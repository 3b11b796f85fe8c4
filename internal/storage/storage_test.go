package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afchatfield/lb-list-to-json/internal/scrape"
)

type nopSink struct{ cfg Config }

func (nopSink) Write(context.Context, List) error { return nil }
func (nopSink) Close() error                      { return nil }

func TestRegisterAndNew(t *testing.T) {
	Register("test-nop", func(_ context.Context, cfg Config) (Sink, error) {
		return nopSink{cfg: cfg}, nil
	})

	s, err := New(context.Background(), Config{Kind: "test-nop", DSN: "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", s.(nopSink).cfg.DSN)
	assert.Contains(t, Kinds(), "test-nop")

	assert.Panics(t, func() { Register("test-nop", func(context.Context, Config) (Sink, error) { return nil, nil }) })
	assert.Panics(t, func() { Register("", func(context.Context, Config) (Sink, error) { return nil, nil }) })
	assert.Panics(t, func() { Register("test-nil", nil) })
}

func TestNew_Errors(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)

	_, err = New(context.Background(), Config{Kind: "nope"})
	require.ErrorContains(t, err, "unsupported storage kind=nope")
}

func TestOpenOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w, closeFn, err := OpenOutput(Config{DSN: "-", Out: &buf})
	require.NoError(t, err)
	_, _ = w.Write([]byte("hi"))
	require.NoError(t, closeFn())
	assert.Equal(t, "hi", buf.String())

	path := filepath.Join(t.TempDir(), "out.txt")
	w, closeFn, err = OpenOutput(Config{DSN: path})
	require.NoError(t, err)
	_, _ = w.Write([]byte("file"))
	require.NoError(t, closeFn())
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "file", string(b))

	_, _, err = OpenOutput(Config{DSN: filepath.Join(t.TempDir(), "missing", "out.txt")})
	require.Error(t, err)
}

func TestRankingRows(t *testing.T) {
	t.Parallel()

	rows := RankingRows(List{Name: "top", Films: []scrape.Film{
		{ID: 7, Position: 1, Name: "A", Slug: "a", URL: "u", OwnerRating: 4.5},
		{ID: 9, Position: 2, Name: "B"},
	}})
	require.Len(t, rows, 2)
	assert.Equal(t, []any{"top", 1, int64(7), "A", "a", "u", 4.5}, rows[0])
	assert.Nil(t, rows[1][6])
	assert.Len(t, rows[0], len(RankingColumns))
}

func TestChunk(t *testing.T) {
	t.Parallel()

	rows := make([][]any, 5)
	got := Chunk(rows, 7, 21)
	require.Len(t, got, 2)
	assert.Len(t, got[0], 3)
	assert.Len(t, got[1], 2)

	assert.Empty(t, Chunk(nil, 7, 21))
	assert.Len(t, Chunk(rows, 7, 3), 5, "at least one row per batch")
}
