package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afchatfield/lb-list-to-json/internal/scrape"
	"github.com/afchatfield/lb-list-to-json/internal/storage"
)

func openSink(t *testing.T) *Sink {
	t.Helper()
	s, err := storage.New(context.Background(), storage.Config{
		Kind: "sqlite",
		DSN:  filepath.Join(t.TempDir(), "rank.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s.(*Sink)
}

func TestSink_WriteReplacesAndReads(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openSink(t)
	at := time.Date(2026, 1, 27, 12, 17, 8, 123, time.UTC)

	require.NoError(t, s.Write(ctx, storage.List{Name: "top", URL: "u1", ScrapedAt: at, Films: []scrape.Film{
		{ID: 10, Name: "A", Position: 1},
		{ID: 20, Name: "B", Position: 2, OwnerRating: 3.5},
		{ID: 30, Name: "C", Position: 3},
	}}))
	require.NoError(t, s.Write(ctx, storage.List{Name: "other", ScrapedAt: at, Films: []scrape.Film{
		{ID: 99, Name: "Z", Position: 1},
	}}))
	require.NoError(t, s.Write(ctx, storage.List{Name: "top", URL: "u2", ScrapedAt: at, Films: []scrape.Film{
		{ID: 20, Name: "B", Position: 1, OwnerRating: 3.5},
		{ID: 10, Name: "A", Position: 2},
	}}))

	got, err := s.Read(ctx, "top")
	require.NoError(t, err)
	assert.Equal(t, "u2", got.URL)
	assert.True(t, at.Equal(got.ScrapedAt))
	require.Len(t, got.Films, 2)
	assert.Equal(t, int64(20), got.Films[0].ID)
	assert.Equal(t, 3.5, got.Films[0].OwnerRating)
	assert.Equal(t, 2, got.Films[1].Position)

	other, err := s.Read(ctx, "other")
	require.NoError(t, err)
	require.Len(t, other.Films, 1)
}

func TestSink_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openSink(t)

	_, err := s.Read(ctx, "missing")
	require.True(t, errors.Is(err, ErrNotFound))

	require.Error(t, s.Write(ctx, storage.List{}))

	// Duplicate film ids violate the per-list unique key and roll back.
	err = s.Write(ctx, storage.List{Name: "dup", Films: []scrape.Film{
		{ID: 1, Position: 1}, {ID: 1, Position: 2},
	}})
	require.Error(t, err)
	_, err = s.Read(ctx, "dup")
	require.True(t, errors.Is(err, ErrNotFound))

	_, err = New(ctx, storage.Config{DSN: "-"})
	require.Error(t, err)
}

func TestParseSQLiteTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		wantUTC string
		wantErr bool
	}{
		{in: "2026-01-27T12:17:08.123456789Z", wantUTC: "2026-01-27T12:17:08.123456789Z"},
		{in: "2026-01-27 12:17:08+00:00", wantUTC: "2026-01-27T12:17:08Z"},
		{in: "2026-01-27 12:17:08", wantUTC: "2026-01-27T12:17:08Z"},
		{in: "", wantErr: true},
		{in: "not-a-time", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseSQLiteTime(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.wantUTC, got.Format(time.RFC3339Nano))
	}
}
