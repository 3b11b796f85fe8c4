package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afchatfield/lb-list-to-json/internal/ranking"
	"github.com/afchatfield/lb-list-to-json/internal/scrape"
	"github.com/afchatfield/lb-list-to-json/internal/storage"
)

var films = []scrape.Film{
	{ID: 51, Name: "Harakiri", Slug: "harakiri", Position: 1},
	{ID: 77, Name: "Come and See", Slug: "come-and-see", Position: 2},
}

func TestSink_FullRecords(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s, err := storage.New(context.Background(), storage.Config{Kind: "json", Out: &buf})
	require.NoError(t, err)
	require.NoError(t, s.Write(context.Background(), storage.List{Name: "x", Films: films}))
	require.NoError(t, s.Close())

	var got []scrape.Film
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, films, got)

	err = s.Write(context.Background(), storage.List{Name: "y"})
	require.ErrorContains(t, err, "single list")
}

func TestSink_EmptyListIsArray(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s, err := New(context.Background(), storage.Config{Out: &buf})
	require.NoError(t, err)
	require.NoError(t, s.Write(context.Background(), storage.List{Name: "empty"}))
	assert.Equal(t, "[]\n", buf.String())
}

// TestSink_DatasetRoundTrip verifies dataset output is readable as a ranking
// dataset for both the legacy and simple layouts.
func TestSink_DatasetRoundTrip(t *testing.T) {
	t.Parallel()

	for _, key := range []string{"Date", "film_id"} {
		var buf bytes.Buffer
		s, err := New(context.Background(), storage.Config{Out: &buf, DatasetKey: key, Pretty: true})
		require.NoError(t, err)
		require.NoError(t, s.Write(context.Background(), storage.List{Name: "top", Films: films}))

		ds, err := ranking.Parse(buf.Bytes(), ranking.MatchID)
		require.NoError(t, err, key)
		rank, ok := ds.PositionByID(77)
		require.True(t, ok, key)
		assert.Equal(t, 2, rank, key)
	}
}
