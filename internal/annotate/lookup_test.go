package annotate

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afchatfield/lb-list-to-json/internal/badge"
	"github.com/afchatfield/lb-list-to-json/internal/ranking"
	"github.com/afchatfield/lb-list-to-json/internal/registry"
)

func TestLookupFilm(t *testing.T) {
	t.Parallel()

	reg := registry.New([]registry.Category{
		filmCat("x", "x.json", badge.FlagIcon),
		filmCat("y", "y.json", badge.CrownSVG),
		filmCat("z", "z.json", badge.FlagIcon),
		actorCat(),
	})
	var ids strings.Builder
	ids.WriteString("[")
	for i := 1; i <= 250; i++ {
		if i > 1 {
			ids.WriteString(",")
		}
		ids.WriteString(`{"id":` + strconv.Itoa(i) + `}`)
	}
	ids.WriteString("]")
	getter := mapGetter{
		"y.json": ids.String(),
		"z.json": `[{"id":1}]`,
	}

	got := New(reg, getter).LookupFilm(context.Background(), 150)
	require.Len(t, got.Matches, 1)
	assert.Equal(t, Match{
		Category: "y",
		Rank:     150,
		Page:     2,
		URL:      "https://letterboxd.com/u/list/y/page/2",
	}, got.Matches[0])
	require.Contains(t, got.Errors, "x")
	assert.ErrorIs(t, got.Errors["x"], ranking.ErrFetch)
	assert.Nil(t, got.Suggestions)
}

func TestLookupName_SuggestsClosest(t *testing.T) {
	t.Parallel()

	reg := registry.New([]registry.Category{actorCat()})
	getter := mapGetter{"actors.json": `[{"actor":"Toshiro Mifune"},{"actor":"Tatsuya Nakadai"}]`}
	a := New(reg, getter)

	hit := a.LookupName(context.Background(), "Tatsuya Nakadai")
	require.Len(t, hit.Matches, 1)
	assert.Equal(t, 2, hit.Matches[0].Rank)
	assert.Empty(t, hit.Matches[0].URL)

	miss := a.LookupName(context.Background(), "Toshiro Mifne")
	assert.Empty(t, miss.Matches)
	assert.Equal(t, map[string]string{"top_actors": "Toshiro Mifune"}, miss.Suggestions)

	none := a.LookupName(context.Background(), "Zzzz")
	assert.Nil(t, none.Suggestions)

	// Shares letters with both names but scores below the cutoff.
	far := a.LookupName(context.Background(), "Tom Hanks")
	assert.Empty(t, far.Matches)
	assert.Nil(t, far.Suggestions)
}
