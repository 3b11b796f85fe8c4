package listbuild

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listFile = `[
	{"film_id": "1", "name": "Seven Samurai", "target_link": "/film/seven-samurai/", "list_position": 1},
	{"film_id": "2", "name": "Parasite", "film_slug": "parasite-2019", "list_position": 2},
	{"film_id": "3", "name": "Amélie", "url": "https://letterboxd.com/film/amelie/", "list_position": 3},
	{"name": "no id"}
]`

const statsFile = `{
	"1": {"release_year": 1954, "runtime": "207", "average_rating": 4.6, "countries": ["Japan"], "primary_language": "Japanese", "genres": ["Action", "Drama"], "total_ratings": 400000},
	"2": {"release_year": 2019, "runtime": 133, "average_rating": "4.5", "countries": ["South Korea"], "primary_language": "Korean", "other_languages": ["English"], "genres": ["Thriller"], "total_ratings": 3000000, "watches_count_exact": 5000000},
	"3": {"year": "2001", "runtime": 122, "average_rating": 4.0, "countries": ["France", "Germany"], "primary_language": "French", "genres": ["Romance", "Comedy"], "total_ratings": 900000}
}`

func writeFiles(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	a := filepath.Join(dir, "list.json")
	b := filepath.Join(dir, "stats.json")
	require.NoError(t, os.WriteFile(a, []byte(listFile), 0o600))
	require.NoError(t, os.WriteFile(b, []byte(statsFile), 0o600))
	return []string{a, filepath.Join(dir, "missing.json"), b}
}

func load(t *testing.T) *Source {
	t.Helper()
	src, err := LoadFiles(writeFiles(t), zerolog.Nop())
	require.NoError(t, err)
	return src
}

func TestLoadFiles_MergesByID(t *testing.T) {
	t.Parallel()

	src := load(t)
	require.Len(t, src.Records(), 3)

	f := Normalize(src.Records()[0])
	assert.Equal(t, "1", f.FilmID)
	assert.Equal(t, "Seven Samurai", f.Name)
	assert.Equal(t, 1954, f.ReleaseYear)
	assert.Equal(t, 207, f.Runtime)
	assert.Equal(t, "https://letterboxd.com/film/seven-samurai/", f.URL)
	assert.Equal(t, 1, f.ListPosition)

	p := Normalize(src.Records()[1])
	assert.Equal(t, "https://letterboxd.com/film/parasite-2019/", p.URL)
	assert.InDelta(t, 4.5, p.AverageRating, 1e-9)
	assert.Equal(t, 3000000, p.RatingsCount)

	assert.Equal(t, 2001, Normalize(src.Records()[2]).ReleaseYear)
}

func TestLoadFiles_NothingLoaded(t *testing.T) {
	t.Parallel()

	_, err := LoadFiles([]string{filepath.Join(t.TempDir(), "nope.json")}, zerolog.Nop())
	require.Error(t, err)
}

func TestMerge_LaterWins(t *testing.T) {
	t.Parallel()

	src, err := Merge([]Record{
		{"film_id": "9", "name": "Old", "runtime": 90},
		{"Date": "9", "name": "New"},
	})
	require.NoError(t, err)
	require.Len(t, src.Records(), 1)
	f := Normalize(src.Records()[0])
	assert.Equal(t, "New", f.Name)
	assert.Equal(t, 90, f.Runtime)
}

func TestBuild_FilterSortLimit(t *testing.T) {
	t.Parallel()

	src := load(t)

	res, err := Build(src, Config{Title: "Top", SortBy: SortAverageRating, Limit: 2}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalFound)
	require.Equal(t, 2, res.FilmsReturned)
	assert.Equal(t, []string{"1", "2"}, ids(res.Films))

	res, err = Build(src, Config{SortBy: SortReleaseYear, Ascending: true}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3", "2"}, ids(res.Films))

	res, err = Build(src, Config{SortBy: SortName, Ascending: true}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "2", "1"}, ids(res.Films))

	res, err = Build(src, Config{SortBy: SortListPosition, Ascending: true, Countries: []string{"germany", "japan"}}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, ids(res.Films))
}

func TestFilter_Criteria(t *testing.T) {
	t.Parallel()

	var films []Film
	for _, r := range load(t).Records() {
		films = append(films, Normalize(r))
	}

	cases := []struct {
		name string
		cfg  Config
		want []string
	}{
		{"languages primary only", Config{Languages: []string{"english"}}, []string{}},
		{"languages secondary", Config{Languages: []string{"English"}, IncludeSecondaryLanguages: true}, []string{"2"}},
		{"genres", Config{Genres: []string{"drama", "comedy"}}, []string{"1", "3"}},
		{"years", Config{MinYear: 1960, MaxYear: 2010}, []string{"3"}},
		{"runtime", Config{MaxRuntime: 130}, []string{"3"}},
		{"rating", Config{MinRating: 4.1, MaxRating: 4.55}, []string{"2"}},
		{"ratings cutoff", Config{Cutoff: Cutoff{Type: "ratings", Limit: 500000}}, []string{"2", "3"}},
		{"watches cutoff", Config{Cutoff: Cutoff{Type: "watches", Limit: 1}}, []string{"2"}},
	}
	for _, tc := range cases {
		got := ids(Filter(films, tc.cfg))
		assert.Equal(t, tc.want, got, tc.name)
	}
}

func TestBuild_MissingSortKey(t *testing.T) {
	t.Parallel()

	src, err := Merge([]Record{{"film_id": "1", "name": "x"}})
	require.NoError(t, err)
	_, err = Build(src, Config{SortBy: SortRuntime}, zerolog.Nop())
	require.ErrorIs(t, err, ErrMissingSortKey)

	_, err = ParseSortBy("popularity")
	require.Error(t, err)
}

func TestWrite_Formats(t *testing.T) {
	t.Parallel()

	res, err := Build(load(t), Config{Title: "T", Description: "D", SortBy: SortListPosition, Ascending: true, Cutoff: Cutoff{Type: "ratings", Limit: 1}}, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, res.Filters)

	var full bytes.Buffer
	require.NoError(t, Write(&full, res, FormatJSON))
	var out struct {
		Title     string `json:"title"`
		FilmCount int    `json:"film_count"`
		Films     []Film `json:"films"`
	}
	require.NoError(t, json.Unmarshal(full.Bytes(), &out))
	assert.Equal(t, "T", out.Title)
	assert.Equal(t, 3, out.FilmCount)
	assert.Contains(t, full.String(), "Amélie")

	var simple bytes.Buffer
	require.NoError(t, Write(&simple, res, FormatSimple))
	var rows []simpleFilm
	require.NoError(t, json.Unmarshal(simple.Bytes(), &rows))
	assert.Equal(t, simpleFilm{FilmID: 1, Name: "Seven Samurai"}, rows[0])

	var c bytes.Buffer
	require.NoError(t, Write(&c, res, FormatCSV))
	recs, err := csv.NewReader(&c).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, "France;Germany", recs[3][5])

	require.Error(t, Write(&c, res, "xml"))
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	st := Summarize(load(t))
	assert.Equal(t, 3, st.TotalFilms)
	require.NotNil(t, st.YearRange.Min)
	assert.Equal(t, 1954.0, *st.YearRange.Min)
	assert.Equal(t, 2019.0, *st.YearRange.Max)
	assert.Nil(t, st.YearRange.Average)
	require.NotNil(t, st.RuntimeRange.Average)
	assert.InDelta(t, 154.0, *st.RuntimeRange.Average, 1e-9)
	assert.Equal(t, []string{"France", "Germany", "Japan", "South Korea"}, st.Countries)
	assert.Equal(t, []string{"English", "French", "Japanese", "Korean"}, st.Languages)

	empty := Summarize(&Source{})
	assert.Nil(t, empty.RatingRange.Min)
}

func ids(films []Film) []string {
	out := []string{}
	for _, f := range films {
		out = append(out, f.FilmID)
	}
	return out
}
