package listbuild

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// SortBy names a sortable field.
type SortBy string

const (
	SortAverageRating SortBy = "average_rating"
	SortReleaseYear   SortBy = "release_year"
	SortRuntime       SortBy = "runtime"
	SortName          SortBy = "name"
	SortListPosition  SortBy = "list_position"
	SortWatches       SortBy = "watches_count_exact"
)

// SortKeys lists every accepted SortBy.
var SortKeys = []SortBy{SortAverageRating, SortReleaseYear, SortRuntime, SortName, SortListPosition, SortWatches}

// ParseSortBy validates s.
func ParseSortBy(s string) (SortBy, error) {
	for _, k := range SortKeys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// Cutoff drops films with too little activity.
type Cutoff struct {
	// Type is "ratings" or "watches".
	Type  string `json:"cutoff_type"`
	Limit int    `json:"cutoff_limit"`
}

// Config describes the list to build. Zero values disable a filter.
type Config struct {
	Title       string
	Description string
	Limit       int
	SortBy      SortBy
	Ascending   bool

	Countries                 []string
	Languages                 []string
	IncludeSecondaryLanguages bool
	Genres                    []string
	MinYear, MaxYear          int
	MinRuntime, MaxRuntime    int
	MinRating, MaxRating      float64
	Cutoff                    Cutoff
}

// Result is a built list.
type Result struct {
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	TotalFound    int     `json:"total_found"`
	FilmsReturned int     `json:"films_returned"`
	Films         []Film  `json:"films"`
	Filters       *Cutoff `json:"filters,omitempty"`
}

// ErrMissingSortKey is returned when no merged record carries the sort field.
var ErrMissingSortKey = errors.New("sort key not present in data")

// Build normalizes, filters, sorts and truncates src according to cfg.
func Build(src *Source, cfg Config, log zerolog.Logger) (*Result, error) {
	if cfg.SortBy == "" {
		cfg.SortBy = SortAverageRating
	}
	if !hasField(src.records, cfg.SortBy) {
		return nil, fmt.Errorf("%w: %q; make sure at least one data file contains it", ErrMissingSortKey, cfg.SortBy)
	}

	films := make([]Film, 0, len(src.records))
	for _, r := range src.records {
		films = append(films, Normalize(r))
	}
	filtered := Filter(films, cfg)
	Sort(filtered, cfg.SortBy, cfg.Ascending)

	limited := filtered
	if cfg.Limit > 0 && len(limited) > cfg.Limit {
		limited = limited[:cfg.Limit]
	}

	log.Info().
		Int("initial", len(films)).
		Int("filtered", len(filtered)).
		Int("returned", len(limited)).
		Str("sort_by", string(cfg.SortBy)).
		Msg("list built")

	res := &Result{
		Title:         cfg.Title,
		Description:   cfg.Description,
		TotalFound:    len(filtered),
		FilmsReturned: len(limited),
		Films:         limited,
	}
	if cfg.Cutoff.Type != "" && cfg.Cutoff.Limit > 0 {
		c := cfg.Cutoff
		res.Filters = &c
	}
	return res, nil
}

// hasField reports whether any raw record has the field, under its own name
// or one of the spellings Normalize reads it from.
func hasField(records []Record, key SortBy) bool {
	aliases := map[SortBy][]string{
		SortName:         {"name", "title", "Name"},
		SortReleaseYear:  {"release_year", "year", "Tags"},
		SortListPosition: {"list_position", "position"},
	}
	keys, ok := aliases[key]
	if !ok {
		keys = []string{string(key)}
	}
	for _, r := range records {
		for _, k := range keys {
			if _, ok := r[k]; ok {
				return true
			}
		}
	}
	return false
}

// Filter keeps films matching every enabled criterion of cfg.
func Filter(films []Film, cfg Config) []Film {
	langs := lowerSet(cfg.Languages)
	out := make([]Film, 0, len(films))
	for _, f := range films {
		if len(cfg.Countries) > 0 && !anyFold(cfg.Countries, f.Countries) {
			continue
		}
		if len(langs) > 0 && !hasLanguage(f, langs, cfg.IncludeSecondaryLanguages) {
			continue
		}
		if len(cfg.Genres) > 0 && !anyFold(cfg.Genres, f.Genres) {
			continue
		}
		if cfg.MinYear > 0 && f.ReleaseYear < cfg.MinYear {
			continue
		}
		if cfg.MaxYear > 0 && f.ReleaseYear > cfg.MaxYear {
			continue
		}
		if cfg.MinRuntime > 0 && f.Runtime < cfg.MinRuntime {
			continue
		}
		if cfg.MaxRuntime > 0 && f.Runtime > cfg.MaxRuntime {
			continue
		}
		if cfg.MinRating > 0 && f.AverageRating < cfg.MinRating {
			continue
		}
		if cfg.MaxRating > 0 && f.AverageRating > cfg.MaxRating {
			continue
		}
		if cfg.Cutoff.Limit > 0 {
			switch cfg.Cutoff.Type {
			case "ratings":
				if f.RatingsCount < cfg.Cutoff.Limit {
					continue
				}
			case "watches":
				if max(f.WatchesCountExact, f.WatchesCount) < cfg.Cutoff.Limit {
					continue
				}
			}
		}
		out = append(out, f)
	}
	return out
}

// Sort orders films in place. Films without a list position sort last in
// ascending position order. Ties keep their input order.
func Sort(films []Film, by SortBy, ascending bool) {
	less := func(a, b Film) bool {
		switch by {
		case SortName:
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		case SortListPosition:
			return position(a) < position(b)
		case SortReleaseYear:
			return a.ReleaseYear < b.ReleaseYear
		case SortRuntime:
			return a.Runtime < b.Runtime
		case SortWatches:
			return a.WatchesCountExact < b.WatchesCountExact
		default:
			return a.AverageRating < b.AverageRating
		}
	}
	sort.SliceStable(films, func(i, j int) bool {
		if ascending {
			return less(films[i], films[j])
		}
		return less(films[j], films[i])
	})
}

func position(f Film) int {
	if f.ListPosition <= 0 {
		return 999999
	}
	return f.ListPosition
}

func hasLanguage(f Film, langs map[string]struct{}, secondary bool) bool {
	if _, ok := langs[strings.ToLower(f.PrimaryLanguage)]; ok {
		return true
	}
	if secondary {
		for _, l := range f.OtherLanguages {
			if _, ok := langs[strings.ToLower(l)]; ok {
				return true
			}
		}
	}
	return false
}

func anyFold(want, have []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(w, h) {
				return true
			}
		}
	}
	return false
}

func lowerSet(in []string) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out[strings.ToLower(s)] = struct{}{}
		}
	}
	return out
}
