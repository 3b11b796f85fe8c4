package listbuild

import "sort"

// Range is a min/max pair with an optional mean. Nil fields mean no data.
type Range struct {
	Min     *float64 `json:"min"`
	Max     *float64 `json:"max"`
	Average *float64 `json:"average,omitempty"`
}

// Stats summarizes a Source.
type Stats struct {
	TotalFilms       int      `json:"total_films"`
	FilmsWithRatings int      `json:"films_with_ratings"`
	FilmsWithYears   int      `json:"films_with_years"`
	FilmsWithRuntime int      `json:"films_with_runtime"`
	YearRange        Range    `json:"year_range"`
	RatingRange      Range    `json:"rating_range"`
	RuntimeRange     Range    `json:"runtime_range"`
	Countries        []string `json:"countries"`
	Languages        []string `json:"languages"`
	Genres           []string `json:"genres"`
}

// Summarize computes Stats over the normalized records of src.
func Summarize(src *Source) Stats {
	var years, ratings, runtimes []float64
	countries := map[string]struct{}{}
	languages := map[string]struct{}{}
	genres := map[string]struct{}{}

	for _, r := range src.records {
		f := Normalize(r)
		if f.ReleaseYear > 0 {
			years = append(years, float64(f.ReleaseYear))
		}
		if f.AverageRating > 0 {
			ratings = append(ratings, f.AverageRating)
		}
		if f.Runtime > 0 {
			runtimes = append(runtimes, float64(f.Runtime))
		}
		addAll(countries, f.Countries)
		addAll(genres, f.Genres)
		addAll(languages, f.OtherLanguages)
		if f.PrimaryLanguage != "" {
			languages[f.PrimaryLanguage] = struct{}{}
		}
	}

	return Stats{
		TotalFilms:       len(src.records),
		FilmsWithRatings: len(ratings),
		FilmsWithYears:   len(years),
		FilmsWithRuntime: len(runtimes),
		YearRange:        rangeOf(years, false),
		RatingRange:      rangeOf(ratings, true),
		RuntimeRange:     rangeOf(runtimes, true),
		Countries:        sortedKeys(countries),
		Languages:        sortedKeys(languages),
		Genres:           sortedKeys(genres),
	}
}

func rangeOf(vs []float64, withMean bool) Range {
	if len(vs) == 0 {
		return Range{}
	}
	lo, hi, sum := vs[0], vs[0], 0.0
	for _, v := range vs {
		lo = min(lo, v)
		hi = max(hi, v)
		sum += v
	}
	r := Range{Min: &lo, Max: &hi}
	if withMean {
		mean := sum / float64(len(vs))
		r.Average = &mean
	}
	return r
}

func addAll(set map[string]struct{}, vs []string) {
	for _, v := range vs {
		set[v] = struct{}{}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
