package listbuild

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const siteURL = "https://letterboxd.com"

// Film is a record normalized to the fields list building understands.
type Film struct {
	FilmID            string   `json:"film_id"`
	Name              string   `json:"name"`
	ReleaseYear       int      `json:"release_year"`
	Director          string   `json:"director"`
	URL               string   `json:"url"`
	Countries         []string `json:"countries"`
	PrimaryLanguage   string   `json:"primary_language"`
	OtherLanguages    []string `json:"other_languages"`
	Genres            []string `json:"genres"`
	Runtime           int      `json:"runtime"`
	AverageRating     float64  `json:"average_rating"`
	RatingsCount      int      `json:"ratings_count"`
	WatchesCount      int      `json:"watches_count"`
	WatchesCountExact int      `json:"watches_count_exact"`
	ListPosition      int      `json:"list_position,omitempty"`
}

// Normalize maps the field spellings found across scraper outputs and
// legacy exports onto Film.
func Normalize(r Record) Film {
	f := Film{
		FilmID:            rawID(r),
		Name:              firstString(r, "title", "name", "Name"),
		ReleaseYear:       asInt(first(r, "release_year", "year", "Tags")),
		Director:          firstString(r, "director", "Description"),
		Countries:         asStrings(r["countries"]),
		PrimaryLanguage:   asString(r["primary_language"]),
		OtherLanguages:    asStrings(r["other_languages"]),
		Genres:            asStrings(r["genres"]),
		Runtime:           asInt(r["runtime"]),
		AverageRating:     asFloat(r["average_rating"]),
		RatingsCount:      asInt(first(r, "total_ratings", "ratings_count")),
		WatchesCount:      asInt(r["watches_count"]),
		WatchesCountExact: asInt(r["watches_count_exact"]),
		ListPosition:      asInt(first(r, "list_position", "position")),
	}
	if f.Name == "" {
		f.Name = "Unknown"
	}
	if f.FilmID == "" {
		f.FilmID = "unknown"
	}

	u := firstString(r, "url", "URL", "target_link", "film_link")
	if u == "" {
		if slug := firstString(r, "film_slug", "slug"); slug != "" {
			u = "/film/" + slug + "/"
		}
	}
	switch {
	case u == "":
	case strings.HasPrefix(u, "/"):
		u = siteURL + u
	case !strings.HasPrefix(u, "http"):
		u = siteURL + "/" + strings.TrimLeft(u, "/")
	}
	f.URL = u
	return f
}

func first(r Record, keys ...string) any {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil && asString(v) != "" && asString(v) != "0" {
			return v
		}
	}
	return nil
}

func firstString(r Record, keys ...string) string {
	return asString(first(r, keys...))
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func asFloat(v any) float64 {
	f, err := strconv.ParseFloat(asString(v), 64)
	if err != nil {
		return 0
	}
	return f
}

func asInt(v any) int {
	s := asString(v)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

func asStrings(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, el := range t {
			if s := asString(el); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return t
	case string:
		if t == "" {
			return nil
		}
		parts := strings.Split(t, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	default:
		return nil
	}
}
