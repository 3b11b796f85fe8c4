package scrape

import (
	"net/url"
	"strconv"
	"strings"
)

// FilmsFromRecords converts list-page records to films. offset is the number
// of entries on earlier pages; records without a list number are numbered
// offset+1, offset+2, ... in page order. Records without a numeric film id
// are dropped.
func FilmsFromRecords(records []map[string]any, offset int, base *url.URL) []Film {
	films := make([]Film, 0, len(records))
	for i, r := range records {
		id, err := strconv.ParseInt(str(r, KeyFilmID), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		f := Film{
			ID:       id,
			Name:     str(r, KeyName),
			Slug:     str(r, KeySlug),
			Position: offset + i + 1,
		}
		if n, ok, _ := ParseCountAny(str(r, KeyListNumber)); ok && n > 0 {
			f.Position = n
		}
		if link := str(r, KeyLink); link != "" {
			f.URL = ResolveHref(base, link)
		} else if f.Slug != "" {
			f.URL = ResolveHref(base, "/film/"+f.Slug+"/")
		}
		if v, err := strconv.ParseFloat(str(r, KeyOwnerRating), 64); err == nil && v > 0 {
			// Letterboxd stores half-star units.
			f.OwnerRating = v / 2
		}
		films = append(films, f)
	}
	return films
}

// Dedupe keeps the first occurrence of every film id and renumbers positions
// so that position == index+1.
func Dedupe(films []Film) []Film {
	seen := make(map[int64]struct{}, len(films))
	out := make([]Film, 0, len(films))
	for _, f := range films {
		if _, dup := seen[f.ID]; dup {
			continue
		}
		seen[f.ID] = struct{}{}
		f.Position = len(out) + 1
		out = append(out, f)
	}
	return out
}

func str(r map[string]any, key string) string {
	s, _ := r[key].(string)
	return strings.TrimSpace(s)
}
