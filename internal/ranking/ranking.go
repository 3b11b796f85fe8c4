// Package ranking loads ranked lists and answers position lookups.
//
// A ranking source is a JSON array whose order is the ranking: element 0 is
// rank 1. Elements identify either a film (numeric id) or a person (display
// name). Datasets are immutable once parsed and safe for concurrent reads.
package ranking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/antzucaro/matchr"
	"golang.org/x/text/unicode/norm"
)

// PageSize is the number of entries on one page of a Letterboxd list.
const PageSize = 100

var (
	// ErrFetch marks a dataset that could not be retrieved.
	ErrFetch = errors.New("ranking fetch failed")
	// ErrParse marks a dataset whose body is not a usable ranking array.
	ErrParse = errors.New("ranking parse failed")
)

// MatchField selects which identity a dataset is keyed by.
type MatchField string

const (
	MatchID   MatchField = "id"
	MatchName MatchField = "name"
)

// idKeys are checked in order. "Date" is the legacy key emitted by older
// list exports.
var idKeys = []string{"Date", "id", "film_id"}

var nameKeys = []string{"actor", "name"}

// Entry is one ranked row. Rank is not stored; it is the entry's index + 1.
type Entry struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Slug string `json:"slug,omitempty"`
}

// Dataset is an ordered, immutable ranking.
type Dataset struct {
	field   MatchField
	entries []Entry
	byID    map[int64]int
	byName  map[string]int
}

// Getter retrieves raw bytes for a source URL or path.
type Getter interface {
	Get(ctx context.Context, src string) ([]byte, error)
}

// Load fetches src with g and parses it. Retrieval failures wrap ErrFetch and
// decoding failures wrap ErrParse.
func Load(ctx context.Context, g Getter, src string, field MatchField) (*Dataset, error) {
	b, err := g.Get(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, src, err)
	}
	ds, err := Parse(b, field)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}
	return ds, nil
}

// Parse decodes a ranking array. Elements that do not carry field keep their
// slot (so later ranks are unaffected) but never match. A non-empty array in
// which no element carries field is rejected.
func Parse(data []byte, field MatchField) (*Dataset, error) {
	if field != MatchID && field != MatchName {
		return nil, fmt.Errorf("%w: unknown match field %q", ErrParse, field)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	ds := &Dataset{
		field:   field,
		entries: make([]Entry, len(raw)),
		byID:    make(map[int64]int),
		byName:  make(map[string]int),
	}

	usable := 0
	for i, el := range raw {
		e := entryFrom(el)
		ds.entries[i] = e
		rank := i + 1

		switch field {
		case MatchID:
			if e.ID <= 0 {
				continue
			}
			usable++
			if _, dup := ds.byID[e.ID]; !dup {
				ds.byID[e.ID] = rank
			}
		case MatchName:
			key := NormalizeName(e.Name)
			if key == "" {
				continue
			}
			usable++
			if _, dup := ds.byName[key]; !dup {
				ds.byName[key] = rank
			}
		}
	}

	if len(raw) > 0 && usable == 0 {
		return nil, fmt.Errorf("%w: no element carries a %s", ErrParse, field)
	}
	return ds, nil
}

func entryFrom(el any) Entry {
	switch v := el.(type) {
	case json.Number:
		id, _ := parseID(v)
		return Entry{ID: id}
	case string:
		return Entry{Name: v}
	case map[string]any:
		var e Entry
		for _, k := range idKeys {
			if id, ok := parseID(v[k]); ok {
				e.ID = id
				break
			}
		}
		for _, k := range nameKeys {
			if s, ok := v[k].(string); ok && strings.TrimSpace(s) != "" {
				e.Name = s
				break
			}
		}
		if s, ok := v["slug"].(string); ok {
			e.Slug = s
		}
		return e
	default:
		return Entry{}
	}
}

func parseID(v any) (int64, bool) {
	switch x := v.(type) {
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			f, ferr := x.Float64()
			if ferr != nil || f != float64(int64(f)) {
				return 0, false
			}
			n = int64(f)
		}
		return n, n > 0
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return n, err == nil && n > 0
	default:
		return 0, false
	}
}

// NormalizeName canonicalizes a display name for comparison: surrounding
// whitespace trimmed and NFC composed.
func NormalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Field reports what the dataset is keyed by.
func (d *Dataset) Field() MatchField { return d.field }

// Len returns the number of ranked rows.
func (d *Dataset) Len() int { return len(d.entries) }

// Entry returns the row at a 1-based rank.
func (d *Dataset) Entry(rank int) (Entry, bool) {
	if rank < 1 || rank > len(d.entries) {
		return Entry{}, false
	}
	return d.entries[rank-1], true
}

// PositionByID returns the 1-based rank of id.
func (d *Dataset) PositionByID(id int64) (int, bool) {
	rank, ok := d.byID[id]
	return rank, ok
}

// PositionByName returns the 1-based rank of name after normalization.
func (d *Dataset) PositionByName(name string) (int, bool) {
	key := NormalizeName(name)
	if key == "" {
		return 0, false
	}
	rank, ok := d.byName[key]
	return rank, ok
}

// Position looks key up according to the dataset's match field. For id
// datasets key must be a decimal film id.
func (d *Dataset) Position(key string) (int, bool) {
	if d.field == MatchName {
		return d.PositionByName(key)
	}
	id, ok := parseID(key)
	if !ok {
		return 0, false
	}
	return d.PositionByID(id)
}

// Closest returns the indexed name most similar to name by Jaro-Winkler
// distance, together with its score. It is a hint only; Position never
// matches fuzzily.
func (d *Dataset) Closest(name string) (string, float64) {
	key := NormalizeName(name)
	if key == "" || len(d.entries) == 0 {
		return "", 0
	}
	var best string
	var bestScore float64
	for _, e := range d.entries {
		cand := NormalizeName(e.Name)
		if cand == "" {
			continue
		}
		score := matchr.JaroWinkler(strings.ToLower(key), strings.ToLower(cand), false)
		if score > bestScore {
			best, bestScore = cand, score
		}
	}
	return best, bestScore
}

// PageOf returns the list page on which rank appears. The formula matches
// the deep links Letterboxd lists have always used: rank/100 + 1, so rank
// 100 links to page 2.
func PageOf(rank int) int {
	return rank/PageSize + 1
}
