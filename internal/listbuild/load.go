// Package listbuild creates new ranked lists from scraped film data by
// merging sources, filtering, sorting and truncating.
package listbuild

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"dario.cat/mergo"
	"github.com/rs/zerolog"
)

// Record is one raw film object as read from a source file.
type Record = map[string]any

// Source is the merged content of one or more data files.
type Source struct {
	records []Record
}

// Records returns the merged raw records in first-seen order.
func (s *Source) Records() []Record { return s.records }

// LoadFiles reads every path and merges the records by film id. A file may
// hold an array of film objects or an object mapping film id to stats.
// Later files win on conflicting fields. Unreadable files are logged and
// skipped; it is an error only when nothing could be loaded.
func LoadFiles(paths []string, log zerolog.Logger) (*Source, error) {
	var all []Record
	loaded := 0
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			log.Error().Err(err).Str("file", p).Msg("read data file")
			continue
		}
		recs, err := ParseRecords(b)
		if err != nil {
			log.Error().Err(err).Str("file", p).Msg("parse data file")
			continue
		}
		log.Info().Str("file", p).Int("records", len(recs)).Msg("loaded data file")
		all = append(all, recs...)
		loaded++
	}
	if loaded == 0 {
		return nil, fmt.Errorf("no data files could be loaded from %d path(s)", len(paths))
	}
	src, err := Merge(all)
	if err != nil {
		return nil, err
	}
	log.Info().Int("films", len(src.records)).Msg("unique films loaded")
	return src, nil
}

// ParseRecords decodes a data file. Numbers are kept as json.Number.
func ParseRecords(b []byte) ([]Record, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	switch v := raw.(type) {
	case []any:
		out := make([]Record, 0, len(v))
		for _, el := range v {
			if r, ok := el.(map[string]any); ok {
				out = append(out, r)
			}
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]Record, 0, len(v))
		for _, k := range keys {
			if r, ok := v[k].(map[string]any); ok {
				r["film_id"] = k
				out = append(out, r)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported top-level json type %T", raw)
	}
}

// Merge combines records sharing a film id; fields from later records
// override earlier ones. Records without an id are dropped.
func Merge(records []Record) (*Source, error) {
	byID := make(map[string]Record, len(records))
	var order []string
	for _, r := range records {
		id := rawID(r)
		if id == "" {
			continue
		}
		dst, ok := byID[id]
		if !ok {
			cp := make(Record, len(r))
			for k, v := range r {
				cp[k] = v
			}
			byID[id] = cp
			order = append(order, id)
			continue
		}
		if err := mergo.Merge(&dst, r, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge film %s: %w", id, err)
		}
	}
	out := make([]Record, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return &Source{records: out}, nil
}

func rawID(r Record) string {
	for _, k := range []string{"film_id", "Date", "id"} {
		if s := asString(r[k]); s != "" {
			return s
		}
	}
	return ""
}
