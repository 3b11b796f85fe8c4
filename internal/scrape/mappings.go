package scrape

import (
	"fmt"
	"os"

	"github.com/titanous/json5"
)

// Keys the list mappings must produce for FilmsFromRecords.
const (
	KeyFilmID      = "film_id"
	KeySlug        = "slug"
	KeyName        = "name"
	KeyLink        = "link"
	KeyListNumber  = "list_number"
	KeyOwnerRating = "owner_rating"
)

// DefaultListMappings extracts film entries from a Letterboxd list page.
// Several rules share a json_path: the first one that yields a value wins,
// which covers both the older data-film-* and newer data-item-* markup.
func DefaultListMappings() *MappingFile {
	return &MappingFile{
		RecordSelector: "li.poster-container, li.posteritem",
		Mappings: []Mapping{
			{Selector: "[data-film-id]", Extract: "attr", Attr: "data-film-id", JSONPath: KeyFilmID},
			{Selector: "[data-film-slug]", Extract: "attr", Attr: "data-film-slug", JSONPath: KeySlug},
			{Selector: "[data-item-slug]", Extract: "attr", Attr: "data-item-slug", JSONPath: KeySlug},
			{Selector: "[data-item-name]", Extract: "attr", Attr: "data-item-name", JSONPath: KeyName},
			{Selector: "[data-film-name]", Extract: "attr", Attr: "data-film-name", JSONPath: KeyName},
			{Selector: "img[alt]", Extract: "attr", Attr: "alt", JSONPath: KeyName},
			{Selector: "[data-target-link]", Extract: "attr", Attr: "data-target-link", JSONPath: KeyLink},
			{Selector: "[data-item-link]", Extract: "attr", Attr: "data-item-link", JSONPath: KeyLink},
			{Selector: "p.list-number", Extract: "text", JSONPath: KeyListNumber, Match: `(\d+)`},
			{Selector: "[data-owner-rating]", Extract: "attr", Attr: "data-owner-rating", JSONPath: KeyOwnerRating},
		},
	}
}

// LoadMappingFile loads and validates a json5 mapping file.
func LoadMappingFile(path string) (*MappingFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mappings file: %w", err)
	}

	var mf MappingFile
	if err := json5.Unmarshal(b, &mf); err != nil {
		return nil, fmt.Errorf("parse mappings json: %w", err)
	}

	if len(mf.Mappings) == 0 {
		return nil, fmt.Errorf("mappings file has no mappings")
	}
	for i, m := range mf.Mappings {
		if m.JSONPath == "" {
			return nil, fmt.Errorf("mappings[%d]: json_path is required", i)
		}
		if _, err := compileOptionalRegex(m.Match, m.JSONPath); err != nil {
			return nil, fmt.Errorf("mappings[%d]: %w", i, err)
		}
	}
	return &mf, nil
}
