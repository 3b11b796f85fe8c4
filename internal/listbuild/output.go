package listbuild

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Format selects how a Result is written.
type Format string

const (
	FormatJSON   Format = "json"
	FormatSimple Format = "simple"
	FormatCSV    Format = "csv"
)

type fullOutput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	FilmCount   int    `json:"film_count"`
	Films       []Film `json:"films"`
}

type simpleFilm struct {
	FilmID int64  `json:"film_id"`
	Name   string `json:"name"`
}

var csvHeader = []string{
	"film_id", "name", "release_year", "director", "url", "countries",
	"primary_language", "other_languages", "genres", "runtime",
	"average_rating", "ratings_count", "watches_count", "watches_count_exact", "list_position",
}

// Write renders res to w. Simple output is a ranking dataset of
// {"film_id", "name"} objects; ids that are not numeric become 0.
func Write(w io.Writer, res *Result, format Format) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "    ")
		enc.SetEscapeHTML(false)
		films := res.Films
		if films == nil {
			films = []Film{}
		}
		return enc.Encode(fullOutput{
			Title:       res.Title,
			Description: res.Description,
			FilmCount:   len(films),
			Films:       films,
		})

	case FormatSimple:
		out := make([]simpleFilm, 0, len(res.Films))
		for _, f := range res.Films {
			id, _ := strconv.ParseInt(f.FilmID, 10, 64)
			out = append(out, simpleFilm{FilmID: id, Name: f.Name})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "    ")
		enc.SetEscapeHTML(false)
		return enc.Encode(out)

	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(csvHeader); err != nil {
			return err
		}
		for _, f := range res.Films {
			row := []string{
				f.FilmID, f.Name, itoa(f.ReleaseYear), f.Director, f.URL,
				strings.Join(f.Countries, ";"), f.PrimaryLanguage, strings.Join(f.OtherLanguages, ";"),
				strings.Join(f.Genres, ";"), itoa(f.Runtime),
				strconv.FormatFloat(f.AverageRating, 'f', -1, 64), itoa(f.RatingsCount),
				itoa(f.WatchesCount), itoa(f.WatchesCountExact), itoa(f.ListPosition),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()

	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func itoa(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}
