package annotate

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/afchatfield/lb-list-to-json/internal/badge"
	"github.com/afchatfield/lb-list-to-json/internal/ranking"
	"github.com/afchatfield/lb-list-to-json/internal/registry"
)

// Match is one ranking a key was found in.
type Match struct {
	Category string `json:"category"`
	Title    string `json:"title"`
	Rank     int    `json:"rank"`
	Page     int    `json:"page"`
	URL      string `json:"url,omitempty"`
}

// Lookup is the page-free result of checking one key against the registry.
type Lookup struct {
	Matches []Match `json:"matches"`
	// Errors holds per-category load failures.
	Errors map[string]error `json:"-"`
	// Suggestions maps a name category to its closest entry when the exact
	// name was not found. Only filled by LookupName.
	Suggestions map[string]string `json:"suggestions,omitempty"`
}

// LookupFilm checks id against every film category without touching a page.
// Matches follow registry order.
func (a *Annotator) LookupFilm(ctx context.Context, id int64) *Lookup {
	return a.lookup(ctx, a.reg.Films(), func(ds *ranking.Dataset) (int, bool) {
		return ds.PositionByID(id)
	}, nil)
}

// LookupName checks name against every name category. Misses with a close
// entry (Jaro-Winkler similarity of at least minSimilarity) get a suggestion.
func (a *Annotator) LookupName(ctx context.Context, name string) *Lookup {
	const minSimilarity = 0.85
	return a.lookup(ctx, a.reg.Actors(), func(ds *ranking.Dataset) (int, bool) {
		return ds.PositionByName(name)
	}, func(ds *ranking.Dataset) (string, bool) {
		best, score := ds.Closest(name)
		return best, best != "" && score >= minSimilarity
	})
}

func (a *Annotator) lookup(
	ctx context.Context,
	cats []registry.Category,
	find func(*ranking.Dataset) (int, bool),
	suggest func(*ranking.Dataset) (string, bool),
) *Lookup {
	found := make([]*Match, len(cats))
	errs := make([]error, len(cats))
	hints := make([]string, len(cats))

	var g errgroup.Group
	for i, cat := range cats {
		g.Go(func() error {
			ds, err := ranking.Load(ctx, a.getter, cat.Source, cat.Match)
			if err != nil {
				errs[i] = err
				return nil
			}
			rank, ok := find(ds)
			if !ok {
				if suggest != nil {
					if h, ok := suggest(ds); ok {
						hints[i] = h
					}
				}
				return nil
			}
			found[i] = &Match{
				Category: cat.ID,
				Title:    cat.Title,
				Rank:     rank,
				Page:     ranking.PageOf(rank),
				URL:      badge.ListURL(cat.Display.ListURLTemplate, rank),
			}
			return nil
		})
	}
	_ = g.Wait()

	out := &Lookup{Matches: []Match{}, Errors: map[string]error{}}
	for i, cat := range cats {
		if found[i] != nil {
			out.Matches = append(out.Matches, *found[i])
		}
		if errs[i] != nil {
			out.Errors[cat.ID] = errs[i]
			a.opts.Logger.Warn().Err(errs[i]).Str("category", cat.ID).Msg("lookup category skipped")
		}
		if hints[i] != "" {
			if out.Suggestions == nil {
				out.Suggestions = map[string]string{}
			}
			out.Suggestions[cat.ID] = hints[i]
		}
	}
	return out
}
