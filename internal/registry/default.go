package registry

import (
	"github.com/afchatfield/lb-list-to-json/internal/badge"
	"github.com/afchatfield/lb-list-to-json/internal/ranking"
)

// StatsContainer is the film-page list Letterboxd fills in after first paint.
const StatsContainer = ".production-statistic-list"

// DefaultDataBaseURL hosts the generated ranking files.
const DefaultDataBaseURL = "https://raw.githubusercontent.com/afchatfield/lb-list-to-json/main/data/"

var flagSize = badge.IconSize{Height: 14, Width: 20, ExtraStyle: "margin-right:3px;vertical-align:middle"}

func flag(id, title, code, listPath string) Category {
	return Category{
		ID:      id,
		Title:   title,
		Source:  id + ".json",
		Match:   ranking.MatchID,
		Variant: badge.FlagIcon,
		Display: Display{
			ListURLTemplate: "https://letterboxd.com/" + listPath + "/page/",
			IconURL:         "https://flagcdn.com/w40/" + code + ".png",
			IconSize:        flagSize,
			AriaLabel:       "№ {rank} in " + title,
		},
		Container: StatsContainer,
		Ready:     Ready{MinChildren: 2},
	}
}

// Default returns the built-in category table.
func Default() *Registry {
	return New([]Category{
		{
			ID:      "top2000",
			Title:   "Letterboxd Top 2000",
			Source:  "top2000.json",
			Match:   ranking.MatchID,
			Variant: badge.CrownSVG,
			Display: Display{
				ListURLTemplate: "https://letterboxd.com/prof_ratigan/list/top-2000-highest-rated-films/page/",
				IconSize:        badge.IconSize{Height: 16, Width: 16},
				AriaLabel:       badge.DefaultCrownLabel,
			},
			Container: StatsContainer,
			Ready:     Ready{MinChildren: 2},
		},
		{
			ID:      "letterboxd_250",
			Title:   "Official Top 250 Narrative Feature Films",
			Source:  "letterboxd_250.json",
			Match:   ranking.MatchID,
			Variant: badge.FlagIcon,
			Display: Display{
				ListURLTemplate: "https://letterboxd.com/dave/list/official-top-250-narrative-feature-films/page/",
				IconURL:         "https://s.ltrbxd.com/static/img/icons/lb-logo.svg",
				IconSize:        badge.IconSize{Height: 14, Width: 14, ExtraStyle: "margin-right:3px"},
				AriaLabel:       "№ {rank} in the Official Top 250",
			},
			Container: StatsContainer,
			Ready:     Ready{MinChildren: 2},
		},
		{
			ID:      "letterboxd_250_docs",
			Title:   "Official Top 250 Documentary Films",
			Source:  "letterboxd_250_docs.json",
			Match:   ranking.MatchID,
			Variant: badge.FlagIcon,
			Display: Display{
				ListURLTemplate: "https://letterboxd.com/dave/list/official-top-250-documentary-films/page/",
				IconURL:         "https://s.ltrbxd.com/static/img/icons/lb-logo.svg",
				IconSize:        badge.IconSize{Height: 14, Width: 14, ExtraStyle: "margin-right:3px"},
				AriaLabel:       "№ {rank} in the Official Top 250 Documentaries",
			},
			Container: StatsContainer,
			Ready:     Ready{MinChildren: 2},
		},
		flag("korea_100", "Top 100 Korean Films", "kr", "prof_ratigan/list/top-100-south-korean-films"),
		flag("japan_100", "Top 100 Japanese Films", "jp", "prof_ratigan/list/top-100-japanese-films"),
		flag("france_100", "Top 100 French Films", "fr", "prof_ratigan/list/top-100-french-films"),
		flag("italy_100", "Top 100 Italian Films", "it", "prof_ratigan/list/top-100-italian-films"),
		flag("india_100", "Top 100 Indian Films", "in", "prof_ratigan/list/top-100-indian-films"),
		{
			ID:      "top_actors",
			Title:   "Top Actors",
			Source:  "top_actors.json",
			Match:   ranking.MatchName,
			Variant: badge.InlineIcon,
			Display: Display{
				IconURL:   "https://s.ltrbxd.com/static/img/icons/flame.svg",
				IconSize:  badge.IconSize{Height: 12, Width: 12, ExtraStyle: "margin:0 2px"},
				AriaLabel: "№ {rank} in the top actors",
			},
		},
	}).Resolve(DefaultDataBaseURL)
}
