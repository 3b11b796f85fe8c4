package scrape

import (
	"fmt"
	"sort"
	"strings"
)

// Preset is a well-known list.
type Preset struct {
	User string
	Slug string
}

// Presets are shortcuts accepted wherever a list is expected.
var Presets = map[string]Preset{
	"my_top_100":          {User: "el_duderinno", Slug: "my-top-100"},
	"all_the_films":       {User: "hershwin", Slug: "all-the-movies"},
	"letterboxd_250":      {User: "dave", Slug: "official-top-250-narrative-feature-films"},
	"letterboxd_250_docs": {User: "dave", Slug: "official-top-250-documentary-films"},
}

// PresetNames returns the preset keys sorted.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for k := range Presets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ListURL builds the canonical URL of a user's list.
func ListURL(user, slug string) string {
	return fmt.Sprintf("%s%s/list/%s/", SiteURL, strings.Trim(user, "/ "), strings.Trim(slug, "/ "))
}

// ResolveList accepts a preset key, "user/slug", a URL or a local path and
// returns what should be fetched.
func ResolveList(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", fmt.Errorf("list is required")
	}
	if p, ok := Presets[arg]; ok {
		return ListURL(p.User, p.Slug), nil
	}
	if strings.Contains(arg, "://") || strings.HasPrefix(arg, "/") || strings.HasPrefix(arg, ".") {
		return arg, nil
	}
	if parts := strings.Split(strings.Trim(arg, "/"), "/"); len(parts) == 2 && parts[0] != "" && parts[1] != "" {
		return ListURL(parts[0], parts[1]), nil
	}
	return "", fmt.Errorf("unknown list %q (presets: %s)", arg, strings.Join(PresetNames(), ", "))
}
