// Package registry is the table of ranking categories a film page is checked
// against. Each row names a ranking source, how to match it, and how its badge
// looks and where it goes. Adding a category is a data change: edit the json5
// registry file or the built-in Default table.
package registry

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/afchatfield/lb-list-to-json/internal/badge"
	"github.com/afchatfield/lb-list-to-json/internal/config"
	"github.com/afchatfield/lb-list-to-json/internal/ranking"
)

// Display is the per-category presentation; see badge.Display.
type Display = badge.Display

// Ready describes when a badge container is considered populated.
type Ready struct {
	// MinChildren is the number of element children the container must have.
	// 0 means the container only has to exist.
	MinChildren int `json:"min_children,omitempty"`
}

// Category is one registered ranking.
type Category struct {
	ID      string             `json:"id"`
	Title   string             `json:"title"`
	Source  string             `json:"source"`
	Match   ranking.MatchField `json:"match"`
	Variant badge.Variant      `json:"variant"`
	Display Display            `json:"display"`
	// Container is the selector the badge is appended to. Name-matched
	// categories ignore it; their badges go inside the matching cast anchor.
	Container string `json:"container,omitempty"`
	Ready     Ready  `json:"ready,omitempty"`
}

// File is the on-disk registry document.
type File struct {
	// DataBaseURL resolves relative Source values.
	DataBaseURL string     `json:"data_base_url,omitempty"`
	Categories  []Category `json:"categories"`
}

// Registry is an ordered category table. Order is preserved in annotation
// reports.
type Registry struct {
	categories []Category
	byID       map[string]int
}

// New builds a Registry. Duplicate ids keep the first row.
func New(cats []Category) *Registry {
	r := &Registry{byID: make(map[string]int, len(cats))}
	for _, c := range cats {
		if _, dup := r.byID[c.ID]; dup {
			continue
		}
		r.byID[c.ID] = len(r.categories)
		r.categories = append(r.categories, c)
	}
	return r
}

// Load reads a json5 registry file and its optional <name>.local.json5
// override. Relative sources are resolved against the file's DataBaseURL.
func Load(name string) (*Registry, error) {
	f, err := config.ReadLayered[File](name)
	if err != nil {
		return nil, fmt.Errorf("load registry %s: %w", name, err)
	}
	reg := New(f.Categories)
	if f.DataBaseURL != "" {
		reg = reg.Resolve(f.DataBaseURL)
	}
	return reg, nil
}

// All returns the categories in registry order.
func (r *Registry) All() []Category {
	return append([]Category(nil), r.categories...)
}

// Films returns the categories matched by film id.
func (r *Registry) Films() []Category { return r.filter(ranking.MatchID) }

// Actors returns the categories matched by performer name.
func (r *Registry) Actors() []Category { return r.filter(ranking.MatchName) }

func (r *Registry) filter(m ranking.MatchField) []Category {
	var out []Category
	for _, c := range r.categories {
		if c.Match == m {
			out = append(out, c)
		}
	}
	return out
}

// Get returns the category with id.
func (r *Registry) Get(id string) (Category, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Category{}, false
	}
	return r.categories[i], true
}

// Len returns the number of categories.
func (r *Registry) Len() int { return len(r.categories) }

// Resolve returns a copy whose relative sources are joined onto base. base may
// be an http(s) URL or a local directory.
func (r *Registry) Resolve(base string) *Registry {
	base = strings.TrimSpace(base)
	cats := r.All()
	if base == "" {
		return New(cats)
	}
	for i := range cats {
		cats[i].Source = resolveSource(base, cats[i].Source)
	}
	return New(cats)
}

func resolveSource(base, src string) string {
	if src == "" || isAbsolute(src) {
		return src
	}
	if bu, err := url.Parse(base); err == nil && (bu.Scheme == "http" || bu.Scheme == "https") {
		if !strings.HasSuffix(bu.Path, "/") {
			bu.Path += "/"
		}
		ref, err := url.Parse(src)
		if err != nil {
			return src
		}
		return bu.ResolveReference(ref).String()
	}
	return path.Join(base, src)
}

func isAbsolute(src string) bool {
	if strings.HasPrefix(src, "/") {
		return true
	}
	u, err := url.Parse(src)
	return err == nil && u.Scheme != "" && len(u.Scheme) > 1
}
