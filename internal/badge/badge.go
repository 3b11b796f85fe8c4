// Package badge builds the ranking badge fragments inserted into film pages.
//
// Build is pure: it allocates a detached *html.Node tree and never touches a
// document. Every badge carries the marker class "rank-badge rank-badge-<id>"
// and the attribute data-rank-badge="<id>", which is how later annotation
// passes recognize an existing badge.
package badge

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/afchatfield/lb-list-to-json/internal/ranking"
)

// MarkerAttr is set on the root of every badge to the category id.
const MarkerAttr = "data-rank-badge"

// DefaultCrownLabel is used for crown badges without an explicit AriaLabel.
const DefaultCrownLabel = "№ {rank} in the Letterboxd Top 2000"

// ErrInvalidRank is returned for ranks below 1.
var ErrInvalidRank = errors.New("rank must be >= 1")

// Variant selects the badge shape.
type Variant string

const (
	// FlagIcon is a link to the list page holding an icon and the rank.
	FlagIcon Variant = "flag-icon"
	// CrownSVG is the top-2000 badge: inline crown glyph plus rank label.
	CrownSVG Variant = "crown-svg"
	// InlineIcon is a non-link span appended inside an existing anchor.
	InlineIcon Variant = "inline-icon"
)

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	switch v {
	case FlagIcon, CrownSVG, InlineIcon:
		return true
	}
	return false
}

// IconSize sizes the badge icon in CSS pixels.
type IconSize struct {
	Height     int    `json:"height"`
	Width      int    `json:"width"`
	ExtraStyle string `json:"extra_style,omitempty"`
}

// Display holds the per-category presentation parameters.
type Display struct {
	// ListURLTemplate is the list URL up to and including "/page/"; the page
	// number is appended.
	ListURLTemplate string   `json:"list_url_template"`
	IconURL         string   `json:"icon_url,omitempty"`
	IconSize        IconSize `json:"icon_size"`
	// AriaLabel may contain "{rank}".
	AriaLabel string `json:"aria_label,omitempty"`
}

// Build returns a detached badge for rank in the given category.
func Build(rank int, category string, d Display, v Variant) (*html.Node, error) {
	if rank < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRank, rank)
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, errors.New("badge category is required")
	}

	switch v {
	case FlagIcon:
		a := root(atom.A, category)
		setAttr(a, "href", ListURL(d.ListURLTemplate, rank))
		if label := ariaLabel(d.AriaLabel, rank); label != "" {
			setAttr(a, "aria-label", label)
		}
		a.AppendChild(icon(d))
		a.AppendChild(text(strconv.Itoa(rank)))
		return a, nil

	case CrownSVG:
		a := root(atom.A, category)
		setAttr(a, "href", ListURL(d.ListURLTemplate, rank))
		label := d.AriaLabel
		if label == "" {
			label = DefaultCrownLabel
		}
		setAttr(a, "aria-label", ariaLabel(label, rank))
		a.AppendChild(crown(d.IconSize))
		span := element(atom.Span)
		setAttr(span, "class", "rank-badge-label")
		span.AppendChild(text(strconv.Itoa(rank)))
		a.AppendChild(span)
		return a, nil

	case InlineIcon:
		span := root(atom.Span, category)
		if label := ariaLabel(d.AriaLabel, rank); label != "" {
			setAttr(span, "title", label)
		}
		span.AppendChild(icon(d))
		span.AppendChild(text(strconv.Itoa(rank)))
		return span, nil

	default:
		return nil, fmt.Errorf("unknown badge variant %q", v)
	}
}

// ListURL is the deep link to the list page that shows rank.
func ListURL(template string, rank int) string {
	if template == "" {
		return ""
	}
	return template + strconv.Itoa(ranking.PageOf(rank))
}

// ClassName returns the category-specific marker class.
func ClassName(category string) string {
	var sb strings.Builder
	sb.WriteString("rank-badge-")
	for _, r := range strings.ToLower(strings.TrimSpace(category)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// Category returns the marker of a badge node, if it is one.
func Category(n *html.Node) (string, bool) {
	if n == nil || n.Type != html.ElementNode {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Key == MarkerAttr {
			return a.Val, true
		}
	}
	return "", false
}

// Render serializes n to HTML.
func Render(n *html.Node) (string, error) {
	var sb strings.Builder
	if err := html.Render(&sb, n); err != nil {
		return "", fmt.Errorf("render badge: %w", err)
	}
	return sb.String(), nil
}

func root(a atom.Atom, category string) *html.Node {
	n := element(a)
	setAttr(n, "class", "rank-badge "+ClassName(category))
	setAttr(n, MarkerAttr, category)
	return n
}

func icon(d Display) *html.Node {
	img := element(atom.Img)
	setAttr(img, "src", d.IconURL)
	setAttr(img, "alt", "")
	if d.IconSize.Width > 0 {
		setAttr(img, "width", strconv.Itoa(d.IconSize.Width))
	}
	if d.IconSize.Height > 0 {
		setAttr(img, "height", strconv.Itoa(d.IconSize.Height))
	}
	if s := iconStyle(d.IconSize); s != "" {
		setAttr(img, "style", s)
	}
	return img
}

func iconStyle(sz IconSize) string {
	var parts []string
	if sz.Height > 0 {
		parts = append(parts, fmt.Sprintf("height:%dpx", sz.Height))
	}
	if sz.Width > 0 {
		parts = append(parts, fmt.Sprintf("width:%dpx", sz.Width))
	}
	if s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sz.ExtraStyle), ";")); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, ";")
}

// crownPath is a 24x24 crown outline.
const crownPath = "M2 19h20v2H2v-2zm0-2 2-10 5 4 3-7 3 7 5-4 2 10H2z"

func crown(sz IconSize) *html.Node {
	w, h := sz.Width, sz.Height
	if w <= 0 {
		w = 16
	}
	if h <= 0 {
		h = 16
	}
	svg := &html.Node{Type: html.ElementNode, Data: "svg", DataAtom: atom.Svg, Namespace: "svg"}
	setAttr(svg, "xmlns", "http://www.w3.org/2000/svg")
	setAttr(svg, "viewBox", "0 0 24 24")
	setAttr(svg, "width", strconv.Itoa(w))
	setAttr(svg, "height", strconv.Itoa(h))
	setAttr(svg, "fill", "currentColor")
	setAttr(svg, "aria-hidden", "true")
	path := &html.Node{Type: html.ElementNode, Data: "path", Namespace: "svg"}
	setAttr(path, "d", crownPath)
	svg.AppendChild(path)
	return svg
}

func ariaLabel(tmpl string, rank int) string {
	return strings.ReplaceAll(tmpl, "{rank}", strconv.Itoa(rank))
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func setAttr(n *html.Node, key, val string) {
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
