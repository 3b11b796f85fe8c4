package registry

import (
	"fmt"
	"strings"

	"github.com/afchatfield/lb-list-to-json/internal/badge"
	"github.com/afchatfield/lb-list-to-json/internal/config"
	"github.com/afchatfield/lb-list-to-json/internal/ranking"
)

// Validate checks the table for problems that would make a category silently
// never produce a badge. It does not stop at the first issue.
func (r *Registry) Validate() []config.Issue {
	var issues []config.Issue
	add := func(sev config.Severity, i int, field, msg string, args ...any) {
		issues = append(issues, config.Issue{
			Severity: sev,
			Path:     fmt.Sprintf("categories[%d].%s", i, field),
			Message:  fmt.Sprintf(msg, args...),
		})
	}

	if len(r.categories) == 0 {
		issues = append(issues, config.Issue{Severity: config.SeverityWarn, Path: "categories", Message: "registry is empty"})
	}

	for i, c := range r.categories {
		if strings.TrimSpace(c.ID) == "" {
			add(config.SeverityError, i, "id", "id is required")
		}
		if strings.TrimSpace(c.Source) == "" {
			add(config.SeverityError, i, "source", "source is required")
		}
		switch c.Match {
		case ranking.MatchID:
			if strings.TrimSpace(c.Container) == "" {
				add(config.SeverityError, i, "container", "film categories need a container selector")
			}
			if c.Variant == badge.InlineIcon {
				add(config.SeverityWarn, i, "variant", "inline-icon badges are meant for name categories")
			}
		case ranking.MatchName:
			if c.Variant != badge.InlineIcon {
				add(config.SeverityWarn, i, "variant", "name categories render inside anchors; inline-icon expected, got %q", c.Variant)
			}
		default:
			add(config.SeverityError, i, "match", "unknown match field %q", c.Match)
		}
		if !c.Variant.Valid() {
			add(config.SeverityError, i, "variant", "unknown variant %q", c.Variant)
		}
		if c.Variant != badge.InlineIcon && c.Display.ListURLTemplate == "" {
			add(config.SeverityWarn, i, "display.list_url_template", "badge will not link to the list")
		}
		if c.Variant != badge.CrownSVG && c.Display.IconURL == "" {
			add(config.SeverityWarn, i, "display.icon_url", "badge has no icon")
		}
		if c.Ready.MinChildren < 0 {
			add(config.SeverityError, i, "ready.min_children", "must be >= 0")
		}
	}
	return issues
}
