package config

import (
	"net/url"
	"strings"

	"github.com/andybalholm/cascadia"
)

// Severity grades a validation issue.
type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warn"
)

// Issue is one validation finding.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate reports every problem with c rather than the first.
func (c Config) Validate() []Issue {
	var issues []Issue
	add := func(sev Severity, path, msg string) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: msg})
	}

	for _, s := range []struct{ path, sel string }{
		{"film_id_selector", c.FilmIDSelector},
		{"cast_selector", c.CastSelector},
	} {
		if strings.TrimSpace(s.sel) == "" {
			add(SeverityError, s.path, "selector is required")
			continue
		}
		if _, err := cascadia.ParseGroup(s.sel); err != nil {
			add(SeverityError, s.path, "invalid selector: "+err.Error())
		}
	}
	if strings.TrimSpace(c.FilmIDAttr) == "" {
		add(SeverityError, "film_id_attr", "attribute name is required")
	}

	if c.FetchTimeout <= 0 {
		add(SeverityError, "fetch_timeout", "must be > 0")
	}
	if c.MountTimeout < 0 {
		add(SeverityError, "mount_timeout", "must be >= 0")
	} else if c.MountTimeout == 0 {
		add(SeverityWarn, "mount_timeout", "0 waits for the container until the page is closed")
	}
	if c.ProgressInterval <= 0 {
		add(SeverityError, "progress_interval", "must be > 0")
	}

	switch c.MetricsBackend {
	case "", "none", "datadog":
	default:
		add(SeverityError, "metrics_backend", "must be none or datadog")
	}

	if u, err := url.Parse(c.UpstreamBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add(SeverityError, "upstream_base_url", "must be an absolute http(s) URL")
	}
	if strings.TrimSpace(c.DataBaseURL) == "" {
		add(SeverityWarn, "data_base_url", "relative ranking sources will be read from the working directory")
	}
	return issues
}
