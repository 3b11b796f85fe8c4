// Package metrics is the backend-agnostic metrics facade.
//
// Components call the package-level helpers (IncCounter, ObserveHistogram)
// and never import a concrete backend. The process entrypoint decides which
// backend to install with SetBackend; until then every call is a no-op.
package metrics

import "sync"

// Labels are the dimension values attached to a single observation.
type Labels map[string]string

// Backend receives counter and histogram observations.
//
// Implementations must be safe for concurrent use: annotation tasks and
// scraper workers report from many goroutines.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

// Metric names shared by components and backends.
const (
	CategoryTotal       = "rank_category_total"         // labels: category, outcome
	BadgesTotal         = "rank_badges_total"           // labels: kind
	ScrapePagesTotal    = "rank_scrape_pages_total"     // labels: status
	ScrapeEntriesTotal  = "rank_scrape_entries_total"   // no labels
	HTTPRequestsTotal   = "rank_http_requests_total"    // labels: status
	HTTPErrorsTotal     = "rank_http_errors_total"      // labels: status
	HTTPRequestDuration = "rank_http_request_seconds"   // labels: status
	HTTPDownloadBytes   = "rank_http_download_bytes"    // labels: status
	MountWaitDuration   = "rank_mount_wait_seconds"     // labels: outcome
)

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b as the process-wide backend. A nil b restores the
// no-op backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		backend = nopBackend{}
		return
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter forwards to the installed backend.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram forwards to the installed backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush asks the installed backend to submit anything it has buffered.
func Flush() error {
	return current().Flush()
}
