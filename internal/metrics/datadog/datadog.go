// Package datadog implements a Datadog backend for the internal/metrics package.
//
// Observations are buffered in memory under a mutex and submitted on Flush.
// A background loop flushes every FlushEvery (default one minute) so that a
// long-running proxy server produces a time series; Close stops the loop and
// flushes one last time, which is what short CLI runs rely on.
//
// Only the metric names listed in seriesNames are forwarded. Anything else is
// dropped so that a typo in a component cannot create unbounded series.
package datadog

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"github.com/afchatfield/lb-list-to-json/internal/metrics"
)

// seriesNames maps facade metric names to Datadog metric names.
var seriesNames = map[string]string{
	metrics.CategoryTotal:       "rankbadge.category.total",
	metrics.BadgesTotal:         "rankbadge.badges.total",
	metrics.ScrapePagesTotal:    "rankbadge.scrape.pages.total",
	metrics.ScrapeEntriesTotal:  "rankbadge.scrape.entries.total",
	metrics.HTTPRequestsTotal:   "rankbadge.http.requests.total",
	metrics.HTTPErrorsTotal:     "rankbadge.http.errors.total",
	metrics.HTTPRequestDuration: "rankbadge.http.request_seconds",
	metrics.HTTPDownloadBytes:   "rankbadge.http.download_bytes",
	metrics.MountWaitDuration:   "rankbadge.mount.wait_seconds",
}

// Options controls Datadog backend configuration.
type Options struct {
	// JobName becomes tag "job:<name>" on every metric. Defaults to "rankbadge".
	JobName string

	// Tags are extra Datadog tags (e.g. []string{"env:prod", "service:proxy"}).
	Tags []string

	// FlushEvery controls how often buffered metrics are submitted.
	// If <= 0, defaults to 60 seconds.
	FlushEvery time.Duration

	// Test seams; production leaves them nil.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the slice of *datadogV2.MetricsApi the backend needs,
// so tests can capture payloads without HTTP.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api metricsSubmitter
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}
	closeOnce  sync.Once

	baseTags  []string
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu      sync.Mutex
	counts  map[string]float64
	samples map[string][]float64
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

// NewBackend constructs a Datadog backend using the official client and starts
// its flush loop. Credentials come from DD_API_KEY / DD_SITE as read by the
// Datadog client; network errors surface from Flush, not from here.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	if parent == nil {
		return nil, wrapInitErr(fmt.Errorf("nil context"))
	}

	job := opts.JobName
	if job == "" {
		job = "rankbadge"
	}
	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(), "job:"+job)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}

	submitter := opts.submitter
	if submitter == nil {
		submitter = datadogV2.NewMetricsApi(dd.NewAPIClient(dd.NewConfiguration()))
	}

	b := &Backend{
		api:        submitter,
		ctx:        dd.NewDefaultContext(parent),
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		baseTags:   baseTags,
		now:        nowFn,
		newTicker:  newTicker,
		counts:     make(map[string]float64),
		samples:    make(map[string][]float64),
	}

	go b.loop()
	return b, nil
}

func (b *Backend) loop() {
	defer close(b.doneCh)

	t := b.newTicker(b.flushEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the flush loop and performs a final Flush. Calling Close more
// than once is safe; later calls only flush.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		close(b.stopCh)
		<-b.doneCh
	})
	return b.Flush()
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}
	if _, ok := seriesNames[name]; !ok {
		return
	}
	k := seriesKey(name, labels)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts[k] += delta
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}
	if _, ok := seriesNames[name]; !ok {
		return
	}
	k := seriesKey(name, labels)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples[k] = append(b.samples[k], value)
}

// snapshotAndReset detaches the current buffers. Must be called without b.mu held.
func (b *Backend) snapshotAndReset() (map[string]float64, map[string][]float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	counts, samples := b.counts, b.samples
	b.counts = make(map[string]float64)
	b.samples = make(map[string][]float64)
	return counts, samples
}

// Flush submits buffered metrics and resets the buffers, even when the
// submission fails. It returns nil when there is nothing to send.
func (b *Backend) Flush() error {
	counts, samples := b.snapshotAndReset()
	if len(counts) == 0 && len(samples) == 0 {
		return nil
	}

	series := b.buildSeries(counts, samples, b.now().Unix())
	payload := datadogV2.MetricPayload{Series: series}

	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	if err != nil {
		return fmt.Errorf("datadog submit: %w", err)
	}
	return nil
}

// buildSeries is pure: no locks, clocks or network. Output is sorted by metric
// name then tags so tests and payload diffs are stable.
func (b *Backend) buildSeries(counts map[string]float64, samples map[string][]float64, nowUnix int64) []datadogV2.MetricSeries {
	series := make([]datadogV2.MetricSeries, 0, len(counts)+6*len(samples))

	for _, k := range sortedKeys(counts) {
		v := counts[k]
		if v == 0 {
			continue
		}
		name, tags := splitSeriesKey(k)
		series = append(series, countSeries(seriesNames[name], v, withTags(b.baseTags, tags...), nowUnix))
	}

	for _, k := range sortedKeys(samples) {
		s := samples[k]
		if len(s) == 0 {
			continue
		}
		name, tags := splitSeriesKey(k)
		addPercentiles(&series, seriesNames[name], withTags(b.baseTags, tags...), s, nowUnix)
	}
	return series
}

// addPercentiles appends p50/p90/p95/p99/max/samples gauges. samples is not mutated.
func addPercentiles(series *[]datadogV2.MetricSeries, prefix string, tags []string, samples []float64, nowUnix int64) {
	cp := append([]float64(nil), samples...)
	sort.Float64s(cp)

	*series = append(*series,
		gaugeSeries(prefix+".p50", percentileNearestRank(cp, 0.50), tags, nowUnix),
		gaugeSeries(prefix+".p90", percentileNearestRank(cp, 0.90), tags, nowUnix),
		gaugeSeries(prefix+".p95", percentileNearestRank(cp, 0.95), tags, nowUnix),
		gaugeSeries(prefix+".p99", percentileNearestRank(cp, 0.99), tags, nowUnix),
		gaugeSeries(prefix+".max", cp[len(cp)-1], tags, nowUnix),
		gaugeSeries(prefix+".samples", float64(len(cp)), tags, nowUnix),
	)
}

func countSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func gaugeSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

// seriesKey encodes a metric name and its labels as "name\x00k:v\x00k:v" with
// labels sorted by key. Empty label values become "unknown".
func seriesKey(name string, labels metrics.Labels) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(name)
	for _, k := range keys {
		v := strings.TrimSpace(labels[k])
		if v == "" {
			v = "unknown"
		}
		sb.WriteByte(0)
		sb.WriteString(k)
		sb.WriteByte(':')
		sb.WriteString(v)
	}
	return sb.String()
}

func splitSeriesKey(k string) (name string, tags []string) {
	parts := strings.Split(k, "\x00")
	return parts[0], parts[1:]
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func withTags(base []string, extras ...string) []string {
	out := make([]string, 0, len(base)+len(extras))
	out = append(out, base...)
	out = append(out, extras...)
	return out
}

func percentileNearestRank(s []float64, p float64) float64 {
	n := len(s)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return s[0]
	}
	if p >= 1 {
		return s[n-1]
	}
	idx := int(p*float64(n-1) + 0.5)
	if idx >= n {
		idx = n - 1
	}
	return s[idx]
}

var _ metrics.Backend = (*Backend)(nil)

// ParseTagsCSV parses comma-separated tags like "env:prod,service:proxy".
func ParseTagsCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func wrapInitErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("datadog metrics init: %w", err)
}
