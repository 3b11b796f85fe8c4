// Package fetch loads pages and datasets from URLs, local files or stdin.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/afchatfield/lb-list-to-json/internal/metrics"
)

// DefaultUserAgent is sent on every request unless Options.UserAgent is set.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 rankbadge/1.0"

// snippetLimit caps how much of a failing response body is kept for errors.
const snippetLimit = 4096

// Input describes where a document should come from.
type Input struct {
	// Source is an http(s) URL, a file:// URL, or a local path. Empty or "-"
	// means Stdin.
	Source string

	// Stdin is read when Source is empty or "-". If nil, stdin reads as empty.
	Stdin io.Reader
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Body)
}

// Options configures a Client.
type Options struct {
	// HTTPClient is wrapped by resty. Nil means a fresh client.
	HTTPClient *http.Client
	Timeout    time.Duration
	UserAgent  string
}

// Client fetches remote or local documents with a consistent timeout policy.
// It is safe for concurrent use.
type Client struct {
	rc      *resty.Client
	timeout time.Duration
}

// New creates a Client. A zero Timeout means 20 seconds.
func New(opts Options) *Client {
	rc := resty.New()
	if opts.HTTPClient != nil {
		rc = resty.NewWithClient(opts.HTTPClient)
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	rc.SetHeader("User-Agent", ua).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.5")

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{rc: rc, timeout: timeout}
}

// Load returns the document for input as a string.
func (c *Client) Load(ctx context.Context, input Input) (string, error) {
	src := strings.TrimSpace(input.Source)
	if src == "" || src == "-" {
		if input.Stdin == nil {
			return "", nil
		}
		b, err := io.ReadAll(input.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := c.Get(ctx, src)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Get returns the raw bytes of src. http(s) sources are fetched with GET;
// anything else is read from the local filesystem.
//
// On non-2xx responses Get returns a *StatusError holding the status code and
// up to 4KB of the response body.
func (c *Client) Get(ctx context.Context, src string) ([]byte, error) {
	if path, ok := localPath(src); ok {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return b, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.rc.R().SetContext(ctx).Get(src)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		metrics.IncCounter(metrics.HTTPErrorsTotal, 1, metrics.Labels{"status": "transport"})
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("http get %s: timeout after %s: %w", src, c.timeout, err)
		}
		return nil, fmt.Errorf("http get %s: %w", src, err)
	}

	status := strconv.Itoa(resp.StatusCode())
	labels := metrics.Labels{"status": status}
	metrics.IncCounter(metrics.HTTPRequestsTotal, 1, labels)
	metrics.ObserveHistogram(metrics.HTTPRequestDuration, elapsed, labels)
	metrics.ObserveHistogram(metrics.HTTPDownloadBytes, float64(len(resp.Body())), labels)

	if !resp.IsSuccess() {
		metrics.IncCounter(metrics.HTTPErrorsTotal, 1, labels)
		body := resp.Body()
		if len(body) > snippetLimit {
			body = body[:snippetLimit]
		}
		return nil, &StatusError{
			URL:        src,
			StatusCode: resp.StatusCode(),
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return resp.Body(), nil
}

// localPath reports whether src refers to the filesystem and returns the path.
func localPath(src string) (string, bool) {
	u, err := url.Parse(src)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// len==1 covers Windows drive letters such as C:\rankings.json.
		return src, true
	}
	switch u.Scheme {
	case "http", "https":
		return "", false
	case "file":
		return u.Path, true
	default:
		return src, true
	}
}
