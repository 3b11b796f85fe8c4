// Package mount inserts a node into a page once a container is ready.
//
// A Mount watches a dom.Page change stream and, the first time the container
// selector matches and the readiness predicate holds, claims its key, appends
// its node and disconnects. It never inserts twice and never re-arms.
package mount

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/afchatfield/lb-list-to-json/internal/dom"
	"github.com/afchatfield/lb-list-to-json/internal/metrics"
)

// ErrTimeout is returned when the container is not ready within Timeout.
var ErrTimeout = errors.New("mount: container not ready before timeout")

// Outcome is how a successful Run ended.
type Outcome string

const (
	// OutcomeMounted means the node was appended.
	OutcomeMounted Outcome = "mounted"
	// OutcomeDuplicate means another insertion already claimed the key.
	OutcomeDuplicate Outcome = "duplicate"
)

// Predicate decides whether a matched container is ready for insertion. It
// receives the first match and is called under the page lock.
type Predicate func(container *goquery.Selection) bool

// Exists is ready as soon as the container is in the document.
func Exists() Predicate {
	return func(s *goquery.Selection) bool { return s.Length() > 0 }
}

// MinChildren is ready once the container has at least n element children.
// Letterboxd fills the statistics list asynchronously; MinChildren(2) waits
// for that population to have started.
func MinChildren(n int) Predicate {
	return func(s *goquery.Selection) bool {
		return s.Length() > 0 && s.Children().Length() >= n
	}
}

// Mount is one pending insertion.
type Mount struct {
	Page      *dom.Page
	Container string
	// Ready defaults to Exists.
	Ready Predicate
	// Key identifies the insertion in the page's presence set.
	Key  string
	Node *html.Node
	// Timeout bounds the wait. 0 waits until the page closes or ctx ends.
	Timeout time.Duration
}

// Run blocks until the node is inserted, the key turns out to be taken, or
// the wait ends. The page is checked once immediately and then after every
// change notification.
func (m *Mount) Run(ctx context.Context) (Outcome, error) {
	if m.Page == nil || m.Node == nil || m.Container == "" || m.Key == "" {
		return "", errors.New("mount: page, container, key and node are required")
	}
	ready := m.Ready
	if ready == nil {
		ready = Exists()
	}

	// Subscribe before the first check so no change falls between them.
	changes, disconnect := m.Page.Observe()
	defer disconnect()

	var timeout <-chan time.Time
	if m.Timeout > 0 {
		t := time.NewTimer(m.Timeout)
		defer t.Stop()
		timeout = t.C
	}

	start := time.Now()
	observe := func(outcome string) {
		metrics.ObserveHistogram(metrics.MountWaitDuration, time.Since(start).Seconds(), metrics.Labels{"outcome": outcome})
	}

	for {
		outcome, done, err := m.try(ready)
		if err != nil {
			observe("error")
			return "", err
		}
		if done {
			observe(string(outcome))
			return outcome, nil
		}

		select {
		case <-changes:
		case <-m.Page.Done():
			observe("closed")
			return "", dom.ErrPageClosed
		case <-ctx.Done():
			observe("cancelled")
			return "", ctx.Err()
		case <-timeout:
			observe("timeout")
			return "", fmt.Errorf("%w: %s after %s", ErrTimeout, m.Container, m.Timeout)
		}
	}
}

func (m *Mount) try(ready Predicate) (Outcome, bool, error) {
	var (
		outcome Outcome
		done    bool
	)
	err := m.Page.Mutate(func(tx *dom.Tx) error {
		container := tx.Doc.Find(m.Container).First()
		if container.Length() == 0 || !ready(container) {
			return nil
		}
		done = true
		if !tx.Claim(m.Key) {
			outcome = OutcomeDuplicate
			return nil
		}
		tx.Append(container, m.Node)
		outcome = OutcomeMounted
		return nil
	})
	return outcome, done, err
}
