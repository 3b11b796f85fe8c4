// Package dom wraps a parsed HTML document as a live page.
//
// A Page serializes every read and write behind one mutex, which plays the
// role of the browser's single event loop: two writers never interleave. After
// a write that changed the tree, every observer is notified through a
// one-slot channel, so bursts of mutations coalesce into one wake-up and a slow
// observer never blocks a writer.
//
// The page also tracks which badge categories have been inserted. The set is
// seeded from data-rank-badge markers already in the document, so a page that
// was annotated before is recognized as such.
package dom

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/afchatfield/lb-list-to-json/internal/badge"
)

// ErrPageClosed is returned by operations on a closed page.
var ErrPageClosed = errors.New("page closed")

// Page is a mutable document with a change stream.
type Page struct {
	mu      sync.Mutex
	doc     *goquery.Document
	present map[string]struct{}
	subs    map[int]chan struct{}
	nextSub int
	closed  bool
	done    chan struct{}
}

// New wraps doc. The caller must not touch doc afterwards.
func New(doc *goquery.Document) *Page {
	p := &Page{
		doc:     doc,
		present: make(map[string]struct{}),
		subs:    make(map[int]chan struct{}),
		done:    make(chan struct{}),
	}
	doc.Find("[" + badge.MarkerAttr + "]").Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr(badge.MarkerAttr); ok && v != "" {
			p.present[v] = struct{}{}
		}
	})
	return p
}

// Parse reads an HTML document into a new Page.
func Parse(r io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return New(doc), nil
}

// ParseString is Parse for in-memory HTML.
func ParseString(s string) (*Page, error) {
	return Parse(strings.NewReader(s))
}

// Tx is the view a Mutate callback gets of the page.
type Tx struct {
	Doc   *goquery.Document
	page  *Page
	dirty bool
}

// Claim marks key as inserted. It returns false if key was already present,
// in which case the caller must not insert.
func (tx *Tx) Claim(key string) bool {
	if _, ok := tx.page.present[key]; ok {
		return false
	}
	tx.page.present[key] = struct{}{}
	return true
}

// Claimed reports whether key is present.
func (tx *Tx) Claimed(key string) bool {
	_, ok := tx.page.present[key]
	return ok
}

// Append appends n as the last child of every node in sel and marks the
// transaction as changing the tree.
func (tx *Tx) Append(sel *goquery.Selection, n *html.Node) {
	if sel.Length() == 0 || n == nil {
		return
	}
	sel.AppendNodes(n)
	tx.dirty = true
}

// Touch marks the transaction as changing the tree without going through
// Append.
func (tx *Tx) Touch() { tx.dirty = true }

// Mutate runs fn with exclusive access. Observers are notified afterwards if
// fn changed the tree, even when fn returns an error.
func (p *Page) Mutate(fn func(tx *Tx) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPageClosed
	}

	tx := &Tx{Doc: p.doc, page: p}
	err := fn(tx)
	if tx.dirty {
		p.notifyLocked()
	}
	return err
}

// Read runs fn with exclusive access and no change notification.
func (p *Page) Read(fn func(doc *goquery.Document)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPageClosed
	}
	fn(p.doc)
	return nil
}

func (p *Page) notifyLocked() {
	for _, ch := range p.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Observe subscribes to change notifications. The returned stop function
// disconnects the observer and is safe to call more than once. Observing a
// closed page returns a nil channel; callers should also select on Done.
func (p *Page) Observe() (<-chan struct{}, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, func() {}
	}

	id := p.nextSub
	p.nextSub++
	ch := make(chan struct{}, 1)
	p.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

// Observers returns the number of connected observers.
func (p *Page) Observers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// Present reports whether a badge for key has been inserted.
func (p *Page) Present(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.present[key]
	return ok
}

// Done is closed when the page is closed.
func (p *Page) Done() <-chan struct{} { return p.done }

// Close unloads the page. Pending observers see Done close.
func (p *Page) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.subs = make(map[int]chan struct{})
	close(p.done)
}

// HTML serializes the current document.
func (p *Page) HTML() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", ErrPageClosed
	}
	out, err := goquery.OuterHtml(p.doc.Selection)
	if err != nil {
		return "", fmt.Errorf("render page: %w", err)
	}
	return out, nil
}
