package mount

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/afchatfield/lb-list-to-json/internal/badge"
	"github.com/afchatfield/lb-list-to-json/internal/dom"
)

const stats = ".production-statistic-list"

func newBadge(t *testing.T, cat string) *html.Node {
	t.Helper()
	n, err := badge.Build(3, cat, badge.Display{ListURLTemplate: "https://letterboxd.com/x/list/y/page/"}, badge.FlagIcon)
	require.NoError(t, err)
	return n
}

func li() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "li", DataAtom: atom.Li}
}

func countBadges(t *testing.T, p *dom.Page, cat string) int {
	t.Helper()
	var n int
	require.NoError(t, p.Read(func(doc *goquery.Document) {
		n = doc.Find(`[data-rank-badge="` + cat + `"]`).Length()
	}))
	return n
}

type result struct {
	outcome Outcome
	err     error
}

func runAsync(ctx context.Context, m *Mount) <-chan result {
	out := make(chan result, 1)
	go func() {
		o, err := m.Run(ctx)
		out <- result{o, err}
	}()
	return out
}

func TestRun_ReadyImmediately(t *testing.T) {
	t.Parallel()

	p, err := dom.ParseString(`<ul class="production-statistic-list"><li>a</li><li>b</li></ul>`)
	require.NoError(t, err)

	m := &Mount{Page: p, Container: stats, Ready: MinChildren(2), Key: "top2000", Node: newBadge(t, "top2000")}
	outcome, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeMounted, outcome)
	assert.Equal(t, 1, countBadges(t, p, "top2000"))
	assert.Equal(t, 0, p.Observers())
}

// TestRun_WaitsForAsyncPopulation covers the container appearing empty, then
// being filled, then mutating again after the insertion.
func TestRun_WaitsForAsyncPopulation(t *testing.T) {
	t.Parallel()

	p, err := dom.ParseString(`<section id="stats"></section>`)
	require.NoError(t, err)

	m := &Mount{Page: p, Container: stats, Ready: MinChildren(2), Key: "korea_100", Node: newBadge(t, "korea_100"), Timeout: 5 * time.Second}
	done := runAsync(context.Background(), m)

	require.Eventually(t, func() bool { return p.Observers() == 1 }, time.Second, time.Millisecond)

	// Container appears with a single child: not ready yet.
	require.NoError(t, p.Mutate(func(tx *dom.Tx) error {
		tx.Doc.Find("#stats").AppendHtml(`<ul class="production-statistic-list"><li>watched</li></ul>`)
		tx.Touch()
		return nil
	}))
	select {
	case r := <-done:
		t.Fatalf("mounted too early: %+v", r)
	case <-time.After(20 * time.Millisecond):
	}
	assert.Equal(t, 0, countBadges(t, p, "korea_100"))

	require.NoError(t, p.Mutate(func(tx *dom.Tx) error {
		tx.Append(tx.Doc.Find(stats), li())
		return nil
	}))

	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, OutcomeMounted, r.outcome)

	for i := 0; i < 3; i++ {
		require.NoError(t, p.Mutate(func(tx *dom.Tx) error {
			tx.Append(tx.Doc.Find(stats), li())
			return nil
		}))
	}
	assert.Equal(t, 1, countBadges(t, p, "korea_100"))
	assert.Equal(t, 0, p.Observers())
}

// TestRun_SameKeyInsertsOnce races two mounts for one category.
func TestRun_SameKeyInsertsOnce(t *testing.T) {
	t.Parallel()

	p, err := dom.ParseString(`<div id="root"></div>`)
	require.NoError(t, err)

	a := runAsync(context.Background(), &Mount{Page: p, Container: stats, Key: "top2000", Node: newBadge(t, "top2000")})
	b := runAsync(context.Background(), &Mount{Page: p, Container: stats, Key: "top2000", Node: newBadge(t, "top2000")})
	require.Eventually(t, func() bool { return p.Observers() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, p.Mutate(func(tx *dom.Tx) error {
		tx.Doc.Find("#root").AppendHtml(`<ul class="production-statistic-list"></ul>`)
		tx.Touch()
		return nil
	}))

	ra, rb := <-a, <-b
	require.NoError(t, ra.err)
	require.NoError(t, rb.err)
	assert.ElementsMatch(t, []Outcome{OutcomeMounted, OutcomeDuplicate}, []Outcome{ra.outcome, rb.outcome})
	assert.Equal(t, 1, countBadges(t, p, "top2000"))
}

func TestRun_PreviouslyAnnotatedPage(t *testing.T) {
	t.Parallel()

	p, err := dom.ParseString(`<ul class="production-statistic-list"><li><a data-rank-badge="top2000"></a></li></ul>`)
	require.NoError(t, err)

	outcome, err := (&Mount{Page: p, Container: stats, Key: "top2000", Node: newBadge(t, "top2000")}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Equal(t, 1, countBadges(t, p, "top2000"))
}

func TestRun_Terminations(t *testing.T) {
	t.Parallel()

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()
		p, err := dom.ParseString(`<p></p>`)
		require.NoError(t, err)
		_, err = (&Mount{Page: p, Container: stats, Key: "k", Node: newBadge(t, "k"), Timeout: 20 * time.Millisecond}).Run(context.Background())
		require.ErrorIs(t, err, ErrTimeout)
		assert.Equal(t, 0, p.Observers())
	})

	t.Run("cancel", func(t *testing.T) {
		t.Parallel()
		p, err := dom.ParseString(`<p></p>`)
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		done := runAsync(ctx, &Mount{Page: p, Container: stats, Key: "k", Node: newBadge(t, "k")})
		require.Eventually(t, func() bool { return p.Observers() == 1 }, time.Second, time.Millisecond)
		cancel()
		r := <-done
		require.True(t, errors.Is(r.err, context.Canceled))
	})

	t.Run("page_closed", func(t *testing.T) {
		t.Parallel()
		p, err := dom.ParseString(`<p></p>`)
		require.NoError(t, err)
		done := runAsync(context.Background(), &Mount{Page: p, Container: stats, Key: "k", Node: newBadge(t, "k")})
		require.Eventually(t, func() bool { return p.Observers() == 1 }, time.Second, time.Millisecond)
		p.Close()
		r := <-done
		require.ErrorIs(t, r.err, dom.ErrPageClosed)
	})

	t.Run("invalid", func(t *testing.T) {
		t.Parallel()
		_, err := (&Mount{}).Run(context.Background())
		require.Error(t, err)
	})
}

func TestPredicates(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<ul id="a"><li></li><li></li></ul><ul id="b"></ul>`))
	require.NoError(t, err)

	assert.True(t, Exists()(doc.Find("#b")))
	assert.False(t, Exists()(doc.Find("#c")))
	assert.True(t, MinChildren(2)(doc.Find("#a")))
	assert.False(t, MinChildren(2)(doc.Find("#b")))
	assert.False(t, MinChildren(0)(doc.Find("#c")))
}
