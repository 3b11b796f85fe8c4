package dom

import (
	"errors"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func li(text string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: "li", DataAtom: atom.Li}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
}

// TestNew_SeedsPresenceFromMarkers verifies a previously annotated document
// is recognized.
func TestNew_SeedsPresenceFromMarkers(t *testing.T) {
	t.Parallel()

	p, err := ParseString(`<ul><li><a data-rank-badge="top2000">1</a></li></ul>`)
	require.NoError(t, err)
	assert.True(t, p.Present("top2000"))
	assert.False(t, p.Present("korea_100"))
}

func TestMutate_NotifiesOnlyWhenDirty(t *testing.T) {
	t.Parallel()

	p, err := ParseString(`<ul class="stats"></ul>`)
	require.NoError(t, err)
	ch, stop := p.Observe()
	defer stop()

	require.NoError(t, p.Mutate(func(tx *Tx) error { return nil }))
	select {
	case <-ch:
		t.Fatal("clean mutation must not notify")
	default:
	}

	require.NoError(t, p.Mutate(func(tx *Tx) error {
		tx.Append(tx.Doc.Find(".stats"), li("a"))
		return nil
	}))
	select {
	case <-ch:
	default:
		t.Fatal("expected a notification")
	}
}

// TestMutate_Coalesces verifies a burst of writes produces a single pending
// wake-up and never blocks the writer.
func TestMutate_Coalesces(t *testing.T) {
	t.Parallel()

	p, err := ParseString(`<ul class="stats"></ul>`)
	require.NoError(t, err)
	ch, stop := p.Observe()
	defer stop()

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Mutate(func(tx *Tx) error {
			tx.Append(tx.Doc.Find(".stats"), li("x"))
			return nil
		}))
	}
	<-ch
	select {
	case <-ch:
		t.Fatal("notifications should coalesce")
	default:
	}

	var n int
	require.NoError(t, p.Read(func(doc *goquery.Document) { n = doc.Find(".stats li").Length() }))
	assert.Equal(t, 5, n)
}

func TestMutate_ErrorStillNotifiesWhenDirty(t *testing.T) {
	t.Parallel()

	p, err := ParseString(`<ul class="stats"></ul>`)
	require.NoError(t, err)
	ch, stop := p.Observe()
	defer stop()

	boom := errors.New("boom")
	err = p.Mutate(func(tx *Tx) error {
		tx.Touch()
		return boom
	})
	require.ErrorIs(t, err, boom)
	<-ch
}

func TestClaim(t *testing.T) {
	t.Parallel()

	p, err := ParseString(`<p></p>`)
	require.NoError(t, err)

	var first, second bool
	require.NoError(t, p.Mutate(func(tx *Tx) error {
		first = tx.Claim("japan_100")
		second = tx.Claim("japan_100")
		assert.True(t, tx.Claimed("japan_100"))
		return nil
	}))
	assert.True(t, first)
	assert.False(t, second)
	assert.True(t, p.Present("japan_100"))
}

func TestObserve_StopDisconnects(t *testing.T) {
	t.Parallel()

	p, err := ParseString(`<p></p>`)
	require.NoError(t, err)

	_, stop1 := p.Observe()
	_, stop2 := p.Observe()
	assert.Equal(t, 2, p.Observers())
	stop1()
	stop1()
	assert.Equal(t, 1, p.Observers())
	stop2()
	assert.Equal(t, 0, p.Observers())
}

func TestClose(t *testing.T) {
	t.Parallel()

	p, err := ParseString(`<p>x</p>`)
	require.NoError(t, err)
	_, stop := p.Observe()
	defer stop()

	p.Close()
	p.Close()

	select {
	case <-p.Done():
	default:
		t.Fatal("Done should be closed")
	}
	assert.Equal(t, 0, p.Observers())
	assert.ErrorIs(t, p.Mutate(func(*Tx) error { return nil }), ErrPageClosed)
	assert.ErrorIs(t, p.Read(func(*goquery.Document) {}), ErrPageClosed)
	_, err = p.HTML()
	assert.ErrorIs(t, err, ErrPageClosed)

	ch, stop2 := p.Observe()
	assert.Nil(t, ch)
	stop2()
}

func TestHTML(t *testing.T) {
	t.Parallel()

	p, err := ParseString(`<ul class="stats"></ul>`)
	require.NoError(t, err)
	require.NoError(t, p.Mutate(func(tx *Tx) error {
		tx.Append(tx.Doc.Find(".stats"), li("hi"))
		return nil
	}))
	out, err := p.HTML()
	require.NoError(t, err)
	assert.Contains(t, out, `<ul class="stats"><li>hi</li></ul>`)
}
