package scrape

import (
	"bytes"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestPageURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"https://letterboxd.com/u/list/x", 1, "https://letterboxd.com/u/list/x/"},
		{"https://letterboxd.com/u/list/x/", 2, "https://letterboxd.com/u/list/x/page/2/"},
		{"https://letterboxd.com/u/list/x/page/4/", 3, "https://letterboxd.com/u/list/x/page/3/"},
		{"https://letterboxd.com/u/list/x/page/4", 1, "https://letterboxd.com/u/list/x/"},
	}
	for _, c := range cases {
		if got := PageURL(c.in, c.n); got != c.want {
			t.Fatalf("PageURL(%q,%d)=%q want %q", c.in, c.n, got, c.want)
		}
	}
}

func TestLastPage(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listPage(1, 2, 20)))
	if err != nil {
		t.Fatal(err)
	}
	if got := LastPage(doc); got != 20 {
		t.Fatalf("want 20 got %d", got)
	}

	single, _ := goquery.NewDocumentFromReader(strings.NewReader(listPage(1, 2, 1)))
	if got := LastPage(single); got != 1 {
		t.Fatalf("want 1 got %d", got)
	}
}

func TestPrintPageURLs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := PrintPageURLs(&buf, "https://letterboxd.com/u/list/x/", listPage(1, 1, 3)); err != nil {
		t.Fatal(err)
	}
	want := "https://letterboxd.com/u/list/x/\nhttps://letterboxd.com/u/list/x/page/2/\nhttps://letterboxd.com/u/list/x/page/3/\n"
	if buf.String() != want {
		t.Fatalf("want %q got %q", want, buf.String())
	}
}

func TestParseCountAny(t *testing.T) {
	t.Parallel()

	if n, ok, err := ParseCountAny("1,096 films"); err != nil || !ok || n != 1096 {
		t.Fatalf("got %d %v %v", n, ok, err)
	}
	if _, ok, _ := ParseCountAny("none"); ok {
		t.Fatal("want ok=false without digits")
	}
	if _, ok, _ := ParseCountAny(12); ok {
		t.Fatal("want ok=false for non-string")
	}
}
