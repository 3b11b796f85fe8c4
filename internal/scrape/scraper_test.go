package scrape

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

const testList = "https://letterboxd.com/dave/list/official-top-250-narrative-feature-films/"

// TestScraperList_AllPages verifies pagination discovery, concurrent page
// fetches and list order across pages.
func TestScraperList_AllPages(t *testing.T) {
	t.Parallel()

	g := &fakeGetter{pages: map[string]string{
		testList:             listPage(1, 100, 3),
		testList + "page/2/": listPage(101, 200, 3),
		testList + "page/3/": listPage(201, 250, 3),
	}}
	s := New(g, Options{Workers: 2, Logger: zerolog.Nop()})

	films, err := s.List(context.Background(), testList)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(films) != 250 {
		t.Fatalf("want 250 films got %d", len(films))
	}
	for i, f := range films {
		if f.Position != i+1 || f.ID != int64(i+1) {
			t.Fatalf("film %d out of order: %#v", i, f)
		}
	}
	if films[149].Name != "Film 150" || films[149].URL != "https://letterboxd.com/film/film-150/" {
		t.Fatalf("unexpected film 150: %#v", films[149])
	}
	if len(g.calls) != 3 {
		t.Fatalf("want 3 fetches got %d", len(g.calls))
	}
}

// TestScraperList_MaxPages verifies the page cap.
func TestScraperList_MaxPages(t *testing.T) {
	t.Parallel()

	g := &fakeGetter{pages: map[string]string{
		testList:             listPage(1, 100, 3),
		testList + "page/2/": listPage(101, 200, 3),
	}}
	films, err := New(g, Options{MaxPages: 2}).List(context.Background(), testList)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(films) != 200 {
		t.Fatalf("want 200 films got %d", len(films))
	}
}

// TestScraperList_PageFailure verifies a failing later page fails the scrape
// and names the page.
func TestScraperList_PageFailure(t *testing.T) {
	t.Parallel()

	g := &fakeGetter{pages: map[string]string{
		testList: listPage(1, 100, 2),
	}}
	_, err := New(g, Options{}).List(context.Background(), testList)
	if err == nil || !strings.Contains(err.Error(), "page 2") {
		t.Fatalf("want page 2 error, got %v", err)
	}
}

// TestScraperList_FirstPageFailure verifies the first page error is returned as is.
func TestScraperList_FirstPageFailure(t *testing.T) {
	t.Parallel()

	_, err := New(&fakeGetter{}, Options{}).List(context.Background(), testList)
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("want 404 error, got %v", err)
	}
}

// TestFilmsFromRecords_Fallbacks covers positions without a list number,
// slug-built URLs, owner ratings and dropped records.
func TestFilmsFromRecords_Fallbacks(t *testing.T) {
	t.Parallel()

	base, _ := url.Parse(SiteURL)
	recs := []map[string]any{
		{KeyFilmID: "7", KeyName: "Seven", KeySlug: "seven", KeyOwnerRating: "9"},
		{KeyName: "no id"},
		{KeyFilmID: "8", KeyName: "Eight", KeyLink: "/film/eight/", KeyListNumber: "1,204"},
	}
	films := FilmsFromRecords(recs, 100, base)
	if len(films) != 2 {
		t.Fatalf("want 2 films got %d", len(films))
	}
	if films[0].Position != 101 || films[0].URL != "https://letterboxd.com/film/seven/" || films[0].OwnerRating != 4.5 {
		t.Fatalf("unexpected first film: %#v", films[0])
	}
	if films[1].Position != 1204 {
		t.Fatalf("want list number position 1204 got %d", films[1].Position)
	}
}

// TestDedupe verifies first-wins and renumbering.
func TestDedupe(t *testing.T) {
	t.Parallel()

	in := []Film{{ID: 1, Position: 1}, {ID: 2, Position: 2}, {ID: 1, Position: 3}, {ID: 3, Position: 4}}
	out := Dedupe(in)
	if len(out) != 3 {
		t.Fatalf("want 3 got %d", len(out))
	}
	for i, f := range out {
		if f.Position != i+1 {
			t.Fatalf("position %d: %#v", i, f)
		}
	}
	if out[2].ID != 3 {
		t.Fatalf("unexpected order: %#v", out)
	}
}

// TestDefaultListMappings_NewMarkup verifies the data-item-* fallbacks.
func TestDefaultListMappings_NewMarkup(t *testing.T) {
	t.Parallel()

	html := `<ul><li class="posteritem"><div data-film-id="42" data-item-slug="the-answer" data-item-name="The Answer (1999)" data-item-link="/film/the-answer/"></div></li></ul>`
	mf := DefaultListMappings()
	recs, err := ExtractRecordsHTML(html, mf.RecordSelector, mf.Mappings)
	if err != nil {
		t.Fatalf("ExtractRecordsHTML: %v", err)
	}
	films := FilmsFromRecords(recs, 0, nil)
	if len(films) != 1 {
		t.Fatalf("want 1 film got %d", len(films))
	}
	f := films[0]
	if f.ID != 42 || f.Slug != "the-answer" || f.Name != "The Answer (1999)" || f.URL != "/film/the-answer/" || f.Position != 1 {
		t.Fatalf("unexpected film: %#v", f)
	}
}
