package scrape

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMappingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "good.json5")
	// json5 allows comments and trailing commas.
	src := `{
  // saved watchlist pages
  record_selector: "li.poster-container",
  mappings: [
    {selector: "[data-film-id]", extract: "attr", attr: "data-film-id", json_path: "film_id"},
  ],
}`
	if err := os.WriteFile(good, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}
	mf, err := LoadMappingFile(good)
	if err != nil {
		t.Fatalf("LoadMappingFile: %v", err)
	}
	if mf.RecordSelector != "li.poster-container" || len(mf.Mappings) != 1 || mf.Mappings[0].Attr != "data-film-id" {
		t.Fatalf("unexpected mapping file: %#v", mf)
	}

	cases := map[string]string{
		"empty.json5":   `{mappings: []}`,
		"nopath.json5":  `{mappings: [{selector: "p", extract: "text"}]}`,
		"badre.json5":   `{mappings: [{selector: "p", extract: "text", json_path: "p", match: "("}]}`,
		"invalid.json5": `{mappings: [`,
	}
	for name, body := range cases {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadMappingFile(p); err == nil {
			t.Fatalf("%s: want error", name)
		}
	}

	_, err = LoadMappingFile(filepath.Join(dir, "missing.json5"))
	if err == nil || !strings.Contains(err.Error(), "read mappings file") {
		t.Fatalf("want read error got %v", err)
	}
}
