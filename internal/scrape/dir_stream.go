package scrape

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// htmlFiles lists regular files in dir sorted by name.
func htmlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// StreamFromDir streams a single JSON array to w with the records extracted
// from every file in dir, each tagged with "source_file".
//
//   - files are visited in filename order
//   - unreadable or unparseable files are skipped
//   - record mode may emit many objects per file
func StreamFromDir(w io.Writer, dir string, mf *MappingFile, enc *json.Encoder) error {
	names, err := htmlFiles(dir)
	if err != nil {
		return err
	}

	if _, err := io.WriteString(w, "["); err != nil {
		return fmt.Errorf("write [: %w", err)
	}

	first := true
	emit := func(obj map[string]any, source string) error {
		if len(obj) == 0 {
			return nil
		}
		if !first {
			if _, err := io.WriteString(w, ","); err != nil {
				return fmt.Errorf("write comma: %w", err)
			}
		}
		first = false
		obj["source_file"] = source
		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		return nil
	}

	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		var recs []map[string]any
		if strings.TrimSpace(mf.RecordSelector) != "" {
			recs, err = ExtractRecordsHTML(string(b), mf.RecordSelector, mf.Mappings)
		} else {
			var obj map[string]any
			if obj, err = ExtractOneHTML(string(b), mf.Mappings); err == nil {
				recs = []map[string]any{obj}
			}
		}
		if err != nil {
			continue
		}
		for _, r := range recs {
			if err := emit(r, name); err != nil {
				return err
			}
		}
	}

	if _, err := io.WriteString(w, "]"); err != nil {
		return fmt.Errorf("write ]: %w", err)
	}
	return nil
}

// FilmsFromDir reads saved list pages from dir. Files are taken in filename
// order as consecutive pages (page-001.html, page-002.html, ...), and the
// result is deduplicated like a live scrape.
func FilmsFromDir(dir string, mf *MappingFile) ([]Film, error) {
	if mf == nil {
		mf = DefaultListMappings()
	}
	names, err := htmlFiles(dir)
	if err != nil {
		return nil, err
	}
	s := &Scraper{opts: Options{Mappings: mf}}
	base := siteBase("")

	var all []Film
	for i, name := range names {
		doc, ok := readDoc(filepath.Join(dir, name))
		if !ok {
			continue
		}
		all = append(all, s.films(doc, i*PageSize, base)...)
	}
	return Dedupe(all), nil
}

func readDoc(path string) (*goquery.Document, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(b))
	if err != nil {
		return nil, false
	}
	return doc, true
}
