package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// LocalPath returns the override file for name: "a/b.json5" -> "a/b.local.json5".
func LocalPath(name string) string {
	dir := filepath.Dir(name)
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	return filepath.Join(dir, strings.TrimSuffix(base, ext)+".local"+ext)
}

// ReadLayered reads a json5 file and merges <name>.local.<ext> over it.
// Non-zero fields in the local file win; slices are replaced, not appended.
// It returns os.ErrNotExist (wrapped) only when neither file exists.
func ReadLayered[T any](name string) (T, error) {
	var out T
	found := false

	b, err := os.ReadFile(name)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return out, fmt.Errorf("read %s: %w", name, err)
	}
	if len(b) > 0 {
		if err := json5.Unmarshal(b, &out); err != nil {
			return out, fmt.Errorf("parse %s: %w", name, err)
		}
		found = true
	} else if err == nil {
		found = true
	}

	local := LocalPath(name)
	lb, err := os.ReadFile(local)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return out, fmt.Errorf("read %s: %w", local, err)
	}
	if len(lb) > 0 {
		var override T
		if err := json5.Unmarshal(lb, &override); err != nil {
			return out, fmt.Errorf("parse %s: %w", local, err)
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
			return out, fmt.Errorf("merge %s: %w", local, err)
		}
		found = true
	}

	if !found {
		return out, fmt.Errorf("%s: %w", name, os.ErrNotExist)
	}
	return out, nil
}
