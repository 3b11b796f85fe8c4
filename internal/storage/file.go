package storage

import (
	"fmt"
	"io"
	"os"
)

// OpenOutput returns the writer file sinks write to: cfg.Out (or stdout) for
// "" and "-", a created file otherwise. The returned closer is a no-op for
// writers the sink does not own.
func OpenOutput(cfg Config) (io.Writer, func() error, error) {
	if cfg.DSN == "" || cfg.DSN == "-" {
		w := cfg.Out
		if w == nil {
			w = os.Stdout
		}
		return w, func() error { return nil }, nil
	}
	f, err := os.Create(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", cfg.DSN, err)
	}
	return f, f.Close, nil
}
