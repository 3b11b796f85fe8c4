package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_Stdin verifies stdin input is read and returned as string.
//
// This is the most common mode when piping HTML from another program.
func TestLoad_Stdin(t *testing.T) {
	t.Parallel()

	c := New(Options{Timeout: time.Second})
	html, err := c.Load(context.Background(), Input{
		Stdin: bytes.NewBufferString("<p>x</p>"),
	})
	require.NoError(t, err)
	assert.Equal(t, "<p>x</p>", html)

	html, err = c.Load(context.Background(), Input{Source: "-"})
	require.NoError(t, err)
	assert.Empty(t, html)
}

// TestGet_Non2xx verifies we include status code and a body snippet.
func TestGet_Non2xx(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	c := New(Options{Timeout: 2 * time.Second})
	_, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
	assert.Equal(t, "nope", se.Body)
	assert.Contains(t, err.Error(), "http status 403")
}

// TestGet_SnippetIsCapped keeps huge error pages out of logs.
func TestGet_SnippetIsCapped(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(strings.Repeat("x", 10000)))
	}))
	t.Cleanup(srv.Close)

	_, err := New(Options{}).Get(context.Background(), srv.URL)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Len(t, se.Body, snippetLimit)
}

func TestGet_SendsUserAgent(t *testing.T) {
	t.Parallel()

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`[{"id":1}]`))
	}))
	t.Cleanup(srv.Close)

	b, err := New(Options{UserAgent: "rank-test"}).Get(context.Background(), srv.URL+"/data.json")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, string(b))
	assert.Equal(t, "rank-test", gotUA)
}

// TestGet_LocalFile covers plain paths and file:// URLs.
func TestGet_LocalFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "top.json")
	require.NoError(t, os.WriteFile(path, []byte(`[10,20]`), 0o644))

	c := New(Options{})
	b, err := c.Get(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "[10,20]", string(b))

	b, err = c.Get(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, "[10,20]", string(b))

	_, err = c.Get(context.Background(), filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestGet_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	_, err := New(Options{Timeout: 50 * time.Millisecond}).Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout after")
}
