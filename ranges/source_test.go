package ranges

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "ranges.txt")
	require.NoError(t, os.WriteFile(p, []byte("0..10 a\n"), 0o644))

	content, err := Load(context.Background(), http.DefaultClient, p)
	require.NoError(t, err)
	assert.Equal(t, "0..10 a\n", content)
}

func TestLoadURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ranges.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"0..10": "a"}`))
	}))
	defer srv.Close()

	content, err := Load(context.Background(), srv.Client(), srv.URL+"/ranges.json")
	require.NoError(t, err)
	assert.Equal(t, `{"0..10": "a"}`, content)

	_, err = Load(context.Background(), srv.Client(), srv.URL+"/missing")
	assert.Error(t, err)
}

func TestFetchTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("0..10 a\n"))
	}))
	defer srv.Close()

	_, err := fetch(context.Background(), srv.Client(), srv.URL, 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 7 bytes")

	content, err := fetch(context.Background(), srv.Client(), srv.URL, 8)
	require.NoError(t, err)
	assert.Equal(t, "0..10 a\n", content)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(context.Background(), http.DefaultClient, filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}
