package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velomail/pluginkit/pkg/manifest"
)

func TestHTTPSourceFetch(t *testing.T) {
	entries := []RegistryEntry{
		remoteEntry("calendar-sync", "1.0.0"),
		{Manifest: manifest.Manifest{ID: "broken"}}, // fails validation, must be dropped
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		require.NoError(t, json.NewEncoder(w).Encode(entries))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, 5*time.Second)
	got, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "calendar-sync", got[0].Manifest.ID)
	assert.Equal(t, srv.URL, got[0].Source)
}

func TestHTTPSourceFetchBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, 5*time.Second)
	_, err := src.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestHTTPSourceFetchBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, 5*time.Second)
	_, err := src.Fetch(context.Background())
	require.Error(t, err)
}

func TestHTTPSourceTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	src := NewHTTPSource(srv.URL, 50*time.Millisecond)
	_, err := src.Fetch(context.Background())
	require.Error(t, err)
}
