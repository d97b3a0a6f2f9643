package yext

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/locator-cli/internal/cache"
	"github.com/sells-group/locator-cli/internal/grid"
)

const searchBody = `{"response":{"entities":[{"id":"store-1"},{"id":"store-2"}]}}`

func TestSearch_BuildsProviderQuery(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		_, _ = w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	c := New("test-key", WithBaseURL(srv.URL), WithLocale("en"))
	defer c.Close()

	entities := c.Search(context.Background(), grid.Point{Lat: 40.0150, Lng: -105.2705}, 50)
	require.Len(t, entities, 2)

	assert.Equal(t, "test-key", gotQuery["api_key"])
	assert.Equal(t, "en", gotQuery["locale"])
	assert.Equal(t, "", gotQuery["q"])
	assert.Equal(t, "40.015,-105.2705", gotQuery["location"])
	// Radius is miles converted to meters, truncated to an integer.
	assert.Equal(t, fmt.Sprintf("%d", int(50*metersPerMile)), gotQuery["locationRadius"])
}

func TestSearch_EmptyOnNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New("bad-key", WithBaseURL(srv.URL))
	defer c.Close()

	entities := c.Search(context.Background(), grid.Point{Lat: 40, Lng: -105}, 50)
	assert.Empty(t, entities)
}

func TestSearch_EmptyOnMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response": not json`))
	}))
	defer srv.Close()

	c := New("k", WithBaseURL(srv.URL))
	defer c.Close()

	entities := c.Search(context.Background(), grid.Point{Lat: 40, Lng: -105}, 50)
	assert.Empty(t, entities)
}

func TestSearch_EmptyOnNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := New("k", WithBaseURL(srv.URL))
	defer c.Close()

	entities := c.Search(context.Background(), grid.Point{Lat: 40, Lng: -105}, 50)
	assert.Empty(t, entities)
}

func TestSearch_CacheHitSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	rc := cache.NewResponseCache(t.TempDir(), time.Hour)
	c := New("k", WithBaseURL(srv.URL), WithResponseCache(rc, false))
	defer c.Close()

	pt := grid.Point{Lat: 40, Lng: -105}
	first := c.Search(context.Background(), pt, 50)
	second := c.Search(context.Background(), pt, 50)

	assert.Len(t, first, 2)
	assert.Len(t, second, 2)
	assert.Equal(t, int32(1), calls.Load(), "second search must come from cache")
}

func TestSearch_ForceRefreshBypassesCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	rc := cache.NewResponseCache(t.TempDir(), time.Hour)
	c := New("k", WithBaseURL(srv.URL), WithResponseCache(rc, true))
	defer c.Close()

	pt := grid.Point{Lat: 40, Lng: -105}
	c.Search(context.Background(), pt, 50)
	c.Search(context.Background(), pt, 50)

	assert.Equal(t, int32(2), calls.Load())
}

func TestParseEntities_EmptyEntityList(t *testing.T) {
	entities, err := parseEntities([]byte(`{"response":{"entities":[]}}`))
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestParseEntities_PreservesRawObjects(t *testing.T) {
	entities, err := parseEntities([]byte(searchBody))
	require.NoError(t, err)
	require.Len(t, entities, 2)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(entities[0], &obj))
	assert.Equal(t, "store-1", obj["id"])
}
