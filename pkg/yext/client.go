// Package yext is a client for the provider's location-search API. One Search
// call covers one grid point: an authenticated GET with an empty free-text
// query, a location pair, and a radius in meters. The provider returns every
// matching entity within the radius up to its own internal cap; no server-side
// result-count limit is honored.
package yext

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/locator-cli/internal/cache"
	"github.com/sells-group/locator-cli/internal/grid"
)

const (
	defaultBaseURL    = "https://liveapi.yext.com/v2/accounts/me/search"
	defaultAPIVersion = "20220101"
	defaultLocale     = "en"

	// metersPerMile converts the radius parameter; the provider expects an
	// integer meter value, truncated.
	metersPerMile = 1609.34
)

// RawEntity is one provider result object, schema-defined by the provider.
type RawEntity = json.RawMessage

// Client performs location searches against the provider API.
type Client interface {
	// Search returns the raw entities around one grid point. It returns an
	// empty slice on any failure; a dead grid point never aborts a scan.
	Search(ctx context.Context, pt grid.Point, radiusMiles float64) []RawEntity
	// Close releases the client's connections.
	Close()
}

// Getter is the shared HTTP retry helper contract consumed by this client.
type Getter interface {
	Get(ctx context.Context, rawURL string, headers http.Header) (*http.Response, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithLocale overrides the default locale.
func WithLocale(locale string) Option {
	return func(c *httpClient) { c.locale = locale }
}

// WithGetter overrides the HTTP retry helper.
func WithGetter(g Getter) Option {
	return func(c *httpClient) { c.getter = g }
}

// WithResponseCache enables the response-body TTL cache. forceRefresh bypasses
// cache reads unconditionally while still writing fresh responses back.
func WithResponseCache(rc *cache.Cache[json.RawMessage], forceRefresh bool) Option {
	return func(c *httpClient) {
		c.respCache = rc
		c.forceRefresh = forceRefresh
	}
}

type httpClient struct {
	apiKey       string
	apiVersion   string
	locale       string
	baseURL      string
	getter       Getter
	respCache    *cache.Cache[json.RawMessage]
	forceRefresh bool
	closeFn      func()
	log          *zap.Logger
}

type searchResponse struct {
	Response struct {
		Entities []json.RawMessage `json:"entities"`
	} `json:"response"`
}

// New creates a provider search client. When no Getter is supplied a plain
// http.Client with a 30s timeout is used.
func New(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:     apiKey,
		apiVersion: defaultAPIVersion,
		locale:     defaultLocale,
		baseURL:    defaultBaseURL,
		log:        zap.L().With(zap.String("component", "yext")),
	}
	for _, o := range opts {
		o(c)
	}
	if c.getter == nil {
		hc := &http.Client{
			Timeout:   30 * time.Second,
			Transport: &http.Transport{MaxIdleConnsPerHost: 10},
		}
		c.getter = plainGetter{hc}
		c.closeFn = hc.CloseIdleConnections
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, pt grid.Point, radiusMiles float64) []RawEntity {
	u := c.searchURL(pt, radiusMiles)

	if c.respCache != nil {
		if body, ok := c.respCache.Get(u, c.forceRefresh); ok {
			entities, err := parseEntities(body)
			if err == nil {
				return entities
			}
			c.log.Warn("cached response unparsable, refetching",
				zap.Float64("lat", pt.Lat), zap.Float64("lng", pt.Lng), zap.Error(err))
		}
	}

	resp, err := c.getter.Get(ctx, u, nil)
	if err != nil {
		c.log.Warn("point search failed",
			zap.Float64("lat", pt.Lat), zap.Float64("lng", pt.Lng), zap.Error(err))
		return nil
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("point search returned non-200",
			zap.Float64("lat", pt.Lat), zap.Float64("lng", pt.Lng),
			zap.Int("status", resp.StatusCode))
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Warn("point search read body failed",
			zap.Float64("lat", pt.Lat), zap.Float64("lng", pt.Lng), zap.Error(err))
		return nil
	}

	entities, err := parseEntities(body)
	if err != nil {
		c.log.Warn("point search body unparsable",
			zap.Float64("lat", pt.Lat), zap.Float64("lng", pt.Lng), zap.Error(err))
		return nil
	}

	if c.respCache != nil {
		c.respCache.Set(u, json.RawMessage(body))
	}
	return entities
}

func (c *httpClient) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}

// searchURL builds the provider query for one grid point. The radius is
// converted to meters and truncated to an integer.
func (c *httpClient) searchURL(pt grid.Point, radiusMiles float64) string {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("v", c.apiVersion)
	q.Set("locale", c.locale)
	q.Set("q", "")
	q.Set("location", fmt.Sprintf("%v,%v", pt.Lat, pt.Lng))
	q.Set("locationRadius", fmt.Sprintf("%d", int(radiusMiles*metersPerMile)))
	return c.baseURL + "?" + q.Encode()
}

func parseEntities(body []byte) ([]RawEntity, error) {
	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, eris.Wrap(err, "yext: unmarshal search response")
	}
	return sr.Response.Entities, nil
}

type plainGetter struct {
	http *http.Client
}

func (g plainGetter) Get(ctx context.Context, rawURL string, _ http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "yext: create request")
	}
	return g.http.Do(req)
}
