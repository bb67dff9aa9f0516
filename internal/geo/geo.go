// Package geo turns a free-text location into OpenStreetMap embed and search links.
package geo

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/patrickmn/go-cache"

	"ringer-dashboard/config"
)

const (
	osmEmbedURL  = "https://www.openstreetmap.org/export/embed.html"
	osmSearchURL = "https://www.openstreetmap.org/search"
	worldBBox    = "-180%2C-90%2C180%2C90"
)

// MapLinks are the URLs shown for a location.
type MapLinks struct {
	Location  string `json:"location"`
	EmbedURL  string `json:"embedUrl"`
	SearchURL string `json:"searchUrl"`
	Found     bool   `json:"found"`
	Lat       string `json:"lat,omitempty"`
	Lon       string `json:"lon,omitempty"`
}

type searchHit struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocoder resolves locations through a Nominatim-compatible search API.
type Geocoder struct {
	enabled   bool
	baseURL   string
	userAgent string
	zoom      int
	client    *http.Client
	cache     *cache.Cache
}

// NewGeocoder builds a Geocoder from configuration.
func NewGeocoder(cfg config.GeocoderConfig) *Geocoder {
	ttl := time.Duration(cfg.CacheTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = time.Hour
	}
	zoom := cfg.Zoom
	if zoom <= 0 || zoom > 16 {
		zoom = 15
	}
	return &Geocoder{
		enabled:   cfg.Enabled,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		zoom:      zoom,
		client:    &http.Client{Timeout: 10 * time.Second},
		cache:     cache.New(ttl, 2*ttl),
	}
}

// Lookup returns map links for location. It never fails: when the location
// cannot be geocoded the links fall back to a world view marked with the text.
func (g *Geocoder) Lookup(ctx context.Context, location string) MapLinks {
	location = strings.TrimSpace(location)
	if cached, ok := g.cache.Get(location); ok {
		return cached.(MapLinks)
	}

	links := FallbackLinks(location)
	if g.enabled && location != "" {
		hit, err := g.search(ctx, location)
		switch {
		case err != nil:
			log.Printf("Error geocoding location %q: %v", location, err)
			// errors are not cached so the next lookup retries
			return links
		case hit != nil:
			links = g.pointLinks(location, *hit)
		}
	}

	g.cache.Set(location, links, cache.DefaultExpiration)
	return links
}

func (g *Geocoder) search(ctx context.Context, location string) (*searchHit, error) {
	endpoint := fmt.Sprintf("%s/search?format=json&q=%s", g.baseURL, url.QueryEscape(location))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var hits []searchHit
	if err := json.Unmarshal(body, &hits); err != nil {
		return nil, fmt.Errorf("failed to unmarshal search response: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}
	return &hits[0], nil
}

func (g *Geocoder) pointLinks(location string, hit searchHit) MapLinks {
	lat, errLat := strconv.ParseFloat(hit.Lat, 64)
	lon, errLon := strconv.ParseFloat(hit.Lon, 64)
	if errLat != nil || errLon != nil || !validCoord(lat, 90) || !validCoord(lon, 180) {
		return FallbackLinks(location)
	}

	latText, lonText := formatCoord(lat), formatCoord(lon)
	return MapLinks{
		Location:  location,
		EmbedURL:  fmt.Sprintf("%s?bbox=%s&layer=mapnik&marker=%s%%2C%s", osmEmbedURL, BBox(lat, lon, g.zoom), latText, lonText),
		SearchURL: searchURL(location),
		Found:     true,
		Lat:       latText,
		Lon:       lonText,
	}
}

// FallbackLinks returns a world view marked with the location text.
func FallbackLinks(location string) MapLinks {
	return MapLinks{
		Location:  location,
		EmbedURL:  fmt.Sprintf("%s?bbox=%s&layer=mapnik&marker=%s", osmEmbedURL, worldBBox, escape(location)),
		SearchURL: searchURL(location),
	}
}

// BBox returns the URL-encoded bounding box around a point. The box shrinks as
// zoom grows: the offset is 0.01 degrees per zoom level below 16.
func BBox(lat, lon float64, zoom int) string {
	offset := 0.01 * float64(16-zoom)
	parts := []float64{lon - offset, lat - offset, lon + offset, lat + offset}
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = formatCoord(p)
	}
	return strings.Join(out, "%2C")
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func validCoord(v, limit float64) bool {
	return !math.IsNaN(v) && v >= -limit && v <= limit
}

func searchURL(location string) string {
	return osmSearchURL + "?query=" + escape(location)
}

// escape percent-encodes s like a URI component (spaces become %20).
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
