package page

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/charlesng35/dgnotes/internal/cache"
	"github.com/charlesng35/dgnotes/pkg/logger"
)

// DefaultCatalogURL is the public disc database.
const DefaultCatalogURL = "https://discit-api.fly.dev/disc"

const (
	maxSearchResults      = 100
	defaultCatalogTimeout = 15 * time.Second
)

// Disc is one entry of the public disc catalog.
type Disc struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Brand     string `json:"brand"`
	Category  string `json:"category"`
	Speed     string `json:"speed"`
	Glide     string `json:"glide"`
	Turn      string `json:"turn"`
	Fade      string `json:"fade"`
	Stability string `json:"stability"`
}

// Catalog reads the disc catalog through the TTL cache so the remote API is
// hit at most once per window.
type Catalog struct {
	ttl    *cache.TTL
	client *http.Client
	url    string
	group  singleflight.Group
	log    *zap.Logger
}

// NewCatalog builds a catalog client. Empty url means the public database.
func NewCatalog(ttl *cache.TTL, url string, timeout time.Duration) *Catalog {
	if url == "" {
		url = DefaultCatalogURL
	}
	if timeout <= 0 {
		timeout = defaultCatalogTimeout
	}
	return &Catalog{
		ttl:    ttl,
		client: &http.Client{Timeout: timeout},
		url:    url,
		log:    logger.WithModule("catalog"),
	}
}

// Discs returns the catalog, from cache when it is fresh.
func (c *Catalog) Discs(ctx context.Context) ([]Disc, error) {
	var discs []Disc
	if c.ttl.GetFresh(ctx, cache.KeyAPIDiscs, cache.TTLCatalogMinutes, &discs) {
		return discs, nil
	}

	// the flight outlives any single caller; the client timeout bounds it
	flightCtx := context.WithoutCancel(ctx)
	v, err, shared := c.group.Do(cache.KeyAPIDiscs, func() (any, error) {
		fetched, err := c.fetch(flightCtx)
		if err != nil {
			return nil, err
		}
		c.ttl.Set(flightCtx, cache.KeyAPIDiscs, fetched)
		return fetched, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.log.Debug("catalog fetch shared with concurrent caller")
	}
	return v.([]Disc), nil
}

func (c *Catalog) fetch(ctx context.Context) ([]Disc, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog: unexpected status %d", resp.StatusCode)
	}

	var discs []Disc
	if err := json.NewDecoder(resp.Body).Decode(&discs); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	return discs, nil
}

// Search matches query against disc names and brands, case-insensitively.
func Search(discs []Disc, query string) []Disc {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	var out []Disc
	for _, disc := range discs {
		if strings.Contains(strings.ToLower(disc.Name), query) || strings.Contains(strings.ToLower(disc.Brand), query) {
			out = append(out, disc)
			if len(out) == maxSearchResults {
				break
			}
		}
	}
	return out
}

// Categories lists the distinct disc categories, sorted.
func Categories(discs []Disc) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, disc := range discs {
		if disc.Category == "" {
			continue
		}
		if _, ok := seen[disc.Category]; ok {
			continue
		}
		seen[disc.Category] = struct{}{}
		out = append(out, disc.Category)
	}
	sort.Strings(out)
	return out
}
