package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/forest-guardian/moisture-index-cli/internal/utils"
	"github.com/paulmach/orb/geojson"
)

// StacClient searches a STAC API (e.g. Earth Search) through POST /search.
type StacClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Retries    int
	RetryDelay time.Duration
	// PageSize caps the per-request limit; MaxItems caps the total.
	PageSize int
}

func NewStacClient(baseURL string, httpClient *http.Client) *StacClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &StacClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: httpClient,
		Retries:    5,
		RetryDelay: 2 * time.Second,
		PageSize:   100,
	}
}

type searchRequest struct {
	Collections []string          `json:"collections"`
	Intersects  *geojson.Geometry `json:"intersects,omitempty"`
	Datetime    string            `json:"datetime"`
	SortBy      []SortField       `json:"sortby,omitempty"`
	Limit       int               `json:"limit"`
}

type stacAsset struct {
	Href string `json:"href"`
}

type stacItem struct {
	ID         string `json:"id"`
	Collection string `json:"collection"`
	Properties struct {
		Datetime   time.Time `json:"datetime"`
		CloudCover *float64  `json:"eo:cloud_cover"`
	} `json:"properties"`
	Assets map[string]stacAsset `json:"assets"`
}

type stacLink struct {
	Rel    string          `json:"rel"`
	Href   string          `json:"href"`
	Method string          `json:"method"`
	Body   json.RawMessage `json:"body"`
	Merge  bool            `json:"merge"`
}

type itemCollection struct {
	Features []stacItem `json:"features"`
	Links    []stacLink `json:"links"`
}

func (c *StacClient) Search(ctx context.Context, q Query) ([]SceneRecord, error) {
	limit := q.MaxItems
	if c.PageSize > 0 && limit > c.PageSize {
		limit = c.PageSize
	}
	req := searchRequest{
		Collections: []string{q.Collection},
		Datetime:    q.Window.String(),
		SortBy:      q.SortBy,
		Limit:       limit,
	}
	if q.Intersects != nil {
		req.Intersects = geojson.NewGeometry(q.Intersects)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	method, url := http.MethodPost, c.BaseURL+"/search"
	var scenes []SceneRecord
	for {
		page, err := c.fetchPage(ctx, method, url, body)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Features {
			scenes = append(scenes, item.toScene(q.Collection))
		}
		if len(scenes) >= q.MaxItems || len(page.Features) == 0 {
			break
		}
		next := page.next()
		if next == nil {
			break
		}
		method, url, body, err = nextRequest(next, body)
		if err != nil {
			return nil, err
		}
	}

	if len(scenes) > q.MaxItems {
		scenes = scenes[:q.MaxItems]
	}
	return utils.SortByTime(scenes, func(s SceneRecord) time.Time { return s.Datetime }, false), nil
}

func (c *StacClient) fetchPage(ctx context.Context, method, url string, body []byte) (*itemCollection, error) {
	retries := max(c.Retries, 1)
	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		page, retry, err := c.doRequest(ctx, method, url, body)
		if err == nil {
			return page, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err

		if attempt < retries {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, ctx.Err())
			case <-time.After(c.RetryDelay):
			}
		}
	}
	return nil, fmt.Errorf("failed to search after %d attempts: %w", retries, lastErr)
}

// doRequest performs one call and reports whether a failure is worth retrying.
func (c *StacClient) doRequest(ctx context.Context, method, url string, body []byte) (*itemCollection, bool, error) {
	var reader io.Reader
	if method == http.MethodPost {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("catalog returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, true, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
		}
		return nil, false, err
	}

	var page itemCollection
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, false, fmt.Errorf("failed to parse search response: %w", err)
	}
	return &page, false, nil
}

func (p *itemCollection) next() *stacLink {
	for i := range p.Links {
		if p.Links[i].Rel == "next" {
			return &p.Links[i]
		}
	}
	return nil
}

func nextRequest(link *stacLink, previous []byte) (string, string, []byte, error) {
	method := strings.ToUpper(link.Method)
	if method == "" {
		method = http.MethodGet
	}
	if method != http.MethodPost {
		return method, link.Href, nil, nil
	}
	if len(link.Body) == 0 {
		return method, link.Href, previous, nil
	}
	if !link.Merge {
		return method, link.Href, link.Body, nil
	}

	merged := map[string]interface{}{}
	if err := json.Unmarshal(previous, &merged); err != nil {
		return "", "", nil, fmt.Errorf("failed to merge next link body: %w", err)
	}
	var extra map[string]interface{}
	if err := json.Unmarshal(link.Body, &extra); err != nil {
		return "", "", nil, fmt.Errorf("failed to merge next link body: %w", err)
	}
	for k, v := range extra {
		merged[k] = v
	}
	body, err := json.Marshal(merged)
	return method, link.Href, body, err
}

func (i stacItem) toScene(collection string) SceneRecord {
	assets := make(map[string]string, len(i.Assets))
	for name, asset := range i.Assets {
		assets[name] = asset.Href
	}
	if i.Collection != "" {
		collection = i.Collection
	}
	return SceneRecord{
		ID:         i.ID,
		Collection: collection,
		Datetime:   i.Properties.Datetime,
		CloudCover: i.Properties.CloudCover,
		Assets:     assets,
	}
}
