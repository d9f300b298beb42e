package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ErrNoRegionMatch is returned when the typeahead endpoint has no location
// for a search term. Without a region code no area can be searched, so this
// is fatal for an orchestration run.
var ErrNoRegionMatch = errors.New("no region match for search term")

// ErrMalformedResponse is returned when a detail response body cannot be
// decoded. The fate of the requested ids is unknown; callers must not treat
// them as delisted.
var ErrMalformedResponse = errors.New("malformed detail response")

// Client wraps the listing site's map-search API. It performs no database
// access; its only state is a bounded region-code cache.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger

	regionCache *lru.Cache[string, string]
	maxRetries  int
	retryDelay  time.Duration
}

// Options configures a Client.
type Options struct {
	BaseURL         string
	Timeout         time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
	RegionCacheSize int
}

// NewClient creates a listing client.
func NewClient(opts Options, logger *logrus.Logger) (*Client, error) {
	if opts.RegionCacheSize <= 0 {
		opts.RegionCacheSize = 32
	}
	cache, err := lru.New[string, string](opts.RegionCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create region cache: %w", err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimSuffix(opts.BaseURL, "/"),
		httpClient:  &http.Client{Timeout: opts.Timeout},
		logger:      logger,
		regionCache: cache,
		maxRetries:  opts.MaxRetries,
		retryDelay:  opts.RetryDelay,
	}, nil
}

// ResolveRegion looks up the region code for a free-text search term. Results
// are cached, so repeating a term does not trigger a second network call
// until the cache evicts it.
func (c *Client) ResolveRegion(ctx context.Context, term string) (string, error) {
	term = strings.ToUpper(term)
	if code, ok := c.regionCache.Get(term); ok {
		return code, nil
	}

	// The typeahead endpoint expects the term chopped into two-character
	// path segments.
	var segments []string
	for i := 0; i < len(term); i += 2 {
		end := i + 2
		if end > len(term) {
			end = len(term)
		}
		segments = append(segments, term[i:end])
	}
	endpoint := fmt.Sprintf("%s/typeAhead/uknostreet/%s/", c.baseURL, strings.Join(segments, "/"))

	body, err := c.get(ctx, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("region lookup failed: %w", err)
	}

	var result struct {
		TypeAheadLocations []struct {
			LocationIdentifier string `json:"locationIdentifier"`
		} `json:"typeAheadLocations"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode region lookup response: %w", err)
	}
	if len(result.TypeAheadLocations) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoRegionMatch, term)
	}

	code := result.TypeAheadLocations[0].LocationIdentifier
	c.regionCache.Add(term, code)
	return code, nil
}

// SearchArea queries the map-search endpoint for every listing inside the
// given viewport. Parameters are validated before any network call.
//
// The upstream API historically reused the dontShow key for both exclusion
// and inclusion tokens. Here dontShow carries exclusions only; inclusion
// tokens are sent as mustHave.
func (c *Client) SearchArea(ctx context.Context, region string, lat1, lat2, lon1, lon2 float64, opts SearchOptions) (*SearchResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("locationIdentifier", region)
	params.Set("numberOfPropertiesPerPage", "499")
	params.Set("radius", fmt.Sprintf("%.1f", float64(opts.Radius)))
	params.Set("sortType", "2")
	params.Set("index", strconv.Itoa(opts.Index))
	params.Set("includeSSTC", strconv.FormatBool(opts.SSTC))
	params.Set("viewType", "MAP")
	params.Set("channel", string(opts.Channel))
	params.Set("areaSizeUnit", "sqft")
	params.Set("currencyCode", "GBP")
	params.Set("viewport", fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", lon1, lon2, lat1, lat2))
	params.Set("isFetching", "false")
	if len(opts.Exclude) > 0 {
		params.Set("dontShow", strings.Join(opts.Exclude, ","))
	}
	if len(opts.Include) > 0 {
		params.Set("mustHave", strings.Join(opts.Include, ","))
	}

	body, err := c.get(ctx, c.baseURL+"/api/_mapSearch", params)
	if err != nil {
		return nil, fmt.Errorf("area search failed: %w", err)
	}

	var result SearchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode area search response: %w", err)
	}
	return &result, nil
}

// FetchDetails fetches full attribute records for up to 25 listing ids. The
// ceiling is enforced by the caller. An id missing from a well-formed
// response means the listing is gone; a response that cannot be decoded at
// all yields ErrMalformedResponse instead, so the two are never conflated.
func (c *Client) FetchDetails(ctx context.Context, channel Channel, ids []int64) (map[int64]Detail, error) {
	if channel != ChannelBuy && channel != ChannelRent {
		return nil, &InvalidParameterError{
			Param:   "channel",
			Message: fmt.Sprintf("expected BUY or RENT, got %q", channel),
		}
	}

	params := url.Values{}
	params.Set("channel", string(channel))
	params.Set("viewType", "MAP")
	for _, id := range ids {
		params.Add("propertyIds", strconv.FormatInt(id, 10))
	}

	body, err := c.get(ctx, c.baseURL+"/api/_searchByIds", params)
	if err != nil {
		return nil, fmt.Errorf("detail fetch failed: %w", err)
	}

	var result detailResult
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.WithError(err).WithField("ids", len(ids)).Warn("Malformed detail response")
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	details := make(map[int64]Detail, len(result.Properties))
	for _, d := range result.Properties {
		details[d.ID] = d
	}
	return details, nil
}

// get performs a GET with bounded retry and backoff. Server errors and
// transport failures are retried; client errors are not.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	target := endpoint
	if len(params) > 0 {
		target = endpoint + "?" + params.Encode()
	}

	var lastErr error
	delay := c.retryDelay
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.WithField("attempt", attempt).WithField("url", endpoint).Debug("Retrying request")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error: %s", resp.Status)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status: %s", resp.Status)
		}
		return body, nil
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}
