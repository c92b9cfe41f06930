// Package anncsu provides the HTTP client for the ANNCSU address lookup
// service (regions, provinces, municipalities, streets, address details).
//
// Every query collapses failures to an empty result: callers cannot tell
// "no matches" from "request failed". Failures are logged.
package anncsu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/matthewbaird/addrcascade/internal/address"
	"github.com/matthewbaird/addrcascade/internal/platform/logger"
)

const (
	// DefaultBaseURL is the public service root.
	DefaultBaseURL = "https://anncsu-api.dataws.it/v1"

	// DefaultMunicipalityLimit caps municipality searches.
	DefaultMunicipalityLimit = 50
	// DefaultStreetLimit caps street searches.
	DefaultStreetLimit = 100
)

// Endpoint names exposed by the service.
const (
	EndpointRegions        = "regions"
	EndpointProvinces      = "provinces"
	EndpointMunicipalities = "municipalities"
	EndpointStreets        = "streets"
	EndpointStreetsFull    = "streets_full"
	EndpointAddressDetails = "address_details"
)

// DefaultTimeout is the per-request timeout of the default HTTP client.
const DefaultTimeout = 10 * time.Second

// Client is the HTTP client for the lookup service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	log        *logger.Logger

	municipalityLimit int
	streetLimit       int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. The given client is used
// as is; WithTimeout does not apply to it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRateLimit throttles outgoing requests to rps per second. A request
// that cannot get a token before its context ends yields an empty result.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		}
	}
}

// WithLimits overrides the default municipality and street result caps used
// by Lookup. Non-positive values keep the defaults.
func WithLimits(municipality, street int) Option {
	return func(c *Client) {
		if municipality > 0 {
			c.municipalityLimit = municipality
		}
		if street > 0 {
			c.streetLimit = street
		}
	}
}

// New creates a client rooted at baseURL (DefaultBaseURL when empty).
func New(baseURL string, log *logger.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logger.Nop()
	}
	c := &Client{
		baseURL:           baseURL,
		timeout:           DefaultTimeout,
		log:               log,
		municipalityLimit: DefaultMunicipalityLimit,
		streetLimit:       DefaultStreetLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c
}

// BaseURL returns the service root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Limited returns a copy of c with different result caps for Lookup. The
// copy shares the HTTP client and the rate limiter.
func (c *Client) Limited(municipality, street int) *Client {
	cp := *c
	WithLimits(municipality, street)(&cp)
	return &cp
}

// Regions lists all regions ordered by name.
func (c *Client) Regions(ctx context.Context) []address.Region {
	return fetch[address.Region](ctx, c, EndpointRegions, NewParams().Order("name"))
}

// Provinces lists provinces ordered by name, restricted to regionCode when
// it is not empty.
func (c *Client) Provinces(ctx context.Context, regionCode string) []address.Province {
	p := NewParams().Order("name").Eq("region_code", regionCode)
	return fetch[address.Province](ctx, c, EndpointProvinces, p)
}

// MunicipalityOptions narrows a municipality search.
type MunicipalityOptions struct {
	ProvinceCode string
	Limit        int // DefaultMunicipalityLimit when zero
}

// SearchMunicipalities finds municipalities whose name contains query.
func (c *Client) SearchMunicipalities(ctx context.Context, query string, opts MunicipalityOptions) []address.Municipality {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultMunicipalityLimit
	}
	p := NewParams().
		ILike("name", query).
		Limit(limit).
		Order("name").
		Eq("province_code", opts.ProvinceCode)
	return fetch[address.Municipality](ctx, c, EndpointMunicipalities, p)
}

// StreetOptions narrows a street search.
type StreetOptions struct {
	IstatCode string // municipality scope; empty searches every municipality
	Limit     int    // DefaultStreetLimit when zero
}

// SearchStreets finds streets whose name contains query. Scoped searches
// are ordered by name; unscoped ones by municipality then name.
func (c *Client) SearchStreets(ctx context.Context, query string, opts StreetOptions) []address.Street {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultStreetLimit
	}
	p := NewParams().ILike("name", query).Limit(limit)
	if opts.IstatCode != "" {
		p.Eq("istat_code", opts.IstatCode).Order("name")
		return fetch[address.Street](ctx, c, EndpointStreets, p)
	}
	p.Order("municipality", "name")
	return fetch[address.Street](ctx, c, EndpointStreetsFull, p)
}

// AddressDetails returns the address with the given id, or nil.
func (c *Client) AddressDetails(ctx context.Context, id string) *address.AddressDetails {
	if id == "" {
		return nil
	}
	rows := fetch[address.AddressDetails](ctx, c, EndpointAddressDetails, NewParams().Eq("id", id))
	if len(rows) == 0 {
		return nil
	}
	return &rows[0]
}

// Lookup runs the query backing a hierarchy level. upstream is the
// identifying code of the selected parent level, or "" for no filter.
// text is the search input; choice-lists pass "".
func (c *Client) Lookup(ctx context.Context, level address.Level, text, upstream string) []address.Record {
	switch level {
	case address.LevelRegion:
		return records(c.Regions(ctx))
	case address.LevelProvince:
		return records(c.Provinces(ctx, upstream))
	case address.LevelMunicipality:
		return records(c.SearchMunicipalities(ctx, text, MunicipalityOptions{
			ProvinceCode: upstream,
			Limit:        c.municipalityLimit,
		}))
	case address.LevelStreet:
		return records(c.SearchStreets(ctx, text, StreetOptions{
			IstatCode: upstream,
			Limit:     c.streetLimit,
		}))
	default:
		c.log.Warn("anncsu: lookup for unknown level", "level", int(level))
		return nil
	}
}

func records[T address.Record](rows []T) []address.Record {
	out := make([]address.Record, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

// fetch performs GET {baseURL}/{endpoint}?{params} and decodes a JSON array.
// Any failure is logged and yields an empty slice.
func fetch[T any](ctx context.Context, c *Client, endpoint string, p *Params) []T {
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, p.Encode())

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.log.UpstreamError(endpoint, 0, fmt.Errorf("rate limit wait: %w", err))
			return []T{}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		c.log.UpstreamError(endpoint, 0, fmt.Errorf("create request: %w", err))
		return []T{}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.UpstreamError(endpoint, 0, fmt.Errorf("http request: %w", err))
		return []T{}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.UpstreamError(endpoint, resp.StatusCode, nil)
		return []T{}
	}

	var rows []T
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		c.log.UpstreamError(endpoint, resp.StatusCode, fmt.Errorf("decode response: %w", err))
		return []T{}
	}
	if rows == nil {
		rows = []T{}
	}
	c.log.Debug("anncsu: query", "endpoint", endpoint, "rows", len(rows))
	return rows
}
