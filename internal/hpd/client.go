package hpd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Default client settings.
const (
	// DefaultBaseURL is the NYC open-data Socrata host.
	DefaultBaseURL = "https://data.cityofnewyork.us"

	// DefaultRegistrationsDataset is the HPD multiple-dwelling
	// registrations dataset id.
	DefaultRegistrationsDataset = "tesw-yqqr"

	// DefaultContactsDataset is the HPD registration contacts dataset id.
	DefaultContactsDataset = "feu5-w2e2"

	// DefaultPlutoDataset is the PLUTO tax-lot dataset id.
	DefaultPlutoDataset = "64uk-42ks"

	// DefaultPageLimit caps rows per request. Registration and contact
	// result sets for a single parcel or name are small; the cap guards
	// against pathological names matching half the city.
	DefaultPageLimit = 500

	// DefaultTimeout is the per-request timeout. The open-data API is
	// usually fast but rate-limited; generous enough for a slow page,
	// short enough that one stuck call cannot eat the crawl deadline.
	DefaultTimeout = 20 * time.Second

	// defaultMaxBodySize bounds response reads. A page-limited query
	// stays well under this; anything larger is a server fault.
	defaultMaxBodySize = 8 * 1024 * 1024
)

// appTokenHeader carries the Socrata application token. Unauthenticated
// requests share a low rate-limit pool; a token moves the client to a
// per-token pool.
const appTokenHeader = "X-App-Token"

// Datasets names the Socrata dataset ids the client queries.
type Datasets struct {
	Registrations string `yaml:"registrations"`
	Contacts      string `yaml:"contacts"`
	Pluto         string `yaml:"pluto"`
}

// DefaultDatasets returns the production NYC dataset ids.
func DefaultDatasets() Datasets {
	return Datasets{
		Registrations: DefaultRegistrationsDataset,
		Contacts:      DefaultContactsDataset,
		Pluto:         DefaultPlutoDataset,
	}
}

// Client queries the Socrata API.
//
// Design decision: We accept an external *http.Client rather than
// building one internally, matching how the transport is injected
// everywhere else in the codebase; tests swap in an httptest server's
// client and production wires timeouts once at startup.
type Client struct {
	// httpClient performs the requests.
	httpClient *http.Client

	// baseURL is the Socrata host, without trailing slash.
	baseURL string

	// appToken is sent as X-App-Token when non-empty.
	appToken string

	// datasets holds the dataset ids to query.
	datasets Datasets

	// pageLimit caps rows per request via $limit.
	pageLimit int

	// maxBodySize bounds response body reads.
	maxBodySize int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL sets the Socrata host.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithAppToken sets the Socrata application token.
func WithAppToken(token string) Option {
	return func(c *Client) {
		c.appToken = token
	}
}

// WithDatasets overrides the dataset ids.
func WithDatasets(d Datasets) Option {
	return func(c *Client) {
		if d.Registrations != "" {
			c.datasets.Registrations = d.Registrations
		}
		if d.Contacts != "" {
			c.datasets.Contacts = d.Contacts
		}
		if d.Pluto != "" {
			c.datasets.Pluto = d.Pluto
		}
	}
}

// WithPageLimit sets the per-request row cap.
func WithPageLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageLimit = n
		}
	}
}

// NewClient creates a Socrata client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		baseURL:     DefaultBaseURL,
		datasets:    DefaultDatasets(),
		pageLimit:   DefaultPageLimit,
		maxBodySize: defaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// getJSON performs one dataset query and decodes the JSON array response
// into out. params are passed as Socrata query parameters.
func (c *Client) getJSON(ctx context.Context, dataset string, params url.Values, out any) error {
	endpoint := fmt.Sprintf("%s/resource/%s.json", c.baseURL, dataset)

	query := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	query.Set("$limit", fmt.Sprintf("%d", c.pageLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.appToken != "" {
		req.Header.Set(appTokenHeader, c.appToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little of the body so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 1024) //nolint:errcheck // best-effort drain
		return fmt.Errorf("dataset %s returned status %d", dataset, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// quoteSoQL escapes a string literal for a SoQL $where clause.
// Single quotes double per the SoQL grammar.
func quoteSoQL(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
