// Package census provides a client for the Census Data API (api.census.gov).
package census

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/acs-loader/internal/fetcher"
)

// DefaultBaseURL is the root of the Census Data API.
const DefaultBaseURL = "https://api.census.gov/data"

// DefaultDataset is the ACS 5-year detailed tables dataset.
const DefaultDataset = "acs/acs5"

// Client defines the Census Data API operations used by the loader.
type Client interface {
	// Probe looks up the name of one state for the given year. A nil error
	// means the dataset is published for that year; ErrUnsupportedYear means
	// it is not.
	Probe(ctx context.Context, year int, stateFIPS string) error
	// StateCountyTract fetches the given fields for every tract of every
	// county in one state.
	StateCountyTract(ctx context.Context, year int, fields []string, stateFIPS string) (*Table, error)
}

// Option configures the Census client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithAPIKey sets the API key sent as the "key" query parameter.
func WithAPIKey(key string) Option {
	return func(c *httpClient) {
		c.apiKey = key
	}
}

// WithDataset overrides the dataset path, e.g. "acs/acs1".
func WithDataset(ds string) Option {
	return func(c *httpClient) {
		c.dataset = strings.Trim(ds, "/")
	}
}

type httpClient struct {
	f       fetcher.Fetcher
	baseURL string
	dataset string
	apiKey  string
}

// NewClient creates a Census Data API client that downloads through f.
func NewClient(f fetcher.Fetcher, opts ...Option) Client {
	c := &httpClient{
		f:       f,
		baseURL: DefaultBaseURL,
		dataset: DefaultDataset,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Probe implements Client.
func (c *httpClient) Probe(ctx context.Context, year int, stateFIPS string) error {
	q := url.Values{}
	q.Set("get", "NAME")
	q.Set("for", "state:"+stateFIPS)

	tbl, err := c.get(ctx, year, q)
	if err != nil {
		return err
	}
	if len(tbl.Rows) == 0 {
		return eris.Wrapf(ErrUnsupportedYear, "census: %s %d returned no row for state %s", c.dataset, year, stateFIPS)
	}
	return nil
}

// StateCountyTract implements Client.
func (c *httpClient) StateCountyTract(ctx context.Context, year int, fields []string, stateFIPS string) (*Table, error) {
	if len(fields) == 0 {
		return nil, eris.New("census: no fields requested")
	}
	if len(fields) > MaxFields {
		return nil, eris.Errorf("census: %d fields requested, the API accepts at most %d", len(fields), MaxFields)
	}

	q := url.Values{}
	q.Set("get", strings.Join(fields, ","))
	q.Set("for", "tract:*")
	q.Set("in", fmt.Sprintf("state:%s county:*", stateFIPS))

	return c.get(ctx, year, q)
}

func (c *httpClient) get(ctx context.Context, year int, q url.Values) (*Table, error) {
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	reqURL := fmt.Sprintf("%s/%d/%s?%s", c.baseURL, year, c.dataset, q.Encode())

	body, err := c.f.Download(ctx, reqURL)
	if err != nil {
		return nil, classify(err, c.dataset, year)
	}
	defer body.Close() //nolint:errcheck

	tbl, err := parseTable(ctx, body)
	if err != nil {
		return nil, eris.Wrapf(err, "census: parse %s %d response", c.dataset, year)
	}
	return tbl, nil
}
