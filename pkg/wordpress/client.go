package wordpress

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

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// MaxPerPage is the largest page size the WordPress REST API accepts
const MaxPerPage = 100

// APIError is a non-retryable error answered by the WordPress REST API
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("wordpress returned %d", e.Status)
	}
	return fmt.Sprintf("wordpress returned %d %s: %s", e.Status, e.Code, e.Message)
}

// Config configures a Client
type Config struct {
	// BaseURL is the site root, e.g. https://example.org
	BaseURL string
	// User and AppPassword authenticate with an application password; both optional
	User        string
	AppPassword string
	PerPage     int
	Timeout     time.Duration
	// MaxRetries bounds retries of transient failures
	MaxRetries uint64
	Logger     *zap.Logger
}

// Client is a thin WordPress REST API client
type Client struct {
	baseURL     string
	user        string
	appPassword string
	perPage     int
	maxRetries  uint64
	httpClient  *http.Client
	logger      *zap.Logger
	newBackOff  func() backoff.BackOff
}

// NewClient creates a Client
func NewClient(cfg Config) *Client {
	perPage := cfg.PerPage
	if perPage <= 0 || perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 4
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		user:        cfg.User,
		appPassword: cfg.AppPassword,
		perPage:     perPage,
		maxRetries:  maxRetries,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger.Named("wordpress"),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			return b
		},
	}
}

// EachPage fetches /wp-json/wp/v2/<restBase> page by page and hands every
// decoded page to fn. It stops after the page named by X-WP-TotalPages.
func EachPage[T any](ctx context.Context, c *Client, restBase string, fn func(page []T) error) error {
	for page := 1; ; page++ {
		var items []T
		totalPages, err := c.getPage(ctx, restBase, page, &items)
		if err != nil {
			return fmt.Errorf("fetching %s page %d: %w", restBase, page, err)
		}

		c.logger.Debug("fetched page",
			zap.String("rest_base", restBase),
			zap.Int("page", page),
			zap.Int("total_pages", totalPages),
			zap.Int("items", len(items)),
		)

		if len(items) > 0 {
			if err := fn(items); err != nil {
				return err
			}
		}
		if len(items) == 0 || page >= totalPages {
			return nil
		}
	}
}

// EachTerm streams the terms of a taxonomy page by page
func (c *Client) EachTerm(ctx context.Context, taxonomy string, fn func([]Term) error) error {
	return EachPage(ctx, c, taxonomy, func(terms []Term) error {
		for i := range terms {
			if terms[i].Taxonomy == "" {
				terms[i].Taxonomy = taxonomy
			}
		}
		return fn(terms)
	})
}

// ListTerms returns every term of a taxonomy
func (c *Client) ListTerms(ctx context.Context, taxonomy string) ([]Term, error) {
	var all []Term
	err := c.EachTerm(ctx, taxonomy, func(terms []Term) error {
		all = append(all, terms...)
		return nil
	})
	return all, err
}

// EachMember streams the posts of a post type page by page
func (c *Client) EachMember(ctx context.Context, postType string, fn func([]Member) error) error {
	return EachPage(ctx, c, postType, fn)
}

// ListMembers returns every post of a post type
func (c *Client) ListMembers(ctx context.Context, postType string) ([]Member, error) {
	var all []Member
	err := c.EachMember(ctx, postType, func(members []Member) error {
		all = append(all, members...)
		return nil
	})
	return all, err
}

// Ping checks that the REST API root answers
func (c *Client) Ping(ctx context.Context) error {
	return c.retry(ctx, func() error {
		resp, err := c.do(ctx, c.baseURL+"/wp-json/")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	})
}

func (c *Client) getPage(ctx context.Context, restBase string, page int, out interface{}) (int, error) {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(c.perPage))
	q.Set("page", strconv.Itoa(page))
	endpoint := fmt.Sprintf("%s/wp-json/wp/v2/%s?%s", c.baseURL, url.PathEscape(restBase), q.Encode())

	totalPages := 1
	err := c.retry(ctx, func() error {
		resp, err := c.do(ctx, endpoint)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding response: %w", err))
		}
		if v := resp.Header.Get("X-WP-TotalPages"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				totalPages = n
			}
		}
		return nil
	})
	return totalPages, err
}

// do performs a GET and classifies failures: 4xx other than 429 are permanent
func (c *Client) do(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if c.user != "" {
		req.SetBasicAuth(c.user, strings.ReplaceAll(c.appPassword, " ", ""))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return resp, nil
	}

	defer resp.Body.Close()
	apiErr := &APIError{Status: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(body, apiErr)

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, apiErr
	}
	return nil, backoff.Permanent(apiErr)
}

func (c *Client) retry(ctx context.Context, op func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	return backoff.RetryNotify(op, b, func(err error, wait time.Duration) {
		c.logger.Warn("wordpress request failed, retrying", zap.Error(err), zap.Duration("wait", wait))
	})
}

// IsNotFound reports whether err is a 404 answered by WordPress
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
