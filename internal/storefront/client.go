package storefront

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

	"log/slog"

	"playtime/internal/logging"
	"playtime/internal/services"
)

// requestTimeout is the fixed per-call HTTP timeout.
const requestTimeout = 10 * time.Second

// NameSource provides a game's storefront title by app ID. Satisfied by
// Client; the resolver accepts the interface so tests can stub it.
type NameSource interface {
	AppName(ctx context.Context, appID int64) (string, error)
}

// Client fetches app metadata from the storefront's public appdetails
// endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ NameSource = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a storefront client.
func New(baseURL string, logger *slog.Logger, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("storefront base url required")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logging.NewComponentLogger(logger, "storefront"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// appDetailsEntry mirrors one entry of the appdetails response map.
type appDetailsEntry struct {
	Success bool `json:"success"`
	Data    struct {
		Name string `json:"name"`
	} `json:"data"`
}

// AppName returns the storefront's own title for the given app ID.
func (c *Client) AppName(ctx context.Context, appID int64) (string, error) {
	if appID <= 0 {
		return "", services.Wrap(services.ErrMalformed, "storefront", "appdetails", "app id must be positive", nil)
	}

	endpoint := fmt.Sprintf("%s/api/appdetails?%s", c.baseURL, url.Values{
		"appids":  {strconv.FormatInt(appID, 10)},
		"filters": {"basic"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "storefront", "appdetails", "build request", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "storefront", "appdetails", fmt.Sprintf("latency=%v", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", services.Wrap(services.ErrUpstream, "storefront", "appdetails", fmt.Sprintf("status %d (latency=%v)", resp.StatusCode, latency), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "storefront", "appdetails", "read body", err)
	}

	var payload map[string]appDetailsEntry
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", services.Wrap(services.ErrMalformed, "storefront", "appdetails", "decode response", err)
	}

	entry, ok := payload[strconv.FormatInt(appID, 10)]
	if !ok || !entry.Success {
		return "", services.Wrap(services.ErrNotFound, "storefront", "appdetails", fmt.Sprintf("no entry for app %d", appID), nil)
	}
	name := strings.TrimSpace(entry.Data.Name)
	if name == "" {
		return "", services.Wrap(services.ErrMalformed, "storefront", "appdetails", fmt.Sprintf("empty name for app %d", appID), nil)
	}

	c.logger.Debug("storefront name fetched",
		logging.Int64(logging.FieldStorefrontID, appID),
		logging.String("name", name),
		logging.Duration("latency", latency))
	return name, nil
}
