package hltb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"golang.org/x/time/rate"

	"playtime/internal/logging"
	"playtime/internal/services"
)

// requestTimeout is the fixed per-call HTTP timeout. There is no cross-call
// deadline propagation; background refreshes run to completion under it.
const requestTimeout = 10 * time.Second

// userLibraryPath is the bulk-import endpoint accepting a storefront user
// identifier.
const userLibraryPath = "/api/user/games/list"

// searchPageSize bounds how many ranked candidates a search returns.
const searchPageSize = 20

// nullBody is the literal payload the catalog uses to signal "no data
// available", e.g. for a private profile.
var nullBody = []byte("null")

// Client performs authenticated calls against the catalog API. Outcomes are
// classified at this boundary: transport failure, non-2xx status, or
// malformed payload. No retries happen here.
type Client struct {
	session    *Session
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	logger     *slog.Logger
}

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

// WithRateLimit overrides the default request rate limit.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond > 0 && burst > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// NewClient creates a catalog client bound to the provided session.
func NewClient(session *Session, userAgent string, logger *slog.Logger, opts ...Option) (*Client, error) {
	if session == nil {
		return nil, errors.New("session required")
	}
	c := &Client{
		session:    session,
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(4), 2),
		userAgent:  strings.TrimSpace(userAgent),
		logger:     logging.NewComponentLogger(logger, "hltb"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// searchRequest mirrors the catalog's free-text search body.
type searchRequest struct {
	SearchType    string        `json:"searchType"`
	SearchTerms   []string      `json:"searchTerms"`
	SearchPage    int           `json:"searchPage"`
	Size          int           `json:"size"`
	SearchOptions searchOptions `json:"searchOptions"`
}

type searchOptions struct {
	Games struct {
		UserID       int64  `json:"userId"`
		Platform     string `json:"platform"`
		SortCategory string `json:"sortCategory"`
	} `json:"games"`
	Filter string `json:"filter"`
	Sort   int    `json:"sort"`
}

// Search issues a free-text query and returns the ranked candidate list in
// the API's own relevance order. An empty list is a valid outcome, not an
// error.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrMalformed, "catalog", "search", "query must not be empty", nil)
	}

	endpoint := c.session.Endpoint(ctx)
	if token, err := c.session.Token(ctx); err == nil && token != "" {
		endpoint += "/" + token
	}

	req := searchRequest{
		SearchType:  "games",
		SearchTerms: strings.Fields(query),
		SearchPage:  1,
		Size:        searchPageSize,
	}
	req.SearchOptions.Games.SortCategory = "popular"

	body, err := c.post(ctx, "search", endpoint, req)
	if err != nil {
		return nil, err
	}

	var payload searchResponse
	if err := decodeBody(body, &payload); err != nil {
		return nil, services.Wrap(services.ErrMalformed, "catalog", "search", "decode response", err)
	}

	results := make([]SearchResult, 0, len(payload.Data))
	for _, game := range payload.Data {
		results = append(results, SearchResult{Record: game.record()})
	}
	return results, nil
}

// GameDetail fetches a single record by catalog ID via the direct-fetch
// endpoint. The endpoint requires the dynamically discovered build segment;
// without it the call fails as retrievable.
func (c *Client) GameDetail(ctx context.Context, catalogID int64) (*GameRecord, error) {
	if catalogID <= 0 {
		return nil, services.Wrap(services.ErrMalformed, "catalog", "detail", "catalog id must be positive", nil)
	}
	buildID, err := c.session.BuildID(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/_next/data/%s/game/%d.json", c.session.BaseURL(), buildID, catalogID)
	body, err := c.get(ctx, "detail", url)
	if err != nil {
		return nil, err
	}

	var payload detailResponse
	if err := decodeBody(body, &payload); err != nil {
		return nil, services.Wrap(services.ErrMalformed, "catalog", "detail", "decode response", err)
	}
	games := payload.PageProps.Game.Data.Game
	if len(games) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "detail", fmt.Sprintf("no record for catalog id %d", catalogID), nil)
	}
	record := games[0].record()
	return &record, nil
}

// libraryRequest is the bulk-import body carrying the storefront user
// identifier.
type libraryRequest struct {
	UserID   int64  `json:"userId"`
	Platform string `json:"platform"`
}

// UserLibrary fetches the storefront-to-catalog mapping for a user's
// library. A literal null payload means the profile is private or
// inaccessible; the API does not distinguish that from an empty library.
func (c *Client) UserLibrary(ctx context.Context, userID int64) ([]LibraryMapping, error) {
	if userID <= 0 {
		return nil, services.Wrap(services.ErrMalformed, "catalog", "import", "user id must be positive", nil)
	}

	body, err := c.post(ctx, "import", c.session.BaseURL()+userLibraryPath, libraryRequest{UserID: userID, Platform: "steam"})
	if err != nil {
		return nil, err
	}
	if isNullBody(body) {
		return nil, services.Wrap(services.ErrPrivateSource, "catalog", "import", fmt.Sprintf("no data for user %d", userID), nil)
	}

	var payload libraryResponse
	if err := decodeBody(body, &payload); err != nil {
		return nil, services.Wrap(services.ErrMalformed, "catalog", "import", "decode response", err)
	}

	mappings := make([]LibraryMapping, 0, len(payload.Data))
	for _, entry := range payload.Data {
		if entry.SteamID <= 0 || entry.GameID <= 0 {
			continue
		}
		mappings = append(mappings, LibraryMapping{
			StorefrontID: entry.SteamID,
			CatalogID:    entry.GameID,
			Title:        strings.TrimSpace(entry.GameName),
		})
	}
	return mappings, nil
}

func (c *Client) post(ctx context.Context, operation, url string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, services.Wrap(services.ErrMalformed, "catalog", operation, "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "catalog", operation, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(operation, req)
}

func (c *Client) get(ctx context.Context, operation, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "catalog", operation, "build request", err)
	}
	return c.do(operation, req)
}

func (c *Client) do(operation string, req *http.Request) ([]byte, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, services.Wrap(services.ErrTransport, "catalog", operation, "rate limiter", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Referer", c.session.BaseURL()+"/")
	req.Header.Set("Origin", c.session.BaseURL())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "catalog", operation, fmt.Sprintf("latency=%v", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusNotFound {
			// A rotated endpoint looks like a 404; force re-discovery.
			c.session.Invalidate()
		}
		return nil, services.Wrap(services.ErrUpstream, "catalog", operation, fmt.Sprintf("status %d (latency=%v)", resp.StatusCode, latency), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "catalog", operation, "read body", err)
	}

	c.logger.Debug("catalog call complete",
		logging.String("operation", operation),
		logging.Int("status", resp.StatusCode),
		logging.Duration("latency", latency))
	return body, nil
}

func isNullBody(body []byte) bool {
	return bytes.Equal(bytes.TrimSpace(body), nullBody)
}

func decodeBody(body []byte, v any) error {
	if isNullBody(body) || len(bytes.TrimSpace(body)) == 0 {
		return errors.New("empty or null payload")
	}
	return json.Unmarshal(body, v)
}
