package hltb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"log/slog"

	"playtime/internal/logging"
	"playtime/internal/services"
)

// tokenTTL is the validity window for a discovered search token. Tokens are
// re-fetched when older than this or absent.
const tokenTTL = 5 * time.Minute

// maxBundleBytes caps how much of the client bundle is read during discovery.
const maxBundleBytes = 4 << 20

var (
	appBundleRe   = regexp.MustCompile(`/_next/static/[^"']*?/_app-[^"']+\.js`)
	buildIDRe     = regexp.MustCompile(`"buildId"\s*:\s*"([^"]+)"`)
	searchTokenRe = regexp.MustCompile(`"/api/([a-zA-Z0-9_]+)/"\.concat\("([a-zA-Z0-9]+)"\)(?:\.concat\("([a-zA-Z0-9]+)"\))?`)
)

// Session owns the process-wide discovery state for the catalog API: the
// current search endpoint path, its access token, and the build identifier
// required by the direct-fetch endpoint. Only Session writes these values;
// callers always go through the accessors so a refresh in progress is never
// observed half-written.
type Session struct {
	baseURL      string
	fallbackPath string
	userAgent    string
	httpClient   *http.Client
	logger       *slog.Logger

	mu         sync.Mutex
	token      string
	searchPath string
	buildID    string
	obtainedAt time.Time
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionHTTPClient overrides the HTTP client used for discovery.
func WithSessionHTTPClient(client *http.Client) SessionOption {
	return func(s *Session) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// NewSession creates a discovery session for the catalog at baseURL.
// fallbackPath is the hardcoded search path used when bundle discovery
// fails.
func NewSession(baseURL, fallbackPath, userAgent string, logger *slog.Logger, opts ...SessionOption) (*Session, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("catalog base url required")
	}
	fallbackPath = strings.TrimSpace(fallbackPath)
	if fallbackPath == "" {
		return nil, errors.New("fallback search path required")
	}
	s := &Session{
		baseURL:      baseURL,
		fallbackPath: fallbackPath,
		userAgent:    strings.TrimSpace(userAgent),
		httpClient:   &http.Client{Timeout: requestTimeout},
		logger:       logging.NewComponentLogger(logger, "hltb-session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BaseURL returns the catalog site root.
func (s *Session) BaseURL() string { return s.baseURL }

// Endpoint returns the full search endpoint URL. When discovery has failed
// or not yet run, the hardcoded fallback path is returned so callers can
// still attempt an unauthenticated search.
func (s *Session) Endpoint(ctx context.Context) string {
	_ = s.ensureFresh(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.searchPath
	if path == "" {
		path = s.fallbackPath
	}
	return s.baseURL + path
}

// Token returns the current search token, refreshing it when older than
// tokenTTL or absent. A failed refresh surfaces as an error alongside an
// empty token; the caller may still attempt unauthenticated calls.
func (s *Session) Token(ctx context.Context) (string, error) {
	err := s.ensureFresh(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		if err == nil {
			err = services.Wrap(services.ErrMalformed, "catalog", "discover", "no token in client bundle", nil)
		}
		return "", err
	}
	return s.token, nil
}

// BuildID returns the dynamically discovered path segment required by the
// direct-fetch-by-id endpoint.
func (s *Session) BuildID(ctx context.Context) (string, error) {
	err := s.ensureFresh(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buildID == "" {
		if err == nil {
			err = services.Wrap(services.ErrMalformed, "catalog", "discover", "no build id on site root", nil)
		}
		return "", err
	}
	return s.buildID, nil
}

// Invalidate drops the current discovery state so the next accessor call
// re-runs discovery. Callers use this after an upstream 404, which usually
// means the endpoint rotated under us.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.searchPath = ""
	s.buildID = ""
	s.obtainedAt = time.Time{}
}

func (s *Session) ensureFresh(ctx context.Context) error {
	s.mu.Lock()
	fresh := s.token != "" && time.Since(s.obtainedAt) < tokenTTL
	s.mu.Unlock()
	if fresh {
		return nil
	}

	token, searchPath, buildID, err := s.discover(ctx)
	if err != nil {
		s.logger.Warn("catalog discovery failed, using fallback search path",
			logging.Error(err),
			logging.String("fallback", s.fallbackPath))
		return err
	}

	s.mu.Lock()
	s.token = token
	s.searchPath = searchPath
	s.buildID = buildID
	s.obtainedAt = time.Now()
	s.mu.Unlock()

	s.logger.Debug("catalog discovery complete",
		logging.String("search_path", searchPath),
		logging.String("build_id", buildID))
	return nil
}

// discover fetches the site root, locates the client application bundle,
// and extracts the search path, its token, and the build identifier.
func (s *Session) discover(ctx context.Context) (token, searchPath, buildID string, err error) {
	home, err := s.fetch(ctx, s.baseURL)
	if err != nil {
		return "", "", "", err
	}

	if m := buildIDRe.FindSubmatch(home); m != nil {
		buildID = string(m[1])
	}

	bundlePath := appBundleRe.Find(home)
	if bundlePath == nil {
		return "", "", buildID, services.Wrap(services.ErrMalformed, "catalog", "discover", "app bundle reference not found", nil)
	}

	bundle, err := s.fetch(ctx, s.baseURL+string(bundlePath))
	if err != nil {
		return "", "", buildID, err
	}

	m := searchTokenRe.FindSubmatch(bundle)
	if m == nil {
		return "", "", buildID, services.Wrap(services.ErrMalformed, "catalog", "discover", "search token not found in bundle", nil)
	}
	searchPath = "/api/" + string(m[1])
	token = string(m[2]) + string(m[3])
	return token, searchPath, buildID, nil
}

func (s *Session) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "catalog", "discover", "build request", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "catalog", "discover", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrUpstream, "catalog", "discover", fmt.Sprintf("%s returned %d", url, resp.StatusCode), nil)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBundleBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "catalog", "discover", "read body", err)
	}
	return body, nil
}
