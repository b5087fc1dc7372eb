package scratch

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/KidsLabDe/ScratchBackendCLI/pkg/auth"
	"github.com/KidsLabDe/ScratchBackendCLI/pkg/config"
	"github.com/KidsLabDe/ScratchBackendCLI/pkg/errors"
	"github.com/KidsLabDe/ScratchBackendCLI/pkg/logger"
	"github.com/KidsLabDe/ScratchBackendCLI/pkg/ratelimit"
	"github.com/KidsLabDe/ScratchBackendCLI/pkg/retry"
)

const (
	sessionCookieName = "scratchsessionsid"
	csrfCookieName    = "scratchcsrftoken"
)

// Client talks to the Scratch web services. It carries a cookie jar for
// the session and CSRF cookies, throttles requests and retries
// transient failures.
type Client struct {
	httpClient *http.Client
	endpoints  Endpoints
	headers    map[string]string
	limiter    ratelimit.Limiter
	retrier    *retry.Retrier
	logger     logger.Logger

	mu      sync.RWMutex
	session *auth.Session
}

// NewClient creates a client from the CLI configuration.
func NewClient(cfg *config.Config, log logger.Logger) (*Client, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logger.GetLogger()
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	rpm := cfg.RateLimit.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}

	retryCfg := retry.FromConfig(&cfg.Retry)
	retryCfg.Logger = log

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Download.Timeout,
			Jar:     jar,
		},
		endpoints: DefaultEndpoints(),
		headers: map[string]string{
			"User-Agent":       cfg.Scratch.UserAgent,
			"Accept":           "application/json, text/plain, */*",
			"Accept-Language":  "en-US,en;q=0.9",
			"X-Requested-With": "XMLHttpRequest",
		},
		limiter: ratelimit.NewTokenBucket(rpm, time.Minute),
		retrier: retry.NewRetrier(retryCfg),
		logger:  log,
	}, nil
}

// SetEndpoints overrides the service base URLs. Used by tests.
func (c *Client) SetEndpoints(e Endpoints) {
	c.endpoints = e
}

// Endpoints returns the service base URLs in use.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// SetHeader sets a default header sent with every request.
func (c *Client) SetHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers[key] = value
}

// SetSession attaches a stored session to the client. The session
// cookie is planted in the jar so site API requests authenticate, and
// the API token is sent as X-Token where endpoints expect it.
func (c *Client) SetSession(s *auth.Session) error {
	if s == nil {
		return auth.ErrInvalidSession
	}

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	if s.SessionID == "" {
		return nil
	}
	base, err := url.Parse(c.endpoints.Base)
	if err != nil {
		return fmt.Errorf("parsing base URL: %w", err)
	}
	c.httpClient.Jar.SetCookies(base, []*http.Cookie{{
		Name:  sessionCookieName,
		Value: s.SessionID,
		Path:  "/",
	}})
	return nil
}

// Session returns the attached session, or nil.
func (c *Client) Session() *auth.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.Token
}

// doRequest performs a single HTTP request with default headers, rate
// limiting and status checking. Callers own the response body.
func (c *Client) doRequest(ctx context.Context, method, rawURL string, body io.Reader, headers map[string]string) (*http.Response, error) {
	c.limiter.Wait()

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, errors.New(errors.ErrorTypeUnknown, 0, "creating request: %v", err)
	}

	c.mu.RLock()
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	c.mu.RUnlock()
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	c.logger.DebugWithFields("http request", map[string]interface{}{
		"method": method,
		"url":    rawURL,
	})

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Debug("http request failed")
		return nil, errors.New(errors.ErrorTypeNetwork, 0, "request failed: %v", err)
	}

	c.logger.DebugWithFields("http response", map[string]interface{}{
		"method":      method,
		"url":         rawURL,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if err := c.checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// checkResponseStatus maps HTTP failure statuses to typed errors.
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return errors.New(errors.ErrorTypeRateLimit, resp.StatusCode, "rate limited by server")
	case resp.StatusCode == http.StatusUnauthorized:
		return errors.New(errors.ErrorTypeAuth, resp.StatusCode, "authentication required")
	case resp.StatusCode == http.StatusForbidden:
		return errors.New(errors.ErrorTypeForbidden, resp.StatusCode, "access forbidden")
	case resp.StatusCode == http.StatusNotFound:
		return errors.New(errors.ErrorTypeNotFound, resp.StatusCode, "resource not found")
	case resp.StatusCode >= 500:
		return errors.New(errors.ErrorTypeServerError, resp.StatusCode, "server error")
	default:
		return errors.New(errors.ErrorTypeUnknown, resp.StatusCode, "unexpected status %s", resp.Status)
	}
}

// getBytes fetches a URL and returns the body, retrying transient
// failures.
func (c *Client) getBytes(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	retrier := c.retrier.WithContext(ctx)
	var data []byte
	err := retrier.Do(func() error {
		resp, err := c.doRequest(ctx, http.MethodGet, rawURL, nil, headers)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return errors.New(errors.ErrorTypeNetwork, 0, "reading response body: %v", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// getJSON fetches a URL and decodes the JSON body into result.
func (c *Client) getJSON(ctx context.Context, rawURL string, headers map[string]string, result interface{}) error {
	data, err := c.getBytes(ctx, rawURL, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, result); err != nil {
		return errors.New(errors.ErrorTypeParsing, 0, "decoding response from %s: %v", rawURL, err)
	}
	return nil
}

// postJSON sends a JSON payload and returns the response body.
func (c *Client) postJSON(ctx context.Context, rawURL string, payload interface{}, headers map[string]string) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.New(errors.ErrorTypeUnknown, 0, "encoding request body: %v", err)
	}

	hdrs := map[string]string{"Content-Type": "application/json"}
	for k, v := range headers {
		hdrs[k] = v
	}

	resp, err := c.doRequest(ctx, http.MethodPost, rawURL, bytes.NewReader(body), hdrs)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.New(errors.ErrorTypeNetwork, 0, "reading response body: %v", err)
	}
	return data, nil
}

// tokenHeaders builds the headers for API endpoints that authenticate
// with the session token.
func (c *Client) tokenHeaders() map[string]string {
	headers := map[string]string{}
	if t := c.token(); t != "" {
		headers["X-Token"] = t
	}
	return headers
}

// FetchUser fetches a public user profile.
func (c *Client) FetchUser(ctx context.Context, username string) (*User, error) {
	var user User
	if err := c.getJSON(ctx, c.endpoints.UserURL(username), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ValidateSession checks the attached session against the API. A nil
// error means the session is usable.
func (c *Client) ValidateSession(ctx context.Context) error {
	s := c.Session()
	if s == nil || s.Username == "" {
		return auth.ErrInvalidSession
	}
	_, err := c.FetchUser(ctx, s.Username)
	return err
}

// ListProjects lists the projects of the attached session's account.
// The site API is tried first because it includes unshared projects;
// when it is unavailable the public listing of shared projects is used
// instead. At most limit projects are returned, 0 meaning no cap.
func (c *Client) ListProjects(ctx context.Context, limit int) ([]Project, error) {
	s := c.Session()
	if s == nil {
		return nil, auth.ErrInvalidSession
	}

	projects, err := c.listMyStuff(ctx, limit)
	if err == nil {
		return projects, nil
	}
	c.logger.WithError(err).Warn("site API listing failed, falling back to public listing")

	return c.listShared(ctx, s.Username, limit)
}

func (c *Client) listMyStuff(ctx context.Context, limit int) ([]Project, error) {
	var projects []Project
	for page := 1; ; page++ {
		var raw []myStuffProject
		headers := map[string]string{"Referer": c.endpoints.Base + "/mystuff/"}
		if err := c.getJSON(ctx, c.endpoints.MyStuffURL(page), headers, &raw); err != nil {
			// The site API 404s past the last page.
			var apiErr *errors.Error
			if stderrors.As(err, &apiErr) && apiErr.Type == errors.ErrorTypeNotFound && page > 1 {
				break
			}
			return nil, err
		}
		if len(raw) == 0 {
			break
		}
		for _, m := range raw {
			projects = append(projects, m.normalize())
			if limit > 0 && len(projects) >= limit {
				return projects, nil
			}
		}
	}
	return projects, nil
}

func (c *Client) listShared(ctx context.Context, username string, limit int) ([]Project, error) {
	const pageSize = 40
	var projects []Project
	for offset := 0; ; offset += pageSize {
		var page []Project
		if err := c.getJSON(ctx, c.endpoints.UserProjectsURL(username, pageSize, offset), nil, &page); err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		for _, p := range page {
			p.Public = true
			projects = append(projects, p)
			if limit > 0 && len(projects) >= limit {
				return projects, nil
			}
		}
	}
	return projects, nil
}

// ProjectMeta fetches the metadata of a project, including the
// manifest access token for unshared projects. Authenticated requests
// carry a fresh CSRF token next to the session token, which is what
// lets own unshared projects resolve.
func (c *Client) ProjectMeta(ctx context.Context, projectID int64) (*Project, error) {
	headers := c.tokenHeaders()
	if _, ok := headers["X-Token"]; ok {
		if csrf, err := c.fetchCSRFToken(ctx); err == nil {
			headers["X-CSRFToken"] = csrf
		}
	}

	var project Project
	if err := c.getJSON(ctx, c.endpoints.ProjectURL(projectID), headers, &project); err != nil {
		return nil, err
	}
	if project.ID == 0 {
		project.ID = projectID
	}
	return &project, nil
}

// ProjectManifest fetches the raw project.json of a project. The
// per-project token from the metadata is preferred; without it the
// session token is offered instead.
func (c *Client) ProjectManifest(ctx context.Context, projectID int64, projectToken string) ([]byte, error) {
	headers := map[string]string{}
	if projectToken == "" {
		headers = c.tokenHeaders()
	}
	data, err := c.getBytes(ctx, c.endpoints.ProjectManifestURL(projectID, projectToken), headers)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) || !strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		return nil, errors.New(errors.ErrorTypeParsing, 0, "project %d returned a non-JSON manifest", projectID)
	}
	return data, nil
}

// DownloadAsset fetches a costume or sound by its md5 file name.
func (c *Client) DownloadAsset(ctx context.Context, name string) ([]byte, error) {
	if !IsValidAssetName(name) {
		return nil, errors.New(errors.ErrorTypeParsing, 0, "invalid asset name %q", name)
	}
	return c.getBytes(ctx, c.endpoints.AssetURL(name), nil)
}
