package scratch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/KidsLabDe/ScratchBackendCLI/pkg/auth"
	"github.com/KidsLabDe/ScratchBackendCLI/pkg/errors"
)

// loginRequest is the JSON body the accounts endpoint expects.
type loginRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	UseMessages bool   `json:"useMessages"`
}

// fetchCSRFToken primes the cookie jar with a fresh scratchcsrftoken
// and returns its value.
func (c *Client) fetchCSRFToken(ctx context.Context) (string, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, c.endpoints.CSRFTokenURL(), nil, nil)
	if err != nil {
		return "", err
	}
	resp.Body.Close()

	token := c.cookieValue(csrfCookieName)
	if token == "" {
		return "", errors.New(errors.ErrorTypeAuth, 0, "no CSRF token cookie received")
	}
	return token, nil
}

// cookieValue returns the named cookie for the base site, or "".
func (c *Client) cookieValue(name string) string {
	base, err := url.Parse(c.endpoints.Base)
	if err != nil {
		return ""
	}
	for _, cookie := range c.httpClient.Jar.Cookies(base) {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

// Login authenticates with username and password and returns the
// resulting session. The password is sent once and never stored; only
// the session cookie and API token are kept.
func (c *Client) Login(ctx context.Context, username, password string) (*auth.Session, error) {
	csrf, err := c.fetchCSRFToken(ctx)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{
		"X-CSRFToken": csrf,
		"Referer":     c.endpoints.Base + "/",
		"Cookie":      csrfCookieName + "=" + csrf,
	}

	body, err := c.postJSON(ctx, c.endpoints.LoginURL(), loginRequest{
		Username:    username,
		Password:    password,
		UseMessages: true,
	}, headers)
	if err != nil {
		return nil, err
	}

	var results []loginResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, errors.New(errors.ErrorTypeParsing, 0, "decoding login response: %v", err)
	}
	if len(results) == 0 {
		return nil, errors.New(errors.ErrorTypeAuth, 0, "empty login response")
	}

	result := results[0]
	if result.Token == "" {
		msg := result.Msg
		if msg == "" {
			msg = "login rejected"
		}
		return nil, errors.New(errors.ErrorTypeAuth, 0, "%s", msg)
	}

	session := &auth.Session{
		Username:     result.Username,
		Token:        result.Token,
		SessionID:    c.cookieValue(sessionCookieName),
		LastModified: time.Now(),
	}
	if session.Username == "" {
		session.Username = username
	}

	if err := c.SetSession(session); err != nil {
		return nil, err
	}

	c.logger.InfoWithFields("logged in", map[string]interface{}{
		"username": session.Username,
	})
	return session, nil
}
