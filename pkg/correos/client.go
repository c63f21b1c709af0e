// Package correos looks up postal codes by posting directly to the Correos
// de Chile portlet resource endpoint, without a browser.
//
// A lookup is two requests: a GET of the public page to collect the session
// cookies and the Liferay auth token, then a form POST carrying both.
package correos

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/entrhq/postal-lookup/pkg/lookup"
)

const (
	// DefaultSessionTimeout bounds the session page GET
	DefaultSessionTimeout = 10 * time.Second
	// DefaultRequestTimeout bounds the lookup POST
	DefaultRequestTimeout = 15 * time.Second

	resourceID = "COOKIES_RESOURCE_ACTION"
	command    = "CMD_ADD_COOKIE"
)

// SessionCookies are the cookies forwarded from the session page, in order.
var SessionCookies = []string{"__uzma", "__uzmb", "__uzme", "JSESSIONID", "SERVER_ID"}

// staticCookies are appended to every lookup request.
const staticCookies = "COOKIE_SUPPORT=true; GUEST_LANGUAGE_ID=es_ES"

// Session holds what the lookup POST needs from the public page.
type Session struct {
	Cookies   map[string]string
	AuthToken string
}

// CookieHeader joins the forwarded cookies and the static ones.
func (s *Session) CookieHeader() string {
	parts := make([]string, 0, len(SessionCookies)+1)
	for _, name := range SessionCookies {
		if v := s.Cookies[name]; v != "" {
			parts = append(parts, name+"="+v)
		}
	}
	parts = append(parts, staticCookies)
	return strings.Join(parts, "; ")
}

// Client performs HTTP lookups.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	portletID      string
	sessionTimeout time.Duration
	requestTimeout time.Duration
	log            lookup.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for both requests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithBaseURL sets the public page URL.
func WithBaseURL(u string) Option {
	return func(cl *Client) {
		cl.baseURL = u
	}
}

// WithPortletID sets the portlet instance id used to namespace form fields.
func WithPortletID(id string) Option {
	return func(cl *Client) {
		cl.portletID = id
	}
}

// WithTimeouts sets the session and request timeouts. Zero keeps the default.
func WithTimeouts(session, request time.Duration) Option {
	return func(cl *Client) {
		if session > 0 {
			cl.sessionTimeout = session
		}
		if request > 0 {
			cl.requestTimeout = request
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l lookup.Logger) Option {
	return func(cl *Client) {
		cl.log = l
	}
}

// NewClient creates a client for the live Correos page.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:     http.DefaultClient,
		baseURL:        lookup.DefaultURL,
		portletID:      lookup.PortletID,
		sessionTimeout: DefaultSessionTimeout,
		requestTimeout: DefaultRequestTimeout,
		log:            lookup.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchSession loads the public page and collects cookies and the auth token.
// A page without a token yields a Session with an empty AuthToken.
func (c *Client) FetchSession(ctx context.Context) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, c.sessionTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("request failed: unexpected status %s", resp.Status)
	}

	session := &Session{Cookies: make(map[string]string, len(SessionCookies))}
	for _, ck := range resp.Cookies() {
		for _, name := range SessionCookies {
			if ck.Name == name {
				session.Cookies[name] = ck.Value
			}
		}
	}

	token, err := extractAuthToken(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read session page: %w", err)
	}
	session.AuthToken = token
	return session, nil
}

// ResourceURL is the endpoint the lookup form posts to.
func (c *Client) ResourceURL() string {
	q := url.Values{}
	q.Set("p_p_id", c.portletID)
	q.Set("p_p_lifecycle", "2")
	q.Set("p_p_state", "normal")
	q.Set("p_p_mode", "view")
	q.Set("p_p_resource_id", resourceID)
	q.Set("p_p_cacheability", "cacheLevelPage")
	q.Set(c.namespace()+"cmd", command)
	return c.baseURL + "?" + q.Encode()
}

func (c *Client) namespace() string {
	return "_" + c.portletID + "_"
}

// Lookup resolves req to a postal code. Every failure is reported in the
// Result; nothing is returned as a Go error.
func (c *Client) Lookup(ctx context.Context, req lookup.Request) lookup.Result {
	c.log.Infof("Lookup started for commune='%s', street='%s', number='%s'", req.Commune, req.Street, req.Number)
	if err := req.Validate(); err != nil {
		return lookup.Failure(err.Error())
	}
	norm := req.Normalized()

	session, err := c.FetchSession(ctx)
	if err != nil {
		c.log.Errorf("Failed to fetch initial session data: %v", err)
		return lookup.Failure("Failed to fetch initial session data: " + err.Error())
	}
	c.log.Debugf("Session data retrieved: %d cookies", len(session.Cookies))

	if session.AuthToken == "" {
		c.log.Errorf("authToken not found in response")
		return lookup.Failure("authToken not found in response")
	}

	body, err := c.post(ctx, session, norm)
	if err != nil {
		c.log.Errorf("Request failed: %v", err)
		return lookup.Failure("Request failed: " + err.Error())
	}
	c.log.Debugf("Response JSON: %s", body)

	code, err := parsePostalCode(body)
	if err != nil {
		return lookup.Failure("Unexpected error: " + err.Error())
	}
	if code == "" {
		return lookup.Failure(strings.TrimSpace(string(body)))
	}

	c.log.Infof("Postal code retrieved: %s", code)
	return lookup.Success(code)
}

func (c *Client) post(ctx context.Context, session *Session, req lookup.Request) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	ns := c.namespace()
	form := url.Values{}
	form.Set(ns+"comuna", req.Commune)
	form.Set(ns+"calle", req.Street)
	form.Set(ns+"numero", req.Number)
	form.Set("p_auth", session.AuthToken)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ResourceURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Cookie", session.CookieHeader())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return body, nil
}

type lookupResponse struct {
	Direcciones []struct {
		CodPostal codeValue `json:"codPostal"`
	} `json:"direcciones"`
	CurrentDir string `json:"currentDir"`
}

// codeValue accepts a postal code encoded as a JSON string or number.
type codeValue string

func (v *codeValue) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*v = codeValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("codPostal: %w", err)
	}
	*v = codeValue(n.String())
	return nil
}

// parsePostalCode reads direcciones[0].codPostal, falling back to the
// JSON-encoded currentDir object. An empty code means neither was present.
func parsePostalCode(body []byte) (string, error) {
	var resp lookupResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(resp.Direcciones) > 0 && resp.Direcciones[0].CodPostal != "" {
		return string(resp.Direcciones[0].CodPostal), nil
	}

	if resp.CurrentDir != "" {
		var dir struct {
			CodPostal codeValue `json:"codPostal"`
		}
		if err := json.Unmarshal([]byte(resp.CurrentDir), &dir); err != nil {
			return "", fmt.Errorf("failed to decode currentDir: %w", err)
		}
		return string(dir.CodPostal), nil
	}
	return "", nil
}
