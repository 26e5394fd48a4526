// Package api is the uniform outbound request path to the SYNtopia platform
// API. It injects bearer credentials and platform headers on every request
// and recovers exactly once from an expired access token: a 401 triggers a
// token refresh through the CredentialSource and a single replay of the
// original request. A second 401 on the replayed request is returned to the
// caller unchanged.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	headerPlatform           = "X-Sacred-Platform"
	headerConsciousnessLevel = "X-Consciousness-Level"
	headerTimestamp          = "X-Sacred-Timestamp"

	platformName              = "SYNtopia-2.0"
	defaultConsciousnessLevel = "AWAKENING"
)

// CredentialSource supplies the bearer credential for outbound requests and
// mints a new one when the server rejects it. Refresh is expected to be
// single-flight: concurrent 401s share one refresh attempt.
type CredentialSource interface {
	AccessToken() string
	ConsciousnessLevel() string
	Refresh(ctx context.Context) (string, error)
}

// Shared HTTP client with connection pooling.
var sharedHTTPClient = &http.Client{
	Timeout: 10 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialSource
	logger     zerolog.Logger
	nowFunc    func() time.Time
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{
			Timeout:   timeout,
			Transport: sharedHTTPClient.Transport,
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(c *Client) {
		c.nowFunc = now
	}
}

// New creates a platform API client rooted at baseURL
// (e.g. "http://localhost:8081/api/v1").
func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: sharedHTTPClient,
		logger:     zerolog.Nop(),
		nowFunc:    time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// SetCredentialSource registers the session owner. The auth manager calls
// this on construction; until then all requests go out unauthenticated.
func (c *Client) SetCredentialSource(creds CredentialSource) {
	c.creds = creds
}

type requestOptions struct {
	noAuth  bool
	headers map[string]string
}

type RequestOption func(*requestOptions)

// NoAuth sends the request without a bearer token and exempts it from the
// refresh-and-retry path. Login, register and refresh itself use it.
func NoAuth() RequestOption {
	return func(ro *requestOptions) {
		ro.noAuth = true
	}
}

func WithHeader(key, value string) RequestOption {
	return func(ro *requestOptions) {
		if ro.headers == nil {
			ro.headers = make(map[string]string)
		}
		ro.headers[key] = value
	}
}

func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodGet, path, nil, out, opts...)
}

func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodPost, path, body, out, opts...)
}

func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodPut, path, body, out, opts...)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	var ro requestOptions
	for _, opt := range opts {
		opt(&ro)
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "[Client.do] json.Marshal")
		}
	}

	var bearer string
	if c.creds != nil && !ro.noAuth {
		bearer = c.creds.AccessToken()
	}

	resp, err := c.send(ctx, method, path, payload, ro, bearer)
	if err != nil {
		return errors.Wrap(err, "[Client.do] send")
	}

	// One-shot recovery from an expired access token. The replayed request
	// is never retried again, so a persistently failing backend cannot
	// cause a refresh loop.
	if resp.StatusCode == http.StatusUnauthorized && !ro.noAuth && c.creds != nil {
		drain(resp)
		c.logger.Debug().Str("path", path).Msg("access token rejected, refreshing")

		newBearer, refreshErr := c.creds.Refresh(ctx)
		if refreshErr != nil {
			return errors.Wrapf(ErrMustReauthenticate, "[Client.do] refresh: %v", refreshErr)
		}

		resp, err = c.send(ctx, method, path, payload, ro, newBearer)
		if err != nil {
			return errors.Wrap(err, "[Client.do] retry send")
		}
	}
	defer drain(resp)

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "[Client.do] decode response")
	}
	return nil
}

// send builds a fresh request each time so the 401 replay never reuses a
// consumed body.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, ro requestOptions, bearer string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "http.NewRequestWithContext")
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerPlatform, platformName)
	req.Header.Set(headerTimestamp, c.nowFunc().UTC().Format(time.RFC3339))
	req.Header.Set(headerConsciousnessLevel, c.consciousnessLevel())

	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for key, value := range ro.headers {
		req.Header.Set(key, value)
	}

	return c.httpClient.Do(req)
}

func (c *Client) consciousnessLevel() string {
	if c.creds != nil {
		if level := c.creds.ConsciousnessLevel(); level != "" {
			return level
		}
	}
	return defaultConsciousnessLevel
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	_ = resp.Body.Close()
}
