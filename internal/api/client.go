// Package api is the HTTP client for the shipping-comparison backend. It
// owns wire shapes and status-code handling; normalization and ranking live
// in internal/compare.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/alex-user-go/shipcompare/internal/compare"
)

// maxBodySize bounds how much of a response body is read.
const maxBodySize = 4 << 20

// TokenSource supplies the bearer token for outgoing requests and is told to
// drop the session when the backend answers 401.
type TokenSource interface {
	// Token returns the current bearer token, or "" when logged out.
	Token() string
	// Invalidate clears the stored session after an authorization failure.
	Invalidate()
}

// User is the backend's account profile.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Plan      string `json:"plan"`
	CreatedAt string `json:"createdAt"`
}

// AuthResponse is the result of a successful login or registration.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// DeliveryData is one raw delivery-data row, as served by the admin/data
// endpoints.
type DeliveryData struct {
	ID                    string           `json:"id"`
	RetailerID            string           `json:"retailerId"`
	CountryID             string           `json:"countryId"`
	Method                string           `json:"method"`
	Cost                  string           `json:"cost"`
	Duration              string           `json:"duration"`
	FreeShippingThreshold string           `json:"freeShippingThreshold,omitempty"`
	Carrier               string           `json:"carrier,omitempty"`
	AdditionalNotes       string           `json:"additionalNotes,omitempty"`
	Retailer              *compare.Retailer `json:"retailer,omitempty"`
	Country               *compare.Country  `json:"country,omitempty"`
}

// DeliveryDataFilters narrows a delivery-data listing.
type DeliveryDataFilters struct {
	RetailerID string
	CountryID  string
	Method     string
}

// UploadResponse reports the outcome of a CSV import.
type UploadResponse struct {
	Message string `json:"message"`
	Created int    `json:"created,omitempty"`
	Updated int    `json:"updated,omitempty"`
	Total   int    `json:"total,omitempty"`
}

// Client talks to the backend REST API. All methods take a context and issue
// exactly one attempt; retry policy belongs to callers.
type Client struct {
	baseURL string
	httpc   *http.Client
	tokens  TokenSource
	logger  *slog.Logger
}

// New creates a Client for the given base URL (including the /api prefix).
func New(baseURL string, timeout time.Duration, tokens TokenSource, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   newHTTPClient(timeout),
		tokens:  tokens,
		logger:  logger,
	}
}

// newHTTPClient builds an http.Client with a tuned transport: connection
// pooling and per-phase timeouts on top of the overall request timeout.
func newHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}
}

// Login exchanges credentials for a token and profile.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var out AuthResponse
	if err := c.post(ctx, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns its first session.
func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	body := map[string]string{"name": name, "email": email, "password": password}
	var out AuthResponse
	if err := c.post(ctx, "/auth/register", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout invalidates the session server-side. The local session is the
// caller's to clear.
func (c *Client) Logout(ctx context.Context) error {
	return c.post(ctx, "/auth/logout", struct{}{}, nil)
}

// Me fetches the profile for the current token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.get(ctx, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Retailers lists all retailers.
func (c *Client) Retailers(ctx context.Context) ([]compare.Retailer, error) {
	var out struct {
		Retailers []compare.Retailer `json:"retailers"`
	}
	if err := c.get(ctx, "/retailers", nil, &out); err != nil {
		return nil, err
	}
	return out.Retailers, nil
}

// SearchRetailers lists retailers matching a search query.
func (c *Client) SearchRetailers(ctx context.Context, search string) ([]compare.Retailer, error) {
	q := url.Values{}
	q.Set("search", search)
	var out struct {
		Retailers []compare.Retailer `json:"retailers"`
	}
	if err := c.get(ctx, "/retailers", q, &out); err != nil {
		return nil, err
	}
	return out.Retailers, nil
}

// RetailerByID fetches one retailer.
func (c *Client) RetailerByID(ctx context.Context, id string) (*compare.Retailer, error) {
	var out struct {
		Retailer compare.Retailer `json:"retailer"`
	}
	if err := c.get(ctx, "/retailers/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Retailer, nil
}

// Countries lists all destination countries.
func (c *Client) Countries(ctx context.Context) ([]compare.Country, error) {
	var out struct {
		Countries []compare.Country `json:"countries"`
	}
	if err := c.get(ctx, "/countries", nil, &out); err != nil {
		return nil, err
	}
	return out.Countries, nil
}

// CountryByID fetches one country.
func (c *Client) CountryByID(ctx context.Context, id string) (*compare.Country, error) {
	var out struct {
		Country compare.Country `json:"country"`
	}
	if err := c.get(ctx, "/countries/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Country, nil
}

// DeliveryData lists raw delivery data rows, optionally filtered.
func (c *Client) DeliveryData(ctx context.Context, filters DeliveryDataFilters) ([]DeliveryData, error) {
	q := url.Values{}
	if filters.RetailerID != "" {
		q.Set("retailerId", filters.RetailerID)
	}
	if filters.CountryID != "" {
		q.Set("countryId", filters.CountryID)
	}
	if filters.Method != "" {
		q.Set("method", filters.Method)
	}
	var out struct {
		DeliveryData []DeliveryData `json:"deliveryData"`
	}
	if err := c.get(ctx, "/delivery-data", q, &out); err != nil {
		return nil, err
	}
	return out.DeliveryData, nil
}

// UploadCSV streams a CSV file to the bulk import endpoint as the multipart
// form field "file". The file content is opaque to the client.
func (c *Client) UploadCSV(ctx context.Context, path string) (*UploadResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("build multipart form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finish multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload/csv", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var out UploadResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// do executes a request, attaching the bearer token when present, and
// decodes a 2xx JSON body into out. A 401 clears the session before the
// AuthError is returned; 401s are never retried.
func (c *Client) do(req *http.Request, out any) error {
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return classifyTransport(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(req, resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

func (c *Client) statusError(req *http.Request, status int, body []byte) error {
	var apiBody struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &apiBody)

	switch status {
	case http.StatusUnauthorized:
		c.logger.Warn("session rejected, clearing stored token",
			"method", req.Method,
			"path", req.URL.Path,
		)
		c.tokens.Invalidate()
		return AuthError{Status: status, Message: apiBody.Message}
	case http.StatusForbidden:
		return AuthError{Status: status, Message: apiBody.Message}
	default:
		return APIError{Status: status, Message: apiBody.Message}
	}
}
