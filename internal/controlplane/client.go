package controlplane

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"e2ectl/internal/platform"
)

// reasonLimit caps how much of an error response body is surfaced as the
// failure reason.
const reasonLimit = 512

// Client is a thin synchronous client for the platform's HTTP control plane.
// Every method performs a single request/response round trip; a non-success
// status is returned as a *platform.ControlPlaneError, never a panic.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a control plane client for the given base URL, e.g.
// "http://localhost". The timeout bounds each round trip in addition to any
// deadline carried by the per-call context.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type credentialsRequest struct {
	Email    string `json:"Email"`
	Password string `json:"Password"`
}

type createUserRequest struct {
	FullName string `json:"FullName"`
	Email    string `json:"Email"`
	Password string `json:"Password"`
}

type createThingRequest struct {
	Name string `json:"Name"`
	Key  string `json:"Key"`
}

type tokenResponse struct {
	Token string `json:"Token"`
}

type idResponse struct {
	Id string `json:"Id"`
}

// LoginAdmin authenticates the platform administrator and returns an
// admin-scoped bearer token.
func (c *Client) LoginAdmin(ctx context.Context, email, password string) (string, error) {
	var resp tokenResponse
	err := c.doJSON(ctx, "loginAdmin", http.MethodPost, "/users/login/admin", "",
		credentialsRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}

// LoginUser authenticates a regular user and returns a user-scoped token.
func (c *Client) LoginUser(ctx context.Context, email, password string) (string, error) {
	var resp tokenResponse
	err := c.doJSON(ctx, "loginUser", http.MethodPost, "/users/login", "",
		credentialsRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}

// CreateUser creates a user and returns its id. Creation is not idempotent:
// calling it twice creates two identities.
func (c *Client) CreateUser(ctx context.Context, adminToken, name, email, password string) (string, error) {
	var resp idResponse
	err := c.doJSON(ctx, "createUser", http.MethodPost, "/users/", adminToken,
		createUserRequest{FullName: name, Email: email, Password: password}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Id, nil
}

// DeleteUser deletes a user by id and returns the deleted id. The platform's
// behavior on double-delete is not guaranteed; callers own the retry policy.
func (c *Client) DeleteUser(ctx context.Context, adminToken, userID string) (string, error) {
	var resp idResponse
	err := c.doJSON(ctx, "deleteUser", http.MethodDelete, "/users/"+url.PathEscape(userID), adminToken, nil, &resp)
	if err != nil {
		return "", err
	}
	return resp.Id, nil
}

// FindUserByEmail looks a user up by email and returns its id.
func (c *Client) FindUserByEmail(ctx context.Context, adminToken, email string) (string, error) {
	var resp idResponse
	err := c.doJSON(ctx, "findUserByEmail", http.MethodGet, "/users/email/"+url.PathEscape(email), adminToken, nil, &resp)
	if err != nil {
		return "", err
	}
	return resp.Id, nil
}

// CreateThing registers a thing under the calling user and returns its id.
func (c *Client) CreateThing(ctx context.Context, userToken, name, key string) (string, error) {
	var resp idResponse
	err := c.doJSON(ctx, "createThing", http.MethodPost, "/things/", userToken,
		createThingRequest{Name: name, Key: key}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Id, nil
}

// DeleteThing deletes a thing by id and returns the deleted id.
func (c *Client) DeleteThing(ctx context.Context, userToken, thingID string) (string, error) {
	var resp idResponse
	err := c.doJSON(ctx, "deleteThing", http.MethodDelete, "/things/"+url.PathEscape(thingID), userToken, nil, &resp)
	if err != nil {
		return "", err
	}
	return resp.Id, nil
}

// GetThingToken fetches the device-scoped token for a thing.
func (c *Client) GetThingToken(ctx context.Context, userToken, thingID string) (string, error) {
	var resp tokenResponse
	err := c.doJSON(ctx, "getThingToken", http.MethodGet, "/things/"+url.PathEscape(thingID)+"/token", userToken, nil, &resp)
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}

// doJSON performs one JSON round trip. A nil body sends no payload; a nil
// out skips decoding. authToken, when non-empty, is sent verbatim in the
// Authorization header (the platform uses raw bearer tokens, no scheme
// prefix).
func (c *Client) doJSON(ctx context.Context, operation, method, path, authToken string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &platform.ProtocolError{Op: operation + " encode request", Err: err}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("%s: building request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &platform.TransportError{Op: operation, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &platform.ControlPlaneError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Reason:     readReason(resp),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &platform.ProtocolError{Op: operation + " decode response", Err: err}
		}
	}
	return nil
}

// readReason extracts a human-readable failure reason from an error
// response, falling back to the standard status text.
func readReason(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, reasonLimit))
	reason := strings.TrimSpace(string(data))
	if err != nil || reason == "" {
		return http.StatusText(resp.StatusCode)
	}
	return reason
}
