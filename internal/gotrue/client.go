// Package gotrue is a minimal REST client for the hosted auth provider:
// password-grant login, token refresh and the admin user API.
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUnreachable wraps transport-level failures so callers can distinguish
// "the provider is down" (503) from "the provider rejected the request".
var ErrUnreachable = errors.New("auth provider unreachable")

// Error is a non-2xx response from the provider.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("auth provider: %s (status %d)", e.Message, e.Status)
}

type User struct {
	ID           uuid.UUID      `json:"id"`
	Email        string         `json:"email"`
	BannedUntil  *time.Time     `json:"banned_until,omitempty"`
	AppMetadata  map[string]any `json:"app_metadata"`
	UserMetadata map[string]any `json:"user_metadata"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

type Client struct {
	baseURL    string
	anonKey    string
	serviceKey string
	httpClient *http.Client
}

func NewClient(supabaseURL, anonKey, serviceKey string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(supabaseURL, "/") + "/auth/v1",
		anonKey:    anonKey,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SignInWithPassword exchanges email+password for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	err := c.do(ctx, http.MethodPost, "/token?grant_type=password", c.anonKey, "",
		map[string]string{"email": email, "password": password}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// RefreshSession exchanges a refresh token for a fresh session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	var session Session
	err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", c.anonKey, "",
		map[string]string{"refresh_token": refreshToken}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetUser returns the user the access token belongs to.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/user", c.anonKey, accessToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdatePassword changes the password of the user the access token belongs to.
func (c *Client) UpdatePassword(ctx context.Context, accessToken, password string) error {
	return c.do(ctx, http.MethodPut, "/user", c.anonKey, accessToken,
		map[string]string{"password": password}, nil)
}

type CreateUserParams struct {
	Email        string         `json:"email"`
	Password     string         `json:"password,omitempty"`
	EmailConfirm bool           `json:"email_confirm"`
	AppMetadata  map[string]any `json:"app_metadata,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

type UpdateUserParams struct {
	Email       string         `json:"email,omitempty"`
	Password    string         `json:"password,omitempty"`
	BanDuration string         `json:"ban_duration,omitempty"`
	AppMetadata map[string]any `json:"app_metadata,omitempty"`
}

// AdminCreateUser creates a user through the privileged admin API.
func (c *Client) AdminCreateUser(ctx context.Context, params CreateUserParams) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodPost, "/admin/users", c.serviceKey, c.serviceKey, params, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// AdminUpdateUser patches a user record. app_metadata sent here replaces the
// stored object, so callers merge with the current metadata first.
func (c *Client) AdminUpdateUser(ctx context.Context, id uuid.UUID, params UpdateUserParams) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodPut, "/admin/users/"+id.String(), c.serviceKey, c.serviceKey, params, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) AdminGetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/admin/users/"+id.String(), c.serviceKey, c.serviceKey, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

type listUsersResponse struct {
	Users []User `json:"users"`
}

// AdminListUsers returns one page of users. Pages start at 1.
func (c *Client) AdminListUsers(ctx context.Context, page, perPage int) ([]User, error) {
	var resp listUsersResponse
	path := fmt.Sprintf("/admin/users?page=%d&per_page=%d", page, perPage)
	if err := c.do(ctx, http.MethodGet, path, c.serviceKey, c.serviceKey, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// FindUserByEmail pages through the user list looking for an exact
// case-insensitive email match. Returns (nil, nil) when no user matches.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	const perPage = 200
	want := strings.ToLower(email)
	for page := 1; ; page++ {
		users, err := c.AdminListUsers(ctx, page, perPage)
		if err != nil {
			return nil, err
		}
		for i := range users {
			if strings.ToLower(users[i].Email) == want {
				return &users[i], nil
			}
		}
		if len(users) < perPage {
			return nil, nil
		}
	}
}

func (c *Client) do(ctx context.Context, method, path, apiKey, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", apiKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return fmt.Errorf("%w: %v", ErrUnreachable, urlErr.Err)
		}
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &Error{Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// readErrorMessage handles the provider's assorted error body shapes.
func readErrorMessage(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, 4096))
	var parsed struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorField       string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		for _, m := range []string{parsed.Msg, parsed.Message, parsed.ErrorDescription, parsed.ErrorField} {
			if m != "" {
				return m
			}
		}
	}
	return strings.TrimSpace(string(raw))
}
