package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	githubTokenURL  = "https://github.com/login/oauth/access_token"
	githubUserURL   = "https://api.github.com/user"
	httpCallTimeout = 10 * time.Second
)

// githubOAuthClient handles the GitHub OAuth code exchange and user fetch.
type githubOAuthClient interface {
	ExchangeCodeForUser(ctx context.Context, code string) (*githubUser, error)
}

// githubUser is the subset of the GitHub user payload the admin login needs.
type githubUser struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

// githubOAuthHTTPClient is the production implementation using GitHub's HTTP APIs.
type githubOAuthHTTPClient struct {
	clientID     string
	clientSecret string
	redirectURI  string
	httpClient   *http.Client
}

func newGitHubOAuthClient(clientID, clientSecret, redirectURI string) *githubOAuthHTTPClient {
	return &githubOAuthHTTPClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		httpClient:   &http.Client{Timeout: httpCallTimeout},
	}
}

func (c *githubOAuthHTTPClient) ExchangeCodeForUser(ctx context.Context, code string) (*githubUser, error) {
	token, err := c.exchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	user, err := c.fetchUser(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("user fetch failed: %w", err)
	}
	return user, nil
}

func (c *githubOAuthHTTPClient) exchangeCode(ctx context.Context, code string) (string, error) {
	data := url.Values{}
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	data.Set("code", code)
	data.Set("redirect_uri", c.redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, githubTokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		Error       string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if body.Error != "" {
		return "", fmt.Errorf("token endpoint returned error: %s", body.Error)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty token")
	}
	return body.AccessToken, nil
}

func (c *githubOAuthHTTPClient) fetchUser(ctx context.Context, token string) (*githubUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, githubUserURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user endpoint returned status %d", resp.StatusCode)
	}

	var user githubUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user response: %w", err)
	}
	if user.Login == "" {
		return nil, fmt.Errorf("user endpoint returned empty login")
	}
	return &user, nil
}
