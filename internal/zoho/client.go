// Package zoho implements the OAuth code exchange and profile lookup against
// Zoho Accounts. The portal never sees passwords; it trades the authorization
// code for an access token and reads the user's identity from it.
package zoho

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config carries the OAuth client registration.
type Config struct {
	// AccountsURL is the Zoho accounts origin, e.g. https://accounts.zoho.com.
	AccountsURL  string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

type Client struct {
	config Config
	http   *http.Client
}

func NewClient(config Config) *Client {
	return &Client{
		config: config,
		http:   &http.Client{Timeout: 15 * time.Second},
	}
}

// IsConfigured reports whether the OAuth registration is present.
func (c *Client) IsConfigured() bool {
	return c.config.AccountsURL != "" && c.config.ClientID != "" && c.config.ClientSecret != "" && c.config.RedirectURI != ""
}

// Token is the relevant part of Zoho's token response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
}

// Profile is the identity Zoho reports for the logged-in user.
type Profile struct {
	ZohoID      string `json:"ZUID"`
	Email       string `json:"Email"`
	DisplayName string `json:"Display_Name"`
	FirstName   string `json:"First_Name"`
	LastName    string `json:"Last_Name"`
}

// Name returns the best display name the profile offers.
func (p Profile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name != "" {
		return name
	}
	return p.Email
}

// ExchangeCode trades an authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (Token, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", c.config.ClientID)
	form.Set("client_secret", c.config.ClientSecret)
	form.Set("redirect_uri", c.config.RedirectURI)
	form.Set("code", code)

	endpoint := strings.TrimSuffix(c.config.AccountsURL, "/") + "/oauth/v2/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("exchange code: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Token{}, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Token{}, fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}

	var token Token
	if err := json.Unmarshal(body, &token); err != nil {
		return Token{}, fmt.Errorf("decode token response: %w", err)
	}
	// Zoho reports OAuth errors with a 200 and an error field.
	if token.Error != "" {
		return Token{}, fmt.Errorf("token endpoint error: %s", token.Error)
	}
	if token.AccessToken == "" {
		return Token{}, fmt.Errorf("token endpoint returned no access token")
	}
	return token, nil
}

// FetchProfile reads the identity behind an access token.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	endpoint := strings.TrimSuffix(c.config.AccountsURL, "/") + "/oauth/user/info"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("profile endpoint returned %d", resp.StatusCode)
	}

	var raw struct {
		ZUID        json.Number `json:"ZUID"`
		Email       string      `json:"Email"`
		DisplayName string      `json:"Display_Name"`
		FirstName   string      `json:"First_Name"`
		LastName    string      `json:"Last_Name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}

	profile := Profile{
		ZohoID:      raw.ZUID.String(),
		Email:       raw.Email,
		DisplayName: raw.DisplayName,
		FirstName:   raw.FirstName,
		LastName:    raw.LastName,
	}
	if profile.ZohoID == "" || profile.Email == "" {
		return Profile{}, fmt.Errorf("profile missing zoho id or email")
	}
	return profile, nil
}
