package zoho

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(accountsURL string) *Client {
	return NewClient(Config{
		AccountsURL:  accountsURL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:8788/api/auth/zoho/callback",
	})
}

func TestExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/v2/token" {
			t.Errorf("token request hit %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostForm.Get("code"); got != "the-code" {
			t.Errorf("code = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-123","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	token, err := newTestClient(srv.URL).ExchangeCode(context.Background(), "the-code")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if token.AccessToken != "at-123" {
		t.Fatalf("access token = %q", token.AccessToken)
	}
}

func TestExchangeCodeErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error":"invalid_code"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ExchangeCode(context.Background(), "bad-code")
	if err == nil || !strings.Contains(err.Error(), "invalid_code") {
		t.Fatalf("ExchangeCode err = %v, want invalid_code", err)
	}
}

func TestFetchProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/user/info" {
			t.Errorf("profile request hit %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Zoho-oauthtoken at-123" {
			t.Errorf("authorization header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ZUID":78901234,"Email":"amaka@example.com","Display_Name":"Amaka O."}`))
	}))
	defer srv.Close()

	profile, err := newTestClient(srv.URL).FetchProfile(context.Background(), "at-123")
	if err != nil {
		t.Fatalf("FetchProfile: %v", err)
	}
	if profile.ZohoID != "78901234" {
		t.Fatalf("zoho id = %q", profile.ZohoID)
	}
	if profile.Name() != "Amaka O." {
		t.Fatalf("name = %q", profile.Name())
	}
}

func TestProfileNameFallback(t *testing.T) {
	p := Profile{FirstName: "Kofi", LastName: "Mensah", Email: "kofi@example.com"}
	if got := p.Name(); got != "Kofi Mensah" {
		t.Fatalf("name = %q", got)
	}
	p = Profile{Email: "kofi@example.com"}
	if got := p.Name(); got != "kofi@example.com" {
		t.Fatalf("name fallback = %q", got)
	}
}
