package erp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetchLocations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Company('KE')/Location_Card" {
			t.Errorf("locations request hit %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "svc-portal" || pass != "token-1" {
			t.Errorf("basic auth = %q / %q (ok %v)", user, pass, ok)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"value":[
			{"Code":"NBO","Name":"Nairobi HQ","Zone":"East","Address":"1 Riverside Dr","City":"Nairobi","Country_Region_Code":"KE","Phone_No":"+254700000000","E_Mail":"nbo@example.com"},
			{"Code":"MBA","Name":"Mombasa Depot","Zone":"Coast","City":"Mombasa","Country_Region_Code":"KE"}
		]}`))
	}))
	defer srv.Close()

	client := NewClient(Config{RestURL: srv.URL, Username: "svc-portal", AccessToken: "token-1"})

	locations, err := client.FetchLocations(context.Background(), "KE")
	if err != nil {
		t.Fatalf("FetchLocations: %v", err)
	}
	if len(locations) != 2 {
		t.Fatalf("got %d locations, want 2", len(locations))
	}
	if locations[0].Code != "NBO" || locations[0].Zone != "East" || locations[0].Email != "nbo@example.com" {
		t.Fatalf("first location = %+v", locations[0])
	}
	if locations[1].Address != "" {
		t.Fatalf("missing fields should stay empty, got %+v", locations[1])
	}
}

func TestFetchLocationsUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(Config{RestURL: srv.URL, Username: "svc-portal", AccessToken: "bad"})

	_, err := client.FetchLocations(context.Background(), "KE")
	if err == nil || !strings.Contains(err.Error(), "credentials") {
		t.Fatalf("err = %v, want credentials failure", err)
	}
}

func TestFetchLocationsRequiresCountry(t *testing.T) {
	client := NewClient(Config{RestURL: "http://example.invalid", Username: "u", AccessToken: "t"})
	if _, err := client.FetchLocations(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty country")
	}
}
