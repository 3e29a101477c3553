// Package erp reads location master data from the Business Central OData
// feed so department records can be seeded from the ERP instead of typed in.
package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config carries the ERP endpoint and its Basic auth credentials.
type Config struct {
	// RestURL is the OData base, e.g. https://erp.example.com:7048/BC/ODataV4.
	RestURL     string
	Username    string
	AccessToken string
}

type Client struct {
	config Config
	http   *http.Client
}

func NewClient(config Config) *Client {
	return &Client{
		config: config,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

// IsConfigured reports whether the ERP connection details are present.
func (c *Client) IsConfigured() bool {
	return c.config.RestURL != "" && c.config.Username != "" && c.config.AccessToken != ""
}

// Location is one Location_Card row, trimmed to the fields the portal uses.
type Location struct {
	Code              string `json:"Code"`
	Name              string `json:"Name"`
	Zone              string `json:"Zone"`
	Address           string `json:"Address"`
	City              string `json:"City"`
	CountryRegionCode string `json:"Country_Region_Code"`
	PhoneNo           string `json:"Phone_No"`
	Email             string `json:"E_Mail"`
}

// FetchLocations lists the location cards for one ERP company. The company
// segment is the country code the departments screen groups by.
func (c *Client) FetchLocations(ctx context.Context, country string) ([]Location, error) {
	if country == "" {
		return nil, fmt.Errorf("country is required")
	}

	endpoint := fmt.Sprintf("%s/Company('%s')/Location_Card",
		strings.TrimSuffix(c.config.RestURL, "/"), url.PathEscape(country))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build locations request: %w", err)
	}
	req.SetBasicAuth(c.config.Username, c.config.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch locations: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("erp rejected credentials")
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("erp has no company %q", country)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("erp returned %d", resp.StatusCode)
	}

	var payload struct {
		Value []Location `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode locations: %w", err)
	}
	return payload.Value, nil
}
