// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package geoip

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/gatekeeper/internal/models"
)

// ErrRateLimited is returned when the local request budget is exhausted.
var ErrRateLimited = errors.New("ip-api.com rate limit exceeded")

const (
	// DefaultIPAPIURL is the free-tier endpoint.
	DefaultIPAPIURL = "http://ip-api.com/json/"

	// DefaultIPAPIRate stays under the free tier's 45 requests per minute.
	DefaultIPAPIRate = 0.75

	ipAPIFields = "status,message,countryCode,city,lat,lon,query"
)

// ipAPIResponse represents the JSON response from ip-api.com
type ipAPIResponse struct {
	Status      string  `json:"status"`  // "success" or "fail"
	Message     string  `json:"message"` // reason when status is "fail"
	CountryCode string  `json:"countryCode"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Query       string  `json:"query"`
}

// IPAPIProvider queries ip-api.com. Requests beyond the configured rate are
// refused locally instead of queueing, so a burst never stalls decisions.
type IPAPIProvider struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
}

// NewIPAPIProvider creates a provider for baseURL allowing perSecond
// requests per second.
func NewIPAPIProvider(baseURL string, perSecond float64) *IPAPIProvider {
	if baseURL == "" {
		baseURL = DefaultIPAPIURL
	}
	if perSecond <= 0 {
		perSecond = DefaultIPAPIRate
	}
	burst := int(perSecond * 10)
	if burst < 1 {
		burst = 1
	}
	return &IPAPIProvider{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider name.
func (p *IPAPIProvider) Name() string {
	return "ipapi"
}

// Lookup queries ip-api.com for ip.
func (p *IPAPIProvider) Lookup(ctx context.Context, ip net.IP) (*models.Location, error) {
	if !p.limiter.Allow() {
		return nil, ErrRateLimited
	}

	url := fmt.Sprintf("%s/%s?fields=%s", p.baseURL, ip.String(), ipAPIFields)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query ip-api.com: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ip-api.com returned status %d", resp.StatusCode)
	}

	var result ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode ip-api.com response: %w", err)
	}
	if result.Status != "success" {
		return nil, fmt.Errorf("%w: ip-api.com: %s", ErrAddressNotFound, result.Message)
	}

	return &models.Location{
		City:      result.City,
		Country:   result.CountryCode,
		Latitude:  result.Lat,
		Longitude: result.Lon,
	}, nil
}
