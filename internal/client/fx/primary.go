// Package fx holds the FX-rate collaborators: a budgeted keyed API as the
// primary source and a quote-pair provider as the secondary.
package fx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var ErrRateUnavailable = errors.New("fx: rate unavailable")

// PrimaryClient talks to a keyed exchange-rates API returning EUR-based
// rates, e.g. {"base":"EUR","rates":{"USD":1.08,"GBP":0.85}}.
type PrimaryClient struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

func NewPrimaryClient(hc *http.Client, baseURL, apiKey string) *PrimaryClient {
	if hc == nil {
		hc = &http.Client{Timeout: 8 * time.Second}
	}
	return &PrimaryClient{http: hc, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

// Rates returns how many units of each symbol one EUR buys.
func (c *PrimaryClient) Rates(ctx context.Context, symbols []string) (map[string]float64, error) {
	if c.apiKey == "" {
		return nil, ErrRateUnavailable
	}
	url := fmt.Sprintf("%s/latest?access_key=%s&base=EUR&symbols=%s",
		c.baseURL, c.apiKey, strings.Join(symbols, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fx primary http %d", resp.StatusCode)
	}

	var raw struct {
		Success bool               `json:"success"`
		Rates   map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	if !raw.Success || len(raw.Rates) == 0 {
		return nil, ErrRateUnavailable
	}
	for s, r := range raw.Rates {
		if r <= 0 {
			return nil, fmt.Errorf("fx primary invalid rate %s=%f", s, r)
		}
	}
	return raw.Rates, nil
}
