package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SecondaryClient resolves rates one pair at a time from quote symbols such
// as EURUSD=X on a Yahoo-style chart endpoint.
type SecondaryClient struct {
	http    *http.Client
	baseURL string
}

func NewSecondaryClient(hc *http.Client, baseURL string) *SecondaryClient {
	if hc == nil {
		hc = &http.Client{Timeout: 8 * time.Second}
	}
	return &SecondaryClient{http: hc, baseURL: strings.TrimRight(baseURL, "/")}
}

// Rate returns how many 'to' units per 1 'from' unit.
func (c *SecondaryClient) Rate(ctx context.Context, from, to string) (float64, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == "" || to == "" {
		return 0, ErrRateUnavailable
	}
	if from == to {
		return 1, nil
	}

	pair := from + to + "=X"
	url := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1h&range=1d", c.baseURL, pair)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", "valuation-engine/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fx secondary http %d", resp.StatusCode)
	}

	var raw struct {
		Chart struct {
			Result []struct {
				Meta struct {
					RegularMarketPrice float64 `json:"regularMarketPrice"`
				} `json:"meta"`
			} `json:"result"`
		} `json:"chart"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return 0, err
	}
	if len(raw.Chart.Result) == 0 {
		return 0, ErrRateUnavailable
	}
	rate := raw.Chart.Result[0].Meta.RegularMarketPrice
	if rate <= 0 {
		return 0, ErrRateUnavailable
	}
	return rate, nil
}
