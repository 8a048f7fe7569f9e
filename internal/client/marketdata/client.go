// Package marketdata is the historical-close collaborator. It speaks the
// Yahoo chart v8 wire format and is used only for daily candles; live quotes
// are out of scope for this engine.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var ErrNoResult = errors.New("marketdata: no result")

type Candle struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

type Client struct {
	http    *http.Client
	baseURL string
}

func NewClient(hc *http.Client, baseURL string) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{http: hc, baseURL: strings.TrimRight(baseURL, "/")}
}

// DailyCandles fetches daily candles for [from, to] inclusive. The second
// return value is the quote currency reported by the venue.
func (c *Client) DailyCandles(ctx context.Context, symbol string, from, to time.Time) ([]Candle, string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, "", ErrNoResult
	}

	url := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&period1=%d&period2=%d",
		c.baseURL, symbol, from.Unix(), to.Add(24*time.Hour).Unix())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", "valuation-engine/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("marketdata http %d", resp.StatusCode)
	}

	var raw struct {
		Chart struct {
			Result []struct {
				Meta struct {
					Currency string `json:"currency"`
				} `json:"meta"`
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Open   []float64 `json:"open"`
						High   []float64 `json:"high"`
						Low    []float64 `json:"low"`
						Close  []float64 `json:"close"`
						Volume []float64 `json:"volume"`
					} `json:"quote"`
				} `json:"indicators"`
			} `json:"result"`
			Error any `json:"error"`
		} `json:"chart"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, "", err
	}
	if len(raw.Chart.Result) == 0 {
		return nil, "", ErrNoResult
	}

	r := raw.Chart.Result[0]
	if len(r.Indicators.Quote) == 0 {
		return nil, r.Meta.Currency, ErrNoResult
	}
	q := r.Indicators.Quote[0]

	candles := make([]Candle, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		c := Candle{Date: time.Unix(ts, 0).UTC()}
		if i < len(q.Close) {
			c.Close = q.Close[i]
		}
		if c.Close <= 0 {
			continue
		}
		if i < len(q.Open) {
			c.Open = q.Open[i]
		}
		if i < len(q.High) {
			c.High = q.High[i]
		}
		if i < len(q.Low) {
			c.Low = q.Low[i]
		}
		if i < len(q.Volume) {
			c.Volume = q.Volume[i]
		}
		candles = append(candles, c)
	}
	if len(candles) == 0 {
		return nil, r.Meta.Currency, ErrNoResult
	}
	return candles, r.Meta.Currency, nil
}
