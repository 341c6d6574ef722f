// Package external talks to the public country catalogue used to seed countries.
package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Baaaki/travel-log/pkg/logger"
	"go.uber.org/zap"
)

// RawCountry is one upstream record. Only Abbreviation, Name and Capital are
// stored; the rest is decoded so the payload shape is documented in one place.
type RawCountry struct {
	ID           int         `json:"id"`
	Abbreviation string      `json:"abbreviation"`
	Name         string      `json:"name"`
	Capital      string      `json:"capital"`
	Currency     string      `json:"currency"`
	Phone        string      `json:"phone"`
	Population   json.Number `json:"population"`
	Media        Media       `json:"media"`
}

type Media struct {
	Flag         string `json:"flag"`
	Emblem       string `json:"emblem"`
	Orthographic string `json:"orthographic"`
}

type HTTPCountrySource struct {
	url    string
	client *http.Client
}

func NewHTTPCountrySource(url string, timeout time.Duration) *HTTPCountrySource {
	return &HTTPCountrySource{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads the full catalogue. Any transport, status or decode
// failure is returned as an error; nothing is partially returned.
func (s *HTTPCountrySource) Fetch(ctx context.Context) ([]RawCountry, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build country source request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request country source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little of the body so the connection can be reused
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return nil, fmt.Errorf("country source returned status %d", resp.StatusCode)
	}

	var records []RawCountry
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode country source payload: %w", err)
	}

	logger.Log.Info("Fetched countries from external source",
		zap.String("url", s.url),
		zap.Int("count", len(records)),
		zap.Duration("duration", time.Since(start)),
	)

	return records, nil
}
