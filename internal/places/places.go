// Package places wraps the external Places search API behind the
// narrow contract spec.md §4.7 describes: latitude, longitude, radius
// in metres and a result cap in, a decoded-and-truncated JSON body out.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/herdwatch/proxyherd/internal/config"
)

// Client is the concrete Places Query Adapter. It owns no retry
// policy of its own: RetryMax is forced to 0 so exactly one HTTP
// attempt is made per WHATSAT, per spec.md §4.7 and §9, while still
// getting retryablehttp's pooled client and structured logging hook.
type Client struct {
	http    *retryablehttp.Client
	baseURL string
	apiKey  string
}

// New builds a Places client from static configuration. Credentials
// (the API key) are injected from config, never hard-coded.
func New(cfg config.Places, log *logrus.Logger) *Client {
	hc := retryablehttp.NewClient()
	hc.RetryMax = 0
	hc.Logger = &leveledLogger{log: log}
	hc.HTTPClient.Timeout = cfg.Timeout

	return &Client{
		http:    hc,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// Search performs a single Places API call for a nearby-search at
// (lat, lng) within radiusMeters, capped at bound results, and returns
// the response body with its top-level "results" array truncated to
// bound elements and pretty-printed with 4-space indentation — exactly
// the payload WHATSAT appends to its reply per spec.md §4.5.
func (c *Client) Search(ctx context.Context, lat, lng, radiusMeters float64, bound int) ([]byte, error) {
	payload := map[string]any{
		"maxResultCount": bound,
		"locationRestriction": map[string]any{
			"circle": map[string]any{
				"center": map[string]float64{
					"latitude":  lat,
					"longitude": lng,
				},
				"radius": radiusMeters,
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("places: encode request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("places: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", "*")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("places: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("places: unexpected status %s", resp.Status)
	}

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("places: decode response: %w", err)
	}

	results, ok := decoded["results"].([]any)
	if !ok {
		results = []any{}
	}
	if len(results) > bound {
		results = results[:bound]
	}
	decoded["results"] = results

	pretty, err := json.MarshalIndent(decoded, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("places: re-encode response: %w", err)
	}

	return pretty, nil
}

// leveledLogger adapts *logrus.Logger to retryablehttp.LeveledLogger so
// per-attempt request/response logging flows through the daemon's own
// structured logger instead of retryablehttp's default stdlib logger.
type leveledLogger struct {
	log *logrus.Logger
}

func (l *leveledLogger) Error(msg string, kv ...any) { l.log.WithFields(fields(kv)).Error(msg) }
func (l *leveledLogger) Info(msg string, kv ...any)  { l.log.WithFields(fields(kv)).Info(msg) }
func (l *leveledLogger) Debug(msg string, kv ...any) { l.log.WithFields(fields(kv)).Debug(msg) }
func (l *leveledLogger) Warn(msg string, kv ...any)  { l.log.WithFields(fields(kv)).Warn(msg) }

func fields(kv []any) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		f[key] = kv[i+1]
	}
	return f
}
