package places

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/herdwatch/proxyherd/internal/config"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(discardWriter{})
	return log
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestSearchTruncatesToBoundAndPrettyPrints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Goog-Api-Key") != "secret" {
			t.Errorf("missing api key header, got %q", r.Header.Get("X-Goog-Api-Key"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"name":"a"},{"name":"b"},{"name":"c"}]}`))
	}))
	defer srv.Close()

	c := New(config.Places{APIKey: "secret", BaseURL: srv.URL, Timeout: 2 * time.Second}, quietLogger())

	body, err := c.Search(context.Background(), 34.0, -118.0, 1000, 2)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(string(body), "    \"name\"") {
		t.Fatalf("expected 4-space indented JSON, got %s", body)
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatal(err)
	}
	results := decoded["results"].([]any)
	if len(results) != 2 {
		t.Fatalf("expected results truncated to bound=2, got %d", len(results))
	}
}

func TestSearchDoesNotRetryOnFailure(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(config.Places{APIKey: "k", BaseURL: srv.URL, Timeout: 2 * time.Second}, quietLogger())

	_, err := c.Search(context.Background(), 0, 0, 100, 5)
	if err == nil {
		t.Fatal("expected an error from a 500 response")
	}
	if attempts != 1 {
		t.Fatalf("expected exactly one attempt (RetryMax=0), got %d", attempts)
	}
}

func TestSearchRejectsNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(config.Places{APIKey: "k", BaseURL: srv.URL, Timeout: 2 * time.Second}, quietLogger())

	if _, err := c.Search(context.Background(), 0, 0, 100, 5); err == nil {
		t.Fatal("expected an error for a 403 response")
	}
}
