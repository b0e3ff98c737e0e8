package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	path := writeTempConfig(t, `
ports:
  Alpha: 8001
  Beta: 8002
peers:
  Alpha: [Beta]
  Beta: [Alpha]
places:
  api_key: "k"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Ports["Alpha"] != 8001 {
		t.Fatalf("unexpected port map: %+v", cfg.Ports)
	}
	if cfg.Places.BaseURL == "" {
		t.Fatal("expected default base_url to be set")
	}
	addrs := cfg.PeerAddrs("Alpha")
	if addrs["Beta"] != "localhost:8002" {
		t.Fatalf("unexpected peer addr: %+v", addrs)
	}
}

func TestLoadRejectsUnknownPeer(t *testing.T) {
	path := writeTempConfig(t, `
ports:
  Alpha: 8001
peers:
  Alpha: [Ghost]
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a peer that is not a known server")
	}
}

func TestLoadRejectsEmptyPorts(t *testing.T) {
	path := writeTempConfig(t, `peers: {}`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a config with no servers")
	}
}
