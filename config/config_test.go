package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mir.PositionParam != "askVar" {
		t.Errorf("PositionParam = %q, want %q", cfg.Mir.PositionParam, "askVar")
	}
	if cfg.Mir.Retries != 10 {
		t.Errorf("Retries = %d, want 10", cfg.Mir.Retries)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Driver = %q, want sqlite", cfg.Database.Driver)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robopool.yaml")
	data := []byte("mir:\n  hostname: https://fleet.example.com\n  timeout: 3s\nweb:\n  port: 9000\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mir.Hostname != "https://fleet.example.com" {
		t.Errorf("Hostname = %q", cfg.Mir.Hostname)
	}
	if cfg.Mir.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", cfg.Mir.Timeout)
	}
	if cfg.Web.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Web.Port)
	}
	// untouched keys keep defaults
	if cfg.Mir.BinMission != "Navigate to warehouse bin" {
		t.Errorf("BinMission = %q", cfg.Mir.BinMission)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robopool.yaml")
	cfg := Defaults()
	cfg.Mir.Username = "distributor"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Mir.Username != "distributor" {
		t.Errorf("Username = %q, want distributor", got.Mir.Username)
	}
}

func TestMirBaseURL(t *testing.T) {
	tests := []struct {
		host     string
		port     int
		endpoint string
		want     string
	}{
		{"http://mir.local", 0, "/api/v2.0.0/", "http://mir.local/api/v2.0.0/"},
		{"mir.local", 8080, "api/v2.0.0", "http://mir.local:8080/api/v2.0.0/"},
		{"https://fleet.example.com:443", 8080, "/api", "https://fleet.example.com:443/api/"},
		{"http://mir.local/base", 0, "v2", "http://mir.local/base/v2/"},
		{"http://127.0.0.1:5000", 0, "", "http://127.0.0.1:5000/"},
	}
	for _, tt := range tests {
		m := MirConfig{Hostname: tt.host, Port: tt.port, Endpoint: tt.endpoint}
		got, err := m.BaseURL()
		if err != nil {
			t.Errorf("BaseURL(%q): %v", tt.host, err)
			continue
		}
		if got != tt.want {
			t.Errorf("BaseURL(%q, %d, %q) = %q, want %q", tt.host, tt.port, tt.endpoint, got, tt.want)
		}
	}
}

func TestApplyEnvLocal(t *testing.T) {
	cfg := Defaults()
	cloud, err := cfg.ApplyEnv(envMap(map[string]string{
		EnvMirHostname: "https://mir.cloud",
		EnvMirUsername: "distributor",
		EnvMirPassword: "secret",
		EnvMirPort:     "8443",
		EnvPort:        "3000",
		EnvDBUser:      "robo",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cloud {
		t.Error("cloud = true without VCAP_SERVICES")
	}
	if cfg.Mir.Hostname != "https://mir.cloud" || cfg.Mir.Username != "distributor" || cfg.Mir.Password != "secret" {
		t.Errorf("mir = %+v", cfg.Mir)
	}
	if cfg.Mir.Port != 8443 {
		t.Errorf("Mir.Port = %d, want 8443", cfg.Mir.Port)
	}
	if cfg.Web.Port != 3000 {
		t.Errorf("Web.Port = %d, want 3000", cfg.Web.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Database.Postgres.User != "robo" {
		t.Errorf("Postgres.User = %q, want robo", cfg.Database.Postgres.User)
	}
}

func TestApplyEnvCloudBinding(t *testing.T) {
	cfg := Defaults()
	vcap := `{"hana":[{"credentials":{"host":"10.0.0.5","port":"30015","user":"BIND_USER","password":"bindpw"}}]}`
	cloud, err := cfg.ApplyEnv(envMap(map[string]string{
		EnvVCAP:   vcap,
		EnvDBUser: "ROBOTICS_USER",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if !cloud {
		t.Fatal("cloud = false with VCAP_SERVICES set")
	}
	pg := cfg.Database.Postgres
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Driver = %q, want postgres", cfg.Database.Driver)
	}
	if pg.Host != "10.0.0.5" || pg.Port != 30015 {
		t.Errorf("host:port = %s:%d, want 10.0.0.5:30015", pg.Host, pg.Port)
	}
	if pg.User != "ROBOTICS_USER" {
		t.Errorf("User = %q, want ROBOTICS_USER", pg.User)
	}
	if pg.Password != "bindpw" {
		t.Errorf("Password = %q, want bindpw", pg.Password)
	}
}

func TestApplyEnvBadValues(t *testing.T) {
	cfg := Defaults()
	if _, err := cfg.ApplyEnv(envMap(map[string]string{EnvPort: "abc"})); err == nil {
		t.Error("expected error for non-numeric PORT")
	}
	cfg = Defaults()
	if _, err := cfg.ApplyEnv(envMap(map[string]string{EnvVCAP: "{not json"})); err == nil {
		t.Error("expected error for malformed VCAP_SERVICES")
	}
	cfg = Defaults()
	if _, err := cfg.ApplyEnv(envMap(map[string]string{EnvVCAP: `{"redis":[{}]}`})); err == nil {
		t.Error("expected error when no database binding present")
	}
}
