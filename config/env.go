package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Environment variables recognised by ApplyEnv.
const (
	EnvMirHostname = "MIR_HOSTNAME"
	EnvMirPort     = "MIR_PORT"
	EnvMirProxy    = "MIR_PROXY"
	EnvMirUsername = "MIR_USERNAME"
	EnvMirPassword = "MIR_PASSWORD"
	EnvMirEndpoint = "MIR_ENDPOINT"
	EnvDBUser      = "DB_USER"
	EnvDBPassword  = "DB_PASSWORD"
	EnvPort        = "PORT"
	EnvVCAP        = "VCAP_SERVICES"
)

// vcapServiceKeys are the service labels searched, in order, for database
// credentials when running on a platform with service bindings.
var vcapServiceKeys = []string{"postgresql", "postgres", "hana"}

type vcapCredentials struct {
	Host     string          `json:"host"`
	Port     json.RawMessage `json:"port"`
	Name     string          `json:"name"`
	Database string          `json:"database"`
	User     string          `json:"user"`
	Username string          `json:"username"`
	Password string          `json:"password"`
}

type vcapBinding struct {
	Credentials vcapCredentials `json:"credentials"`
}

// ApplyEnv overlays environment settings onto c. It reports whether a
// platform service binding was found (cloud mode).
func (c *Config) ApplyEnv(getenv func(string) string) (cloud bool, err error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	setString(getenv(EnvMirHostname), &c.Mir.Hostname)
	setString(getenv(EnvMirProxy), &c.Mir.Proxy)
	setString(getenv(EnvMirUsername), &c.Mir.Username)
	setString(getenv(EnvMirPassword), &c.Mir.Password)
	setString(getenv(EnvMirEndpoint), &c.Mir.Endpoint)
	if err := setInt(getenv(EnvMirPort), &c.Mir.Port); err != nil {
		return false, fmt.Errorf("%s: %w", EnvMirPort, err)
	}
	if err := setInt(getenv(EnvPort), &c.Web.Port); err != nil {
		return false, fmt.Errorf("%s: %w", EnvPort, err)
	}
	setString(getenv(EnvDBUser), &c.Database.Postgres.User)
	setString(getenv(EnvDBPassword), &c.Database.Postgres.Password)

	raw := getenv(EnvVCAP)
	if raw == "" {
		return false, nil
	}
	var services map[string][]vcapBinding
	if err := json.Unmarshal([]byte(raw), &services); err != nil {
		return false, fmt.Errorf("parse %s: %w", EnvVCAP, err)
	}
	for _, key := range vcapServiceKeys {
		bindings := services[key]
		if len(bindings) == 0 {
			continue
		}
		cred := bindings[0].Credentials
		c.Database.Driver = "postgres"
		setString(cred.Host, &c.Database.Postgres.Host)
		if port := vcapPort(cred.Port); port > 0 {
			c.Database.Postgres.Port = port
		}
		setString(cred.Name, &c.Database.Postgres.Database)
		setString(cred.Database, &c.Database.Postgres.Database)
		// Explicit DB_USER/DB_PASSWORD win over binding credentials.
		if getenv(EnvDBUser) == "" {
			setString(cred.User, &c.Database.Postgres.User)
			setString(cred.Username, &c.Database.Postgres.User)
		}
		if getenv(EnvDBPassword) == "" {
			setString(cred.Password, &c.Database.Postgres.Password)
		}
		return true, nil
	}
	return false, fmt.Errorf("%s has no database binding (looked for %v)", EnvVCAP, vcapServiceKeys)
}

// vcapPort accepts the port as either a JSON number or a quoted string.
func vcapPort(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		n, _ = strconv.Atoi(s)
	}
	return n
}

func setString(v string, dst *string) {
	if v != "" {
		*dst = v
	}
}

func setInt(v string, dst *int) error {
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}
