package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	mu sync.RWMutex `yaml:"-"`

	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Mir       MirConfig       `yaml:"mir"`
	Pool      PoolConfig      `yaml:"pool"`
	Web       WebConfig       `yaml:"web"`
	Messaging MessagingConfig `yaml:"messaging"`
}

type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MirConfig describes the MiR fleet cloud endpoint and the fixed values the
// mission sequences bind into vendor requests.
type MirConfig struct {
	Hostname     string        `yaml:"hostname"`
	Port         int           `yaml:"port"`
	Proxy        string        `yaml:"proxy"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	Endpoint     string        `yaml:"endpoint"`
	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`

	BinMission        string  `yaml:"bin_mission"`
	PositionParam     string  `yaml:"position_param"`
	MissionGroupID    string  `yaml:"mission_group_id"`
	GeneratedMission  string  `yaml:"generated_mission"`
	DefaultMap        string  `yaml:"default_map"`
	ActionType        string  `yaml:"action_type"`
	Retries           int     `yaml:"retries"`
	DistanceThreshold float64 `yaml:"distance_threshold"`
}

// BaseURL joins hostname, optional port and endpoint path into the prefix
// every collection path is appended to. The result always ends in "/".
func (m *MirConfig) BaseURL() (string, error) {
	host := m.Hostname
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	u, err := url.Parse(host)
	if err != nil {
		return "", fmt.Errorf("mir hostname %q: %w", m.Hostname, err)
	}
	if m.Port > 0 && u.Port() == "" {
		u.Host = fmt.Sprintf("%s:%d", u.Hostname(), m.Port)
	}
	path := strings.Trim(u.Path, "/") + "/" + strings.Trim(m.Endpoint, "/")
	path = "/" + strings.Trim(path, "/")
	if path != "/" {
		path += "/"
	}
	u.Path = path
	return u.String(), nil
}

type PoolConfig struct {
	RobotType string `yaml:"robot_type"`
	Status    string `yaml:"status"`
}

type WebConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	SessionSecret string `yaml:"session_secret"`
}

type MessagingConfig struct {
	Backend             string        `yaml:"backend"` // "kafka" or "mqtt"
	Kafka               KafkaConfig   `yaml:"kafka"`
	MQTT                MQTTConfig    `yaml:"mqtt"`
	CommandsTopic       string        `yaml:"commands_topic"`
	EventsTopic         string        `yaml:"events_topic"`
	OutboxDrainInterval time.Duration `yaml:"outbox_drain_interval"`
	StationID           string        `yaml:"station_id"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	GroupID string   `yaml:"group_id"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
}

func Defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{Path: "robopool.db"},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "robotics",
				User:     "robopool",
				Password: "",
				SSLMode:  "disable",
			},
		},
		Redis: RedisConfig{
			Address:  "localhost:6379",
			Password: "",
			DB:       0,
		},
		Mir: MirConfig{
			Hostname:     "http://mir.local",
			Endpoint:     "/api/v2.0.0/",
			Timeout:      10 * time.Second,
			PollInterval: 5 * time.Second,

			BinMission:        "Navigate to warehouse bin",
			PositionParam:     "askVar",
			MissionGroupID:    "mirconst-guid-0000-0011-missiongroup",
			GeneratedMission:  "Auto-Generated Mission",
			DefaultMap:        "Team Area",
			ActionType:        "move",
			Retries:           10,
			DistanceThreshold: 0.1,
		},
		Pool: PoolConfig{
			RobotType: "material_transport",
			Status:    "live",
		},
		Web: WebConfig{
			Host:          "0.0.0.0",
			Port:          2000,
			SessionSecret: "change-me-in-production",
		},
		Messaging: MessagingConfig{
			Backend: "kafka",
			Kafka: KafkaConfig{
				Brokers: []string{"localhost:9092"},
				GroupID: "robopool",
			},
			MQTT: MQTTConfig{
				Broker:   "localhost",
				Port:     1883,
				ClientID: "robopool",
			},
			CommandsTopic:       "robopool.commands",
			EventsTopic:         "robopool.events",
			OutboxDrainInterval: 5 * time.Second,
			StationID:           "robopool",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Lock()    { c.mu.Lock() }
func (c *Config) Unlock()  { c.mu.Unlock() }
func (c *Config) RLock()   { c.mu.RLock() }
func (c *Config) RUnlock() { c.mu.RUnlock() }
