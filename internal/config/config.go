package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Node struct {
		// Nombre lógico del nodo. Default: hostname.
		Name string `yaml:"name"`
	} `yaml:"node"`

	Bus struct {
		Kind    string `yaml:"kind"` // none | memory | redis | relay
		Channel string `yaml:"channel"`
		Codec   string `yaml:"codec"` // json | msgpack
		Redis   struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
		Relay struct {
			PubAddr    string `yaml:"pub_addr"`
			SubAddr    string `yaml:"sub_addr"`
			ForwardIn  string `yaml:"forward_in"`  // bind XSUB (coinsync relay)
			ForwardOut string `yaml:"forward_out"` // bind XPUB (coinsync relay)
		} `yaml:"relay"`
	} `yaml:"bus"`

	Storage struct {
		Driver       string `yaml:"driver"` // postgres | badger | noop
		DSN          string `yaml:"dsn"`
		Path         string `yaml:"path"`
		MaxOpenConns int    `yaml:"max_open_conns"`
		MaxIdleConns int    `yaml:"max_idle_conns"`
	} `yaml:"storage"`

	Sync struct {
		RemoteDeletes string `yaml:"remote_deletes"` // auto | always | never
		InflightMax   int    `yaml:"inflight_max"`
		InflightTTL   string `yaml:"inflight_ttl"`
		OutboxSize    int    `yaml:"outbox_size"`
	} `yaml:"sync"`

	Multipliers struct {
		Tick         string `yaml:"tick"`
		SnapshotPath string `yaml:"snapshot_path"`
	} `yaml:"multipliers"`

	Executors []Executor `yaml:"executors"`

	Admin struct {
		// Vacío = sin HTTP de administración.
		Addr string `yaml:"addr"`
	} `yaml:"admin"`

	Flags struct {
		Migrate bool `yaml:"migrate"`
	} `yaml:"flags"`
}

// Executor es una definición local de executor.
type Executor struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Cost     float64  `yaml:"cost"`
	Commands []string `yaml:"commands"`
}

// Load lee el YAML en path (vacío = solo defaults + env), aplica overrides
// de entorno y valida.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	c.applyEnvOverrides()
	c.applyDefaults()

	// snapshot relativo ⇒ respecto al directorio del YAML
	if p := strings.TrimSpace(c.Multipliers.SnapshotPath); p != "" && path != "" && !filepath.IsAbs(p) {
		c.Multipliers.SnapshotPath = filepath.Clean(filepath.Join(filepath.Dir(path), p))
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Node.Name == "" {
		if h, err := os.Hostname(); err == nil {
			c.Node.Name = h
		}
	}
	if c.Bus.Kind == "" {
		c.Bus.Kind = "none"
	}
	if c.Bus.Channel == "" {
		c.Bus.Channel = "coinsync"
	}
	if c.Bus.Codec == "" {
		c.Bus.Codec = "json"
	}
	if c.Bus.Redis.Addr == "" {
		c.Bus.Redis.Addr = "localhost:6379"
	}
	if c.Bus.Relay.ForwardIn == "" {
		c.Bus.Relay.ForwardIn = "tcp://*:5557"
	}
	if c.Bus.Relay.ForwardOut == "" {
		c.Bus.Relay.ForwardOut = "tcp://*:5558"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "noop"
	}
	if c.Storage.MaxOpenConns == 0 {
		c.Storage.MaxOpenConns = 10
	}
	if c.Storage.MaxIdleConns == 0 {
		c.Storage.MaxIdleConns = 2
	}
	if c.Sync.RemoteDeletes == "" {
		c.Sync.RemoteDeletes = "auto"
	}
	if c.Sync.InflightMax == 0 {
		c.Sync.InflightMax = 4096
	}
	if c.Sync.InflightTTL == "" {
		c.Sync.InflightTTL = "2m"
	}
	if c.Sync.OutboxSize == 0 {
		c.Sync.OutboxSize = 1024
	}
	if c.Multipliers.Tick == "" {
		c.Multipliers.Tick = "1s"
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
// Los executors solo se definen en YAML.
func (c *Config) applyEnvOverrides() {
	// APP / LOG / NODE
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := getEnvStr("NODE_NAME"); ok {
		c.Node.Name = v
	}

	// BUS
	if v, ok := getEnvStr("BUS_KIND"); ok {
		c.Bus.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("BUS_CHANNEL"); ok {
		c.Bus.Channel = v
	}
	if v, ok := getEnvStr("BUS_CODEC"); ok {
		c.Bus.Codec = strings.ToLower(v)
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Bus.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Bus.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Bus.Redis.DB = v
	}
	if v, ok := getEnvStr("RELAY_PUB_ADDR"); ok {
		c.Bus.Relay.PubAddr = v
	}
	if v, ok := getEnvStr("RELAY_SUB_ADDR"); ok {
		c.Bus.Relay.SubAddr = v
	}
	if v, ok := getEnvStr("RELAY_FORWARD_IN"); ok {
		c.Bus.Relay.ForwardIn = v
	}
	if v, ok := getEnvStr("RELAY_FORWARD_OUT"); ok {
		c.Bus.Relay.ForwardOut = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("STORAGE_PATH"); ok {
		c.Storage.Path = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_OPEN_CONNS"); ok {
		c.Storage.MaxOpenConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_IDLE_CONNS"); ok {
		c.Storage.MaxIdleConns = v
	}

	// SYNC
	if v, ok := getEnvStr("SYNC_REMOTE_DELETES"); ok {
		c.Sync.RemoteDeletes = strings.ToLower(v)
	}
	if v, ok := getEnvInt("SYNC_INFLIGHT_MAX"); ok {
		c.Sync.InflightMax = v
	}
	if v, ok := getEnvStr("SYNC_INFLIGHT_TTL"); ok {
		c.Sync.InflightTTL = v
	}
	if v, ok := getEnvInt("SYNC_OUTBOX_SIZE"); ok {
		c.Sync.OutboxSize = v
	}

	// MULTIPLIERS
	if v, ok := getEnvStr("MULTIPLIERS_TICK"); ok {
		c.Multipliers.Tick = v
	}
	if v, ok := getEnvStr("MULTIPLIERS_SNAPSHOT_PATH"); ok {
		c.Multipliers.SnapshotPath = v
	}

	// ADMIN / FLAGS
	if v, ok := getEnvStr("ADMIN_ADDR"); ok {
		c.Admin.Addr = v
	}
	if v, ok := getEnvBool("FLAGS_MIGRATE"); ok {
		c.Flags.Migrate = v
	}
}

// Validate chequea los valores de los que depende el arranque.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Node.Name) == "" {
		return fmt.Errorf("config: node.name is required")
	}

	switch c.Bus.Kind {
	case "none", "memory", "redis":
	case "relay":
		if c.Bus.Relay.PubAddr == "" || c.Bus.Relay.SubAddr == "" {
			return fmt.Errorf("config: bus.relay.pub_addr and bus.relay.sub_addr are required for relay")
		}
	default:
		return fmt.Errorf("config: unknown bus.kind %q", c.Bus.Kind)
	}
	switch c.Bus.Codec {
	case "json", "msgpack":
	default:
		return fmt.Errorf("config: unknown bus.codec %q", c.Bus.Codec)
	}

	switch c.Storage.Driver {
	case "noop", "badger":
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("config: storage.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}

	switch c.Sync.RemoteDeletes {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("config: unknown sync.remote_deletes %q", c.Sync.RemoteDeletes)
	}
	if c.Sync.InflightMax <= 0 || c.Sync.OutboxSize <= 0 {
		return fmt.Errorf("config: sync.inflight_max and sync.outbox_size must be positive")
	}
	if _, err := c.InflightTTL(); err != nil {
		return err
	}
	if _, err := c.Tick(); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(c.Executors))
	for i, e := range c.Executors {
		if strings.TrimSpace(e.ID) == "" {
			return fmt.Errorf("config: executors[%d]: id is required", i)
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("config: executors[%d]: duplicate id %q", i, e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}

// InflightTTL retorna sync.inflight_ttl parseado.
func (c *Config) InflightTTL() (time.Duration, error) {
	return parsePositiveDur("sync.inflight_ttl", c.Sync.InflightTTL)
}

// Tick retorna multipliers.tick parseado.
func (c *Config) Tick() (time.Duration, error) {
	return parsePositiveDur("multipliers.tick", c.Multipliers.Tick)
}

func parsePositiveDur(field, s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s must be positive", field)
	}
	return d, nil
}
