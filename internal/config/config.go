package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Store backends.
const (
	BackendSQLite   = "sqlite"
	BackendMemgraph = "memgraph"
)

type StoreConfig struct {
	Backend string `toml:"backend" validate:"oneof=sqlite memgraph"`
	Path    string `toml:"path" validate:"required_if=Backend sqlite"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type ServerConfig struct {
	Port       string `toml:"port" validate:"required,numeric"`
	AdminToken string `toml:"admin_token"`
}

type IngestConfig struct {
	// SeedJSON is ingested into an empty store at startup. The built-in
	// family is used when it is empty.
	SeedJSON    string `toml:"seed_json"`
	WithClosure bool   `toml:"with_closure"`
}

type LogConfig struct {
	Debug bool `toml:"debug"`
}

type Config struct {
	Store    StoreConfig    `toml:"store"`
	Memgraph MemgraphConfig `toml:"memgraph"`
	Server   ServerConfig   `toml:"server"`
	Ingest   IngestConfig   `toml:"ingest"`
	Log      LogConfig      `toml:"log"`
}

func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: BackendSQLite,
			Path:    "data/family.db",
		},
		Memgraph: MemgraphConfig{
			URI: "bolt://localhost:7687",
		},
		Server: ServerConfig{
			Port: "8080",
		},
		Ingest: IngestConfig{
			WithClosure: true,
		},
	}
}

// Load reads a TOML file over the defaults. Keys missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides fields from the process environment.
func (c *Config) ApplyEnv() {
	setString(&c.Store.Path, "LINEAGE_DB_PATH")
	setString(&c.Store.Backend, "LINEAGE_BACKEND")
	setString(&c.Memgraph.URI, "MEMGRAPH_URI")
	setString(&c.Memgraph.User, "MEMGRAPH_USER")
	setString(&c.Memgraph.Password, "MEMGRAPH_PASSWORD")
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.AdminToken, "LINEAGE_ADMIN_TOKEN")
	setString(&c.Ingest.SeedJSON, "LINEAGE_SEED_JSON")

	if v := os.Getenv("DEBUG"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			c.Log.Debug = debug
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks field constraints. The Memgraph URI is only required when
// the memgraph backend is selected.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Store.Backend == BackendMemgraph && c.Memgraph.URI == "" {
		return fmt.Errorf("invalid config: memgraph.uri is required for the memgraph backend")
	}
	return nil
}
