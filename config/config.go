package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the configuration shared by the nvspad client and the development server.
type Config struct {
	Client Client `yaml:"client"`
	Server Server `yaml:"server"`
}

// Client configures the terminal client.
type Client struct {
	// Server is the network address of the NVS server.
	Server string `yaml:"server"`
	// Secure enables https:// and wss://.
	Secure bool `yaml:"secure"`
	// Endpoint is the path of the NVS endpoint on the server.
	Endpoint string `yaml:"endpoint"`
	// Namespace limits the table to a single namespace. Empty shows every namespace.
	Namespace string `yaml:"namespace"`
	// Timeout bounds every HTTP request.
	Timeout time.Duration `yaml:"timeout"`
	// Watch subscribes to the server's change feed.
	Watch bool `yaml:"watch"`
	// Positional makes every cell editable, committing only the value column.
	Positional bool `yaml:"positional"`
	// Debug enables verbose logs.
	Debug bool `yaml:"debug"`
	// LogDir holds the log files. Defaults to ~/.nvspad.
	LogDir string `yaml:"log_dir"`
}

// Server configures the development server.
type Server struct {
	Addr string `yaml:"addr"`
	// Seed is a YAML file with the initial NVS contents.
	Seed string `yaml:"seed"`
	// Debug enables verbose logs.
	Debug bool `yaml:"debug"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Client: Client{
			Server:   "localhost:8080",
			Endpoint: "/api/v1/nvs",
			Timeout:  10 * time.Second,
		},
		Server: Server{
			Addr: ":8080",
		},
	}
}

// Load reads the configuration.
//
// Defaults are overlaid with the YAML file at path (skipped when path is empty), then with
// NVSPAD_* environment variables. A .env file in the working directory is loaded first, if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("NVSPAD_SERVER"); v != "" {
		cfg.Client.Server = v
	}
	if v := os.Getenv("NVSPAD_ENDPOINT"); v != "" {
		cfg.Client.Endpoint = v
	}
	if v := os.Getenv("NVSPAD_NAMESPACE"); v != "" {
		cfg.Client.Namespace = v
	}
	if v := os.Getenv("NVSPAD_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("NVSPAD_TIMEOUT: %w", err)
		}
		cfg.Client.Timeout = d
	}
	if v := os.Getenv("NVSPAD_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("NVSPAD_DEBUG: %w", err)
		}
		cfg.Client.Debug = debug
		cfg.Server.Debug = debug
	}
	if v := os.Getenv("NVSPAD_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("NVSPAD_SEED"); v != "" {
		cfg.Server.Seed = v
	}
	return nil
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	if c.Client.Server == "" {
		return errors.New("config: client.server is empty")
	}
	if c.Client.Endpoint == "" || c.Client.Endpoint[0] != '/' {
		return fmt.Errorf("config: client.endpoint %q must be an absolute path", c.Client.Endpoint)
	}
	if c.Client.Timeout <= 0 {
		return fmt.Errorf("config: client.timeout must be positive, got %v", c.Client.Timeout)
	}
	return nil
}
