package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Backend   BackendConfig   `toml:"backend"`
	Workspace WorkspaceConfig `toml:"workspace"`
}

type ServerConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	DataDir     string `toml:"data_dir"`
	DatabaseURL string `toml:"database_url"`
	NatsURL     string `toml:"nats_url"`
}

// BackendConfig locates the Git-hosting backend the gateway talks to.
type BackendConfig struct {
	URL    string `toml:"url"`
	UserID string `toml:"user_id"` // GitHub numeric ID, used for backend path separation
}

type WorkspaceConfig struct {
	// DefaultBranch is the branch made explicit when a URL omits one,
	// and the fallback when the backend reports no current branch. The
	// "main" default is convention, not a guarantee that the branch
	// exists.
	DefaultBranch string `toml:"default_branch"`
}

func DefaultConfig() *Config {
	dataDir := "/var/lib/gition"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".local", "share", "gition")
	}

	return &Config{
		Server: ServerConfig{
			Host:    "127.0.0.1",
			Port:    7460,
			DataDir: dataDir,
		},
		Backend: BackendConfig{
			URL: "http://127.0.0.1:3001",
		},
		Workspace: WorkspaceConfig{
			DefaultBranch: "main",
		},
	}
}

func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Try system config first
	if _, err := os.Stat("/etc/gition/config.toml"); err == nil {
		if _, err := toml.DecodeFile("/etc/gition/config.toml", cfg); err != nil {
			return nil, err
		}
	}

	// Then user config (overrides system)
	home, err := os.UserHomeDir()
	if err == nil {
		userConfig := filepath.Join(home, ".config", "gition", "config.toml")
		if _, err := os.Stat(userConfig); err == nil {
			if _, err := toml.DecodeFile(userConfig, cfg); err != nil {
				return nil, err
			}
		}
	}

	// Environment variable overrides
	if backendURL := os.Getenv("GITION_BACKEND_URL"); backendURL != "" {
		cfg.Backend.URL = backendURL
	}

	if userID := os.Getenv("GITION_USER_ID"); userID != "" {
		cfg.Backend.UserID = userID
	}

	if dataDir := os.Getenv("GITION_DATA_DIR"); dataDir != "" {
		cfg.Server.DataDir = dataDir
	}

	if dbURL := os.Getenv("GITION_DATABASE_URL"); dbURL != "" {
		cfg.Server.DatabaseURL = dbURL
	} else if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Server.DatabaseURL = dbURL
	}

	if natsURL := os.Getenv("GITION_NATS_URL"); natsURL != "" {
		cfg.Server.NatsURL = natsURL
	}

	if branchName := os.Getenv("GITION_DEFAULT_BRANCH"); branchName != "" {
		cfg.Workspace.DefaultBranch = branchName
	}

	if host := os.Getenv("GITION_HOST"); host != "" {
		cfg.Server.Host = host
	}

	if portStr := os.Getenv("GITION_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid GITION_PORT: %q", portStr)
		}
		cfg.Server.Port = port
	}

	return cfg, nil
}

func (c *Config) EnsureDataDir() error {
	dirs := []string{
		c.Server.DataDir,
		filepath.Join(c.Server.DataDir, "logs"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}
