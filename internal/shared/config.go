package shared

import (
	_ "embed"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	YouTube     YouTubeConfig     `toml:"youtube"`
	Session     SessionConfig     `toml:"session"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	CLI         CLIConfig         `toml:"cli"`
}

// CredentialsConfig contains identity provider credentials.
type CredentialsConfig struct {
	Google GoogleConfig `toml:"google"`
}

// GoogleConfig contains the OAuth2 web client registered in Google Cloud.
type GoogleConfig struct {
	ClientID       string `toml:"client_id"`
	ClientSecret   string `toml:"client_secret"`
	ProjectID      string `toml:"project_id"`
	RedirectURI    string `toml:"redirect_uri"`
	CLIRedirectURI string `toml:"cli_redirect_uri"`
}

// YouTubeConfig contains YouTube Data API settings.
type YouTubeConfig struct {
	Endpoint string `toml:"endpoint"`
	PageSize int    `toml:"page_size"`
}

// SessionConfig contains browser session settings.
type SessionConfig struct {
	Key             string `toml:"key"`
	CookieName      string `toml:"cookie_name"`
	MaxAgeSeconds   int    `toml:"max_age_seconds"`
	StateTTLSeconds int    `toml:"state_ttl_seconds"`
	SecureCookie    bool   `toml:"secure_cookie"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host                 string  `toml:"host"`
	Port                 int     `toml:"port"`
	RateLimit            float64 `toml:"rate_limit"`
	RateBurst            int     `toml:"rate_burst"`
	MaxUploadBytes       int64   `toml:"max_upload_bytes"`
	ImportTimeoutSeconds int     `toml:"import_timeout_seconds"`
}

// CLIConfig contains settings for the command line login flow.
type CLIConfig struct {
	CredentialsPath string `toml:"credentials_path"`
}

// Addr returns the host:port the web server listens on.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ImportTimeout bounds a single upload's import loop.
func (s ServerConfig) ImportTimeout() time.Duration {
	return time.Duration(s.ImportTimeoutSeconds) * time.Second
}

// MaxAge is the lifetime of a browser session.
func (s SessionConfig) MaxAge() time.Duration {
	return time.Duration(s.MaxAgeSeconds) * time.Second
}

// StateTTL is how long an anti-forgery state stays valid.
func (s SessionConfig) StateTTL() time.Duration {
	return time.Duration(s.StateTTLSeconds) * time.Second
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if _, err := toml.Decode(string(data), config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnvFile loads KEY=value pairs from a dotenv file into the process environment.
//
// A missing file is not an error. Variables already set are left untouched.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides config values with the externally provisioned environment.
//
// SESSION_KEY falls back to CLIENT_SECRET when unset.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}

	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	set(&c.Credentials.Google.ClientID, "CLIENT_ID")
	set(&c.Credentials.Google.ClientSecret, "CLIENT_SECRET")
	set(&c.Credentials.Google.ProjectID, "PROJECT_ID")
	set(&c.Credentials.Google.RedirectURI, "REDIRECT_URI")
	set(&c.Session.Key, "SESSION_KEY")
	set(&c.Database.Path, "YTBULK_DB")

	if addr := strings.TrimSpace(getenv("YTBULK_ADDR")); addr != "" {
		if host, port, err := net.SplitHostPort(addr); err == nil {
			if p, err := strconv.Atoi(port); err == nil {
				c.Server.Host = host
				c.Server.Port = p
			}
		}
	}

	if c.Session.Key == "" {
		c.Session.Key = c.Credentials.Google.ClientSecret
	}
}

// Validate reports configuration that would prevent the OAuth flow from working.
func (c *Config) Validate() error {
	g := c.Credentials.Google
	switch {
	case g.ClientID == "" || g.ClientSecret == "":
		return fmt.Errorf("%w: google client_id and client_secret are required", ErrMissingCredentials)
	case placeholder(g.ClientID) || placeholder(g.ClientSecret):
		return fmt.Errorf("%w: replace the example google client_id and client_secret", ErrMissingCredentials)
	case g.RedirectURI == "":
		return fmt.Errorf("%w: google redirect_uri is required", ErrInvalidConfig)
	case c.Session.Key == "":
		return fmt.Errorf("%w: session key is required", ErrInvalidConfig)
	case c.YouTube.PageSize <= 0 || c.YouTube.PageSize > 50:
		return fmt.Errorf("%w: youtube page_size must be between 1 and 50", ErrInvalidConfig)
	}
	return nil
}

// placeholder reports values copied unchanged from config.example.toml.
func placeholder(v string) bool {
	return strings.HasPrefix(v, "your_")
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
