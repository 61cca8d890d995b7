package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/joho/godotenv"
)

const (
	HomeEnv        = "LINKEDIN_SEARCH_HOME"
	OpenRouterEnv  = "OPENROUTER_API_KEY"
	OpenAIEnv      = "OPENAI_API_KEY"
	ExaEnv         = "EXA_API_KEY"
	dirName        = ".linkedin-search"
	configFileName = "config.json"
	logFileName    = "client.log"

	DefaultProfile  = "default"
	DefaultModel    = "openai/gpt-4o-mini"
	DefaultAddr     = "127.0.0.1:3000"
	DefaultEndpoint = "http://127.0.0.1:3000/api/chat"
)

var ErrProfileNotFound = errors.New("profile not found")

type Profile struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url,omitempty"`
	Model   string `json:"model"`
}

type SearchConfig struct {
	APIKey  string `json:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
}

type ServerConfig struct {
	Addr     string `json:"addr"`
	LogLevel string `json:"log_level,omitempty"`
}

// ClientConfig drives the terminal client. Unless Remote is set the client
// starts its own endpoint in-process and Endpoint is ignored.
type ClientConfig struct {
	Endpoint string `json:"endpoint"`
	Remote   bool   `json:"remote"`
	UserID   string `json:"user_id,omitempty"`
	LogLevel string `json:"log_level,omitempty"`
}

// TimeoutsConfig holds per-operation limits in seconds. Zero disables a limit.
type TimeoutsConfig struct {
	ModelSeconds   int `json:"model_seconds"`
	SearchSeconds  int `json:"search_seconds"`
	RequestSeconds int `json:"request_seconds"`
}

func (t TimeoutsConfig) Model() time.Duration { return seconds(t.ModelSeconds) }
func (t TimeoutsConfig) Search() time.Duration { return seconds(t.SearchSeconds) }
func (t TimeoutsConfig) Request() time.Duration { return seconds(t.RequestSeconds) }

type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute"`
	Burst             int `json:"burst"`
}

type Config struct {
	Profiles      map[string]Profile `json:"profiles"`
	ActiveProfile string             `json:"active_profile"`
	Search        SearchConfig       `json:"search"`
	Server        ServerConfig       `json:"server"`
	Client        ClientConfig       `json:"client"`
	Timeouts      TimeoutsConfig     `json:"timeouts"`
	RateLimit     RateLimitConfig    `json:"rate_limit"`

	currentProfile *Profile
	path           string
}

// LoadEnv reads a .env file from the working directory when there is one.
func LoadEnv() {
	_ = godotenv.Load()
}

// LoadConfig reads the config file, creating a default one on first run.
func LoadConfig() (*Config, error) {
	configPath, err := Path()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadFrom(configPath)
}

func LoadFrom(configPath string) (*Config, error) {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config, err := loadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	config.path = configPath
	config.applyDefaults()

	if err := config.setCurrentProfile(); err != nil {
		return nil, fmt.Errorf("failed to set current profile: %w", err)
	}
	return config, nil
}

// Dir is the directory holding the config file and client log.
func Dir() (string, error) {
	base := os.Getenv(HomeEnv)
	if base == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = homeDir
	}
	return filepath.Join(base, dirName), nil
}

func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// LogPath is where the terminal client writes its log.
func (c *Config) LogPath() string {
	return filepath.Join(filepath.Dir(c.path), logFileName)
}

// IsValid reports whether a model API key is available.
func (c *Config) IsValid() bool {
	return c.GetAPIKey() != ""
}

// GetAPIKey returns the model key. Environment variables win over the file.
func (c *Config) GetAPIKey() string {
	if key := firstEnv(OpenRouterEnv, OpenAIEnv); key != "" {
		return key
	}
	if c.currentProfile == nil {
		return ""
	}
	return c.currentProfile.APIKey
}

func (c *Config) GetModel() string {
	if c.currentProfile == nil || c.currentProfile.Model == "" {
		return DefaultModel
	}
	return c.currentProfile.Model
}

func (c *Config) GetBaseURL() string {
	if c.currentProfile == nil {
		return ""
	}
	return c.currentProfile.BaseURL
}

// GetSearchAPIKey returns the Exa key. The environment wins over the file.
func (c *Config) GetSearchAPIKey() string {
	if key := os.Getenv(ExaEnv); key != "" {
		return key
	}
	return c.Search.APIKey
}

// ProfileNames lists profiles in stable order.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Use makes name the active profile.
func (c *Config) Use(name string) error {
	profile, ok := c.Profiles[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	c.ActiveProfile = name
	c.currentProfile = &profile
	return nil
}

func (c *Config) Save() error {
	if c.path == "" {
		configPath, err := Path()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		c.path = configPath
	}
	return saveConfig(c, c.path)
}

func loadConfigFile(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return createDefaultConfig(configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

func defaultConfig() *Config {
	return &Config{
		Profiles: map[string]Profile{
			DefaultProfile: {Model: DefaultModel},
		},
		ActiveProfile: DefaultProfile,
		Server:        ServerConfig{Addr: DefaultAddr, LogLevel: "info"},
		Client:        ClientConfig{Endpoint: DefaultEndpoint, LogLevel: "info"},
		Timeouts:      TimeoutsConfig{ModelSeconds: 60, SearchSeconds: 30, RequestSeconds: 180},
		RateLimit:     RateLimitConfig{RequestsPerMinute: 20, Burst: 5},
	}
}

func createDefaultConfig(configPath string) (*Config, error) {
	config := defaultConfig()
	if err := saveConfig(config, configPath); err != nil {
		return nil, err
	}
	return config, nil
}

// applyDefaults fills sections missing from older or hand-written files.
// Timeouts and rate limits stay as written since zero is meaningful there.
func (c *Config) applyDefaults() {
	if len(c.Profiles) == 0 {
		c.Profiles = map[string]Profile{DefaultProfile: {Model: DefaultModel}}
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Client.Endpoint == "" {
		c.Client.Endpoint = DefaultEndpoint
	}
}

func saveConfig(config *Config, configPath string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0o600)
}

func (c *Config) setCurrentProfile() error {
	if profile, ok := c.Profiles[c.ActiveProfile]; ok {
		c.currentProfile = &profile
		return nil
	}
	// Fall back to the first profile by name.
	names := c.ProfileNames()
	if len(names) == 0 {
		return fmt.Errorf("no valid profiles found")
	}
	return c.Use(names[0])
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
