package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is read from a YAML file under the user's home directory.
// All fields are optional; defaults are applied by the accessor methods.
//
// Example (~/.threadgate/config.yaml):
//
// server:
//   host: 127.0.0.1
//   port: 8090
// provider:
//   assistant_id: asst_xxx
//   poll_interval_seconds: 1
//   poll_max_attempts: 30
// uploads:
//   extensions: [.jsonl, .txt, .csv, .pdf, .docx]
//   single_max_bytes: 20971520
//   directory_max_bytes: 52428800
// threads:
//   store: database
//
// Notes:
// - If the config file does not exist, Load returns defaults without error.
// - If the config file exists but cannot be parsed, Load returns an error.
// - Secrets (provider.api_key) may be overridden by OPENAI_API_KEY.

type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Provider ProviderConfig `yaml:"provider"`
	Uploads  UploadConfig   `yaml:"uploads"`
	Logs     LogConfig      `yaml:"logs"`
	Cache    CacheConfig    `yaml:"cache"`
	Threads  ThreadConfig   `yaml:"threads"`
}

type ServerConfig struct {
	Host *string `yaml:"host"`
	Port *int    `yaml:"port"`
}

type DatabaseConfig struct {
	Path *string `yaml:"path"`
}

type ProviderConfig struct {
	BaseURL             *string `yaml:"base_url"`
	APIKey              *string `yaml:"api_key"`
	AssistantID         *string `yaml:"assistant_id"`
	PollIntervalSeconds *int    `yaml:"poll_interval_seconds"`
	PollMaxAttempts     *int    `yaml:"poll_max_attempts"`
}

type UploadConfig struct {
	Extensions        []string `yaml:"extensions"`
	SingleMaxBytes    *int64   `yaml:"single_max_bytes"`
	DirectoryMaxBytes *int64   `yaml:"directory_max_bytes"`
}

type LogConfig struct {
	ChatDir *string `yaml:"chat_dir"`
}

type CacheConfig struct {
	Backend    *string `yaml:"backend"` // memory or redis
	RedisAddr  *string `yaml:"redis_addr"`
	TTLSeconds *int    `yaml:"ttl_seconds"`
	MaxEntries *int    `yaml:"max_entries"`
}

// ThreadConfig selects how conversation -> remote thread mappings are kept.
// The database store is authoritative for multi-user deployments; the file
// store exists for single-tenant setups and is never auto-detected.
type ThreadConfig struct {
	Store *string `yaml:"store"` // database or file
	File  *string `yaml:"file"`
}

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 8090

	DefaultPollInterval    = time.Second
	DefaultPollMaxAttempts = 30

	DefaultSingleMaxBytes    = 20 << 20
	DefaultDirectoryMaxBytes = 50 << 20

	DefaultCacheBackend    = "memory"
	DefaultCacheRedisAddr  = "127.0.0.1:6379"
	DefaultCacheTTL        = 30 * time.Second
	DefaultCacheMaxEntries = 1024

	ThreadStoreDatabase = "database"
	ThreadStoreFile     = "file"
)

// DefaultExtensions is the upload allow-list applied when the config file
// does not name one.
var DefaultExtensions = []string{".jsonl", ".txt", ".csv", ".pdf", ".docx"}

// DefaultPaths returns the config dir and config file path.
func DefaultPaths() (configDir string, configFile string, err error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("get user home dir: %w", err)
	}
	configDir = filepath.Join(home, ".threadgate")
	configFile = filepath.Join(configDir, "config.yaml")
	return configDir, configFile, nil
}

// Load reads ~/.threadgate/config.yaml.
// If the file doesn't exist, it returns a default config and nil error.
func Load() (*AppConfig, string, error) {
	_, configFile, err := DefaultPaths()
	if err != nil {
		return nil, "", err
	}

	cfg := &AppConfig{}

	b, err := os.ReadFile(configFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, configFile, nil
		}
		return nil, "", fmt.Errorf("read config file %s: %w", configFile, err)
	}

	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, "", fmt.Errorf("parse yaml config %s: %w", configFile, err)
	}

	// Validate
	if strings.TrimSpace(cfg.Host()) == "" {
		return nil, "", fmt.Errorf("invalid server.host (empty) in %s", configFile)
	}
	if port := cfg.Port(); port < 1 || port > 65535 {
		return nil, "", fmt.Errorf("invalid server.port %d in %s", port, configFile)
	}
	if n := cfg.PollMaxAttempts(); n < 1 {
		return nil, "", fmt.Errorf("invalid provider.poll_max_attempts %d in %s", n, configFile)
	}
	switch cfg.ThreadStore() {
	case ThreadStoreDatabase, ThreadStoreFile:
	default:
		return nil, "", fmt.Errorf("invalid threads.store %q in %s (want database or file)", cfg.ThreadStore(), configFile)
	}
	switch cfg.CacheBackend() {
	case "memory", "redis":
	default:
		return nil, "", fmt.Errorf("invalid cache.backend %q in %s (want memory or redis)", cfg.CacheBackend(), configFile)
	}

	return cfg, configFile, nil
}

// EnsureDefaultConfig writes a default config file if it doesn't already exist.
// It is safe to call on startup.
func EnsureDefaultConfig() (string, error) {
	configDir, configFile, err := DefaultPaths()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configFile); err == nil {
		return configFile, nil
	}

	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("create config dir %s: %w", configDir, err)
	}

	defaultCfg := AppConfig{
		Server:  ServerConfig{Host: ptr(DefaultHost), Port: ptr(DefaultPort)},
		Threads: ThreadConfig{Store: ptr(ThreadStoreDatabase)},
	}
	b, err := yaml.Marshal(&defaultCfg)
	if err != nil {
		return "", fmt.Errorf("marshal default config: %w", err)
	}

	// Write with restrictive permissions.
	if err := os.WriteFile(configFile, b, 0o600); err != nil {
		return "", fmt.Errorf("write default config file %s: %w", configFile, err)
	}

	return configFile, nil
}

func (c *AppConfig) Host() string {
	if c == nil || c.Server.Host == nil {
		return DefaultHost
	}
	if v := strings.TrimSpace(*c.Server.Host); v != "" {
		return v
	}
	return DefaultHost
}

func (c *AppConfig) Port() int {
	if c == nil || c.Server.Port == nil {
		return DefaultPort
	}
	return *c.Server.Port
}

// DatabasePath returns the sqlite file path, creating no directories.
func (c *AppConfig) DatabasePath() string {
	if c != nil && c.Database.Path != nil && strings.TrimSpace(*c.Database.Path) != "" {
		return *c.Database.Path
	}
	return homePath("threadgate.db")
}

func (c *AppConfig) ProviderBaseURL() string {
	if c == nil || c.Provider.BaseURL == nil {
		return ""
	}
	return strings.TrimSpace(*c.Provider.BaseURL)
}

// ProviderAPIKey returns the server-wide fallback key. OPENAI_API_KEY wins
// over the config file so the secret can stay out of it.
func (c *AppConfig) ProviderAPIKey() string {
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		return v
	}
	if c == nil || c.Provider.APIKey == nil {
		return ""
	}
	return strings.TrimSpace(*c.Provider.APIKey)
}

func (c *AppConfig) AssistantID() string {
	if v := strings.TrimSpace(os.Getenv("OPENAI_ASSISTANT_ID")); v != "" {
		return v
	}
	if c == nil || c.Provider.AssistantID == nil {
		return ""
	}
	return strings.TrimSpace(*c.Provider.AssistantID)
}

func (c *AppConfig) PollInterval() time.Duration {
	if c == nil || c.Provider.PollIntervalSeconds == nil || *c.Provider.PollIntervalSeconds < 1 {
		return DefaultPollInterval
	}
	return time.Duration(*c.Provider.PollIntervalSeconds) * time.Second
}

func (c *AppConfig) PollMaxAttempts() int {
	if c == nil || c.Provider.PollMaxAttempts == nil {
		return DefaultPollMaxAttempts
	}
	return *c.Provider.PollMaxAttempts
}

func (c *AppConfig) UploadExtensions() []string {
	if c == nil || len(c.Uploads.Extensions) == 0 {
		return DefaultExtensions
	}
	return c.Uploads.Extensions
}

func (c *AppConfig) SingleMaxBytes() int64 {
	if c == nil || c.Uploads.SingleMaxBytes == nil || *c.Uploads.SingleMaxBytes < 1 {
		return DefaultSingleMaxBytes
	}
	return *c.Uploads.SingleMaxBytes
}

func (c *AppConfig) DirectoryMaxBytes() int64 {
	if c == nil || c.Uploads.DirectoryMaxBytes == nil || *c.Uploads.DirectoryMaxBytes < 1 {
		return DefaultDirectoryMaxBytes
	}
	return *c.Uploads.DirectoryMaxBytes
}

func (c *AppConfig) ChatLogDir() string {
	if c != nil && c.Logs.ChatDir != nil && strings.TrimSpace(*c.Logs.ChatDir) != "" {
		return *c.Logs.ChatDir
	}
	return homePath("chatlogs")
}

func (c *AppConfig) CacheBackend() string {
	if c == nil || c.Cache.Backend == nil || strings.TrimSpace(*c.Cache.Backend) == "" {
		return DefaultCacheBackend
	}
	return strings.TrimSpace(*c.Cache.Backend)
}

func (c *AppConfig) CacheRedisAddr() string {
	if c == nil || c.Cache.RedisAddr == nil || strings.TrimSpace(*c.Cache.RedisAddr) == "" {
		return DefaultCacheRedisAddr
	}
	return strings.TrimSpace(*c.Cache.RedisAddr)
}

func (c *AppConfig) CacheTTL() time.Duration {
	if c == nil || c.Cache.TTLSeconds == nil || *c.Cache.TTLSeconds < 1 {
		return DefaultCacheTTL
	}
	return time.Duration(*c.Cache.TTLSeconds) * time.Second
}

func (c *AppConfig) CacheMaxEntries() int {
	if c == nil || c.Cache.MaxEntries == nil || *c.Cache.MaxEntries < 1 {
		return DefaultCacheMaxEntries
	}
	return *c.Cache.MaxEntries
}

func (c *AppConfig) ThreadStore() string {
	if c == nil || c.Threads.Store == nil || strings.TrimSpace(*c.Threads.Store) == "" {
		return ThreadStoreDatabase
	}
	return strings.TrimSpace(*c.Threads.Store)
}

func (c *AppConfig) ThreadFile() string {
	if c != nil && c.Threads.File != nil && strings.TrimSpace(*c.Threads.File) != "" {
		return *c.Threads.File
	}
	return homePath("threads.json")
}

func homePath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".threadgate", name)
	}
	return filepath.Join(home, ".threadgate", name)
}

func ptr[T any](v T) *T { return &v }
