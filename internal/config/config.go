package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirName is the name of both the global (~/.snag) and per-repo (.snag) directories.
const DirName = ".snag"

// Config holds application configuration.
type Config struct {
	// DefaultLabels are applied to reports whose capture document carries none.
	DefaultLabels []string `json:"default_labels,omitempty"`

	// BodyWarnBytes flags stored reports whose body is close to the tracker limit.
	BodyWarnBytes int `json:"body_warn_bytes,omitempty"`

	// BodyRejectBytes rejects reports the tracker would refuse. Bodies are normally
	// bounded well below this; screenshot lines are the only growth after assembly.
	BodyRejectBytes int `json:"body_reject_bytes,omitempty"`

	// DuplicateMode is the default for captures whose context hash was already
	// reported: "allow" stores them and links the earlier reports, "error" refuses.
	DuplicateMode string `json:"duplicate_mode,omitempty"`

	// AllowedPaths is an allowlist of directories for export/import files.
	// Paths outside ~/.snag/exports require being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for export/import.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// LogFormat is text or json.
	LogFormat string `json:"log_format,omitempty"`

	// WebBind and WebPort are the listen address of the report browser.
	WebBind string `json:"web_bind,omitempty"`
	WebPort int    `json:"web_port,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BodyWarnBytes:   55 * 1024,
		BodyRejectBytes: 64 * 1024,
		DuplicateMode:   "allow",
		LogLevel:        "info",
		LogFormat:       "text",
		WebBind:         "127.0.0.1",
		WebPort:         7878,
	}
}

// Validate checks values that Merge cannot repair.
func (c *Config) Validate() error {
	if c.BodyWarnBytes > c.BodyRejectBytes {
		return fmt.Errorf("body_warn_bytes (%d) must not exceed body_reject_bytes (%d)", c.BodyWarnBytes, c.BodyRejectBytes)
	}
	switch c.DuplicateMode {
	case "allow", "error":
	default:
		return fmt.Errorf("duplicate_mode must be allow or error, got %q", c.DuplicateMode)
	}
	if c.WebPort < 0 || c.WebPort > 65535 {
		return fmt.Errorf("web_port out of range: %d", c.WebPort)
	}
	return nil
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.snag.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.snag) and repo (.snag) directories.
// Repo config is found by walking upward from startDir to find the nearest .snag/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	cfg := Merge(Merge(DefaultConfig(), global), repo)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindRepoConfig walks upward from startDir to find the nearest .snag/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, DirName, "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	merged := Merge(DefaultConfig(), cfg)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	return &Config{
		// Scalars: overlay wins if non-zero, else base
		BodyWarnBytes:   orInt(overlay.BodyWarnBytes, base.BodyWarnBytes),
		BodyRejectBytes: orInt(overlay.BodyRejectBytes, base.BodyRejectBytes),
		DBMaxOpenConns:  orInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:  orInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		WebPort:         orInt(overlay.WebPort, base.WebPort),
		DuplicateMode:   orString(overlay.DuplicateMode, base.DuplicateMode),
		LogLevel:        orString(overlay.LogLevel, base.LogLevel),
		LogFormat:       orString(overlay.LogFormat, base.LogFormat),
		WebBind:         orString(overlay.WebBind, base.WebBind),

		// Booleans: overlay wins if true, else base
		AllowUnsafePaths: base.AllowUnsafePaths || overlay.AllowUnsafePaths,

		// Arrays: merge and deduplicate
		DefaultLabels: mergeStringSlice(base.DefaultLabels, overlay.DefaultLabels),
		AllowedPaths:  mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths),
		DisabledTools: mergeStringSlice(base.DisabledTools, overlay.DisabledTools),
	}
}

func orInt(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}

func orString(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
