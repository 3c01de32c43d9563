package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses configuration from a file, applying defaults for
// anything the file omits.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: check the path or run with --config", absPath)
	}
	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	data = expandEnvVars(data)

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", absPath, err)
	}

	expandHome(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Discover finds the config file by checking standard locations.
// Priority: $SEALBOX_CONFIG, ~/.config/sealbox/config.yaml,
// /etc/sealbox/config.yaml, ./config.yaml.
func Discover() (string, error) {
	if p := os.Getenv("SEALBOX_CONFIG"); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(homeDir, ".config", "sealbox", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	if _, err := os.Stat("/etc/sealbox/config.yaml"); err == nil {
		return "/etc/sealbox/config.yaml", nil
	}
	if _, err := os.Stat("./config.yaml"); err == nil {
		return "./config.yaml", nil
	}
	return "", fmt.Errorf("no config found (checked: $SEALBOX_CONFIG, ~/.config/sealbox, /etc/sealbox, ./config.yaml)")
}

// LoadOrDefaults loads the discovered config, falling back to Defaults
// when no file exists anywhere. An explicit path that fails still errors.
func LoadOrDefaults(configPath string) (*Config, error) {
	if configPath != "" {
		return Load(configPath)
	}
	discovered, err := Discover()
	if err != nil {
		cfg := Defaults()
		expandHome(cfg)
		return cfg, nil
	}
	return Load(discovered)
}

func expandEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envVarPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// expandHome resolves a leading ~/ in path-valued fields.
func expandHome(cfg *Config) {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	expand := func(p string) string {
		if strings.HasPrefix(p, "~/") {
			return filepath.Join(home, p[2:])
		}
		return p
	}
	cfg.Service.JournalDB = expand(cfg.Service.JournalDB)
	cfg.Service.StagingDir = expand(cfg.Service.StagingDir)
	for i, r := range cfg.Paths.AllowedRoots {
		cfg.Paths.AllowedRoots[i] = expand(r)
	}
	if len(cfg.Paths.AllowedRoots) == 0 {
		cfg.Paths.AllowedRoots = []string{home}
	}
}

func validate(cfg *Config) error {
	if cfg.Cipher.Command == "" {
		return fmt.Errorf("cipher.command is required")
	}
	if cfg.Cipher.Suffix == "" || strings.HasPrefix(cfg.Cipher.Suffix, ".") {
		return fmt.Errorf("cipher.suffix must be a bare extension, got %q", cfg.Cipher.Suffix)
	}
	if cfg.Cipher.Timeout <= 0 {
		return fmt.Errorf("cipher.timeout must be positive")
	}
	if cfg.Service.StagingMaxAge <= 0 {
		return fmt.Errorf("service.staging_max_age must be positive")
	}
	if cfg.Wipe.Passes < 1 {
		return fmt.Errorf("wipe.passes must be at least 1")
	}
	if cfg.Passgen.Words < 4 {
		return fmt.Errorf("passphrase.words must be at least 4, got %d", cfg.Passgen.Words)
	}
	if cfg.RateLimit.MaxAttempts < 1 || cfg.RateLimit.Window <= 0 || cfg.RateLimit.Lockout <= 0 {
		return fmt.Errorf("rate_limit requires max_attempts >= 1 and positive window/lockout")
	}
	switch cfg.Archive.SymlinkPolicy {
	case SymlinkFail, SymlinkSkip:
	default:
		return fmt.Errorf("archive.symlink_policy must be %q or %q, got %q",
			SymlinkFail, SymlinkSkip, cfg.Archive.SymlinkPolicy)
	}
	if cfg.Bridge.Enabled && cfg.Bridge.Listen == "" {
		return fmt.Errorf("bridge.listen is required when bridge.enabled")
	}
	return nil
}
