package config

import "time"

// Config is the complete sealbox configuration.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Cipher    CipherConfig    `yaml:"cipher"`
	Scrub     ScrubConfig     `yaml:"scrub"`
	Wipe      WipeConfig      `yaml:"wipe"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Passgen   PassgenConfig   `yaml:"passphrase"`
	HSM       HSMConfig       `yaml:"hsm,omitempty"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Paths     PathsConfig     `yaml:"paths"`
	Bridge    BridgeConfig    `yaml:"bridge,omitempty"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name       string `yaml:"name"`
	LogLevel   string `yaml:"log_level"`
	JournalDB  string `yaml:"journal_db"`
	StagingDir string `yaml:"staging_dir"`
	// StagingMaxAge bounds how long crash leftovers survive before the
	// startup sweep removes them.
	StagingMaxAge time.Duration `yaml:"staging_max_age"`
	Notify        bool          `yaml:"notify"`
}

// CipherConfig describes the external authenticated-encryption tool.
type CipherConfig struct {
	Command string `yaml:"command"`
	// Suffix is appended to encrypted artifacts, without the leading dot.
	Suffix string `yaml:"suffix"`
	// HeaderMagic identifies valid ciphertext files.
	HeaderMagic string `yaml:"header_magic"`
	// AuthFailPatterns are stderr substrings that mark a wrong passphrase
	// or tampered ciphertext, distinguishing it from generic failures.
	AuthFailPatterns []string      `yaml:"auth_fail_patterns"`
	Timeout          time.Duration `yaml:"timeout"`
}

// ScrubConfig describes the metadata scrubbing tool.
type ScrubConfig struct {
	Command string        `yaml:"command"`
	Timeout time.Duration `yaml:"timeout"`
	// UnsupportedExit is the scrubber's documented "format not supported"
	// exit code, treated as success for workflow purposes.
	UnsupportedExit int `yaml:"unsupported_exit"`
}

// WipeConfig describes the secure-erase tool.
type WipeConfig struct {
	Command string        `yaml:"command"`
	Passes  int           `yaml:"passes"`
	Timeout time.Duration `yaml:"timeout"`
}

// SymlinkPolicy decides what Build does with symlinks escaping the tree.
type SymlinkPolicy string

const (
	// SymlinkFail aborts archive creation on an escaping symlink.
	SymlinkFail SymlinkPolicy = "fail"
	// SymlinkSkip omits escaping symlinks from the archive.
	SymlinkSkip SymlinkPolicy = "skip"
)

// ArchiveConfig controls folder bundling.
type ArchiveConfig struct {
	SymlinkPolicy SymlinkPolicy `yaml:"symlink_policy"`
	ExtractLimit  int64         `yaml:"extract_limit_bytes"`
}

// PassgenConfig controls generated passphrases.
type PassgenConfig struct {
	Words int `yaml:"words"`
}

// HSMConfig describes the optional PKCS#11 entropy source.
type HSMConfig struct {
	Tool string `yaml:"tool"`
	// ModulePaths is the whitelist of driver locations; arbitrary shared
	// objects are never loaded.
	ModulePaths []string      `yaml:"module_paths"`
	RandomBytes int           `yaml:"random_bytes"`
	Timeout     time.Duration `yaml:"timeout"`
}

// RateLimitConfig tunes the failed-decryption limiter.
type RateLimitConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Window      time.Duration `yaml:"window"`
	Lockout     time.Duration `yaml:"lockout"`
}

// PathsConfig restricts which filesystem roots jobs may touch.
type PathsConfig struct {
	// AllowedRoots is the set of directories user selections must resolve
	// into. Empty means the user's home directory.
	AllowedRoots []string `yaml:"allowed_roots"`
	// DeniedPrefixes are always rejected, even under an allowed root.
	DeniedPrefixes []string `yaml:"denied_prefixes"`
}

// BridgeConfig defines the file-manager HTTP bridge.
type BridgeConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Token   string `yaml:"token"`
}

// Defaults returns a Config with the stock policy. The rate-limit and
// tool constants are product choices, not structural requirements.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:          "sealbox",
			LogLevel:      "info",
			JournalDB:     "~/.local/state/sealbox/journal.db",
			StagingDir:    "~/.cache/sealbox/staging",
			StagingMaxAge: 24 * time.Hour,
			Notify:        true,
		},
		Cipher: CipherConfig{
			Command:     "age",
			Suffix:      "age",
			HeaderMagic: "age-encryption.org/v1",
			AuthFailPatterns: []string{
				"incorrect passphrase",
				"no identity matched",
			},
			Timeout: 120 * time.Second,
		},
		Scrub: ScrubConfig{
			Command:         "mat2",
			Timeout:         60 * time.Second,
			UnsupportedExit: 1,
		},
		Wipe: WipeConfig{
			Command: "shred",
			Passes:  3,
			Timeout: 10 * time.Minute,
		},
		Archive: ArchiveConfig{
			SymlinkPolicy: SymlinkFail,
			ExtractLimit:  8 << 30,
		},
		Passgen: PassgenConfig{
			Words: 24,
		},
		HSM: HSMConfig{
			Tool: "pkcs11-tool",
			ModulePaths: []string{
				"/usr/lib/libeToken.so",
				"/usr/lib64/libeToken.so",
				"/opt/eToken/lib/libeToken.so",
				"/usr/lib/x86_64-linux-gnu/libeToken.so",
			},
			RandomBytes: 256,
			Timeout:     30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			MaxAttempts: 3,
			Window:      5 * time.Minute,
			Lockout:     30 * time.Second,
		},
		Paths: PathsConfig{
			DeniedPrefixes: []string{
				"/bin", "/sbin", "/usr", "/etc", "/var", "/boot",
			},
		},
		Bridge: BridgeConfig{
			Enabled: false,
			Listen:  "127.0.0.1:8329",
		},
	}
}
