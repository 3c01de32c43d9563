package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	t.Parallel()
	cfg := Defaults()
	assert.NoError(t, validate(cfg))
	assert.Equal(t, "age", cfg.Cipher.Command)
	assert.Equal(t, "age", cfg.Cipher.Suffix)
	assert.Equal(t, SymlinkFail, cfg.Archive.SymlinkPolicy)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
service:
  log_level: debug
cipher:
  timeout: 30s
passphrase:
  words: 8
`)
	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "debug", cfg.Service.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.Cipher.Timeout)
	assert.Equal(t, 8, cfg.Passgen.Words)
	// Untouched fields keep their defaults.
	assert.Equal(t, "age", cfg.Cipher.Command)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("SEALBOX_TEST_TOKEN", "from-env-12345")
	path := writeConfig(t, `
bridge:
  enabled: true
  listen: "127.0.0.1:8787"
  token: "${SEALBOX_TEST_TOKEN}"
`)
	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "from-env-12345", cfg.Bridge.Token)
}

func TestLoadExpandsHome(t *testing.T) {
	path := writeConfig(t, `
service:
  journal_db: "~/state/journal.db"
paths:
  allowed_roots: ["~/documents"]
`)
	cfg, err := Load(path)
	assert.NoError(t, err)
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	assert.Equal(t, filepath.Join(home, "state", "journal.db"), cfg.Service.JournalDB)
	assert.Equal(t, filepath.Join(home, "documents"), cfg.Paths.AllowedRoots[0])
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"dotted suffix", "cipher:\n  suffix: \".age\"\n", "cipher.suffix"},
		{"zero wipe passes", "wipe:\n  passes: 0\n", "wipe.passes"},
		{"too few words", "passphrase:\n  words: 2\n", "passphrase.words"},
		{"bad symlink policy", "archive:\n  symlink_policy: follow\n", "symlink_policy"},
		{"bridge without listen", "bridge:\n  enabled: true\n  listen: \"\"\n", "bridge.listen"},
		{"zero rate window", "rate_limit:\n  window: 0s\n", "rate_limit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.yaml)
			_, err := Load(path)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadOrDefaultsFallsBack(t *testing.T) {
	t.Setenv("SEALBOX_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("HOME", t.TempDir())
	// Run from a directory without a config.yaml.
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(wd)

	cfg, err := LoadOrDefaults("")
	assert.NoError(t, err)
	assert.Equal(t, "age", cfg.Cipher.Command)
	assert.NotEmpty(t, cfg.Paths.AllowedRoots)

	// An explicit missing path still errors.
	_, err = LoadOrDefaults(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDiscoverPrefersEnvVar(t *testing.T) {
	path := writeConfig(t, "service:\n  log_level: debug\n")
	t.Setenv("SEALBOX_CONFIG", path)

	got, err := Discover()
	assert.NoError(t, err)
	assert.Equal(t, path, got)
}
