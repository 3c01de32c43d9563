// Package hsm sources passphrase entropy from a PKCS#11 token via
// pkcs11-tool. There is no software fallback: if the token cannot
// deliver the requested bytes the caller gets an error, never weaker
// randomness.
package hsm

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sealbox/sealbox/internal/config"
	"github.com/sealbox/sealbox/internal/errs"
	"github.com/sealbox/sealbox/internal/log"
	"github.com/sealbox/sealbox/internal/procexec"
	"github.com/sealbox/sealbox/internal/secret"
	"github.com/sealbox/sealbox/internal/wipe"
)

const (
	pinMinLen = 4
	pinMaxLen = 16
)

// Provider drives pkcs11-tool against a whitelisted module.
type Provider struct {
	tool        string
	modulePaths []string
	randomBytes int
	timeout     time.Duration
	runner      *procexec.Runner
	deleter     *wipe.Deleter
	logger      *slog.Logger
}

func New(cfg config.HSMConfig, runner *procexec.Runner, deleter *wipe.Deleter) *Provider {
	return &Provider{
		tool:        cfg.Tool,
		modulePaths: cfg.ModulePaths,
		randomBytes: cfg.RandomBytes,
		timeout:     cfg.Timeout,
		runner:      runner,
		deleter:     deleter,
		logger:      log.WithComponent("hsm"),
	}
}

// Module returns the first whitelisted PKCS#11 module present on disk.
func (p *Provider) Module() (string, bool) {
	for _, path := range p.modulePaths {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}

// Available reports whether both the tool and a whitelisted module
// exist, which is the predicate the host menu uses.
func (p *Provider) Available() bool {
	if !p.runner.Available(p.tool) {
		return false
	}
	_, ok := p.Module()
	return ok
}

// ValidatePIN enforces the token PIN shape before it is ever handed to
// the tool: 4 to 16 printable ASCII characters.
func ValidatePIN(pin string) error {
	if len(pin) < pinMinLen || len(pin) > pinMaxLen {
		return fmt.Errorf("%w: PIN must be %d-%d characters", errs.ErrValidation, pinMinLen, pinMaxLen)
	}
	for _, r := range pin {
		if r < 0x21 || r > 0x7e {
			return fmt.Errorf("%w: PIN contains non-printable or non-ASCII characters", errs.ErrValidation)
		}
	}
	return nil
}

// GeneratePassphrase pulls the configured number of random bytes from
// the token and encodes them URL-safe base64 without padding. The tool
// writes to a 0600 temp file which is overwritten and removed whether
// or not the call succeeds.
func (p *Provider) GeneratePassphrase(ctx context.Context, pin string) (*secret.Passphrase, error) {
	if err := ValidatePIN(pin); err != nil {
		return nil, err
	}
	module, ok := p.Module()
	if !ok {
		return nil, fmt.Errorf("%w: no whitelisted PKCS#11 module found", errs.ErrValidation)
	}

	tmp, err := os.CreateTemp("", "sealbox-hsm-*")
	if err != nil {
		return nil, fmt.Errorf("%w: create random-output file: %v", errs.ErrProcess, err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: restrict random-output file: %v", errs.ErrProcess, err)
	}
	tmp.Close()
	defer func() {
		if err := p.deleter.Delete(context.Background(), tmpPath, 1); err != nil {
			p.logger.Warn("failed to wipe random-output file", "path", filepath.Base(tmpPath), "error", err)
			os.Remove(tmpPath)
		}
	}()

	res, err := p.runner.Run(ctx, procexec.Spec{
		Command: p.tool,
		Args: []string{
			"--module", module,
			"--login", "--pin", pin,
			"--generate-random", strconv.Itoa(p.randomBytes),
			"--output-file", tmpPath,
		},
		Timeout: p.timeout,
	})
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("%w: pkcs11-tool exited %d: %s",
			errs.ErrProcess, res.ExitCode, res.Stderr)
	}

	raw, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read token output: %v", errs.ErrProcess, err)
	}
	defer func() {
		for i := range raw {
			raw[i] = 0
		}
	}()
	if len(raw) != p.randomBytes {
		return nil, fmt.Errorf("%w: token delivered %d of %d requested bytes",
			errs.ErrIntegrity, len(raw), p.randomBytes)
	}

	encoded := []byte(base64.RawURLEncoding.EncodeToString(raw))
	return secret.New(encoded), nil
}
