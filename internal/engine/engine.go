// Package engine drives the external cipher for encryption and
// decryption. The passphrase travels only over the child's stdin, the
// output lands in a .partial sibling that is renamed into place only
// after the result has been verified.
package engine

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/sealbox/sealbox/internal/config"
	"github.com/sealbox/sealbox/internal/errs"
	"github.com/sealbox/sealbox/internal/log"
	"github.com/sealbox/sealbox/internal/procexec"
	"github.com/sealbox/sealbox/internal/secret"
)

const partialSuffix = ".partial"

// Engine wraps a single cipher command (age by default).
type Engine struct {
	command      string
	suffix       string
	headerMagic  []byte
	authPatterns []string
	timeout      time.Duration
	runner       *procexec.Runner
	logger       *slog.Logger
}

func New(cfg config.CipherConfig, runner *procexec.Runner) *Engine {
	return &Engine{
		command:      cfg.Command,
		suffix:       cfg.Suffix,
		headerMagic:  []byte(cfg.HeaderMagic),
		authPatterns: cfg.AuthFailPatterns,
		timeout:      cfg.Timeout,
		runner:       runner,
		logger:       log.WithComponent("engine"),
	}
}

// Suffix returns the artifact suffix without a leading dot, e.g. "age".
func (e *Engine) Suffix() string { return e.suffix }

// ArtifactName maps an input path to its encrypted sibling name.
func (e *Engine) ArtifactName(inPath string) string {
	return inPath + "." + e.suffix
}

// PlainName strips the cipher suffix; ok is false when inPath does not
// carry it.
func (e *Engine) PlainName(inPath string) (string, bool) {
	dotted := "." + e.suffix
	if !strings.HasSuffix(inPath, dotted) || len(inPath) == len(dotted) {
		return "", false
	}
	return strings.TrimSuffix(inPath, dotted), true
}

// HasHeader reports whether path starts with the cipher's file magic.
func (e *Engine) HasHeader(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	magic := make([]byte, len(e.headerMagic))
	if _, err := io.ReadFull(f, magic); err != nil {
		return false
	}
	return bytes.Equal(magic, e.headerMagic)
}

// Available reports whether the cipher binary can be found on PATH.
func (e *Engine) Available() bool { return e.runner.Available(e.command) }

// Encrypt encrypts inPath to outPath with the given passphrase. The
// cipher writes to a fresh .partial sibling; the sibling is renamed to
// outPath only after the child exits cleanly and the output is
// non-empty with the expected header. The passphrase is written twice
// (entry and confirmation) and never appears on argv.
func (e *Engine) Encrypt(ctx context.Context, inPath, outPath string, pass *secret.Passphrase) error {
	partial := outPath + partialSuffix
	if err := rejectExisting(partial); err != nil {
		return err
	}
	defer os.Remove(partial)

	stdin := stdinPayload(pass, 2)
	defer wipe(stdin)

	res, err := e.runner.Run(ctx, procexec.Spec{
		Command: e.command,
		Args:    []string{"-p", "-o", partial, inPath},
		Stdin:   stdin,
		Timeout: e.timeout,
	})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%w: cipher exited %d: %s",
			errs.ErrProcess, res.ExitCode, firstLine(string(res.Stderr)))
	}

	info, err := os.Stat(partial)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("%w: cipher produced no output for %q", errs.ErrIntegrity, inPath)
	}
	if !e.HasHeader(partial) {
		return fmt.Errorf("%w: output of %q lacks cipher header", errs.ErrIntegrity, inPath)
	}

	if err := os.Rename(partial, outPath); err != nil {
		return fmt.Errorf("%w: finalize %q: %v", errs.ErrProcess, outPath, err)
	}
	e.logger.Info("encrypted", "in", filepath.Base(inPath), "bytes", info.Size())
	return nil
}

// Decrypt decrypts inPath to outPath. The input must carry the cipher
// header; a stderr match against the configured auth-failure patterns
// yields ErrAuthenticationFailed so callers can rate-limit retries
// separately from tool breakage.
func (e *Engine) Decrypt(ctx context.Context, inPath, outPath string, pass *secret.Passphrase) error {
	if !e.HasHeader(inPath) {
		return fmt.Errorf("%w: %q is not a recognized encrypted file", errs.ErrValidation, inPath)
	}

	partial := outPath + partialSuffix
	if err := rejectExisting(partial); err != nil {
		return err
	}
	defer os.Remove(partial)

	stdin := stdinPayload(pass, 1)
	defer wipe(stdin)

	res, err := e.runner.Run(ctx, procexec.Spec{
		Command: e.command,
		Args:    []string{"-d", "-o", partial, inPath},
		Stdin:   stdin,
		Timeout: e.timeout,
	})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		if e.isAuthFailure(string(res.Stderr)) {
			return fmt.Errorf("%w: cipher rejected passphrase for %q",
				errs.ErrAuthenticationFailed, filepath.Base(inPath))
		}
		return fmt.Errorf("%w: cipher exited %d: %s",
			errs.ErrProcess, res.ExitCode, firstLine(string(res.Stderr)))
	}

	if _, err := os.Stat(partial); err != nil {
		return fmt.Errorf("%w: cipher produced no output for %q", errs.ErrIntegrity, inPath)
	}
	if err := os.Rename(partial, outPath); err != nil {
		return fmt.Errorf("%w: finalize %q: %v", errs.ErrProcess, outPath, err)
	}
	return nil
}

// VerifyRoundTrip decrypts artifact into a scratch path and confirms it
// reproduces the original bytes. Used before anything irreversible
// happens to the plaintext.
func (e *Engine) VerifyRoundTrip(ctx context.Context, artifact, original, scratchDir string, pass *secret.Passphrase) error {
	check := filepath.Join(scratchDir, filepath.Base(original)+".verify")
	defer os.Remove(check)

	if err := e.Decrypt(ctx, artifact, check, pass); err != nil {
		return fmt.Errorf("%w: verification decrypt failed: %v", errs.ErrIntegrity, err)
	}
	want, err := Fingerprint(original)
	if err != nil {
		return fmt.Errorf("%w: verification compare: %v", errs.ErrIntegrity, err)
	}
	got, err := Fingerprint(check)
	if err != nil {
		return fmt.Errorf("%w: verification compare: %v", errs.ErrIntegrity, err)
	}
	if want != got {
		return fmt.Errorf("%w: round trip of %q does not match original",
			errs.ErrIntegrity, filepath.Base(original))
	}
	return nil
}

// Fingerprint returns the blake3 digest of a file, hex encoded.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (e *Engine) isAuthFailure(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, pattern := range e.authPatterns {
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// stdinPayload renders the passphrase followed by a newline, repeated
// for interactive confirmation prompts.
func stdinPayload(pass *secret.Passphrase, times int) []byte {
	raw := pass.Bytes()
	buf := make([]byte, 0, (len(raw)+1)*times)
	for i := 0; i < times; i++ {
		buf = append(buf, raw...)
		buf = append(buf, '\n')
	}
	return buf
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func rejectExisting(path string) error {
	if _, err := os.Lstat(path); err == nil {
		return fmt.Errorf("%w: stale partial output %q exists", errs.ErrValidation, path)
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

