// Package doctor validates sealbox configuration and probes the
// external tools the pipelines depend on.
package doctor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sealbox/sealbox/internal/config"
	"github.com/sealbox/sealbox/internal/procexec"
)

const probeTimeout = 2 * time.Second

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
	Tools    []Tool  `json:"tools"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Tool reports one external dependency probe.
type Tool struct {
	Name      string `json:"name"`
	Required  bool   `json:"required"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// Doctor checks a loaded config against the machine it runs on.
type Doctor struct {
	cfg    *config.Config
	runner *procexec.Runner
}

func New(cfg *config.Config, runner *procexec.Runner) *Doctor {
	return &Doctor{cfg: cfg, runner: runner}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate(ctx context.Context) *Result {
	r := &Result{Valid: true}

	d.checkPaths(r)
	d.checkBridge(r)
	d.checkRateLimit(r)
	d.probeTools(ctx, r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// checkPaths verifies allowed roots exist and don't sit under a denied
// prefix.
func (d *Doctor) checkPaths(r *Result) {
	if len(d.cfg.Paths.AllowedRoots) == 0 {
		d.addError(r, "paths", "paths.allowed_roots", "at least one allowed root is required")
	}
	for i, root := range d.cfg.Paths.AllowedRoots {
		field := fmt.Sprintf("paths.allowed_roots[%d]", i)
		info, err := os.Stat(root)
		if err != nil {
			d.addError(r, "paths", field, fmt.Sprintf("allowed root %q does not exist", root))
			continue
		}
		if !info.IsDir() {
			d.addError(r, "paths", field, fmt.Sprintf("allowed root %q is not a directory", root))
		}
		for _, denied := range d.cfg.Paths.DeniedPrefixes {
			if root == denied || strings.HasPrefix(root, denied+"/") {
				d.addError(r, "paths", field,
					fmt.Sprintf("allowed root %q sits under denied prefix %q", root, denied))
			}
		}
	}
}

func (d *Doctor) checkBridge(r *Result) {
	if !d.cfg.Bridge.Enabled {
		return
	}
	if d.cfg.Bridge.Token == "" {
		d.addError(r, "bridge", "bridge.token", "bridge enabled but no bearer token configured")
	}
	if !strings.HasPrefix(d.cfg.Bridge.Listen, "127.0.0.1:") &&
		!strings.HasPrefix(d.cfg.Bridge.Listen, "localhost:") {
		d.addWarning(r, "bridge", "bridge.listen",
			fmt.Sprintf("bridge listens on %q; loopback is strongly recommended", d.cfg.Bridge.Listen))
	}
}

func (d *Doctor) checkRateLimit(r *Result) {
	rl := d.cfg.RateLimit
	if rl.Lockout < 10*time.Second {
		d.addWarning(r, "rate_limit", "rate_limit.lockout",
			fmt.Sprintf("lockout of %s offers little brute-force protection", rl.Lockout))
	}
	if rl.MaxAttempts > 10 {
		d.addWarning(r, "rate_limit", "rate_limit.max_attempts",
			fmt.Sprintf("%d attempts per window is generous", rl.MaxAttempts))
	}
}

// probeTools runs each external dependency with --version under a short
// timeout. Only the cipher is hard-required.
func (d *Doctor) probeTools(ctx context.Context, r *Result) {
	probes := []struct {
		name     string
		required bool
		role     string
	}{
		{d.cfg.Cipher.Command, true, "cipher"},
		{d.cfg.Scrub.Command, false, "metadata scrubbing"},
		{d.cfg.Wipe.Command, false, "secure deletion (in-process fallback available)"},
		{d.cfg.HSM.Tool, false, "hardware passphrase generation"},
		{"notify-send", false, "desktop notifications"},
	}

	for _, p := range probes {
		tool := Tool{Name: p.name, Required: p.required}
		if !d.runner.Available(p.name) {
			tool.Detail = "not found on PATH"
			if p.required {
				d.addError(r, "tools", "", fmt.Sprintf("%s (%s) not found on PATH", p.name, p.role))
			}
			r.Tools = append(r.Tools, tool)
			continue
		}
		res, err := d.runner.Run(ctx, procexec.Spec{
			Command: p.name,
			Args:    []string{"--version"},
			Timeout: probeTimeout,
		})
		switch {
		case err != nil:
			tool.Detail = err.Error()
		case res.ExitCode != 0:
			tool.Available = true
			tool.Detail = fmt.Sprintf("--version exited %d", res.ExitCode)
		default:
			tool.Available = true
			tool.Detail = firstLine(string(res.Stdout))
		}
		r.Tools = append(r.Tools, tool)
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
	} else if r.Valid {
		fmt.Fprintf(&b, "Configuration valid (%d warning(s))\n", len(r.Warnings))
	} else {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	b.WriteString("Tools:\n")
	for _, t := range r.Tools {
		mark := "MISSING"
		if t.Available {
			mark = "ok"
		}
		req := ""
		if t.Required {
			req = " (required)"
		}
		fmt.Fprintf(&b, "  %-14s %s%s", t.Name, mark, req)
		if t.Detail != "" {
			fmt.Fprintf(&b, ": %s", t.Detail)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
