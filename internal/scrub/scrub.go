// Package scrub strips embedded metadata from ephemeral copies before
// encryption. Cleaning is best-effort: an unavailable scrubber or an
// unsupported format never blocks the job.
package scrub

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sealbox/sealbox/internal/errs"
	"github.com/sealbox/sealbox/internal/log"
	"github.com/sealbox/sealbox/internal/procexec"
)

const probeTimeout = 2 * time.Second

// Scrubber drives the external metadata-anonymisation tool (mat2) in
// "in place, unknown members omitted" mode.
type Scrubber struct {
	command         string
	timeout         time.Duration
	unsupportedExit int
	runner          *procexec.Runner
	logger          *slog.Logger

	// One Scrubber is shared by concurrent jobs; the probe result must
	// be written exactly once.
	probeOnce sync.Once
	available bool
}

func New(command string, timeout time.Duration, unsupportedExit int, runner *procexec.Runner) *Scrubber {
	return &Scrubber{
		command:         command,
		timeout:         timeout,
		unsupportedExit: unsupportedExit,
		runner:          runner,
		logger:          log.WithComponent("scrub"),
	}
}

// Available lazily probes the tool once per Scrubber, safe for
// concurrent jobs.
func (s *Scrubber) Available(ctx context.Context) bool {
	s.probeOnce.Do(func() {
		if !s.runner.Available(s.command) {
			return
		}
		res, err := s.runner.Run(ctx, procexec.Spec{
			Command: s.command,
			Args:    []string{"--version"},
			Timeout: probeTimeout,
		})
		s.available = err == nil && res.ExitCode == 0
	})
	return s.available
}

// Scrub cleans path in place. It must only ever be handed an ephemeral
// copy, never the user's original. A missing tool is a silent no-op;
// the tool's documented "unsupported format" exit is success-for-
// workflow; anything else surfaces as a non-fatal ScrubError.
func (s *Scrubber) Scrub(ctx context.Context, path string) error {
	if !s.Available(ctx) {
		s.logger.Debug("scrubber unavailable, skipping", "tool", s.command)
		return nil
	}

	res, err := s.runner.Run(ctx, procexec.Spec{
		Command: s.command,
		Args:    []string{"--inplace", "--unknown-members", "omit", path},
		Timeout: s.timeout,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrScrub, err)
	}
	if res.ExitCode == 0 || res.ExitCode == s.unsupportedExit {
		return nil
	}
	return fmt.Errorf("%w: %s exited %d: %s",
		errs.ErrScrub, s.command, res.ExitCode, strings.TrimSpace(string(res.Stderr)))
}
