// Package notify sends best-effort desktop notifications via
// notify-send. Failures are logged and otherwise ignored; the host
// still renders its own completion dialog.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/sealbox/sealbox/internal/log"
	"github.com/sealbox/sealbox/internal/procexec"
)

const sendTimeout = 5 * time.Second

// Notifier wraps notify-send. A disabled or missing binary turns every
// call into a no-op.
type Notifier struct {
	enabled bool
	runner  *procexec.Runner
	logger  *slog.Logger
}

func New(enabled bool, runner *procexec.Runner) *Notifier {
	return &Notifier{
		enabled: enabled && runner.Available("notify-send"),
		runner:  runner,
		logger:  log.WithComponent("notify"),
	}
}

// Send fires a notification and never blocks the caller on failure.
func (n *Notifier) Send(ctx context.Context, title, body string) {
	if !n.enabled {
		return
	}
	res, err := n.runner.Run(ctx, procexec.Spec{
		Command: "notify-send",
		Args:    []string{"--app-name=sealbox", title, body},
		Timeout: sendTimeout,
	})
	if err != nil {
		n.logger.Debug("notification failed", "error", err)
		return
	}
	if res.ExitCode != 0 {
		n.logger.Debug("notify-send exited non-zero", "exit_code", res.ExitCode)
	}
}
