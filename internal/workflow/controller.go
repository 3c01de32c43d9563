package workflow

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sealbox/sealbox/internal/archive"
	"github.com/sealbox/sealbox/internal/engine"
	"github.com/sealbox/sealbox/internal/errs"
	"github.com/sealbox/sealbox/internal/events"
	"github.com/sealbox/sealbox/internal/journal"
	"github.com/sealbox/sealbox/internal/log"
	"github.com/sealbox/sealbox/internal/notify"
	"github.com/sealbox/sealbox/internal/pathguard"
	"github.com/sealbox/sealbox/internal/ratelimit"
	"github.com/sealbox/sealbox/internal/scrub"
	"github.com/sealbox/sealbox/internal/wipe"
	"github.com/sealbox/sealbox/internal/workspace"
)

// Controller runs jobs end to end. All collaborators are injected; the
// rate limiter is the only stateful one and is shared across jobs.
type Controller struct {
	guard      *pathguard.Guard
	limiter    *ratelimit.Limiter
	cipher     Cipher
	scrubber   *scrub.Scrubber
	deleter    *wipe.Deleter
	archiver   *archive.Builder
	staging    *workspace.Manager
	journal    *journal.Journal
	hub        *events.Hub
	notifier   *notify.Notifier
	wipePasses int
	logger     *slog.Logger
}

// Options carries the optional collaborators.
type Options struct {
	Journal  *journal.Journal // nil disables outcome journaling
	Hub      *events.Hub      // nil disables progress events
	Notifier *notify.Notifier // nil disables desktop notifications
}

func NewController(
	guard *pathguard.Guard,
	limiter *ratelimit.Limiter,
	cipher Cipher,
	scrubber *scrub.Scrubber,
	deleter *wipe.Deleter,
	archiver *archive.Builder,
	staging *workspace.Manager,
	wipePasses int,
	opts Options,
) *Controller {
	return &Controller{
		guard:      guard,
		limiter:    limiter,
		cipher:     cipher,
		scrubber:   scrubber,
		deleter:    deleter,
		archiver:   archiver,
		staging:    staging,
		journal:    opts.Journal,
		hub:        opts.Hub,
		notifier:   opts.Notifier,
		wipePasses: wipePasses,
		logger:     log.WithComponent("workflow"),
	}
}

// Run executes the job and returns the aggregate result. The job's
// passphrase is destroyed before Run returns, success or not. Run only
// returns an error for whole-job failures (empty targets, validation,
// staging setup); per-target failures land in Result.Outcomes.
func (c *Controller) Run(ctx context.Context, job *Job) (result *Result, err error) {
	logger := c.logger.With("job_id", job.ID, "action", job.Action)
	defer func() {
		if job.Passphrase != nil {
			job.Passphrase.Destroy()
		}
	}()

	if len(job.Targets) == 0 {
		return nil, fmt.Errorf("%w: job has no targets", errs.ErrValidation)
	}
	if job.Passphrase == nil || job.Passphrase.Len() == 0 {
		return nil, fmt.Errorf("%w: job has no passphrase", errs.ErrValidation)
	}

	c.publish(events.TypeJobCreated, events.JobPayload{
		JobID: job.ID, Action: job.Action, Targets: len(job.Targets),
	})
	logger.Info("job started", "targets", len(job.Targets))

	// All targets must validate before any external process is spawned.
	canonical, err := c.validateAll(job)
	if err != nil {
		c.finishFailed(ctx, job, err)
		return nil, err
	}

	st, err := c.staging.Create(ctx, job.ID)
	if err != nil {
		c.finishFailed(ctx, job, err)
		return nil, err
	}
	defer func() {
		if relErr := c.staging.Release(st); relErr != nil {
			logger.Warn("failed to release staging", "error", relErr)
		}
	}()

	var outcomes []TargetOutcome
	if job.Mode == ModeEncrypt && job.Bundle {
		outcomes = []TargetOutcome{c.runBundle(ctx, job, canonical, st)}
	} else {
		for _, target := range canonical {
			outcomes = append(outcomes, c.runTarget(ctx, job, target, st))
		}
	}

	result = &Result{
		JobID:       job.ID,
		Action:      job.Action,
		Status:      aggregate(outcomes),
		Outcomes:    outcomes,
		CompletedAt: time.Now().UTC(),
	}
	c.record(ctx, job, result)
	c.publish(events.TypeJobCompleted, events.JobPayload{
		JobID: job.ID, Action: job.Action, Targets: len(job.Targets), Status: string(result.Status),
	})
	logger.Info("job finished", "status", result.Status, "succeeded", result.Succeeded())
	if c.notifier != nil {
		c.notifier.Send(ctx, notifyTitle(job.Mode, result.Status), result.Summary())
	}
	return result, nil
}

func notifyTitle(mode Mode, status Status) string {
	verb := "Encryption"
	if mode == ModeDecrypt {
		verb = "Decryption"
	}
	if status == StatusCompleted {
		return verb + " complete"
	}
	return verb + " finished with errors"
}

// validateAll canonicalizes every target up front. One bad target
// aborts the whole job before anything runs.
func (c *Controller) validateAll(job *Job) ([]string, error) {
	canonical := make([]string, 0, len(job.Targets))
	for _, target := range job.Targets {
		c.publishTarget(job.ID, target, StateValidating, nil)
		resolved, err := c.guard.Validate(target, pathguard.ReadTarget)
		if err != nil {
			return nil, err
		}
		switch job.Mode {
		case ModeDecrypt:
			if _, ok := c.cipher.PlainName(resolved); !ok {
				return nil, fmt.Errorf("%w: %q does not carry the cipher suffix",
					errs.ErrValidation, target)
			}
		case ModeEncrypt:
			// A zero-byte plaintext decrypts to a zero-byte output,
			// which the decrypt pipeline rejects as an integrity
			// failure; such an artifact could never be restored.
			if info, statErr := os.Stat(resolved); statErr == nil &&
				info.Mode().IsRegular() && info.Size() == 0 {
				return nil, fmt.Errorf("%w: %q is empty, nothing to encrypt",
					errs.ErrValidation, target)
			}
		}
		canonical = append(canonical, resolved)
	}
	return canonical, nil
}

// runTarget executes one target's pipeline and never panics the batch:
// every failure becomes a per-target outcome.
func (c *Controller) runTarget(ctx context.Context, job *Job, target string, st workspace.Staging) TargetOutcome {
	c.publishTarget(job.ID, target, StateProcessing, nil)

	var artifact string
	var err error
	switch job.Mode {
	case ModeEncrypt:
		artifact, err = c.encryptTarget(ctx, job, target, st)
	case ModeDecrypt:
		artifact, err = c.decryptTarget(ctx, job, target, st)
	default:
		err = fmt.Errorf("%w: unknown mode %q", errs.ErrValidation, job.Mode)
	}

	outcome := TargetOutcome{Path: target, Artifact: artifact, State: StateCompleted}
	if err != nil {
		outcome.State = StateFailed
		outcome.Err = err
		c.logger.Warn("target failed",
			"job_id", job.ID, "target", target, "kind", errs.Kind(err), "error", err)
	}
	c.publishTarget(job.ID, target, outcome.State, err)
	return outcome
}

// encryptTarget stages an ephemeral copy, scrubs it, archives folders,
// encrypts, verifies the round trip and only then, when requested,
// wipes the original.
func (c *Controller) encryptTarget(ctx context.Context, job *Job, target string, st workspace.Staging) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrCancelled, err)
	}

	artifact, err := c.encryptArtifactPath(target)
	if err != nil {
		return "", err
	}

	// Preparing: the original is never scrubbed or archived in place.
	c.publishTarget(job.ID, target, StatePreparing, nil)
	staged, err := c.staging.CopyInto(ctx, st, target)
	if err != nil {
		return "", fmt.Errorf("%w: stage %q: %v", errs.ErrProcess, target, err)
	}

	info, err := os.Stat(staged)
	if err != nil {
		return "", fmt.Errorf("%w: stat staged copy: %v", errs.ErrProcess, err)
	}
	if info.Mode().IsRegular() {
		if err := c.verifyCopy(target, staged); err != nil {
			return "", err
		}
	}

	c.scrubStaged(ctx, job.ID, staged, info.IsDir())

	input := staged
	if info.IsDir() {
		input = staged + archive.Suffix
		if err := c.archiver.Build(staged, input); err != nil {
			return "", err
		}
	}

	c.publishTarget(job.ID, target, StateProcessing, nil)
	if err := c.cipher.Encrypt(ctx, input, artifact, job.Passphrase); err != nil {
		return "", err
	}

	c.publishTarget(job.ID, target, StateVerifying, nil)
	if err := c.cipher.VerifyRoundTrip(ctx, artifact, input, st.Dir, job.Passphrase); err != nil {
		_ = os.Remove(artifact)
		return "", err
	}

	if job.DeleteOriginals {
		c.publishTarget(job.ID, target, StateCleaning, nil)
		if err := c.deleter.Delete(ctx, target, c.wipePasses); err != nil {
			return artifact, fmt.Errorf("%w: encrypted but original not removed: %v",
				errs.ErrProcess, err)
		}
	}
	return artifact, nil
}

// decryptTarget checks the rate limiter before the cipher ever runs,
// feeds authentication failures back into it and clears the record on
// success.
func (c *Controller) decryptTarget(ctx context.Context, job *Job, target string, st workspace.Staging) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrCancelled, err)
	}

	c.publishTarget(job.ID, target, StateRateChecking, nil)
	key := ratelimit.Key(target)
	if err := c.limiter.Check(key); err != nil {
		return "", err
	}

	plain, ok := c.cipher.PlainName(target)
	if !ok {
		return "", fmt.Errorf("%w: %q does not carry the cipher suffix", errs.ErrValidation, target)
	}
	if _, err := c.guard.Validate(plain, pathguard.WriteTarget); err != nil {
		return "", err
	}

	c.publishTarget(job.ID, target, StateProcessing, nil)
	if err := c.cipher.Decrypt(ctx, target, plain, job.Passphrase); err != nil {
		if errors.Is(err, errs.ErrAuthenticationFailed) {
			c.limiter.RecordFailure(key)
		}
		return "", err
	}
	c.limiter.Clear(key)

	c.publishTarget(job.ID, target, StateVerifying, nil)
	info, err := os.Stat(plain)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(plain)
		return "", fmt.Errorf("%w: decryption produced no output for %q", errs.ErrIntegrity, target)
	}

	// Folder artifacts come back as tar.gz; unpack them next to the
	// archive and drop the intermediate file.
	if strings.HasSuffix(plain, archive.Suffix) && archive.IsGzip(plain) {
		c.publishTarget(job.ID, target, StateExtracting, nil)
		destRoot := strings.TrimSuffix(plain, archive.Suffix)
		if err := c.archiver.Extract(plain, destRoot); err != nil {
			return "", err
		}
		_ = os.Remove(plain)
		return destRoot, nil
	}
	return plain, nil
}

// runBundle archives every staged target into one bundle directory and
// encrypts a single artifact named after the job's start time.
func (c *Controller) runBundle(ctx context.Context, job *Job, targets []string, st workspace.Staging) TargetOutcome {
	label := fmt.Sprintf("encrypted_bundle_%s", job.CreatedAt.Format("20060102-150405"))
	outcome := TargetOutcome{Path: label, State: StateFailed}

	artifact := filepath.Join(filepath.Dir(targets[0]), label+archive.Suffix)
	artifact = c.cipher.ArtifactName(artifact)
	if _, err := c.guard.Validate(artifact, pathguard.WriteTarget); err != nil {
		outcome.Err = err
		c.publishTarget(job.ID, label, StateFailed, err)
		return outcome
	}

	c.publishTarget(job.ID, label, StatePreparing, nil)
	bundleDir := filepath.Join(st.Dir, label)
	if err := os.Mkdir(bundleDir, 0o700); err != nil {
		outcome.Err = fmt.Errorf("%w: create bundle dir: %v", errs.ErrProcess, err)
		c.publishTarget(job.ID, label, StateFailed, outcome.Err)
		return outcome
	}

	bundleStaging := workspace.Staging{JobID: job.ID, Dir: bundleDir}
	for _, target := range targets {
		staged, err := c.staging.CopyInto(ctx, bundleStaging, target)
		if err != nil {
			outcome.Err = fmt.Errorf("%w: stage %q: %v", errs.ErrProcess, target, err)
			c.publishTarget(job.ID, label, StateFailed, outcome.Err)
			return outcome
		}
		info, err := os.Stat(staged)
		if err != nil {
			outcome.Err = fmt.Errorf("%w: stat staged copy: %v", errs.ErrProcess, err)
			c.publishTarget(job.ID, label, StateFailed, outcome.Err)
			return outcome
		}
		c.scrubStaged(ctx, job.ID, staged, info.IsDir())
	}

	input := bundleDir + archive.Suffix
	if err := c.archiver.Build(bundleDir, input); err != nil {
		outcome.Err = err
		c.publishTarget(job.ID, label, StateFailed, err)
		return outcome
	}

	c.publishTarget(job.ID, label, StateProcessing, nil)
	if err := c.cipher.Encrypt(ctx, input, artifact, job.Passphrase); err != nil {
		outcome.Err = err
		c.publishTarget(job.ID, label, StateFailed, err)
		return outcome
	}

	c.publishTarget(job.ID, label, StateVerifying, nil)
	if err := c.cipher.VerifyRoundTrip(ctx, artifact, input, st.Dir, job.Passphrase); err != nil {
		_ = os.Remove(artifact)
		outcome.Err = err
		c.publishTarget(job.ID, label, StateFailed, err)
		return outcome
	}

	if job.DeleteOriginals {
		c.publishTarget(job.ID, label, StateCleaning, nil)
		for _, target := range targets {
			if err := c.deleter.Delete(ctx, target, c.wipePasses); err != nil {
				outcome.Artifact = artifact
				outcome.Err = fmt.Errorf("%w: encrypted but %q not removed: %v",
					errs.ErrProcess, target, err)
				c.publishTarget(job.ID, label, StateFailed, outcome.Err)
				return outcome
			}
		}
	}

	outcome.Artifact = artifact
	outcome.State = StateCompleted
	c.publishTarget(job.ID, label, StateCompleted, nil)
	return outcome
}

// encryptArtifactPath derives the output name next to the original and
// rejects clobbering an existing artifact.
func (c *Controller) encryptArtifactPath(target string) (string, error) {
	name := target
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		name = target + archive.Suffix
	}
	artifact := c.cipher.ArtifactName(name)
	if _, err := c.guard.Validate(artifact, pathguard.WriteTarget); err != nil {
		return "", err
	}
	return artifact, nil
}

// verifyCopy confirms the staged copy matches the original before the
// original is ever considered for deletion.
func (c *Controller) verifyCopy(original, staged string) error {
	want, err := engine.Fingerprint(original)
	if err != nil {
		return fmt.Errorf("%w: fingerprint original: %v", errs.ErrIntegrity, err)
	}
	got, err := engine.Fingerprint(staged)
	if err != nil {
		return fmt.Errorf("%w: fingerprint staged copy: %v", errs.ErrIntegrity, err)
	}
	if want != got {
		return fmt.Errorf("%w: staged copy does not match original", errs.ErrIntegrity)
	}
	return nil
}

// scrubStaged cleans metadata on the ephemeral copy. Scrub failures are
// logged and the pipeline continues.
func (c *Controller) scrubStaged(ctx context.Context, jobID, staged string, isDir bool) {
	scrubOne := func(path string) {
		if err := c.scrubber.Scrub(ctx, path); err != nil {
			c.logger.Warn("metadata scrub failed",
				"job_id", jobID, "path", filepath.Base(path), "error", err)
		}
	}
	if !isDir {
		scrubOne(staged)
		return
	}
	_ = filepath.WalkDir(staged, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || !d.Type().IsRegular() {
			return nil
		}
		scrubOne(path)
		return nil
	})
}

func (c *Controller) finishFailed(ctx context.Context, job *Job, cause error) {
	result := &Result{
		JobID:       job.ID,
		Action:      job.Action,
		Status:      StatusFailed,
		CompletedAt: time.Now().UTC(),
	}
	for _, target := range job.Targets {
		result.Outcomes = append(result.Outcomes, TargetOutcome{
			Path: target, State: StateFailed, Err: cause,
		})
	}
	c.record(ctx, job, result)
	c.publish(events.TypeJobCompleted, events.JobPayload{
		JobID: job.ID, Action: job.Action, Targets: len(job.Targets), Status: string(StatusFailed),
	})
}

func (c *Controller) record(ctx context.Context, job *Job, result *Result) {
	if c.journal == nil {
		return
	}
	rec := journal.JobRecord{
		ID:          job.ID,
		Action:      job.Action,
		Status:      string(result.Status),
		Targets:     len(job.Targets),
		CreatedAt:   job.CreatedAt,
		CompletedAt: result.CompletedAt,
	}
	targets := make([]journal.TargetRecord, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		tr := journal.TargetRecord{
			JobID:       job.ID,
			Path:        o.Path,
			State:       string(o.State),
			Artifact:    o.Artifact,
			CompletedAt: result.CompletedAt,
		}
		if o.Err != nil {
			tr.ErrorKind = errs.Kind(o.Err)
			tr.Detail = o.Err.Error()
		}
		targets = append(targets, tr)
	}
	if err := c.journal.AppendJob(ctx, rec, targets); err != nil {
		c.logger.Warn("journal append failed", "job_id", job.ID, "error", err)
	}
}

func (c *Controller) publish(eventType string, payload events.JobPayload) {
	if c.hub != nil {
		c.hub.PublishJob(eventType, payload)
	}
}

func (c *Controller) publishTarget(jobID, target string, state State, err error) {
	if c.hub == nil {
		return
	}
	payload := events.TargetPayload{JobID: jobID, Target: target, State: string(state)}
	if err != nil {
		payload.Error = err.Error()
	}
	c.hub.PublishTarget(payload)
}
