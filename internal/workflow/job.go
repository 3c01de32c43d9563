// Package workflow sequences path validation, staging, scrubbing,
// archiving, encryption, verification and secure deletion into jobs.
// Each target in a batch runs its own pipeline; the job reports an
// aggregate of per-target outcomes.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sealbox/sealbox/internal/secret"
)

//go:generate mockgen -destination=mocks/mock_cipher.go -package=mocks github.com/sealbox/sealbox/internal/workflow Cipher

// Cipher is the encryption engine surface the controller drives.
// *engine.Engine satisfies it.
type Cipher interface {
	Encrypt(ctx context.Context, inPath, outPath string, pass *secret.Passphrase) error
	Decrypt(ctx context.Context, inPath, outPath string, pass *secret.Passphrase) error
	VerifyRoundTrip(ctx context.Context, artifact, original, scratchDir string, pass *secret.Passphrase) error
	HasHeader(path string) bool
	ArtifactName(inPath string) string
	PlainName(inPath string) (string, bool)
}

// Mode selects the pipeline a job runs.
type Mode string

const (
	ModeEncrypt Mode = "encrypt"
	ModeDecrypt Mode = "decrypt"
)

// State names the stages a target moves through.
type State string

const (
	StateCreated      State = "created"
	StateValidating   State = "validating"
	StatePreparing    State = "preparing"
	StateRateChecking State = "rate_checking"
	StateProcessing   State = "processing"
	StateVerifying    State = "verifying"
	StateCleaning     State = "cleaning"
	StateExtracting   State = "extracting"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
)

// Status is the aggregate outcome of a job.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
)

// Job is one user-initiated operation. The job owns its passphrase
// exclusively and destroys it on every exit path.
type Job struct {
	ID              string
	Mode            Mode
	Action          string
	Targets         []string
	DeleteOriginals bool
	Bundle          bool
	Passphrase      *secret.Passphrase
	CreatedAt       time.Time
}

// NewJob builds a job with a fresh ID. Ownership of pass transfers to
// the job.
func NewJob(mode Mode, action string, targets []string, pass *secret.Passphrase) *Job {
	return &Job{
		ID:         uuid.NewString(),
		Mode:       mode,
		Action:     action,
		Targets:    targets,
		Passphrase: pass,
		CreatedAt:  time.Now().UTC(),
	}
}

// TargetOutcome is the result of one target's pipeline.
type TargetOutcome struct {
	Path     string
	Artifact string
	State    State
	Err      error
}

// Result aggregates a finished job.
type Result struct {
	JobID       string
	Action      string
	Status      Status
	Outcomes    []TargetOutcome
	CompletedAt time.Time
}

// Summary renders the one-line outcome shown to the user.
func (r *Result) Summary() string {
	switch r.Status {
	case StatusCompleted:
		return fmt.Sprintf("All %d target(s) completed.", len(r.Outcomes))
	case StatusPartial:
		return fmt.Sprintf("Partial success: %d of %d target(s) completed.",
			r.Succeeded(), len(r.Outcomes))
	default:
		return "All targets failed."
	}
}

// Succeeded counts completed targets.
func (r *Result) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.State == StateCompleted {
			n++
		}
	}
	return n
}

func aggregate(outcomes []TargetOutcome) Status {
	ok := 0
	for _, o := range outcomes {
		if o.State == StateCompleted {
			ok++
		}
	}
	switch {
	case ok == len(outcomes):
		return StatusCompleted
	case ok == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}
