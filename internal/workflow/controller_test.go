package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"github.com/sealbox/sealbox/internal/archive"
	"github.com/sealbox/sealbox/internal/config"
	"github.com/sealbox/sealbox/internal/errs"
	"github.com/sealbox/sealbox/internal/events"
	"github.com/sealbox/sealbox/internal/notify"
	"github.com/sealbox/sealbox/internal/pathguard"
	"github.com/sealbox/sealbox/internal/procexec"
	"github.com/sealbox/sealbox/internal/ratelimit"
	"github.com/sealbox/sealbox/internal/scrub"
	"github.com/sealbox/sealbox/internal/secret"
	"github.com/sealbox/sealbox/internal/wipe"
	"github.com/sealbox/sealbox/internal/workflow/mocks"
	"github.com/sealbox/sealbox/internal/workspace"
)

type harness struct {
	ctl     *Controller
	cipher  *mocks.MockCipher
	limiter *ratelimit.Limiter
	root    string
}

// newHarness builds a controller over real collaborators in a temp root
// plus a mocked cipher. The scrub and wipe tools intentionally name
// binaries that are never on PATH, so scrubbing is a no-op and deletion
// takes the in-process overwrite path.
func newHarness(t *testing.T) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("resolve temp root: %v", err)
	}

	guard, err := pathguard.New([]string{root}, nil)
	if err != nil {
		t.Fatalf("pathguard.New: %v", err)
	}
	staging, err := workspace.NewManager(filepath.Join(t.TempDir(), "staging"))
	if err != nil {
		t.Fatalf("workspace.NewManager: %v", err)
	}

	runner := procexec.New()
	limiter := ratelimit.New(ratelimit.Policy{
		MaxAttempts: 3,
		Window:      5 * time.Minute,
		Lockout:     30 * time.Second,
	})
	cipher := mocks.NewMockCipher(ctrl)

	ctl := NewController(
		guard,
		limiter,
		cipher,
		scrub.New("no-such-scrubber-xyz", time.Second, 1, runner),
		wipe.New("no-such-eraser-xyz", time.Second, runner),
		archive.New(config.SymlinkFail, 0),
		staging,
		1,
		Options{},
	)
	return &harness{ctl: ctl, cipher: cipher, limiter: limiter, root: root}
}

func (h *harness) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(h.root, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// expectNames wires the pure naming methods the pipeline consults.
func (h *harness) expectNames() {
	h.cipher.EXPECT().ArtifactName(gomock.Any()).DoAndReturn(func(in string) string {
		return in + ".age"
	}).AnyTimes()
	h.cipher.EXPECT().PlainName(gomock.Any()).DoAndReturn(func(in string) (string, bool) {
		if !strings.HasSuffix(in, ".age") {
			return "", false
		}
		return strings.TrimSuffix(in, ".age"), true
	}).AnyTimes()
}

func writeOutput(content string) func(context.Context, string, string, *secret.Passphrase) error {
	return func(_ context.Context, _ string, out string, _ *secret.Passphrase) error {
		return os.WriteFile(out, []byte(content), 0o600)
	}
}

func TestRunEncryptBatchIsPartiallyIndependent(t *testing.T) {
	h := newHarness(t)
	a := h.writeFile(t, "a.txt", "alpha")
	b := h.writeFile(t, "b.txt", "beta")
	h.expectNames()

	h.cipher.EXPECT().
		Encrypt(gomock.Any(), gomock.Any(), a+".age", gomock.Any()).
		DoAndReturn(writeOutput("ciphertext"))
	h.cipher.EXPECT().
		VerifyRoundTrip(gomock.Any(), a+".age", gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)
	h.cipher.EXPECT().
		Encrypt(gomock.Any(), gomock.Any(), b+".age", gomock.Any()).
		Return(errs.ErrProcess)

	job := NewJob(ModeEncrypt, "encrypt_files", []string{a, b}, secret.FromString("pass"))
	result, err := h.ctl.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != StatusPartial {
		t.Fatalf("Status = %q, want partial", result.Status)
	}
	if result.Succeeded() != 1 {
		t.Fatalf("Succeeded = %d, want 1", result.Succeeded())
	}
	if result.Outcomes[0].State != StateCompleted || result.Outcomes[0].Artifact != a+".age" {
		t.Fatalf("first outcome = %+v", result.Outcomes[0])
	}
	if result.Outcomes[1].State != StateFailed || !errors.Is(result.Outcomes[1].Err, errs.ErrProcess) {
		t.Fatalf("second outcome = %+v", result.Outcomes[1])
	}
	if !job.Passphrase.Destroyed() {
		t.Fatalf("passphrase survived Run")
	}
}

func TestRunEncryptKeepsOriginalUntilVerified(t *testing.T) {
	h := newHarness(t)
	target := h.writeFile(t, "doc.txt", "precious")
	h.expectNames()

	h.cipher.EXPECT().
		Encrypt(gomock.Any(), gomock.Any(), target+".age", gomock.Any()).
		DoAndReturn(writeOutput("ciphertext"))
	h.cipher.EXPECT().
		VerifyRoundTrip(gomock.Any(), target+".age", gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errs.ErrIntegrity)

	job := NewJob(ModeEncrypt, "encrypt_file", []string{target}, secret.FromString("pass"))
	job.DeleteOriginals = true
	result, err := h.ctl.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != StatusFailed {
		t.Fatalf("Status = %q, want failed", result.Status)
	}
	if _, statErr := os.Stat(target); statErr != nil {
		t.Fatalf("original was removed despite failed verification: %v", statErr)
	}
	if _, statErr := os.Lstat(target + ".age"); !os.IsNotExist(statErr) {
		t.Fatalf("unverified artifact left behind")
	}
}

func TestRunEncryptDeletesOriginalAfterVerify(t *testing.T) {
	h := newHarness(t)
	target := h.writeFile(t, "doc.txt", "precious")
	h.expectNames()

	h.cipher.EXPECT().
		Encrypt(gomock.Any(), gomock.Any(), target+".age", gomock.Any()).
		DoAndReturn(writeOutput("ciphertext"))
	h.cipher.EXPECT().
		VerifyRoundTrip(gomock.Any(), target+".age", gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)

	job := NewJob(ModeEncrypt, "encrypt_file", []string{target}, secret.FromString("pass"))
	job.DeleteOriginals = true
	result, err := h.ctl.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("Status = %q, want completed", result.Status)
	}
	if _, statErr := os.Lstat(target); !os.IsNotExist(statErr) {
		t.Fatalf("original survived a delete-originals job")
	}
}

func TestRunEncryptFolderArchivesBeforeCipher(t *testing.T) {
	h := newHarness(t)
	dir := filepath.Join(h.root, "photos")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "p1.jpg"), []byte("jpeg"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	h.expectNames()

	wantArtifact := dir + archive.Suffix + ".age"
	h.cipher.EXPECT().
		Encrypt(gomock.Any(), gomock.Any(), wantArtifact, gomock.Any()).
		DoAndReturn(func(_ context.Context, in, out string, _ *secret.Passphrase) error {
			if !strings.HasSuffix(in, archive.Suffix) {
				t.Errorf("cipher input %q is not an archive", in)
			}
			if !archive.IsGzip(in) {
				t.Errorf("cipher input %q is not gzip data", in)
			}
			return os.WriteFile(out, []byte("ciphertext"), 0o600)
		})
	h.cipher.EXPECT().
		VerifyRoundTrip(gomock.Any(), wantArtifact, gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)

	job := NewJob(ModeEncrypt, "encrypt_folder", []string{dir}, secret.FromString("pass"))
	result, err := h.ctl.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("Status = %q, want completed", result.Status)
	}
	if result.Outcomes[0].Artifact != wantArtifact {
		t.Fatalf("artifact = %q, want %q", result.Outcomes[0].Artifact, wantArtifact)
	}
}

func TestRunValidationFailureAbortsWholeJob(t *testing.T) {
	h := newHarness(t)
	good := h.writeFile(t, "good.txt", "x")
	missing := filepath.Join(h.root, "missing.txt")
	h.expectNames()
	// No Encrypt expectation: nothing may spawn when validation fails.

	job := NewJob(ModeEncrypt, "encrypt_files", []string{good, missing}, secret.FromString("pass"))
	_, err := h.ctl.Run(context.Background(), job)
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !job.Passphrase.Destroyed() {
		t.Fatalf("passphrase survived a failed Run")
	}
}

func TestRunRejectsEmptyJob(t *testing.T) {
	h := newHarness(t)

	job := NewJob(ModeEncrypt, "encrypt_files", nil, secret.FromString("pass"))
	if _, err := h.ctl.Run(context.Background(), job); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error for empty targets, got %v", err)
	}

	job = NewJob(ModeEncrypt, "encrypt_files", []string{"/tmp/x"}, secret.FromString(""))
	if _, err := h.ctl.Run(context.Background(), job); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error for empty passphrase, got %v", err)
	}
}

func TestRunDecryptSuccess(t *testing.T) {
	h := newHarness(t)
	artifact := h.writeFile(t, "doc.txt.age", "ciphertext")
	plain := strings.TrimSuffix(artifact, ".age")
	h.expectNames()

	h.cipher.EXPECT().
		Decrypt(gomock.Any(), artifact, plain, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, out string, _ *secret.Passphrase) error {
			return os.WriteFile(out, []byte("plaintext"), 0o600)
		})

	job := NewJob(ModeDecrypt, "decrypt", []string{artifact}, secret.FromString("pass"))
	result, err := h.ctl.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("Status = %q, want completed", result.Status)
	}
	if result.Outcomes[0].Artifact != plain {
		t.Fatalf("artifact = %q, want %q", result.Outcomes[0].Artifact, plain)
	}
	got, _ := os.ReadFile(plain)
	if string(got) != "plaintext" {
		t.Fatalf("plaintext = %q", got)
	}
}

func TestRunDecryptRefusesClobber(t *testing.T) {
	h := newHarness(t)
	artifact := h.writeFile(t, "doc.txt.age", "ciphertext")
	h.writeFile(t, "doc.txt", "already here")
	h.expectNames()
	// Decrypt must not run when the output path is taken.

	job := NewJob(ModeDecrypt, "decrypt", []string{artifact}, secret.FromString("pass"))
	result, err := h.ctl.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != StatusFailed {
		t.Fatalf("Status = %q, want failed", result.Status)
	}
	if !errors.Is(result.Outcomes[0].Err, errs.ErrValidation) {
		t.Fatalf("outcome error = %v, want validation", result.Outcomes[0].Err)
	}
	got, _ := os.ReadFile(strings.TrimSuffix(artifact, ".age"))
	if string(got) != "already here" {
		t.Fatalf("existing file was clobbered")
	}
}

func TestRunDecryptLocksOutAfterRepeatedAuthFailures(t *testing.T) {
	h := newHarness(t)
	artifact := h.writeFile(t, "doc.txt.age", "ciphertext")
	plain := strings.TrimSuffix(artifact, ".age")
	h.expectNames()

	h.cipher.EXPECT().
		Decrypt(gomock.Any(), artifact, plain, gomock.Any()).
		Return(errs.ErrAuthenticationFailed).
		Times(3)

	for i := 0; i < 3; i++ {
		job := NewJob(ModeDecrypt, "decrypt", []string{artifact}, secret.FromString("wrong"))
		result, err := h.ctl.Run(context.Background(), job)
		if err != nil {
			t.Fatalf("Run %d: %v", i, err)
		}
		if !errors.Is(result.Outcomes[0].Err, errs.ErrAuthenticationFailed) {
			t.Fatalf("run %d outcome = %v", i, result.Outcomes[0].Err)
		}
	}

	// The fourth attempt is refused before the cipher runs; the mock
	// would fail the test if Decrypt were called again.
	job := NewJob(ModeDecrypt, "decrypt", []string{artifact}, secret.FromString("wrong"))
	result, err := h.ctl.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !errors.Is(result.Outcomes[0].Err, errs.ErrRateLimited) {
		t.Fatalf("outcome = %v, want rate limited", result.Outcomes[0].Err)
	}
}

func TestRunDecryptClearsLimiterOnSuccess(t *testing.T) {
	h := newHarness(t)
	artifact := h.writeFile(t, "doc.txt.age", "ciphertext")
	plain := strings.TrimSuffix(artifact, ".age")
	h.expectNames()

	gomock.InOrder(
		h.cipher.EXPECT().
			Decrypt(gomock.Any(), artifact, plain, gomock.Any()).
			Return(errs.ErrAuthenticationFailed).
			Times(2),
		h.cipher.EXPECT().
			Decrypt(gomock.Any(), artifact, plain, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, out string, _ *secret.Passphrase) error {
				return os.WriteFile(out, []byte("plaintext"), 0o600)
			}),
	)

	for i := 0; i < 2; i++ {
		job := NewJob(ModeDecrypt, "decrypt", []string{artifact}, secret.FromString("wrong"))
		if _, err := h.ctl.Run(context.Background(), job); err != nil {
			t.Fatalf("Run %d: %v", i, err)
		}
	}
	job := NewJob(ModeDecrypt, "decrypt", []string{artifact}, secret.FromString("right"))
	if _, err := h.ctl.Run(context.Background(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if err := h.limiter.Check(ratelimit.Key(artifact)); err != nil {
		t.Fatalf("limiter record survived a successful decrypt: %v", err)
	}
}

func TestRunBundleProducesSingleArtifact(t *testing.T) {
	h := newHarness(t)
	a := h.writeFile(t, "a.txt", "alpha")
	h.writeFile(t, "b.txt", "beta")
	h.expectNames()

	var artifact string
	h.cipher.EXPECT().
		Encrypt(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, in, out string, _ *secret.Passphrase) error {
			if !archive.IsGzip(in) {
				t.Errorf("bundle input %q is not gzip data", in)
			}
			artifact = out
			return os.WriteFile(out, []byte("ciphertext"), 0o600)
		})
	h.cipher.EXPECT().
		VerifyRoundTrip(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)

	job := NewJob(ModeEncrypt, "encrypt_bundle", []string{a, filepath.Join(h.root, "b.txt")}, secret.FromString("pass"))
	job.Bundle = true
	result, err := h.ctl.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("Status = %q, want completed", result.Status)
	}
	if len(result.Outcomes) != 1 {
		t.Fatalf("bundle produced %d outcomes, want 1", len(result.Outcomes))
	}
	if !strings.HasPrefix(filepath.Base(artifact), "encrypted_bundle_") {
		t.Fatalf("artifact = %q", artifact)
	}
	if filepath.Dir(artifact) != h.root {
		t.Fatalf("artifact placed in %q, want %q", filepath.Dir(artifact), h.root)
	}
}

func TestRunCancelledContext(t *testing.T) {
	h := newHarness(t)
	target := h.writeFile(t, "doc.txt", "x")
	h.expectNames()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := NewJob(ModeEncrypt, "encrypt_file", []string{target}, secret.FromString("pass"))
	if _, err := h.ctl.Run(ctx, job); err == nil {
		t.Fatalf("expected error from cancelled context")
	}
	if !job.Passphrase.Destroyed() {
		t.Fatalf("passphrase survived a cancelled Run")
	}
}

func TestRunNotifiesOnCompletion(t *testing.T) {
	h := newHarness(t)
	target := h.writeFile(t, "doc.txt", "payload")
	h.expectNames()

	bin := t.TempDir()
	marker := filepath.Join(bin, "sent.txt")
	script := "#!/bin/sh\nprintf '%s|%s' \"$2\" \"$3\" > " + marker + "\n"
	if err := os.WriteFile(filepath.Join(bin, "notify-send"), []byte(script), 0o755); err != nil {
		t.Fatalf("install stub: %v", err)
	}
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))

	runner := procexec.New()
	h.ctl.notifier = notify.New(true, runner)

	h.cipher.EXPECT().
		Encrypt(gomock.Any(), gomock.Any(), target+".age", gomock.Any()).
		DoAndReturn(writeOutput("ciphertext"))
	h.cipher.EXPECT().
		VerifyRoundTrip(gomock.Any(), target+".age", gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)

	job := NewJob(ModeEncrypt, "encrypt_file", []string{target}, secret.FromString("pass"))
	if _, err := h.ctl.Run(context.Background(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, err := os.ReadFile(marker)
	if err != nil {
		t.Fatalf("notification not sent: %v", err)
	}
	want := "Encryption complete|All 1 target(s) completed."
	if string(got) != want {
		t.Fatalf("notification = %q, want %q", got, want)
	}
}

func TestRunEncryptRejectsEmptyFile(t *testing.T) {
	h := newHarness(t)
	full := h.writeFile(t, "full.txt", "data")
	empty := h.writeFile(t, "empty.txt", "")
	h.expectNames()

	job := NewJob(ModeEncrypt, "encrypt_files", []string{full, empty}, secret.FromString("pass"))
	job.DeleteOriginals = true
	if _, err := h.ctl.Run(context.Background(), job); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("Run = %v, want validation error", err)
	}

	// Nothing ran, nothing was wiped.
	for _, p := range []string{full, empty} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("original %s gone: %v", p, err)
		}
	}
}

func TestRunBundleFailurePublishesFailedState(t *testing.T) {
	h := newHarness(t)
	hub := events.NewHub(16)
	h.ctl.hub = hub

	dir := filepath.Join(h.root, "docs")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("alpha"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	// Escaping symlink makes the archive build fail under the fail policy.
	if err := os.Symlink(filepath.Dir(h.root), filepath.Join(dir, "escape")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	other := h.writeFile(t, "b.txt", "beta")
	h.expectNames()

	job := NewJob(ModeEncrypt, "encrypt_bundle", []string{dir, other}, secret.FromString("pass"))
	job.Bundle = true
	result, err := h.ctl.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != StatusFailed {
		t.Fatalf("Status = %q, want failed", result.Status)
	}

	var sawFailed bool
	for _, ev := range hub.SnapshotSince(0) {
		if ev.Target != nil && ev.Target.State == string(StateFailed) &&
			strings.HasPrefix(ev.Target.Target, "encrypted_bundle_") {
			sawFailed = true
		}
	}
	if !sawFailed {
		t.Fatalf("no failed bundle state published")
	}
}
