package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sealbox/sealbox/internal/errs"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	base := filepath.Join(t.TempDir(), "staging")
	m, err := NewManager(base)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m, base
}

func TestCreateMakesPrivateDirectory(t *testing.T) {
	t.Parallel()
	m, base := newTestManager(t)

	st, err := m.Create(context.Background(), "job-123")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if st.Dir != filepath.Join(base, "job-123") {
		t.Fatalf("Dir = %q", st.Dir)
	}
	info, err := os.Stat(st.Dir)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o700 {
		t.Fatalf("staging perms = %o, want 0700", info.Mode().Perm())
	}
}

func TestCreateRejectsHostileJobID(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t)

	for _, id := range []string{"", ".", "..", "a/b", `a\b`, "../escape"} {
		if _, err := m.Create(context.Background(), id); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("Create(%q) = %v, want validation error", id, err)
		}
	}
}

func TestCopyIntoFile(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t)
	st, err := m.Create(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	src := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	staged, err := m.CopyInto(context.Background(), st, src)
	if err != nil {
		t.Fatalf("CopyInto: %v", err)
	}
	got, err := os.ReadFile(staged)
	if err != nil || string(got) != "payload" {
		t.Fatalf("staged copy = %q, %v", got, err)
	}

	// Originals are untouched afterwards.
	orig, _ := os.ReadFile(src)
	if string(orig) != "payload" {
		t.Fatalf("source was mutated")
	}

	// A second copy of the same base name is refused.
	if _, err := m.CopyInto(context.Background(), st, src); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("duplicate stage = %v, want validation error", err)
	}
}

func TestCopyIntoTreePreservesSymlinksAsLinks(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t)
	st, err := m.Create(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	srcRoot := t.TempDir()
	src := filepath.Join(srcRoot, "tree")
	if err := os.MkdirAll(filepath.Join(src, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "sub", "f.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Symlink("/etc/passwd", filepath.Join(src, "link")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	staged, err := m.CopyInto(context.Background(), st, src)
	if err != nil {
		t.Fatalf("CopyInto: %v", err)
	}
	if _, err := os.Stat(filepath.Join(staged, "sub", "f.txt")); err != nil {
		t.Fatalf("nested file missing: %v", err)
	}
	info, err := os.Lstat(filepath.Join(staged, "link"))
	if err != nil {
		t.Fatalf("lstat staged link: %v", err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Fatalf("symlink was followed instead of re-created")
	}
}

func TestReleaseRefusesForeignDirectory(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t)

	foreign := t.TempDir()
	err := m.Release(Staging{JobID: "x", Dir: foreign})
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("Release outside base = %v, want validation error", err)
	}
	if _, statErr := os.Stat(foreign); statErr != nil {
		t.Fatalf("foreign directory was removed")
	}

	// Releasing a zero-value Staging is a no-op.
	if err := m.Release(Staging{}); err != nil {
		t.Fatalf("Release zero value: %v", err)
	}
}

func TestReleaseRemovesStaging(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t)
	st, err := m.Create(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := m.Release(st); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Lstat(st.Dir); !os.IsNotExist(err) {
		t.Fatalf("staging still exists")
	}
}

func TestCleanupStale(t *testing.T) {
	t.Parallel()
	m, base := newTestManager(t)

	old, err := m.Create(context.Background(), "old-job")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	fresh, err := m.Create(context.Background(), "fresh-job")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	stale := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(old.Dir, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	report, err := m.CleanupStale(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("CleanupStale: %v", err)
	}
	if report.DeletedDirs != 1 {
		t.Fatalf("DeletedDirs = %d, want 1", report.DeletedDirs)
	}
	if _, err := os.Lstat(old.Dir); !os.IsNotExist(err) {
		t.Fatalf("stale staging survived the sweep")
	}
	if _, err := os.Lstat(fresh.Dir); err != nil {
		t.Fatalf("fresh staging was removed: %v", err)
	}

	// Missing base directory is not an error.
	if err := os.RemoveAll(base); err != nil {
		t.Fatalf("remove base: %v", err)
	}
	if _, err := m.CleanupStale(context.Background(), 24*time.Hour); err != nil {
		t.Fatalf("CleanupStale on missing base: %v", err)
	}

	if _, err := m.CleanupStale(context.Background(), 0); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("zero olderThan accepted")
	}
}
