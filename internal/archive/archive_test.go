package archive

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sealbox/sealbox/internal/config"
	"github.com/sealbox/sealbox/internal/errs"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

func TestBuildExtractRoundTrip(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	src := filepath.Join(base, "docs")
	writeTree(t, src, map[string]string{
		"readme.txt":      "hello",
		"sub/nested.conf": "key=value",
	})

	b := New(config.SymlinkFail, 0)
	arc := filepath.Join(base, "docs"+Suffix)
	if err := b.Build(src, arc); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !IsGzip(arc) {
		t.Fatalf("archive missing gzip magic")
	}

	dest := filepath.Join(base, "restored")
	if err := b.Extract(arc, dest); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dest, "sub", "nested.conf"))
	if err != nil {
		t.Fatalf("read extracted member: %v", err)
	}
	if string(got) != "key=value" {
		t.Fatalf("extracted content = %q", got)
	}
}

func TestBuildRefusesExistingOutput(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	src := filepath.Join(base, "docs")
	writeTree(t, src, map[string]string{"a.txt": "x"})
	arc := filepath.Join(base, "out"+Suffix)
	if err := os.WriteFile(arc, []byte("existing"), 0o600); err != nil {
		t.Fatalf("seed output: %v", err)
	}

	if err := New(config.SymlinkFail, 0).Build(src, arc); err == nil {
		t.Fatalf("Build clobbered an existing file")
	}
	got, _ := os.ReadFile(arc)
	if string(got) != "existing" {
		t.Fatalf("Build destroyed pre-existing output")
	}
}

func TestBuildEscapingSymlinkFailPolicy(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	src := filepath.Join(base, "docs")
	writeTree(t, src, map[string]string{"a.txt": "x"})
	outside := filepath.Join(base, "victim.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
		t.Fatalf("write victim: %v", err)
	}
	if err := os.Symlink(outside, filepath.Join(src, "link")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	arc := filepath.Join(base, "docs"+Suffix)
	err := New(config.SymlinkFail, 0).Build(src, arc)
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, statErr := os.Stat(arc); !os.IsNotExist(statErr) {
		t.Fatalf("failed Build left archive behind")
	}
}

func TestBuildEscapingSymlinkSkipPolicy(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	src := filepath.Join(base, "docs")
	writeTree(t, src, map[string]string{"a.txt": "x"})
	if err := os.Symlink("/etc/passwd", filepath.Join(src, "link")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	b := New(config.SymlinkSkip, 0)
	arc := filepath.Join(base, "docs"+Suffix)
	if err := b.Build(src, arc); err != nil {
		t.Fatalf("Build under skip policy: %v", err)
	}

	dest := filepath.Join(base, "restored")
	if err := b.Extract(arc, dest); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if _, err := os.Lstat(filepath.Join(dest, "link")); !os.IsNotExist(err) {
		t.Fatalf("escaping symlink was archived despite skip policy")
	}
}

func TestBuildKeepsInTreeSymlink(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	src := filepath.Join(base, "docs")
	writeTree(t, src, map[string]string{"a.txt": "x"})
	if err := os.Symlink("a.txt", filepath.Join(src, "alias")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	arc := filepath.Join(base, "docs"+Suffix)
	if err := New(config.SymlinkFail, 0).Build(src, arc); err != nil {
		t.Fatalf("Build with in-tree symlink: %v", err)
	}
}

func TestExtractRejectsTraversalMember(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	arc := buildHostileArchive(t, base, "../../escape.txt")

	dest := filepath.Join(base, "restored")
	err := New(config.SymlinkFail, 0).Extract(arc, dest)
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, statErr := os.Lstat(dest); !os.IsNotExist(statErr) {
		t.Fatalf("aborted Extract left destination root behind")
	}
	if _, statErr := os.Lstat(filepath.Join(base, "escape.txt")); !os.IsNotExist(statErr) {
		t.Fatalf("traversal member escaped the destination root")
	}
}

func TestExtractRejectsSymlinkMember(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	src := filepath.Join(base, "docs")
	writeTree(t, src, map[string]string{"a.txt": "x"})
	if err := os.Symlink("a.txt", filepath.Join(src, "alias")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	arc := filepath.Join(base, "docs"+Suffix)
	if err := New(config.SymlinkFail, 0).Build(src, arc); err != nil {
		t.Fatalf("Build: %v", err)
	}

	dest := filepath.Join(base, "restored")
	err := New(config.SymlinkFail, 0).Extract(arc, dest)
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected symlink member rejection, got %v", err)
	}
	if _, statErr := os.Lstat(dest); !os.IsNotExist(statErr) {
		t.Fatalf("aborted Extract left destination root behind")
	}
}

func TestExtractRefusesExistingRoot(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	src := filepath.Join(base, "docs")
	writeTree(t, src, map[string]string{"a.txt": "x"})
	arc := filepath.Join(base, "docs"+Suffix)
	if err := New(config.SymlinkFail, 0).Build(src, arc); err != nil {
		t.Fatalf("Build: %v", err)
	}

	dest := filepath.Join(base, "taken")
	if err := os.MkdirAll(dest, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := New(config.SymlinkFail, 0).Extract(arc, dest); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected rejection of existing root, got %v", err)
	}
}

func TestExtractEnforcesSizeLimit(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	src := filepath.Join(base, "docs")
	writeTree(t, src, map[string]string{"big.bin": string(make([]byte, 4096))})
	arc := filepath.Join(base, "docs"+Suffix)
	if err := New(config.SymlinkFail, 0).Build(src, arc); err != nil {
		t.Fatalf("Build: %v", err)
	}

	dest := filepath.Join(base, "restored")
	err := New(config.SymlinkFail, 1024).Extract(arc, dest)
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected extraction limit error, got %v", err)
	}
	if _, statErr := os.Lstat(dest); !os.IsNotExist(statErr) {
		t.Fatalf("aborted Extract left destination root behind")
	}
}

func TestIsGzipRejectsPlainFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "plain.txt")
	if err := os.WriteFile(path, []byte("just text"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if IsGzip(path) {
		t.Fatalf("plain file misdetected as gzip")
	}
	if IsGzip(filepath.Join(path, "missing")) {
		t.Fatalf("missing file misdetected as gzip")
	}
}

// buildHostileArchive writes a tar.gz containing a single member with the
// given name, bypassing Build's own safeguards.
func buildHostileArchive(t *testing.T, dir, member string) string {
	t.Helper()
	path := filepath.Join(dir, "hostile"+Suffix)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	body := []byte("pwned")
	hdr := &tar.Header{
		Name:     member,
		Typeflag: tar.TypeReg,
		Mode:     0o644,
		Size:     int64(len(body)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if _, err := tw.Write(body); err != nil {
		t.Fatalf("write member: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return path
}
