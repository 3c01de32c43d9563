// Package workspace manages per-job staging directories. Scrubbing and
// archiving operate on ephemeral copies inside a staging area so the
// user's originals are never mutated before encryption is verified.
package workspace

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sealbox/sealbox/internal/errs"
)

// Staging is a job-scoped scratch directory. Paths inside it are owned
// by the job and swept unconditionally when the job finishes.
type Staging struct {
	JobID string
	Dir   string
}

// CleanupReport summarizes a stale-workspace sweep.
type CleanupReport struct {
	DeletedDirs int
}

// Manager creates and reaps staging directories under a fixed base.
type Manager struct {
	baseDir string
	now     func() time.Time
}

func NewManager(baseDir string) (*Manager, error) {
	trimmed := strings.TrimSpace(baseDir)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: staging base directory is empty", errs.ErrValidation)
	}
	return &Manager{
		baseDir: filepath.Clean(trimmed),
		now:     time.Now,
	}, nil
}

// Create initializes a 0700 staging directory for jobID.
func (m *Manager) Create(ctx context.Context, jobID string) (Staging, error) {
	if err := ctx.Err(); err != nil {
		return Staging{}, err
	}
	path, err := m.stagingPath(jobID)
	if err != nil {
		return Staging{}, err
	}

	if err := os.MkdirAll(m.baseDir, 0o700); err != nil {
		return Staging{}, fmt.Errorf("create staging base directory: %w", err)
	}
	if err := os.Mkdir(path, 0o700); err != nil {
		return Staging{}, fmt.Errorf("create staging for job %q: %w", jobID, err)
	}
	return Staging{JobID: jobID, Dir: path}, nil
}

// CopyInto copies source (a file or a directory tree) into the staging
// directory under its base name and returns the staged path. Symlinks
// inside a copied tree are re-created as links, never followed, so a
// hostile tree cannot pull outside content into staging.
func (m *Manager) CopyInto(ctx context.Context, st Staging, source string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	base := filepath.Base(source)
	if base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("%w: cannot stage %q", errs.ErrValidation, source)
	}
	dest := filepath.Join(st.Dir, base)
	if _, err := os.Lstat(dest); err == nil {
		return "", fmt.Errorf("%w: staging already holds %q", errs.ErrValidation, base)
	}

	info, err := os.Lstat(source)
	if err != nil {
		return "", fmt.Errorf("stat staging source: %w", err)
	}

	switch {
	case info.IsDir():
		if err := copyTree(ctx, source, dest); err != nil {
			_ = os.RemoveAll(dest)
			return "", err
		}
	case info.Mode().IsRegular():
		if err := copyFile(source, dest, info.Mode().Perm()); err != nil {
			_ = os.Remove(dest)
			return "", err
		}
	default:
		return "", fmt.Errorf("%w: %q is neither a regular file nor a directory",
			errs.ErrValidation, source)
	}
	return dest, nil
}

// Release removes a staging directory. Callers invoke it on every job
// exit path; failure to release is logged, not fatal.
func (m *Manager) Release(st Staging) error {
	if st.Dir == "" {
		return nil
	}
	if filepath.Dir(st.Dir) != m.baseDir {
		return fmt.Errorf("%w: refusing to remove %q outside staging base", errs.ErrValidation, st.Dir)
	}
	return os.RemoveAll(st.Dir)
}

// CleanupStale removes staging directories older than olderThan. Run at
// startup to sweep leftovers from crashed runs.
func (m *Manager) CleanupStale(ctx context.Context, olderThan time.Duration) (CleanupReport, error) {
	if err := ctx.Err(); err != nil {
		return CleanupReport{}, err
	}
	if olderThan <= 0 {
		return CleanupReport{}, fmt.Errorf("%w: olderThan must be positive", errs.ErrValidation)
	}

	entries, err := os.ReadDir(m.baseDir)
	if os.IsNotExist(err) {
		return CleanupReport{}, nil
	}
	if err != nil {
		return CleanupReport{}, fmt.Errorf("read staging base directory: %w", err)
	}

	cutoff := m.now().Add(-olderThan)
	report := CleanupReport{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return report, fmt.Errorf("read staging entry info %q: %w", entry.Name(), err)
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(m.baseDir, entry.Name())); err != nil {
			return report, fmt.Errorf("remove stale staging %q: %w", entry.Name(), err)
		}
		report.DeletedDirs++
	}
	return report, nil
}

func (m *Manager) stagingPath(jobID string) (string, error) {
	if err := validateJobID(jobID); err != nil {
		return "", err
	}
	return filepath.Join(m.baseDir, jobID), nil
}

func copyTree(ctx context.Context, srcDir, dstDir string) error {
	srcInfo, err := os.Stat(srcDir)
	if err != nil {
		return fmt.Errorf("stat source directory: %w", err)
	}
	if err := os.Mkdir(dstDir, srcInfo.Mode().Perm()|0o700); err != nil {
		return fmt.Errorf("create staged directory: %w", err)
	}

	return filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == srcDir {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		relPath, err := filepath.Rel(srcDir, path)
		if err != nil {
			return fmt.Errorf("resolve relative path: %w", err)
		}
		dstPath := filepath.Join(dstDir, relPath)

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("read entry info for %q: %w", path, err)
		}

		switch {
		case d.IsDir():
			if err := os.Mkdir(dstPath, info.Mode().Perm()|0o700); err != nil {
				return fmt.Errorf("create directory %q: %w", dstPath, err)
			}
		case info.Mode().IsRegular():
			if err := copyFile(path, dstPath, info.Mode().Perm()); err != nil {
				return err
			}
		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return fmt.Errorf("read symlink %q: %w", path, err)
			}
			if err := os.Symlink(target, dstPath); err != nil {
				return fmt.Errorf("create symlink %q: %w", dstPath, err)
			}
		default:
			return fmt.Errorf("%w: unsupported file type for %q (%s)",
				errs.ErrValidation, path, info.Mode().Type())
		}
		return nil
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open staging source %q: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm|0o600)
	if err != nil {
		return fmt.Errorf("create staged file %q: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %q into staging: %w", src, err)
	}
	return out.Close()
}

func validateJobID(jobID string) error {
	trimmed := strings.TrimSpace(jobID)
	if trimmed == "" {
		return fmt.Errorf("%w: jobID is empty", errs.ErrValidation)
	}
	if trimmed == "." || trimmed == ".." {
		return fmt.Errorf("%w: jobID %q is invalid", errs.ErrValidation, jobID)
	}
	if strings.Contains(trimmed, "/") || strings.Contains(trimmed, `\`) {
		return fmt.Errorf("%w: jobID %q must not contain path separators", errs.ErrValidation, jobID)
	}
	if filepath.Clean(trimmed) != trimmed {
		return fmt.Errorf("%w: jobID %q is invalid", errs.ErrValidation, jobID)
	}
	return nil
}
