// Package wipe overwrites and unlinks files after verified encryption.
// It never decides whether deletion is appropriate; the workflow
// controller only calls it after verification succeeded.
//
// On wear-leveled media (SSDs, flash) overwriting gives no guarantee
// that prior blocks are gone; that is a property of the storage, not of
// this code, and is documented rather than worked around.
package wipe

import (
	"context"
	"crypto/rand"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/sealbox/sealbox/internal/errs"
	"github.com/sealbox/sealbox/internal/log"
	"github.com/sealbox/sealbox/internal/procexec"
)

// Deleter performs overwrite-then-unlink deletions, preferring the
// external secure-erase tool and falling back to an in-process
// overwrite when the tool is missing.
type Deleter struct {
	command string
	timeout time.Duration
	runner  *procexec.Runner
	logger  *slog.Logger
}

func New(command string, timeout time.Duration, runner *procexec.Runner) *Deleter {
	return &Deleter{
		command: command,
		timeout: timeout,
		runner:  runner,
		logger:  log.WithComponent("wipe"),
	}
}

// Delete removes path with the given overwrite pass count. Regular
// files are shredded; directories are walked leaves-first so every file
// is overwritten before its parent is unlinked.
func (d *Deleter) Delete(ctx context.Context, path string, passes int) error {
	if passes < 1 {
		return fmt.Errorf("%w: pass count %d is invalid", errs.ErrProcess, passes)
	}

	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("%w: stat %q: %v", errs.ErrProcess, path, err)
	}

	if !info.IsDir() {
		return d.deleteFile(ctx, path, passes)
	}

	var files, dirs []string
	err = filepath.WalkDir(path, func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			dirs = append(dirs, p)
		} else {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: walk %q: %v", errs.ErrProcess, path, err)
	}

	for _, f := range files {
		if err := d.deleteFile(ctx, f, passes); err != nil {
			return err
		}
	}

	// Deepest directories first.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		if err := os.Remove(dir); err != nil {
			return fmt.Errorf("%w: remove directory %q: %v", errs.ErrProcess, dir, err)
		}
	}
	return nil
}

func (d *Deleter) deleteFile(ctx context.Context, path string, passes int) error {
	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("%w: stat %q: %v", errs.ErrProcess, path, err)
	}
	// Symlinks carry no content blocks; unlink is all there is to do.
	if info.Mode()&os.ModeSymlink != 0 || !info.Mode().IsRegular() {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("%w: remove %q: %v", errs.ErrProcess, path, err)
		}
		return nil
	}

	if d.runner.Available(d.command) {
		res, err := d.runner.Run(ctx, procexec.Spec{
			Command: d.command,
			Args:    []string{"-f", "-z", "-u", "-n", strconv.Itoa(passes), path},
			Timeout: d.timeout,
		})
		if err == nil && res.ExitCode == 0 {
			return nil
		}
		d.logger.Warn("secure-erase tool failed, falling back to in-process overwrite",
			"tool", d.command, "path", filepath.Base(path), "error", err)
	}

	if err := overwrite(path, info.Size(), passes); err != nil {
		return fmt.Errorf("%w: overwrite %q: %v", errs.ErrProcess, path, err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("%w: remove %q: %v", errs.ErrProcess, path, err)
	}
	return nil
}

// overwrite writes passes rounds of random data plus a final zero pass,
// syncing each round so the writes reach the device queue.
func overwrite(path string, size int64, passes int) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, 64*1024)
	for pass := 0; pass <= passes; pass++ {
		if _, err := f.Seek(0, 0); err != nil {
			return err
		}
		zero := pass == passes
		var written int64
		for written < size {
			chunk := buf
			if remaining := size - written; remaining < int64(len(buf)) {
				chunk = buf[:remaining]
			}
			if zero {
				for i := range chunk {
					chunk[i] = 0
				}
			} else if _, err := rand.Read(chunk); err != nil {
				return err
			}
			n, err := f.Write(chunk)
			if err != nil {
				return err
			}
			written += int64(n)
		}
		if err := f.Sync(); err != nil {
			return err
		}
	}
	return nil
}
