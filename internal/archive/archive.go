// Package archive builds and extracts the gzip-compressed tar bundles
// used for folder encryption. Build refuses (or deterministically
// skips, per policy) symlinks that escape the tree being archived;
// Extract validates every member name before writing anything and
// removes the freshly created extraction root on the first bad member.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sealbox/sealbox/internal/config"
	"github.com/sealbox/sealbox/internal/errs"
	"github.com/sealbox/sealbox/internal/log"
	"github.com/sealbox/sealbox/internal/pathguard"
)

// Suffix is the archive naming convention for encrypted folders.
const Suffix = ".tar.gz"

var gzipMagic = []byte{0x1f, 0x8b}

// Builder creates and unpacks bundles under a fixed policy.
type Builder struct {
	policy       config.SymlinkPolicy
	extractLimit int64
	logger       *slog.Logger
}

func New(policy config.SymlinkPolicy, extractLimit int64) *Builder {
	return &Builder{
		policy:       policy,
		extractLimit: extractLimit,
		logger:       log.WithComponent("archive"),
	}
}

// Build archives sourceDir into outPath (tar.gz). Member names are
// relative to sourceDir. A symlink whose target resolves outside
// sourceDir is handled per the symlink policy; in-tree symlinks are
// stored as links. Build never dereferences symlinks during the walk.
func (b *Builder) Build(sourceDir, outPath string) (err error) {
	srcInfo, err := os.Stat(sourceDir)
	if err != nil {
		return fmt.Errorf("%w: stat source %q: %v", errs.ErrValidation, sourceDir, err)
	}
	if !srcInfo.IsDir() {
		return fmt.Errorf("%w: source %q is not a directory", errs.ErrValidation, sourceDir)
	}

	out, err := os.OpenFile(outPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("%w: create archive %q: %v", errs.ErrProcess, outPath, err)
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(outPath)
			return
		}
		err = out.Close()
	}()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	err = filepath.WalkDir(sourceDir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("%w: walk %q: %v", errs.ErrProcess, path, walkErr)
		}
		if path == sourceDir {
			return nil
		}

		rel, relErr := filepath.Rel(sourceDir, path)
		if relErr != nil {
			return fmt.Errorf("%w: relative path for %q: %v", errs.ErrProcess, path, relErr)
		}

		info, infoErr := entry.Info()
		if infoErr != nil {
			return fmt.Errorf("%w: stat member %q: %v", errs.ErrProcess, rel, infoErr)
		}

		if info.Mode()&os.ModeSymlink != 0 {
			return b.addSymlink(tw, sourceDir, path, rel, info)
		}

		hdr, hdrErr := tar.FileInfoHeader(info, "")
		if hdrErr != nil {
			return fmt.Errorf("%w: header for %q: %v", errs.ErrProcess, rel, hdrErr)
		}
		hdr.Name = filepath.ToSlash(rel)

		if writeErr := tw.WriteHeader(hdr); writeErr != nil {
			return fmt.Errorf("%w: write header %q: %v", errs.ErrProcess, rel, writeErr)
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		f, openErr := os.Open(path)
		if openErr != nil {
			return fmt.Errorf("%w: open member %q: %v", errs.ErrProcess, rel, openErr)
		}
		defer f.Close()
		if _, copyErr := io.Copy(tw, f); copyErr != nil {
			return fmt.Errorf("%w: archive member %q: %v", errs.ErrProcess, rel, copyErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("%w: finalize tar: %v", errs.ErrProcess, err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("%w: finalize gzip: %v", errs.ErrProcess, err)
	}
	return nil
}

// addSymlink stores an in-tree symlink and applies the escape policy to
// anything pointing outside sourceDir.
func (b *Builder) addSymlink(tw *tar.Writer, sourceDir, path, rel string, info fs.FileInfo) error {
	target, err := os.Readlink(path)
	if err != nil {
		return fmt.Errorf("%w: read symlink %q: %v", errs.ErrProcess, rel, err)
	}

	resolved := target
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(path), resolved)
	}
	resolved = filepath.Clean(resolved)

	escapes := resolved != sourceDir &&
		!strings.HasPrefix(resolved, sourceDir+string(filepath.Separator))
	if escapes {
		if b.policy == config.SymlinkSkip {
			b.logger.Warn("omitting symlink escaping archive tree", "member", rel, "target", target)
			return nil
		}
		return fmt.Errorf("%w: symlink %q escapes archive tree (target %q)",
			errs.ErrValidation, rel, target)
	}

	hdr, err := tar.FileInfoHeader(info, target)
	if err != nil {
		return fmt.Errorf("%w: header for symlink %q: %v", errs.ErrProcess, rel, err)
	}
	hdr.Name = filepath.ToSlash(rel)
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("%w: write symlink header %q: %v", errs.ErrProcess, rel, err)
	}
	return nil
}

// Extract unpacks archivePath into destRoot, which must not exist yet:
// Extract creates it and owns it, so aborting can safely remove
// everything under it. Every member name is validated before a byte is
// written; symlink and device members in untrusted archives are
// rejected outright. The first invalid member aborts the extraction and
// removes destRoot.
func (b *Builder) Extract(archivePath, destRoot string) (err error) {
	if _, statErr := os.Lstat(destRoot); statErr == nil {
		return fmt.Errorf("%w: extraction root %q already exists", errs.ErrValidation, destRoot)
	}
	if err := os.MkdirAll(destRoot, 0o755); err != nil {
		return fmt.Errorf("%w: create extraction root %q: %v", errs.ErrProcess, destRoot, err)
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(destRoot)
		}
	}()

	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("%w: open archive %q: %v", errs.ErrProcess, archivePath, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("%w: read gzip stream: %v", errs.ErrValidation, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	var extracted int64
	for {
		hdr, readErr := tr.Next()
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("%w: read tar stream: %v", errs.ErrValidation, readErr)
		}

		dest, valErr := pathguard.ValidateMember(hdr.Name, destRoot)
		if valErr != nil {
			return valErr
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dest, fs.FileMode(hdr.Mode)&0o777|0o700); err != nil {
				return fmt.Errorf("%w: create directory %q: %v", errs.ErrProcess, hdr.Name, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return fmt.Errorf("%w: create parent of %q: %v", errs.ErrProcess, hdr.Name, err)
			}
			n, err := writeFileLimited(dest, tr, fs.FileMode(hdr.Mode)&0o777, b.extractLimit-extracted)
			if err != nil {
				return fmt.Errorf("%w: write member %q: %v", errs.ErrProcess, hdr.Name, err)
			}
			extracted += n
			if b.extractLimit > 0 && extracted > b.extractLimit {
				return fmt.Errorf("%w: archive exceeds extraction limit of %d bytes",
					errs.ErrValidation, b.extractLimit)
			}
		case tar.TypeSymlink, tar.TypeLink:
			return fmt.Errorf("%w: archive member %q is a link (rejected for untrusted archives)",
				errs.ErrValidation, hdr.Name)
		default:
			return fmt.Errorf("%w: archive member %q has unsupported type %d",
				errs.ErrValidation, hdr.Name, hdr.Typeflag)
		}
	}
}

// IsGzip sniffs the gzip magic so decrypted folder bundles can be
// auto-extracted while plain files are left alone.
func IsGzip(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	magic := make([]byte, 2)
	if _, err := io.ReadFull(f, magic); err != nil {
		return false
	}
	return magic[0] == gzipMagic[0] && magic[1] == gzipMagic[1]
}

func writeFileLimited(dest string, r io.Reader, mode fs.FileMode, limit int64) (int64, error) {
	if mode == 0 {
		mode = 0o600
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	if limit <= 0 {
		limit = 1 << 62
	}
	n, err := io.Copy(out, io.LimitReader(r, limit+1))
	if err != nil {
		return n, err
	}
	return n, nil
}
