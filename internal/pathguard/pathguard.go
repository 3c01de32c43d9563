// Package pathguard canonicalizes filesystem paths and authorizes them
// against a set of allowed roots. It is the single gate every user
// selection and every archive member passes through before any external
// process is spawned.
package pathguard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sealbox/sealbox/internal/errs"
)

// Policy selects the existence rule applied after canonicalization.
type Policy int

const (
	// ReadTarget requires the path to exist.
	ReadTarget Policy = iota
	// WriteTarget requires the path to NOT exist, so outputs never
	// silently clobber. The parent directory must exist.
	WriteTarget
)

// Guard validates paths against allowed roots and denied prefixes.
// A Guard is immutable and safe for concurrent use.
type Guard struct {
	roots  []string
	denied []string
}

// New builds a Guard. Roots are canonicalized eagerly; a root that does
// not resolve is an error since nothing could ever validate against it.
func New(allowedRoots, deniedPrefixes []string) (*Guard, error) {
	if len(allowedRoots) == 0 {
		return nil, fmt.Errorf("at least one allowed root is required")
	}
	roots := make([]string, 0, len(allowedRoots))
	for _, r := range allowedRoots {
		resolved, err := filepath.EvalSymlinks(filepath.Clean(r))
		if err != nil {
			return nil, fmt.Errorf("resolve allowed root %q: %w", r, err)
		}
		roots = append(roots, resolved)
	}
	denied := make([]string, 0, len(deniedPrefixes))
	for _, d := range deniedPrefixes {
		denied = append(denied, filepath.Clean(d))
	}
	return &Guard{roots: roots, denied: denied}, nil
}

// Validate canonicalizes path (resolving .. and symlinks) and returns
// the canonical form, or a validation error if the canonical form
// escapes every allowed root, hits a denied prefix, or violates the
// existence policy. It performs no writes.
func (g *Guard) Validate(path string, policy Policy) (string, error) {
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: path %q is not absolute", errs.ErrValidation, path)
	}

	var canonical string
	var err error
	switch policy {
	case ReadTarget:
		canonical, err = filepath.EvalSymlinks(filepath.Clean(path))
		if err != nil {
			return "", fmt.Errorf("%w: cannot resolve %q: %v", errs.ErrValidation, path, err)
		}
	case WriteTarget:
		// The leaf does not exist yet; canonicalize the parent and
		// re-attach the base name.
		cleaned := filepath.Clean(path)
		parent, err := filepath.EvalSymlinks(filepath.Dir(cleaned))
		if err != nil {
			return "", fmt.Errorf("%w: cannot resolve parent of %q: %v", errs.ErrValidation, path, err)
		}
		canonical = filepath.Join(parent, filepath.Base(cleaned))
		if _, err := os.Lstat(canonical); err == nil {
			return "", fmt.Errorf("%w: refusing to overwrite existing %q", errs.ErrValidation, canonical)
		}
	default:
		return "", fmt.Errorf("%w: unknown policy %d", errs.ErrValidation, policy)
	}

	for _, seg := range strings.Split(canonical, string(filepath.Separator)) {
		if seg == ".." || seg == "." {
			return "", fmt.Errorf("%w: traversal segment survived canonicalization in %q", errs.ErrValidation, canonical)
		}
	}

	for _, d := range g.denied {
		if canonical == d || strings.HasPrefix(canonical, d+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: %q is under protected prefix %q", errs.ErrValidation, canonical, d)
		}
	}

	if !g.insideRoots(canonical) {
		return "", fmt.Errorf("%w: %q escapes every allowed root", errs.ErrValidation, canonical)
	}
	return canonical, nil
}

// ValidateMember checks an archive member's relative path against the
// extraction root: it must be relative, contain no parent segment, and
// resolve inside root. Symlink members are the caller's concern; this
// only judges the name.
func ValidateMember(relPath, root string) (string, error) {
	if relPath == "" {
		return "", fmt.Errorf("%w: empty archive member name", errs.ErrValidation)
	}
	if filepath.IsAbs(relPath) {
		return "", fmt.Errorf("%w: archive member %q is absolute", errs.ErrValidation, relPath)
	}
	cleaned := filepath.Clean(relPath)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: archive member %q escapes extraction root", errs.ErrValidation, relPath)
	}
	dest := filepath.Join(root, cleaned)
	rel, err := filepath.Rel(root, dest)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: archive member %q resolves outside %q", errs.ErrValidation, relPath, root)
	}
	return dest, nil
}

func (g *Guard) insideRoots(canonical string) bool {
	for _, root := range g.roots {
		if canonical == root || strings.HasPrefix(canonical, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
