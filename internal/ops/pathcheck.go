package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/snag/internal/config"
	"github.com/hpungsan/snag/internal/errors"
)

// PathCheckMode indicates whether the path check is for reading or writing.
type PathCheckMode int

const (
	PathCheckRead  PathCheckMode = iota // import
	PathCheckWrite                      // export
)

// ValidatePath checks an import or export path. The path must have a .jsonl
// extension, contain no ".." components, must not be a symlink, and unless
// AllowUnsafePaths is set must sit directly (not in a subdirectory) in
// ~/.snag/exports or one of AllowedPaths. Read paths must exist.
//
// Files are opened with O_NOFOLLOW afterwards, so forbidding subdirectories leaves
// no intermediate component that could be swapped for a symlink.
func ValidatePath(path string, mode PathCheckMode, cfg *config.Config) error {
	if path == "" {
		return errors.NewInvalidRequest("path is required")
	}
	if containsTraversal(path) {
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	cleaned := filepath.Clean(path)
	if filepath.Ext(cleaned) != ".jsonl" {
		return errors.NewInvalidRequest("path must have .jsonl extension")
	}
	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	if cfg == nil || !cfg.AllowUnsafePaths {
		if err := checkAllowedDir(filepath.Dir(absPath), cfg); err != nil {
			return err
		}
	}

	if mode == PathCheckRead {
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			return errors.NewFileNotFound(path)
		}
	}
	if isSymlink(absPath) {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	return nil
}

// checkAllowedDir requires parentDir to be exactly one of the allowed directories
// and not itself a symlink.
func checkAllowedDir(parentDir string, cfg *config.Config) error {
	allowed, err := allowedDirs(cfg)
	if err != nil {
		return err
	}

	parentDir = filepath.Clean(parentDir)
	found := false
	for _, dir := range allowed {
		if parentDir == dir {
			found = true
			break
		}
	}
	if !found {
		return errors.NewInvalidRequest(fmt.Sprintf(
			"file must be directly in an allowed directory (no subdirectories); allowed: %v", allowed))
	}
	if isSymlink(parentDir) {
		return errors.NewInvalidRequest("parent directory must not be a symlink")
	}
	return nil
}

// allowedDirs returns ~/.snag/exports plus the absolute AllowedPaths entries,
// cleaned. Entries that are symlinks are resolved to their targets.
func allowedDirs(cfg *config.Config) ([]string, error) {
	exports, err := DefaultExportsDir()
	if err != nil {
		return nil, err
	}
	dirs := []string{exports}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				dirs = append(dirs, p)
			}
		}
	}

	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		d = filepath.Clean(d)
		if isSymlink(d) {
			resolved, err := filepath.EvalSymlinks(d)
			if err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve symlink in allowed path: %v", err))
			}
			d = resolved
		}
		out = append(out, d)
	}
	return out, nil
}

// DefaultExportsDir returns the default exports directory (~/.snag/exports).
func DefaultExportsDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
	}
	return filepath.Join(homeDir, config.DirName, "exports"), nil
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// containsTraversal reports whether any component of path is "..". Forward slashes
// are treated as separators on every platform.
func containsTraversal(path string) bool {
	split := func(r rune) bool { return r == '/' || r == filepath.Separator }
	for _, part := range strings.FieldsFunc(path, split) {
		if part == ".." {
			return true
		}
	}
	return false
}

// SanitizeForFilename makes s safe to embed in a file name: separators and ".."
// become dashes, control characters are dropped, and runs of dashes collapse.
// Returns "unnamed" when nothing is left.
func SanitizeForFilename(s string) string {
	s = strings.NewReplacer("/", "-", "\\", "-", "..", "-").Replace(s)
	s = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")
	if s == "" {
		return "unnamed"
	}
	return s
}
