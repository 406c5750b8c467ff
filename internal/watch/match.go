package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// matcher applies include and exclude globs to root-relative,
// slash-separated names.
type matcher struct {
	include []string
	exclude []string
}

func newMatcher(include, exclude []string) (matcher, error) {
	for _, pattern := range slices.Concat(include, exclude) {
		if !doublestar.ValidatePattern(pattern) {
			return matcher{}, fmt.Errorf("invalid watch pattern %q", pattern)
		}
	}
	return matcher{include: include, exclude: exclude}, nil
}

// matches reports whether name is included and not excluded.
func (m matcher) matches(name string) bool {
	if m.excluded(name) {
		return false
	}
	for _, pattern := range m.include {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func (m matcher) excluded(name string) bool {
	for _, pattern := range m.exclude {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// excludedDir reports whether everything below the directory name is
// excluded, so "**/node_modules/**" prunes node_modules itself.
func (m matcher) excludedDir(name string) bool {
	return m.excluded(name) || m.excluded(name+"/_")
}

// walk calls fn with the slash name of every file below dir that m selects.
// Excluded directories are pruned rather than filtered afterwards, so
// trees such as node_modules are never read.
func (m matcher) walk(fsys fs.FS, dir string, fn func(name string)) error {
	return fs.WalkDir(fsys, dir, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			if name == dir {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if name != dir && m.excludedDir(name) {
				return fs.SkipDir
			}
			return nil
		}
		if m.matches(name) {
			fn(name)
		}
		return nil
	})
}

func relSlash(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Expand turns command-line arguments into file paths. Files are kept as
// given; directories are walked and contribute every file the globs
// select, in lexical order.
func Expand(args, include, exclude []string) ([]string, error) {
	m, err := newMatcher(include, exclude)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", arg, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, abs)
			continue
		}

		err = m.walk(os.DirFS(abs), ".", func(name string) {
			out = append(out, filepath.Join(abs, filepath.FromSlash(name)))
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", arg, err)
		}
	}
	return out, nil
}
