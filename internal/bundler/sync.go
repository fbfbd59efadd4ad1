// SPDX-License-Identifier: MPL-2.0

package bundler

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// syncIgnores are never copied into the output directory: installed
// dependencies and dotfiles such as .env and .git. The output directory
// itself is added by the caller.
var syncIgnores = []string{
	"node_modules", "node_modules/**",
	".*", ".*/**",
	"**/.*", "**/.*/**",
}

// syncer mirrors a project tree into its output directory.
type syncer struct {
	src    string
	dst    string
	ignore []string
}

func newSyncer(src, dst string, extra []string) (*syncer, error) {
	rel, err := filepath.Rel(src, dst)
	if err != nil {
		return nil, fmt.Errorf("sync: output directory %s: %w", dst, err)
	}
	ignore := append([]string{}, syncIgnores...)
	// An output directory outside the project cannot be walked into.
	if rel = filepath.ToSlash(rel); rel != "." && rel != ".." && !strings.HasPrefix(rel, "../") {
		ignore = append(ignore, rel, rel+"/**")
	}
	for _, pat := range extra {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("sync: invalid ignore pattern %q", pat)
		}
		ignore = append(ignore, pat)
	}
	return &syncer{src: src, dst: dst, ignore: ignore}, nil
}

// ignored reports whether rel (slash-separated, relative to src) is skipped.
func (s *syncer) ignored(rel string) bool {
	for _, pat := range s.ignore {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

// All copies every non-ignored regular file and returns how many it copied.
func (s *syncer) All(ctx context.Context) (int, error) {
	copied := 0
	err := filepath.WalkDir(s.src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(s.src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if s.ignored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := copyFile(path, filepath.Join(s.dst, filepath.FromSlash(rel))); err != nil {
			return err
		}
		copied++
		return nil
	})
	if err != nil {
		return copied, fmt.Errorf("sync %s: %w", s.dst, err)
	}
	return copied, nil
}

// Files copies the given relative paths, skipping ignored, missing and
// non-regular ones.
func (s *syncer) Files(rels []string) (int, error) {
	copied := 0
	for _, rel := range rels {
		if s.ignored(rel) {
			continue
		}
		src := filepath.Join(s.src, filepath.FromSlash(rel))
		info, err := os.Stat(src)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if err := copyFile(src, filepath.Join(s.dst, filepath.FromSlash(rel))); err != nil {
			return copied, fmt.Errorf("sync %s: %w", rel, err)
		}
		copied++
	}
	return copied, nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	_, err = io.Copy(out, in)
	return err
}
