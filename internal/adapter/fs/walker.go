package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"imseek/internal/domain"
)

// DefaultExtensions are the image formats indexed when the configuration
// does not name its own set.
var DefaultExtensions = []string{".jpg", ".jpeg", ".png"}

// Walker finds image files under a root directory. Files are matched by
// extension (case-insensitive) and may additionally be excluded by
// doublestar glob patterns relative to the root.
type Walker struct {
	extensions map[string]struct{}
	excludes   []string
}

// NewWalker builds a walker for the given extension set and exclude
// patterns. Extensions are normalized to lower case with a leading dot;
// an empty set falls back to DefaultExtensions.
func NewWalker(extensions, excludes []string) *Walker {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	set := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return &Walker{
		extensions: set,
		excludes:   excludes,
	}
}

// Walk enumerates matching files under root and returns them sorted
// lexicographically by absolute path. A root that does not exist or is not
// a directory is an error; an empty result is not.
func (w *Walker) Walk(root string) ([]domain.ImageFile, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fs: %s is not a directory", root)
	}

	var files []domain.ImageFile
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path != root && w.shouldExclude(relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		if !w.matchesExtension(path) || w.shouldExclude(relPath) {
			return nil
		}

		files = append(files, domain.ImageFile{
			Path:    path,
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}

func (w *Walker) matchesExtension(path string) bool {
	_, ok := w.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

func (w *Walker) shouldExclude(relPath string) bool {
	for _, pattern := range w.excludes {
		matched, err := doublestar.Match(pattern, filepath.ToSlash(relPath))
		if err == nil && matched {
			return true
		}
	}
	return false
}
