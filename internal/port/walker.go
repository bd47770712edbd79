package port

import "imseek/internal/domain"

// ImageWalker enumerates candidate image files under a root directory.
// The returned slice is sorted lexicographically by absolute path so that
// repeated walks over an unchanged tree produce the same order.
type ImageWalker interface {
	Walk(root string) ([]domain.ImageFile, error)
}

// ProgressFunc observes build progress after each processed file.
// processed counts both successes and failures; total is the number of
// candidates found during enumeration.
type ProgressFunc func(processed, total int)
