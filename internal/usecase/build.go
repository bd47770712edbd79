package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"imseek/internal/adapter/cache"
	"imseek/internal/adapter/imaging"
	"imseek/internal/adapter/store"
	"imseek/internal/domain"
	"imseek/internal/port"
)

// Builder performs full index rebuilds: it enumerates images under a root
// directory, embeds each one, and commits the resulting vector store and
// metadata ledger as a new generation. Each build replaces the previous
// index wholesale; identifiers are only stable within one build.
type Builder struct {
	walker   port.ImageWalker
	embedder port.Embedder
	storage  *store.Storage
	cache    *cache.Cache
	logger   *zap.Logger
}

// NewBuilder creates a builder. cache may be nil to disable embedding
// reuse across builds; logger may be nil.
func NewBuilder(walker port.ImageWalker, embedder port.Embedder, storage *store.Storage, c *cache.Cache, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		walker:   walker,
		embedder: embedder,
		storage:  storage,
		cache:    c,
		logger:   logger,
	}
}

// Build indexes every image under root and commits the result.
//
// Files that cannot be read, decoded or embedded are counted as failures
// and skipped; they never abort the build. The summary always satisfies
// Indexed+Failed == number of candidate files enumerated. When no file
// embeds successfully nothing is committed and any previous index stays
// untouched. Cancelling ctx likewise commits nothing.
//
// progress, when non-nil, is called after each processed file with
// (processed, total); a panicking observer is ignored.
func (b *Builder) Build(ctx context.Context, root string, progress port.ProgressFunc) (domain.BuildSummary, error) {
	var summary domain.BuildSummary

	files, err := b.walker.Walk(root)
	if err != nil {
		return summary, fmt.Errorf("enumerate %s: %w", root, err)
	}
	if len(files) == 0 {
		b.logger.Info("no candidate images found", zap.String("root", root))
		return summary, nil
	}

	b.logger.Info("build started",
		zap.String("root", root),
		zap.Int("candidates", len(files)),
		zap.String("model", b.embedder.ModelName()),
	)

	vectors, err := store.NewVectorStore(b.embedder.Dimension())
	if err != nil {
		return summary, err
	}
	paths := make(map[uint32]string, len(files))

	total := len(files)
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			b.logger.Info("build cancelled, nothing committed", zap.Int("processed", i))
			return domain.BuildSummary{}, err
		}

		vec, err := b.embedFile(ctx, file)
		if err != nil {
			// A cancelled context surfaces through the embedder; that is
			// a cancellation, not a bad file.
			if ctx.Err() != nil {
				b.logger.Info("build cancelled, nothing committed", zap.Int("processed", i))
				return domain.BuildSummary{}, ctx.Err()
			}
			summary.Failed++
			b.logger.Debug("skipping file", zap.String("path", file.Path), zap.Error(err))
			reportProgress(progress, i+1, total)
			continue
		}

		id, err := vectors.Add(vec)
		if err != nil {
			summary.Failed++
			b.logger.Warn("embedder produced unusable vector",
				zap.String("path", file.Path), zap.Error(err))
			reportProgress(progress, i+1, total)
			continue
		}

		paths[id] = file.Path
		summary.Indexed++
		reportProgress(progress, i+1, total)
	}

	if summary.Indexed == 0 {
		b.logger.Info("build produced no vectors, previous index left intact",
			zap.Int("failed", summary.Failed))
		return summary, nil
	}

	ledger := store.NewLedger()
	ledger.SetAll(paths)

	manifest, err := b.storage.Commit(vectors, ledger, b.embedder.ModelName())
	if err != nil {
		return summary, fmt.Errorf("commit index: %w", err)
	}

	b.logger.Info("index committed",
		zap.String("build_id", manifest.BuildID),
		zap.Uint64("generation", manifest.Generation),
		zap.Int("indexed", summary.Indexed),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// embedFile produces the vector for one file, going to the model only on a
// cache miss.
func (b *Builder) embedFile(ctx context.Context, file domain.ImageFile) ([]float32, error) {
	key := cache.Key{
		Path:      file.Path,
		Size:      file.Size,
		ModTime:   file.ModTime,
		Model:     b.embedder.ModelName(),
		Dimension: b.embedder.Dimension(),
	}
	if b.cache != nil {
		if vec, ok := b.cache.Get(key); ok {
			return vec, nil
		}
	}

	img, err := imaging.DecodeFile(file.Path)
	if err != nil {
		return nil, err
	}

	vec, err := b.embedder.EmbedImage(ctx, imaging.ToRGBA(img))
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", file.Path, err)
	}

	if b.cache != nil {
		if err := b.cache.Put(key, vec); err != nil {
			b.logger.Warn("embedding cache write failed",
				zap.String("path", file.Path), zap.Error(err))
		}
	}
	return vec, nil
}

// reportProgress invokes the caller's observer. Observers are untrusted
// presentation code; a panic there must not fail the build.
func reportProgress(fn port.ProgressFunc, processed, total int) {
	if fn == nil {
		return
	}
	defer func() { _ = recover() }()
	fn(processed, total)
}
