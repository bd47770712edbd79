package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"imseek/internal/adapter/store"
	"imseek/internal/domain"
	"imseek/internal/port"
)

// ErrIncompatibleIndex reports that the on-disk index and the configured
// embedder disagree on vector dimensionality, which happens after switching
// models without rebuilding.
var ErrIncompatibleIndex = errors.New("index is incompatible with the configured model")

// IncompatibleIndexError carries the details behind ErrIncompatibleIndex.
type IncompatibleIndexError struct {
	IndexModel     string
	IndexDimension int
	QueryModel     string
	QueryDimension int
}

func (e *IncompatibleIndexError) Error() string {
	return fmt.Sprintf("index built with %s (%d dims) cannot serve %s queries (%d dims); rebuild the index",
		e.IndexModel, e.IndexDimension, e.QueryModel, e.QueryDimension)
}

func (e *IncompatibleIndexError) Unwrap() error { return ErrIncompatibleIndex }

// Engine answers free-text queries against the committed index. It holds an
// immutable snapshot of the latest generation; Reload swaps the snapshot
// after an external rebuild. All methods are safe for concurrent use.
type Engine struct {
	embedder port.Embedder
	storage  *store.Storage
	logger   *zap.Logger

	mu    sync.RWMutex
	index *store.Index
}

// NewEngine loads the current index generation, if any, and returns an
// engine bound to it. A missing index is not an error: the engine starts
// unindexed and answers every query with no results.
func NewEngine(embedder port.Embedder, storage *store.Storage, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		embedder: embedder,
		storage:  storage,
		logger:   logger,
	}
	if err := e.Reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// Reload re-reads the current generation from storage and swaps it in.
// Searches running against the previous snapshot finish undisturbed.
func (e *Engine) Reload() error {
	idx, err := e.storage.Load()
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	if idx != nil && idx.Manifest.Model != e.embedder.ModelName() {
		e.logger.Warn("index was built with a different model",
			zap.String("index_model", idx.Manifest.Model),
			zap.String("configured_model", e.embedder.ModelName()))
	}

	e.mu.Lock()
	e.index = idx
	e.mu.Unlock()

	if idx != nil {
		e.logger.Debug("index snapshot loaded",
			zap.String("build_id", idx.Manifest.BuildID),
			zap.Int("count", idx.Vectors.Size()))
	}
	return nil
}

// Search embeds query and returns up to topK hits ordered by descending
// similarity. Scores are inner products of unit vectors, so they fall in
// [-1, 1] and an identical embedding scores 1. An unindexed engine returns
// an empty result set rather than an error.
func (e *Engine) Search(ctx context.Context, query string, topK int) ([]domain.Hit, error) {
	if topK < 1 {
		return nil, store.ErrInvalidK
	}

	idx := e.snapshot()
	if idx == nil || idx.Ledger.Len() == 0 {
		return nil, nil
	}

	vec, err := e.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vec) != idx.Vectors.Dimension() {
		return nil, &IncompatibleIndexError{
			IndexModel:     idx.Manifest.Model,
			IndexDimension: idx.Vectors.Dimension(),
			QueryModel:     e.embedder.ModelName(),
			QueryDimension: len(vec),
		}
	}

	k := topK
	if n := idx.Vectors.Size(); k > n {
		k = n
	}
	results, err := idx.Vectors.Search(vec, k)
	if err != nil {
		return nil, err
	}

	hits := make([]domain.Hit, 0, len(results))
	for _, r := range results {
		path, ok := idx.Ledger.Get(r.ID)
		if !ok {
			// Vector without a ledger entry: tolerate the skew and keep
			// the remaining hits.
			e.logger.Warn("dropping hit with no metadata", zap.Uint32("id", r.ID))
			continue
		}
		hits = append(hits, domain.Hit{Path: path, Score: r.Score})
	}
	return hits, nil
}

// IsIndexed reports whether a committed, non-empty index is loaded.
func (e *Engine) IsIndexed() bool {
	idx := e.snapshot()
	return idx != nil && idx.Ledger.Len() > 0
}

// Stats describes the loaded snapshot. The zero value means no index.
func (e *Engine) Stats() domain.IndexStats {
	idx := e.snapshot()
	if idx == nil {
		return domain.IndexStats{}
	}
	return domain.IndexStats{
		Indexed:   idx.Ledger.Len() > 0,
		Count:     idx.Vectors.Size(),
		Dimension: idx.Vectors.Dimension(),
		Model:     idx.Manifest.Model,
		BuildID:   idx.Manifest.BuildID,
		BuiltAt:   idx.Manifest.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (e *Engine) snapshot() *store.Index {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.index
}
