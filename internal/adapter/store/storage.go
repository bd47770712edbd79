package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const currentFileName = "CURRENT"

// Index is one completely loaded generation: the vector store, the ledger
// it was committed with, and the manifest describing both.
type Index struct {
	Vectors  *VectorStore
	Ledger   *Ledger
	Manifest *Manifest
}

// Storage owns one on-disk index location. Every build commits a fresh
// (vectors, metadata) pair under a new generation number and then swaps the
// CURRENT pointer file, so readers resolve either the old complete pair or
// the new complete pair and never a mix. Builds against the same Storage
// are serialized by an internal mutex; searches need no lock here because
// committed generation files are immutable.
type Storage struct {
	dir string

	mu sync.Mutex // serializes Commit
}

// NewStorage opens (creating if needed) the storage directory.
func NewStorage(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("store: create storage dir: %w", err)
	}
	return &Storage{dir: dir}, nil
}

// Dir returns the storage directory.
func (s *Storage) Dir() string {
	return s.dir
}

// Commit durably writes the pair as the next generation and makes it
// current. The ledger must cover exactly the store's identifier range;
// violating pairs are rejected before anything is written.
func (s *Storage) Commit(vs *VectorStore, ledger *Ledger, model string) (*Manifest, error) {
	if err := ledger.Verify(vs.Size()); err != nil {
		return nil, fmt.Errorf("store: refusing to commit mismatched pair: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	gen := uint64(1)
	if prev, err := s.currentManifest(); err != nil {
		return nil, err
	} else if prev != nil {
		gen = prev.Generation + 1
	}

	m := &Manifest{
		Version:      manifestVersion,
		Generation:   gen,
		BuildID:      uuid.NewString(),
		Model:        model,
		Dimension:    vs.Dimension(),
		Count:        vs.Size(),
		CreatedAt:    time.Now().UTC(),
		VectorsFile:  fmt.Sprintf("vectors-%06d.vec", gen),
		MetadataFile: fmt.Sprintf("metadata-%06d.json", gen),
	}

	if err := writeFileAtomic(filepath.Join(s.dir, m.VectorsFile), func(w io.Writer) error {
		_, err := vs.WriteTo(w)
		return err
	}); err != nil {
		return nil, fmt.Errorf("store: write vectors: %w", err)
	}

	if err := writeFileAtomic(filepath.Join(s.dir, m.MetadataFile), func(w io.Writer) error {
		_, err := ledger.WriteTo(w)
		return err
	}); err != nil {
		return nil, fmt.Errorf("store: write metadata: %w", err)
	}

	manifestName := fmt.Sprintf("manifest-%06d.json", gen)
	if err := writeFileAtomic(filepath.Join(s.dir, manifestName), func(w io.Writer) error {
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}); err != nil {
		return nil, fmt.Errorf("store: write manifest: %w", err)
	}

	// The CURRENT swap is the commit point.
	if err := writeFileAtomic(filepath.Join(s.dir, currentFileName), func(w io.Writer) error {
		_, err := io.WriteString(w, manifestName)
		return err
	}); err != nil {
		return nil, fmt.Errorf("store: swap CURRENT: %w", err)
	}

	s.removeStaleGenerations(gen)

	return m, nil
}

// Load resolves CURRENT and reads the referenced pair. A missing CURRENT
// means no index has ever been committed; that is a normal state reported
// as (nil, nil), not an error.
func (s *Storage) Load() (*Index, error) {
	m, err := s.currentManifest()
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, nil
	}

	vf, err := os.Open(filepath.Join(s.dir, m.VectorsFile))
	if err != nil {
		return nil, fmt.Errorf("store: open vectors: %w", err)
	}
	defer vf.Close()

	vs, err := ReadVectorStore(vf)
	if err != nil {
		return nil, err
	}

	mf, err := os.Open(filepath.Join(s.dir, m.MetadataFile))
	if err != nil {
		return nil, fmt.Errorf("store: open metadata: %w", err)
	}
	defer mf.Close()

	ledger, err := ReadLedger(mf)
	if err != nil {
		return nil, err
	}

	return &Index{Vectors: vs, Ledger: ledger, Manifest: m}, nil
}

// currentManifest reads CURRENT and the manifest it names. Returns nil
// without error when CURRENT does not exist.
func (s *Storage) currentManifest() (*Manifest, error) {
	content, err := os.ReadFile(filepath.Join(s.dir, currentFileName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read CURRENT: %w", err)
	}

	name := strings.TrimSpace(string(content))
	if name == "" || name != filepath.Base(name) {
		return nil, fmt.Errorf("store: CURRENT names invalid manifest %q", name)
	}
	return readManifest(filepath.Join(s.dir, name))
}

// removeStaleGenerations deletes generation files other than keep. Best
// effort: a failure here leaves garbage behind but never a broken index,
// and the next commit retries.
func (s *Storage) removeStaleGenerations(keep uint64) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}

	keepSuffix := fmt.Sprintf("-%06d", keep)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == currentFileName {
			continue
		}
		generational := strings.HasPrefix(name, "vectors-") ||
			strings.HasPrefix(name, "metadata-") ||
			strings.HasPrefix(name, "manifest-")
		if !generational {
			continue
		}
		base := strings.TrimSuffix(name, filepath.Ext(name))
		if strings.HasSuffix(base, keepSuffix) {
			continue
		}
		_ = os.Remove(filepath.Join(s.dir, name))
	}
}

// writeFileAtomic writes via a temp file in the same directory, fsyncs,
// renames over the target, and fsyncs the directory so the rename itself
// is durable.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	_ = tmp.Chmod(0644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := write(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	tmpName = ""

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
