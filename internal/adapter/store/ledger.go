package store

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Ledger maps vector identifiers to absolute source file paths. It is the
// metadata half of an index: a committed ledger's key set always equals the
// identifier range [0, N) of the vector store it was committed with.
//
// Like VectorStore, a ledger is assembled by one goroutine and read-only
// once shared.
type Ledger struct {
	paths map[uint32]string
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{paths: make(map[uint32]string)}
}

// SetAll replaces the entire mapping. The input map is copied.
func (l *Ledger) SetAll(m map[uint32]string) {
	paths := make(map[uint32]string, len(m))
	for id, p := range m {
		paths[id] = p
	}
	l.paths = paths
}

// Get resolves an identifier to its path. A missing identifier is a normal
// outcome (callers skip the hit), not an error.
func (l *Ledger) Get(id uint32) (string, bool) {
	p, ok := l.paths[id]
	return p, ok
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	return len(l.paths)
}

// Keys returns all identifiers in ascending order.
func (l *Ledger) Keys() []uint32 {
	keys := make([]uint32, 0, len(l.paths))
	for id := range l.paths {
		keys = append(keys, id)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Verify checks the pairing invariant: the key set must be exactly [0, n).
func (l *Ledger) Verify(n int) error {
	if len(l.paths) != n {
		return fmt.Errorf("store: ledger has %d entries, vector store has %d", len(l.paths), n)
	}
	for i := 0; i < n; i++ {
		if _, ok := l.paths[uint32(i)]; !ok {
			return fmt.Errorf("store: ledger missing identifier %d", i)
		}
	}
	return nil
}

// WriteTo serializes the ledger as a JSON object keyed by stringified
// identifiers, e.g. {"0": "/pics/a.jpg"}. The layout matches the metadata
// files written by earlier versions of this tool.
func (l *Ledger) WriteTo(w io.Writer) (int64, error) {
	obj := make(map[string]string, len(l.paths))
	for id, p := range l.paths {
		obj[strconv.FormatUint(uint64(id), 10)] = p
	}

	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("store: marshal ledger: %w", err)
	}
	n, err := w.Write(data)
	return int64(n), err
}

// ReadLedger deserializes a ledger written by WriteTo. Keys that do not
// parse as unsigned integers are rejected.
func ReadLedger(r io.Reader) (*Ledger, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("store: read ledger: %w", err)
	}

	var obj map[string]string
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("store: parse ledger: %w", err)
	}

	paths := make(map[uint32]string, len(obj))
	for key, p := range obj {
		id, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("store: ledger key %q is not an identifier: %w", key, err)
		}
		paths[uint32(id)] = p
	}
	return &Ledger{paths: paths}, nil
}
