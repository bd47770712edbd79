package store

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"sort"
)

const (
	// vectorMagic marks the start of a vector file ("IMS1").
	vectorMagic   = 0x494d5331
	vectorVersion = 1

	// maxVectorCount bounds the count read from a file header so a corrupt
	// header cannot trigger a huge allocation.
	maxVectorCount = 100_000_000

	// unitNormTolerance is the allowed deviation of the squared L2 norm
	// from 1. Vectors inside the tolerance are stored bit-for-bit as given;
	// vectors outside it are L2-normalized before storage.
	unitNormTolerance = 1e-4
)

// SearchResult pairs a vector identifier with its similarity to a query.
type SearchResult struct {
	ID    uint32
	Score float64
}

// VectorStore holds unit-norm float32 vectors of one fixed dimension in a
// single contiguous buffer. Identifiers are dense and zero based, assigned
// in insertion order, so the stored identifiers always form [0, N).
//
// A store is populated by a single builder goroutine and is read-only once
// shared; Search never mutates it. Concurrent replacement of a loaded store
// is the query engine's concern.
type VectorStore struct {
	dim  int
	data []float32 // vector i occupies data[i*dim : (i+1)*dim]
}

// NewVectorStore creates an empty store for vectors of the given dimension.
func NewVectorStore(dimension int) (*VectorStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("store: dimension must be positive, got %d", dimension)
	}
	return &VectorStore{dim: dimension}, nil
}

// Add appends a vector and returns its identifier.
//
// The vector must have the store's dimension and a non-zero norm. Vectors
// whose squared norm deviates from 1 by more than unitNormTolerance are
// L2-normalized before storage; vectors inside the tolerance are stored
// unchanged so serialization round-trips reproduce them exactly.
func (s *VectorStore) Add(vec []float32) (uint32, error) {
	if len(vec) != s.dim {
		return 0, &DimensionError{Expected: s.dim, Actual: len(vec)}
	}

	norm2 := dot(vec, vec)
	if norm2 == 0 {
		return 0, ErrZeroVector
	}

	id := uint32(len(s.data) / s.dim)
	if math.Abs(norm2-1) <= unitNormTolerance {
		s.data = append(s.data, vec...)
		return id, nil
	}

	inv := 1 / math.Sqrt(norm2)
	for _, v := range vec {
		s.data = append(s.data, float32(float64(v)*inv))
	}
	return id, nil
}

// Size returns the number of stored vectors.
func (s *VectorStore) Size() int {
	if s.dim == 0 {
		return 0
	}
	return len(s.data) / s.dim
}

// Dimension returns the fixed vector dimension.
func (s *VectorStore) Dimension() int {
	return s.dim
}

// Vector returns the stored vector for id. The returned slice aliases the
// store's buffer and must not be modified.
func (s *VectorStore) Vector(id uint32) ([]float32, bool) {
	n := s.Size()
	if int(id) >= n {
		return nil, false
	}
	return s.data[int(id)*s.dim : (int(id)+1)*s.dim], true
}

// Search scans every stored vector, scoring it by inner product with the
// query, and returns the k best matches ordered by descending score with
// ties broken by ascending identifier. k is clamped to the store size.
// On an empty store it returns nil.
func (s *VectorStore) Search(query []float32, k int) ([]SearchResult, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}
	if len(query) != s.dim {
		return nil, &DimensionError{Expected: s.dim, Actual: len(query)}
	}

	n := s.Size()
	if n == 0 {
		return nil, nil
	}

	scores := make([]SearchResult, n)
	for i := 0; i < n; i++ {
		vec := s.data[i*s.dim : (i+1)*s.dim]
		scores[i] = SearchResult{ID: uint32(i), Score: dot(query, vec)}
	}

	// Stable sort keeps equal scores in identifier order, which makes
	// result ordering fully deterministic.
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})

	if k > n {
		k = n
	}
	return scores[:k:k], nil
}

// dot computes the inner product with float64 accumulation to keep scores
// stable regardless of summation order effects in float32.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// fileHeader is the fixed 64-byte header of a vector file.
type fileHeader struct {
	Magic     uint32
	Version   uint32
	Count     uint64
	Dimension uint32
	Checksum  uint32 // CRC-32 (IEEE) of the payload bytes
	Reserved  [40]byte
}

// WriteTo serializes the store: the header followed by count*dimension
// little-endian float32 values in identifier order. Stored values are
// written bit-for-bit.
func (s *VectorStore) WriteTo(w io.Writer) (int64, error) {
	payload := make([]byte, len(s.data)*4)
	for i, v := range s.data {
		binary.LittleEndian.PutUint32(payload[i*4:], math.Float32bits(v))
	}

	header := fileHeader{
		Magic:     vectorMagic,
		Version:   vectorVersion,
		Count:     uint64(s.Size()),
		Dimension: uint32(s.dim),
		Checksum:  crc32.ChecksumIEEE(payload),
	}

	cw := &countingWriter{w: w}
	if err := binary.Write(cw, binary.LittleEndian, &header); err != nil {
		return cw.n, fmt.Errorf("store: write header: %w", err)
	}
	if _, err := cw.Write(payload); err != nil {
		return cw.n, fmt.Errorf("store: write vectors: %w", err)
	}
	return cw.n, nil
}

// ReadVectorStore deserializes a store written by WriteTo, validating the
// magic number, format version and payload checksum.
func ReadVectorStore(r io.Reader) (*VectorStore, error) {
	br := bufio.NewReaderSize(r, 256*1024)

	var header fileHeader
	if err := binary.Read(br, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("store: read header: %w", err)
	}
	if header.Magic != vectorMagic {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrBadMagic, header.Magic)
	}
	if header.Version != vectorVersion {
		return nil, fmt.Errorf("%w: got %d", ErrBadVersion, header.Version)
	}
	if header.Dimension == 0 {
		return nil, fmt.Errorf("store: header has zero dimension")
	}
	if header.Count > maxVectorCount {
		return nil, fmt.Errorf("store: header count %d exceeds limit", header.Count)
	}

	payload := make([]byte, int(header.Count)*int(header.Dimension)*4)
	if _, err := io.ReadFull(br, payload); err != nil {
		return nil, fmt.Errorf("store: read vectors: %w", err)
	}
	if crc32.ChecksumIEEE(payload) != header.Checksum {
		return nil, ErrChecksum
	}

	data := make([]float32, int(header.Count)*int(header.Dimension))
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}

	return &VectorStore{dim: int(header.Dimension), data: data}, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
