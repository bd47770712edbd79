package store

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorStoreAdd(t *testing.T) {
	t.Run("AssignsDenseIdentifiers", func(t *testing.T) {
		s, err := NewVectorStore(3)
		require.NoError(t, err)

		id, err := s.Add([]float32{1, 0, 0})
		require.NoError(t, err)
		assert.Equal(t, uint32(0), id)

		id, err = s.Add([]float32{0, 1, 0})
		require.NoError(t, err)
		assert.Equal(t, uint32(1), id)

		assert.Equal(t, 2, s.Size())
	})

	t.Run("RejectsWrongDimension", func(t *testing.T) {
		s, err := NewVectorStore(3)
		require.NoError(t, err)

		_, err = s.Add([]float32{1, 0})
		require.Error(t, err)

		var dimErr *DimensionError
		require.ErrorAs(t, err, &dimErr)
		assert.Equal(t, 3, dimErr.Expected)
		assert.Equal(t, 2, dimErr.Actual)
	})

	t.Run("RejectsZeroVector", func(t *testing.T) {
		s, err := NewVectorStore(3)
		require.NoError(t, err)

		_, err = s.Add([]float32{0, 0, 0})
		assert.ErrorIs(t, err, ErrZeroVector)
	})

	t.Run("NormalizesOutOfToleranceVectors", func(t *testing.T) {
		s, err := NewVectorStore(2)
		require.NoError(t, err)

		id, err := s.Add([]float32{3, 4})
		require.NoError(t, err)

		vec, ok := s.Vector(id)
		require.True(t, ok)
		assert.InDelta(t, 0.6, float64(vec[0]), 1e-6)
		assert.InDelta(t, 0.8, float64(vec[1]), 1e-6)
		assert.InDelta(t, 1.0, dot(vec, vec), 1e-6)
	})

	t.Run("KeepsUnitVectorsBitExact", func(t *testing.T) {
		s, err := NewVectorStore(2)
		require.NoError(t, err)

		in := []float32{0.6, 0.8}
		id, err := s.Add(in)
		require.NoError(t, err)

		vec, ok := s.Vector(id)
		require.True(t, ok)
		assert.Equal(t, math.Float32bits(in[0]), math.Float32bits(vec[0]))
		assert.Equal(t, math.Float32bits(in[1]), math.Float32bits(vec[1]))
	})

	t.Run("RejectsNonPositiveDimension", func(t *testing.T) {
		_, err := NewVectorStore(0)
		assert.Error(t, err)
	})
}

func TestVectorStoreSearch(t *testing.T) {
	newStore := func(t *testing.T, vecs ...[]float32) *VectorStore {
		t.Helper()
		s, err := NewVectorStore(len(vecs[0]))
		require.NoError(t, err)
		for _, v := range vecs {
			_, err := s.Add(v)
			require.NoError(t, err)
		}
		return s
	}

	t.Run("RanksByInnerProduct", func(t *testing.T) {
		s := newStore(t,
			[]float32{1, 0, 0},
			[]float32{0, 1, 0},
			[]float32{0, 0, 1},
		)

		results, err := s.Search([]float32{0, 1, 0}, 3)
		require.NoError(t, err)
		require.Len(t, results, 3)

		assert.Equal(t, uint32(1), results[0].ID)
		assert.Equal(t, 1.0, results[0].Score)
		for i := 1; i < len(results); i++ {
			assert.LessOrEqual(t, results[i].Score, results[i-1].Score)
		}
	})

	t.Run("BreaksTiesByLowerIdentifier", func(t *testing.T) {
		s := newStore(t,
			[]float32{0, 1},
			[]float32{1, 0},
			[]float32{1, 0},
			[]float32{1, 0},
		)

		results, err := s.Search([]float32{1, 0}, 4)
		require.NoError(t, err)
		require.Len(t, results, 4)

		assert.Equal(t, uint32(1), results[0].ID)
		assert.Equal(t, uint32(2), results[1].ID)
		assert.Equal(t, uint32(3), results[2].ID)
		assert.Equal(t, uint32(0), results[3].ID)
	})

	t.Run("ClampsKToSize", func(t *testing.T) {
		s := newStore(t, []float32{1, 0}, []float32{0, 1})

		results, err := s.Search([]float32{1, 0}, 100)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("RejectsInvalidK", func(t *testing.T) {
		s := newStore(t, []float32{1, 0})

		_, err := s.Search([]float32{1, 0}, 0)
		assert.ErrorIs(t, err, ErrInvalidK)
	})

	t.Run("RejectsWrongQueryDimension", func(t *testing.T) {
		s := newStore(t, []float32{1, 0})

		_, err := s.Search([]float32{1, 0, 0}, 1)
		var dimErr *DimensionError
		assert.ErrorAs(t, err, &dimErr)
	})

	t.Run("EmptyStoreReturnsNothing", func(t *testing.T) {
		s, err := NewVectorStore(2)
		require.NoError(t, err)

		results, err := s.Search([]float32{1, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestVectorStoreRoundTrip(t *testing.T) {
	s, err := NewVectorStore(4)
	require.NoError(t, err)

	vecs := [][]float32{
		{1, 0, 0, 0},
		{0, 0.6, 0.8, 0},
		{0.5, 0.5, 0.5, 0.5},
	}
	for _, v := range vecs {
		_, err := s.Add(v)
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	n, err := s.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	loaded, err := ReadVectorStore(&buf)
	require.NoError(t, err)

	assert.Equal(t, s.Dimension(), loaded.Dimension())
	require.Equal(t, s.Size(), loaded.Size())

	for id := uint32(0); int(id) < s.Size(); id++ {
		want, _ := s.Vector(id)
		got, ok := loaded.Vector(id)
		require.True(t, ok)
		for i := range want {
			assert.Equal(t, math.Float32bits(want[i]), math.Float32bits(got[i]),
				"vector %d component %d must round-trip bit-for-bit", id, i)
		}
	}
}

func TestVectorStoreRoundTripEmpty(t *testing.T) {
	s, err := NewVectorStore(8)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = s.WriteTo(&buf)
	require.NoError(t, err)

	loaded, err := ReadVectorStore(&buf)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Size())
	assert.Equal(t, 8, loaded.Dimension())
}

func TestReadVectorStoreRejectsCorruption(t *testing.T) {
	s, err := NewVectorStore(2)
	require.NoError(t, err)
	_, err = s.Add([]float32{1, 0})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = s.WriteTo(&buf)
	require.NoError(t, err)

	t.Run("FlippedPayloadByte", func(t *testing.T) {
		raw := append([]byte(nil), buf.Bytes()...)
		raw[len(raw)-1] ^= 0xff

		_, err := ReadVectorStore(bytes.NewReader(raw))
		assert.ErrorIs(t, err, ErrChecksum)
	})

	t.Run("BadMagic", func(t *testing.T) {
		raw := append([]byte(nil), buf.Bytes()...)
		raw[0] ^= 0xff

		_, err := ReadVectorStore(bytes.NewReader(raw))
		assert.ErrorIs(t, err, ErrBadMagic)
	})

	t.Run("Truncated", func(t *testing.T) {
		raw := buf.Bytes()[:buf.Len()-3]

		_, err := ReadVectorStore(bytes.NewReader(raw))
		assert.Error(t, err)
	})
}
