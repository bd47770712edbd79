package store

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerSetAllAndGet(t *testing.T) {
	l := NewLedger()
	l.SetAll(map[uint32]string{
		0: "/photos/a.jpg",
		1: "/photos/b.png",
	})

	path, ok := l.Get(0)
	require.True(t, ok)
	assert.Equal(t, "/photos/a.jpg", path)

	_, ok = l.Get(7)
	assert.False(t, ok)

	assert.Equal(t, 2, l.Len())
}

func TestLedgerKeysAscending(t *testing.T) {
	l := NewLedger()
	l.SetAll(map[uint32]string{
		2: "/c.jpg",
		0: "/a.jpg",
		1: "/b.jpg",
	})

	assert.Equal(t, []uint32{0, 1, 2}, l.Keys())
}

func TestLedgerVerify(t *testing.T) {
	t.Run("DenseRangePasses", func(t *testing.T) {
		l := NewLedger()
		l.SetAll(map[uint32]string{0: "/a.jpg", 1: "/b.jpg"})
		assert.NoError(t, l.Verify(2))
	})

	t.Run("EmptyPasses", func(t *testing.T) {
		assert.NoError(t, NewLedger().Verify(0))
	})

	t.Run("CountMismatchFails", func(t *testing.T) {
		l := NewLedger()
		l.SetAll(map[uint32]string{0: "/a.jpg"})
		assert.Error(t, l.Verify(2))
	})

	t.Run("GapFails", func(t *testing.T) {
		l := NewLedger()
		l.SetAll(map[uint32]string{0: "/a.jpg", 2: "/c.jpg"})
		assert.Error(t, l.Verify(2))
	})
}

func TestLedgerRoundTrip(t *testing.T) {
	l := NewLedger()
	l.SetAll(map[uint32]string{
		0: "/photos/holiday/beach.jpg",
		1: "/photos/cats/tabby.png",
		2: "/photos/città/ünïcode.jpeg",
	})

	var buf bytes.Buffer
	_, err := l.WriteTo(&buf)
	require.NoError(t, err)

	loaded, err := ReadLedger(&buf)
	require.NoError(t, err)

	require.Equal(t, l.Len(), loaded.Len())
	for _, id := range l.Keys() {
		want, _ := l.Get(id)
		got, ok := loaded.Get(id)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestLedgerWireLayout(t *testing.T) {
	l := NewLedger()
	l.SetAll(map[uint32]string{0: "/a.jpg"})

	var buf bytes.Buffer
	_, err := l.WriteTo(&buf)
	require.NoError(t, err)

	// Identifiers are serialized as decimal string keys so the file stays a
	// plain JSON object readable by any tooling.
	assert.Contains(t, buf.String(), `"0": "/a.jpg"`)
}

func TestReadLedgerRejectsBadKeys(t *testing.T) {
	for name, payload := range map[string]string{
		"NonNumeric": `{"zero": "/a.jpg"}`,
		"Negative":   `{"-1": "/a.jpg"}`,
		"Float":      `{"1.5": "/a.jpg"}`,
		"NotJSON":    `[[`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadLedger(strings.NewReader(payload))
			assert.Error(t, err)
		})
	}
}
