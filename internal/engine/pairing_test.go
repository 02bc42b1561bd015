package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/models"
)

func seq(n int, offset float64) models.EdgeSequence {
	out := make(models.EdgeSequence, n)
	for i := range out {
		out[i] = float64(i) + offset
	}
	return out
}

func TestValidate(t *testing.T) {
	ok := Validate(seq(5, 0), seq(5, 1))
	assert.True(t, ok.OK)
	assert.Equal(t, 5, ok.ReferenceCount)
	assert.Equal(t, 5, ok.TargetCount)

	bad := Validate(seq(10, 0), seq(8, 0))
	assert.False(t, bad.OK)
	assert.Equal(t, 10, bad.ReferenceCount)
	assert.Equal(t, 8, bad.TargetCount)
	assert.Contains(t, bad.Message, "10")
	assert.Contains(t, bad.Message, "8")

	empty := Validate(nil, nil)
	assert.True(t, empty.OK)
	assert.Zero(t, empty.ReferenceCount)
}

func TestIndexPairerTruncatesToShorter(t *testing.T) {
	reference := seq(10, 100)
	target := seq(8, 0)

	pair, result, err := NewIndexPairer(models.MismatchTruncate).Pair(reference, target)
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, 8, pair.Len())
	assert.Len(t, pair.Reference, 8)
	assert.Len(t, pair.Target, 8)
	assert.Equal(t, reference[:8], pair.Reference)
}

func TestIndexPairerAbort(t *testing.T) {
	_, result, err := NewIndexPairer(models.MismatchAbort).Pair(seq(10, 0), seq(8, 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEdgeCountMismatch))
	assert.False(t, result.OK)
}

func TestIndexPairerBalancedPassesThrough(t *testing.T) {
	pair, result, err := NewIndexPairer(models.MismatchAbort).Pair(seq(4, 1), seq(4, 0))
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, len(pair.Reference), len(pair.Target))
	assert.Equal(t, 4, pair.Len())
}

func TestIndexPairerDefaultsToTruncate(t *testing.T) {
	pairer := NewIndexPairer("")
	assert.Equal(t, models.MismatchTruncate, pairer.Policy)
}

func TestIndexPairerUnknownPolicy(t *testing.T) {
	pairer := &IndexPairer{Policy: "resync"}
	_, _, err := pairer.Pair(seq(3, 0), seq(2, 0))
	require.Error(t, err)
}
