package models

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClockModelMap(t *testing.T) {
	model := NewClockModel(2, 0.5, EdgeSequence{0.5, 2.5}, EdgeSequence{0, 1})

	out := model.Map([]float64{0, 1, math.NaN(), -2})
	assert.Equal(t, 0.5, out[0])
	assert.Equal(t, 2.5, out[1])
	assert.True(t, math.IsNaN(out[2]))
	assert.Equal(t, -3.5, out[3])

	assert.Nil(t, model.Map(nil))
	assert.Empty(t, model.Map([]float64{}))
}

func TestClockModelCopiesEdges(t *testing.T) {
	reference := EdgeSequence{1, 2}
	model := NewClockModel(1, 1, reference, EdgeSequence{0, 1})
	reference[0] = 99

	assert.Equal(t, EdgeSequence{1, 2}, model.ReferenceEdges())
	edges := model.TargetEdges()
	edges[0] = 99
	assert.Equal(t, EdgeSequence{0, 1}, model.TargetEdges())
}

func TestClockModelConcurrentMap(t *testing.T) {
	model := NewClockModel(0.99998, 12.75, EdgeSequence{12.75, 13.75}, EdgeSequence{0, 1})
	in := make([]float64, 1024)
	for i := range in {
		in[i] = float64(i) / 3
	}
	want := model.Map(in)

	const workers = 32
	got := make([][]float64, workers)
	points := make([]float64, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			got[w] = model.Map(in)
			points[w] = model.At(in[w])
			_ = model.ReferenceEdges()
		}(w)
	}
	wg.Wait()

	for w := 0; w < workers; w++ {
		assert.Equal(t, want, got[w], "worker %d", w)
		assert.Equal(t, want[w], points[w], "worker %d", w)
	}
}

func TestClockModelEqual(t *testing.T) {
	a := NewClockModel(1, 2, EdgeSequence{2, 3}, EdgeSequence{0, 1})
	b := NewClockModel(1, 2, EdgeSequence{2, 3}, EdgeSequence{0, 1})
	c := NewClockModel(1, 2, EdgeSequence{2, 3.5}, EdgeSequence{0, 1})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
	var nilModel *ClockModel
	assert.True(t, nilModel.Equal(nil))
}
