package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInnerProduct(t *testing.T) {
	assert.Equal(t, 11.0, InnerProduct([]float64{1, 2, 3}, []float64{3, 1, 2}))
	assert.Equal(t, 0.0, InnerProduct([]float64{1, 0}, []float64{0, 1}))
	assert.Equal(t, -2.0, InnerProduct([]float64{1, -1}, []float64{-1, 1}))
}

func TestInnerProductMismatchedLengths(t *testing.T) {
	assert.Equal(t, 0.0, InnerProduct([]float64{1, 2}, []float64{1}))
	assert.Equal(t, 0.0, InnerProduct(nil, nil))
}
