package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKmeans_SeparatesObviousGroups(t *testing.T) {
	// Two tight groups far apart in a 2-d space.
	vectors := [][]float32{
		{0, 0}, {0.1, 0}, {0, 0.1},
		{10, 10}, {10.1, 10}, {10, 10.1},
	}

	assignments := kmeans(vectors, 2)
	require.Len(t, assignments, 6)

	assert.Equal(t, assignments[0], assignments[1])
	assert.Equal(t, assignments[0], assignments[2])
	assert.Equal(t, assignments[3], assignments[4])
	assert.Equal(t, assignments[3], assignments[5])
	assert.NotEqual(t, assignments[0], assignments[3])
}

func TestKmeans_Deterministic(t *testing.T) {
	vectors := [][]float32{
		{1, 2}, {2, 1}, {8, 9}, {9, 8}, {5, 5}, {4, 6},
	}

	first := kmeans(vectors, 3)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, kmeans(vectors, 3))
	}
}

func TestKmeans_KAtLeastN(t *testing.T) {
	vectors := [][]float32{{1}, {2}, {3}}

	assignments := kmeans(vectors, 3)
	assert.Equal(t, []int{0, 1, 2}, assignments)

	assignments = kmeans(vectors, 5)
	assert.Equal(t, []int{0, 1, 2}, assignments)
}

func TestKmeans_EveryVectorAssigned(t *testing.T) {
	vectors := [][]float32{
		{0, 0}, {1, 1}, {2, 2}, {3, 3}, {4, 4}, {5, 5}, {6, 6},
	}

	assignments := kmeans(vectors, 3)
	require.Len(t, assignments, len(vectors))
	for _, c := range assignments {
		assert.GreaterOrEqual(t, c, 0)
		assert.Less(t, c, 3)
	}
}
