package cluster

import "math/rand"

// clusterSeed fixes the centroid initialization so a given embedding batch
// always partitions the same way. Reproducibility matters here, numerical
// optimality does not.
const clusterSeed = 42

const maxIterations = 50

// kmeans partitions vectors into k groups with Lloyd's algorithm and returns
// the cluster index per vector. Callers pass vectors in item-id order, which
// together with the fixed seed makes the assignment deterministic.
func kmeans(vectors [][]float32, k int) []int {
	n := len(vectors)
	if k >= n {
		assignments := make([]int, n)
		for i := range assignments {
			assignments[i] = i
		}
		return assignments
	}

	dims := len(vectors[0])

	// Seeded initial centroids: k distinct input vectors.
	rng := rand.New(rand.NewSource(clusterSeed))
	centroids := make([][]float64, k)
	for i, idx := range rng.Perm(n)[:k] {
		centroids[i] = toFloat64(vectors[idx])
	}

	assignments := make([]int, n)
	for i := range assignments {
		assignments[i] = -1
	}

	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, vec := range vectors {
			best := nearestCentroid(vec, centroids)
			if best != assignments[i] {
				assignments[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		// Recompute centroids as member means. A centroid that lost all
		// members keeps its position; its empty group is rejected later.
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dims)
		}
		for i, vec := range vectors {
			c := assignments[i]
			counts[c]++
			for d, v := range vec {
				sums[c][d] += float64(v)
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			for d := range centroids[c] {
				centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}
	}

	return assignments
}

// nearestCentroid returns the index of the closest centroid by squared
// euclidean distance. Exact ties go to the lowest centroid index.
func nearestCentroid(vec []float32, centroids [][]float64) int {
	best := 0
	bestDist := sqDist(vec, centroids[0])
	for c := 1; c < len(centroids); c++ {
		if d := sqDist(vec, centroids[c]); d < bestDist {
			best = c
			bestDist = d
		}
	}
	return best
}

func sqDist(vec []float32, centroid []float64) float64 {
	var sum float64
	for d, v := range vec {
		diff := float64(v) - centroid[d]
		sum += diff * diff
	}
	return sum
}

func toFloat64(vec []float32) []float64 {
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out
}
