package cluster

import (
	"math"
	"math/rand"
)

// kmeansSeed fixes the centroid initialization so clustering is reproducible
// across runs on identical input.
const kmeansSeed = 42

const maxKMeansIterations = 300

type point struct {
	lat float64
	lng float64
}

// kMeans runs Lloyd's algorithm over the points and returns a cluster label
// per point. Initial centroids are distinct points chosen with a fixed seed.
func kMeans(points []point, k int) []int {
	n := len(points)
	labels := make([]int, n)
	if k <= 1 || n == 0 {
		return labels
	}
	if k > n {
		k = n
	}

	rng := rand.New(rand.NewSource(kmeansSeed))
	centroids := make([]point, 0, k)
	for _, idx := range rng.Perm(n)[:k] {
		centroids = append(centroids, points[idx])
	}

	for iter := 0; iter < maxKMeansIterations; iter++ {
		changed := false
		for i, p := range points {
			best := 0
			bestDist := math.Inf(1)
			for c, centroid := range centroids {
				d := squaredDistance(p, centroid)
				if d < bestDist {
					bestDist = d
					best = c
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}

		sums := make([]point, k)
		counts := make([]int, k)
		for i, p := range points {
			sums[labels[i]].lat += p.lat
			sums[labels[i]].lng += p.lng
			counts[labels[i]]++
		}
		for c := range centroids {
			if counts[c] == 0 {
				// Re-seed an empty cluster deterministically
				centroids[c] = points[rng.Intn(n)]
				continue
			}
			centroids[c] = point{
				lat: sums[c].lat / float64(counts[c]),
				lng: sums[c].lng / float64(counts[c]),
			}
		}

		if !changed && iter > 0 {
			break
		}
	}

	return labels
}

func squaredDistance(a, b point) float64 {
	dlat := a.lat - b.lat
	dlng := a.lng - b.lng
	return dlat*dlat + dlng*dlng
}
