package index

import "math/rand"

// kmeans 是确定性的 Lloyd 聚类：固定种子随机初始化 + 固定轮数迭代。
// k 大于样本数时收缩到样本数。返回聚类中心。
func kmeans(vectors [][]float64, k int, seed int64, maxIter int) [][]float64 {
	if k > len(vectors) {
		k = len(vectors)
	}
	dim := len(vectors[0])
	rng := rand.New(rand.NewSource(seed))

	// 随机选 k 个不重复样本作为初始中心
	perm := rng.Perm(len(vectors))
	centroids := make([][]float64, k)
	for i := 0; i < k; i++ {
		c := make([]float64, dim)
		copy(c, vectors[perm[i]])
		centroids[i] = c
	}

	assign := make([]int, len(vectors))
	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, v := range vectors {
			best := nearestCentroid(centroids, v)
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, v := range vectors {
			c := assign[i]
			counts[c]++
			for d := range v {
				sums[c][d] += v[d]
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				// 空簇：重新随机挑一个样本顶上
				copy(centroids[c], vectors[rng.Intn(len(vectors))])
				continue
			}
			for d := range centroids[c] {
				centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}
	}
	return centroids
}

func nearestCentroid(centroids [][]float64, v []float64) int {
	best, bestDist := 0, -1.0
	for c, cent := range centroids {
		var sum float64
		for d := range v {
			diff := v[d] - cent[d]
			sum += diff * diff
		}
		if bestDist < 0 || sum < bestDist {
			best, bestDist = c, sum
		}
	}
	return best
}
