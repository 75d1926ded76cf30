package job

import (
	"math/rand"

	"github.com/quadra-commerce/hybridrec/core"
)

// 评估用的固定切分参数：种子固定保证离线评估可复现。
const (
	evalSeed         = 42
	evalTestFraction = 0.2
)

// Evaluate 在事件级留出集上评估相关商品表。
//
// 切分：对原始事件行（不聚合、不去重）做固定种子洗牌，取末尾
// testFraction 作为留出集。逐留出行判定：
//   - 预测正例 = 该行商品出现在它自己的相关商品列表中
//   - 真实标签 = 该行商品出现在留出商品集合中（恒为真）
//
// Precision = TP/(TP+FP)，Recall = TP/(TP+FN)，除零时记 0。
func Evaluate(behavior core.BehaviorLog, related map[string][]string, seed int64, testFraction float64) (precision, recall float64) {
	rows := behavior.RawRatings()
	if len(rows) == 0 {
		return 0, 0
	}
	if testFraction <= 0 || testFraction > 1 {
		testFraction = evalTestFraction
	}

	rng := rand.New(rand.NewSource(seed))
	shuffled := make([]core.RatingTriple, len(rows))
	copy(shuffled, rows)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	testSize := int(float64(len(shuffled)) * testFraction)
	if testSize == 0 {
		testSize = 1
	}
	test := shuffled[len(shuffled)-testSize:]

	testProducts := make(map[string]bool, len(test))
	for _, t := range test {
		testProducts[t.ProductID] = true
	}

	var tp, fp, fn float64
	for _, t := range test {
		truth := testProducts[t.ProductID]

		predicted := false
		for _, rec := range related[t.ProductID] {
			if rec == t.ProductID {
				predicted = true
				break
			}
		}

		switch {
		case truth && predicted:
			tp++
		case !truth && predicted:
			fp++
		case truth && !predicted:
			fn++
		}
	}

	if tp+fp > 0 {
		precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		recall = tp / (tp + fn)
	}
	return precision, recall
}

// splitTriples 固定种子洗牌后按比例切分评分三元组（训练集在前）。
func splitTriples(triples []core.RatingTriple, seed int64, testFraction float64) (train, test []core.RatingTriple) {
	if len(triples) == 0 {
		return nil, nil
	}
	if testFraction <= 0 || testFraction >= 1 {
		testFraction = evalTestFraction
	}

	rng := rand.New(rand.NewSource(seed))
	shuffled := make([]core.RatingTriple, len(triples))
	copy(shuffled, triples)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	testSize := int(float64(len(shuffled)) * testFraction)
	if testSize == 0 && len(shuffled) > 1 {
		testSize = 1
	}
	cut := len(shuffled) - testSize
	return shuffled[:cut], shuffled[cut:]
}
