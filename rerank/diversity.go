package rerank

import (
	"context"

	"github.com/quadra-commerce/hybridrec/core"
	"github.com/quadra-commerce/hybridrec/pipeline"
)

// Diversity 是多样性 ReRank 节点：贪心扫描已排序的候选，
// 每个类目最多保留 MaxPerCategory 个，总数满 Limit 即停。
//
// 类目来源：label["category"].Value 优先，其次 meta["category"]。
// 无类目的候选不受类目上限约束，只受总数约束。
type Diversity struct {
	// MaxPerCategory 每个类目的最大数量（<=0 表示不限）
	MaxPerCategory int

	// Limit 结果总数上限（<=0 表示不限）
	Limit int
}

func (n *Diversity) Name() string        { return "rerank.diversity" }
func (n *Diversity) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	perCat := make(map[string]int, 16)
	out := make([]*core.Item, 0, len(items))

	for _, it := range items {
		if it == nil {
			continue
		}
		if n.Limit > 0 && len(out) >= n.Limit {
			break
		}

		cate := it.Category()
		if cate != "" && n.MaxPerCategory > 0 && perCat[cate] >= n.MaxPerCategory {
			continue
		}
		if cate != "" {
			perCat[cate]++
		}
		out = append(out, it)
	}

	return out, nil
}
