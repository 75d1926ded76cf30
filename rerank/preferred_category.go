package rerank

import (
	"context"
	"sort"

	"github.com/quadra-commerce/hybridrec/core"
	"github.com/quadra-commerce/hybridrec/pipeline"
	"github.com/quadra-commerce/hybridrec/pkg/utils"
)

// PreferredCategory 是类目偏好 ReRank 节点：把命中用户偏好类目的候选
// 稳定地排到前面。组内保持原有相对顺序（稳定排序），因此分数高的
// 偏好类目商品仍然领先分数低的。
//
// 偏好类目从 rctx.Params["preferred_category"] 读取；无偏好时原样返回。
type PreferredCategory struct{}

func (n *PreferredCategory) Name() string        { return "rerank.preferred_category" }
func (n *PreferredCategory) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *PreferredCategory) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	preferred, ok := rctx.PreferredCategory()
	if !ok || len(items) == 0 {
		return items, nil
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Category() == preferred && items[j].Category() != preferred
	})

	for _, it := range items {
		if it != nil && it.Category() == preferred {
			it.PutLabel("preferred_category", utils.Label{Value: preferred, Source: n.Name()})
		}
	}
	return items, nil
}
