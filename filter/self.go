package filter

import (
	"context"

	"github.com/quadra-commerce/hybridrec/core"
)

// SelfFilter 过滤掉与请求主体商品相同的候选。
// I2I 召回（尤其内容向量检索）会把查询商品自身召回（距离 0），
// 相关推荐里出现自己是语义错误，必须在此剔除。
type SelfFilter struct{}

func (f *SelfFilter) Name() string { return "filter.self" }

func (f *SelfFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	return rctx != nil && rctx.ProductID != "" && item.ID == rctx.ProductID, nil
}

var _ Filter = (*SelfFilter)(nil)
