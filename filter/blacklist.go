package filter

import (
	"context"

	"github.com/quadra-commerce/hybridrec/core"
)

// BlacklistFilter 是黑名单过滤器：下架、售罄或人工屏蔽的商品
// 不允许进入任何推荐结果。
type BlacklistFilter struct {
	ids map[string]bool
}

// NewBlacklistFilter 创建一个黑名单过滤器。
func NewBlacklistFilter(productIDs []string) *BlacklistFilter {
	ids := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		ids[id] = true
	}
	return &BlacklistFilter{ids: ids}
}

func (f *BlacklistFilter) Name() string { return "filter.blacklist" }

func (f *BlacklistFilter) ShouldFilter(
	_ context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	return f.ids[item.ID], nil
}

var _ Filter = (*BlacklistFilter)(nil)
