package core

import "github.com/quadra-commerce/hybridrec/pkg/utils"

// Item 是推荐链路中的统一承载结构：分数、特征、元信息、标签。
// ID 即商品 ID（字符串，不做数值化，保证与上游导出精确往返）。
// Labels 用于解释与策略驱动；Score 用于排序决策。
type Item struct {
	ID       string
	Score    float64
	Features map[string]float64
	Meta     map[string]any
	Labels   map[string]utils.Label
}

func NewItem(id string) *Item {
	return &Item{
		ID:       id,
		Score:    0,
		Features: make(map[string]float64),
		Meta:     make(map[string]any),
		Labels:   make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// Category 返回物品类目（优先 label["category"]，其次 meta["category"]）。
func (it *Item) Category() string {
	if it.Labels != nil {
		if lbl, ok := it.Labels["category"]; ok && lbl.Value != "" {
			return lbl.Value
		}
	}
	if it.Meta != nil {
		if v, ok := it.Meta["category"]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}
