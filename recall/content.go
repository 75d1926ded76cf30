package recall

import (
	"context"

	"github.com/quadra-commerce/hybridrec/core"
	"github.com/quadra-commerce/hybridrec/index"
)

// ContentANN 是内容相似召回源：以当前商品的内容向量查询向量索引。
// 距离换算为相似度 1/(1+d)，保证与其他召回路的"越大越好"语义一致。
//
// 查询结果可能包含商品自身（距离 0），由下游的自排除过滤处理。
type ContentANN struct {
	Index index.Index
	TopK  int

	// Vectors 商品 ID 到内容向量的映射（查询向量来源）
	Vectors map[string][]float64

	// Categories 商品类目表
	Categories map[string]string
}

func (s *ContentANN) Name() string { return "recall.content_ann" }

func (s *ContentANN) Recall(_ context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if rctx == nil || rctx.ProductID == "" {
		return nil, core.NewDomainError(core.ModuleIndex, core.ErrorCodeInvalidInput, "recall: content source requires a product id")
	}

	query, ok := s.Vectors[rctx.ProductID]
	if !ok {
		// 商品没有内容向量（不在本次构建的商品表中），无候选可给
		return nil, nil
	}

	results, err := s.Index.Search(query, s.TopK)
	if err != nil {
		return nil, err
	}

	out := make([]*core.Item, 0, len(results))
	for _, r := range results {
		it := core.NewItem(r.ID)
		it.Score = 1 / (1 + r.Distance)
		it.Features["content_distance"] = r.Distance
		if cat, ok := s.Categories[r.ID]; ok {
			it.Meta["category"] = cat
		}
		out = append(out, it)
	}
	return out, nil
}

var _ Source = (*ContentANN)(nil)
