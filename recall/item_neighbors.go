package recall

import (
	"context"

	"github.com/quadra-commerce/hybridrec/core"
	"github.com/quadra-commerce/hybridrec/model"
)

// W2VNeighbors 是行为共现召回源：返回与当前商品共现向量最近的商品。
// 商品不在词表中（训练期间无任何行为）时返回空结果，由内容召回兜底。
type W2VNeighbors struct {
	Model *model.Word2Vec
	TopK  int

	// Categories 商品类目表，召回时写入 Meta 供下游多样性约束使用
	Categories map[string]string
}

func (s *W2VNeighbors) Name() string { return "recall.w2v_neighbors" }

func (s *W2VNeighbors) Recall(_ context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if rctx == nil || rctx.ProductID == "" {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput, "recall: w2v source requires a product id")
	}

	neighbors := s.Model.MostSimilar(rctx.ProductID, s.TopK)
	out := make([]*core.Item, 0, len(neighbors))
	for _, nb := range neighbors {
		it := core.NewItem(nb.ID)
		it.Score = nb.Score
		it.Features["w2v_similarity"] = nb.Score
		if cat, ok := s.Categories[nb.ID]; ok {
			it.Meta["category"] = cat
		}
		out = append(out, it)
	}
	return out, nil
}

var _ Source = (*W2VNeighbors)(nil)
