package recall

import (
	"context"
	"sort"

	"github.com/quadra-commerce/hybridrec/core"
	"github.com/quadra-commerce/hybridrec/model"
)

// SVDCandidates 是协同过滤召回源：用 SVD 模型给全量商品打预测评分，
// 取 TopK 个作为用户候选。预测分即 Item.Score。
//
// 冷启动用户不报错：模型退化为偏置/全局均值预测，候选仍然产出，
// 由趋势加权和类目偏好在后续阶段修正。
type SVDCandidates struct {
	Model    *model.SVD
	Products []string // 全量候选商品 ID
	TopK     int

	// Categories 商品类目表
	Categories map[string]string
}

func (s *SVDCandidates) Name() string { return "recall.svd_candidates" }

func (s *SVDCandidates) Recall(_ context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if rctx == nil || rctx.UserID == "" {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput, "recall: svd source requires a user id")
	}
	if len(s.Products) == 0 {
		return nil, nil
	}

	out := make([]*core.Item, 0, len(s.Products))
	for _, pid := range s.Products {
		it := core.NewItem(pid)
		it.Score = s.Model.Predict(rctx.UserID, pid)
		it.Features["svd_rating"] = it.Score
		if cat, ok := s.Categories[pid]; ok {
			it.Meta["category"] = cat
		}
		out = append(out, it)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if s.TopK > 0 && len(out) > s.TopK {
		out = out[:s.TopK]
	}
	return out, nil
}

var _ Source = (*SVDCandidates)(nil)
