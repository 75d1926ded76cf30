package recall

import (
	"context"
	"sort"
	"time"

	"github.com/quadra-commerce/hybridrec/core"
)

// CategoryBonus 是近期活动召回中偏好类目商品的加分值。
const CategoryBonus = 2.0

// RecentActivity 是动态召回源：给全量候选商品按用户时间窗口内
// （默认 24 小时）的行为打分。分数为窗口内该商品的事件权重之和
// （无交互为 0），商品类目命中用户偏好类目时额外加 CategoryBonus。
//
// 全量商品都参与打分：偏好类目里用户没碰过的商品也能凭类目加分进入候选。
type RecentActivity struct {
	Log      core.BehaviorLog
	Products []string // 全量候选商品 ID
	Window   time.Duration
	TopK     int

	// Now 窗口基准时刻，零值时取当前时间（测试用固定时刻）
	Now time.Time

	// Categories 商品类目表
	Categories map[string]string
}

func (s *RecentActivity) Name() string { return "recall.recent_activity" }

func (s *RecentActivity) Recall(_ context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if rctx == nil || rctx.UserID == "" {
		return nil, core.NewDomainError(core.ModuleJob, core.ErrorCodeInvalidInput, "recall: recent activity source requires a user id")
	}

	now := s.Now
	if now.IsZero() {
		now = time.Now()
	}
	window := s.Window
	if window <= 0 {
		window = 24 * time.Hour
	}

	preferred, _ := rctx.PreferredCategory()

	scores := make(map[string]float64)
	for _, ev := range s.Log.Since(now.Add(-window)).ForUser(rctx.UserID) {
		scores[ev.ProductID] += ev.Kind.Weight()
	}

	out := make([]*core.Item, 0, len(s.Products))
	for _, pid := range s.Products {
		it := core.NewItem(pid)
		it.Score = scores[pid]
		cat := s.Categories[pid]
		if cat != "" {
			it.Meta["category"] = cat
		}
		if preferred != "" && cat == preferred {
			it.Score += CategoryBonus
			it.Features["category_bonus"] = CategoryBonus
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

var _ Source = (*RecentActivity)(nil)
