package job

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/quadra-commerce/hybridrec/core"
	"github.com/quadra-commerce/hybridrec/pipeline"
	"github.com/quadra-commerce/hybridrec/recall"
	"github.com/quadra-commerce/hybridrec/rerank"
)

// DynamicUpdater 是 U2I 动态更新任务：基于用户最近 24 小时的行为
// 重算推荐，与已发布的静态列表合并后写入带 TTL 的动态 key。
//
// 语义约定：
//   - 窗口内无任何行为时不更新（旧的动态 key 自然过期，静态兜底）
//   - 偏好类目按窗口内行为计算，不看全量历史
//   - 合并顺序：动态在前、静态补位，去重后截断到 10 条
type DynamicUpdater struct {
	// Behavior 全量行为日志（窗口过滤在内部完成）
	Behavior core.BehaviorLog

	// Products 全量候选商品 ID
	Products []string

	// Categories 商品类目表
	Categories map[string]string

	// Window 行为窗口（<=0 时为 24 小时）
	Window time.Duration

	// Now 窗口基准时刻，零值时取当前时间
	Now time.Time

	Store core.Store
	Log   *zap.Logger
}

func (u *DynamicUpdater) logger() *zap.Logger {
	if u.Log == nil {
		return zap.NewNop()
	}
	return u.Log
}

// UpdateUser 重算并发布单个用户的动态推荐。
// 窗口内无行为时返回 (nil, nil)，不触碰存储。
func (u *DynamicUpdater) UpdateUser(ctx context.Context, userID string) ([]string, error) {
	log := u.logger()

	now := u.Now
	if now.IsZero() {
		now = time.Now()
	}
	window := u.Window
	if window <= 0 {
		window = 24 * time.Hour
	}

	recent := u.Behavior.Since(now.Add(-window)).ForUser(userID)
	if len(recent) == 0 {
		log.Info("no recent behaviors, skipping dynamic update", zap.String("user", userID))
		return nil, nil
	}

	rctx := &core.RecommendContext{UserID: userID, Scene: "home_dynamic", Params: map[string]any{}}
	if preferred, ok := recent.PreferredCategory(userID); ok {
		rctx.Params["preferred_category"] = preferred
	}

	pl := &pipeline.Pipeline{Nodes: []pipeline.Node{
		&recall.Fanout{
			Sources: []recall.Source{&recall.RecentActivity{
				Log:        u.Behavior,
				Products:   u.Products,
				Window:     window,
				Now:        now,
				Categories: u.Categories,
			}},
			MergeStrategy: "first",
			Dedup:         true,
			FailFast:      true,
		},
		&rerank.Diversity{MaxPerCategory: staticPerCategory, Limit: staticLimit},
	}}

	items, err := pl.Run(ctx, rctx, nil)
	if err != nil {
		return nil, err
	}
	dynamic := make([]string, 0, len(items))
	for _, it := range items {
		dynamic = append(dynamic, it.ID)
	}

	// 与静态列表合并：动态在前，静态补位，去重截断
	static, err := u.staticList(ctx, userID)
	if err != nil {
		return nil, err
	}
	final := unionCapped(dynamic, static, staticLimit)

	pub := &Publisher{Store: u.Store, Log: log}
	if err := pub.PublishUserDynamic(ctx, userID, final); err != nil {
		return nil, err
	}
	return final, nil
}

// staticList 读取用户已发布的静态推荐，不存在时返回空列表。
func (u *DynamicUpdater) staticList(ctx context.Context, userID string) ([]string, error) {
	data, err := u.Store.Get(ctx, core.KeyUserStatic(userID))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		// 旧 key 内容损坏按不存在处理，不阻塞动态更新
		return nil, nil
	}
	return ids, nil
}

// unionCapped 按顺序合并两个列表：first 的顺序优先，去重，截断到 cap。
func unionCapped(first, second []string, max int) []string {
	seen := make(map[string]bool, max)
	out := make([]string, 0, max)
	for _, list := range [][]string{first, second} {
		for _, id := range list {
			if len(out) >= max {
				return out
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
