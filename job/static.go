package job

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quadra-commerce/hybridrec/core"
	"github.com/quadra-commerce/hybridrec/model"
	"github.com/quadra-commerce/hybridrec/pipeline"
	"github.com/quadra-commerce/hybridrec/rank"
	"github.com/quadra-commerce/hybridrec/recall"
	"github.com/quadra-commerce/hybridrec/rerank"
)

// 静态构建的候选与结果规模。
const (
	staticCandidates    = 15 // SVD 打分后的初选数
	staticLimit         = 10 // 每用户最终结果上限
	staticPerCategory   = 5  // 每类目上限
	staticUserParallels = 8  // 并发生成的用户数
)

// StaticBuilder 是 U2I 静态构建任务：SVD 协同过滤给全量商品打分，
// 趋势加权、类目偏好重排、多样性约束后得到每用户 10 条推荐。
//
// 模型在 80% 训练集上拟合，留出 20% 报告 RMSE。
// 用户之间相互独立，生成阶段并发执行；发布仍然是全量成功后一次写入。
type StaticBuilder struct {
	// Factors / Epochs SVD 超参（<=0 时用默认）
	Factors int
	Epochs  int

	// Seed 随机种子
	Seed int64

	// Window 训练行为窗口（<=0 时取 TrainingWindow）。
	// 窗口内没有任何事件时退回全量日志训练：停更的导出数据
	// 不应让构建产出空模型。
	Window time.Duration

	// Now 窗口基准时刻，零值时取当前时间
	Now time.Time

	// ModelPath / OutJSONPath 产物路径（为空则跳过落盘）
	ModelPath   string
	OutJSONPath string

	Store core.Store
	Log   *zap.Logger
}

// StaticResult 是一次静态构建的产物摘要。
type StaticResult struct {
	Recommendations map[string][]string
	Users           int
	RMSE            float64
}

func (b *StaticBuilder) logger() *zap.Logger {
	if b.Log == nil {
		return zap.NewNop()
	}
	return b.Log
}

// Run 执行一次完整的静态构建。
func (b *StaticBuilder) Run(ctx context.Context, behavior core.BehaviorLog) (*StaticResult, error) {
	log := b.logger()

	now := b.Now
	if now.IsZero() {
		now = time.Now()
	}
	window := b.Window
	if window <= 0 {
		window = TrainingWindow
	}
	if windowed := behavior.Since(now.Add(-window)); len(windowed) > 0 {
		behavior = windowed
	}

	triples := behavior.Ratings()
	if len(triples) == 0 {
		return nil, core.NewDomainError(core.ModuleJob, core.ErrorCodeEmptyInput, "static build: no rating triples")
	}

	// 1. 切分、训练、评估
	seed := b.Seed
	if seed == 0 {
		seed = evalSeed
	}
	train, holdout := splitTriples(triples, seed, evalTestFraction)

	svd := model.NewSVD()
	if b.Factors > 0 {
		svd.Factors = b.Factors
	}
	if b.Epochs > 0 {
		svd.Epochs = b.Epochs
	}
	svd.Seed = seed

	log.Info("training svd model",
		zap.Int("train_triples", len(train)),
		zap.Int("holdout_triples", len(holdout)),
		zap.Int("factors", svd.Factors))
	if err := svd.Fit(train); err != nil {
		return nil, err
	}

	rmse := svd.RMSE(holdout)
	log.Info("svd holdout rmse", zap.Float64("rmse", rmse))

	if b.ModelPath != "" {
		if err := svd.Save(b.ModelPath); err != nil {
			return nil, err
		}
	}

	// 2. 每用户生成
	productSet := behavior.ProductSet()
	allProducts := make([]string, 0, len(productSet))
	for _, ev := range behavior {
		if productSet[ev.ProductID] {
			allProducts = append(allProducts, ev.ProductID)
			productSet[ev.ProductID] = false // 保持首次出现顺序去重
		}
	}

	categories := make(map[string]string, len(allProducts))
	for _, ev := range behavior {
		if ev.Category != "" {
			categories[ev.ProductID] = ev.Category
		}
	}
	trends := behavior.TrendScores()
	users := behavior.Users()

	userPipeline := func() *pipeline.Pipeline {
		return &pipeline.Pipeline{Nodes: []pipeline.Node{
			&recall.Fanout{
				Sources: []recall.Source{&recall.SVDCandidates{
					Model: svd, Products: allProducts, TopK: staticCandidates, Categories: categories,
				}},
				MergeStrategy: "first",
				Dedup:         true,
				FailFast:      true,
			},
			&rank.TrendBoost{Trends: trends},
			&rerank.PreferredCategory{},
			&rerank.Diversity{MaxPerCategory: staticPerCategory, Limit: staticLimit},
		}}
	}

	var (
		mu   sync.Mutex
		recs = make(map[string][]string, len(users))
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(staticUserParallels)

	for _, uid := range users {
		uid := uid
		eg.Go(func() error {
			rctx := &core.RecommendContext{UserID: uid, Scene: "home", Params: map[string]any{}}
			if preferred, ok := behavior.PreferredCategory(uid); ok {
				rctx.Params["preferred_category"] = preferred
			}

			items, err := userPipeline().Run(egCtx, rctx, nil)
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(items))
			for _, it := range items {
				ids = append(ids, it.ID)
			}

			mu.Lock()
			recs[uid] = ids
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// 3. 全部成功后发布
	if b.Store != nil {
		pub := &Publisher{Store: b.Store, Log: log}
		if err := pub.PublishUserStatic(ctx, recs); err != nil {
			return nil, err
		}
		if err := pub.PublishTrending(ctx, trends); err != nil {
			return nil, err
		}
	}
	if b.OutJSONPath != "" {
		if err := WriteJSON(b.OutJSONPath, recs); err != nil {
			return nil, err
		}
	}

	log.Info("static build finished", zap.Int("users", len(users)))
	return &StaticResult{Recommendations: recs, Users: len(users), RMSE: rmse}, nil
}
