package job

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/quadra-commerce/hybridrec/core"
	"github.com/quadra-commerce/hybridrec/embedding"
	"github.com/quadra-commerce/hybridrec/filter"
	"github.com/quadra-commerce/hybridrec/index"
	"github.com/quadra-commerce/hybridrec/model"
	"github.com/quadra-commerce/hybridrec/pipeline"
	"github.com/quadra-commerce/hybridrec/recall"
	"github.com/quadra-commerce/hybridrec/rerank"
)

// TrainingWindow 是离线训练的行为窗口（最近 3 个月）。
const TrainingWindow = 90 * 24 * time.Hour

// HybridBuilder 是 I2I 混合构建任务：行为共现（word2vec）与内容相似
// （向量索引）两路召回，按权重融合为每个商品的相关商品列表。
//
// 构建步骤：训练序列模型 -> 内容向量（带缓存）-> 建向量索引 ->
// 逐商品跑召回/过滤/截断管线 -> 全部成功后发布。
// 任何一步失败整个构建中止，已发布的旧结果保持不变。
type HybridBuilder struct {
	// MinCount / Epochs 序列模型超参
	MinCount int
	Epochs   int

	// TopNW2V / TopNContent 两路召回各自的候选数
	TopNW2V     int
	TopNContent int

	// HybridWeightW2V 行为路权重（内容路权重为 1 减去该值）
	HybridWeightW2V float64

	// ContentOnlyForNew 为 true 时，有行为数据的商品只用行为路召回，
	// 内容路仅服务冷启动商品
	ContentOnlyForNew bool

	// Clusters 向量索引聚类数（<=1 为精确检索）
	Clusters int

	// Seed 随机种子（索引聚类与模型训练共用）
	Seed int64

	// Window 训练行为窗口（<=0 时取 TrainingWindow）。
	// 窗口内没有任何事件时退回全量日志训练：停更的导出数据
	// 不应让构建产出空模型。
	Window time.Duration

	// Now 窗口基准时刻，零值时取当前时间
	Now time.Time

	// 产物路径（为空则跳过对应落盘）
	W2VModelPath  string
	IndexPath     string
	IndexMetaPath string
	OutJSONPath   string

	Encoder core.TextEncoder
	Cache   *embedding.VectorCache
	Store   core.Store
	Log     *zap.Logger

	// Evaluate 为 true 时构建后在 20% 留出事件上评估
	Evaluate bool
}

// HybridResult 是一次混合构建的产物摘要。
type HybridResult struct {
	Related   map[string][]string
	Products  int
	Sequences int
	Precision float64
	Recall    float64
	Evaluated bool
}

func (b *HybridBuilder) logger() *zap.Logger {
	if b.Log == nil {
		return zap.NewNop()
	}
	return b.Log
}

// Run 执行一次完整的混合构建。
func (b *HybridBuilder) Run(ctx context.Context, behavior core.BehaviorLog, products []core.ProductRecord) (*HybridResult, error) {
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

	if len(products) == 0 {
		return nil, core.NewDomainError(core.ModuleJob, core.ErrorCodeEmptyInput, "hybrid build: no products")
	}

	// 1. 序列模型
	sequences := behavior.UserSequences()
	log.Info("training sequence model",
		zap.Int("sequences", len(sequences)),
		zap.Int("epochs", b.Epochs))

	w2v := model.NewWord2Vec()
	w2v.MinCount = b.MinCount
	if b.Epochs > 0 {
		w2v.Epochs = b.Epochs
	}
	if b.Seed != 0 {
		w2v.Seed = b.Seed
	}
	if err := w2v.Train(sequences); err != nil {
		return nil, err
	}
	if b.W2VModelPath != "" {
		if err := w2v.Save(b.W2VModelPath); err != nil {
			return nil, err
		}
	}

	// 2. 内容向量
	log.Info("encoding product content", zap.Int("products", len(products)))
	embStore := &embedding.Store{Encoder: b.Encoder, Cache: b.Cache}
	ids, vectors, err := embStore.ProductVectors(ctx, products)
	if err != nil {
		return nil, err
	}

	// 3. 向量索引
	log.Info("building vector index",
		zap.Int("vectors", len(vectors)),
		zap.Int("clusters", b.Clusters))
	ix, err := index.Build(index.Spec{
		Dimension: b.Encoder.Dimension(),
		Clusters:  b.Clusters,
		Metric:    index.MetricL2,
		Seed:      b.Seed,
	}, ids, vectors)
	if err != nil {
		return nil, err
	}
	if b.IndexPath != "" && b.IndexMetaPath != "" {
		if err := index.Save(ix, b.IndexPath, b.IndexMetaPath); err != nil {
			return nil, err
		}
	}

	vecByID := make(map[string][]float64, len(ids))
	for i, id := range ids {
		vecByID[id] = vectors[i]
	}
	categories := make(map[string]string, len(products))
	for _, p := range products {
		categories[p.ID] = p.Category
	}
	behaviorProducts := behavior.ProductSet()

	// 4. 逐商品生成相关列表
	limit := b.TopNW2V
	if b.TopNContent > limit {
		limit = b.TopNContent
	}

	w2vSource := &recall.W2VNeighbors{Model: w2v, TopK: b.TopNW2V, Categories: categories}
	contentSource := &recall.ContentANN{
		Index: ix, TopK: b.TopNContent + 1, // 自身会被召回，多取一个再过滤
		Vectors: vecByID, Categories: categories,
	}

	blendPipeline := &pipeline.Pipeline{Nodes: []pipeline.Node{
		&recall.Fanout{
			Sources:       []recall.Source{w2vSource, contentSource},
			MergeStrategy: "weighted",
			Weights:       []float64{b.HybridWeightW2V, 1 - b.HybridWeightW2V},
			FailFast:      true,
		},
		&filter.FilterNode{Filters: []filter.Filter{&filter.SelfFilter{}}},
		&rerank.TopNNode{N: limit},
	}}
	w2vOnlyPipeline := &pipeline.Pipeline{Nodes: []pipeline.Node{
		&recall.Fanout{
			Sources:       []recall.Source{w2vSource},
			MergeStrategy: "first",
			Dedup:         true,
			FailFast:      true,
		},
		&filter.FilterNode{Filters: []filter.Filter{&filter.SelfFilter{}}},
		&rerank.TopNNode{N: b.TopNW2V},
	}}

	related := make(map[string][]string, len(products))
	for _, p := range products {
		rctx := &core.RecommendContext{ProductID: p.ID, Scene: "related"}

		pl := blendPipeline
		if b.ContentOnlyForNew && behaviorProducts[p.ID] {
			pl = w2vOnlyPipeline
		}
		items, err := pl.Run(ctx, rctx, nil)
		if err != nil {
			return nil, err
		}

		recs := make([]string, 0, len(items))
		for _, it := range items {
			recs = append(recs, it.ID)
		}
		related[p.ID] = recs
	}

	result := &HybridResult{
		Related:   related,
		Products:  len(products),
		Sequences: len(sequences),
	}

	// 5. 评估（留出集在发布前计算，但不阻塞发布）
	if b.Evaluate {
		precision, recl := Evaluate(behavior, related, evalSeed, evalTestFraction)
		result.Precision, result.Recall, result.Evaluated = precision, recl, true
		log.Info("evaluated related products",
			zap.Float64("precision", precision),
			zap.Float64("recall", recl))
	}

	// 6. 全部成功后发布
	if b.Store != nil {
		pub := &Publisher{Store: b.Store, Log: log}
		if err := pub.PublishRelated(ctx, related); err != nil {
			return nil, err
		}
	}
	if b.OutJSONPath != "" {
		if err := WriteJSON(b.OutJSONPath, related); err != nil {
			return nil, err
		}
	}

	log.Info("hybrid build finished",
		zap.Int("products", len(products)),
		zap.Int("sequences", len(sequences)))
	return result, nil
}
