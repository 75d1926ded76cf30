// Package index 提供商品内容向量的近邻检索索引。
//
// 两种实现由配置选择（Spec.Clusters），共用同一抽象：
//   - FlatIndex：精确暴力检索（Clusters <= 1）
//   - IVFIndex：倒排文件聚类索引（Clusters > 1），插入前必须先 Train
//
// 结构性限制：索引不支持删除单条向量——删除需要用保留的元数据全量重建。
// 这是该数据结构的设计取舍，不是缺陷；单条新增用 Add 增量插入。
package index

import (
	"github.com/quadra-commerce/hybridrec/core"
)

// Metric 是距离度量方式。
type Metric string

const (
	// MetricL2 欧氏距离平方，Search 结果按距离升序
	MetricL2 Metric = "l2"

	// MetricInnerProduct 内积相似度；为保持"距离升序"的统一契约，
	// 返回的 Distance = -内积（内积越大距离越小）
	MetricInnerProduct Metric = "inner_product"
)

// SearchResult 是一条检索结果，Distance 统一为升序越小越近。
type SearchResult struct {
	ID       string
	Distance float64
}

// Index 是向量索引的统一抽象。
type Index interface {
	// Name 返回索引类型名（用于日志/元数据）
	Name() string

	// Dimension 返回向量维度
	Dimension() int

	// Len 返回已插入的向量数
	Len() int

	// Trained 报告索引是否已完成训练（Flat 恒为 true）
	Trained() bool

	// Train 在样本向量上训练索引结构（聚类中心等）。
	// FlatIndex 的 Train 是 no-op；IVFIndex 必须先 Train 再 Add/Search。
	Train(vectors [][]float64) error

	// Add 批量插入向量，ids 与 vectors 一一对应
	Add(ids []string, vectors [][]float64) error

	// AddOne 增量插入单条向量，不触发重建
	AddOne(id string, vector []float64) error

	// Search 返回与查询向量最近的 topK 个结果，按 Distance 升序
	Search(query []float64, topK int) ([]SearchResult, error)

	// IDs 返回插入顺序的 ID 列表（持久化元数据；行序是 ID 的唯一关联）
	IDs() []string
}

// Spec 是索引构建配置。
type Spec struct {
	// Dimension 向量维度
	Dimension int

	// Clusters 聚类数；<=1 时使用精确暴力检索，>1 时使用倒排文件索引
	Clusters int

	// NProbe 查询时探测的聚类数（仅 IVF；<=0 时取默认值）
	NProbe int

	// Metric 距离度量（为空时默认 L2）
	Metric Metric

	// Seed 聚类随机种子，保证构建可复现
	Seed int64
}

// New 按配置创建索引实例。
func New(spec Spec) (Index, error) {
	if spec.Dimension <= 0 {
		return nil, core.NewDomainError(core.ModuleIndex, core.ErrorCodeInvalidInput, "index: dimension must be positive")
	}
	metric := spec.Metric
	if metric == "" {
		metric = MetricL2
	}
	if spec.Clusters > 1 {
		return newIVFIndex(spec.Dimension, spec.Clusters, spec.NProbe, metric, spec.Seed), nil
	}
	return newFlatIndex(spec.Dimension, metric), nil
}

// Build 训练（如需要）并插入全部向量，是批量建索引的便捷入口。
func Build(spec Spec, ids []string, vectors [][]float64) (Index, error) {
	if len(ids) != len(vectors) {
		return nil, core.NewDomainError(core.ModuleIndex, core.ErrorCodeInvalidInput, "index: ids and vectors length mismatch")
	}
	if len(vectors) == 0 {
		return nil, core.NewDomainError(core.ModuleIndex, core.ErrorCodeEmptyInput, "index: no vectors to build")
	}

	idx, err := New(spec)
	if err != nil {
		return nil, err
	}
	if !idx.Trained() {
		if err := idx.Train(vectors); err != nil {
			return nil, err
		}
	}
	if err := idx.Add(ids, vectors); err != nil {
		return nil, err
	}
	return idx, nil
}

func distance(metric Metric, a, b []float64) float64 {
	switch metric {
	case MetricInnerProduct:
		var dot float64
		for i := range a {
			dot += a[i] * b[i]
		}
		return -dot
	default:
		var sum float64
		for i := range a {
			d := a[i] - b[i]
			sum += d * d
		}
		return sum
	}
}
