package index

import (
	"sort"

	"github.com/quadra-commerce/hybridrec/core"
)

// IVFIndex 是倒排文件聚类索引：向量按最近聚类中心分桶，
// 查询只探测 nprobe 个最近的桶，换取大规模下的检索速度。
//
// 状态机约束：必须先 Train（学习聚类中心）再 Add/Search；
// 未训练即使用属于配置错误（INDEX_STATE），不重试。
type IVFIndex struct {
	dim    int
	nlist  int
	nprobe int
	metric Metric
	seed   int64

	trained   bool
	centroids [][]float64
	lists     [][]int // 每个聚类桶里保存全局行号

	ids     []string
	vectors [][]float64
}

const defaultNProbe = 8

func newIVFIndex(dim, nlist, nprobe int, metric Metric, seed int64) *IVFIndex {
	if nprobe <= 0 {
		nprobe = defaultNProbe
	}
	return &IVFIndex{dim: dim, nlist: nlist, nprobe: nprobe, metric: metric, seed: seed}
}

func (ix *IVFIndex) Name() string   { return "ivf_flat" }
func (ix *IVFIndex) Dimension() int { return ix.dim }
func (ix *IVFIndex) Len() int       { return len(ix.ids) }
func (ix *IVFIndex) Trained() bool  { return ix.trained }

// Train 在样本向量上学习聚类中心。样本为空时返回 EMPTY_INPUT。
func (ix *IVFIndex) Train(vectors [][]float64) error {
	if len(vectors) == 0 {
		return core.NewDomainError(core.ModuleIndex, core.ErrorCodeEmptyInput, "index: no training vectors")
	}
	for _, v := range vectors {
		if len(v) != ix.dim {
			return core.NewDomainError(core.ModuleIndex, core.ErrorCodeInvalidInput, "index: vector dimension mismatch")
		}
	}

	ix.centroids = kmeans(vectors, ix.nlist, ix.seed, 25)
	ix.lists = make([][]int, len(ix.centroids))
	ix.trained = true
	return nil
}

func (ix *IVFIndex) Add(ids []string, vectors [][]float64) error {
	if len(ids) != len(vectors) {
		return core.NewDomainError(core.ModuleIndex, core.ErrorCodeInvalidInput, "index: ids and vectors length mismatch")
	}
	for i := range ids {
		if err := ix.AddOne(ids[i], vectors[i]); err != nil {
			return err
		}
	}
	return nil
}

func (ix *IVFIndex) AddOne(id string, vector []float64) error {
	if !ix.trained {
		return core.NewDomainError(core.ModuleIndex, core.ErrorCodeIndexState, "index: ivf index must be trained before add")
	}
	if len(vector) != ix.dim {
		return core.NewDomainError(core.ModuleIndex, core.ErrorCodeInvalidInput, "index: vector dimension mismatch")
	}

	row := len(ix.ids)
	ix.ids = append(ix.ids, id)
	ix.vectors = append(ix.vectors, vector)

	c := nearestCentroid(ix.centroids, vector)
	ix.lists[c] = append(ix.lists[c], row)
	return nil
}

func (ix *IVFIndex) Search(query []float64, topK int) ([]SearchResult, error) {
	if !ix.trained {
		return nil, core.NewDomainError(core.ModuleIndex, core.ErrorCodeIndexState, "index: ivf index must be trained before search")
	}
	if len(query) != ix.dim {
		return nil, core.NewDomainError(core.ModuleIndex, core.ErrorCodeInvalidInput, "index: query dimension mismatch")
	}
	if topK <= 0 || len(ix.ids) == 0 {
		return nil, nil
	}

	// 选出 nprobe 个离查询最近的聚类桶
	type centDist struct {
		c    int
		dist float64
	}
	cds := make([]centDist, len(ix.centroids))
	for c, cent := range ix.centroids {
		cds[c] = centDist{c: c, dist: distance(MetricL2, query, cent)}
	}
	sort.Slice(cds, func(i, j int) bool { return cds[i].dist < cds[j].dist })

	nprobe := ix.nprobe
	if nprobe > len(cds) {
		nprobe = len(cds)
	}

	out := make([]SearchResult, 0, topK*2)
	for _, cd := range cds[:nprobe] {
		for _, row := range ix.lists[cd.c] {
			out = append(out, SearchResult{
				ID:       ix.ids[row],
				Distance: distance(ix.metric, query, ix.vectors[row]),
			})
		}
	}
	sortResults(out)
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (ix *IVFIndex) IDs() []string {
	out := make([]string, len(ix.ids))
	copy(out, ix.ids)
	return out
}

var _ Index = (*IVFIndex)(nil)
