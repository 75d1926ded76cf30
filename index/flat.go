package index

import (
	"sort"

	"github.com/quadra-commerce/hybridrec/core"
)

// FlatIndex 是精确暴力检索索引：不做任何近似，逐一计算距离。
// 适用于中小规模商品集或对召回精度有硬要求的场景。
type FlatIndex struct {
	dim     int
	metric  Metric
	ids     []string
	vectors [][]float64
}

func newFlatIndex(dim int, metric Metric) *FlatIndex {
	return &FlatIndex{dim: dim, metric: metric}
}

func (f *FlatIndex) Name() string   { return "flat" }
func (f *FlatIndex) Dimension() int { return f.dim }
func (f *FlatIndex) Len() int       { return len(f.ids) }
func (f *FlatIndex) Trained() bool  { return true }

// Train 对精确索引是 no-op。
func (f *FlatIndex) Train(_ [][]float64) error { return nil }

func (f *FlatIndex) Add(ids []string, vectors [][]float64) error {
	if len(ids) != len(vectors) {
		return core.NewDomainError(core.ModuleIndex, core.ErrorCodeInvalidInput, "index: ids and vectors length mismatch")
	}
	for i := range ids {
		if err := f.AddOne(ids[i], vectors[i]); err != nil {
			return err
		}
	}
	return nil
}

func (f *FlatIndex) AddOne(id string, vector []float64) error {
	if len(vector) != f.dim {
		return core.NewDomainError(core.ModuleIndex, core.ErrorCodeInvalidInput, "index: vector dimension mismatch")
	}
	f.ids = append(f.ids, id)
	f.vectors = append(f.vectors, vector)
	return nil
}

func (f *FlatIndex) Search(query []float64, topK int) ([]SearchResult, error) {
	if len(query) != f.dim {
		return nil, core.NewDomainError(core.ModuleIndex, core.ErrorCodeInvalidInput, "index: query dimension mismatch")
	}
	if topK <= 0 || len(f.ids) == 0 {
		return nil, nil
	}

	out := make([]SearchResult, 0, len(f.ids))
	for i, v := range f.vectors {
		out = append(out, SearchResult{ID: f.ids[i], Distance: distance(f.metric, query, v)})
	}
	sortResults(out)
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (f *FlatIndex) IDs() []string {
	out := make([]string, len(f.ids))
	copy(out, f.ids)
	return out
}

// sortResults 按距离升序排序，同距离按 ID 字典序，保证结果可复现。
func sortResults(rs []SearchResult) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Distance != rs[j].Distance {
			return rs[i].Distance < rs[j].Distance
		}
		return rs[i].ID < rs[j].ID
	})
}

var _ Index = (*FlatIndex)(nil)
