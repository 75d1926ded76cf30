package index

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"

	"github.com/quadra-commerce/hybridrec/core"
)

// 持久化布局：二进制 blob（向量与聚类结构）+ 伴随 JSON 元数据（ID 顺序与索引参数）。
// 两个文件必须成对保存/加载：blob 里只有行号，行序与元数据 ID 列表的对应
// 是商品 ID 的唯一关联，单独加载任何一个都无法还原索引。

// Meta 是伴随元数据文件的结构。
type Meta struct {
	Kind      string   `json:"kind"` // flat / ivf_flat
	Dimension int      `json:"dimension"`
	Metric    Metric   `json:"metric"`
	Count     int      `json:"count"`
	Clusters  int      `json:"clusters,omitempty"`
	NProbe    int      `json:"nprobe,omitempty"`
	Seed      int64    `json:"seed,omitempty"`
	IDs       []string `json:"ids"`
}

// blob 是二进制文件的 gob 结构。ID 刻意不在其中。
type blob struct {
	Vectors   [][]float64
	Centroids [][]float64
	Lists     [][]int
}

// Save 把索引写为 blob + 元数据文件对。
func Save(ix Index, blobPath, metaPath string) error {
	meta := Meta{
		Kind:      ix.Name(),
		Dimension: ix.Dimension(),
		Count:     ix.Len(),
		IDs:       ix.IDs(),
	}
	var b blob

	switch v := ix.(type) {
	case *FlatIndex:
		meta.Metric = v.metric
		b.Vectors = v.vectors
	case *IVFIndex:
		if !v.trained {
			return core.NewDomainError(core.ModuleIndex, core.ErrorCodeIndexState, "index: cannot persist untrained ivf index")
		}
		meta.Metric = v.metric
		meta.Clusters = v.nlist
		meta.NProbe = v.nprobe
		meta.Seed = v.seed
		b.Vectors = v.vectors
		b.Centroids = v.centroids
		b.Lists = v.lists
	default:
		return core.NewDomainError(core.ModuleIndex, core.ErrorCodeInvalidInput, fmt.Sprintf("index: unsupported index type %T", ix))
	}

	f, err := os.Create(blobPath)
	if err != nil {
		return fmt.Errorf("write index blob: %w", err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(&b); err != nil {
		return fmt.Errorf("encode index blob: %w", err)
	}

	mf, err := os.Create(metaPath)
	if err != nil {
		return fmt.Errorf("write index metadata: %w", err)
	}
	defer mf.Close()
	enc := json.NewEncoder(mf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&meta); err != nil {
		return fmt.Errorf("encode index metadata: %w", err)
	}
	return nil
}

// Load 从 blob + 元数据文件对恢复索引。
// 任何一个文件缺失都是 INDEX_STATE 错误：行序与 ID 的关联不可单边恢复。
func Load(blobPath, metaPath string) (Index, error) {
	if _, err := os.Stat(blobPath); err != nil {
		return nil, core.NewDomainError(core.ModuleIndex, core.ErrorCodeIndexState, "index: blob file missing: "+blobPath)
	}
	if _, err := os.Stat(metaPath); err != nil {
		return nil, core.NewDomainError(core.ModuleIndex, core.ErrorCodeIndexState, "index: metadata file missing: "+metaPath)
	}

	mf, err := os.Open(metaPath)
	if err != nil {
		return nil, fmt.Errorf("open index metadata: %w", err)
	}
	defer mf.Close()
	var meta Meta
	if err := json.NewDecoder(mf).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode index metadata: %w", err)
	}

	f, err := os.Open(blobPath)
	if err != nil {
		return nil, fmt.Errorf("open index blob: %w", err)
	}
	defer f.Close()
	var b blob
	if err := gob.NewDecoder(f).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode index blob: %w", err)
	}

	if len(meta.IDs) != len(b.Vectors) {
		return nil, core.NewDomainError(core.ModuleIndex, core.ErrorCodeIndexState,
			fmt.Sprintf("index: metadata/blob mismatch: %d ids vs %d vectors", len(meta.IDs), len(b.Vectors)))
	}

	switch meta.Kind {
	case "flat":
		ix := newFlatIndex(meta.Dimension, meta.Metric)
		ix.ids = meta.IDs
		ix.vectors = b.Vectors
		return ix, nil
	case "ivf_flat":
		ix := newIVFIndex(meta.Dimension, meta.Clusters, meta.NProbe, meta.Metric, meta.Seed)
		ix.centroids = b.Centroids
		ix.lists = b.Lists
		ix.trained = true
		ix.ids = meta.IDs
		ix.vectors = b.Vectors
		return ix, nil
	default:
		return nil, core.NewDomainError(core.ModuleIndex, core.ErrorCodeIndexState, "index: unknown index kind: "+meta.Kind)
	}
}
