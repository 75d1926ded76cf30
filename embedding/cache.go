package embedding

import (
	"encoding/gob"
	"os"
)

// 向量缓存：整体写入、整体读取的 gob 快照。
// 缓存键是 (模型标识, 商品 ID 集合)：模型换了或商品集变了都算未命中，
// 绝不把旧模型的向量喂给新索引。

type cacheSnapshot struct {
	Model   string
	Dim     int
	IDs     []string
	Vectors [][]float64
}

// VectorCache 管理单个缓存文件。
type VectorCache struct {
	Path string
}

// Load 尝试读取缓存。模型标识不匹配、文件缺失或损坏都按未命中处理。
func (c *VectorCache) Load(model string) (ids []string, vectors [][]float64, ok bool) {
	if c == nil || c.Path == "" {
		return nil, nil, false
	}
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, nil, false
	}
	defer f.Close()

	var snap cacheSnapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, nil, false
	}
	if snap.Model != model || len(snap.IDs) != len(snap.Vectors) {
		return nil, nil, false
	}
	return snap.IDs, snap.Vectors, true
}

// Save 写入缓存文件。缓存失败不致命，调用方可以忽略错误继续。
func (c *VectorCache) Save(model string, dim int, ids []string, vectors [][]float64) error {
	if c == nil || c.Path == "" {
		return nil
	}
	f, err := os.Create(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(&cacheSnapshot{Model: model, Dim: dim, IDs: ids, Vectors: vectors})
}
