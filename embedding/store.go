package embedding

import (
	"context"

	"github.com/quadra-commerce/hybridrec/core"
)

// Store 负责商品内容向量的获取：优先走缓存，未命中时调用编码器
// 批量编码并回填缓存。
type Store struct {
	Encoder core.TextEncoder
	Cache   *VectorCache
}

// ProductVectors 返回每个商品的内容向量，顺序与输入一致。
// 缓存命中的条件：模型标识一致，且缓存覆盖了全部商品 ID。
// 部分命中按未命中处理，整批重新编码，避免新旧向量混用。
func (s *Store) ProductVectors(ctx context.Context, products []core.ProductRecord) ([]string, [][]float64, error) {
	if len(products) == 0 {
		return nil, nil, core.NewDomainError(core.ModuleEmbedding, core.ErrorCodeEmptyInput, "embedding: no products to encode")
	}

	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}

	if cachedIDs, cachedVecs, ok := s.Cache.Load(s.Encoder.Name()); ok {
		byID := make(map[string][]float64, len(cachedIDs))
		for i, id := range cachedIDs {
			byID[id] = cachedVecs[i]
		}
		vectors := make([][]float64, len(ids))
		hit := true
		for i, id := range ids {
			v, found := byID[id]
			if !found {
				hit = false
				break
			}
			vectors[i] = v
		}
		if hit {
			return ids, vectors, nil
		}
	}

	texts := make([]string, len(products))
	for i, p := range products {
		texts[i] = p.Text()
	}
	vectors, err := s.Encoder.EncodeTexts(ctx, texts)
	if err != nil {
		return nil, nil, err
	}

	// 回填失败只影响下次运行的速度，不影响本次结果
	_ = s.Cache.Save(s.Encoder.Name(), s.Encoder.Dimension(), ids, vectors)
	return ids, vectors, nil
}
