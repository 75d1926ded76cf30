package embedding

import (
	"context"
	"strings"

	"github.com/quadra-commerce/hybridrec/core"
)

// VectorSource 提供词级向量查询。*model.Word2Vec 天然满足该接口。
type VectorSource interface {
	Vector(word string) ([]float64, bool)
}

// WordVectorEncoder 是本地的平均词向量编码器：分词后对命中词表的
// 词向量取均值。没有任何词命中时返回零向量，保证输出维度恒定。
//
// 作为远程编码服务的无依赖替代，适合离线调试和远程服务不可用的场景。
type WordVectorEncoder struct {
	// Source 词向量来源
	Source VectorSource

	// Dim 向量维度，必须与 Source 的向量维度一致
	Dim int

	// Model 编码器标识，写入缓存元数据用于失效判断
	Model string
}

func (e *WordVectorEncoder) Name() string   { return e.Model }
func (e *WordVectorEncoder) Dimension() int { return e.Dim }

// EncodeTexts 逐条编码文本。纯本地计算，不会失败。
func (e *WordVectorEncoder) EncodeTexts(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = e.encodeOne(text)
	}
	return out, nil
}

func (e *WordVectorEncoder) encodeOne(text string) []float64 {
	vec := make([]float64, e.Dim)
	var hits float64
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		wv, ok := e.Source.Vector(tok)
		if !ok {
			continue
		}
		hits++
		for d := range vec {
			vec[d] += wv[d]
		}
	}
	if hits > 0 {
		for d := range vec {
			vec[d] /= hits
		}
	}
	return vec
}

var _ core.TextEncoder = (*WordVectorEncoder)(nil)
