package core

import "context"

// TextEncoder 是文本向量化的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（embedding）实现
//   - 相同模型标识 + 相同输入必须产生相同向量（缓存正确性依赖于此）
//   - 空串/纯空白文本同样稳定编码，不报错
//
// 实现：
//   - embedding.ServiceEncoder：远程推理服务（REST）
//   - embedding.WordVectorEncoder：本地词向量平均（开发/测试）
type TextEncoder interface {
	// Name 返回嵌入模型标识（缓存 key 的一部分）
	Name() string

	// Dimension 返回向量维度
	Dimension() int

	// EncodeTexts 批量编码文本为向量
	EncodeTexts(ctx context.Context, texts []string) ([][]float64, error)
}
