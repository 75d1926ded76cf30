// Package hybridrec 是电商场景的混合推荐流水线（Hybrid Recommender）。
//
// 设计要点：
// - Pipeline-first: 推荐逻辑通过 Node 串联（Recall → Filter → Rank → ReRank）
// - 三路信号：行为序列（word2vec）、内容向量（ANN 索引）、协同过滤（SVD）
// - 批量构建：训练/建索引为离线批任务，结果整体发布到 KV 存储，失败不覆盖已发布结果
package hybridrec

import "github.com/quadra-commerce/hybridrec/pipeline"

// 轻量 facade：便于直接 import 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
