package recall

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quadra-commerce/hybridrec/core"
	"github.com/quadra-commerce/hybridrec/pipeline"
	"github.com/quadra-commerce/hybridrec/pkg/utils"
)

// Fanout 是一个 Recall Node：并发执行多个召回源，并合并结果。
// 支持超时、限流、多种合并策略。
type Fanout struct {
	Sources       []Source
	Dedup         bool
	Timeout       time.Duration // 每个召回源的超时时间
	MaxConcurrent int           // 最大并发数（0 表示无限制）
	MergeStrategy string        // 合并策略：first / union / priority / weighted

	// Weights 与 Sources 一一对应，仅 weighted 策略使用。
	// weighted 策略先对每路召回的分数做 min-max 归一化再加权；
	// 同一候选跨多路出现时取加权分的最大值。
	Weights []float64

	// FailFast 为 true 时任何召回源出错都会中断整个 Fanout。
	// 离线构建管线使用（部分结果不允许发布）；在线场景保持默认的降级行为。
	FailFast bool
}

func (n *Fanout) Name() string        { return "recall.fanout" }
func (n *Fanout) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Fanout) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if len(n.Sources) == 0 {
		return nil, nil
	}

	var (
		mu       sync.Mutex
		bySource = make([][]*core.Item, len(n.Sources))
		eg, _    = errgroup.WithContext(ctx)
	)

	var sem chan struct{}
	if n.MaxConcurrent > 0 {
		sem = make(chan struct{}, n.MaxConcurrent)
	}

	for i, src := range n.Sources {
		s := src
		priority := i // 索引越小优先级越高

		eg.Go(func() error {
			if n.MaxConcurrent > 0 {
				sem <- struct{}{}
				defer func() { <-sem }()
			}

			recallCtx := ctx
			if n.Timeout > 0 {
				var cancel context.CancelFunc
				recallCtx, cancel = context.WithTimeout(ctx, n.Timeout)
				defer cancel()
			}

			items, err := s.Recall(recallCtx, rctx)
			if err != nil {
				if n.FailFast {
					return err
				}
				// 降级：单路失败不中断其他召回源
				return nil
			}

			for _, it := range items {
				it.PutLabel("recall_source", utils.Label{Value: s.Name(), Source: "recall"})
				it.PutLabel("recall_priority", utils.Label{Value: strconv.Itoa(priority), Source: "recall"})
			}

			mu.Lock()
			bySource[priority] = items
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	all := make([]*core.Item, 0)
	for _, items := range bySource {
		all = append(all, items...)
	}

	switch n.MergeStrategy {
	case "priority":
		return n.mergeByPriority(all), nil
	case "union":
		return all, nil
	case "weighted":
		return n.mergeWeighted(bySource), nil
	default: // "first" 或默认
		return n.mergeFirst(all), nil
	}
}

// mergeFirst 按 ID 去重，保留第一个出现的（默认策略）。
func (n *Fanout) mergeFirst(all []*core.Item) []*core.Item {
	if !n.Dedup {
		return all
	}
	seen := make(map[string]*core.Item, len(all))
	out := make([]*core.Item, 0, len(all))
	for _, it := range all {
		if it == nil {
			continue
		}
		if old, ok := seen[it.ID]; ok {
			for k, v := range it.Labels {
				old.PutLabel(k, v)
			}
			continue
		}
		seen[it.ID] = it
		out = append(out, it)
	}
	return out
}

// mergeByPriority 按优先级合并：相同 ID 时保留优先级更高的（索引更小）。
func (n *Fanout) mergeByPriority(all []*core.Item) []*core.Item {
	if !n.Dedup {
		return all
	}
	seen := make(map[string]*core.Item, len(all))
	order := make([]string, 0, len(all))
	for _, it := range all {
		if it == nil {
			continue
		}
		old, exists := seen[it.ID]
		if !exists {
			seen[it.ID] = it
			order = append(order, it.ID)
			continue
		}
		if labelPriority(it) < labelPriority(old) {
			seen[it.ID] = it
		} else {
			for k, v := range it.Labels {
				old.PutLabel(k, v)
			}
		}
	}
	out := make([]*core.Item, 0, len(seen))
	for _, id := range order {
		out = append(out, seen[id])
	}
	return out
}

func labelPriority(it *core.Item) int {
	if lbl, ok := it.Labels["recall_priority"]; ok {
		if p, err := strconv.Atoi(lbl.Value); err == nil {
			return p
		}
	}
	return 999
}

// mergeWeighted 按权重融合多路召回。
// 每路先做 min-max 归一化（该路所有分数相同则全部记 1），
// 再按该路权重加权；同一候选跨多路出现时取加权分的最大值。
// 融合结果按分数降序、ID 字典序稳定排列。
func (n *Fanout) mergeWeighted(bySource [][]*core.Item) []*core.Item {
	merged := make(map[string]*core.Item)
	order := make([]string, 0)

	for si, items := range bySource {
		if len(items) == 0 {
			continue
		}
		w := 1.0
		if si < len(n.Weights) {
			w = n.Weights[si]
		}

		lo, hi := items[0].Score, items[0].Score
		for _, it := range items[1:] {
			if it.Score < lo {
				lo = it.Score
			}
			if it.Score > hi {
				hi = it.Score
			}
		}

		for _, it := range items {
			norm := 1.0
			if hi > lo {
				norm = (it.Score - lo) / (hi - lo)
			}
			contrib := w * norm

			if old, ok := merged[it.ID]; ok {
				if contrib > old.Score {
					old.Score = contrib
				}
				for k, v := range it.Labels {
					old.PutLabel(k, v)
				}
				continue
			}
			it.Score = contrib
			merged[it.ID] = it
			order = append(order, it.ID)
		}
	}

	out := make([]*core.Item, 0, len(order))
	for _, id := range order {
		out = append(out, merged[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}
