package recall

import (
	"context"

	"github.com/quadra-commerce/hybridrec/core"
)

// Source 是单路召回源的抽象：给定请求上下文，产出一批带分候选。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}
