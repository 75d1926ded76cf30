package filter

import (
	"context"

	"github.com/quadra-commerce/hybridrec/core"
	"github.com/quadra-commerce/hybridrec/pkg/dsl"
)

// RuleFilter 是基于 CEL 表达式的规则过滤器：表达式求值为 true 的候选
// 被过滤掉。表达式编译一次，逐候选求值。
//
// 示例：过滤低分内容召回
//
//	f, _ := filter.NewRuleFilter(`label.recall_source == "recall.content_ann" && item.score < 0.1`)
type RuleFilter struct {
	rule *dsl.Rule
}

// NewRuleFilter 编译表达式并创建过滤器。表达式非法时返回错误。
func NewRuleFilter(expr string) (*RuleFilter, error) {
	rule, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &RuleFilter{rule: rule}, nil
}

func (f *RuleFilter) Name() string { return "filter.rule" }

func (f *RuleFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if f.rule == nil || f.rule.Expr() == "" {
		return false, nil
	}
	return f.rule.Eval(item, rctx)
}

var _ Filter = (*RuleFilter)(nil)
