package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/quadra-commerce/hybridrec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
	celEnvErr  error
)

// getCELEnv 获取或创建 CEL 环境，定义变量
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Rule 是一条已编译的候选过滤规则，使用 CEL (Common Expression Language) 表达。
// 编译一次，可对任意数量的候选求值，线程安全。
//
// 表达式语法（CEL 标准语法）：
//   - 基础：label.category == "3" / label.recall_source != "w2v"
//   - 数值：item.score > 0.7
//   - 逻辑：label.category == "3" && item.score > 0.8
//   - 包含：label.recall_source.contains("content")
//
// 注意：CEL 访问不存在的 key 会报错，用 label.key != null 检查存在性。
type Rule struct {
	expr string
	prg  cel.Program
}

// Compile 编译 DSL 表达式。空表达式合法，恒为 true。
func Compile(expr string) (*Rule, error) {
	r := &Rule{expr: expr}
	if expr == "" {
		return r, nil
	}

	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %v", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %v", err)
	}
	r.prg = prg
	return r, nil
}

// Expr 返回原始表达式文本。
func (r *Rule) Expr() string { return r.expr }

// Eval 对单个候选求值，返回布尔结果。
func (r *Rule) Eval(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	if r.prg == nil {
		return true, nil
	}

	out, _, err := r.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, fmt.Errorf("eval error: %v", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(item *core.Item, rctx *core.RecommendContext) map[string]any {
	labels := make(map[string]any)
	labelAccessor := make(map[string]any)
	if item != nil {
		for k, v := range item.Labels {
			labels[k] = map[string]any{"value": v.Value, "source": v.Source}
			// label.category 直接取 value，兼容简写
			labelAccessor[k] = v.Value
		}
	}

	itemMap := map[string]any{}
	if item != nil {
		itemMap = map[string]any{
			"id":       item.ID,
			"score":    item.Score,
			"features": item.Features,
			"meta":     item.Meta,
			"labels":   labels,
		}
	}

	rctxMap := map[string]any{}
	if rctx != nil {
		rctxMap = map[string]any{
			"user_id":    rctx.UserID,
			"product_id": rctx.ProductID,
			"scene":      rctx.Scene,
			"params":     rctx.Params,
		}
	}

	return map[string]any{
		"item":  itemMap,
		"label": labelAccessor,
		"rctx":  rctxMap,
	}
}
