// Package builders 在 init 中注册可由配置构建的内置 Node。
// 需要模型/索引实例的召回源（w2v、内容、SVD）不走配置构建，
// 由构建任务在代码中装配。
package builders

import (
	"fmt"

	"github.com/quadra-commerce/hybridrec/config"
	"github.com/quadra-commerce/hybridrec/filter"
	"github.com/quadra-commerce/hybridrec/pipeline"
	"github.com/quadra-commerce/hybridrec/pkg/conv"
	"github.com/quadra-commerce/hybridrec/rank"
	"github.com/quadra-commerce/hybridrec/rerank"
)

func init() {
	config.Register("rank.trend_boost", BuildTrendBoostNode)
	config.Register("rerank.diversity", BuildDiversityNode)
	config.Register("rerank.preferred_category", BuildPreferredCategoryNode)
	config.Register("rerank.topn", BuildTopNNode)
	config.Register("filter", BuildFilterNode)
}

func BuildTrendBoostNode(cfg map[string]any) (pipeline.Node, error) {
	trends := conv.MapToFloat64(conv.ConfigGet[map[string]any](cfg, "trends", nil))
	return &rank.TrendBoost{Trends: trends}, nil
}

func BuildDiversityNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.Diversity{
		MaxPerCategory: int(conv.ConfigGetInt64(cfg, "max_per_category", 5)),
		Limit:          int(conv.ConfigGetInt64(cfg, "limit", 10)),
	}, nil
}

func BuildPreferredCategoryNode(_ map[string]any) (pipeline.Node, error) {
	return &rerank.PreferredCategory{}, nil
}

func BuildTopNNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.TopNNode{N: int(conv.ConfigGetInt64(cfg, "n", 0))}, nil
}

func BuildFilterNode(cfg map[string]any) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]any)
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}

	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		fm, ok := fc.(map[string]any)
		if !ok {
			continue
		}
		switch conv.ConfigGet(fm, "type", "") {
		case "self":
			filters = append(filters, &filter.SelfFilter{})
		case "blacklist":
			filters = append(filters, filter.NewBlacklistFilter(conv.SliceAnyToString(fm["ids"])))
		case "rule":
			f, err := filter.NewRuleFilter(conv.ConfigGet(fm, "expr", ""))
			if err != nil {
				return nil, fmt.Errorf("compile rule filter: %w", err)
			}
			filters = append(filters, f)
		default:
			return nil, fmt.Errorf("unknown filter type: %v", fm["type"])
		}
	}

	return &filter.FilterNode{Filters: filters}, nil
}
