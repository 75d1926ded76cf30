package rank

import (
	"context"
	"sort"
	"strconv"

	"github.com/quadra-commerce/hybridrec/core"
	"github.com/quadra-commerce/hybridrec/pipeline"
	"github.com/quadra-commerce/hybridrec/pkg/utils"
)

// TrendBoost 是一个 Rank Node：按商品趋势分（全体用户平均评分）
// 调整候选分数：score *= trend / RatingMax。
//
// 没有趋势数据的商品按中性趋势 1.0 处理：冷门不等于零流量，
// 乘 0 会把无数据商品彻底打死。调整后按分数降序、ID 字典序重排。
type TrendBoost struct {
	// Trends 商品 ID 到趋势分（事件级平均评分）的映射
	Trends map[string]float64
}

// neutralTrend 无趋势数据商品的默认趋势分。
const neutralTrend = 1.0

func (n *TrendBoost) Name() string        { return "rank.trend_boost" }
func (n *TrendBoost) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *TrendBoost) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	for _, it := range items {
		if it == nil {
			continue
		}
		trend, ok := n.Trends[it.ID]
		if !ok {
			trend = neutralTrend
		}
		it.Score *= trend / core.RatingMax
		it.Features["trend"] = trend
		it.PutLabel("trend_boost", utils.Label{
			Value:  strconv.FormatFloat(trend, 'f', 3, 64),
			Source: n.Name(),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}
