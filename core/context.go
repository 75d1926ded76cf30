package core

import "github.com/quadra-commerce/hybridrec/pkg/utils"

// RecommendContext 承载一次推荐请求的主体信息，贯穿整个 Pipeline 透传。
//
// 两种主体：
//   - U2I（首页推荐）：UserID 非空
//   - I2I（相关商品）：ProductID 非空（当前浏览的商品）
type RecommendContext struct {
	UserID    string
	ProductID string
	Scene     string // home / related / ...

	// Labels 是请求级标签，可驱动整个 Pipeline 行为。
	Labels map[string]utils.Label

	// Params 请求级上下文参数，例如 preferred_category、recent_window 等。
	Params map[string]any
}

// PreferredCategory 返回用户偏好类目（由上游按历史评分均值计算后写入 Params）。
// 无偏好时返回 ("", false)。
func (rctx *RecommendContext) PreferredCategory() (string, bool) {
	if rctx == nil || rctx.Params == nil {
		return "", false
	}
	v, ok := rctx.Params["preferred_category"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
