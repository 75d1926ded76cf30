package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quadra-commerce/hybridrec/core"
)

// Lookup 是服务侧的推荐读取助手，封装 key 回退链。
type Lookup struct {
	Store core.Store
}

// RelatedProducts 返回商品的相关商品列表；未发布时返回 NOT_FOUND。
func (l *Lookup) RelatedProducts(ctx context.Context, productID string) ([]string, error) {
	return l.readList(ctx, core.KeyRelatedProducts(productID))
}

// HomeRecommendations 返回用户的首页推荐。
// 回退链：动态（24h 内更新过）-> 静态（全量离线）-> 全站趋势榜。
// 三级都为空时返回 NOT_FOUND。
func (l *Lookup) HomeRecommendations(ctx context.Context, userID string) ([]string, error) {
	ids, err := l.readList(ctx, core.KeyUserDynamic(userID))
	if err == nil {
		return ids, nil
	}
	if !core.IsStoreNotFound(err) {
		return nil, err
	}

	ids, err = l.readList(ctx, core.KeyUserStatic(userID))
	if err == nil {
		return ids, nil
	}
	if !core.IsStoreNotFound(err) {
		return nil, err
	}

	if kv, ok := l.Store.(core.KeyValueStore); ok {
		trending, err := kv.ZRange(ctx, core.TrendingKey, 0, staticLimit-1)
		if err == nil && len(trending) > 0 {
			return trending, nil
		}
	}

	return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeNotFound,
		fmt.Sprintf("no recommendations for user %s", userID))
}

func (l *Lookup) readList(ctx context.Context, key string) ([]string, error) {
	data, err := l.Store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode recommendation list %s: %w", key, err)
	}
	return ids, nil
}
