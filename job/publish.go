package job

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/quadra-commerce/hybridrec/core"
)

// Publisher 把构建好的推荐结果写入 KV 存储。
//
// 写入纪律：只有整个构建成功后才调用；任何 key 写入失败都返回错误，
// 由调用方决定重试，绝不静默丢弃。value 统一为 JSON 字符串数组。
type Publisher struct {
	Store core.Store
	Log   *zap.Logger
}

func (p *Publisher) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}

// PublishRelated 发布 I2I 相关商品表：related_products:{pid} -> JSON 数组。
func (p *Publisher) PublishRelated(ctx context.Context, related map[string][]string) error {
	kvs := make(map[string][]byte, len(related))
	for pid, recs := range related {
		data, err := json.Marshal(recs)
		if err != nil {
			return fmt.Errorf("marshal related list for %s: %w", pid, err)
		}
		kvs[core.KeyRelatedProducts(pid)] = data
	}
	if err := p.Store.BatchSet(ctx, kvs); err != nil {
		return fmt.Errorf("publish related products: %w", err)
	}
	p.logger().Info("published related products",
		zap.Int("products", len(related)),
		zap.String("store", p.Store.Name()))
	return nil
}

// PublishUserStatic 发布 U2I 静态推荐表：rec_user:{uid} -> JSON 数组。
func (p *Publisher) PublishUserStatic(ctx context.Context, recs map[string][]string) error {
	kvs := make(map[string][]byte, len(recs))
	for uid, ids := range recs {
		data, err := json.Marshal(ids)
		if err != nil {
			return fmt.Errorf("marshal static list for %s: %w", uid, err)
		}
		kvs[core.KeyUserStatic(uid)] = data
	}
	if err := p.Store.BatchSet(ctx, kvs); err != nil {
		return fmt.Errorf("publish static recommendations: %w", err)
	}
	p.logger().Info("published static recommendations",
		zap.Int("users", len(recs)),
		zap.String("store", p.Store.Name()))
	return nil
}

// PublishUserDynamic 发布单个用户的动态推荐，带 24h TTL。
func (p *Publisher) PublishUserDynamic(ctx context.Context, userID string, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshal dynamic list for %s: %w", userID, err)
	}
	if err := p.Store.Set(ctx, core.KeyUserDynamic(userID), data, core.DynamicTTLSeconds); err != nil {
		return fmt.Errorf("publish dynamic recommendations for %s: %w", userID, err)
	}
	p.logger().Info("published dynamic recommendations",
		zap.String("user", userID),
		zap.Int("count", len(ids)))
	return nil
}

// PublishTrending 发布全站趋势榜有序集合。后端不支持有序集合时跳过。
func (p *Publisher) PublishTrending(ctx context.Context, trends map[string]float64) error {
	kv, ok := p.Store.(core.KeyValueStore)
	if !ok {
		return nil
	}

	pids := make([]string, 0, len(trends))
	for pid := range trends {
		pids = append(pids, pid)
	}
	sort.Strings(pids)

	for _, pid := range pids {
		if err := kv.ZAdd(ctx, core.TrendingKey, trends[pid], pid); err != nil {
			if core.GetDomainError(err) == core.ErrStoreNotSupported {
				return nil
			}
			return fmt.Errorf("publish trending score for %s: %w", pid, err)
		}
	}
	p.logger().Info("published trending scores", zap.Int("products", len(trends)))
	return nil
}

// WriteJSON 把构建产物落盘为缩进 JSON（与 KV 发布并行的离线产物）。
func WriteJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write json artifact: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json artifact: %w", err)
	}
	return nil
}
