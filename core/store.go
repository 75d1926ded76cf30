package core

import (
	"context"
	"fmt"
)

// Store 是存储的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 遵循依赖倒置原则：领域层定义接口，基础设施层实现接口
//
// 使用场景：
//   - 推荐结果发布：related_products:{pid} / rec_user:{uid} / rec_user_dynamic:{uid}
//   - 写语义为 put-by-key、last-write-wins，允许多个独立构建进程并发写
type Store interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// Get 读取单个 key 的值
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入单个 key-value，ttl 单位为秒（省略或 <=0 表示不过期）
	Set(ctx context.Context, key string, value []byte, ttl ...int) error

	// Delete 删除单个 key
	Delete(ctx context.Context, key string) error

	// BatchGet 批量读取（减少网络往返）
	BatchGet(ctx context.Context, keys []string) (map[string][]byte, error)

	// BatchSet 批量写入
	BatchSet(ctx context.Context, kvs map[string][]byte, ttl ...int) error

	// Close 关闭连接/释放资源
	Close() error
}

// KeyValueStore 是 Store 的扩展接口，额外支持有序集合。
// 有序集合用于全站趋势榜（按商品平均评分排序），作为无任何个性化信号用户的兜底召回。
// 如果后端不支持，可返回 ErrStoreNotSupported。
type KeyValueStore interface {
	Store

	// ZAdd 向有序集合添加成员
	ZAdd(ctx context.Context, key string, score float64, member string) error

	// ZRange 按分数降序获取有序集合成员
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// ZScore 获取成员的分数
	ZScore(ctx context.Context, key string, member string) (float64, error)
}

// Store 错误定义（使用统一的 DomainError）
var (
	// ErrStoreNotFound 表示 key 不存在
	ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")

	// ErrStoreNotSupported 表示操作不支持
	ErrStoreNotSupported = NewDomainError(ModuleStore, ErrorCodeInvalidInput, "store: operation not supported")
)

// IsStoreNotFound 检查错误是否为 key 不存在
func IsStoreNotFound(err error) bool {
	domainErr := GetDomainError(err)
	return domainErr != nil && domainErr.Module == ModuleStore && domainErr.Code == ErrorCodeNotFound
}

// 推荐结果的 key 布局。value 均为 JSON 字符串数组（有序商品 ID 列表）。
const (
	// TrendingKey 是全站趋势榜的有序集合 key
	TrendingKey = "rec:trending"

	// DynamicTTLSeconds 是动态推荐 key 的过期时间（24 小时）
	DynamicTTLSeconds = 86400
)

// KeyRelatedProducts 返回 I2I 相关商品列表的 key。
func KeyRelatedProducts(productID string) string {
	return fmt.Sprintf("related_products:%s", productID)
}

// KeyUserStatic 返回 U2I 静态（全量离线）推荐列表的 key。
func KeyUserStatic(userID string) string {
	return fmt.Sprintf("rec_user:%s", userID)
}

// KeyUserDynamic 返回 U2I 动态（24h 行为窗口）推荐列表的 key，带 TTL。
// 读取时动态优先，静态兜底。
func KeyUserDynamic(userID string) string {
	return fmt.Sprintf("rec_user_dynamic:%s", userID)
}
