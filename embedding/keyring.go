package embedding

import "sync"

// CredentialSource 是 API 凭证的来源抽象。
// 以显式注入的对象取代进程级可变计数器：每个使用方持有自己的实例，
// 轮换状态互不干扰，也便于测试。
type CredentialSource interface {
	// Next 返回下一个可用凭证；没有配置凭证时返回空串
	Next() string
}

// RoundRobin 按序轮换一组凭证。线程安全。
type RoundRobin struct {
	mu   sync.Mutex
	keys []string
	next int
}

// NewRoundRobin 创建一个轮换器。keys 可以为空（Next 返回空串）。
func NewRoundRobin(keys []string) *RoundRobin {
	return &RoundRobin{keys: keys}
}

func (r *RoundRobin) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.keys) == 0 {
		return ""
	}
	k := r.keys[r.next%len(r.keys)]
	r.next++
	return k
}

// Static 返回固定单一凭证的来源。
type Static string

func (s Static) Next() string { return string(s) }
