package core

import (
	"sort"
	"time"
)

// EventKind 是行为事件类型，按交互强度映射为序数评分。
type EventKind int

const (
	EventView EventKind = iota + 1
	EventLike
	EventAddToCart
	EventPurchase
)

// RatingMin / RatingMax 是评分域的固定边界。
// 评分域由事件序数权重决定（VIEW=1 ... PURCHASE=4），与数据本身无关：
// SVD 的 rating scale 必须使用这个固定域，而不是从聚合计数推导。
const (
	RatingMin = 1.0
	RatingMax = 4.0
)

// Weight 返回事件的序数评分权重：VIEW=1, LIKE=2, ADD_TO_CART=3, PURCHASE=4。
func (k EventKind) Weight() float64 {
	return float64(k)
}

func (k EventKind) String() string {
	switch k {
	case EventView:
		return "VIEW"
	case EventLike:
		return "LIKE"
	case EventAddToCart:
		return "ADD_TO_CART"
	case EventPurchase:
		return "PURCHASE"
	default:
		return "UNKNOWN"
	}
}

// EventKindFromWeight 由序数权重还原事件类型（上游导出的 rating 列）。
func EventKindFromWeight(w int) (EventKind, bool) {
	if w < 1 || w > 4 {
		return 0, false
	}
	return EventKind(w), true
}

// BehaviorEvent 是一条用户行为记录（append-only，来自外部行为日志导出）。
type BehaviorEvent struct {
	UserID    string
	ProductID string
	Category  string // 商品所属类目（item_type），用于偏好与多样性约束
	Kind      EventKind
	Time      time.Time
}

// RatingTriple 是 (user, item, rating) 评分三元组，CF 训练的输入。
type RatingTriple struct {
	UserID    string
	ProductID string
	Rating    float64
}

// ProductRecord 是一条商品记录（一次训练运行内不可变）。
// ID 保持字符串精确往返；Description 缺失时为空字符串。
type ProductRecord struct {
	ID          string
	Name        string
	Description string
	Category    string
}

// Text 返回用于内容向量化的商品文本。空描述商品也能稳定编码。
func (p ProductRecord) Text() string {
	if p.Description == "" {
		return p.Name
	}
	if p.Name == "" {
		return p.Description
	}
	return p.Name + " " + p.Description
}

// BehaviorLog 是一批行为事件及其派生视图。
type BehaviorLog []BehaviorEvent

// Ratings 把行为聚合为评分三元组，每个 (user, product) 一条。
// 聚合策略为 max-wins：同一对多次交互取最强的一次（购买盖过浏览），
// 避免重复浏览无限放大权重。
func (l BehaviorLog) Ratings() []RatingTriple {
	type pair struct{ user, product string }
	best := make(map[pair]float64, len(l))
	order := make([]pair, 0, len(l))
	for _, ev := range l {
		p := pair{ev.UserID, ev.ProductID}
		w := ev.Kind.Weight()
		if old, ok := best[p]; ok {
			if w > old {
				best[p] = w
			}
			continue
		}
		best[p] = w
		order = append(order, p)
	}
	out := make([]RatingTriple, 0, len(order))
	for _, p := range order {
		out = append(out, RatingTriple{UserID: p.user, ProductID: p.product, Rating: best[p]})
	}
	return out
}

// RawRatings 返回事件级（不去重）的评分三元组。
// 评测切分使用原始事件行，与聚合策略解耦。
func (l BehaviorLog) RawRatings() []RatingTriple {
	out := make([]RatingTriple, 0, len(l))
	for _, ev := range l {
		out = append(out, RatingTriple{UserID: ev.UserID, ProductID: ev.ProductID, Rating: ev.Kind.Weight()})
	}
	return out
}

// UserSequences 按用户分组、按时间排序，返回商品 ID 序列。
// 长度小于 2 的序列被丢弃（单次交互没有共现信号）。
func (l BehaviorLog) UserSequences() [][]string {
	byUser := make(map[string][]BehaviorEvent)
	order := make([]string, 0)
	for _, ev := range l {
		if _, ok := byUser[ev.UserID]; !ok {
			order = append(order, ev.UserID)
		}
		byUser[ev.UserID] = append(byUser[ev.UserID], ev)
	}
	out := make([][]string, 0, len(order))
	for _, uid := range order {
		evs := byUser[uid]
		sort.SliceStable(evs, func(i, j int) bool { return evs[i].Time.Before(evs[j].Time) })
		seq := make([]string, 0, len(evs))
		for _, ev := range evs {
			seq = append(seq, ev.ProductID)
		}
		if len(seq) >= 2 {
			out = append(out, seq)
		}
	}
	return out
}

// ProductSet 返回出现过行为的商品 ID 集合。
func (l BehaviorLog) ProductSet() map[string]bool {
	set := make(map[string]bool, len(l))
	for _, ev := range l {
		set[ev.ProductID] = true
	}
	return set
}

// Users 返回出现过行为的用户 ID 列表（按首次出现顺序）。
func (l BehaviorLog) Users() []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, ev := range l {
		if !seen[ev.UserID] {
			seen[ev.UserID] = true
			out = append(out, ev.UserID)
		}
	}
	return out
}

// TrendScores 返回每个商品在全体用户上的平均评分（事件级），即趋势分。
func (l BehaviorLog) TrendScores() map[string]float64 {
	sum := make(map[string]float64)
	cnt := make(map[string]float64)
	for _, ev := range l {
		sum[ev.ProductID] += ev.Kind.Weight()
		cnt[ev.ProductID]++
	}
	out := make(map[string]float64, len(sum))
	for pid, s := range sum {
		out[pid] = s / cnt[pid]
	}
	return out
}

// PreferredCategory 返回用户历史上平均评分最高的类目。
// 用户无任何行为时返回 ("", false)。
func (l BehaviorLog) PreferredCategory(userID string) (string, bool) {
	sum := make(map[string]float64)
	cnt := make(map[string]float64)
	for _, ev := range l {
		if ev.UserID != userID || ev.Category == "" {
			continue
		}
		sum[ev.Category] += ev.Kind.Weight()
		cnt[ev.Category]++
	}
	if len(sum) == 0 {
		return "", false
	}
	best, bestMean := "", -1.0
	cats := make([]string, 0, len(sum))
	for c := range sum {
		cats = append(cats, c)
	}
	sort.Strings(cats) // 均值并列时取字典序最小，保证结果可复现
	for _, c := range cats {
		if mean := sum[c] / cnt[c]; mean > bestMean {
			best, bestMean = c, mean
		}
	}
	return best, true
}

// Since 返回时间窗口内的行为子集（如最近 24 小时）。
func (l BehaviorLog) Since(t time.Time) BehaviorLog {
	out := make(BehaviorLog, 0, len(l))
	for _, ev := range l {
		if !ev.Time.Before(t) {
			out = append(out, ev)
		}
	}
	return out
}

// ForUser 返回某个用户的行为子集。
func (l BehaviorLog) ForUser(userID string) BehaviorLog {
	out := make(BehaviorLog, 0)
	for _, ev := range l {
		if ev.UserID == userID {
			out = append(out, ev)
		}
	}
	return out
}
