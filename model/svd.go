package model

import (
	"encoding/gob"
	"math"
	"math/rand"
	"os"

	"github.com/quadra-commerce/hybridrec/core"
)

// SVD 是带偏置的隐因子协同过滤模型（biased matrix factorization，SGD 训练）。
//
// 预测公式：r̂(u,i) = μ + b_u + b_i + p_u · q_i
//
// 评分域固定为序数事件权重域 [1,4]（core.RatingMin / core.RatingMax），
// 不从输入数据推导——从数据推导会让量纲随输入漂移，与真实评分边界无关。
//
// 冷启动约定：
//   - 未见过的用户/商品不报错，缺失项从预测公式中省略
//   - 两者都未见过时退化为全局均值 μ
//   - 预测值始终为有限浮点数并截断到评分域
type SVD struct {
	// Factors 隐因子维度
	Factors int

	// Epochs SGD 轮数
	Epochs int

	// LR 学习率
	LR float64

	// Reg L2 正则系数
	Reg float64

	// Seed 随机种子，保证训练可复现
	Seed int64

	// ScaleMin / ScaleMax 评分域边界
	ScaleMin float64
	ScaleMax float64

	mu       float64
	userIdx  map[string]int
	itemIdx  map[string]int
	userIDs  []string
	itemIDs  []string
	bu, bi   []float64
	pu, qi   [][]float64
}

// NewSVD 创建一个带默认超参的模型（50 因子、20 轮，评分域 [1,4]）。
func NewSVD() *SVD {
	return &SVD{
		Factors:  50,
		Epochs:   20,
		LR:       0.005,
		Reg:      0.02,
		Seed:     42,
		ScaleMin: core.RatingMin,
		ScaleMax: core.RatingMax,
	}
}

// Fit 在评分三元组上训练模型。输入为空时返回 EMPTY_INPUT。
func (m *SVD) Fit(triples []core.RatingTriple) error {
	if len(triples) == 0 {
		return core.NewDomainError(core.ModuleModel, core.ErrorCodeEmptyInput, "svd: no rating triples")
	}

	m.userIdx = make(map[string]int)
	m.itemIdx = make(map[string]int)
	m.userIDs = m.userIDs[:0]
	m.itemIDs = m.itemIDs[:0]

	var sum float64
	for _, t := range triples {
		if _, ok := m.userIdx[t.UserID]; !ok {
			m.userIdx[t.UserID] = len(m.userIDs)
			m.userIDs = append(m.userIDs, t.UserID)
		}
		if _, ok := m.itemIdx[t.ProductID]; !ok {
			m.itemIdx[t.ProductID] = len(m.itemIDs)
			m.itemIDs = append(m.itemIDs, t.ProductID)
		}
		sum += t.Rating
	}
	m.mu = sum / float64(len(triples))

	rng := rand.New(rand.NewSource(m.Seed))
	m.bu = make([]float64, len(m.userIDs))
	m.bi = make([]float64, len(m.itemIDs))
	m.pu = make([][]float64, len(m.userIDs))
	m.qi = make([][]float64, len(m.itemIDs))
	for u := range m.pu {
		m.pu[u] = randomFactors(rng, m.Factors)
	}
	for i := range m.qi {
		m.qi[i] = randomFactors(rng, m.Factors)
	}

	for epoch := 0; epoch < m.Epochs; epoch++ {
		for _, t := range triples {
			u := m.userIdx[t.UserID]
			i := m.itemIdx[t.ProductID]

			var dot float64
			for f := 0; f < m.Factors; f++ {
				dot += m.pu[u][f] * m.qi[i][f]
			}
			err := t.Rating - (m.mu + m.bu[u] + m.bi[i] + dot)

			m.bu[u] += m.LR * (err - m.Reg*m.bu[u])
			m.bi[i] += m.LR * (err - m.Reg*m.bi[i])
			for f := 0; f < m.Factors; f++ {
				puf, qif := m.pu[u][f], m.qi[i][f]
				m.pu[u][f] += m.LR * (err*qif - m.Reg*puf)
				m.qi[i][f] += m.LR * (err*puf - m.Reg*qif)
			}
		}
	}
	return nil
}

func randomFactors(rng *rand.Rand, n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = rng.NormFloat64() * 0.1
	}
	return v
}

// Predict 返回 (user, product) 的预测评分。未见过的主体不报错：
// 缺失项从公式中省略，两者都缺失时返回全局均值。结果截断到评分域。
func (m *SVD) Predict(userID, productID string) float64 {
	est := m.mu
	u, hasUser := m.userIdx[userID]
	i, hasItem := m.itemIdx[productID]

	if hasUser {
		est += m.bu[u]
	}
	if hasItem {
		est += m.bi[i]
	}
	if hasUser && hasItem {
		for f := 0; f < m.Factors; f++ {
			est += m.pu[u][f] * m.qi[i][f]
		}
	}

	if math.IsNaN(est) || math.IsInf(est, 0) {
		est = m.mu
	}
	if est < m.ScaleMin {
		est = m.ScaleMin
	}
	if est > m.ScaleMax {
		est = m.ScaleMax
	}
	return est
}

// GlobalMean 返回训练集全局均值 μ。
func (m *SVD) GlobalMean() float64 { return m.mu }

// RMSE 计算模型在给定三元组上的均方根误差（用于留出集评估）。
func (m *SVD) RMSE(triples []core.RatingTriple) float64 {
	if len(triples) == 0 {
		return 0
	}
	var sum float64
	for _, t := range triples {
		d := t.Rating - m.Predict(t.UserID, t.ProductID)
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(triples)))
}

// svdSnapshot 是 gob 序列化结构。
type svdSnapshot struct {
	Factors  int
	Epochs   int
	LR       float64
	Reg      float64
	Seed     int64
	ScaleMin float64
	ScaleMax float64
	Mu       float64
	UserIDs  []string
	ItemIDs  []string
	BU, BI   []float64
	PU, QI   [][]float64
}

// Save 把模型写入文件。
func (m *SVD) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	snap := svdSnapshot{
		Factors: m.Factors, Epochs: m.Epochs, LR: m.LR, Reg: m.Reg, Seed: m.Seed,
		ScaleMin: m.ScaleMin, ScaleMax: m.ScaleMax, Mu: m.mu,
		UserIDs: m.userIDs, ItemIDs: m.itemIDs,
		BU: m.bu, BI: m.bi, PU: m.pu, QI: m.qi,
	}
	return gob.NewEncoder(f).Encode(&snap)
}

// LoadSVD 从文件恢复模型。
func LoadSVD(path string) (*SVD, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var snap svdSnapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, err
	}

	m := &SVD{
		Factors: snap.Factors, Epochs: snap.Epochs, LR: snap.LR, Reg: snap.Reg, Seed: snap.Seed,
		ScaleMin: snap.ScaleMin, ScaleMax: snap.ScaleMax, mu: snap.Mu,
		userIDs: snap.UserIDs, itemIDs: snap.ItemIDs,
		bu: snap.BU, bi: snap.BI, pu: snap.PU, qi: snap.QI,
	}
	m.userIdx = make(map[string]int, len(m.userIDs))
	for i, u := range m.userIDs {
		m.userIdx[u] = i
	}
	m.itemIdx = make(map[string]int, len(m.itemIDs))
	for i, it := range m.itemIDs {
		m.itemIdx[it] = i
	}
	return m, nil
}
