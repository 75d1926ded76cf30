package model

import (
	"encoding/gob"
	"math"
	"math/rand"
	"os"
	"sort"

	"github.com/quadra-commerce/hybridrec/core"
)

// Word2Vec 是基于用户行为序列训练的商品共现向量模型（skip-gram + 负采样）。
//
// 核心思想：
//   - 把每个用户按时间排序的商品 ID 序列当作一句话，商品 ID 当作词
//   - 同一序列中相邻出现的商品学到相近的向量
//   - MostSimilar 即 I2I 召回：被一起看/一起买的商品互为近邻
//
// 工程特征：
//   - 离线训练、在线查表，查询 O(V·K)
//   - 固定 Seed 下训练完全可复现（单线程 SGD，顺序遍历）
//   - 冷启动：训练中未出现的商品查询返回空结果，不报错
type Word2Vec struct {
	// Dim 向量维度
	Dim int

	// Window 上下文窗口大小（实际窗口在 [1, Window] 内随机收缩，经典 word2vec 行为）
	Window int

	// Negative 每个正样本的负采样数
	Negative int

	// MinCount 低于此出现次数的商品不进入词表
	MinCount int

	// Epochs 训练轮数
	Epochs int

	// Alpha 初始学习率，训练过程中线性衰减
	Alpha float64

	// Seed 随机种子，保证构建可复现
	Seed int64

	vocab  map[string]int
	words  []string
	counts []float64
	syn0   [][]float64 // 输入向量（即最终商品向量）
	syn1   [][]float64 // 负采样输出向量
	table  []int       // unigram^0.75 负采样表
}

// Neighbor 是一个近邻结果。
type Neighbor struct {
	ID    string
	Score float64 // 余弦相似度
}

// NewWord2Vec 创建一个带默认超参的模型。
func NewWord2Vec() *Word2Vec {
	return &Word2Vec{
		Dim:      100,
		Window:   5,
		Negative: 5,
		MinCount: 1,
		Epochs:   10,
		Alpha:    0.025,
		Seed:     42,
	}
}

const negativeTableSize = 100000

// Train 在商品 ID 序列上训练模型。
// 长度小于 2 的序列被丢弃；过滤后没有任何可训练序列时返回 EMPTY_INPUT。
func (m *Word2Vec) Train(sequences [][]string) error {
	usable := make([][]string, 0, len(sequences))
	for _, seq := range sequences {
		if len(seq) >= 2 {
			usable = append(usable, seq)
		}
	}
	if len(usable) == 0 {
		return core.NewDomainError(core.ModuleModel, core.ErrorCodeEmptyInput, "word2vec: no sequences of length >= 2")
	}

	m.buildVocab(usable)
	if len(m.words) == 0 {
		return core.NewDomainError(core.ModuleModel, core.ErrorCodeEmptyInput, "word2vec: vocabulary empty after min_count filter")
	}
	m.buildNegativeTable()

	rng := rand.New(rand.NewSource(m.Seed))

	// 初始化：输入向量小随机值，输出向量零值（经典实现约定）
	m.syn0 = make([][]float64, len(m.words))
	m.syn1 = make([][]float64, len(m.words))
	for i := range m.words {
		v := make([]float64, m.Dim)
		for d := range v {
			v[d] = (rng.Float64() - 0.5) / float64(m.Dim)
		}
		m.syn0[i] = v
		m.syn1[i] = make([]float64, m.Dim)
	}

	var totalWords float64
	for _, seq := range usable {
		totalWords += float64(len(seq))
	}
	totalSteps := totalWords * float64(m.Epochs)
	var processed float64

	for epoch := 0; epoch < m.Epochs; epoch++ {
		for _, seq := range usable {
			for pos, word := range seq {
				processed++
				wi, ok := m.vocab[word]
				if !ok {
					continue
				}

				// 线性衰减学习率，下限为初始值的万分之一
				alpha := m.Alpha * (1 - processed/(totalSteps+1))
				if alpha < m.Alpha*0.0001 {
					alpha = m.Alpha * 0.0001
				}

				// 随机收缩窗口
				span := 1 + rng.Intn(m.Window)
				for off := -span; off <= span; off++ {
					cpos := pos + off
					if off == 0 || cpos < 0 || cpos >= len(seq) {
						continue
					}
					ci, ok := m.vocab[seq[cpos]]
					if !ok {
						continue
					}
					m.trainPair(rng, wi, ci, alpha)
				}
			}
		}
	}
	return nil
}

// trainPair 做一次 SGNS 更新：中心词 wi 预测上下文 ci，带 Negative 个负样本。
func (m *Word2Vec) trainPair(rng *rand.Rand, wi, ci int, alpha float64) {
	in := m.syn0[wi]
	grad := make([]float64, m.Dim)

	for n := 0; n <= m.Negative; n++ {
		var target int
		var label float64
		if n == 0 {
			target, label = ci, 1
		} else {
			target = m.table[rng.Intn(len(m.table))]
			if target == ci {
				continue
			}
			label = 0
		}

		out := m.syn1[target]
		var dot float64
		for d := 0; d < m.Dim; d++ {
			dot += in[d] * out[d]
		}
		g := (label - sigmoid(dot)) * alpha
		for d := 0; d < m.Dim; d++ {
			grad[d] += g * out[d]
			out[d] += g * in[d]
		}
	}
	for d := 0; d < m.Dim; d++ {
		in[d] += grad[d]
	}
}

func (m *Word2Vec) buildVocab(sequences [][]string) {
	raw := make(map[string]float64)
	order := make([]string, 0)
	for _, seq := range sequences {
		for _, w := range seq {
			if _, ok := raw[w]; !ok {
				order = append(order, w)
			}
			raw[w]++
		}
	}

	minCount := float64(m.MinCount)
	if minCount < 1 {
		minCount = 1
	}
	m.vocab = make(map[string]int)
	m.words = m.words[:0]
	m.counts = m.counts[:0]
	for _, w := range order {
		if raw[w] < minCount {
			continue
		}
		m.vocab[w] = len(m.words)
		m.words = append(m.words, w)
		m.counts = append(m.counts, raw[w])
	}
}

func (m *Word2Vec) buildNegativeTable() {
	var total float64
	pow := make([]float64, len(m.counts))
	for i, c := range m.counts {
		pow[i] = math.Pow(c, 0.75)
		total += pow[i]
	}

	m.table = make([]int, negativeTableSize)
	wi := 0
	cum := pow[0] / total
	for i := 0; i < negativeTableSize; i++ {
		m.table[i] = wi
		if float64(i)/negativeTableSize > cum && wi < len(m.counts)-1 {
			wi++
			cum += pow[wi] / total
		}
	}
}

// Vector 返回商品的训练向量；未进入词表时返回 (nil, false)。
func (m *Word2Vec) Vector(productID string) ([]float64, bool) {
	i, ok := m.vocab[productID]
	if !ok {
		return nil, false
	}
	return m.syn0[i], true
}

// Known 报告商品是否在词表中。
func (m *Word2Vec) Known(productID string) bool {
	_, ok := m.vocab[productID]
	return ok
}

// MostSimilar 返回与给定商品余弦相似度最高的 topK 个商品（不含自身）。
// 商品未在训练中出现时返回空切片——这是预期的冷启动情形，不是错误。
func (m *Word2Vec) MostSimilar(productID string, topK int) []Neighbor {
	wi, ok := m.vocab[productID]
	if !ok || topK <= 0 {
		return nil
	}

	query := m.syn0[wi]
	out := make([]Neighbor, 0, len(m.words)-1)
	for i, w := range m.words {
		if i == wi {
			continue
		}
		out = append(out, Neighbor{ID: w, Score: cosine(query, m.syn0[i])})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}

func sigmoid(x float64) float64 {
	// 截断避免溢出；word2vec 原始实现用 6 作为边界
	if x > 6 {
		return 1
	}
	if x < -6 {
		return 0
	}
	return 1 / (1 + math.Exp(-x))
}

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// word2vecSnapshot 是 gob 序列化结构。
type word2vecSnapshot struct {
	Dim      int
	Window   int
	Negative int
	MinCount int
	Epochs   int
	Alpha    float64
	Seed     int64
	Words    []string
	Counts   []float64
	Syn0     [][]float64
	Syn1     [][]float64
}

// Save 把模型写入文件。
func (m *Word2Vec) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	snap := word2vecSnapshot{
		Dim: m.Dim, Window: m.Window, Negative: m.Negative, MinCount: m.MinCount,
		Epochs: m.Epochs, Alpha: m.Alpha, Seed: m.Seed,
		Words: m.words, Counts: m.counts, Syn0: m.syn0, Syn1: m.syn1,
	}
	return gob.NewEncoder(f).Encode(&snap)
}

// LoadWord2Vec 从文件恢复模型。
func LoadWord2Vec(path string) (*Word2Vec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var snap word2vecSnapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, err
	}

	m := &Word2Vec{
		Dim: snap.Dim, Window: snap.Window, Negative: snap.Negative, MinCount: snap.MinCount,
		Epochs: snap.Epochs, Alpha: snap.Alpha, Seed: snap.Seed,
		words: snap.Words, counts: snap.Counts, syn0: snap.Syn0, syn1: snap.Syn1,
	}
	m.vocab = make(map[string]int, len(m.words))
	for i, w := range m.words {
		m.vocab[w] = i
	}
	return m, nil
}
