package job

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/quadra-commerce/hybridrec/core"
	"github.com/quadra-commerce/hybridrec/store"
)

// fakeEncoder 把固定文本映射到固定向量，离线测试用。
type fakeEncoder struct {
	dim     int
	vectors map[string][]float64
}

func (e *fakeEncoder) Name() string   { return "fake-encoder" }
func (e *fakeEncoder) Dimension() int { return e.dim }

func (e *fakeEncoder) EncodeTexts(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		v, ok := e.vectors[text]
		if !ok {
			return nil, fmt.Errorf("fake encoder: unknown text %q", text)
		}
		out[i] = v
	}
	return out, nil
}

func hybridFixture(now time.Time) (core.BehaviorLog, []core.ProductRecord, *fakeEncoder) {
	// p1/p2 有行为共现，p3/p4 冷启动但内容相近
	behavior := core.BehaviorLog{
		{UserID: "u1", ProductID: "p1", Category: "toys", Kind: core.EventView, Time: now.Add(-3 * time.Hour)},
		{UserID: "u1", ProductID: "p2", Category: "toys", Kind: core.EventPurchase, Time: now.Add(-2 * time.Hour)},
		{UserID: "u2", ProductID: "p2", Category: "toys", Kind: core.EventView, Time: now.Add(-5 * time.Hour)},
		{UserID: "u2", ProductID: "p1", Category: "toys", Kind: core.EventLike, Time: now.Add(-4 * time.Hour)},
	}
	products := []core.ProductRecord{
		{ID: "p1", Name: "alpha", Category: "toys"},
		{ID: "p2", Name: "beta", Category: "toys"},
		{ID: "p3", Name: "gamma", Category: "garden"},
		{ID: "p4", Name: "delta", Category: "garden"},
	}
	enc := &fakeEncoder{dim: 4, vectors: map[string][]float64{
		"alpha": {1, 0, 0, 0},
		"beta":  {0.9, 0.1, 0, 0},
		"gamma": {0, 0, 1, 0},
		"delta": {0, 0, 0.9, 0.1},
	}}
	return behavior, products, enc
}

func TestHybridBuilder_Run(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	behavior, products, enc := hybridFixture(now)
	ms := store.NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	dir := t.TempDir()
	b := &HybridBuilder{
		Epochs:            3,
		TopNW2V:           2,
		TopNContent:       2,
		HybridWeightW2V:   0.7,
		ContentOnlyForNew: true,
		Seed:              1,
		Now:               now,
		W2VModelPath:      filepath.Join(dir, "w2v.gob"),
		OutJSONPath:       filepath.Join(dir, "related.json"),
		Encoder:           enc,
		Store:             ms,
		Evaluate:          true,
	}
	result, err := b.Run(ctx, behavior, products)
	if err != nil {
		t.Fatal(err)
	}

	if result.Products != 4 || result.Sequences != 2 {
		t.Errorf("want 4 products / 2 sequences, got %d/%d", result.Products, result.Sequences)
	}
	if !result.Evaluated {
		t.Error("evaluation was requested but not reported")
	}
	if result.Precision < 0 || result.Precision > 1 || result.Recall < 0 || result.Recall > 1 {
		t.Errorf("metrics out of range: %v/%v", result.Precision, result.Recall)
	}

	for pid, recs := range result.Related {
		for _, rec := range recs {
			if rec == pid {
				t.Errorf("product %s recommends itself", pid)
			}
		}
	}

	// 有行为的商品只走行为路：p1 的唯一共现邻居是 p2
	if got := result.Related["p1"]; len(got) != 1 || got[0] != "p2" {
		t.Errorf("p1 must recommend only its co-occurrence neighbor, got %v", got)
	}

	// 冷启动商品靠内容路：p3 的最近内容邻居是 p4
	cold := result.Related["p3"]
	if len(cold) == 0 || cold[0] != "p4" {
		t.Errorf("cold product p3 must lead with its content neighbor p4, got %v", cold)
	}

	// 发布与落盘
	data, err := ms.Get(ctx, core.KeyRelatedProducts("p1"))
	if err != nil {
		t.Fatalf("related key not published: %v", err)
	}
	var published []string
	if err := json.Unmarshal(data, &published); err != nil {
		t.Fatal(err)
	}
	if len(published) != 1 || published[0] != "p2" {
		t.Errorf("published list mismatch: %v", published)
	}

	raw, err := os.ReadFile(b.OutJSONPath)
	if err != nil {
		t.Fatalf("json artifact missing: %v", err)
	}
	var artifact map[string][]string
	if err := json.Unmarshal(raw, &artifact); err != nil {
		t.Fatalf("json artifact not decodable: %v", err)
	}
	if len(artifact) != 4 {
		t.Errorf("artifact must cover all products, got %d", len(artifact))
	}
}

func TestHybridBuilder_BlendsBothRoutes(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	behavior, products, enc := hybridFixture(now)

	b := &HybridBuilder{
		Epochs:          3,
		TopNW2V:         2,
		TopNContent:     2,
		HybridWeightW2V: 0.7,
		Seed:            1,
		Now:             now,
		Encoder:         enc,
	}
	result, err := b.Run(context.Background(), behavior, products)
	if err != nil {
		t.Fatal(err)
	}

	// 不限制内容路时，有行为的商品也能混入内容邻居
	got := result.Related["p1"]
	if len(got) == 0 {
		t.Fatal("p1 must have recommendations")
	}
	if got[0] != "p2" {
		t.Errorf("p2 is both the behavior and content neighbor of p1, got %v", got)
	}
}

func TestHybridBuilder_StaleLogFallsBackToFullHistory(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	behavior, products, enc := hybridFixture(now)

	// 基准时刻远在所有事件之后，窗口过滤结果为空
	b := &HybridBuilder{
		Epochs:      3,
		TopNW2V:     2,
		TopNContent: 2,
		Seed:        1,
		Now:         now.Add(365 * 24 * time.Hour),
		Encoder:     enc,
	}
	result, err := b.Run(context.Background(), behavior, products)
	if err != nil {
		t.Fatal(err)
	}
	if result.Sequences != 2 {
		t.Errorf("stale log must fall back to the full history, got %d sequences", result.Sequences)
	}
}

func TestHybridBuilder_NoProducts(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	behavior, _, enc := hybridFixture(now)

	b := &HybridBuilder{Epochs: 2, TopNW2V: 2, TopNContent: 2, Now: now, Encoder: enc}
	if _, err := b.Run(context.Background(), behavior, nil); !core.IsEmptyInput(err) {
		t.Fatalf("no products must be EMPTY_INPUT, got %v", err)
	}
}
