package recall

import (
	"context"
	"errors"
	"testing"

	"github.com/quadra-commerce/hybridrec/core"
)

// stubSource 返回固定候选（或固定错误）。
type stubSource struct {
	name  string
	items []*core.Item
	err   error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Recall(_ context.Context, _ *core.RecommendContext) ([]*core.Item, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*core.Item, len(s.items))
	for i, it := range s.items {
		cp := core.NewItem(it.ID)
		cp.Score = it.Score
		out[i] = cp
	}
	return out, nil
}

func item(id string, score float64) *core.Item {
	it := core.NewItem(id)
	it.Score = score
	return it
}

func TestFanout_WeightedMerge(t *testing.T) {
	// 路 A 分数 [2,1,0]，归一化后 [1,0.5,0]；路 B 分数 [10,0]，归一化后 [1,0]
	a := &stubSource{name: "a", items: []*core.Item{item("p1", 2), item("p2", 1), item("p3", 0)}}
	b := &stubSource{name: "b", items: []*core.Item{item("p2", 10), item("p4", 0)}}

	n := &Fanout{
		Sources:       []Source{a, b},
		MergeStrategy: "weighted",
		Weights:       []float64{0.7, 0.3},
	}
	got, err := n.Process(context.Background(), &core.RecommendContext{ProductID: "q"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	scores := make(map[string]float64, len(got))
	for _, it := range got {
		scores[it.ID] = it.Score
	}
	if scores["p1"] != 0.7 {
		t.Errorf("p1: want 0.7 got %v", scores["p1"])
	}
	// p2 同时出现在两路：max(0.7*0.5, 0.3*1.0) = 0.35
	if scores["p2"] != 0.35 {
		t.Errorf("p2: want max of weighted contributions 0.35, got %v", scores["p2"])
	}
	if scores["p3"] != 0 || scores["p4"] != 0 {
		t.Errorf("min of each source must normalize to 0: %v", scores)
	}

	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("weighted merge must be sorted by score descending: %v", got)
		}
	}
}

func TestFanout_WeightedMerge_SingleScoreNormalizesToOne(t *testing.T) {
	a := &stubSource{name: "a", items: []*core.Item{item("p1", 42)}}
	n := &Fanout{Sources: []Source{a}, MergeStrategy: "weighted", Weights: []float64{0.5}}

	got, err := n.Process(context.Background(), &core.RecommendContext{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Score != 0.5 {
		t.Errorf("degenerate range must normalize to 1 before weighting, got %v", got)
	}
}

func TestFanout_FirstMergeDedups(t *testing.T) {
	a := &stubSource{name: "a", items: []*core.Item{item("p1", 1), item("p2", 1)}}
	b := &stubSource{name: "b", items: []*core.Item{item("p2", 9), item("p3", 1)}}

	n := &Fanout{Sources: []Source{a, b}, MergeStrategy: "first", Dedup: true}
	got, err := n.Process(context.Background(), &core.RecommendContext{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 deduped items, got %d", len(got))
	}
	for _, it := range got {
		if it.ID == "p2" && it.Score != 1 {
			t.Errorf("first strategy must keep the first occurrence, got score %v", it.Score)
		}
	}
}

func TestFanout_SourceErrorDegradesByDefault(t *testing.T) {
	a := &stubSource{name: "a", err: errors.New("backend down")}
	b := &stubSource{name: "b", items: []*core.Item{item("p1", 1)}}

	n := &Fanout{Sources: []Source{a, b}, MergeStrategy: "first", Dedup: true}
	got, err := n.Process(context.Background(), &core.RecommendContext{}, nil)
	if err != nil {
		t.Fatal("default mode must degrade, not fail")
	}
	if len(got) != 1 || got[0].ID != "p1" {
		t.Errorf("healthy source results must survive: %v", got)
	}
}

func TestFanout_FailFastPropagatesError(t *testing.T) {
	a := &stubSource{name: "a", err: errors.New("backend down")}
	n := &Fanout{Sources: []Source{a}, FailFast: true}

	if _, err := n.Process(context.Background(), &core.RecommendContext{}, nil); err == nil {
		t.Fatal("fail-fast mode must propagate source errors")
	}
}

func TestFanout_ConcurrencyLimits(t *testing.T) {
	a := &stubSource{name: "a", items: []*core.Item{item("p1", 1)}}
	b := &stubSource{name: "b", items: []*core.Item{item("p2", 1)}}

	tests := []struct {
		name          string
		maxConcurrent int
	}{
		{name: "limited", maxConcurrent: 1},
		{name: "unlimited", maxConcurrent: 0},
		{name: "negative treated as unlimited", maxConcurrent: -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &Fanout{
				Sources:       []Source{a, b},
				MaxConcurrent: tt.maxConcurrent,
				MergeStrategy: "first",
				Dedup:         true,
			}
			got, err := n.Process(context.Background(), &core.RecommendContext{}, nil)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 2 {
				t.Errorf("want 2 items, got %d", len(got))
			}
		})
	}
}

func TestFanout_RecordsRecallSourceLabel(t *testing.T) {
	a := &stubSource{name: "recall.test_source", items: []*core.Item{item("p1", 1)}}
	n := &Fanout{Sources: []Source{a}, MergeStrategy: "first", Dedup: true}

	got, err := n.Process(context.Background(), &core.RecommendContext{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	lbl, ok := got[0].Labels["recall_source"]
	if !ok || lbl.Value != "recall.test_source" {
		t.Errorf("recall source label missing or wrong: %v", got[0].Labels)
	}
}
