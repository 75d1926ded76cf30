package recall

import (
	"context"
	"testing"
	"time"

	"github.com/quadra-commerce/hybridrec/core"
	"github.com/quadra-commerce/hybridrec/model"
)

func trainedW2V(t *testing.T) *model.Word2Vec {
	t.Helper()
	m := model.NewWord2Vec()
	m.Dim = 8
	m.Epochs = 2
	err := m.Train([][]string{
		{"p1", "p2", "p3"},
		{"p2", "p3", "p1"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestW2VNeighbors_ColdProductReturnsEmpty(t *testing.T) {
	s := &W2VNeighbors{Model: trainedW2V(t), TopK: 5}
	got, err := s.Recall(context.Background(), &core.RecommendContext{ProductID: "unseen"})
	if err != nil {
		t.Fatalf("cold product is not an error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("cold product must return no candidates, got %v", got)
	}
}

func TestW2VNeighbors_AttachesCategory(t *testing.T) {
	s := &W2VNeighbors{
		Model:      trainedW2V(t),
		TopK:       2,
		Categories: map[string]string{"p1": "books", "p2": "toys", "p3": "toys"},
	}
	got, err := s.Recall(context.Background(), &core.RecommendContext{ProductID: "p1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 neighbors, got %d", len(got))
	}
	for _, it := range got {
		if it.Category() == "" {
			t.Errorf("candidate %s must carry its category", it.ID)
		}
	}
}

func TestSVDCandidates_TopKOrdering(t *testing.T) {
	svd := model.NewSVD()
	svd.Factors = 4
	svd.Epochs = 5
	err := svd.Fit([]core.RatingTriple{
		{UserID: "u1", ProductID: "p1", Rating: 4},
		{UserID: "u1", ProductID: "p2", Rating: 1},
		{UserID: "u2", ProductID: "p1", Rating: 4},
		{UserID: "u2", ProductID: "p3", Rating: 2},
	})
	if err != nil {
		t.Fatal(err)
	}

	s := &SVDCandidates{Model: svd, Products: []string{"p1", "p2", "p3"}, TopK: 2}
	got, err := s.Recall(context.Background(), &core.RecommendContext{UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected top 2 candidates, got %d", len(got))
	}
	if got[0].Score < got[1].Score {
		t.Errorf("candidates must be score descending: %v %v", got[0], got[1])
	}
}

func TestSVDCandidates_RequiresUser(t *testing.T) {
	s := &SVDCandidates{Model: model.NewSVD(), Products: []string{"p1"}, TopK: 1}
	if _, err := s.Recall(context.Background(), &core.RecommendContext{}); err == nil {
		t.Fatal("missing user id must be an error")
	}
}

func TestRecentActivity_ScoringAndBonus(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	log := core.BehaviorLog{
		// 窗口内：浏览 + 购买 = 1 + 4 = 5
		{UserID: "u1", ProductID: "p1", Category: "toys", Kind: core.EventView, Time: now.Add(-2 * time.Hour)},
		{UserID: "u1", ProductID: "p1", Category: "toys", Kind: core.EventPurchase, Time: now.Add(-1 * time.Hour)},
		// 窗口外，忽略
		{UserID: "u1", ProductID: "p2", Category: "books", Kind: core.EventPurchase, Time: now.Add(-48 * time.Hour)},
		// 其他用户，忽略
		{UserID: "u2", ProductID: "p3", Category: "toys", Kind: core.EventPurchase, Time: now.Add(-1 * time.Hour)},
	}

	s := &RecentActivity{
		Log:        log,
		Products:   []string{"p1", "p2", "p3", "p4"},
		Now:        now,
		Categories: map[string]string{"p1": "toys", "p2": "books", "p3": "toys", "p4": "garden"},
	}
	rctx := &core.RecommendContext{
		UserID: "u1",
		Params: map[string]any{"preferred_category": "toys"},
	}

	got, err := s.Recall(context.Background(), rctx)
	if err != nil {
		t.Fatal(err)
	}

	scores := make(map[string]float64, len(got))
	for _, it := range got {
		scores[it.ID] = it.Score
	}
	if scores["p1"] != 7 { // 5 + 类目加分 2
		t.Errorf("p1: want 7 (window sum + bonus), got %v", scores["p1"])
	}
	if scores["p2"] != 0 {
		t.Errorf("p2 outside the window must score 0, got %v", scores["p2"])
	}
	if scores["p3"] != 2 { // 无交互，但命中偏好类目
		t.Errorf("p3: want category bonus 2, got %v", scores["p3"])
	}
	if scores["p4"] != 0 {
		t.Errorf("p4: want 0, got %v", scores["p4"])
	}
	if got[0].ID != "p1" {
		t.Errorf("highest score must come first, got %v", got[0].ID)
	}
}
