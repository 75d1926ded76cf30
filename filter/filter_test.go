package filter

import (
	"context"
	"testing"

	"github.com/quadra-commerce/hybridrec/core"
)

func TestSelfFilter(t *testing.T) {
	f := &SelfFilter{}
	rctx := &core.RecommendContext{ProductID: "p1"}

	tests := []struct {
		name string
		id   string
		want bool
	}{
		{name: "the queried product itself", id: "p1", want: true},
		{name: "another product", id: "p2", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.ShouldFilter(context.Background(), rctx, core.NewItem(tt.id))
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("want %v got %v", tt.want, got)
			}
		})
	}
}

func TestBlacklistFilter(t *testing.T) {
	f := NewBlacklistFilter([]string{"banned1", "banned2"})

	if ok, _ := f.ShouldFilter(context.Background(), nil, core.NewItem("banned1")); !ok {
		t.Error("blacklisted product must be filtered")
	}
	if ok, _ := f.ShouldFilter(context.Background(), nil, core.NewItem("clean")); ok {
		t.Error("clean product must pass")
	}
}

func TestRuleFilter(t *testing.T) {
	f, err := NewRuleFilter(`item.score < 0.1`)
	if err != nil {
		t.Fatal(err)
	}

	low := core.NewItem("p1")
	low.Score = 0.05
	high := core.NewItem("p2")
	high.Score = 0.9

	if ok, err := f.ShouldFilter(context.Background(), &core.RecommendContext{}, low); err != nil || !ok {
		t.Errorf("low score must match the rule: ok=%v err=%v", ok, err)
	}
	if ok, err := f.ShouldFilter(context.Background(), &core.RecommendContext{}, high); err != nil || ok {
		t.Errorf("high score must pass: ok=%v err=%v", ok, err)
	}
}

func TestRuleFilter_InvalidExpression(t *testing.T) {
	if _, err := NewRuleFilter(`this is not cel ((`); err == nil {
		t.Fatal("invalid expression must fail at compile time")
	}
}

func TestFilterNode_CombinesFilters(t *testing.T) {
	rule, err := NewRuleFilter(`item.score < 0.5`)
	if err != nil {
		t.Fatal(err)
	}
	node := &FilterNode{Filters: []Filter{
		&SelfFilter{},
		NewBlacklistFilter([]string{"banned"}),
		rule,
	}}

	self := core.NewItem("q")
	self.Score = 1
	banned := core.NewItem("banned")
	banned.Score = 1
	weak := core.NewItem("weak")
	weak.Score = 0.1
	good := core.NewItem("good")
	good.Score = 0.9

	got, err := node.Process(
		context.Background(),
		&core.RecommendContext{ProductID: "q"},
		[]*core.Item{self, banned, weak, good},
	)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "good" {
		t.Fatalf("only the clean high-score item must survive, got %v", got)
	}
	if lbl, ok := weak.Labels["filtered"]; !ok || lbl.Value != "true" {
		t.Error("filtered items must carry the filtered label")
	}
}
