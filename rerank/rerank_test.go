package rerank

import (
	"context"
	"testing"

	"github.com/quadra-commerce/hybridrec/core"
)

func catItem(id, category string, score float64) *core.Item {
	it := core.NewItem(id)
	it.Score = score
	if category != "" {
		it.Meta["category"] = category
	}
	return it
}

func ids(items []*core.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestDiversity_PerCategoryCapAndLimit(t *testing.T) {
	tests := []struct {
		name  string
		node  Diversity
		items []*core.Item
		want  []string
	}{
		{
			name: "cap per category",
			node: Diversity{MaxPerCategory: 2, Limit: 10},
			items: []*core.Item{
				catItem("a1", "x", 9), catItem("a2", "x", 8), catItem("a3", "x", 7),
				catItem("b1", "y", 6),
			},
			want: []string{"a1", "a2", "b1"},
		},
		{
			name: "total limit stops the scan",
			node: Diversity{MaxPerCategory: 5, Limit: 2},
			items: []*core.Item{
				catItem("a1", "x", 9), catItem("b1", "y", 8), catItem("c1", "z", 7),
			},
			want: []string{"a1", "b1"},
		},
		{
			name: "fewer categories than cap keeps order",
			node: Diversity{MaxPerCategory: 5, Limit: 10},
			items: []*core.Item{
				catItem("a1", "x", 9), catItem("a2", "x", 8),
			},
			want: []string{"a1", "a2"},
		},
		{
			name: "uncategorized items bypass the category cap",
			node: Diversity{MaxPerCategory: 1, Limit: 10},
			items: []*core.Item{
				catItem("a1", "x", 9), catItem("n1", "", 8), catItem("n2", "", 7), catItem("a2", "x", 6),
			},
			want: []string{"a1", "n1", "n2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.node.Process(context.Background(), &core.RecommendContext{}, tt.items)
			if err != nil {
				t.Fatal(err)
			}
			gotIDs := ids(got)
			if len(gotIDs) != len(tt.want) {
				t.Fatalf("want %v got %v", tt.want, gotIDs)
			}
			for i := range tt.want {
				if gotIDs[i] != tt.want[i] {
					t.Errorf("position %d: want %s got %s", i, tt.want[i], gotIDs[i])
				}
			}
		})
	}
}

func TestPreferredCategory_MovesPreferredFirstStably(t *testing.T) {
	items := []*core.Item{
		catItem("a1", "x", 9),
		catItem("b1", "y", 8),
		catItem("b2", "y", 7),
		catItem("a2", "x", 6),
	}
	rctx := &core.RecommendContext{
		UserID: "u1",
		Params: map[string]any{"preferred_category": "y"},
	}

	n := &PreferredCategory{}
	got, err := n.Process(context.Background(), rctx, items)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"b1", "b2", "a1", "a2"}
	gotIDs := ids(got)
	for i := range want {
		if gotIDs[i] != want[i] {
			t.Fatalf("preferred category must lead, keeping relative order: want %v got %v", want, gotIDs)
		}
	}
}

func TestPreferredCategory_NoPreferenceKeepsOrder(t *testing.T) {
	items := []*core.Item{catItem("a1", "x", 9), catItem("b1", "y", 8)}
	n := &PreferredCategory{}
	got, err := n.Process(context.Background(), &core.RecommendContext{UserID: "u1"}, items)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].ID != "a1" || got[1].ID != "b1" {
		t.Errorf("without a preference the order must not change: %v", ids(got))
	}
}

func TestTopNNode(t *testing.T) {
	items := []*core.Item{catItem("a", "", 3), catItem("b", "", 2), catItem("c", "", 1)}

	tests := []struct {
		name string
		n    int
		want int
	}{
		{name: "truncates", n: 2, want: 2},
		{name: "zero means no truncation", n: 0, want: 3},
		{name: "larger than input", n: 10, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := &TopNNode{N: tt.n}
			got, err := node.Process(context.Background(), &core.RecommendContext{}, items)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Errorf("want %d items, got %d", tt.want, len(got))
			}
		})
	}
}
