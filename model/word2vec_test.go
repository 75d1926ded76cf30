package model

import (
	"path/filepath"
	"testing"

	"github.com/quadra-commerce/hybridrec/core"
)

func testSequences() [][]string {
	return [][]string{
		{"p1", "p2", "p3", "p1", "p2"},
		{"p2", "p3", "p4"},
		{"p1", "p3", "p2", "p4"},
		{"p4", "p5", "p4", "p5"},
	}
}

func smallWord2Vec() *Word2Vec {
	m := NewWord2Vec()
	m.Dim = 16
	m.Epochs = 3
	return m
}

func TestWord2Vec_TrainRejectsEmptyInput(t *testing.T) {
	tests := []struct {
		name      string
		sequences [][]string
	}{
		{name: "no sequences", sequences: nil},
		{name: "only short sequences", sequences: [][]string{{"p1"}, {"p2"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := smallWord2Vec().Train(tt.sequences)
			if !core.IsEmptyInput(err) {
				t.Fatalf("expected EMPTY_INPUT, got %v", err)
			}
		})
	}
}

func TestWord2Vec_MostSimilar_ColdProduct(t *testing.T) {
	m := smallWord2Vec()
	if err := m.Train(testSequences()); err != nil {
		t.Fatal(err)
	}

	if got := m.MostSimilar("unseen", 5); got != nil {
		t.Errorf("unseen product must return empty, got %v", got)
	}
	if m.Known("unseen") {
		t.Error("unseen product must not be in vocabulary")
	}
}

func TestWord2Vec_MostSimilar_ExcludesSelf(t *testing.T) {
	m := smallWord2Vec()
	if err := m.Train(testSequences()); err != nil {
		t.Fatal(err)
	}

	got := m.MostSimilar("p1", 10)
	if len(got) == 0 {
		t.Fatal("expected neighbors for a trained product")
	}
	for _, nb := range got {
		if nb.ID == "p1" {
			t.Error("product must not be its own neighbor")
		}
	}
}

func TestWord2Vec_Deterministic(t *testing.T) {
	a, b := smallWord2Vec(), smallWord2Vec()
	if err := a.Train(testSequences()); err != nil {
		t.Fatal(err)
	}
	if err := b.Train(testSequences()); err != nil {
		t.Fatal(err)
	}

	na, nb := a.MostSimilar("p2", 3), b.MostSimilar("p2", 3)
	if len(na) != len(nb) {
		t.Fatalf("neighbor counts differ: %d vs %d", len(na), len(nb))
	}
	for i := range na {
		if na[i].ID != nb[i].ID || na[i].Score != nb[i].Score {
			t.Errorf("position %d differs: %v vs %v", i, na[i], nb[i])
		}
	}
}

func TestWord2Vec_SaveLoadRoundTrip(t *testing.T) {
	m := smallWord2Vec()
	if err := m.Train(testSequences()); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "w2v.gob")
	if err := m.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadWord2Vec(path)
	if err != nil {
		t.Fatal(err)
	}

	want, got := m.MostSimilar("p1", 4), loaded.MostSimilar("p1", 4)
	if len(want) != len(got) {
		t.Fatalf("neighbor counts differ after reload: %d vs %d", len(want), len(got))
	}
	for i := range want {
		if want[i] != got[i] {
			t.Errorf("position %d differs after reload: %v vs %v", i, want[i], got[i])
		}
	}
}

func TestWord2Vec_MinCountFiltersRareProducts(t *testing.T) {
	m := smallWord2Vec()
	m.MinCount = 2
	if err := m.Train(testSequences()); err != nil {
		t.Fatal(err)
	}

	// p5 出现 2 次保留，出现 1 次的不应进入词表
	if !m.Known("p5") {
		t.Error("p5 appears twice and must survive min_count=2")
	}
	for _, seq := range testSequences() {
		for _, pid := range seq {
			if _, ok := m.Vector(pid); ok {
				if m.countOf(pid) < 2 {
					t.Errorf("product %s below min_count is in vocabulary", pid)
				}
			}
		}
	}
}

// countOf 统计训练语料中的出现次数（测试辅助）。
func (m *Word2Vec) countOf(pid string) int {
	i, ok := m.vocab[pid]
	if !ok {
		return 0
	}
	return int(m.counts[i])
}
