package model

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/quadra-commerce/hybridrec/core"
)

func testTriples() []core.RatingTriple {
	return []core.RatingTriple{
		{UserID: "u1", ProductID: "p1", Rating: 4},
		{UserID: "u1", ProductID: "p2", Rating: 1},
		{UserID: "u2", ProductID: "p1", Rating: 3},
		{UserID: "u2", ProductID: "p3", Rating: 2},
		{UserID: "u3", ProductID: "p2", Rating: 4},
		{UserID: "u3", ProductID: "p3", Rating: 4},
	}
}

func smallSVD() *SVD {
	m := NewSVD()
	m.Factors = 8
	m.Epochs = 10
	return m
}

func TestSVD_FitRejectsEmptyInput(t *testing.T) {
	if err := smallSVD().Fit(nil); !core.IsEmptyInput(err) {
		t.Fatalf("expected EMPTY_INPUT, got %v", err)
	}
}

func TestSVD_PredictAlwaysFiniteAndClamped(t *testing.T) {
	m := smallSVD()
	if err := m.Fit(testTriples()); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		user    string
		product string
	}{
		{name: "known user and item", user: "u1", product: "p1"},
		{name: "cold user", user: "ghost", product: "p1"},
		{name: "cold item", user: "u1", product: "ghost"},
		{name: "both cold", user: "ghost", product: "phantom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Predict(tt.user, tt.product)
			if math.IsNaN(got) || math.IsInf(got, 0) {
				t.Fatalf("prediction must be finite, got %v", got)
			}
			if got < core.RatingMin || got > core.RatingMax {
				t.Errorf("prediction %v outside rating scale [%v,%v]", got, core.RatingMin, core.RatingMax)
			}
		})
	}
}

func TestSVD_BothColdFallsBackToGlobalMean(t *testing.T) {
	m := smallSVD()
	if err := m.Fit(testTriples()); err != nil {
		t.Fatal(err)
	}
	if got := m.Predict("ghost", "phantom"); got != m.GlobalMean() {
		t.Errorf("both-cold prediction: want global mean %v, got %v", m.GlobalMean(), got)
	}
}

func TestSVD_Deterministic(t *testing.T) {
	a, b := smallSVD(), smallSVD()
	if err := a.Fit(testTriples()); err != nil {
		t.Fatal(err)
	}
	if err := b.Fit(testTriples()); err != nil {
		t.Fatal(err)
	}
	if pa, pb := a.Predict("u1", "p3"), b.Predict("u1", "p3"); pa != pb {
		t.Errorf("same seed must give same predictions: %v vs %v", pa, pb)
	}
}

func TestSVD_RMSE(t *testing.T) {
	m := smallSVD()
	if err := m.Fit(testTriples()); err != nil {
		t.Fatal(err)
	}

	if got := m.RMSE(nil); got != 0 {
		t.Errorf("empty holdout RMSE must be 0, got %v", got)
	}
	got := m.RMSE(testTriples())
	if got < 0 || math.IsNaN(got) {
		t.Errorf("RMSE must be a non-negative number, got %v", got)
	}
	// 评分域宽度为 3，误差不可能超过它
	if got > core.RatingMax-core.RatingMin {
		t.Errorf("RMSE %v exceeds the rating scale width", got)
	}
}

func TestSVD_SaveLoadRoundTrip(t *testing.T) {
	m := smallSVD()
	if err := m.Fit(testTriples()); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "svd.gob")
	if err := m.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadSVD(path)
	if err != nil {
		t.Fatal(err)
	}

	for _, pair := range [][2]string{{"u1", "p1"}, {"u2", "p3"}, {"ghost", "p2"}} {
		if want, got := m.Predict(pair[0], pair[1]), loaded.Predict(pair[0], pair[1]); want != got {
			t.Errorf("prediction (%s,%s) differs after reload: %v vs %v", pair[0], pair[1], want, got)
		}
	}
}
