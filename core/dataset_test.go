package core

import (
	"testing"
	"time"
)

func ts(h int) time.Time {
	return time.Date(2025, 6, 1, h, 0, 0, 0, time.UTC)
}

func TestBehaviorLog_Ratings_MaxWins(t *testing.T) {
	log := BehaviorLog{
		{UserID: "u1", ProductID: "p1", Kind: EventView, Time: ts(1)},
		{UserID: "u1", ProductID: "p1", Kind: EventPurchase, Time: ts(2)},
		{UserID: "u1", ProductID: "p1", Kind: EventLike, Time: ts(3)},
		{UserID: "u2", ProductID: "p1", Kind: EventAddToCart, Time: ts(1)},
	}

	got := log.Ratings()
	if len(got) != 2 {
		t.Fatalf("expected 2 triples, got %d", len(got))
	}
	if got[0].UserID != "u1" || got[0].Rating != 4 {
		t.Errorf("u1/p1 should keep the strongest interaction (PURCHASE=4), got %v", got[0])
	}
	if got[1].UserID != "u2" || got[1].Rating != 3 {
		t.Errorf("u2/p1 expected ADD_TO_CART=3, got %v", got[1])
	}
}

func TestBehaviorLog_UserSequences(t *testing.T) {
	log := BehaviorLog{
		{UserID: "u1", ProductID: "p2", Kind: EventView, Time: ts(2)},
		{UserID: "u1", ProductID: "p1", Kind: EventView, Time: ts(1)},
		{UserID: "u1", ProductID: "p3", Kind: EventView, Time: ts(3)},
		{UserID: "u2", ProductID: "p9", Kind: EventView, Time: ts(1)}, // 单事件，丢弃
	}

	seqs := log.UserSequences()
	if len(seqs) != 1 {
		t.Fatalf("expected 1 sequence (length < 2 discarded), got %d", len(seqs))
	}
	want := []string{"p1", "p2", "p3"}
	for i, pid := range want {
		if seqs[0][i] != pid {
			t.Errorf("sequence must be time ordered, position %d: want %s got %s", i, pid, seqs[0][i])
		}
	}
}

func TestBehaviorLog_PreferredCategory(t *testing.T) {
	tests := []struct {
		name   string
		log    BehaviorLog
		userID string
		want   string
		wantOK bool
	}{
		{
			name: "highest mean rating wins",
			log: BehaviorLog{
				{UserID: "u1", ProductID: "p1", Category: "books", Kind: EventView},
				{UserID: "u1", ProductID: "p2", Category: "toys", Kind: EventPurchase},
			},
			userID: "u1",
			want:   "toys",
			wantOK: true,
		},
		{
			name: "tie resolved lexicographically",
			log: BehaviorLog{
				{UserID: "u1", ProductID: "p1", Category: "b", Kind: EventLike},
				{UserID: "u1", ProductID: "p2", Category: "a", Kind: EventLike},
			},
			userID: "u1",
			want:   "a",
			wantOK: true,
		},
		{
			name:   "no behavior",
			log:    BehaviorLog{},
			userID: "u1",
			wantOK: false,
		},
		{
			name: "other users ignored",
			log: BehaviorLog{
				{UserID: "u2", ProductID: "p1", Category: "toys", Kind: EventPurchase},
			},
			userID: "u1",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.log.PreferredCategory(tt.userID)
			if ok != tt.wantOK {
				t.Fatalf("ok: want %v got %v", tt.wantOK, ok)
			}
			if ok && got != tt.want {
				t.Errorf("want %q got %q", tt.want, got)
			}
		})
	}
}

func TestBehaviorLog_TrendScores(t *testing.T) {
	log := BehaviorLog{
		{UserID: "u1", ProductID: "p1", Kind: EventView},     // 1
		{UserID: "u2", ProductID: "p1", Kind: EventPurchase}, // 4
		{UserID: "u1", ProductID: "p2", Kind: EventLike},     // 2
	}

	trends := log.TrendScores()
	if got := trends["p1"]; got != 2.5 {
		t.Errorf("p1 trend: want 2.5 got %v", got)
	}
	if got := trends["p2"]; got != 2 {
		t.Errorf("p2 trend: want 2 got %v", got)
	}
}

func TestBehaviorLog_Since(t *testing.T) {
	log := BehaviorLog{
		{UserID: "u1", ProductID: "p1", Kind: EventView, Time: ts(1)},
		{UserID: "u1", ProductID: "p2", Kind: EventView, Time: ts(10)},
	}

	got := log.Since(ts(5))
	if len(got) != 1 || got[0].ProductID != "p2" {
		t.Fatalf("window filter failed: %v", got)
	}
}

func TestEventKindFromWeight(t *testing.T) {
	for w := 1; w <= 4; w++ {
		kind, ok := EventKindFromWeight(w)
		if !ok || kind.Weight() != float64(w) {
			t.Errorf("weight %d should round trip, got %v %v", w, kind, ok)
		}
	}
	if _, ok := EventKindFromWeight(0); ok {
		t.Error("weight 0 must be rejected")
	}
	if _, ok := EventKindFromWeight(5); ok {
		t.Error("weight 5 must be rejected")
	}
}
