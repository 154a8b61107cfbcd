package engine

import (
	"testing"
	"time"

	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
)

func TestInjectAdjustments(t *testing.T) {
	base := []domain.Transaction{
		{Date: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), AccountCode: "600", Amount: dec("1000")},
	}
	explicit := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	adjs := []domain.Adjustment{
		{ID: "a1", AccountCode: " 600 ", Amount: dec("50"), Month: "2024-02", Active: true},
		{ID: "a2", AccountCode: "600", Amount: dec("999"), Month: "2024-02", Active: false},
		{ID: "a3", AccountCode: "610", Amount: dec("-20"), Month: "2024-01", Date: &explicit, Active: true},
		{ID: "a4", AccountCode: "610", Amount: dec("5"), Month: "feb", Active: true},
	}

	got := InjectAdjustments(base, adjs)

	if len(base) != 1 {
		t.Fatalf("input slice was mutated: len = %d", len(base))
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3 (original + 2 active with valid dates)", len(got))
	}
	if got[0] != base[0] {
		t.Errorf("original transaction changed: %+v", got[0])
	}

	first := got[1]
	if !first.Synthetic || first.Ref != "a1" || first.AccountCode != "600" {
		t.Errorf("synthetic row = %+v", first)
	}
	if !first.Date.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("month adjustment should land on first day, got %v", first.Date)
	}
	if !got[2].Date.Equal(explicit) {
		t.Errorf("explicit date should win, got %v", got[2].Date)
	}
	for _, tx := range got {
		if tx.Amount.Equal(dec("999")) {
			t.Error("inactive adjustment must be excluded")
		}
	}
}
