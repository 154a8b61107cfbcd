package engine

import (
	"errors"
	"testing"

	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
)

func TestBuildLineItemLabels(t *testing.T) {
	items := []domain.LineItem{
		{Code: "RIC", Description: "Ricavi"},
		{Code: "PER", Description: "Personale", LabelOverride: "Costo del lavoro"},
		{Code: "ALT", Description: "nan"},
		{Code: "X", Description: "None", LabelOverride: " "},
		{Code: "nan", Description: "scartato"},
		{Code: "", Description: "scartato"},
	}
	got := BuildLineItemLabels(items)

	want := map[string]string{
		"RIC": "Ricavi",
		"PER": "Costo del lavoro",
		"ALT": "ALT",
		"X":   "X",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d labels (%v), want %d", len(got), got, len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("label[%q] = %q, want %q", k, got[k], v)
		}
	}
}

func TestBuildAccountLabels(t *testing.T) {
	got := BuildAccountLabels([]domain.Account{
		{Code: " 600 ", Description: "Vendite Italia"},
		{Code: "700", Description: ""},
		{Code: "none", Description: "x"},
	})
	if got["600"] != "Vendite Italia" {
		t.Errorf("600 = %q", got["600"])
	}
	if got["700"] != "700" {
		t.Errorf("700 should fall back to code, got %q", got["700"])
	}
	if _, ok := got["none"]; ok {
		t.Error("unusable code should be skipped")
	}
}

func TestAccountsFromTable(t *testing.T) {
	tbl := domain.Table{
		Columns: []string{"Conto", "Descrizione"},
		Rows: [][]string{
			{"600", "Vendite"},
			{"", "riga vuota"},
			{"610", "Altri ricavi"},
		},
	}
	got, err := AccountsFromTable(tbl)
	if err != nil {
		t.Fatalf("AccountsFromTable: %v", err)
	}
	if len(got) != 2 || got[0].Code != "600" || got[1].Description != "Altri ricavi" {
		t.Errorf("got %+v", got)
	}

	_, err = AccountsFromTable(domain.Table{Columns: []string{"foo"}})
	if !errors.Is(err, domain.ErrColumnResolution) {
		t.Errorf("err = %v, want ErrColumnResolution", err)
	}
}

func TestLineItemsFromTable(t *testing.T) {
	tbl := domain.Table{
		Columns: []string{"ID", "Label"},
		Rows:    [][]string{{"RIC", "Ricavi"}, {"EBITDA", ""}},
	}
	got, err := LineItemsFromTable(tbl)
	if err != nil {
		t.Fatalf("LineItemsFromTable: %v", err)
	}
	labels := BuildLineItemLabels(got)
	if labels["RIC"] != "Ricavi" || labels["EBITDA"] != "EBITDA" {
		t.Errorf("labels = %v", labels)
	}
}
