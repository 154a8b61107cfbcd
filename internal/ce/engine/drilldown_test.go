package engine

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
)

func TestDrillDownReconciliation(t *testing.T) {
	in := fullInput()
	res, err := Reclassify(in)
	if err != nil {
		t.Fatalf("Reclassify: %v", err)
	}

	contabili := 0
	for _, r := range res.Pivot.Rows {
		dd, ok := res.DrillDown[r.Label]
		if r.Type != domain.RowContabile {
			if ok {
				t.Errorf("non-contabile row %q has a drill-down", r.Label)
			}
			continue
		}
		contabili++
		if !ok {
			t.Fatalf("contabile row %q has no drill-down", r.Label)
		}
		// 钻取表是原始金额，父行已乘以符号
		sign := decimal.NewFromInt(int64(in.Schema[r.Code].Sign.Normalize()))
		if got := dd.Total().Mul(sign); !got.Equal(r.Total) {
			t.Errorf("row %q: drill-down total %s (signed) != TOTALE %s", r.Label, got, r.Total)
		}
		for _, dr := range dd.Rows {
			if !sumValues(dd.Months, dr.Values).Equal(dr.Total) {
				t.Errorf("drill row %q TOTALE mismatch", dr.Label)
			}
		}
	}
	if contabili != 2 {
		t.Errorf("contabile rows = %d, want 2", contabili)
	}

	per := res.DrillDown["Personale"]
	if got := per.Labels(); !equalStrings(got, []string{"700 — Salari", "710 — 710"}) {
		t.Errorf("Personale drill-down rows = %v", got)
	}
	if !equalStrings(per.Months, []string{"2024-01", "2024-02"}) {
		t.Errorf("Personale months = %v", per.Months)
	}

	ric := res.DrillDown["Ricavi"]
	if !equalStrings(ric.Labels(), []string{"600 — Vendite Italia", "601 — Vendite Estero"}) {
		t.Errorf("Ricavi drill-down rows = %v", ric.Labels())
	}
}

func TestDrillDownLabelRenameStability(t *testing.T) {
	in := fullInput()
	before, err := Reclassify(in)
	if err != nil {
		t.Fatalf("Reclassify: %v", err)
	}

	e := in.Schema["PER"]
	e.LabelOverride = "Costo del lavoro"
	in.Schema["PER"] = e

	after, err := Reclassify(in)
	if err != nil {
		t.Fatalf("Reclassify after rename: %v", err)
	}
	if _, ok := after.Pivot.Row("Costo del lavoro"); !ok {
		t.Fatalf("renamed row missing: %v", after.Pivot.Labels())
	}

	old := before.DrillDown["Personale"]
	renamed, ok := after.DrillDown["Costo del lavoro"]
	if !ok {
		t.Fatal("drill-down not keyed by the new display label")
	}
	if !equalStrings(old.Labels(), renamed.Labels()) || !old.Total().Equal(renamed.Total()) {
		t.Errorf("rename changed drill-down: before %v (%s), after %v (%s)",
			old.Labels(), old.Total(), renamed.Labels(), renamed.Total())
	}
}

func TestDrillDownEmptyRow(t *testing.T) {
	expanded := &domain.Pivot{
		Months: testMonths,
		Rows:   []domain.Row{{Label: "Vuota", Type: domain.RowContabile, Code: "V"}},
	}
	got := BuildDrillDown(nil, expanded, domain.SchemaConfig{"V": {Order: 1}}, nil)
	dd, ok := got["Vuota"]
	if !ok {
		t.Fatal("contabile row without transactions should still have an entry")
	}
	if len(dd.Rows) != 0 || !dd.Total().IsZero() {
		t.Errorf("expected empty drill-down, got %+v", dd)
	}
}

func TestDrillDownSharedDisplayLabel(t *testing.T) {
	in := Input{
		Ledger: domain.Table{
			Columns: []string{"Data", "Conto", "Importo"},
			Rows: [][]string{
				{"15/01/2024", "600", "100"},
				{"15/01/2024", "700", "40"},
			},
		},
		Mapping: domain.Mapping{"600": "A", "700": "B"},
		Schema: domain.SchemaConfig{
			"A": {Order: 1, Type: domain.RowContabile, LabelOverride: "Altri"},
			"B": {Order: 2, Type: domain.RowContabile, LabelOverride: "Altri"},
		},
	}
	res, err := Reclassify(in)
	if err != nil {
		t.Fatalf("Reclassify: %v", err)
	}
	if len(res.DrillDown) != 2 {
		t.Fatalf("drill-down keys = %d, want 2 (rows %v)", len(res.DrillDown), res.Pivot.Labels())
	}
	for _, r := range res.Pivot.Rows {
		dd, ok := res.DrillDown[r.Label]
		if !ok {
			t.Fatalf("row %q has no drill-down", r.Label)
		}
		if !dd.Total().Equal(r.Total) {
			t.Errorf("row %q: drill-down total %s != TOTALE %s", r.Label, dd.Total(), r.Total)
		}
	}
}
