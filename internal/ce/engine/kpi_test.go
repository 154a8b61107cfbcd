package engine

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
)

type testRow struct {
	code, label string
	typ         domain.RowType
	vals        []string
}

func pivotOf(months []string, rows ...testRow) *domain.Pivot {
	p := &domain.Pivot{Months: months}
	for _, tr := range rows {
		r := domain.Row{Label: tr.label, Code: tr.code, Type: tr.typ}
		if tr.typ == domain.RowSeparatore {
			r.Blank = true
		} else {
			r.Values = make(map[string]decimal.Decimal, len(months))
			for i, m := range months {
				r.Values[m] = dec(tr.vals[i])
			}
			r.Total = sumValues(months, r.Values)
		}
		p.Rows = append(p.Rows, r)
	}
	return p
}

func sampleCE() *domain.Pivot {
	return pivotOf([]string{"2024-01", "2024-02"},
		testRow{"RIC", "Ricavi vendite", domain.RowContabile, []string{"1000", "1200"}},
		testRow{"PER", "Costo del personale", domain.RowContabile, []string{"-300", "-300"}},
		testRow{"ACQ", "Acquisti merci", domain.RowContabile, []string{"-200", "-250"}},
		testRow{"SEP", "", domain.RowSeparatore, nil},
		testRow{"EBITDA", "MOL", domain.RowSubtotale, []string{"500", "650"}},
		testRow{"EBIT", "Reddito operativo", domain.RowSubtotale, []string{"400", "550"}},
		testRow{"UN", "Utile netto", domain.RowTotale, []string{"300", "400"}},
	)
}

func TestComputeKPIs(t *testing.T) {
	k := ComputeKPIs(sampleCE(), []string{"2024-01", "2024-02"}, nil)
	if k == nil {
		t.Fatal("ComputeKPIs returned nil")
	}

	tests := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"ricavi", k.Ricavi, "2200"},
		{"ebitda", k.EBITDA, "1150"},
		{"ebit", k.EBIT, "950"},
		{"utile_netto", k.UtileNetto, "700"},
		{"personale", k.Personale, "-600"},
		{"acquisti", k.Acquisti, "-450"},
		{"ebitda_margin", k.EBITDAMargin, "52.27"},
		{"ebit_margin", k.EBITMargin, "43.18"},
		{"net_margin", k.NetMargin, "31.82"},
		{"cost_labor_pct", k.CostLaborPct, "27.27"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.got.Equal(dec(tt.want)) {
				t.Errorf("%s = %s, want %s", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestComputeKPIsMonthSelection(t *testing.T) {
	p := sampleCE()
	k := ComputeKPIs(p, []string{"2024-02", "2099-01", domain.ColumnTotal}, nil)
	if k == nil {
		t.Fatal("ComputeKPIs returned nil")
	}
	if !k.Ricavi.Equal(dec("1200")) || !equalStrings(k.Months, []string{"2024-02"}) {
		t.Errorf("Ricavi = %s, Months = %v", k.Ricavi, k.Months)
	}
	if ComputeKPIs(p, []string{"2099-01"}, nil) != nil {
		t.Error("no valid month should yield nil")
	}
}

func TestComputeKPIsRolePrecedence(t *testing.T) {
	p := sampleCE()
	// kpi_role 优先于关键字
	schema := domain.SchemaConfig{"ACQ": {Order: 1, KPIRole: RoleRicavi}}
	k := ComputeKPIs(p, p.Months, schema)
	if !k.Ricavi.Equal(dec("-450")) {
		t.Errorf("Ricavi = %s, want role-resolved -450", k.Ricavi)
	}
}

func TestMargin(t *testing.T) {
	tests := []struct {
		num, den, want string
	}{
		{"50", "200", "25"},
		{"1", "3", "33.33"},
		{"5", "0.01", "0"},
		{"5", "-0.005", "0"},
		{"-10", "-40", "25"},
	}
	for _, tt := range tests {
		if got := Margin(dec(tt.num), dec(tt.den)); !got.Equal(dec(tt.want)) {
			t.Errorf("Margin(%s, %s) = %s, want %s", tt.num, tt.den, got, tt.want)
		}
	}
}

func TestEBITDABridge(t *testing.T) {
	b := EBITDABridge(sampleCE(), []string{"2024-02"}, []string{"2024-01"}, nil)
	if b == nil {
		t.Fatal("EBITDABridge returned nil")
	}
	checks := map[string]struct {
		got  decimal.Decimal
		want string
	}{
		"ebitda_prec":     {b.EBITDAPrevious, "500"},
		"ebitda_att":      {b.EBITDACurrent, "650"},
		"delta_ricavi":    {b.DeltaRicavi, "200"},
		"delta_personale": {b.DeltaPersonale, "0"},
		"delta_acquisti":  {b.DeltaAcquisti, "50"},
		"delta_altri":     {b.DeltaAltri, "-100"},
	}
	for name, c := range checks {
		if !c.got.Equal(dec(c.want)) {
			t.Errorf("%s = %s, want %s", name, c.got, c.want)
		}
	}
	sum := b.DeltaRicavi.Add(b.DeltaPersonale).Add(b.DeltaAcquisti).Add(b.DeltaAltri)
	if !sum.Equal(b.EBITDACurrent.Sub(b.EBITDAPrevious)) {
		t.Errorf("bridge does not close: %s", sum)
	}
}
