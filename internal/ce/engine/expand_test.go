package engine

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
)

var testMonths = []string{"2024-01", "2024-02"}

func row(label, code string, jan, feb string) domain.Row {
	vals := map[string]decimal.Decimal{"2024-01": dec(jan), "2024-02": dec(feb)}
	return domain.Row{Label: label, Type: domain.RowContabile, Code: code, Values: vals, Total: sumValues(testMonths, vals)}
}

func basePivot() *domain.Pivot {
	return &domain.Pivot{
		Months: testMonths,
		Rows: []domain.Row{
			row("Alfa", "A", "100", "200"),
			row("Beta", "B", "10", "20"),
			row("Gamma", "C", "1", "2"),
		},
	}
}

var testLabels = map[string]string{"A": "Alfa", "B": "Beta", "C": "Gamma"}

func mustRow(t *testing.T, p *domain.Pivot, label string) *domain.Row {
	t.Helper()
	r, ok := p.Row(label)
	if !ok {
		t.Fatalf("row %q not found in %v", label, p.Labels())
	}
	return r
}

func assertRow(t *testing.T, r *domain.Row, jan, feb string) {
	t.Helper()
	if !r.Value("2024-01").Equal(dec(jan)) || !r.Value("2024-02").Equal(dec(feb)) {
		t.Errorf("%s = [%s %s], want [%s %s]", r.Label, r.Value("2024-01"), r.Value("2024-02"), jan, feb)
	}
}

func assertTotalInvariant(t *testing.T, p *domain.Pivot) {
	t.Helper()
	for _, r := range p.Rows {
		if r.Blank {
			continue
		}
		if !sumValues(p.Months, r.Values).Equal(r.Total) {
			t.Errorf("row %q: sum of months %s != TOTALE %s", r.Label, sumValues(p.Months, r.Values), r.Total)
		}
	}
}

func TestExpandSubtotalReset(t *testing.T) {
	schema := domain.SchemaConfig{
		"A":    {Order: 1, Type: domain.RowContabile, Sign: domain.SignPlus},
		"SUB1": {Order: 2, Type: domain.RowSubtotale, Sign: domain.SignPlus},
		"B":    {Order: 3, Type: domain.RowContabile, Sign: domain.SignPlus},
		"SUB2": {Order: 4, Type: domain.RowSubtotale, Sign: domain.SignPlus},
		"TOT":  {Order: 5, Type: domain.RowTotale, Sign: domain.SignPlus},
	}
	p := Expand(basePivot(), schema, testLabels)

	if got, want := p.Labels(), []string{"Alfa", "SUB1", "Beta", "SUB2", "TOT"}; !equalStrings(got, want) {
		t.Fatalf("Labels = %v, want %v", got, want)
	}
	assertRow(t, mustRow(t, p, "SUB1"), "100", "200")
	// SUB1 之后累加器清零，SUB2 只包含 B
	assertRow(t, mustRow(t, p, "SUB2"), "10", "20")
	assertRow(t, mustRow(t, p, "TOT"), "110", "220")
	assertTotalInvariant(t, p)

	for _, r := range p.Rows {
		if r.Code == "" {
			t.Errorf("row %q has no _cod", r.Label)
		}
	}
	if mustRow(t, p, "TOT").Type != domain.RowTotale {
		t.Error("TOT should carry _tipo totale")
	}
}

func TestExpandSignApplication(t *testing.T) {
	schema := domain.SchemaConfig{
		"A":   {Order: 1, Type: domain.RowContabile, Sign: domain.SignPlus},
		"B":   {Order: 2, Type: domain.RowContabile, Sign: domain.SignMinus},
		"SUB": {Order: 3, Type: domain.RowSubtotale},
		"TOT": {Order: 4, Type: domain.RowTotale},
	}
	p := Expand(basePivot(), schema, testLabels)

	assertRow(t, mustRow(t, p, "Beta"), "-10", "-20")
	if !mustRow(t, p, "Beta").Total.Equal(dec("-30")) {
		t.Errorf("Beta TOTALE = %s", mustRow(t, p, "Beta").Total)
	}
	assertRow(t, mustRow(t, p, "SUB"), "90", "180")
	assertRow(t, mustRow(t, p, "TOT"), "90", "180")
}

func TestExpandChildCodes(t *testing.T) {
	schema := domain.SchemaConfig{
		// FWD 引用了后面才出现的 C，贡献为 0
		"FWD": {Order: 1, Type: domain.RowSubtotale, ChildCodes: []string{"A", "C"}},
		"A":   {Order: 2, Type: domain.RowContabile},
		"B":   {Order: 3, Type: domain.RowContabile},
		"C":   {Order: 4, Type: domain.RowContabile, Sign: domain.SignMinus},
		"AC":  {Order: 5, Type: domain.RowTotale, ChildCodes: []string{"A", "C", "MISSING"}},
		"SUB": {Order: 6, Type: domain.RowSubtotale},
	}
	p := Expand(basePivot(), schema, testLabels)

	assertRow(t, mustRow(t, p, "FWD"), "0", "0")
	assertRow(t, mustRow(t, p, "AC"), "99", "198")
	// child_codes 不影响累加器，SUB 覆盖 A、B、C
	assertRow(t, mustRow(t, p, "SUB"), "109", "218")
	assertTotalInvariant(t, p)
}

func TestExpandSeparatorUniqueness(t *testing.T) {
	schema := domain.SchemaConfig{
		"A":    {Order: 1, Type: domain.RowContabile},
		"SEP1": {Order: 2, Type: domain.RowSeparatore},
		"B":    {Order: 3, Type: domain.RowContabile},
		"SEP2": {Order: 4, Type: domain.RowSeparatore},
	}
	p := Expand(basePivot(), schema, testLabels)

	if len(p.Rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(p.Rows))
	}
	seen := make(map[string]bool)
	seps := 0
	for _, r := range p.Rows {
		if seen[r.Label] {
			t.Errorf("duplicate label %q", r.Label)
		}
		seen[r.Label] = true
		if r.Type == domain.RowSeparatore {
			seps++
			if !r.Blank || r.Values != nil {
				t.Errorf("separator %q should be blank", r.Code)
			}
		}
	}
	if seps != 2 {
		t.Errorf("separators = %d, want 2", seps)
	}
}

func TestExpandLookupChain(t *testing.T) {
	base := &domain.Pivot{
		Months: testMonths,
		Rows: []domain.Row{
			row("Alfa", "A", "100", "200"),
			row("X", "X", "5", "5"),
			row("Vecchio nome", "Y", "7", "7"),
		},
	}
	schema := domain.SchemaConfig{
		"A": {Order: 1, Type: domain.RowContabile, LabelOverride: "Ricavi netti"},
		"X": {Order: 2, Type: domain.RowContabile},
		"Z": {Order: 3, Type: domain.RowContabile, LabelOverride: "Vecchio nome"},
		"N": {Order: 4, Type: domain.RowContabile},
	}
	p := Expand(base, schema, map[string]string{"A": "Alfa", "X": "Ics"})

	// 展示用覆盖名，查找用原始标签
	assertRow(t, mustRow(t, p, "Ricavi netti"), "100", "200")
	// 标签找不到时用代码
	assertRow(t, mustRow(t, p, "Ics"), "5", "5")
	// 最后才用覆盖名
	assertRow(t, mustRow(t, p, "Vecchio nome"), "7", "7")
	// 缺失的科目按 0 处理，不报错
	assertRow(t, mustRow(t, p, "N"), "0", "0")
}

func TestExpandOrderTieBreak(t *testing.T) {
	schema := domain.SchemaConfig{
		"B": {Order: 1, Type: domain.RowContabile},
		"A": {Order: 1, Type: domain.RowContabile},
		"C": {Order: 0, Type: domain.RowContabile},
	}
	got := Expand(basePivot(), schema, testLabels).Labels()
	if want := []string{"Gamma", "Alfa", "Beta"}; !equalStrings(got, want) {
		t.Errorf("Labels = %v, want %v", got, want)
	}
}

func TestExpandEmptySchemaPassthrough(t *testing.T) {
	base := basePivot()
	p := Expand(base, nil, testLabels)

	if got, want := p.Labels(), base.Labels(); !equalStrings(got, want) {
		t.Fatalf("Labels = %v, want %v", got, want)
	}
	for _, r := range p.Rows {
		if r.Type != domain.RowContabile {
			t.Errorf("row %q _tipo = %q, want contabile", r.Label, r.Type)
		}
	}
	if mustRow(t, p, "Beta").Code != "B" {
		t.Errorf("passthrough should keep the line-item code")
	}

	// 不能修改基础透视表
	p.Rows[0].Values["2024-01"] = dec("-1")
	if !base.Rows[0].Value("2024-01").Equal(dec("100")) {
		t.Error("passthrough shares value maps with the base pivot")
	}
}

func TestExpandDuplicateDisplayLabels(t *testing.T) {
	schema := domain.SchemaConfig{
		"A":   {Order: 1, Type: domain.RowContabile, LabelOverride: "Altri"},
		"B":   {Order: 2, Type: domain.RowContabile, LabelOverride: "Altri"},
		"C":   {Order: 3, Type: domain.RowContabile, LabelOverride: "Altri"},
		"TOT": {Order: 4, Type: domain.RowTotale, LabelOverride: "Altri"},
	}
	got := Expand(basePivot(), schema, testLabels)

	want := []string{"Altri", "Altri (B)", "Altri (C)", "Altri (TOT)"}
	if !equalStrings(got.Labels(), want) {
		t.Fatalf("labels = %v, want %v", got.Labels(), want)
	}
	assertRow(t, mustRow(t, got, "Altri"), "100", "200")
	assertRow(t, mustRow(t, got, "Altri (B)"), "10", "20")
	assertRow(t, mustRow(t, got, "Altri (TOT)"), "111", "222")
}

func TestUniqueLabel(t *testing.T) {
	used := map[string]struct{}{}
	got := []string{
		uniqueLabel(used, "Altri", "X"),
		uniqueLabel(used, "Altri", "X"),
		uniqueLabel(used, "Altri", "X"),
	}
	want := []string{"Altri", "Altri (X)", "Altri (X #2)"}
	if !equalStrings(got, want) {
		t.Errorf("uniqueLabel = %v, want %v", got, want)
	}
}
