package engine

import (
	"testing"

	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
)

func TestAvailableMonths(t *testing.T) {
	p := sampleCE()
	got := AvailableMonths(p)
	if !equalStrings(got, []string{"2024-01", "2024-02"}) {
		t.Errorf("AvailableMonths = %v", got)
	}
	got[0] = "x"
	if p.Months[0] != "2024-01" {
		t.Error("AvailableMonths must return a copy")
	}
	if AvailableMonths(nil) != nil {
		t.Error("nil pivot should have no months")
	}
}

func TestFindRow(t *testing.T) {
	p := sampleCE()
	schema := domain.SchemaConfig{
		"RIC":    {Order: 1},
		"EBITDA": {Order: 5, KPIRole: RoleEBITDA},
		"GONE":   {Order: 9, KPIRole: RoleEBIT},
	}

	tests := []struct {
		name      string
		find      func() (*domain.Row, bool)
		wantOK    bool
		wantLabel string
	}{
		{"by code", func() (*domain.Row, bool) { return FindRowByCode(p, "PER") }, true, "Costo del personale"},
		{"by unknown code", func() (*domain.Row, bool) { return FindRowByCode(p, "NOPE") }, false, ""},
		{"by role", func() (*domain.Row, bool) { return FindRowByRole(p, schema, RoleEBITDA) }, true, "MOL"},
		{"role whose code is absent", func() (*domain.Row, bool) { return FindRowByRole(p, schema, RoleEBIT) }, false, ""},
		{"keywords case-insensitive", func() (*domain.Row, bool) { return FindRowByKeywords(p, []string{"MERCI"}) }, true, "Acquisti merci"},
		{"empty keyword matches first row", func() (*domain.Row, bool) { return FindRowByKeywords(p, []string{""}) }, true, "Ricavi vendite"},
		{"role falls back to keywords", func() (*domain.Row, bool) {
			return FindRole(p, schema, RoleEBIT, []string{"reddito operativo"})
		}, true, "Reddito operativo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := tt.find()
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && r.Label != tt.wantLabel {
				t.Errorf("label = %q, want %q", r.Label, tt.wantLabel)
			}
		})
	}
}

func TestSumRole(t *testing.T) {
	p := sampleCE()
	got := SumRole(p, nil, RoleRicavi, []string{"ricav"}, []string{"2024-01", "2024-02", "TOTALE"})
	if !got.Equal(dec("2200")) {
		t.Errorf("SumRole = %s, want 2200", got)
	}
	if got := SumRole(p, nil, "x", []string{"inesistente"}, p.Months); !got.IsZero() {
		t.Errorf("missing role should sum to zero, got %s", got)
	}
	sep, _ := FindRowByCode(p, "SEP")
	if got := SumRow(p, sep, p.Months); !got.IsZero() {
		t.Errorf("separator sum = %s", got)
	}
}
