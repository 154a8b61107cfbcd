package engine

import "testing"

func TestResolveColumn(t *testing.T) {
	tests := []struct {
		name       string
		columns    []string
		candidates []string
		wantOK     bool
		wantIndex  int
		wantTier   MatchTier
	}{
		{
			name:       "exact wins over case-insensitive",
			columns:    []string{"DATA", "Data"},
			candidates: []string{"Data"},
			wantOK:     true, wantIndex: 1, wantTier: TierExact,
		},
		{
			name:       "case-insensitive with padding",
			columns:    []string{" importo ", "conto"},
			candidates: []string{"Importo"},
			wantOK:     true, wantIndex: 0, wantTier: TierCaseInsensitive,
		},
		{
			name:       "substring as last resort",
			columns:    []string{"Descrizione", "Saldo Finale"},
			candidates: []string{"Saldo"},
			wantOK:     true, wantIndex: 1, wantTier: TierSubstring,
		},
		{
			name:       "earlier candidate wins within a tier",
			columns:    []string{"Importo", "Saldo"},
			candidates: LedgerAmountAliases,
			wantOK:     true, wantIndex: 1, wantTier: TierExact,
		},
		{
			name:       "exact tier beats an earlier candidate's substring",
			columns:    []string{"SaldoProgressivo", "Importo"},
			candidates: []string{"Saldo", "Importo"},
			wantOK:     true, wantIndex: 1, wantTier: TierExact,
		},
		{
			name:       "not found",
			columns:    []string{"foo", "bar"},
			candidates: LedgerDateAliases,
			wantOK:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveColumn(tt.columns, tt.candidates)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Index != tt.wantIndex || got.Tier != tt.wantTier {
				t.Errorf("got index=%d tier=%d, want index=%d tier=%d", got.Index, got.Tier, tt.wantIndex, tt.wantTier)
			}
			if got.Name != tt.columns[tt.wantIndex] {
				t.Errorf("Name = %q, want %q", got.Name, tt.columns[tt.wantIndex])
			}
		})
	}
}

func TestResolveOtherSkipsExcluded(t *testing.T) {
	cols := []string{"Conto", "Nome"}
	code, ok := ResolveColumn(cols, AccountCodeAliases)
	if !ok || code.Index != 0 {
		t.Fatalf("code column = %+v, %v", code, ok)
	}
	desc, ok := resolveOther(cols, AccountDescAliases, code.Index)
	if !ok || desc.Index != 1 || desc.Name != "Nome" {
		t.Errorf("desc column = %+v, %v", desc, ok)
	}
}
