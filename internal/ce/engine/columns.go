package engine

import "strings"

// MatchTier 列名匹配的层级，数值越小越精确
type MatchTier int

const (
	TierExact MatchTier = iota + 1
	TierCaseInsensitive
	TierSubstring
)

// ColumnRef 解析出的列
type ColumnRef struct {
	Index int
	Name  string
	Tier  MatchTier
}

// 各逻辑字段的别名，顺序即优先级
var (
	LedgerDateAliases    = []string{"Data", "data", "DATA", "DataDoc", "DataRegistrazione", "data_registrazione", "DataReg", "Competenza", "Date"}
	LedgerAmountAliases  = []string{"Saldo", "saldo", "SALDO", "Importo", "importo", "Valore", "valore", "ImportoMovimento", "Totale", "Amount"}
	LedgerAccountAliases = []string{"Conto", "conto", "CONTO", "CodConto", "CodiceConto", "codice_conto", "Mastro", "mastro", "Account"}
	LedgerSiteAliases    = []string{"Sito", "sito", "Sede", "sede", "Site"}

	AccountCodeAliases = []string{"Codice", "codice", "CodConto", "Conto", "conto", "ID"}
	AccountDescAliases = []string{"Descrizione", "descrizione", "Nome", "nome", "Conto", "conto"}

	LineItemCodeAliases = []string{"Codice", "codice", "ID", "id", "Voce", "voce"}
	LineItemDescAliases = []string{"Descrizione", "descrizione", "Nome", "nome", "Label", "label"}
)

// ResolveColumn 三级匹配：精确 → 忽略大小写 → 子串
// 每一级内按候选顺序，先命中者胜出；子串匹配为候选包含于列名 (忽略大小写)
func ResolveColumn(columns []string, candidates []string) (ColumnRef, bool) {
	for _, c := range candidates {
		for i, col := range columns {
			if col == c {
				return ColumnRef{Index: i, Name: col, Tier: TierExact}, true
			}
		}
	}

	for _, c := range candidates {
		want := strings.ToLower(strings.TrimSpace(c))
		for i, col := range columns {
			if strings.ToLower(strings.TrimSpace(col)) == want {
				return ColumnRef{Index: i, Name: col, Tier: TierCaseInsensitive}, true
			}
		}
	}

	for _, c := range candidates {
		want := strings.ToLower(strings.TrimSpace(c))
		if want == "" {
			continue
		}
		for i, col := range columns {
			if strings.Contains(strings.ToLower(col), want) {
				return ColumnRef{Index: i, Name: col, Tier: TierSubstring}, true
			}
		}
	}
	return ColumnRef{}, false
}

// resolveOther 解析与 exclude 不同的列 (科目表中代码列与描述列可能共用别名 "Conto")
func resolveOther(columns []string, candidates []string, exclude int) (ColumnRef, bool) {
	masked := make([]string, len(columns))
	copy(masked, columns)
	if exclude >= 0 && exclude < len(masked) {
		masked[exclude] = ""
	}
	ref, ok := ResolveColumn(masked, candidates)
	if !ok {
		return ColumnRef{}, false
	}
	ref.Name = columns[ref.Index]
	return ref, true
}
