package engine

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
)

// BuildDrillDown 为每个 contabile 行按总账科目重新汇总
//
// 通过 _cod → 原始标签找回交易，而不是展示标签，
// 因此用户在 schema 编辑器里改名不会影响钻取结果。
// 数值为未经符号调整的原始金额。
func BuildDrillDown(
	mapped []domain.MappedTransaction,
	expanded *domain.Pivot,
	schema domain.SchemaConfig,
	lineItemLabels map[string]string,
) map[string]domain.DrillDownTable {
	byLabel := make(map[string][]domain.MappedTransaction)
	for _, mt := range mapped {
		byLabel[mt.LineItemLabel] = append(byLabel[mt.LineItemLabel], mt)
	}

	out := make(map[string]domain.DrillDownTable)
	for _, row := range expanded.Rows {
		if row.Type != domain.RowContabile {
			continue
		}

		candidates := []string{row.Label}
		if row.Code != "" {
			orig := lineItemLabel(lineItemLabels, row.Code)
			candidates = []string{orig, row.Code}
			if e, ok := schema[row.Code]; ok && e.LabelOverride != "" {
				candidates = append(candidates, e.LabelOverride)
			}
			candidates = append(candidates, row.Label)
		}

		var subset []domain.MappedTransaction
		for _, c := range candidates {
			if s, ok := byLabel[c]; ok {
				subset = s
				break
			}
		}
		out[row.Label] = pivotByAccount(subset)
	}
	return out
}

// pivotByAccount 科目 × 月份，月份只包含该子集中出现的月份
func pivotByAccount(txs []domain.MappedTransaction) domain.DrillDownTable {
	monthSet := make(map[string]struct{})
	type acc struct {
		code   string
		values map[string]decimal.Decimal
	}
	groups := make(map[string]*acc)

	for _, mt := range txs {
		month := mt.Period()
		monthSet[month] = struct{}{}
		key := mt.AccountDisplay()
		g, ok := groups[key]
		if !ok {
			g = &acc{code: mt.AccountCode, values: make(map[string]decimal.Decimal)}
			groups[key] = g
		}
		g.values[month] = valueOf(g.values, month).Add(mt.Amount)
	}

	months := sortedKeys(monthSet)
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := domain.DrillDownTable{Months: months, Rows: make([]domain.DrillDownRow, 0, len(keys))}
	for _, k := range keys {
		g := groups[k]
		vals := cloneValues(months, g.values)
		t.Rows = append(t.Rows, domain.DrillDownRow{
			Label:       k,
			AccountCode: g.code,
			Values:      vals,
			Total:       sumValues(months, vals),
		})
	}
	return t
}
