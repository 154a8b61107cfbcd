package engine

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
)

const sampleCodes = 5

// Aggregate 按 (重分类标签, 月份) 汇总交易，生成基础透视表
// 未映射的科目静默丢弃；没有任何交易通过映射时返回 MappingCoverage 错误
func Aggregate(
	txs []domain.Transaction,
	mapping domain.Mapping,
	lineItemLabels map[string]string,
	accountLabels map[string]string,
) (*domain.Pivot, []domain.MappedTransaction, error) {
	m := trimMapping(mapping)

	mapped := make([]domain.MappedTransaction, 0, len(txs))
	for _, tx := range txs {
		code, ok := m[tx.AccountCode]
		if !ok || !usable(code) {
			continue
		}
		label := lineItemLabel(lineItemLabels, code)
		if !usable(label) {
			continue
		}
		mapped = append(mapped, domain.MappedTransaction{
			Transaction:   tx,
			LineItemCode:  code,
			LineItemLabel: label,
			AccountLabel:  resolveLabel(tx.AccountCode, accountLabels[tx.AccountCode]),
		})
	}

	if len(mapped) == 0 {
		return nil, nil, &domain.ReclassError{
			Kind:               domain.KindMappingCoverage,
			Message:            "no ledger account is present in the mapping",
			SampleLedgerCodes:  sampleLedgerCodes(txs, sampleCodes),
			SampleMappingCodes: sampleMappingCodes(m, sampleCodes),
		}
	}

	type acc struct {
		code   string
		values map[string]decimal.Decimal
	}
	groups := make(map[string]*acc)
	monthSet := make(map[string]struct{})

	for _, mt := range mapped {
		month := mt.Period()
		monthSet[month] = struct{}{}

		g, ok := groups[mt.LineItemLabel]
		if !ok {
			g = &acc{code: mt.LineItemCode, values: make(map[string]decimal.Decimal)}
			groups[mt.LineItemLabel] = g
		}
		// 多个代码共用一个标签时取最小的代码，保证结果确定
		if mt.LineItemCode < g.code {
			g.code = mt.LineItemCode
		}
		g.values[month] = valueOf(g.values, month).Add(mt.Amount)
	}

	months := sortedKeys(monthSet)
	labels := make([]string, 0, len(groups))
	for l := range groups {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	p := &domain.Pivot{Months: months, Rows: make([]domain.Row, 0, len(labels))}
	for _, l := range labels {
		g := groups[l]
		vals := zeroValues(months)
		for _, mo := range months {
			vals[mo] = valueOf(g.values, mo)
		}
		p.Rows = append(p.Rows, domain.Row{
			Label:  l,
			Type:   domain.RowContabile,
			Code:   g.code,
			Values: vals,
			Total:  sumValues(months, vals),
		})
	}
	return p, mapped, nil
}

func trimMapping(mapping domain.Mapping) domain.Mapping {
	out := make(domain.Mapping, len(mapping))
	for k, v := range mapping {
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}

// sampleLedgerCodes 按出现顺序取前 n 个不重复的科目代码
func sampleLedgerCodes(txs []domain.Transaction, n int) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, n)
	for _, tx := range txs {
		if len(out) == n {
			break
		}
		if _, ok := seen[tx.AccountCode]; ok {
			continue
		}
		seen[tx.AccountCode] = struct{}{}
		out = append(out, tx.AccountCode)
	}
	return out
}

func sampleMappingCodes(m domain.Mapping, n int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func valueOf(vals map[string]decimal.Decimal, month string) decimal.Decimal {
	if v, ok := vals[month]; ok {
		return v
	}
	return decimal.Zero
}

func zeroValues(months []string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(months))
	for _, m := range months {
		out[m] = decimal.Zero
	}
	return out
}

func cloneValues(months []string, vals map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(months))
	for _, m := range months {
		out[m] = valueOf(vals, m)
	}
	return out
}

// sumValues TOTALE 始终由月份列求和得到
func sumValues(months []string, vals map[string]decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, m := range months {
		sum = sum.Add(valueOf(vals, m))
	}
	return sum
}
