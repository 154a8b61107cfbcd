package engine

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
)

// AvailableMonths 透视表中的月份列 (不含 TOTALE/_tipo/_cod)
func AvailableMonths(p *domain.Pivot) []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.Months...)
}

// FindRowByCode 按 _cod 查找
func FindRowByCode(p *domain.Pivot, code string) (*domain.Row, bool) {
	if p == nil {
		return nil, false
	}
	for i := range p.Rows {
		if p.Rows[i].Code == code {
			return &p.Rows[i], true
		}
	}
	return nil, false
}

// FindRowByRole 按 schema 中显式的 kpi_role 查找
func FindRowByRole(p *domain.Pivot, schema domain.SchemaConfig, role string) (*domain.Row, bool) {
	if p == nil || len(schema) == 0 || role == "" {
		return nil, false
	}
	for _, code := range OrderedCodes(schema) {
		if schema[code].KPIRole != role {
			continue
		}
		if r, ok := FindRowByCode(p, code); ok {
			return r, true
		}
	}
	return nil, false
}

// FindRowByKeywords 标签关键字匹配 (忽略大小写)，只考虑有数值的行
func FindRowByKeywords(p *domain.Pivot, keywords []string) (*domain.Row, bool) {
	if p == nil {
		return nil, false
	}
	for i := range p.Rows {
		r := &p.Rows[i]
		if r.Type == domain.RowSeparatore {
			continue
		}
		label := strings.ToLower(r.Label)
		for _, k := range keywords {
			if strings.Contains(label, strings.ToLower(k)) {
				return r, true
			}
		}
	}
	return nil, false
}

// SumRow 指定月份的合计，不存在的月份忽略
func SumRow(p *domain.Pivot, r *domain.Row, months []string) decimal.Decimal {
	if p == nil || r == nil || r.Blank {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, m := range validMonths(p, months) {
		sum = sum.Add(r.Value(m))
	}
	return sum
}

// FindRole 先按 kpi_role，再按关键字
func FindRole(p *domain.Pivot, schema domain.SchemaConfig, role string, keywords []string) (*domain.Row, bool) {
	if r, ok := FindRowByRole(p, schema, role); ok {
		return r, true
	}
	return FindRowByKeywords(p, keywords)
}

// SumRole 某个 KPI 角色在月份区间内的合计，找不到对应行时为 0
func SumRole(p *domain.Pivot, schema domain.SchemaConfig, role string, keywords []string, months []string) decimal.Decimal {
	r, ok := FindRole(p, schema, role, keywords)
	if !ok {
		return decimal.Zero
	}
	return SumRow(p, r, months)
}

// validMonths 过滤掉透视表中不存在的列，保持调用方顺序
func validMonths(p *domain.Pivot, months []string) []string {
	known := make(map[string]struct{}, len(p.Months))
	for _, m := range p.Months {
		known[m] = struct{}{}
	}
	out := make([]string, 0, len(months))
	for _, m := range months {
		if _, ok := known[m]; ok {
			out = append(out, m)
		}
	}
	return out
}
