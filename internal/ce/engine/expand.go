package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
)

// separatorLabel 分隔行使用零宽空格作为标签，个数递增保证唯一
func separatorLabel(n int) string {
	return strings.Repeat("\u200b", n)
}

// uniqueLabel 展示标签重复时追加代码，仍重复再追加序号
func uniqueLabel(used map[string]struct{}, label, code string) string {
	out := label
	if _, dup := used[out]; dup {
		out = fmt.Sprintf("%s (%s)", label, code)
		for n := 2; ; n++ {
			if _, dup := used[out]; !dup {
				break
			}
			out = fmt.Sprintf("%s (%s #%d)", label, code, n)
		}
	}
	used[out] = struct{}{}
	return out
}

// OrderedCodes schema 行按 order 排序，order 相同时按代码
func OrderedCodes(schema domain.SchemaConfig) []string {
	codes := make([]string, 0, len(schema))
	for c := range schema {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool {
		oi, oj := schema[codes[i]].Order, schema[codes[j]].Order
		if oi != oj {
			return oi < oj
		}
		return codes[i] < codes[j]
	})
	return codes
}

// Expand 按 schema 把基础透视表展开为最终 CE
//
// contabile 行按 [标签, 代码, 覆盖名] 顺序在基础表中查找，找不到按 0 处理；
// subtotale 取 child_codes 之和或自上一个小计以来的累加器，输出后累加器清零；
// totale 使用从不清零的总累加器。
// 展示标签在结果中唯一，重名时追加 " (代码)"。
// schema 为空时原样透传，所有行标记为 contabile。
func Expand(base *domain.Pivot, schema domain.SchemaConfig, lineItemLabels map[string]string) *domain.Pivot {
	months := append([]string(nil), base.Months...)
	if len(schema) == 0 {
		return passthrough(base, months)
	}

	byLabel := make(map[string]*domain.Row, len(base.Rows))
	for i := range base.Rows {
		if _, dup := byLabel[base.Rows[i].Label]; !dup {
			byLabel[base.Rows[i].Label] = &base.Rows[i]
		}
	}

	out := &domain.Pivot{Months: months}
	sub := zeroValues(months)
	tot := zeroValues(months)
	computed := make(map[string]map[string]decimal.Decimal)
	separators := 0
	used := make(map[string]struct{}, len(schema))

	for _, code := range OrderedCodes(schema) {
		e := schema[code]
		lookup := lineItemLabel(lineItemLabels, code)
		display := resolveLabel(lookup, e.LabelOverride)
		if domain.ParseRowType(string(e.Type)) != domain.RowSeparatore {
			display = uniqueLabel(used, display, code)
		}

		switch domain.ParseRowType(string(e.Type)) {
		case domain.RowSeparatore:
			separators++
			out.Rows = append(out.Rows, domain.Row{
				Label: separatorLabel(separators),
				Type:  domain.RowSeparatore,
				Code:  code,
				Blank: true,
			})

		case domain.RowContabile:
			vals := zeroValues(months)
			for _, cand := range []string{lookup, code, e.LabelOverride} {
				if cand == "" {
					continue
				}
				if r, ok := byLabel[cand]; ok {
					vals = cloneValues(months, r.Values)
					break
				}
			}
			if e.Sign.Normalize() == domain.SignMinus {
				for _, m := range months {
					vals[m] = vals[m].Neg()
				}
			}
			for _, m := range months {
				sub[m] = sub[m].Add(vals[m])
				tot[m] = tot[m].Add(vals[m])
			}
			computed[code] = vals
			out.Rows = append(out.Rows, domain.Row{
				Label:  display,
				Type:   domain.RowContabile,
				Code:   code,
				Values: vals,
				Total:  sumValues(months, vals),
			})

		case domain.RowSubtotale, domain.RowTotale:
			t := domain.ParseRowType(string(e.Type))
			var vals map[string]decimal.Decimal
			switch {
			case len(e.ChildCodes) > 0:
				vals = zeroValues(months)
				for _, c := range e.ChildCodes {
					// 尚未出现的代码贡献 0
					child := computed[strings.TrimSpace(c)]
					for _, m := range months {
						vals[m] = vals[m].Add(valueOf(child, m))
					}
				}
			case t == domain.RowSubtotale:
				vals = cloneValues(months, sub)
			default:
				vals = cloneValues(months, tot)
			}
			out.Rows = append(out.Rows, domain.Row{
				Label:  display,
				Type:   t,
				Code:   code,
				Values: vals,
				Total:  sumValues(months, vals),
			})
			if t == domain.RowSubtotale {
				sub = zeroValues(months)
			}
		}
	}
	return out
}

func passthrough(base *domain.Pivot, months []string) *domain.Pivot {
	out := &domain.Pivot{Months: months, Rows: make([]domain.Row, 0, len(base.Rows))}
	for _, r := range base.Rows {
		vals := cloneValues(months, r.Values)
		code := r.Code
		if code == "" {
			code = r.Label
		}
		out.Rows = append(out.Rows, domain.Row{
			Label:  r.Label,
			Type:   domain.RowContabile,
			Code:   code,
			Values: vals,
			Total:  sumValues(months, vals),
		})
	}
	return out
}
