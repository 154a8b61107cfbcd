package engine

import (
	"strings"

	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
)

// usable 排除空值以及表格导出中常见的 "nan"/"none" 占位符
func usable(s string) bool {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "none":
		return false
	}
	return true
}

// resolveLabel 依次取第一个可用的候选，都不可用时退回到代码本身
func resolveLabel(code string, candidates ...string) string {
	for _, c := range candidates {
		if usable(c) {
			return strings.TrimSpace(c)
		}
	}
	return code
}

// BuildLineItemLabels 重分类代码 → 展示标签 (覆盖名 > 描述 > 代码)
func BuildLineItemLabels(items []domain.LineItem) map[string]string {
	out := make(map[string]string, len(items))
	for _, it := range items {
		code := strings.TrimSpace(it.Code)
		if !usable(code) {
			continue
		}
		out[code] = resolveLabel(code, it.LabelOverride, it.Description)
	}
	return out
}

// BuildAccountLabels 总账科目代码 → 描述
func BuildAccountLabels(accounts []domain.Account) map[string]string {
	out := make(map[string]string, len(accounts))
	for _, a := range accounts {
		code := strings.TrimSpace(a.Code)
		if !usable(code) {
			continue
		}
		out[code] = resolveLabel(code, a.Description)
	}
	return out
}

// lineItemLabel 代码 → 标签，未登记的代码用代码本身
func lineItemLabel(labels map[string]string, code string) string {
	if l, ok := labels[code]; ok {
		return l
	}
	return code
}

// AccountsFromTable 把上传的科目表转换为 Account 列表
func AccountsFromTable(t domain.Table) ([]domain.Account, error) {
	code, ok := ResolveColumn(t.Columns, AccountCodeAliases)
	if !ok {
		return nil, columnError([]string{"codice"}, t.Columns)
	}
	desc, hasDesc := resolveOther(t.Columns, AccountDescAliases, code.Index)

	out := make([]domain.Account, 0, len(t.Rows))
	for i := range t.Rows {
		a := domain.Account{Code: strings.TrimSpace(t.Cell(i, code.Index))}
		if !usable(a.Code) {
			continue
		}
		if hasDesc {
			a.Description = strings.TrimSpace(t.Cell(i, desc.Index))
		}
		out = append(out, a)
	}
	return out, nil
}

// LineItemsFromTable 把上传的重分类科目表转换为 LineItem 列表
func LineItemsFromTable(t domain.Table) ([]domain.LineItem, error) {
	code, ok := ResolveColumn(t.Columns, LineItemCodeAliases)
	if !ok {
		return nil, columnError([]string{"codice"}, t.Columns)
	}
	desc, hasDesc := resolveOther(t.Columns, LineItemDescAliases, code.Index)

	out := make([]domain.LineItem, 0, len(t.Rows))
	for i := range t.Rows {
		it := domain.LineItem{Code: strings.TrimSpace(t.Cell(i, code.Index))}
		if !usable(it.Code) {
			continue
		}
		if hasDesc {
			it.Description = strings.TrimSpace(t.Cell(i, desc.Index))
		}
		out = append(out, it)
	}
	return out, nil
}

func columnError(missing, present []string) *domain.ReclassError {
	return &domain.ReclassError{
		Kind:    domain.KindColumnResolution,
		Message: "required columns not found",
		Missing: missing,
		Present: append([]string(nil), present...),
	}
}
