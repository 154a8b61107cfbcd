package domain

import "strings"

// RowType schema 行类型 (对应 pivot 的 _tipo 列)
type RowType string

const (
	RowContabile  RowType = "contabile"  // 直接来自映射后的交易
	RowSubtotale  RowType = "subtotale"  // 小计，输出后累加器清零
	RowTotale     RowType = "totale"     // 总计，累加器从不清零
	RowSeparatore RowType = "separatore" // 空白分隔行
)

// IsValid 校验行类型合法性
func (t RowType) IsValid() bool {
	switch t {
	case RowContabile, RowSubtotale, RowTotale, RowSeparatore:
		return true
	}
	return false
}

// IsComputed 小计/总计行由其他行计算得出
func (t RowType) IsComputed() bool {
	return t == RowSubtotale || t == RowTotale
}

// ParseRowType 宽松解析，空值视为 contabile
func ParseRowType(s string) RowType {
	t := RowType(strings.ToLower(strings.TrimSpace(s)))
	if t == "" {
		return RowContabile
	}
	return t
}

// Sign 符号约定 (+1 保持会计符号, -1 取反)
type Sign int

const (
	SignPlus  Sign = 1
	SignMinus Sign = -1
)

// Normalize 0 或非法值一律按 +1 处理
func (s Sign) Normalize() Sign {
	if s == SignMinus {
		return SignMinus
	}
	return SignPlus
}

// Pivot 列名
const (
	ColumnTotal = "TOTALE"
	ColumnType  = "_tipo"
	ColumnCode  = "_cod"
)

// GlobalSite 不按站点过滤
const GlobalSite = "Globale"

// IsGlobalSite 空站点或 "Globale" 表示全部站点
func IsGlobalSite(site string) bool {
	s := strings.TrimSpace(site)
	return s == "" || strings.EqualFold(s, GlobalSite)
}
