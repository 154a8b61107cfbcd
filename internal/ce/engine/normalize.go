package engine

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/shopspring/decimal"
)

var amountCleaner = strings.NewReplacer(
	"€", "",
	"EUR", "",
	"\u00a0", "",
	"\u202f", "",
	" ", "",
	"\t", "",
)

// NormalizeAmount 把各种格式的金额文本转成 decimal
// 支持意大利格式 "1.234,56"、括号负数 "(500)"、尾随负号 "1.234,56-"
// 无法解析时返回 0，不报错；科学计数法 ("1e400") 不是会计格式，同样视为无法解析
func NormalizeAmount(raw string) decimal.Decimal {
	s := amountCleaner.Replace(strings.TrimSpace(raw))
	if s == "" || strings.ContainsAny(s, "eE") {
		return decimal.Zero
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
	}
	s = strings.NewReplacer("(", "", ")", "").Replace(s)
	if len(s) > 1 && strings.HasSuffix(s, "-") {
		neg = !neg
		s = strings.TrimSuffix(s, "-")
	}

	v, ok := parseNumber(s)
	if !ok {
		return decimal.Zero
	}
	if neg {
		return v.Neg()
	}
	return v
}

// parseNumber 区分意大利格式 (. 千分位, , 小数) 与英美格式
func parseNumber(s string) (decimal.Decimal, bool) {
	hasDot := strings.Contains(s, ".")
	hasComma := strings.Contains(s, ",")

	var t string
	switch {
	case hasDot && hasComma:
		// 最后出现的分隔符是小数点
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			t = strings.ReplaceAll(s, ".", "")
			t = strings.Replace(t, ",", ".", 1)
		} else {
			t = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		if strings.Count(s, ",") == 1 {
			t = strings.Replace(s, ",", ".", 1)
		} else {
			t = strings.ReplaceAll(s, ",", "")
		}
	case hasDot:
		if strings.Count(s, ".") > 1 || isThousandsDot(s) {
			t = strings.ReplaceAll(s, ".", "")
		} else {
			t = s
		}
	default:
		t = s
	}

	if v, err := decimal.NewFromString(t); err == nil {
		return v, true
	}
	// 兜底：所有点都当作千分位
	if v, err := decimal.NewFromString(strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", ".")); err == nil {
		return v, true
	}
	return decimal.Zero, false
}

// isThousandsDot "1.234" 视为 1234；"12.50"、"0.125" 视为小数
func isThousandsDot(s string) bool {
	i := strings.Index(s, ".")
	intPart := strings.TrimLeft(s[:i], "+-")
	frac := s[i+1:]
	if len(frac) != 3 || intPart == "" || intPart == "0" {
		return false
	}
	return allDigits(intPart) && allDigits(frac)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// dateLayouts 依次尝试的显式格式
// 对应 %d/%m/%Y, %d-%m-%Y, %Y-%m-%d, %d/%m/%y, %d-%m-%y, %Y/%m/%d, %d.%m.%Y, %d.%m.%y, %m/%d/%Y, %Y%m%d
var dateLayouts = []string{
	"2/1/2006",
	"2-1-2006",
	"2006-1-2",
	"2/1/06",
	"2-1-06",
	"2006/1/2",
	"2.1.2006",
	"2.1.06",
	"1/2/2006",
	"20060102",
}

func isBlankCell(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "none", "nat", "null":
		return true
	}
	return false
}

// parseDayFirst 日在前的宽松解析
func parseDayFirst(s string) (time.Time, bool) {
	if isBlankCell(s) {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, time.UTC, dateparse.PreferMonthFirst(false))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func parseLayout(s, layout string) (time.Time, bool) {
	if isBlankCell(s) {
		return time.Time{}, false
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// NormalizeDate 单个单元格的日期解析：先日在前宽松解析，再逐个显式格式
func NormalizeDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if t, ok := parseDayFirst(s); ok {
		return t, true
	}
	for _, layout := range dateLayouts {
		if t, ok := parseLayout(s, layout); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDateColumn 按列投票解析日期
// 同一列里的歧义日期必须按该列的主流格式解释，所以不是逐个单元格取第一个成功的格式
// 解析失败的单元格返回零值时间，由调用方丢弃
func ParseDateColumn(raw []string) []time.Time {
	cells := make([]string, len(raw))
	for i, r := range raw {
		cells[i] = strings.TrimSpace(r)
	}

	best, bestCount := parseColumnWith(cells, parseDayFirst)
	if bestCount*2 > len(cells) {
		return best
	}

	for _, layout := range dateLayouts {
		layout := layout
		c, n := parseColumnWith(cells, func(s string) (time.Time, bool) { return parseLayout(s, layout) })
		if n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

func parseColumnWith(cells []string, parse func(string) (time.Time, bool)) ([]time.Time, int) {
	out := make([]time.Time, len(cells))
	n := 0
	for i, s := range cells {
		if t, ok := parse(s); ok {
			out[i] = t
			n++
		}
	}
	return out, n
}
