package engine

import (
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
)

// Severity 异常级别
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityPositive Severity = "positive"
)

var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityWarning:  1,
	SeverityPositive: 2,
}

// Thresholds 环比变化百分比阈值
type Thresholds struct {
	WarnPct float64
	CritPct float64
}

// DefaultThresholds 15% 警告，30% 严重
var DefaultThresholds = Thresholds{WarnPct: 15, CritPct: 30}

var (
	revenueKeywords = []string{"ricav", "fattur", "vendite", "revenue", "margine"}
	costKeywords    = []string{"costo", "spese", "oneri", "perdite"}
)

// Alert 某行相邻两个月之间的显著变化
type Alert struct {
	Label         string          `json:"voce"`
	Code          string          `json:"cod"`
	PreviousMonth string          `json:"mese_prec"`
	CurrentMonth  string          `json:"mese_curr"`
	Previous      decimal.Decimal `json:"valore_prec"`
	Current       decimal.Decimal `json:"valore_curr"`
	VariationPct  float64         `json:"variazione_pct"`
	VariationAbs  decimal.Decimal `json:"variazione_abs"`
	Severity      Severity        `json:"severita"`
}

// DetectAnomalies 逐行逐月比较，前一个月为 0 的跳过
// 收入类上升或成本类下降记为 positive
func DetectAnomalies(p *domain.Pivot, th Thresholds) []Alert {
	if p == nil || len(p.Months) < 2 {
		return nil
	}

	var alerts []Alert
	for i := range p.Rows {
		r := &p.Rows[i]
		if r.Blank || r.Type == domain.RowSeparatore {
			continue
		}
		label := strings.ToLower(r.Label)
		revenue := containsAny(label, revenueKeywords)
		cost := containsAny(label, costKeywords)

		for j := 1; j < len(p.Months); j++ {
			prevMonth, curMonth := p.Months[j-1], p.Months[j]
			prev, cur := r.Value(prevMonth), r.Value(curMonth)
			if prev.IsZero() {
				continue
			}

			pct := cur.Sub(prev).Div(prev.Abs()).Mul(hundred).InexactFloat64()
			abs := math.Abs(pct)
			if abs < th.WarnPct {
				continue
			}

			sev := SeverityWarning
			if abs >= th.CritPct {
				sev = SeverityCritical
			}
			if (pct > 0 && revenue) || (pct < 0 && cost) {
				sev = SeverityPositive
			}

			alerts = append(alerts, Alert{
				Label:         r.Label,
				Code:          r.Code,
				PreviousMonth: prevMonth,
				CurrentMonth:  curMonth,
				Previous:      prev,
				Current:       cur,
				VariationPct:  math.Round(pct*10) / 10,
				VariationAbs:  cur.Sub(prev),
				Severity:      sev,
			})
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		ri, rj := severityRank[alerts[i].Severity], severityRank[alerts[j].Severity]
		if ri != rj {
			return ri < rj
		}
		return math.Abs(alerts[i].VariationPct) > math.Abs(alerts[j].VariationPct)
	})
	return alerts
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
