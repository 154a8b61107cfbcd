package engine

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
)

// 自适应阈值：最近 5 期偏差的 |均值| + 1.5σ，不低于 15%
const (
	budgetAlertWindow   = 5
	budgetAlertSigma    = 1.5
	budgetAlertFloorPct = 15.0
)

// BudgetDirection 实际值相对预算的方向
type BudgetDirection string

const (
	BelowBudget BudgetDirection = "NEG"
	AboveBudget BudgetDirection = "POS"
)

// BudgetVariance 某行某月的实际与预算对比
type BudgetVariance struct {
	Label       string          `json:"voce"`
	Code        string          `json:"cod"`
	Month       string          `json:"mese"`
	Actual      decimal.Decimal `json:"effettivo"`
	Budget      decimal.Decimal `json:"budget"`
	Variance    decimal.Decimal `json:"scostamento"`
	VariancePct float64         `json:"scostamento_pct"`
}

// BudgetSummary 单行在所有月份上的合计对比；预算合计为 0 时 VariancePct 为 nil
type BudgetSummary struct {
	Label       string          `json:"voce"`
	Actual      decimal.Decimal `json:"effettivo"`
	Budget      decimal.Decimal `json:"budget"`
	Variance    decimal.Decimal `json:"scostamento"`
	VariancePct *float64        `json:"scostamento_pct"`
}

// BudgetAlert 最后一个月的偏差超过该行历史波动决定的阈值
type BudgetAlert struct {
	Label        string          `json:"voce"`
	Code         string          `json:"cod"`
	Month        string          `json:"mese"`
	VariancePct  float64         `json:"scostamento_pct"`
	ThresholdPct float64         `json:"soglia_pct"`
	Window       int             `json:"periodi"`
	Direction    BudgetDirection `json:"tipo"`
}

// budgetFor 先按行代码找预算，再按展示标签
func budgetFor(b domain.Budget, r *domain.Row) (map[string]decimal.Decimal, bool) {
	if r.Code != "" {
		if m, ok := b[r.Code]; ok {
			return m, true
		}
	}
	m, ok := b[r.Label]
	return m, ok
}

func variancePct(actual, budget decimal.Decimal) float64 {
	return actual.Sub(budget).Div(budget.Abs()).Mul(hundred).InexactFloat64()
}

// BudgetVariances 按 CE 行顺序逐月比较；预算为 0 或缺失的月份跳过
func BudgetVariances(p *domain.Pivot, b domain.Budget) []BudgetVariance {
	if p == nil || len(b) == 0 {
		return nil
	}
	var out []BudgetVariance
	for i := range p.Rows {
		r := &p.Rows[i]
		if r.Blank {
			continue
		}
		bud, ok := budgetFor(b, r)
		if !ok {
			continue
		}
		for _, m := range p.Months {
			bv := valueOf(bud, m)
			if bv.IsZero() {
				continue
			}
			actual := r.Value(m)
			out = append(out, BudgetVariance{
				Label:       r.Label,
				Code:        r.Code,
				Month:       m,
				Actual:      actual,
				Budget:      bv,
				Variance:    actual.Sub(bv),
				VariancePct: math.Round(variancePct(actual, bv)*10) / 10,
			})
		}
	}
	return out
}

// SummarizeBudget 按行汇总，结果按标签排序
func SummarizeBudget(vs []BudgetVariance) []BudgetSummary {
	idx := make(map[string]int)
	var out []BudgetSummary
	for _, v := range vs {
		i, ok := idx[v.Label]
		if !ok {
			i = len(out)
			idx[v.Label] = i
			out = append(out, BudgetSummary{Label: v.Label})
		}
		s := &out[i]
		s.Actual = s.Actual.Add(v.Actual)
		s.Budget = s.Budget.Add(v.Budget)
		s.Variance = s.Variance.Add(v.Variance)
	}
	for i := range out {
		if out[i].Budget.IsZero() {
			continue
		}
		pct := math.Round(out[i].Variance.Div(out[i].Budget).Mul(hundred).InexactFloat64()*10) / 10
		out[i].VariancePct = &pct
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// BudgetAlerts 自适应阈值告警，只看最后一个月
// 至少需要两期有预算的偏差；结果按偏差绝对值降序
func BudgetAlerts(p *domain.Pivot, b domain.Budget) []BudgetAlert {
	if p == nil || len(p.Months) == 0 || len(b) == 0 {
		return nil
	}
	last := p.Months[len(p.Months)-1]

	var alerts []BudgetAlert
	for i := range p.Rows {
		r := &p.Rows[i]
		if r.Blank {
			continue
		}
		bud, ok := budgetFor(b, r)
		if !ok {
			continue
		}

		var history []float64
		for _, m := range p.Months {
			if bv := valueOf(bud, m); !bv.IsZero() {
				history = append(history, variancePct(r.Value(m), bv))
			}
		}
		if len(history) < 2 {
			continue
		}
		if len(history) > budgetAlertWindow {
			history = history[len(history)-budgetAlertWindow:]
		}
		mean, std := meanStd(history)
		threshold := math.Max(math.Abs(mean)+budgetAlertSigma*std, budgetAlertFloorPct)

		bl := valueOf(bud, last)
		if bl.IsZero() {
			continue
		}
		pct := variancePct(r.Value(last), bl)
		if math.Abs(pct) < threshold {
			continue
		}
		dir := AboveBudget
		if pct < 0 {
			dir = BelowBudget
		}
		alerts = append(alerts, BudgetAlert{
			Label:        r.Label,
			Code:         r.Code,
			Month:        last,
			VariancePct:  math.Round(pct*10) / 10,
			ThresholdPct: math.Round(threshold*10) / 10,
			Window:       len(history),
			Direction:    dir,
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return math.Abs(alerts[i].VariancePct) > math.Abs(alerts[j].VariancePct)
	})
	return alerts
}
