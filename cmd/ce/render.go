package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
	"github.com/xxz807/cfodesk/backend/internal/ce/engine"
)

// renderPivot 以表格打印 CE，分隔行输出为空行
func renderPivot(w io.Writer, p *domain.Pivot) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	header := append([]string{"Voce"}, p.Months...)
	header = append(header, domain.ColumnTotal, "")
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, r := range p.Rows {
		if r.Blank {
			fmt.Fprintln(tw, "\t")
			continue
		}
		cells := make([]string, 0, len(p.Months)+3)
		label := r.Label
		if r.Type.IsComputed() {
			label = strings.ToUpper(label)
		}
		cells = append(cells, label)
		for _, m := range p.Months {
			cells = append(cells, r.Value(m).StringFixed(2))
		}
		cells = append(cells, r.Total.StringFixed(2), "")
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// renderDrillDown 打印某行背后的科目
func renderDrillDown(w io.Writer, label string, dd domain.DrillDownTable) error {
	fmt.Fprintf(w, "\n%s\n", label)
	if len(dd.Rows) == 0 {
		fmt.Fprintln(w, "  (nessun movimento)")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := append([]string{"Conto"}, dd.Months...)
	header = append(header, domain.ColumnTotal, "")
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range dd.Rows {
		cells := []string{r.Label}
		for _, m := range dd.Months {
			cells = append(cells, r.Values[m].StringFixed(2))
		}
		cells = append(cells, r.Total.StringFixed(2), "")
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func renderKPIs(w io.Writer, k *engine.KPIs) error {
	if k == nil {
		_, err := fmt.Fprintln(w, "\nKPI: nessun mese disponibile")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\nKPI (%s)\t\n", strings.Join(k.Months, ", "))
	rows := []struct {
		name  string
		value string
	}{
		{"Ricavi", k.Ricavi.StringFixed(2)},
		{"EBITDA", k.EBITDA.StringFixed(2)},
		{"EBIT", k.EBIT.StringFixed(2)},
		{"Utile netto", k.UtileNetto.StringFixed(2)},
		{"EBITDA margin %", k.EBITDAMargin.StringFixed(2)},
		{"EBIT margin %", k.EBITMargin.StringFixed(2)},
		{"Net margin %", k.NetMargin.StringFixed(2)},
		{"Costo personale %", k.CostLaborPct.StringFixed(2)},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", r.name, r.value)
	}
	return tw.Flush()
}

func renderAlerts(w io.Writer, alerts []engine.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nSeverità\tVoce\tPeriodo\tVariazione %\t")
	for _, a := range alerts {
		fmt.Fprintf(tw, "%s\t%s\t%s → %s\t%+.1f\t\n", a.Severity, a.Label, a.PreviousMonth, a.CurrentMonth, a.VariationPct)
	}
	return tw.Flush()
}

// renderBudget 按行汇总的预算对比，后面是自适应阈值告警
func renderBudget(w io.Writer, summary []engine.BudgetSummary, alerts []engine.BudgetAlert) error {
	if len(summary) == 0 {
		_, err := fmt.Fprintln(w, "\nBudget: nessun confronto disponibile")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nBudget\tEffettivo\tBudget\tScostamento\tSc %\t")
	for _, s := range summary {
		pct := "-"
		if s.VariancePct != nil {
			pct = fmt.Sprintf("%+.1f", *s.VariancePct)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			s.Label, s.Actual.StringFixed(2), s.Budget.StringFixed(2), s.Variance.StringFixed(2), pct)
	}
	for _, a := range alerts {
		fmt.Fprintf(tw, "⚠ %s\t%s\t%+.1f%% (soglia %.1f%%, %d periodi)\t\t\t\n",
			a.Label, a.Month, a.VariancePct, a.ThresholdPct, a.Window)
	}
	return tw.Flush()
}

// sortedDrillLabels 按 CE 行顺序列出钻取表
func sortedDrillLabels(p *domain.Pivot, dd map[string]domain.DrillDownTable) []string {
	pos := make(map[string]int, len(p.Rows))
	for i, r := range p.Rows {
		pos[r.Label] = i
	}
	labels := make([]string, 0, len(dd))
	for l := range dd {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return pos[labels[i]] < pos[labels[j]] })
	return labels
}
