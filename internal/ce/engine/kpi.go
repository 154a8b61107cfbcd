package engine

import (
	"github.com/shopspring/decimal"

	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
)

// KPI 角色
const (
	RoleRicavi     = "ricavi"
	RoleEBITDA     = "ebitda"
	RoleEBIT       = "ebit"
	RoleUtileNetto = "utile_netto"
	RolePersonale  = "personale"
	RoleAcquisti   = "acquisti"
)

// kpiKeywords schema 没有 kpi_role 时的标签关键字
var kpiKeywords = map[string][]string{
	RoleRicavi:     {"ricav", "fattur", "vendite", "revenue", "proventi"},
	RoleEBITDA:     {"ebitda", "mol", "margine operativo lordo", "margine lordo"},
	RoleEBIT:       {"ebit", "reddito operativo", "risultato operativo"},
	RoleUtileNetto: {"utile netto", "risultato netto", "utile d", "risultato esercizio", "utile"},
	RolePersonale:  {"personale", "lavoro", "salari", "stipendi", "costo del lavoro"},
	RoleAcquisti:   {"acquisti", "materie prime", "merci", "costo merci"},
}

// bridgeKeywords EBITDA 桥使用更窄的关键字
var bridgeKeywords = map[string][]string{
	RoleRicavi:    {"ricav", "fattur"},
	RolePersonale: {"personale", "lavoro"},
	RoleAcquisti:  {"acquisti", "materie"},
	RoleEBITDA:    {"ebitda", "mol"},
}

var (
	hundred         = decimal.NewFromInt(100)
	marginThreshold = decimal.RequireFromString("0.01")
)

// KPIs 所选月份的财务指标
type KPIs struct {
	Ricavi     decimal.Decimal `json:"ricavi"`
	EBITDA     decimal.Decimal `json:"ebitda"`
	EBIT       decimal.Decimal `json:"ebit"`
	UtileNetto decimal.Decimal `json:"utile_netto"`
	Personale  decimal.Decimal `json:"personale"`
	Acquisti   decimal.Decimal `json:"acquisti"`

	EBITDAMargin decimal.Decimal `json:"ebitda_margin"`
	EBITMargin   decimal.Decimal `json:"ebit_margin"`
	NetMargin    decimal.Decimal `json:"net_margin"`
	CostLaborPct decimal.Decimal `json:"cost_labor_pct"`

	Months []string `json:"mesi"`
}

// ComputeKPIs 计算 KPI；没有有效月份时返回 nil
func ComputeKPIs(p *domain.Pivot, months []string, schema domain.SchemaConfig) *KPIs {
	if p == nil {
		return nil
	}
	cols := validMonths(p, months)
	if len(cols) == 0 {
		return nil
	}

	get := func(role string) decimal.Decimal {
		return SumRole(p, schema, role, kpiKeywords[role], cols)
	}

	k := &KPIs{
		Ricavi:     get(RoleRicavi),
		EBITDA:     get(RoleEBITDA),
		EBIT:       get(RoleEBIT),
		UtileNetto: get(RoleUtileNetto),
		Personale:  get(RolePersonale),
		Acquisti:   get(RoleAcquisti),
		Months:     cols,
	}
	k.EBITDAMargin = Margin(k.EBITDA, k.Ricavi)
	k.EBITMargin = Margin(k.EBIT, k.Ricavi)
	k.NetMargin = Margin(k.UtileNetto, k.Ricavi)
	k.CostLaborPct = Margin(k.Personale.Abs(), k.Ricavi)
	return k
}

// Margin num/den 百分比，保留两位小数；|den| ≤ 0.01 时为 0
func Margin(num, den decimal.Decimal) decimal.Decimal {
	if den.Abs().LessThanOrEqual(marginThreshold) {
		return decimal.Zero
	}
	return num.Div(den).Mul(hundred).Round(2)
}

// Bridge 两个期间之间 EBITDA 变化的分解
type Bridge struct {
	EBITDAPrevious decimal.Decimal `json:"ebitda_prec"`
	EBITDACurrent  decimal.Decimal `json:"ebitda_att"`
	DeltaRicavi    decimal.Decimal `json:"delta_ricavi"`
	DeltaPersonale decimal.Decimal `json:"delta_personale"`
	DeltaAcquisti  decimal.Decimal `json:"delta_acquisti"`
	DeltaAltri     decimal.Decimal `json:"delta_altri"`
}

// EBITDABridge 成本增加对 EBITDA 是负贡献，其余差额归入 "altri"
func EBITDABridge(p *domain.Pivot, current, previous []string, schema domain.SchemaConfig) *Bridge {
	if p == nil {
		return nil
	}
	period := func(months []string) map[string]decimal.Decimal {
		cols := validMonths(p, months)
		out := make(map[string]decimal.Decimal, len(bridgeKeywords))
		for role, kw := range bridgeKeywords {
			out[role] = SumRole(p, schema, role, kw, cols)
		}
		return out
	}
	att, prec := period(current), period(previous)

	dRic := att[RoleRicavi].Sub(prec[RoleRicavi])
	dPer := att[RolePersonale].Sub(prec[RolePersonale]).Neg()
	dAcq := att[RoleAcquisti].Sub(prec[RoleAcquisti]).Neg()
	dEBITDA := att[RoleEBITDA].Sub(prec[RoleEBITDA])

	return &Bridge{
		EBITDAPrevious: prec[RoleEBITDA],
		EBITDACurrent:  att[RoleEBITDA],
		DeltaRicavi:    dRic,
		DeltaPersonale: dPer,
		DeltaAcquisti:  dAcq,
		DeltaAltri:     dEBITDA.Sub(dRic).Sub(dPer).Sub(dAcq),
	}
}
