package engine

import (
	"fmt"
	"strings"

	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
)

const sampleDates = 3

// Input 一次重分类的全部输入，引擎不会修改其中任何内容
type Input struct {
	Ledger      domain.Table
	Accounts    []domain.Account
	LineItems   []domain.LineItem
	Mapping     domain.Mapping
	Schema      domain.SchemaConfig
	Adjustments []domain.Adjustment

	// Site 为空或 "Globale" 时不过滤
	Site string
}

// Reclassify 引擎入口：总账 → 基础透视表 → 展开后的 CE + 钻取表
// 纯函数，无状态；所有失败都以 *domain.ReclassError 返回，panic 也在此边界被恢复
func Reclassify(in Input) (res *domain.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = &domain.ReclassError{Kind: domain.KindInternal, Message: fmt.Sprint(r)}
		}
	}()

	if in.Ledger.IsEmpty() {
		return nil, &domain.ReclassError{Kind: domain.KindEmptyLedger, Message: "ledger has no rows"}
	}

	cols, err := resolveLedgerColumns(in.Ledger.Columns)
	if err != nil {
		return nil, err
	}

	txs := parseLedger(in.Ledger, cols)
	txs = InjectAdjustments(txs, in.Adjustments)

	if len(txs) == 0 {
		return nil, &domain.ReclassError{
			Kind:        domain.KindDateParsingExhaustion,
			Message:     "no ledger row has a valid date",
			SampleDates: sampleRawDates(in.Ledger, cols.date.Index, sampleDates),
		}
	}

	// 总账没有站点列时忽略站点过滤
	if IsSiteView(in.Site) && cols.hasSite {
		txs = filterSite(txs, in.Site)
		if len(txs) == 0 {
			return nil, &domain.ReclassError{
				Kind:    domain.KindEmptyLedger,
				Message: fmt.Sprintf("no ledger row for site %q", in.Site),
			}
		}
	}

	itemLabels := BuildLineItemLabels(in.LineItems)
	accountLabels := BuildAccountLabels(in.Accounts)

	base, mapped, err := Aggregate(txs, in.Mapping, itemLabels, accountLabels)
	if err != nil {
		return nil, err
	}

	pivot := Expand(base, in.Schema, itemLabels)
	return &domain.Result{
		Pivot:     pivot,
		DrillDown: BuildDrillDown(mapped, pivot, in.Schema, itemLabels),
	}, nil
}

// IsSiteView 是否请求了具体站点
func IsSiteView(site string) bool {
	return !domain.IsGlobalSite(site)
}

type ledgerColumns struct {
	date, amount, account ColumnRef
	site                  ColumnRef
	hasSite               bool
}

func resolveLedgerColumns(columns []string) (ledgerColumns, error) {
	var lc ledgerColumns
	var missing []string
	var ok bool

	if lc.date, ok = ResolveColumn(columns, LedgerDateAliases); !ok {
		missing = append(missing, "Data")
	}
	if lc.amount, ok = ResolveColumn(columns, LedgerAmountAliases); !ok {
		missing = append(missing, "Saldo/Importo")
	}
	if lc.account, ok = ResolveColumn(columns, LedgerAccountAliases); !ok {
		missing = append(missing, "Conto")
	}
	if len(missing) > 0 {
		return lc, columnError(missing, columns)
	}
	lc.site, lc.hasSite = ResolveColumn(columns, LedgerSiteAliases)
	return lc, nil
}

// ParseLedger 解析原始总账表，丢弃无效日期和空科目的行
func ParseLedger(t domain.Table) ([]domain.Transaction, error) {
	cols, err := resolveLedgerColumns(t.Columns)
	if err != nil {
		return nil, err
	}
	return parseLedger(t, cols), nil
}

func parseLedger(t domain.Table, cols ledgerColumns) []domain.Transaction {
	dates := ParseDateColumn(t.Column(cols.date.Index))

	out := make([]domain.Transaction, 0, len(t.Rows))
	for i := range t.Rows {
		account := strings.TrimSpace(t.Cell(i, cols.account.Index))
		if !usable(account) || dates[i].IsZero() {
			continue
		}
		tx := domain.Transaction{
			Date:        dates[i],
			AccountCode: account,
			Amount:      NormalizeAmount(t.Cell(i, cols.amount.Index)),
		}
		if cols.hasSite {
			tx.Site = strings.TrimSpace(t.Cell(i, cols.site.Index))
		}
		out = append(out, tx)
	}
	return out
}

func filterSite(txs []domain.Transaction, site string) []domain.Transaction {
	site = strings.TrimSpace(site)
	out := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if strings.EqualFold(tx.Site, site) {
			out = append(out, tx)
		}
	}
	return out
}

func sampleRawDates(t domain.Table, col, n int) []string {
	out := make([]string, 0, n)
	for i := range t.Rows {
		if len(out) == n {
			break
		}
		if s := strings.TrimSpace(t.Cell(i, col)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
