package api

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xxz807/cfodesk/backend/internal/ce/adapter/fileimport"
	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
	"github.com/xxz807/cfodesk/backend/internal/ce/engine"
)

// InputsReq 原始输入；表格可以直接传 JSON，也可以传 CSV 文本
type InputsReq struct {
	Ledger       domain.Table      `json:"ledger"`
	LedgerCSV    string            `json:"ledger_csv"`
	Accounts     []domain.Account  `json:"accounts"`
	AccountsCSV  string            `json:"accounts_csv"`
	LineItems    []domain.LineItem `json:"line_items"`
	LineItemsCSV string            `json:"line_items_csv"`
	Mapping      map[string]string `json:"mapping"`
	Adjustments  []AdjustmentReq   `json:"adjustments" binding:"dive"`
}

// ReclassifyReq POST /ce/reclassify
type ReclassifyReq struct {
	InputsReq
	Schema domain.SchemaConfig `json:"schema"`
	Site   string              `json:"site"`
}

// WorkspaceReq PUT /clients/:clientID/workspace
type WorkspaceReq struct {
	InputsReq
	Schemas      map[string]domain.SchemaConfig `json:"schemas"`
	ActiveSchema string                         `json:"active_schema"`
	Budget       domain.Budget                  `json:"budget"`
	Version      int64                          `json:"version"` // 0 表示不校验版本
}

// BatchReq POST /ce/batch
type BatchReq struct {
	ClientIDs []string `json:"client_ids"`
	Schema    string   `json:"schema"`
	Site      string   `json:"site"`
}

// AdjustmentReq 金额和日期按会计导出格式解析 ("1.234,56", "31/03/2024")
type AdjustmentReq struct {
	ID          string `json:"id"`
	AccountCode string `json:"account_code" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	Month       string `json:"month"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
	Site        string `json:"site"`
	Active      *bool  `json:"active"`
}

// badRequestError 请求内容无法转换为领域输入
type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

func (r InputsReq) ledger() (domain.Table, error) {
	if r.LedgerCSV == "" {
		return r.Ledger, nil
	}
	t, err := fileimport.ReadTable(strings.NewReader(r.LedgerCSV))
	if err != nil {
		return domain.Table{}, badRequest("ledger_csv: %v", err)
	}
	return t, nil
}

func (r InputsReq) accounts() ([]domain.Account, error) {
	if r.AccountsCSV == "" {
		return r.Accounts, nil
	}
	t, err := fileimport.ReadTable(strings.NewReader(r.AccountsCSV))
	if err != nil {
		return nil, badRequest("accounts_csv: %v", err)
	}
	return engine.AccountsFromTable(t)
}

func (r InputsReq) lineItems() ([]domain.LineItem, error) {
	if r.LineItemsCSV == "" {
		return r.LineItems, nil
	}
	t, err := fileimport.ReadTable(strings.NewReader(r.LineItemsCSV))
	if err != nil {
		return nil, badRequest("line_items_csv: %v", err)
	}
	return engine.LineItemsFromTable(t)
}

func (r InputsReq) adjustments() ([]domain.Adjustment, error) {
	out := make([]domain.Adjustment, 0, len(r.Adjustments))
	for i, a := range r.Adjustments {
		adj := domain.Adjustment{
			ID:          a.ID,
			AccountCode: strings.TrimSpace(a.AccountCode),
			Amount:      engine.NormalizeAmount(a.Amount),
			Month:       a.Month,
			Description: a.Description,
			Kind:        a.Kind,
			Site:        a.Site,
			Active:      a.Active == nil || *a.Active,
		}
		if a.Date != "" {
			d, ok := engine.NormalizeDate(a.Date)
			if !ok {
				return nil, badRequest("adjustments[%d].date: cannot parse %q", i, a.Date)
			}
			adj.Date = &d
		}
		out = append(out, adj)
	}
	return out, nil
}

// toDomain 把请求中的各部分转换为领域对象
func (r InputsReq) toDomain() (ledger domain.Table, accs []domain.Account, items []domain.LineItem, adjs []domain.Adjustment, err error) {
	if ledger, err = r.ledger(); err != nil {
		return
	}
	if accs, err = r.accounts(); err != nil {
		return
	}
	if items, err = r.lineItems(); err != nil {
		return
	}
	adjs, err = r.adjustments()
	return
}

// RowResp CE 的一行；分隔行的 values/total 为 null
type RowResp struct {
	Label  string                      `json:"label"`
	Type   domain.RowType              `json:"_tipo"`
	Code   string                      `json:"_cod"`
	Values map[string]*decimal.Decimal `json:"values"`
	Total  *decimal.Decimal            `json:"TOTALE"`
}

// PivotResp 展开后的 CE
type PivotResp struct {
	Months  []string  `json:"months"`
	Columns []string  `json:"columns"`
	Rows    []RowResp `json:"rows"`
}

// DrillRowResp 钻取表中一个科目
type DrillRowResp struct {
	Label       string                     `json:"label"`
	AccountCode string                     `json:"account_code"`
	Values      map[string]decimal.Decimal `json:"values"`
	Total       decimal.Decimal            `json:"TOTALE"`
}

// DrillResp 某个 CE 行的钻取表
type DrillResp struct {
	Months []string        `json:"months"`
	Rows   []DrillRowResp  `json:"rows"`
	Total  decimal.Decimal `json:"TOTALE"`
}

// CEResp 重分类响应
type CEResp struct {
	ClientID  string               `json:"client_id,omitempty"`
	Schema    string               `json:"schema,omitempty"`
	Site      string               `json:"site,omitempty"`
	CE        PivotResp            `json:"ce"`
	DrillDown map[string]DrillResp `json:"drilldown"`
}

// BatchItemResp 批量结果中的一个客户
type BatchItemResp struct {
	ClientID string           `json:"client_id"`
	OK       bool             `json:"ok"`
	Rows     int              `json:"rows,omitempty"`
	Months   []string         `json:"months,omitempty"`
	Error    string           `json:"error,omitempty"`
	Kind     domain.ErrorKind `json:"kind,omitempty"`
}

func toPivotResp(p *domain.Pivot) PivotResp {
	out := PivotResp{Months: p.Months, Columns: p.Columns(), Rows: make([]RowResp, len(p.Rows))}
	for i, r := range p.Rows {
		rr := RowResp{Label: r.Label, Type: r.Type, Code: r.Code}
		if !r.Blank {
			rr.Values = make(map[string]*decimal.Decimal, len(p.Months))
			for _, m := range p.Months {
				v := r.Value(m)
				rr.Values[m] = &v
			}
			total := r.Total
			rr.Total = &total
		}
		out.Rows[i] = rr
	}
	return out
}

func toDrillResp(dd map[string]domain.DrillDownTable) map[string]DrillResp {
	out := make(map[string]DrillResp, len(dd))
	for label, t := range dd {
		d := DrillResp{Months: t.Months, Rows: make([]DrillRowResp, len(t.Rows)), Total: t.Total()}
		for i, r := range t.Rows {
			d.Rows[i] = DrillRowResp{Label: r.Label, AccountCode: r.AccountCode, Values: r.Values, Total: r.Total}
		}
		out[label] = d
	}
	return out
}

func toCEResp(res *domain.Result) CEResp {
	return CEResp{CE: toPivotResp(res.Pivot), DrillDown: toDrillResp(res.DrillDown)}
}
