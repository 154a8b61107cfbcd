package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Table 原始上传表格 (CSV/Excel 导出)，全部按字符串保存
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Cell 越界时返回空字符串
func (t Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// Column 返回整列的值
func (t Table) Column(col int) []string {
	out := make([]string, len(t.Rows))
	for i := range t.Rows {
		out[i] = t.Cell(i, col)
	}
	return out
}

// IsEmpty 没有任何数据行
func (t Table) IsEmpty() bool {
	return len(t.Rows) == 0
}

// Transaction 总账中的一行 (已清洗)
type Transaction struct {
	Date        time.Time
	AccountCode string
	Amount      decimal.Decimal // 保持原始记账符号
	Site        string

	// Synthetic 为 true 表示由调整分录 (rettifica) 生成
	Synthetic bool
	Ref       string
}

// Period 交易所属月份 (YYYY-MM)
func (t Transaction) Period() string {
	return t.Date.Format("2006-01")
}

// MappedTransaction 已映射到 CE 科目的交易，供钻取使用
type MappedTransaction struct {
	Transaction
	LineItemCode  string
	LineItemLabel string
	AccountLabel  string
}

// AccountDisplay 钻取表的行标签: "{code} — {description}"
func (m MappedTransaction) AccountDisplay() string {
	return m.AccountCode + " — " + m.AccountLabel
}

// Account 会计科目表条目
type Account struct {
	Code        string `json:"code" yaml:"code"`
	Description string `json:"description" yaml:"description"`
}

// LineItem 重分类科目 (CE 行)，Code 为稳定标识
type LineItem struct {
	Code          string `json:"code" yaml:"code"`
	Description   string `json:"description" yaml:"description"`
	LabelOverride string `json:"label_override,omitempty" yaml:"label_override,omitempty"`
}

// SchemaEntry 用户定义的 schema 中的一行
type SchemaEntry struct {
	Order         int      `json:"order" yaml:"order"`
	Type          RowType  `json:"type" yaml:"type"`
	Sign          Sign     `json:"sign" yaml:"sign"`
	LabelOverride string   `json:"label_override,omitempty" yaml:"label,omitempty"`
	ChildCodes    []string `json:"child_codes,omitempty" yaml:"include,omitempty"`
	KPIRole       string   `json:"kpi_role,omitempty" yaml:"kpi_role,omitempty"`
}

// SchemaConfig code → 行配置
type SchemaConfig map[string]SchemaEntry

// Mapping 总账科目代码 → 重分类代码 (多对一)
type Mapping map[string]string

// Adjustment 调整分录 (rettifica)，不修改原始总账
type Adjustment struct {
	ID          string          `json:"id"`
	AccountCode string          `json:"account_code"`
	Amount      decimal.Decimal `json:"amount"`
	Month       string          `json:"month"` // YYYY-MM
	Date        *time.Time      `json:"date,omitempty"`
	Description string          `json:"description"`
	Kind        string          `json:"kind,omitempty"` // rateo, risconto, simulazione ...
	Site        string          `json:"site,omitempty"`
	Active      bool            `json:"active"`
}

// Row 展开后的 CE 行
type Row struct {
	Label  string
	Type   RowType
	Code   string
	Values map[string]decimal.Decimal
	Total  decimal.Decimal
	// Blank 分隔行没有数值
	Blank bool
}

// Value 某月的值，缺失按 0
func (r Row) Value(month string) decimal.Decimal {
	if r.Values == nil {
		return decimal.Zero
	}
	return r.Values[month]
}

// Pivot CE 透视表：行按展示顺序，列为月份 + TOTALE
type Pivot struct {
	Months []string
	Rows   []Row
}

// Columns 完整列集合，包含元数据列
func (p *Pivot) Columns() []string {
	cols := make([]string, 0, len(p.Months)+3)
	cols = append(cols, p.Months...)
	return append(cols, ColumnTotal, ColumnType, ColumnCode)
}

// Row 按标签查找行
func (p *Pivot) Row(label string) (*Row, bool) {
	if p == nil {
		return nil, false
	}
	for i := range p.Rows {
		if p.Rows[i].Label == label {
			return &p.Rows[i], true
		}
	}
	return nil, false
}

// Labels 行索引
func (p *Pivot) Labels() []string {
	out := make([]string, len(p.Rows))
	for i, r := range p.Rows {
		out[i] = r.Label
	}
	return out
}

// DrillDownRow 钻取表中的一个总账科目
type DrillDownRow struct {
	Label       string
	AccountCode string
	Values      map[string]decimal.Decimal
	Total       decimal.Decimal
}

// DrillDownTable 某个 contabile 行背后的科目明细
type DrillDownTable struct {
	Months []string
	Rows   []DrillDownRow
}

// Total 所有科目 TOTALE 之和
func (d DrillDownTable) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, r := range d.Rows {
		sum = sum.Add(r.Total)
	}
	return sum
}

// Labels 行索引
func (d DrillDownTable) Labels() []string {
	out := make([]string, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = r.Label
	}
	return out
}

// Result 重分类结果
type Result struct {
	Pivot     *Pivot
	DrillDown map[string]DrillDownTable
}

// Budget 预算：行代码或展示标签 → 月份 (YYYY-MM) → 金额
type Budget map[string]map[string]decimal.Decimal

// Workspace 单个客户的全部输入
type Workspace struct {
	ClientID     string
	Ledger       Table
	Accounts     []Account
	LineItems    []LineItem
	Mapping      Mapping
	Schemas      map[string]SchemaConfig
	ActiveSchema string
	Adjustments  []Adjustment
	Budget       Budget

	// Version 乐观锁版本号，由仓储维护
	Version int64
}

// Schema 按名称取 schema，名称为空时取当前激活的
func (w *Workspace) Schema(name string) SchemaConfig {
	if name == "" {
		name = w.ActiveSchema
	}
	return w.Schemas[name]
}
