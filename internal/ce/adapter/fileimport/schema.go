package fileimport

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"

	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
	"github.com/xxz807/cfodesk/backend/internal/ce/engine"
)

// SchemaFile YAML 配置文件：映射、命名 schema、重分类科目和调整分录
//
//	active_schema: gestionale
//	mapping:
//	  "600": RIC
//	schemas:
//	  gestionale:
//	    RIC:    {order: 1, type: contabile, sign: 1, kpi_role: ricavi}
//	    EBITDA: {order: 9, type: subtotale, include: [RIC, PER]}
//	budget:
//	  RIC: {"2024-01": "12.000,00"}
type SchemaFile struct {
	ActiveSchema string                         `yaml:"active_schema"`
	Mapping      domain.Mapping                 `yaml:"mapping"`
	Schemas      map[string]domain.SchemaConfig `yaml:"schemas"`
	LineItems    []domain.LineItem              `yaml:"line_items"`
	Adjustments  []adjustmentYAML               `yaml:"adjustments"`
	Budget       map[string]map[string]string   `yaml:"budget"`
}

type adjustmentYAML struct {
	ID          string `yaml:"id"`
	AccountCode string `yaml:"account"`
	Amount      string `yaml:"amount"`
	Month       string `yaml:"month"`
	Date        string `yaml:"date"`
	Description string `yaml:"description"`
	Kind        string `yaml:"kind"`
	Site        string `yaml:"site"`
	Active      *bool  `yaml:"active"`
}

// ParseSchemaFile 解析并校验 YAML
func ParseSchemaFile(b []byte) (*SchemaFile, error) {
	var f SchemaFile
	if err := yaml.UnmarshalStrict(b, &f); err != nil {
		return nil, fmt.Errorf("ParseSchemaFile: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *SchemaFile) validate() error {
	names := make([]string, 0, len(f.Schemas))
	for n := range f.Schemas {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, name := range names {
		for code, e := range f.Schemas[name] {
			if t := domain.ParseRowType(string(e.Type)); !t.IsValid() {
				return fmt.Errorf("schema %q, row %q: unknown type %q", name, code, e.Type)
			}
			if e.Sign != 0 && e.Sign != domain.SignPlus && e.Sign != domain.SignMinus {
				return fmt.Errorf("schema %q, row %q: sign must be 1 or -1, got %d", name, code, e.Sign)
			}
		}
	}
	if f.ActiveSchema == "" && len(names) == 1 {
		f.ActiveSchema = names[0]
	}
	if f.ActiveSchema != "" {
		if _, ok := f.Schemas[f.ActiveSchema]; !ok {
			return fmt.Errorf("active_schema %q is not defined", f.ActiveSchema)
		}
	}
	return nil
}

// AdjustmentList 转换为领域对象；active 缺省为 true，金额按会计格式解析
func (f *SchemaFile) AdjustmentList() ([]domain.Adjustment, error) {
	out := make([]domain.Adjustment, 0, len(f.Adjustments))
	for i, a := range f.Adjustments {
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
				return nil, fmt.Errorf("adjustment %d: invalid date %q", i, a.Date)
			}
			adj.Date = &d
		}
		if adj.Date == nil && adj.Month != "" {
			if _, err := time.Parse("2006-01", adj.Month); err != nil {
				return nil, fmt.Errorf("adjustment %d: month must be YYYY-MM, got %q", i, adj.Month)
			}
		}
		out = append(out, adj)
	}
	return out, nil
}

// BudgetTable 金额按会计格式解析，月份必须是 YYYY-MM
func (f *SchemaFile) BudgetTable() (domain.Budget, error) {
	if len(f.Budget) == 0 {
		return nil, nil
	}
	out := make(domain.Budget, len(f.Budget))
	for row, months := range f.Budget {
		vals := make(map[string]decimal.Decimal, len(months))
		for m, raw := range months {
			if _, err := time.Parse("2006-01", m); err != nil {
				return nil, fmt.Errorf("budget %q: month must be YYYY-MM, got %q", row, m)
			}
			vals[m] = engine.NormalizeAmount(raw)
		}
		out[row] = vals
	}
	return out, nil
}

// ApplyTo 把文件内容写入工作区 (覆盖对应字段)
func (f *SchemaFile) ApplyTo(ws *domain.Workspace) error {
	adjs, err := f.AdjustmentList()
	if err != nil {
		return err
	}
	budget, err := f.BudgetTable()
	if err != nil {
		return err
	}
	if f.Mapping != nil {
		ws.Mapping = f.Mapping
	}
	if f.Schemas != nil {
		ws.Schemas = f.Schemas
		ws.ActiveSchema = f.ActiveSchema
	}
	if len(f.LineItems) > 0 {
		ws.LineItems = f.LineItems
	}
	if len(adjs) > 0 {
		ws.Adjustments = adjs
	}
	if budget != nil {
		ws.Budget = budget
	}
	return nil
}
