package repo

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
)

// WorkspaceModel 客户工作区
// 对应数据库表: ce.workspaces
type WorkspaceModel struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	ClientID     string `gorm:"uniqueIndex;type:varchar(64);not null"`
	Ledger       []byte `gorm:"type:jsonb"`
	Accounts     []byte `gorm:"type:jsonb"`
	LineItems    []byte `gorm:"type:jsonb"`
	Mapping      []byte `gorm:"type:jsonb"`
	Schemas      []byte `gorm:"type:jsonb"`
	Budget       []byte `gorm:"type:jsonb"`
	ActiveSchema string `gorm:"type:varchar(64)"`
	Version      int64  `gorm:"not null;default:1"` // 乐观锁
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName 指定 schema 和表名
func (WorkspaceModel) TableName() string {
	return "ce.workspaces"
}

// AdjustmentModel 调整分录 (rettifiche)
// 对应数据库表: ce.adjustments
type AdjustmentModel struct {
	ID          string          `gorm:"primaryKey;type:varchar(36)"`
	WorkspaceID int64           `gorm:"not null;index"`
	Position    int             `gorm:"not null"` // 保持用户录入顺序
	AccountCode string          `gorm:"type:varchar(32);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Month       string          `gorm:"type:char(7)"`
	Date        *time.Time
	Description string `gorm:"type:text"`
	Kind        string `gorm:"type:varchar(32)"`
	Site        string `gorm:"type:varchar(64)"`
	Active      bool   `gorm:"not null;default:true"`
	CreatedAt   time.Time
}

func (AdjustmentModel) TableName() string {
	return "ce.adjustments"
}

// toModel 领域对象 → 数据库行；没有 ID 的调整分录会分配 UUID
func toModel(ws *domain.Workspace) (*WorkspaceModel, []AdjustmentModel, error) {
	m := &WorkspaceModel{
		ClientID:     ws.ClientID,
		ActiveSchema: ws.ActiveSchema,
		Version:      ws.Version,
	}

	fields := []struct {
		name string
		src  any
		dst  *[]byte
	}{
		{"ledger", ws.Ledger, &m.Ledger},
		{"accounts", ws.Accounts, &m.Accounts},
		{"line_items", ws.LineItems, &m.LineItems},
		{"mapping", ws.Mapping, &m.Mapping},
		{"schemas", ws.Schemas, &m.Schemas},
		{"budget", ws.Budget, &m.Budget},
	}
	for _, f := range fields {
		b, err := json.Marshal(f.src)
		if err != nil {
			return nil, nil, fmt.Errorf("toModel: encode %s: %w", f.name, err)
		}
		*f.dst = b
	}

	adjs := make([]AdjustmentModel, len(ws.Adjustments))
	for i, a := range ws.Adjustments {
		id := a.ID
		if id == "" {
			id = uuid.NewString()
		}
		adjs[i] = AdjustmentModel{
			ID:          id,
			Position:    i,
			AccountCode: a.AccountCode,
			Amount:      a.Amount,
			Month:       a.Month,
			Date:        a.Date,
			Description: a.Description,
			Kind:        a.Kind,
			Site:        a.Site,
			Active:      a.Active,
		}
	}
	return m, adjs, nil
}

// fromModel 数据库行 → 领域对象，adjs 需按 Position 排好序
func fromModel(m *WorkspaceModel, adjs []AdjustmentModel) (*domain.Workspace, error) {
	ws := &domain.Workspace{
		ClientID:     m.ClientID,
		ActiveSchema: m.ActiveSchema,
		Version:      m.Version,
	}

	fields := []struct {
		name string
		src  []byte
		dst  any
	}{
		{"ledger", m.Ledger, &ws.Ledger},
		{"accounts", m.Accounts, &ws.Accounts},
		{"line_items", m.LineItems, &ws.LineItems},
		{"mapping", m.Mapping, &ws.Mapping},
		{"schemas", m.Schemas, &ws.Schemas},
		{"budget", m.Budget, &ws.Budget},
	}
	for _, f := range fields {
		if len(f.src) == 0 {
			continue
		}
		if err := json.Unmarshal(f.src, f.dst); err != nil {
			return nil, fmt.Errorf("fromModel: decode %s: %w", f.name, err)
		}
	}

	for _, a := range adjs {
		ws.Adjustments = append(ws.Adjustments, domain.Adjustment{
			ID:          a.ID,
			AccountCode: a.AccountCode,
			Amount:      a.Amount,
			Month:       a.Month,
			Date:        a.Date,
			Description: a.Description,
			Kind:        a.Kind,
			Site:        a.Site,
			Active:      a.Active,
		})
	}
	return ws, nil
}
