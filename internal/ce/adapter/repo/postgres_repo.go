package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
)

// Migrate 建 schema 并同步表结构
func Migrate(db *gorm.DB) error {
	if err := db.Exec("CREATE SCHEMA IF NOT EXISTS ce").Error; err != nil {
		return fmt.Errorf("Migrate: create schema: %w", err)
	}
	if err := db.AutoMigrate(&WorkspaceModel{}, &AdjustmentModel{}); err != nil {
		return fmt.Errorf("Migrate: %w", err)
	}
	return nil
}

type PostgresWorkspaceRepo struct {
	db *gorm.DB
}

func NewWorkspaceRepo(db *gorm.DB) *PostgresWorkspaceRepo {
	return &PostgresWorkspaceRepo{db: db}
}

func (r *PostgresWorkspaceRepo) LoadWorkspace(ctx context.Context, clientID string) (*domain.Workspace, error) {
	var m WorkspaceModel
	if err := r.db.WithContext(ctx).Where("client_id = ?", clientID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrClientNotFound
		}
		return nil, fmt.Errorf("LoadWorkspace: %w", err)
	}

	var adjs []AdjustmentModel
	if err := r.db.WithContext(ctx).Where("workspace_id = ?", m.ID).Order("position").Find(&adjs).Error; err != nil {
		return nil, fmt.Errorf("LoadWorkspace: adjustments: %w", err)
	}
	return fromModel(&m, adjs)
}

// SaveWorkspace 整体覆盖保存
// 工作区行使用乐观锁更新：
// UPDATE ce.workspaces SET ..., version = version + 1 WHERE id = ? AND version = ?
// 调整分录先删后插，与工作区在同一个事务中
func (r *PostgresWorkspaceRepo) SaveWorkspace(ctx context.Context, ws *domain.Workspace) error {
	m, adjs, err := toModel(ws)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current WorkspaceModel
		err := tx.Where("client_id = ?", ws.ClientID).First(&current).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			m.Version = 1
			if err := tx.Create(m).Error; err != nil {
				return fmt.Errorf("SaveWorkspace: create: %w", err)
			}
		case err != nil:
			return fmt.Errorf("SaveWorkspace: %w", err)
		default:
			// 调用方带了版本号时必须与数据库一致
			version := current.Version
			if ws.Version != 0 && ws.Version != version {
				return domain.ErrVersionConflict
			}
			result := tx.Model(&WorkspaceModel{}).
				Where("id = ? AND version = ?", current.ID, version).
				Updates(map[string]interface{}{
					"ledger":        m.Ledger,
					"accounts":      m.Accounts,
					"line_items":    m.LineItems,
					"mapping":       m.Mapping,
					"schemas":       m.Schemas,
					"budget":        m.Budget,
					"active_schema": m.ActiveSchema,
					"version":       gorm.Expr("version + 1"),
				})
			if result.Error != nil {
				return fmt.Errorf("SaveWorkspace: update: %w", result.Error)
			}
			// 没有行被更新说明 version 不匹配（被别人改过了）
			if result.RowsAffected == 0 {
				return domain.ErrVersionConflict
			}
			m.ID = current.ID
			m.Version = version + 1
		}

		if err := tx.Where("workspace_id = ?", m.ID).Delete(&AdjustmentModel{}).Error; err != nil {
			return fmt.Errorf("SaveWorkspace: clear adjustments: %w", err)
		}
		for i := range adjs {
			adjs[i].WorkspaceID = m.ID
		}
		if len(adjs) > 0 {
			if err := tx.Create(&adjs).Error; err != nil {
				return fmt.Errorf("SaveWorkspace: adjustments: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// 提交成功后才回写，失败时调用方的对象保持原样
	applySaved(ws, m.Version, adjs)
	return nil
}

// applySaved 把新版本号和分配的调整分录 ID 写回调用方
func applySaved(ws *domain.Workspace, version int64, adjs []AdjustmentModel) {
	ws.Version = version
	for i := range adjs {
		ws.Adjustments[i].ID = adjs[i].ID
	}
}

func (r *PostgresWorkspaceRepo) ListClients(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&WorkspaceModel{}).Order("client_id").Pluck("client_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("ListClients: %w", err)
	}
	return ids, nil
}
