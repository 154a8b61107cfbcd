package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
)

type storedWorkspace struct {
	model WorkspaceModel
	adjs  []AdjustmentModel
}

// MemoryWorkspaceRepo 进程内实现，没有配置数据库时使用
// 与 Postgres 实现走同样的行转换，保存的是副本
type MemoryWorkspaceRepo struct {
	mu   sync.RWMutex
	rows map[string]storedWorkspace
}

func NewMemoryWorkspaceRepo() *MemoryWorkspaceRepo {
	return &MemoryWorkspaceRepo{rows: make(map[string]storedWorkspace)}
}

func (r *MemoryWorkspaceRepo) LoadWorkspace(_ context.Context, clientID string) (*domain.Workspace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.rows[clientID]
	if !ok {
		return nil, domain.ErrClientNotFound
	}
	return fromModel(&s.model, s.adjs)
}

func (r *MemoryWorkspaceRepo) SaveWorkspace(_ context.Context, ws *domain.Workspace) error {
	m, adjs, err := toModel(ws)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m.Version = 1
	if cur, ok := r.rows[ws.ClientID]; ok {
		if ws.Version != 0 && ws.Version != cur.model.Version {
			return domain.ErrVersionConflict
		}
		m.Version = cur.model.Version + 1
	}
	r.rows[ws.ClientID] = storedWorkspace{model: *m, adjs: adjs}

	applySaved(ws, m.Version, adjs)
	return nil
}

func (r *MemoryWorkspaceRepo) ListClients(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.rows))
	for id := range r.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

var (
	_ domain.WorkspaceRepository = (*MemoryWorkspaceRepo)(nil)
	_ domain.WorkspaceRepository = (*PostgresWorkspaceRepo)(nil)
)
