package domain

import "context"

// WorkspaceRepository 客户工作区仓储接口
// 这是一个 Port (端口)，Adapter (适配器) 在 adapter/repo 中实现
type WorkspaceRepository interface {
	// LoadWorkspace 读取客户的全部输入，不存在时返回 ErrClientNotFound
	LoadWorkspace(ctx context.Context, clientID string) (*Workspace, error)

	// SaveWorkspace 整体覆盖保存 (带乐观锁版本号)
	SaveWorkspace(ctx context.Context, ws *Workspace) error

	// ListClients 列出所有客户 ID
	ListClients(ctx context.Context) ([]string, error)
}
