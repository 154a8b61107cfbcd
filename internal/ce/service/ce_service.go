package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
	"github.com/xxz807/cfodesk/backend/internal/ce/engine"
)

// ErrInvalidWorkspace 工作区内容不完整
var ErrInvalidWorkspace = errors.New("invalid workspace")

// Options 服务级配置 (来自 engine.* 配置项)
type Options struct {
	DefaultSite string
	Thresholds  engine.Thresholds
	MaxParallel int
}

// Query 指定客户的一次 CE 查询
type Query struct {
	ClientID string
	Schema   string // 空表示工作区当前激活的 schema
	Site     string // 空表示使用默认站点
}

// ClientCE 某客户重分类的结果，附带实际使用的 schema
type ClientCE struct {
	ClientID   string
	SchemaName string
	Site       string
	Schema     domain.SchemaConfig
	Budget     domain.Budget
	Result     *domain.Result
}

// BudgetReport 实际与预算的逐月对比和按行汇总
type BudgetReport struct {
	Variances []engine.BudgetVariance `json:"scostamenti"`
	Summary   []engine.BudgetSummary  `json:"riepilogo"`
}

// BatchItem 批量重分类中单个客户的结果
type BatchItem struct {
	ClientID string
	CE       *ClientCE
	Err      error
}

// CEService 应用服务：仓储 + 引擎
type CEService struct {
	repo   domain.WorkspaceRepository
	logger *zap.Logger
	opts   Options
}

func NewCEService(repo domain.WorkspaceRepository, logger *zap.Logger, opts Options) *CEService {
	if opts.MaxParallel < 1 {
		opts.MaxParallel = 1
	}
	if opts.Thresholds == (engine.Thresholds{}) {
		opts.Thresholds = engine.DefaultThresholds
	}
	return &CEService{repo: repo, logger: logger, opts: opts}
}

// Reclassify 直接对传入的数据运行引擎 (不落库)
func (s *CEService) Reclassify(ctx context.Context, in engine.Input) (*domain.Result, error) {
	if in.Site == "" {
		in.Site = s.opts.DefaultSite
	}
	return s.run(ctx, "", in)
}

// SaveWorkspace 校验后整体保存客户工作区
func (s *CEService) SaveWorkspace(ctx context.Context, ws *domain.Workspace) error {
	ws.ClientID = strings.TrimSpace(ws.ClientID)
	if ws.ClientID == "" {
		return fmt.Errorf("%w: client id is required", ErrInvalidWorkspace)
	}
	if ws.ActiveSchema != "" {
		if _, ok := ws.Schemas[ws.ActiveSchema]; !ok {
			return fmt.Errorf("%w: active schema %q is not defined", ErrInvalidWorkspace, ws.ActiveSchema)
		}
	}
	if err := s.repo.SaveWorkspace(ctx, ws); err != nil {
		return fmt.Errorf("save workspace %s: %w", ws.ClientID, err)
	}
	s.logger.Info("workspace saved",
		zap.String("client_id", ws.ClientID),
		zap.Int64("version", ws.Version),
		zap.Int("ledger_rows", len(ws.Ledger.Rows)),
		zap.Int("adjustments", len(ws.Adjustments)),
	)
	return nil
}

// ReclassifyClient 读取工作区并重分类
func (s *CEService) ReclassifyClient(ctx context.Context, q Query) (*ClientCE, error) {
	ws, err := s.repo.LoadWorkspace(ctx, q.ClientID)
	if err != nil {
		return nil, fmt.Errorf("load workspace %s: %w", q.ClientID, err)
	}

	name := q.Schema
	if name == "" {
		name = ws.ActiveSchema
	}
	schema := ws.Schema(name)
	// 工作区没有任何 schema 时允许直通模式
	if name != "" && schema == nil {
		return nil, fmt.Errorf("schema %q: %w", name, domain.ErrSchemaNotFound)
	}

	site := q.Site
	if site == "" {
		site = s.opts.DefaultSite
	}

	res, err := s.run(ctx, ws.ClientID, engine.Input{
		Ledger:      ws.Ledger,
		Accounts:    ws.Accounts,
		LineItems:   ws.LineItems,
		Mapping:     ws.Mapping,
		Schema:      schema,
		Adjustments: ws.Adjustments,
		Site:        site,
	})
	if err != nil {
		return nil, err
	}
	return &ClientCE{
		ClientID:   ws.ClientID,
		SchemaName: name,
		Site:       site,
		Schema:     schema,
		Budget:     ws.Budget,
		Result:     res,
	}, nil
}

// ListClients 所有已保存的客户
func (s *CEService) ListClients(ctx context.Context) ([]string, error) {
	ids, err := s.repo.ListClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return ids, nil
}

// Months 可选月份
func (s *CEService) Months(ctx context.Context, q Query) ([]string, error) {
	ce, err := s.ReclassifyClient(ctx, q)
	if err != nil {
		return nil, err
	}
	return engine.AvailableMonths(ce.Result.Pivot), nil
}

// KPIs months 为空时取全部月份
func (s *CEService) KPIs(ctx context.Context, q Query, months []string) (*engine.KPIs, error) {
	ce, err := s.ReclassifyClient(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(months) == 0 {
		months = ce.Result.Pivot.Months
	}
	return engine.ComputeKPIs(ce.Result.Pivot, months, ce.Schema), nil
}

// Bridge 两个期间之间的 EBITDA 桥
func (s *CEService) Bridge(ctx context.Context, q Query, current, previous []string) (*engine.Bridge, error) {
	ce, err := s.ReclassifyClient(ctx, q)
	if err != nil {
		return nil, err
	}
	return engine.EBITDABridge(ce.Result.Pivot, current, previous, ce.Schema), nil
}

// Trend 某一行最近 n 个月的走势；行不存在时返回 nil
func (s *CEService) Trend(ctx context.Context, q Query, label string, n int) (*engine.Trend, error) {
	ce, err := s.ReclassifyClient(ctx, q)
	if err != nil {
		return nil, err
	}
	return engine.ComputeTrend(ce.Result.Pivot, label, n), nil
}

// Statistics 每行的月度统计
func (s *CEService) Statistics(ctx context.Context, q Query) (map[string]engine.RowStats, error) {
	ce, err := s.ReclassifyClient(ctx, q)
	if err != nil {
		return nil, err
	}
	return engine.MonthlyStatistics(ce.Result.Pivot), nil
}

// Alerts 环比异常
func (s *CEService) Alerts(ctx context.Context, q Query) ([]engine.Alert, error) {
	ce, err := s.ReclassifyClient(ctx, q)
	if err != nil {
		return nil, err
	}
	return engine.DetectAnomalies(ce.Result.Pivot, s.opts.Thresholds), nil
}

// Budget 预算对比；工作区没有预算时返回空报告
func (s *CEService) Budget(ctx context.Context, q Query) (*BudgetReport, error) {
	ce, err := s.ReclassifyClient(ctx, q)
	if err != nil {
		return nil, err
	}
	vs := engine.BudgetVariances(ce.Result.Pivot, ce.Budget)
	return &BudgetReport{Variances: vs, Summary: engine.SummarizeBudget(vs)}, nil
}

// BudgetAlerts 基于历史偏差波动的预算告警
func (s *CEService) BudgetAlerts(ctx context.Context, q Query) ([]engine.BudgetAlert, error) {
	ce, err := s.ReclassifyClient(ctx, q)
	if err != nil {
		return nil, err
	}
	return engine.BudgetAlerts(ce.Result.Pivot, ce.Budget), nil
}

// ReclassifyClients 并发重分类多个客户，并发度受 MaxParallel 限制
// ids 为空时处理全部客户；单个客户失败记录在 BatchItem.Err 中，不影响其他客户
func (s *CEService) ReclassifyClients(ctx context.Context, ids []string, schema, site string) ([]BatchItem, error) {
	if len(ids) == 0 {
		all, err := s.repo.ListClients(ctx)
		if err != nil {
			return nil, fmt.Errorf("list clients: %w", err)
		}
		ids = all
	}

	items := make([]BatchItem, len(ids))
	var failed int
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MaxParallel)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ce, err := s.ReclassifyClient(gctx, Query{ClientID: id, Schema: schema, Site: site})
			items[i] = BatchItem{ClientID: id, CE: ce, Err: err}
			if err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info("batch reclassification finished",
		zap.Int("clients", len(ids)),
		zap.Int("failed", failed),
	)
	return items, nil
}

func (s *CEService) run(ctx context.Context, clientID string, in engine.Input) (*domain.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := engine.Reclassify(in)
	if err != nil {
		var re *domain.ReclassError
		if errors.As(err, &re) {
			s.logger.Warn("reclassification failed",
				zap.String("client_id", clientID),
				zap.String("kind", string(re.Kind)),
				zap.Any("diagnostics", re.Diagnostics()),
			)
		}
		return nil, err
	}
	s.logger.Debug("reclassification done",
		zap.String("client_id", clientID),
		zap.Int("rows", len(res.Pivot.Rows)),
		zap.Int("months", len(res.Pivot.Months)),
		zap.Duration("cost", time.Since(start)),
	)
	return res, nil
}
