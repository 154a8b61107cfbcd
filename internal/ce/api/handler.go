package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
	"github.com/xxz807/cfodesk/backend/internal/ce/engine"
	"github.com/xxz807/cfodesk/backend/internal/ce/service"
)

type CEHandler struct {
	svc    *service.CEService
	logger *zap.Logger
}

func NewCEHandler(svc *service.CEService, logger *zap.Logger) *CEHandler {
	return &CEHandler{svc: svc, logger: logger}
}

// RegisterRoutes 注册路由
func (h *CEHandler) RegisterRoutes(r *gin.RouterGroup) {
	ceGroup := r.Group("/ce")
	{
		ceGroup.POST("/reclassify", h.Reclassify)
		ceGroup.POST("/batch", h.Batch)
	}

	clients := r.Group("/clients")
	{
		clients.GET("", h.ListClients)
		clients.PUT("/:clientID/workspace", h.SaveWorkspace)
		clients.GET("/:clientID/ce", h.ClientCE)
		clients.GET("/:clientID/months", h.Months)
		clients.GET("/:clientID/kpi", h.KPIs)
		clients.GET("/:clientID/bridge", h.Bridge)
		clients.GET("/:clientID/trend", h.Trend)
		clients.GET("/:clientID/stats", h.Statistics)
		clients.GET("/:clientID/alerts", h.Alerts)
		clients.GET("/:clientID/budget", h.Budget)
		clients.GET("/:clientID/budget/alerts", h.BudgetAlerts)
	}
}

// Reclassify 内联数据重分类 (不落库)
// POST /api/v1/ce/reclassify
func (h *CEHandler) Reclassify(c *gin.Context) {
	var req ReclassifyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	ledger, accs, items, adjs, err := req.toDomain()
	if err != nil {
		h.writeError(c, err)
		return
	}

	res, err := h.svc.Reclassify(c.Request.Context(), engine.Input{
		Ledger:      ledger,
		Accounts:    accs,
		LineItems:   items,
		Mapping:     req.Mapping,
		Schema:      req.Schema,
		Adjustments: adjs,
		Site:        req.Site,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCEResp(res))
}

// SaveWorkspace 保存客户工作区
// PUT /api/v1/clients/:clientID/workspace
func (h *CEHandler) SaveWorkspace(c *gin.Context) {
	var req WorkspaceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	ledger, accs, items, adjs, err := req.toDomain()
	if err != nil {
		h.writeError(c, err)
		return
	}

	ws := &domain.Workspace{
		ClientID:     c.Param("clientID"),
		Ledger:       ledger,
		Accounts:     accs,
		LineItems:    items,
		Mapping:      req.Mapping,
		Schemas:      req.Schemas,
		ActiveSchema: req.ActiveSchema,
		Adjustments:  adjs,
		Budget:       req.Budget,
		Version:      req.Version,
	}
	if err := h.svc.SaveWorkspace(c.Request.Context(), ws); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"client_id":   ws.ClientID,
		"version":     ws.Version,
		"ledger_rows": len(ws.Ledger.Rows),
	})
}

// ListClients GET /api/v1/clients
func (h *CEHandler) ListClients(c *gin.Context) {
	ids, err := h.svc.ListClients(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clients": ids})
}

// ClientCE GET /api/v1/clients/:clientID/ce?schema=&site=
func (h *CEHandler) ClientCE(c *gin.Context) {
	q := query(c)
	ce, err := h.svc.ReclassifyClient(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := toCEResp(ce.Result)
	resp.ClientID, resp.Schema, resp.Site = ce.ClientID, ce.SchemaName, ce.Site
	c.JSON(http.StatusOK, resp)
}

// Months GET /api/v1/clients/:clientID/months
func (h *CEHandler) Months(c *gin.Context) {
	months, err := h.svc.Months(c.Request.Context(), query(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"months": months})
}

// KPIs GET /api/v1/clients/:clientID/kpi?months=2024-01,2024-02
func (h *CEHandler) KPIs(c *gin.Context) {
	k, err := h.svc.KPIs(c.Request.Context(), query(c), splitList(c.Query("months")))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if k == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no data for the selected months"})
		return
	}
	c.JSON(http.StatusOK, k)
}

// Bridge GET /api/v1/clients/:clientID/bridge?current=...&previous=...
func (h *CEHandler) Bridge(c *gin.Context) {
	current, previous := splitList(c.Query("current")), splitList(c.Query("previous"))
	if len(current) == 0 || len(previous) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "current and previous months are required"})
		return
	}
	b, err := h.svc.Bridge(c.Request.Context(), query(c), current, previous)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// Trend GET /api/v1/clients/:clientID/trend?label=Ricavi&n=6
func (h *CEHandler) Trend(c *gin.Context) {
	label := c.Query("label")
	if label == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "label is required"})
		return
	}
	n := engine.DefaultTrendMonths
	if s := c.Query("n"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "n must be an integer"})
			return
		}
		n = v
	}

	tr, err := h.svc.Trend(c.Request.Context(), query(c), label, n)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if tr == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not enough data for " + label})
		return
	}
	c.JSON(http.StatusOK, tr)
}

// Statistics GET /api/v1/clients/:clientID/stats
func (h *CEHandler) Statistics(c *gin.Context) {
	stats, err := h.svc.Statistics(c.Request.Context(), query(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Alerts GET /api/v1/clients/:clientID/alerts
func (h *CEHandler) Alerts(c *gin.Context) {
	alerts, err := h.svc.Alerts(c.Request.Context(), query(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if alerts == nil {
		alerts = []engine.Alert{}
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// Budget GET /api/v1/clients/:clientID/budget
func (h *CEHandler) Budget(c *gin.Context) {
	rep, err := h.svc.Budget(c.Request.Context(), query(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if rep.Variances == nil {
		rep.Variances = []engine.BudgetVariance{}
	}
	if rep.Summary == nil {
		rep.Summary = []engine.BudgetSummary{}
	}
	c.JSON(http.StatusOK, rep)
}

// BudgetAlerts GET /api/v1/clients/:clientID/budget/alerts
func (h *CEHandler) BudgetAlerts(c *gin.Context) {
	alerts, err := h.svc.BudgetAlerts(c.Request.Context(), query(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if alerts == nil {
		alerts = []engine.BudgetAlert{}
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// Batch 批量重分类，单个客户失败不影响整体响应
// POST /api/v1/ce/batch
func (h *CEHandler) Batch(c *gin.Context) {
	var req BatchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	items, err := h.svc.ReclassifyClients(c.Request.Context(), req.ClientIDs, req.Schema, req.Site)
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]BatchItemResp, len(items))
	for i, it := range items {
		r := BatchItemResp{ClientID: it.ClientID, OK: it.Err == nil}
		if it.Err != nil {
			r.Error = it.Err.Error()
			r.Kind = domain.KindOf(it.Err)
		} else {
			r.Rows = len(it.CE.Result.Pivot.Rows)
			r.Months = it.CE.Result.Pivot.Months
		}
		out[i] = r
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

func query(c *gin.Context) service.Query {
	return service.Query{
		ClientID: c.Param("clientID"),
		Schema:   c.Query("schema"),
		Site:     c.Query("site"),
	}
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// writeError 按错误类型映射状态码
// 引擎错误 422 并带诊断信息；找不到 404；版本冲突 409
func (h *CEHandler) writeError(c *gin.Context, err error) {
	var re *domain.ReclassError
	var bad *badRequestError

	switch {
	case errors.As(err, &re):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":       re.Error(),
			"kind":        re.Kind,
			"diagnostics": re.Diagnostics(),
		})
	case errors.As(err, &bad), errors.Is(err, service.ErrInvalidWorkspace):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrClientNotFound), errors.Is(err, domain.ErrSchemaNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
