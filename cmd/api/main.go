package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xxz807/cfodesk/backend/internal/ce/adapter/repo"
	"github.com/xxz807/cfodesk/backend/internal/ce/api"
	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
	"github.com/xxz807/cfodesk/backend/internal/ce/engine"
	"github.com/xxz807/cfodesk/backend/internal/ce/service"
	"github.com/xxz807/cfodesk/backend/internal/platform/config"
	"github.com/xxz807/cfodesk/backend/internal/platform/database"
	"github.com/xxz807/cfodesk/backend/internal/platform/logger"
	"github.com/xxz807/cfodesk/backend/internal/platform/server"
)

// defaultConfig 相对于工作目录，与仓库里的 configs/ 对应
const defaultConfig = "configs/config.yaml"

// defaultConfigPath CFODESK_CONFIG 优先，否则读仓库自带的配置文件
func defaultConfigPath() string {
	if p := os.Getenv("CFODESK_CONFIG"); p != "" {
		return p
	}
	return defaultConfig
}

func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to config.yaml")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %s", err)
	}

	// 2. 初始化基础设施 (Infra)
	// Logger
	appLogger, err := logger.NewLogger(cfg.Server.Mode, cfg.Log.Level)
	if err != nil {
		log.Fatalf("Error building logger: %s", err)
	}
	defer appLogger.Sync()

	// Repository：配置了 DSN 用 Postgres，否则进程内存
	var workspaceRepo domain.WorkspaceRepository
	if cfg.Database.DSN != "" {
		db, err := database.NewPostgresDB(cfg.Database.DSN, database.Options{
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			Debug:           cfg.Server.Mode == "debug",
		}, appLogger)
		if err != nil {
			appLogger.Fatal("Database connection failed", zap.Error(err))
		}
		if err := repo.Migrate(db); err != nil {
			appLogger.Fatal("Database migration failed", zap.Error(err))
		}
		workspaceRepo = repo.NewWorkspaceRepo(db)
	} else {
		appLogger.Warn("database.dsn is empty, workspaces are kept in memory")
		workspaceRepo = repo.NewMemoryWorkspaceRepo()
	}

	// 3. 依赖注入 (Wiring)
	// -- CE Module --
	ceSvc := service.NewCEService(workspaceRepo, appLogger, service.Options{
		DefaultSite: cfg.Engine.DefaultSite,
		Thresholds: engine.Thresholds{
			WarnPct: cfg.Engine.AlertWarnPct,
			CritPct: cfg.Engine.AlertCritPct,
		},
		MaxParallel: cfg.Engine.MaxParallel,
	})
	ceHandler := api.NewCEHandler(ceSvc, appLogger)

	// 4. 初始化 Server (Gateway)
	srv := server.NewServer(
		appLogger,
		cfg.Server.Port,
		cfg.Server.Mode,
		ceHandler,
	)

	// 5. 启动服务，收到信号后优雅停机
	go func() {
		if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Server startup failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}
}
