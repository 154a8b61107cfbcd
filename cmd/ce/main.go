// Command ce 在命令行上对一个客户的总账做重分类并打印 CE
//
//	ce -ledger gs://bucket/acme/mastrini.csv -schema schema.yaml [-accounts piano.csv] [-site Milano]
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/xxz807/cfodesk/backend/internal/ce/adapter/fileimport"
	"github.com/xxz807/cfodesk/backend/internal/ce/adapter/repo"
	"github.com/xxz807/cfodesk/backend/internal/ce/domain"
	"github.com/xxz807/cfodesk/backend/internal/ce/engine"
	"github.com/xxz807/cfodesk/backend/internal/ce/service"
	"github.com/xxz807/cfodesk/backend/internal/platform/logger"
)

type options struct {
	ledger     string
	accounts   string
	lineItems  string
	schemaFile string
	schemaName string
	site       string
	months     string
	drill      bool
	alerts     bool
	budget     bool
	logLevel   string
}

func main() {
	var opts options
	flag.StringVar(&opts.ledger, "ledger", "", "ledger CSV (local path or gs://bucket/object)")
	flag.StringVar(&opts.accounts, "accounts", "", "chart of accounts CSV")
	flag.StringVar(&opts.lineItems, "line-items", "", "reclassification line items CSV")
	flag.StringVar(&opts.schemaFile, "schema", "", "YAML file with mapping, schemas and adjustments")
	flag.StringVar(&opts.schemaName, "schema-name", "", "schema to use (default: active_schema)")
	flag.StringVar(&opts.site, "site", domain.GlobalSite, "site filter")
	flag.StringVar(&opts.months, "months", "", "comma separated months for KPIs (default: all)")
	flag.BoolVar(&opts.drill, "drill", false, "print drill-down tables")
	flag.BoolVar(&opts.alerts, "alerts", false, "print month-over-month alerts")
	flag.BoolVar(&opts.budget, "budget", false, "print budget variances and adaptive alerts (needs budget: in the schema file)")
	flag.StringVar(&opts.logLevel, "log-level", "warn", "log level")
	flag.Parse()

	os.Exit(run(context.Background(), opts, os.Stdout, os.Stderr))
}

func run(ctx context.Context, opts options, stdout, stderr io.Writer) int {
	if opts.ledger == "" || opts.schemaFile == "" {
		fmt.Fprintln(stderr, "usage: ce -ledger <csv> -schema <yaml> [flags]")
		return 2
	}

	log, err := logger.NewLogger("release", opts.logLevel)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	defer log.Sync()

	ws, err := loadWorkspace(ctx, opts)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	svc := service.NewCEService(repo.NewMemoryWorkspaceRepo(), log, service.Options{
		DefaultSite: domain.GlobalSite,
		Thresholds:  engine.DefaultThresholds,
		MaxParallel: 1,
	})
	if err := svc.SaveWorkspace(ctx, ws); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	q := service.Query{ClientID: ws.ClientID, Schema: opts.schemaName, Site: opts.site}
	ce, err := svc.ReclassifyClient(ctx, q)
	if err != nil {
		reportError(stderr, err)
		return 1
	}

	p := ce.Result.Pivot
	if err := renderPivot(stdout, p); err != nil {
		log.Error("render failed", zap.Error(err))
		return 1
	}
	if opts.drill {
		for _, label := range sortedDrillLabels(p, ce.Result.DrillDown) {
			if err := renderDrillDown(stdout, label, ce.Result.DrillDown[label]); err != nil {
				return 1
			}
		}
	}

	months := splitMonths(opts.months)
	if len(months) == 0 {
		months = p.Months
	}
	if err := renderKPIs(stdout, engine.ComputeKPIs(p, months, ce.Schema)); err != nil {
		return 1
	}
	if opts.alerts {
		if err := renderAlerts(stdout, engine.DetectAnomalies(p, engine.DefaultThresholds)); err != nil {
			return 1
		}
	}
	if opts.budget {
		vs := engine.BudgetVariances(p, ce.Budget)
		if err := renderBudget(stdout, engine.SummarizeBudget(vs), engine.BudgetAlerts(p, ce.Budget)); err != nil {
			return 1
		}
	}
	return 0
}

// loadWorkspace 读取所有输入文件组成工作区
func loadWorkspace(ctx context.Context, opts options) (*domain.Workspace, error) {
	ws := &domain.Workspace{ClientID: "cli"}

	raw, err := fileimport.ReadSource(ctx, opts.schemaFile)
	if err != nil {
		return nil, err
	}
	sf, err := fileimport.ParseSchemaFile(raw)
	if err != nil {
		return nil, err
	}
	if err := sf.ApplyTo(ws); err != nil {
		return nil, err
	}

	if ws.Ledger, err = readTable(ctx, opts.ledger); err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	if opts.accounts != "" {
		t, err := readTable(ctx, opts.accounts)
		if err != nil {
			return nil, fmt.Errorf("accounts: %w", err)
		}
		if ws.Accounts, err = engine.AccountsFromTable(t); err != nil {
			return nil, fmt.Errorf("accounts: %w", err)
		}
	}
	if opts.lineItems != "" {
		t, err := readTable(ctx, opts.lineItems)
		if err != nil {
			return nil, fmt.Errorf("line items: %w", err)
		}
		if ws.LineItems, err = engine.LineItemsFromTable(t); err != nil {
			return nil, fmt.Errorf("line items: %w", err)
		}
	}
	return ws, nil
}

func readTable(ctx context.Context, uri string) (domain.Table, error) {
	raw, err := fileimport.ReadSource(ctx, uri)
	if err != nil {
		return domain.Table{}, err
	}
	return fileimport.ReadTable(bytes.NewReader(raw))
}

// reportError 引擎错误附带 JSON 诊断信息
func reportError(w io.Writer, err error) {
	fmt.Fprintln(w, "error:", err)
	var re *domain.ReclassError
	if !errors.As(err, &re) {
		return
	}
	payload, _ := json.MarshalIndent(map[string]any{
		"kind":        re.Kind,
		"diagnostics": re.Diagnostics(),
	}, "", "  ")
	fmt.Fprintln(w, string(payload))
}

func splitMonths(s string) []string {
	var out []string
	for _, m := range strings.Split(s, ",") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}
