// Command rfp-shredder breaks RFP documents into tracked compliance
// requirements and serves the results over a CLI and MCP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/rfp-shredder/pkg/config"
	"github.com/ekaya-inc/rfp-shredder/pkg/database"
	"github.com/ekaya-inc/rfp-shredder/pkg/document"
	"github.com/ekaya-inc/rfp-shredder/pkg/llm"
	"github.com/ekaya-inc/rfp-shredder/pkg/logging"
	"github.com/ekaya-inc/rfp-shredder/pkg/repositories"
	"github.com/ekaya-inc/rfp-shredder/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "rfp-shredder",
	Short: "Shred RFPs into tracked compliance requirements",
	Long: `rfp-shredder reads an RFP (PDF, text or markdown), detects sections C, L and M,
extracts every shall/should/may statement, classifies it, stores the result in
PostgreSQL and writes a CSV compliance matrix.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the YAML config file")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the wired components for one command invocation.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *database.DB

	llmClient  llm.LLMClient
	shredder   services.RFPShredder
	status     services.OpportunityStatusService
	compliance services.ComplianceService
	matrix     services.ComplianceMatrix
}

// newApp loads configuration and wires services. Without withDB only the
// parse-only paths of the shredder are usable.
func newApp(ctx context.Context, withDB bool) (*app, error) {
	cfg, err := config.Load(configPath, Version)
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	var tx database.TxManager
	if withDB {
		logger.Info("Connecting to database",
			zap.String("dsn", logging.SanitizeConnectionString(cfg.Database.URL())))
		a.db, err = database.Connect(ctx, &database.Config{
			URL:            cfg.Database.URL(),
			MaxConnections: cfg.Database.MaxConnections,
		}, logger)
		if err != nil {
			_ = logger.Sync()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		tx = a.db
	}

	a.llmClient, err = llm.NewClientFromConfig(cfg.LLM, logger)
	if err != nil {
		a.close()
		return nil, err
	}

	oppRepo := repositories.NewOpportunityRepository()
	reqRepo := repositories.NewRequirementRepository()
	taskRepo := repositories.NewTaskRepository()

	classifier := services.NewRequirementClassifier(a.llmClient, services.ClassifierConfig{
		Timeout:       cfg.LLM.Timeout(),
		MaxConcurrent: cfg.LLM.MaxConcurrent,
	}, logger)

	a.matrix = services.NewComplianceMatrix(tx, oppRepo, reqRepo, logger)
	a.status = services.NewOpportunityStatusService(tx, oppRepo, reqRepo, taskRepo, logger)
	a.compliance = services.NewComplianceService(tx, oppRepo, reqRepo, logger)
	a.shredder = services.NewRFPShredder(
		tx,
		document.NewRegistry(cfg.Shredder.PdfToTextPath),
		classifier,
		a.matrix,
		oppRepo,
		reqRepo,
		taskRepo,
		services.ShredderConfig{
			CSOMarkerThreshold: cfg.Shredder.CSOMarkerThreshold,
			SentencesPerPage:   cfg.Shredder.SentencesPerPage,
			TaskDueBufferDays:  cfg.Shredder.TaskDueBufferDays,
			OutputDir:          cfg.Shredder.OutputDir,
		},
		logger,
	)

	return a, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	_ = a.logger.Sync()
}

// llmModel names the classification model for health output, empty when
// classification runs on keyword rules only.
func (a *app) llmModel() string {
	if a.llmClient == nil {
		return ""
	}
	return a.llmClient.GetModel()
}
