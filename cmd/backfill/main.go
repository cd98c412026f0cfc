// Package main provides the one-time migration that numbers pre-existing
// business records lacking an SRPL identifier.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"srplerp/internal/core/sequence"
	"srplerp/internal/domain/backfill"
	infraseq "srplerp/internal/infrastructure/sequence"
	"srplerp/internal/infrastructure/storage/postgres"
	"srplerp/internal/infrastructure/storage/postgres/backfill_repo"
	"srplerp/internal/infrastructure/storage/postgres/sequence_repo"
	"srplerp/pkg/logger"
)

// defaultTargets maps each business table to its sequence module.
// The identifier column is srpl_id across the schema.
var defaultTargets = []backfill.Target{
	{Module: sequence.ModuleLead, Table: "leads", IDColumn: "srpl_id"},
	{Module: sequence.ModuleCustomer, Table: "customers", IDColumn: "srpl_id"},
	{Module: sequence.ModuleProduct, Table: "products", IDColumn: "srpl_id"},
	{Module: sequence.ModuleVendor, Table: "vendors", IDColumn: "srpl_id"},
	{Module: sequence.ModuleDeal, Table: "deals", IDColumn: "srpl_id"},
	{Module: sequence.ModuleQuote, Table: "quotes", IDColumn: "srpl_id"},
	{Module: sequence.ModuleProformaInvoice, Table: "proforma_invoices", IDColumn: "srpl_id"},
	{Module: sequence.ModuleSalesOrder, Table: "sales_orders", IDColumn: "srpl_id"},
	{Module: sequence.ModuleInvoice, Table: "invoices", IDColumn: "srpl_id"},
	{Module: sequence.ModuleCreditNote, Table: "credit_notes", IDColumn: "srpl_id"},
	{Module: sequence.ModuleDebitNote, Table: "debit_notes", IDColumn: "srpl_id"},
	{Module: sequence.ModuleDeliveryChallan, Table: "delivery_challans", IDColumn: "srpl_id"},
	{Module: sequence.ModuleReceipt, Table: "receipts", IDColumn: "srpl_id"},
	{Module: sequence.ModuleTask, Table: "tasks", IDColumn: "srpl_id"},
	{Module: sequence.ModuleActivity, Table: "activities", IDColumn: "srpl_id"},
	{Module: sequence.ModulePayment, Table: "payments", IDColumn: "srpl_id"},
	{Module: sequence.ModuleProforma, Table: "proformas", IDColumn: "srpl_id"},
}

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Fatalw("failed to ensure schema", "error", err)
	}

	txManager := postgres.NewTxManager(pool)
	configRepo := sequence_repo.NewConfigRepo(txManager)
	counterRepo := sequence_repo.NewCounterRepo(txManager)

	generator := infraseq.NewService(
		infraseq.NewTxRunner(txManager),
		configRepo,
		counterRepo,
		nil, // migration writes no issuance audit, the report is the record
	)

	// Seed configs and base counters before numbering anything.
	if err := generator.InitializeCounters(ctx, sequence.AllModules()); err != nil {
		log.Fatalw("failed to initialize counters", "error", err)
	}

	targets := selectTargets(getEnv("BACKFILL_MODULES", ""))
	batchSize := getEnvInt("BACKFILL_BATCH_SIZE", backfill.DefaultBatchSize)

	svc := backfill.NewService(backfill_repo.NewRecordRepo(txManager), configRepo, generator)

	report, err := svc.Run(ctx, targets, batchSize)
	if err != nil {
		log.Fatalw("backfill aborted", "error", err)
	}

	log.Infow("backfill completed",
		"processed", report.Processed,
		"updated", report.Updated,
		"failed", len(report.Failures),
	)
	for _, failure := range report.Failures {
		log.Warnw("record left unnumbered",
			"table", failure.Table,
			"record_id", failure.RecordID,
			"reason", failure.Reason,
		)
	}

	if len(report.Failures) > 0 {
		os.Exit(1)
	}
}

// selectTargets filters the default targets by a comma-separated module list,
// e.g. BACKFILL_MODULES=LEAD,INV. Empty selects everything.
func selectTargets(modules string) []backfill.Target {
	if modules == "" {
		return defaultTargets
	}

	wanted := make(map[string]bool)
	for _, raw := range strings.Split(modules, ",") {
		wanted[strings.ToUpper(strings.TrimSpace(raw))] = true
	}

	var out []backfill.Target
	for _, target := range defaultTargets {
		if wanted[target.Module.String()] {
			out = append(out, target)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
