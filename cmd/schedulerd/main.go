package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LerianStudio/lib-uncommons/v2/uncommons/cron"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/oklog/oklog/pkg/group"

	"github.com/corebank/transfer-engine/internal/adapter/ledger"
	"github.com/corebank/transfer-engine/internal/adapter/repository/postgres"
	"github.com/corebank/transfer-engine/internal/domain"
	"github.com/corebank/transfer-engine/internal/usecase/scheduler"
	"github.com/corebank/transfer-engine/internal/usecase/transfer"
)

// defaultCronSpec fires the standing-instruction batch once per day
const defaultCronSpec = "0 1 * * *"

func main() {
	// 1. Configuration from environment with code defaults
	var (
		dbConnStr      = envString("DB_CONN_STR", "")
		loanLedgerURL  = envString("LOAN_LEDGER_URL", "http://localhost:8081")
		savingsURL     = envString("SAVINGS_LEDGER_URL", "http://localhost:8082")
		cronSpec       = envString("SCHEDULER_CRON", defaultCronSpec)
		logLevelFilter = envString("LOG_LEVEL", "info")
	)
	if dbConnStr == "" {
		dbConnStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			envString("DB_HOST", "localhost"),
			envString("DB_PORT", "5432"),
			envString("DB_USER", "postgres"),
			envString("DB_PASSWORD", "postgres"),
			envString("DB_NAME", "transfers"),
		)
	}

	// 2. Logging domain
	var logger log.Logger
	{
		logger = log.NewLogfmtLogger(os.Stderr)
		logger = level.NewFilter(logger, allowLevel(logLevelFilter))
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}
	_ = level.Info(logger).Log("msg", "transfer engine scheduler starting")

	// 3. Database and repositories
	db, err := postgres.NewDB(dbConnStr)
	if err != nil {
		_ = level.Error(logger).Log("db", err)
		os.Exit(1)
	}
	defer db.Close()

	transferRepo := postgres.NewTransferRepository(db)
	instructionRepo := postgres.NewInstructionRepository(db)
	historyRepo := postgres.NewHistoryRepository(db)
	uow := postgres.NewUnitOfWork(db)

	// 4. Ledger collaborators
	loans := ledger.NewLoanClient(loanLedgerURL, nil)
	savings := ledger.NewSavingsClient(savingsURL, nil)

	// 5. Services
	var orchestrator transfer.Orchestrator
	{
		orchestrator = transfer.NewTransferService(loans, savings, transferRepo, uow)
		orchestrator = transfer.LoggingMiddleware(log.With(logger, "component", "orchestrator"))(orchestrator)
	}
	batch := scheduler.NewService(instructionRepo, historyRepo, loans, orchestrator,
		utcClock{}, log.With(logger, "component", "scheduler"))

	schedule, err := cron.Parse(cronSpec)
	if err != nil {
		_ = level.Error(logger).Log("cron", err)
		os.Exit(1)
	}

	// 6. Run group: the cron loop and the signal watcher
	var g group.Group
	{
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			return runLoop(ctx, schedule, batch, logger)
		}, func(error) {
			cancel()
		})
	}
	{
		cancelInterrupt := make(chan struct{})
		g.Add(func() error {
			c := make(chan os.Signal, 1)
			signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
			select {
			case sig := <-c:
				return fmt.Errorf("received signal %s", sig)
			case <-cancelInterrupt:
				return nil
			}
		}, func(error) {
			close(cancelInterrupt)
		})
	}
	_ = level.Error(logger).Log("exit", g.Run())
}

// runLoop sleeps until each cron tick and fires the batch. A failed run is
// logged and the loop keeps going: failed rules stay due and are retried
// on the next tick.
func runLoop(ctx context.Context, schedule cron.Schedule, batch *scheduler.Service, logger log.Logger) error {
	for {
		next, err := schedule.Next(time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to compute next tick: %w", err)
		}
		_ = level.Info(logger).Log("msg", "next scheduler tick", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		report, err := batch.RunDueInstructions(ctx)
		if err != nil {
			_ = level.Warn(logger).Log("msg", "scheduler run finished with failures",
				"executed", report.Executed, "skipped", report.Skipped,
				"failed", len(report.Failures), "err", err)
			continue
		}
		_ = level.Info(logger).Log("msg", "scheduler run finished",
			"executed", report.Executed, "skipped", report.Skipped)
	}
}

// utcClock is the production clock: the business date is the UTC calendar day
type utcClock struct{}

func (utcClock) Today() time.Time {
	return domain.DateOnly(time.Now().UTC())
}

func (utcClock) Now() time.Time {
	return time.Now().UTC()
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func allowLevel(name string) level.Option {
	switch name {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}
