// Command gpwsignal is the operator CLI spec.md §6 names: one-shot
// subcommands for each pipeline stage plus a long-running serve loop.
// Grounded on the teacher's cmd/server/main.go direct-wiring style
// (config.Load, database.New/Migrate, scheduler.New/Start, server.New)
// lifted behind internal/engine.New and dispatched by subcommand instead
// of always starting the full daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/gpwsignals/engine/internal/config"
	"github.com/gpwsignals/engine/internal/domain"
	"github.com/gpwsignals/engine/internal/engine"
	"github.com/gpwsignals/engine/internal/errkind"
	"github.com/gpwsignals/engine/internal/outcome"
	"github.com/gpwsignals/engine/internal/server"
	"github.com/gpwsignals/engine/pkg/logger"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 1
	}

	cmd, rest := args[0], args[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "path to config.yaml")
	symbol := fs.String("symbol", "", "restrict generate-signals to a single GPW symbol")
	allMonitored := fs.Bool("all-monitored", false, "generate signals for every monitored symbol (default)")
	if err := fs.Parse(rest); err != nil {
		return 1
	}
	// allMonitored is accepted for symmetry with --symbol but carries no
	// extra meaning: generate-signals already defaults to every
	// monitored stock when --symbol is empty.
	_ = allMonitored

	log := logger.New(logger.Config{Level: "info", Pretty: true})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		return errkind.ExitCode(errkind.KindOf(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng, err := engine.New(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize engine")
		return errkind.ExitCode(errkind.KindOf(err))
	}
	defer eng.Close()

	switch cmd {
	case "collect":
		n, err := eng.PriceCollector.Run(ctx)
		return report(log, "price collection", n, err)
	case "collect-news":
		n, err := eng.NewsCollector.Run(ctx)
		return report(log, "news collection", n, err)
	case "generate-signals":
		n, err := runGenerateSignals(ctx, eng, *symbol)
		return report(log, "signal generation", n, err)
	case "dispatch":
		n, err := eng.Dispatcher.Run(ctx)
		return report(log, "dispatch", n, err)
	case "resolve-outcomes":
		n, err := eng.Outcomes.Run(ctx, eng.Cal.Now())
		return report(log, "outcome resolution", n, err)
	case "status":
		return runStatus(eng)
	case "serve":
		return runServe(ctx, cancel, eng)
	default:
		usage()
		return 1
	}
}

// runGenerateSignals mirrors the signals schedule's cross-product fan-out
// but optionally narrows it to one symbol (spec.md §6
// "generate-signals [--all-monitored | --symbol X]").
func runGenerateSignals(ctx context.Context, eng *engine.Engine, symbol string) (int, error) {
	users, err := eng.Users.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	var symbols []string
	if symbol != "" {
		symbols = []string{symbol}
	} else {
		stocks, err := eng.Stocks.ListMonitored(ctx)
		if err != nil {
			return 0, err
		}
		for _, s := range stocks {
			symbols = append(symbols, s.Symbol)
		}
	}

	now := eng.Cal.Now()
	generated := 0
	for _, u := range users {
		for _, sym := range symbols {
			sig, err := eng.SignalGen.Generate(ctx, u.UserID, sym, now)
			if err != nil {
				eng.Log.Error().Err(err).Int64("user_id", u.UserID).Str("stock", sym).Msg("signal generation failed")
				continue
			}
			if sig != nil {
				generated++
			}
		}
	}
	return generated, nil
}

func runStatus(eng *engine.Engine) int {
	now := eng.Cal.Now()
	fmt.Printf("now (UTC):       %s\n", now.Format(time.RFC3339))
	fmt.Printf("is trading day:  %v\n", eng.Cal.IsTradingDay(now))
	fmt.Printf("is in session:   %v\n", eng.Cal.IsInSession(now))
	for _, kind := range []domain.ScheduleKind{domain.SchedulePrice, domain.ScheduleNews, domain.ScheduleSignals, domain.ScheduleDispatch, domain.ScheduleOutcomes} {
		execs, err := eng.Schedules.RecentExecutions(context.Background(), kind, 1)
		if err != nil || len(execs) == 0 {
			fmt.Printf("%-10s  no runs recorded\n", kind)
			continue
		}
		e := execs[0]
		fmt.Printf("%-10s  last run %s, %d items, err=%s\n", kind, e.FinishedAt.Format(time.RFC3339), e.ItemsProcessed, e.ErrKind)
	}

	ctx := context.Background()
	stocks, err := eng.Stocks.ListMonitored(ctx)
	if err != nil {
		eng.Log.Warn().Err(err).Msg("status: list monitored stocks failed")
		return 0
	}
	fmt.Println("feedback (30d):")
	for _, st := range stocks {
		summary, err := outcome.Summarize(ctx, eng.Signals, st.Symbol, now.Add(-30*24*time.Hour))
		if err != nil {
			eng.Log.Warn().Err(err).Str("stock", st.Symbol).Msg("status: feedback summary failed")
			continue
		}
		if summary.ResolvedCount == 0 {
			continue
		}
		fmt.Printf("  %-6s  resolved=%d win_rate=%.1f%% avg_return=%.2f%%\n",
			summary.Stock, summary.ResolvedCount, summary.WinRatePct, summary.AvgReturnPct)
	}
	return 0
}

// runServe starts the scheduler and the read-only HTTP operator surface
// and blocks until SIGINT/SIGTERM, in the teacher's main()'s
// start-then-wait-on-signal shape.
func runServe(ctx context.Context, cancel context.CancelFunc, eng *engine.Engine) int {
	eng.Scheduler.Start(ctx)
	defer eng.Scheduler.Stop()

	srv := server.New(server.Config{
		Port: eng.Config.Port, Log: eng.Log,
		Stocks: eng.Stocks, Signals: eng.Signals, Schedules: eng.Schedules,
		Cal: eng.Cal, DevMode: eng.Config.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
			eng.Log.Error().Err(err).Msg("HTTP server stopped unexpectedly")
		}
	}()

	eng.Log.Info().Int("port", eng.Config.Port).Msg("gpwsignal serving")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		eng.Log.Error().Err(err).Msg("HTTP server forced to shutdown")
	}
	return 0
}

func report(log zerolog.Logger, stage string, n int, err error) int {
	if err != nil {
		log.Error().Err(err).Str("stage", stage).Msg("subcommand failed")
		return errkind.ExitCode(errkind.KindOf(err))
	}
	log.Info().Str("stage", stage).Int("items", n).Msg("subcommand completed")
	return 0
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: gpwsignal <collect|collect-news|generate-signals|dispatch|resolve-outcomes|status|serve> [--config config.yaml] [--symbol X]")
}
