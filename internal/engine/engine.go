// Package engine wires every component into one running process. It is
// grounded on the teacher's cmd/server/main.go, which built the database,
// scheduler, and HTTP server inline inside main() and registered jobs
// through a single registerJobs(sched, db, cfg) call: Engine is that same
// direct-wiring style lifted into a reusable struct so the CLI's
// subcommands (spec.md §6 collect/generate-signals/dispatch/... and the
// long-running serve loop) can share one construction path instead of
// duplicating it.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gpwsignals/engine/internal/clock"
	"github.com/gpwsignals/engine/internal/config"
	"github.com/gpwsignals/engine/internal/dispatcher"
	"github.com/gpwsignals/engine/internal/events"
	"github.com/gpwsignals/engine/internal/newsanalyzer"
	"github.com/gpwsignals/engine/internal/newscollector"
	"github.com/gpwsignals/engine/internal/outcome"
	"github.com/gpwsignals/engine/internal/pricecollector"
	"github.com/gpwsignals/engine/internal/reliability"
	"github.com/gpwsignals/engine/internal/scheduler"
	"github.com/gpwsignals/engine/internal/sentiment"
	"github.com/gpwsignals/engine/internal/signalgen"
	"github.com/gpwsignals/engine/internal/store"
)

// Engine holds every long-lived component the process needs: stores,
// domain services, the scheduler, and the dispatch channels. Built once
// by New and shared between the operator CLI's one-shot subcommands and
// the long-running serve loop.
type Engine struct {
	Config *config.Config
	Log    zerolog.Logger

	DB  *store.DB
	Cal *clock.Calendar
	Bus *events.Manager

	Stocks    store.StockStore
	Bars      store.OHLCVStore
	News      store.NewsStore
	Users     store.UserStore
	Signals   store.SignalStore
	Schedules store.ScheduleStore

	PriceCollector *pricecollector.Collector
	NewsCollector  *newscollector.Collector
	NewsAnalyzer   *newsanalyzer.Analyzer
	SignalGen      *signalgen.Generator
	Dispatcher     *dispatcher.Dispatcher
	Outcomes       *outcome.Tracker

	Scheduler *scheduler.Scheduler
}

// New constructs an Engine from cfg: opens the sqlite database, runs
// migrations, and wires every domain service over it. Telegram/email
// channels are only attached to the Dispatcher when their credentials
// are present, so a development config without SMTP/bot secrets can
// still run every other subcommand.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Engine, error) {
	db, err := store.Open(cfg.DatabasePath, log)
	if err != nil {
		return nil, fmt.Errorf("engine: open database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("engine: migrate database: %w", err)
	}

	openH, openM, err := parseClockTime(cfg.Session.OpenLocal)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("engine: session.openLocal: %w", err)
	}
	closeH, closeM, err := parseClockTime(cfg.Session.CloseLocal)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("engine: session.closeLocal: %w", err)
	}
	cal := clock.NewCalendar(clock.RealClock{}, openH, openM, closeH, closeM)

	holidays, err := parseExtraHolidays(cfg.Calendar.ExtraHolidays)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("engine: calendar.extraHolidays: %w", err)
	}
	cal.SetExtraHolidays(holidays)

	bus := events.NewManager(log)

	stocks := store.NewSQLStockStore(db, log)
	bars := store.NewSQLOHLCVStore(db, log)
	news := store.NewSQLNewsStore(db, log)
	users := store.NewSQLUserStore(db, log)
	signals := store.NewSQLSignalStore(db, log)
	schedules := store.NewSQLScheduleStore(db, log)

	backoff := reliability.Backoff{Base: time.Duration(cfg.Dispatch.RetryBackoffSeconds) * time.Second, Cap: 5 * time.Minute}
	httpClient := pricecollector.NewClient(cfg.Collector.OHLCVURLTemplate, backoff, log)
	priceCollector := pricecollector.New(httpClient, stocks, bars, cfg.Collector.RequestsPerSecond, cfg.Collector.MaxConcurrency, log)

	newsCollector := newscollector.New(stocks, news, cfg.News.Feeds, sentiment.StubClassifier{}, cfg.Collector.MaxConcurrency, log)

	profile := newsanalyzer.ProfileByName(cfg.News.Profile)
	analyzer := newsanalyzer.New(news, cal, profile, newsanalyzer.SourceWeights(cfg.News.SourceWeights))

	generator := signalgen.New(stocks, bars, signals, analyzer, users, bus, cfg.SignalProfile, log)

	channels := buildChannels(cfg, log)
	disp := dispatcher.New(signals, users, channels, cfg.Collector.MaxConcurrency, bus, log)

	tracker := outcome.New(signals, bars, cal, cfg.Collector.MaxConcurrency, log)

	sched := scheduler.New(cal, schedules, cfg.Scheduler.TickIntervalSeconds, cfg.Collector.MaxConcurrency, log)

	e := &Engine{
		Config: cfg, Log: log, DB: db, Cal: cal, Bus: bus,
		Stocks: stocks, Bars: bars, News: news, Users: users, Signals: signals, Schedules: schedules,
		PriceCollector: priceCollector, NewsCollector: newsCollector, NewsAnalyzer: analyzer,
		SignalGen: generator, Dispatcher: disp, Outcomes: tracker, Scheduler: sched,
	}
	e.registerSchedules()
	return e, nil
}

// Close releases the engine's resources. Safe to call once per Engine.
func (e *Engine) Close() error {
	return e.DB.Close()
}

// buildChannels attaches a TelegramChannel/EmailChannel only when their
// credentials are configured, so a missing bot token or SMTP password
// degrades to "that channel is unavailable" rather than a startup error.
func buildChannels(cfg *config.Config, log zerolog.Logger) []dispatcher.Channel {
	var channels []dispatcher.Channel
	if cfg.TelegramBotToken != "" {
		tg, err := dispatcher.NewTelegramChannel(cfg.TelegramBotToken, log)
		if err != nil {
			log.Warn().Err(err).Msg("engine: telegram channel unavailable")
		} else {
			channels = append(channels, tg)
		}
	}
	if cfg.SMTPHost != "" {
		channels = append(channels, dispatcher.NewEmailChannel(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom, log))
	}
	return channels
}

func parseClockTime(hhmm string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}

func parseExtraHolidays(dates []string) ([]time.Time, error) {
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		t, err := time.ParseInLocation("2006-01-02", d, clock.Warsaw)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
