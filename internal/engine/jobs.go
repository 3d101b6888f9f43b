package engine

import (
	"context"

	"github.com/gpwsignals/engine/internal/domain"
	"github.com/gpwsignals/engine/internal/scheduler"
	"github.com/gpwsignals/engine/internal/workerpool"
)

// priceJob adapts PriceCollector.Run to scheduler.Job.
type priceJob struct{ e *Engine }

func (j priceJob) Name() string { return "price_collector" }
func (j priceJob) Run(ctx context.Context) (int, error) {
	return j.e.PriceCollector.Run(ctx)
}

// newsJob adapts NewsCollector.Run to scheduler.Job.
type newsJob struct{ e *Engine }

func (j newsJob) Name() string { return "news_collector" }
func (j newsJob) Run(ctx context.Context) (int, error) {
	return j.e.NewsCollector.Run(ctx)
}

// signalsJob fans the Signal Generator out across the cross product of
// monitored stocks and users (spec.md §5 "signal generation are parallel
// across stocks"), since signalgen.Generator.Generate only handles one
// (user, stock) pair per call.
type signalsJob struct{ e *Engine }

func (j signalsJob) Name() string { return "signal_cycle" }
func (j signalsJob) Run(ctx context.Context) (int, error) {
	stocks, err := j.e.Stocks.ListMonitored(ctx)
	if err != nil {
		return 0, err
	}
	users, err := j.e.Users.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	if len(stocks) == 0 || len(users) == 0 {
		return 0, nil
	}

	type pair struct {
		userID int64
		symbol string
	}
	pairs := make([]pair, 0, len(stocks)*len(users))
	for _, u := range users {
		for _, s := range stocks {
			pairs = append(pairs, pair{userID: u.UserID, symbol: s.Symbol})
		}
	}

	now := j.e.Cal.Now()
	pool := workerpool.New(j.e.Config.Collector.MaxConcurrency)
	results := workerpool.Map(ctx, pool, pairs, func(ctx context.Context, p pair) bool {
		sig, err := j.e.SignalGen.Generate(ctx, p.userID, p.symbol, now)
		if err != nil {
			j.e.Log.Error().Err(err).Int64("user_id", p.userID).Str("stock", p.symbol).Msg("signal generation failed")
			return false
		}
		return sig != nil
	})

	generated := 0
	for _, ok := range results {
		if ok {
			generated++
		}
	}
	return generated, nil
}

// dispatchJob adapts Dispatcher.Run to scheduler.Job.
type dispatchJob struct{ e *Engine }

func (j dispatchJob) Name() string { return "dispatcher" }
func (j dispatchJob) Run(ctx context.Context) (int, error) {
	return j.e.Dispatcher.Run(ctx)
}

// outcomesJob adapts Tracker.Run to scheduler.Job.
type outcomesJob struct{ e *Engine }

func (j outcomesJob) Name() string { return "outcome_tracker" }
func (j outcomesJob) Run(ctx context.Context) (int, error) {
	return j.e.Outcomes.Run(ctx, j.e.Cal.Now())
}

// registerSchedules wires the 5 schedule kinds with the default cadences
// spec.md §4.2 names: price every 5 minutes in-session, news on a dual
// in-session/off-session split, signals every 30 minutes in-session,
// outcomes every 30 minutes in-session (session-close resolution is
// covered by the next in-session tick plus the off-session catch-up
// window below), and dispatch every 5 minutes around the clock so a
// signal generated near session close still gets delivered.
func (e *Engine) registerSchedules() {
	inSession := scheduler.Window{StartHour: 9, EndHour: 17, ActiveDays: scheduler.Weekdays, RespectHolidays: true}
	offSession := scheduler.Window{StartHour: 17, EndHour: 9, ActiveDays: scheduler.AllDays, RespectHolidays: false}
	allHours := scheduler.Window{StartHour: 0, EndHour: 24, ActiveDays: scheduler.Weekdays, RespectHolidays: false}

	e.Scheduler.Register(domain.SchedulePrice, 5, inSession, priceJob{e})
	e.Scheduler.Register(domain.ScheduleNews, 30, inSession, newsJob{e})
	e.Scheduler.Register(domain.ScheduleNews, 120, offSession, newsJob{e})
	e.Scheduler.Register(domain.ScheduleSignals, 30, inSession, signalsJob{e})
	e.Scheduler.Register(domain.ScheduleOutcomes, 30, inSession, outcomesJob{e})
	e.Scheduler.Register(domain.ScheduleOutcomes, 35, scheduler.Window{StartHour: 17, EndHour: 18, ActiveDays: scheduler.Weekdays, RespectHolidays: true}, outcomesJob{e})
	e.Scheduler.Register(domain.ScheduleDispatch, 5, allHours, dispatchJob{e})
}
