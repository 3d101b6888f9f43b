package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gpwsignals/engine/internal/domain"
	"github.com/gpwsignals/engine/internal/errkind"
	"github.com/gpwsignals/engine/internal/events"
	"github.com/gpwsignals/engine/internal/store"
	"github.com/gpwsignals/engine/internal/workerpool"
)

const sendTimeout = 10 * time.Second

type dispatchJob struct {
	prefs  domain.UserPreferences
	signal domain.TradingSignal
}

type jobResult struct {
	channel   domain.NotificationChannel
	delivered bool
	permanent bool
	err       error
}

// Dispatcher fans undispatched signals out to each user's enabled
// channels, one signal per worker of a pool bounded by maxConcurrency.
// There is no per-channel queue: a signal with an unresolved channel
// stays undispatched and is picked up again by the next Run.
type Dispatcher struct {
	signals  store.SignalStore
	users    store.UserStore
	channels map[domain.NotificationChannel]Channel
	pool     *workerpool.Pool
	bus      *events.Manager
	log      zerolog.Logger
}

// New builds a Dispatcher over the given channels, keyed by their own
// Name(). maxConcurrency bounds the per-cycle worker pool.
func New(signals store.SignalStore, users store.UserStore, channels []Channel, maxConcurrency int, bus *events.Manager, log zerolog.Logger) *Dispatcher {
	byName := make(map[domain.NotificationChannel]Channel, len(channels))
	for _, c := range channels {
		byName[c.Name()] = c
	}
	return &Dispatcher{
		signals:  signals,
		users:    users,
		channels: byName,
		pool:     workerpool.New(maxConcurrency),
		bus:      bus,
		log:      log.With().Str("component", "dispatcher").Logger(),
	}
}

// Run dispatches every undispatched, non-hold signal to its user's
// enabled channels, returning the number of signals that became fully
// dispatched (all enabled channels delivered or permanently failed).
func (d *Dispatcher) Run(ctx context.Context) (dispatched int, err error) {
	pending, err := d.signals.UndispatchedSignals(ctx)
	if err != nil {
		return 0, fmt.Errorf("dispatcher: list undispatched signals: %w", err)
	}

	prefsCache := make(map[int64]*domain.UserPreferences)
	var jobs []dispatchJob
	for _, sig := range pending {
		prefs, ok := prefsCache[sig.UserID]
		if !ok {
			prefs, err = d.users.Get(ctx, sig.UserID)
			if err != nil {
				d.log.Warn().Err(err).Int64("user_id", sig.UserID).Msg("load preferences for dispatch")
				continue
			}
			prefsCache[sig.UserID] = prefs
		}
		if prefs == nil {
			continue
		}
		if sig.Type == domain.SignalHold && !prefs.DispatchHoldSummary {
			continue
		}
		jobs = append(jobs, dispatchJob{prefs: *prefs, signal: sig})
	}

	type outcome struct {
		signalID int64
		complete bool
	}
	results := workerpool.Map(ctx, d.pool, jobs, func(ctx context.Context, job dispatchJob) outcome {
		complete := d.dispatchOne(ctx, job)
		return outcome{signalID: job.signal.ID, complete: complete}
	})

	for _, r := range results {
		if r.complete {
			dispatched++
		}
	}
	return dispatched, nil
}

// dispatchOne sends sig over every channel prefs has enabled, skipping
// ones already delivered, and returns whether every enabled channel is
// now resolved (delivered or permanently failed).
func (d *Dispatcher) dispatchOne(ctx context.Context, job dispatchJob) bool {
	allResolved := true
	anyResolved := false

	for _, channelName := range job.prefs.NotificationChannels {
		ch, ok := d.channels[channelName]
		if !ok {
			continue
		}

		existing, err := d.signals.DeliveryStatus(ctx, job.signal.ID, channelName)
		if err != nil {
			d.log.Warn().Err(err).Int64("signal_id", job.signal.ID).Msg("read delivery status")
			allResolved = false
			continue
		}
		if existing != nil && (existing.Status == "delivered" || existing.Status == "failed") {
			anyResolved = true
			continue
		}

		result := d.send(ctx, ch, job)
		attempts := 1
		if existing != nil {
			attempts = existing.Attempts + 1
		}
		now := time.Now().UTC()
		delivery := domain.ChannelDelivery{SignalID: job.signal.ID, Channel: channelName, Attempts: attempts, LastAttemptAt: &now}

		switch {
		case result.delivered:
			delivery.Status = "delivered"
			delivery.DeliveredAt = &now
			anyResolved = true
		case result.permanent:
			delivery.Status = "failed"
			anyResolved = true
			d.log.Error().Err(result.err).Int64("signal_id", job.signal.ID).Str("channel", string(channelName)).Msg("permanent dispatch failure")
			if d.bus != nil {
				d.bus.Emit(events.SignalDispatchFailed, "dispatcher", map[string]interface{}{
					"signal_id": job.signal.ID, "channel": string(channelName), "error": result.err.Error(),
				})
			}
		default:
			delivery.Status = "pending"
			allResolved = false
		}

		if err := d.signals.RecordDelivery(ctx, delivery); err != nil {
			d.log.Warn().Err(err).Int64("signal_id", job.signal.ID).Msg("record delivery")
		}
	}

	if allResolved && anyResolved {
		if err := d.signals.MarkDispatched(ctx, job.signal.ID, time.Now().UTC()); err != nil {
			d.log.Warn().Err(err).Int64("signal_id", job.signal.ID).Msg("mark dispatched")
			return false
		}
		return true
	}
	return false
}

func (d *Dispatcher) send(ctx context.Context, ch Channel, job dispatchJob) jobResult {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	err := ch.Send(sendCtx, job.prefs, job.signal)
	if err == nil {
		return jobResult{channel: ch.Name(), delivered: true}
	}
	if errkind.KindOf(err) == errkind.Transient {
		return jobResult{channel: ch.Name(), err: err}
	}
	return jobResult{channel: ch.Name(), permanent: true, err: err}
}

// ExpireSessionEnd marks every still-undispatched signal as expired at
// session close, per spec.md §4.9's "never retried" rule for signals
// that missed their window.
func (d *Dispatcher) ExpireSessionEnd(ctx context.Context, before time.Time) (int, error) {
	n, err := d.signals.ExpireUndispatched(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("dispatcher: expire undispatched: %w", err)
	}
	return n, nil
}
