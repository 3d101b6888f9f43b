// Package dispatcher renders and sends trading signals through the
// user's enabled notification channels (spec.md §4.9), grounded on the
// teacher's client-adapter shape (internal/clients/{yahoo,tradernet}):
// one small Client per external transport, timeouts on every call,
// errors classified via internal/errkind so the caller can decide
// retry-vs-permanent without inspecting transport internals.
package dispatcher

import (
	"context"

	"github.com/gpwsignals/engine/internal/domain"
)

// Channel sends a rendered trading signal to one recipient over one
// transport. A retriable failure must be classified errkind.Transient
// so the Dispatcher knows to leave the signal undispatched for the
// next cycle rather than marking it permanently failed.
type Channel interface {
	Name() domain.NotificationChannel
	Send(ctx context.Context, prefs domain.UserPreferences, sig domain.TradingSignal) error
}
