// Package watch is the client-side contract for continuous position
// reporting: a device position source pushes fixes, each fix is
// forwarded to the ingest path, and stopping tears the subscription
// down and expires the server-side session exactly once.
package watch

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Watcher states. requesting_permission is observable only between
// Start being called and the source answering.
const (
	StateIdle                 = "idle"
	StateRequestingPermission = "requesting_permission"
	StateWatching             = "watching"
	StateError                = "error"
	StateStopped              = "stopped"
)

// Device failures are distinct so callers can render precise guidance
// instead of one generic failure. Sources must wrap their platform
// errors with these sentinels.
var (
	ErrPermissionDenied    = errors.New("position permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrTimeout             = errors.New("position request timed out")
)

// Position is one device fix.
type Position struct {
	Latitude  float64
	Longitude float64
	Accuracy  *float64
	Heading   *float64
	Speed     *float64
	Altitude  *float64
	Timestamp time.Time
}

// Options bound the fix acquisition: a cached fix younger than
// MaximumAge may be reused, and a single fix attempt is abandoned after
// Timeout.
type Options struct {
	HighAccuracy bool
	MaximumAge   time.Duration
	Timeout      time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaximumAge == 0 {
		o.MaximumAge = 60 * time.Second
	}
	if o.Timeout == 0 {
		o.Timeout = 10 * time.Second
	}
	return o
}

// Source is the device position API. Watch requests permission,
// subscribes, and invokes onFix whenever the platform judges the
// position has materially changed. The returned cancel func ends the
// subscription; no callbacks arrive after it returns.
type Source interface {
	Watch(opts Options, onFix func(Position), onError func(error)) (cancel func(), err error)
}

// Reporter is the ingest side: Report forwards one fix, Stop expires
// the server-side session.
type Reporter interface {
	Report(p Position) error
	Stop() error
}

// Watcher is one explicit reporting session owning its cancellation.
// Obtain it from Start; there is no package-level singleton, so two
// Start calls yield two independent subscriptions.
type Watcher struct {
	reporter Reporter

	mu      sync.Mutex
	state   string
	lastErr error
	cancel  func()

	stopOnce sync.Once
	stopErr  error
	inflight sync.WaitGroup
}

// Start requests position access and begins forwarding fixes. On
// failure the returned error is one of the sentinel device errors (or a
// source-specific one) and no reporting session exists.
func Start(source Source, reporter Reporter, opts Options) (*Watcher, error) {
	w := &Watcher{
		reporter: reporter,
		state:    StateRequestingPermission,
	}

	cancel, err := source.Watch(opts.withDefaults(), w.onFix, w.onError)
	if err != nil {
		w.mu.Lock()
		w.state = StateError
		w.lastErr = err
		w.mu.Unlock()
		return nil, err
	}

	w.mu.Lock()
	w.state = StateWatching
	w.cancel = cancel
	w.mu.Unlock()
	return w, nil
}

// State returns the current lifecycle state.
func (w *Watcher) State() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Err returns the last device error observed, if any.
func (w *Watcher) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Stop cancels the subscription and expires the server-side session.
// Safe to call more than once; the reporter's Stop runs exactly once
// and later calls return its result.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.state = StateStopped
		cancel := w.cancel
		w.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		// Let in-flight forwards drain before expiring the session.
		w.inflight.Wait()
		w.stopErr = w.reporter.Stop()
	})
	return w.stopErr
}

// onFix forwards one fix to the reporter asynchronously. A failed
// report is logged and the loop continues; the next fix may succeed.
func (w *Watcher) onFix(p Position) {
	w.mu.Lock()
	if w.state != StateWatching {
		w.mu.Unlock()
		return
	}
	w.inflight.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.inflight.Done()
		if err := w.reporter.Report(p); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"latitude":  p.Latitude,
				"longitude": p.Longitude,
			}).Warn("Failed to forward position fix; watch loop continues.")
		}
	}()
}

// onError records a device-side failure. Permission denial and friends
// are terminal for fix delivery, so the state flips to error; the
// subscription itself stays owned by the caller, who decides whether to
// Stop.
func (w *Watcher) onError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateStopped {
		return
	}
	w.lastErr = err
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrPositionUnavailable) || errors.Is(err, ErrTimeout) {
		w.state = StateError
	}
	logrus.WithError(err).Warn("Position source reported an error.")
}
