package quota

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/anime-shed/image-gallery-go/internal/errors"
	"github.com/anime-shed/image-gallery-go/internal/logger"
	"github.com/anime-shed/image-gallery-go/internal/metrics"

	"github.com/sirupsen/logrus"
)

var log = logger.Component("quota")

const (
	minuteWindow = time.Minute
	// Timestamps are kept well past the minute window they serve.
	retention = time.Hour
)

// ResetPolicy controls whether day and month counters roll over
type ResetPolicy string

const (
	// ResetNone keeps day and month counters for the whole process lifetime
	ResetNone ResetPolicy = "none"
	// ResetCalendar clears the day counter at UTC midnight and the month
	// counter on the first day of each UTC month
	ResetCalendar ResetPolicy = "calendar"
)

// Limits are the ceilings of the three quota windows
type Limits struct {
	PerMinute int `json:"per_minute"`
	PerDay    int `json:"per_day"`
	PerMonth  int `json:"per_month"`
}

// DefaultLimits matches the Azure Computer Vision free tier
func DefaultLimits() Limits {
	return Limits{PerMinute: 20, PerDay: 150, PerMonth: 4000}
}

// Usage is a point-in-time view of the quota windows
type Usage struct {
	Minute int    `json:"minute"`
	Day    int    `json:"day"`
	Month  int    `json:"month"`
	Limits Limits `json:"limits"`
}

// Sleeper suspends the caller for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// Tracker gates calls to the vision API under minute, day and month quotas.
// The monthly and daily ceilings reject immediately; the per-minute ceiling
// delays the caller until the oldest counted call leaves the window.
type Tracker struct {
	mu         sync.Mutex
	limits     Limits
	policy     ResetPolicy
	timestamps []time.Time
	dayCount   int
	monthCount int
	dayStart   time.Time
	monthStart time.Time

	now   func() time.Time
	sleep Sleeper
}

// Option configures a Tracker
type Option func(*Tracker)

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithSleeper replaces the context-aware sleep used for minute waits
func WithSleeper(sleep Sleeper) Option {
	return func(t *Tracker) {
		t.sleep = sleep
	}
}

// WithResetPolicy selects the day/month rollover behaviour
func WithResetPolicy(policy ResetPolicy) Option {
	return func(t *Tracker) {
		t.policy = policy
	}
}

// NewTracker creates a tracker; non-positive limits fall back to the defaults
func NewTracker(limits Limits, opts ...Option) *Tracker {
	defaults := DefaultLimits()
	if limits.PerMinute <= 0 {
		limits.PerMinute = defaults.PerMinute
	}
	if limits.PerDay <= 0 {
		limits.PerDay = defaults.PerDay
	}
	if limits.PerMonth <= 0 {
		limits.PerMonth = defaults.PerMonth
	}

	t := &Tracker{
		limits: limits,
		policy: ResetNone,
		now:    time.Now,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(t)
	}

	start := t.now().UTC()
	t.dayStart = startOfDay(start)
	t.monthStart = startOfMonth(start)
	return t
}

// Admit blocks until the call may proceed, or fails with a quota error.
// Every successful return is counted against all three windows.
func (t *Tracker) Admit(ctx context.Context) error {
	var waited time.Duration
	for {
		wait, err := t.tryAdmit()
		if err != nil {
			return err
		}
		if wait <= 0 {
			if waited > 0 {
				metrics.QuotaWaitSeconds.Observe(waited.Seconds())
			}
			return nil
		}

		log.WithFields(logrus.Fields{
			"wait_seconds": wait.Seconds(),
			"per_minute":   t.limits.PerMinute,
		}).Info("Vision API minute quota reached, waiting")

		if err := t.sleep(ctx, wait); err != nil {
			return err
		}
		waited += wait
	}
}

// tryAdmit records a call and returns zero, or returns how long to wait
// before trying again. Windows are re-evaluated on every attempt so that
// concurrent waiters cannot overrun the minute ceiling.
func (t *Tracker) tryAdmit() (time.Duration, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.rollover(now)
	t.prune(now)

	if t.monthCount >= t.limits.PerMonth {
		metrics.QuotaRejections.WithLabelValues(string(apperrors.QuotaScopeMonth)).Inc()
		return 0, apperrors.NewQuotaExceededError(apperrors.QuotaScopeMonth, t.limits.PerMonth)
	}
	if t.dayCount >= t.limits.PerDay {
		metrics.QuotaRejections.WithLabelValues(string(apperrors.QuotaScopeDay)).Inc()
		return 0, apperrors.NewQuotaExceededError(apperrors.QuotaScopeDay, t.limits.PerDay)
	}

	first := t.firstInWindow(now)
	if len(t.timestamps)-first >= t.limits.PerMinute {
		age := now.Sub(t.timestamps[first])
		if wait := minuteWindow - age; wait > 0 {
			return wait, nil
		}
	}

	t.timestamps = append(t.timestamps, now)
	t.dayCount++
	t.monthCount++
	t.publish(len(t.timestamps) - first)
	return 0, nil
}

// Usage returns the current counts of every window
func (t *Tracker) Usage() Usage {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.rollover(now)
	t.prune(now)

	return Usage{
		Minute: len(t.timestamps) - t.firstInWindow(now),
		Day:    t.dayCount,
		Month:  t.monthCount,
		Limits: t.limits,
	}
}

// Limits returns the configured ceilings
func (t *Tracker) Limits() Limits {
	return t.limits
}

// firstInWindow returns the index of the oldest timestamp younger than one
// minute. Must be called with lock held.
func (t *Tracker) firstInWindow(now time.Time) int {
	for i, ts := range t.timestamps {
		if now.Sub(ts) < minuteWindow {
			return i
		}
	}
	return len(t.timestamps)
}

// prune drops timestamps older than the retention period.
// Must be called with lock held.
func (t *Tracker) prune(now time.Time) {
	keep := 0
	for keep < len(t.timestamps) && now.Sub(t.timestamps[keep]) > retention {
		keep++
	}
	if keep > 0 {
		t.timestamps = append(t.timestamps[:0], t.timestamps[keep:]...)
	}
}

// rollover resets day and month counters under the calendar policy.
// Must be called with lock held.
func (t *Tracker) rollover(now time.Time) {
	if t.policy != ResetCalendar {
		return
	}
	utc := now.UTC()
	if day := startOfDay(utc); day.After(t.dayStart) {
		t.dayStart = day
		t.dayCount = 0
	}
	if month := startOfMonth(utc); month.After(t.monthStart) {
		t.monthStart = month
		t.monthCount = 0
	}
}

func (t *Tracker) publish(minute int) {
	metrics.QuotaUsage.WithLabelValues("minute").Set(float64(minute))
	metrics.QuotaUsage.WithLabelValues("day").Set(float64(t.dayCount))
	metrics.QuotaUsage.WithLabelValues("month").Set(float64(t.monthCount))
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
