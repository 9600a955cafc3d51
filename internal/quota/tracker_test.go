package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	apperrors "github.com/anime-shed/image-gallery-go/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when told to, or when a caller sleeps on it
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

var epoch = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestTracker(limits Limits, clock *fakeClock, opts ...Option) *Tracker {
	opts = append([]Option{WithClock(clock.Now), WithSleeper(clock.Sleep)}, opts...)
	return NewTracker(limits, opts...)
}

func TestNewTracker_DefaultLimits(t *testing.T) {
	tracker := NewTracker(Limits{})
	assert.Equal(t, DefaultLimits(), tracker.Limits())
}

func TestAdmit_UnderMinuteLimitDoesNotWait(t *testing.T) {
	clock := newFakeClock(epoch)
	tracker := newTestTracker(Limits{PerMinute: 3, PerDay: 100, PerMonth: 1000}, clock)

	for i := 0; i < 3; i++ {
		require.NoError(t, tracker.Admit(context.Background()))
	}

	assert.Empty(t, clock.Sleeps())
	usage := tracker.Usage()
	assert.Equal(t, 3, usage.Minute)
	assert.Equal(t, 3, usage.Day)
	assert.Equal(t, 3, usage.Month)
}

func TestAdmit_MinuteLimitWaitsForOldestToExpire(t *testing.T) {
	clock := newFakeClock(epoch)
	tracker := newTestTracker(Limits{PerMinute: 3, PerDay: 100, PerMonth: 1000}, clock)

	for i := 0; i < 3; i++ {
		require.NoError(t, tracker.Admit(context.Background()))
		clock.Advance(10 * time.Second)
	}
	// Oldest call is now 30s old.

	require.NoError(t, tracker.Admit(context.Background()))

	assert.Equal(t, []time.Duration{30 * time.Second}, clock.Sleeps())
	assert.Equal(t, epoch.Add(60*time.Second), clock.Now())
	assert.Equal(t, 4, tracker.Usage().Day)
}

func TestAdmit_NeverExceedsMinuteLimitInAnyWindow(t *testing.T) {
	clock := newFakeClock(epoch)
	limits := Limits{PerMinute: 5, PerDay: 1000, PerMonth: 1000}
	tracker := newTestTracker(limits, clock)

	var admitted []time.Time
	for i := 0; i < 40; i++ {
		require.NoError(t, tracker.Admit(context.Background()))
		admitted = append(admitted, clock.Now())
		clock.Advance(3 * time.Second)
	}

	for _, end := range admitted {
		count := 0
		for _, ts := range admitted {
			if !ts.After(end) && end.Sub(ts) < time.Minute {
				count++
			}
		}
		assert.LessOrEqual(t, count, limits.PerMinute, "window ending at %s", end)
	}

	for _, wait := range clock.Sleeps() {
		assert.LessOrEqual(t, wait, time.Minute)
		assert.Greater(t, wait, time.Duration(0))
	}
}

func TestAdmit_DayLimitFailsFast(t *testing.T) {
	clock := newFakeClock(epoch)
	tracker := newTestTracker(Limits{PerMinute: 100, PerDay: 2, PerMonth: 1000}, clock)

	require.NoError(t, tracker.Admit(context.Background()))
	require.NoError(t, tracker.Admit(context.Background()))

	err := tracker.Admit(context.Background())
	require.Error(t, err)
	scope, ok := apperrors.QuotaScopeOf(err)
	assert.True(t, ok)
	assert.Equal(t, apperrors.QuotaScopeDay, scope)
	assert.Empty(t, clock.Sleeps())
	assert.Equal(t, 2, tracker.Usage().Day)
}

func TestAdmit_MonthCheckedBeforeDay(t *testing.T) {
	clock := newFakeClock(epoch)
	tracker := newTestTracker(Limits{PerMinute: 100, PerDay: 2, PerMonth: 2}, clock)

	require.NoError(t, tracker.Admit(context.Background()))
	require.NoError(t, tracker.Admit(context.Background()))

	scope, ok := apperrors.QuotaScopeOf(tracker.Admit(context.Background()))
	assert.True(t, ok)
	assert.Equal(t, apperrors.QuotaScopeMonth, scope)
}

func TestAdmit_NoRolloverByDefault(t *testing.T) {
	clock := newFakeClock(epoch)
	tracker := newTestTracker(Limits{PerMinute: 100, PerDay: 1, PerMonth: 1000}, clock)

	require.NoError(t, tracker.Admit(context.Background()))
	clock.Advance(48 * time.Hour)

	assert.True(t, apperrors.IsType(tracker.Admit(context.Background()), apperrors.ErrorTypeQuotaExceeded))
	assert.Equal(t, 1, tracker.Usage().Day)
}

func TestAdmit_CalendarRollover(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 1, 31, 23, 59, 0, 0, time.UTC))
	tracker := newTestTracker(Limits{PerMinute: 100, PerDay: 1, PerMonth: 1}, clock, WithResetPolicy(ResetCalendar))

	require.NoError(t, tracker.Admit(context.Background()))
	assert.Error(t, tracker.Admit(context.Background()))

	clock.Advance(2 * time.Minute) // crosses into February

	require.NoError(t, tracker.Admit(context.Background()))
	usage := tracker.Usage()
	assert.Equal(t, 1, usage.Day)
	assert.Equal(t, 1, usage.Month)
}

func TestUsage_PrunesOldTimestamps(t *testing.T) {
	clock := newFakeClock(epoch)
	tracker := newTestTracker(Limits{PerMinute: 100, PerDay: 100, PerMonth: 100}, clock)

	for i := 0; i < 5; i++ {
		require.NoError(t, tracker.Admit(context.Background()))
	}
	clock.Advance(90 * time.Minute)

	usage := tracker.Usage()
	assert.Equal(t, 0, usage.Minute)
	assert.Equal(t, 5, usage.Day)

	tracker.mu.Lock()
	assert.Empty(t, tracker.timestamps)
	tracker.mu.Unlock()
}

func TestAdmit_ContextCancelledWhileWaiting(t *testing.T) {
	tracker := NewTracker(Limits{PerMinute: 1, PerDay: 100, PerMonth: 100})
	require.NoError(t, tracker.Admit(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tracker.Admit(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, tracker.Usage().Day)
}

func TestAdmit_ConcurrentCallers(t *testing.T) {
	tracker := NewTracker(Limits{PerMinute: 100, PerDay: 100, PerMonth: 100})

	var wg sync.WaitGroup
	errs := make(chan error, 120)
	for i := 0; i < 120; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- tracker.Admit(context.Background())
		}()
	}
	wg.Wait()
	close(errs)

	rejected := 0
	for err := range errs {
		if err != nil {
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeQuotaExceeded))
			rejected++
		}
	}

	assert.Equal(t, 20, rejected)
	assert.Equal(t, 100, tracker.Usage().Month)
}
