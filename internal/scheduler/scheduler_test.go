package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsInvalidSpec(t *testing.T) {
	_, err := New(Options{Spec: ""}, zerolog.Nop())
	require.Error(t, err)

	_, err = New(Options{Spec: "every morning"}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "every morning")
}

func TestNextDaily(t *testing.T) {
	sched, err := New(Options{Spec: "0 8 * * *", Location: time.UTC}, zerolog.Nop())
	require.NoError(t, err)

	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC), sched.Next(now))

	early := time.Date(2026, 10, 18, 7, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC), sched.Next(early))
}

func TestNextHonoursLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	sched, err := New(Options{Spec: "0 8 * * *", Location: tokyo}, zerolog.Nop())
	require.NoError(t, err)

	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC) // 09:00 JST
	next := sched.Next(now)
	assert.Equal(t, time.Date(2026, 10, 18, 23, 0, 0, 0, time.UTC), next.UTC())
}

func TestRunOnStart(t *testing.T) {
	sched, err := New(Options{Spec: "@yearly", Location: time.UTC, RunOnStart: true}, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- sched.Run(ctx, func(ctx context.Context, fireTime time.Time) error {
			calls.Add(1)
			cancel()
			return errors.New("job errors are logged only")
		})
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestRunFiresOnSchedule(t *testing.T) {
	if testing.Short() {
		t.Skip("waits on the wall clock")
	}
	sched, err := New(Options{Spec: "@every 1s", Location: time.UTC}, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fired := make(chan time.Time, 1)
	done := make(chan error, 1)
	go func() {
		done <- sched.Run(ctx, func(ctx context.Context, fireTime time.Time) error {
			select {
			case fired <- fireTime:
			default:
			}
			return nil
		})
	}()

	select {
	case ft := <-fired:
		assert.False(t, ft.IsZero())
	case <-ctx.Done():
		t.Fatal("job never fired")
	}
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
