package alerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Channel delivers text messages to a chat. Close ends the current session;
// the next Send opens a new one.
type Channel interface {
	Send(ctx context.Context, chatID, text string) error
	Close(ctx context.Context) error
}

// SleepFunc suspends for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the wall-clock SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Options tune delivery.
type Options struct {
	ChatID string
	// Pacing is waited before and after every send.
	Pacing     time.Duration
	MaxRetries int
	// MaxBackoff caps the total time spent sleeping on rate limits.
	MaxBackoff time.Duration
	// ResendAll restarts from the first message after a rate limit instead
	// of resuming at the rejected one.
	ResendAll bool
	Sleep     SleepFunc
}

// RetryState is the delivery loop's view of what is left to send.
type RetryState struct {
	Pending []string
	Delay   time.Duration
	Attempt int
}

// Notifier delivers an observation's notification.
type Notifier interface {
	Notify(ctx context.Context, note Notification) error
}

// Dispatcher sends the daily messages over a Channel and recovers from
// flood-control rejections.
type Dispatcher struct {
	channel Channel
	opts    Options
	logger  zerolog.Logger
}

// NewDispatcher constructs a dispatcher over channel.
func NewDispatcher(channel Channel, opts Options, logger zerolog.Logger) *Dispatcher {
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 5 * time.Minute
	}
	return &Dispatcher{
		channel: channel,
		opts:    opts,
		logger:  logger.With().Str("component", "notifier").Logger(),
	}
}

// Notify renders note and delivers its messages.
func (n *Dispatcher) Notify(ctx context.Context, note Notification) error {
	return n.Deliver(ctx, Messages(note))
}

// Deliver sends messages in order. A rate-limit rejection closes the session,
// sleeps for the requested delay and continues with the messages not yet
// acknowledged (or all of them with ResendAll). Backoff stops after
// MaxRetries rejections or once MaxBackoff of sleeping would be exceeded.
// Any other send error is returned immediately.
func (n *Dispatcher) Deliver(ctx context.Context, messages []string) error {
	state := RetryState{Pending: messages}
	var slept time.Duration

	for {
		sent, err := n.sendPass(ctx, state.Pending)
		if err == nil {
			n.logger.Info().
				Int("messages", len(messages)).
				Int("backoffs", state.Attempt).
				Msg("notifications delivered")
			return nil
		}

		var rateErr *RateLimitError
		if !errors.As(err, &rateErr) {
			return err
		}

		state.Attempt++
		state.Delay = rateErr.RetryAfter
		if n.opts.ResendAll {
			state.Pending = messages
		} else {
			state.Pending = state.Pending[sent:]
		}

		if state.Attempt > n.opts.MaxRetries || slept+state.Delay > n.opts.MaxBackoff {
			n.logger.Error().
				Int("backoffs", state.Attempt-1).
				Dur("slept", slept).
				Int("pending", len(state.Pending)).
				Msg("giving up on rate-limited delivery")
			return fmt.Errorf("%w after %d backoffs: %w", ErrRetriesExhausted, state.Attempt-1, err)
		}

		n.logger.Warn().
			Dur("retry_after", state.Delay).
			Int("attempt", state.Attempt).
			Int("pending", len(state.Pending)).
			Msg("flood control exceeded, backing off")

		if closeErr := n.channel.Close(ctx); closeErr != nil {
			n.logger.Warn().Err(closeErr).Msg("failed to close channel session")
		}
		if err := n.opts.Sleep(ctx, state.Delay); err != nil {
			return fmt.Errorf("rate limit backoff: %w", err)
		}
		slept += state.Delay
	}
}

// sendPass sends pending with the pacing pause around each message and
// returns how many were acknowledged.
func (n *Dispatcher) sendPass(ctx context.Context, pending []string) (int, error) {
	for i, text := range pending {
		if err := n.opts.Sleep(ctx, n.opts.Pacing); err != nil {
			return i, err
		}
		if err := n.channel.Send(ctx, n.opts.ChatID, text); err != nil {
			return i, err
		}
		if err := n.opts.Sleep(ctx, n.opts.Pacing); err != nil {
			return i + 1, err
		}
	}
	return len(pending), nil
}

var _ Notifier = (*Dispatcher)(nil)
