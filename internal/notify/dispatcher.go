package notify

import (
	"account-service/internal/core"
	"account-service/internal/telemetry"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DispatcherConfig controls worker count and send pacing.
type DispatcherConfig struct {
	FrontendURL   string
	Workers       int
	RatePerSecond float64
}

// Dispatcher implements core.Notifier on top of a Mailer and an Outbox.
// Inline and queued sends share one rate limiter.
type Dispatcher struct {
	mailer      Mailer
	outbox      Outbox
	limiter     *rate.Limiter
	frontendURL string
	workers     int
	logger      zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ core.Notifier = (*Dispatcher)(nil)

func NewDispatcher(mailer Mailer, outbox Outbox, cfg DispatcherConfig, logger zerolog.Logger) *Dispatcher {
	workers := cfg.Workers
	if workers < 1 {
		workers = 2
	}
	limit := rate.Inf
	burst := 1
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
		burst = workers
	}
	return &Dispatcher{
		mailer:      mailer,
		outbox:      outbox,
		limiter:     rate.NewLimiter(limit, burst),
		frontendURL: cfg.FrontendURL,
		workers:     workers,
		logger:      logger.With().Str("component", "mail_dispatcher").Logger(),
	}
}

// Start launches the workers draining the outbox.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
	d.logger.Info().Int("workers", d.workers).Msg("Mail dispatcher started")
}

// Stop closes the outbox and lets the workers drain what is buffered, up to
// ctx's deadline. Workers still running then are cancelled.
func (d *Dispatcher) Stop(ctx context.Context) error {
	_ = d.outbox.Close()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if d.cancel != nil {
		d.cancel()
	}
	return err
}

// SendPasswordReset delivers the reset link inline.
func (d *Dispatcher) SendPasswordReset(ctx context.Context, to, token string) error {
	msg, err := renderReset(to, ResetLink(d.frontendURL, token))
	if err != nil {
		return err
	}
	return d.deliver(ctx, "reset", msg)
}

// SendWelcome queues the welcome mail without waiting for buffer space. A
// full or closed outbox drops the message.
func (d *Dispatcher) SendWelcome(ctx context.Context, to, name string) error {
	msg, err := renderWelcome(to, name)
	if err != nil {
		return err
	}
	if err := d.outbox.Enqueue(ctx, msg); err != nil {
		result := "enqueue_failed"
		if errors.Is(err, ErrOutboxFull) {
			result = "dropped"
		}
		telemetry.MailJobs.WithLabelValues("welcome", result).Inc()
		d.logger.Warn().Err(err).Str("subject", msg.Subject).Msg("Welcome mail not queued")
		return err
	}
	telemetry.MailJobs.WithLabelValues("welcome", "queued").Inc()
	return nil
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	for {
		msg, err := d.outbox.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, ErrOutboxClosed) || ctx.Err() != nil {
				return
			}
			d.logger.Error().Err(err).Int("worker", id).Msg("Outbox read failed")
			// Avoid a hot loop when the backing store is down.
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		if err := d.deliver(sendCtx, "welcome", msg); err != nil {
			d.logger.Error().Err(err).Int("worker", id).Str("subject", msg.Subject).Msg("Queued mail delivery failed")
		}
		cancel()
	}
}

func (d *Dispatcher) deliver(ctx context.Context, kind string, msg Message) error {
	if err := d.limiter.Wait(ctx); err != nil {
		telemetry.MailJobs.WithLabelValues(kind, "failed").Inc()
		return err
	}
	if err := d.mailer.Send(ctx, msg); err != nil {
		telemetry.MailJobs.WithLabelValues(kind, "failed").Inc()
		return err
	}
	telemetry.MailJobs.WithLabelValues(kind, "sent").Inc()
	return nil
}
