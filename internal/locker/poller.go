package locker

import (
	"context"
	"errors"
	"time"

	"github.com/jmehdipour/qmail/internal/metrics"
	"go.uber.org/zap"
)

const (
	DefaultMaxPollAttempts = 15
	DefaultPollInterval    = time.Second
	DefaultFallbackKey     = "DY6-UYDM"
)

// Mint outcomes, also used as metric labels.
const (
	OutcomeMinted        = "minted"
	OutcomeNoDaemon      = "no_daemon"
	OutcomeCreateFailed  = "create_failed"
	OutcomePollExhausted = "poll_exhausted"
	OutcomeMalformed     = "malformed_code"
	OutcomeCanceled      = "canceled"
)

type PollerConfig struct {
	MaxAttempts  int
	PollInterval time.Duration
	FallbackKey  string
}

// Result is the locker key to embed and how it was obtained.
type Result struct {
	LockerKey string
	Outcome   string
	Daemon    string
}

func (r Result) Fallback() bool { return r.Outcome != OutcomeMinted }

// Poller mints a transmit code: one create call, then up to MaxAttempts
// polls spaced PollInterval apart. Any failure yields the fallback key.
type Poller struct {
	pool *Pool
	cfg  PollerConfig
	log  *zap.Logger
}

func NewPoller(pool *Pool, cfg PollerConfig, log *zap.Logger) *Poller {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = DefaultMaxPollAttempts
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	if cfg.FallbackKey == "" {
		cfg.FallbackKey = DefaultFallbackKey
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Poller{pool: pool, cfg: cfg, log: log}
}

func (p *Poller) FallbackKey() string { return p.cfg.FallbackKey }

// Mint never fails; check Result.Fallback to see whether the daemon answered.
func (p *Poller) Mint(ctx context.Context) Result {
	d, err := p.pool.Select()
	if err != nil {
		p.log.Warn("locker: no daemon available", zap.Error(err))
		return p.fallback(OutcomeNoDaemon, "")
	}

	task, err := d.CreateLocker(ctx)
	if err != nil {
		if ctx.Err() != nil {
			d.Abort()
			return p.fallback(OutcomeCanceled, d.Name())
		}
		d.Done(false)
		p.log.Warn("locker: create failed", zap.String("daemon", d.Name()), zap.Error(err))
		return p.fallback(OutcomeCreateFailed, d.Name())
	}

	timer := time.NewTimer(p.cfg.PollInterval)
	defer timer.Stop()

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			d.Abort()
			return p.fallback(OutcomeCanceled, d.Name())
		case <-timer.C:
		}

		res, done, err := d.GetTask(ctx, task.TaskID)
		switch {
		case errors.Is(err, ErrMalformedCode):
			metrics.LockerPollsTotal.WithLabelValues("malformed").Inc()
			d.Done(false)
			p.log.Warn("locker: malformed transmit code",
				zap.String("daemon", d.Name()),
				zap.String("task_id", task.TaskID),
				zap.Error(err),
			)
			return p.fallback(OutcomeMalformed, d.Name())
		case err != nil:
			metrics.LockerPollsTotal.WithLabelValues("error").Inc()
			p.log.Debug("locker: poll error",
				zap.String("daemon", d.Name()),
				zap.String("task_id", task.TaskID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		case done:
			metrics.LockerPollsTotal.WithLabelValues("done").Inc()
			d.Done(true)
			return Result{LockerKey: res.TransmitCode, Outcome: OutcomeMinted, Daemon: d.Name()}
		default:
			metrics.LockerPollsTotal.WithLabelValues("pending").Inc()
		}

		timer.Reset(p.cfg.PollInterval)
	}

	d.Done(false)
	p.log.Warn("locker: poll budget exhausted",
		zap.String("daemon", d.Name()),
		zap.String("task_id", task.TaskID),
		zap.Int("attempts", p.cfg.MaxAttempts),
	)

	return p.fallback(OutcomePollExhausted, d.Name())
}

func (p *Poller) fallback(outcome, daemon string) Result {
	return Result{LockerKey: p.cfg.FallbackKey, Outcome: outcome, Daemon: daemon}
}
