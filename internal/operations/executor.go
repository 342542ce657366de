package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"silverpulse/internal/config"
	apperrors "silverpulse/internal/errors"
	"silverpulse/internal/infrastructure"
	"silverpulse/internal/sources"
	"silverpulse/pkg/contracts/domain"
)

// RetryPolicy caps attempts per adapter. Timeout bounds each attempt.
type RetryPolicy struct {
	Attempts int           `json:"attempts"`
	Delay    time.Duration `json:"delay"`
	Timeout  time.Duration `json:"timeout"`
}

func (p RetryPolicy) backoff() retry.Backoff {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Delay
	if delay <= 0 {
		delay = time.Nanosecond
	}
	return retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(delay))
}

// DefaultPolicies derives the retry policy of every adapter from config.
// Only the warehouse report is retried.
func DefaultPolicies(cfg config.SourcesConfig) map[string]RetryPolicy {
	return map[string]RetryPolicy{
		sources.IDWarehouse: {
			Attempts: cfg.RetryAttempts,
			Delay:    cfg.RetryDelay,
			Timeout:  cfg.WarehouseTimeout,
		},
		sources.IDSLVHoldings:       {Attempts: 1, Timeout: cfg.PageTimeout},
		sources.IDOpenInterest:      {Attempts: 1, Timeout: 2 * cfg.QuoteTimeout},
		sources.IDSpotPrice:         {Attempts: 1, Timeout: 2 * cfg.QuoteTimeout},
		sources.IDRegionalBenchmark: {Attempts: 1, Timeout: 2 * cfg.QuoteTimeout},
		sources.IDVaultHoldings:     {Attempts: 1, Timeout: time.Duration(cfg.VaultDaysBack) * cfg.VaultTimeout},
	}
}

// Outcome is the result of one adapter in a fetch cycle. Exactly one of
// Result and Err is set.
type Outcome struct {
	Source   string              `json:"source"`
	Result   *domain.FetchResult `json:"result,omitempty"`
	Err      error               `json:"-"`
	Attempts int                 `json:"attempts"`
	Cached   bool                `json:"cached"`
	Duration time.Duration       `json:"duration"`
}

// NotFound reports whether the adapter produced no value
func (o Outcome) NotFound() bool {
	return o.Result == nil
}

// SourceStatus is the last known state of one adapter
type SourceStatus struct {
	Source        string            `json:"source"`
	Kind          domain.MetricKind `json:"kind"`
	Available     bool              `json:"available"`
	Cached        bool              `json:"cached"`
	Attempts      int               `json:"attempts"`
	LastError     string            `json:"last_error,omitempty"`
	LastAttemptAt time.Time         `json:"last_attempt_at"`
	LastSuccessAt time.Time         `json:"last_success_at"`
	Policy        RetryPolicy       `json:"policy"`
}

// Executor runs every adapter concurrently once per cycle, applying retry
// policies and the result cache.
type Executor struct {
	adapters []sources.Adapter
	policies map[string]RetryPolicy
	cache    *ResultCache
	metrics  *infrastructure.FetchMetrics
	logger   *slog.Logger

	mu     sync.RWMutex
	status map[string]SourceStatus
	now    func() time.Time
}

// NewExecutor creates an executor over adapters. metrics may be nil.
func NewExecutor(adapters []sources.Adapter, cfg config.SourcesConfig, metrics *infrastructure.FetchMetrics, logger *slog.Logger) *Executor {
	return &Executor{
		adapters: adapters,
		policies: DefaultPolicies(cfg),
		cache:    NewResultCache(cfg.CacheTTL),
		metrics:  metrics,
		logger:   infrastructure.WithComponent(logger, "executor"),
		status:   make(map[string]SourceStatus),
		now:      time.Now,
	}
}

// SetPolicy overrides the retry policy of one adapter
func (e *Executor) SetPolicy(id string, p RetryPolicy) {
	e.policies[id] = p
}

// Policy returns the retry policy for id, a single attempt if none is set
func (e *Executor) Policy(id string) RetryPolicy {
	if p, ok := e.policies[id]; ok {
		return p
	}
	return RetryPolicy{Attempts: 1}
}

// Cache exposes the result cache
func (e *Executor) Cache() *ResultCache {
	return e.cache
}

// FetchAll runs every adapter in parallel and waits for all of them. Fresh
// cached results are reused unless force is set. No adapter failure cancels
// the others.
func (e *Executor) FetchAll(ctx context.Context, force bool) map[string]Outcome {
	ctx, span := infrastructure.StartSpan(ctx, "fetch.all",
		attribute.Bool("force", force),
		attribute.Int("sources", len(e.adapters)))
	defer span.End()

	outcomes := make([]Outcome, len(e.adapters))

	var g errgroup.Group
	if len(e.adapters) > 0 {
		g.SetLimit(len(e.adapters))
	}
	for i, a := range e.adapters {
		g.Go(func() error {
			outcomes[i] = e.fetchOne(ctx, a, force)
			return nil
		})
	}
	_ = g.Wait()

	result := make(map[string]Outcome, len(outcomes))
	failed := 0
	for _, o := range outcomes {
		result[o.Source] = o
		if o.NotFound() {
			failed++
		}
	}
	e.recordStatus(result)

	e.logger.InfoContext(ctx, "Fetch cycle complete",
		slog.Int("sources", len(outcomes)),
		slog.Int("unavailable", failed),
		slog.Bool("force", force))
	return result
}

func (e *Executor) fetchOne(ctx context.Context, a sources.Adapter, force bool) Outcome {
	id := a.ID()
	out := Outcome{Source: id}

	if !force {
		if res, ok := e.cache.Get(id); ok {
			e.metrics.RecordCacheHit(ctx, id)
			out.Result = res
			out.Cached = true
			return out
		}
	}

	ctx, span := infrastructure.StartSpan(ctx, "fetch."+id, attribute.String("source", id))
	defer span.End()

	start := time.Now()
	res, attempts, err := e.run(ctx, a, e.Policy(id))
	out.Duration = time.Since(start)
	out.Attempts = attempts
	e.metrics.RecordFetch(ctx, id, attempts, out.Duration, err)

	if err != nil {
		infrastructure.RecordError(ctx, err)
		e.logger.Log(ctx, unavailableLevel(err), "Source unavailable",
			slog.String("source", id),
			slog.Int("attempts", attempts),
			slog.String("error_type", string(apperrors.TypeOf(err))),
			slog.String("error", err.Error()))
		out.Err = err
		return out
	}

	e.cache.Set(id, res)
	e.logger.DebugContext(ctx, "Source fetched",
		slog.String("source", id),
		slog.Int("attempts", attempts),
		slog.String("strategy", res.Strategy),
		slog.Duration("duration", out.Duration))
	out.Result = res
	return out
}

// unavailableLevel is warn for the upstream fetch taxonomy and error otherwise
func unavailableLevel(err error) slog.Level {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Recoverable() {
		return slog.LevelWarn
	}
	return slog.LevelError
}

// run applies the retry policy. Any failure is attempted again after the
// policy delay until attempts are exhausted or ctx is done.
func (e *Executor) run(ctx context.Context, a sources.Adapter, p RetryPolicy) (*domain.FetchResult, int, error) {
	var (
		result   *domain.FetchResult
		lastErr  error
		attempts int
	)

	err := retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		attempts++
		res, err := callAdapter(ctx, a, p.Timeout)
		if err == nil {
			result = res
			return nil
		}
		lastErr = err

		if ctx.Err() != nil || !IsRetryable(err) {
			return err
		}
		if attempts < p.Attempts {
			e.logger.WarnContext(ctx, "Fetch attempt failed, retrying",
				slog.String("source", a.ID()),
				slog.Int("attempt", attempts),
				slog.Int("max_attempts", p.Attempts),
				slog.Duration("delay", p.Delay),
				slog.String("error", err.Error()))
		}
		return retry.RetryableError(err)
	})
	if err == nil {
		return result, attempts, nil
	}

	if lastErr == nil {
		lastErr = sources.Unavailable(a.ID(), apperrors.NewTransportError("fetch cancelled", err))
	}
	if p.Attempts > 1 {
		return nil, attempts, &FetchError{Source: a.ID(), Attempts: attempts, Cause: lastErr}
	}
	return nil, attempts, lastErr
}

// callAdapter runs one attempt under its own deadline. A panic inside the
// adapter becomes a decode failure.
func callAdapter(ctx context.Context, a sources.Adapter, timeout time.Duration) (res *domain.FetchResult, err error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = sources.Unavailable(a.ID(), apperrors.NewDecodeError(fmt.Sprintf("adapter panic: %v", r), nil))
		}
	}()

	res, err = a.Fetch(ctx)
	switch {
	case err != nil && !errors.Is(err, sources.ErrNotFound):
		err = sources.Unavailable(a.ID(), err)
	case err == nil && res == nil:
		err = sources.Unavailable(a.ID(), apperrors.NewFieldNotFoundError(a.ID()+" result"))
	}
	if err != nil {
		res = nil
	}
	return res, err
}

func (e *Executor) recordStatus(outcomes map[string]Outcome) {
	now := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, a := range e.adapters {
		o, ok := outcomes[a.ID()]
		if !ok {
			continue
		}
		st := e.status[a.ID()]
		st.Source = a.ID()
		st.Kind = a.Kind()
		st.Policy = e.Policy(a.ID())
		st.Available = !o.NotFound()
		st.Cached = o.Cached
		if o.Cached {
			e.status[a.ID()] = st
			continue
		}
		st.Attempts = o.Attempts
		st.LastAttemptAt = now
		if o.Err != nil {
			st.LastError = o.Err.Error()
		} else {
			st.LastError = ""
			st.LastSuccessAt = now
		}
		e.status[a.ID()] = st
	}
}

// Sources returns the last known status of every adapter in dispatch order
func (e *Executor) Sources() []SourceStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]SourceStatus, 0, len(e.adapters))
	for _, a := range e.adapters {
		st, ok := e.status[a.ID()]
		if !ok {
			st = SourceStatus{Source: a.ID(), Kind: a.Kind(), Policy: e.Policy(a.ID())}
		}
		out = append(out, st)
	}
	return out
}
