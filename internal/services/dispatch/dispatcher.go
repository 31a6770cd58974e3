package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amerfu/llm-fallback/internal/services/providers"
	"go.uber.org/zap"
)

// ErrNoCandidates is returned when no candidate survives selection.
var ErrNoCandidates = errors.New("no available providers/models")

// Selector narrows the ranked candidate list to viable entries.
type Selector interface {
	SelectViable(ctx context.Context, configs []providers.LLMQueryConfig, nowMs int64, cooloffSeconds float64) []providers.LLMQueryConfig
}

// Resolver maps a provider to its endpoint.
type Resolver interface {
	Resolve(id providers.ProviderID) (providers.Endpoint, error)
}

// FailureRecorder persists the failure time of a provider/model pair.
type FailureRecorder interface {
	RecordFailure(ctx context.Context, provider providers.ProviderID, model string, atMs int64) error
}

// Caller performs a single upstream chat completion.
type Caller interface {
	ChatCompletion(ctx context.Context, ep providers.Endpoint, model string, payload providers.Params) (providers.Params, error)
}

// Request is a validated query.
type Request struct {
	Params         providers.Params
	Configs        []providers.LLMQueryConfig
	CooloffSeconds float64
}

// Result is the first successful upstream response.
type Result struct {
	Body     providers.Params
	Provider providers.ProviderID
	Model    string
	Attempts int
}

// ExhaustedError is returned when every attempted candidate failed. Its
// message is the message of the last failure.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	if e.Last == nil {
		return ErrNoCandidates.Error()
	}
	return e.Last.Error()
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Config wires a Dispatcher.
type Config struct {
	Selector Selector
	Resolver Resolver
	Store    FailureRecorder
	Caller   Caller
	Logger   *zap.Logger
	// MaxAttempts caps upstream calls per request. Zero means no cap.
	MaxAttempts int
	// Now defaults to time.Now.
	Now func() time.Time
}

// Dispatcher walks the viable candidates in order until one succeeds.
type Dispatcher struct {
	selector    Selector
	resolver    Resolver
	store       FailureRecorder
	caller      Caller
	logger      *zap.Logger
	maxAttempts int
	now         func() time.Time
}

// New creates a dispatcher from cfg.
func New(cfg *Config) *Dispatcher {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		selector:    cfg.Selector,
		resolver:    cfg.Resolver,
		store:       cfg.Store,
		caller:      cfg.Caller,
		logger:      logger,
		maxAttempts: cfg.MaxAttempts,
		now:         now,
	}
}

// Dispatch selects the viable candidates of req and attempts them one at a
// time. Every failed attempt is recorded in the cool-off store before the
// next candidate is tried. A cancelled ctx stops the loop without recording.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Result, error) {
	candidates := d.selector.SelectViable(ctx, req.Configs, d.now().UnixMilli(), req.CooloffSeconds)
	if len(candidates) == 0 {
		exhaustedTotal.WithLabelValues("no_candidates").Inc()
		d.logger.Warn("No viable candidates",
			zap.Int("requested", len(req.Configs)))
		return nil, ErrNoCandidates
	}

	var (
		lastErr  error
		attempts int
	)
	for _, candidate := range candidates {
		if d.maxAttempts > 0 && attempts >= d.maxAttempts {
			d.logger.Info("Attempt cap reached", zap.Int("max_attempts", d.maxAttempts))
			break
		}

		ep, err := d.resolver.Resolve(candidate.Provider)
		if err != nil {
			// selection already filtered these, configuration is immutable
			lastErr = err
			continue
		}
		payload, err := providers.BuildPayload(req.Params, candidate)
		if err != nil {
			lastErr = fmt.Errorf("provider %s model %s: %w", candidate.Provider, candidate.Model, err)
			continue
		}

		attempts++
		d.logger.Info("Attempting upstream",
			zap.String("provider", candidate.Provider.String()),
			zap.String("model", candidate.Model),
			zap.Int("attempt", attempts))

		start := d.now()
		body, err := d.caller.ChatCompletion(ctx, ep, candidate.Model, payload)
		if err == nil {
			attemptsTotal.WithLabelValues(candidate.Provider.String(), candidate.Model, "success").Inc()
			attemptDuration.WithLabelValues(candidate.Provider.String()).Observe(d.now().Sub(start).Seconds())
			stampResponse(body, candidate)
			return &Result{
				Body:     body,
				Provider: candidate.Provider,
				Model:    candidate.Model,
				Attempts: attempts,
			}, nil
		}

		if ctx.Err() != nil {
			attemptsTotal.WithLabelValues(candidate.Provider.String(), candidate.Model, "cancelled").Inc()
			d.logger.Info("Request cancelled during upstream attempt",
				zap.String("provider", candidate.Provider.String()),
				zap.String("model", candidate.Model),
				zap.Error(ctx.Err()))
			return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
		}

		attemptsTotal.WithLabelValues(candidate.Provider.String(), candidate.Model, "failure").Inc()
		lastErr = err
		d.logger.Warn("Upstream attempt failed",
			zap.String("provider", candidate.Provider.String()),
			zap.String("model", candidate.Model),
			zap.Int("attempt", attempts),
			zap.Error(err))

		d.recordFailure(ctx, candidate)
	}

	exhaustedTotal.WithLabelValues("all_failed").Inc()
	d.logger.Error("All candidates failed",
		zap.Int("attempts", attempts),
		zap.Int("candidates", len(candidates)),
		zap.Error(lastErr))
	return nil, &ExhaustedError{Attempts: attempts, Last: lastErr}
}

func (d *Dispatcher) recordFailure(ctx context.Context, candidate providers.LLMQueryConfig) {
	if err := d.store.RecordFailure(ctx, candidate.Provider, candidate.Model, d.now().UnixMilli()); err != nil {
		cooloffWritesTotal.WithLabelValues("error").Inc()
		d.logger.Warn("Failed to record cool-off",
			zap.String("provider", candidate.Provider.String()),
			zap.String("model", candidate.Model),
			zap.Error(err))
		return
	}
	cooloffWritesTotal.WithLabelValues("ok").Inc()
}

// stampResponse marks which pair answered. OpenRouter reports the backing
// provider itself, which is kept when present.
func stampResponse(body providers.Params, candidate providers.LLMQueryConfig) {
	provider := candidate.Provider.String()
	if candidate.Provider == providers.OpenRouter {
		if upstream, ok := body.StringField("provider"); ok {
			provider = upstream
		}
	}
	body.SetString("provider", provider)
	body.SetString("model", candidate.Model)
}
