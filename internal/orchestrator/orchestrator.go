// Package orchestrator runs the refinement loop: generate a candidate,
// validate it, repair it once, validate again, and retry with feedback until
// the candidate is compliant or the attempts run out.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/valpere/listingfix/internal"
	"github.com/valpere/listingfix/internal/content"
	"github.com/valpere/listingfix/internal/generator"
	"github.com/valpere/listingfix/internal/metrics"
	"github.com/valpere/listingfix/internal/postprocess"
	"github.com/valpere/listingfix/internal/rules"
	"github.com/valpere/listingfix/internal/validator"
)

const (
	DefaultMaxAttempts = 3
	DefaultTimeout     = 60 * time.Second
)

type OrchestratorConfig struct {
	// Timeout bounds a single generator call.
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts" json:"max_attempts"`
}

// State is the terminal state of a refinement.
type State string

const (
	StateCompliant State = "compliant"
	StateExhausted State = "exhausted"
	// StateCancelled means the context ended before the loop finished; the
	// result still carries the best candidate seen.
	StateCancelled State = "cancelled"
)

// RescueNumber is the Number of the fallback attempt recorded when no
// generator attempt produced a candidate. It does not count against
// MaxAttempts.
const RescueNumber = 0

// Attempt records one pass through the loop.
type Attempt struct {
	Number int `json:"number"`
	// Source is the generator that produced the candidate, or "fallback".
	Source string `json:"source"`
	// Status is the generator call outcome: ok, unavailable or malformed,
	// or rescue for the fallback recorded under RescueNumber.
	Status    string              `json:"status"`
	Error     string              `json:"error,omitempty"`
	Found     []content.Violation `json:"found"`
	Remaining []content.Violation `json:"remaining"`
	Candidate content.Candidate   `json:"candidate"`
	Latency   time.Duration       `json:"latency"`
}

// Usable reports whether the attempt produced a candidate.
func (a Attempt) Usable() bool {
	return a.Status != metrics.StatusMalformed
}

// Result is the outcome of one refinement. Candidate is the best attempt:
// the one with the fewest remaining violations, the earliest on ties.
type Result struct {
	ID             string              `json:"id"`
	State          State               `json:"state"`
	Candidate      content.Candidate   `json:"candidate"`
	Violations     []content.Violation `json:"violations"`
	Attempts       []Attempt           `json:"attempts"`
	BestAttempt    int                 `json:"best_attempt"`
	GeneratorCalls int                 `json:"generator_calls"`
	Duration       time.Duration       `json:"duration"`
}

// Compliant reports whether the result has no remaining violations.
func (r *Result) Compliant() bool {
	return r.State == StateCompliant
}

// Output converts the result into the boundary output record.
func (r *Result) Output() internal.ProductOutput {
	return r.Candidate.Output(r.Violations)
}

type Option func(*Orchestrator)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// Orchestrator refines product content against one catalog. It is safe for
// concurrent use: every Refine call owns its own state.
type Orchestrator struct {
	gen       generator.Generator
	fallback  *generator.Fallback
	validator *validator.Validator
	repairer  *postprocess.Repairer
	catalog   rules.Catalog
	config    OrchestratorConfig
	logger    *zap.Logger
}

// New validates the catalog and config and builds an orchestrator. gen may
// be nil, in which case every refinement uses the fallback synthesis.
func New(gen generator.Generator, catalog rules.Catalog, config OrchestratorConfig, opts ...Option) (*Orchestrator, error) {
	if config.MaxAttempts < 0 {
		return nil, fmt.Errorf("max attempts must not be negative, got %d", config.MaxAttempts)
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	v, err := validator.New(catalog)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		gen:       gen,
		fallback:  generator.NewFallback(catalog),
		validator: v,
		repairer:  postprocess.New(catalog),
		catalog:   catalog,
		config:    config,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Catalog returns the rules refinements are judged against.
func (o *Orchestrator) Catalog() rules.Catalog {
	return o.catalog
}

// Validator returns the validator the orchestrator uses.
func (o *Orchestrator) Validator() *validator.Validator {
	return o.validator
}

// Refine runs the loop for one input record. It never fails: when the
// generator is missing, unavailable or keeps producing malformed output the
// fallback synthesis supplies the candidate.
func (o *Orchestrator) Refine(ctx context.Context, in internal.ProductInput) *Result {
	return o.RefineContext(ctx, content.NewContext(in))
}

// RefineContext is Refine for an already derived Context.
func (o *Orchestrator) RefineContext(ctx context.Context, pctx content.Context) *Result {
	start := time.Now()
	result := &Result{ID: uuid.NewString()}
	logger := o.logger.With(zap.String("refinement", result.ID), zap.String("brand", pctx.Brand))

	var (
		feedback  []content.Violation
		best      *Attempt
		cancelled bool
	)

	for n := 1; n <= o.config.MaxAttempts; n++ {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		attempt := o.generate(ctx, logger, pctx, feedback, n)
		if o.gen != nil {
			result.GeneratorCalls++
		}
		if !attempt.Usable() {
			result.Attempts = append(result.Attempts, attempt)
			continue
		}

		o.check(&attempt, pctx)
		result.Attempts = append(result.Attempts, attempt)
		logger.Debug("attempt finished",
			zap.Int("attempt", n),
			zap.String("source", attempt.Source),
			zap.Int("violations_found", len(attempt.Found)),
			zap.Int("violations_remaining", len(attempt.Remaining)))

		if best == nil || len(attempt.Remaining) < len(best.Remaining) {
			a := attempt
			best = &a
		}
		if len(attempt.Remaining) == 0 {
			break
		}
		if o.gen == nil {
			// The fallback is deterministic; another pass would repeat it.
			break
		}
		feedback = attempt.Remaining
	}

	if best == nil {
		// Nothing usable: every attempt was malformed, or the context ended
		// before the first one.
		attempt := Attempt{
			Number:    RescueNumber,
			Source:    generator.FallbackName,
			Status:    metrics.StatusRescue,
			Candidate: o.fallback.Synthesize(pctx),
		}
		o.check(&attempt, pctx)
		result.Attempts = append(result.Attempts, attempt)
		best = &attempt
		logger.Info("using fallback synthesis", zap.Int("discarded_attempts", len(result.Attempts)-1))
	}

	result.Candidate = best.Candidate
	result.Violations = best.Remaining
	result.BestAttempt = best.Number
	switch {
	case len(best.Remaining) == 0:
		result.State = StateCompliant
	case cancelled:
		result.State = StateCancelled
	default:
		result.State = StateExhausted
	}
	result.Duration = time.Since(start)

	o.observe(result)
	logger.Info("refinement finished",
		zap.String("state", string(result.State)),
		zap.Int("attempts", len(result.Attempts)),
		zap.Int("generator_calls", result.GeneratorCalls),
		zap.Int("best_attempt", result.BestAttempt),
		zap.Int("violations", len(result.Violations)),
		zap.Duration("duration", result.Duration))
	return result
}

// generate produces the candidate for one attempt. An unavailable generator
// is replaced by the fallback synthesis; malformed output leaves the
// attempt unusable.
func (o *Orchestrator) generate(ctx context.Context, logger *zap.Logger, pctx content.Context, feedback []content.Violation, n int) Attempt {
	attempt := Attempt{Number: n, Status: metrics.StatusOK}

	if o.gen == nil {
		attempt.Source = generator.FallbackName
		attempt.Candidate = o.fallback.Synthesize(pctx)
		return attempt
	}

	callCtx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	res, err := o.gen.Generate(callCtx, generator.Request{
		Product:  pctx,
		Catalog:  o.catalog,
		Feedback: feedback,
		Attempt:  n,
	})
	attempt.Source = o.gen.Name()
	if res != nil {
		attempt.Latency = res.Latency
	}

	switch {
	case err == nil && res != nil:
		attempt.Candidate = res.Candidate
	case errors.Is(err, content.ErrMalformedCandidate):
		attempt.Status = metrics.StatusMalformed
		attempt.Error = err.Error()
		fields := []zap.Field{zap.Int("attempt", n), zap.String("generator", attempt.Source), zap.Error(err)}
		if res != nil {
			fields = append(fields, zap.String("raw", res.Raw))
		}
		logger.Warn("discarding malformed candidate", fields...)
	default:
		if err == nil {
			err = fmt.Errorf("%w: %s returned no result", generator.ErrUnavailable, attempt.Source)
		}
		attempt.Status = metrics.StatusUnavailable
		attempt.Error = err.Error()
		logger.Warn("generator unavailable, using fallback synthesis",
			zap.Int("attempt", n), zap.String("generator", attempt.Source), zap.Error(err))
		attempt.Source = generator.FallbackName
		attempt.Candidate = o.fallback.Synthesize(pctx)
	}

	metrics.GeneratorCalls.WithLabelValues(o.gen.Name(), attempt.Status).Inc()
	return attempt
}

// check validates the attempt's candidate and, when needed, repairs it once
// and validates again.
func (o *Orchestrator) check(a *Attempt, pctx content.Context) {
	a.Found = o.validator.Validate(a.Candidate, pctx)
	if len(a.Found) == 0 {
		a.Remaining = nil
		return
	}

	a.Candidate = o.repairer.Repair(a.Candidate, a.Found, pctx)
	a.Remaining = o.validator.Validate(a.Candidate, pctx)

	after := content.CountByKind(a.Remaining)
	for kind, n := range content.CountByKind(a.Found) {
		if cleared := n - after[kind]; cleared > 0 {
			metrics.RepairsTotal.WithLabelValues(string(kind)).Add(float64(cleared))
		}
	}
}

func (o *Orchestrator) observe(r *Result) {
	metrics.RefineTotal.WithLabelValues(string(r.State)).Inc()
	attempts := 0
	for _, a := range r.Attempts {
		if a.Number != RescueNumber {
			attempts++
		}
	}
	metrics.RefineAttempts.Observe(float64(attempts))
	metrics.RefineDuration.Observe(r.Duration.Seconds())
	for _, v := range r.Violations {
		metrics.ViolationsTotal.WithLabelValues(string(v.Kind)).Inc()
	}
}
