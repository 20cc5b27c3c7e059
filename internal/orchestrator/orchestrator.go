// Package orchestrator sequences payload building, encoding and optional
// optimization for one generation request.
//
// Validation and encoding failures abort the request. Optimization failures
// never do: the base code is returned with a warning instead, so a valid
// input always yields a scannable code.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cristianadrielbraun/qrstudio/internal/encoder"
	"github.com/cristianadrielbraun/qrstudio/internal/model"
	"github.com/cristianadrielbraun/qrstudio/internal/optimizer"
	"github.com/cristianadrielbraun/qrstudio/internal/payload"
	"github.com/cristianadrielbraun/qrstudio/internal/verify"
)

// State is a step of the generation state machine.
type State string

const (
	StateIdle       State = "IDLE"
	StateValidating State = "VALIDATING"
	StateEncoding   State = "ENCODING"
	StateOptimizing State = "OPTIMIZING"
	StateDone       State = "DONE"
	StateFailed     State = "FAILED"
)

// Result is the outcome of one generation. Artifact is the current best
// image: Optimized when present, Base otherwise.
type Result struct {
	Payload   string
	Base      model.Artifact
	Optimized *model.Artifact
	Artifact  model.Artifact
	Report    string
	Warnings  []string
	State     State
}

// Current returns the optimized artifact if present, else the base one.
func (r *Result) Current() model.Artifact {
	if r.Optimized != nil {
		return *r.Optimized
	}
	return r.Base
}

// Fallback reports whether optimization was requested but the base artifact
// is being returned.
func (r *Result) Fallback() bool {
	return r.Optimized == nil && len(r.Warnings) > 0
}

// StepError wraps an error with the state that failed.
type StepError struct {
	State State
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.State, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Orchestrator runs generation requests. It holds no per-request state and
// is safe for concurrent use if its collaborators are.
type Orchestrator struct {
	encoder   encoder.Encoder
	optimizer optimizer.Client
	scanner   verify.Scanner
	log       logrus.FieldLogger
	onState   func(State)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithOptimizer enables the optimization step.
func WithOptimizer(c optimizer.Client) Option {
	return func(o *Orchestrator) { o.optimizer = c }
}

// WithScanner checks that optimized images still decode to the payload.
func WithScanner(s verify.Scanner) Option {
	return func(o *Orchestrator) { o.scanner = s }
}

// WithLogger sets the logger used for state and fallback messages.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithStateHook registers fn to observe every state transition.
func WithStateHook(fn func(State)) Option {
	return func(o *Orchestrator) { o.onState = fn }
}

// New returns an Orchestrator around enc.
func New(enc encoder.Encoder, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		encoder: enc,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OptimizerEnabled reports whether an optimization client is configured.
func (o *Orchestrator) OptimizerEnabled() bool { return o.optimizer != nil }

// Generate builds and encodes the payload without optimization.
func (o *Orchestrator) Generate(ctx context.Context, kind payload.Kind, data payload.Data) (*Result, error) {
	return o.GenerateAndOptimize(ctx, kind, data, nil)
}

// GenerateAndOptimize builds the payload, encodes it and, when style is
// non-nil and an optimizer is configured, restyles the code.
func (o *Orchestrator) GenerateAndOptimize(ctx context.Context, kind payload.Kind, data payload.Data, style *model.StyleSpec) (*Result, error) {
	log := o.log.WithField("kind", kind)
	o.enter(StateIdle)

	o.enter(StateValidating)
	text, err := payload.Build(kind, data)
	if err == nil && style != nil {
		err = style.Validate()
	}
	if err != nil {
		return nil, o.fail(log, StateValidating, err)
	}

	o.enter(StateEncoding)
	base, err := o.encoder.Encode(ctx, text)
	if err != nil {
		return nil, o.fail(log, StateEncoding, err)
	}

	res := &Result{Payload: text, Base: base, Artifact: base}
	if style == nil {
		return o.done(log, res), nil
	}
	if o.optimizer == nil {
		res.Warnings = append(res.Warnings, "optimization is not configured; returning the base code")
		return o.done(log, res), nil
	}

	o.enter(StateOptimizing)
	opt, err := o.optimizer.Optimize(ctx, base, *style)
	if err != nil {
		log.WithError(err).Warn("optimization failed, using base code")
		res.Warnings = append(res.Warnings, "optimization failed: "+reason(err))
		return o.done(log, res), nil
	}
	if o.scanner != nil {
		if ok, why := o.scans(ctx, opt.Artifact, text); !ok {
			log.WithField("reason", why).Warn("optimized code does not scan, using base code")
			res.Warnings = append(res.Warnings, "optimized code did not scan back to the payload ("+why+"); returning the base code")
			return o.done(log, res), nil
		}
	}

	optimized := opt.Artifact
	res.Optimized = &optimized
	res.Artifact = optimized
	res.Report = opt.Report
	return o.done(log, res), nil
}

func (o *Orchestrator) scans(ctx context.Context, a model.Artifact, want string) (bool, string) {
	ok, err := verify.Matches(ctx, o.scanner, a, want)
	if err != nil {
		return false, err.Error()
	}
	if !ok {
		return false, "decoded text differs"
	}
	return true, ""
}

func (o *Orchestrator) enter(s State) {
	if o.onState != nil {
		o.onState(s)
	}
}

func (o *Orchestrator) fail(log logrus.FieldLogger, at State, err error) error {
	o.enter(StateFailed)
	log.WithError(err).WithField("state", at).Info("generation failed")
	return &StepError{State: at, Err: err}
}

func (o *Orchestrator) done(log logrus.FieldLogger, res *Result) *Result {
	res.State = StateDone
	o.enter(StateDone)
	log.WithFields(logrus.Fields{
		"optimized": res.Optimized != nil,
		"warnings":  len(res.Warnings),
		"bytes":     len(res.Artifact.Data),
	}).Debug("generation done")
	return res
}

// reason returns the upstream message of an optimization error.
func reason(err error) string {
	var oe *model.OptimizationError
	if errors.As(err, &oe) {
		if oe.Err != nil {
			return oe.Reason + ": " + oe.Err.Error()
		}
		return oe.Reason
	}
	return err.Error()
}
