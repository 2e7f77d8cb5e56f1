// Package engine executes graph operations transactionally: snapshot, apply,
// validate, commit or roll back, and record a chained receipt for every
// attempt. One step at a time; callers serialize access to a graph.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/neuralogix/core/pkg/checkers"
	"github.com/neuralogix/core/pkg/ir"
	"github.com/neuralogix/core/pkg/ops"
	"github.com/neuralogix/core/pkg/receipts"
)

// Config wires an engine's collaborators. Zero values get working defaults:
// the builtin registry, the default checker suite, wall-clock time, and the
// process-wide logger and tracer.
type Config struct {
	Registry *ops.Registry
	Suite    *checkers.Suite
	Ledger   receipts.Ledger

	// EnableRollback restores the pre-step snapshot when validation ends in
	// HARD_FAIL or ABSTAIN. Off by default: the mutated graph stays live and
	// the receipt records that rollback was refused.
	EnableRollback bool
	// DisableCheckers skips validation entirely; every applied step commits
	// with status OK.
	DisableCheckers bool

	Actor  string
	Clock  func() time.Time
	Logger *slog.Logger
	Tracer trace.Tracer
}

// Engine drives the step state machine against a ledger.
type Engine struct {
	registry *ops.Registry
	suite    *checkers.Suite
	ledger   receipts.Ledger

	rollback        bool
	checkersEnabled bool

	actor  string
	clock  func() time.Time
	logger *slog.Logger
	tracer trace.Tracer
}

// New builds an engine from cfg. The ledger is required.
func New(cfg Config) (*Engine, error) {
	if cfg.Ledger == nil {
		return nil, errors.New("engine: ledger is required")
	}
	e := &Engine{
		registry:        cfg.Registry,
		suite:           cfg.Suite,
		ledger:          cfg.Ledger,
		rollback:        cfg.EnableRollback,
		checkersEnabled: !cfg.DisableCheckers,
		actor:           cfg.Actor,
		clock:           cfg.Clock,
		logger:          cfg.Logger,
		tracer:          cfg.Tracer,
	}
	if e.registry == nil {
		e.registry = ops.NewBuiltinRegistry()
	}
	if e.suite == nil {
		e.suite = checkers.DefaultSuite()
	}
	if e.actor == "" {
		e.actor = "system"
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer("neuralogix/engine")
	}
	return e, nil
}

// StepResult is the caller-facing outcome of one step. Failed validation and
// operation input errors are outcomes, not Go errors; Step returns a non-nil
// error only for unknown operations, hashing failures, and ledger faults.
type StepResult struct {
	Status     checkers.Status
	Outputs    map[string]any
	Reports    []checkers.Report
	Receipt    receipts.Event
	Committed  bool
	RolledBack bool
	Message    string
}

// Step runs one operation against g: snapshot the graph, apply the
// operation, validate the result, commit or roll back, and append a receipt
// recording the attempt. The graph is mutated in place on commit (and on a
// fatal validation outcome when rollback is disabled).
func (e *Engine) Step(ctx context.Context, g *ir.Graph, opName string, inputs map[string]any) (*StepResult, error) {
	ctx, span := e.tracer.Start(ctx, "engine.step",
		trace.WithAttributes(attribute.String("op", opName)))
	defer span.End()

	sig, err := e.registry.Get(opName)
	if err != nil {
		return nil, err
	}
	if inputs == nil {
		inputs = map[string]any{}
	}

	hashBefore, err := g.StateHash()
	if err != nil {
		return nil, fmt.Errorf("state hash: %w", err)
	}
	snapshot := g.Clone()

	outputs, opErr := sig.Apply(g, inputs)
	if opErr != nil {
		var inputErr *ops.InputError
		if !errors.As(opErr, &inputErr) {
			g.Restore(snapshot)
			return nil, fmt.Errorf("operation %s: %w", opName, opErr)
		}
		return e.recordInputFailure(ctx, g, snapshot, opName, inputs, hashBefore, opErr)
	}

	var reports []checkers.Report
	status := checkers.StatusOK
	if e.checkersEnabled {
		status, reports = e.suite.Validate(g)
	}

	hashAfter, err := g.StateHash()
	if err != nil {
		g.Restore(snapshot)
		return nil, fmt.Errorf("state hash: %w", err)
	}

	fatal := status == checkers.StatusHardFail || status == checkers.StatusAbstain
	notes := map[string]any{}
	receiptOutputs := outputs
	rolledBack := false
	if fatal {
		receiptOutputs = map[string]any{}
		if e.rollback {
			g.Restore(snapshot)
			hashAfter = hashBefore
			rolledBack = true
			notes["rollback"] = true
		} else {
			notes["rollback_refused"] = true
		}
	}

	ev, err := receipts.New(receipts.Spec{
		OpName:          opName,
		Inputs:          inputs,
		Outputs:         receiptOutputs,
		CheckerReports:  reports,
		Status:          status,
		GraphHashBefore: hashBefore,
		GraphHashAfter:  hashAfter,
		PrevReceiptHash: e.ledger.TailHash(),
		Actor:           e.actor,
		Notes:           notes,
	}, e.clock)
	if err != nil {
		return nil, err
	}
	if err := e.ledger.Append(ctx, ev); err != nil {
		return nil, fmt.Errorf("append receipt: %w", err)
	}

	result := &StepResult{
		Status:     status,
		Reports:    reports,
		Receipt:    ev,
		Committed:  !fatal,
		RolledBack: rolledBack,
	}
	if fatal {
		result.Outputs = map[string]any{}
		result.Message = "validation failed"
		e.logger.WarnContext(ctx, "step rejected by validation",
			"op", opName,
			"status", string(status),
			"rolled_back", rolledBack,
			"receipt", ev.EventID)
		return result, nil
	}

	result.Outputs = outputs
	e.logger.InfoContext(ctx, "step committed",
		"op", opName,
		"status", string(status),
		"hash_after", hashAfter,
		"receipt", ev.EventID)
	return result, nil
}

// recordInputFailure mints the terminal HARD_FAIL receipt for an operation
// that rejected its inputs. Checkers never run on this path.
func (e *Engine) recordInputFailure(ctx context.Context, g, snapshot *ir.Graph, opName string, inputs map[string]any, hashBefore string, opErr error) (*StepResult, error) {
	// Operations reject inputs before touching the graph; restoring the
	// snapshot keeps that contract even for a misbehaving implementation.
	g.Restore(snapshot)

	ev, err := receipts.New(receipts.Spec{
		OpName:          opName,
		Inputs:          inputs,
		Outputs:         map[string]any{},
		Status:          checkers.StatusHardFail,
		GraphHashBefore: hashBefore,
		GraphHashAfter:  hashBefore,
		PrevReceiptHash: e.ledger.TailHash(),
		Actor:           e.actor,
		Notes:           map[string]any{"operation_error": opErr.Error()},
	}, e.clock)
	if err != nil {
		return nil, err
	}
	if err := e.ledger.Append(ctx, ev); err != nil {
		return nil, fmt.Errorf("append receipt: %w", err)
	}

	e.logger.WarnContext(ctx, "operation rejected inputs",
		"op", opName,
		"error", opErr.Error(),
		"receipt", ev.EventID)
	return &StepResult{
		Status:  checkers.StatusHardFail,
		Outputs: map[string]any{},
		Receipt: ev,
		Message: opErr.Error(),
	}, nil
}
