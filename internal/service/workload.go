package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tracechain/tracechain/internal/fault"
	"github.com/tracechain/tracechain/internal/metrics"
	"github.com/tracechain/tracechain/internal/model"
	"github.com/tracechain/tracechain/internal/workload"
)

// Operation names reported in envelopes, spans and metrics.
const (
	OpPrimes     = "prime-calculation"
	OpHash       = "hash-computation"
	OpAllocate   = "memory-allocation"
	OpCollection = "collection-processing"
	OpQuery      = "database-query"
	OpError      = "error-simulation"
)

// SoftErrorMessage is the error field of the non-fault simulated failure.
const SoftErrorMessage = "Simulated error response"

// WorkloadLimits bounds request parameters. Zero disables a bound.
type WorkloadLimits struct {
	MaxAllocateMB int
	MaxItems      int
	MaxDelay      time.Duration
}

// WorkloadConfig describes the tier hosting the generators.
type WorkloadConfig struct {
	Service     string
	DisplayName string
	// SeedPrefix starts every hash chain seed, e.g. "ServiceA".
	SeedPrefix string
	Digest     workload.Digest
	Limits     WorkloadLimits
}

// WorkloadService runs the synthetic load generators.
type WorkloadService struct {
	cfg     WorkloadConfig
	rng     workload.Rand
	tracer  trace.Tracer
	metrics metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewWorkloadService creates a new WorkloadService.
func NewWorkloadService(cfg WorkloadConfig, rng workload.Rand, tracer trace.Tracer, recorder metrics.Recorder, logger *slog.Logger) *WorkloadService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &WorkloadService{
		cfg:     cfg,
		rng:     rng,
		tracer:  tracer,
		metrics: recorder,
		logger:  logger.With("component", "workload"),
		now:     time.Now,
	}
}

// Hello returns the greeting envelope.
func (s *WorkloadService) Hello() model.Envelope {
	return model.NewEnvelope(s.cfg.Service).
		Set("message", "Hello from "+s.cfg.DisplayName).
		Stamp()
}

// Primes counts primes in [2, limit].
func (s *WorkloadService) Primes(ctx context.Context, limit int) (model.Envelope, error) {
	if limit < 0 {
		return nil, fault.Validation("limit must be non-negative").With("limit", limit)
	}
	return s.run(ctx, OpPrimes, func(ctx context.Context) (model.Envelope, error) {
		res := workload.CountPrimes(limit)
		s.logger.InfoContext(ctx, "computed primes", "limit", limit, "primes_found", res.PrimesFound, "duration_ms", model.Millis(res.Duration))
		return s.envelope(OpPrimes).
			Set("limit", limit).
			Set("primesFound", res.PrimesFound).
			Set("durationMs", model.Millis(res.Duration)), nil
	})
}

// Hash runs an iterated digest chain seeded with the tier prefix and the current time.
func (s *WorkloadService) Hash(ctx context.Context, iterations int) (model.Envelope, error) {
	if iterations < 0 {
		return nil, fault.Validation("iterations must be non-negative").With("iterations", iterations)
	}
	return s.run(ctx, OpHash, func(ctx context.Context) (model.Envelope, error) {
		res, err := workload.HashChain(workload.Seed(s.cfg.SeedPrefix, s.now()), iterations, s.cfg.Digest)
		if err != nil {
			return nil, fault.Internal("Hash computation failed", err).With("digest", string(s.cfg.Digest))
		}
		s.logger.InfoContext(ctx, "computed hash chain", "iterations", iterations, "duration_ms", model.Millis(res.Duration))
		return s.envelope(OpHash).
			Set("iterations", iterations).
			Set("finalHash", res.FinalHash).
			Set("durationMs", model.Millis(res.Duration)), nil
	})
}

// Allocate creates sizeMb transient 1 MiB chunks.
func (s *WorkloadService) Allocate(ctx context.Context, sizeMb int) (model.Envelope, error) {
	if max := s.cfg.Limits.MaxAllocateMB; max > 0 && sizeMb > max {
		return nil, fault.Validation(fmt.Sprintf("sizeMb must not exceed %d", max)).With("sizeMb", sizeMb)
	}
	return s.run(ctx, OpAllocate, func(ctx context.Context) (model.Envelope, error) {
		res, err := workload.AllocateMemory(sizeMb)
		if err != nil {
			return nil, fault.Internal("Memory allocation failed", err)
		}
		s.logger.InfoContext(ctx, "allocated memory", "size_mb", sizeMb, "chunks", res.ChunksCreated, "duration_ms", model.Millis(res.Duration))
		return s.envelope(OpAllocate).
			Set("allocatedMb", sizeMb).
			Set("chunksCreated", res.ChunksCreated).
			Set("durationMs", model.Millis(res.Duration)), nil
	})
}

// Process builds and scans a transient collection of itemCount entries.
func (s *WorkloadService) Process(ctx context.Context, itemCount int) (model.Envelope, error) {
	if itemCount < 0 {
		return nil, fault.Validation("itemCount must be non-negative").With("itemCount", itemCount)
	}
	if max := s.cfg.Limits.MaxItems; max > 0 && itemCount > max {
		return nil, fault.Validation(fmt.Sprintf("itemCount must not exceed %d", max)).With("itemCount", itemCount)
	}
	return s.run(ctx, OpCollection, func(ctx context.Context) (model.Envelope, error) {
		res := workload.ProcessCollection(itemCount)
		s.logger.InfoContext(ctx, "processed collection", "items", itemCount, "duration_ms", model.Millis(res.Duration))
		return s.envelope(OpCollection).
			Set("itemsProcessed", res.ItemsProcessed).
			Set("matchedItems", res.MatchedItems).
			Set("durationMs", model.Millis(res.Duration)), nil
	})
}

// SlowQuery suspends the request for delayMs and fabricates a result count.
func (s *WorkloadService) SlowQuery(ctx context.Context, delayMs int) (model.Envelope, error) {
	if delayMs < 0 {
		return nil, fault.Validation("delayMs must be non-negative").With("delayMs", delayMs)
	}
	delay := time.Duration(delayMs) * time.Millisecond
	if max := s.cfg.Limits.MaxDelay; max > 0 && delay > max {
		return nil, fault.Validation(fmt.Sprintf("delayMs must not exceed %d", max.Milliseconds())).With("delayMs", delayMs)
	}
	return s.run(ctx, OpQuery, func(ctx context.Context) (model.Envelope, error) {
		res := workload.SimulateQuery(ctx, delay, s.rng)
		if res.Interrupted {
			s.logger.WarnContext(ctx, "simulated query interrupted", "delay_ms", delayMs, "elapsed_ms", model.Millis(res.Actual))
		} else {
			s.logger.InfoContext(ctx, "simulated query", "delay_ms", delayMs, "elapsed_ms", model.Millis(res.Actual))
		}
		return s.envelope(OpQuery).
			Set("expectedDelayMs", delayMs).
			Set("actualDurationMs", model.Millis(res.Actual)).
			Set("resultCount", res.ResultCount), nil
	})
}

// SimulateError picks one of three failure presentations: two fault kinds
// and a normal envelope carrying an error field.
func (s *WorkloadService) SimulateError(ctx context.Context) (model.Envelope, error) {
	return s.run(ctx, OpError, func(ctx context.Context) (model.Envelope, error) {
		choice := workload.PickErrorOutcome(s.rng)
		s.logger.WarnContext(ctx, "simulating error", "outcome", choice.String())
		s.metrics.IncBusinessEvent(EventErrorTest, choice.String())

		switch choice {
		case workload.OutcomeRuntimeFault:
			return nil, fault.New(fault.KindSimulatedRuntime, "Simulated runtime exception")
		case workload.OutcomeStateFault:
			return nil, fault.New(fault.KindSimulatedState, "Simulated illegal state")
		default:
			return model.NewEnvelope(s.cfg.Service).Set("error", SoftErrorMessage), nil
		}
	})
}

func (s *WorkloadService) envelope(op string) model.Envelope {
	return model.NewEnvelope(s.cfg.Service).Set("operation", op)
}

// run wraps a generator in an internal span and records its duration.
func (s *WorkloadService) run(ctx context.Context, op string, fn func(context.Context) (model.Envelope, error)) (model.Envelope, error) {
	ctx, span := s.tracer.Start(ctx, "workload "+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("workload.operation", op),
			attribute.String("service.tier", s.cfg.Service),
		),
	)
	defer span.End()

	start := time.Now()
	env, err := fn(ctx)
	s.metrics.ObserveWorkload(op, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return env.Stamp(), nil
}
