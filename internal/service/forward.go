package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/tracechain/tracechain/internal/fault"
	"github.com/tracechain/tracechain/internal/metrics"
	"github.com/tracechain/tracechain/internal/model"
)

// Getter fetches a downstream envelope.
type Getter interface {
	Get(ctx context.Context, url string) (json.RawMessage, error)
}

// ForwardProfile describes how a tier relays lookups to the next tier.
type ForwardProfile struct {
	Service string
	// BaseURL is the next tier's address, e.g. http://service-b:8081.
	BaseURL string
	// PathPrefix is prepended to "/<kind>/<id>" on the downstream request.
	PathPrefix string
	// NestField holds the downstream envelope in the response.
	NestField string
	// Processed adds "processed": true to the response.
	Processed  bool
	UserDelay  time.Duration
	OrderDelay time.Duration
}

// ForwardService relays user and order lookups down the chain.
type ForwardService struct {
	profile ForwardProfile
	client  Getter
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewForwardService creates a new ForwardService.
func NewForwardService(profile ForwardProfile, client Getter, recorder metrics.Recorder, logger *slog.Logger) *ForwardService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	profile.BaseURL = strings.TrimSuffix(profile.BaseURL, "/")
	return &ForwardService{
		profile: profile,
		client:  client,
		metrics: recorder,
		logger:  logger.With("component", "forward"),
	}
}

// Forward performs the tier's pre-processing delay, calls the next tier once
// and nests its envelope unmodified. Downstream failures are returned as-is.
func (s *ForwardService) Forward(ctx context.Context, kind model.ResourceKind, id string) (model.Envelope, error) {
	if !kind.IsValid() {
		return nil, fault.Internal("unknown resource kind", fmt.Errorf("kind %q", kind))
	}

	sleepCtx(ctx, s.delay(kind))

	target := s.URL(kind, id)
	s.logger.InfoContext(ctx, "forwarding request", "kind", string(kind), "id", id, "url", target)

	body, err := s.client.Get(ctx, target)
	s.metrics.IncBusinessEvent(EventForward, outcome(err))
	if err != nil {
		if fault.KindOf(err) != fault.KindDownstream {
			return nil, fault.Wrap(fault.KindDownstream, "downstream call failed", err)
		}
		return nil, err
	}

	env := model.NewEnvelope(s.profile.Service).Set(kind.IDField(), id)
	if s.profile.Processed {
		env.Set("processed", true)
	}
	return env.Nest(s.profile.NestField, body).Stamp(), nil
}

// URL builds the downstream address for a record lookup.
func (s *ForwardService) URL(kind model.ResourceKind, id string) string {
	return s.profile.BaseURL + s.profile.PathPrefix + "/" + string(kind) + "/" + url.PathEscape(id)
}

func (s *ForwardService) delay(kind model.ResourceKind) time.Duration {
	if kind == model.KindOrder {
		return s.profile.OrderDelay
	}
	return s.profile.UserDelay
}
