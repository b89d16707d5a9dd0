// Package verification composes the redemption store, the ledger query
// client and the policy evaluator into the single authorization decision:
// a transaction reference authorizes at most one request, ever, across
// concurrent callers and process restarts.
package verification

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/solgate/solgate/ledger"
	"github.com/solgate/solgate/logger"
	"github.com/solgate/solgate/metrics"
	"github.com/solgate/solgate/policy"
	"github.com/solgate/solgate/redemption"
	"github.com/solgate/solgate/types"
)

// Service is the verification orchestrator. Construct once at startup and
// share; it holds no per-request state.
type Service struct {
	store  redemption.Store
	client ledger.Client
	pol    *types.PaymentPolicy

	log logger.Logger
	rec metrics.Recorder
	now func() time.Time

	// lookups collapses concurrent remote queries for the same reference.
	// Purely a load optimization: correctness rests on TryRedeem being
	// one atomic insert.
	lookups singleflight.Group
}

type Option func(*Service)

func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(s *Service) { s.rec = r }
}

// WithClock overrides the redemption timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store redemption.Store, client ledger.Client, pol *types.PaymentPolicy, opts ...Option) *Service {
	s := &Service{
		store:  store,
		client: client,
		pol:    pol,
		log:    logger.NoopLogger{},
		rec:    metrics.NoopRecorder{},
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Verify decides, exactly once per reference, whether the payment behind
// it authorizes a request. The order is deliberate: local redemption check
// first (no remote call for known-consumed references), remote lookup and
// policy evaluation second, atomic redemption commit last.
func (s *Service) Verify(ctx context.Context, reference string) types.VerificationOutcome {
	start := time.Now()
	outcome := s.verify(ctx, reference)
	s.observe(outcome, time.Since(start))
	return outcome
}

func (s *Service) verify(ctx context.Context, reference string) types.VerificationOutcome {
	if reference == "" {
		return types.RejectedPolicyMismatch(types.ReasonEmptyReference)
	}

	redeemed, err := s.store.IsRedeemed(ctx, reference)
	if err != nil {
		s.log.Error("redemption check failed", map[string]any{"reference": reference, "error": err.Error()})
		return types.RejectedTransient(types.ReasonStoreUnavailable)
	}
	if redeemed {
		return types.RejectedAlreadyRedeemed()
	}

	rec, err := s.lookup(ctx, reference)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFoundAfterRetries) {
			return types.RejectedNotFound()
		}
		s.log.Warn("ledger lookup failed", map[string]any{"reference": reference, "error": err.Error()})
		return types.RejectedTransient(types.ReasonLedgerUnavailable)
	}

	decision := policy.Evaluate(rec, s.pol)
	if !decision.OK {
		s.log.Info("payment rejected by policy", map[string]any{
			"reference": reference,
			"reason":    decision.Reason,
		})
		return types.RejectedPolicyMismatch(decision.Reason)
	}

	won, err := s.store.TryRedeem(ctx, reference, s.now())
	if err != nil {
		// Storage trouble is not a replay. Conflating the two would let
		// a storage hiccup permanently lock out a legitimate payer.
		s.log.Error("redemption insert failed", map[string]any{"reference": reference, "error": err.Error()})
		return types.RejectedTransient(types.ReasonStoreUnavailable)
	}
	if !won {
		// A concurrent verifier committed first. First redeemer wins.
		return types.RejectedAlreadyRedeemed()
	}

	s.log.Info("payment accepted", map[string]any{
		"reference": reference,
		"amount":    decision.AmountSent,
		"sender":    decision.Sender,
	})

	return types.Accepted(decision.AmountSent, decision.Sender, decision.Recipient)
}

func (s *Service) lookup(ctx context.Context, reference string) (*types.LedgerTransactionRecord, error) {
	v, err, _ := s.lookups.Do(reference, func() (any, error) {
		return s.client.Lookup(ctx, reference)
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.LedgerTransactionRecord), nil
}

func (s *Service) observe(outcome types.VerificationOutcome, d time.Duration) {
	labels := map[string]string{"outcome": string(outcome.Code)}
	s.rec.IncCounter("verify", labels)
	s.rec.ObserveLatency("verify", d, labels)
}
