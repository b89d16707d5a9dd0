// Package solgate gates access to a paid endpoint behind verification of
// an on-chain payment. A caller presents a transaction reference; solgate
// checks it against the ledger and the payment policy, and redeems it
// exactly once.
package solgate

import (
	"context"
	"fmt"

	"github.com/solgate/solgate/ledger"
	"github.com/solgate/solgate/logger"
	"github.com/solgate/solgate/metrics"
	"github.com/solgate/solgate/redemption"
	"github.com/solgate/solgate/types"
	"github.com/solgate/solgate/verification"
)

// Gate wires the redemption store, ledger client and verification
// orchestrator together behind one Verify call.
type Gate struct {
	verifier *verification.Service
	client   ledger.Client
	store    redemption.Store
	policy   *types.PaymentPolicy

	log logger.Logger
	rec metrics.Recorder
}

// New builds a Gate for the given policy. A ledger backend must be
// supplied via WithSolanaRPC, WithEVMRPC or WithLedgerClient. Without
// WithStore the gate falls back to the in-memory redemption store, which
// does not survive restarts.
func New(policy *types.PaymentPolicy, opts ...Option) (*Gate, error) {
	if policy == nil {
		return nil, fmt.Errorf("solgate: nil payment policy")
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("solgate: %w", err)
	}

	g := &Gate{
		policy: policy,
		log:    logger.NoopLogger{},
		rec:    metrics.NoopRecorder{},
	}

	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}

	if g.client == nil {
		return nil, fmt.Errorf("solgate: no ledger backend configured")
	}
	if g.store == nil {
		g.store = redemption.NewMemoryStore()
	}

	g.verifier = verification.NewService(
		g.store,
		g.client,
		g.policy,
		verification.WithLogger(g.log),
		verification.WithMetrics(g.rec),
	)

	return g, nil
}

// Verify decides whether reference authorizes one request.
func (g *Gate) Verify(ctx context.Context, reference string) types.VerificationOutcome {
	return g.verifier.Verify(ctx, reference)
}

// Verifier exposes the underlying orchestrator for embedding in a server.
func (g *Gate) Verifier() *verification.Service {
	return g.verifier
}

// Close releases the ledger client connection. The redemption store's
// backing pool belongs to the caller.
func (g *Gate) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}
