package solgate

import (
	"github.com/solgate/solgate/ledger"
	"github.com/solgate/solgate/logger"
	"github.com/solgate/solgate/metrics"
	"github.com/solgate/solgate/redemption"
)

type Option func(*Gate) error

func WithLogger(l logger.Logger) Option {
	return func(g *Gate) error {
		g.log = l
		return nil
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(g *Gate) error {
		g.rec = r
		return nil
	}
}

// WithStore selects the redemption store. Use the Postgres store whenever
// acceptance must survive restarts.
func WithStore(s redemption.Store) Option {
	return func(g *Gate) error {
		g.store = s
		return nil
	}
}

// WithLedgerClient plugs in any backend satisfying the lookup contract,
// including test doubles.
func WithLedgerClient(c ledger.Client) Option {
	return func(g *Gate) error {
		g.client = c
		return nil
	}
}

// WithSolanaRPC configures a Solana ledger backend at rpcURL, using the
// policy's lookup budget.
func WithSolanaRPC(rpcURL string) Option {
	return func(g *Gate) error {
		c, err := ledger.NewSolanaClient(rpcURL, g.policy.MaxLookupAttempts, g.policy.RetryBackoff, g.log)
		if err != nil {
			return err
		}
		g.client = c
		return nil
	}
}

// WithEVMRPC configures an EVM ledger backend at rpcURL.
func WithEVMRPC(rpcURL string) Option {
	return func(g *Gate) error {
		c, err := ledger.NewEVMClient(rpcURL, g.policy.MaxLookupAttempts, g.policy.RetryBackoff, g.log)
		if err != nil {
			return err
		}
		g.client = c
		return nil
	}
}
