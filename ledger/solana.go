package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/solgate/solgate/logger"
	"github.com/solgate/solgate/types"
)

// SolanaClient looks up transactions by signature against a Solana RPC
// node.
type SolanaClient struct {
	rpc   *rpc.Client
	retry retrier
	log   logger.Logger
}

var _ Client = (*SolanaClient)(nil)

// NewSolanaClient connects to rpcURL. attempts and backoff come from the
// payment policy's lookup budget.
func NewSolanaClient(rpcURL string, attempts int, backoff []time.Duration, log logger.Logger) (*SolanaClient, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("ledger: empty Solana RPC URL")
	}
	if log == nil {
		log = logger.NoopLogger{}
	}

	return &SolanaClient{
		rpc:   rpc.New(rpcURL),
		retry: newRetrier(attempts, backoff),
		log:   log,
	}, nil
}

// Lookup resolves a base58 transaction signature. A reference that does
// not even parse as a signature can never become visible, so it skips the
// retry budget entirely.
func (c *SolanaClient) Lookup(ctx context.Context, reference string) (*types.LedgerTransactionRecord, error) {
	sig, err := solana.SignatureFromBase58(reference)
	if err != nil {
		return nil, ErrNotFoundAfterRetries
	}

	return c.retry.run(ctx, func(ctx context.Context) (*types.LedgerTransactionRecord, bool, error) {
		return c.fetch(ctx, sig)
	})
}

func (c *SolanaClient) fetch(ctx context.Context, sig solana.Signature) (*types.LedgerTransactionRecord, bool, error) {
	maxVersion := uint64(0)
	out, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, Transient(err)
	}
	if out == nil {
		return nil, false, nil
	}

	rec, err := parseTransactionResult(out)
	if err != nil {
		// Malformed but present. Never mistaken for absence.
		return nil, false, Transient(err)
	}

	finality, err := c.finality(ctx, sig)
	if err != nil {
		return nil, false, err
	}
	rec.Finality = finality

	c.log.Debug("ledger lookup resolved", map[string]any{
		"signature": sig.String(),
		"slot":      rec.Slot,
		"finality":  rec.Finality.String(),
		"succeeded": rec.Succeeded,
	})

	return rec, true, nil
}

// finality asks the node how far the signature has progressed. The record
// was already fetched at confirmed commitment, so a missing status is
// reported as confirmed rather than absent.
func (c *SolanaClient) finality(ctx context.Context, sig solana.Signature) (types.FinalityLevel, error) {
	statuses, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return 0, Transient(err)
	}
	if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
		return types.FinalityConfirmed, nil
	}

	switch statuses.Value[0].ConfirmationStatus {
	case rpc.ConfirmationStatusFinalized:
		return types.FinalityFinalized, nil
	case rpc.ConfirmationStatusConfirmed:
		return types.FinalityConfirmed, nil
	default:
		return types.FinalityPending, nil
	}
}

func (c *SolanaClient) Close() error {
	return c.rpc.Close()
}

// parseTransactionResult turns a raw RPC response into the shared record
// model, or reports a classified parse failure.
func parseTransactionResult(out *rpc.GetTransactionResult) (*types.LedgerTransactionRecord, error) {
	if out.Meta == nil {
		return nil, fmt.Errorf("transaction meta missing")
	}
	if out.Transaction == nil {
		return nil, fmt.Errorf("transaction envelope missing")
	}

	tx, err := out.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}

	keys := tx.Message.AccountKeys
	if len(out.Meta.PreBalances) != len(keys) || len(out.Meta.PostBalances) != len(keys) {
		return nil, fmt.Errorf("balance arrays misaligned with account keys")
	}

	rec := &types.LedgerTransactionRecord{
		Found:        true,
		Succeeded:    out.Meta.Err == nil,
		Slot:         out.Slot,
		AccountKeys:  make([]string, len(keys)),
		PreBalances:  out.Meta.PreBalances,
		PostBalances: out.Meta.PostBalances,
	}
	for i, k := range keys {
		rec.AccountKeys[i] = k.String()
	}
	if out.BlockTime != nil {
		rec.BlockTime = out.BlockTime.Time()
	}

	// Every instruction with at least two participant accounts is kept.
	// The system transfer layout puts the funding account first and the
	// recipient second; policy evaluation scans the whole list.
	for _, inst := range tx.Message.Instructions {
		if len(inst.Accounts) < 2 {
			continue
		}

		programID := ""
		if int(inst.ProgramIDIndex) < len(keys) {
			programID = keys[inst.ProgramIDIndex].String()
		}

		rec.Transfers = append(rec.Transfers, types.TransferInstruction{
			ProgramID:      programID,
			SenderIndex:    inst.Accounts[0],
			RecipientIndex: inst.Accounts[1],
		})
	}

	return rec, nil
}
