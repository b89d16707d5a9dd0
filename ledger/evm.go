package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/solgate/solgate/logger"
	"github.com/solgate/solgate/types"
)

// finalizedDepth is the confirmation depth treated as irreversible on EVM
// chains, matching the beacon-chain finalization horizon.
const finalizedDepth = 64

// EVMClient resolves transaction hashes on an EVM chain into the shared
// record model. A native value transfer maps onto the same index-aligned
// shape the policy evaluator consumes: account 0 is the sender, account 1
// the recipient, and the sender's balance delta equals the transferred
// value.
type EVMClient struct {
	ec    *ethclient.Client
	retry retrier
	log   logger.Logger
}

var _ Client = (*EVMClient)(nil)

func NewEVMClient(rpcURL string, attempts int, backoff []time.Duration, log logger.Logger) (*EVMClient, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("ledger: empty EVM RPC URL")
	}
	if log == nil {
		log = logger.NoopLogger{}
	}

	ec, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("ledger: dial EVM node: %w", err)
	}

	return &EVMClient{
		ec:    ec,
		retry: newRetrier(attempts, backoff),
		log:   log,
	}, nil
}

// Lookup resolves a 0x-prefixed transaction hash. References that are not
// well-formed hashes can never resolve and skip the retry budget.
func (c *EVMClient) Lookup(ctx context.Context, reference string) (*types.LedgerTransactionRecord, error) {
	if !isTxHash(reference) {
		return nil, ErrNotFoundAfterRetries
	}
	hash := common.HexToHash(reference)

	return c.retry.run(ctx, func(ctx context.Context) (*types.LedgerTransactionRecord, bool, error) {
		return c.fetch(ctx, hash)
	})
}

func (c *EVMClient) fetch(ctx context.Context, hash common.Hash) (*types.LedgerTransactionRecord, bool, error) {
	tx, isPending, err := c.ec.TransactionByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, false, nil
		}
		return nil, false, Transient(err)
	}
	if isPending {
		// Visible in the mempool only. Not usable at any finality level
		// yet, so keep waiting within the retry budget.
		return nil, false, nil
	}

	receipt, err := c.ec.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, false, nil
		}
		return nil, false, Transient(err)
	}

	head, err := c.ec.BlockNumber(ctx)
	if err != nil {
		return nil, false, Transient(err)
	}

	rec, err := recordFromEVMTx(tx, receipt, head)
	if err != nil {
		return nil, false, Transient(err)
	}

	c.log.Debug("ledger lookup resolved", map[string]any{
		"hash":      hash.Hex(),
		"block":     receipt.BlockNumber.Uint64(),
		"finality":  rec.Finality.String(),
		"succeeded": rec.Succeeded,
	})

	return rec, true, nil
}

func (c *EVMClient) Close() error {
	c.ec.Close()
	return nil
}

func recordFromEVMTx(tx *ethtypes.Transaction, receipt *ethtypes.Receipt, head uint64) (*types.LedgerTransactionRecord, error) {
	from, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return nil, fmt.Errorf("recover sender: %w", err)
	}

	rec := &types.LedgerTransactionRecord{
		Found:     true,
		Succeeded: receipt.Status == ethtypes.ReceiptStatusSuccessful,
		Finality:  evmFinality(receipt.BlockNumber.Uint64(), head),
		Slot:      receipt.BlockNumber.Uint64(),
	}

	to := tx.To()
	if to == nil {
		// Contract creation carries no payment recipient.
		rec.AccountKeys = []string{from.Hex()}
		rec.PreBalances = []uint64{0}
		rec.PostBalances = []uint64{0}
		return rec, nil
	}

	value := uint64(math.MaxUint64)
	if tx.Value().IsUint64() {
		value = tx.Value().Uint64()
	}

	rec.AccountKeys = []string{from.Hex(), to.Hex()}
	rec.PreBalances = []uint64{value, 0}
	rec.PostBalances = []uint64{0, value}
	rec.Transfers = []types.TransferInstruction{{SenderIndex: 0, RecipientIndex: 1}}

	return rec, nil
}

func evmFinality(blockNumber, head uint64) types.FinalityLevel {
	if head < blockNumber {
		return types.FinalityPending
	}

	confirmations := head - blockNumber + 1
	switch {
	case confirmations >= finalizedDepth:
		return types.FinalityFinalized
	case confirmations >= 1:
		return types.FinalityConfirmed
	default:
		return types.FinalityPending
	}
}

func isTxHash(s string) bool {
	if len(s) != 66 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return false
	}
	for _, r := range s[2:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
