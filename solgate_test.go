package solgate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solgate/solgate/types"
)

type staticLedger struct {
	rec *types.LedgerTransactionRecord
}

func (s *staticLedger) Lookup(context.Context, string) (*types.LedgerTransactionRecord, error) {
	return s.rec, nil
}

func (s *staticLedger) Close() error { return nil }

func testPolicy() *types.PaymentPolicy {
	return &types.PaymentPolicy{
		RequiredAmount:    100_000,
		RecipientAddress:  "DkudPGbWdeMWcdKSR9A2wkmxiTTRsg28QyWKDE1Wn2DW",
		RequiredFinality:  types.FinalityFinalized,
		MaxLookupAttempts: 3,
	}
}

func TestGate_VerifyEndToEnd(t *testing.T) {
	client := &staticLedger{rec: &types.LedgerTransactionRecord{
		Found:        true,
		Succeeded:    true,
		Finality:     types.FinalityFinalized,
		AccountKeys:  []string{"payer", "DkudPGbWdeMWcdKSR9A2wkmxiTTRsg28QyWKDE1Wn2DW"},
		PreBalances:  []uint64{500_000, 0},
		PostBalances: []uint64{400_000, 100_000},
		Transfers:    []types.TransferInstruction{{SenderIndex: 0, RecipientIndex: 1}},
	}}

	gate, err := New(testPolicy(), WithLedgerClient(client))
	require.NoError(t, err)
	defer gate.Close()

	first := gate.Verify(context.Background(), "SIG_A")
	assert.Equal(t, types.OutcomeAccepted, first.Code)

	second := gate.Verify(context.Background(), "SIG_A")
	assert.Equal(t, types.OutcomeAlreadyRedeemed, second.Code)
}

func TestGate_RequiresLedgerBackend(t *testing.T) {
	_, err := New(testPolicy())
	assert.Error(t, err)
}

func TestGate_RejectsInvalidPolicy(t *testing.T) {
	_, err := New(&types.PaymentPolicy{}, WithLedgerClient(&staticLedger{}))
	assert.Error(t, err)

	_, err = New(nil, WithLedgerClient(&staticLedger{}))
	assert.Error(t, err)
}
