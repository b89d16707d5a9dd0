package ledger

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solgate/solgate/types"
)

func TestEVMFinality(t *testing.T) {
	assert.Equal(t, types.FinalityPending, evmFinality(100, 99))
	assert.Equal(t, types.FinalityConfirmed, evmFinality(100, 100))
	assert.Equal(t, types.FinalityConfirmed, evmFinality(100, 100+finalizedDepth-2))
	assert.Equal(t, types.FinalityFinalized, evmFinality(100, 100+finalizedDepth-1))
	assert.Equal(t, types.FinalityFinalized, evmFinality(100, 100+finalizedDepth+500))
}

func TestIsTxHash(t *testing.T) {
	assert.True(t, isTxHash("0x"+"ab"+"cd"+"ef"+"0123456789abcdef0123456789abcdef0123456789abcdef0123456789"))
	assert.False(t, isTxHash("SIG_A"))
	assert.False(t, isTxHash("0x1234"))
	assert.False(t, isTxHash("0xzz34567890123456789012345678901234567890123456789012345678901234"))
}

func TestRecordFromEVMTx_NativeTransfer(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	chainID := big.NewInt(1337)
	to := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    0,
		To:       &to,
		Value:    big.NewInt(100_000),
		Gas:      21000,
		GasPrice: big.NewInt(1),
	})
	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(chainID), key)
	require.NoError(t, err)

	receipt := &ethtypes.Receipt{
		Status:      ethtypes.ReceiptStatusSuccessful,
		BlockNumber: big.NewInt(500),
	}

	rec, err := recordFromEVMTx(signed, receipt, 500+finalizedDepth)
	require.NoError(t, err)

	from := crypto.PubkeyToAddress(key.PublicKey)
	require.True(t, rec.Found)
	assert.True(t, rec.Succeeded)
	assert.Equal(t, types.FinalityFinalized, rec.Finality)
	assert.Equal(t, []string{from.Hex(), to.Hex()}, rec.AccountKeys)

	require.Len(t, rec.Transfers, 1)
	tr := rec.Transfers[0]
	delta := rec.PreBalances[tr.SenderIndex] - rec.PostBalances[tr.SenderIndex]
	assert.Equal(t, uint64(100_000), delta)
	assert.Equal(t, to.Hex(), rec.AccountKeys[tr.RecipientIndex])
}

func TestRecordFromEVMTx_RevertedExecution(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	to := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		To:       &to,
		Value:    big.NewInt(1),
		Gas:      21000,
		GasPrice: big.NewInt(1),
	})
	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(big.NewInt(1)), key)
	require.NoError(t, err)

	receipt := &ethtypes.Receipt{
		Status:      ethtypes.ReceiptStatusFailed,
		BlockNumber: big.NewInt(7),
	}

	rec, err := recordFromEVMTx(signed, receipt, 7)
	require.NoError(t, err)
	assert.False(t, rec.Succeeded)
}
