package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solgate/solgate/types"
)

func TestLamportsFromSOL(t *testing.T) {
	got, err := LamportsFromSOL("0.1")
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000_000), got)

	got, err = LamportsFromSOL("1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000), got)

	got, err = LamportsFromSOL("0.000000001")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got)
}

func TestLamportsFromSOL_Rejects(t *testing.T) {
	for _, in := range []string{"", "abc", "-1", "0", "0.0000000001"} {
		_, err := LamportsFromSOL(in)
		assert.Error(t, err, in)
	}
}

func TestParseBackoff(t *testing.T) {
	got, err := ParseBackoff("500ms, 1s,2s")
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second}, got)

	got, err = ParseBackoff("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseBackoff("1s,banana")
	assert.Error(t, err)

	_, err = ParseBackoff("-1s")
	assert.Error(t, err)
}

func TestLoad_DefaultsAndValidation(t *testing.T) {
	t.Setenv("RECIPIENT_WALLET", "DkudPGbWdeMWcdKSR9A2wkmxiTTRsg28QyWKDE1Wn2DW")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.Equal(t, "https://api.devnet.solana.com", cfg.SolanaRPCURL)
	assert.Equal(t, "0.1", cfg.RequiredAmountSOL)
	assert.Equal(t, "finalized", cfg.RequiredFinality)
	assert.Equal(t, 5, cfg.MaxLookupAttempts)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second, 4 * time.Second}, cfg.RetryBackoff)
}

func TestLoad_MissingRecipientFails(t *testing.T) {
	t.Setenv("RECIPIENT_WALLET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestPolicyFromConfig(t *testing.T) {
	t.Setenv("RECIPIENT_WALLET", "DkudPGbWdeMWcdKSR9A2wkmxiTTRsg28QyWKDE1Wn2DW")
	t.Setenv("REQUIRED_PAYMENT_AMOUNT", "0.25")
	t.Setenv("REQUIRED_FINALITY", "confirmed")
	t.Setenv("MAX_LOOKUP_ATTEMPTS", "7")

	cfg, err := Load()
	require.NoError(t, err)

	pol, err := cfg.Policy()
	require.NoError(t, err)

	assert.Equal(t, uint64(250_000_000), pol.RequiredAmount)
	assert.Equal(t, "DkudPGbWdeMWcdKSR9A2wkmxiTTRsg28QyWKDE1Wn2DW", pol.RecipientAddress)
	assert.Equal(t, types.FinalityConfirmed, pol.RequiredFinality)
	assert.Equal(t, 7, pol.MaxLookupAttempts)
}

func TestLoad_BadFinalityFails(t *testing.T) {
	t.Setenv("RECIPIENT_WALLET", "DkudPGbWdeMWcdKSR9A2wkmxiTTRsg28QyWKDE1Wn2DW")
	t.Setenv("REQUIRED_FINALITY", "eventual")

	_, err := Load()
	assert.Error(t, err)
}
