// Package config loads and validates the gateway configuration from the
// environment once at startup. Nothing reads the environment after that.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/solgate/solgate/types"
)

var validate = validator.New()

// lamportsPerSOL is the smallest-unit scale of the native asset.
const lamportsPerSOL = 1_000_000_000

type Config struct {
	ListenAddr string `validate:"required"`
	LogLevel   string `validate:"oneof=debug info warn error"`

	// Ledger backend.
	SolanaRPCURL string `validate:"required,url"`

	// Payment policy.
	RecipientWallet   string `validate:"required"`
	RequiredAmountSOL string `validate:"required"`
	RequiredFinality  string `validate:"oneof=pending confirmed finalized"`
	MaxLookupAttempts int    `validate:"min=1"`
	RetryBackoff      []time.Duration

	// Redemption store. Empty means the in-memory store, which does not
	// survive restarts and is only acceptable for local runs.
	DatabaseURL string

	// Upstream chat completion endpoint (OpenAI-compatible).
	UpstreamURL    string `validate:"required,url"`
	UpstreamAPIKey string
	Model          string `validate:"required"`
}

// Load reads the environment, applies defaults and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:        getenv("SOLGATE_LISTEN_ADDR", ":8000"),
		LogLevel:          getenv("SOLGATE_LOG_LEVEL", "info"),
		SolanaRPCURL:      getenv("SOLANA_RPC_URL", "https://api.devnet.solana.com"),
		RecipientWallet:   os.Getenv("RECIPIENT_WALLET"),
		RequiredAmountSOL: getenv("REQUIRED_PAYMENT_AMOUNT", "0.1"),
		RequiredFinality:  getenv("REQUIRED_FINALITY", "finalized"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		UpstreamURL:       getenv("UPSTREAM_URL", "https://api.openai.com/v1"),
		UpstreamAPIKey:    os.Getenv("OPENAI_API_KEY"),
		Model:             getenv("DEFAULT_MODEL", "gpt-4"),
	}

	attempts, err := strconv.Atoi(getenv("MAX_LOOKUP_ATTEMPTS", "5"))
	if err != nil {
		return nil, fmt.Errorf("config: MAX_LOOKUP_ATTEMPTS: %w", err)
	}
	cfg.MaxLookupAttempts = attempts

	backoff, err := ParseBackoff(getenv("LOOKUP_RETRY_BACKOFF", "500ms,1s,2s,4s"))
	if err != nil {
		return nil, fmt.Errorf("config: LOOKUP_RETRY_BACKOFF: %w", err)
	}
	cfg.RetryBackoff = backoff

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Policy converts the config into the immutable payment policy. The SOL
// amount must convert to a whole, positive number of lamports.
func (c *Config) Policy() (*types.PaymentPolicy, error) {
	amount, err := LamportsFromSOL(c.RequiredAmountSOL)
	if err != nil {
		return nil, err
	}

	finality, err := types.ParseFinality(c.RequiredFinality)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	pol := &types.PaymentPolicy{
		RequiredAmount:    amount,
		RecipientAddress:  c.RecipientWallet,
		RequiredFinality:  finality,
		MaxLookupAttempts: c.MaxLookupAttempts,
		RetryBackoff:      c.RetryBackoff,
	}

	if err := pol.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return pol, nil
}

// LamportsFromSOL converts a decimal SOL amount string into lamports.
func LamportsFromSOL(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("config: invalid SOL amount %q: %w", s, err)
	}
	if d.IsNegative() || d.IsZero() {
		return 0, fmt.Errorf("config: SOL amount must be positive, got %q", s)
	}

	lamports := d.Mul(decimal.NewFromInt(lamportsPerSOL))
	if !lamports.IsInteger() {
		return 0, fmt.Errorf("config: SOL amount %q is below one lamport of precision", s)
	}
	if !lamports.BigInt().IsUint64() {
		return 0, fmt.Errorf("config: SOL amount %q overflows lamports", s)
	}

	return lamports.BigInt().Uint64(), nil
}

// ParseBackoff parses a comma-separated duration list such as "500ms,1s,2s".
func ParseBackoff(s string) ([]time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	out := make([]time.Duration, 0, len(parts))
	for _, p := range parts {
		d, err := time.ParseDuration(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", p, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("negative duration %q", p)
		}
		out = append(out, d)
	}

	return out, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
