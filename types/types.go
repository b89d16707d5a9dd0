// Package types holds the shared data model for payment verification:
// the payment policy, the parsed ledger transaction record, and the
// verification outcome returned to callers.
package types

import (
	"fmt"
	"time"
)

// PaymentPolicy is the immutable configuration a payment must satisfy.
// Amounts are in the smallest unit of the ledger's native asset (lamports
// for Solana, wei clamped to uint64 for EVM backends).
type PaymentPolicy struct {
	// RequiredAmount is the minimum amount the sender must have paid.
	RequiredAmount uint64

	// RecipientAddress is the address the payment must have been sent to.
	RecipientAddress string

	// RequiredFinality is the minimum confirmation level the transaction
	// must have reached on the ledger.
	RequiredFinality FinalityLevel

	// MaxLookupAttempts bounds how many times the ledger is queried for a
	// reference that is not yet visible.
	MaxLookupAttempts int

	// RetryBackoff is the sequence of delays observed between lookup
	// attempts. The last entry repeats if attempts outnumber entries.
	RetryBackoff []time.Duration
}

// Validate checks that the policy contains all required fields.
func (p *PaymentPolicy) Validate() error {
	if p.RequiredAmount == 0 {
		return fmt.Errorf("policy.requiredAmount must be greater than 0")
	}

	if p.RecipientAddress == "" {
		return fmt.Errorf("policy.recipientAddress is required")
	}

	if p.MaxLookupAttempts <= 0 {
		return fmt.Errorf("policy.maxLookupAttempts must be greater than 0")
	}

	return nil
}

// BackoffFor returns the delay to observe before retry attempt i
// (zero-based, counted from the first retry).
func (p *PaymentPolicy) BackoffFor(i int) time.Duration {
	if len(p.RetryBackoff) == 0 {
		return 0
	}
	if i >= len(p.RetryBackoff) {
		i = len(p.RetryBackoff) - 1
	}
	return p.RetryBackoff[i]
}

// TransferInstruction is one instruction of a ledger transaction with its
// participant indices into the transaction's account list.
type TransferInstruction struct {
	ProgramID      string
	SenderIndex    uint16
	RecipientIndex uint16
}

// LedgerTransactionRecord is the parsed shape of a remote ledger response.
// It is constructed per lookup and never persisted.
//
// AccountKeys, PreBalances and PostBalances are index-aligned: balances at
// index i belong to the account at index i.
type LedgerTransactionRecord struct {
	Found     bool
	Succeeded bool
	Finality  FinalityLevel
	Slot      uint64
	BlockTime time.Time

	AccountKeys  []string
	PreBalances  []uint64
	PostBalances []uint64
	Transfers    []TransferInstruction
}

// RedemptionRecord is one row of the append-only redemption ledger.
type RedemptionRecord struct {
	Reference  string
	RedeemedAt time.Time
}
