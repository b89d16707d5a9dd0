package types

// OutcomeCode classifies the result of a verification.
type OutcomeCode string

const (
	OutcomeAccepted        OutcomeCode = "accepted"
	OutcomeAlreadyRedeemed OutcomeCode = "already_redeemed"
	OutcomeNotFound        OutcomeCode = "not_found"
	OutcomePolicyMismatch  OutcomeCode = "policy_mismatch"
	OutcomeTransientError  OutcomeCode = "transient_error"
)

// Rejection reasons surfaced to callers. Every category is distinguishable
// so a replay attempt and a transient failure never read the same.
const (
	ReasonTxNotFound                = "tx_not_found_after_retries"
	ReasonTxExecutionFailed         = "tx_execution_failed"
	ReasonInsufficientFinality      = "insufficient_finality"
	ReasonRecipientOrAmountMismatch = "recipient_or_amount_mismatch"
	ReasonAlreadyRedeemed           = "transaction_already_redeemed"
	ReasonLedgerUnavailable         = "ledger_lookup_failed"
	ReasonStoreUnavailable          = "redemption_store_unavailable"
	ReasonEmptyReference            = "empty_transaction_reference"
)

// VerificationOutcome is the orchestrator's return value. Only Accepted
// authorizes the request; every other code is a rejection, and only
// TransientError may be retried with the same reference.
type VerificationOutcome struct {
	Code   OutcomeCode `json:"code"`
	Reason string      `json:"reason,omitempty"`

	// Payment details, populated on acceptance.
	AmountSent uint64 `json:"amountSent,omitempty"`
	Sender     string `json:"sender,omitempty"`
	Recipient  string `json:"recipient,omitempty"`
}

// Authorized reports whether the outcome grants access.
func (o VerificationOutcome) Authorized() bool {
	return o.Code == OutcomeAccepted
}

// Retryable reports whether the same reference may be presented again.
func (o VerificationOutcome) Retryable() bool {
	return o.Code == OutcomeTransientError
}

func Accepted(amount uint64, sender, recipient string) VerificationOutcome {
	return VerificationOutcome{
		Code:       OutcomeAccepted,
		AmountSent: amount,
		Sender:     sender,
		Recipient:  recipient,
	}
}

func RejectedAlreadyRedeemed() VerificationOutcome {
	return VerificationOutcome{Code: OutcomeAlreadyRedeemed, Reason: ReasonAlreadyRedeemed}
}

func RejectedNotFound() VerificationOutcome {
	return VerificationOutcome{Code: OutcomeNotFound, Reason: ReasonTxNotFound}
}

func RejectedPolicyMismatch(reason string) VerificationOutcome {
	return VerificationOutcome{Code: OutcomePolicyMismatch, Reason: reason}
}

func RejectedTransient(reason string) VerificationOutcome {
	return VerificationOutcome{Code: OutcomeTransientError, Reason: reason}
}
