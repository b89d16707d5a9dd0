// Package policy evaluates a parsed ledger transaction record against a
// payment policy. Evaluation is pure: no I/O, deterministic, and it never
// fails. It only accepts or rejects with a reason.
package policy

import (
	"github.com/solgate/solgate/types"
)

// Decision is the result of evaluating one record against one policy.
type Decision struct {
	OK     bool
	Reason string

	// Populated on acceptance: the qualifying transfer's details.
	AmountSent uint64
	Sender     string
	Recipient  string
}

func accept(amount uint64, sender, recipient string) Decision {
	return Decision{OK: true, AmountSent: amount, Sender: sender, Recipient: recipient}
}

func reject(reason string) Decision {
	return Decision{OK: false, Reason: reason}
}

// Evaluate applies the policy checks in order, short-circuiting on the
// first failure:
//
//  1. the record was found and the ledger reports successful execution,
//  2. the record's finality is at least the required level,
//  3. some transfer instruction pays the required recipient, and the
//     sender of that instruction parted with at least the required amount.
//
// Every instruction is scanned, not just the first transfer-like one; a
// transaction may carry unrelated instructions ahead of the qualifying
// transfer.
func Evaluate(rec *types.LedgerTransactionRecord, pol *types.PaymentPolicy) Decision {
	if rec == nil || !rec.Found {
		return reject(types.ReasonTxNotFound)
	}

	if !rec.Succeeded {
		return reject(types.ReasonTxExecutionFailed)
	}

	if !rec.Finality.AtLeast(pol.RequiredFinality) {
		return reject(types.ReasonInsufficientFinality)
	}

	for _, tr := range rec.Transfers {
		ri, si := int(tr.RecipientIndex), int(tr.SenderIndex)
		if ri >= len(rec.AccountKeys) || si >= len(rec.PreBalances) || si >= len(rec.PostBalances) {
			continue
		}

		if rec.AccountKeys[ri] != pol.RecipientAddress {
			continue
		}

		amountSent := senderDelta(rec.PreBalances[si], rec.PostBalances[si])
		if amountSent >= pol.RequiredAmount {
			sender := ""
			if si < len(rec.AccountKeys) {
				sender = rec.AccountKeys[si]
			}
			return accept(amountSent, sender, rec.AccountKeys[ri])
		}
	}

	return reject(types.ReasonRecipientOrAmountMismatch)
}

// senderDelta is how much the sender's balance decreased. A sender whose
// balance grew sent nothing.
func senderDelta(pre, post uint64) uint64 {
	if post >= pre {
		return 0
	}
	return pre - post
}
