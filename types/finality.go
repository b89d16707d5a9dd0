package types

import "fmt"

// FinalityLevel is the degree of irreversibility a ledger assigns to a
// transaction, ordered from least to most durable.
type FinalityLevel int

const (
	FinalityPending FinalityLevel = iota
	FinalityConfirmed
	FinalityFinalized
)

// AtLeast reports whether f is at the same or a more durable level than min.
func (f FinalityLevel) AtLeast(min FinalityLevel) bool {
	return f >= min
}

func (f FinalityLevel) String() string {
	switch f {
	case FinalityPending:
		return "pending"
	case FinalityConfirmed:
		return "confirmed"
	case FinalityFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("finality(%d)", int(f))
	}
}

// ParseFinality maps a config string to a FinalityLevel.
func ParseFinality(s string) (FinalityLevel, error) {
	switch s {
	case "pending", "processed":
		return FinalityPending, nil
	case "confirmed":
		return FinalityConfirmed, nil
	case "finalized":
		return FinalityFinalized, nil
	default:
		return 0, fmt.Errorf("unknown finality level: %q", s)
	}
}
