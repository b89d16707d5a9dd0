package chat

import (
	"context"
	"regexp"
	"strings"
)

// BlockedMessage is returned to the caller when moderation rejects the
// input.
const BlockedMessage = "I apologize, but I cannot process this request due to security restrictions."

// Moderator screens user input before it reaches the upstream model. The
// real guardrail service lives outside this module; anything satisfying
// this contract can be plugged in.
type Moderator interface {
	// Review returns false with a reason when input must not be
	// forwarded.
	Review(ctx context.Context, input string) (bool, string, error)
}

// NoopModerator allows everything.
type NoopModerator struct{}

func (NoopModerator) Review(context.Context, string) (bool, string, error) {
	return true, "", nil
}

// BlocklistModerator rejects input matching any of its patterns. A cheap
// stand-in for an external guardrail layer.
type BlocklistModerator struct {
	patterns []*regexp.Regexp
}

func NewBlocklistModerator(patterns []string) (*BlocklistModerator, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return &BlocklistModerator{patterns: compiled}, nil
}

func (m *BlocklistModerator) Review(_ context.Context, input string) (bool, string, error) {
	trimmed := strings.TrimSpace(input)
	for _, re := range m.patterns {
		if re.MatchString(trimmed) {
			return false, "blocked_pattern:" + re.String(), nil
		}
	}
	return true, "", nil
}

// LastUserMessage extracts the most recent user turn, which is what gets
// moderated.
func LastUserMessage(messages []Message) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content, true
		}
	}
	return "", false
}
