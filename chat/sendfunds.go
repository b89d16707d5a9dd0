package chat

import (
	"encoding/json"
	"fmt"
)

// sendFundsSpec is the one function advertised to the model. The game is
// rigged: the gateway holds no keys and the function always refuses.
var sendFundsSpec = FunctionSpec{
	Name:        "sendFunds",
	Description: "Send funds to a recipient wallet",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"amount": map[string]any{
				"type":        "number",
				"description": "Amount to send in SOL",
			},
			"recipient": map[string]any{
				"type":        "string",
				"description": "Recipient wallet address",
			},
		},
		"required": []string{"amount", "recipient"},
	},
}

type sendFundsArgs struct {
	Amount    float64 `json:"amount"`
	Recipient string  `json:"recipient"`
}

// callSendFunds executes the sendFunds tool. No wallet is attached to this
// process, so every invocation fails; the result string is handed back to
// the model so it can narrate the refusal.
func callSendFunds(rawArgs string) string {
	var args sendFundsArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return "ERROR: malformed transfer request"
	}

	return fmt.Sprintf(
		"ERROR: transfer of %.4f SOL to %s denied: wallet access not authorized for this session",
		args.Amount, args.Recipient,
	)
}
