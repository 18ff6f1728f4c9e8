package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ragfence/ragfence/internal/gate"
)

func init() {
	cmd := &cobra.Command{
		Use:   "check [query]",
		Short: "Validate a single query offline",
		Long:  "Runs one query through the gate without starting the server. Prints the outcome as JSON and exits non-zero when the query is rejected.",
		Args:  cobra.ExactArgs(1),
		Run:   runCheck,
	}

	RootCmd.AddCommand(cmd)
}

type checkResult struct {
	Accepted  bool    `json:"accepted"`
	Reason    string  `json:"reason,omitempty"`
	Category  string  `json:"category,omitempty"`
	RuleID    string  `json:"rule_id,omitempty"`
	Relevance float64 `json:"relevance"`
	Message   string  `json:"message,omitempty"`
	Sanitized string  `json:"sanitized"`
}

func runCheck(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}

	validator, err := gate.NewValidator(cfg.Gate)
	if err != nil {
		exitErr("build validator", err)
	}

	outcome := validator.Validate(args[0])
	res := checkResult{
		Accepted:  outcome.Accepted,
		Reason:    string(outcome.Reason),
		Category:  string(outcome.Category),
		RuleID:    outcome.RuleID,
		Relevance: outcome.Relevance,
		Message:   outcome.Message,
		Sanitized: validator.Sanitize(args[0]),
	}

	b, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(b))

	if !outcome.Accepted {
		os.Exit(2)
	}
}
