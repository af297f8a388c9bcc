package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [question...]",
		Short: "Answer a single question and exit",
		Long:  `Classifies the question against the knowledge base and prints the reply immediately, without the simulated reply delay.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOutput, _ := cmd.Flags().GetBool("json")

			eng, _, err := a.engine()
			if err != nil {
				return err
			}

			res := eng.Classify(strings.Join(args, " "))
			a.logger.Debug("Question classified", "intent", res.Intent, "score", res.Score, "fallback", res.Fallback)

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				return enc.Encode(res)
			}

			fmt.Fprintln(cmd.OutOrStdout(), res.Response)
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "output the match result as JSON")
	return cmd
}
