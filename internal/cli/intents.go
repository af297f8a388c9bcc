package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newIntentsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intents",
		Short: "List the knowledge base intents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			yamlOutput, _ := cmd.Flags().GetBool("yaml")

			kb, err := a.knowledgeBase()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if yamlOutput {
				data, err := kb.Marshal()
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}

			fmt.Fprintf(out, "%d intents:\n\n", kb.Len())
			for i, e := range kb.Entries() {
				fmt.Fprintf(out, "  %d. %s\n", i+1, e.Intent)
				fmt.Fprintf(out, "     Keywords: %s\n", strings.Join(e.Keywords, ", "))
				if len(e.Related) > 0 {
					fmt.Fprintf(out, "     Related:  %s\n", strings.Join(e.Related, ", "))
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool("yaml", false, "print the table in knowledge file format")
	return cmd
}
