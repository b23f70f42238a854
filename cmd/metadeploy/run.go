package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrhapile/metadeploy/internal/pipeline"
)

var (
	runSummary     string
	runDescription string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process a single change request",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline(cmd)
		if err != nil {
			return err
		}

		out, err := p.Run(cmd.Context(), pipeline.Request{Summary: runSummary, Description: runDescription})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "run %s: %s\n", out.RunID, out.Location)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runSummary, "summary", "s", "", "change request summary")
	runCmd.Flags().StringVarP(&runDescription, "description", "d", "", "change request description")
}
