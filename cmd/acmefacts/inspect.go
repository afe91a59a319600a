package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/acmefacts/internal"
)

var inspectFormat string

var inspectCmd = &cobra.Command{
	Use:   "inspect <identifier>",
	Short: "Display details of one certificate",
	Long:  "Show detailed information about the certificate <identifier>.pem and its chain, including embedded SCTs.",
	Example: `  acmefacts inspect example.com
  acmefacts inspect example.com --format json`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: identifierCompletion,
	RunE:              runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "text", "Output format: text or json")

	registerCompletion(inspectCmd, completionInput{"format", fixedCompletion("text", "json")})
}

func runInspect(cmd *cobra.Command, args []string) error {
	rs, err := scan(cmd.Context())
	if err != nil {
		return err
	}
	rec, ok := rs[args[0]]
	if !ok {
		return fmt.Errorf("no certificate %q in %s", args[0], cfg.Directory)
	}

	result, err := internal.InspectRecord(rec)
	if err != nil {
		return err
	}

	output, err := internal.FormatInspectResult(result, inspectFormat)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), output)
	return err
}
