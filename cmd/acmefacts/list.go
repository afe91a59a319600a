package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/sensiblebit/acmefacts/internal"
)

var (
	listFormat string
	listExpiry string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered certificates with their expiry",
	Long:  "List every certificate in the results directory with its CN, expiry and status. Prints a table on a terminal and JSON otherwise.",
	Example: `  acmefacts list
  acmefacts list --expiry 14d --format json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listFormat, "format", "auto", "Output format: auto, text or json")
	listCmd.Flags().StringVarP(&listExpiry, "expiry", "e", "", "Window for the expiring status (e.g., 30d, 720h)")

	registerCompletion(listCmd, completionInput{"format", fixedCompletion("auto", "text", "json")})
}

// resolveListFormat maps "auto" to text on a terminal and JSON otherwise.
func resolveListFormat(format string, fd uintptr) string {
	if format != "auto" {
		return format
	}
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return "text"
	}
	return "json"
}

func runList(cmd *cobra.Command, _ []string) error {
	rs, err := scan(cmd.Context())
	if err != nil {
		return err
	}

	result := internal.BuildList(internal.BuildListInput{
		Results:      rs,
		ExpiryWindow: cfg.Expiry(),
	})
	output, err := internal.FormatList(result, resolveListFormat(listFormat, os.Stdout.Fd()))
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), output)
	return err
}
