package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/acmefacts/internal/certstore"
)

// completionInput holds the parameters for registering a shell completion
// function on a command flag.
type completionInput struct {
	flagName     string
	completeFunc func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective)
}

// registerCompletion registers a shell completion function for a flag on a
// command. It panics if the flag does not exist (programmer error).
func registerCompletion(cmd *cobra.Command, in completionInput) {
	if err := cmd.RegisterFlagCompletionFunc(in.flagName, in.completeFunc); err != nil {
		panic(fmt.Sprintf("%s --%s: %v", cmd.Name(), in.flagName, err))
	}
}

// fixedCompletion returns a shell completion function that suggests the given
// values with no file completion fallback.
func fixedCompletion(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

// directoryCompletion is a shell completion function that suggests only
// directories (no regular files).
func directoryCompletion(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return nil, cobra.ShellCompDirectiveFilterDirs
}

// fileCompletion is a shell completion function that suggests files using the
// shell's default file completion behavior.
func fileCompletion(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return nil, cobra.ShellCompDirectiveDefault
}

// identifierCompletion suggests the certificate identifiers found in the
// results directory. Scan errors yield no suggestions.
func identifierCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	dir := cfg.Directory
	if f := cmd.Flags().Lookup("dir"); f != nil && f.Changed {
		dir = f.Value.String()
	}
	rs, err := certstore.NewScanner(dir, certstore.WithMissingCN(certstore.MissingCNEmpty)).Scan(cmd.Context())
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var out []string
	for _, id := range rs.Identifiers() {
		if strings.HasPrefix(id, toComplete) {
			out = append(out, id)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
