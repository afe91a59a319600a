package main

import (
	"crypto/x509"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/acmefacts/internal"
)

var (
	verifyTrustStore  string
	verifyCustomRoots string
	verifyExpiry      string
	verifyFormat      string
)

var verifyCmd = &cobra.Command{
	Use:   "verify [identifier...]",
	Short: "Verify certificate chains and expiry",
	Long:  "Verify each certificate against its chain file and a trust store, and optionally check that it does not expire within a given duration. Exits non-zero when any certificate fails.",
	Example: `  acmefacts verify
  acmefacts verify example.com --expiry 30d
  acmefacts verify --trust-store custom --custom-roots /etc/ssl/private-ca.pem`,
	ValidArgsFunction: identifierCompletion,
	RunE:              runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyTrustStore, "trust-store", "mozilla", "Trust store for chain validation: mozilla, system, custom")
	verifyCmd.Flags().StringVar(&verifyCustomRoots, "custom-roots", "", "PEM file of roots for --trust-store custom")
	verifyCmd.Flags().StringVarP(&verifyExpiry, "expiry", "e", "", "Fail if a cert expires within duration (e.g., 30d, 720h)")
	verifyCmd.Flags().StringVar(&verifyFormat, "format", "text", "Output format: text or json")

	registerCompletion(verifyCmd, completionInput{"trust-store", fixedCompletion("mozilla", "system", "custom")})
	registerCompletion(verifyCmd, completionInput{"custom-roots", fileCompletion})
	registerCompletion(verifyCmd, completionInput{"format", fixedCompletion("text", "json")})
}

func runVerify(cmd *cobra.Command, args []string) error {
	rs, err := scan(cmd.Context())
	if err != nil {
		return err
	}

	var customRoots []*x509.Certificate
	if cfg.TrustStore == "custom" {
		customRoots, err = internal.LoadCustomRoots(cfg.CustomRoots)
		if err != nil {
			return err
		}
	}

	ids := args
	if len(ids) == 0 {
		ids = rs.Identifiers()
	}

	// expiry_window from the config file only drives list; verify checks
	// expiry when --expiry is given
	var window time.Duration
	if cmd.Flags().Changed("expiry") {
		window = cfg.Expiry()
	}

	var results []*internal.VerifyResult
	failed := 0
	for _, id := range ids {
		rec, ok := rs[id]
		if !ok {
			return fmt.Errorf("no certificate %q in %s", id, cfg.Directory)
		}
		result, err := internal.VerifyRecord(internal.VerifyInput{
			Record:         rec,
			TrustStore:     cfg.TrustStore,
			CustomRoots:    customRoots,
			ExpiryDuration: window,
		})
		if err != nil {
			return err
		}
		if !result.OK() {
			failed++
		}
		results = append(results, result)
	}

	switch verifyFormat {
	case "json":
		if results == nil {
			results = []*internal.VerifyResult{}
		}
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	case "text":
		var texts []string
		for _, r := range results {
			texts = append(texts, internal.FormatVerifyResult(r))
		}
		fmt.Fprint(cmd.OutOrStdout(), strings.Join(texts, "\n"))
	default:
		return fmt.Errorf("unsupported output format %q (use text or json)", verifyFormat)
	}

	if failed > 0 {
		return fmt.Errorf("verification failed for %d of %d certificate(s)", failed, len(results))
	}
	return nil
}
