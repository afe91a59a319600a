package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/acmefacts/internal"
	"github.com/sensiblebit/acmefacts/internal/certstore"
)

var (
	exportOutDir   string
	exportPassword string
	exportPassFile string
	exportCBOM     bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export certificates as P7B bundles and truststores",
	Long: `Write, for every certificate, <id>.pem, <id>.chain.pem, <id>.p7b and <id>.json,
plus <id>.truststore.p12 and <id>.truststore.jks holding its chain. --cbom also
writes a CycloneDX cryptographic bill of materials to cbom.json.`,
	Example: `  acmefacts export --out ./export
  acmefacts export --out ./export --password s3cret --cbom`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutDir, "out", "o", "", "Output directory (required)")
	exportCmd.Flags().StringVar(&exportPassword, "password", certstore.DefaultTrustStorePassword, "Truststore password")
	exportCmd.Flags().StringVar(&exportPassFile, "password-file", "", "File whose first line is the truststore password")
	exportCmd.Flags().BoolVar(&exportCBOM, "cbom", false, "Also write a CycloneDX CBOM")
	if err := exportCmd.MarkFlagRequired("out"); err != nil {
		panic(err)
	}

	registerCompletion(exportCmd, completionInput{"out", directoryCompletion})
	registerCompletion(exportCmd, completionInput{"password-file", fileCompletion})
}

func runExport(cmd *cobra.Command, _ []string) error {
	password, err := internal.TrustStorePassword(exportPassword, exportPassFile)
	if err != nil {
		return err
	}

	rs, err := scan(cmd.Context())
	if err != nil {
		return err
	}

	written, err := internal.ExportRecords(internal.ExportInput{
		Results:   rs,
		Directory: cfg.Directory,
		OutDir:    exportOutDir,
		Password:  password,
		CBOM:      exportCBOM,
	})
	if err != nil {
		return err
	}
	slog.Info("export complete", "records", len(rs), "files", len(written), "out", exportOutDir)
	for _, path := range written {
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}
