package certstore

import (
	"crypto/x509"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/sensiblebit/acmefacts"
)

// DefaultTrustStorePassword is the conventional Java truststore password.
const DefaultTrustStorePassword = "changeit"

// ExportFile represents a single output file of a record export.
type ExportFile struct {
	Name string
	Data []byte
}

// ExportInput holds parameters for GenerateExportFiles.
type ExportInput struct {
	Record   Record
	Chain    []*x509.Certificate // decoded chain file; may be empty
	Prefix   string              // sanitized file name prefix
	Password string              // truststore password; empty means DefaultTrustStorePassword
}

// GenerateExportFiles creates the output files for one record: the leaf PEM,
// leaf plus chain PEM, a certs-only PKCS#7 bundle and a JSON summary. When the
// chain is non-empty, its certificates also go into PKCS#12 and JKS
// truststores.
func GenerateExportFiles(input ExportInput) ([]ExportFile, error) {
	rec := input.Record
	leaf := rec.Parsed
	if leaf == nil {
		parsed, err := acmefacts.ParseCertificate([]byte(rec.Certificate))
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", rec.Identifier, err)
		}
		leaf = parsed
	}
	prefix := input.Prefix
	password := input.Password
	if password == "" {
		password = DefaultTrustStorePassword
	}

	leafPEM := []byte(acmefacts.CertToPEM(leaf))
	chainPEM := slices.Clone(leafPEM)
	for _, c := range input.Chain {
		chainPEM = append(chainPEM, []byte(acmefacts.CertToPEM(c))...)
	}

	p7b, err := acmefacts.EncodePKCS7(slices.Concat([]*x509.Certificate{leaf}, input.Chain))
	if err != nil {
		return nil, fmt.Errorf("creating P7B: %w", err)
	}

	jsonData, err := GenerateJSON(rec.Identifier, rec.CommonName, leaf, input.Chain)
	if err != nil {
		return nil, fmt.Errorf("generating JSON: %w", err)
	}

	files := []ExportFile{
		{Name: prefix + ".pem", Data: leafPEM},
		{Name: prefix + ".chain.pem", Data: chainPEM},
		{Name: prefix + ".p7b", Data: p7b},
		{Name: prefix + ".json", Data: jsonData},
	}

	if len(input.Chain) == 0 {
		slog.Debug("empty chain, skipping truststores", "identifier", rec.Identifier)
		return files, nil
	}

	p12, err := acmefacts.EncodePKCS12TrustStore(input.Chain, password)
	if err != nil {
		return nil, fmt.Errorf("creating P12 truststore: %w", err)
	}
	jks, err := acmefacts.EncodeJKSTrustStore(prefix, input.Chain, password)
	if err != nil {
		return nil, fmt.Errorf("creating JKS truststore: %w", err)
	}
	files = append(files,
		ExportFile{Name: prefix + ".truststore.p12", Data: p12},
		ExportFile{Name: prefix + ".truststore.jks", Data: jks},
	)
	return files, nil
}

// GenerateJSON creates a JSON summary of a record. The pem field holds the
// leaf and chain.
func GenerateJSON(identifier, cn string, leaf *x509.Certificate, chain []*x509.Certificate) ([]byte, error) {
	chainPEM := acmefacts.CertToPEM(leaf)
	for _, c := range chain {
		chainPEM += acmefacts.CertToPEM(c)
	}

	out := map[string]any{
		"identifier":       identifier,
		"cn":               cn,
		"authority_key_id": acmefacts.CertAKIEmbedded(leaf),
		"subject_key_id":   acmefacts.CertSKIEmbedded(leaf),
		"issuer":           leaf.Issuer.String(),
		"subject":          leaf.Subject.String(),
		"not_after":        leaf.NotAfter.UTC().Format(time.RFC3339),
		"not_before":       leaf.NotBefore.UTC().Format(time.RFC3339),
		"pem":              chainPEM,
		"sans":             acmefacts.CertSANs(leaf),
		"serial_number":    leaf.SerialNumber.String(),
		"sigalg":           leaf.SignatureAlgorithm.String(),
		"sha256":           acmefacts.CertFingerprint(leaf),
	}
	return json.MarshalIndent(out, "", "  ")
}
