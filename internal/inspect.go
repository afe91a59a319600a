package internal

import (
	"crypto/x509"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sensiblebit/acmefacts"
	"github.com/sensiblebit/acmefacts/internal/certstore"
)

// InspectResult holds the inspection details for one record.
type InspectResult struct {
	Identifier string          `json:"identifier"`
	CommonName string          `json:"cn"`
	Subject    string          `json:"subject"`
	Issuer     string          `json:"issuer"`
	Serial     string          `json:"serial"`
	NotBefore  string          `json:"not_before"`
	NotAfter   string          `json:"not_after"`
	CertType   string          `json:"cert_type"`
	KeyAlgo    string          `json:"key_algorithm"`
	KeySize    string          `json:"key_size"`
	SANs       []string        `json:"sans,omitempty"`
	SHA256     string          `json:"sha256_fingerprint"`
	SHA1       string          `json:"sha1_fingerprint"`
	SKI        string          `json:"subject_key_id,omitempty"`
	AKI        string          `json:"authority_key_id,omitempty"`
	SigAlg     string          `json:"signature_algorithm"`
	Chain      []string        `json:"chain,omitempty"`
	SCTs       []acmefacts.SCT `json:"scts,omitempty"`
}

// InspectRecord returns the details of one scanned record. The chain text is
// decoded so its subjects can be listed; an undecodable chain is an error.
func InspectRecord(rec certstore.Record) (*InspectResult, error) {
	cert := rec.Parsed
	if cert == nil {
		parsed, err := acmefacts.ParseCertificate([]byte(rec.Certificate))
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", rec.Identifier, err)
		}
		cert = parsed
	}

	chain, err := acmefacts.ParseChain([]byte(rec.Chain))
	if err != nil {
		return nil, fmt.Errorf("parsing chain of %s: %w", rec.Identifier, err)
	}

	r := inspectCert(cert)
	r.Identifier = rec.Identifier
	r.CommonName = rec.CommonName
	for _, c := range chain {
		r.Chain = append(r.Chain, c.Subject.String())
	}

	scts, err := acmefacts.EmbeddedSCTs(cert)
	if err != nil {
		slog.Warn("decoding embedded SCTs", "identifier", rec.Identifier, "error", err)
	}
	r.SCTs = scts
	return r, nil
}

func inspectCert(cert *x509.Certificate) *InspectResult {
	return &InspectResult{
		Subject:   cert.Subject.String(),
		Issuer:    cert.Issuer.String(),
		Serial:    cert.SerialNumber.String(),
		NotBefore: cert.NotBefore.UTC().Format(time.RFC3339),
		NotAfter:  cert.NotAfter.UTC().Format(time.RFC3339),
		CertType:  acmefacts.GetCertificateType(cert),
		KeyAlgo:   acmefacts.PublicKeyAlgorithmName(cert.PublicKey),
		KeySize:   acmefacts.PublicKeySize(cert.PublicKey),
		SANs:      acmefacts.CertSANs(cert),
		SHA256:    acmefacts.CertFingerprintColonSHA256(cert),
		SHA1:      acmefacts.CertFingerprintColonSHA1(cert),
		SKI:       acmefacts.CertSKIEmbedded(cert),
		AKI:       acmefacts.CertAKIEmbedded(cert),
		SigAlg:    cert.SignatureAlgorithm.String(),
	}
}

// FormatInspectResult formats an inspection result as text or JSON.
func FormatInspectResult(r *InspectResult, format string) (string, error) {
	switch format {
	case "text":
		return formatInspectText(r), nil
	case "json":
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshaling JSON: %w", err)
		}
		return string(data) + "\n", nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use text or json)", format)
	}
}

func formatInspectText(r *InspectResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Certificate %s:\n", r.Identifier)
	fmt.Fprintf(&sb, "  CN:          %s\n", r.CommonName)
	fmt.Fprintf(&sb, "  Subject:     %s\n", r.Subject)
	if len(r.SANs) > 0 {
		fmt.Fprintf(&sb, "  SANs:        %s\n", strings.Join(r.SANs, ", "))
	}
	fmt.Fprintf(&sb, "  Issuer:      %s\n", r.Issuer)
	fmt.Fprintf(&sb, "  Serial:      %s\n", r.Serial)
	fmt.Fprintf(&sb, "  Type:        %s\n", r.CertType)
	fmt.Fprintf(&sb, "  Not Before:  %s\n", r.NotBefore)
	fmt.Fprintf(&sb, "  Not After:   %s\n", r.NotAfter)
	fmt.Fprintf(&sb, "  Key:         %s %s\n", r.KeyAlgo, r.KeySize)
	fmt.Fprintf(&sb, "  Signature:   %s\n", r.SigAlg)
	fmt.Fprintf(&sb, "  SHA-256:     %s\n", r.SHA256)
	fmt.Fprintf(&sb, "  SHA-1:       %s\n", r.SHA1)
	if r.SKI != "" {
		fmt.Fprintf(&sb, "  SKI:         %s\n", r.SKI)
	}
	if r.AKI != "" {
		fmt.Fprintf(&sb, "  AKI:         %s\n", r.AKI)
	}
	if len(r.Chain) > 0 {
		fmt.Fprintf(&sb, "  Chain:       %d certificate(s)\n", len(r.Chain))
		for i, subject := range r.Chain {
			fmt.Fprintf(&sb, "    %d: %s\n", i+1, subject)
		}
	}
	for _, sct := range r.SCTs {
		fmt.Fprintf(&sb, "  SCT:         %s at %s\n", sct.LogID, sct.Timestamp.Format(time.RFC3339))
	}
	return sb.String()
}
