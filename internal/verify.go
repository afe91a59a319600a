package internal

import (
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sensiblebit/acmefacts"
	"github.com/sensiblebit/acmefacts/internal/certstore"
)

// VerifyInput holds one record and the verification options.
type VerifyInput struct {
	Record         certstore.Record
	TrustStore     string
	CustomRoots    []*x509.Certificate
	ExpiryDuration time.Duration
	Now            time.Time // zero means time.Now()
}

// ChainCert holds display information for one certificate in the chain.
type ChainCert struct {
	Subject string `json:"subject"`
	Expiry  string `json:"expiry"`
	SKI     string `json:"ski,omitempty"`
	IsRoot  bool   `json:"is_root,omitempty"`
}

// VerifyResult holds the results of certificate verification checks.
type VerifyResult struct {
	Identifier string      `json:"identifier"`
	Subject    string      `json:"subject"`
	SANs       []string    `json:"sans,omitempty"`
	NotAfter   string      `json:"not_after"`
	DaysLeft   int         `json:"days_left"`
	ChainValid bool        `json:"chain_valid"`
	ChainErr   string      `json:"chain_error,omitempty"`
	Chain      []ChainCert `json:"chain,omitempty"`
	Expiry     *bool       `json:"expires_within,omitempty"`
	ExpiryInfo string      `json:"expiry_info,omitempty"`
	Warnings   []string    `json:"warnings,omitempty"`
	Errors     []string    `json:"errors,omitempty"`
}

// OK reports whether every check passed.
func (r *VerifyResult) OK() bool {
	return len(r.Errors) == 0
}

// VerifyRecord verifies a record's leaf against its chain file and the trust
// store, and checks it against the expiry window when one is set.
func VerifyRecord(input VerifyInput) (*VerifyResult, error) {
	rec := input.Record
	cert := rec.Parsed
	if cert == nil {
		parsed, err := acmefacts.ParseCertificate([]byte(rec.Certificate))
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", rec.Identifier, err)
		}
		cert = parsed
	}
	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}

	result := &VerifyResult{
		Identifier: rec.Identifier,
		Subject:    cert.Subject.String(),
		SANs:       cert.DNSNames,
		NotAfter:   cert.NotAfter.UTC().Format(time.RFC3339),
		DaysLeft:   daysUntil(cert.NotAfter, now),
	}

	// Chain validation
	intermediates, err := acmefacts.ParseChain([]byte(rec.Chain))
	if err != nil {
		result.ChainErr = fmt.Sprintf("parsing chain file: %v", err)
		result.Errors = append(result.Errors, result.ChainErr)
	} else {
		chain, err := acmefacts.VerifyChain(cert, acmefacts.VerifyOptions{
			Intermediates: intermediates,
			TrustStore:    input.TrustStore,
			CustomRoots:   input.CustomRoots,
			CurrentTime:   now,
		})
		if err != nil {
			result.ChainErr = err.Error()
			result.Errors = append(result.Errors, fmt.Sprintf("chain validation: %s", err.Error()))
		} else {
			result.ChainValid = true
			result.Chain = buildChainDisplay(chain)
			result.Warnings = chain.Warnings
		}
	}

	// Expiry check
	if input.ExpiryDuration > 0 {
		expires := now.Add(input.ExpiryDuration).After(cert.NotAfter)
		result.Expiry = &expires
		if expires {
			result.ExpiryInfo = fmt.Sprintf("certificate expires within %s (not after: %s)", input.ExpiryDuration, result.NotAfter)
			result.Errors = append(result.Errors, result.ExpiryInfo)
		} else {
			result.ExpiryInfo = fmt.Sprintf("certificate does not expire within %s", input.ExpiryDuration)
		}
	}

	return result, nil
}

// buildChainDisplay creates the display chain from a verified chain.
func buildChainDisplay(chain *acmefacts.ChainResult) []ChainCert {
	var out []ChainCert
	out = append(out, ChainCert{
		Subject: chain.Leaf.Subject.String(),
		Expiry:  chain.Leaf.NotAfter.UTC().Format("2006-01-02"),
		SKI:     acmefacts.CertSKIEmbedded(chain.Leaf),
	})
	for _, c := range chain.Intermediates {
		out = append(out, ChainCert{
			Subject: c.Subject.String(),
			Expiry:  c.NotAfter.UTC().Format("2006-01-02"),
			SKI:     acmefacts.CertSKIEmbedded(c),
		})
	}
	for _, c := range chain.Roots {
		out = append(out, ChainCert{
			Subject: c.Subject.String(),
			Expiry:  c.NotAfter.UTC().Format("2006-01-02"),
			SKI:     acmefacts.CertSKIEmbedded(c),
			IsRoot:  true,
		})
	}
	return out
}

// LoadCustomRoots reads PEM root certificates for the custom trust store.
func LoadCustomRoots(path string) ([]*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading custom roots %s: %w", path, err)
	}
	roots, err := acmefacts.ParsePEMCertificates(data)
	if err != nil {
		return nil, fmt.Errorf("parsing custom roots %s: %w", path, err)
	}
	return roots, nil
}

// FormatVerifyResult formats a verify result as human-readable text.
func FormatVerifyResult(r *VerifyResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Certificate: %s (%s)\n", r.Identifier, r.Subject)

	if len(r.SANs) > 0 {
		fmt.Fprintf(&sb, "       SANs: %s\n", strings.Join(r.SANs, ", "))
	}
	fmt.Fprintf(&sb, "  Not After: %s (%d days)\n", r.NotAfter, r.DaysLeft)

	if r.ChainValid {
		sb.WriteString("      Chain: VALID\n")
	} else {
		fmt.Fprintf(&sb, "      Chain: INVALID (%s)\n", r.ChainErr)
	}

	if len(r.Chain) > 0 {
		sb.WriteString("\nChain:\n")
		for i, c := range r.Chain {
			tag := ""
			if c.IsRoot {
				tag = "  [root]"
			}
			fmt.Fprintf(&sb, "  %d: %s  (expires %s)%s\n", i, c.Subject, c.Expiry, tag)
			if c.SKI != "" {
				fmt.Fprintf(&sb, "     SKI: %s\n", c.SKI)
			}
		}
	}

	for _, w := range r.Warnings {
		fmt.Fprintf(&sb, "  Warning: %s\n", w)
	}

	if r.Expiry != nil {
		fmt.Fprintf(&sb, "\n  Expiry: %s\n", r.ExpiryInfo)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintf(&sb, "\nVerification FAILED (%d error(s))\n", len(r.Errors))
	} else {
		sb.WriteString("\nVerification OK\n")
	}

	return sb.String()
}
