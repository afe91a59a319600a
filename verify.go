package acmefacts

import (
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/breml/rootcerts/embedded"
)

// ChainResult holds a verified chain and the non-fatal findings about it.
type ChainResult struct {
	// Leaf is the end-entity certificate.
	Leaf *x509.Certificate
	// Intermediates are the CA certificates between the leaf and root.
	Intermediates []*x509.Certificate
	// Roots are the trust anchor certificates (typically one).
	Roots []*x509.Certificate
	// Warnings are non-fatal issues found during verification.
	Warnings []string
}

// VerifyOptions configures chain verification.
type VerifyOptions struct {
	// Intermediates are the chain certificates delivered next to the leaf.
	Intermediates []*x509.Certificate
	// TrustStore selects the root pool: "mozilla", "system", or "custom".
	TrustStore string
	// CustomRoots are used when TrustStore is "custom".
	CustomRoots []*x509.Certificate
	// CurrentTime overrides the verification time. Zero means now.
	CurrentTime time.Time
}

// RootPool builds the root certificate pool for a trust store name.
func RootPool(trustStore string, customRoots []*x509.Certificate) (*x509.CertPool, error) {
	switch trustStore {
	case "mozilla", "":
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(embedded.MozillaCACertificatesPEM())) {
			return nil, errors.New("parsing embedded Mozilla root certificates")
		}
		return pool, nil
	case "system":
		pool, err := x509.SystemCertPool()
		if err != nil {
			return nil, fmt.Errorf("loading system cert pool: %w", err)
		}
		return pool, nil
	case "custom":
		if len(customRoots) == 0 {
			return nil, errors.New("custom trust store has no root certificates")
		}
		pool := x509.NewCertPool()
		for _, cert := range customRoots {
			pool.AddCert(cert)
		}
		return pool, nil
	default:
		return nil, fmt.Errorf("unknown trust store %q", trustStore)
	}
}

// VerifyChain verifies leaf against the configured trust store, using the
// delivered chain certificates as intermediates. Roots that appear in the
// delivered chain are treated as intermediates, never as trust anchors.
func VerifyChain(leaf *x509.Certificate, opts VerifyOptions) (*ChainResult, error) {
	roots, err := RootPool(opts.TrustStore, opts.CustomRoots)
	if err != nil {
		return nil, err
	}

	intermediates := x509.NewCertPool()
	for _, cert := range opts.Intermediates {
		intermediates.AddCert(cert)
	}

	chains, err := leaf.Verify(x509.VerifyOptions{
		Intermediates: intermediates,
		Roots:         roots,
		CurrentTime:   opts.CurrentTime,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return nil, fmt.Errorf("chain verification failed: %w", err)
	}

	// Pick shortest valid chain
	best := chains[0]
	for _, chain := range chains[1:] {
		if len(chain) < len(best) {
			best = chain
		}
	}

	result := &ChainResult{Leaf: leaf}
	if len(best) > 2 {
		result.Intermediates = best[1 : len(best)-1]
	}
	if len(best) > 1 {
		result.Roots = []*x509.Certificate{best[len(best)-1]}
	}

	full := append([]*x509.Certificate{leaf}, result.Intermediates...)
	full = append(full, result.Roots...)
	result.Warnings = append(result.Warnings, checkSHA1Signatures(full)...)
	result.Warnings = append(result.Warnings, checkExpiryWarnings(full, opts.CurrentTime)...)
	return result, nil
}

// checkSHA1Signatures returns a warning for each cert signed with SHA-1.
func checkSHA1Signatures(chain []*x509.Certificate) []string {
	var warnings []string
	for _, cert := range chain {
		switch cert.SignatureAlgorithm {
		case x509.SHA1WithRSA, x509.ECDSAWithSHA1:
			warnings = append(warnings, fmt.Sprintf("certificate %q uses deprecated SHA-1 signature algorithm (%s)", cert.Subject.CommonName, cert.SignatureAlgorithm))
		}
	}
	return warnings
}

// checkExpiryWarnings flags certificates that expire within 30 days of now.
func checkExpiryWarnings(chain []*x509.Certificate, now time.Time) []string {
	if now.IsZero() {
		now = time.Now()
	}
	var warnings []string
	soon := now.Add(30 * 24 * time.Hour)
	for _, cert := range chain {
		if soon.After(cert.NotAfter) {
			warnings = append(warnings, fmt.Sprintf("certificate %q expires within 30 days (not after: %s)", cert.Subject.CommonName, cert.NotAfter.UTC().Format("2006-01-02")))
		}
	}
	return warnings
}
