// Package certstore scans an ACME client's results directory and assembles
// the certificate records published as the acme_certs fact. It reads the
// directory and nothing else: no state survives between scans.
package certstore

import (
	"crypto/x509"
	"fmt"
	"maps"
	"slices"
)

// DefaultDir is where acme.sh deploys issued certificates.
const DefaultDir = "/etc/acme.sh/results/"

const (
	certExt  = ".pem"
	chainExt = ".ca"
)

// Record is one certificate set discovered in the results directory.
type Record struct {
	Identifier  string            `json:"-" yaml:"-"`
	Certificate string            `json:"crt" yaml:"crt"`
	Chain       string            `json:"ca" yaml:"ca"`
	CommonName  string            `json:"cn" yaml:"cn"`
	Parsed      *x509.Certificate `json:"-" yaml:"-"`
}

// ResultSet maps certificate identifiers to their records.
type ResultSet map[string]Record

// Identifiers returns the identifiers in sorted order.
func (rs ResultSet) Identifiers() []string {
	return slices.Sorted(maps.Keys(rs))
}

// MissingCNPolicy decides what happens to a certificate whose subject has no
// Common Name.
type MissingCNPolicy string

const (
	// MissingCNError fails the whole scan.
	MissingCNError MissingCNPolicy = "error"
	// MissingCNEmpty keeps the record with an empty common name.
	MissingCNEmpty MissingCNPolicy = "empty"
	// MissingCNSkip leaves the record out of the result set.
	MissingCNSkip MissingCNPolicy = "skip"
)

// ParseMissingCNPolicy validates a policy name. The empty string selects
// MissingCNError.
func ParseMissingCNPolicy(s string) (MissingCNPolicy, error) {
	switch p := MissingCNPolicy(s); p {
	case "":
		return MissingCNError, nil
	case MissingCNError, MissingCNEmpty, MissingCNSkip:
		return p, nil
	default:
		return "", fmt.Errorf("unknown missing-cn policy %q (use error, empty or skip)", s)
	}
}
