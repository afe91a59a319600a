package certstore

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"strings"
)

// GetKeyType returns a human-readable description of the certificate's public
// key type, including bit length for RSA and curve name for ECDSA.
func GetKeyType(cert *x509.Certificate) string {
	switch pub := cert.PublicKey.(type) {
	case *rsa.PublicKey:
		return fmt.Sprintf("RSA %d bits", pub.N.BitLen())
	case *ecdsa.PublicKey:
		return fmt.Sprintf("ECDSA %s", pub.Curve.Params().Name)
	case ed25519.PublicKey:
		return "Ed25519"
	default:
		return fmt.Sprintf("unknown key type: %T", pub)
	}
}

// DisplayName returns the record's common name for display. Falls back to the
// first DNS SAN, then to "serial:<decimal>" when neither is present.
func DisplayName(rec Record) string {
	if rec.CommonName != "" {
		return rec.CommonName
	}
	if rec.Parsed == nil {
		return ""
	}
	if len(rec.Parsed.DNSNames) > 0 {
		return rec.Parsed.DNSNames[0]
	}
	return fmt.Sprintf("serial:%s", rec.Parsed.SerialNumber.String())
}

// SanitizeFileName replaces wildcards and path separators so an identifier
// or common name can be used as a file name.
func SanitizeFileName(name string) string {
	return strings.NewReplacer("*", "_", "/", "_", "\\", "_").Replace(name)
}
