// Package acmefacts provides the certificate parsing, identification and
// encoding helpers behind the acme_certs fact: strict leaf parsing, chain
// decoding, encoded-order Common Name lookup, fingerprints, chain
// verification and truststore encoders.
package acmefacts

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// ErrInvalidCertificate is matched by every error returned from
// ParseCertificate when the input does not decode as an X.509 certificate.
var ErrInvalidCertificate = errors.New("not a valid x509 certificate")

// ParsePEMCertificates parses all certificates from a PEM bundle. Blocks of
// any other type are skipped.
func ParsePEMCertificates(pemData []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	rest := pemData
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing certificate: %w", err)
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, errors.New("no certificates found in PEM data")
	}
	return certs, nil
}

// ParseCertificate parses the first certificate in data. PEM is tried first;
// input without any PEM block is parsed as DER. Every failure wraps both the
// underlying cause and ErrInvalidCertificate.
func ParseCertificate(data []byte) (*x509.Certificate, error) {
	if IsPEM(data) {
		block := firstCertificateBlock(data)
		if block == nil {
			return nil, fmt.Errorf("%w: no certificates found in PEM data", ErrInvalidCertificate)
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing certificate: %w", ErrInvalidCertificate, err)
		}
		return cert, nil
	}
	cert, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCertificate, err)
	}
	return cert, nil
}

// firstCertificateBlock returns the first CERTIFICATE block in data. Blocks
// after it are not decoded.
func firstCertificateBlock(data []byte) *pem.Block {
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil || block.Type == "CERTIFICATE" {
			return block
		}
	}
}

// ParseChain parses a chain file. ACME clients write PEM, but some CAs hand
// out the chain as DER PKCS#7 or as concatenated DER certificates, so those
// are accepted too. An empty chain yields no certificates and no error.
func ParseChain(data []byte) ([]*x509.Certificate, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	if IsPEM(data) {
		return ParsePEMCertificates(data)
	}
	certs, p7Err := DecodePKCS7(data)
	if p7Err == nil {
		return certs, nil
	}
	certs, derErr := x509.ParseCertificates(data)
	if derErr == nil && len(certs) > 0 {
		return certs, nil
	}
	return nil, fmt.Errorf("chain is not PEM, PKCS#7 (%v) or DER (%v)", p7Err, derErr)
}

// IsPEM returns true if the data appears to contain PEM-encoded content.
func IsPEM(data []byte) bool {
	return bytes.Contains(data, []byte("-----BEGIN"))
}

// CertToPEM encodes a certificate as PEM.
func CertToPEM(cert *x509.Certificate) string {
	return string(pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: cert.Raw,
	}))
}

// CertFingerprint returns the SHA-256 fingerprint of a certificate as a lowercase hex string.
func CertFingerprint(cert *x509.Certificate) string {
	hash := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(hash[:])
}

// CertFingerprintColonSHA256 returns the SHA-256 fingerprint in uppercase
// colon-separated hex (AA:BB:CC:...), the format OpenSSL prints.
func CertFingerprintColonSHA256(cert *x509.Certificate) string {
	hash := sha256.Sum256(cert.Raw)
	return strings.ToUpper(ColonHex(hash[:]))
}

// CertFingerprintColonSHA1 returns the SHA-1 fingerprint in uppercase
// colon-separated hex.
func CertFingerprintColonSHA1(cert *x509.Certificate) string {
	hash := sha1.Sum(cert.Raw)
	return strings.ToUpper(ColonHex(hash[:]))
}

// CertSKIEmbedded returns the Subject Key Identifier extension as
// colon-separated hex, or "" when absent.
func CertSKIEmbedded(cert *x509.Certificate) string {
	if len(cert.SubjectKeyId) == 0 {
		return ""
	}
	return ColonHex(cert.SubjectKeyId)
}

// CertAKIEmbedded returns the Authority Key Identifier extension as
// colon-separated hex, or "" when absent.
func CertAKIEmbedded(cert *x509.Certificate) string {
	if len(cert.AuthorityKeyId) == 0 {
		return ""
	}
	return ColonHex(cert.AuthorityKeyId)
}

// ColonHex formats a byte slice as colon-separated lowercase hex.
func ColonHex(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02x", v)
	}
	return strings.Join(parts, ":")
}

// GetCertificateType determines if a certificate is root, intermediate, or leaf.
func GetCertificateType(cert *x509.Certificate) string {
	if cert.IsCA {
		if bytes.Equal(cert.RawIssuer, cert.RawSubject) {
			return "root"
		}
		return "intermediate"
	}
	return "leaf"
}

// PublicKeyAlgorithmName returns a human-readable name for a public key's algorithm.
func PublicKeyAlgorithmName(pub any) string {
	switch pub.(type) {
	case *rsa.PublicKey:
		return "RSA"
	case *ecdsa.PublicKey:
		return "ECDSA"
	case ed25519.PublicKey:
		return "Ed25519"
	default:
		return fmt.Sprintf("%T", pub)
	}
}

// PublicKeySize returns the bit length for RSA keys and the curve name for
// ECDSA keys.
func PublicKeySize(pub any) string {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return fmt.Sprintf("%d", k.N.BitLen())
	case *ecdsa.PublicKey:
		return k.Curve.Params().Name
	case ed25519.PublicKey:
		return "256"
	default:
		return "unknown"
	}
}

// CertSANs returns DNS names, IP addresses and URIs from the certificate's
// SAN extension, in that order.
func CertSANs(cert *x509.Certificate) []string {
	sans := make([]string, 0, len(cert.DNSNames)+len(cert.IPAddresses)+len(cert.URIs))
	sans = append(sans, cert.DNSNames...)
	for _, ip := range cert.IPAddresses {
		sans = append(sans, formatIP(ip))
	}
	for _, uri := range cert.URIs {
		sans = append(sans, uri.String())
	}
	return sans
}

func formatIP(ip net.IP) string {
	if v4 := ip.To4(); v4 != nil {
		return v4.String()
	}
	return ip.String()
}

// CertExpiresWithin reports whether the certificate will expire within the
// given duration from now.
func CertExpiresWithin(cert *x509.Certificate, d time.Duration) bool {
	return time.Now().Add(d).After(cert.NotAfter)
}
